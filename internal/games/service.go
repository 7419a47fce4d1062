// Package games exposes game creation, the game library and play sessions.
package games

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/memorymate/backend/internal/generator"
	"github.com/memorymate/backend/internal/intake"
	"github.com/memorymate/backend/internal/models"
	"github.com/memorymate/backend/internal/play"
	"github.com/memorymate/backend/internal/scoring"
	"github.com/memorymate/backend/internal/store"
	"go.uber.org/zap"
)

const (
	DefaultQuestionCount = 5
	MinTimeLimitSeconds  = 10
	MaxTimeLimitSeconds  = 60

	fallbackWarning    = "We couldn't reach the question service, so practice questions were created instead."
	persistFailWarning = "Your result could not be saved."
)

// InputError is a request the caller can fix.
type InputError struct {
	Message string
}

func (e *InputError) Error() string { return e.Message }

func invalid(format string, args ...interface{}) error {
	return &InputError{Message: fmt.Sprintf(format, args...)}
}

// QuestionGenerator produces a question set for a new game.
type QuestionGenerator interface {
	GenerateQuestions(ctx context.Context, in generator.GenerationInput) (*generator.Generation, error)
}

type Limits struct {
	MaxImages    int
	MaxQuestions int
}

type Service struct {
	generator QuestionGenerator
	store     *store.GameStore
	sessions  *play.Manager
	encoder   *intake.Encoder
	limits    Limits
	logger    *zap.Logger

	newID func() string
	now   func() time.Time
}

func NewService(gen QuestionGenerator, gs *store.GameStore, sessions *play.Manager, encoder *intake.Encoder, limits Limits, logger *zap.Logger) *Service {
	if limits.MaxImages <= 0 {
		limits.MaxImages = intake.DefaultMaxImages
	}
	if limits.MaxQuestions <= 0 {
		limits.MaxQuestions = 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		generator: gen,
		store:     gs,
		sessions:  sessions,
		encoder:   encoder,
		limits:    limits,
		logger:    logger,
		newID:     func() string { return "game-" + uuid.NewString() },
		now:       time.Now,
	}
}

// CreateGame generates questions and persists the new game. The game is
// stored only after a complete generation round.
func (s *Service) CreateGame(ctx context.Context, req models.CreateGameRequest) (*models.CreateGameResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name is required")
	}

	if req.Difficulty == "" {
		req.Difficulty = models.DifficultyMedium
	}
	if !models.ValidDifficulties[req.Difficulty] {
		return nil, invalid("difficulty must be 'easy', 'medium', or 'hard'")
	}

	if len(req.Images) > s.limits.MaxImages {
		return nil, invalid("at most %d images are allowed", s.limits.MaxImages)
	}

	if req.QuestionCount == 0 {
		req.QuestionCount = DefaultQuestionCount
	}
	if req.QuestionCount < 1 || req.QuestionCount > s.limits.MaxQuestions {
		return nil, invalid("question_count must be between 1 and %d", s.limits.MaxQuestions)
	}

	if err := validateTimeLimit(req.TimeLimitSeconds); err != nil {
		return nil, err
	}

	topics := normalizeTopics(req.Topics)

	gen, err := s.generator.GenerateQuestions(ctx, generator.GenerationInput{
		Images:        req.Images,
		Topics:        topics,
		Difficulty:    req.Difficulty,
		QuestionCount: req.QuestionCount,
	})
	if err != nil {
		if errors.Is(err, generator.ErrInvalidInput) {
			return nil, &InputError{Message: "Please upload at least one photo"}
		}
		return nil, fmt.Errorf("generate questions: %w", err)
	}

	game := models.Game{
		ID:               s.newID(),
		Name:             name,
		Difficulty:       req.Difficulty,
		QuestionCount:    len(gen.Questions),
		TimeLimitSeconds: req.TimeLimitSeconds,
		Topics:           topics,
		CreatedAt:        s.now().UTC(),
		ThumbnailImage:   req.Images[0],
		Questions:        gen.Questions,
		Results:          []models.Result{},
	}

	if err := s.store.Add(ctx, game); err != nil {
		return nil, err
	}

	s.logger.Info("game created",
		zap.String("game_id", game.ID),
		zap.String("source", string(gen.Source)),
		zap.Int("questions", game.QuestionCount),
		zap.Int("requested", req.QuestionCount),
	)

	resp := &models.CreateGameResponse{Game: game, Source: string(gen.Source)}
	if gen.Source == generator.SourceFallback {
		resp.Warning = fallbackWarning
	}
	return resp, nil
}

func (s *Service) ListGames(ctx context.Context) ([]models.GameSummary, error) {
	games, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]models.GameSummary, 0, len(games))
	for _, g := range games {
		summaries = append(summaries, summarize(g))
	}
	return summaries, nil
}

func (s *Service) GetGame(ctx context.Context, id string) (*models.Game, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) UpdateGame(ctx context.Context, id string, req models.UpdateGameRequest) (*models.Game, error) {
	var name string
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, invalid("name cannot be empty")
		}
	}
	if !req.ClearTimeLimit {
		if err := validateTimeLimit(req.TimeLimitSeconds); err != nil {
			return nil, err
		}
	}

	return s.store.Update(ctx, id, func(g *models.Game) error {
		if req.Name != nil {
			g.Name = name
		}
		switch {
		case req.ClearTimeLimit:
			g.TimeLimitSeconds = nil
		case req.TimeLimitSeconds != nil:
			v := *req.TimeLimitSeconds
			g.TimeLimitSeconds = &v
		}
		if req.Topics != nil {
			g.Topics = normalizeTopics(req.Topics)
		}
		return nil
	})
}

// DeleteGame removes the game with its history and ends its live sessions.
func (s *Service) DeleteGame(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.sessions.CloseGame(id)
	return nil
}

func (s *Service) GetResults(ctx context.Context, id string) ([]models.ResultResponse, error) {
	game, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]models.ResultResponse, 0, len(game.Results))
	for _, r := range game.Results {
		out = append(out, resultResponse(r))
	}
	return out, nil
}

func (s *Service) EncodeImages(files []intake.File, held int) ([]string, error) {
	return s.encoder.EncodeAll(files, held)
}

func (s *Service) StartSession(ctx context.Context, gameID string) (*models.SessionResponse, error) {
	sess, err := s.sessions.Start(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return sessionResponse(sess.Snapshot()), nil
}

func (s *Service) GetSession(ctx context.Context, id string) (*models.SessionResponse, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	return sessionResponse(sess.Snapshot()), nil
}

func (s *Service) SubmitAnswer(ctx context.Context, id string, questionIndex, answerIndex int) (*models.SessionResponse, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	snap, err := sess.Answer(ctx, questionIndex, answerIndex)
	if err != nil {
		return nil, err
	}
	return sessionResponse(snap), nil
}

func (s *Service) RestartSession(ctx context.Context, id string) (*models.SessionResponse, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	snap, err := sess.PlayAgain()
	if err != nil {
		return nil, err
	}
	return sessionResponse(snap), nil
}

func (s *Service) EndSession(id string) error {
	return s.sessions.Close(id)
}

func validateTimeLimit(limit *int) error {
	if limit == nil {
		return nil
	}
	if *limit < MinTimeLimitSeconds || *limit > MaxTimeLimitSeconds {
		return invalid("time_limit_seconds must be between %d and %d", MinTimeLimitSeconds, MaxTimeLimitSeconds)
	}
	return nil
}

// normalizeTopics trims topics and drops blanks and exact duplicates,
// keeping first-seen order.
func normalizeTopics(topics []string) []string {
	seen := make(map[string]bool, len(topics))
	out := make([]string, 0, len(topics))
	for _, t := range topics {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func summarize(g models.Game) models.GameSummary {
	sum := models.GameSummary{
		ID:               g.ID,
		Name:             g.Name,
		Difficulty:       g.Difficulty,
		QuestionCount:    g.QuestionCount,
		TimeLimitSeconds: g.TimeLimitSeconds,
		Topics:           g.Topics,
		ThumbnailImage:   g.ThumbnailImage,
		PlayCount:        len(g.Results),
	}
	if len(g.Results) > 0 {
		last := g.Results[0]
		sum.LastResult = &last
		best := 0
		for _, r := range g.Results {
			if r.Score > best {
				best = r.Score
			}
		}
		sum.BestScore = &best
	}
	return sum
}

func resultResponse(r models.Result) models.ResultResponse {
	return models.ResultResponse{
		Result:        r,
		Message:       scoring.EncouragementMessage(r.Score, r.TotalQuestions),
		FormattedTime: scoring.FormatTime(r.TimeSpentSeconds),
	}
}

func sessionResponse(snap play.Snapshot) *models.SessionResponse {
	resp := &models.SessionResponse{
		ID:               snap.ID,
		GameID:           snap.GameID,
		GameName:         snap.GameName,
		State:            string(snap.State),
		QuestionIndex:    snap.QuestionIndex,
		TotalQuestions:   len(snap.Questions),
		TimeLimitSeconds: snap.TimeLimitSeconds,
		Questions:        make([]models.SessionQuestion, 0, len(snap.Questions)),
	}
	completed := snap.State == play.StateCompleted
	for _, q := range snap.Questions {
		sq := models.SessionQuestion{
			ID:               q.ID,
			ImageURL:         q.ImageURL,
			Question:         q.Question,
			Options:          q.Options,
			UserAnswer:       q.UserAnswer,
			TimeSpentSeconds: q.TimeSpentSeconds,
		}
		if completed || q.Answered() || q.TimeSpentSeconds != nil {
			correct := q.CorrectAnswer
			sq.CorrectAnswer = &correct
		}
		resp.Questions = append(resp.Questions, sq)
	}
	if snap.Result != nil {
		rr := resultResponse(*snap.Result)
		resp.Result = &rr
	}
	if snap.PersistErr != nil {
		resp.Warning = persistFailWarning
	}
	return resp
}
