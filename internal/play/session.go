// Package play drives a single play-through of a stored game.
package play

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/memorymate/backend/internal/metrics"
	"github.com/memorymate/backend/internal/models"
	"github.com/memorymate/backend/internal/narration"
	"github.com/memorymate/backend/internal/scoring"
	"go.uber.org/zap"
)

type State string

const (
	StateLoading    State = "loading"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
)

var (
	ErrSessionCompleted = errors.New("session already completed")
	ErrNotInProgress    = errors.New("session is not in progress")
	ErrInvalidAnswer    = errors.New("answer index out of range")
	ErrSessionNotFound  = errors.New("session not found")
	ErrStaleAnswer      = errors.New("answer is for a question that is no longer current")
	ErrNoQuestions      = errors.New("game has no questions")
)

// ResultRecorder persists a finished play-through.
type ResultRecorder interface {
	AppendResult(ctx context.Context, gameID string, result models.Result) error
}

// Clock abstracts time so tests can drive the question timer.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) (stop func() bool)
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

type Options struct {
	Scorer   *scoring.Scorer
	Recorder ResultRecorder
	Narrator narration.Narrator
	Clock    Clock
	Logger   *zap.Logger
	// CompletedTTL is how long a Manager keeps a completed session before
	// evicting it. Zero means DefaultCompletedTTL.
	CompletedTTL time.Duration
}

// Snapshot is a point-in-time copy of a session.
type Snapshot struct {
	ID               string
	GameID           string
	GameName         string
	TimeLimitSeconds *int
	State            State
	QuestionIndex    int
	Questions        []models.Question
	Result           *models.Result
	PersistErr       error
	CompletedAt      time.Time
}

// Session is the Loading -> InProgress(i) -> Completed state machine. All
// transitions happen under mu, including timer expiry.
type Session struct {
	id     string
	game   models.Game
	opts   Options
	logger *zap.Logger

	mu         sync.Mutex
	state      State
	index      int
	questions  []models.Question
	startedAt   time.Time
	shownAt     time.Time
	completedAt time.Time
	stopTimer  func() bool
	timerEpoch uint64
	result     *models.Result
	persistErr error
}

// NewSession prepares a play-through of game and starts it.
func NewSession(id string, game models.Game, opts Options) (*Session, error) {
	if len(game.Questions) == 0 {
		return nil, ErrNoQuestions
	}
	if opts.Scorer == nil {
		opts.Scorer = scoring.NewScorer()
	}
	if opts.Narrator == nil {
		opts.Narrator = narration.Nop{}
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	s := &Session{
		id:     id,
		game:   game.Clone(),
		opts:   opts,
		logger: opts.Logger.With(zap.String("session_id", id), zap.String("game_id", game.ID)),
		state:  StateLoading,
	}

	s.mu.Lock()
	s.startLocked()
	s.mu.Unlock()
	return s, nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) GameID() string { return s.game.ID }

// Answer records answerIndex for question questionIndex and advances. The
// answer is rejected with ErrStaleAnswer when questionIndex is no longer the
// current question, for example after its timer fired.
func (s *Session) Answer(ctx context.Context, questionIndex, answerIndex int) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateCompleted:
		return s.snapshotLocked(), ErrSessionCompleted
	case StateInProgress:
	default:
		return s.snapshotLocked(), ErrNotInProgress
	}

	if questionIndex != s.index {
		return s.snapshotLocked(), fmt.Errorf("%w: answered %d, current %d", ErrStaleAnswer, questionIndex, s.index)
	}

	q := &s.questions[s.index]
	if answerIndex < 0 || answerIndex >= len(q.Options) {
		return s.snapshotLocked(), fmt.Errorf("%w: %d", ErrInvalidAnswer, answerIndex)
	}

	answer := answerIndex
	spent := s.elapsedLocked()
	q.UserAnswer = &answer
	q.TimeSpentSeconds = &spent

	s.advanceLocked(ctx)
	return s.snapshotLocked(), nil
}

// PlayAgain restarts a completed session from a fresh copy of the game.
func (s *Session) PlayAgain() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateCompleted {
		return s.snapshotLocked(), ErrNotInProgress
	}
	s.startLocked()
	return s.snapshotLocked(), nil
}

// Close releases the question timer. The session keeps its current state.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearTimerLocked()
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) startLocked() {
	s.clearTimerLocked()
	s.state = StateLoading
	s.questions = models.CloneQuestions(s.game.Questions)
	s.result = nil
	s.persistErr = nil
	s.completedAt = time.Time{}
	s.index = 0
	s.startedAt = s.opts.Clock.Now()

	narration.Safe(s.opts.Narrator, s.logger, narration.Intro(s.game.Name, len(s.questions)))

	s.state = StateInProgress
	s.showLocked()
}

func (s *Session) showLocked() {
	s.shownAt = s.opts.Clock.Now()
	q := s.questions[s.index]
	narration.Safe(s.opts.Narrator, s.logger, narration.Question(s.index+1, q.Question, q.Options))

	if s.game.TimeLimitSeconds == nil || *s.game.TimeLimitSeconds <= 0 {
		return
	}
	s.timerEpoch++
	epoch := s.timerEpoch
	limit := time.Duration(*s.game.TimeLimitSeconds) * time.Second
	s.stopTimer = s.opts.Clock.AfterFunc(limit, func() { s.expire(epoch) })
}

// expire handles a fired question timer. A timer armed for an earlier
// question or play-through is ignored.
func (s *Session) expire(epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateInProgress || epoch != s.timerEpoch {
		return
	}

	spent := s.elapsedLocked()
	s.questions[s.index].TimeSpentSeconds = &spent
	s.logger.Debug("question timed out", zap.Int("index", s.index))

	s.advanceLocked(context.Background())
}

func (s *Session) advanceLocked(ctx context.Context) {
	s.clearTimerLocked()
	if s.index < len(s.questions)-1 {
		s.index++
		s.showLocked()
		return
	}
	s.completeLocked(ctx)
}

func (s *Session) completeLocked(ctx context.Context) {
	total := s.opts.Clock.Now().Sub(s.startedAt).Seconds()
	result := s.opts.Scorer.Score(s.game.ID, s.questions, s.game.Difficulty, total)
	s.result = &result
	s.state = StateCompleted
	s.completedAt = s.opts.Clock.Now()

	if s.opts.Recorder != nil {
		if err := s.opts.Recorder.AppendResult(ctx, s.game.ID, result); err != nil {
			s.persistErr = err
			s.logger.Error("failed to persist result", zap.String("result_id", result.ID), zap.Error(err))
		}
	}
	metrics.RecordSessionCompleted()

	s.logger.Info("play-through completed",
		zap.Int("score", result.Score),
		zap.Int("total", result.TotalQuestions),
		zap.Float64("time_spent_seconds", result.TimeSpentSeconds),
	)
	narration.Safe(s.opts.Narrator, s.logger, narration.Completion(result.Score, result.TotalQuestions))
}

func (s *Session) clearTimerLocked() {
	if s.stopTimer != nil {
		s.stopTimer()
		s.stopTimer = nil
	}
	s.timerEpoch++
}

// completedBefore reports whether the session finished before t.
func (s *Session) completedBefore(t time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateCompleted && s.completedAt.Before(t)
}

func (s *Session) elapsedLocked() float64 {
	d := s.opts.Clock.Now().Sub(s.shownAt).Seconds()
	if d < 0 {
		return 0
	}
	return d
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:            s.id,
		GameID:        s.game.ID,
		GameName:      s.game.Name,
		State:         s.state,
		QuestionIndex: s.index,
		Questions:     models.CloneQuestions(s.questions),
		PersistErr:    s.persistErr,
		CompletedAt:   s.completedAt,
	}
	if s.game.TimeLimitSeconds != nil {
		limit := *s.game.TimeLimitSeconds
		snap.TimeLimitSeconds = &limit
	}
	if s.result != nil {
		r := *s.result
		snap.Result = &r
	}
	return snap
}
