package generator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/memorymate/backend/internal/metrics"
	"github.com/memorymate/backend/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultTemperature applies when RemoteOptions.Temperature is nil.
const DefaultTemperature = 0.8

type RemoteOptions struct {
	// Temperature is sent on every call; nil means DefaultTemperature.
	Temperature *float64
	MaxTokens   int
	// Concurrency caps in-flight model calls; zero means one per question.
	Concurrency int
	// ItemTimeout bounds a single model call; zero disables it.
	ItemTimeout time.Duration
}

// RemoteSynthesizer issues one model call per question slot, all
// concurrently, and keeps whatever parses.
type RemoteSynthesizer struct {
	llm     LLMClient
	prompts *PromptCatalog
	opts    RemoteOptions
	logger  *zap.Logger
	batchID func() string
}

func NewRemoteSynthesizer(llm LLMClient, prompts *PromptCatalog, opts RemoteOptions, logger *zap.Logger) *RemoteSynthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Temperature == nil {
		t := DefaultTemperature
		opts.Temperature = &t
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 500
	}
	return &RemoteSynthesizer{
		llm:     llm,
		prompts: prompts,
		opts:    opts,
		logger:  logger,
		batchID: func() string { return uuid.NewString() },
	}
}

type itemOutcome struct {
	question *models.Question
	failure  *ItemFailure
}

// Generate returns the surviving questions ordered by slot index. It fails
// with *GenerationError only when every slot failed.
func (s *RemoteSynthesizer) Generate(ctx context.Context, in GenerationInput) ([]models.Question, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if s.llm == nil || s.prompts == nil {
		return nil, ErrRemoteUnavailable
	}

	assignments := AssignImages(len(in.Images), in.QuestionCount)
	batch := s.batchID()
	system := s.prompts.SystemPrompt(in.Difficulty, in.Topics)

	s.logger.Info("generating questions",
		zap.Int("question_count", in.QuestionCount),
		zap.Int("image_count", len(in.Images)),
		zap.String("difficulty", string(in.Difficulty)))

	outcomes := make([]itemOutcome, in.QuestionCount)

	// Every task returns nil so one failure never cancels its siblings.
	var g errgroup.Group
	if s.opts.Concurrency > 0 {
		g.SetLimit(s.opts.Concurrency)
	}
	for i, imageIndex := range assignments {
		g.Go(func() error {
			q, err := s.generateOne(ctx, batch, i, in.Images[imageIndex], system)
			if err != nil {
				outcomes[i] = itemOutcome{failure: &ItemFailure{Index: i, ImageIndex: imageIndex, Err: err}}
				return nil
			}
			outcomes[i] = itemOutcome{question: q}
			return nil
		})
	}
	_ = g.Wait()

	questions := make([]models.Question, 0, in.QuestionCount)
	var failures []*ItemFailure
	for _, o := range outcomes {
		if o.question != nil {
			questions = append(questions, *o.question)
			metrics.RecordItem(true)
			continue
		}
		failures = append(failures, o.failure)
		metrics.RecordItem(false)
		s.logger.Warn("question generation failed",
			zap.Int("question_index", o.failure.Index),
			zap.Int("image_index", o.failure.ImageIndex),
			zap.Error(o.failure.Err))
	}

	if len(questions) == 0 {
		return nil, &GenerationError{Requested: in.QuestionCount, Failures: failures}
	}

	s.logger.Info("generated questions",
		zap.Int("generated", len(questions)), zap.Int("failed", len(failures)))
	return questions, nil
}

func (s *RemoteSynthesizer) generateOne(ctx context.Context, batch string, index int, imageURL, system string) (q *models.Question, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("generation panicked: %v", r)
		}
	}()

	image, err := ParseImageHandle(imageURL)
	if err != nil {
		return nil, fmt.Errorf("image handle: %w", err)
	}

	if s.opts.ItemTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.ItemTimeout)
		defer cancel()
	}

	resp, err := s.llm.Generate(ctx, GenerationRequest{
		System:      system,
		User:        s.prompts.UserPrompt(index),
		Image:       image,
		Temperature: *s.opts.Temperature,
		MaxTokens:   s.opts.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("generate question: %w", err)
	}

	parsed, err := ParseQuestion(resp.Content)
	if err != nil {
		s.logger.Debug("unparseable model reply", zap.Int("question_index", index), zap.String("raw", resp.Content))
		return nil, err
	}

	return &models.Question{
		ID:            fmt.Sprintf("q-%s-%d", batch, index),
		ImageURL:      imageURL,
		Question:      parsed.Question,
		Options:       parsed.Options,
		CorrectAnswer: parsed.CorrectAnswer,
	}, nil
}
