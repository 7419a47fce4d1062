package generator

import (
	"context"
	"errors"
	"time"

	"github.com/memorymate/backend/internal/metrics"
	"github.com/memorymate/backend/internal/models"
	"go.uber.org/zap"
)

type Source string

const (
	SourceRemote   Source = "remote"
	SourceFallback Source = "fallback"
)

// Generation is the outcome of a round, with where the questions came from.
type Generation struct {
	Questions      []models.Question
	Source         Source
	FallbackReason string
}

// Orchestrator tries remote generation and substitutes local questions on
// any remote failure, including transient network errors.
type Orchestrator struct {
	remote   Synthesizer
	fallback Synthesizer
	logger   *zap.Logger
}

func NewOrchestrator(remote, fallback Synthesizer, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{remote: remote, fallback: fallback, logger: logger}
}

// GenerateQuestions fails only with ErrInvalidInput; remote problems are
// reported through Generation.FallbackReason.
func (o *Orchestrator) GenerateQuestions(ctx context.Context, in GenerationInput) (*Generation, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	var reason string
	if o.remote == nil {
		reason = fallbackReason(ErrRemoteUnavailable)
	} else {
		questions, err := o.remote.Generate(ctx, in)
		if err == nil {
			err = ValidateQuestions(questions, in.QuestionCount)
		}
		if err == nil {
			metrics.ObserveGeneration(string(SourceRemote), time.Since(start))
			return &Generation{Questions: questions, Source: SourceRemote}, nil
		}
		reason = fallbackReason(err)
		o.logger.Warn("remote generation failed, falling back to local questions",
			zap.String("reason", reason), zap.Error(err))
	}

	metrics.RecordFallback(reason)
	questions, err := o.fallback.Generate(ctx, in)
	if err != nil {
		return nil, err
	}
	metrics.ObserveGeneration(string(SourceFallback), time.Since(start))
	o.logger.Info("fallback generated questions", zap.Int("count", len(questions)))
	return &Generation{Questions: questions, Source: SourceFallback, FallbackReason: reason}, nil
}

func fallbackReason(err error) string {
	var genErr *GenerationError
	var valErr *ValidationError
	switch {
	case errors.Is(err, ErrRemoteUnavailable):
		return "unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &genErr):
		return "no_questions"
	case errors.As(err, &valErr):
		return "malformed"
	default:
		return "error"
	}
}
