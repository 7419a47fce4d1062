package generator

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/memorymate/backend/internal/models"
)

var difficultyFactor = map[models.Difficulty]string{
	models.DifficultyEasy:   "simple",
	models.DifficultyMedium: "moderate",
	models.DifficultyHard:   "challenging",
}

// FallbackSynthesizer builds placeholder questions locally. Shape is fixed;
// topic choice and correct index are random.
type FallbackSynthesizer struct {
	delay   time.Duration
	intn    func(n int) int
	batchID func() string
}

// NewFallbackSynthesizer returns a synthesizer that waits delay before
// answering so the caller sees similar latency on both paths.
func NewFallbackSynthesizer(delay time.Duration) *FallbackSynthesizer {
	return &FallbackSynthesizer{
		delay:   delay,
		intn:    rand.IntN,
		batchID: func() string { return uuid.NewString() },
	}
}

// Generate always yields exactly in.QuestionCount questions for non-empty
// images. Cancelling ctx shortens the delay but does not fail the call.
func (f *FallbackSynthesizer) Generate(ctx context.Context, in GenerationInput) ([]models.Question, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	if f.delay > 0 {
		t := time.NewTimer(f.delay)
		select {
		case <-ctx.Done():
		case <-t.C:
		}
		t.Stop()
	}

	factor, ok := difficultyFactor[in.Difficulty]
	if !ok {
		factor = difficultyFactor[models.DifficultyMedium]
	}

	batch := f.batchID()
	questions := make([]models.Question, in.QuestionCount)
	for i, imageIndex := range AssignImages(len(in.Images), in.QuestionCount) {
		variant := i/len(in.Images) + 1

		topicText := ""
		if len(in.Topics) > 0 {
			topicText = " about " + in.Topics[f.intn(len(in.Topics))]
		}

		questions[i] = models.Question{
			ID:       fmt.Sprintf("q-%s-%d", batch, i),
			ImageURL: in.Images[imageIndex],
			Question: fmt.Sprintf("What's happening in this %s memory%s? (Question %d)", factor, topicText, variant),
			Options: []string{
				fmt.Sprintf("Option A for question %d", i+1),
				fmt.Sprintf("Option B for question %d", i+1),
				fmt.Sprintf("Option C for question %d", i+1),
				fmt.Sprintf("Option D for question %d", i+1),
			},
			CorrectAnswer: f.intn(models.OptionCount),
		}
	}
	return questions, nil
}
