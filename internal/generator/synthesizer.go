package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/memorymate/backend/internal/models"
)

// GenerationInput describes one question round.
type GenerationInput struct {
	Images        []string
	Topics        []string
	Difficulty    models.Difficulty
	QuestionCount int
}

func (in GenerationInput) validate() error {
	if len(in.Images) == 0 {
		return ErrInvalidInput
	}
	if in.QuestionCount <= 0 {
		return fmt.Errorf("%w: question count must be positive", ErrInvalidInput)
	}
	return nil
}

// Synthesizer produces a question set for a round.
type Synthesizer interface {
	Generate(ctx context.Context, in GenerationInput) ([]models.Question, error)
}

// AssignImages maps each question slot to an image index, cycling through
// the images in order: slot i uses image i mod imageCount.
func AssignImages(imageCount, questionCount int) []int {
	if imageCount <= 0 || questionCount <= 0 {
		return nil
	}
	out := make([]int, questionCount)
	for i := range out {
		out[i] = i % imageCount
	}
	return out
}

// ValidateQuestions checks structural invariants of a generated set.
func ValidateQuestions(qs []models.Question, maxCount int) error {
	if len(qs) == 0 {
		return &ValidationError{Errors: []string{"no questions"}}
	}
	var errs []string
	if maxCount > 0 && len(qs) > maxCount {
		errs = append(errs, fmt.Sprintf("got %d questions, at most %d requested", len(qs), maxCount))
	}
	ids := make(map[string]bool, len(qs))
	for i, q := range qs {
		qNum := i + 1
		if q.ID == "" {
			errs = append(errs, fmt.Sprintf("question %d: empty id", qNum))
		} else if ids[q.ID] {
			errs = append(errs, fmt.Sprintf("question %d: duplicate id %q", qNum, q.ID))
		}
		ids[q.ID] = true
		if strings.TrimSpace(q.Question) == "" {
			errs = append(errs, fmt.Sprintf("question %d: empty question text", qNum))
		}
		if len(q.Options) != models.OptionCount {
			errs = append(errs, fmt.Sprintf("question %d: expected %d options, got %d", qNum, models.OptionCount, len(q.Options)))
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= models.OptionCount {
			errs = append(errs, fmt.Sprintf("question %d: correct answer %d out of range", qNum, q.CorrectAnswer))
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}
