package scoring

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/memorymate/backend/internal/models"
)

// Scorer turns a finished play-through into a Result.
type Scorer struct {
	now   func() time.Time
	newID func() string
}

func NewScorer() *Scorer {
	return &Scorer{
		now:   time.Now,
		newID: func() string { return "result-" + uuid.NewString() },
	}
}

// Score counts correct answers over all questions; unanswered and timed-out
// questions stay in the denominator. The input is not modified.
func (s *Scorer) Score(gameID string, questions []models.Question, difficulty models.Difficulty, totalTimeSpentSeconds float64) models.Result {
	correct := 0
	for _, q := range questions {
		if q.Correct() {
			correct++
		}
	}
	if totalTimeSpentSeconds < 0 {
		totalTimeSpentSeconds = 0
	}
	return models.Result{
		ID:               s.newID(),
		GameID:           gameID,
		Score:            correct,
		TotalQuestions:   len(questions),
		TimeSpentSeconds: totalTimeSpentSeconds,
		CompletedAt:      s.now(),
		Difficulty:       difficulty,
	}
}

// EncouragementMessage picks a message from the score percentage.
func EncouragementMessage(score, total int) string {
	percentage := 0.0
	if total > 0 {
		percentage = float64(score) / float64(total) * 100
	}

	switch {
	case percentage >= 90:
		return "Outstanding! Your memory is exceptional!"
	case percentage >= 75:
		return "Great job! You have excellent recall!"
	case percentage >= 60:
		return "Well done! You're making good progress!"
	case percentage >= 40:
		return "Good effort! Keep practicing to improve!"
	default:
		return "Thanks for playing! Each session helps strengthen your memory!"
	}
}

// FormatTime renders whole seconds as mm:ss.
func FormatTime(seconds float64) string {
	total := int(math.Floor(math.Max(seconds, 0)))
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
