package scoring

import (
	"testing"
	"time"

	"github.com/memorymate/backend/internal/models"
	"github.com/stretchr/testify/assert"
)

func answered(correct, answer int) models.Question {
	spent := 3.0
	return models.Question{
		ID: "q", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: correct,
		UserAnswer: &answer, TimeSpentSeconds: &spent,
	}
}

func TestScore_UnansweredCountsAgainstTotal(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewScorer()
	s.now = func() time.Time { return fixed }
	s.newID = func() string { return "result-1" }

	questions := []models.Question{
		answered(0, 0),
		answered(1, 1),
		answered(2, 2),
		answered(3, 0),
		{ID: "q5", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: 1},
	}
	before := models.CloneQuestions(questions)

	r := s.Score("game-1", questions, models.DifficultyMedium, 42.5)

	assert.Equal(t, 3, r.Score)
	assert.Equal(t, 5, r.TotalQuestions)
	assert.Equal(t, "result-1", r.ID)
	assert.Equal(t, "game-1", r.GameID)
	assert.Equal(t, 42.5, r.TimeSpentSeconds)
	assert.Equal(t, fixed, r.CompletedAt)
	assert.Equal(t, models.DifficultyMedium, r.Difficulty)
	assert.Equal(t, before, questions)
}

func TestScore_FreshIDs(t *testing.T) {
	s := NewScorer()
	a := s.Score("g", nil, models.DifficultyEasy, 1)
	b := s.Score("g", nil, models.DifficultyEasy, 1)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Zero(t, a.Score)
	assert.Zero(t, a.TotalQuestions)
}

func TestScore_TimedOutQuestionIsWrong(t *testing.T) {
	spent := 30.0
	q := models.Question{ID: "q", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: 0, TimeSpentSeconds: &spent}

	r := NewScorer().Score("g", []models.Question{q}, models.DifficultyHard, 30)
	assert.Equal(t, 0, r.Score)
	assert.Equal(t, 1, r.TotalQuestions)
}

func TestEncouragementMessage(t *testing.T) {
	cases := []struct {
		score, total int
		want         string
	}{
		{9, 10, "Outstanding! Your memory is exceptional!"},
		{3, 4, "Great job! You have excellent recall!"},
		{6, 10, "Well done! You're making good progress!"},
		{2, 5, "Good effort! Keep practicing to improve!"},
		{1, 5, "Thanks for playing! Each session helps strengthen your memory!"},
		{0, 0, "Thanks for playing! Each session helps strengthen your memory!"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, EncouragementMessage(tc.score, tc.total), "%d/%d", tc.score, tc.total)
	}
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "00:00", FormatTime(0))
	assert.Equal(t, "00:59", FormatTime(59.9))
	assert.Equal(t, "01:05", FormatTime(65))
	assert.Equal(t, "61:01", FormatTime(3661))
	assert.Equal(t, "00:00", FormatTime(-4))
}
