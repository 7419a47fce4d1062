package models

import "time"

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

var ValidDifficulties = map[Difficulty]bool{
	DifficultyEasy:   true,
	DifficultyMedium: true,
	DifficultyHard:   true,
}

// OptionCount is the fixed number of options on every question.
const OptionCount = 4

// ── Core Structs ───────────────────────────────────────

// Question is one multiple-choice item. A question is unanswered while
// UserAnswer is nil; answering sets UserAnswer and TimeSpentSeconds together.
// A question whose timer expired carries TimeSpentSeconds without an answer.
type Question struct {
	ID               string   `json:"id"`
	ImageURL         string   `json:"image_url"`
	Question         string   `json:"question"`
	Options          []string `json:"options"`
	CorrectAnswer    int      `json:"correct_answer"`
	UserAnswer       *int     `json:"user_answer,omitempty"`
	TimeSpentSeconds *float64 `json:"time_spent_seconds,omitempty"`
}

func (q Question) Answered() bool {
	return q.UserAnswer != nil
}

func (q Question) Correct() bool {
	return q.UserAnswer != nil && *q.UserAnswer == q.CorrectAnswer
}

// Clone returns a deep copy so play-throughs never mutate a stored template.
func (q Question) Clone() Question {
	c := q
	c.Options = append([]string(nil), q.Options...)
	if q.UserAnswer != nil {
		v := *q.UserAnswer
		c.UserAnswer = &v
	}
	if q.TimeSpentSeconds != nil {
		v := *q.TimeSpentSeconds
		c.TimeSpentSeconds = &v
	}
	return c
}

func CloneQuestions(qs []Question) []Question {
	out := make([]Question, len(qs))
	for i, q := range qs {
		out[i] = q.Clone()
	}
	return out
}

type Game struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Difficulty       Difficulty `json:"difficulty"`
	QuestionCount    int        `json:"question_count"`
	TimeLimitSeconds *int       `json:"time_limit_seconds"`
	Topics           []string   `json:"topics"`
	CreatedAt        time.Time  `json:"created_at"`
	ThumbnailImage   string     `json:"thumbnail_image"`
	Questions        []Question `json:"questions"`
	Results          []Result   `json:"results"`
}

// Clone returns a deep copy of the game, including questions and results.
func (g Game) Clone() Game {
	c := g
	if g.TimeLimitSeconds != nil {
		v := *g.TimeLimitSeconds
		c.TimeLimitSeconds = &v
	}
	c.Topics = append([]string(nil), g.Topics...)
	c.Questions = CloneQuestions(g.Questions)
	c.Results = append([]Result(nil), g.Results...)
	return c
}

type Result struct {
	ID               string     `json:"id"`
	GameID           string     `json:"game_id"`
	Score            int        `json:"score"`
	TotalQuestions   int        `json:"total_questions"`
	TimeSpentSeconds float64    `json:"time_spent_seconds"`
	CompletedAt      time.Time  `json:"completed_at"`
	Difficulty       Difficulty `json:"difficulty"`
}
