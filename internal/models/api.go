package models

// ── Request Types ─────────────────────────────────────

type CreateGameRequest struct {
	Name             string     `json:"name"`
	Difficulty       Difficulty `json:"difficulty"`
	QuestionCount    int        `json:"question_count"`
	TimeLimitSeconds *int       `json:"time_limit_seconds"`
	Topics           []string   `json:"topics"`
	Images           []string   `json:"images"`
}

// UpdateGameRequest carries the editable fields of a game. Question count,
// difficulty and questions are fixed once a game exists.
type UpdateGameRequest struct {
	Name             *string  `json:"name,omitempty"`
	TimeLimitSeconds *int     `json:"time_limit_seconds,omitempty"`
	ClearTimeLimit   bool     `json:"clear_time_limit,omitempty"`
	Topics           []string `json:"topics,omitempty"`
}

// SubmitAnswerRequest answers one question. QuestionIndex names the question
// the player saw so a late answer cannot land on the next one.
type SubmitAnswerRequest struct {
	QuestionIndex *int `json:"question_index"`
	AnswerIndex   *int `json:"answer_index"`
}

type LoginRequest struct {
	Password string `json:"password"`
}

// ── Response Types ────────────────────────────────────

type CreateGameResponse struct {
	Game    Game   `json:"game"`
	Source  string `json:"source"`
	Warning string `json:"warning,omitempty"`
}

type GameSummary struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Difficulty       Difficulty `json:"difficulty"`
	QuestionCount    int        `json:"question_count"`
	TimeLimitSeconds *int       `json:"time_limit_seconds"`
	Topics           []string   `json:"topics"`
	ThumbnailImage   string     `json:"thumbnail_image"`
	PlayCount        int        `json:"play_count"`
	BestScore        *int       `json:"best_score,omitempty"`
	LastResult       *Result    `json:"last_result,omitempty"`
}

type ResultResponse struct {
	Result        Result `json:"result"`
	Message       string `json:"message"`
	FormattedTime string `json:"formatted_time"`
}

type UploadResponse struct {
	Images []string `json:"images"`
}

type AuthResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// SessionQuestion is a question as shown during play. CorrectAnswer is only
// present once the question has been answered or timed out.
type SessionQuestion struct {
	ID               string   `json:"id"`
	ImageURL         string   `json:"image_url"`
	Question         string   `json:"question"`
	Options          []string `json:"options"`
	CorrectAnswer    *int     `json:"correct_answer,omitempty"`
	UserAnswer       *int     `json:"user_answer,omitempty"`
	TimeSpentSeconds *float64 `json:"time_spent_seconds,omitempty"`
}

type SessionResponse struct {
	ID               string            `json:"id"`
	GameID           string            `json:"game_id"`
	GameName         string            `json:"game_name"`
	State            string            `json:"state"`
	QuestionIndex    int               `json:"question_index"`
	TotalQuestions   int               `json:"total_questions"`
	TimeLimitSeconds *int              `json:"time_limit_seconds"`
	Questions        []SessionQuestion `json:"questions"`
	Result           *ResultResponse   `json:"result,omitempty"`
	Warning          string            `json:"warning,omitempty"`
}
