// Package narration speaks game text aloud. Speech is best-effort: a failing
// narrator never interrupts play.
package narration

import (
	"fmt"

	"go.uber.org/zap"
)

type Narrator interface {
	Speak(text string)
}

// Nop discards everything.
type Nop struct{}

func (Nop) Speak(string) {}

// Func adapts a plain function to Narrator.
type Func func(text string)

func (f Func) Speak(text string) { f(text) }

// Logger writes narration to a zap logger, for headless deployments.
type Logger struct {
	log *zap.Logger
}

func NewLogger(log *zap.Logger) *Logger {
	return &Logger{log: log}
}

func (l *Logger) Speak(text string) {
	l.log.Info("narration", zap.String("text", text))
}

// Safe calls n.Speak and swallows any panic it raises.
func Safe(n Narrator, log *zap.Logger, text string) {
	if n == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil && log != nil {
			log.Warn("narrator failed", zap.Any("panic", r))
		}
	}()
	n.Speak(text)
}

func Intro(gameName string, questionCount int) string {
	return fmt.Sprintf("Starting %s. This game has %d questions.", gameName, questionCount)
}

func Question(number int, text string, options []string) string {
	s := fmt.Sprintf("Question %d. %s", number, text)
	for i, opt := range options {
		s += fmt.Sprintf(" Option %c: %s.", 'A'+i, opt)
	}
	return s
}

func Completion(score, total int) string {
	return fmt.Sprintf("Game complete. You got %d out of %d correct.", score, total)
}
