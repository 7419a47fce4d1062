package generator

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/memorymate/backend/internal/models"
)

// ParsedQuestion is a model reply that passed schema validation.
type ParsedQuestion struct {
	Question      string
	Options       []string
	CorrectAnswer int
}

// generatedQuestion is the wire shape the model is asked to produce.
type generatedQuestion struct {
	Question      *string  `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer *float64 `json:"correctAnswer"`
}

type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Errors, "; "))
}

type ParseStage string

const (
	StageDirect   ParseStage = "direct"
	StageRecovery ParseStage = "recovery"
)

// ParseFailure is the failure arm of ParseQuestion. Stage names the last
// attempt made.
type ParseFailure struct {
	Stage  ParseStage
	Reason string
	Err    error
}

func (e *ParseFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse question (%s): %s: %v", e.Stage, e.Reason, e.Err)
	}
	return fmt.Sprintf("parse question (%s): %s", e.Stage, e.Reason)
}

func (e *ParseFailure) Unwrap() error {
	return e.Err
}

// ParseQuestion decodes one model reply. It makes at most two attempts: the
// whole reply, then the first balanced {...} substring found in it.
func ParseQuestion(content string) (*ParsedQuestion, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, &ParseFailure{Stage: StageDirect, Reason: "empty response"}
	}

	pq, directErr := decodeQuestion(content)
	if directErr == nil {
		return pq, nil
	}

	extracted, ok := extractFirstObject(content)
	if !ok {
		return nil, &ParseFailure{Stage: StageRecovery, Reason: "no JSON object in response", Err: directErr}
	}
	if extracted == content {
		return nil, &ParseFailure{Stage: StageDirect, Reason: "invalid question", Err: directErr}
	}

	pq, err := decodeQuestion(extracted)
	if err != nil {
		return nil, &ParseFailure{Stage: StageRecovery, Reason: "invalid embedded question", Err: err}
	}
	return pq, nil
}

func decodeQuestion(s string) (*ParsedQuestion, error) {
	var gq generatedQuestion
	if err := json.Unmarshal([]byte(s), &gq); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	var errs []string

	text := ""
	if gq.Question != nil {
		text = strings.TrimSpace(*gq.Question)
	}
	if text == "" {
		errs = append(errs, "missing question text")
	}

	options := make([]string, len(gq.Options))
	if len(gq.Options) != models.OptionCount {
		errs = append(errs, fmt.Sprintf("expected %d options, got %d", models.OptionCount, len(gq.Options)))
	} else {
		seen := make(map[string]bool, len(gq.Options))
		for i, o := range gq.Options {
			o = strings.TrimSpace(o)
			if o == "" {
				errs = append(errs, fmt.Sprintf("option %d is empty", i+1))
			} else if seen[o] {
				errs = append(errs, fmt.Sprintf("option %d duplicates %q", i+1, o))
			}
			seen[o] = true
			options[i] = o
		}
	}

	// 2 and 2.0 are the same index; 1.5 is not an index.
	correct := 0
	switch {
	case gq.CorrectAnswer == nil:
		errs = append(errs, "missing correctAnswer")
	case *gq.CorrectAnswer != math.Trunc(*gq.CorrectAnswer):
		errs = append(errs, fmt.Sprintf("correctAnswer %v is not an integer", *gq.CorrectAnswer))
	case *gq.CorrectAnswer < 0 || *gq.CorrectAnswer >= models.OptionCount:
		errs = append(errs, fmt.Sprintf("correctAnswer %v outside range [0, %d]", *gq.CorrectAnswer, models.OptionCount-1))
	default:
		correct = int(*gq.CorrectAnswer)
	}

	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	return &ParsedQuestion{Question: text, Options: options, CorrectAnswer: correct}, nil
}

// extractFirstObject returns the first brace-balanced substring, honouring
// JSON string literals so braces inside strings do not count.
func extractFirstObject(s string) (string, bool) {
	for start := strings.IndexByte(s, '{'); start >= 0; {
		if end, ok := matchBrace(s, start); ok {
			return s[start : end+1], true
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

func matchBrace(s string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// IsParseFailure reports whether err came from ParseQuestion.
func IsParseFailure(err error) bool {
	var pf *ParseFailure
	return errors.As(err, &pf)
}
