package generator

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidInput is returned when a round is requested without images
	// or with a non-positive question count. It is never recovered.
	ErrInvalidInput = errors.New("please upload at least one photo")

	// ErrRemoteUnavailable is returned by the remote synthesizer when no
	// model provider is configured.
	ErrRemoteUnavailable = errors.New("remote generation not configured")
)

// ItemFailure records why one question slot produced no question. Item
// failures never abort sibling slots.
type ItemFailure struct {
	Index      int
	ImageIndex int
	Err        error
}

func (e *ItemFailure) Error() string {
	return fmt.Sprintf("question %d (image %d): %v", e.Index+1, e.ImageIndex+1, e.Err)
}

func (e *ItemFailure) Unwrap() error {
	return e.Err
}

// GenerationError is returned when a remote round produced zero usable
// questions.
type GenerationError struct {
	Requested int
	Failures  []*ItemFailure
}

func (e *GenerationError) Error() string {
	if len(e.Failures) == 0 {
		return "no questions produced"
	}
	msgs := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		msgs = append(msgs, f.Error())
	}
	return fmt.Sprintf("no questions produced (%d requested): %s", e.Requested, strings.Join(msgs, "; "))
}

// ProviderError is an error from an LLM provider.
type ProviderError struct {
	Provider string
	Code     string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return e.Provider + " error: " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Provider + " error: " + e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeServiceDown   = "service_unavailable"
	ErrCodeEmptyResponse = "empty_response"
	ErrCodeInvalidImage  = "invalid_image"
)
