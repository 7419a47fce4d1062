package generator

import (
	"context"
	"sync"
)

const (
	pngHandle = "data:image/png;base64,aGVsbG8="
	jpgHandle = "data:image/jpeg;base64,d29ybGQ="
	urlHandle = "https://example.com/photos/beach.webp"
)

// fakeLLM records every request and delegates replies to respond.
type fakeLLM struct {
	mu      sync.Mutex
	calls   []GenerationRequest
	respond func(req GenerationRequest) (*LLMResponse, error)
}

func (f *fakeLLM) Generate(ctx context.Context, req GenerationRequest) (*LLMResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	return f.respond(req)
}

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func replyWith(content string) func(GenerationRequest) (*LLMResponse, error) {
	return func(GenerationRequest) (*LLMResponse, error) {
		return &LLMResponse{Content: content}, nil
	}
}
