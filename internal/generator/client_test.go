package generator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func anthropicReply(text string) map[string]any {
	return map[string]any{
		"id":          "msg_test",
		"type":        "message",
		"role":        "assistant",
		"model":       "test-model",
		"stop_reason": "end_turn",
		"content":     []map[string]any{{"type": "text", "text": text}},
		"usage":       map[string]any{"input_tokens": 120, "output_tokens": 40},
	}
}

func TestAnthropicClient_Generate(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(anthropicReply(validReply))
	}))
	defer server.Close()

	client := NewAnthropicClient("test-key", "test-model", server.URL, nil)
	image, err := ParseImageHandle(pngHandle)
	require.NoError(t, err)

	resp, err := client.Generate(context.Background(), GenerationRequest{
		System: "system text", User: "Generate question #1 based on this image.",
		Image: image, Temperature: 0.8, MaxTokens: 500,
	})
	require.NoError(t, err)
	assert.Equal(t, validReply, resp.Content)
	assert.Equal(t, 120, resp.PromptTokens)
	assert.Equal(t, 40, resp.OutputTokens)

	assert.Equal(t, "test-model", body["model"])
	assert.InDelta(t, 0.8, body["temperature"], 1e-9)
	assert.EqualValues(t, 500, body["max_tokens"])

	messages := body["messages"].([]any)
	require.Len(t, messages, 1)
	content := messages[0].(map[string]any)["content"].([]any)
	require.Len(t, content, 2)
	assert.Equal(t, "text", content[0].(map[string]any)["type"])
	imageBlock := content[1].(map[string]any)
	assert.Equal(t, "image", imageBlock["type"])
	source := imageBlock["source"].(map[string]any)
	assert.Equal(t, "base64", source["type"])
	assert.Equal(t, "image/png", source["media_type"])
	assert.Equal(t, "aGVsbG8=", source["data"])
}

func TestAnthropicClient_RetriesOnce(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"boom"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(anthropicReply(validReply))
	}))
	defer server.Close()

	client := NewAnthropicClient("test-key", "test-model", server.URL, nil)
	client.retryBase = time.Millisecond
	image, _ := ParseImageHandle(urlHandle)

	resp, err := client.Generate(context.Background(), GenerationRequest{User: "u", System: "s", Image: image, Temperature: 0.8, MaxTokens: 100})
	require.NoError(t, err)
	assert.Equal(t, validReply, resp.Content)
	assert.EqualValues(t, 2, hits.Load())
}

func TestAnthropicClient_Failure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"busy"}}`))
	}))
	defer server.Close()

	client := NewAnthropicClient("test-key", "test-model", server.URL, nil)
	client.retryBase = time.Millisecond
	image, _ := ParseImageHandle(pngHandle)

	_, err := client.Generate(context.Background(), GenerationRequest{User: "u", System: "s", Image: image, Temperature: 0.8, MaxTokens: 100})
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ProviderAnthropic, pe.Provider)
	assert.Equal(t, ErrCodeServiceDown, pe.Code)
}

func TestGeminiClient_Generate(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/test-model:generateContent", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		resp := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"role": "model", "parts": []map[string]any{{"text": validReply}}}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client, err := NewGeminiClient(context.Background(), GeminiConfig{
		APIKey: "test", Model: "test-model", BaseURL: server.URL, HTTPClient: server.Client(),
	})
	require.NoError(t, err)

	image, err := ParseImageHandle(pngHandle)
	require.NoError(t, err)
	resp, err := client.Generate(context.Background(), GenerationRequest{System: "s", User: "u", Image: image, Temperature: 0.8})
	require.NoError(t, err)
	assert.Equal(t, validReply, resp.Content)

	contents := body["contents"].([]any)
	parts := contents[0].(map[string]any)["parts"].([]any)
	require.Len(t, parts, 2)
	inline := parts[1].(map[string]any)["inlineData"].(map[string]any)
	assert.Equal(t, "image/png", inline["mimeType"])
	assert.Equal(t, "aGVsbG8=", inline["data"])
}

func TestGeminiClient_RequiresKey(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), GeminiConfig{Model: "m"})
	assert.Error(t, err)
}

func TestMockClient_ReplyParses(t *testing.T) {
	resp, err := NewMockClient().Generate(context.Background(), GenerationRequest{User: "Generate question #3 based on this image."})
	require.NoError(t, err)

	pq, err := ParseQuestion(resp.Content)
	require.NoError(t, err)
	assert.Contains(t, pq.Question, "photo 3")
}

func TestNewClient(t *testing.T) {
	c, err := NewClient(context.Background(), ClientConfig{Provider: ProviderNone}, nil)
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = NewClient(context.Background(), ClientConfig{Provider: ProviderMock}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MockClient{}, c)

	c, err = NewClient(context.Background(), ClientConfig{Provider: ProviderAnthropic, AnthropicAPIKey: "k"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &AnthropicClient{}, c)

	_, err = NewClient(context.Background(), ClientConfig{Provider: "openai"}, nil)
	assert.Error(t, err)
}

func TestParseImageHandle(t *testing.T) {
	src, err := ParseImageHandle(jpgHandle)
	require.NoError(t, err)
	assert.Equal(t, ImageInline, src.Kind)
	assert.Equal(t, "image/jpeg", src.MediaType)
	data, err := src.Bytes()
	require.NoError(t, err)
	assert.Equal(t, "world", string(data))

	src, err = ParseImageHandle("https://cdn.example.com/a.PNG?size=large")
	require.NoError(t, err)
	assert.Equal(t, ImageRemote, src.Kind)
	assert.Equal(t, "image/png", src.MediaType)

	for _, bad := range []string{"", "ftp://x", "data:text/plain;base64,aGk=", "data:image/png,raw", "data:image/png;base64,"} {
		_, err := ParseImageHandle(bad)
		assert.Error(t, err, "handle %q", bad)
	}
}
