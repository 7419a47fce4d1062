package generator

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
	"go.uber.org/zap"
)

// LLMClient is the interface every model provider satisfies.
type LLMClient interface {
	Generate(ctx context.Context, req GenerationRequest) (*LLMResponse, error)
}

// LLMClientFunc adapts a function to LLMClient.
type LLMClientFunc func(ctx context.Context, req GenerationRequest) (*LLMResponse, error)

func (f LLMClientFunc) Generate(ctx context.Context, req GenerationRequest) (*LLMResponse, error) {
	return f(ctx, req)
}

// GenerationRequest is one model call: a system instruction, a user turn,
// and the single image the question is about.
type GenerationRequest struct {
	System      string
	User        string
	Image       ImageSource
	Temperature float64
	MaxTokens   int
}

// LLMResponse holds the raw response content and token usage.
type LLMResponse struct {
	Content      string
	PromptTokens int
	OutputTokens int
}

const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderMock      = "mock"
	ProviderNone      = "none"
)

type ClientConfig struct {
	Provider        string
	AnthropicAPIKey string
	AnthropicModel  string
	AnthropicURL    string
	GeminiAPIKey    string
	GeminiModel     string
}

// NewClient builds the configured provider. ProviderNone yields a nil client,
// which the remote synthesizer reports as unavailable.
func NewClient(ctx context.Context, cfg ClientConfig, logger *zap.Logger) (LLMClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Provider {
	case ProviderAnthropic:
		model := cfg.AnthropicModel
		if model == "" {
			model = "claude-sonnet-4-5"
		}
		logger.Info("generator using Anthropic API", zap.String("model", model))
		return NewAnthropicClient(cfg.AnthropicAPIKey, model, cfg.AnthropicURL, logger), nil
	case ProviderGemini:
		model := cfg.GeminiModel
		if model == "" {
			model = "gemini-2.5-flash"
		}
		logger.Info("generator using Gemini API", zap.String("model", model))
		return NewGeminiClient(ctx, GeminiConfig{APIKey: cfg.GeminiAPIKey, Model: model})
	case ProviderMock:
		logger.Info("generator using mock data")
		return NewMockClient(), nil
	case ProviderNone, "":
		logger.Warn("no generator provider configured, every round will use local questions")
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported generator provider: %s", cfg.Provider)
	}
}

// ── AnthropicClient — Anthropic SDK (Production) ───────────

type AnthropicClient struct {
	client *anthropic.Client
	model  string
	logger *zap.Logger
	// retryBase is the first backoff between attempts.
	retryBase time.Duration
}

func NewAnthropicClient(apiKey, model, baseURL string, logger *zap.Logger) *AnthropicClient {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := anthropic.NewClient(opts...)
	return &AnthropicClient{client: &client, model: model, logger: logger, retryBase: time.Second}
}

func (c *AnthropicClient) Generate(ctx context.Context, req GenerationRequest) (*LLMResponse, error) {
	var imageBlock anthropic.ContentBlockParamUnion
	switch req.Image.Kind {
	case ImageInline:
		imageBlock = anthropic.NewImageBlockBase64(req.Image.MediaType, req.Image.Base64)
	case ImageRemote:
		imageBlock = anthropic.NewImageBlock(anthropic.URLImageSourceParam{URL: req.Image.URL})
	default:
		return nil, &ProviderError{Provider: ProviderAnthropic, Code: ErrCodeInvalidImage, Message: "unknown image kind"}
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   int64(req.MaxTokens),
		Temperature: param.NewOpt(req.Temperature),
		System: []anthropic.TextBlockParam{
			{Text: req.System},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.User), imageBlock),
		},
	}

	message, err := c.callWithRetry(ctx, params)
	if err != nil {
		return nil, &ProviderError{Provider: ProviderAnthropic, Code: ErrCodeServiceDown, Message: "messages call failed", Err: err}
	}

	var responseText string
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText = block.Text
			break
		}
	}

	if responseText == "" {
		return nil, &ProviderError{Provider: ProviderAnthropic, Code: ErrCodeEmptyResponse, Message: "no text content in API response"}
	}

	return &LLMResponse{
		Content:      responseText,
		PromptTokens: int(message.Usage.InputTokens),
		OutputTokens: int(message.Usage.OutputTokens),
	}, nil
}

func (c *AnthropicClient) callWithRetry(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			sleepDuration := c.retryBase * time.Duration(1<<uint(attempt-1))
			c.logger.Debug("retrying Anthropic API call",
				zap.Duration("backoff", sleepDuration), zap.Int("attempt", attempt+1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(sleepDuration):
			}
		}

		message, err := c.client.Messages.New(ctx, params)
		if err == nil {
			return message, nil
		}
		lastErr = err
		c.logger.Warn("Anthropic API attempt failed", zap.Int("attempt", attempt+1), zap.Error(err))
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("anthropic API failed after retries: %w", lastErr)
}

// ── MockClient — Local Development ─────────────────────────

// MockClient answers every call with a well-formed question wrapped in a
// short preamble, so the recovery parse path is exercised end to end.
type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

var questionNumber = regexp.MustCompile(`#(\d+)`)

func (m *MockClient) Generate(ctx context.Context, req GenerationRequest) (*LLMResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := "1"
	if match := questionNumber.FindStringSubmatch(req.User); match != nil {
		n = match[1]
	}
	content := fmt.Sprintf(`Here is your question:
{"question":"[Mock] Which detail stands out most in photo %s?","options":["The lighting","The people","The background","The colors"],"correctAnswer":%d}`,
		n, len(n)%4)
	return &LLMResponse{Content: content, PromptTokens: 800, OutputTokens: 60}, nil
}
