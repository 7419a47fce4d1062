package generator

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

type GeminiConfig struct {
	APIKey string
	Model  string
	// BaseURL and HTTPClient override the endpoint, used by tests.
	BaseURL    string
	HTTPClient *http.Client
}

// GeminiClient generates questions through the Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
}

func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("GEMINI_API_KEY is required for the gemini provider")
	}
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL, APIVersion: "v1beta"}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, &ProviderError{
			Provider: ProviderGemini,
			Code:     ErrCodeServiceDown,
			Message:  "failed to create Gemini client",
			Err:      err,
		}
	}
	return &GeminiClient{client: client, model: cfg.Model}, nil
}

func (c *GeminiClient) Generate(ctx context.Context, req GenerationRequest) (*LLMResponse, error) {
	imagePart, err := geminiImagePart(req.Image)
	if err != nil {
		return nil, &ProviderError{Provider: ProviderGemini, Code: ErrCodeInvalidImage, Message: "cannot attach image", Err: err}
	}

	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: req.User}, imagePart},
	}}
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: req.System}}},
		Temperature:       genai.Ptr(float32(req.Temperature)),
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return nil, &ProviderError{Provider: ProviderGemini, Code: ErrCodeServiceDown, Message: "generate content failed", Err: err}
	}

	text := responseText(result)
	if text == "" {
		return nil, &ProviderError{Provider: ProviderGemini, Code: ErrCodeEmptyResponse, Message: "empty response generated"}
	}
	return &LLMResponse{Content: text}, nil
}

func geminiImagePart(src ImageSource) (*genai.Part, error) {
	switch src.Kind {
	case ImageInline:
		data, err := src.Bytes()
		if err != nil {
			return nil, err
		}
		return &genai.Part{InlineData: &genai.Blob{MIMEType: src.MediaType, Data: data}}, nil
	case ImageRemote:
		return &genai.Part{FileData: &genai.FileData{MIMEType: src.MediaType, FileURI: src.URL}}, nil
	default:
		return nil, errors.New("unknown image kind")
	}
}

func responseText(result *genai.GenerateContentResponse) string {
	if result == nil {
		return ""
	}
	var sb strings.Builder
	for _, cand := range result.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil {
				sb.WriteString(part.Text)
			}
		}
		if sb.Len() > 0 {
			break
		}
	}
	return strings.TrimSpace(sb.String())
}
