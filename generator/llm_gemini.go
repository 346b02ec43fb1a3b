package generator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiLLM implements LLMClient on the Gemini API through google.golang.org/genai.
type GeminiLLM struct {
	Model       string
	Temperature float64
	MaxTokens   int
	client      *genai.Client
}

func NewGeminiLLMFromConfig(ctx context.Context, cfg *LLMSettings) (*GeminiLLM, error) {
	if cfg == nil {
		return nil, errors.New("llm config is nil")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key missing; provide llm.keys or GEMINI_API_KEY")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	cc := &genai.ClientConfig{APIKey: cfg.APIKey, Backend: genai.BackendGeminiAPI}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &GeminiLLM{Model: model, Temperature: cfg.Temperature, MaxTokens: cfg.MaxTokens, client: client}, nil
}

func (g *GeminiLLM) Complete(ctx context.Context, prompt Prompt) (string, error) {
	var contents []*genai.Content
	for _, h := range prompt.History {
		role := genai.Role(genai.RoleUser)
		if h.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(h.Content, role))
	}
	contents = append(contents, genai.NewContentFromText(prompt.User, genai.RoleUser))

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(g.Temperature)),
	}
	if g.MaxTokens > 0 {
		config.MaxOutputTokens = int32(g.MaxTokens)
	}
	if prompt.System != "" {
		config.SystemInstruction = genai.NewContentFromText(prompt.System, genai.RoleUser)
	}
	if prompt.JSON {
		config.ResponseMIMEType = "application/json"
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.Model, contents, config)
	if err != nil {
		return "", classifyGeminiError(err)
	}
	out := resp.Text()
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}
	return out, nil
}

func classifyGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests || strings.EqualFold(apiErr.Status, "RESOURCE_EXHAUSTED") {
			return fmt.Errorf("gemini: %w: %v", ErrRateLimited, err)
		}
	}
	if isRateLimitMessage(err.Error()) {
		return fmt.Errorf("gemini: %w: %v", ErrRateLimited, err)
	}
	return fmt.Errorf("gemini: %w", err)
}
