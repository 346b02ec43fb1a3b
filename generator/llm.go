package generator

import (
	"context"
	"fmt"
	"strings"

	"latex_doc_editor/keypool"
)

// LLMClient 抽象大模型客户端，便于替换/Mock。
type LLMClient interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// LLMSettings 提供给具体实现的基础配置。APIKey 由 keypool 按次注入。
type LLMSettings struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
	MaxTokens   int
}

// ClientFactory builds a client bound to one credential.
type ClientFactory func(ctx context.Context, cred keypool.Credential) (LLMClient, error)

// Providers lists the values accepted in LLMSettings.Provider. "none" disables the
// service entirely so every instruction goes through the heuristic parser.
var Providers = []string{"gemini", "openai", "deepseek", "none"}

// NewFactory returns a ClientFactory for settings.Provider.
func NewFactory(settings LLMSettings) (ClientFactory, error) {
	switch strings.ToLower(settings.Provider) {
	case "gemini", "":
		return func(ctx context.Context, cred keypool.Credential) (LLMClient, error) {
			s := settings
			s.APIKey = cred.Key
			return NewGeminiLLMFromConfig(ctx, &s)
		}, nil
	case "openai":
		return func(_ context.Context, cred keypool.Credential) (LLMClient, error) {
			s := settings
			s.APIKey = cred.Key
			return NewOpenAILLMFromConfig(&s)
		}, nil
	case "deepseek":
		// DeepSeek 提供 OpenAI 兼容接口，需填写 base_url。
		if settings.BaseURL == "" {
			return nil, fmt.Errorf("llm provider deepseek requires base_url (OpenAI-compatible endpoint)")
		}
		return func(_ context.Context, cred keypool.Credential) (LLMClient, error) {
			s := settings
			s.APIKey = cred.Key
			return NewOpenAILLMFromConfig(&s)
		}, nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("llm provider %s not supported", settings.Provider)
	}
}
