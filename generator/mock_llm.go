package generator

import (
	"context"
	"errors"
	"sync"

	"latex_doc_editor/keypool"
)

// Reply is one scripted answer of a MockLLM.
type Reply struct {
	Text string
	Err  error
}

// MockLLM 按顺序返回预设回复，不调用外部模型，便于本地调试与测试。
// Handler, when set, takes precedence over the scripted replies.
type MockLLM struct {
	mu      sync.Mutex
	Replies []Reply
	Handler func(ctx context.Context, prompt Prompt) (string, error)
	Prompts []Prompt
}

func (m *MockLLM) Complete(ctx context.Context, prompt Prompt) (string, error) {
	m.mu.Lock()
	m.Prompts = append(m.Prompts, prompt)
	handler := m.Handler
	var next *Reply
	if handler == nil && len(m.Replies) > 0 {
		r := m.Replies[0]
		m.Replies = m.Replies[1:]
		next = &r
	}
	m.mu.Unlock()

	if handler != nil {
		return handler(ctx, prompt)
	}
	if next == nil {
		return "", errors.New("mock llm: no scripted reply left")
	}
	return next.Text, next.Err
}

// Calls returns how many prompts the mock has received.
func (m *MockLLM) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}

// MockFactory hands every credential the same client.
func MockFactory(client LLMClient) ClientFactory {
	return func(context.Context, keypool.Credential) (LLMClient, error) {
		return client, nil
	}
}
