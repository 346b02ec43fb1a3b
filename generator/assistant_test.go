package generator

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"latex_doc_editor/keypool"
)

func pool(n int) *keypool.Pool {
	creds := make([]keypool.Credential, n)
	for i := range creds {
		creds[i] = keypool.Credential{Name: fmt.Sprintf("key%d", i), Key: fmt.Sprintf("secret%d", i)}
	}
	return keypool.New(creds)
}

func rateLimited() error {
	return fmt.Errorf("gemini: %w: 429 RESOURCE_EXHAUSTED", ErrRateLimited)
}

func TestAssistant_RotatesOnRateLimit(t *testing.T) {
	mock := &MockLLM{Replies: []Reply{{Err: rateLimited()}, {Err: rateLimited()}, {Text: "ok"}}}
	p := pool(3)
	a, err := NewAssistant(p, MockFactory(mock))
	require.NoError(t, err)

	out, err := a.Complete(context.Background(), Prompt{User: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 3, mock.Calls())

	stats := p.Stats()
	assert.Equal(t, 1, stats[0].RateLimits)
	assert.Equal(t, 1, stats[1].RateLimits)
	assert.Equal(t, 1, stats[2].Successes)
}

func TestAssistant_AttemptsBoundedByPoolSize(t *testing.T) {
	mock := &MockLLM{Handler: func(context.Context, Prompt) (string, error) { return "", rateLimited() }}
	a, err := NewAssistant(pool(2), MockFactory(mock))
	require.NoError(t, err)

	_, err = a.Complete(context.Background(), Prompt{User: "hi"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 2, mock.Calls())
}

func TestAssistant_AttemptsBoundedByMax(t *testing.T) {
	mock := &MockLLM{Handler: func(context.Context, Prompt) (string, error) { return "", rateLimited() }}
	a, err := NewAssistant(pool(5), MockFactory(mock), WithMaxAttempts(3))
	require.NoError(t, err)

	_, err = a.Complete(context.Background(), Prompt{User: "hi"})
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 3, mock.Calls())
}

func TestAssistant_OtherErrorsStopImmediately(t *testing.T) {
	boom := errors.New("boom")
	mock := &MockLLM{Replies: []Reply{{Err: boom}, {Text: "never"}}}
	a, err := NewAssistant(pool(3), MockFactory(mock))
	require.NoError(t, err)

	_, err = a.Complete(context.Background(), Prompt{User: "hi"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, mock.Calls())
}

func TestAssistant_NoCredentials(t *testing.T) {
	a, err := NewAssistant(pool(0), MockFactory(&MockLLM{}))
	require.NoError(t, err)
	assert.False(t, a.Available())

	_, err = a.Complete(context.Background(), Prompt{User: "hi"})
	assert.ErrorIs(t, err, ErrNoCredential)

	var nilAssistant *Assistant
	assert.False(t, nilAssistant.Available())
}

func TestAssistant_CallTimeout(t *testing.T) {
	mock := &MockLLM{Handler: func(ctx context.Context, _ Prompt) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	a, err := NewAssistant(pool(1), MockFactory(mock), WithCallTimeout(10*time.Millisecond))
	require.NoError(t, err)

	_, err = a.Complete(context.Background(), Prompt{User: "hi"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAssistant_CachesClientsPerCredential(t *testing.T) {
	builds := 0
	factory := func(context.Context, keypool.Credential) (LLMClient, error) {
		builds++
		return &MockLLM{Handler: func(context.Context, Prompt) (string, error) { return "x", nil }}, nil
	}
	a, err := NewAssistant(pool(2), factory)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		_, err := a.Complete(context.Background(), Prompt{User: "hi"})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, builds)
}

func TestNewAssistant_Validates(t *testing.T) {
	_, err := NewAssistant(nil, MockFactory(&MockLLM{}))
	assert.Error(t, err)
	_, err = NewAssistant(pool(1), nil)
	assert.Error(t, err)
}

func TestNewFactory(t *testing.T) {
	f, err := NewFactory(LLMSettings{Provider: "none"})
	require.NoError(t, err)
	assert.Nil(t, f)

	_, err = NewFactory(LLMSettings{Provider: "deepseek"})
	assert.Error(t, err)

	_, err = NewFactory(LLMSettings{Provider: "claude"})
	assert.Error(t, err)

	f, err = NewFactory(LLMSettings{Provider: "openai", Model: "gpt-4o-mini"})
	require.NoError(t, err)
	c, err := f(context.Background(), keypool.Credential{Name: "k", Key: "sk-test"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAILLM{}, c)
}

func TestIsRateLimitMessage(t *testing.T) {
	assert.True(t, isRateLimitMessage("Error 429: Resource exhausted"))
	assert.True(t, isRateLimitMessage("Quota exceeded for metric"))
	assert.False(t, isRateLimitMessage("invalid argument"))
}
