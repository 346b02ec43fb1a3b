package generator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"latex_doc_editor/keypool"
)

const (
	DefaultMaxAttempts = 5
	DefaultCallTimeout = 60 * time.Second
)

// Assistant sends prompts to the language service, rotating through the credential
// pool when a credential is rate limited. At most min(MaxAttempts, pool size) calls are
// made per prompt and every call runs under its own timeout.
type Assistant struct {
	pool        *keypool.Pool
	factory     ClientFactory
	maxAttempts int
	timeout     time.Duration
	logger      *zap.Logger

	mu      sync.Mutex
	clients map[string]LLMClient
}

type AssistantOption func(*Assistant)

func WithMaxAttempts(n int) AssistantOption {
	return func(a *Assistant) {
		if n > 0 {
			a.maxAttempts = n
		}
	}
}

func WithCallTimeout(d time.Duration) AssistantOption {
	return func(a *Assistant) {
		if d > 0 {
			a.timeout = d
		}
	}
}

func WithLogger(l *zap.Logger) AssistantOption {
	return func(a *Assistant) {
		if l != nil {
			a.logger = l
		}
	}
}

func NewAssistant(pool *keypool.Pool, factory ClientFactory, opts ...AssistantOption) (*Assistant, error) {
	if pool == nil {
		return nil, errors.New("credential pool is required")
	}
	if factory == nil {
		return nil, errors.New("client factory is required")
	}
	a := &Assistant{
		pool:        pool,
		factory:     factory,
		maxAttempts: DefaultMaxAttempts,
		timeout:     DefaultCallTimeout,
		logger:      zap.NewNop(),
		clients:     make(map[string]LLMClient),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Available reports whether any credential is configured.
func (a *Assistant) Available() bool {
	return a != nil && a.pool.Len() > 0
}

// Pool exposes the credential pool for statistics.
func (a *Assistant) Pool() *keypool.Pool {
	if a == nil {
		return nil
	}
	return a.pool
}

// Complete returns the model's answer. Rate-limit errors rotate to the next credential;
// any other error is returned at once. Errors wrap ErrRateLimited or ErrNoCredential when
// that is why the call failed.
func (a *Assistant) Complete(ctx context.Context, prompt Prompt) (string, error) {
	if !a.Available() {
		return "", ErrNoCredential
	}
	attempts := min(a.maxAttempts, a.pool.Len())

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		cred, ok := a.pool.Next()
		if !ok {
			if lastErr != nil {
				return "", fmt.Errorf("%w: %w", ErrNoCredential, lastErr)
			}
			return "", ErrNoCredential
		}

		client, err := a.client(ctx, cred)
		if err != nil {
			return "", fmt.Errorf("build client for %s: %w", cred.Name, err)
		}

		callCtx, cancel := context.WithTimeout(ctx, a.timeout)
		start := time.Now()
		out, err := client.Complete(callCtx, prompt)
		cancel()

		if err == nil {
			a.pool.MarkSuccessful(cred)
			a.logger.Debug("llm call ok",
				zap.String("credential", cred.Name),
				zap.Int("attempt", attempt),
				zap.Duration("took", time.Since(start)))
			return out, nil
		}
		if errors.Is(err, ErrRateLimited) {
			a.pool.MarkRateLimited(cred)
			a.logger.Warn("credential rate limited, rotating",
				zap.String("credential", cred.Name),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", attempts))
			lastErr = err
			continue
		}
		return "", err
	}
	return "", fmt.Errorf("%d attempts exhausted: %w", attempts, lastErr)
}

func (a *Assistant) client(ctx context.Context, cred keypool.Credential) (LLMClient, error) {
	key := cred.Name + "\x00" + cred.Key
	a.mu.Lock()
	defer a.mu.Unlock()
	if c, ok := a.clients[key]; ok {
		return c, nil
	}
	c, err := a.factory(ctx, cred)
	if err != nil {
		return nil, err
	}
	a.clients[key] = c
	return c, nil
}
