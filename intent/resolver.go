package intent

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"latex_doc_editor/generator"
)

// Completer is the slice of generator.Assistant the resolver needs.
type Completer interface {
	Complete(ctx context.Context, prompt generator.Prompt) (string, error)
}

type availability interface {
	Available() bool
}

// FailureKind classifies why the AI path did not produce an intent.
type FailureKind int

const (
	ParseFailure FailureKind = iota + 1
	RateLimited
	Fault
)

func (k FailureKind) String() string {
	switch k {
	case ParseFailure:
		return "parse_failure"
	case RateLimited:
		return "rate_limited"
	case Fault:
		return "fault"
	default:
		return "unknown"
	}
}

// Failure is the typed error returned by Resolver.ResolveAI.
type Failure struct {
	Kind FailureKind
	Err  error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("intent %s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

func classify(err error) *Failure {
	switch {
	case errors.Is(err, ErrInvalidIntent):
		return &Failure{Kind: ParseFailure, Err: err}
	case errors.Is(err, generator.ErrRateLimited), errors.Is(err, generator.ErrNoCredential):
		return &Failure{Kind: RateLimited, Err: err}
	default:
		return &Failure{Kind: Fault, Err: err}
	}
}

// Resolver turns instructions into intents, preferring the language service and
// falling back to the heuristic parser.
type Resolver struct {
	llm    Completer
	logger *zap.Logger
}

func NewResolver(llm Completer, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{llm: llm, logger: logger}
}

func (r *Resolver) aiAvailable() bool {
	if r == nil || r.llm == nil {
		return false
	}
	if a, ok := r.llm.(availability); ok {
		return a.Available()
	}
	return true
}

// Resolve never fails: any AI failure degrades to Fallback.
func (r *Resolver) Resolve(ctx context.Context, instruction string) EditIntent {
	if !r.aiAvailable() {
		return Fallback(instruction)
	}
	in, err := r.ResolveAI(ctx, instruction)
	if err == nil {
		return in
	}
	var f *Failure
	if errors.As(err, &f) {
		r.logger.Warn("intent service failed, using heuristic parser",
			zap.Stringer("kind", f.Kind),
			zap.Error(f.Err))
	}
	return Fallback(instruction)
}

// ResolveAI runs only the language-service path. Errors are always *Failure.
func (r *Resolver) ResolveAI(ctx context.Context, instruction string) (EditIntent, error) {
	if !r.aiAvailable() {
		return EditIntent{}, &Failure{Kind: RateLimited, Err: generator.ErrNoCredential}
	}
	raw, err := r.llm.Complete(ctx, BuildPrompt(instruction))
	if err != nil {
		return EditIntent{}, classify(err)
	}
	in, err := ParseResponse(raw)
	if err != nil {
		return EditIntent{}, &Failure{Kind: ParseFailure, Err: err}
	}
	r.logger.Debug("intent resolved",
		zap.String("action", in.Action),
		zap.Float64("confidence", in.Confidence))
	return in, nil
}
