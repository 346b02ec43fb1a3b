// Package workflow turns free-form instructions into applied edits: it resolves each
// instruction, applies it and optionally journals the result.
package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"latex_doc_editor/editor"
	"latex_doc_editor/intent"
	"latex_doc_editor/journal"
)

// Result is the outcome of one instruction.
type Result struct {
	editor.Outcome
	Operation intent.Operation  `json:"operation"`
	Action    string            `json:"action"`
	Intent    intent.EditIntent `json:"intent"`
	Method    intent.Source     `json:"method"`
	Duration  time.Duration     `json:"duration"`
}

// Recorder stores applied edits.
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) (journal.Entry, error)
}

// Editor resolves and applies instructions. It is safe for concurrent use on
// different documents.
type Editor struct {
	resolver *intent.Resolver
	engine   *editor.Engine
	recorder Recorder
	logger   *zap.Logger
	now      func() time.Time
}

type Option func(*Editor)

func WithRecorder(r Recorder) Option {
	return func(e *Editor) { e.recorder = r }
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Editor) {
		if l != nil {
			e.logger = l
		}
	}
}

func New(resolver *intent.Resolver, engine *editor.Engine, opts ...Option) *Editor {
	if resolver == nil {
		resolver = intent.NewResolver(nil, nil)
	}
	if engine == nil {
		engine = editor.New()
	}
	e := &Editor{resolver: resolver, engine: engine, logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Resolve returns the intent for instruction without applying it.
func (e *Editor) Resolve(ctx context.Context, instruction string) intent.EditIntent {
	return e.resolver.Resolve(ctx, instruction)
}

// Edit resolves instruction and applies it to doc.
func (e *Editor) Edit(ctx context.Context, doc, instruction string) (string, Result) {
	return e.edit(ctx, "", doc, instruction)
}

// Batch applies instructions in order, each to the document the previous one
// produced. A failed instruction leaves the document as it was and the batch goes
// on; a cancelled context stops it.
func (e *Editor) Batch(ctx context.Context, doc string, instructions []string) (string, []Result) {
	results := make([]Result, 0, len(instructions))
	for _, instruction := range instructions {
		if ctx.Err() != nil {
			break
		}
		var res Result
		doc, res = e.edit(ctx, "", doc, instruction)
		results = append(results, res)
	}
	return doc, results
}

func (e *Editor) edit(ctx context.Context, sessionID, doc, instruction string) (string, Result) {
	start := e.now()
	in := e.resolver.Resolve(ctx, instruction)
	out, res := e.apply(ctx, doc, in)
	res.Duration = e.now().Sub(start)

	e.logger.Info("instruction applied",
		zap.String("session", sessionID),
		zap.String("action", res.Action),
		zap.String("method", string(res.Method)),
		zap.Bool("success", res.Success),
		zap.Int("changes", res.Changes),
		zap.Duration("duration", res.Duration))
	e.record(ctx, sessionID, instruction, res)
	return out, res
}

// Apply runs an already resolved intent. An intent that fails validation is an
// execution fault and leaves doc unchanged.
func (e *Editor) Apply(ctx context.Context, doc string, in intent.EditIntent) (string, Result) {
	return e.apply(ctx, doc, in)
}

func (e *Editor) apply(ctx context.Context, doc string, in intent.EditIntent) (string, Result) {
	in = intent.Normalize(in)
	res := Result{
		Operation: in.Operation,
		Action:    in.Action,
		Intent:    in,
		Method:    in.Source,
	}
	if err := intent.Validate(in); err != nil {
		res.Outcome = editor.Outcome{Error: err.Error()}
		return doc, res
	}
	out, outcome := e.engine.Apply(ctx, doc, in)
	res.Outcome = outcome
	return out, res
}

func (e *Editor) record(ctx context.Context, sessionID, instruction string, res Result) {
	if e.recorder == nil {
		return
	}
	raw, err := json.Marshal(res.Intent)
	if err != nil {
		raw = []byte("{}")
	}
	_, err = e.recorder.Record(ctx, journal.Entry{
		SessionID:   sessionID,
		Instruction: instruction,
		Action:      res.Action,
		Method:      string(res.Method),
		IntentJSON:  string(raw),
		Success:     res.Success,
		Changes:     res.Changes,
		Error:       res.Error,
		Duration:    res.Duration,
	})
	if err != nil {
		e.logger.Warn("journal write failed", zap.Error(fmt.Errorf("record %q: %w", res.Action, err)))
	}
}
