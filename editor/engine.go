// Package editor applies a resolved EditIntent to a LaTeX document.
package editor

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"latex_doc_editor/generator"
	"latex_doc_editor/intent"
	"latex_doc_editor/latex"
)

// Completer is the language-service call the engine uses for sentence lookup, section
// rewriting, section generation and prose conversion.
type Completer interface {
	Complete(ctx context.Context, prompt generator.Prompt) (string, error)
}

// Outcome reports what Apply did. Changes == 0 with Success == true means the target
// was not found.
type Outcome struct {
	Success bool   `json:"success"`
	Changes int    `json:"changes"`
	Error   string `json:"error,omitempty"`
}

type handler func(e *Engine, ctx context.Context, doc string, in intent.EditIntent) ([]latex.Patch, error)

type Engine struct {
	llm      Completer
	policy   CasePolicy
	logger   *zap.Logger
	handlers map[intent.Action]handler
}

type Option func(*Engine)

func WithAssistant(c Completer) Option {
	return func(e *Engine) { e.llm = c }
}

func WithCasePolicy(p CasePolicy) Option {
	return func(e *Engine) { e.policy = p }
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func New(opts ...Option) *Engine {
	e := &Engine{policy: CaseUpper, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	e.handlers = handlers()
	return e
}

// handlers is the dispatch table; every intent.AllActions entry has a handler.
func handlers() map[intent.Action]handler {
	h := make(map[intent.Action]handler)
	set := func(op intent.Operation, tt intent.TargetType, fn handler) {
		h[intent.ActionFor(op, tt, "")] = fn
	}

	set(intent.OpReplace, intent.Word, (*Engine).replaceWord)
	set(intent.OpReplace, intent.Phrase, (*Engine).replacePhrase)
	set(intent.OpReplace, intent.Sentence, (*Engine).replaceSentence)
	set(intent.OpReplace, intent.Paragraph, (*Engine).replaceParagraph)
	set(intent.OpReplace, intent.Section, (*Engine).replaceSection)
	set(intent.OpReplace, intent.Table, (*Engine).replaceTable)
	set(intent.OpReplace, intent.Equation, (*Engine).replaceEquation)

	set(intent.OpRemove, intent.Word, (*Engine).removeWord)
	set(intent.OpRemove, intent.Phrase, (*Engine).removePhrase)
	set(intent.OpRemove, intent.Sentence, (*Engine).removeSentence)
	set(intent.OpRemove, intent.Paragraph, (*Engine).removeParagraph)
	set(intent.OpRemove, intent.Section, (*Engine).removeSection)
	set(intent.OpRemove, intent.Table, (*Engine).removeTable)
	set(intent.OpRemove, intent.Equation, (*Engine).removeEquation)

	for _, tt := range intent.TargetTypes {
		if tt == intent.Section {
			set(intent.OpAdd, tt, (*Engine).addSection)
		} else {
			set(intent.OpAdd, tt, (*Engine).addContent)
		}
		set(intent.OpModify, tt, (*Engine).modifySection)

		for _, fa := range intent.FormatActions {
			a := intent.ActionFor(intent.OpFormat, tt, fa)
			switch tt {
			case intent.Word:
				h[a] = (*Engine).formatWord
			case intent.Sentence:
				h[a] = (*Engine).formatSentence
			case intent.Paragraph:
				h[a] = (*Engine).formatParagraph
			default:
				h[a] = (*Engine).formatPhrase
			}
		}
	}
	return h
}

// Apply executes in against doc and returns the new document. in must already pass
// intent.Validate. Only an execution fault (a bad splice, an invalid intent or a panic)
// yields Success == false, and then doc is returned unchanged.
func (e *Engine) Apply(ctx context.Context, doc string, in intent.EditIntent) (out string, res Outcome) {
	action := in.Kind()
	log := e.logger.With(zap.String("action", action.String()), zap.String("target", in.Target))

	defer func() {
		if r := recover(); r != nil {
			log.Error("edit panicked", zap.Any("panic", r))
			out, res = doc, Outcome{Error: fmt.Sprintf("internal error: %v", r)}
		}
	}()

	if err := intent.Validate(in); err != nil {
		log.Warn("rejected invalid intent", zap.Error(err))
		return doc, Outcome{Error: err.Error()}
	}
	h, ok := e.handlers[action]
	if !ok {
		return doc, Outcome{Error: fmt.Sprintf("unsupported action %q", action)}
	}

	patches, err := h(e, ctx, doc, in)
	if err != nil {
		log.Error("edit failed", zap.Error(err))
		return doc, Outcome{Error: err.Error()}
	}
	if len(patches) == 0 {
		log.Info("target not found, nothing changed")
		return doc, Outcome{Success: true}
	}

	out, err = latex.ApplyPatches(doc, patches)
	if err != nil {
		log.Error("splice failed", zap.Error(err))
		return doc, Outcome{Error: err.Error()}
	}
	if action.Operation == intent.OpFormat && action.Format == intent.Highlight {
		out = ensurePackage(out, "xcolor")
	}
	log.Info("edit applied", zap.Int("changes", len(patches)))
	return out, Outcome{Success: true, Changes: len(patches)}
}

func (e *Engine) aiAvailable() bool {
	if e.llm == nil {
		return false
	}
	if a, ok := e.llm.(interface{ Available() bool }); ok {
		return a.Available()
	}
	return true
}

// complete calls the language service. ok is false when it is not configured or the
// call failed; failures are logged and never surface as execution faults.
func (e *Engine) complete(ctx context.Context, what string, p generator.Prompt) (string, bool) {
	if !e.aiAvailable() {
		return "", false
	}
	answer, err := e.llm.Complete(ctx, p)
	if err != nil {
		level := e.logger.Warn
		if errors.Is(err, generator.ErrRateLimited) || errors.Is(err, generator.ErrNoCredential) {
			level = e.logger.Info
		}
		level("language service call failed", zap.String("call", what), zap.Error(err))
		return "", false
	}
	return answer, true
}
