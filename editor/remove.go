package editor

import (
	"context"
	"strings"

	"latex_doc_editor/intent"
	"latex_doc_editor/latex"
)

func removals(doc string, spans []latex.Span, block bool) []latex.Patch {
	patches := make([]latex.Patch, 0, len(spans))
	for _, s := range spans {
		if block {
			patches = append(patches, latex.BlockRemoval(doc, s))
		} else {
			patches = append(patches, latex.Removal(doc, s))
		}
	}
	return patches
}

func (e *Engine) removeWord(_ context.Context, doc string, in intent.EditIntent) ([]latex.Patch, error) {
	return removals(doc, findText(doc, e.scope(doc, in), in.Target, true), false), nil
}

func (e *Engine) removePhrase(_ context.Context, doc string, in intent.EditIntent) ([]latex.Patch, error) {
	return removals(doc, findText(doc, e.scope(doc, in), in.Target, false), false), nil
}

func (e *Engine) removeSentence(ctx context.Context, doc string, in intent.EditIntent) ([]latex.Patch, error) {
	return removals(doc, e.locateSentence(ctx, doc, e.scope(doc, in), in.Target), false), nil
}

func (e *Engine) removeParagraph(_ context.Context, doc string, in intent.EditIntent) ([]latex.Patch, error) {
	return removals(doc, findParagraphs(doc, e.scope(doc, in), in.Target), true), nil
}

// removeSection drops an environment of that name (abstract, acknowledgments) when
// there is one, else the heading with its whole span.
func (e *Engine) removeSection(_ context.Context, doc string, in intent.EditIntent) ([]latex.Patch, error) {
	name := in.SectionName
	if name == "" {
		name = in.Target
	}
	if env := environmentName(name); env != "" {
		if span, ok := latex.FindEnvironment(doc, env); ok {
			return []latex.Patch{latex.BlockRemoval(doc, span)}, nil
		}
	}
	s, ok := latex.FindSection(doc, name)
	if !ok {
		return nil, nil
	}
	return []latex.Patch{latex.BlockRemoval(doc, s.Span())}, nil
}

func (e *Engine) removeTable(_ context.Context, doc string, in intent.EditIntent) ([]latex.Patch, error) {
	switch strings.ToLower(strings.TrimSpace(in.Target)) {
	case intent.TargetAll:
		return removals(doc, latex.TableBlocks(doc), true), nil
	case intent.TargetFirst, "":
		span, ok := latex.FindTable(doc, "")
		if !ok {
			return nil, nil
		}
		return removals(doc, []latex.Span{span}, true), nil
	default:
		span, ok := latex.FindTable(doc, in.Target)
		if !ok {
			return nil, nil
		}
		return removals(doc, []latex.Span{span}, true), nil
	}
}

func (e *Engine) removeEquation(_ context.Context, doc string, in intent.EditIntent) ([]latex.Patch, error) {
	inline, display := latex.InlineEquations(doc), latex.DisplayEquations(doc)
	switch strings.ToLower(strings.TrimSpace(in.Target)) {
	case intent.TargetAll:
		return append(removals(doc, inline, false), removals(doc, display, true)...), nil
	case intent.TargetInlineAll:
		return removals(doc, inline, false), nil
	case intent.TargetDisplayAll:
		return removals(doc, display, true), nil
	}
	span, ok := findEquation(doc, in.Target)
	if !ok {
		return nil, nil
	}
	isInline := doc[span.Start] == '$' && !strings.HasPrefix(span.Text(doc), "$$")
	return removals(doc, []latex.Span{span}, !isInline), nil
}
