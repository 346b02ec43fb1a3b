package editor

import (
	"context"
	"strings"

	"latex_doc_editor/intent"
	"latex_doc_editor/latex"
)

// wrapper returns the opening and closing markup for a format intent.
func wrapper(in intent.EditIntent) (string, string) {
	switch in.FormatAction {
	case intent.Bold:
		return `\textbf{`, "}"
	case intent.Italic:
		return `\textit{`, "}"
	default:
		color := in.Color
		if color == "" {
			color = intent.DefaultColor
		}
		return `\colorbox{` + color + `}{`, "}"
	}
}

// wrap builds one patch per span, skipping spans that already carry the same markup
// so that formatting twice changes nothing.
func wrap(doc string, spans []latex.Span, in intent.EditIntent) []latex.Patch {
	open, closing := wrapper(in)
	patches := make([]latex.Patch, 0, len(spans))
	for _, s := range spans {
		if strings.HasSuffix(doc[:s.Start], open) && strings.HasPrefix(doc[s.End:], closing) {
			continue
		}
		patches = append(patches, latex.Patch{Span: s, Text: open + s.Text(doc) + closing})
	}
	return patches
}

func (e *Engine) formatWord(_ context.Context, doc string, in intent.EditIntent) ([]latex.Patch, error) {
	return wrap(doc, findText(doc, e.scope(doc, in), in.Target, true), in), nil
}

// formatPhrase also serves section, table and equation targets, which are formatted by
// matching their text.
func (e *Engine) formatPhrase(_ context.Context, doc string, in intent.EditIntent) ([]latex.Patch, error) {
	return wrap(doc, findText(doc, e.scope(doc, in), in.Target, false), in), nil
}

func (e *Engine) formatSentence(_ context.Context, doc string, in intent.EditIntent) ([]latex.Patch, error) {
	return wrap(doc, findSentence(doc, e.scope(doc, in), in.Target), in), nil
}

func (e *Engine) formatParagraph(_ context.Context, doc string, in intent.EditIntent) ([]latex.Patch, error) {
	return wrap(doc, findParagraphs(doc, e.scope(doc, in), in.Target), in), nil
}
