package editor

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"latex_doc_editor/generator"
	"latex_doc_editor/intent"
	"latex_doc_editor/latex"
)

// modifySection sends a section body and the instruction to the language service and
// splices the rewritten body back under the untouched heading. Without a service, or
// when the call fails, nothing changes.
func (e *Engine) modifySection(ctx context.Context, doc string, in intent.EditIntent) ([]latex.Patch, error) {
	name := in.SectionName
	if name == "" {
		name = in.Target
	}
	body, title, ok := sectionBody(doc, name)
	if !ok {
		return nil, nil
	}
	instruction := strings.TrimSpace(in.NewText)
	if instruction == "" {
		instruction = "Improve clarity and concision."
	}

	answer, ok := e.complete(ctx, "rewrite_section", generator.BuildRewritePrompt(title, body.Text(doc), instruction))
	if !ok {
		e.logger.Info("section rewrite unavailable", zap.String("section", title))
		return nil, nil
	}
	rewritten, err := generator.CleanBody(answer)
	if err != nil {
		e.logger.Warn("section rewrite unusable", zap.String("section", title), zap.Error(err))
		return nil, nil
	}
	return []latex.Patch{{Span: body, Text: bodyText(rewritten)}}, nil
}
