package editor

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"latex_doc_editor/generator"
	"latex_doc_editor/intent"
	"latex_doc_editor/latex"
	"latex_doc_editor/markup"
)

func (e *Engine) replaceWord(_ context.Context, doc string, in intent.EditIntent) ([]latex.Patch, error) {
	return e.replaceMatches(doc, findText(doc, e.scope(doc, in), in.Target, true), in.NewText), nil
}

func (e *Engine) replacePhrase(_ context.Context, doc string, in intent.EditIntent) ([]latex.Patch, error) {
	return e.replaceMatches(doc, findText(doc, e.scope(doc, in), in.Target, false), in.NewText), nil
}

func (e *Engine) replaceMatches(doc string, spans []latex.Span, replacement string) []latex.Patch {
	patches := make([]latex.Patch, 0, len(spans))
	for _, s := range spans {
		patches = append(patches, latex.Patch{Span: s, Text: runningText(e.policy.Adjust(s.Text(doc), replacement))})
	}
	return patches
}

// runningText escapes LaTeX specials in a plain replacement. Text that already carries
// markup or backslash escapes is kept as written.
func runningText(s string) string {
	if markup.HasMarkup(s) || strings.Contains(s, `\`) {
		return s
	}
	return markup.Escape(s)
}

func (e *Engine) replaceSentence(ctx context.Context, doc string, in intent.EditIntent) ([]latex.Patch, error) {
	spans := e.locateSentence(ctx, doc, e.scope(doc, in), in.Target)
	patches := make([]latex.Patch, 0, len(spans))
	for _, s := range spans {
		patches = append(patches, latex.Patch{Span: s, Text: in.NewText})
	}
	return patches, nil
}

// locateSentence is the three-tier sentence lookup: exact text, then a whitespace and
// case tolerant match, then an anchor on the first words of the target that the
// language service resolves to the verbatim sentence. Without the service, or when its
// answer is not verbatim in the document, nothing is located.
func (e *Engine) locateSentence(ctx context.Context, doc string, within latex.Span, target string) []latex.Span {
	if spans := findSentence(doc, within, target); len(spans) > 0 {
		return spans
	}
	if !e.aiAvailable() {
		return nil
	}
	prefix, ok := anchorPrefix(target)
	if !ok {
		return nil
	}
	hits := findText(doc, within, prefix, false)
	if len(hits) == 0 {
		return nil
	}
	hit := hits[0]

	excerptStart := max(within.Start, hit.Start-500)
	excerptEnd := min(within.End, hit.Start+1500)
	answer, ok := e.complete(ctx, "locate_sentence", generator.BuildLocatePrompt(target, doc[excerptStart:excerptEnd]))
	if !ok {
		return nil
	}
	sentence := strings.Trim(strings.TrimSpace(generator.StripFences(answer)), `"`)
	if sentence == "" || generator.IsNotFound(sentence) {
		return nil
	}
	i := strings.Index(doc[within.Start:within.End], sentence)
	if i < 0 {
		e.logger.Debug("located sentence is not verbatim in the document", zap.String("sentence", sentence))
		return nil
	}
	s := within.Start + i
	return []latex.Span{{Start: s, End: s + len(sentence)}}
}

func (e *Engine) replaceParagraph(_ context.Context, doc string, in intent.EditIntent) ([]latex.Patch, error) {
	spans := findParagraphs(doc, e.scope(doc, in), in.Target)
	patches := make([]latex.Patch, 0, len(spans))
	for _, s := range spans {
		patches = append(patches, latex.Patch{Span: s, Text: strings.TrimSpace(in.NewText)})
	}
	return patches, nil
}

var leadingLabelRe = regexp.MustCompile(`^\s*\\label\{[^}]*\}`)

// sectionBody finds the body to rewrite for name: a heading's content, or the inside of
// an environment of that name (abstract, acknowledgments).
func sectionBody(doc, name string) (latex.Span, string, bool) {
	if s, ok := latex.FindSection(doc, name); ok {
		body := s.Body()
		if m := leadingLabelRe.FindStringIndex(doc[body.Start:body.End]); m != nil {
			body.Start += m[1]
		}
		return body, s.Title, true
	}
	if env := environmentName(name); env != "" {
		if span, ok := latex.FindEnvironment(doc, env); ok {
			text := span.Text(doc)
			open := strings.Index(text, "}") + 1
			closing := strings.LastIndex(text, `\end{`)
			if open > 0 && closing >= open {
				return latex.Span{Start: span.Start + open, End: span.Start + closing}, env, true
			}
		}
	}
	return latex.Span{}, "", false
}

var envNameRe = regexp.MustCompile(`^[A-Za-z]+\*?$`)

func environmentName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if !envNameRe.MatchString(n) {
		return ""
	}
	return n
}

// bodyText formats new section content so the heading keeps its own line and the next
// heading starts after a blank line.
func bodyText(content string) string {
	return "\n" + strings.TrimSpace(content) + "\n\n"
}

func (e *Engine) replaceSection(ctx context.Context, doc string, in intent.EditIntent) ([]latex.Patch, error) {
	name := in.SectionName
	if name == "" {
		name = in.Target
	}
	body, _, ok := sectionBody(doc, name)
	if !ok {
		return nil, nil
	}
	content := in.NewText
	if in.ConvertToPlainMarkup {
		content = e.toLaTeX(ctx, content)
	}
	return []latex.Patch{{Span: body, Text: bodyText(content)}}, nil
}

// toLaTeX converts plain prose to LaTeX. The language service's answer is only taken
// when it actually contains markup; otherwise the deterministic converter is used.
func (e *Engine) toLaTeX(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" || markup.HasMarkup(text) {
		return text
	}
	if answer, ok := e.complete(ctx, "convert", generator.BuildConvertPrompt(text)); ok {
		if cleaned, err := generator.CleanBody(answer); err == nil && markup.HasMarkup(cleaned) {
			return cleaned
		}
	}
	return markup.Prepare(text)
}

func (e *Engine) replaceTable(_ context.Context, doc string, in intent.EditIntent) ([]latex.Patch, error) {
	identifier := in.Target
	if identifier == intent.TargetFirst || identifier == intent.TargetAll {
		identifier = ""
	}
	span, ok := latex.FindTable(doc, identifier)
	if !ok {
		return nil, nil
	}
	return []latex.Patch{{Span: span, Text: strings.TrimSpace(in.NewText)}}, nil
}

var (
	envOpenRe  = regexp.MustCompile(`^\\begin\{[^}]*\}`)
	envCloseRe = regexp.MustCompile(`\\end\{[^}]*\}$`)
	mathOpenRe = regexp.MustCompile(`^\s*(?:\$|\\\[|\\begin\{)`)
)

func (e *Engine) replaceEquation(_ context.Context, doc string, in intent.EditIntent) ([]latex.Patch, error) {
	span, ok := findEquation(doc, in.Target)
	if !ok {
		return nil, nil
	}
	newText := strings.TrimSpace(in.NewText)
	if mathOpenRe.MatchString(newText) {
		return []latex.Patch{{Span: span, Text: newText}}, nil
	}
	inner := mathInner(doc, span)
	if doc[span.Start] != '$' || strings.HasPrefix(span.Text(doc), "$$") {
		newText = "\n" + newText + "\n"
	}
	return []latex.Patch{{Span: inner, Text: newText}}, nil
}

// findEquation picks the equation whose content (whitespace ignored) contains target,
// or whose text carries target as a label; "first", "all" and "" pick the first one.
func findEquation(doc, target string) (latex.Span, bool) {
	eqs := latex.Equations(doc)
	if len(eqs) == 0 {
		return latex.Span{}, false
	}
	switch strings.TrimSpace(target) {
	case "", intent.TargetFirst, intent.TargetAll, intent.TargetInlineAll, intent.TargetDisplayAll:
		return eqs[0], true
	}
	needle := squeeze(target)
	for _, eq := range eqs {
		if strings.Contains(squeeze(eq.Text(doc)), needle) {
			return eq, true
		}
	}
	return latex.Span{}, false
}

func squeeze(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(strings.Trim(strings.TrimSpace(s), "$")), ""))
}

// mathInner is the part of an equation block between its delimiters.
func mathInner(doc string, span latex.Span) latex.Span {
	text := span.Text(doc)
	switch {
	case strings.HasPrefix(text, "$$"):
		return latex.Span{Start: span.Start + 2, End: span.End - 2}
	case strings.HasPrefix(text, "$"):
		return latex.Span{Start: span.Start + 1, End: span.End - 1}
	case strings.HasPrefix(text, `\[`):
		return latex.Span{Start: span.Start + 2, End: span.End - 2}
	}
	open := envOpenRe.FindStringIndex(text)
	closing := envCloseRe.FindStringIndex(text)
	if open == nil || closing == nil || closing[0] < open[1] {
		return span
	}
	return latex.Span{Start: span.Start + open[1], End: span.Start + closing[0]}
}
