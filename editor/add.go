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

// contentWords is the length from which an add-section newText is treated as the
// section body rather than a description to generate from.
const contentWords = 40

// placement is where a new section goes and which heading command it copies.
type placement struct {
	offset  int
	command string
	starred bool
}

func (e *Engine) addSection(ctx context.Context, doc string, in intent.EditIntent) ([]latex.Patch, error) {
	name := strings.TrimSpace(in.SectionName)
	if name == "" {
		name = strings.TrimSpace(in.Target)
	}
	if name == "" {
		return nil, nil
	}

	var at placement
	anchor := strings.TrimSpace(in.Target)
	switch {
	case in.Position == intent.End:
		at = placement{offset: latex.DocumentEnd(doc)}
	case (in.Position == intent.Before || in.Position == intent.After) && anchor != "" && !strings.EqualFold(anchor, name):
		at = anchorPlacement(doc, anchor, in.Position)
	default:
		at = smartPlacement(doc, name)
	}
	e.logger.Debug("placing new section", zap.String("section", name), zap.Int("offset", at.offset), zap.String("command", at.command))

	body := e.sectionContent(ctx, doc, name, in.NewText, in.ConvertToPlainMarkup)
	text := heading(at, name) + "\n"
	if body != "" {
		text += body + "\n"
	}
	return []latex.Patch{insertion(doc, at.offset, text)}, nil
}

func anchorPlacement(doc, anchor string, pos intent.Position) placement {
	offset, s, ok := latex.InsertAnchor(doc, anchor, string(pos))
	if !ok {
		return placement{offset: offset}
	}
	return placement{offset: offset, command: s.Command, starred: s.Starred}
}

// smartPlacement picks a position for a section whose instruction named no anchor:
// future work goes before the conclusion, limitations before future work (or the
// conclusion), acknowledgments at the end, related work and background after the
// introduction, anything else before the conclusion or at the end.
func smartPlacement(doc, name string) placement {
	lower := strings.ToLower(name)
	before := func(names ...string) (placement, bool) {
		for _, n := range names {
			if s, ok := latex.FindSection(doc, n); ok {
				return placement{offset: s.Start, command: s.Command, starred: s.Starred}, true
			}
		}
		return placement{}, false
	}
	end := placement{offset: latex.BackMatter(doc)}

	switch {
	case strings.Contains(lower, "acknowledg"):
		return end
	case strings.Contains(lower, "future"):
		if at, ok := before("conclusion"); ok {
			return at
		}
	case strings.Contains(lower, "limitation"):
		if at, ok := before("future work", "conclusion"); ok {
			return at
		}
	case strings.Contains(lower, "related work"), strings.Contains(lower, "background"):
		if s, ok := latex.FindSection(doc, "introduction"); ok {
			return placement{offset: s.End, command: s.Command, starred: s.Starred}
		}
	}
	if at, ok := before("conclusion"); ok {
		return at
	}
	return end
}

func heading(at placement, name string) string {
	cmd := at.command
	if cmd == "" {
		cmd = "section"
	}
	if at.starred {
		cmd += "*"
	}
	title := name
	if !markup.HasMarkup(title) {
		title = markup.Escape(title)
	}
	return `\` + cmd + "{" + title + "}"
}

// sectionContent is the body of a new section. Long text is used as given; a short
// description (or none) is expanded by the language service, and the description
// itself becomes the body when the service is unavailable.
func (e *Engine) sectionContent(ctx context.Context, doc, name, text string, convert bool) string {
	text = strings.TrimSpace(text)
	if len(strings.Fields(text)) < contentWords && !markup.HasMarkup(text) {
		excerpt := doc
		if s, ok := latex.FindSection(doc, "introduction"); ok {
			excerpt = s.Span().Text(doc)
		}
		if answer, ok := e.complete(ctx, "generate_section", generator.BuildSectionPrompt(name, text, excerpt)); ok {
			if body, err := generator.CleanBody(answer); err == nil {
				return body
			}
		}
	}
	if text == "" {
		return ""
	}
	if convert {
		return e.toLaTeX(ctx, text)
	}
	return text
}

func (e *Engine) addContent(ctx context.Context, doc string, in intent.EditIntent) ([]latex.Patch, error) {
	content := strings.TrimSpace(in.NewText)
	if content == "" {
		return nil, nil
	}
	if in.ConvertToPlainMarkup {
		content = e.toLaTeX(ctx, content)
	} else if !markup.HasMarkup(content) {
		content = markup.Prepare(content)
	}

	offset := latex.DocumentEnd(doc)
	name := in.SectionName
	if name == "" {
		name = in.Target
	}
	if name != "" {
		if s, ok := latex.FindSection(doc, name); ok {
			offset = s.End
			if in.Position == intent.Before {
				offset = s.BodyStart
				if m := leadingLabelRe.FindStringIndex(doc[s.BodyStart:s.End]); m != nil {
					offset += m[1]
				}
			}
		}
	}
	return []latex.Patch{insertion(doc, offset, content)}, nil
}

// insertion places text at offset as its own block, separated from its neighbours by
// a blank line.
func insertion(doc string, offset int, text string) latex.Patch {
	text = strings.TrimSpace(text)
	before := 0
	for i := offset - 1; i >= 0 && before < 2 && doc[i] == '\n'; i-- {
		before++
	}
	after := 0
	for i := offset; i < len(doc) && after < 2 && doc[i] == '\n'; i++ {
		after++
	}
	if offset > 0 {
		text = strings.Repeat("\n", 2-before) + text
	}
	if offset < len(doc) {
		text += strings.Repeat("\n", 2-after)
	} else {
		text += "\n"
	}
	return latex.Patch{Span: latex.Span{Start: offset, End: offset}, Text: text}
}

var (
	documentClassRe = regexp.MustCompile(`\\documentclass(?:\[[^\]]*\])?\{[^}]*\}[^\n]*\n?`)
)

// ensurePackage adds \usepackage{pkg} after \documentclass when the preamble does not
// load it already. Fragments without a preamble are returned unchanged.
func ensurePackage(doc, pkg string) string {
	loaded := regexp.MustCompile(`\\usepackage(?:\[[^\]]*\])?\{[^}]*\b` + regexp.QuoteMeta(pkg) + `\b[^}]*\}`)
	if loaded.MatchString(doc) {
		return doc
	}
	m := documentClassRe.FindStringIndex(doc)
	if m == nil {
		return doc
	}
	line := `\usepackage{` + pkg + "}\n"
	if m[1] > 0 && doc[m[1]-1] != '\n' {
		line = "\n" + line
	}
	return doc[:m[1]] + line + doc[m[1]:]
}
