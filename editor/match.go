package editor

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"latex_doc_editor/intent"
	"latex_doc_editor/latex"
)

// CasePolicy decides how a replacement mirrors the case of the text it replaces when
// that text is all upper case.
type CasePolicy int

const (
	// CaseUpper upper-cases the replacement: "CGM" -> "GLUCOSE MONITOR".
	CaseUpper CasePolicy = iota
	// CaseTitleMultiWord title-cases the replacement when it has several words or the
	// match has a hyphen, and upper-cases it otherwise.
	CaseTitleMultiWord
)

func ParseCasePolicy(s string) (CasePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "upper":
		return CaseUpper, nil
	case "title":
		return CaseTitleMultiWord, nil
	default:
		return 0, fmt.Errorf("unknown case policy %q (want upper or title)", s)
	}
}

func (p CasePolicy) String() string {
	if p == CaseTitleMultiWord {
		return "title"
	}
	return "upper"
}

// Adjust shapes replacement after the case pattern of matched.
func (p CasePolicy) Adjust(matched, replacement string) string {
	switch {
	case isAllUpper(matched):
		if p == CaseTitleMultiWord && (len(strings.Fields(replacement)) > 1 || strings.Contains(matched, "-")) {
			return titleCase(replacement)
		}
		return strings.ToUpper(replacement)
	case startsUpper(matched):
		return capitalize(strings.ToLower(replacement))
	default:
		return strings.ToLower(replacement)
	}
}

func isAllUpper(s string) bool {
	letters := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters > 1
}

func startsUpper(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r)
}

func capitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = capitalize(strings.ToLower(w))
	}
	return strings.Join(words, " ")
}

// tokenGap is the whitespace allowed between two words of a target: spaces and tabs
// with at most one line break, so a match never spans a paragraph break.
const tokenGap = `(?:[ \t]*\r?\n[ \t]*|[ \t]+)`

// textPattern matches target case-insensitively, letting any whitespace in the target
// match tokenGap in the document.
func textPattern(target string) (*regexp.Regexp, bool) {
	fields := strings.Fields(target)
	if len(fields) == 0 {
		return nil, false
	}
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = regexp.QuoteMeta(f)
	}
	return regexp.MustCompile(`(?i)` + strings.Join(quoted, tokenGap)), true
}

func isWordByte(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= 0x80
}

// findText returns the non-overlapping matches of target inside within. Matches right
// after a backslash (command names) or inside comments are skipped; wholeWord also
// requires a word boundary on each side where the target itself starts or ends with a
// word character.
func findText(doc string, within latex.Span, target string, wholeWord bool) []latex.Span {
	re, ok := textPattern(target)
	if !ok {
		return nil
	}
	var out []latex.Span
	for _, m := range re.FindAllStringIndex(doc[within.Start:within.End], -1) {
		s, e := within.Start+m[0], within.Start+m[1]
		if s > 0 && doc[s-1] == '\\' {
			continue
		}
		if latex.InComment(doc, s) {
			continue
		}
		if wholeWord {
			if isWordByte(doc[s]) && s > 0 && isWordByte(doc[s-1]) {
				continue
			}
			if isWordByte(doc[e-1]) && e < len(doc) && isWordByte(doc[e]) {
				continue
			}
		}
		out = append(out, latex.Span{Start: s, End: e})
	}
	return out
}

// scope is the part of the document an intent may touch: the body of its named section
// when that section exists, else the whole document.
func (e *Engine) scope(doc string, in intent.EditIntent) latex.Span {
	if in.SectionName == "" || in.TargetType == intent.Section {
		return latex.Whole(doc)
	}
	if s, ok := latex.FindSection(doc, in.SectionName); ok {
		return s.Body()
	}
	e.logger.Debug("scope section not found, searching whole document")
	return latex.Whole(doc)
}

// findSentence runs the exact and the whitespace/case-tolerant lookups. The AI-assisted
// third tier lives in locateSentence.
func findSentence(doc string, within latex.Span, target string) []latex.Span {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil
	}
	var out []latex.Span
	text := doc[within.Start:within.End]
	for off := 0; ; {
		i := strings.Index(text[off:], target)
		if i < 0 {
			break
		}
		s := within.Start + off + i
		out = append(out, latex.Span{Start: s, End: s + len(target)})
		off += i + len(target)
	}
	if len(out) > 0 {
		return out
	}
	return findText(doc, within, target, false)
}

// findParagraphs returns the paragraphs inside within whose text contains target.
func findParagraphs(doc string, within latex.Span, target string) []latex.Span {
	needle := latex.NormalizeSpace(target)
	if needle == "" {
		return nil
	}
	var out []latex.Span
	for _, p := range latex.Paragraphs(doc, within) {
		if strings.Contains(latex.NormalizeSpace(p.Text(doc)), needle) {
			out = append(out, p)
		}
	}
	return out
}

const anchorWords = 5

func anchorPrefix(target string) (string, bool) {
	words := strings.Fields(target)
	if len(words) < anchorWords+1 {
		return "", false
	}
	return strings.Join(words[:anchorWords], " "), true
}
