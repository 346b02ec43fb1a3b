// Package latex locates structural pieces of a LaTeX document (sectioning headings,
// environments, tables, equations) and splices text into it by byte offset.
//
// Nothing here parses LaTeX properly. Every lookup is a best-effort scan of the current
// text and returns offsets that are only valid for that exact snapshot.
package latex

import (
	"regexp"
	"strings"
	"unicode"
)

// Section is one heading plus the content that belongs to it.
type Section struct {
	Title     string
	Command   string
	Starred   bool
	Level     int
	Start     int // start of the heading command
	BodyStart int // just after the heading's closing brace
	End       int // exclusive
}

// Span covers the heading and its body.
func (s Section) Span() Span { return Span{Start: s.Start, End: s.End} }

// Body covers the content after the heading.
func (s Section) Body() Span { return Span{Start: s.BodyStart, End: s.End} }

// Heading returns the heading command exactly as written.
func (s Section) Heading(doc string) string { return doc[s.Start:s.BodyStart] }

var levels = map[string]int{
	"part":          -1,
	"chapter":       0,
	"section":       1,
	"subsection":    2,
	"subsubsection": 3,
	"paragraph":     4,
}

// LevelOf returns the depth of a sectioning command and whether it is one.
func LevelOf(command string) (int, bool) {
	l, ok := levels[strings.TrimSuffix(command, "*")]
	return l, ok
}

var (
	headingRe    = regexp.MustCompile(`\\(part|chapter|section|subsection|subsubsection|paragraph)(\*?)\s*(?:\[[^\]]*\])?\s*\{`)
	terminatorRe = regexp.MustCompile(`\\end\{document\}|\\bibliography\{|\\bibliographystyle\{|\\begin\{thebibliography\}|\\printbibliography|\\appendix\b`)
	labelRe      = regexp.MustCompile(`\\label\{[^}]*\}`)
	commandRe    = regexp.MustCompile(`\\[a-zA-Z]+\*?`)
	numberingRe  = regexp.MustCompile(`^\s*(?:[0-9]+(?:\.[0-9]+)*\.?|[IVXLC]+\.)\s+`)
)

const endDocument = `\end{document}`

// DocumentEnd is the offset where trailing content belongs: just before the last
// \end{document}, or the end of the text when there is none.
func DocumentEnd(doc string) int {
	if i := strings.LastIndex(doc, endDocument); i >= 0 {
		return i
	}
	return len(doc)
}

// Sections lists every heading in document order with its span. A span runs until the
// next heading of the same or a higher level, a bibliography or appendix marker, or the
// document end.
func Sections(doc string) []Section {
	var out []Section
	for _, m := range headingRe.FindAllStringSubmatchIndex(doc, -1) {
		if InComment(doc, m[0]) {
			continue
		}
		open := m[1] - 1
		closing := MatchBrace(doc, open)
		if closing < 0 {
			continue
		}
		cmd := doc[m[2]:m[3]]
		level, _ := LevelOf(cmd)
		out = append(out, Section{
			Title:     strings.TrimSpace(doc[open+1 : closing]),
			Command:   cmd,
			Starred:   m[5] > m[4],
			Level:     level,
			Start:     m[0],
			BodyStart: closing + 1,
		})
	}

	docEnd := DocumentEnd(doc)
	var stops []int
	for _, m := range terminatorRe.FindAllStringIndex(doc, -1) {
		if !InComment(doc, m[0]) {
			stops = append(stops, m[0])
		}
	}

	for i := range out {
		end := docEnd
		for j := i + 1; j < len(out); j++ {
			if out[j].Level <= out[i].Level {
				end = out[j].Start
				break
			}
		}
		for _, stop := range stops {
			if stop >= out[i].BodyStart && stop < end {
				end = stop
				break
			}
		}
		if end < out[i].BodyStart {
			end = out[i].BodyStart
		}
		out[i].End = end
	}
	return out
}

// FindSection looks a heading up by name. Words of the name may be separated in the
// heading by whitespace, "&", "\&" (and the other escaped specials) or "and", matched
// case-insensitively. A heading whose whole title matches wins over the first heading
// that merely contains the name.
func FindSection(doc, name string) (Section, bool) {
	exact, partial := sectionPatterns(name)
	if exact == nil {
		return Section{}, false
	}
	sections := Sections(doc)
	for _, s := range sections {
		if exact.MatchString(CleanTitle(s.Title)) {
			return s, true
		}
	}
	for _, s := range sections {
		if partial.MatchString(CleanTitle(s.Title)) {
			return s, true
		}
	}
	return Section{}, false
}

// InsertAnchor resolves where new content goes relative to a named section:
// "before" is the heading start, "after" is the span end, anything else (or a name
// that is not found) is DocumentEnd. found reports whether the section exists, and s
// is that section.
func InsertAnchor(doc, name, position string) (offset int, s Section, found bool) {
	s, ok := FindSection(doc, name)
	if !ok {
		return DocumentEnd(doc), Section{}, false
	}
	switch position {
	case "before":
		return s.Start, s, true
	case "after":
		return s.End, s, true
	default:
		return DocumentEnd(doc), s, true
	}
}

// CleanTitle reduces a heading title to plain words for matching.
func CleanTitle(title string) string {
	t := labelRe.ReplaceAllString(title, "")
	t = strings.ReplaceAll(t, `\&`, "&")
	t = commandRe.ReplaceAllString(t, "")
	t = strings.NewReplacer("{", "", "}", "", "~", " ").Replace(t)
	t = numberingRe.ReplaceAllString(t, "")
	return strings.Join(strings.Fields(t), " ")
}

const nameSeparator = `(?:\s|\\?[&#%$]|\band\b)*`

func sectionPatterns(name string) (exact, partial *regexp.Regexp) {
	tokens := nameTokens(name)
	if len(tokens) == 0 {
		return nil, nil
	}
	quoted := make([]string, len(tokens))
	for i, t := range tokens {
		quoted[i] = regexp.QuoteMeta(t)
	}
	body := strings.Join(quoted, nameSeparator)
	exact = regexp.MustCompile(`(?i)^\s*` + body + `\s*$`)
	partial = regexp.MustCompile(`(?i)` + body)
	return exact, partial
}

func nameTokens(name string) []string {
	fields := strings.FieldsFunc(name, func(r rune) bool {
		return unicode.IsSpace(r) || r == '&' || r == '\\' || r == '{' || r == '}'
	})
	var out []string
	for _, f := range fields {
		if strings.EqualFold(f, "and") {
			continue
		}
		out = append(out, f)
	}
	return out
}

// MatchBrace returns the index of the brace closing the one at open, or -1.
func MatchBrace(doc string, open int) int {
	depth := 0
	for i := open; i < len(doc); i++ {
		switch doc[i] {
		case '\\':
			i++
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// InComment reports whether pos sits after an unescaped % on its line.
func InComment(doc string, pos int) bool {
	for i := lineStart(doc, pos); i < pos; i++ {
		switch doc[i] {
		case '\\':
			i++
		case '%':
			return true
		}
	}
	return false
}
