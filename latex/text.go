package latex

import (
	"regexp"
	"strings"
)

var (
	blankLineRe  = regexp.MustCompile(`\n[ \t]*\n\s*`)
	backMatterRe = regexp.MustCompile(`\\bibliography\{|\\bibliographystyle\{|\\begin\{thebibliography\}|\\printbibliography|\\appendix\b`)
	structuralRe = regexp.MustCompile(`^\\(?:part|chapter|section|subsection|subsubsection|paragraph|begin|end|label|caption|maketitle|documentclass|usepackage)\b`)
)

// Whole is the span of the entire document.
func Whole(doc string) Span { return Span{Start: 0, End: len(doc)} }

// Paragraphs splits the text inside within on blank lines and returns the trimmed
// paragraph spans. Blocks that start with a heading or an environment marker are not
// prose and are left out.
func Paragraphs(doc string, within Span) []Span {
	var out []Span
	start := within.Start
	add := func(s, e int) {
		for s < e && isSpace(doc[s]) {
			s++
		}
		for e > s && isSpace(doc[e-1]) {
			e--
		}
		if s == e || structuralRe.MatchString(doc[s:e]) || InComment(doc, s) {
			return
		}
		out = append(out, Span{Start: s, End: e})
	}
	for _, m := range blankLineRe.FindAllStringIndex(doc[within.Start:within.End], -1) {
		add(start, within.Start+m[0])
		start = within.Start + m[1]
	}
	add(start, within.End)
	return out
}

// BackMatter is where a trailing section belongs: before the bibliography or the
// appendix when the document has one, else DocumentEnd.
func BackMatter(doc string) int {
	for _, m := range backMatterRe.FindAllStringIndex(doc, -1) {
		if !InComment(doc, m[0]) {
			return lineStart(doc, m[0])
		}
	}
	return DocumentEnd(doc)
}

// NormalizeSpace collapses runs of whitespace to one space and lower-cases s.
func NormalizeSpace(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
