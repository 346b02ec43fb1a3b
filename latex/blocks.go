package latex

import (
	"regexp"
	"sort"
	"strings"
)

// TableEnvironments are the environments treated as table blocks.
var TableEnvironments = []string{"table", "sidewaystable", "longtable", "tabular", "tabularx", "tabulary"}

// DisplayMathEnvironments are the environments treated as display equations.
var DisplayMathEnvironments = []string{"equation", "align", "multline", "gather", "alignat", "eqnarray", "displaymath", "flalign"}

// FindEnvironment returns the first \begin{name}...\end{name} block, including a
// starred variant. Nested blocks of the same name are balanced.
func FindEnvironment(doc, name string) (Span, bool) {
	spans := Environments(doc, name)
	if len(spans) == 0 {
		return Span{}, false
	}
	return spans[0], true
}

// Environments returns every outermost block of the named environment (and its starred
// variant) in document order.
func Environments(doc, name string) []Span {
	name = strings.TrimSuffix(strings.TrimSpace(name), "*")
	if name == "" {
		return nil
	}
	q := regexp.QuoteMeta(name)
	begin := regexp.MustCompile(`(?i)\\begin\{` + q + `\*?\}`)
	end := regexp.MustCompile(`(?i)\\end\{` + q + `\*?\}`)

	type mark struct {
		pos, end int
		open     bool
	}
	var marks []mark
	for _, m := range begin.FindAllStringIndex(doc, -1) {
		if !InComment(doc, m[0]) {
			marks = append(marks, mark{pos: m[0], end: m[1], open: true})
		}
	}
	for _, m := range end.FindAllStringIndex(doc, -1) {
		if !InComment(doc, m[0]) {
			marks = append(marks, mark{pos: m[0], end: m[1]})
		}
	}
	sort.Slice(marks, func(i, j int) bool { return marks[i].pos < marks[j].pos })

	var out []Span
	depth, start := 0, 0
	for _, m := range marks {
		if m.open {
			if depth == 0 {
				start = m.pos
			}
			depth++
			continue
		}
		if depth == 0 {
			continue
		}
		depth--
		if depth == 0 {
			out = append(out, Span{Start: start, End: m.end})
		}
	}
	return out
}

// TableBlocks returns every outermost table-like block. A tabular inside a table float
// is part of the float, not a block of its own.
func TableBlocks(doc string) []Span {
	var all []Span
	for _, env := range TableEnvironments {
		all = append(all, Environments(doc, env)...)
	}
	return outermost(all)
}

// FindTable returns the first table block whose text contains identifier
// (case-insensitive); a caption or label works. An empty identifier selects the first
// table.
func FindTable(doc, identifier string) (Span, bool) {
	blocks := TableBlocks(doc)
	if len(blocks) == 0 {
		return Span{}, false
	}
	if strings.TrimSpace(identifier) == "" {
		return blocks[0], true
	}
	needle := strings.ToLower(strings.TrimSpace(identifier))
	for _, b := range blocks {
		if strings.Contains(strings.ToLower(b.Text(doc)), needle) {
			return b, true
		}
	}
	return Span{}, false
}

var (
	doubleDollarRe = regexp.MustCompile(`(?s)\$\$.+?\$\$`)
	bracketMathRe  = regexp.MustCompile(`(?s)\\\[.*?\\\]`)
)

// DisplayEquations returns display math blocks: $$..$$, \[..\] and the display
// environments.
func DisplayEquations(doc string) []Span {
	var all []Span
	for _, re := range []*regexp.Regexp{doubleDollarRe, bracketMathRe} {
		for _, m := range re.FindAllStringIndex(doc, -1) {
			if m[0] > 0 && doc[m[0]-1] == '\\' {
				continue
			}
			if !InComment(doc, m[0]) {
				all = append(all, Span{Start: m[0], End: m[1]})
			}
		}
	}
	for _, env := range DisplayMathEnvironments {
		all = append(all, Environments(doc, env)...)
	}
	return outermost(all)
}

// InlineEquations returns $..$ spans whose content looks like mathematics. Escaped
// dollars, $$ delimiters, comments and display blocks are skipped.
func InlineEquations(doc string) []Span {
	display := DisplayEquations(doc)
	inDisplay := func(pos int) bool {
		for _, d := range display {
			if pos >= d.Start && pos < d.End {
				return true
			}
		}
		return false
	}

	var out []Span
	open := -1
	for i := 0; i < len(doc); i++ {
		switch doc[i] {
		case '\\':
			i++
			continue
		case '%':
			if open < 0 {
				if nl := strings.IndexByte(doc[i:], '\n'); nl >= 0 {
					i += nl
				} else {
					i = len(doc)
				}
			}
			continue
		case '$':
		default:
			continue
		}
		if i+1 < len(doc) && doc[i+1] == '$' {
			i++
			open = -1
			continue
		}
		if inDisplay(i) {
			continue
		}
		if open < 0 {
			open = i
			continue
		}
		span := Span{Start: open, End: i + 1}
		open = -1
		if LooksLikeMath(doc[span.Start+1 : span.End-1]) {
			out = append(out, span)
		}
	}
	return out
}

// Equations returns inline and display equations together in document order.
func Equations(doc string) []Span {
	return outermost(append(InlineEquations(doc), DisplayEquations(doc)...))
}

var mathIndicators = []*regexp.Regexp{
	regexp.MustCompile(`\\`),
	regexp.MustCompile(`[\^_{]`),
	regexp.MustCompile(`[a-zA-Z]\s*[=<>≤≥≠±∓×÷∈∉⊂⊃∪∩]`),
	regexp.MustCompile(`[+\-*/=<>]`),
	regexp.MustCompile(`\d+\.\d+`),
	regexp.MustCompile(`\d+[a-zA-Z]`),
}

var shortSymbolRe = regexp.MustCompile(`^[a-zA-Z0-9]{1,2}$`)

// LooksLikeMath is the heuristic that separates $x = y$ from a stray pair of dollar
// signs around prose such as "$5 and $10".
func LooksLikeMath(s string) bool {
	t := strings.TrimSpace(s)
	if t == "" {
		return false
	}
	for _, re := range mathIndicators {
		if re.MatchString(t) {
			return true
		}
	}
	return shortSymbolRe.MatchString(t)
}

// outermost sorts spans and drops any span contained in an earlier one.
func outermost(spans []Span) []Span {
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].Start != spans[j].Start {
			return spans[i].Start < spans[j].Start
		}
		return spans[i].End > spans[j].End
	})
	var out []Span
	for _, s := range spans {
		if len(out) > 0 {
			last := out[len(out)-1]
			if last.Contains(s) || s.Start < last.End {
				continue
			}
		}
		out = append(out, s)
	}
	return out
}
