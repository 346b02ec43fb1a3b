package layout

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"latex_doc_editor/latex"
)

// minimum shift worth emitting, in cm
const minShift = 0.05

var shiftRe = regexp.MustCompile(`\\hspace\*\{-?[0-9.]+cm\}\s*\n?`)

// RewriteColumnSpec replaces the column specification of the first tabular in table
// with the plan's, and emits the plan's shift as \hspace* before the tabular. A shift
// left by an earlier rewrite is replaced. Without a tabular the input is returned
// unchanged and ok is false.
func RewriteColumnSpec(table string, plan ColumnWidthPlan) (out string, ok bool) {
	t := Parse(table)
	if !t.HasSpec || len(plan.Widths) == 0 {
		return table, false
	}
	out = table[:t.SpecSpan.Start] + plan.ColumnSpec() + table[t.SpecSpan.End:]

	head := out[:t.TabularStart]
	tail := out[t.TabularStart:]
	if loc := shiftRe.FindAllStringIndex(head, -1); len(loc) > 0 {
		last := loc[len(loc)-1]
		if strings.TrimSpace(head[last[1]:]) == "" {
			head = head[:last[0]]
		}
	}
	if math.Abs(plan.HorizontalShift) >= minShift {
		head += fmt.Sprintf("\\hspace*{%.1fcm}\n", plan.HorizontalShift)
	}
	return head + tail, true
}

// FitDocument fits every tabular in doc to b and rewrites its column specification.
// It returns the new document and the plan for each table in document order.
func FitDocument(doc string, b Budget) (string, []ColumnWidthPlan) {
	var (
		patches []latex.Patch
		plans   []ColumnWidthPlan
	)
	for _, span := range tabulars(doc) {
		block := span.Text(doc)
		plan := Fit(block, b)
		// include the line before the tabular so a previous shift can be replaced
		start := lineBefore(doc, span.Start)
		rewritten, ok := RewriteColumnSpec(doc[start:span.End], plan)
		if !ok {
			continue
		}
		plans = append(plans, plan)
		patches = append(patches, latex.Patch{Span: latex.Span{Start: start, End: span.End}, Text: rewritten})
	}
	out, err := latex.ApplyPatches(doc, patches)
	if err != nil {
		return doc, nil
	}
	return out, plans
}

func tabulars(doc string) []latex.Span {
	var spans []latex.Span
	for _, env := range []string{"tabular", "tabularx", "tabulary", "longtable"} {
		spans = append(spans, latex.Environments(doc, env)...)
	}
	// nested tabulars are fitted with their parent
	var out []latex.Span
	for _, s := range spans {
		nested := false
		for _, o := range spans {
			if o != s && o.Contains(s) {
				nested = true
				break
			}
		}
		if !nested {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// lineBefore returns the start of the line preceding pos's line, when that line is
// a shift left by a previous fit; otherwise pos.
func lineBefore(doc string, pos int) int {
	lineStart := strings.LastIndexByte(doc[:pos], '\n') + 1
	if strings.TrimSpace(doc[lineStart:pos]) != "" || lineStart == 0 {
		return pos
	}
	prev := strings.LastIndexByte(doc[:lineStart-1], '\n') + 1
	if shiftRe.MatchString(doc[prev:lineStart]) {
		return prev
	}
	return pos
}
