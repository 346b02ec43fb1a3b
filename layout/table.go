package layout

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"latex_doc_editor/latex"
)

// Cell is one measured cell of a row.
type Cell struct {
	Text   string // markup stripped
	Column int
	Span   int
}

// Row is one row of a tabular body.
type Row struct {
	Cells    []Cell
	Spanning bool // has a \multicolumn cell
	Ruled    bool // a rule precedes the row
	Header   bool
}

// Table is a parsed tabular.
type Table struct {
	Columns int
	Rows    []Row
	// SpecSpan locates the column specification (without braces) inside the source;
	// it is empty when the source has no \begin{tabular}.
	SpecSpan latex.Span
	HasSpec  bool
	// TabularStart is the offset of \begin{...}, or -1.
	TabularStart int
}

// Spanning reports whether any row has a column-spanning cell.
func (t Table) Spanning() bool {
	for _, r := range t.Rows {
		if r.Spanning {
			return true
		}
	}
	return false
}

var (
	tabularBeginRe = regexp.MustCompile(`\\begin\{(tabular\*?|tabularx|tabulary|longtable)\}`)
	rowBreakRe     = regexp.MustCompile(`\\\\(?:\*)?(?:\s*\[[^\]]*\])?`)
	ruleRe         = regexp.MustCompile(`\\(?:hline|toprule|midrule|bottomrule)\b`)
	partialRuleRe  = regexp.MustCompile(`\\(?:cline|cmidrule(?:\([^)]*\))?)\{[^}]*\}`)
	multirowRe     = regexp.MustCompile(`\\multirow\{[^}]*\}(?:\[[^\]]*\])?\{[^}]*\}(?:\[[^\]]*\])?`)
	nonTextCmdRe   = regexp.MustCompile(`\\(?:cellcolor|rowcolor|color|label|vspace|hspace|rule)\*?(?:\[[^\]]*\])?(?:\{[^{}]*\})+`)
	argCmdRe       = regexp.MustCompile(`\\[a-zA-Z]+\*?(?:\[[^\]]*\])?\{([^{}]*)\}`)
	bareCmdRe      = regexp.MustCompile(`\\[a-zA-Z]+\*?`)
	specialsRe     = regexp.MustCompile(`[{}$|#\\]`)
	spacesRe       = regexp.MustCompile(`\s+`)
)

// Parse reads the first tabular in src. Without a \begin{tabular}, src is taken as a
// tabular body and the column count comes from the widest row.
func Parse(src string) Table {
	t := Table{TabularStart: -1}
	body := src
	if m := tabularBeginRe.FindStringSubmatchIndex(src); m != nil {
		env := src[m[2]:m[3]]
		t.TabularStart = m[0]
		pos := m[1]
		if env != "tabular" && env != "longtable" {
			// width argument
			if open := nextBrace(src, pos); open >= 0 {
				if closing := latex.MatchBrace(src, open); closing > 0 {
					pos = closing + 1
				}
			}
		}
		if open := nextBrace(src, pos); open >= 0 {
			if closing := latex.MatchBrace(src, open); closing > 0 {
				t.SpecSpan = latex.Span{Start: open + 1, End: closing}
				t.HasSpec = true
				t.Columns = ColumnCount(src[open+1 : closing])
				pos = closing + 1
			}
		}
		end := strings.Index(src[pos:], `\end{`+env+`}`)
		if end < 0 {
			body = src[pos:]
		} else {
			body = src[pos : pos+end]
		}
	}

	t.Rows = parseRows(body)
	widest := 0
	for _, r := range t.Rows {
		if n := rowWidth(r); n > widest {
			widest = n
		}
	}
	if t.Columns == 0 {
		t.Columns = widest
	}
	markHeaders(t.Rows)
	return t
}

// nextBrace returns the offset of the { that starts at pos after optional spaces and
// an optional [..] argument, or -1.
func nextBrace(s string, pos int) int {
	for pos < len(s) && (s[pos] == ' ' || s[pos] == '\n' || s[pos] == '\t') {
		pos++
	}
	if pos < len(s) && s[pos] == '[' {
		if end := strings.IndexByte(s[pos:], ']'); end >= 0 {
			pos += end + 1
		}
		for pos < len(s) && (s[pos] == ' ' || s[pos] == '\n') {
			pos++
		}
	}
	if pos < len(s) && s[pos] == '{' {
		return pos
	}
	return -1
}

func parseRows(body string) []Row {
	var rows []Row
	ruled := false
	for _, raw := range rowBreakRe.Split(body, -1) {
		raw = partialRuleRe.ReplaceAllString(stripComments(raw), " ")
		if ruleRe.MatchString(raw) {
			ruled = true
			raw = ruleRe.ReplaceAllString(raw, " ")
		}
		if strings.TrimSpace(raw) == "" {
			continue
		}
		row := parseRow(raw)
		row.Ruled = ruled
		ruled = false
		rows = append(rows, row)
	}
	return rows
}

func stripComments(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		for j := 0; j < len(line); j++ {
			if line[j] == '\\' {
				j++
				continue
			}
			if line[j] == '%' {
				lines[i] = line[:j]
				break
			}
		}
	}
	return strings.Join(lines, "\n")
}

func parseRow(raw string) Row {
	var row Row
	col := 0
	for _, cell := range splitCells(raw) {
		span, text := 1, cell
		if n, inner, ok := multicolumn(cell); ok {
			span, text = n, inner
			row.Spanning = true
		}
		row.Cells = append(row.Cells, Cell{Text: CleanCell(text), Column: col, Span: span})
		col += span
	}
	return row
}

// splitCells splits on & outside braces, ignoring \&.
func splitCells(raw string) []string {
	var cells []string
	depth, start := 0, 0
	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case '\\':
			i++
		case '{':
			depth++
		case '}':
			depth--
		case '&':
			if depth == 0 {
				cells = append(cells, raw[start:i])
				start = i + 1
			}
		}
	}
	return append(cells, raw[start:])
}

// multicolumn unpacks \multicolumn{n}{align}{text}.
func multicolumn(cell string) (int, string, bool) {
	i := strings.Index(cell, `\multicolumn`)
	if i < 0 {
		return 0, "", false
	}
	var args []string
	pos := i + len(`\multicolumn`)
	for len(args) < 3 {
		open := nextBrace(cell, pos)
		if open < 0 {
			return 0, "", false
		}
		closing := latex.MatchBrace(cell, open)
		if closing < 0 {
			return 0, "", false
		}
		args = append(args, cell[open+1:closing])
		pos = closing + 1
	}
	n, err := strconv.Atoi(strings.TrimSpace(args[0]))
	if err != nil || n < 1 {
		return 0, "", false
	}
	return n, args[2], true
}

// CleanCell strips markup from a cell and keeps its readable text.
func CleanCell(cell string) string {
	s := multirowRe.ReplaceAllString(cell, "")
	s = nonTextCmdRe.ReplaceAllString(s, "")
	for {
		next := argCmdRe.ReplaceAllString(s, "$1")
		if next == s {
			break
		}
		s = next
	}
	s = bareCmdRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "~", " ")
	s = specialsRe.ReplaceAllString(s, "")
	return strings.TrimSpace(spacesRe.ReplaceAllString(s, " "))
}

func rowWidth(r Row) int {
	n := 0
	for _, c := range r.Cells {
		n += c.Span
	}
	return n
}

// markHeaders flags the leading header rows: the rows before the first ruled row
// when that rule comes within three rows, else the first row. A numeric row ends the
// run and at most two plain rows are headers.
func markHeaders(rows []Row) {
	if len(rows) == 0 {
		return
	}
	limit := 1
	for i := 1; i < len(rows) && i <= 3; i++ {
		if rows[i].Ruled {
			limit = i
			break
		}
	}
	plain := 0
	for i := 0; i < limit && plain < 2; i++ {
		if numeric(rows[i]) {
			return
		}
		rows[i].Header = true
		if !rows[i].Spanning {
			plain++
		}
	}
}

func numeric(r Row) bool {
	nums, filled := 0, 0
	for _, c := range r.Cells {
		if c.Text == "" {
			continue
		}
		filled++
		if _, err := strconv.ParseFloat(strings.TrimSuffix(strings.ReplaceAll(c.Text, ",", ""), "%"), 64); err == nil {
			nums++
		}
	}
	return filled > 0 && nums*2 > filled
}

// ColumnCount counts the columns a tabular specification declares. Rules, @{} and
// !{} separators and >{}/<{} decorations take no column; *{n}{spec} repeats.
func ColumnCount(spec string) int {
	n := 0
	for i := 0; i < len(spec); i++ {
		switch c := spec[i]; c {
		case '*':
			open := nextBrace(spec, i+1)
			if open < 0 {
				continue
			}
			closing := latex.MatchBrace(spec, open)
			if closing < 0 {
				return n
			}
			times, err := strconv.Atoi(strings.TrimSpace(spec[open+1 : closing]))
			inner := nextBrace(spec, closing+1)
			if err != nil || inner < 0 {
				i = closing
				continue
			}
			innerEnd := latex.MatchBrace(spec, inner)
			if innerEnd < 0 {
				return n
			}
			n += times * ColumnCount(spec[inner+1:innerEnd])
			i = innerEnd
		case 'p', 'm', 'b', 'w', 'W':
			n++
			args := 1
			if c == 'w' || c == 'W' {
				args = 2
			}
			i = skipArgs(spec, i+1, args) - 1
		case '@', '!', '>', '<':
			i = skipArgs(spec, i+1, 1) - 1
		case '[':
			if end := strings.IndexByte(spec[i:], ']'); end >= 0 {
				i += end
			}
		case 'l', 'c', 'r', 'X', 'L', 'C', 'R', 'J', 'S', 'Y', 'Z':
			n++
		}
	}
	return n
}

// skipArgs returns the offset after count brace groups starting at pos.
func skipArgs(spec string, pos, count int) int {
	for ; count > 0; count-- {
		open := nextBrace(spec, pos)
		if open < 0 {
			return pos
		}
		closing := latex.MatchBrace(spec, open)
		if closing < 0 {
			return len(spec)
		}
		pos = closing + 1
	}
	return pos
}

func textLength(s string) float64 {
	return float64(utf8.RuneCountInString(s))
}
