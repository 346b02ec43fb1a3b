package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const groupedTable = `\begin{tabular}{lcc}
\toprule
Model & \multicolumn{2}{c}{Accuracy on held-out data} \\
\cmidrule{2-3}
 & Train & Test \\
\midrule
Baseline & 81.2 & 79.0 \\
Ours & 90.1 & 88.4 \\
\bottomrule
\end{tabular}`

func TestColumnCount(t *testing.T) {
	cases := map[string]int{
		"|c|c|":                                2,
		"lll":                                  3,
		"*{3}{c}l":                             4,
		"|p{2cm}|p{3cm}|":                      2,
		"@{}lcr@{}":                            3,
		`>{\centering\arraybackslash}p{2cm}c`: 2,
		"S[table-format=2.1]c":                 2,
		"|*{2}{p{1.5cm}|}":                     2,
		"":                                     0,
	}
	for spec, want := range cases {
		assert.Equal(t, want, ColumnCount(spec), spec)
	}
}

func TestParse_HeadersAndSpanning(t *testing.T) {
	tbl := Parse(groupedTable)
	require.True(t, tbl.HasSpec)
	assert.Equal(t, "lcc", groupedTable[tbl.SpecSpan.Start:tbl.SpecSpan.End])
	assert.Equal(t, 0, tbl.TabularStart)
	assert.Equal(t, 3, tbl.Columns)
	require.Len(t, tbl.Rows, 4)

	assert.True(t, tbl.Rows[0].Spanning)
	assert.True(t, tbl.Rows[0].Header)
	assert.True(t, tbl.Rows[1].Header)
	assert.False(t, tbl.Rows[2].Header)
	assert.True(t, tbl.Rows[2].Ruled)
	assert.Equal(t, Cell{Text: "Accuracy on held-out data", Column: 1, Span: 2}, tbl.Rows[0].Cells[1])
	assert.True(t, tbl.Spanning())
}

func TestParse_BodyWithoutTabular(t *testing.T) {
	tbl := Parse("a & b & c \\\\\n1 & 2 & 3 \\\\")
	assert.False(t, tbl.HasSpec)
	assert.Equal(t, -1, tbl.TabularStart)
	assert.Equal(t, 3, tbl.Columns)
	require.Len(t, tbl.Rows, 2)
	assert.True(t, tbl.Rows[0].Header)
	assert.False(t, tbl.Rows[1].Header)
}

func TestParse_NumericFirstRowIsNotHeader(t *testing.T) {
	tbl := Parse("1 & 2 \\\\\nx & y \\\\")
	require.Len(t, tbl.Rows, 2)
	assert.False(t, tbl.Rows[0].Header)
}

func TestCleanCell(t *testing.T) {
	cases := map[string]string{
		`\textbf{Mean} $\pm$ SD`:          "Mean SD",
		`\multirow{2}{*}{\emph{Model}}`:   "Model",
		`\cellcolor{gray!20} 42.0`:        "42.0",
		`R\&D~costs`:                      "R&D costs",
		`  \textit{\textbf{nested}} text`: "nested text",
	}
	for in, want := range cases {
		assert.Equal(t, want, CleanCell(in), in)
	}
}

func TestSplitCells_IgnoresEscapedAndBraced(t *testing.T) {
	cells := splitCells(`a \& b & {x & y} & c`)
	assert.Equal(t, []string{`a \& b `, ` {x & y} `, ` c`}, cells)
}

func TestWeights_SpanningHeaderWidensSubColumns(t *testing.T) {
	w := Parse(groupedTable).Weights()
	require.Len(t, w, 3)
	// Train and Test share the padded width of the spanning header.
	assert.InDelta(t, 35.0, w[1]+w[2], 1e-9)
	assert.Greater(t, w[1], w[2])
	assert.InDelta(t, 8.0, w[0], 1e-9)
}

func TestWidenGroup_BalancesSiblings(t *testing.T) {
	g := []float64{10, 2}
	widenGroup(g, 5)
	assert.Equal(t, []float64{10, 7}, g)

	g = []float64{0, 0}
	widenGroup(g, 14)
	assert.Equal(t, []float64{7, 7}, g)
}
