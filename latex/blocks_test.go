package latex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tablesDoc = `Intro.
\begin{table}[h]
\caption{Accuracy by model}
\label{tab:acc}
\begin{tabular}{|c|c|}
a & b \\
\end{tabular}
\end{table}
Middle.
\begin{tabular}{ll}
x & y \\
\end{tabular}
\begin{longtable}{cc}
p & q \\
\end{longtable}
End.`

func TestTableBlocks_OutermostOnly(t *testing.T) {
	blocks := TableBlocks(tablesDoc)
	require.Len(t, blocks, 3)
	assert.Contains(t, blocks[0].Text(tablesDoc), `\caption{Accuracy by model}`)
	assert.Contains(t, blocks[1].Text(tablesDoc), "x & y")
	assert.Contains(t, blocks[2].Text(tablesDoc), "p & q")
}

func TestFindTable_ByIdentifier(t *testing.T) {
	s, ok := FindTable(tablesDoc, "tab:acc")
	require.True(t, ok)
	assert.Contains(t, s.Text(tablesDoc), "Accuracy")

	s, ok = FindTable(tablesDoc, "P & Q")
	require.True(t, ok)
	assert.Contains(t, s.Text(tablesDoc), "longtable")

	_, ok = FindTable(tablesDoc, "missing")
	assert.False(t, ok)

	s, ok = FindTable(tablesDoc, "")
	require.True(t, ok)
	assert.Contains(t, s.Text(tablesDoc), "caption")
}

func TestEnvironments_Nested(t *testing.T) {
	doc := `\begin{itemize}\item a \begin{itemize}\item b\end{itemize}\end{itemize} tail`
	spans := Environments(doc, "itemize")
	require.Len(t, spans, 1)
	assert.Equal(t, len(doc)-len(" tail"), spans[0].End)
}

func TestFindEnvironment_Starred(t *testing.T) {
	doc := "a\n\\begin{abstract*}\nabs\n\\end{abstract*}\nb"
	s, ok := FindEnvironment(doc, "Abstract")
	require.True(t, ok)
	assert.Equal(t, "\\begin{abstract*}\nabs\n\\end{abstract*}", s.Text(doc))
}

const mathDoc = `We have $x = y + z$ and prices of $5 and $10 here.
Display:
$$E = mc^2$$
\[ a^2 + b^2 = c^2 \]
\begin{equation}
f(x) = x^2
\end{equation}
Escaped \$ sign and $\alpha$.
% $ignored = 1$
`

func TestInlineEquations_Heuristic(t *testing.T) {
	spans := InlineEquations(mathDoc)
	var got []string
	for _, s := range spans {
		got = append(got, s.Text(mathDoc))
	}
	assert.Equal(t, []string{"$x = y + z$", `$\alpha$`}, got)
}

func TestDisplayEquations(t *testing.T) {
	spans := DisplayEquations(mathDoc)
	require.Len(t, spans, 3)
	assert.Equal(t, "$$E = mc^2$$", spans[0].Text(mathDoc))
	assert.Contains(t, spans[2].Text(mathDoc), `\begin{equation}`)
}

func TestEquations_DocumentOrder(t *testing.T) {
	spans := Equations(mathDoc)
	require.Len(t, spans, 5)
	for i := 1; i < len(spans); i++ {
		assert.Less(t, spans[i-1].Start, spans[i].Start)
	}
}

func TestLooksLikeMath(t *testing.T) {
	assert.True(t, LooksLikeMath("x"))
	assert.True(t, LooksLikeMath(`\frac{1}{2}`))
	assert.True(t, LooksLikeMath("2x"))
	assert.False(t, LooksLikeMath("5 and "))
	assert.False(t, LooksLikeMath("  "))
}
