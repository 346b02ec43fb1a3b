package latex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const paper = `\documentclass{article}
\begin{document}
\section{Introduction}
Intro text.
\section{Results \& Discussion}
Results text.
\subsection{Ablation}
Ablation text.
\section*{Future Work}
Future text.
% \section{Commented}
\section{Conclusion}
Final words.
\bibliography{refs}
\end{document}
`

func titles(secs []Section) []string {
	var out []string
	for _, s := range secs {
		out = append(out, s.Title)
	}
	return out
}

func TestSections_ListsHeadingsInOrder(t *testing.T) {
	secs := Sections(paper)
	assert.Equal(t, []string{"Introduction", `Results \& Discussion`, "Ablation", "Future Work", "Conclusion"}, titles(secs))
	assert.Equal(t, 1, secs[0].Level)
	assert.Equal(t, 2, secs[2].Level)
	assert.True(t, secs[3].Starred)
}

func TestFindSection_SpanIncludesSubsections(t *testing.T) {
	s, ok := FindSection(paper, "Results & Discussion")
	require.True(t, ok)
	text := s.Span().Text(paper)
	assert.Contains(t, text, "Ablation text.")
	assert.NotContains(t, text, "Future")
	assert.Equal(t, `\section{Results \& Discussion}`, s.Heading(paper))
}

func TestFindSection_SeparatorTolerance(t *testing.T) {
	for _, name := range []string{"results and discussion", "Results Discussion", `Results \& Discussion`, "RESULTS & DISCUSSION"} {
		_, ok := FindSection(paper, name)
		assert.True(t, ok, name)
	}
}

func TestFindSection_StopsAtBibliography(t *testing.T) {
	s, ok := FindSection(paper, "conclusion")
	require.True(t, ok)
	assert.Equal(t, "\\section{Conclusion}\nFinal words.\n", s.Span().Text(paper))
}

func TestFindSection_IgnoresComments(t *testing.T) {
	_, ok := FindSection(paper, "Commented")
	assert.False(t, ok)
}

func TestFindSection_ExactTitleBeatsEarlierPartial(t *testing.T) {
	doc := "\\section{Related Work and Background}\na\n\\section{Background}\nb\n"
	s, ok := FindSection(doc, "Background")
	require.True(t, ok)
	assert.Equal(t, "Background", s.Title)
}

func TestFindSection_DuplicateHeadingsUseFirst(t *testing.T) {
	doc := "\\section{Notes}\nfirst\n\\section{Notes}\nsecond\n"
	s, ok := FindSection(doc, "notes")
	require.True(t, ok)
	assert.Contains(t, s.Body().Text(doc), "first")
}

func TestFindSection_NumberedTitle(t *testing.T) {
	doc := "\\section{3. Methods}\nm\n"
	_, ok := FindSection(doc, "Methods")
	assert.True(t, ok)
}

func TestFindSection_EmptyName(t *testing.T) {
	_, ok := FindSection(paper, "   ")
	assert.False(t, ok)
}

func TestInsertAnchor(t *testing.T) {
	want, _ := FindSection(paper, "Future Work")

	off, s, found := InsertAnchor(paper, "Future Work", "before")
	assert.True(t, found)
	assert.Equal(t, want.Start, off)
	assert.Equal(t, want.Command, s.Command)

	off, _, found = InsertAnchor(paper, "Future Work", "after")
	assert.True(t, found)
	assert.Equal(t, want.End, off)

	off, _, found = InsertAnchor(paper, "Nope", "before")
	assert.False(t, found)
	assert.Equal(t, DocumentEnd(paper), off)

	off, _, _ = InsertAnchor(paper, "Future Work", "end")
	assert.Equal(t, DocumentEnd(paper), off)
}

func TestDocumentEnd(t *testing.T) {
	assert.Equal(t, len("abc"), DocumentEnd("abc"))
	doc := "x\n\\end{document}\n"
	assert.Equal(t, 2, DocumentEnd(doc))
}

func TestCleanTitle(t *testing.T) {
	assert.Equal(t, "Results & Discussion", CleanTitle(`Results \& Discussion\label{sec:rd}`))
	assert.Equal(t, "Methods", CleanTitle("2.1 Methods"))
	assert.Equal(t, "Deep Learning", CleanTitle(`\textbf{Deep} Learning`))
}
