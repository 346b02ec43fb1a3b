package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"latex_doc_editor/editor"
	"latex_doc_editor/generator"
	"latex_doc_editor/intent"
	"latex_doc_editor/journal"
	"latex_doc_editor/keypool"
	"latex_doc_editor/latex"
)

const paper = `\documentclass{article}
\begin{document}
\section{Introduction}
Accuracy was high.
\section{Methods}
\begin{tabular}{cc}
a & b \\
\end{tabular}
\section{Results}
\begin{table}
\begin{tabular}{l}
c \\
\end{tabular}
\end{table}
\begin{longtable}{l}
d \\
\end{longtable}
\section{Limitations}
Small sample.
\section{Conclusion}
The end.
\end{document}
`

func titles(doc string) []string {
	var out []string
	for _, s := range latex.Sections(doc) {
		out = append(out, s.Title)
	}
	return out
}

func TestEdit_Fallback(t *testing.T) {
	ed := New(nil, nil, WithLogger(zaptest.NewLogger(t)))
	out, res := ed.Edit(context.Background(), "Accuracy was high.", `replace 'accuracy' with 'precision'`)

	assert.Equal(t, "Precision was high.", out)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.Changes)
	assert.Equal(t, intent.OpReplace, res.Operation)
	assert.Equal(t, "replace_word", res.Action)
	assert.Equal(t, intent.SourceFallback, res.Method)
	assert.GreaterOrEqual(t, res.Duration.Nanoseconds(), int64(0))
}

func TestEdit_AIPath(t *testing.T) {
	mock := &generator.MockLLM{Replies: []generator.Reply{{Text: `{"operation":"remove","action":"remove_table","target":"all","targetType":"table","convertToPlainMarkup":false,"confidence":0.9}`}}}
	pool := keypool.New([]keypool.Credential{{Name: "primary", Key: "k"}})
	a, err := generator.NewAssistant(pool, generator.MockFactory(mock))
	require.NoError(t, err)

	ed := New(intent.NewResolver(a, nil), editor.New(editor.WithAssistant(a)))
	out, res := ed.Edit(context.Background(), paper, "get rid of every table")
	assert.Equal(t, intent.SourceAI, res.Method)
	assert.Equal(t, 3, res.Changes)
	assert.NotContains(t, out, "tabular")
	assert.Equal(t, 1, mock.Calls())
}

func TestBatch_AppliesInOrder(t *testing.T) {
	ed := New(nil, nil)
	out, results := ed.Batch(context.Background(), paper, []string{
		"remove all tables",
		`add section "Discussion" before Limitations`,
		"   ",
		`replace 'Small' with 'Tiny'`,
	})
	require.Len(t, results, 4)
	assert.Equal(t, 3, results[0].Changes)
	assert.Equal(t, 1, results[1].Changes)

	assert.False(t, results[2].Success)
	assert.Contains(t, results[2].Error, "invalid edit intent")

	assert.True(t, results[3].Success)
	assert.Equal(t, []string{"Introduction", "Methods", "Results", "Discussion", "Limitations", "Conclusion"}, titles(out))
	assert.Contains(t, out, "Tiny sample.")
}

func TestBatch_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, results := New(nil, nil).Batch(ctx, paper, []string{"remove all tables"})
	assert.Empty(t, results)
	assert.Equal(t, paper, out)
}

func TestApply_InvalidIntentIsFault(t *testing.T) {
	out, res := New(nil, nil).Apply(context.Background(), paper, intent.EditIntent{Operation: "explode", TargetType: intent.Word, Target: "x"})
	assert.Equal(t, paper, out)
	assert.False(t, res.Success)
	assert.Zero(t, res.Changes)
	assert.NotEmpty(t, res.Error)
}

func TestEdit_Journaled(t *testing.T) {
	j, err := journal.Open(journal.MemoryPath)
	require.NoError(t, err)
	defer j.Close()

	ed := New(nil, nil, WithRecorder(j))
	sess := NewSession("doc-1", paper, ed)
	sess.Edit(context.Background(), "remove all tables")
	sess.Edit(context.Background(), `replace 'Accuracy' with 'Precision'`)

	entries, err := j.List(context.Background(), "doc-1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "remove_table", entries[0].Action)
	assert.Equal(t, "fallback", entries[0].Method)
	assert.Equal(t, 3, entries[0].Changes)
	assert.Contains(t, entries[1].IntentJSON, `"newText":"Precision"`)
}

type failingRecorder struct{}

func (failingRecorder) Record(context.Context, journal.Entry) (journal.Entry, error) {
	return journal.Entry{}, errors.New("disk full")
}

func TestEdit_JournalFailureDoesNotFailEdit(t *testing.T) {
	ed := New(nil, nil, WithRecorder(failingRecorder{}))
	out, res := ed.Edit(context.Background(), "Accuracy was high.", `replace 'accuracy' with 'precision'`)
	assert.True(t, res.Success)
	assert.Equal(t, "Precision was high.", out)
}

func TestSession_HistoryAndSnapshot(t *testing.T) {
	sess := NewSession("s", paper, New(nil, nil))
	res := sess.Edit(context.Background(), "remove all tables")
	assert.Equal(t, 3, res.Changes)

	snap := sess.Snapshot()
	assert.Equal(t, "s", snap.ID)
	assert.Equal(t, sess.Document(), snap.Document)
	require.Len(t, snap.History, 1)
	assert.Equal(t, "remove all tables", snap.History[0].Instruction)

	// the snapshot is a copy
	snap.History[0].Instruction = "changed"
	assert.Equal(t, "remove all tables", sess.Snapshot().History[0].Instruction)
}

func TestSession_SerializesConcurrentEdits(t *testing.T) {
	words := []string{"alpha", "beta", "gamma", "delta", "epsilon", "zeta"}
	sess := NewSession("c", strings.Join(words, " ")+".", New(nil, nil))

	var wg sync.WaitGroup
	for i, w := range words {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess.Edit(context.Background(), fmt.Sprintf("replace '%s' with 'w%d'", w, i))
		}()
	}
	wg.Wait()

	assert.Equal(t, "w0 w1 w2 w3 w4 w5.", sess.Document())
	assert.Len(t, sess.Snapshot().History, len(words))
	for _, turn := range sess.Snapshot().History {
		assert.Equal(t, 1, turn.Result.Changes, turn.Instruction)
	}

	results := sess.Batch(context.Background(), []string{"replace 'w0' with 'first'", "replace 'w5' with 'last'"})
	require.Len(t, results, 2)
	assert.Equal(t, "first w1 w2 w3 w4 last.", sess.Document())
}
