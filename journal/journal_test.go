package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "nested", "edits.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestRecordAndList(t *testing.T) {
	j := setupTestJournal(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first, err := j.Record(ctx, Entry{
		SessionID:   "s1",
		Instruction: "replace 'accuracy' with 'precision'",
		Action:      "replace_word",
		Method:      "fallback",
		Success:     true,
		Changes:     1,
		Duration:    1500 * time.Millisecond,
		CreatedAt:   base,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, "{}", first.IntentJSON)

	_, err = j.Record(ctx, Entry{SessionID: "s1", Instruction: "remove all tables", Action: "remove_table", Method: "ai", Success: true, Changes: 3, CreatedAt: base.Add(time.Second)})
	require.NoError(t, err)
	_, err = j.Record(ctx, Entry{SessionID: "s2", Instruction: "x", Action: "replace_word", Method: "ai", Error: "boom", CreatedAt: base.Add(2 * time.Second)})
	require.NoError(t, err)

	s1, err := j.List(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, s1, 2)
	assert.Equal(t, first, s1[0])
	assert.Equal(t, "remove_table", s1[1].Action)

	all, err := j.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	limited, err := j.List(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, first.ID, limited[0].ID)
}

func TestStats(t *testing.T) {
	j := setupTestJournal(t)
	ctx := context.Background()
	for _, e := range []Entry{
		{Action: "replace_word", Method: "fallback", Success: true, Changes: 2},
		{Action: "replace_word", Method: "ai", Success: false, Error: "bad patch"},
		{Action: "add_section", Method: "ai", Success: true, Changes: 1},
	} {
		_, err := j.Record(ctx, e)
		require.NoError(t, err)
	}

	stats, err := j.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, []ActionStat{
		{Action: "add_section", Total: 1, Succeeded: 1, Changes: 1, Fallback: 0},
		{Action: "replace_word", Total: 2, Succeeded: 1, Changes: 2, Fallback: 1},
	}, stats)
}

func TestOpen_MemoryAndReopen(t *testing.T) {
	mem, err := Open(MemoryPath)
	require.NoError(t, err)
	_, err = mem.Record(context.Background(), Entry{Action: "remove_word", Method: "fallback", Success: true})
	require.NoError(t, err)
	require.NoError(t, mem.Close())

	path := filepath.Join(t.TempDir(), "edits.db")
	j, err := Open(path)
	require.NoError(t, err)
	_, err = j.Record(context.Background(), Entry{Action: "remove_word", Method: "ai", Success: true})
	require.NoError(t, err)
	require.NoError(t, j.Close())

	j, err = Open(path)
	require.NoError(t, err)
	defer j.Close()
	all, err := j.List(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Equal(t, path, j.Path())
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}
