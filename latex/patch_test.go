package latex

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyPatches_LastToFirst(t *testing.T) {
	doc := "one two three"
	out, err := ApplyPatches(doc, []Patch{
		{Span: Span{Start: 0, End: 3}, Text: "ONE"},
		{Span: Span{Start: 8, End: 13}, Text: "3"},
		{Span: Span{Start: 4, End: 7}, Text: "2"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ONE 2 3", out)
}

func TestApplyPatches_RejectsOverlap(t *testing.T) {
	_, err := ApplyPatches("abcdef", []Patch{
		{Span: Span{Start: 0, End: 3}},
		{Span: Span{Start: 2, End: 4}},
	})
	assert.True(t, errors.Is(err, ErrBadPatch))
}

func TestApplyPatches_RejectsOutOfRange(t *testing.T) {
	_, err := ApplyPatches("abc", []Patch{{Span: Span{Start: 1, End: 9}}})
	assert.ErrorIs(t, err, ErrBadPatch)
}

func TestRemoval_SwallowsDoubleSpace(t *testing.T) {
	doc := "a very big cat"
	p := Removal(doc, Span{Start: 2, End: 6})
	out, err := ApplyPatches(doc, []Patch{p})
	require.NoError(t, err)
	assert.Equal(t, "a big cat", out)
}

func TestRemoval_LineEdges(t *testing.T) {
	cases := []struct {
		doc  string
		span Span
		want string
	}{
		{"Drop me. Keep this.", Span{Start: 0, End: 8}, "Keep this."},
		{"Intro.\nDrop me. Keep this.", Span{Start: 7, End: 15}, "Intro.\nKeep this."},
		{"Keep this. Drop me.", Span{Start: 11, End: 19}, "Keep this."},
		{"Keep this. Drop me.\nNext.", Span{Start: 11, End: 19}, "Keep this.\nNext."},
		{"Drop me.", Span{Start: 0, End: 8}, ""},
	}
	for _, tc := range cases {
		out, err := ApplyPatches(tc.doc, []Patch{Removal(tc.doc, tc.span)})
		require.NoError(t, err)
		assert.Equal(t, tc.want, out, tc.doc)
	}
}

func TestBlockRemoval_KeepsOneBlankLine(t *testing.T) {
	doc := "para one\n\n\\begin{table}\nx\n\\end{table}\n\npara two"
	spans := TableBlocks(doc)
	require.Len(t, spans, 1)
	out, err := ApplyPatches(doc, []Patch{BlockRemoval(doc, spans[0])})
	require.NoError(t, err)
	assert.Equal(t, "para one\n\npara two", out)
}
