package latex

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrBadPatch is returned when a patch set cannot be applied to a document.
var ErrBadPatch = errors.New("latex: invalid patch")

// Span is a half-open byte range [Start, End) in a document.
type Span struct {
	Start int
	End   int
}

func (s Span) Len() int { return s.End - s.Start }

// Text returns the spanned slice of doc.
func (s Span) Text(doc string) string { return doc[s.Start:s.End] }

// Contains reports whether o lies inside s.
func (s Span) Contains(o Span) bool { return o.Start >= s.Start && o.End <= s.End }

// Patch replaces Span with Text.
type Patch struct {
	Span
	Text string
}

// ApplyPatches splices every patch into doc. Patches are computed against the same
// snapshot and applied from the last offset to the first, so earlier offsets stay
// valid. Overlapping or out-of-range patches are rejected.
func ApplyPatches(doc string, patches []Patch) (string, error) {
	if len(patches) == 0 {
		return doc, nil
	}
	sorted := make([]Patch, len(patches))
	copy(sorted, patches)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	prevEnd := -1
	for _, p := range sorted {
		if p.Start < 0 || p.End > len(doc) || p.Start > p.End {
			return "", fmt.Errorf("%w: span [%d,%d) outside document of %d bytes", ErrBadPatch, p.Start, p.End, len(doc))
		}
		if p.Start < prevEnd {
			return "", fmt.Errorf("%w: span [%d,%d) overlaps previous patch ending at %d", ErrBadPatch, p.Start, p.End, prevEnd)
		}
		prevEnd = p.End
	}

	out := doc
	for i := len(sorted) - 1; i >= 0; i-- {
		p := sorted[i]
		out = out[:p.Start] + p.Text + out[p.End:]
	}
	return out, nil
}

// Removal builds a patch that deletes s from doc and swallows one of two spaces that
// would otherwise meet at the seam. At the start of a line the following space goes
// with it, at the end of a line the preceding one.
func Removal(doc string, s Span) Patch {
	lineBegin := s.Start == 0 || doc[s.Start-1] == '\n'
	lineEnd := s.End == len(doc) || doc[s.End] == '\n'
	switch {
	case lineBegin && !lineEnd && doc[s.End] == ' ':
		s.End++
	case lineEnd && !lineBegin && doc[s.Start-1] == ' ':
		s.Start--
	case !lineBegin && !lineEnd && doc[s.Start-1] == ' ' && doc[s.End] == ' ':
		s.End++
	}
	return Patch{Span: s}
}

// BlockRemoval builds a patch that deletes a block-level span (section, table,
// environment). Indentation on the block's own lines goes with it, and the seam keeps
// at most one blank line.
func BlockRemoval(doc string, s Span) Patch {
	j := s.Start
	for j > 0 && (doc[j-1] == ' ' || doc[j-1] == '\t') {
		j--
	}
	if j == 0 || doc[j-1] == '\n' {
		s.Start = j
	}
	k := s.End
	for k < len(doc) && (doc[k] == ' ' || doc[k] == '\t') {
		k++
	}
	if k == len(doc) || doc[k] == '\n' {
		s.End = k
	}

	before := 0
	for i := s.Start - 1; i >= 0 && doc[i] == '\n'; i-- {
		before++
	}
	after := 0
	for i := s.End; i < len(doc) && doc[i] == '\n'; i++ {
		after++
	}
	if extra := before + after - 2; extra > 0 {
		s.End += min(extra, after)
	}
	return Patch{Span: s}
}

func lineStart(doc string, pos int) int {
	return strings.LastIndexByte(doc[:pos], '\n') + 1
}
