package layout

import (
	"fmt"
	"strings"
)

// Budget is the horizontal space a table may use, in centimetres.
type Budget struct {
	Name      string  `json:"name" yaml:"name"`
	Available float64 `json:"available" yaml:"available"`
	MinWidth  float64 `json:"minWidth" yaml:"min_width"`
	MaxWidth  float64 `json:"maxWidth" yaml:"max_width"`
	// Positioning lets an oversized table shift left into the margin instead of
	// compressing its columns.
	Positioning bool `json:"positioning" yaml:"positioning"`
}

var (
	// TwoColumn is a page-wide float (table*) in a two-column conference layout.
	TwoColumn = Budget{Name: "two-column", Available: 14.0, MinWidth: 0.8, MaxWidth: 6.0}
	// SingleColumn is a single-column layout.
	SingleColumn = Budget{Name: "single-column", Available: 10.8, MinWidth: 0.6, MaxWidth: 4.0}
)

// borderPerRule is the width taken by each vertical rule, including its padding.
const borderPerRule = 0.2

// Border is the overhead of the columns+1 vertical rules.
func (b Budget) Border(columns int) float64 {
	return borderPerRule * float64(columns+1)
}

// Usable is the width left for cell content.
func (b Budget) Usable(columns int) float64 {
	return b.Available - b.Border(columns)
}

// WithPositioning returns a copy of b with the positioning toggle set.
func (b Budget) WithPositioning(on bool) Budget {
	b.Positioning = on
	return b
}

// ParseProfile maps a profile name to its budget. ACM and IEEE papers are two-column.
func ParseProfile(name string) (Budget, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "two-column", "2-column", "twocolumn", "acm", "ieee":
		return TwoColumn, nil
	case "single-column", "1-column", "one-column", "onecolumn", "single":
		return SingleColumn, nil
	default:
		return Budget{}, fmt.Errorf("unknown layout profile %q", name)
	}
}
