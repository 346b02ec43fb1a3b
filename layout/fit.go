package layout

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Mode says how a plan was made to fit.
type Mode string

const (
	// Fits: the columns fit the usable width.
	Fits Mode = "fits"
	// Positioned: the table overflows and is shifted left into the margin.
	Positioned Mode = "positioned"
	// Scaled: the widest columns were compressed to the usable width.
	Scaled Mode = "scaled"
)

// ColumnWidthPlan is the width allocation for one table, in centimetres.
type ColumnWidthPlan struct {
	Widths []float64 `json:"widths"`
	// HorizontalShift moves the table sideways; negative shifts left.
	HorizontalShift float64 `json:"horizontalShift"`
	Mode            Mode    `json:"mode"`
}

// Total is the sum of the column widths.
func (p ColumnWidthPlan) Total() float64 {
	total := 0.0
	for _, w := range p.Widths {
		total += w
	}
	return total
}

// ColumnSpec renders the plan as a ruled paragraph-column specification, e.g.
// |p{1.80cm}|p{2.40cm}|.
func (p ColumnWidthPlan) ColumnSpec() string {
	var b strings.Builder
	b.WriteByte('|')
	for _, w := range p.Widths {
		fmt.Fprintf(&b, "p{%.2fcm}|", w)
	}
	return b.String()
}

const (
	headerWeight      = 2.5
	wordGap           = 0.5
	spanningPadding   = 1.4
	siblingBalance    = 0.7
	smallTableColumns = 6
	readableMinimum   = 1.2
	utilization       = 0.95

	maxShift          = 2.5
	shiftFactor       = 0.7
	severeOverflow    = 2.0
	donorThreshold    = 3.0
	donorFloor        = 2.0
	starvedThreshold  = 1.0
	starvedCeiling    = 1.5
	donationShare     = 0.6
	compressibleSlack = 0.2

	overflowGuard  = 1.3
	overflowTarget = 1.2
)

// Fit computes column widths for the first tabular in table so that it fits b.
func Fit(table string, b Budget) ColumnWidthPlan {
	return FitTable(Parse(table), b)
}

// FitTable computes the plan for an already parsed table.
func FitTable(t Table, b Budget) ColumnWidthPlan {
	n := t.Columns
	if n <= 0 {
		return ColumnWidthPlan{Mode: Fits}
	}
	usable := b.Usable(n)

	var widths []float64
	weights := t.Weights()
	if sum(weights) == 0 {
		widths = patternWidths(n, usable, b)
	} else {
		widths = proportional(weights, usable, b)
		if n <= smallTableColumns && !t.Spanning() && sum(widths) > usable {
			widths = evenSplit(n, usable, b)
		}
	}

	mode := Fits
	if total := sum(widths); total <= usable+1e-9 {
		widths = expand(widths, usable, b)
	} else if b.Positioning {
		mode = Positioned
		if total-usable > severeOverflow {
			redistribute(widths)
		}
	} else {
		mode = Scaled
		widths = compress(widths, usable, b)
	}

	for i, w := range widths {
		widths[i] = math.Max(w, b.MinWidth)
	}
	widths = guard(widths, usable, b)
	for i, w := range widths {
		widths[i] = math.Floor(w*100) / 100
	}

	plan := ColumnWidthPlan{Widths: widths, Mode: mode}
	if overflow := sum(widths) - usable; overflow > 1e-9 {
		if mode == Positioned {
			plan.HorizontalShift = -math.Round(math.Min(maxShift, overflow*shiftFactor)*100) / 100
		}
	} else if mode == Positioned {
		plan.Mode = Fits
	}
	return plan
}

// Weights measures every column: the longest cleaned cell, with word-gap padding
// for multi-word cells and a multiplier for header rows. Spanning headers then
// widen and balance the columns under them.
func (t Table) Weights() []float64 {
	weights := make([]float64, t.Columns)
	for _, r := range t.Rows {
		if r.Spanning {
			continue
		}
		for _, c := range r.Cells {
			if c.Column >= t.Columns || c.Text == "" {
				continue
			}
			w := cellWeight(c.Text)
			if r.Header {
				w *= headerWeight
			}
			weights[c.Column] = math.Max(weights[c.Column], w)
		}
	}

	for _, r := range t.Rows {
		if !r.Spanning {
			continue
		}
		for _, c := range r.Cells {
			if c.Span < 2 || c.Column >= t.Columns {
				continue
			}
			end := min(c.Column+c.Span, t.Columns)
			widenGroup(weights[c.Column:end], textLength(c.Text)*spanningPadding)
		}
	}
	return weights
}

func cellWeight(text string) float64 {
	w := textLength(text)
	if words := len(strings.Fields(text)); words > 1 {
		w += float64(words-1) * wordGap
	}
	return w
}

// widenGroup makes the sub-columns of a spanning header at least required wide in
// total, sharing the shortfall in proportion to their weights, then lifts every
// sibling to 70% of the widest.
func widenGroup(group []float64, required float64) {
	if len(group) == 0 {
		return
	}
	if total := sum(group); required > total {
		short := required - total
		for i := range group {
			share := 1.0 / float64(len(group))
			if total > 0 {
				share = group[i] / total
			}
			group[i] += short * share
		}
	}
	if len(group) < 2 {
		return
	}
	floor := maxOf(group) * siblingBalance
	for i := range group {
		group[i] = math.Max(group[i], floor)
	}
}

func proportional(weights []float64, usable float64, b Budget) []float64 {
	total := sum(weights)
	widths := make([]float64, len(weights))
	for i, w := range weights {
		widths[i] = clamp(usable*w/total, b)
	}
	return widths
}

func evenSplit(n int, usable float64, b Budget) []float64 {
	widths := make([]float64, n)
	for i := range widths {
		widths[i] = math.Max(b.MinWidth, usable/float64(n))
	}
	return scaleDown(widths, usable, b)
}

// patternWidths is used when no column has any text: narrow outer columns, wide
// middle ones.
func patternWidths(n int, usable float64, b Budget) []float64 {
	base := usable / float64(n)
	widths := make([]float64, n)
	switch {
	case n <= 2:
		for i := range widths {
			widths[i] = math.Min(base, b.MaxWidth)
		}
	case n == 3:
		widths[0] = math.Min(base*0.8, b.MaxWidth*0.6)
		widths[1] = math.Min(base*1.4, b.MaxWidth)
		widths[2] = math.Min(base*0.8, b.MaxWidth*0.8)
	case n == 4:
		widths[0] = math.Min(base*0.6, b.MaxWidth*0.4)
		widths[1] = math.Min(base*1.2, b.MaxWidth*0.7)
		widths[2] = math.Min(base*1.4, b.MaxWidth)
		widths[3] = math.Min(base*0.8, b.MaxWidth*0.6)
	default:
		for i := range widths {
			switch {
			case i == 0 || i == n-1:
				widths[i] = math.Min(base*0.7, b.MaxWidth*0.5)
			case i == 1 || i == n-2:
				widths[i] = math.Min(base*0.9, b.MaxWidth*0.7)
			default:
				widths[i] = math.Min(base*1.1, b.MaxWidth*0.8)
			}
		}
	}
	return widths
}

// expand raises narrow columns to the readability minimum and grows a table that
// fits towards 95% of the usable width.
func expand(widths []float64, usable float64, b Budget) []float64 {
	for i, w := range widths {
		widths[i] = math.Max(w, readableMinimum)
	}
	total := sum(widths)
	switch {
	case total > usable:
		return scaleDown(widths, usable, b)
	case total < usable*utilization:
		factor := usable * utilization / total
		for i, w := range widths {
			widths[i] = math.Min(w*factor, b.MaxWidth)
		}
	}
	return widths
}

// redistribute moves width from donor columns (over 3cm) to starved ones (under
// 1cm). Donors keep at least 2cm and starved columns grow to at most 1.5cm.
func redistribute(widths []float64) {
	var donorSpace, need float64
	for _, w := range widths {
		if w > donorThreshold {
			donorSpace += w - donorFloor
		}
		if w < starvedThreshold {
			need += starvedThreshold - w
		}
	}
	if donorSpace <= 0 || need <= 0 {
		return
	}
	amount := math.Min(donorSpace*donationShare, need)
	for i, w := range widths {
		switch {
		case w > donorThreshold:
			widths[i] = math.Max(donorFloor, w-amount*(w-donorFloor)/donorSpace)
		case w < starvedThreshold:
			widths[i] = math.Min(starvedCeiling, w+amount*(starvedThreshold-w)/need)
		}
	}
}

// compress shrinks only the columns with room to give; when none qualify, every
// column scales uniformly.
func compress(widths []float64, usable float64, b Budget) []float64 {
	var wide []int
	fixed := 0.0
	for i, w := range widths {
		if w > b.MinWidth+compressibleSlack {
			wide = append(wide, i)
		} else {
			fixed += w
		}
	}
	room := usable - fixed
	if len(wide) == 0 || room <= 0 {
		return scaleDown(widths, usable, b)
	}
	wideTotal := 0.0
	for _, i := range wide {
		wideTotal += widths[i]
	}
	if wideTotal > room {
		factor := room / wideTotal
		for _, i := range wide {
			widths[i] *= factor
		}
	}
	return widths
}

// guard keeps sum(widths)+border within 1.3x the usable width. The widest half
// gives up width first; a uniform scale covers what remains.
func guard(widths []float64, usable float64, b Budget) []float64 {
	border := b.Border(len(widths))
	limit := overflowGuard*usable - border
	if sum(widths) <= limit {
		return widths
	}
	excess := sum(widths) - (overflowTarget*usable - border)
	order := make([]int, len(widths))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(x, y int) bool { return widths[order[x]] > widths[order[y]] })
	for _, i := range order[:len(order)/2] {
		if excess <= 0 {
			break
		}
		cut := math.Max(0, math.Min(excess*0.5, widths[i]-b.MinWidth))
		widths[i] -= cut
		excess -= cut
	}
	if total := sum(widths); total > limit {
		factor := math.Max(0, limit) / total
		for i := range widths {
			widths[i] *= factor
		}
	}
	return widths
}

func scaleDown(widths []float64, usable float64, b Budget) []float64 {
	total := sum(widths)
	if total <= usable || total == 0 {
		return widths
	}
	factor := usable / total
	for i, w := range widths {
		widths[i] = math.Max(b.MinWidth, w*factor)
	}
	return widths
}

func clamp(w float64, b Budget) float64 {
	return math.Max(b.MinWidth, math.Min(w, b.MaxWidth))
}

func sum(xs []float64) float64 {
	total := 0.0
	for _, x := range xs {
		total += x
	}
	return total
}

func maxOf(xs []float64) float64 {
	m := 0.0
	for _, x := range xs {
		m = math.Max(m, x)
	}
	return m
}
