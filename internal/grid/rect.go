package grid

import (
	"fmt"
	"sort"
)

// Rect is an axis-aligned block of positions. X and Y are the top-left
// column and row; Width and Height count cells.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// NewRect creates a rectangle.
func NewRect(x, y, width, height int) Rect {
	return Rect{X: x, Y: y, Width: width, Height: height}
}

// CellRect returns the 1x1 rectangle covering p.
func CellRect(p Position) Rect {
	return Rect{X: p.Column, Y: p.Row, Width: 1, Height: 1}
}

// SpanRect returns the rectangle spanning two corner positions inclusively,
// in whichever order they are given.
func SpanRect(a, b Position) Rect {
	x0, x1 := a.Column, b.Column
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	y0, y1 := a.Row, b.Row
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	return Rect{X: x0, Y: y0, Width: x1 - x0 + 1, Height: y1 - y0 + 1}
}

// Right returns the exclusive right edge.
func (r Rect) Right() int { return r.X + r.Width }

// Bottom returns the exclusive bottom edge.
func (r Rect) Bottom() int { return r.Y + r.Height }

// IsEmpty reports whether the rectangle covers no cells.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Area returns the number of cells covered.
func (r Rect) Area() int {
	if r.IsEmpty() {
		return 0
	}
	return r.Width * r.Height
}

// ContainsCell reports whether (column, row) lies inside r.
func (r Rect) ContainsCell(column, row int) bool {
	return column >= r.X && column < r.Right() && row >= r.Y && row < r.Bottom()
}

// Contains reports whether inner lies entirely inside r.
//
// A probe with zero width or height is treated as a line through its
// X or Y coordinate, so a zero-height probe at row y is contained when
// y is one of r's rows and its column range fits.
func (r Rect) Contains(inner Rect) bool {
	if r.IsEmpty() {
		return false
	}
	x0, x1 := inner.X, inner.Right()
	if inner.Width <= 0 {
		x1 = x0 + 1
	}
	y0, y1 := inner.Y, inner.Bottom()
	if inner.Height <= 0 {
		y1 = y0 + 1
	}
	return x0 >= r.X && x1 <= r.Right() && y0 >= r.Y && y1 <= r.Bottom()
}

// Intersects reports whether the two rectangles share at least one cell.
func (r Rect) Intersects(other Rect) bool {
	return !r.Intersect(other).IsEmpty()
}

// Intersect returns the common area of two rectangles.
// The result is empty when they do not overlap.
func (r Rect) Intersect(other Rect) Rect {
	x0 := max(r.X, other.X)
	y0 := max(r.Y, other.Y)
	x1 := min(r.Right(), other.Right())
	y1 := min(r.Bottom(), other.Bottom())
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Subtract returns the fragments of r not covered by cut: up to a top
// strip, a bottom strip, a left strip and a right strip. Zero-area
// fragments are discarded.
func (r Rect) Subtract(cut Rect) []Rect {
	i := r.Intersect(cut)
	if i.IsEmpty() {
		if r.IsEmpty() {
			return nil
		}
		return []Rect{r}
	}

	candidates := [4]Rect{
		{X: r.X, Y: r.Y, Width: r.Width, Height: i.Y - r.Y},
		{X: r.X, Y: i.Bottom(), Width: r.Width, Height: r.Bottom() - i.Bottom()},
		{X: r.X, Y: i.Y, Width: i.X - r.X, Height: i.Height},
		{X: i.Right(), Y: i.Y, Width: r.Right() - i.Right(), Height: i.Height},
	}
	var out []Rect
	for _, c := range candidates {
		if !c.IsEmpty() {
			out = append(out, c)
		}
	}
	return out
}

// ClampTo returns r clipped to a grid of the given size.
func (r Rect) ClampTo(columns, rows int) Rect {
	return r.Intersect(Rect{Width: columns, Height: rows})
}

// Columns returns the column extent of r as a span.
func (r Rect) Columns() Span { return Span{Start: r.X, End: r.Right()} }

// Rows returns the row extent of r as a span.
func (r Rect) Rows() Span { return Span{Start: r.Y, End: r.Bottom()} }

// String returns a string representation of the rectangle.
func (r Rect) String() string {
	return fmt.Sprintf("Rect(x=%d y=%d w=%d h=%d)", r.X, r.Y, r.Width, r.Height)
}

// Span is a half-open integer interval [Start, End).
type Span struct {
	Start int
	End   int
}

// Len returns the number of positions in the span.
func (s Span) Len() int {
	if s.End <= s.Start {
		return 0
	}
	return s.End - s.Start
}

// Contains reports whether v lies inside the span.
func (s Span) Contains(v int) bool {
	return v >= s.Start && v < s.End
}

// String returns a string representation of the span.
func (s Span) String() string {
	return fmt.Sprintf("[%d,%d)", s.Start, s.End)
}

// MergeSpans sorts spans by start and coalesces overlapping or adjacent
// ones. Empty spans are dropped. The input slice is not modified.
func MergeSpans(spans []Span) []Span {
	sorted := make([]Span, 0, len(spans))
	for _, s := range spans {
		if s.Len() > 0 {
			sorted = append(sorted, s)
		}
	}
	if len(sorted) == 0 {
		return nil
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	merged := []Span{sorted[0]}
	for _, s := range sorted[1:] {
		last := &merged[len(merged)-1]
		if s.Start <= last.End {
			if s.End > last.End {
				last.End = s.End
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

// SpansFromPositions compresses a set of integer positions into sorted,
// merged spans. Negative values are ignored; duplicates are allowed.
func SpansFromPositions(positions []int) []Span {
	spans := make([]Span, 0, len(positions))
	for _, p := range positions {
		if p >= 0 {
			spans = append(spans, Span{Start: p, End: p + 1})
		}
	}
	return MergeSpans(spans)
}
