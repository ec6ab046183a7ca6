package selection

import (
	"sort"

	"github.com/dshills/gridsel/internal/grid"
)

// RangeSet is a set of selected rectangles. Overlapping rectangles are
// allowed; the selection is their union. Full-row and full-column queries
// merge spans on demand instead of keeping a per-cell bitmap, so the set
// stays proportional to the number of gestures rather than the grid size.
//
// RangeSet is not safe for concurrent use.
type RangeSet struct {
	rects []grid.Rect
}

// NewRangeSet creates an empty set.
func NewRangeSet() *RangeSet {
	return &RangeSet{}
}

// Add unions r into the set. Empty rectangles are ignored.
func (s *RangeSet) Add(r grid.Rect) {
	if r.IsEmpty() {
		return
	}
	s.rects = append(s.rects, r)
}

// AddCell adds a single cell.
func (s *RangeSet) AddCell(column, row int) {
	s.Add(grid.Rect{X: column, Y: row, Width: 1, Height: 1})
}

// Remove subtracts r from the set. Stored rectangles that partially
// overlap r are split into the fragments lying outside it.
func (s *RangeSet) Remove(r grid.Rect) {
	if r.IsEmpty() || len(s.rects) == 0 {
		return
	}
	out := make([]grid.Rect, 0, len(s.rects))
	for _, stored := range s.rects {
		if !stored.Intersects(r) {
			out = append(out, stored)
			continue
		}
		out = append(out, stored.Subtract(r)...)
	}
	s.rects = out
}

// RemoveCell subtracts a single cell.
func (s *RangeSet) RemoveCell(column, row int) {
	s.Remove(grid.Rect{X: column, Y: row, Width: 1, Height: 1})
}

// Clear empties the set.
func (s *RangeSet) Clear() {
	s.rects = nil
}

// IsEmpty reports whether nothing is selected.
func (s *RangeSet) IsEmpty() bool {
	return len(s.rects) == 0
}

// Rects returns a copy of the stored rectangles.
func (s *RangeSet) Rects() []grid.Rect {
	out := make([]grid.Rect, len(s.rects))
	copy(out, s.rects)
	return out
}

// Len returns the number of stored rectangles.
func (s *RangeSet) Len() int {
	return len(s.rects)
}

// IsCellSelected reports whether some rectangle contains (column, row).
func (s *RangeSet) IsCellSelected(column, row int) bool {
	for _, r := range s.rects {
		if r.ContainsCell(column, row) {
			return true
		}
	}
	return false
}

// Contains reports whether the union of stored rectangles covers r
// entirely. Zero-width or zero-height probes are treated as lines.
func (s *RangeSet) Contains(r grid.Rect) bool {
	probe := r
	if probe.Width <= 0 {
		probe.Width = 1
	}
	if probe.Height <= 0 {
		probe.Height = 1
	}
	remaining := []grid.Rect{probe}
	for _, stored := range s.rects {
		var next []grid.Rect
		for _, part := range remaining {
			next = append(next, part.Subtract(stored)...)
		}
		remaining = next
		if len(remaining) == 0 {
			return true
		}
	}
	return false
}

// IsRowSelected reports whether any cell of row is selected.
func (s *RangeSet) IsRowSelected(row int) bool {
	for _, r := range s.rects {
		if r.Rows().Contains(row) {
			return true
		}
	}
	return false
}

// IsColumnSelected reports whether any cell of column is selected.
func (s *RangeSet) IsColumnSelected(column int) bool {
	for _, r := range s.rects {
		if r.Columns().Contains(column) {
			return true
		}
	}
	return false
}

// IsColumnFullySelected reports whether every row in [0, rowCount) of
// column is selected.
func (s *RangeSet) IsColumnFullySelected(column, rowCount int) bool {
	if rowCount <= 0 {
		return false
	}
	var spans []grid.Span
	for _, r := range s.rects {
		if r.Columns().Contains(column) {
			spans = append(spans, r.Rows())
		}
	}
	return coversRange(spans, rowCount)
}

// IsRowFullySelected reports whether every column in [0, columnCount) of
// row is selected.
func (s *RangeSet) IsRowFullySelected(row, columnCount int) bool {
	if columnCount <= 0 {
		return false
	}
	var spans []grid.Span
	for _, r := range s.rects {
		if r.Rows().Contains(row) {
			spans = append(spans, r.Columns())
		}
	}
	return coversRange(spans, columnCount)
}

// coversRange reports whether the merged spans tile [0, count) without gaps.
func coversRange(spans []grid.Span, count int) bool {
	merged := grid.MergeSpans(spans)
	next := 0
	for _, sp := range merged {
		if sp.Start > next {
			return false
		}
		if sp.End > next {
			next = sp.End
		}
		if next >= count {
			return true
		}
	}
	return false
}

// FullySelectedColumns returns, in ascending order, the columns in
// [0, columnCount) whose rows [0, rowCount) are all selected.
func (s *RangeSet) FullySelectedColumns(columnCount, rowCount int) []int {
	var out []int
	for _, c := range s.SelectedColumns() {
		if c >= columnCount {
			break
		}
		if c >= 0 && s.IsColumnFullySelected(c, rowCount) {
			out = append(out, c)
		}
	}
	return out
}

// FullySelectedRows returns, in ascending order, the rows in
// [0, rowCount) whose columns [0, columnCount) are all selected.
func (s *RangeSet) FullySelectedRows(rowCount, columnCount int) []int {
	var out []int
	for _, sp := range s.SelectedRowSpans() {
		for r := max(sp.Start, 0); r < sp.End && r < rowCount; r++ {
			if s.IsRowFullySelected(r, columnCount) {
				out = append(out, r)
			}
		}
	}
	return out
}

// SelectedRowSpans returns the merged vertical spans of every rectangle,
// regardless of column.
func (s *RangeSet) SelectedRowSpans() []grid.Span {
	spans := make([]grid.Span, 0, len(s.rects))
	for _, r := range s.rects {
		spans = append(spans, r.Rows())
	}
	return grid.MergeSpans(spans)
}

// SelectedColumnSpans returns the merged horizontal spans of every rectangle.
func (s *RangeSet) SelectedColumnSpans() []grid.Span {
	spans := make([]grid.Span, 0, len(s.rects))
	for _, r := range s.rects {
		spans = append(spans, r.Columns())
	}
	return grid.MergeSpans(spans)
}

// SelectedColumns returns the distinct columns touched by any rectangle,
// ascending.
func (s *RangeSet) SelectedColumns() []int {
	var out []int
	for _, sp := range s.SelectedColumnSpans() {
		for c := sp.Start; c < sp.End; c++ {
			out = append(out, c)
		}
	}
	return out
}

// SelectedRowCount returns the number of distinct rows with a selected cell.
func (s *RangeSet) SelectedRowCount() int {
	n := 0
	for _, sp := range s.SelectedRowSpans() {
		n += sp.Len()
	}
	return n
}

// RowSpansInColumn returns the merged row spans selected in column.
func (s *RangeSet) RowSpansInColumn(column int) []grid.Span {
	var spans []grid.Span
	for _, r := range s.rects {
		if r.Columns().Contains(column) {
			spans = append(spans, r.Rows())
		}
	}
	return grid.MergeSpans(spans)
}

// ColumnSpansInRow returns the merged column spans selected in row.
func (s *RangeSet) ColumnSpansInRow(row int) []grid.Span {
	var spans []grid.Span
	for _, r := range s.rects {
		if r.Rows().Contains(row) {
			spans = append(spans, r.Columns())
		}
	}
	return grid.MergeSpans(spans)
}

// CellPositions expands the union into individual cells ordered by column,
// then by row. Each cell appears once.
func (s *RangeSet) CellPositions() []grid.Position {
	var out []grid.Position
	for _, c := range s.SelectedColumns() {
		for _, sp := range s.RowSpansInColumn(c) {
			for r := sp.Start; r < sp.End; r++ {
				out = append(out, grid.Position{Column: c, Row: r})
			}
		}
	}
	return out
}

// CellCount returns the number of distinct selected cells.
func (s *RangeSet) CellCount() int {
	n := 0
	for _, c := range s.SelectedColumns() {
		for _, sp := range s.RowSpansInColumn(c) {
			n += sp.Len()
		}
	}
	return n
}

// ShiftRows moves every rectangle starting at or below from by delta rows.
// A rectangle straddling from is split first so only its lower part moves.
func (s *RangeSet) ShiftRows(from, delta int) {
	s.shift(grid.Rows, from, delta)
}

// ShiftColumns moves every rectangle starting at or right of from by delta
// columns, splitting straddling rectangles.
func (s *RangeSet) ShiftColumns(from, delta int) {
	s.shift(grid.Columns, from, delta)
}

func (s *RangeSet) shift(axis grid.Axis, from, delta int) {
	if delta == 0 {
		return
	}
	out := make([]grid.Rect, 0, len(s.rects))
	for _, r := range s.rects {
		start, end := r.Y, r.Bottom()
		if axis == grid.Columns {
			start, end = r.X, r.Right()
		}
		switch {
		case end <= from:
			out = append(out, r)
		case start >= from:
			out = append(out, moved(r, axis, delta))
		default:
			head, tail := r, r
			if axis == grid.Columns {
				head.Width = from - r.X
				tail.X, tail.Width = from, r.Right()-from
			} else {
				head.Height = from - r.Y
				tail.Y, tail.Height = from, r.Bottom()-from
			}
			out = append(out, head, moved(tail, axis, delta))
		}
	}
	s.rects = out
}

func moved(r grid.Rect, axis grid.Axis, delta int) grid.Rect {
	if axis == grid.Columns {
		r.X += delta
	} else {
		r.Y += delta
	}
	return r
}

// Bounds returns the smallest rectangle enclosing every selected cell.
func (s *RangeSet) Bounds() grid.Rect {
	if len(s.rects) == 0 {
		return grid.Rect{}
	}
	x0, y0 := s.rects[0].X, s.rects[0].Y
	x1, y1 := s.rects[0].Right(), s.rects[0].Bottom()
	for _, r := range s.rects[1:] {
		x0, y0 = min(x0, r.X), min(y0, r.Y)
		x1, y1 = max(x1, r.Right()), max(y1, r.Bottom())
	}
	return grid.Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Normalize rewrites the set as disjoint column-strip rectangles. The
// union is unchanged; redundant overlapping gestures collapse.
func (s *RangeSet) Normalize() {
	var out []grid.Rect
	for _, c := range s.SelectedColumns() {
		for _, sp := range s.RowSpansInColumn(c) {
			out = append(out, grid.Rect{X: c, Y: sp.Start, Width: 1, Height: sp.Len()})
		}
	}
	// Coalesce identical row spans in adjacent columns.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		if out[i].Height != out[j].Height {
			return out[i].Height < out[j].Height
		}
		return out[i].X < out[j].X
	})
	var merged []grid.Rect
	for _, r := range out {
		if n := len(merged); n > 0 {
			last := &merged[n-1]
			if last.Y == r.Y && last.Height == r.Height && last.Right() == r.X {
				last.Width += r.Width
				continue
			}
		}
		merged = append(merged, r)
	}
	s.rects = merged
}
