package selection

import "github.com/dshills/gridsel/internal/grid"

// Model stores selected positions. The Coordinator owns exactly one Model
// and is its only writer; RangeSet is the default implementation.
type Model interface {
	// Mutation
	Add(r grid.Rect)
	Remove(r grid.Rect)
	Clear()

	// Point and line queries
	IsEmpty() bool
	IsCellSelected(column, row int) bool
	IsRowSelected(row int) bool
	IsColumnSelected(column int) bool
	IsColumnFullySelected(column, rowCount int) bool
	IsRowFullySelected(row, columnCount int) bool

	// Aggregate queries
	Rects() []grid.Rect
	FullySelectedColumns(columnCount, rowCount int) []int
	FullySelectedRows(rowCount, columnCount int) []int
	SelectedRowSpans() []grid.Span
	SelectedColumns() []int
	SelectedRowCount() int
	CellPositions() []grid.Position
	CellCount() int
	Bounds() grid.Rect
}

var _ Model = (*RangeSet)(nil)
