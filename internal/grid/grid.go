package grid

import "strings"

// Direction is a movement direction.
type Direction uint8

const (
	// None leaves the position unchanged.
	None Direction = iota
	Up
	Down
	Left
	Right
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case None:
		return "none"
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "unknown"
	}
}

// IsHorizontal reports whether d moves along a row.
func (d Direction) IsHorizontal() bool {
	return d == Left || d == Right
}

// ParseDirection parses a direction name. Unknown names yield None and false.
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return None, true
	case "up":
		return Up, true
	case "down":
		return Down, true
	case "left":
		return Left, true
	case "right":
		return Right, true
	}
	return None, false
}

// Axis identifies rows or columns.
type Axis uint8

const (
	Rows Axis = iota
	Columns
)

// String returns the axis name.
func (a Axis) String() string {
	if a == Columns {
		return "columns"
	}
	return "rows"
}

// Dimensions reports the current visible size of a grid.
type Dimensions interface {
	ColumnCount() int
	RowCount() int
}

// IndexMapper translates between visible positions and stable indexes.
// Position lookups for hidden or absent indexes return NoSelection.
type IndexMapper interface {
	ColumnIndexByPosition(position int) int
	ColumnPositionByIndex(index int) int
	RowIndexByPosition(position int) int
	RowPositionByIndex(index int) int
}

// Size is a fixed Dimensions value.
type Size struct {
	Columns int
	Rows    int
}

// ColumnCount implements Dimensions.
func (s Size) ColumnCount() int { return s.Columns }

// RowCount implements Dimensions.
func (s Size) RowCount() int { return s.Rows }

// IdentityMapper maps every position to the index with the same value.
type IdentityMapper struct{}

func (IdentityMapper) ColumnIndexByPosition(position int) int { return position }
func (IdentityMapper) ColumnPositionByIndex(index int) int    { return index }
func (IdentityMapper) RowIndexByPosition(position int) int    { return position }
func (IdentityMapper) RowPositionByIndex(index int) int       { return index }
