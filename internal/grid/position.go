// Package grid defines the coordinate vocabulary shared by the selection
// engine: positions, rectangles, spans, directions and the collaborator
// interfaces a hosting grid must provide.
//
// Positions are expressed in the grid's current, visible coordinate space.
// Indexes are the stable identities of rows and columns in the underlying
// data model and are unaffected by hiding or showing.
package grid

import "fmt"

// NoSelection is the reserved coordinate value meaning "no selection".
const NoSelection = -1

// Position is a (column, row) pair in visible position space.
type Position struct {
	Column int
	Row    int
}

// NoPosition is the sentinel used for an unset anchor or last-selected cell.
var NoPosition = Position{Column: NoSelection, Row: NoSelection}

// Pos is a shorthand constructor for Position.
func Pos(column, row int) Position {
	return Position{Column: column, Row: row}
}

// IsValid reports whether p refers to a real cell (both coordinates >= 0).
func (p Position) IsValid() bool {
	return p.Column >= 0 && p.Row >= 0
}

// Clamp returns p clamped into a grid of the given size.
// The result is NoPosition when the grid is empty.
func (p Position) Clamp(columns, rows int) Position {
	if columns <= 0 || rows <= 0 {
		return NoPosition
	}
	return Position{Column: clamp(p.Column, 0, columns-1), Row: clamp(p.Row, 0, rows-1)}
}

// Less orders positions column-major: first by column, then by row.
func (p Position) Less(other Position) bool {
	if p.Column != other.Column {
		return p.Column < other.Column
	}
	return p.Row < other.Row
}

// String returns a string representation of the position.
func (p Position) String() string {
	if !p.IsValid() {
		return "(none)"
	}
	return fmt.Sprintf("(%d,%d)", p.Column, p.Row)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
