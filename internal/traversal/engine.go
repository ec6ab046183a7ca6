package traversal

import "github.com/dshills/gridsel/internal/grid"

// line is a one-dimensional view of the cells a strategy may visit.
// Axis scope maps a single row or column; table scope flattens the grid
// row-major for horizontal moves and column-major for vertical moves.
type line struct {
	length  int
	columns int
	rows    int
	dir     grid.Direction
	scope   Scope
	fixed   grid.Position
}

func newLine(from grid.Position, dir grid.Direction, scope Scope, columns, rows int) line {
	l := line{columns: columns, rows: rows, dir: dir, scope: scope, fixed: from}
	switch {
	case scope == AxisScope && dir.IsHorizontal():
		l.length = columns
	case scope == AxisScope:
		l.length = rows
	default:
		l.length = columns * rows
	}
	return l
}

func (l line) index(p grid.Position) int {
	horizontal := l.dir.IsHorizontal()
	switch {
	case l.scope == AxisScope && horizontal:
		return p.Column
	case l.scope == AxisScope:
		return p.Row
	case horizontal:
		return p.Row*l.columns + p.Column
	default:
		return p.Column*l.rows + p.Row
	}
}

func (l line) position(i int) grid.Position {
	horizontal := l.dir.IsHorizontal()
	switch {
	case l.scope == AxisScope && horizontal:
		return grid.Position{Column: i, Row: l.fixed.Row}
	case l.scope == AxisScope:
		return grid.Position{Column: l.fixed.Column, Row: i}
	case horizontal:
		return grid.Position{Column: i % l.columns, Row: i / l.columns}
	default:
		return grid.Position{Column: i / l.rows, Row: i % l.rows}
	}
}

// Move returns the position reached by moving from in dir under s.
//
// Every intermediate candidate is offered to the strategy's predicate and
// rejected candidates are stepped over. Probing is bounded by one full
// pass over the scope: a clamped move stops at the last valid candidate
// before the boundary, and a cyclic move whose step count exceeds the
// number of valid landings in a full cycle resolves the remainder modulo
// that number. When no candidate is valid, from is returned.
func Move(from grid.Position, dir grid.Direction, s Strategy, dims grid.Dimensions) grid.Position {
	columns, rows := dims.ColumnCount(), dims.RowCount()
	if columns <= 0 || rows <= 0 || dir == grid.None {
		return from
	}
	origin := from.Clamp(columns, rows)

	l := newLine(origin, dir, s.scope, columns, rows)
	start := l.index(origin)
	sign := 1
	if dir == grid.Left || dir == grid.Up {
		sign = -1
	}

	steps := s.Steps()
	toEnd := steps == ToEnd
	cyclic := s.cyclic && !toEnd

	var landings []int
	last := -1
	for k := 1; k <= l.length; k++ {
		i := start + sign*k
		if i < 0 || i >= l.length {
			if !cyclic {
				break
			}
			i = ((i % l.length) + l.length) % l.length
		}
		if !s.IsValidTarget(origin, l.position(i)) {
			continue
		}
		last = i
		if !toEnd {
			landings = append(landings, i)
			if len(landings) == steps {
				return l.position(i)
			}
		}
	}

	switch {
	case cyclic && len(landings) > 0:
		return l.position(landings[(steps-1)%len(landings)])
	case last >= 0:
		return l.position(last)
	default:
		return origin
	}
}
