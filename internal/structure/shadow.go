package structure

import "github.com/dshills/gridsel/internal/grid"

// hiddenLine records what was selected in a row or column when it was
// hidden. Cells are kept as stable indexes along the other axis so the
// selection can be rebuilt even if that axis changed in the meantime.
// full holds the other-axis lines that were fully selected once this line
// was gone; only lines that became full later are extended on show.
type hiddenLine struct {
	other []grid.Span
	full  []grid.Span
}

// hiddenCursor records an anchor or last-selected cell that was hidden.
type hiddenCursor struct {
	axis       grid.Axis
	index      int
	otherIndex int
}

// shadow is the index-keyed record of selections inside hidden lines.
type shadow struct {
	lines  [2]map[int]hiddenLine
	anchor *hiddenCursor
	last   *hiddenCursor
}

func newShadow() *shadow {
	return &shadow{lines: [2]map[int]hiddenLine{{}, {}}}
}

func (s *shadow) store(axis grid.Axis, index int, otherIndexes, fullIndexes []int) {
	l := hiddenLine{
		other: grid.SpansFromPositions(otherIndexes),
		full:  grid.SpansFromPositions(fullIndexes),
	}
	if len(l.other) == 0 && len(l.full) == 0 {
		delete(s.lines[axis], index)
		return
	}
	s.lines[axis][index] = l
}

func (s *shadow) take(axis grid.Axis, index int) (hiddenLine, bool) {
	l, ok := s.lines[axis][index]
	if ok {
		delete(s.lines[axis], index)
	}
	return l, ok
}

func (s *shadow) forget(axis grid.Axis, indexes []int) {
	for _, i := range indexes {
		delete(s.lines[axis], i)
	}
}

func (s *shadow) reset() {
	s.lines = [2]map[int]hiddenLine{{}, {}}
	s.anchor, s.last = nil, nil
}

func (s *shadow) isEmpty() bool {
	return s.size() == 0 && s.anchor == nil && s.last == nil
}

// size returns the number of hidden lines with recorded selection state.
func (s *shadow) size() int {
	return len(s.lines[grid.Rows]) + len(s.lines[grid.Columns])
}
