// Package structure keeps a selection attached to the same logical rows
// and columns while the grid is edited.
//
// The Adapter listens to structural events (insert, delete, hide, show,
// refresh, clear) and rewrites the selected rectangles, the anchor and the
// last-selected cell. Hidden lines are remembered by stable index so that
// showing them again restores their selection. A selection that starts
// over while lines are hidden (a plain click, Clear, a clearing refresh)
// forgets what they held.
package structure

import (
	"context"
	"sort"
	"strings"

	"github.com/dshills/gridsel/internal/event"
	"github.com/dshills/gridsel/internal/event/events"
	"github.com/dshills/gridsel/internal/grid"
	"github.com/dshills/gridsel/internal/logging"
	"github.com/dshills/gridsel/internal/selection"
)

// far is the extent used for strips that cross the whole grid.
const far = 1 << 30

// Selection is the part of a selection coordinator the adapter rewrites.
type Selection interface {
	Dimensions() grid.Dimensions
	SelectedRects() []grid.Rect
	Anchor() grid.Position
	LastSelected() grid.Position
	Generation() uint64
	ReplaceRects(rects []grid.Rect, anchor, last grid.Position, reason string)
	Reset(reason string)
}

// RefreshPolicy handles a coarse refresh instead of clearing the selection.
type RefreshPolicy interface {
	Refresh(reason string)
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l.WithComponent("structure")
		}
	}
}

// WithClearOnRefresh controls whether a refresh clears the selection.
// It has no effect when a RefreshPolicy is set.
func WithClearOnRefresh(clear bool) Option {
	return func(a *Adapter) {
		a.clearOnRefresh = clear
	}
}

// WithRefreshPolicy delegates refresh handling to p.
func WithRefreshPolicy(p RefreshPolicy) Option {
	return func(a *Adapter) {
		a.policy = p
	}
}

// WithIndexMapper sets the position/index translation used for hide and
// show. The default maps every position to the index of the same value.
func WithIndexMapper(m grid.IndexMapper) Option {
	return func(a *Adapter) {
		if m != nil {
			a.mapper = m
		}
	}
}

// Adapter rewrites a Selection in response to structural events.
type Adapter struct {
	sel            Selection
	mapper         grid.IndexMapper
	policy         RefreshPolicy
	clearOnRefresh bool
	logger         *logging.Logger
	shadow         *shadow

	// generation of the selection the shadow was recorded against
	generation uint64
}

// New creates an adapter for sel.
func New(sel Selection, opts ...Option) *Adapter {
	a := &Adapter{
		sel:            sel,
		mapper:         grid.IdentityMapper{},
		clearOnRefresh: true,
		logger:         logging.Discard(),
		shadow:         newShadow(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.generation = sel.Generation()
	return a
}

// Attach subscribes the adapter to every structural topic on bus.
func (a *Adapter) Attach(bus *event.Bus) (*event.Subscription, error) {
	return bus.Subscribe(events.TopicStructureAll, a, event.WithPriority(event.PriorityHigh))
}

// Handle implements event.Handler.
func (a *Adapter) Handle(_ context.Context, ev any) error {
	s, ok := event.Payload[events.Structural](ev)
	if !ok {
		return nil
	}
	a.Apply(s)
	return nil
}

// Apply rewrites the selection for one structural change.
func (a *Adapter) Apply(s events.Structural) {
	a.logger.Debug("structural change",
		"axis", s.Axis, "kind", s.Kind, "positions", len(s.Positions))

	// A selection started over since the last rewrite owns nothing that
	// is still hidden.
	if g := a.sel.Generation(); g != a.generation {
		if !a.shadow.isEmpty() {
			a.logger.Debug("dropping hidden selections", "lines", a.shadow.size())
		}
		a.shadow.reset()
	}
	defer func() { a.generation = a.sel.Generation() }()

	switch s.Kind {
	case events.KindDeleted:
		a.shadow.forget(s.Axis, s.Indexes)
		a.deleted(s.Axis, s.Positions, reasonFor(s))
	case events.KindInserted:
		a.inserted(s.Axis, s.Positions, reasonFor(s))
	case events.KindHidden:
		a.hidden(s.Axis, s.Positions, s.Indexes, reasonFor(s))
	case events.KindShown:
		a.shown(s.Axis, s.Positions, s.Indexes, reasonFor(s))
	case events.KindRefreshed:
		a.refreshed(reasonFor(s))
	case events.KindCleared:
		a.shadow.reset()
		a.sel.Reset(reasonFor(s))
	}
}

// HiddenSelections returns the number of hidden lines whose selection
// state is waiting to be restored.
func (a *Adapter) HiddenSelections() int { return a.shadow.size() }

func reasonFor(s events.Structural) string {
	if s.Kind == events.KindRefreshed || s.Kind == events.KindCleared {
		return "structure" + title(s.Kind.String())
	}
	return s.Axis.String() + title(s.Kind.String())
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (a *Adapter) deleted(axis grid.Axis, positions []int, reason string) {
	spans := grid.SpansFromPositions(positions)
	if len(spans) == 0 {
		return
	}
	rs := a.current()
	removeLines(rs, axis, spans)
	rs.Normalize()
	a.sel.ReplaceRects(rs.Rects(),
		collapse(axis, a.sel.Anchor(), spans),
		collapse(axis, a.sel.LastSelected(), spans),
		reason)
}

func (a *Adapter) inserted(axis grid.Axis, positions []int, reason string) {
	spans := grid.SpansFromPositions(positions)
	if len(spans) == 0 {
		return
	}
	rs := a.current()
	insertLines(rs, axis, spans)
	a.sel.ReplaceRects(rs.Rects(),
		expand(axis, a.sel.Anchor(), spans),
		expand(axis, a.sel.LastSelected(), spans),
		reason)
}

// hidden behaves like a deletion but first records, by stable index, what
// was selected in each hidden line.
func (a *Adapter) hidden(axis grid.Axis, positions, indexes []int, reason string) {
	spans := grid.SpansFromPositions(positions)
	if len(spans) == 0 {
		return
	}
	rs := a.current()
	anchor, last := a.sel.Anchor(), a.sel.LastSelected()

	others := make([][]int, len(positions))
	for i, p := range positions {
		idx := indexAt(indexes, i, p)
		var other []grid.Span
		if axis == grid.Rows {
			other = rs.ColumnSpansInRow(p)
		} else {
			other = rs.RowSpansInColumn(p)
		}
		others[i] = a.indexesOf(cross(axis), other)

		if anchor.IsValid() && lineOf(axis, anchor) == p {
			a.shadow.anchor = a.cursor(axis, idx, anchor)
		}
		if last.IsValid() && lineOf(axis, last) == p {
			a.shadow.last = a.cursor(axis, idx, last)
		}
	}

	removeLines(rs, axis, spans)
	full := a.indexesOf(cross(axis), grid.SpansFromPositions(fullAcross(rs, axis, a.count(axis), a.count(cross(axis)))))
	for i, p := range positions {
		a.shadow.store(axis, indexAt(indexes, i, p), others[i], full)
	}
	rs.Normalize()
	a.sel.ReplaceRects(rs.Rects(), collapse(axis, anchor, spans), collapse(axis, last, spans), reason)
}

// shown shifts the selection like an insertion, then restores the
// selection recorded when the lines were hidden. Lines along the other
// axis that became fully selected while these lines were hidden are
// extended into them.
func (a *Adapter) shown(axis grid.Axis, positions, indexes []int, reason string) {
	spans := grid.SpansFromPositions(positions)
	if len(spans) == 0 {
		return
	}
	before := a.current()
	full := fullAcross(before, axis, a.count(axis)-len(positions), a.count(cross(axis)))

	rs := a.current()
	insertLines(rs, axis, spans)
	anchor := expand(axis, a.sel.Anchor(), spans)
	last := expand(axis, a.sel.LastSelected(), spans)

	positionOf := a.lookup(cross(axis))
	for i, q := range positions {
		idx := indexAt(indexes, i, q)
		line, _ := a.shadow.take(axis, idx)

		var restored []int
		for _, sp := range line.other {
			for o := sp.Start; o < sp.End; o++ {
				p := positionOf(o)
				if p < 0 {
					continue
				}
				// A line that was full when this one was hidden and has
				// since been emptied was deselected as a whole.
				if spansContain(line.full, o) && !lineSelected(before, cross(axis), p) {
					continue
				}
				restored = append(restored, p)
			}
		}
		if len(line.full) == 0 {
			restored = append(restored, full...)
		} else {
			for _, p := range full {
				if !spansContain(line.full, a.indexOf(cross(axis), p)) {
					restored = append(restored, p)
				}
			}
		}
		for _, sp := range grid.SpansFromPositions(restored) {
			rs.Add(crossRect(axis, q, sp))
		}

		if c := a.shadow.anchor; c != nil && c.axis == axis && c.index == idx {
			if !anchor.IsValid() {
				anchor = a.restore(c, q, positionOf)
			}
			a.shadow.anchor = nil
		}
		if c := a.shadow.last; c != nil && c.axis == axis && c.index == idx {
			if !last.IsValid() {
				last = a.restore(c, q, positionOf)
			}
			a.shadow.last = nil
		}
	}
	a.sel.ReplaceRects(rs.Rects(), anchor, last, reason)
}

func (a *Adapter) refreshed(reason string) {
	switch {
	case a.policy != nil:
		a.policy.Refresh(reason)
	case a.clearOnRefresh:
		a.shadow.reset()
		a.sel.Reset(reason)
	default:
		dims := a.sel.Dimensions()
		cols, rows := dims.ColumnCount(), dims.RowCount()
		var rects []grid.Rect
		for _, r := range a.sel.SelectedRects() {
			if c := r.ClampTo(cols, rows); !c.IsEmpty() {
				rects = append(rects, c)
			}
		}
		a.sel.ReplaceRects(rects, clampCursor(a.sel.Anchor(), cols, rows), clampCursor(a.sel.LastSelected(), cols, rows), reason)
	}
}

func (a *Adapter) current() *selection.RangeSet {
	rs := selection.NewRangeSet()
	for _, r := range a.sel.SelectedRects() {
		rs.Add(r)
	}
	return rs
}

func (a *Adapter) cursor(axis grid.Axis, idx int, p grid.Position) *hiddenCursor {
	other := a.indexOf(cross(axis), lineOf(cross(axis), p))
	return &hiddenCursor{axis: axis, index: idx, otherIndex: other}
}

func (a *Adapter) restore(c *hiddenCursor, at int, positionOf func(int) int) grid.Position {
	p := positionOf(c.otherIndex)
	if p < 0 {
		return grid.NoPosition
	}
	if c.axis == grid.Rows {
		return grid.Pos(p, at)
	}
	return grid.Pos(at, p)
}

// count returns the number of visible lines along axis.
func (a *Adapter) count(axis grid.Axis) int {
	dims := a.sel.Dimensions()
	if axis == grid.Columns {
		return dims.ColumnCount()
	}
	return dims.RowCount()
}

// indexOf returns the stable index of the line at position p along axis.
func (a *Adapter) indexOf(axis grid.Axis, p int) int {
	if axis == grid.Columns {
		return a.mapper.ColumnIndexByPosition(p)
	}
	return a.mapper.RowIndexByPosition(p)
}

// indexesOf converts positions along axis into stable indexes.
func (a *Adapter) indexesOf(axis grid.Axis, spans []grid.Span) []int {
	var out []int
	for _, sp := range spans {
		for p := sp.Start; p < sp.End; p++ {
			if idx := a.indexOf(axis, p); idx >= 0 {
				out = append(out, idx)
			}
		}
	}
	return out
}

// lookup returns an index to position translation for axis. The table is
// built on first use with one pass over the visible lines; indexes that
// are not visible map to grid.NoSelection.
func (a *Adapter) lookup(axis grid.Axis) func(index int) int {
	var positions map[int]int
	return func(index int) int {
		if positions == nil {
			n := a.count(axis)
			positions = make(map[int]int, n)
			for p := range n {
				if idx := a.indexOf(axis, p); idx >= 0 {
					positions[idx] = p
				}
			}
		}
		if p, ok := positions[index]; ok {
			return p
		}
		return grid.NoSelection
	}
}

// fullAcross returns the positions of lines along the other axis that are
// fully selected over the first count lines of axis.
func fullAcross(rs *selection.RangeSet, axis grid.Axis, count, otherCount int) []int {
	if count <= 0 || otherCount <= 0 {
		return nil
	}
	if axis == grid.Columns {
		return rs.FullySelectedRows(otherCount, count)
	}
	return rs.FullySelectedColumns(otherCount, count)
}

func lineSelected(rs *selection.RangeSet, axis grid.Axis, p int) bool {
	if axis == grid.Columns {
		return rs.IsColumnSelected(p)
	}
	return rs.IsRowSelected(p)
}

func spansContain(spans []grid.Span, v int) bool {
	i := sort.Search(len(spans), func(i int) bool { return spans[i].End > v })
	return i < len(spans) && spans[i].Contains(v)
}

// crossRect returns the cells of line q along axis covered by sp on the
// other axis.
func crossRect(axis grid.Axis, q int, sp grid.Span) grid.Rect {
	if axis == grid.Rows {
		return grid.NewRect(sp.Start, q, sp.Len(), 1)
	}
	return grid.NewRect(q, sp.Start, 1, sp.Len())
}

func cross(axis grid.Axis) grid.Axis {
	if axis == grid.Rows {
		return grid.Columns
	}
	return grid.Rows
}

// removeLines deletes the given spans of rows or columns, highest first so
// lower spans keep their coordinates.
func removeLines(rs *selection.RangeSet, axis grid.Axis, spans []grid.Span) {
	for i := len(spans) - 1; i >= 0; i-- {
		sp := spans[i]
		rs.Remove(strip(axis, sp))
		if axis == grid.Rows {
			rs.ShiftRows(sp.End, -sp.Len())
		} else {
			rs.ShiftColumns(sp.End, -sp.Len())
		}
	}
}

// insertLines opens gaps at the given spans, expressed in the coordinate
// space after insertion, lowest first.
func insertLines(rs *selection.RangeSet, axis grid.Axis, spans []grid.Span) {
	for _, sp := range spans {
		if axis == grid.Rows {
			rs.ShiftRows(sp.Start, sp.Len())
		} else {
			rs.ShiftColumns(sp.Start, sp.Len())
		}
	}
}

func strip(axis grid.Axis, sp grid.Span) grid.Rect {
	if axis == grid.Rows {
		return grid.NewRect(0, sp.Start, far, sp.Len())
	}
	return grid.NewRect(sp.Start, 0, sp.Len(), far)
}

// collapse maps a cursor through a deletion. Cursors inside a deleted span
// are invalidated.
func collapse(axis grid.Axis, p grid.Position, spans []grid.Span) grid.Position {
	if !p.IsValid() {
		return p
	}
	v := lineOf(axis, p)
	removed := 0
	for _, sp := range spans {
		switch {
		case sp.Contains(v):
			return grid.NoPosition
		case sp.End <= v:
			removed += sp.Len()
		}
	}
	return withLine(axis, p, v-removed)
}

// expand maps a cursor through an insertion.
func expand(axis grid.Axis, p grid.Position, spans []grid.Span) grid.Position {
	if !p.IsValid() {
		return p
	}
	v := lineOf(axis, p)
	for _, sp := range spans {
		if v >= sp.Start {
			v += sp.Len()
		}
	}
	return withLine(axis, p, v)
}

func clampCursor(p grid.Position, cols, rows int) grid.Position {
	if !p.IsValid() {
		return p
	}
	return p.Clamp(cols, rows)
}

func indexAt(indexes []int, i, fallback int) int {
	if i < len(indexes) {
		return indexes[i]
	}
	return fallback
}

func lineOf(axis grid.Axis, p grid.Position) int {
	if axis == grid.Columns {
		return p.Column
	}
	return p.Row
}

func withLine(axis grid.Axis, p grid.Position, v int) grid.Position {
	if axis == grid.Columns {
		p.Column = v
	} else {
		p.Row = v
	}
	return p
}
