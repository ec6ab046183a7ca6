// Package selection tracks which cells of a grid are selected.
//
// A Coordinator owns a Model (by default a RangeSet), an anchor and a
// last-selected cell. Every mutating call leaves the model consistent and
// then publishes a SelectionChanged event naming the affected row and
// column ranges.
package selection

import (
	"context"

	"github.com/dshills/gridsel/internal/event"
	"github.com/dshills/gridsel/internal/event/events"
	"github.com/dshills/gridsel/internal/grid"
	"github.com/dshills/gridsel/internal/logging"
	"github.com/dshills/gridsel/internal/traversal"
)

// Reasons carried by SelectionChanged events.
const (
	ReasonSelectCell   = "selectCell"
	ReasonSelectRow    = "selectRow"
	ReasonSelectColumn = "selectColumn"
	ReasonSelectRows   = "selectRows"
	ReasonSelectRegion = "selectRegion"
	ReasonSelectAll    = "selectAll"
	ReasonClear        = "clear"
	ReasonMove         = "move"
	ReasonCursor       = "cursor"
	ReasonMode         = "mode"
)

// EventSource is the Metadata.Source of events published by a Coordinator.
const EventSource = "selection"

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithModel replaces the default RangeSet.
func WithModel(m Model) Option {
	return func(c *Coordinator) {
		if m != nil {
			c.model = m
		}
	}
}

// WithNotifier sets the sink for selection events.
func WithNotifier(p event.Publisher) Option {
	return func(c *Coordinator) {
		c.notifier = p
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l.WithComponent("selection")
		}
	}
}

// WithMultipleSelection controls whether more than one cell may be selected.
func WithMultipleSelection(allowed bool) Option {
	return func(c *Coordinator) {
		c.multiple = allowed
	}
}

// WithRowOriented promotes every cell selection to a full-row selection.
func WithRowOriented(enabled bool) Option {
	return func(c *Coordinator) {
		c.rowOriented = enabled
	}
}

// Coordinator applies selection gestures to a Model.
//
// Coordinator is not safe for concurrent use; callers serialize access on
// the thread that dispatches input and structural events.
type Coordinator struct {
	model       Model
	dims        grid.Dimensions
	notifier    event.Publisher
	logger      *logging.Logger
	multiple    bool
	rowOriented bool

	anchor grid.Position
	last   grid.Position

	// region is the rectangle produced by the most recent gesture; a
	// shift+ctrl extension replaces only this rectangle.
	region grid.Rect

	dirty      []grid.Rect
	version    uint64
	generation uint64
}

// New creates a coordinator for a grid of the given dimensions.
func New(dims grid.Dimensions, opts ...Option) *Coordinator {
	c := &Coordinator{
		model:    NewRangeSet(),
		dims:     dims,
		logger:   logging.Discard(),
		multiple: true,
		anchor:   grid.NoPosition,
		last:     grid.NoPosition,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SelectCell selects the cell at (column, row).
//
// With neither flag the selection is replaced by the cell. With add the
// cell is toggled. With extend the anchor stays fixed and the selection
// becomes the rectangle from the anchor to the cell; combined with add,
// only the previous extension is replaced.
func (c *Coordinator) SelectCell(column, row int, extend, add bool) {
	p, ok := c.clamp(column, row)
	if !ok {
		return
	}
	if c.rowOriented {
		c.selectLine(grid.Rows, p, extend, add)
	} else {
		c.selectCell(p, extend, add)
	}
	c.emit(ReasonSelectCell)
}

func (c *Coordinator) selectCell(p grid.Position, extend, add bool) {
	cell := grid.CellRect(p)
	switch {
	case !c.multiple:
		c.replace(cell)
		c.setCursor(p, p)
	case extend && c.anchor.IsValid():
		c.extendTo(grid.SpanRect(c.anchor, p), add)
		c.setLast(p)
	case add && c.model.IsCellSelected(p.Column, p.Row):
		c.remove(cell)
		c.region = grid.Rect{}
		if c.model.IsEmpty() {
			c.setCursor(grid.NoPosition, grid.NoPosition)
		}
	case add:
		c.add(cell)
		c.region = cell
		c.setCursor(p, p)
	default:
		c.replace(cell)
		c.setCursor(p, p)
	}
}

// SelectRow selects the full row containing (column, row). column only
// positions the anchor.
func (c *Coordinator) SelectRow(column, row int, extend, add bool) {
	p, ok := c.clamp(column, row)
	if !ok {
		return
	}
	c.selectLine(grid.Rows, p, extend, add)
	c.emit(ReasonSelectRow)
}

// SelectColumn selects the full column containing (column, row).
func (c *Coordinator) SelectColumn(column, row int, extend, add bool) {
	p, ok := c.clamp(column, row)
	if !ok {
		return
	}
	if c.rowOriented {
		c.selectLine(grid.Rows, p, extend, add)
	} else {
		c.selectLine(grid.Columns, p, extend, add)
	}
	c.emit(ReasonSelectColumn)
}

func (c *Coordinator) selectLine(axis grid.Axis, p grid.Position, extend, add bool) {
	full := c.lineRect(axis, lineOf(axis, p), 1)
	switch {
	case !c.multiple:
		c.replace(full)
		c.setCursor(p, p)
	case extend && c.anchor.IsValid():
		a, b := lineOf(axis, c.anchor), lineOf(axis, p)
		c.extendTo(c.lineRect(axis, min(a, b), abs(a-b)+1), add)
		c.setLast(p)
	case add && c.isLineFull(axis, lineOf(axis, p)):
		c.remove(full)
		c.region = grid.Rect{}
		c.retreatAnchor(axis, lineOf(axis, p))
	case add:
		c.add(full)
		c.region = full
		c.setCursor(p, p)
	default:
		c.replace(full)
		c.setCursor(p, p)
	}
}

// retreatAnchor moves the anchor off a row or column that was just
// toggled out, one unit inward toward the remaining full lines.
func (c *Coordinator) retreatAnchor(axis grid.Axis, removed int) {
	if c.model.IsEmpty() {
		c.setCursor(grid.NoPosition, grid.NoPosition)
		return
	}
	if !c.anchor.IsValid() || lineOf(axis, c.anchor) != removed {
		return
	}

	next := -1
	switch {
	case c.isLineFull(axis, removed-1):
		next = removed - 1
	case c.isLineFull(axis, removed+1):
		next = removed + 1
	default:
		for _, i := range c.fullLines(axis) {
			if next < 0 || abs(i-removed) < abs(next-removed) {
				next = i
			}
		}
	}
	if next < 0 {
		c.setCursor(grid.NoPosition, grid.NoPosition)
		return
	}
	p := withLine(axis, c.anchor, next)
	c.setCursor(p, p)
}

// SelectRows selects the given rows. The anchor is placed at
// (column, anchorRow) when anchorRow is a valid row, otherwise at the last
// row listed.
func (c *Coordinator) SelectRows(column int, rows []int, extend, add bool, anchorRow int) {
	cols, nrows := c.size()
	if cols <= 0 || nrows <= 0 || len(rows) == 0 {
		return
	}
	clamped := make([]int, len(rows))
	for i, r := range rows {
		clamped[i] = grid.Pos(0, r).Clamp(cols, nrows).Row
	}
	target, _ := c.clamp(column, clamped[len(clamped)-1])
	spans := grid.SpansFromPositions(clamped)

	switch {
	case !c.multiple:
		c.selectLine(grid.Rows, target, false, false)
	case extend && c.anchor.IsValid():
		lo := min(c.anchor.Row, spans[0].Start)
		hi := max(c.anchor.Row, spans[len(spans)-1].End-1)
		c.extendTo(c.lineRect(grid.Rows, lo, hi-lo+1), add)
		c.setLast(target)
	case add:
		for _, sp := range spans {
			for r := sp.Start; r < sp.End; r++ {
				if c.isLineFull(grid.Rows, r) {
					c.remove(c.lineRect(grid.Rows, r, 1))
				} else {
					c.add(c.lineRect(grid.Rows, r, 1))
				}
			}
		}
		c.region = grid.Rect{}
		c.placeRowsAnchor(target, anchorRow)
	default:
		c.clearModel()
		for _, sp := range spans {
			c.add(c.lineRect(grid.Rows, sp.Start, sp.Len()))
		}
		if len(spans) == 1 {
			c.region = c.lineRect(grid.Rows, spans[0].Start, spans[0].Len())
		}
		c.placeRowsAnchor(target, anchorRow)
	}
	c.emit(ReasonSelectRows)
}

func (c *Coordinator) placeRowsAnchor(target grid.Position, anchorRow int) {
	if c.model.IsEmpty() {
		c.setCursor(grid.NoPosition, grid.NoPosition)
		return
	}
	anchor := target
	if anchorRow >= 0 && anchorRow < c.dims.RowCount() {
		anchor = grid.Pos(target.Column, anchorRow)
	}
	c.anchor = anchor
	c.setLast(target)
}

// SelectRegion adds the rectangle at (column, row) without disturbing
// other selected cells. Anchor and last-selected cell move to its origin.
func (c *Coordinator) SelectRegion(column, row, width, height int) {
	cols, rows := c.size()
	r := grid.NewRect(column, row, width, height).ClampTo(cols, rows)
	if r.IsEmpty() {
		return
	}
	origin := grid.Pos(r.X, r.Y)
	switch {
	case !c.multiple:
		c.replace(grid.CellRect(origin))
	case c.rowOriented:
		r = c.lineRect(grid.Rows, r.Y, r.Height)
		c.add(r)
		c.region = r
	default:
		c.add(r)
		c.region = r
	}
	c.setCursor(origin, origin)
	c.emit(ReasonSelectRegion)
}

// SelectAll selects every cell. An unset anchor moves to the origin.
func (c *Coordinator) SelectAll() {
	cols, rows := c.size()
	if cols <= 0 || rows <= 0 {
		return
	}
	if !c.multiple {
		p := c.last
		if !p.IsValid() {
			p = grid.Pos(0, 0)
		}
		p = p.Clamp(cols, rows)
		c.replace(grid.CellRect(p))
		c.setCursor(p, p)
		c.emit(ReasonSelectAll)
		return
	}
	c.replace(grid.NewRect(0, 0, cols, rows))
	if !c.anchor.IsValid() {
		c.setCursor(grid.Pos(0, 0), grid.Pos(0, 0))
	}
	c.emit(ReasonSelectAll)
}

// Clear deselects everything and resets the anchor and last-selected cell.
func (c *Coordinator) Clear() {
	c.clearModel()
	c.setCursor(grid.NoPosition, grid.NoPosition)
	c.emit(ReasonClear)
}

// ClearCell deselects a single cell.
func (c *Coordinator) ClearCell(column, row int) {
	c.ClearRect(grid.NewRect(column, row, 1, 1))
}

// ClearRect deselects r. When r covers the last-selected cell, the anchor
// and last-selected cell are reset.
func (c *Coordinator) ClearRect(r grid.Rect) {
	cols, rows := c.size()
	r = r.ClampTo(cols, rows)
	if r.IsEmpty() {
		return
	}
	c.remove(r)
	if c.region.Intersects(r) {
		c.region = grid.Rect{}
	}
	if c.last.IsValid() && r.ContainsCell(c.last.Column, c.last.Row) {
		c.setCursor(grid.NoPosition, grid.NoPosition)
	}
	c.emit(ReasonClear)
}

// SetCursor places the anchor and last-selected cell at (column, row)
// without selecting anything.
func (c *Coordinator) SetCursor(column, row int) {
	p, ok := c.clamp(column, row)
	if !ok {
		return
	}
	c.setCursor(p, p)
	c.emit(ReasonCursor)
}

// MoveSelection moves the last-selected cell in dir using strategy and
// selects the target. steps overrides the strategy's step count when
// non-zero. extend and add behave as in SelectCell, except that add
// without extend keeps the existing selection and adds the target.
//
// When nothing has been selected yet the origin is selected instead of
// moving. Moving in direction None changes nothing but still notifies.
func (c *Coordinator) MoveSelection(dir grid.Direction, strategy traversal.Strategy, steps int, extend, add bool) error {
	cols, rows := c.size()
	if cols <= 0 || rows <= 0 {
		return nil
	}
	if steps != 0 {
		s, err := strategy.WithSteps(steps)
		if err != nil {
			return err
		}
		strategy = s
	}
	if dir == grid.None {
		c.emit(ReasonMove)
		return nil
	}

	var target grid.Position
	if from := c.last; from.IsValid() {
		target = traversal.Move(from.Clamp(cols, rows), dir, strategy, c.dims)
	} else {
		target = grid.Pos(0, 0)
	}
	c.logger.Debug("move", "direction", dir, "strategy", strategy, "from", c.last, "to", target)

	switch {
	case add && !extend && c.multiple:
		r := grid.CellRect(target)
		if c.rowOriented {
			r = c.lineRect(grid.Rows, target.Row, 1)
		}
		c.add(r)
		c.region = r
		c.setCursor(target, target)
	case c.rowOriented:
		c.selectLine(grid.Rows, target, extend, add)
	default:
		c.selectCell(target, extend, add)
	}
	c.emit(ReasonMove)
	return nil
}

// ReplaceRects swaps the whole selection for rects and sets the anchor and
// last-selected cell. Structural adapters use it to publish their rewrite
// as a single notification.
func (c *Coordinator) ReplaceRects(rects []grid.Rect, anchor, last grid.Position, reason string) {
	c.dropModel()
	for _, r := range rects {
		c.add(r)
	}
	c.setCursor(anchor, last)
	c.emit(reason)
}

// Reset clears the selection on behalf of a structural change.
func (c *Coordinator) Reset(reason string) {
	c.clearModel()
	c.setCursor(grid.NoPosition, grid.NoPosition)
	c.emit(reason)
}

// SetMultipleSelection switches between multiple and single selection.
// Switching to single selection keeps only the last-selected cell.
func (c *Coordinator) SetMultipleSelection(allowed bool) {
	if c.multiple == allowed {
		return
	}
	c.multiple = allowed
	if allowed || c.model.IsEmpty() {
		return
	}
	if p := c.last; p.IsValid() && c.model.IsCellSelected(p.Column, p.Row) {
		c.replace(grid.CellRect(p))
		c.setCursor(p, p)
	} else {
		c.clearModel()
		c.setCursor(grid.NoPosition, grid.NoPosition)
	}
	c.emit(ReasonMode)
}

// MultipleSelection reports whether multiple selection is allowed.
func (c *Coordinator) MultipleSelection() bool { return c.multiple }

// SetRowOriented toggles row-oriented mode.
func (c *Coordinator) SetRowOriented(enabled bool) { c.rowOriented = enabled }

// RowOriented reports whether row-oriented mode is on.
func (c *Coordinator) RowOriented() bool { return c.rowOriented }

// Dimensions returns the grid dimensions the coordinator clamps against.
func (c *Coordinator) Dimensions() grid.Dimensions { return c.dims }

// Version increments every time a notification is published.
func (c *Coordinator) Version() uint64 { return c.version }

// Generation changes whenever the selection is discarded and started
// over, by a plain gesture, Clear or Reset. ReplaceRects keeps it, so a
// structural rewrite is still the same selection.
func (c *Coordinator) Generation() uint64 { return c.generation }

// Queries

// Anchor returns the selection anchor or grid.NoPosition.
func (c *Coordinator) Anchor() grid.Position { return c.anchor }

// LastSelected returns the last selected cell or grid.NoPosition.
func (c *Coordinator) LastSelected() grid.Position { return c.last }

// IsEmpty reports whether nothing is selected.
func (c *Coordinator) IsEmpty() bool { return c.model.IsEmpty() }

// SelectedRects returns the stored rectangles.
func (c *Coordinator) SelectedRects() []grid.Rect { return c.model.Rects() }

// SelectedCellPositions returns every selected cell ordered by column,
// then by row.
func (c *Coordinator) SelectedCellPositions() []grid.Position { return c.model.CellPositions() }

// SelectedBounds returns the smallest rectangle enclosing the selection,
// or an empty rectangle when nothing is selected.
func (c *Coordinator) SelectedBounds() grid.Rect { return c.model.Bounds() }

// SelectedCellCount returns the number of selected cells.
func (c *Coordinator) SelectedCellCount() int { return c.model.CellCount() }

// SelectedRowCount returns the number of rows with a selected cell.
func (c *Coordinator) SelectedRowCount() int { return c.model.SelectedRowCount() }

// SelectedRowPositions returns merged spans of rows with a selected cell.
func (c *Coordinator) SelectedRowPositions() []grid.Span { return c.model.SelectedRowSpans() }

// SelectedColumnPositions returns the columns with a selected cell.
func (c *Coordinator) SelectedColumnPositions() []int { return c.model.SelectedColumns() }

// IsCellPositionSelected reports whether (column, row) is selected.
func (c *Coordinator) IsCellPositionSelected(column, row int) bool {
	return c.model.IsCellSelected(column, row)
}

// IsRowPositionSelected reports whether any cell of row is selected.
func (c *Coordinator) IsRowPositionSelected(row int) bool { return c.model.IsRowSelected(row) }

// IsColumnPositionSelected reports whether any cell of column is selected.
func (c *Coordinator) IsColumnPositionSelected(column int) bool {
	return c.model.IsColumnSelected(column)
}

// IsRowPositionFullySelected reports whether every cell of row is selected.
func (c *Coordinator) IsRowPositionFullySelected(row int) bool {
	return c.isLineFull(grid.Rows, row)
}

// IsColumnPositionFullySelected reports whether every cell of column is selected.
func (c *Coordinator) IsColumnPositionFullySelected(column int) bool {
	return c.isLineFull(grid.Columns, column)
}

// FullySelectedRowPositions returns fully selected rows, ascending.
func (c *Coordinator) FullySelectedRowPositions() []int { return c.fullLines(grid.Rows) }

// FullySelectedColumnPositions returns fully selected columns, ascending.
func (c *Coordinator) FullySelectedColumnPositions() []int { return c.fullLines(grid.Columns) }

// internals

func (c *Coordinator) size() (columns, rows int) {
	return c.dims.ColumnCount(), c.dims.RowCount()
}

func (c *Coordinator) clamp(column, row int) (grid.Position, bool) {
	cols, rows := c.size()
	p := grid.Pos(column, row).Clamp(cols, rows)
	return p, p.IsValid()
}

func (c *Coordinator) lineRect(axis grid.Axis, start, count int) grid.Rect {
	cols, rows := c.size()
	if axis == grid.Columns {
		return grid.NewRect(start, 0, count, rows)
	}
	return grid.NewRect(0, start, cols, count)
}

func (c *Coordinator) isLineFull(axis grid.Axis, i int) bool {
	cols, rows := c.size()
	if axis == grid.Columns {
		return i >= 0 && i < cols && c.model.IsColumnFullySelected(i, rows)
	}
	return i >= 0 && i < rows && c.model.IsRowFullySelected(i, cols)
}

func (c *Coordinator) fullLines(axis grid.Axis) []int {
	cols, rows := c.size()
	if axis == grid.Columns {
		return c.model.FullySelectedColumns(cols, rows)
	}
	return c.model.FullySelectedRows(rows, cols)
}

func (c *Coordinator) touch(r grid.Rect) {
	if !r.IsEmpty() {
		c.dirty = append(c.dirty, r)
	}
}

func (c *Coordinator) add(r grid.Rect) {
	c.touch(r)
	c.model.Add(r)
}

func (c *Coordinator) remove(r grid.Rect) {
	c.touch(r)
	c.model.Remove(r)
}

func (c *Coordinator) clearModel() {
	c.dropModel()
	c.generation++
}

func (c *Coordinator) dropModel() {
	for _, r := range c.model.Rects() {
		c.touch(r)
	}
	c.model.Clear()
	c.region = grid.Rect{}
}

func (c *Coordinator) replace(r grid.Rect) {
	c.clearModel()
	c.add(r)
	c.region = r
}

// extendTo makes r the current extension. With keep, earlier gestures
// survive and only the previous extension is replaced.
func (c *Coordinator) extendTo(r grid.Rect, keep bool) {
	if keep {
		if !c.region.IsEmpty() {
			c.remove(c.region)
		}
	} else {
		c.clearModel()
	}
	c.add(r)
	c.region = r
}

func (c *Coordinator) setCursor(anchor, last grid.Position) {
	c.anchor = anchor
	c.setLast(last)
}

func (c *Coordinator) setLast(p grid.Position) {
	if c.last.IsValid() {
		c.touch(grid.CellRect(c.last))
	}
	c.last = p
	if p.IsValid() {
		c.touch(grid.CellRect(p))
	}
}

// emit publishes the accumulated dirty area. The model is consistent by
// the time handlers run, so they may issue further selection commands.
func (c *Coordinator) emit(reason string) {
	var cols, rows []grid.Span
	for _, r := range c.dirty {
		cols = append(cols, r.Columns())
		rows = append(rows, r.Rows())
	}
	c.dirty = c.dirty[:0]
	c.version++

	payload := events.SelectionChanged{
		Columns:      grid.MergeSpans(cols),
		Rows:         grid.MergeSpans(rows),
		Anchor:       c.anchor,
		LastSelected: c.last,
		Reason:       reason,
	}
	c.logger.Debug("selection changed",
		"reason", reason, "anchor", c.anchor, "last", c.last, "rects", len(c.model.Rects()))

	if c.notifier == nil {
		return
	}
	ctx := context.Background()
	if err := c.notifier.Publish(ctx, event.NewEvent(events.TopicSelectionChanged, payload, EventSource)); err != nil {
		c.logger.Warn("selection notification failed", "reason", reason, "error", err)
	}
	if c.rowOriented {
		rowPayload := events.RowSelectionChanged{Rows: payload.Rows, Reason: reason}
		if err := c.notifier.Publish(ctx, event.NewEvent(events.TopicRowSelectionChanged, rowPayload, EventSource)); err != nil {
			c.logger.Warn("row selection notification failed", "reason", reason, "error", err)
		}
	}
}

func lineOf(axis grid.Axis, p grid.Position) int {
	if axis == grid.Columns {
		return p.Column
	}
	return p.Row
}

func withLine(axis grid.Axis, p grid.Position, i int) grid.Position {
	if axis == grid.Columns {
		p.Column = i
	} else {
		p.Row = i
	}
	return p
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
