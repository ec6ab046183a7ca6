package selection

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/dshills/gridsel/internal/event"
	"github.com/dshills/gridsel/internal/event/events"
	"github.com/dshills/gridsel/internal/grid"
	"github.com/dshills/gridsel/internal/traversal"
)

type recorder struct {
	changes []events.SelectionChanged
	rows    []events.RowSelectionChanged
}

func (r *recorder) Publish(_ context.Context, ev any) error {
	if p, ok := event.Payload[events.SelectionChanged](ev); ok {
		r.changes = append(r.changes, p)
	}
	if p, ok := event.Payload[events.RowSelectionChanged](ev); ok {
		r.rows = append(r.rows, p)
	}
	return nil
}

func (r *recorder) lastChange(t *testing.T) events.SelectionChanged {
	t.Helper()
	if len(r.changes) == 0 {
		t.Fatal("no selection event published")
	}
	return r.changes[len(r.changes)-1]
}

func newTestCoordinator(opts ...Option) (*Coordinator, *recorder) {
	rec := &recorder{}
	opts = append([]Option{WithNotifier(rec)}, opts...)
	return New(grid.Size{Columns: 10, Rows: 10}, opts...), rec
}

func TestSelectCellIdempotent(t *testing.T) {
	c, _ := newTestCoordinator()
	c.SelectCell(3, 4, false, false)
	rects, anchor, last := c.SelectedRects(), c.Anchor(), c.LastSelected()

	c.SelectCell(3, 4, false, false)
	if !reflect.DeepEqual(c.SelectedRects(), rects) {
		t.Errorf("rects = %v, want %v", c.SelectedRects(), rects)
	}
	if c.Anchor() != anchor || c.LastSelected() != last {
		t.Errorf("cursor = %v/%v, want %v/%v", c.Anchor(), c.LastSelected(), anchor, last)
	}
}

func TestCtrlClicksOrderColumnMajor(t *testing.T) {
	tests := []struct {
		name  string
		start func(c *Coordinator)
		want  []grid.Position
	}{
		{
			// The cursor sits on (0,0) but the cell is not selected.
			name:  "origin focused",
			start: func(c *Coordinator) { c.SetCursor(0, 0) },
			want:  []grid.Position{grid.Pos(1, 0), grid.Pos(2, 3), grid.Pos(4, 1), grid.Pos(9, 9)},
		},
		{
			name:  "origin selected",
			start: func(c *Coordinator) { c.SelectCell(0, 0, false, false) },
			want:  []grid.Position{grid.Pos(0, 0), grid.Pos(1, 0), grid.Pos(2, 3), grid.Pos(4, 1), grid.Pos(9, 9)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestCoordinator()
			tt.start(c)
			c.SelectCell(2, 3, false, true)
			c.SelectCell(4, 1, false, true)
			c.SelectCell(1, 0, false, true)
			c.SelectCell(9, 9, false, true)

			if got := c.SelectedCellPositions(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SelectedCellPositions() = %v, want %v", got, tt.want)
			}
			if c.Anchor() != grid.Pos(9, 9) {
				t.Errorf("Anchor() = %v, want (9,9)", c.Anchor())
			}
		})
	}
}

func TestExtendKeepsAnchor(t *testing.T) {
	c, _ := newTestCoordinator()
	c.SelectCell(1, 1, false, false)

	for _, p := range []grid.Position{grid.Pos(3, 4), grid.Pos(0, 0), grid.Pos(8, 2), grid.Pos(1, 1)} {
		c.SelectCell(p.Column, p.Row, true, false)
		if c.Anchor() != grid.Pos(1, 1) {
			t.Fatalf("after extend to %v Anchor() = %v, want (1,1)", p, c.Anchor())
		}
		if c.LastSelected() != p {
			t.Errorf("LastSelected() = %v, want %v", c.LastSelected(), p)
		}
		want := grid.SpanRect(grid.Pos(1, 1), p).Area()
		if got := c.SelectedCellCount(); got != want {
			t.Errorf("extend to %v selected %d cells, want %d", p, got, want)
		}
	}

	c.SelectCell(5, 5, false, false)
	if c.Anchor() != grid.Pos(5, 5) {
		t.Errorf("plain click Anchor() = %v, want (5,5)", c.Anchor())
	}
}

func TestExtendWithoutAnchorActsAsClick(t *testing.T) {
	c, _ := newTestCoordinator()
	c.SelectCell(4, 4, true, false)
	if c.SelectedCellCount() != 1 || c.Anchor() != grid.Pos(4, 4) {
		t.Errorf("cells = %d anchor = %v", c.SelectedCellCount(), c.Anchor())
	}
}

func TestCtrlToggle(t *testing.T) {
	c, _ := newTestCoordinator()
	c.SelectCell(2, 2, false, false)
	c.SelectCell(5, 5, false, true)

	c.SelectCell(2, 2, false, true)
	if c.IsCellPositionSelected(2, 2) {
		t.Error("(2,2) still selected after ctrl toggle")
	}
	if c.Anchor() != grid.Pos(5, 5) || c.LastSelected() != grid.Pos(5, 5) {
		t.Errorf("cursor moved on toggle off: %v/%v", c.Anchor(), c.LastSelected())
	}

	c.SelectCell(5, 5, false, true)
	if !c.IsEmpty() {
		t.Errorf("selection not empty: %v", c.SelectedCellPositions())
	}
	if c.Anchor() != grid.NoPosition || c.LastSelected() != grid.NoPosition {
		t.Errorf("cursor = %v/%v, want none", c.Anchor(), c.LastSelected())
	}
}

func TestShiftCtrlReplacesOnlyLastRegion(t *testing.T) {
	c, _ := newTestCoordinator()
	c.SelectCell(0, 0, false, false)
	c.SelectCell(1, 1, true, false)
	c.SelectCell(5, 5, false, true)

	c.SelectCell(6, 6, true, true)
	if got := c.SelectedCellCount(); got != 8 {
		t.Fatalf("cells after first shift+ctrl = %d, want 8", got)
	}

	c.SelectCell(7, 5, true, true)
	if got := c.SelectedCellCount(); got != 7 {
		t.Errorf("cells after second shift+ctrl = %d, want 7", got)
	}
	if c.IsCellPositionSelected(6, 6) {
		t.Error("(6,6) survived replacement of the previous extension")
	}
	if !c.IsCellPositionSelected(1, 1) {
		t.Error("earlier gesture lost")
	}
	if c.Anchor() != grid.Pos(5, 5) {
		t.Errorf("Anchor() = %v, want (5,5)", c.Anchor())
	}
}

func TestSingleSelectionMode(t *testing.T) {
	c, _ := newTestCoordinator(WithMultipleSelection(false))

	steps := []struct {
		p           grid.Position
		extend, add bool
	}{
		{grid.Pos(1, 1), false, false},
		{grid.Pos(3, 3), false, true},
		{grid.Pos(6, 2), true, false},
		{grid.Pos(6, 2), true, true},
		{grid.Pos(0, 9), false, true},
	}
	for _, s := range steps {
		c.SelectCell(s.p.Column, s.p.Row, s.extend, s.add)
		got := c.SelectedCellPositions()
		if len(got) != 1 || got[0] != s.p {
			t.Fatalf("after %+v selected %v, want only %v", s, got, s.p)
		}
	}

	c.SelectRow(0, 4, false, false)
	if got := c.SelectedRowCount(); got != 1 {
		t.Errorf("SelectedRowCount() = %d, want 1", got)
	}
	c.SelectAll()
	if got := c.SelectedCellCount(); got != 1 {
		t.Errorf("SelectAll in single mode selected %d cells", got)
	}
}

func TestSelectColumnFullySelected(t *testing.T) {
	c, _ := newTestCoordinator()
	c.SelectColumn(3, 7, false, false)

	if !c.IsColumnPositionFullySelected(3) {
		t.Error("column 3 not fully selected")
	}
	if c.IsColumnPositionFullySelected(2) {
		t.Error("column 2 fully selected")
	}
	if c.Anchor() != grid.Pos(3, 7) {
		t.Errorf("Anchor() = %v, want (3,7)", c.Anchor())
	}

	c.SelectColumn(5, 0, false, false)
	if c.IsColumnPositionSelected(3) {
		t.Error("new column click did not replace selection")
	}

	c.SelectColumn(7, 0, true, false)
	if got := c.FullySelectedColumnPositions(); !reflect.DeepEqual(got, []int{5, 6, 7}) {
		t.Errorf("FullySelectedColumnPositions() = %v, want [5 6 7]", got)
	}
}

func TestRowToggleRetreatsAnchor(t *testing.T) {
	c, _ := newTestCoordinator()
	c.SelectRow(0, 2, false, false)
	c.SelectRow(0, 5, true, false)
	if got := c.FullySelectedRowPositions(); !reflect.DeepEqual(got, []int{2, 3, 4, 5}) {
		t.Fatalf("FullySelectedRowPositions() = %v", got)
	}

	c.SelectRow(0, 2, false, true)
	if c.IsRowPositionSelected(2) {
		t.Error("row 2 still selected")
	}
	if c.Anchor().Row != 3 {
		t.Errorf("Anchor() = %v, want row 3", c.Anchor())
	}

	c.SelectRow(0, 5, false, true)
	if c.Anchor().Row != 3 {
		t.Errorf("toggling a row away from the anchor moved it to %v", c.Anchor())
	}

	c.SelectRow(0, 3, false, true)
	if c.Anchor().Row != 4 {
		t.Errorf("Anchor() = %v, want row 4", c.Anchor())
	}
	c.SelectRow(0, 4, false, true)
	if !c.IsEmpty() || c.Anchor() != grid.NoPosition {
		t.Errorf("empty after toggles: IsEmpty=%v Anchor=%v", c.IsEmpty(), c.Anchor())
	}
}

func TestSelectRows(t *testing.T) {
	c, _ := newTestCoordinator()
	c.SelectRows(2, []int{4, 1, 3}, false, false, 1)

	if got := c.FullySelectedRowPositions(); !reflect.DeepEqual(got, []int{1, 3, 4}) {
		t.Errorf("FullySelectedRowPositions() = %v, want [1 3 4]", got)
	}
	if c.Anchor() != grid.Pos(2, 1) {
		t.Errorf("Anchor() = %v, want (2,1)", c.Anchor())
	}
	if c.LastSelected() != grid.Pos(2, 3) {
		t.Errorf("LastSelected() = %v, want (2,3)", c.LastSelected())
	}

	c.SelectRows(2, []int{3, 6}, false, true, -1)
	if got := c.FullySelectedRowPositions(); !reflect.DeepEqual(got, []int{1, 4, 6}) {
		t.Errorf("after ctrl toggle rows = %v, want [1 4 6]", got)
	}

	c.SelectRows(0, []int{8}, true, false, -1)
	if got := c.FullySelectedRowPositions(); !reflect.DeepEqual(got, []int{6, 7, 8}) {
		t.Errorf("after extend rows = %v, want [6 7 8]", got)
	}
}

func TestClearRect(t *testing.T) {
	c, _ := newTestCoordinator()
	c.SelectCell(0, 0, false, false)
	c.SelectCell(3, 3, true, false)

	c.ClearRect(grid.NewRect(0, 0, 1, 4))
	if c.IsCellPositionSelected(0, 2) {
		t.Error("(0,2) still selected")
	}
	if c.Anchor() != grid.Pos(0, 0) || c.LastSelected() != grid.Pos(3, 3) {
		t.Errorf("cursor changed though last cell was not cleared: %v/%v", c.Anchor(), c.LastSelected())
	}

	c.ClearCell(3, 3)
	if c.Anchor() != grid.NoPosition || c.LastSelected() != grid.NoPosition {
		t.Errorf("cursor = %v/%v, want none", c.Anchor(), c.LastSelected())
	}
	if got := c.SelectedCellCount(); got != 16-4-1 {
		t.Errorf("SelectedCellCount() = %d, want 11", got)
	}
}

func TestOutOfRangeIsClamped(t *testing.T) {
	c, _ := newTestCoordinator()
	c.SelectCell(100, -5, false, false)
	if c.LastSelected() != grid.Pos(9, 0) {
		t.Errorf("LastSelected() = %v, want (9,0)", c.LastSelected())
	}
	c.SelectRegion(8, 8, 50, 50)
	if got := c.SelectedCellCount(); got != 5 {
		t.Errorf("SelectedCellCount() = %d, want 5", got)
	}
}

func TestEmptyGridIsNoOp(t *testing.T) {
	rec := &recorder{}
	c := New(grid.Size{Columns: 0, Rows: 5}, WithNotifier(rec))
	c.SelectCell(1, 1, false, false)
	c.SelectRow(0, 0, false, false)
	c.SelectAll()
	c.SelectRegion(0, 0, 2, 2)
	if err := c.MoveSelection(grid.Right, traversal.Table, 0, false, false); err != nil {
		t.Fatalf("MoveSelection() error = %v", err)
	}
	if !c.IsEmpty() || len(rec.changes) != 0 {
		t.Errorf("empty grid changed: empty=%v events=%d", c.IsEmpty(), len(rec.changes))
	}
}

func TestSelectAllAndRegion(t *testing.T) {
	c, _ := newTestCoordinator()
	c.SelectAll()
	if got := c.SelectedCellCount(); got != 100 {
		t.Errorf("SelectedCellCount() = %d, want 100", got)
	}
	if c.Anchor() != grid.Pos(0, 0) {
		t.Errorf("Anchor() = %v, want origin", c.Anchor())
	}

	c.Clear()
	c.SelectCell(9, 9, false, false)
	c.SelectRegion(1, 1, 2, 2)
	if !c.IsCellPositionSelected(9, 9) {
		t.Error("SelectRegion disturbed an earlier selection")
	}
	if got := c.SelectedCellCount(); got != 5 {
		t.Errorf("SelectedCellCount() = %d, want 5", got)
	}
	if c.Anchor() != grid.Pos(1, 1) {
		t.Errorf("Anchor() = %v, want (1,1)", c.Anchor())
	}
}

func TestMoveSelection(t *testing.T) {
	c, rec := newTestCoordinator()

	if err := c.MoveSelection(grid.Right, traversal.Axis, 0, false, false); err != nil {
		t.Fatal(err)
	}
	if c.LastSelected() != grid.Pos(0, 0) {
		t.Fatalf("first move selected %v, want origin", c.LastSelected())
	}

	c.SelectCell(9, 4, false, false)
	_ = c.MoveSelection(grid.Right, traversal.AxisCycle, 0, false, false)
	if got := c.SelectedCellPositions(); !reflect.DeepEqual(got, []grid.Position{grid.Pos(0, 4)}) {
		t.Errorf("cyclic move selected %v, want [(0,4)]", got)
	}

	_ = c.MoveSelection(grid.Down, traversal.Axis, 2, true, false)
	if c.Anchor() != grid.Pos(0, 4) || c.LastSelected() != grid.Pos(0, 6) {
		t.Errorf("extend move cursor = %v/%v", c.Anchor(), c.LastSelected())
	}
	if got := c.SelectedCellCount(); got != 3 {
		t.Errorf("extend move selected %d cells, want 3", got)
	}

	_ = c.MoveSelection(grid.Right, traversal.Axis, traversal.ToEnd, false, true)
	if !c.IsCellPositionSelected(9, 6) || c.SelectedCellCount() != 4 {
		t.Errorf("ctrl move to end: %v", c.SelectedCellPositions())
	}

	before := len(rec.changes)
	_ = c.MoveSelection(grid.None, traversal.Axis, 0, false, false)
	if len(rec.changes) != before+1 {
		t.Error("move None did not notify")
	}
	if c.SelectedCellCount() != 4 {
		t.Error("move None changed the selection")
	}

	if err := c.MoveSelection(grid.Left, traversal.Axis, -3, false, false); !errors.Is(err, traversal.ErrInvalidStepCount) {
		t.Errorf("MoveSelection(steps=-3) error = %v", err)
	}
}

func TestRowOrientedMode(t *testing.T) {
	c, rec := newTestCoordinator(WithRowOriented(true))
	c.SelectCell(4, 2, false, false)

	if !c.IsRowPositionFullySelected(2) {
		t.Error("cell click did not select the full row")
	}
	if len(rec.rows) != 1 {
		t.Fatalf("row events = %d, want 1", len(rec.rows))
	}
	if want := []grid.Span{{Start: 2, End: 3}}; !reflect.DeepEqual(rec.rows[0].Rows, want) {
		t.Errorf("row event spans = %v, want %v", rec.rows[0].Rows, want)
	}

	_ = c.MoveSelection(grid.Down, traversal.Axis, 0, true, false)
	if got := c.FullySelectedRowPositions(); !reflect.DeepEqual(got, []int{2, 3}) {
		t.Errorf("rows after extend move = %v, want [2 3]", got)
	}
}

func TestNotificationSpans(t *testing.T) {
	c, rec := newTestCoordinator()
	c.SelectCell(2, 3, false, false)
	got := rec.lastChange(t)
	if !reflect.DeepEqual(got.Columns, []grid.Span{{Start: 2, End: 3}}) || !reflect.DeepEqual(got.Rows, []grid.Span{{Start: 3, End: 4}}) {
		t.Errorf("first event spans = %v %v", got.Columns, got.Rows)
	}

	c.SelectCell(5, 1, false, false)
	got = rec.lastChange(t)
	if !reflect.DeepEqual(got.Columns, []grid.Span{{Start: 2, End: 3}, {Start: 5, End: 6}}) {
		t.Errorf("Columns = %v", got.Columns)
	}
	if !reflect.DeepEqual(got.Rows, []grid.Span{{Start: 1, End: 2}, {Start: 3, End: 4}}) {
		t.Errorf("Rows = %v", got.Rows)
	}
	if got.Reason != ReasonSelectCell || got.Anchor != grid.Pos(5, 1) {
		t.Errorf("Reason = %q Anchor = %v", got.Reason, got.Anchor)
	}
}

func TestReentrantHandlerThroughBus(t *testing.T) {
	bus := event.NewBus()
	c := New(grid.Size{Columns: 5, Rows: 5}, WithNotifier(bus))

	var seen []string
	_, err := bus.Subscribe(events.TopicSelectionChanged, event.AsHandler(
		func(_ context.Context, ev event.Event[events.SelectionChanged]) error {
			seen = append(seen, ev.Payload.Reason)
			if ev.Payload.Reason == ReasonSelectCell {
				c.SelectAll()
			}
			return nil
		}))
	if err != nil {
		t.Fatal(err)
	}

	c.SelectCell(1, 1, false, false)
	if want := []string{ReasonSelectCell, ReasonSelectAll}; !reflect.DeepEqual(seen, want) {
		t.Errorf("reasons = %v, want %v", seen, want)
	}
	if c.SelectedCellCount() != 25 {
		t.Errorf("SelectedCellCount() = %d, want 25", c.SelectedCellCount())
	}
}

func TestSetMultipleSelection(t *testing.T) {
	c, _ := newTestCoordinator()
	c.SelectCell(0, 0, false, false)
	c.SelectCell(3, 3, true, false)

	c.SetMultipleSelection(false)
	if got := c.SelectedCellPositions(); !reflect.DeepEqual(got, []grid.Position{grid.Pos(3, 3)}) {
		t.Errorf("SelectedCellPositions() = %v, want [(3,3)]", got)
	}
	if c.MultipleSelection() {
		t.Error("MultipleSelection() = true")
	}
}

func TestReplaceRectsAndReset(t *testing.T) {
	c, rec := newTestCoordinator()
	c.ReplaceRects([]grid.Rect{grid.NewRect(0, 2, 10, 1)}, grid.Pos(0, 2), grid.Pos(0, 2), "rowsDeleted")
	if !c.IsRowPositionFullySelected(2) || rec.lastChange(t).Reason != "rowsDeleted" {
		t.Errorf("ReplaceRects not applied: %v", c.SelectedRects())
	}

	v := c.Version()
	c.Reset("refreshed")
	if !c.IsEmpty() || c.Anchor() != grid.NoPosition || c.Version() != v+1 {
		t.Error("Reset did not clear the selection")
	}
}

func TestGeneration(t *testing.T) {
	c, _ := newTestCoordinator()
	g := c.Generation()

	c.SelectCell(1, 1, false, false)
	if c.Generation() == g {
		t.Fatal("plain click kept the generation")
	}
	g = c.Generation()
	c.SelectCell(2, 2, false, true)
	c.SelectRow(0, 5, false, true)
	c.ReplaceRects([]grid.Rect{grid.NewRect(0, 0, 2, 2)}, grid.Pos(0, 0), grid.Pos(1, 1), "rowsInserted")
	if c.Generation() != g {
		t.Errorf("additions and rewrites changed the generation")
	}
	c.Clear()
	if c.Generation() == g {
		t.Error("Clear kept the generation")
	}
}
