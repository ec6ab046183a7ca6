// Package structure provides the dispatcher handler for structural edits of
// the grid: inserting, deleting, hiding, showing and sorting rows and
// columns.
//
// The handler only edits the table. The table publishes structural events
// and the selection follows them through the structure adapter, so every
// action here is observable as a selection change as well.
package structure

import (
	"context"
	"errors"
	"fmt"

	"github.com/dshills/gridsel/internal/dispatcher/handler"
	"github.com/dshills/gridsel/internal/grid/table"
)

// Action names.
const (
	ActionInsertRows    = "structure.insertRows"
	ActionInsertColumns = "structure.insertColumns"
	ActionDeleteRows    = "structure.deleteRows"
	ActionDeleteColumns = "structure.deleteColumns"
	ActionHideRows      = "structure.hideRows"
	ActionHideColumns   = "structure.hideColumns"
	ActionShowRows      = "structure.showRows"
	ActionShowColumns   = "structure.showColumns"
	ActionSort          = "structure.sort"
	ActionClear         = "structure.clear"
	ActionReplace       = "structure.replace"
	ActionSetCell       = "structure.setCell"
)

// ErrNothingTargeted is returned when an action names no lines and no
// lines are fully selected.
var ErrNothingTargeted = errors.New("no rows or columns targeted")

// Grid is the table surface the handler edits.
type Grid interface {
	ColumnCount() int
	RowCount() int
	InsertRows(position, count int)
	InsertColumns(position int, names ...string)
	DeleteRows(positions ...int)
	DeleteColumns(positions ...int)
	HideRows(positions ...int)
	HideColumns(positions ...int)
	ShowRows(indexes ...int)
	ShowColumns(indexes ...int)
	HiddenRows() []int
	HiddenColumns() []int
	SortRows(column int, descending bool)
	Replace(records [][]string)
	Clear()
	SetCell(column, row int, value string)
}

// Handler implements the "structure" namespace.
type Handler struct {
	*handler.BaseNamespaceHandler

	grid Grid
	sel  Targets
}

// Targets reports the lines an action without explicit positions acts on.
type Targets interface {
	FullySelectedRowPositions() []int
	FullySelectedColumnPositions() []int
}

// Option configures a Handler.
type Option func(*Handler)

// WithTargets lets delete and hide default to the fully selected lines.
func WithTargets(t Targets) Option {
	return func(h *Handler) { h.sel = t }
}

// NewHandler creates a handler editing g.
func NewHandler(g Grid, opts ...Option) *Handler {
	h := &Handler{
		BaseNamespaceHandler: handler.NewBaseNamespaceHandler("structure"),
		grid:                 g,
	}
	for _, opt := range opts {
		opt(h)
	}

	h.Register(ActionInsertRows, h.edit(h.insertRows))
	h.Register(ActionInsertColumns, h.edit(h.insertColumns))
	h.Register(ActionDeleteRows, h.edit(h.lines("rows", h.rowTargets, g.DeleteRows)))
	h.Register(ActionDeleteColumns, h.edit(h.lines("columns", h.columnTargets, g.DeleteColumns)))
	h.Register(ActionHideRows, h.edit(h.lines("rows", h.rowTargets, g.HideRows)))
	h.Register(ActionHideColumns, h.edit(h.lines("columns", h.columnTargets, g.HideColumns)))
	h.Register(ActionShowRows, h.edit(h.show("rows", g.HiddenRows, g.ShowRows)))
	h.Register(ActionShowColumns, h.edit(h.show("columns", g.HiddenColumns, g.ShowColumns)))
	h.Register(ActionSort, h.edit(h.sort))
	h.Register(ActionClear, h.edit(func(handler.Action) error {
		g.Clear()
		return nil
	}))
	h.Register(ActionReplace, h.edit(h.replace))
	h.Register(ActionSetCell, h.edit(h.setCell))
	return h
}

// edit wraps fn with the handler result convention.
func (h *Handler) edit(fn func(handler.Action) error) handler.Func {
	return func(_ context.Context, a handler.Action) handler.Result {
		if err := fn(a); err != nil {
			return handler.Error(err)
		}
		return handler.Success().
			WithData("columns", h.grid.ColumnCount()).
			WithData("rows", h.grid.RowCount())
	}
}

func (h *Handler) insertRows(a handler.Action) error {
	count := a.Args.Int("count", max(a.Count, 1))
	if count <= 0 {
		return fmt.Errorf("count must be positive, got %d", count)
	}
	h.grid.InsertRows(a.Args.Int("position", h.grid.RowCount()), count)
	return nil
}

func (h *Handler) insertColumns(a handler.Action) error {
	var names []string
	switch v := a.Args["names"].(type) {
	case []string:
		names = v
	case []any:
		for _, n := range v {
			names = append(names, fmt.Sprint(n))
		}
	case string:
		names = []string{v}
	}
	if len(names) == 0 {
		count := a.Args.Int("count", max(a.Count, 1))
		if count <= 0 {
			return fmt.Errorf("count must be positive, got %d", count)
		}
		names = make([]string, count)
		for i := range names {
			names[i] = table.ColumnLetter(h.grid.ColumnCount() + i)
		}
	}
	h.grid.InsertColumns(a.Args.Int("position", h.grid.ColumnCount()), names...)
	return nil
}

func (h *Handler) rowTargets() []int {
	if h.sel == nil {
		return nil
	}
	return h.sel.FullySelectedRowPositions()
}

func (h *Handler) columnTargets() []int {
	if h.sel == nil {
		return nil
	}
	return h.sel.FullySelectedColumnPositions()
}

// lines builds an action over explicit positions, falling back to the
// fully selected lines.
func (h *Handler) lines(key string, fallback func() []int, apply func(...int)) func(handler.Action) error {
	return func(a handler.Action) error {
		positions := a.Args.Ints(key)
		if len(positions) == 0 {
			positions = fallback()
		}
		if len(positions) == 0 {
			return fmt.Errorf("%w: pass %s or select whole lines", ErrNothingTargeted, key)
		}
		apply(positions...)
		return nil
	}
}

// show builds an action over stable indexes; none shows every hidden line.
func (h *Handler) show(key string, hidden func() []int, apply func(...int)) func(handler.Action) error {
	return func(a handler.Action) error {
		indexes := a.Args.Ints(key)
		if len(indexes) == 0 {
			indexes = hidden()
		}
		apply(indexes...)
		return nil
	}
}

func (h *Handler) sort(a handler.Action) error {
	if !a.Args.Has("column") {
		return errors.New("sort requires a column")
	}
	col := a.Args.Int("column", 0)
	if col < 0 || col >= h.grid.ColumnCount() {
		return fmt.Errorf("column %d out of range", col)
	}
	h.grid.SortRows(col, a.Args.Bool("descending", false))
	return nil
}

func (h *Handler) replace(a handler.Action) error {
	raw, ok := a.Args["records"].([]any)
	if !ok {
		if recs, ok := a.Args["records"].([][]string); ok {
			h.grid.Replace(recs)
			return nil
		}
		return errors.New("replace requires records")
	}
	records := make([][]string, 0, len(raw))
	for i, r := range raw {
		cells, ok := r.([]any)
		if !ok {
			return fmt.Errorf("record %d is not a list", i)
		}
		rec := make([]string, len(cells))
		for j, c := range cells {
			if c != nil {
				rec[j] = fmt.Sprint(c)
			}
		}
		records = append(records, rec)
	}
	h.grid.Replace(records)
	return nil
}

func (h *Handler) setCell(a handler.Action) error {
	if !a.Args.Has("column") || !a.Args.Has("row") {
		return errors.New("setCell requires column and row")
	}
	h.grid.SetCell(a.Args.Int("column", 0), a.Args.Int("row", 0), a.Args.String("value", ""))
	return nil
}
