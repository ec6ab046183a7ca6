// Package selection exposes the selection coordinator as dispatcher actions.
package selection

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/gridsel/internal/dispatcher/handler"
	"github.com/dshills/gridsel/internal/grid"
	"github.com/dshills/gridsel/internal/selection"
	"github.com/dshills/gridsel/internal/traversal"
)

// Action names.
const (
	ActionSelectCell   = "selection.selectCell"
	ActionSelectRow    = "selection.selectRow"
	ActionSelectColumn = "selection.selectColumn"
	ActionSelectRows   = "selection.selectRows"
	ActionSelectRegion = "selection.selectRegion"
	ActionSelectAll    = "selection.selectAll"
	ActionClear        = "selection.clear"
	ActionMove         = "selection.move"
	ActionSetCursor    = "selection.setCursor"
	ActionCopy         = "selection.copy"
)

// ErrCopyUnavailable is returned by selection.copy when no copier is set.
var ErrCopyUnavailable = errors.New("selection: copy unavailable")

// Copier renders the selection to the clipboard.
type Copier interface {
	Copy() (string, error)
}

// Option configures a Handler.
type Option func(*Handler)

// WithStrategy sets the default movement strategy for selection.move.
func WithStrategy(s traversal.Strategy) Option {
	return func(h *Handler) { h.strategy = s }
}

// WithCopier enables selection.copy.
func WithCopier(c Copier) Option {
	return func(h *Handler) { h.copier = c }
}

// Handler implements the "selection" namespace.
type Handler struct {
	*handler.BaseNamespaceHandler

	coord    *selection.Coordinator
	strategy traversal.Strategy
	copier   Copier
}

// NewHandler creates a handler driving coord.
func NewHandler(coord *selection.Coordinator, opts ...Option) *Handler {
	h := &Handler{
		BaseNamespaceHandler: handler.NewBaseNamespaceHandler("selection"),
		coord:                coord,
		strategy:             traversal.Axis,
	}
	for _, opt := range opts {
		opt(h)
	}

	h.Register(ActionSelectCell, h.lineAction(coord.SelectCell))
	h.Register(ActionSelectRow, h.lineAction(coord.SelectRow))
	h.Register(ActionSelectColumn, h.lineAction(coord.SelectColumn))
	h.Register(ActionSelectRows, h.mutation(h.selectRows))
	h.Register(ActionSelectRegion, h.mutation(h.selectRegion))
	h.Register(ActionSelectAll, h.mutation(func(handler.Action) error {
		coord.SelectAll()
		return nil
	}))
	h.Register(ActionClear, h.mutation(h.clear))
	h.Register(ActionMove, h.mutation(h.move))
	h.Register(ActionSetCursor, h.mutation(func(a handler.Action) error {
		coord.SetCursor(a.Args.Int("column", 0), a.Args.Int("row", 0))
		return nil
	}))
	h.Register(ActionCopy, h.copy)
	return h
}

// SetStrategy replaces the default movement strategy.
func (h *Handler) SetStrategy(s traversal.Strategy) { h.strategy = s }

// Strategy returns the default movement strategy.
func (h *Handler) Strategy() traversal.Strategy { return h.strategy }

// mutation wraps fn so the result reports whether the selection changed.
func (h *Handler) mutation(fn func(handler.Action) error) handler.Func {
	return func(_ context.Context, a handler.Action) handler.Result {
		before := h.coord.Version()
		if err := fn(a); err != nil {
			return handler.Error(err)
		}
		if h.coord.Version() == before {
			return handler.NoOp()
		}
		return handler.Success()
	}
}

func (h *Handler) lineAction(fn func(column, row int, extend, add bool)) handler.Func {
	return h.mutation(func(a handler.Action) error {
		col, row, err := requirePosition(a)
		if err != nil {
			return err
		}
		fn(col, row, a.Args.Bool("shift", false), a.Args.Bool("ctrl", false))
		return nil
	})
}

func (h *Handler) selectRows(a handler.Action) error {
	rows := a.Args.Ints("rows")
	if len(rows) == 0 {
		return fmt.Errorf("%s: rows required", a.Name)
	}
	h.coord.SelectRows(a.Args.Int("column", 0), rows,
		a.Args.Bool("shift", false), a.Args.Bool("ctrl", false),
		a.Args.Int("anchorRow", grid.NoSelection))
	return nil
}

func (h *Handler) selectRegion(a handler.Action) error {
	col, row, err := requirePosition(a)
	if err != nil {
		return err
	}
	h.coord.SelectRegion(col, row, a.Args.Int("width", 1), a.Args.Int("height", 1))
	return nil
}

func (h *Handler) clear(a handler.Action) error {
	if !a.Args.Has("column") || !a.Args.Has("row") {
		h.coord.Clear()
		return nil
	}
	col, row := a.Args.Int("column", 0), a.Args.Int("row", 0)
	if a.Args.Has("width") || a.Args.Has("height") {
		h.coord.ClearRect(grid.NewRect(col, row, a.Args.Int("width", 1), a.Args.Int("height", 1)))
		return nil
	}
	h.coord.ClearCell(col, row)
	return nil
}

func (h *Handler) move(a handler.Action) error {
	dir, ok := grid.ParseDirection(a.Args.String("direction", ""))
	if !ok {
		return fmt.Errorf("%s: unknown direction %q", a.Name, a.Args.String("direction", ""))
	}

	s := h.strategy
	if a.Args.Has("scope") || a.Args.Has("cyclic") {
		scope := s.Scope()
		if a.Args.Has("scope") {
			parsed, err := traversal.ParseScope(a.Args.String("scope", ""))
			if err != nil {
				return err
			}
			scope = parsed
		}
		s = s.WithScope(scope, a.Args.Bool("cyclic", s.Cyclic()))
	}

	steps, err := stepsOf(a)
	if err != nil {
		return err
	}
	return h.coord.MoveSelection(dir, s, steps, a.Args.Bool("shift", false), a.Args.Bool("ctrl", false))
}

// stepsOf reads the step count. "end" walks to the boundary; a repeat count
// applies when no explicit steps argument is given. Zero keeps the
// strategy's own count.
func stepsOf(a handler.Action) (int, error) {
	if v, ok := a.Args["steps"].(string); ok && strings.EqualFold(v, "end") {
		return traversal.ToEnd, nil
	}
	if a.Args.Has("steps") {
		n := a.Args.Int("steps", 0)
		if n == 0 {
			return 0, fmt.Errorf("%w: %v", traversal.ErrInvalidStepCount, a.Args["steps"])
		}
		return n, nil
	}
	if a.Count > 0 {
		return a.Count, nil
	}
	return 0, nil
}

func (h *Handler) copy(_ context.Context, _ handler.Action) handler.Result {
	if h.copier == nil {
		return handler.Error(ErrCopyUnavailable)
	}
	text, err := h.copier.Copy()
	if err != nil {
		return handler.Error(err)
	}
	if text == "" {
		return handler.NoOpWithMessage("nothing selected")
	}
	return handler.Success().WithData("text", text)
}

func requirePosition(a handler.Action) (int, int, error) {
	if !a.Args.Has("column") || !a.Args.Has("row") {
		return 0, 0, fmt.Errorf("%s: column and row required", a.Name)
	}
	return a.Args.Int("column", 0), a.Args.Int("row", 0), nil
}
