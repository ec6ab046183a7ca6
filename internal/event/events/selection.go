package events

import (
	"github.com/dshills/gridsel/internal/event"
	"github.com/dshills/gridsel/internal/grid"
)

// Selection event topics.
const (
	// TopicSelectionChanged is published after every mutating selection operation.
	TopicSelectionChanged event.Topic = "selection.changed"

	// TopicRowSelectionChanged is published in row-oriented mode in addition
	// to TopicSelectionChanged.
	TopicRowSelectionChanged event.Topic = "selection.rows.changed"

	// TopicSelectionAll matches every selection topic.
	TopicSelectionAll event.Topic = "selection.**"
)

// SelectionChanged describes the row and column position ranges whose
// selection state may have changed.
type SelectionChanged struct {
	// Columns are merged column position spans.
	Columns []grid.Span

	// Rows are merged row position spans.
	Rows []grid.Span

	// Anchor is the selection anchor after the operation.
	Anchor grid.Position

	// LastSelected is the last selected cell after the operation.
	LastSelected grid.Position

	// Reason names the operation, e.g. "selectCell" or "rowsDeleted".
	Reason string
}

// RowSelectionChanged carries only row position ranges.
type RowSelectionChanged struct {
	Rows   []grid.Span
	Reason string
}
