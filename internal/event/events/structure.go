package events

import (
	"github.com/dshills/gridsel/internal/event"
	"github.com/dshills/gridsel/internal/grid"
)

// Structural event topics. Row and column variants share the Structural
// payload; the topic carries the axis.
const (
	TopicRowsInserted    event.Topic = "structure.rows.inserted"
	TopicRowsDeleted     event.Topic = "structure.rows.deleted"
	TopicRowsHidden      event.Topic = "structure.rows.hidden"
	TopicRowsShown       event.Topic = "structure.rows.shown"
	TopicRowsRefreshed   event.Topic = "structure.rows.refreshed"
	TopicColumnsInserted event.Topic = "structure.columns.inserted"
	TopicColumnsDeleted  event.Topic = "structure.columns.deleted"
	TopicColumnsHidden   event.Topic = "structure.columns.hidden"
	TopicColumnsShown    event.Topic = "structure.columns.shown"

	// TopicStructureRefreshed is a coarse rebuild of the whole grid
	// (sort, full list replacement).
	TopicStructureRefreshed event.Topic = "structure.refreshed"

	// TopicStructureCleared is published when the grid is emptied.
	TopicStructureCleared event.Topic = "structure.cleared"

	// TopicStructureAll matches every structural topic.
	TopicStructureAll event.Topic = "structure.**"
)

// Kind classifies a structural change.
type Kind uint8

const (
	KindInserted Kind = iota
	KindDeleted
	KindHidden
	KindShown
	KindRefreshed
	KindCleared
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindInserted:
		return "inserted"
	case KindDeleted:
		return "deleted"
	case KindHidden:
		return "hidden"
	case KindShown:
		return "shown"
	case KindRefreshed:
		return "refreshed"
	case KindCleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// Structural describes a change to the rows or columns of the grid.
//
// For deletions and hides, Positions are the affected positions in the
// coordinate space before the change. For insertions and shows they are
// the positions in the space after the change. Indexes are the stable
// indexes of the same rows or columns, in the same order, when known.
type Structural struct {
	Axis      grid.Axis
	Kind      Kind
	Positions []int
	Indexes   []int
}

// StructuralTopic returns the topic for an axis and kind.
func StructuralTopic(axis grid.Axis, kind Kind) event.Topic {
	switch kind {
	case KindRefreshed:
		if axis == grid.Rows {
			return TopicRowsRefreshed
		}
		return TopicStructureRefreshed
	case KindCleared:
		return TopicStructureCleared
	}
	prefix := "structure.rows."
	if axis == grid.Columns {
		prefix = "structure.columns."
	}
	return event.Topic(prefix + kind.String())
}

// NewStructural builds a structural event ready to publish.
func NewStructural(source string, s Structural) event.Event[Structural] {
	return event.NewEvent(StructuralTopic(s.Axis, s.Kind), s, source)
}
