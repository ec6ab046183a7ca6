package selection

import (
	"context"

	"github.com/dshills/gridsel/internal/event"
	"github.com/dshills/gridsel/internal/event/events"
	"github.com/dshills/gridsel/internal/grid"
)

// RowIdentity returns a stable identity for the row at a visible position.
// ok is false when the row has no identity.
type RowIdentity func(row int) (id string, ok bool)

// rowMark remembers a cursor by row identity.
type rowMark struct {
	id     string
	column int
	valid  bool
}

// IdentityPreserving decorates a Coordinator so that a structural refresh
// relocates selected rows by identity instead of clearing them.
//
// The decorator keeps a shadow of the selection keyed by row identity and
// refreshes it after every selection change; it must be subscribed to
// selection events (see Attach) for the shadow to follow the selection.
type IdentityPreserving struct {
	*Coordinator

	identify RowIdentity
	shadow   map[string][]grid.Span
	order    []string
	anchor   rowMark
	last     rowMark
}

// NewIdentityPreserving wraps c.
func NewIdentityPreserving(c *Coordinator, identify RowIdentity) *IdentityPreserving {
	ip := &IdentityPreserving{Coordinator: c, identify: identify}
	ip.Snapshot()
	return ip
}

// Attach subscribes the decorator to selection changes on bus.
func (ip *IdentityPreserving) Attach(bus *event.Bus) (*event.Subscription, error) {
	return bus.Subscribe(events.TopicSelectionChanged, ip, event.WithPriority(event.PriorityCritical))
}

// Handle implements event.Handler.
func (ip *IdentityPreserving) Handle(_ context.Context, ev any) error {
	if _, ok := event.Payload[events.SelectionChanged](ev); ok {
		ip.Snapshot()
	}
	return nil
}

// Snapshot records the current selection by row identity.
func (ip *IdentityPreserving) Snapshot() {
	ip.shadow = make(map[string][]grid.Span)
	ip.order = ip.order[:0]
	for _, r := range ip.model.Rects() {
		for row := r.Y; row < r.Bottom(); row++ {
			id, ok := ip.identify(row)
			if !ok {
				continue
			}
			if _, seen := ip.shadow[id]; !seen {
				ip.order = append(ip.order, id)
			}
			ip.shadow[id] = append(ip.shadow[id], r.Columns())
		}
	}
	for id, spans := range ip.shadow {
		ip.shadow[id] = grid.MergeSpans(spans)
	}
	ip.anchor = ip.mark(ip.Anchor())
	ip.last = ip.mark(ip.LastSelected())
}

func (ip *IdentityPreserving) mark(p grid.Position) rowMark {
	if !p.IsValid() {
		return rowMark{}
	}
	id, ok := ip.identify(p.Row)
	if !ok {
		return rowMark{}
	}
	return rowMark{id: id, column: p.Column, valid: true}
}

// TrackedRows returns the number of row identities in the shadow.
func (ip *IdentityPreserving) TrackedRows() int { return len(ip.shadow) }

// Refresh relocates the recorded rows after the grid was rebuilt. Rows
// whose identity no longer exists are dropped.
func (ip *IdentityPreserving) Refresh(reason string) {
	cols, rows := ip.size()
	wanted := make(map[string]bool, len(ip.shadow)+2)
	for id := range ip.shadow {
		wanted[id] = true
	}
	for _, m := range []rowMark{ip.anchor, ip.last} {
		if m.valid {
			wanted[m.id] = true
		}
	}

	where := make(map[string]int, len(wanted))
	for row := 0; row < rows && len(where) < len(wanted); row++ {
		if id, ok := ip.identify(row); ok && wanted[id] {
			where[id] = row
		}
	}

	var rects []grid.Rect
	for _, id := range ip.order {
		row, ok := where[id]
		if !ok {
			continue
		}
		for _, sp := range ip.shadow[id] {
			r := grid.NewRect(sp.Start, row, sp.Len(), 1).ClampTo(cols, rows)
			if !r.IsEmpty() {
				rects = append(rects, r)
			}
		}
	}

	locate := func(m rowMark) grid.Position {
		if !m.valid {
			return grid.NoPosition
		}
		row, ok := where[m.id]
		if !ok {
			return grid.NoPosition
		}
		return grid.Pos(m.column, row).Clamp(cols, rows)
	}
	anchor, last := locate(ip.anchor), locate(ip.last)
	if len(rects) == 0 {
		anchor, last = grid.NoPosition, grid.NoPosition
	}
	ip.logger.Debug("relocated selection by identity", "rows", len(ip.shadow), "rects", len(rects))
	ip.ReplaceRects(rects, anchor, last, reason)
	ip.Snapshot()
}
