// Package event provides the synchronous notification bus that connects
// the selection engine to the grid hosting it.
//
// Events use hierarchical topics with dot notation:
//
//	selection.changed          - selected cells changed
//	selection.rows.changed     - row-oriented selection changed
//	structure.rows.deleted     - rows were removed from the grid
//	structure.columns.hidden   - columns were hidden
//
// Subscriptions accept wildcard patterns: "*" matches one segment and
// "**" matches zero or more segments.
//
// # Delivery
//
// Delivery is synchronous and happens on the publisher's goroutine, in
// priority order. A handler that publishes while another event is being
// delivered does not recurse: the nested event is queued and delivered once
// the current delivery finishes, so handlers always observe a consistent
// post-operation state.
//
// Basic usage:
//
//	bus := event.NewBus()
//	sub, _ := bus.Subscribe(events.TopicSelectionChanged, event.HandlerFunc(
//	    func(ctx context.Context, ev any) error {
//	        changed := ev.(event.Event[events.SelectionChanged])
//	        redraw(changed.Payload.Rows)
//	        return nil
//	    }))
//	defer bus.Unsubscribe(sub)
package event
