// Package dispatcher routes named actions to handlers.
//
// Actions are namespaced ("selection.move"). The router resolves the prefix
// before the first dot to a NamespaceHandler; exact-name handlers and a
// fallback cover the rest. Dispatch runs pre-hooks, the handler with panic
// recovery, then post-hooks, and records per-action metrics.
//
// Key bindings, replay scenarios and scripts all drive the selection through
// the dispatcher, so the same command surface is exercised everywhere.
package dispatcher
