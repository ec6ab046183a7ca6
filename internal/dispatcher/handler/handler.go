// Package handler defines actions, results and the handler interfaces used
// by the dispatcher.
package handler

import "context"

// Handler processes a specific action or set of actions.
type Handler interface {
	// Handle executes the action and returns a result.
	Handle(ctx context.Context, action Action) Result

	// CanHandle returns true if this handler can process the action.
	CanHandle(actionName string) bool
}

// Func adapts a function to Handler. It accepts every action name.
type Func func(ctx context.Context, action Action) Result

// Handle implements Handler.
func (f Func) Handle(ctx context.Context, action Action) Result {
	if f == nil {
		return Errorf("handler function is nil")
	}
	return f(ctx, action)
}

// CanHandle implements Handler.
func (f Func) CanHandle(string) bool { return true }

// NamespaceHandler handles every action in one namespace, e.g. "selection.*".
type NamespaceHandler interface {
	// Namespace returns the prefix before the first dot.
	Namespace() string

	// CanHandle returns true if the full action name is supported.
	CanHandle(actionName string) bool

	// HandleAction executes the action.
	HandleAction(ctx context.Context, action Action) Result
}

// NewNamespaceAdapter exposes a NamespaceHandler as a Handler.
func NewNamespaceAdapter(h NamespaceHandler) Handler {
	return namespaceAdapter{h: h}
}

type namespaceAdapter struct {
	h NamespaceHandler
}

func (a namespaceAdapter) Handle(ctx context.Context, action Action) Result {
	return a.h.HandleAction(ctx, action)
}

func (a namespaceAdapter) CanHandle(actionName string) bool {
	return a.h.CanHandle(actionName)
}

// BaseNamespaceHandler is a NamespaceHandler built from a table of
// per-action functions.
type BaseNamespaceHandler struct {
	namespace string
	actions   map[string]Func
}

// NewBaseNamespaceHandler creates an empty handler for namespace.
func NewBaseNamespaceHandler(namespace string) *BaseNamespaceHandler {
	return &BaseNamespaceHandler{
		namespace: namespace,
		actions:   make(map[string]Func),
	}
}

// Register binds a full action name to fn.
func (h *BaseNamespaceHandler) Register(actionName string, fn Func) {
	h.actions[actionName] = fn
}

// Namespace implements NamespaceHandler.
func (h *BaseNamespaceHandler) Namespace() string { return h.namespace }

// CanHandle implements NamespaceHandler.
func (h *BaseNamespaceHandler) CanHandle(actionName string) bool {
	_, ok := h.actions[actionName]
	return ok
}

// HandleAction implements NamespaceHandler.
func (h *BaseNamespaceHandler) HandleAction(ctx context.Context, action Action) Result {
	fn, ok := h.actions[action.Name]
	if !ok {
		return Errorf("unknown %s action: %s", h.namespace, action.Name)
	}
	return fn(ctx, action)
}

// Actions returns the registered action names in no particular order.
func (h *BaseNamespaceHandler) Actions() []string {
	names := make([]string, 0, len(h.actions))
	for name := range h.actions {
		names = append(names, name)
	}
	return names
}
