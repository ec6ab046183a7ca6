package dispatcher

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/dshills/gridsel/internal/dispatcher/handler"
	"github.com/dshills/gridsel/internal/logging"
)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the dispatcher logger.
func WithLogger(l *logging.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l.WithComponent("dispatcher")
		}
	}
}

// WithMetrics enables metric collection.
func WithMetrics() Option {
	return func(d *Dispatcher) { d.metrics = NewMetrics() }
}

// Dispatcher routes actions to handlers and coordinates execution.
type Dispatcher struct {
	mu sync.RWMutex

	router  *Router
	logger  *logging.Logger
	metrics *Metrics

	preHooks  []PreDispatchHook
	postHooks []PostDispatchHook
}

// New creates a dispatcher.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		router: NewRouter(),
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch executes an action and returns its result. A missing handler,
// a cancelling hook or a recovered panic all produce error results.
func (d *Dispatcher) Dispatch(ctx context.Context, action handler.Action) handler.Result {
	if action.Name == "" {
		return handler.Error(ErrInvalidAction)
	}
	start := time.Now()

	if !d.runPreHooks(ctx, &action) {
		result := handler.Cancelled()
		result.Error = ErrActionCancelled
		return result
	}

	h := d.router.Route(action.Name)
	var result handler.Result
	if h == nil {
		result = handler.Error(fmt.Errorf("%w: %s", ErrNoHandler, action.Name))
	} else {
		result = d.executeWithRecovery(ctx, h, action)
	}

	d.runPostHooks(ctx, action, &result)

	if result.IsError() {
		d.logger.Warn("action failed", "action", action.String(), "source", action.Source, "error", result.Error)
	} else {
		d.logger.Debug("action dispatched", "action", action.String(), "status", result.Status.String())
	}
	if d.metrics != nil {
		d.metrics.RecordDispatch(action.Name, time.Since(start), result.Status)
	}
	return result
}

// DispatchName is shorthand for dispatching an action built from a name and
// arguments.
func (d *Dispatcher) DispatchName(ctx context.Context, name string, args handler.Args) handler.Result {
	return d.Dispatch(ctx, handler.NewAction(name, args))
}

func (d *Dispatcher) executeWithRecovery(ctx context.Context, h handler.Handler, action handler.Action) (result handler.Result) {
	defer func() {
		if r := recover(); r != nil {
			stack := make([]byte, 4096)
			n := runtime.Stack(stack, false)
			d.logger.Error("handler panic", "action", action.Name, "panic", r, "stack", string(stack[:n]))

			result = handler.Error(fmt.Errorf("%w for %s: %v", ErrPanic, action.Name, r))
			if d.metrics != nil {
				d.metrics.RecordPanic(action.Name)
			}
		}
	}()

	return h.Handle(ctx, action)
}

// RegisterNamespace registers a namespace handler.
func (d *Dispatcher) RegisterNamespace(h handler.NamespaceHandler) {
	d.router.RegisterNamespace(h.Namespace(), h)
}

// RegisterHandler registers a handler for an exact action name.
func (d *Dispatcher) RegisterHandler(actionName string, h handler.Handler) {
	d.router.Register(actionName, h)
}

// RegisterHandlerFunc registers a function for an exact action name.
func (d *Dispatcher) RegisterHandlerFunc(actionName string, fn handler.Func) {
	d.router.Register(actionName, fn)
}

// RegisterPreHook registers a pre-dispatch hook.
func (d *Dispatcher) RegisterPreHook(h PreDispatchHook) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.preHooks = append(d.preHooks, h)
}

// RegisterPostHook registers a post-dispatch hook.
func (d *Dispatcher) RegisterPostHook(h PostDispatchHook) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.postHooks = append(d.postHooks, h)
}

func (d *Dispatcher) runPreHooks(ctx context.Context, action *handler.Action) bool {
	d.mu.RLock()
	hooks := append([]PreDispatchHook(nil), d.preHooks...)
	d.mu.RUnlock()

	for _, h := range hooks {
		if !h.PreDispatch(ctx, action) {
			return false
		}
	}
	return true
}

func (d *Dispatcher) runPostHooks(ctx context.Context, action handler.Action, result *handler.Result) {
	d.mu.RLock()
	hooks := append([]PostDispatchHook(nil), d.postHooks...)
	d.mu.RUnlock()

	for _, h := range hooks {
		h.PostDispatch(ctx, action, result)
	}
}

// Router returns the action router.
func (d *Dispatcher) Router() *Router {
	return d.router
}

// Metrics returns the metrics collector (nil unless enabled).
func (d *Dispatcher) Metrics() *Metrics {
	return d.metrics
}
