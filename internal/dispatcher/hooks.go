package dispatcher

import (
	"context"

	"github.com/dshills/gridsel/internal/dispatcher/handler"
)

// PreDispatchHook is called before an action is dispatched.
type PreDispatchHook interface {
	// PreDispatch may modify the action. Returning false cancels it.
	PreDispatch(ctx context.Context, action *handler.Action) bool
}

// PostDispatchHook is called after an action is dispatched.
type PostDispatchHook interface {
	// PostDispatch may inspect or modify the result.
	PostDispatch(ctx context.Context, action handler.Action, result *handler.Result)
}

// PreDispatchFunc is a function adapter for PreDispatchHook.
type PreDispatchFunc func(ctx context.Context, action *handler.Action) bool

// PreDispatch implements PreDispatchHook.
func (f PreDispatchFunc) PreDispatch(ctx context.Context, action *handler.Action) bool {
	return f(ctx, action)
}

// PostDispatchFunc is a function adapter for PostDispatchHook.
type PostDispatchFunc func(ctx context.Context, action handler.Action, result *handler.Result)

// PostDispatch implements PostDispatchHook.
func (f PostDispatchFunc) PostDispatch(ctx context.Context, action handler.Action, result *handler.Result) {
	f(ctx, action, result)
}
