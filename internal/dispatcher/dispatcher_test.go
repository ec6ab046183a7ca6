package dispatcher_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/dshills/gridsel/internal/dispatcher"
	"github.com/dshills/gridsel/internal/dispatcher/handler"
)

func TestNew(t *testing.T) {
	d := dispatcher.New()
	if d.Router() == nil {
		t.Error("expected non-nil router")
	}
	if d.Metrics() != nil {
		t.Error("expected nil metrics by default")
	}
	if dispatcher.New(dispatcher.WithMetrics()).Metrics() == nil {
		t.Error("expected non-nil metrics when enabled")
	}
}

func TestDispatchNoHandler(t *testing.T) {
	d := dispatcher.New()

	result := d.Dispatch(context.Background(), handler.Action{Name: "unknown.action"})
	if !errors.Is(result.Error, dispatcher.ErrNoHandler) {
		t.Errorf("error = %v, want ErrNoHandler", result.Error)
	}
	if got := d.Dispatch(context.Background(), handler.Action{}); !errors.Is(got.Error, dispatcher.ErrInvalidAction) {
		t.Errorf("empty action error = %v", got.Error)
	}
}

func TestRegisterNamespace(t *testing.T) {
	d := dispatcher.New()

	bnh := handler.NewBaseNamespaceHandler("grid")
	bnh.Register("grid.down", func(_ context.Context, a handler.Action) handler.Result {
		return handler.SuccessWithMessage("down")
	})
	d.RegisterNamespace(bnh)

	if got := d.DispatchName(context.Background(), "grid.down", nil); got.Message != "down" {
		t.Errorf("result = %v", got)
	}
	if got := d.DispatchName(context.Background(), "grid.up", nil); got.Status != handler.StatusError {
		t.Errorf("unregistered namespaced action status = %v", got.Status)
	}
}

func TestExactHandlerWinsOverNamespace(t *testing.T) {
	d := dispatcher.New()
	bnh := handler.NewBaseNamespaceHandler("grid")
	bnh.Register("grid.copy", func(context.Context, handler.Action) handler.Result {
		return handler.SuccessWithMessage("namespace")
	})
	d.RegisterNamespace(bnh)
	d.RegisterHandlerFunc("grid.copy", func(context.Context, handler.Action) handler.Result {
		return handler.SuccessWithMessage("exact")
	})

	if got := d.DispatchName(context.Background(), "grid.copy", nil); got.Message != "exact" {
		t.Errorf("Message = %q, want exact", got.Message)
	}
}

func TestFallback(t *testing.T) {
	d := dispatcher.New()
	d.Router().SetFallback(handler.Func(func(_ context.Context, a handler.Action) handler.Result {
		return handler.NoOpWithMessage(a.Name)
	}))
	if got := d.DispatchName(context.Background(), "anything", nil); got.Status != handler.StatusNoOp || got.Message != "anything" {
		t.Errorf("fallback result = %v", got)
	}
	if !d.Router().CanRoute("x.y") {
		t.Error("CanRoute() = false with a fallback")
	}
}

func TestPanicRecovery(t *testing.T) {
	d := dispatcher.New(dispatcher.WithMetrics())
	d.RegisterHandlerFunc("boom", func(context.Context, handler.Action) handler.Result {
		panic("kaboom")
	})

	result := d.DispatchName(context.Background(), "boom", nil)
	if !errors.Is(result.Error, dispatcher.ErrPanic) {
		t.Fatalf("error = %v, want ErrPanic", result.Error)
	}
	if snap := d.Metrics().Snapshot(); snap.TotalPanics != 1 || snap.TotalErrors != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestHooks(t *testing.T) {
	d := dispatcher.New()
	var seen []string
	d.RegisterHandlerFunc("grid.count", func(_ context.Context, a handler.Action) handler.Result {
		seen = append(seen, a.String())
		return handler.Success()
	})

	d.RegisterPreHook(dispatcher.PreDispatchFunc(func(_ context.Context, a *handler.Action) bool {
		if a.Args.Bool("block", false) {
			return false
		}
		a.Count = 3
		return true
	}))
	d.RegisterPostHook(dispatcher.PostDispatchFunc(func(_ context.Context, _ handler.Action, r *handler.Result) {
		r.Message = "posted"
	}))

	result := d.DispatchName(context.Background(), "grid.count", nil)
	if result.Message != "posted" {
		t.Errorf("post hook did not run: %v", result)
	}
	if !reflect.DeepEqual(seen, []string{"3grid.count"}) {
		t.Errorf("handler saw %v", seen)
	}

	blocked := d.DispatchName(context.Background(), "grid.count", handler.Args{"block": true})
	if blocked.Status != handler.StatusCancelled || !errors.Is(blocked.Error, dispatcher.ErrActionCancelled) {
		t.Errorf("blocked result = %v", blocked)
	}
	if len(seen) != 1 {
		t.Error("cancelled action reached the handler")
	}
}

func TestMetrics(t *testing.T) {
	d := dispatcher.New(dispatcher.WithMetrics())
	d.RegisterHandlerFunc("a", func(context.Context, handler.Action) handler.Result { return handler.NoOp() })
	d.RegisterHandlerFunc("b", func(context.Context, handler.Action) handler.Result { return handler.Success() })

	for range 3 {
		d.DispatchName(context.Background(), "a", nil)
	}
	d.DispatchName(context.Background(), "b", nil)

	top := d.Metrics().TopActions(1)
	if len(top) != 1 || top[0].Name != "a" || top[0].NoOpCount != 3 {
		t.Errorf("TopActions(1) = %+v", top)
	}
	if got := d.Metrics().Action("b"); got == nil || got.LastStatus != handler.StatusOK {
		t.Errorf("Action(b) = %+v", got)
	}
	d.Metrics().Reset()
	if d.Metrics().Snapshot().TotalDispatches != 0 {
		t.Error("Reset() kept counters")
	}
}

func TestActionNameHelpers(t *testing.T) {
	if got := dispatcher.ExtractActionName("selection.move"); got != "move" {
		t.Errorf("ExtractActionName() = %q", got)
	}
	if got := dispatcher.ExtractActionName("plain"); got != "plain" {
		t.Errorf("ExtractActionName(plain) = %q", got)
	}
	if got := dispatcher.BuildActionName("selection", "copy"); got != "selection.copy" {
		t.Errorf("BuildActionName() = %q", got)
	}
	if got := dispatcher.BuildActionName("", "copy"); got != "copy" {
		t.Errorf("BuildActionName(empty) = %q", got)
	}
}
