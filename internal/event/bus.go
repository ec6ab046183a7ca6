package event

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/dshills/gridsel/internal/logging"
)

// Publisher is the publishing side of a Bus. Components that only emit
// notifications depend on this interface.
type Publisher interface {
	Publish(ctx context.Context, event any) error
}

// Stats contains bus counters.
type Stats struct {
	EventsPublished   uint64
	EventsQueued      uint64
	HandlersExecuted  uint64
	HandlerErrors     uint64
	HandlerPanics     uint64
	ActiveSubscribers int
}

// Bus is a synchronous topic-based event bus.
type Bus struct {
	mu     sync.Mutex
	subs   []*Subscription
	order  uint64
	logger *logging.Logger

	// Re-entrancy: events published during delivery are queued.
	dispatching bool
	queue       []queuedEvent

	stats Stats
}

type queuedEvent struct {
	ctx   context.Context
	event any
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithLogger sets the logger used for handler failures.
func WithLogger(l *logging.Logger) BusOption {
	return func(b *Bus) {
		if l != nil {
			b.logger = l.WithComponent("event")
		}
	}
}

// NewBus creates an event bus.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{logger: logging.Discard()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers handler for events whose topic matches pattern.
func (b *Bus) Subscribe(pattern Topic, handler Handler, opts ...SubscriptionOption) (*Subscription, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	if !pattern.IsValid() {
		return nil, ErrInvalidTopic
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.order++
	sub := &Subscription{
		id:       uuid.NewString(),
		pattern:  pattern,
		handler:  handler,
		priority: PriorityNormal,
		order:    b.order,
		active:   true,
	}
	for _, opt := range opts {
		opt(sub)
	}

	b.subs = append(b.subs, sub)
	sort.SliceStable(b.subs, func(i, j int) bool {
		if b.subs[i].priority != b.subs[j].priority {
			return b.subs[i].priority < b.subs[j].priority
		}
		return b.subs[i].order < b.subs[j].order
	})
	return sub, nil
}

// SubscribeFunc is a convenience wrapper around Subscribe.
func (b *Bus) SubscribeFunc(pattern Topic, fn HandlerFunc, opts ...SubscriptionOption) (*Subscription, error) {
	if fn == nil {
		return nil, ErrNilHandler
	}
	return b.Subscribe(pattern, fn, opts...)
}

// Unsubscribe removes a subscription.
func (b *Bus) Unsubscribe(sub *Subscription) error {
	if sub == nil {
		return ErrSubscriptionNotFound
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s == sub {
			s.active = false
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return nil
		}
	}
	return ErrSubscriptionNotFound
}

// Publish delivers event to every matching subscription.
//
// When called from inside a handler the event is queued and delivered
// after the in-flight delivery completes; in that case Publish returns nil
// and handler failures are logged instead of returned.
func (b *Bus) Publish(ctx context.Context, event any) error {
	tp, ok := event.(TopicProvider)
	if !ok || !tp.EventTopic().IsValid() {
		return ErrInvalidEvent
	}

	b.mu.Lock()
	b.stats.EventsPublished++
	if b.dispatching {
		b.stats.EventsQueued++
		b.queue = append(b.queue, queuedEvent{ctx: ctx, event: event})
		b.mu.Unlock()
		return nil
	}
	b.dispatching = true
	b.mu.Unlock()

	err := b.deliver(ctx, tp.EventTopic(), event)

	for {
		b.mu.Lock()
		if len(b.queue) == 0 {
			b.dispatching = false
			b.mu.Unlock()
			break
		}
		next := b.queue[0]
		b.queue = b.queue[1:]
		b.mu.Unlock()

		t := next.event.(TopicProvider).EventTopic()
		if qerr := b.deliver(next.ctx, t, next.event); qerr != nil {
			b.logger.Warn("queued event delivery failed", "topic", t, "error", qerr)
		}
	}
	return err
}

func (b *Bus) deliver(ctx context.Context, t Topic, ev any) error {
	b.mu.Lock()
	targets := make([]*Subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if s.shouldDeliver(t, ev) {
			targets = append(targets, s)
		}
	}
	b.mu.Unlock()

	var errs []error
	for _, sub := range targets {
		if !sub.active {
			continue
		}
		err := b.invoke(ctx, sub, t, ev)

		b.mu.Lock()
		b.stats.HandlersExecuted++
		switch {
		case errors.Is(err, ErrHandlerPanic):
			b.stats.HandlerPanics++
		case err != nil:
			b.stats.HandlerErrors++
		}
		b.mu.Unlock()

		if err != nil {
			b.logger.Warn("handler failed", "topic", t, "subscription", sub.id, "error", err)
			errs = append(errs, err)
			continue
		}
		if sub.once {
			_ = b.Unsubscribe(sub)
		}
	}
	return errors.Join(errs...)
}

func (b *Bus) invoke(ctx context.Context, sub *Subscription, t Topic, ev any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{SubscriptionID: sub.id, Topic: t, Value: r}
		}
	}()
	if herr := sub.handler.Handle(ctx, ev); herr != nil {
		return &HandlerError{SubscriptionID: sub.id, Topic: t, Err: herr}
	}
	return nil
}

// Stats returns a snapshot of the bus counters.
func (b *Bus) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.stats
	s.ActiveSubscribers = len(b.subs)
	return s
}

// String returns a short description of the bus.
func (b *Bus) String() string {
	st := b.Stats()
	return fmt.Sprintf("Bus(subscribers=%d published=%d)", st.ActiveSubscribers, st.EventsPublished)
}
