// Package eventbus is an in-process publish/subscribe bus for search
// progress events.
package eventbus

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"websift/internal/domain"
)

const queueSize = 64

type delivery struct {
	ctx   context.Context
	event domain.Event
}

// subscription delivers to one handler from its own goroutine, so each
// handler sees events in publish order. queue is never closed; done ends
// the subscription.
type subscription struct {
	id      uint64
	all     bool
	typ     domain.EventType
	handler domain.EventHandler
	queue   chan delivery
	done    chan struct{}
}

// Bus is a goroutine-safe event bus.
type Bus struct {
	mu     sync.RWMutex
	subs   map[uint64]*subscription
	nextID atomic.Uint64
	logger *slog.Logger
	wg     sync.WaitGroup
	closed bool
}

var _ domain.EventBus = (*Bus)(nil)

// New creates an event bus.
func New(logger *slog.Logger) *Bus {
	return &Bus{
		subs:   make(map[uint64]*subscription),
		logger: logger,
	}
}

// Publish queues event for every matching subscriber. When a subscriber's
// queue is full it waits until there is room, the subscriber goes away or
// ctx is done; in the last case the event is dropped for that subscriber.
func (b *Bus) Publish(ctx context.Context, event domain.Event) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	var targets []*subscription
	for _, sub := range b.subs {
		if sub.all || sub.typ == event.Type {
			targets = append(targets, sub)
		}
	}
	b.mu.RUnlock()

	d := delivery{ctx: ctx, event: event}
	for _, sub := range targets {
		select {
		case sub.queue <- d:
		case <-sub.done:
		case <-ctx.Done():
			b.logger.Warn("event dropped", "event", string(event.Type), "error", ctx.Err())
		}
	}
}

// Subscribe registers a handler for a specific event type.
func (b *Bus) Subscribe(eventType domain.EventType, handler domain.EventHandler) func() {
	return b.add(&subscription{typ: eventType, handler: handler})
}

// SubscribeAll registers a handler that receives every event.
func (b *Bus) SubscribeAll(handler domain.EventHandler) func() {
	return b.add(&subscription{all: true, handler: handler})
}

func (b *Bus) add(sub *subscription) func() {
	sub.id = b.nextID.Add(1)
	sub.queue = make(chan delivery, queueSize)
	sub.done = make(chan struct{})

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return func() {}
	}
	b.subs[sub.id] = sub
	b.wg.Add(1)
	b.mu.Unlock()

	go b.run(sub)

	return func() { b.remove(sub.id) }
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(sub.done)
	}
}

// run handles deliveries until the subscription ends, then flushes what is
// already queued.
func (b *Bus) run(sub *subscription) {
	defer b.wg.Done()
	for {
		select {
		case d := <-sub.queue:
			b.deliver(sub, d)
		case <-sub.done:
			for {
				select {
				case d := <-sub.queue:
					b.deliver(sub, d)
				default:
					return
				}
			}
		}
	}
}

func (b *Bus) deliver(sub *subscription, d delivery) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				"event", string(d.event.Type),
				"panic", r,
			)
		}
	}()
	sub.handler(d.ctx, d.event)
}

// Close stops new publishes and waits until every queued event has been
// handled. It is idempotent.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.done)
	}
	b.mu.Unlock()
	b.wg.Wait()
}
