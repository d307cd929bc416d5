// Package bus is the in-process Update Broadcast Bus. Every subscriber sees
// every event in publish order; a failing subscriber never blocks the rest.
package bus

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"tasktracker/internal/core/domain"
	"tasktracker/internal/core/ports"

	"go.uber.org/zap"
)

// Observer is notified about bus activity for metrics.
type Observer interface {
	EventPublished(ev domain.UpdateEvent)
	HandlerFailed(ev domain.UpdateEvent)
}

type subscriber struct {
	id      uint64
	handler ports.EventHandler
	removed atomic.Bool
}

// queued carries the subscribers registered when the event was published.
type queued struct {
	ctx  context.Context
	ev   domain.UpdateEvent
	subs []*subscriber
}

type Bus struct {
	mu     sync.RWMutex
	subs   []*subscriber
	nextID uint64

	// delivery queue; whoever finds it idle drains it, so nested and
	// concurrent publishes keep a single global order.
	qmu      sync.Mutex
	queue    []queued
	draining bool

	observer Observer
	logger   *zap.SugaredLogger
}

func New(logger *zap.SugaredLogger) *Bus {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Bus{logger: logger}
}

// SetObserver installs a metrics observer.
func (b *Bus) SetObserver(o Observer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observer = o
}

// Subscribe registers handler for all future events.
func (b *Bus) Subscribe(handler ports.EventHandler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, &subscriber{id: id, handler: handler})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			s.removed.Store(true)
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// SubscriberCount reports the number of live subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Publish delivers ev to every subscriber registered now. Events without an
// origin are treated as local. When called from inside a handler, or while
// another goroutine is delivering, ev is queued behind the events already
// pending. A subscriber that unsubscribes before delivery is skipped.
func (b *Bus) Publish(ctx context.Context, ev domain.UpdateEvent) {
	if ev.Origin == "" {
		ev.Origin = domain.OriginLocal
	}

	b.mu.RLock()
	subs := make([]*subscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	b.qmu.Lock()
	b.queue = append(b.queue, queued{ctx: ctx, ev: ev, subs: subs})
	if b.draining {
		b.qmu.Unlock()
		return
	}
	b.draining = true
	b.qmu.Unlock()

	for {
		b.qmu.Lock()
		if len(b.queue) == 0 {
			b.draining = false
			b.qmu.Unlock()
			return
		}
		next := b.queue[0]
		b.queue = b.queue[1:]
		b.qmu.Unlock()

		b.deliver(next)
	}
}

func (b *Bus) deliver(q queued) {
	ctx, ev, subs := q.ctx, q.ev, q.subs

	b.mu.RLock()
	observer := b.observer
	b.mu.RUnlock()

	if observer != nil {
		observer.EventPublished(ev)
	}

	b.logger.Debugw("publishing update event",
		"scope", ev.Scope,
		"action", ev.Action,
		"id", ev.ID,
		"origin", ev.Origin,
		"subscribers", len(subs),
	)

	for _, s := range subs {
		if s.removed.Load() {
			continue
		}
		if err := b.call(ctx, s.handler, ev); err != nil {
			b.logger.Warnw("update handler failed",
				"scope", ev.Scope,
				"action", ev.Action,
				"error", err,
			)
			if observer != nil {
				observer.HandlerFailed(ev)
			}
		}
	}
}

func (b *Bus) call(ctx context.Context, h ports.EventHandler, ev domain.UpdateEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, ev)
}
