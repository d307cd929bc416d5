package bus

import (
	"context"
	"errors"
	"sync"
	"testing"

	"tasktracker/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []domain.UpdateEvent
}

func (r *recorder) handle(_ context.Context, ev domain.UpdateEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) all() []domain.UpdateEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.UpdateEvent(nil), r.events...)
}

type countingObserver struct {
	published, failed int
}

func (o *countingObserver) EventPublished(domain.UpdateEvent) { o.published++ }
func (o *countingObserver) HandlerFailed(domain.UpdateEvent)  { o.failed++ }

func sampleEvents() []domain.UpdateEvent {
	return []domain.UpdateEvent{
		{Scope: domain.ScopeTasks, Action: domain.ActionCreated},
		{Scope: domain.ScopeEmployees, Action: domain.ActionUpdated, ID: "e1", Origin: domain.OriginRemote},
		{Scope: domain.ScopeTasks, Action: domain.ActionDeleted, ID: "t9"},
	}
}

func TestBus_EverySubscriberReceivesEveryEventInOrder(t *testing.T) {
	b := New(nil)
	r1, r2, r3 := &recorder{}, &recorder{}, &recorder{}
	b.Subscribe(r1.handle)
	b.Subscribe(r2.handle)
	b.Subscribe(r3.handle)

	for _, ev := range sampleEvents() {
		b.Publish(context.Background(), ev)
	}

	for _, r := range []*recorder{r1, r2, r3} {
		got := r.all()
		require.Len(t, got, 3)
		assert.Equal(t, domain.ScopeTasks, got[0].Scope)
		assert.Equal(t, domain.OriginLocal, got[0].Origin, "missing origin defaults to local")
		assert.Equal(t, domain.OriginRemote, got[1].Origin)
		assert.Equal(t, "t9", got[2].ID)
	}
}

func TestBus_FailingHandlerDoesNotBlockOthers(t *testing.T) {
	b := New(nil)
	obs := &countingObserver{}
	b.SetObserver(obs)

	before, after := &recorder{}, &recorder{}
	b.Subscribe(before.handle)
	b.Subscribe(func(context.Context, domain.UpdateEvent) error { return errors.New("render failed") })
	b.Subscribe(func(context.Context, domain.UpdateEvent) error { panic("boom") })
	b.Subscribe(after.handle)

	b.Publish(context.Background(), domain.UpdateEvent{Scope: "tasks", Action: domain.ActionUpdated})

	assert.Len(t, before.all(), 1)
	assert.Len(t, after.all(), 1)
	assert.Equal(t, 1, obs.published)
	assert.Equal(t, 2, obs.failed)
}

func TestBus_Unsubscribe(t *testing.T) {
	b := New(nil)
	r := &recorder{}
	unsubscribe := b.Subscribe(r.handle)
	assert.Equal(t, 1, b.SubscriberCount())

	b.Publish(context.Background(), domain.UpdateEvent{Scope: "tasks", Action: domain.ActionCreated})
	unsubscribe()
	unsubscribe()
	b.Publish(context.Background(), domain.UpdateEvent{Scope: "tasks", Action: domain.ActionCreated})

	assert.Len(t, r.all(), 1)
	assert.Equal(t, 0, b.SubscriberCount())
}

func TestBus_NestedPublishKeepsOrder(t *testing.T) {
	b := New(nil)
	var order []string
	b.Subscribe(func(ctx context.Context, ev domain.UpdateEvent) error {
		order = append(order, "a:"+ev.ID)
		if ev.ID == "1" {
			b.Publish(ctx, domain.UpdateEvent{Scope: "tasks", Action: domain.ActionUpdated, ID: "2"})
		}
		return nil
	})
	b.Subscribe(func(_ context.Context, ev domain.UpdateEvent) error {
		order = append(order, "b:"+ev.ID)
		return nil
	})

	b.Publish(context.Background(), domain.UpdateEvent{Scope: "tasks", Action: domain.ActionCreated, ID: "1"})

	assert.Equal(t, []string{"a:1", "b:1", "a:2", "b:2"}, order)
}

func TestBus_NestedPublishSkipsLaterSubscribers(t *testing.T) {
	b := New(nil)
	late := &recorder{}
	subscribed := false
	b.Subscribe(func(ctx context.Context, ev domain.UpdateEvent) error {
		if ev.ID == "1" {
			b.Publish(ctx, domain.UpdateEvent{Scope: "tasks", Action: domain.ActionUpdated, ID: "2"})
			if !subscribed {
				subscribed = true
				b.Subscribe(late.handle)
			}
		}
		return nil
	})

	b.Publish(context.Background(), domain.UpdateEvent{Scope: "tasks", Action: domain.ActionCreated, ID: "1"})
	assert.Empty(t, late.all(), "event 2 was published before the late subscriber joined")

	b.Publish(context.Background(), domain.UpdateEvent{Scope: "tasks", Action: domain.ActionDeleted, ID: "3"})
	got := late.all()
	require.Len(t, got, 1)
	assert.Equal(t, "3", got[0].ID)
}

func TestBus_UnsubscribeBeforeQueuedDelivery(t *testing.T) {
	b := New(nil)
	victim := &recorder{}
	var unsubscribe func()
	b.Subscribe(func(ctx context.Context, ev domain.UpdateEvent) error {
		if ev.ID == "1" {
			b.Publish(ctx, domain.UpdateEvent{Scope: "tasks", Action: domain.ActionUpdated, ID: "2"})
			unsubscribe()
		}
		return nil
	})
	unsubscribe = b.Subscribe(victim.handle)

	b.Publish(context.Background(), domain.UpdateEvent{Scope: "tasks", Action: domain.ActionCreated, ID: "1"})

	assert.Empty(t, victim.all())
}

func TestBus_ConcurrentPublishersAllDelivered(t *testing.T) {
	b := New(nil)
	r := &recorder{}
	b.Subscribe(r.handle)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Publish(context.Background(), domain.UpdateEvent{Scope: "tasks", Action: domain.ActionCreated})
		}()
	}
	wg.Wait()

	assert.Eventually(t, func() bool { return len(r.all()) == 20 }, timeout, tick)
}
