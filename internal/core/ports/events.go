package ports

import (
	"context"

	"tasktracker/internal/core/domain"
)

// EventHandler receives every event published on the bus.
type EventHandler func(ctx context.Context, ev domain.UpdateEvent) error

type EventPublisher interface {
	Publish(ctx context.Context, ev domain.UpdateEvent)
}

type EventSubscriber interface {
	Subscribe(handler EventHandler) (unsubscribe func())
}

type EventBus interface {
	EventPublisher
	EventSubscriber
}
