package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tasktracker/internal/core/domain"
	"tasktracker/pkg/circuitbreaker"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// envelope is the wire form of an update relayed between client processes.
type envelope struct {
	InstanceID string             `json:"instance_id"`
	Timestamp  time.Time          `json:"timestamp"`
	Event      domain.UpdateEvent `json:"event"`
}

// RedisBridge joins the buses of several client processes through a Redis
// pub/sub channel: locally published events go out, events from other
// instances come back in as remote.
type RedisBridge struct {
	client     *redis.Client
	bus        *Bus
	channel    string
	instanceID string
	logger     *zap.SugaredLogger
	breaker    *circuitbreaker.Breaker
	publish    func(ctx context.Context, payload []byte) error
}

// NewRedisBridge relays through channel. Outgoing publishes go through a
// breaker built from cb so a dead Redis is not hit once per local event.
func NewRedisBridge(client *redis.Client, bus *Bus, channel string, cb circuitbreaker.Config, logger *zap.SugaredLogger) *RedisBridge {
	rb := &RedisBridge{
		client:     client,
		bus:        bus,
		channel:    channel,
		instanceID: uuid.NewString(),
		logger:     logger,
		breaker:    circuitbreaker.New(cb),
	}
	rb.publish = func(ctx context.Context, payload []byte) error {
		return rb.client.Publish(ctx, rb.channel, payload).Err()
	}
	rb.breaker.OnStateChange(func(from, to circuitbreaker.State) {
		rb.logger.Warnw("bus bridge relay state changed", "from", from.String(), "to", to.String())
	})
	return rb
}

func (rb *RedisBridge) InstanceID() string {
	return rb.instanceID
}

// Run relays in both directions until ctx is done.
func (rb *RedisBridge) Run(ctx context.Context) error {
	pubsub := rb.client.Subscribe(ctx, rb.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", rb.channel, err)
	}

	unsubscribe := rb.bus.Subscribe(func(ctx context.Context, ev domain.UpdateEvent) error {
		if ev.Origin != domain.OriginLocal {
			return nil
		}
		return rb.forward(ctx, ev)
	})
	defer unsubscribe()

	rb.logger.Infow("bus bridge started", "channel", rb.channel, "instance_id", rb.instanceID)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			ev, own, err := decodeEnvelope([]byte(msg.Payload), rb.instanceID)
			if err != nil {
				rb.logger.Debugw("dropping malformed bridge payload", "error", err)
				continue
			}
			if own {
				continue
			}
			rb.bus.Publish(ctx, ev)
		}
	}
}

func (rb *RedisBridge) forward(ctx context.Context, ev domain.UpdateEvent) error {
	data, err := encodeEnvelope(rb.instanceID, ev)
	if err != nil {
		return err
	}
	err = rb.breaker.Do(func() error { return rb.publish(ctx, data) })
	switch {
	case errors.Is(err, circuitbreaker.ErrOpen):
		rb.logger.Debugw("bus bridge relay suspended, event kept local", "scope", ev.Scope, "action", ev.Action)
		return nil
	case err != nil:
		return fmt.Errorf("failed to relay event: %w", err)
	}
	return nil
}

func encodeEnvelope(instanceID string, ev domain.UpdateEvent) ([]byte, error) {
	data, err := json.Marshal(envelope{InstanceID: instanceID, Timestamp: time.Now().UTC(), Event: ev})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return data, nil
}

// decodeEnvelope returns the carried event marked remote, and whether it was
// sent by selfID.
func decodeEnvelope(data []byte, selfID string) (domain.UpdateEvent, bool, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return domain.UpdateEvent{}, false, err
	}
	if err := env.Event.Validate(); err != nil {
		return domain.UpdateEvent{}, false, err
	}
	env.Event.Origin = domain.OriginRemote
	return env.Event, env.InstanceID == selfID, nil
}
