// Package live keeps one supervised push connection per credential and turns
// every decoded payload into a bus event.
package live

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"tasktracker/internal/core/domain"
	"tasktracker/internal/core/ports"
	"tasktracker/pkg/config"
	apperrors "tasktracker/pkg/errors"
	"tasktracker/pkg/logger"
	"tasktracker/pkg/retry"
	"tasktracker/pkg/tracing"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

// Observer receives channel activity for metrics.
type Observer interface {
	ChannelStateChanged(state string)
	Reconnecting()
	MessageDiscarded()
	MessageReceived()
}

type Channel struct {
	transport ports.LiveTransport
	publisher ports.EventPublisher
	backoff   retry.Config
	limiter   *rate.Limiter
	observer  Observer
	logger    *zap.SugaredLogger

	// lifecycle; listeners may read the counters while Open or Close waits
	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	instances atomic.Int64
	active    atomic.Bool

	smu       sync.RWMutex
	state     State
	current   string
	listeners []func(State)
}

type ChannelOption func(*Channel)

func WithObserver(o Observer) ChannelOption {
	return func(c *Channel) { c.observer = o }
}

func WithLogger(l *zap.SugaredLogger) ChannelOption {
	return func(c *Channel) { c.logger = l }
}

// WithBackoff overrides the reconnect schedule derived from config.
func WithBackoff(cfg retry.Config) ChannelOption {
	return func(c *Channel) { c.backoff = cfg }
}

func NewChannel(cfg *config.Config, transport ports.LiveTransport, publisher ports.EventPublisher, opts ...ChannelOption) *Channel {
	perMinute := cfg.Live.ConnectionsPerMinute
	if perMinute <= 0 {
		perMinute = 30
	}

	c := &Channel{
		transport: transport,
		publisher: publisher,
		backoff: retry.Config{
			Enabled:      true,
			MaxAttempts:  cfg.Live.MaxReconnectAttempts,
			InitialDelay: cfg.Live.InitialBackoff,
			MaxDelay:     cfg.Live.MaxBackoff,
			Multiplier:   cfg.Live.BackoffMultiplier,
			Jitter:       true,
		},
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
		logger:  logger.Nop(),
		state:   StateDisconnected,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewTransport builds the transport selected by cfg.Live.Transport.
func NewTransport(cfg *config.Config) (ports.LiveTransport, error) {
	switch cfg.Live.Transport {
	case "sse", "":
		return NewSSETransport(cfg.API.BaseURL, cfg.Live.Path, cfg.Live.MaxMessageSizeBytes, nil), nil
	case "websocket":
		return NewWebSocketTransport(cfg.API.BaseURL, cfg.Live.WebSocketPath, cfg.Live.PingInterval, cfg.Live.MaxMessageSizeBytes), nil
	default:
		return nil, fmt.Errorf("unknown live transport %q", cfg.Live.Transport)
	}
}

func (c *Channel) State() State {
	c.smu.RLock()
	defer c.smu.RUnlock()
	return c.state
}

// OnStateChange registers fn for every later state change.
func (c *Channel) OnStateChange(fn func(State)) {
	c.smu.Lock()
	defer c.smu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Open replaces any running instance with a new one bound to token.
func (c *Channel) Open(token string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()
	done := make(chan struct{})

	c.cancel = cancel
	c.done = done
	c.instances.Add(1)
	c.active.Store(true)
	c.smu.Lock()
	c.current = id
	c.smu.Unlock()

	go c.run(logger.WithInstanceID(ctx, id), id, token, done)
	return id
}

// Close stops the running instance, if any, and waits for it to exit.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *Channel) stopLocked() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
	c.cancel = nil
	c.done = nil
	c.smu.Lock()
	c.current = ""
	c.smu.Unlock()
}

// Instances is the number of instances opened so far.
func (c *Channel) Instances() int {
	return int(c.instances.Load())
}

// Active reports whether an instance is running.
func (c *Channel) Active() bool {
	return c.active.Load()
}

func (c *Channel) CurrentInstance() string {
	c.smu.RLock()
	defer c.smu.RUnlock()
	return c.current
}

func (c *Channel) run(ctx context.Context, id, token string, done chan struct{}) {
	defer func() {
		c.setState(StateDisconnected)
		c.active.Store(false)
		close(done)
	}()

	log := c.logger.With("instance_id", id, "transport", c.transport.Name())
	attempt := 0

	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return
		}

		c.setState(StateConnecting)
		err := c.connectOnce(ctx, id, token, log, &attempt)
		if ctx.Err() != nil {
			return
		}
		if apperrors.HasCode(err, apperrors.ErrCodeAuthentication) || retry.IsPermanent(err) {
			log.Warnw("live updates rejected, not reconnecting", "error", err)
			return
		}

		if c.backoff.MaxAttempts > 0 && attempt >= c.backoff.MaxAttempts {
			log.Warnw("live updates giving up", "attempts", attempt, "error", err)
			return
		}

		c.setState(StateDisconnected)
		delay := retry.Delay(c.backoff, attempt)
		attempt++
		if c.observer != nil {
			c.observer.Reconnecting()
		}
		log.Debugw("live updates reconnecting", "attempt", attempt, "delay", delay, "error", err)

		if err := retry.Wait(ctx, delay); err != nil {
			return
		}
	}
}

// connectOnce holds one connection until it ends. A connection that got as
// far as Connected resets the backoff.
func (c *Channel) connectOnce(ctx context.Context, id, token string, log *zap.SugaredLogger, attempt *int) error {
	spanCtx, span := tracing.TraceLiveConnect(ctx, c.transport.Name(), id)
	stream, err := c.transport.Connect(spanCtx, token)
	if err != nil {
		tracing.RecordError(spanCtx, err)
		span.End()
		return err
	}
	span.End()

	*attempt = 0
	c.setState(StateConnected)
	log.Infow("live updates connected")

	stop := context.AfterFunc(ctx, func() { _ = stream.Close() })
	defer stop()
	defer stream.Close()

	for {
		data, err := stream.Next()
		if errors.Is(err, ErrMessageTooLarge) {
			log.Debugw("discarding oversized update")
			if c.observer != nil {
				c.observer.MessageDiscarded()
			}
			continue
		}
		if err != nil {
			return err
		}
		ev, err := domain.ParseUpdateEvent(data)
		if err != nil {
			log.Debugw("discarding malformed update", "error", err)
			if c.observer != nil {
				c.observer.MessageDiscarded()
			}
			continue
		}
		if c.observer != nil {
			c.observer.MessageReceived()
		}
		c.publisher.Publish(ctx, ev)
	}
}

func (c *Channel) setState(s State) {
	c.smu.Lock()
	if c.state == s {
		c.smu.Unlock()
		return
	}
	c.state = s
	listeners := slices.Clone(c.listeners)
	c.smu.Unlock()

	if c.observer != nil {
		c.observer.ChannelStateChanged(string(s))
	}
	for _, fn := range listeners {
		fn(s)
	}
}
