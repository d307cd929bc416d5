// Package app assembles the client: configuration, session, API gateway,
// update bus, live channel and the page views built on them.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"tasktracker/internal/core/domain"
	"tasktracker/internal/core/ports"
	"tasktracker/internal/core/services"
	"tasktracker/internal/infrastructure/api"
	"tasktracker/internal/infrastructure/bus"
	"tasktracker/internal/infrastructure/credentials"
	"tasktracker/internal/infrastructure/live"
	"tasktracker/internal/infrastructure/monitoring"
	redisinfra "tasktracker/internal/infrastructure/redis"
	"tasktracker/internal/infrastructure/status"
	"tasktracker/internal/views"
	"tasktracker/pkg/circuitbreaker"
	"tasktracker/pkg/config"
	"tasktracker/pkg/logger"
	"tasktracker/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type options struct {
	logger     *zap.SugaredLogger
	store      ports.CredentialStore
	httpClient *http.Client
	transport  ports.LiveTransport
	now        func() time.Time
}

type Option func(*options)

func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *options) { o.logger = l }
}

// WithCredentialStore overrides the store selected by credentials.backend.
func WithCredentialStore(s ports.CredentialStore) Option {
	return func(o *options) { o.store = s }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithLiveTransport overrides the transport selected by live.transport.
func WithLiveTransport(t ports.LiveTransport) Option {
	return func(o *options) { o.transport = t }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

type App struct {
	cfg       *config.Config
	logger    *zap.SugaredLogger
	zap       *zap.Logger
	tracer    *tracing.TracerProvider
	collector *monitoring.PrometheusCollector
	health    *monitoring.HealthChecker

	redis   *redis.Client
	store   ports.CredentialStore
	client  *api.Client
	bus     *bus.Bus
	bridge  *bus.RedisBridge
	session *services.SessionStore
	channel *live.Channel
	status  *status.Server

	unbind func()

	mu           sync.Mutex
	bridgeCancel context.CancelFunc
	bridgeDone   chan struct{}
	statusErr    <-chan error
	closed       bool
}

// New builds every component from cfg. Nothing talks to the network until
// Start, except the optional Redis connection check.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{cfg: cfg}
	if o.logger != nil {
		a.logger = o.logger
	} else {
		a.zap = logger.NewWithFormat(cfg.Logging.Level, cfg.Logging.Format)
		a.logger = a.zap.Sugar()
	}

	tp, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: cfg.Tracing.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.tracer = tp

	a.collector = monitoring.NewPrometheusCollector()
	a.health = monitoring.NewHealthChecker()

	if cfg.RedisRequired() && (o.store == nil || cfg.Bus.BridgeEnabled) {
		client, err := redisinfra.NewRedisClient(ctx, cfg, a.logger)
		if err != nil {
			a.shutdownTracing()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.redis = client
		a.health.AddRedisCheck(client, 2*time.Second)
	}

	a.store = o.store
	if a.store == nil {
		store, err := credentials.NewStore(cfg, a.redis, a.logger)
		if err != nil {
			a.closeRedis()
			a.shutdownTracing()
			return nil, fmt.Errorf("credential store: %w", err)
		}
		a.store = store
	}
	a.health.AddCredentialStoreCheck(a.store, 2*time.Second)

	clientOpts := []api.Option{api.WithLogger(a.logger)}
	if cfg.Monitoring.PrometheusEnabled {
		clientOpts = append(clientOpts, api.WithMetrics(a.collector))
	}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, api.WithHTTPClient(o.httpClient))
	}
	a.client = api.NewClient(cfg, clientOpts...)

	a.bus = bus.New(a.logger.Named("bus"))
	a.bus.SetObserver(a.collector)
	if a.redis != nil && cfg.Bus.BridgeEnabled {
		a.bridge = bus.NewRedisBridge(a.redis, a.bus, cfg.Bus.Channel, circuitbreaker.Config{
			FailureThreshold: cfg.Bus.RelayFailureThreshold,
			Cooldown:         cfg.Bus.RelayCooldown,
		}, a.logger.Named("bridge"))
	}

	now := o.now
	a.session = services.NewSessionStore(ctx, a.store, a.client,
		services.WithSessionLogger(a.logger.Named("session")),
		services.WithExpiryCheck(func(token string) bool { return credentials.Expired(token, now()) }),
	)

	if cfg.Live.Enabled {
		transport := o.transport
		if transport == nil {
			transport, err = live.NewTransport(cfg)
			if err != nil {
				a.closeRedis()
				a.shutdownTracing()
				return nil, err
			}
		}
		a.channel = live.NewChannel(cfg, transport, a.bus,
			live.WithObserver(a.collector),
			live.WithLogger(a.logger.Named("live")),
		)
		a.channel.OnStateChange(func(s live.State) {
			a.logger.Debugw("live channel state changed", "state", s)
		})
	}

	a.unbind = a.bindSession()

	if cfg.Status.Enabled {
		if cfg.Logging.Level != "debug" {
			gin.SetMode(gin.ReleaseMode)
		}
		deps := status.Deps{Session: a.session, Health: a.health}
		if a.channel != nil {
			deps.Channel = a.channel
		}
		if cfg.Monitoring.PrometheusEnabled {
			deps.Registry = a.collector.Registry()
		}
		a.status = status.NewServer(cfg, deps, a.logger.Named("status"))
	}

	return a, nil
}

// bindSession keeps the live channel in step with the session: one
// instance per accepted credential, none while logged out.
func (a *App) bindSession() func() {
	var (
		mu      sync.Mutex
		current string
	)
	return a.session.Subscribe(func(s domain.Session) {
		a.collector.SessionChanged(s)
		if a.channel == nil {
			return
		}

		mu.Lock()
		defer mu.Unlock()
		switch s.State {
		case domain.SessionAuthenticated:
			if s.Credential == current && a.channel.Active() {
				return
			}
			current = s.Credential
			id := a.channel.Open(s.Credential)
			a.logger.Infow("live channel opened", "instance_id", id, "user_id", s.User.ID)
		case domain.SessionUnauthenticated:
			current = ""
			a.channel.Close()
		}
	})
}

// Start validates the persisted credential and starts the background
// pieces. It returns the session after startup validation.
func (a *App) Start(ctx context.Context) domain.Session {
	sess := a.session.Start(ctx)
	a.logger.Infow("session started", "state", sess.State)

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.bridge != nil && a.bridgeCancel == nil {
		bctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		done := make(chan struct{})
		a.bridgeCancel = cancel
		a.bridgeDone = done
		go func() {
			defer close(done)
			if err := a.bridge.Run(bctx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Warnw("bus bridge stopped", "error", err)
			}
		}()
	}
	if a.status != nil && a.statusErr == nil {
		a.statusErr = a.status.Start()
	}
	return sess
}

// StatusErrors yields the error that stopped the status server. It is nil
// when the server is disabled or not started.
func (a *App) StatusErrors() <-chan error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.statusErr
}

// Close stops the live channel, the bridge and the status server and
// releases connections. The session and persisted credential are kept.
func (a *App) Close(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	cancel, done := a.bridgeCancel, a.bridgeDone
	a.mu.Unlock()

	a.unbind()
	if a.channel != nil {
		a.channel.Close()
	}
	if cancel != nil {
		cancel()
		<-done
	}

	var errs []error
	if a.status != nil && a.statusErr != nil {
		if err := a.status.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("status server: %w", err))
		}
	}
	if err := a.closeRedis(); err != nil {
		errs = append(errs, fmt.Errorf("redis: %w", err))
	}
	if err := a.shutdownTracing(); err != nil {
		errs = append(errs, fmt.Errorf("tracing: %w", err))
	}
	if a.zap != nil {
		_ = a.zap.Sync()
	}
	return errors.Join(errs...)
}

func (a *App) closeRedis() error {
	if a.redis == nil {
		return nil
	}
	return a.redis.Close()
}

func (a *App) shutdownTracing() error {
	if a.tracer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.tracer.Shutdown(ctx)
}

func (a *App) Config() *config.Config { return a.cfg }
func (a *App) Logger() *zap.SugaredLogger { return a.logger }
func (a *App) Client() *api.Client { return a.client }
func (a *App) Bus() *bus.Bus { return a.bus }
func (a *App) Session() *services.SessionStore { return a.session }
func (a *App) Collector() *monitoring.PrometheusCollector { return a.collector }
func (a *App) Health() *monitoring.HealthChecker { return a.health }

// Channel is nil when live updates are disabled.
func (a *App) Channel() *live.Channel { return a.channel }

// Route resolves path for the current session.
func (a *App) Route(path string) services.Decision {
	return services.Route(a.session.Snapshot(), path)
}

func (a *App) Dashboard(ctx context.Context) *views.Dashboard {
	return views.NewDashboard(ctx, a.client, a.bus, a.logger.Named("dashboard"))
}

func (a *App) Employees(ctx context.Context) *views.Employees {
	return views.NewEmployees(ctx, a.client, a.bus, a.session, a.logger.Named("employees"))
}

func (a *App) Tasks(ctx context.Context) *views.Tasks {
	return views.NewTasks(ctx, a.client, a.bus, a.session, a.logger.Named("tasks"))
}

// TaskForm opens the add form, or the edit form when id is set.
func (a *App) TaskForm(ctx context.Context, id string) *views.TaskForm {
	return views.NewTaskForm(ctx, a.client, a.bus, a.session, id, a.logger.Named("task_form"))
}

func (a *App) LoginFlow(ctx context.Context) *views.LoginFlow {
	return views.NewLoginFlow(ctx, a.client, a.session, a.logger.Named("login"))
}

func (a *App) RegisterFlow(ctx context.Context) *views.RegisterFlow {
	return views.NewRegisterFlow(ctx, a.client, a.session, a.logger.Named("register"))
}
