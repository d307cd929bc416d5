// Package status serves a small local HTTP surface for probing a running
// client: health, session and live channel state, and prometheus metrics.
package status

import (
	"context"
	"errors"
	"net/http"
	"time"

	"tasktracker/internal/core/domain"
	"tasktracker/internal/core/services"
	"tasktracker/internal/infrastructure/live"
	"tasktracker/internal/infrastructure/middleware"
	"tasktracker/internal/infrastructure/monitoring"
	"tasktracker/pkg/config"
	apperrors "tasktracker/pkg/errors"
	"tasktracker/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type SessionSource interface {
	Snapshot() domain.Session
}

type ChannelSource interface {
	State() live.State
	Instances() int
	Active() bool
	CurrentInstance() string
}

// Deps are the components the server reports on. Channel, Health and
// Registry may be nil.
type Deps struct {
	Session  SessionSource
	Channel  ChannelSource
	Health   *monitoring.HealthChecker
	Registry *prometheus.Registry
}

type Server struct {
	router  *gin.Engine
	httpSrv *http.Server
	deps    Deps
	started time.Time
	logger  *zap.SugaredLogger
}

type sessionView struct {
	State domain.SessionState `json:"state"`
	User  *domain.UserProfile `json:"user"`
}

type channelView struct {
	State      string `json:"state"`
	Active     bool   `json:"active"`
	Instances  int    `json:"instances"`
	InstanceID string `json:"instance_id,omitempty"`
}

// userContext tags the request context with the signed-in user for logs.
func (s *Server) userContext(c *gin.Context) {
	if user := s.deps.Session.Snapshot().User; user != nil {
		c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), user.ID))
	}
	c.Next()
}

func NewServer(cfg *config.Config, deps Deps, log *zap.SugaredLogger) *Server {
	s := &Server{
		router:  gin.New(),
		deps:    deps,
		started: time.Now(),
		logger:  log,
	}

	s.router.Use(
		middleware.RecoveryMiddleware(log),
		middleware.RequestIDMiddleware(log),
		s.userContext,
		middleware.TracingMiddleware(),
		middleware.RateLimitMiddleware(cfg.Status.RequestsPerSecond, cfg.Status.Burst),
		middleware.ErrorHandlerMiddleware(log),
	)

	s.router.GET("/health", s.health)
	s.router.GET("/status", s.status)
	s.router.GET("/route", s.route)
	if deps.Registry != nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))
	}

	s.httpSrv = &http.Server{
		Addr:              cfg.Status.Address,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves in the background. The returned channel yields the error
// that stopped the server, if any, and is closed afterwards.
func (s *Server) Start() <-chan error {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		s.logger.Infow("status server listening", "address", s.httpSrv.Addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()
	return errc
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) health(c *gin.Context) {
	if s.deps.Health == nil {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "uptime": time.Since(s.started).String()})
		return
	}

	result := s.deps.Health.CheckAll(c.Request.Context())
	code := http.StatusOK
	if result.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":    result.Status,
		"checks":    result.Checks,
		"timestamp": result.Timestamp,
		"uptime":    time.Since(s.started).String(),
	})
}

func (s *Server) status(c *gin.Context) {
	sess := s.deps.Session.Snapshot()

	ch := channelView{State: "disabled"}
	if s.deps.Channel != nil {
		ch = channelView{
			State:      string(s.deps.Channel.State()),
			Active:     s.deps.Channel.Active(),
			Instances:  s.deps.Channel.Instances(),
			InstanceID: s.deps.Channel.CurrentInstance(),
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"session": sessionView{State: sess.State, User: sess.User},
		"channel": ch,
		"uptime":  time.Since(s.started).String(),
	})
}

// route reports what the view router decides for ?path= under the current
// session.
func (s *Server) route(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		_ = c.Error(apperrors.NewValidationError("path is required"))
		return
	}

	d := services.Route(s.deps.Session.Snapshot(), path)
	c.JSON(http.StatusOK, d)
}
