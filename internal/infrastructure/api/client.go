// Package api is the HTTP gateway to the tracker backend. It holds the
// default bearer credential and normalizes every failure into an AppError.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"tasktracker/internal/core/ports"
	"tasktracker/pkg/config"
	apperrors "tasktracker/pkg/errors"
	"tasktracker/pkg/logger"
	"tasktracker/pkg/tracing"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

const maxErrorBody = 1 << 20

// Metrics receives one observation per completed round trip. Status is 0
// when no response was received.
type Metrics interface {
	ObserveRequest(method, route string, status int, duration time.Duration)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string

	mu    sync.RWMutex
	token string

	metrics Metrics
	logger  *zap.SugaredLogger
	reqLog  *logger.ContextLogger
}

var _ ports.Gateway = (*Client)(nil)

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithMetrics(m Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *Client) { c.logger = l }
}

func NewClient(cfg *config.Config, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(cfg.API.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.API.Timeout,
		},
		userAgent: cfg.API.UserAgent,
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.reqLog = logger.NewContextLogger(c.logger.Desugar())
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetCredential installs the default outgoing bearer credential.
func (c *Client) SetCredential(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) ClearCredential() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
}

func (c *Client) Credential() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Do sends one JSON request and decodes a 2xx body into out (when non-nil).
// It never retries.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	route := routeLabel(path)
	ctx, span := tracing.TraceAPIRequest(ctx, method, route)
	defer span.End()

	requestID := uuid.NewString()
	ctx = logger.WithRequestID(ctx, requestID)

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return apperrors.WrapError(err, apperrors.ErrCodeInternal, "failed to encode request", 0)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return apperrors.WrapError(err, apperrors.ErrCodeInternal, "failed to build request", 0)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if token := c.Credential(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	tracing.InjectHeaders(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(method, route, 0, start)
		appErr := apperrors.NewTransportError(err)
		tracing.RecordError(ctx, appErr)
		c.reqLog.LogError(ctx, err, "api request failed", zap.String("method", method), zap.String("route", route))
		return appErr
	}
	defer resp.Body.Close()
	c.observe(method, route, resp.StatusCode, start)

	c.reqLog.LogRequest(ctx, method, route, resp.StatusCode, time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		appErr := errorFromResponse(resp)
		tracing.RecordError(ctx, appErr)
		return appErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		return apperrors.NewDecodeError(err)
	}
	return nil
}

func (c *Client) observe(method, route string, status int, start time.Time) {
	if c.metrics != nil {
		c.metrics.ObserveRequest(method, route, status, time.Since(start))
	}
}

// errorFromResponse reads the body's message, falling back to its error
// field and then to the generic message.
func errorFromResponse(resp *http.Response) *apperrors.AppError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	message := apperrors.FallbackMessage
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err == nil {
		if m, ok := payload["message"].(string); ok && m != "" {
			message = m
		} else if m, ok := payload["error"].(string); ok && m != "" {
			message = m
		}
	}

	return apperrors.NewAppError(apperrors.CodeForStatus(resp.StatusCode), message, resp.StatusCode)
}

// routeLabel collapses resource ids so metrics and spans keep a bounded
// label set: /tasks/abc?x=1 becomes /tasks/:id.
func routeLabel(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i := 1; i < len(parts); i++ {
		switch parts[i-1] {
		case "tasks", "employees":
			parts[i] = ":id"
		}
	}
	return "/" + strings.Join(parts, "/")
}

func resourcePath(collection, id string) string {
	return fmt.Sprintf("/%s/%s", collection, url.PathEscape(id))
}
