package monitoring

import (
	"strconv"
	"time"

	"tasktracker/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusCollector records client-side metrics: API round trips, live
// channel health and bus traffic.
type PrometheusCollector struct {
	registry *prometheus.Registry

	// API
	apiRequestsTotal   *prometheus.CounterVec
	apiRequestDuration *prometheus.HistogramVec

	// Live channel
	channelState      *prometheus.GaugeVec
	reconnectsTotal   prometheus.Counter
	discardedMessages prometheus.Counter
	receivedMessages  prometheus.Counter

	// Bus
	busEventsTotal     *prometheus.CounterVec
	busHandlerFailures *prometheus.CounterVec
	sessionTransitions *prometheus.CounterVec
}

// NewPrometheusCollector registers all metrics on a private registry so that
// several collectors can coexist in one process.
func NewPrometheusCollector() *PrometheusCollector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &PrometheusCollector{
		registry: reg,

		apiRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tasktracker_api_requests_total",
			Help: "Total number of API requests by method, route and status",
		}, []string{"method", "route", "status"}),

		apiRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tasktracker_api_request_duration_seconds",
			Help:    "Duration of API requests",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"method", "route"}),

		channelState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tasktracker_live_channel_state",
			Help: "Live update channel state (1 for the current state)",
		}, []string{"state"}),

		reconnectsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "tasktracker_live_reconnects_total",
			Help: "Total number of live channel reconnection attempts",
		}),

		discardedMessages: factory.NewCounter(prometheus.CounterOpts{
			Name: "tasktracker_live_discarded_messages_total",
			Help: "Pushed messages dropped because they could not be decoded",
		}),

		receivedMessages: factory.NewCounter(prometheus.CounterOpts{
			Name: "tasktracker_live_received_messages_total",
			Help: "Pushed messages decoded and published on the bus",
		}),

		busEventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tasktracker_bus_events_total",
			Help: "Events delivered through the update bus",
		}, []string{"scope", "action", "origin"}),

		busHandlerFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tasktracker_bus_handler_failures_total",
			Help: "Bus subscribers that returned an error or panicked",
		}, []string{"scope"}),

		sessionTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tasktracker_session_transitions_total",
			Help: "Session state transitions by target state",
		}, []string{"state"}),
	}
}

// Registry exposes the collector's registry for the /metrics handler.
func (p *PrometheusCollector) Registry() *prometheus.Registry {
	return p.registry
}

func (p *PrometheusCollector) ObserveRequest(method, route string, status int, duration time.Duration) {
	p.apiRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.apiRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (p *PrometheusCollector) ChannelStateChanged(state string) {
	p.channelState.Reset()
	p.channelState.WithLabelValues(state).Set(1)
}

func (p *PrometheusCollector) Reconnecting() {
	p.reconnectsTotal.Inc()
}

func (p *PrometheusCollector) MessageDiscarded() {
	p.discardedMessages.Inc()
}

func (p *PrometheusCollector) MessageReceived() {
	p.receivedMessages.Inc()
}

func (p *PrometheusCollector) EventPublished(ev domain.UpdateEvent) {
	origin := string(ev.Origin)
	if origin == "" {
		origin = string(domain.OriginLocal)
	}
	p.busEventsTotal.WithLabelValues(ev.Scope, string(ev.Action), origin).Inc()
}

func (p *PrometheusCollector) HandlerFailed(ev domain.UpdateEvent) {
	p.busHandlerFailures.WithLabelValues(ev.Scope).Inc()
}

func (p *PrometheusCollector) SessionChanged(s domain.Session) {
	p.sessionTransitions.WithLabelValues(string(s.State)).Inc()
}
