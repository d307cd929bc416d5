package monitoring

import (
	"testing"
	"time"

	"tasktracker/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusCollector_APIRequests(t *testing.T) {
	c := NewPrometheusCollector()
	c.ObserveRequest("GET", "/tasks", 200, 20*time.Millisecond)
	c.ObserveRequest("GET", "/tasks", 200, 30*time.Millisecond)
	c.ObserveRequest("GET", "/tasks", 401, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.apiRequestsTotal.WithLabelValues("GET", "/tasks", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.apiRequestsTotal.WithLabelValues("GET", "/tasks", "401")))
}

func TestPrometheusCollector_ChannelStateIsExclusive(t *testing.T) {
	c := NewPrometheusCollector()
	c.ChannelStateChanged("connecting")
	c.ChannelStateChanged("connected")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.channelState.WithLabelValues("connected")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.channelState))
}

func TestPrometheusCollector_BusEvents(t *testing.T) {
	c := NewPrometheusCollector()
	ev := domain.UpdateEvent{Scope: domain.ScopeTasks, Action: domain.ActionCreated}
	c.EventPublished(ev)
	c.HandlerFailed(ev)
	c.MessageDiscarded()

	assert.Equal(t, 1.0, testutil.ToFloat64(c.busEventsTotal.WithLabelValues("tasks", "created", "local")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.busHandlerFailures.WithLabelValues("tasks")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.discardedMessages))
}

func TestPrometheusCollector_Independent(t *testing.T) {
	// a second collector must not collide on registration
	a := NewPrometheusCollector()
	b := NewPrometheusCollector()
	a.Reconnecting()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.reconnectsTotal))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.reconnectsTotal))
}
