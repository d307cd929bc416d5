// Package views holds the headless page state of the client: what each page
// shows, refreshed from the API and kept current by bus events.
package views

import (
	"context"
	"sync"

	"tasktracker/internal/core/domain"
	"tasktracker/internal/core/ports"
	apperrors "tasktracker/pkg/errors"

	"go.uber.org/zap"
)

// SessionReader gives views read access to the current session.
type SessionReader interface {
	Snapshot() domain.Session
}

// base carries what every view shares: a liveness flag, the loading flag,
// the last error message and the bus subscription.
type base struct {
	mu      sync.Mutex
	closed  bool
	loading int
	errMsg  string

	// inflight counts bus-triggered refreshes; idle is signalled under mu
	// when it drops to zero.
	inflight int
	idle     *sync.Cond

	ctx         context.Context
	unsubscribe func()
	logger      *zap.SugaredLogger
}

func (b *base) init(ctx context.Context, logger *zap.SugaredLogger) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	b.ctx = context.WithoutCancel(ctx)
	b.logger = logger
	b.idle = sync.NewCond(&b.mu)
}

// watch subscribes refresh on the bus. Each event refreshes in the
// background so that views react independently of each other.
func (b *base) watch(sub ports.EventSubscriber, refresh func(ctx context.Context, ev domain.UpdateEvent)) {
	if sub == nil {
		return
	}
	b.unsubscribe = sub.Subscribe(func(_ context.Context, ev domain.UpdateEvent) error {
		b.mu.Lock()
		if b.closed {
			b.mu.Unlock()
			return nil
		}
		b.inflight++
		b.mu.Unlock()

		go func() {
			defer b.refreshed()
			refresh(b.ctx, ev)
		}()
		return nil
	})
}

func (b *base) refreshed() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inflight--
	if b.inflight == 0 {
		b.idle.Broadcast()
	}
}

func (b *base) alive() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.closed
}

// begin marks a request in flight and clears the previous error.
func (b *base) begin() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loading++
	b.errMsg = ""
}

// finish ends a request. On a live view err is recorded for display, and
// apply runs under the view lock when err is nil. A closed view drops both.
func (b *base) finish(err error, apply func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.loading > 0 {
		b.loading--
	}
	if b.closed {
		return
	}
	if err != nil {
		b.errMsg = apperrors.DisplayMessage(err)
		return
	}
	if apply != nil {
		apply()
	}
}

func (b *base) fail(err error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed && err != nil {
		b.errMsg = apperrors.DisplayMessage(err)
	}
	return err
}

func (b *base) Loading() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loading > 0
}

// Error is the message to display for the last failed request, or "".
func (b *base) Error() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.errMsg
}

// Wait blocks until no refresh triggered by a bus event is running. Events
// delivered while it waits extend the wait.
func (b *base) Wait() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for b.inflight > 0 {
		b.idle.Wait()
	}
}

// Close unmounts the view. Results of requests still in flight are dropped.
func (b *base) Close() {
	b.mu.Lock()
	b.closed = true
	unsubscribe := b.unsubscribe
	b.unsubscribe = nil
	b.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (b *base) Closed() bool {
	return !b.alive()
}

func requireAdmin(session SessionReader) error {
	if session == nil {
		return nil
	}
	sess := session.Snapshot()
	if !sess.Authenticated() {
		return apperrors.WrapError(domain.ErrNotAuthenticated, apperrors.ErrCodeAuthentication, "Please log in", 401)
	}
	if !sess.IsAdmin() {
		return apperrors.WrapError(domain.ErrForbidden, apperrors.ErrCodeAuthentication, "Admin access required", 403)
	}
	return nil
}
