package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"tasktracker/internal/core/domain"
	"tasktracker/internal/core/ports"

	"go.uber.org/zap"
)

// IdentityGateway is the part of the API client the session needs: the
// default credential slot and the identity endpoint.
type IdentityGateway interface {
	ports.CredentialHolder
	Me(ctx context.Context) (*domain.UserProfile, error)
}

type actionKind int

const (
	actionLogin actionKind = iota
	actionLogout
	// resolve actions come from startup validation and only apply while
	// the session is still loading.
	actionResolveAuthenticated
	actionResolveUnauthenticated
)

type action struct {
	kind  actionKind
	user  *domain.UserProfile
	token string
}

// reduce is the only place a session changes. The bool reports whether the
// action applied.
func reduce(cur domain.Session, a action) (domain.Session, bool) {
	switch a.kind {
	case actionLogin:
		return authenticated(a.user, a.token), true
	case actionLogout:
		return domain.Session{State: domain.SessionUnauthenticated}, true
	case actionResolveAuthenticated:
		if !cur.Loading() {
			return cur, false
		}
		return authenticated(a.user, a.token), true
	case actionResolveUnauthenticated:
		if !cur.Loading() {
			return cur, false
		}
		return domain.Session{State: domain.SessionUnauthenticated}, true
	}
	return cur, false
}

func authenticated(user *domain.UserProfile, token string) domain.Session {
	profile := *user
	return domain.Session{State: domain.SessionAuthenticated, User: &profile, Credential: token}
}

// SessionStore owns the client's belief about who is logged in, the
// persisted credential and the default outgoing credential. It is the only
// writer of the latter two.
type SessionStore struct {
	store   ports.CredentialStore
	gateway IdentityGateway
	expired func(token string) bool
	logger  *zap.SugaredLogger

	initial string

	startMu sync.Mutex

	// dmu serializes transitions together with their notifications so every
	// subscriber sees transitions in the order they happened.
	dmu sync.Mutex

	smu     sync.RWMutex
	session domain.Session
	subs    map[uint64]func(domain.Session)
	nextSub uint64
}

type SessionOption func(*SessionStore)

// WithExpiryCheck lets Start reject a credential locally, without asking the
// server, when check reports it expired.
func WithExpiryCheck(check func(token string) bool) SessionOption {
	return func(s *SessionStore) { s.expired = check }
}

func WithSessionLogger(l *zap.SugaredLogger) SessionOption {
	return func(s *SessionStore) { s.logger = l }
}

// NewSessionStore starts in Loading with whatever credential is persisted.
func NewSessionStore(ctx context.Context, store ports.CredentialStore, gateway IdentityGateway, opts ...SessionOption) *SessionStore {
	s := &SessionStore{
		store:   store,
		gateway: gateway,
		expired: func(string) bool { return false },
		logger:  zap.NewNop().Sugar(),
		session: domain.Session{State: domain.SessionLoading},
		subs:    make(map[uint64]func(domain.Session)),
	}
	for _, opt := range opts {
		opt(s)
	}

	token, err := store.Load(ctx)
	if err != nil {
		s.logger.Warnw("failed to read persisted credential", "error", err)
	}
	s.initial = token
	return s
}

// Start runs the one startup validation. Calling it again, or after a login
// or logout already left Loading, returns the current snapshot.
func (s *SessionStore) Start(ctx context.Context) domain.Session {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	if !s.Snapshot().Loading() {
		return s.Snapshot()
	}

	token := s.initial
	s.initial = ""

	switch {
	case token == "":
		s.dispatch(ctx, action{kind: actionResolveUnauthenticated})
	case s.expired(token):
		s.logger.Infow("persisted credential expired, logging out")
		s.dispatch(ctx, action{kind: actionResolveUnauthenticated})
	default:
		s.gateway.SetCredential(token)
		user, err := s.gateway.Me(ctx)
		if err != nil {
			s.logger.Infow("persisted credential rejected, logging out", "error", err)
			s.dispatch(ctx, action{kind: actionResolveUnauthenticated})
		} else {
			s.dispatch(ctx, action{kind: actionResolveAuthenticated, user: user, token: token})
		}
	}
	return s.Snapshot()
}

// Login moves to Authenticated with a profile and credential returned by the
// auth endpoints. The transition happens even if persisting fails; that
// failure is returned.
func (s *SessionStore) Login(ctx context.Context, user domain.UserProfile, token string) error {
	if token == "" {
		return errors.New("login requires a credential")
	}
	return s.dispatch(ctx, action{kind: actionLogin, user: &user, token: token})
}

// Adopt validates a freshly issued credential against the identity endpoint
// and logs in with the returned profile. On failure the previous default
// credential is restored and the session is left unchanged.
func (s *SessionStore) Adopt(ctx context.Context, token string) (*domain.UserProfile, error) {
	if token == "" {
		return nil, errors.New("adopt requires a credential")
	}

	s.gateway.SetCredential(token)
	user, err := s.gateway.Me(ctx)
	if err != nil {
		s.syncCredential(s.Snapshot())
		return nil, err
	}
	if err := s.Login(ctx, *user, token); err != nil {
		return user, err
	}
	return user, nil
}

func (s *SessionStore) Logout(ctx context.Context) error {
	return s.dispatch(ctx, action{kind: actionLogout})
}

func (s *SessionStore) Snapshot() domain.Session {
	s.smu.RLock()
	defer s.smu.RUnlock()
	snap := s.session
	if snap.User != nil {
		profile := *snap.User
		snap.User = &profile
	}
	return snap
}

// Subscribe registers fn for every later transition. fn must not call Login
// or Logout.
func (s *SessionStore) Subscribe(fn func(domain.Session)) (unsubscribe func()) {
	s.smu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.smu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.smu.Lock()
			delete(s.subs, id)
			s.smu.Unlock()
		})
	}
}

func (s *SessionStore) dispatch(ctx context.Context, a action) error {
	s.dmu.Lock()
	defer s.dmu.Unlock()

	s.smu.Lock()
	next, applied := reduce(s.session, a)
	if applied {
		s.session = next
	}
	subs := make([]func(domain.Session), 0, len(s.subs))
	ids := make([]uint64, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		subs = append(subs, s.subs[id])
	}
	s.smu.Unlock()

	if !applied {
		// a late startup result must not clobber the header of a newer login
		s.syncCredential(s.Snapshot())
		return nil
	}

	err := s.applyEffects(ctx, next)

	snap := s.Snapshot()
	for _, fn := range subs {
		fn(snap)
	}
	return err
}

func (s *SessionStore) syncCredential(sess domain.Session) {
	switch sess.State {
	case domain.SessionAuthenticated:
		s.gateway.SetCredential(sess.Credential)
	case domain.SessionUnauthenticated:
		s.gateway.ClearCredential()
	}
}

func (s *SessionStore) applyEffects(ctx context.Context, sess domain.Session) error {
	s.syncCredential(sess)

	switch sess.State {
	case domain.SessionAuthenticated:
		if err := s.store.Save(ctx, sess.Credential); err != nil {
			s.logger.Warnw("failed to persist credential", "error", err)
			return fmt.Errorf("persist credential: %w", err)
		}
		s.logger.Debugw("session authenticated", "user_id", sess.User.ID, "role", sess.User.Role)
	case domain.SessionUnauthenticated:
		if err := s.store.Clear(ctx); err != nil {
			s.logger.Warnw("failed to clear persisted credential", "error", err)
			return fmt.Errorf("clear credential: %w", err)
		}
		s.logger.Debugw("session unauthenticated")
	}
	return nil
}
