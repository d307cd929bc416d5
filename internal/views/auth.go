package views

import (
	"context"
	"strings"

	"tasktracker/internal/core/domain"
	"tasktracker/internal/core/ports"
	"tasktracker/pkg/validation"

	"go.uber.org/zap"
)

// SessionWriter is the part of the session store the auth flows drive.
type SessionWriter interface {
	SessionReader
	Login(ctx context.Context, user domain.UserProfile, token string) error
	Adopt(ctx context.Context, token string) (*domain.UserProfile, error)
}

// LoginFlow submits credentials and logs the session in.
type LoginFlow struct {
	base
	api     ports.AuthAPI
	session SessionWriter
}

func NewLoginFlow(ctx context.Context, api ports.AuthAPI, session SessionWriter, logger *zap.SugaredLogger) *LoginFlow {
	f := &LoginFlow{api: api, session: session}
	f.init(ctx, logger)
	return f
}

func (f *LoginFlow) Submit(ctx context.Context, username, password string) error {
	req := domain.LoginRequest{Username: strings.TrimSpace(username), Password: password}
	if err := validation.Struct(req); err != nil {
		return f.fail(err)
	}

	f.begin()
	res, err := f.api.Login(ctx, req)
	f.finish(err, nil)
	if err != nil {
		return err
	}

	if err := f.session.Login(ctx, res.User, res.Token); err != nil {
		f.logger.Warnw("login succeeded but session could not persist it", "error", err)
	}
	return nil
}

// RegisterFlow creates an account. An admin creating an account for someone
// else keeps their own session; anyone else is logged into the new account.
type RegisterFlow struct {
	base
	api     ports.AuthAPI
	session SessionWriter
}

func NewRegisterFlow(ctx context.Context, api ports.AuthAPI, session SessionWriter, logger *zap.SugaredLogger) *RegisterFlow {
	f := &RegisterFlow{api: api, session: session}
	f.init(ctx, logger)
	return f
}

// Submit registers the account. The returned bool reports whether the
// session now belongs to the new account.
func (f *RegisterFlow) Submit(ctx context.Context, username, password string, role domain.Role) (*domain.AuthResult, bool, error) {
	if role == "" {
		role = domain.RoleUser
	}
	req := domain.RegisterRequest{Username: strings.TrimSpace(username), Password: password, Role: role}
	if err := validation.Struct(req); err != nil {
		return nil, false, f.fail(err)
	}

	f.begin()
	res, err := f.api.Register(ctx, req)
	f.finish(err, nil)
	if err != nil {
		return nil, false, err
	}

	if f.session.Snapshot().IsAdmin() {
		return res, false, nil
	}

	f.begin()
	user, err := f.session.Adopt(ctx, res.Token)
	if user == nil {
		f.finish(err, nil)
		return res, false, err
	}
	f.finish(nil, nil)
	if err != nil {
		f.logger.Warnw("registered but session could not persist it", "error", err)
	}
	return res, true, nil
}
