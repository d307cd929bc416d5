package domain

type SessionState string

const (
	SessionLoading         SessionState = "loading"
	SessionAuthenticated   SessionState = "authenticated"
	SessionUnauthenticated SessionState = "unauthenticated"
)

// Session is an immutable snapshot of the client's belief about who is
// logged in. User is non-nil exactly when State is SessionAuthenticated.
type Session struct {
	State      SessionState
	User       *UserProfile
	Credential string
}

func (s Session) Loading() bool {
	return s.State == SessionLoading
}

func (s Session) Authenticated() bool {
	return s.State == SessionAuthenticated && s.User != nil
}

func (s Session) IsAdmin() bool {
	return s.Authenticated() && s.User.IsAdmin()
}
