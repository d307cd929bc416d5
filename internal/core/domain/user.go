package domain

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// UserProfile is the identity returned by the auth endpoints. It is owned by
// the session and replaced wholesale on login, never edited in place.
type UserProfile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

func (u UserProfile) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=6,max=128"`
	Role     Role   `json:"role" validate:"oneof=admin user"`
}

// AuthResult is returned by login and register.
type AuthResult struct {
	Token string      `json:"token"`
	User  UserProfile `json:"user"`
}
