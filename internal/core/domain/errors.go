package domain

import "errors"

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrForbidden        = errors.New("admin role required")
	ErrViewClosed       = errors.New("view closed")
	ErrMissingAssignee  = errors.New("task must be assigned to an employee")
)
