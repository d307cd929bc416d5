package ports

import (
	"context"

	"tasktracker/internal/core/domain"
)

// CredentialHolder owns the default outgoing bearer credential.
type CredentialHolder interface {
	SetCredential(token string)
	ClearCredential()
	Credential() string
}

type AuthAPI interface {
	Login(ctx context.Context, req domain.LoginRequest) (*domain.AuthResult, error)
	Register(ctx context.Context, req domain.RegisterRequest) (*domain.AuthResult, error)
	Me(ctx context.Context) (*domain.UserProfile, error)
}

type EmployeeAPI interface {
	ListEmployees(ctx context.Context) ([]domain.Employee, error)
	GetEmployee(ctx context.Context, id string) (*domain.Employee, error)
	CreateEmployee(ctx context.Context, e domain.Employee) (*domain.Employee, error)
	UpdateEmployee(ctx context.Context, id string, e domain.Employee) (*domain.Employee, error)
	DeleteEmployee(ctx context.Context, id string) error
}

type TaskAPI interface {
	ListTasks(ctx context.Context, filter domain.TaskFilter) ([]domain.Task, error)
	GetTask(ctx context.Context, id string) (*domain.Task, error)
	CreateTask(ctx context.Context, in domain.TaskInput) (*domain.Task, error)
	UpdateTask(ctx context.Context, id string, in domain.TaskInput) (*domain.Task, error)
	PatchTask(ctx context.Context, id string, patch domain.TaskPatch) (*domain.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

type DashboardAPI interface {
	Dashboard(ctx context.Context) (domain.Summary, error)
}

// Gateway is the full API surface used by the application root.
type Gateway interface {
	CredentialHolder
	AuthAPI
	EmployeeAPI
	TaskAPI
	DashboardAPI
}
