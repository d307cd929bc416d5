package views

import (
	"context"
	"fmt"
	"sync"

	"tasktracker/internal/core/domain"
	apperrors "tasktracker/pkg/errors"
)

// fakeGateway is an in-memory backend. failNext makes the next call to the
// named method fail with err.
type fakeGateway struct {
	mu        sync.Mutex
	employees []domain.Employee
	tasks     []domain.Task
	summary   domain.Summary
	nextID    int
	calls     []string
	filters   []domain.TaskFilter
	failures  map[string]error
	block     chan struct{}
	token     string

	authResult *domain.AuthResult
	me         *domain.UserProfile
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{failures: map[string]error{}}
}

func (g *fakeGateway) record(name string) error {
	g.mu.Lock()
	g.calls = append(g.calls, name)
	err := g.failures[name]
	delete(g.failures, name)
	block := g.block
	g.mu.Unlock()
	if block != nil {
		<-block
	}
	return err
}

func (g *fakeGateway) failNext(name string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures[name] = err
}

func (g *fakeGateway) callCount(name string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (g *fakeGateway) id(prefix string) string {
	g.nextID++
	return fmt.Sprintf("%s%d", prefix, g.nextID)
}

func (g *fakeGateway) Dashboard(context.Context) (domain.Summary, error) {
	if err := g.record("Dashboard"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.summary, nil
}

func (g *fakeGateway) ListEmployees(context.Context) ([]domain.Employee, error) {
	if err := g.record("ListEmployees"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]domain.Employee{}, g.employees...), nil
}

func (g *fakeGateway) GetEmployee(_ context.Context, id string) (*domain.Employee, error) {
	if err := g.record("GetEmployee"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, e := range g.employees {
		if e.ID == id {
			e := e
			return &e, nil
		}
	}
	return nil, apperrors.NewNotFoundError("employee")
}

func (g *fakeGateway) CreateEmployee(_ context.Context, e domain.Employee) (*domain.Employee, error) {
	if err := g.record("CreateEmployee"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	e.ID = g.id("e")
	g.employees = append(g.employees, e)
	return &e, nil
}

func (g *fakeGateway) UpdateEmployee(_ context.Context, id string, e domain.Employee) (*domain.Employee, error) {
	if err := g.record("UpdateEmployee"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.employees {
		if g.employees[i].ID == id {
			e.ID = id
			g.employees[i] = e
			return &e, nil
		}
	}
	return nil, apperrors.NewNotFoundError("employee")
}

func (g *fakeGateway) DeleteEmployee(_ context.Context, id string) error {
	if err := g.record("DeleteEmployee"); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	out := g.employees[:0]
	for _, e := range g.employees {
		if e.ID != id {
			out = append(out, e)
		}
	}
	g.employees = out
	return nil
}

func (g *fakeGateway) ListTasks(_ context.Context, filter domain.TaskFilter) ([]domain.Task, error) {
	if err := g.record("ListTasks"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.filters = append(g.filters, filter)
	var out []domain.Task
	for _, t := range g.tasks {
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.AssignedTo != "" && t.AssignedTo.ID != filter.AssignedTo {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (g *fakeGateway) lastFilter() domain.TaskFilter {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.filters) == 0 {
		return domain.TaskFilter{}
	}
	return g.filters[len(g.filters)-1]
}

func (g *fakeGateway) GetTask(_ context.Context, id string) (*domain.Task, error) {
	if err := g.record("GetTask"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, t := range g.tasks {
		if t.ID == id {
			t := t
			return &t, nil
		}
	}
	return nil, apperrors.NewNotFoundError("task")
}

func (g *fakeGateway) CreateTask(_ context.Context, in domain.TaskInput) (*domain.Task, error) {
	if err := g.record("CreateTask"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	t := domain.Task{ID: g.id("t"), Title: in.Title, Description: in.Description, Status: in.Status, AssignedTo: domain.AssigneeRef{ID: in.AssignedTo}}
	g.tasks = append(g.tasks, t)
	return &t, nil
}

func (g *fakeGateway) UpdateTask(_ context.Context, id string, in domain.TaskInput) (*domain.Task, error) {
	if err := g.record("UpdateTask"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.tasks {
		if g.tasks[i].ID == id {
			g.tasks[i] = domain.Task{ID: id, Title: in.Title, Description: in.Description, Status: in.Status, AssignedTo: domain.AssigneeRef{ID: in.AssignedTo}}
			t := g.tasks[i]
			return &t, nil
		}
	}
	return nil, apperrors.NewNotFoundError("task")
}

func (g *fakeGateway) PatchTask(_ context.Context, id string, p domain.TaskPatch) (*domain.Task, error) {
	if err := g.record("PatchTask"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.tasks {
		if g.tasks[i].ID != id {
			continue
		}
		if p.Title != nil {
			g.tasks[i].Title = *p.Title
		}
		if p.Description != nil {
			g.tasks[i].Description = *p.Description
		}
		if p.Status != nil {
			g.tasks[i].Status = *p.Status
		}
		if p.AssignedTo != nil {
			g.tasks[i].AssignedTo = domain.AssigneeRef{ID: *p.AssignedTo}
		}
		t := g.tasks[i]
		return &t, nil
	}
	return nil, apperrors.NewNotFoundError("task")
}

func (g *fakeGateway) DeleteTask(_ context.Context, id string) error {
	if err := g.record("DeleteTask"); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	out := g.tasks[:0]
	for _, t := range g.tasks {
		if t.ID != id {
			out = append(out, t)
		}
	}
	g.tasks = out
	return nil
}

func (g *fakeGateway) Login(_ context.Context, req domain.LoginRequest) (*domain.AuthResult, error) {
	if err := g.record("Login"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.authResult, nil
}

func (g *fakeGateway) Register(_ context.Context, req domain.RegisterRequest) (*domain.AuthResult, error) {
	if err := g.record("Register"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.authResult, nil
}

func (g *fakeGateway) Me(context.Context) (*domain.UserProfile, error) {
	if err := g.record("Me"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.me == nil {
		return nil, apperrors.NewAuthenticationError("Invalid token")
	}
	u := *g.me
	return &u, nil
}

func (g *fakeGateway) SetCredential(token string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.token = token
}

func (g *fakeGateway) ClearCredential() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.token = ""
}

func (g *fakeGateway) Credential() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.token
}

// staticSession is a fixed session snapshot.
type staticSession struct{ s domain.Session }

func (s staticSession) Snapshot() domain.Session { return s.s }

func asUser(id string, role domain.Role) staticSession {
	return staticSession{domain.Session{
		State:      domain.SessionAuthenticated,
		User:       &domain.UserProfile{ID: id, Username: id, Role: role},
		Credential: "t",
	}}
}

func task(id, title string, status domain.TaskStatus, assignee string) domain.Task {
	return domain.Task{ID: id, Title: title, Status: status, AssignedTo: domain.AssigneeRef{ID: assignee}}
}
