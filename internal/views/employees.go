package views

import (
	"context"

	"tasktracker/internal/core/domain"
	"tasktracker/internal/core/ports"
	"tasktracker/pkg/validation"

	"go.uber.org/zap"
)

type EmployeesGateway interface {
	ports.EmployeeAPI
	ports.TaskAPI
}

// Employees lists employees with their tasks. Mutations are admin-only and
// each one reloads the page and announces itself on the bus.
type Employees struct {
	base
	gw      EmployeesGateway
	pub     ports.EventPublisher
	session SessionReader

	employees []domain.Employee
	tasks     []domain.Task
}

func NewEmployees(ctx context.Context, gw EmployeesGateway, bus ports.EventBus, session SessionReader, logger *zap.SugaredLogger) *Employees {
	v := &Employees{gw: gw, pub: bus, session: session}
	v.init(ctx, logger)
	v.watch(bus, func(ctx context.Context, _ domain.UpdateEvent) {
		_ = v.Load(ctx)
	})
	return v
}

func (v *Employees) Load(ctx context.Context) error {
	v.begin()
	employees, err := v.gw.ListEmployees(ctx)
	var tasks []domain.Task
	if err == nil {
		tasks, err = v.gw.ListTasks(ctx, domain.TaskFilter{})
	}
	v.finish(err, func() {
		v.employees = employees
		v.tasks = tasks
	})
	return err
}

func (v *Employees) Employees() []domain.Employee {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]domain.Employee(nil), v.employees...)
}

// TasksFor returns the loaded tasks assigned to one employee.
func (v *Employees) TasksFor(employeeID string) []domain.Task {
	v.mu.Lock()
	defer v.mu.Unlock()
	var out []domain.Task
	for _, t := range v.tasks {
		if t.AssignedTo.ID == employeeID {
			out = append(out, t)
		}
	}
	return out
}

func (v *Employees) CreateEmployee(ctx context.Context, e domain.Employee) error {
	if e.Status == "" {
		e.Status = domain.EmployeeActive
	}
	return v.mutate(ctx, e, func() error {
		_, err := v.gw.CreateEmployee(ctx, e)
		return err
	}, domain.UpdateEvent{Scope: domain.ScopeEmployees, Action: domain.ActionCreated})
}

func (v *Employees) UpdateEmployee(ctx context.Context, id string, e domain.Employee) error {
	return v.mutate(ctx, e, func() error {
		_, err := v.gw.UpdateEmployee(ctx, id, e)
		return err
	}, domain.UpdateEvent{Scope: domain.ScopeEmployees, Action: domain.ActionUpdated, ID: id})
}

func (v *Employees) DeleteEmployee(ctx context.Context, id string) error {
	return v.mutate(ctx, nil, func() error {
		return v.gw.DeleteEmployee(ctx, id)
	}, domain.UpdateEvent{Scope: domain.ScopeEmployees, Action: domain.ActionDeleted, ID: id})
}

// CreateTaskFor creates a task assigned to employeeID.
func (v *Employees) CreateTaskFor(ctx context.Context, employeeID string, in domain.TaskInput) error {
	in.AssignedTo = employeeID
	if in.Status == "" {
		in.Status = domain.TaskPending
	}
	return v.mutate(ctx, in, func() error {
		_, err := v.gw.CreateTask(ctx, in)
		return err
	}, domain.UpdateEvent{Scope: domain.ScopeTasks, Action: domain.ActionCreated})
}

// UpdateTask edits the title, description or status of a task in place.
func (v *Employees) UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) error {
	return v.mutate(ctx, patch, func() error {
		_, err := v.gw.PatchTask(ctx, id, patch)
		return err
	}, domain.UpdateEvent{Scope: domain.ScopeTasks, Action: domain.ActionUpdated, ID: id})
}

func (v *Employees) SetTaskStatus(ctx context.Context, id string, status domain.TaskStatus) error {
	return v.UpdateTask(ctx, id, domain.TaskPatch{Status: &status})
}

func (v *Employees) DeleteTask(ctx context.Context, id string) error {
	return v.mutate(ctx, nil, func() error {
		return v.gw.DeleteTask(ctx, id)
	}, domain.UpdateEvent{Scope: domain.ScopeTasks, Action: domain.ActionDeleted, ID: id})
}

func (v *Employees) mutate(ctx context.Context, input any, call func() error, ev domain.UpdateEvent) error {
	if err := requireAdmin(v.session); err != nil {
		return v.fail(err)
	}
	if input != nil {
		if err := validation.Struct(input); err != nil {
			return v.fail(err)
		}
	}

	v.begin()
	err := call()
	v.finish(err, nil)
	if err != nil {
		return err
	}

	_ = v.Load(ctx)
	v.pub.Publish(ctx, ev)
	return nil
}
