package views

import (
	"context"
	"strings"

	"tasktracker/internal/core/domain"
	"tasktracker/internal/core/ports"
	apperrors "tasktracker/pkg/errors"
	"tasktracker/pkg/validation"

	"go.uber.org/zap"
)

type TaskFormGateway interface {
	ports.EmployeeAPI
	ports.TaskAPI
}

// TaskForm creates a task, or edits one when opened with an id.
type TaskForm struct {
	base
	gw      TaskFormGateway
	pub     ports.EventPublisher
	session SessionReader
	id      string

	input     domain.TaskInput
	employees []domain.Employee
}

func NewTaskForm(ctx context.Context, gw TaskFormGateway, bus ports.EventBus, session SessionReader, id string, logger *zap.SugaredLogger) *TaskForm {
	f := &TaskForm{
		gw:      gw,
		pub:     bus,
		session: session,
		id:      id,
		input:   domain.TaskInput{Status: domain.TaskPending},
	}
	f.init(ctx, logger)
	f.watch(bus, func(ctx context.Context, ev domain.UpdateEvent) {
		if ev.Scope == domain.ScopeEmployees {
			_ = f.loadEmployees(ctx)
		}
	})
	return f
}

func (f *TaskForm) Editing() bool {
	return f.id != ""
}

// Load fetches the assignable employees and, when editing, the task.
func (f *TaskForm) Load(ctx context.Context) error {
	err := f.loadEmployees(ctx)
	if f.id == "" {
		return err
	}

	f.begin()
	task, terr := f.gw.GetTask(ctx, f.id)
	f.finish(terr, func() {
		status := task.Status
		if status == "" {
			status = domain.TaskPending
		}
		f.input = domain.TaskInput{
			Title:       task.Title,
			Description: task.Description,
			Status:      status,
			AssignedTo:  task.AssignedTo.ID,
		}
	})
	if err == nil {
		err = terr
	}
	return err
}

func (f *TaskForm) loadEmployees(ctx context.Context) error {
	f.begin()
	employees, err := f.gw.ListEmployees(ctx)
	f.finish(err, func() {
		f.employees = employees
		if f.input.AssignedTo == "" && len(employees) > 0 {
			f.input.AssignedTo = employees[0].ID
		}
	})
	return err
}

func (f *TaskForm) Employees() []domain.Employee {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Employee(nil), f.employees...)
}

func (f *TaskForm) Input() domain.TaskInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.input
}

func (f *TaskForm) SetInput(in domain.TaskInput) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.input = in
}

// Save creates or updates the task and announces it.
func (f *TaskForm) Save(ctx context.Context) error {
	if err := requireAdmin(f.session); err != nil {
		return f.fail(err)
	}

	in := f.Input()
	in.Title = strings.TrimSpace(in.Title)
	if in.Status == "" {
		in.Status = domain.TaskPending
	}
	if in.AssignedTo == "" {
		return f.fail(apperrors.WrapError(domain.ErrMissingAssignee, apperrors.ErrCodeValidation,
			"Please select an employee", 0))
	}
	if err := validation.Struct(in); err != nil {
		return f.fail(err)
	}

	ev := domain.UpdateEvent{Scope: domain.ScopeTasks, Action: domain.ActionCreated}
	f.begin()
	var err error
	if f.id != "" {
		_, err = f.gw.UpdateTask(ctx, f.id, in)
		ev = domain.UpdateEvent{Scope: domain.ScopeTasks, Action: domain.ActionUpdated, ID: f.id}
	} else {
		_, err = f.gw.CreateTask(ctx, in)
	}
	f.finish(err, nil)
	if err != nil {
		return err
	}

	f.pub.Publish(ctx, ev)
	return nil
}

// Delete removes the task being edited.
func (f *TaskForm) Delete(ctx context.Context) error {
	if f.id == "" {
		return nil
	}
	if err := requireAdmin(f.session); err != nil {
		return f.fail(err)
	}

	f.begin()
	err := f.gw.DeleteTask(ctx, f.id)
	f.finish(err, nil)
	if err != nil {
		return err
	}

	f.pub.Publish(ctx, domain.UpdateEvent{Scope: domain.ScopeTasks, Action: domain.ActionDeleted, ID: f.id})
	return nil
}
