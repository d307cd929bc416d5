package views

import (
	"context"

	"tasktracker/internal/core/domain"
	"tasktracker/internal/core/ports"

	"go.uber.org/zap"
)

// Tasks is the task list. A session with role user only ever sees its own
// assignments, whatever the employee filter says.
type Tasks struct {
	base
	gw      ports.TaskAPI
	pub     ports.EventPublisher
	session SessionReader

	filter domain.TaskFilter
	tasks  []domain.Task
}

func NewTasks(ctx context.Context, gw ports.TaskAPI, bus ports.EventBus, session SessionReader, logger *zap.SugaredLogger) *Tasks {
	v := &Tasks{gw: gw, pub: bus, session: session}
	v.init(ctx, logger)
	v.watch(bus, func(ctx context.Context, _ domain.UpdateEvent) {
		_ = v.Load(ctx)
	})
	return v
}

// EffectiveFilter is the filter actually sent to the API.
func (v *Tasks) EffectiveFilter() domain.TaskFilter {
	v.mu.Lock()
	filter := v.filter
	v.mu.Unlock()

	if v.session != nil {
		sess := v.session.Snapshot()
		if sess.Authenticated() && sess.User.Role == domain.RoleUser {
			filter.AssignedTo = sess.User.ID
		}
	}
	return filter
}

func (v *Tasks) Load(ctx context.Context) error {
	filter := v.EffectiveFilter()

	v.begin()
	tasks, err := v.gw.ListTasks(ctx, filter)
	v.finish(err, func() { v.tasks = tasks })
	return err
}

func (v *Tasks) SetFilter(ctx context.Context, filter domain.TaskFilter) error {
	v.mu.Lock()
	v.filter = filter
	v.mu.Unlock()
	return v.Load(ctx)
}

// Delete removes a task, reloads and announces the change.
func (v *Tasks) Delete(ctx context.Context, id string) error {
	if err := requireAdmin(v.session); err != nil {
		return v.fail(err)
	}

	v.begin()
	err := v.gw.DeleteTask(ctx, id)
	v.finish(err, nil)
	if err != nil {
		return err
	}

	_ = v.Load(ctx)
	v.pub.Publish(ctx, domain.UpdateEvent{Scope: domain.ScopeTasks, Action: domain.ActionDeleted, ID: id})
	return nil
}

func (v *Tasks) Tasks() []domain.Task {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]domain.Task(nil), v.tasks...)
}
