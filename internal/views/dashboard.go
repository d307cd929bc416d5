package views

import (
	"context"
	"sort"

	"tasktracker/internal/core/domain"
	"tasktracker/internal/core/ports"

	"go.uber.org/zap"
)

type DashboardGateway interface {
	ports.DashboardAPI
	ports.EmployeeAPI
	ports.TaskAPI
}

// EmployeeStats is one employee's row on the dashboard.
type EmployeeStats struct {
	Employee domain.Employee
	Counts   domain.TaskCounts
	Tasks    []domain.Task
}

type Dashboard struct {
	base
	gw DashboardGateway

	filter    domain.TaskFilter
	summary   domain.Summary
	employees []domain.Employee
	tasks     []domain.Task
}

func NewDashboard(ctx context.Context, gw DashboardGateway, sub ports.EventSubscriber, logger *zap.SugaredLogger) *Dashboard {
	d := &Dashboard{gw: gw}
	d.init(ctx, logger)
	// pushed updates only refresh the task list
	d.watch(sub, func(ctx context.Context, _ domain.UpdateEvent) {
		_ = d.loadTasks(ctx)
	})
	return d
}

// Load fetches the optional summary, then employees, then tasks.
func (d *Dashboard) Load(ctx context.Context) error {
	d.loadSummary(ctx)

	d.begin()
	employees, err := d.gw.ListEmployees(ctx)
	d.finish(err, func() { d.employees = employees })

	if terr := d.loadTasks(ctx); err == nil {
		err = terr
	}
	return err
}

// loadSummary ignores failures; the endpoint is optional.
func (d *Dashboard) loadSummary(ctx context.Context) {
	summary, err := d.gw.Dashboard(ctx)
	if err != nil {
		d.logger.Debugw("dashboard summary unavailable", "error", err)
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		d.summary = summary
	}
}

func (d *Dashboard) loadTasks(ctx context.Context) error {
	d.mu.Lock()
	filter := d.filter
	d.mu.Unlock()

	d.begin()
	tasks, err := d.gw.ListTasks(ctx, filter)
	d.finish(err, func() { d.tasks = tasks })
	return err
}

// SetFilter changes the status/employee filter and reloads.
func (d *Dashboard) SetFilter(ctx context.Context, filter domain.TaskFilter) error {
	d.mu.Lock()
	d.filter = filter
	d.mu.Unlock()
	return d.Load(ctx)
}

func (d *Dashboard) Filter() domain.TaskFilter {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.filter
}

func (d *Dashboard) Summary() domain.Summary {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.summary
}

func (d *Dashboard) Tasks() []domain.Task {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]domain.Task(nil), d.tasks...)
}

func (d *Dashboard) Employees() []domain.Employee {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]domain.Employee(nil), d.employees...)
}

// Counts aggregates the loaded tasks by status.
func (d *Dashboard) Counts() domain.TaskCounts {
	return domain.CountTasks(d.Tasks())
}

// EmployeeStats lists employees by number of matching tasks, most first.
// With an employee filter only that employee is listed.
func (d *Dashboard) EmployeeStats() []EmployeeStats {
	d.mu.Lock()
	filter := d.filter
	employees := append([]domain.Employee(nil), d.employees...)
	tasks := append([]domain.Task(nil), d.tasks...)
	d.mu.Unlock()

	matching := func(id string) int {
		n := 0
		for _, t := range tasks {
			if t.AssignedTo.ID == id && (filter.Status == "" || t.Status == filter.Status) {
				n++
			}
		}
		return n
	}

	sort.SliceStable(employees, func(i, j int) bool {
		return matching(employees[i].ID) > matching(employees[j].ID)
	})

	stats := make([]EmployeeStats, 0, len(employees))
	for _, e := range employees {
		if filter.AssignedTo != "" && e.ID != filter.AssignedTo {
			continue
		}
		var own []domain.Task
		for _, t := range tasks {
			if t.AssignedTo.ID == e.ID {
				own = append(own, t)
			}
		}
		stats = append(stats, EmployeeStats{Employee: e, Counts: domain.CountTasks(own), Tasks: own})
	}
	return stats
}
