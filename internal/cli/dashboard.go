package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"tasktracker/internal/app"
	"tasktracker/internal/core/domain"

	"github.com/spf13/cobra"
)

type countsOutput struct {
	Total          int `json:"total"`
	Completed      int `json:"completed"`
	InProgress     int `json:"inProgress"`
	Pending        int `json:"pending"`
	CompletionRate int `json:"completionRate"`
}

func countsOf(c domain.TaskCounts) countsOutput {
	return countsOutput{
		Total:          c.Total,
		Completed:      c.Completed,
		InProgress:     c.InProgress,
		Pending:        c.Pending,
		CompletionRate: c.CompletionRate(),
	}
}

type employeeRow struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	Counts countsOutput `json:"counts"`
}

type dashboardOutput struct {
	Summary   domain.Summary `json:"summary,omitempty"`
	Counts    countsOutput   `json:"counts"`
	Employees []employeeRow  `json:"employees"`
}

func NewDashboardCommand(rootOpts *RootOptions) *cobra.Command {
	var status, employee string
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show task totals and per-employee progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.session(cmd, "/dashboard", func(ctx context.Context, a *app.App, f *OutputFormatter) error {
				d := a.Dashboard(ctx)
				defer d.Close()

				if err := d.SetFilter(ctx, domain.TaskFilter{Status: domain.TaskStatus(status), AssignedTo: employee}); err != nil {
					return f.Fail(err)
				}

				out := dashboardOutput{Summary: d.Summary(), Counts: countsOf(d.Counts())}
				for _, s := range d.EmployeeStats() {
					out.Employees = append(out.Employees, employeeRow{ID: s.Employee.ID, Name: s.Employee.Name, Counts: countsOf(s.Counts)})
				}

				return f.Render(out, func(w io.Writer) {
					c := out.Counts
					fmt.Fprintf(w, "Tasks: %d total, %d completed, %d in progress, %d pending (%d%% complete)\n",
						c.Total, c.Completed, c.InProgress, c.Pending, c.CompletionRate)
					if len(out.Employees) == 0 {
						return
					}
					fmt.Fprintln(w)
					tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
					fmt.Fprintln(tw, "EMPLOYEE\tTASKS\tDONE\tRATE")
					for _, e := range out.Employees {
						fmt.Fprintf(tw, "%s\t%d\t%d\t%d%%\n", e.Name, e.Counts.Total, e.Counts.Completed, e.Counts.CompletionRate)
					}
					tw.Flush()
				})
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only count tasks with this status")
	cmd.Flags().StringVar(&employee, "employee", "", "only show this employee id")
	return cmd
}
