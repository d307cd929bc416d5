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

func NewEmployeesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "employees",
		Short: "List and manage employees",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEmployeesList(rootOpts, cmd)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List employees with their task counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEmployeesList(rootOpts, cmd)
		},
	})
	cmd.AddCommand(newEmployeeAddCommand(rootOpts))
	cmd.AddCommand(newEmployeeUpdateCommand(rootOpts))
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an employee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEmployeeMutation(rootOpts, cmd, "Deleted employee "+args[0], func(ctx context.Context, v employeeMutator) error {
				return v.DeleteEmployee(ctx, args[0])
			})
		},
	})
	cmd.AddCommand(newEmployeeAssignCommand(rootOpts))
	return cmd
}

type employeeOutput struct {
	domain.Employee
	Tasks []domain.Task `json:"tasks"`
}

func runEmployeesList(rootOpts *RootOptions, cmd *cobra.Command) error {
	return rootOpts.session(cmd, "/employees", func(ctx context.Context, a *app.App, f *OutputFormatter) error {
		v := a.Employees(ctx)
		defer v.Close()
		if err := v.Load(ctx); err != nil {
			return f.Fail(err)
		}

		out := []employeeOutput{}
		for _, e := range v.Employees() {
			out = append(out, employeeOutput{Employee: e, Tasks: v.TasksFor(e.ID)})
		}
		return f.Render(out, func(w io.Writer) {
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tDEPARTMENT\tSTATUS\tTASKS")
			for _, e := range out {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n", e.ID, e.Name, e.Email, e.Department, e.Status, len(e.Tasks))
			}
			tw.Flush()
		})
	})
}

// employeeMutator is the part of the employees page the mutating commands use.
type employeeMutator interface {
	CreateEmployee(ctx context.Context, e domain.Employee) error
	UpdateEmployee(ctx context.Context, id string, e domain.Employee) error
	DeleteEmployee(ctx context.Context, id string) error
	CreateTaskFor(ctx context.Context, employeeID string, in domain.TaskInput) error
	SetTaskStatus(ctx context.Context, id string, status domain.TaskStatus) error
	DeleteTask(ctx context.Context, id string) error
}

func runEmployeeMutation(rootOpts *RootOptions, cmd *cobra.Command, done string, mutate func(ctx context.Context, v employeeMutator) error) error {
	return rootOpts.session(cmd, "/employees", func(ctx context.Context, a *app.App, f *OutputFormatter) error {
		v := a.Employees(ctx)
		defer v.Close()
		if err := mutate(ctx, v); err != nil {
			return f.Fail(err)
		}
		v.Wait()
		return f.Render(map[string]string{"result": done}, func(w io.Writer) {
			fmt.Fprintln(w, done)
		})
	})
}

type employeeFlags struct {
	name, email, department, status string
}

func (e *employeeFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&e.name, "name", "", "full name")
	cmd.Flags().StringVar(&e.email, "email", "", "email address")
	cmd.Flags().StringVar(&e.department, "department", "", "department")
	cmd.Flags().StringVar(&e.status, "status", "", "active or inactive")
}

func (e *employeeFlags) employee() domain.Employee {
	return domain.Employee{
		Name:       e.name,
		Email:      e.email,
		Department: e.department,
		Status:     domain.EmployeeStatus(e.status),
	}
}

func newEmployeeAddCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &employeeFlags{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an employee",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEmployeeMutation(rootOpts, cmd, "Created employee "+flags.name, func(ctx context.Context, v employeeMutator) error {
				return v.CreateEmployee(ctx, flags.employee())
			})
		},
	}
	flags.bind(cmd)
	return cmd
}

func newEmployeeUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &employeeFlags{}
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace an employee's details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEmployeeMutation(rootOpts, cmd, "Updated employee "+args[0], func(ctx context.Context, v employeeMutator) error {
				return v.UpdateEmployee(ctx, args[0], flags.employee())
			})
		},
	}
	flags.bind(cmd)
	return cmd
}

func newEmployeeAssignCommand(rootOpts *RootOptions) *cobra.Command {
	var title, description string
	cmd := &cobra.Command{
		Use:   "assign <employee-id>",
		Short: "Create a task for an employee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEmployeeMutation(rootOpts, cmd, "Assigned task to "+args[0], func(ctx context.Context, v employeeMutator) error {
				return v.CreateTaskFor(ctx, args[0], domain.TaskInput{Title: title, Description: description})
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "task title")
	cmd.Flags().StringVar(&description, "description", "", "task description")
	return cmd
}
