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

func NewTasksCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List and manage tasks",
		Args:  cobra.NoArgs,
	}

	cmd.AddCommand(newTasksListCommand(rootOpts))
	cmd.AddCommand(newTaskAddCommand(rootOpts))
	cmd.AddCommand(newTaskEditCommand(rootOpts))
	cmd.AddCommand(&cobra.Command{
		Use:   "status <id> <pending|in-progress|completed>",
		Short: "Change a task's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEmployeeMutation(rootOpts, cmd, fmt.Sprintf("Task %s is now %s", args[0], args[1]), func(ctx context.Context, v employeeMutator) error {
				return v.SetTaskStatus(ctx, args[0], domain.TaskStatus(args[1]))
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.session(cmd, "/tasks", func(ctx context.Context, a *app.App, f *OutputFormatter) error {
				v := a.Tasks(ctx)
				defer v.Close()
				if err := v.Delete(ctx, args[0]); err != nil {
					return f.Fail(err)
				}
				v.Wait()
				return f.Render(map[string]string{"deleted": args[0]}, func(w io.Writer) {
					fmt.Fprintf(w, "Deleted task %s\n", args[0])
				})
			})
		},
	})
	return cmd
}

func newTasksListCommand(rootOpts *RootOptions) *cobra.Command {
	var status, assignedTo string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.session(cmd, "/tasks", func(ctx context.Context, a *app.App, f *OutputFormatter) error {
				v := a.Tasks(ctx)
				defer v.Close()
				if err := v.SetFilter(ctx, domain.TaskFilter{Status: domain.TaskStatus(status), AssignedTo: assignedTo}); err != nil {
					return f.Fail(err)
				}
				tasks := v.Tasks()
				if tasks == nil {
					tasks = []domain.Task{}
				}
				return f.Render(tasks, func(w io.Writer) {
					renderTasks(w, tasks)
				})
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only tasks with this status")
	cmd.Flags().StringVar(&assignedTo, "assigned-to", "", "only tasks assigned to this employee id")
	return cmd
}

func renderTasks(w io.Writer, tasks []domain.Task) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tSTATUS\tASSIGNEE")
	for _, t := range tasks {
		assignee := t.AssignedTo.Name
		if assignee == "" {
			assignee = t.AssignedTo.ID
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.ID, t.Title, t.Status, assignee)
	}
	tw.Flush()
}

type taskFlags struct {
	title, description, status, assignedTo string
}

func (t *taskFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&t.title, "title", "", "task title")
	cmd.Flags().StringVar(&t.description, "description", "", "task description")
	cmd.Flags().StringVar(&t.status, "status", "", "pending, in-progress or completed")
	cmd.Flags().StringVar(&t.assignedTo, "assign", "", "employee id (defaults to the first employee)")
}

// apply copies the flags the user actually set onto in.
func (t *taskFlags) apply(cmd *cobra.Command, in domain.TaskInput) domain.TaskInput {
	if cmd.Flags().Changed("title") {
		in.Title = t.title
	}
	if cmd.Flags().Changed("description") {
		in.Description = t.description
	}
	if cmd.Flags().Changed("status") {
		in.Status = domain.TaskStatus(t.status)
	}
	if cmd.Flags().Changed("assign") {
		in.AssignedTo = t.assignedTo
	}
	return in
}

func runTaskForm(rootOpts *RootOptions, cmd *cobra.Command, path, id string, flags *taskFlags) error {
	return rootOpts.session(cmd, path, func(ctx context.Context, a *app.App, f *OutputFormatter) error {
		form := a.TaskForm(ctx, id)
		defer form.Close()
		if err := form.Load(ctx); err != nil {
			return f.Fail(err)
		}

		form.SetInput(flags.apply(cmd, form.Input()))
		if err := form.Save(ctx); err != nil {
			return f.Fail(err)
		}

		in := form.Input()
		verb := "Created"
		if form.Editing() {
			verb = "Updated"
		}
		return f.Render(in, func(w io.Writer) {
			fmt.Fprintf(w, "%s task %q (%s)\n", verb, in.Title, in.Status)
		})
	})
}

func newTaskAddCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &taskFlags{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTaskForm(rootOpts, cmd, "/add-task", "", flags)
		},
	}
	flags.bind(cmd)
	return cmd
}

func newTaskEditCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &taskFlags{}
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a task; unset flags keep their current value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTaskForm(rootOpts, cmd, "/edit-task/"+args[0], args[0], flags)
		},
	}
	flags.bind(cmd)
	return cmd
}
