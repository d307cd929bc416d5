package cli

import (
	"context"
	"fmt"
	"slices"

	"tasktracker/internal/app"
	"tasktracker/internal/core/services"
	"tasktracker/pkg/config"
	apperrors "tasktracker/pkg/errors"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Format     string // "json" | "text"
	Verbose    bool
}

var ValidFormats = []string{"text", "json"}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "tracker",
		Short: "Employee and task tracker client",
		Long: `Command line client for the employee and task tracker.

The login is remembered between runs. Pages that show employees and tasks
mirror the web client and are gated by role the same way.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				err := NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
				fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
				return err
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "config.yaml", "path to the YAML configuration")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewLoginCommand(opts))
	cmd.AddCommand(NewLogoutCommand(opts))
	cmd.AddCommand(NewWhoamiCommand(opts))
	cmd.AddCommand(NewRegisterCommand(opts))
	cmd.AddCommand(NewDashboardCommand(opts))
	cmd.AddCommand(NewEmployeesCommand(opts))
	cmd.AddCommand(NewTasksCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewRouteCommand(opts))

	return cmd
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

type appMode int

const (
	modeOneShot appMode = iota // no live channel, quiet logs
	modeWatch
)

// openApp loads configuration and builds the client for one command. tweaks
// run after the mode adjustments.
func (o *RootOptions) openApp(ctx context.Context, mode appMode, tweaks ...func(*config.Config)) (*app.App, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load configuration", err)
	}

	if mode == modeOneShot {
		cfg.Live.Enabled = false
		cfg.Status.Enabled = false
		cfg.Logging.Level = "warn"
	}
	if o.Verbose {
		cfg.Logging.Level = "debug"
	}
	for _, tweak := range tweaks {
		tweak(cfg)
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "start client", err)
	}
	return a, nil
}

// session runs cmd against a started client. The page at path must be
// reachable for the resulting session; otherwise the command fails with the
// router's redirect.
func (o *RootOptions) session(cmd *cobra.Command, path string, run func(ctx context.Context, a *app.App, f *OutputFormatter) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	f := o.formatter(cmd)

	a, err := o.openApp(ctx, modeOneShot)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		return err
	}
	defer a.Close(context.WithoutCancel(ctx))

	a.Start(ctx)
	if path != "" {
		if d := a.Route(path); !d.Allowed {
			return f.Fail(gateError(d))
		}
	}
	return run(ctx, a, f)
}

func gateError(d services.Decision) error {
	if d.Redirect == "/" || d.Redirect == "" {
		return apperrors.NewAuthenticationError("Please log in")
	}
	return apperrors.NewAppError(apperrors.ErrCodeAuthentication,
		fmt.Sprintf("Not available for this account (go to %s)", d.Redirect), 403)
}
