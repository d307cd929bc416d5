package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"tasktracker/internal/app"
	"tasktracker/internal/core/domain"
	"tasktracker/internal/infrastructure/live"
	"tasktracker/pkg/config"
	apperrors "tasktracker/pkg/errors"

	"github.com/spf13/cobra"
)

func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	var withStatus bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print live updates until interrupted",
		Long: `Hold the live update channel open and print every change the server
announces. With --status the local status server is started as well.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(rootOpts, cmd, withStatus)
		},
	}
	cmd.Flags().BoolVar(&withStatus, "status", false, "serve health, status and metrics while watching")
	return cmd
}

type watchLine struct {
	Scope  string        `json:"scope"`
	Action domain.Action `json:"action"`
	ID     string        `json:"id,omitempty"`
	Origin domain.Origin `json:"origin"`
}

func runWatch(rootOpts *RootOptions, cmd *cobra.Command, withStatus bool) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	f := rootOpts.formatter(cmd)
	a, err := rootOpts.openApp(ctx, modeWatch, func(cfg *config.Config) {
		if withStatus {
			cfg.Status.Enabled = true
		}
	})
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		return err
	}
	defer a.Close(context.WithoutCancel(ctx))

	if a.Channel() == nil {
		return f.Fail(apperrors.NewValidationError("Live updates are disabled in the configuration"))
	}

	unsubscribe := a.Bus().Subscribe(func(_ context.Context, ev domain.UpdateEvent) error {
		return printEvent(f, ev)
	})
	defer unsubscribe()
	a.Channel().OnStateChange(func(s live.State) {
		f.VerboseLog("live channel %s", s)
	})

	sess := a.Start(ctx)
	if !sess.Authenticated() {
		return f.Fail(apperrors.NewAuthenticationError("Please log in"))
	}
	f.VerboseLog("watching as %s", sess.User.Username)

	select {
	case <-ctx.Done():
		return nil
	case err, ok := <-a.StatusErrors():
		if ok && err != nil {
			return f.Fail(apperrors.WrapError(err, apperrors.ErrCodeTransport, "Status server stopped", 0))
		}
		<-ctx.Done()
		return nil
	}
}

func printEvent(f *OutputFormatter, ev domain.UpdateEvent) error {
	line := watchLine{Scope: ev.Scope, Action: ev.Action, ID: ev.ID, Origin: ev.Origin}
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(line)
	}
	if line.ID != "" {
		_, err := fmt.Fprintf(f.Writer, "%s %s %s\n", line.Scope, line.Action, line.ID)
		return err
	}
	_, err := fmt.Fprintf(f.Writer, "%s %s\n", line.Scope, line.Action)
	return err
}

func NewRouteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "route <path>",
		Short: "Show which page a path opens for the current session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.session(cmd, "", func(ctx context.Context, a *app.App, f *OutputFormatter) error {
				d := a.Route(args[0])
				return f.Render(d, func(w io.Writer) {
					if d.Allowed {
						fmt.Fprintf(w, "%s -> %s\n", args[0], d.View)
						return
					}
					fmt.Fprintf(w, "%s -> redirect %s\n", args[0], d.Redirect)
				})
			})
		},
	}
}
