package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"tasktracker/internal/app"
	"tasktracker/internal/core/domain"
	apperrors "tasktracker/pkg/errors"

	"github.com/spf13/cobra"
)

type credentialFlags struct {
	username string
	password string
}

func (c *credentialFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&c.username, "username", "u", "", "account username")
	cmd.Flags().StringVarP(&c.password, "password", "p", "", "account password (read from stdin when omitted)")
}

// resolvePassword reads the password from in when the flag was not given.
func (c *credentialFlags) resolvePassword(in io.Reader) string {
	if c.password != "" {
		return c.password
	}
	line, _ := bufio.NewReader(in).ReadString('\n')
	return strings.TrimRight(line, "\r\n")
}

func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	creds := &credentialFlags{}
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.session(cmd, "", func(ctx context.Context, a *app.App, f *OutputFormatter) error {
				if sess := a.Session().Snapshot(); sess.Authenticated() {
					return f.Fail(apperrors.NewValidationError(
						fmt.Sprintf("Already logged in as %s; log out first", sess.User.Username)))
				}

				flow := a.LoginFlow(ctx)
				if err := flow.Submit(ctx, creds.username, creds.resolvePassword(cmd.InOrStdin())); err != nil {
					return f.Fail(err)
				}
				return renderUser(f, a.Session().Snapshot().User, "Logged in as")
			})
		},
	}
	creds.bind(cmd)
	return cmd
}

func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the remembered session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.session(cmd, "", func(ctx context.Context, a *app.App, f *OutputFormatter) error {
				if err := a.Session().Logout(ctx); err != nil {
					return f.Fail(err)
				}
				return f.Render(map[string]bool{"logged_out": true}, func(w io.Writer) {
					fmt.Fprintln(w, "Logged out")
				})
			})
		},
	}
}

func NewWhoamiCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.session(cmd, "", func(ctx context.Context, a *app.App, f *OutputFormatter) error {
				sess := a.Session().Snapshot()
				if !sess.Authenticated() {
					return f.Render(map[string]any{"state": sess.State}, func(w io.Writer) {
						fmt.Fprintln(w, "Not logged in")
					})
				}
				return renderUser(f, sess.User, "Logged in as")
			})
		},
	}
}

func NewRegisterCommand(rootOpts *RootOptions) *cobra.Command {
	creds := &credentialFlags{}
	var role string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Long: `Create an account. When logged in as an admin the new account is
created for someone else and the current session is kept; otherwise the
session switches to the new account.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.session(cmd, "/register", func(ctx context.Context, a *app.App, f *OutputFormatter) error {
				flow := a.RegisterFlow(ctx)
				res, switched, err := flow.Submit(ctx, creds.username, creds.resolvePassword(cmd.InOrStdin()), domain.Role(role))
				if err != nil {
					return f.Fail(err)
				}
				prefix := "Created account"
				if switched {
					prefix = "Registered and logged in as"
				}
				return renderUser(f, &res.User, prefix)
			})
		},
	}
	creds.bind(cmd)
	cmd.Flags().StringVar(&role, "role", "user", "role of the new account (user|admin)")
	return cmd
}

func renderUser(f *OutputFormatter, u *domain.UserProfile, prefix string) error {
	return f.Render(u, func(w io.Writer) {
		fmt.Fprintf(w, "%s %s (%s)\n", prefix, u.Username, u.Role)
	})
}
