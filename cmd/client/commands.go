package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atinyakov/CampusPortal/internal/client/guard"
	"github.com/atinyakov/CampusPortal/internal/client/portal"
	"github.com/atinyakov/CampusPortal/internal/client/shell"
	"github.com/atinyakov/CampusPortal/internal/validation"
)

var errNotLoggedIn = errors.New("not logged in")

func newRootCmd() *cobra.Command {
	f := &globalFlags{}

	root := &cobra.Command{
		Use:           "portal",
		Short:         "Campus events portal client",
		Long:          "Browse campus events, opportunities and notifications from the terminal.\nWithout a subcommand the interactive shell is started.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd, f)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&f.configPath, "config", "c", "", "path to a JSON config file")
	pf.StringVar(&f.apiURL, "api-url", "", "campus API base URL (overrides PORTAL_API_URL)")
	pf.StringVar(&f.stateDir, "state-dir", "", "directory for credentials and logs")
	pf.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.BoolVarP(&f.verbose, "verbose", "v", false, "log to stderr instead of the log file")
	pf.BoolVar(&f.ephemeral, "ephemeral", false, "keep the token in memory only")

	root.AddCommand(
		&cobra.Command{
			Use:   "shell",
			Short: "Start the interactive shell",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runShell(cmd, f)
			},
		},
		newLoginCmd(f),
		&cobra.Command{
			Use:   "logout",
			Short: "Forget the stored token",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := bootstrap(cmd.Context(), f)
				if err != nil {
					return err
				}
				defer a.Close()
				a.session.Logout()
				fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
				return nil
			},
		},
		&cobra.Command{
			Use:   "whoami",
			Short: "Show the user the stored token belongs to",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := bootstrap(cmd.Context(), f)
				if err != nil {
					return err
				}
				defer a.Close()
				u, ok := a.session.CurrentUser()
				if !ok {
					return errNotLoggedIn
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> role=%s home=%s\n",
					u.FullName, u.Email, u.Role, guard.HomePath(u.Role))
				return nil
			},
		},
		&cobra.Command{
			Use:   "passwd",
			Short: "Change the password of the logged-in user",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := bootstrap(cmd.Context(), f)
				if err != nil {
					return err
				}
				defer a.Close()
				if _, ok := a.session.CurrentUser(); !ok {
					return errNotLoggedIn
				}
				form, err := shell.PromptChangePassword(shell.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout()))
				if err != nil {
					return err
				}
				if err := a.session.ChangePassword(cmd.Context(), form.OldPassword, form.NewPassword); err != nil {
					return fmt.Errorf("failed to change password, please check your old password: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Password changed successfully.")
				return nil
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print build version and date",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				printVersion(cmd.OutOrStdout())
			},
		},
	)
	return root
}

func newLoginCmd(f *globalFlags) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context(), f)
			if err != nil {
				return err
			}
			defer a.Close()

			p := shell.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
			form := validation.LoginForm{Email: email}
			if form.Email == "" {
				form.Email, _ = p.Ask("Email: ")
			}
			form.Password, _ = p.Ask("Password: ")
			if err := validation.Struct(form); err != nil {
				return err
			}

			if err := a.session.Login(cmd.Context(), form.Email, form.Password); err != nil {
				return err
			}
			u, _ := a.session.CurrentUser()
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s).\n", u.Email, u.Role)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	return cmd
}

func runShell(cmd *cobra.Command, f *globalFlags) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := bootstrap(ctx, f)
	if err != nil {
		return err
	}
	defer a.Close()

	poller := portal.StartUnreadPoller(ctx, a.session, a.services.Student,
		portal.WithInterval(a.opts.PollInterval),
		portal.WithLogger(a.log.Log.Named("poller")),
	)

	sh := shell.New(shell.Config{
		Session:  a.session,
		Guard:    a.guard,
		Services: a.services,
		Creds:    a.creds,
		Poller:   poller,
		In:       cmd.InOrStdin(),
		Out:      cmd.OutOrStdout(),
		Log:      a.log.Log.Named("shell"),
	})
	err = sh.Run(ctx)
	if errors.Is(err, ctx.Err()) {
		return nil
	}
	return err
}
