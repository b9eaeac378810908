// Package shell is the interactive front end of the portal client: a REPL
// that shows the role menu and renders guarded views.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/atinyakov/CampusPortal/internal/client/credstore"
	"github.com/atinyakov/CampusPortal/internal/client/guard"
	"github.com/atinyakov/CampusPortal/internal/client/portal"
	"github.com/atinyakov/CampusPortal/internal/client/session"
)

// User-facing messages.
const (
	msgInvalidLogin    = "Invalid email or password. Please try again."
	msgUnreachable     = "Unable to reach the server. Please try again later."
	msgPasswordFailed  = "Failed to change password. Please check your old password."
	msgPasswordChanged = "Password changed successfully."
	msgUnauthorized    = "Unauthorized Access"
	msgLoading         = "Loading..."
)

var errPasswordMismatch = errors.New("new passwords do not match")

// maxRedirects bounds redirect chains during one navigation.
const maxRedirects = 4

// Config wires a Shell.
type Config struct {
	Session  *session.Store
	Guard    *guard.Guard
	Services *portal.Services
	Creds    credstore.Store
	Poller   *portal.UnreadPoller
	In       io.Reader
	Out      io.Writer
	Log      *zap.Logger
}

// Shell is the interactive portal session.
type Shell struct {
	sess   *session.Store
	guard  *guard.Guard
	svc    *portal.Services
	creds  credstore.Store
	poller *portal.UnreadPoller
	prompt *Prompter
	out    io.Writer
	log    *zap.Logger
	views  map[string]view

	current string
}

// New builds a Shell.
func New(cfg Config) *Shell {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	g := cfg.Guard
	if g == nil {
		g = guard.New(cfg.Session, nil)
	}
	return &Shell{
		sess:   cfg.Session,
		guard:  g,
		svc:    cfg.Services,
		creds:  cfg.Creds,
		poller: cfg.Poller,
		prompt: NewPrompter(cfg.In, cfg.Out),
		out:    cfg.Out,
		log:    log,
		views:  defaultViews(),
	}
}

// Current returns the path of the last rendered view.
func (s *Shell) Current() string { return s.current }

// Run waits for the session to initialize, opens the landing view and reads
// commands until "exit", end of input or ctx cancellation.
func (s *Shell) Run(ctx context.Context) error {
	select {
	case <-s.sess.Ready():
	default:
		s.printf("%s\n", msgLoading)
		select {
		case <-s.sess.Ready():
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if u, ok := s.sess.CurrentUser(); ok {
		s.Navigate(ctx, guard.HomePath(u.Role))
	} else {
		s.printf("Welcome to the campus portal. Type 'login' to sign in or 'help' for commands.\n")
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(s.out, s.promptString())
		line, ok := s.prompt.Line()
		if !ok {
			s.printf("\n")
			return nil
		}
		if quit := s.Exec(ctx, line); quit {
			return nil
		}
	}
}

// Exec runs one command line. It reports whether the shell should stop.
func (s *Shell) Exec(ctx context.Context, line string) (quit bool) {
	args := strings.Fields(line)
	if len(args) == 0 {
		return false
	}

	switch args[0] {
	case "help":
		s.help()
	case "menu":
		s.menu()
	case "go":
		if len(args) < 2 {
			s.printf("Usage: go <path|n> [args]\n")
			return false
		}
		s.Navigate(ctx, s.resolveTarget(args[1]), args[2:]...)
	case "login":
		s.Navigate(ctx, guard.LoginPath)
	case "logout":
		s.sess.Logout()
		s.printf("Logged out.\n")
		s.current = guard.LoginPath
	case "whoami":
		s.whoami()
	case "passwd":
		s.Navigate(ctx, "/change-password")
	case "token":
		s.inspectToken()
	case "confirm":
		if len(args) < 2 {
			s.printf("Usage: confirm <event-id> [note]\n")
			return false
		}
		s.confirm(ctx, args[1], strings.Join(args[2:], " "))
	case "read":
		if len(args) < 2 {
			s.printf("Usage: read <notification-id>\n")
			return false
		}
		s.markRead(ctx, args[1])
	case "exit", "quit":
		s.printf("Bye\n")
		return true
	default:
		s.printf("Unknown command. Type 'help' for a list of commands.\n")
	}
	return false
}

// Navigate opens path through the guard, following redirects.
func (s *Shell) Navigate(ctx context.Context, path string, args ...string) {
	for range maxRedirects {
		d := s.guard.Navigate(path)
		s.log.Debug("navigate",
			zap.String("path", d.Path),
			zap.Stringer("outcome", d.Outcome),
			zap.String("redirect", d.Redirect),
		)

		switch d.Outcome {
		case guard.ShowLoading:
			s.printf("%s\n", msgLoading)
			return
		case guard.RedirectLogin:
			s.printf("Please log in to continue.\n")
			path, args = d.Redirect, nil
			continue
		case guard.RedirectUnauthorized:
			path, args = d.Redirect, nil
			continue
		}

		s.current = d.Path
		next := s.render(ctx, d, args)
		if next == "" {
			return
		}
		path, args = next, nil
	}
}

// render shows the view for an allowed path. A non-empty result is a
// follow-up navigation, e.g. to the role's home after logging in.
func (s *Shell) render(ctx context.Context, d guard.Decision, args []string) string {
	if !d.Public {
		s.printf("== %s ==\n", d.Route.Title)
	}
	v, ok := s.views[d.Path]
	if !ok {
		s.printf("Nothing to show at %s.\n", d.Path)
		return ""
	}
	next, err := v(ctx, s, args)
	if err != nil {
		s.showError(err)
	}
	return next
}

func (s *Shell) resolveTarget(arg string) string {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return arg
	}
	u, ok := s.sess.CurrentUser()
	if !ok {
		return arg
	}
	menu := s.guard.Table().Menu(u.Role)
	if n < 1 || n > len(menu) {
		return arg
	}
	return menu[n-1].Path
}

func (s *Shell) promptString() string {
	u, ok := s.sess.CurrentUser()
	if !ok {
		return "portal> "
	}
	if s.poller != nil {
		if n := s.poller.Count(); n > 0 {
			return fmt.Sprintf("portal(%s)[%d unread]> ", u.Role, n)
		}
	}
	return fmt.Sprintf("portal(%s)> ", u.Role)
}

func (s *Shell) help() {
	s.printf(`Available commands:
  help                      show this help
  menu                      list the pages available to you
  go <path|n> [args]        open a page by path or menu number
  login                     sign in
  logout                    sign out
  whoami                    show the signed-in user
  passwd                    change your password
  token                     show details about the stored token
  confirm <event-id> [note] confirm attendance at an event (students)
  read <notification-id>    mark a notification as read (students)
  exit                      leave the portal
`)
}

func (s *Shell) menu() {
	u, ok := s.sess.CurrentUser()
	if !ok {
		s.printf("Not logged in. Type 'login' to sign in.\n")
		return
	}
	s.printf("%s (%s)\n", displayName(u.FullName, u.Email), u.Role)
	for i, r := range s.guard.Table().Menu(u.Role) {
		marker := " "
		if r.Path == s.current {
			marker = "*"
		}
		s.printf("%s %d. %-24s %s\n", marker, i+1, r.Title, r.Path)
	}
}

func (s *Shell) whoami() {
	u, ok := s.sess.CurrentUser()
	if !ok {
		s.printf("Not logged in.\n")
		return
	}
	tw := newTable(s.out)
	tw.row("Name", displayName(u.FullName, u.Username))
	tw.row("Email", u.Email)
	tw.row("Role", string(u.Role))
	tw.row("Department", orNA(u.Department))
	tw.flush()
}

func (s *Shell) confirm(ctx context.Context, eventID, note string) {
	if !s.requireStudent() {
		return
	}
	c, err := s.svc.Student.ConfirmEvent(ctx, eventID, note)
	if err != nil {
		s.showError(err)
		return
	}
	s.printf("Attendance confirmed (confirmation %s).\n", orNA(c.ID))
}

func (s *Shell) markRead(ctx context.Context, id string) {
	if !s.requireStudent() {
		return
	}
	if err := s.svc.Student.MarkRead(ctx, id); err != nil {
		s.showError(err)
		return
	}
	s.printf("Notification marked as read.\n")
	if s.poller != nil {
		s.poller.Refresh()
	}
}

func (s *Shell) requireStudent() bool {
	switch guard.Evaluate(s.sess.View(), studentOnly) {
	case guard.Render:
		return true
	case guard.RedirectLogin:
		s.printf("Please log in to continue.\n")
	default:
		s.printf("%s\n", msgUnauthorized)
	}
	return false
}

// showError maps errors to the messages a user should see.
func (s *Shell) showError(err error) {
	s.log.Info("command failed", zap.Error(err))
	switch {
	case errors.Is(err, session.ErrMissingCredentials):
		s.printf("Please enter both email and password.\n")
	case errors.Is(err, session.ErrInvalidCredentials):
		s.printf("%s\n", msgInvalidLogin)
	case errors.Is(err, session.ErrUnreachable):
		s.printf("%s\n", msgUnreachable)
	case errors.Is(err, portal.ErrInvalidEventID):
		s.printf("Invalid event ID format. Please contact support.\n")
	case errors.Is(err, portal.ErrConfirmationInvalid):
		s.printf("Validation error. Please check your input.\n")
	case errors.Is(err, portal.ErrAlreadyConfirmed):
		s.printf("You have already confirmed attendance for this event.\n")
	case errors.Is(err, portal.ErrConfirmationForbidden):
		s.printf("You do not have permission to confirm this event.\n")
	default:
		s.printf("Error: %v\n", err)
	}
}

func (s *Shell) printf(format string, a ...any) {
	fmt.Fprintf(s.out, format, a...)
}
