// Package guard decides what a navigation to a portal path should produce
// given the current session: a loading indicator, a redirect, or the view.
package guard

import (
	"slices"

	"github.com/atinyakov/CampusPortal/internal/models"
)

// Well-known redirect targets.
const (
	LoginPath        = "/login"
	UnauthorizedPath = "/unauthorized"
)

// Outcome is the result of evaluating a route against a session.
type Outcome int

const (
	// ShowLoading means the session is not initialized yet. Never a redirect.
	ShowLoading Outcome = iota
	// RedirectLogin sends an anonymous visitor to LoginPath.
	RedirectLogin
	// RedirectUnauthorized sends a user whose role is not allowed to
	// UnauthorizedPath.
	RedirectUnauthorized
	// Render shows the requested view.
	Render
)

func (o Outcome) String() string {
	switch o {
	case ShowLoading:
		return "loading"
	case RedirectLogin:
		return "redirect-login"
	case RedirectUnauthorized:
		return "redirect-unauthorized"
	case Render:
		return "render"
	}
	return "unknown"
}

// SessionView is the read-only slice of session state the guard looks at.
type SessionView struct {
	Initialized bool
	Restoring   bool
	User        *models.User
}

// Viewer is implemented by the session store.
type Viewer interface {
	View() SessionView
}

// Evaluate applies the guard rules in order: the initialization gate first,
// then presence of a user, then the role check. An empty allowed list admits
// any authenticated user.
func Evaluate(view SessionView, allowed []models.Role) Outcome {
	if !view.Initialized {
		return ShowLoading
	}
	if view.User == nil {
		return RedirectLogin
	}
	if len(allowed) > 0 && !slices.Contains(allowed, view.User.Role) {
		return RedirectUnauthorized
	}
	return Render
}

// Decision is the answer to a navigation request.
type Decision struct {
	Outcome Outcome
	// Path is the requested path.
	Path string
	// Redirect is set for the two redirect outcomes.
	Redirect string
	// Route is the matched descriptor. Zero for public paths.
	Route Route
	// Public reports that no descriptor matched.
	Public bool
}

// Guard evaluates navigations against a route table.
type Guard struct {
	session Viewer
	table   *Table
}

// New returns a Guard reading session state from s.
func New(s Viewer, t *Table) *Guard {
	if t == nil {
		t = DefaultTable()
	}
	return &Guard{session: s, table: t}
}

// Table returns the route table in use.
func (g *Guard) Table() *Table { return g.table }

// Navigate decides what visiting path yields right now. Paths without a
// descriptor are public and always render.
func (g *Guard) Navigate(path string) Decision {
	path = Clean(path)
	route, ok := g.table.Lookup(path)
	if !ok {
		return Decision{Outcome: Render, Path: path, Public: true}
	}

	d := Decision{Path: path, Route: route}
	d.Outcome = Evaluate(g.session.View(), route.Roles)
	switch d.Outcome {
	case RedirectLogin:
		d.Redirect = LoginPath
	case RedirectUnauthorized:
		d.Redirect = UnauthorizedPath
	}
	return d
}
