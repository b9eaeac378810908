package guard

import (
	"path"
	"slices"
	"strings"

	"github.com/atinyakov/CampusPortal/internal/models"
)

// Route is a permission descriptor for one protected path.
type Route struct {
	Path  string
	Title string
	// Roles allowed to open the path. Never empty for a protected route.
	Roles []models.Role
	// Menu marks routes listed in the role's sidebar menu.
	Menu bool
}

// Table is an ordered set of route descriptors.
type Table struct {
	routes []Route
	index  map[string]int
}

// NewTable builds a table. Later duplicates of a path replace earlier ones.
func NewTable(routes ...Route) *Table {
	t := &Table{index: make(map[string]int, len(routes))}
	for _, r := range routes {
		r.Path = Clean(r.Path)
		if i, ok := t.index[r.Path]; ok {
			t.routes[i] = r
			continue
		}
		t.index[r.Path] = len(t.routes)
		t.routes = append(t.routes, r)
	}
	return t
}

// Lookup returns the descriptor for path.
func (t *Table) Lookup(path string) (Route, bool) {
	i, ok := t.index[Clean(path)]
	if !ok {
		return Route{}, false
	}
	return t.routes[i], true
}

// Routes returns all descriptors in table order.
func (t *Table) Routes() []Route {
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}

// Menu returns the sidebar entries for role, in table order.
func (t *Table) Menu(role models.Role) []Route {
	var out []Route
	for _, r := range t.routes {
		if r.Menu && slices.Contains(r.Roles, role) {
			out = append(out, r)
		}
	}
	return out
}

// Clean normalizes a path: leading slash, no trailing slash, no blanks,
// no "." or ".." elements.
func Clean(p string) string {
	p = strings.TrimSpace(p)
	return path.Clean("/" + strings.Trim(p, "/"))
}

func only(role models.Role) []models.Role { return []models.Role{role} }

// DefaultTable is the portal's route tree.
func DefaultTable() *Table {
	admin, student := only(models.RoleAdmin), only(models.RoleStudent)
	head, employee := only(models.RoleHead), only(models.RoleEmployee)

	return NewTable(
		Route{Path: "/change-password", Title: "Change Password", Roles: models.AllRoles},

		Route{Path: "/admin/dashboard", Title: "Dashboard Overview", Roles: admin, Menu: true},
		Route{Path: "/admin/events", Title: "Event Management", Roles: admin, Menu: true},
		Route{Path: "/admin/opportunities", Title: "Opportunity Management", Roles: admin, Menu: true},
		Route{Path: "/admin/users", Title: "User Management", Roles: admin, Menu: true},
		Route{Path: "/admin/confirmed-students", Title: "Confirmed Students", Roles: admin, Menu: true},
		Route{Path: "/admin/notifications", Title: "Notifications", Roles: admin, Menu: true},

		Route{Path: "/student/dashboard", Title: "My Dashboard", Roles: student, Menu: true},
		Route{Path: "/student/events", Title: "Browse Events", Roles: student, Menu: true},
		Route{Path: "/student/opportunities", Title: "Browse Opportunity", Roles: student, Menu: true},
		Route{Path: "/student/calendar", Title: "Calendar View", Roles: student, Menu: true},
		Route{Path: "/student/history", Title: "Event History", Roles: student, Menu: true},
		Route{Path: "/student/profile", Title: "Profile Settings", Roles: student, Menu: true},
		Route{Path: "/student/notifications", Title: "Notifications", Roles: student, Menu: true},

		Route{Path: "/head/dashboard", Title: "Department Dashboard", Roles: head, Menu: true},
		Route{Path: "/head/events", Title: "Event Management", Roles: head, Menu: true},
		Route{Path: "/head/opportunities", Title: "Opportunity Management", Roles: head, Menu: true},
		Route{Path: "/head/notifications", Title: "Notifications", Roles: head, Menu: true},
		Route{Path: "/head/calendar", Title: "Calendar View", Roles: head, Menu: true},
		Route{Path: "/head/confirmed-students", Title: "Confirmed Students", Roles: head, Menu: true},

		Route{Path: "/employee/dashboard", Title: "My Dashboard", Roles: employee, Menu: true},
		Route{Path: "/employee/events", Title: "Event Management", Roles: employee, Menu: true},
		Route{Path: "/employee/opportunities", Title: "Opportunity Management", Roles: employee, Menu: true},
		Route{Path: "/employee/calendar", Title: "Calendar View", Roles: employee, Menu: true},
		Route{Path: "/employee/profile", Title: "Profile Settings", Roles: employee, Menu: true},
		Route{Path: "/employee/notifications", Title: "Notifications", Roles: employee, Menu: true},
	)
}

// HomePath is where a user of the given role lands after logging in.
func HomePath(role models.Role) string {
	switch role {
	case models.RoleAdmin:
		return "/admin/dashboard"
	case models.RoleStudent:
		return "/student/dashboard"
	case models.RoleHead:
		return "/head/dashboard"
	case models.RoleEmployee:
		return "/employee/dashboard"
	}
	return UnauthorizedPath
}
