package guard

import (
	"testing"

	"github.com/atinyakov/CampusPortal/internal/models"
)

type staticViewer SessionView

func (s staticViewer) View() SessionView { return SessionView(s) }

func user(role models.Role) *models.User {
	return &models.User{ID: "1", Email: "u@campus.edu", Role: role}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name    string
		view    SessionView
		allowed []models.Role
		want    Outcome
	}{
		{"not initialized, no user", SessionView{}, []models.Role{models.RoleAdmin}, ShowLoading},
		{"not initialized, user with allowed role", SessionView{User: user(models.RoleAdmin)}, []models.Role{models.RoleAdmin}, ShowLoading},
		{"not initialized, restoring", SessionView{Restoring: true}, nil, ShowLoading},
		{"initialized, no user", SessionView{Initialized: true}, []models.Role{models.RoleStudent}, RedirectLogin},
		{"initialized, no user, any role", SessionView{Initialized: true}, nil, RedirectLogin},
		{"role not allowed", SessionView{Initialized: true, User: user(models.RoleStudent)}, []models.Role{models.RoleAdmin}, RedirectUnauthorized},
		{"role allowed", SessionView{Initialized: true, User: user(models.RoleEmployee)}, []models.Role{models.RoleEmployee}, Render},
		{"one of many", SessionView{Initialized: true, User: user(models.RoleHead)}, models.AllRoles, Render},
		{"empty allowed admits any user", SessionView{Initialized: true, User: user(models.RoleStudent)}, nil, Render},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Evaluate(tt.view, tt.allowed); got != tt.want {
				t.Errorf("Evaluate() = %v; want %v", got, tt.want)
			}
		})
	}
}

func TestNavigate_HeadScenario(t *testing.T) {
	g := New(staticViewer{Initialized: true, User: user(models.RoleHead)}, nil)

	if d := g.Navigate("/head/dashboard"); d.Outcome != Render {
		t.Errorf("/head/dashboard: got %v; want render", d.Outcome)
	}

	d := g.Navigate("/admin/dashboard")
	if d.Outcome != RedirectUnauthorized || d.Redirect != UnauthorizedPath {
		t.Errorf("/admin/dashboard: got %v -> %q; want redirect to %s", d.Outcome, d.Redirect, UnauthorizedPath)
	}
}

func TestNavigate_AnonymousRedirectsToLogin(t *testing.T) {
	g := New(staticViewer{Initialized: true}, nil)

	d := g.Navigate("/student/events/")
	if d.Outcome != RedirectLogin || d.Redirect != LoginPath {
		t.Errorf("got %v -> %q; want redirect to %s", d.Outcome, d.Redirect, LoginPath)
	}
	if d.Path != "/student/events" {
		t.Errorf("path not cleaned: %q", d.Path)
	}
}

func TestNavigate_UnknownPathIsPublic(t *testing.T) {
	for _, view := range []SessionView{{}, {Initialized: true}} {
		g := New(staticViewer(view), nil)
		d := g.Navigate("/about")
		if d.Outcome != Render || !d.Public {
			t.Errorf("view %+v: got %+v; want public render", view, d)
		}
	}
}

func TestNavigate_LoadingBeforeInit(t *testing.T) {
	g := New(staticViewer{User: user(models.RoleAdmin)}, nil)
	d := g.Navigate("/admin/users")
	if d.Outcome != ShowLoading || d.Redirect != "" {
		t.Errorf("got %+v; want loading without redirect", d)
	}
}

func TestDefaultTable(t *testing.T) {
	tbl := DefaultTable()
	for _, r := range tbl.Routes() {
		if len(r.Roles) == 0 {
			t.Errorf("route %s has no roles", r.Path)
		}
		if r.Title == "" {
			t.Errorf("route %s has no title", r.Path)
		}
	}

	r, ok := tbl.Lookup("change-password")
	if !ok {
		t.Fatal("change-password route missing")
	}
	if len(r.Roles) != len(models.AllRoles) {
		t.Errorf("change-password roles = %v; want all", r.Roles)
	}
}

func TestMenu(t *testing.T) {
	tbl := DefaultTable()
	tests := []struct {
		role  models.Role
		first string
		count int
	}{
		{models.RoleAdmin, "/admin/dashboard", 6},
		{models.RoleStudent, "/student/dashboard", 7},
		{models.RoleHead, "/head/dashboard", 6},
		{models.RoleEmployee, "/employee/dashboard", 6},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			menu := tbl.Menu(tt.role)
			if len(menu) != tt.count {
				t.Fatalf("len(menu) = %d; want %d", len(menu), tt.count)
			}
			if menu[0].Path != tt.first {
				t.Errorf("first entry = %s; want %s", menu[0].Path, tt.first)
			}
			for _, r := range menu {
				if Evaluate(SessionView{Initialized: true, User: user(tt.role)}, r.Roles) != Render {
					t.Errorf("menu entry %s not reachable by %s", r.Path, tt.role)
				}
			}
		})
	}
}

func TestHomePath(t *testing.T) {
	tbl := DefaultTable()
	for _, role := range models.AllRoles {
		p := HomePath(role)
		r, ok := tbl.Lookup(p)
		if !ok {
			t.Fatalf("home %s for %s not in table", p, role)
		}
		if Evaluate(SessionView{Initialized: true, User: user(role)}, r.Roles) != Render {
			t.Errorf("%s cannot open its own home %s", role, p)
		}
	}
	if got := HomePath("janitor"); got != UnauthorizedPath {
		t.Errorf("HomePath(unknown) = %s; want %s", got, UnauthorizedPath)
	}
}

func TestNewTable_DuplicateReplaces(t *testing.T) {
	tbl := NewTable(
		Route{Path: "/x", Title: "one", Roles: []models.Role{models.RoleAdmin}},
		Route{Path: "x/", Title: "two", Roles: []models.Role{models.RoleHead}},
	)
	if n := len(tbl.Routes()); n != 1 {
		t.Fatalf("len = %d; want 1", n)
	}
	r, _ := tbl.Lookup("/x")
	if r.Title != "two" {
		t.Errorf("title = %s; want two", r.Title)
	}
}

func TestClean(t *testing.T) {
	tests := map[string]string{
		"":                        "/",
		"/":                       "/",
		"admin/users":             "/admin/users",
		" /login/ ":               "/login",
		"/head/events/":           "/head/events",
		"/admin/../admin/users":   "/admin/users",
		"//student///events":      "/student/events",
		"/student/./profile":      "/student/profile",
		"/../../admin/dashboard/": "/admin/dashboard",
	}
	for in, want := range tests {
		if got := Clean(in); got != want {
			t.Errorf("Clean(%q) = %q; want %q", in, got, want)
		}
	}
}

func TestNavigate_DotSegmentsAreGuarded(t *testing.T) {
	g := New(staticViewer{Initialized: true, User: user(models.RoleStudent)}, nil)
	d := g.Navigate("/admin/../admin/users")
	if d.Outcome != RedirectUnauthorized {
		t.Errorf("outcome = %v; want %v", d.Outcome, RedirectUnauthorized)
	}
	if d.Public {
		t.Error("a dot-segment path must resolve to its guarded route")
	}
}

func TestPhaseOf(t *testing.T) {
	tests := []struct {
		view SessionView
		want Phase
	}{
		{SessionView{}, Unstarted},
		{SessionView{Restoring: true}, Restoring},
		{SessionView{Initialized: true}, Anonymous},
		{SessionView{Initialized: true, User: user(models.RoleStudent)}, Authenticated},
	}
	for _, tt := range tests {
		if got := PhaseOf(tt.view); got != tt.want {
			t.Errorf("PhaseOf(%+v) = %v; want %v", tt.view, got, tt.want)
		}
	}
}
