package shell

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/atinyakov/CampusPortal/internal/models"
)

type table struct {
	tw *tabwriter.Writer
}

func newTable(w io.Writer) *table {
	return &table{tw: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
}

func (t *table) row(cols ...string) {
	fmt.Fprintln(t.tw, strings.Join(cols, "\t"))
}

func (t *table) flush() {
	_ = t.tw.Flush()
}

func writeStats(w io.Writer, stats models.DashboardStats) {
	if len(stats) == 0 {
		fmt.Fprintln(w, "No statistics available.")
		return
	}
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := newTable(w)
	for _, k := range keys {
		t.row(statLabel(k), fmt.Sprint(stats[k]))
	}
	t.flush()
}

// statLabel turns "total_events" into "Total events".
func statLabel(key string) string {
	s := strings.ReplaceAll(key, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func writeEvents(w io.Writer, events []models.Event) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No events found.")
		return
	}
	t := newTable(w)
	t.row("ID", "TITLE", "STARTS", "LOCATION", "DEADLINE")
	for _, e := range events {
		t.row(e.ID, e.Title, formatDateTime(e.StartTime), orNA(e.Location), formatDate(e.Deadline))
	}
	t.flush()
}

func writeOpportunities(w io.Writer, opps []models.Opportunity) {
	if len(opps) == 0 {
		fmt.Fprintln(w, "No opportunities found.")
		return
	}
	t := newTable(w)
	t.row("ID", "TITLE", "DEPARTMENT", "DEADLINE")
	for _, o := range opps {
		t.row(o.ID, o.Title, orNA(o.Department), formatDate(o.Deadline))
	}
	t.flush()
}

func writeNotifications(w io.Writer, notes []models.Notification) {
	if len(notes) == 0 {
		fmt.Fprintln(w, "No notifications.")
		return
	}
	t := newTable(w)
	t.row("", "ID", "TITLE", "RECEIVED")
	for _, n := range notes {
		unread := "*"
		if n.IsRead {
			unread = " "
		}
		t.row(unread, n.ID, n.Title, formatDateTime(n.CreatedAt))
	}
	t.flush()
}

func writeUsers(w io.Writer, users []models.User) {
	if len(users) == 0 {
		fmt.Fprintln(w, "No users found.")
		return
	}
	t := newTable(w)
	t.row("ID", "NAME", "EMAIL", "ROLE", "DEPARTMENT")
	for _, u := range users {
		t.row(u.ID, displayName(u.FullName, u.Username), u.Email, string(u.Role), orNA(u.Department))
	}
	t.flush()
}

// writeConfirmed prints at most limit rows; limit <= 0 prints all.
func writeConfirmed(w io.Writer, rows []models.ConfirmedStudent, limit int) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No confirmed students.")
		return
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	t := newTable(w)
	t.row("STUDENT", "EMAIL", "EVENT")
	for _, r := range rows {
		t.row(displayName(r.FullName, r.StudentID), orNA(r.Email), displayName(r.EventTitle, r.EventID))
	}
	t.flush()
}

func displayName(preferred, fallback string) string {
	if preferred != "" {
		return preferred
	}
	return orNA(fallback)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Local().Format("2006-01-02")
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Local().Format("2006-01-02 15:04")
}
