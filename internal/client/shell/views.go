package shell

import (
	"context"
	"errors"
	"io"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/CampusPortal/internal/client/guard"
	"github.com/atinyakov/CampusPortal/internal/client/portal"
	"github.com/atinyakov/CampusPortal/internal/models"
)

// view renders one page. A non-empty next path is navigated to afterwards.
type view func(ctx context.Context, s *Shell, args []string) (next string, err error)

var studentOnly = []models.Role{models.RoleStudent}

func defaultViews() map[string]view {
	return map[string]view{
		guard.LoginPath:        loginView,
		guard.UnauthorizedPath: unauthorizedView,
		"/change-password":     changePasswordView,

		"/admin/dashboard": adminDashboardView,
		"/admin/events": eventsView(func(ctx context.Context, s *Shell) ([]models.Event, error) {
			return s.svc.Admin.Events(ctx, portal.Page{})
		}),
		"/admin/opportunities": opportunitiesView(func(ctx context.Context, s *Shell) ([]models.Opportunity, error) {
			return s.svc.Admin.Opportunities(ctx, portal.Page{})
		}),
		"/admin/users":              adminUsersView,
		"/admin/confirmed-students": adminConfirmedView,
		"/admin/notifications": notificationsView(func(ctx context.Context, s *Shell) ([]models.Notification, error) {
			return s.svc.Admin.Notifications(ctx)
		}),

		"/student/dashboard": dashboardView(func(ctx context.Context, s *Shell) (models.DashboardStats, error) {
			return s.svc.Student.Dashboard(ctx)
		}),
		"/student/events": eventsView(func(ctx context.Context, s *Shell) ([]models.Event, error) {
			return s.svc.Student.Events(ctx, portal.Page{})
		}),
		"/student/opportunities": opportunitiesView(func(ctx context.Context, s *Shell) ([]models.Opportunity, error) {
			return s.svc.Student.Opportunities(ctx, portal.Page{})
		}),
		"/student/calendar": calendarView(func(ctx context.Context, s *Shell, from, to time.Time) ([]models.Event, error) {
			return s.svc.Student.Calendar(ctx, from, to)
		}),
		"/student/history":       historyView,
		"/student/profile":       profileView,
		"/student/notifications": studentNotificationsView,

		"/head/dashboard": dashboardView(func(ctx context.Context, s *Shell) (models.DashboardStats, error) { return s.svc.Head.Dashboard(ctx) }),
		"/head/events": eventsView(func(ctx context.Context, s *Shell) ([]models.Event, error) {
			return s.svc.Head.Events(ctx, portal.Page{})
		}),
		"/head/opportunities": opportunitiesView(func(ctx context.Context, s *Shell) ([]models.Opportunity, error) {
			return s.svc.Head.Opportunities(ctx, portal.Page{})
		}),
		"/head/notifications": headActivityView,
		"/head/calendar": calendarView(func(ctx context.Context, s *Shell, from, to time.Time) ([]models.Event, error) {
			return s.svc.Head.Calendar(ctx, from, to)
		}),
		"/head/confirmed-students": headConfirmedView,

		"/employee/dashboard": dashboardView(func(ctx context.Context, s *Shell) (models.DashboardStats, error) {
			return s.svc.Employee.Dashboard(ctx)
		}),
		"/employee/events": eventsView(func(ctx context.Context, s *Shell) ([]models.Event, error) {
			return s.svc.Employee.Events(ctx, portal.Page{})
		}),
		"/employee/opportunities": opportunitiesView(func(ctx context.Context, s *Shell) ([]models.Opportunity, error) {
			return s.svc.Employee.Opportunities(ctx, portal.Page{})
		}),
		"/employee/calendar": calendarView(func(ctx context.Context, s *Shell, from, to time.Time) ([]models.Event, error) {
			return s.svc.Employee.Calendar(ctx, from, to)
		}),
		"/employee/profile": profileView,
		"/employee/notifications": notificationsView(func(ctx context.Context, s *Shell) ([]models.Notification, error) {
			return s.svc.Employee.Notifications(ctx, portal.Page{})
		}),
	}
}

func loginView(ctx context.Context, s *Shell, _ []string) (string, error) {
	if u, ok := s.sess.CurrentUser(); ok {
		return guard.HomePath(u.Role), nil
	}

	form, err := PromptLogin(s.prompt)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", nil
		}
		return "", err
	}
	if err := s.sess.Login(ctx, form.Email, form.Password); err != nil {
		return "", err
	}

	u, _ := s.sess.CurrentUser()
	s.printf("Welcome, %s!\n", displayName(u.FullName, u.Email))
	return guard.HomePath(u.Role), nil
}

func unauthorizedView(_ context.Context, s *Shell, _ []string) (string, error) {
	s.printf("%s\n", msgUnauthorized)
	return "", nil
}

func changePasswordView(ctx context.Context, s *Shell, _ []string) (string, error) {
	form, err := PromptChangePassword(s.prompt)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", nil
		}
		return "", err
	}
	if err := s.sess.ChangePassword(ctx, form.OldPassword, form.NewPassword); err != nil {
		s.log.Info("change password failed", zap.Error(err))
		s.printf("%s\n", msgPasswordFailed)
		return "", nil
	}
	s.printf("%s\n", msgPasswordChanged)
	return "", nil
}

func dashboardView(fetch func(context.Context, *Shell) (models.DashboardStats, error)) view {
	return func(ctx context.Context, s *Shell, _ []string) (string, error) {
		stats, err := fetch(ctx, s)
		if err != nil {
			return "", err
		}
		writeStats(s.out, stats)
		return "", nil
	}
}

func adminDashboardView(ctx context.Context, s *Shell, _ []string) (string, error) {
	ov, err := s.svc.Admin.Overview(ctx)
	if err != nil {
		return "", err
	}
	writeStats(s.out, ov.Stats)
	s.printf("\nRecently confirmed students: %d\n", len(ov.Confirmed))
	writeConfirmed(s.out, ov.Confirmed, 5)
	return "", nil
}

func adminUsersView(ctx context.Context, s *Shell, _ []string) (string, error) {
	users, err := s.svc.Admin.Users(ctx)
	if err != nil {
		return "", err
	}
	writeUsers(s.out, users)
	return "", nil
}

func adminConfirmedView(ctx context.Context, s *Shell, _ []string) (string, error) {
	rows, err := s.svc.Admin.ConfirmedStudents(ctx)
	if err != nil {
		return "", err
	}
	writeConfirmed(s.out, rows, 0)
	return "", nil
}

func eventsView(fetch func(context.Context, *Shell) ([]models.Event, error)) view {
	return func(ctx context.Context, s *Shell, _ []string) (string, error) {
		events, err := fetch(ctx, s)
		if err != nil {
			return "", err
		}
		writeEvents(s.out, events)
		return "", nil
	}
}

func opportunitiesView(fetch func(context.Context, *Shell) ([]models.Opportunity, error)) view {
	return func(ctx context.Context, s *Shell, _ []string) (string, error) {
		opps, err := fetch(ctx, s)
		if err != nil {
			return "", err
		}
		writeOpportunities(s.out, opps)
		return "", nil
	}
}

func notificationsView(fetch func(context.Context, *Shell) ([]models.Notification, error)) view {
	return func(ctx context.Context, s *Shell, _ []string) (string, error) {
		notes, err := fetch(ctx, s)
		if err != nil {
			return "", err
		}
		writeNotifications(s.out, notes)
		return "", nil
	}
}

// calendarView lists the events of a month: the current one, or the one
// given as YYYY-MM.
func calendarView(fetch func(context.Context, *Shell, time.Time, time.Time) ([]models.Event, error)) view {
	return func(ctx context.Context, s *Shell, args []string) (string, error) {
		from, err := monthStart(time.Now(), args)
		if err != nil {
			return "", err
		}
		to := from.AddDate(0, 1, 0)
		events, err := fetch(ctx, s, from, to)
		if err != nil {
			return "", err
		}
		sort.Slice(events, func(i, j int) bool { return events[i].StartTime.Before(events[j].StartTime) })
		s.printf("%s\n", from.Format("January 2006"))
		writeEvents(s.out, events)
		return "", nil
	}
}

func monthStart(now time.Time, args []string) (time.Time, error) {
	if len(args) == 0 {
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse("2006-01", args[0])
	if err != nil {
		return time.Time{}, errors.New("month must look like 2025-03")
	}
	return t, nil
}

func historyView(ctx context.Context, s *Shell, _ []string) (string, error) {
	rows, err := s.svc.Student.MyConfirmations(ctx)
	if err != nil {
		return "", err
	}
	tw := newTable(s.out)
	tw.row("EVENT", "STATUS", "NOTE", "CONFIRMED")
	for _, c := range rows {
		tw.row(c.EventID, string(c.Status), orNA(c.Note), formatDate(c.CreatedAt))
	}
	tw.flush()
	return "", nil
}

func profileView(_ context.Context, s *Shell, _ []string) (string, error) {
	s.whoami()
	s.printf("\nUse 'passwd' to change your password.\n")
	return "", nil
}

func studentNotificationsView(ctx context.Context, s *Shell, args []string) (string, error) {
	f := portal.NotificationFilter{Page: portal.Page{Limit: 10}}
	for _, a := range args {
		switch a {
		case "unread":
			f.UnreadOnly = true
		case "all-read":
			if err := s.svc.Student.MarkAllRead(ctx); err != nil {
				return "", err
			}
			s.printf("All notifications marked as read.\n")
			if s.poller != nil {
				s.poller.Refresh()
			}
		default:
			if n, err := strconv.Atoi(a); err == nil && n > 0 {
				f.Limit = n
			}
		}
	}
	notes, err := s.svc.Student.Notifications(ctx, f)
	if err != nil {
		return "", err
	}
	writeNotifications(s.out, notes)
	return "", nil
}

func headActivityView(ctx context.Context, s *Shell, _ []string) (string, error) {
	act, err := s.svc.Head.Activity(ctx)
	if err != nil {
		return "", err
	}
	s.printf("Department events: %d\n", len(act.Events))
	writeEvents(s.out, act.Events)
	s.printf("\nDepartment members: %d\n", len(act.Users))
	writeUsers(s.out, act.Users)
	return "", nil
}

// headConfirmedView lists the department's events, or the students
// confirmed for the event given as argument.
func headConfirmedView(ctx context.Context, s *Shell, args []string) (string, error) {
	if len(args) == 0 {
		events, err := s.svc.Head.Events(ctx, portal.Page{})
		if err != nil {
			return "", err
		}
		writeEvents(s.out, events)
		s.printf("\nUse 'go /head/confirmed-students <event-id>' to list confirmed students.\n")
		return "", nil
	}
	rows, err := s.svc.Head.EventConfirmations(ctx, args[0])
	if err != nil {
		return "", err
	}
	writeConfirmed(s.out, rows, 0)
	return "", nil
}
