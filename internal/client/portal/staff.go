package portal

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/atinyakov/CampusPortal/internal/client/apiclient"
	"github.com/atinyakov/CampusPortal/internal/models"
	"github.com/atinyakov/CampusPortal/internal/validation"
)

// Head wraps the /head endpoints of a department head.
type Head struct {
	c *apiclient.Client
}

// Dashboard returns the department counters.
func (h *Head) Dashboard(ctx context.Context) (models.DashboardStats, error) {
	return dashboard(ctx, h.c, "/head/dashboard")
}

// Events lists the department's events.
func (h *Head) Events(ctx context.Context, p Page) ([]models.Event, error) {
	return list[models.Event](ctx, h.c, "/head/events/", p.query())
}

// CreateEvent publishes a department event.
func (h *Head) CreateEvent(ctx context.Context, e models.Event) (models.Event, error) {
	return create(ctx, h.c, "/head/events/", e)
}

// DeleteEvent removes a department event.
func (h *Head) DeleteEvent(ctx context.Context, id string) error {
	return h.c.Delete(ctx, "/head/events/"+url.PathEscape(id))
}

// Opportunities lists the department's opportunities.
func (h *Head) Opportunities(ctx context.Context, p Page) ([]models.Opportunity, error) {
	return list[models.Opportunity](ctx, h.c, "/head/opportunities/", p.query())
}

// EventConfirmations lists students confirmed for one event.
func (h *Head) EventConfirmations(ctx context.Context, eventID string) ([]models.ConfirmedStudent, error) {
	path := "/head/events/" + url.PathEscape(validation.NormalizeUUID(eventID)) + "/confirmations"
	return list[models.ConfirmedStudent](ctx, h.c, path, nil)
}

// Calendar lists department events between start and end.
func (h *Head) Calendar(ctx context.Context, start, end time.Time) ([]models.Event, error) {
	return list[models.Event](ctx, h.c, "/head/events/calendar_view/", calendarQuery(start, end))
}

// DepartmentEvents lists every event of the head's department.
func (h *Head) DepartmentEvents(ctx context.Context) ([]models.Event, error) {
	return list[models.Event](ctx, h.c, "/head/dashboard/department_events/", nil)
}

// DepartmentUsers lists the members of the head's department.
func (h *Head) DepartmentUsers(ctx context.Context) ([]models.User, error) {
	return list[models.User](ctx, h.c, "/head/dashboard/department_users/", nil)
}

// DepartmentActivity is the head's notifications page data.
type DepartmentActivity struct {
	Events []models.Event
	Users  []models.User
}

// Activity fetches department events and members concurrently.
func (h *Head) Activity(ctx context.Context) (DepartmentActivity, error) {
	var act DepartmentActivity
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		act.Events, err = h.DepartmentEvents(ctx)
		return err
	})
	g.Go(func() (err error) {
		act.Users, err = h.DepartmentUsers(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return DepartmentActivity{}, fmt.Errorf("department activity: %w", err)
	}
	return act, nil
}

// Employee wraps the /employee endpoints.
type Employee struct {
	c *apiclient.Client
}

// Dashboard returns the employee's counters.
func (e *Employee) Dashboard(ctx context.Context) (models.DashboardStats, error) {
	return dashboard(ctx, e.c, "/employee/dashboard")
}

// Events lists events the employee published.
func (e *Employee) Events(ctx context.Context, p Page) ([]models.Event, error) {
	return list[models.Event](ctx, e.c, "/employee/events/", p.query())
}

// CreateEvent publishes an event.
func (e *Employee) CreateEvent(ctx context.Context, ev models.Event) (models.Event, error) {
	return create(ctx, e.c, "/employee/events/", ev)
}

// Opportunities lists opportunities visible to the employee.
func (e *Employee) Opportunities(ctx context.Context, p Page) ([]models.Opportunity, error) {
	return list[models.Opportunity](ctx, e.c, "/employee/opportunities/", p.query())
}

// EventConfirmations lists students confirmed for one of the employee's events.
func (e *Employee) EventConfirmations(ctx context.Context, eventID string) ([]models.ConfirmedStudent, error) {
	path := "/employee/events/" + url.PathEscape(validation.NormalizeUUID(eventID)) + "/confirmations"
	return list[models.ConfirmedStudent](ctx, e.c, path, nil)
}

// Calendar lists events between start and end.
func (e *Employee) Calendar(ctx context.Context, start, end time.Time) ([]models.Event, error) {
	return list[models.Event](ctx, e.c, "/employee/events/calendar_view/", calendarQuery(start, end))
}

// Notifications lists the employee's notifications.
func (e *Employee) Notifications(ctx context.Context, p Page) ([]models.Notification, error) {
	return list[models.Notification](ctx, e.c, "/employee/notifications/", p.query())
}

// MarkRead marks one notification as read.
func (e *Employee) MarkRead(ctx context.Context, id string) error {
	return e.c.Put(ctx, "/employee/notifications/"+url.PathEscape(id)+"/read", nil, nil)
}
