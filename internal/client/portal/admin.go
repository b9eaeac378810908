package portal

import (
	"context"
	"fmt"
	"net/url"

	"golang.org/x/sync/errgroup"

	"github.com/atinyakov/CampusPortal/internal/client/apiclient"
	"github.com/atinyakov/CampusPortal/internal/models"
)

// Admin wraps the /admin endpoints.
type Admin struct {
	c *apiclient.Client
}

// Dashboard returns the global counters.
func (a *Admin) Dashboard(ctx context.Context) (models.DashboardStats, error) {
	return dashboard(ctx, a.c, "/admin/dashboard")
}

// Users lists every account.
func (a *Admin) Users(ctx context.Context) ([]models.User, error) {
	return list[models.User](ctx, a.c, "/admin/users/", nil)
}

// Events lists events across all departments.
func (a *Admin) Events(ctx context.Context, p Page) ([]models.Event, error) {
	return list[models.Event](ctx, a.c, "/admin/events/all", p.query())
}

// CreateEvent publishes an event.
func (a *Admin) CreateEvent(ctx context.Context, e models.Event) (models.Event, error) {
	return create(ctx, a.c, "/admin/events/", e)
}

// DeleteEvent removes an event.
func (a *Admin) DeleteEvent(ctx context.Context, id string) error {
	return a.c.Delete(ctx, "/admin/events/"+url.PathEscape(id))
}

// Opportunities lists opportunities across all departments.
func (a *Admin) Opportunities(ctx context.Context, p Page) ([]models.Opportunity, error) {
	return list[models.Opportunity](ctx, a.c, "/admin/opportunities/all", p.query())
}

// ConfirmedStudents lists students confirmed for any event.
func (a *Admin) ConfirmedStudents(ctx context.Context) ([]models.ConfirmedStudent, error) {
	return list[models.ConfirmedStudent](ctx, a.c, "/admin/students_confirmed_for_any_event/", nil)
}

// Notifications lists notifications sent by admins.
func (a *Admin) Notifications(ctx context.Context) ([]models.Notification, error) {
	return list[models.Notification](ctx, a.c, "/admin/notifications/", nil)
}

// Overview is the admin landing page data.
type Overview struct {
	Stats     models.DashboardStats
	Confirmed []models.ConfirmedStudent
}

// Overview fetches the counters and the confirmed students concurrently.
// The first failure cancels the other request.
func (a *Admin) Overview(ctx context.Context) (Overview, error) {
	var ov Overview
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, err := a.Dashboard(ctx)
		if err != nil {
			return fmt.Errorf("dashboard stats: %w", err)
		}
		ov.Stats = stats
		return nil
	})
	g.Go(func() error {
		confirmed, err := a.ConfirmedStudents(ctx)
		if err != nil {
			return fmt.Errorf("confirmed students: %w", err)
		}
		ov.Confirmed = confirmed
		return nil
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	return ov, nil
}
