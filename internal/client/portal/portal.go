// Package portal wraps the role-scoped endpoints of the campus API. Every
// call goes through the shared apiclient.Client, so credentials and 401
// handling are never dealt with here.
package portal

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/atinyakov/CampusPortal/internal/client/apiclient"
	"github.com/atinyakov/CampusPortal/internal/models"
)

// DefaultLimit is the page size used by list views.
const DefaultLimit = 100

// Services groups the per-role API wrappers.
type Services struct {
	Admin    *Admin
	Student  *Student
	Head     *Head
	Employee *Employee
}

// New builds all role services on top of c.
func New(c *apiclient.Client) *Services {
	return &Services{
		Admin:    &Admin{c: c},
		Student:  &Student{c: c},
		Head:     &Head{c: c},
		Employee: &Employee{c: c},
	}
}

// Page selects a window of a listing.
type Page struct {
	Skip  int
	Limit int
}

func (p Page) query() url.Values {
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	return url.Values{
		"skip":  {strconv.Itoa(max(p.Skip, 0))},
		"limit": {strconv.Itoa(limit)},
	}
}

func calendarQuery(start, end time.Time) url.Values {
	return url.Values{
		"start_time": {start.UTC().Format(time.RFC3339)},
		"end_time":   {end.UTC().Format(time.RFC3339)},
	}
}

func list[T any](ctx context.Context, c *apiclient.Client, path string, q url.Values) ([]T, error) {
	var out []T
	if err := c.Get(ctx, path, q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func one[T any](ctx context.Context, c *apiclient.Client, path string) (T, error) {
	var out T
	err := c.Get(ctx, path, nil, &out)
	return out, err
}

func dashboard(ctx context.Context, c *apiclient.Client, path string) (models.DashboardStats, error) {
	stats := models.DashboardStats{}
	if err := c.Get(ctx, path, nil, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

func create[T any](ctx context.Context, c *apiclient.Client, path string, in T) (T, error) {
	var out T
	err := c.Post(ctx, path, in, &out)
	return out, err
}
