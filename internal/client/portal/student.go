package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/atinyakov/CampusPortal/internal/client/apiclient"
	"github.com/atinyakov/CampusPortal/internal/client/session"
	"github.com/atinyakov/CampusPortal/internal/models"
	"github.com/atinyakov/CampusPortal/internal/validation"
)

// Event confirmation failures.
var (
	ErrInvalidEventID        = errors.New("invalid event id")
	ErrConfirmationInvalid   = errors.New("confirmation rejected by validation")
	ErrAlreadyConfirmed      = errors.New("event already confirmed")
	ErrConfirmationForbidden = errors.New("not allowed to confirm this event")
)

// confirmationRequest is the exact body the confirmation endpoint accepts.
type confirmationRequest struct {
	EventID string                    `json:"event_id"`
	Status  models.ConfirmationStatus `json:"status"`
	Note    string                    `json:"note,omitempty"`
}

// Student wraps the /student endpoints.
type Student struct {
	c *apiclient.Client
}

// Dashboard returns the student's counters.
func (s *Student) Dashboard(ctx context.Context) (models.DashboardStats, error) {
	return dashboard(ctx, s.c, "/student/dashboard/")
}

// Events lists events open to the student.
func (s *Student) Events(ctx context.Context, p Page) ([]models.Event, error) {
	return list[models.Event](ctx, s.c, "/student/events/", p.query())
}

// Event returns one event.
func (s *Student) Event(ctx context.Context, id string) (models.Event, error) {
	return one[models.Event](ctx, s.c, "/student/events/"+url.PathEscape(validation.NormalizeUUID(id)))
}

// Calendar lists events between start and end.
func (s *Student) Calendar(ctx context.Context, start, end time.Time) ([]models.Event, error) {
	return list[models.Event](ctx, s.c, "/student/events/calendar_view/", calendarQuery(start, end))
}

// Opportunities lists opportunities open to the student.
func (s *Student) Opportunities(ctx context.Context, p Page) ([]models.Opportunity, error) {
	return list[models.Opportunity](ctx, s.c, "/student/opportunities/", p.query())
}

// MyConfirmations lists the student's attendance confirmations.
func (s *Student) MyConfirmations(ctx context.Context) ([]models.EventConfirmation, error) {
	return list[models.EventConfirmation](ctx, s.c, "/student/my_event_confirmations/", nil)
}

// ConfirmEvent confirms attendance. The id may be given without dashes. The
// note is trimmed and left out when empty.
func (s *Student) ConfirmEvent(ctx context.Context, eventID, note string) (models.EventConfirmation, error) {
	id, err := validation.ParseEventID(eventID)
	if err != nil {
		return models.EventConfirmation{}, fmt.Errorf("%w: %w", ErrInvalidEventID, err)
	}

	req := confirmationRequest{
		EventID: id.String(),
		Status:  models.ConfirmationConfirmed,
		Note:    strings.TrimSpace(note),
	}
	var out models.EventConfirmation
	if err := s.c.Post(ctx, "/student/event_confirmations/", req, &out); err != nil {
		return models.EventConfirmation{}, classifyConfirmation(err)
	}
	return out, nil
}

func classifyConfirmation(err error) error {
	status, ok := apiclient.StatusOf(err)
	switch {
	case !ok:
		return fmt.Errorf("%w: %w", session.ErrUnreachable, err)
	case status == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %w", ErrConfirmationInvalid, err)
	case status == http.StatusConflict:
		return fmt.Errorf("%w: %w", ErrAlreadyConfirmed, err)
	case status == http.StatusForbidden:
		return fmt.Errorf("%w: %w", ErrConfirmationForbidden, err)
	}
	return fmt.Errorf("confirm event: %w", err)
}

// NotificationFilter narrows a notification listing.
type NotificationFilter struct {
	Page
	UnreadOnly bool
	Type       string
}

// Notifications lists the student's notifications.
func (s *Student) Notifications(ctx context.Context, f NotificationFilter) ([]models.Notification, error) {
	q := f.Page.query()
	q.Set("unread_only", strconv.FormatBool(f.UnreadOnly))
	if f.Type != "" {
		q.Set("notification_type", f.Type)
	}
	return list[models.Notification](ctx, s.c, "/student/notifications/", q)
}

// UnreadCount returns the number of unread notifications. The API answers
// with a bare number, sometimes quoted.
func (s *Student) UnreadCount(ctx context.Context) (int, error) {
	var raw json.RawMessage
	if err := s.c.Get(ctx, "/student/notifications/unread_count", nil, &raw); err != nil {
		return 0, err
	}
	return parseCount(raw)
}

func parseCount(raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '{' {
		var obj struct {
			Count *int `json:"count"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil || obj.Count == nil {
			return 0, fmt.Errorf("unexpected unread count %s", raw)
		}
		return *obj.Count, nil
	}
	n, err := strconv.Atoi(strings.Trim(string(raw), `"`))
	if err != nil {
		return 0, fmt.Errorf("unexpected unread count %s: %w", raw, err)
	}
	return n, nil
}

// MarkRead marks one notification as read.
func (s *Student) MarkRead(ctx context.Context, id string) error {
	return s.c.Put(ctx, "/student/notifications/"+url.PathEscape(id)+"/read", nil, nil)
}

// MarkAllRead marks every notification as read.
func (s *Student) MarkAllRead(ctx context.Context) error {
	return s.c.Put(ctx, "/student/notifications/mark_all_read", nil, nil)
}
