package google

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/missive/pkg/domain"
	"google.golang.org/api/calendar/v3"
)

// DefaultCalendarID is the authorized user's main calendar.
const DefaultCalendarID = "primary"

// Calendar is a ports.Calendar backed by the Google Calendar API.
type Calendar struct {
	svc        *calendar.Service
	calendarID string
}

// NewCalendar wraps an authorized Calendar service.
func NewCalendar(svc *calendar.Service, calendarID string) *Calendar {
	if calendarID == "" {
		calendarID = DefaultCalendarID
	}
	return &Calendar{svc: svc, calendarID: calendarID}
}

func (c *Calendar) CreateEvent(ctx context.Context, req domain.EventRequest) (domain.Event, error) {
	ev := &calendar.Event{
		Summary:     req.Title,
		Description: req.Description,
		Start:       &calendar.EventDateTime{DateTime: req.Start.Format(time.RFC3339), TimeZone: req.TimeZone},
		End:         &calendar.EventDateTime{DateTime: req.End.Format(time.RFC3339), TimeZone: req.TimeZone},
	}
	for _, email := range req.Attendees {
		ev.Attendees = append(ev.Attendees, &calendar.EventAttendee{Email: email})
	}

	created, err := c.svc.Events.Insert(c.calendarID, ev).Context(ctx).Do()
	if err != nil {
		return domain.Event{}, fmt.Errorf("inserting event: %w", err)
	}
	return toEvent(created), nil
}

func (c *Calendar) ListEvents(ctx context.Context, from, to time.Time) ([]domain.Event, error) {
	res, err := c.svc.Events.List(c.calendarID).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}

	events := make([]domain.Event, 0, len(res.Items))
	for _, item := range res.Items {
		events = append(events, toEvent(item))
	}
	return events, nil
}

func toEvent(ev *calendar.Event) domain.Event {
	out := domain.Event{
		ID:          ev.Id,
		Summary:     ev.Summary,
		Description: ev.Description,
		Start:       parseEventTime(ev.Start),
		End:         parseEventTime(ev.End),
		Link:        ev.HtmlLink,
	}
	for _, a := range ev.Attendees {
		out.Attendees = append(out.Attendees, a.Email)
	}
	return out
}

// parseEventTime reads a timed or all-day event boundary.
func parseEventTime(dt *calendar.EventDateTime) time.Time {
	if dt == nil {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, dt.DateTime); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", dt.Date); err == nil {
		return t
	}
	return time.Time{}
}
