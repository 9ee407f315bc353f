package tools

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/aretw0/missive/pkg/domain"
	"github.com/aretw0/missive/pkg/ports"
)

const (
	defaultDaysAhead     = 7
	defaultEventDuration = time.Hour
)

type createEventArgs struct {
	Title       string         `mapstructure:"title" validate:"required"`
	Start       string         `mapstructure:"start" validate:"required"`
	End         string         `mapstructure:"end"`
	Attendees   []string       `mapstructure:"attendees" validate:"omitempty,dive,email"`
	Description string         `mapstructure:"description"`
	Calendar    ports.Calendar `mapstructure:"calendar" validate:"-"`
}

func (d Deps) createCalendarEvent(ctx context.Context, args createEventArgs) (any, error) {
	now := d.Now()
	start, err := d.Dates.Resolve(args.Start, now)
	if err != nil {
		return nil, withField(err, "start")
	}
	end := start.Add(defaultEventDuration)
	if strings.TrimSpace(args.End) != "" {
		if end, err = d.resolveEnd(args.End, start); err != nil {
			return nil, err
		}
	}

	ev, err := args.Calendar.CreateEvent(ctx, domain.EventRequest{
		Title:       args.Title,
		Description: args.Description,
		Start:       start,
		End:         end,
		Attendees:   args.Attendees,
		TimeZone:    d.Dates.Location().String(),
	})
	if err != nil {
		return nil, &domain.ProviderError{Tool: CreateCalendarEvent, Op: "create event", Err: err}
	}
	return fmt.Sprintf("Event created: %s", ev.Link), nil
}

// resolveEnd resolves the end of a range against its start. A bare time of
// day like "11am" lands on the start's date, or the next day when that is
// not after start.
func (d Deps) resolveEnd(text string, start time.Time) (time.Time, error) {
	end, err := d.Dates.Resolve(text, start)
	if err != nil {
		return time.Time{}, withField(err, "end")
	}
	if sameClockOnly(text) {
		end = time.Date(start.Year(), start.Month(), start.Day(), end.Hour(), end.Minute(), 0, 0, start.Location())
		if !end.After(start) {
			end = end.AddDate(0, 0, 1)
		}
	}
	if !end.After(start) {
		return time.Time{}, &domain.InvalidArgumentsError{Fields: []string{"end"}, Reason: "end must be after start"}
	}
	return end, nil
}

type listEventsArgs struct {
	DaysAhead int            `mapstructure:"days_ahead" validate:"gte=0,lte=365"`
	Filter    string         `mapstructure:"filter"`
	Calendar  ports.Calendar `mapstructure:"calendar" validate:"-"`
}

// EventSummary is one entry of the list_upcoming_events result.
type EventSummary struct {
	Summary     string `json:"summary"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Description string `json:"description"`
}

func (d Deps) listUpcomingEvents(ctx context.Context, args listEventsArgs) (any, error) {
	days := args.DaysAhead
	if days == 0 {
		days = defaultDaysAhead
	}
	from := d.Now().In(d.Dates.Location())
	to := from.AddDate(0, 0, days)

	events, err := args.Calendar.ListEvents(ctx, from, to)
	if err != nil {
		return nil, &domain.ProviderError{Tool: ListUpcomingEvents, Op: "list events", Err: err}
	}

	out := []EventSummary{}
	for _, ev := range events {
		if !matchesEvent(ev, args.Filter) {
			continue
		}
		out = append(out, EventSummary{
			Summary:     ev.Summary,
			Start:       ev.Start.In(d.Dates.Location()).Format(time.RFC3339),
			End:         ev.End.In(d.Dates.Location()).Format(time.RFC3339),
			Description: ev.Description,
		})
	}
	return out, nil
}

// matchesEvent reports whether filter occurs, case-insensitively, in the
// summary, the description or an attendee address of ev.
func matchesEvent(ev domain.Event, filter string) bool {
	needle := strings.ToLower(strings.TrimSpace(filter))
	if needle == "" {
		return true
	}
	haystack := append([]string{ev.Summary, ev.Description}, ev.Attendees...)
	for _, s := range haystack {
		if strings.Contains(strings.ToLower(s), needle) {
			return true
		}
	}
	return false
}

func withField(err error, field string) error {
	if invalid, ok := err.(*domain.InvalidArgumentsError); ok {
		out := *invalid
		out.Fields = []string{field}
		return &out
	}
	return err
}

var clockOnly = regexp.MustCompile(`^(at\s+)?\d{1,2}(:\d{2})?\s*(am|pm|a\.m\.|p\.m\.)?$`)

// sameClockOnly reports whether text names only a time of day, like "11am".
func sameClockOnly(text string) bool {
	return clockOnly.MatchString(strings.ToLower(strings.TrimSpace(text)))
}
