package tools

import (
	"context"
	"errors"
	"time"

	"github.com/aretw0/missive/pkg/dates"
	"github.com/aretw0/missive/pkg/ports"
	"github.com/aretw0/missive/pkg/registry"
	"github.com/aretw0/missive/pkg/schema"
)

var errNoCompleter = errors.New("no language model configured for this tool")

// Deps are the process-wide collaborators of the builtin tools.
type Deps struct {
	// Completer backs summarize_mail, parse_meeting_request and draft_email.
	Completer ports.Completer
	// Dates resolves natural-language date expressions. Defaults to UTC.
	Dates *dates.Resolver
	// Now is the reference clock. Defaults to time.Now.
	Now func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Dates == nil {
		d.Dates = dates.NewResolver(nil)
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

func (d Deps) complete(ctx context.Context, prompt string) (string, error) {
	if d.Completer == nil {
		return "", errNoCompleter
	}
	return d.Completer.Complete(ctx, prompt)
}

// Register adds every builtin tool to reg, in catalog order.
func Register(reg *registry.Registry, deps Deps) error {
	deps = deps.withDefaults()
	for _, d := range descriptors(deps) {
		if err := reg.Register(d); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry creates a sealed registry holding the builtin tools.
func NewRegistry(deps Deps) (*registry.Registry, error) {
	reg := registry.NewRegistry()
	if err := Register(reg, deps); err != nil {
		return nil, err
	}
	reg.Seal()
	return reg, nil
}

func descriptors(deps Deps) []registry.Descriptor {
	return []registry.Descriptor{
		{
			Name:        SearchMail,
			Description: "Search the user's mailbox and return the most recent matching emails.",
			Params: schema.Params{
				{Name: "query", Type: schema.String(), Description: "Mailbox search query, e.g. 'from:alice invoice'", Required: true},
			},
			Injected: []string{HandleMail},
			Impl:     registry.Bind(searchMail),
		},
		{
			Name:        SummarizeMail,
			Description: "Summarize a list of emails previously returned by search_mail.",
			Params: schema.Params{
				{Name: "emails", Type: schema.Slice(schema.Object()), Description: "Emails with id, subject, sender and body", Required: true},
			},
			Impl: registry.Bind(deps.summarizeMail),
		},
		{
			Name:        CreateCalendarEvent,
			Description: "Create a calendar event. Dates may be ISO-8601 or natural language such as 'tomorrow at 3pm'.",
			Params: schema.Params{
				{Name: "title", Type: schema.String(), Description: "Event title", Required: true},
				{Name: "start", Type: schema.String(), Description: "Start date and time", Required: true},
				{Name: "end", Type: schema.String(), Description: "End date and time, defaults to one hour after start"},
				{Name: "attendees", Type: schema.Slice(schema.String()), Description: "Attendee email addresses"},
				{Name: "description", Type: schema.String(), Description: "Event description"},
			},
			Injected: []string{HandleCalendar},
			Impl:     registry.Bind(deps.createCalendarEvent),
		},
		{
			Name:        ListUpcomingEvents,
			Description: "List upcoming calendar events, optionally filtered by text or attendee.",
			Params: schema.Params{
				{Name: "days_ahead", Type: schema.Int(), Description: "How many days to look ahead, default 7"},
				{Name: "filter", Type: schema.String(), Description: "Text matched against summary, description and attendees"},
			},
			Injected: []string{HandleCalendar},
			Impl:     registry.Bind(deps.listUpcomingEvents),
		},
		{
			Name:        ParseMeetingRequest,
			Description: "Extract the title, date and participants of a meeting from free text.",
			Params: schema.Params{
				{Name: "text", Type: schema.String(), Description: "Free-text meeting request", Required: true},
			},
			Impl: registry.Bind(deps.parseMeetingRequest),
		},
		{
			Name:        DraftEmail,
			Description: "Draft an email subject and body from an instruction.",
			Params: schema.Params{
				{Name: "instruction", Type: schema.String(), Description: "What the email should say", Required: true},
			},
			Impl: registry.Bind(deps.draftEmail),
		},
		{
			Name:        SendEmail,
			Description: "Send an email. The user is always asked to confirm before anything is sent.",
			Params: schema.Params{
				{Name: "to", Type: schema.String(), Description: "Recipient email address", Required: true},
				{Name: "subject", Type: schema.String(), Description: "Subject line", Required: true},
				{Name: "body", Type: schema.String(), Description: "Plain-text body", Required: true},
			},
			Injected: []string{HandleMail},
			Impl:     registry.Bind(sendEmail),
		},
		{
			Name:        SendConfirmedEmail,
			Description: "Send an email the user has explicitly confirmed, identified by its confirmation id.",
			Params: schema.Params{
				{Name: "confirmation_id", Type: schema.String(), Description: "Id of the confirmation the user approved", Required: true},
			},
			Injected: []string{HandleMail, HandleApprovals},
			Impl:     registry.Bind(sendConfirmedEmail),
		},
	}
}
