// Package tools holds the closed set of assistant tools and the per-session
// environment their injected handles come from.
package tools

import (
	"sync"

	"github.com/aretw0/missive/pkg/domain"
	"github.com/aretw0/missive/pkg/ports"
)

// Name identifies a builtin tool.
type Name = string

const (
	SearchMail          Name = "search_mail"
	SummarizeMail       Name = "summarize_mail"
	CreateCalendarEvent Name = "create_calendar_event"
	ListUpcomingEvents  Name = "list_upcoming_events"
	ParseMeetingRequest Name = "parse_meeting_request"
	DraftEmail          Name = "draft_email"
	SendEmail           Name = "send_email"
	SendConfirmedEmail  Name = "send_confirmed_email"
)

// Injected handle names.
const (
	HandleMail      = "mail"
	HandleCalendar  = "calendar"
	HandleApprovals = "approvals"
)

// Environment carries the per-session handles injected into tools.
// A zero Environment is valid; tools needing a missing handle fail with
// *domain.MissingEnvironmentError before they run.
type Environment struct {
	Mail      ports.Mailbox
	Calendar  ports.Calendar
	Approvals Approvals
}

// Handle returns the named handle, reporting false when it is not available.
func (e Environment) Handle(name string) (any, bool) {
	switch name {
	case HandleMail:
		return e.Mail, e.Mail != nil
	case HandleCalendar:
		return e.Calendar, e.Calendar != nil
	case HandleApprovals:
		return e.Approvals, e.Approvals != nil
	}
	return nil, false
}

// Approvals exposes the confirmations a user may approve in the current turn.
type Approvals interface {
	// Lookup returns the pending confirmation with the given ID.
	Lookup(id string) (domain.Confirmation, bool)
	// Consume marks a confirmation as used so it cannot be executed twice.
	Consume(id string)
}

// ApprovalSet is an Approvals backed by a fixed list of confirmations.
type ApprovalSet struct {
	mu      sync.Mutex
	pending map[string]domain.Confirmation
}

// NewApprovalSet creates an ApprovalSet holding confirmations.
func NewApprovalSet(confirmations []domain.Confirmation) *ApprovalSet {
	pending := make(map[string]domain.Confirmation, len(confirmations))
	for _, c := range confirmations {
		pending[c.ID] = c
	}
	return &ApprovalSet{pending: pending}
}

func (s *ApprovalSet) Lookup(id string) (domain.Confirmation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.pending[id]
	return c, ok
}

func (s *ApprovalSet) Consume(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, id)
}

// Len returns the number of confirmations still pending.
func (s *ApprovalSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
