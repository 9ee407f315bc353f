package ports

import (
	"context"
	"time"

	"github.com/aretw0/missive/pkg/domain"
)

// Mailbox is the mail provider handle injected into mail tools.
type Mailbox interface {
	// Search returns up to limit messages matching query, in provider order.
	Search(ctx context.Context, query string, limit int) ([]domain.Email, error)
	// Send delivers a plain-text email.
	Send(ctx context.Context, email domain.OutgoingEmail) error
}

// Calendar is the calendar provider handle injected into calendar tools.
type Calendar interface {
	// CreateEvent creates an event and returns it with its provider link.
	CreateEvent(ctx context.Context, req domain.EventRequest) (domain.Event, error)
	// ListEvents returns events starting within [from, to), ordered by start time.
	ListEvents(ctx context.Context, from, to time.Time) ([]domain.Event, error)
}
