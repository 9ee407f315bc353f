package ports

import (
	"context"

	"github.com/aretw0/missive/pkg/domain"
)

// ConversationStore defines the interface for persisting conversations.
type ConversationStore interface {
	// Save persists the conversation for a given session ID.
	Save(ctx context.Context, sessionID string, conv *domain.Conversation) error

	// Load retrieves the conversation for a given session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.Conversation, error)

	// Delete removes the conversation for a given session ID.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of the stored sessions.
	List(ctx context.Context) ([]string, error)
}

// CredentialStore keeps opaque, per-session provider credentials.
type CredentialStore interface {
	// Put stores data under key, replacing any previous value.
	Put(ctx context.Context, key string, data []byte) error

	// Get returns the data stored under key.
	// Returns domain.ErrCredentialsNotFound if nothing is stored.
	Get(ctx context.Context, key string) ([]byte, error)

	// Remove deletes the data stored under key.
	Remove(ctx context.Context, key string) error
}
