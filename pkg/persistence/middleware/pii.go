package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/missive/pkg/domain"
	"github.com/aretw0/missive/pkg/ports"
)

// Mask replaces every redacted span.
const Mask = "***"

type piiMiddleware struct {
	next     ports.ConversationStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks every match of patterns in
// stored message text, confirmation previews and metadata values.
//
// Tool call arguments are stored as-is: pending confirmations are replayed
// from them, and a masked recipient could not be sent to.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("redact pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.ConversationStore) ports.ConversationStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Save(ctx context.Context, sessionID string, conv *domain.Conversation) error {
	// Work on a copy; the caller keeps using the clear conversation.
	masked := conv.Snapshot()
	for i := range masked.Messages {
		msg := &masked.Messages[i]
		msg.Content = m.mask(msg.Content)
		if msg.Confirmation != nil {
			msg.Confirmation.Preview = m.mask(msg.Confirmation.Preview)
		}
	}
	for k, v := range masked.Metadata {
		masked.Metadata[k] = m.mask(v)
	}
	return m.next.Save(ctx, sessionID, masked)
}

func (m *piiMiddleware) mask(s string) string {
	for _, p := range m.patterns {
		s = p.ReplaceAllString(s, Mask)
	}
	return s
}

func (m *piiMiddleware) Load(ctx context.Context, sessionID string) (*domain.Conversation, error) {
	return m.next.Load(ctx, sessionID)
}

func (m *piiMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}
