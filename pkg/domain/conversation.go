package domain

import "time"

// Conversation is the ordered, append-only message sequence of a session.
// It is owned by the session store; the orchestrator never retains it.
type Conversation struct {
	SessionID string            `json:"session_id"`
	Messages  []Message         `json:"messages"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// NewConversation creates an empty conversation for a session.
func NewConversation(sessionID string) *Conversation {
	now := time.Now().UTC()
	return &Conversation{
		SessionID: sessionID,
		Messages:  []Message{},
		Metadata:  make(map[string]string),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Snapshot returns a deep copy of the conversation.
func (c *Conversation) Snapshot() *Conversation {
	if c == nil {
		return nil
	}
	out := *c
	out.Messages = CloneMessages(c.Messages)
	if out.Messages == nil {
		out.Messages = []Message{}
	}
	out.Metadata = make(map[string]string, len(c.Metadata))
	for k, v := range c.Metadata {
		out.Metadata[k] = v
	}
	return &out
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Messages)
}
