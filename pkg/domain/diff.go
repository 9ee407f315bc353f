package domain

// ConversationDiff represents the changes between two versions of a conversation.
// It is designed to be serialized to JSON for partial updates on the client.
type ConversationDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"session_id"`

	// Appended contains the messages added after the old version.
	Appended []Message `json:"appended,omitempty"`

	// Rewritten is set when the old messages are not a prefix of the new ones.
	// Appended then holds the whole new sequence.
	Rewritten bool `json:"rewritten,omitempty"`

	// Metadata contains only changed, added or deleted keys.
	// For deletions, the key is present with an empty value.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Diff calculates the difference between oldConv and newConv.
// If oldConv is nil, it returns a diff representing the entire newConv (initial load).
// It returns nil when nothing changed.
func Diff(oldConv, newConv *Conversation) *ConversationDiff {
	if newConv == nil {
		return nil
	}

	diff := &ConversationDiff{SessionID: newConv.SessionID}

	switch {
	case oldConv == nil:
		diff.Appended = CloneMessages(newConv.Messages)
	case !isPrefix(oldConv.Messages, newConv.Messages):
		diff.Rewritten = true
		diff.Appended = CloneMessages(newConv.Messages)
	case len(newConv.Messages) > len(oldConv.Messages):
		diff.Appended = CloneMessages(newConv.Messages[len(oldConv.Messages):])
	}

	diff.Metadata = diffMetadata(oldConv, newConv)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *ConversationDiff) IsEmpty() bool {
	return len(d.Appended) == 0 && !d.Rewritten && len(d.Metadata) == 0
}

func isPrefix(old, new []Message) bool {
	if len(old) > len(new) {
		return false
	}
	for i := range old {
		if !sameMessage(old[i], new[i]) {
			return false
		}
	}
	return true
}

// sameMessage compares the identity-bearing fields of two messages.
func sameMessage(a, b Message) bool {
	if a.Role != b.Role || a.Content != b.Content || a.ToolCallID != b.ToolCallID || len(a.ToolCalls) != len(b.ToolCalls) {
		return false
	}
	for i := range a.ToolCalls {
		if a.ToolCalls[i].ID != b.ToolCalls[i].ID || a.ToolCalls[i].Name != b.ToolCalls[i].Name {
			return false
		}
	}
	return true
}

func diffMetadata(old, new *Conversation) map[string]string {
	delta := make(map[string]string)

	if old == nil {
		for k, v := range new.Metadata {
			delta[k] = v
		}
	} else {
		for k, v := range new.Metadata {
			if ov, ok := old.Metadata[k]; !ok || ov != v {
				delta[k] = v
			}
		}
		for k := range old.Metadata {
			if _, ok := new.Metadata[k]; !ok {
				delta[k] = ""
			}
		}
	}

	if len(delta) == 0 {
		return nil
	}
	return delta
}
