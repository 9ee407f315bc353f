package domain

import "time"

// Role identifies the author of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCallRequest is a structured request, emitted by the model, to run a tool.
// Compatible with the function-calling shapes of OpenAI, Gemini and MCP.
type ToolCallRequest struct {
	ID        string         `json:"id" yaml:"id" mapstructure:"id"`                                          // Unique within a turn, assigned by the gateway
	Name      string         `json:"name" yaml:"name" mapstructure:"name"`                                    // Tool name, resolved through the registry
	Arguments map[string]any `json:"arguments,omitempty" yaml:"arguments,omitempty" mapstructure:"arguments"` // Model-supplied arguments
}

// Confirmation describes a sensitive action that was intercepted before any side effect.
// It is carried by the assistant message that asks the user to confirm.
type Confirmation struct {
	ID      string          `json:"id" yaml:"id"`
	Request ToolCallRequest `json:"request" yaml:"request"`
	Preview string          `json:"preview" yaml:"preview"`
}

// Message is one immutable entry of a Conversation.
type Message struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`

	// ToolCalls is only set on assistant messages.
	ToolCalls []ToolCallRequest `json:"tool_calls,omitempty" yaml:"tool_calls,omitempty"`

	// ToolCallID and ToolName are only set on tool messages.
	ToolCallID string `json:"tool_call_id,omitempty" yaml:"tool_call_id,omitempty"`
	ToolName   string `json:"tool_name,omitempty" yaml:"tool_name,omitempty"`
	IsError    bool   `json:"is_error,omitempty" yaml:"is_error,omitempty"`

	// Failure classifies a recovered turn-level error surfaced by this assistant message.
	Failure FailureKind `json:"failure,omitempty" yaml:"failure,omitempty"`

	// Confirmation is set on the message that ends a turn awaiting human approval.
	Confirmation *Confirmation `json:"confirmation,omitempty" yaml:"confirmation,omitempty"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// UserMessage creates a user message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content, CreatedAt: time.Now().UTC()}
}

// AssistantMessage creates an assistant message, optionally carrying tool calls.
func AssistantMessage(content string, calls ...ToolCallRequest) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: calls, CreatedAt: time.Now().UTC()}
}

// ToolResultMessage creates the tool message answering req.
func ToolResultMessage(req ToolCallRequest, content string, isError bool) Message {
	return Message{
		Role:       RoleTool,
		Content:    content,
		ToolCallID: req.ID,
		ToolName:   req.Name,
		IsError:    isError,
		CreatedAt:  time.Now().UTC(),
	}
}

// FailureMessage creates a terminal assistant message surfacing a recovered error.
func FailureMessage(kind FailureKind, content string) Message {
	m := AssistantMessage(content)
	m.Failure = kind
	return m
}

// HasToolCalls reports whether m is an assistant message requesting tools.
func (m Message) HasToolCalls() bool {
	return m.Role == RoleAssistant && len(m.ToolCalls) > 0
}

// IsTerminal reports whether m is an assistant message that ends a turn.
func (m Message) IsTerminal() bool {
	return m.Role == RoleAssistant && len(m.ToolCalls) == 0
}

// Clone returns a deep copy of m, so the copy shares no mutable state with the original.
func (m Message) Clone() Message {
	out := m
	if m.ToolCalls != nil {
		out.ToolCalls = make([]ToolCallRequest, len(m.ToolCalls))
		for i, c := range m.ToolCalls {
			out.ToolCalls[i] = c.Clone()
		}
	}
	if m.Confirmation != nil {
		c := *m.Confirmation
		c.Request = m.Confirmation.Request.Clone()
		out.Confirmation = &c
	}
	return out
}

// Clone returns a deep copy of the request arguments.
func (r ToolCallRequest) Clone() ToolCallRequest {
	out := r
	if r.Arguments != nil {
		out.Arguments = deepCopyMap(r.Arguments)
	}
	return out
}

// CloneMessages deep-copies a message sequence.
func CloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}

// Extend returns a new sequence holding prefix followed by tail.
// The result never aliases the backing array of prefix.
func Extend(prefix []Message, tail ...Message) []Message {
	out := make([]Message, 0, len(prefix)+len(tail))
	out = append(out, prefix...)
	return append(out, tail...)
}

// LastTurn splits msgs at the most recent user message, returning it and
// the messages that followed it. ok is false when there is no user message.
func LastTurn(msgs []Message) (user Message, after []Message, ok bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == RoleUser {
			return msgs[i], msgs[i+1:], true
		}
	}
	return Message{}, nil, false
}

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyMap(t)
	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = deepCopyValue(e)
		}
		return s
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}
