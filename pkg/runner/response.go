package runner

import (
	"github.com/aretw0/missive/pkg/domain"
	"github.com/aretw0/missive/pkg/session"
)

// ToolActivity summarizes one tool call of a turn for display.
type ToolActivity struct {
	CallID  string         `json:"call_id"`
	Name    string         `json:"name"`
	Args    map[string]any `json:"args,omitempty"`
	Result  string         `json:"result,omitempty"`
	IsError bool           `json:"is_error,omitempty"`
}

// Response is the client-facing outcome of a turn, shared by every adapter
// that answers over a wire (JSON lines, HTTP, MCP).
type Response struct {
	SessionID    string               `json:"session_id"`
	Reply        string               `json:"reply"`
	Failure      domain.FailureKind   `json:"failure,omitempty"`
	Confirmation *domain.Confirmation `json:"confirmation,omitempty"`
	Tools        []ToolActivity       `json:"tools,omitempty"`
	Messages     []domain.Message     `json:"messages,omitempty"`
}

// NewResponse builds a Response from a turn result.
// Messages holds everything the turn appended, including the user message.
func NewResponse(sessionID string, res session.TurnResult) Response {
	reply := res.Reply()
	resp := Response{
		SessionID:    sessionID,
		Reply:        reply.Content,
		Failure:      reply.Failure,
		Confirmation: reply.Confirmation,
		Messages:     res.Appended,
	}

	index := make(map[string]int)
	for _, m := range res.Appended {
		switch m.Role {
		case domain.RoleAssistant:
			for _, c := range m.ToolCalls {
				index[c.ID] = len(resp.Tools)
				resp.Tools = append(resp.Tools, ToolActivity{CallID: c.ID, Name: c.Name, Args: c.Arguments})
			}
		case domain.RoleTool:
			if i, ok := index[m.ToolCallID]; ok {
				resp.Tools[i].Result = m.Content
				resp.Tools[i].IsError = m.IsError
			}
		}
	}
	return resp
}
