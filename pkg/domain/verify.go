package domain

import "fmt"

// IntegrityError reports a message that breaks the conversation invariants.
type IntegrityError struct {
	Index  int
	Reason string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("message %d: %s", e.Index, e.Reason)
}

// Verify checks referential integrity: every tool message answers exactly one
// earlier, not yet answered, tool call request of the same sequence.
func Verify(msgs []Message) error {
	open := make(map[string]bool)
	for i, m := range msgs {
		switch m.Role {
		case RoleUser:
		case RoleAssistant:
			for _, c := range m.ToolCalls {
				if c.ID == "" {
					return &IntegrityError{Index: i, Reason: "tool call without id"}
				}
				if _, seen := open[c.ID]; seen {
					return &IntegrityError{Index: i, Reason: fmt.Sprintf("duplicate tool call id %q", c.ID)}
				}
				open[c.ID] = true
			}
		case RoleTool:
			pending, seen := open[m.ToolCallID]
			if !seen {
				return &IntegrityError{Index: i, Reason: fmt.Sprintf("tool result for unknown call %q", m.ToolCallID)}
			}
			if !pending {
				return &IntegrityError{Index: i, Reason: fmt.Sprintf("tool call %q answered twice", m.ToolCallID)}
			}
			open[m.ToolCallID] = false
		default:
			return &IntegrityError{Index: i, Reason: fmt.Sprintf("unknown role %q", m.Role)}
		}
	}
	return nil
}
