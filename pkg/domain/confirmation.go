package domain

// ConfirmationArgument is the argument carrying a confirmation ID when a
// confirmed action is executed.
const ConfirmationArgument = "confirmation_id"

// PendingConfirmations returns the confirmations found in msgs that were not
// yet consumed by a successful call to the consumer tool, in creation order.
func PendingConfirmations(msgs []Message, consumer string) []Confirmation {
	var ordered []Confirmation
	requested := make(map[string]string) // call ID -> confirmation ID
	consumed := make(map[string]bool)

	for _, m := range msgs {
		switch m.Role {
		case RoleAssistant:
			if m.Confirmation != nil {
				ordered = append(ordered, *m.Confirmation)
			}
			for _, c := range m.ToolCalls {
				if c.Name != consumer {
					continue
				}
				if id, ok := c.Arguments[ConfirmationArgument].(string); ok {
					requested[c.ID] = id
				}
			}
		case RoleTool:
			if m.ToolName == consumer && !m.IsError {
				if id, ok := requested[m.ToolCallID]; ok {
					consumed[id] = true
				}
			}
		}
	}

	pending := make([]Confirmation, 0, len(ordered))
	for _, c := range ordered {
		if !consumed[c.ID] {
			pending = append(pending, c)
		}
	}
	return pending
}
