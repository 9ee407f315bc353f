package runtime

import (
	"context"
	"fmt"

	"github.com/aretw0/missive/pkg/domain"
	"github.com/aretw0/missive/pkg/tools"
)

// SpecializedNode intercepts a reserved tool request.
// Handle returns the messages that answer every call of msg and end the turn.
// On success the last one must be a terminal assistant message; on error the
// engine ends the turn with the failure text instead.
type SpecializedNode interface {
	ID() string
	Handle(ctx context.Context, msg domain.Message) ([]domain.Message, error)
}

const (
	confirmNodeID = "confirm"

	pendingResult   = "Pending confirmation %s: nothing was sent. Once the user approves, call send_confirmed_email with this confirmation_id."
	deferredResult  = "Not executed: the user must first answer the pending confirmation."
	confirmQuestion = "Here is the email I'm about to send:\n\n%s\n\nShould I send it? Reply \"yes\" to send it or tell me what to change."
)

// ConfirmNode intercepts send_email. The first call of the message becomes the
// pending confirmation; any other call is answered as not executed. It renders
// a preview and ends the turn asking the user to approve. A first call with
// invalid arguments is rejected before anything is previewed. It never touches
// the mail handle.
type ConfirmNode struct {
	newID func() string
}

// NewConfirmNode creates the confirmation node. newID assigns confirmation IDs.
func NewConfirmNode(newID func() string) *ConfirmNode {
	return &ConfirmNode{newID: newID}
}

func (n *ConfirmNode) ID() string { return confirmNodeID }

func (n *ConfirmNode) Handle(ctx context.Context, msg domain.Message) ([]domain.Message, error) {
	var (
		out     []domain.Message
		pending *domain.Confirmation
	)
	for i, call := range msg.ToolCalls {
		if pending == nil {
			if err := tools.CheckSend(call); err != nil {
				out = append(out, domain.ToolResultMessage(call, "Error: "+err.Error(), true))
				for _, rest := range msg.ToolCalls[i+1:] {
					out = append(out, domain.ToolResultMessage(rest, skippedResult, true))
				}
				return out, err
			}
			pending = &domain.Confirmation{
				ID:      n.newID(),
				Request: call.Clone(),
				Preview: tools.Preview(call),
			}
			out = append(out, domain.ToolResultMessage(call, fmt.Sprintf(pendingResult, pending.ID), false))
			continue
		}
		out = append(out, domain.ToolResultMessage(call, deferredResult, true))
	}

	ask := domain.AssistantMessage(fmt.Sprintf(confirmQuestion, pending.Preview))
	ask.Confirmation = pending
	return append(out, ask), nil
}
