package runtime

import (
	"context"
	"time"

	"github.com/aretw0/missive/pkg/domain"
)

func base(ctx context.Context, t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: time.Now(), Type: t, SessionID: domain.SessionIDFromContext(ctx)}
}

func (e *Engine) emitTurnStart(ctx context.Context) {
	if e.hooks.OnTurnStart != nil {
		e.hooks.OnTurnStart(ctx, &domain.TurnEvent{EventBase: base(ctx, domain.EventTurnStart)})
	}
}

func (e *Engine) emitTurnEnd(ctx context.Context, appended, steps int, d time.Duration, failure domain.FailureKind, err error) {
	if e.hooks.OnTurnEnd != nil {
		e.hooks.OnTurnEnd(ctx, &domain.TurnEvent{
			EventBase: base(ctx, domain.EventTurnEnd),
			Appended:  appended,
			Steps:     steps,
			Duration:  d,
			Failure:   failure,
			Err:       err,
		})
	}
}

func (e *Engine) emitNodeEnter(ctx context.Context, id, typ string, step int) {
	e.logger.Debug("node_enter", "node_id", id, "step", step)
	if e.hooks.OnNodeEnter != nil {
		e.hooks.OnNodeEnter(ctx, &domain.NodeEvent{EventBase: base(ctx, domain.EventNodeEnter), NodeID: id, NodeType: typ, Step: step})
	}
}

func (e *Engine) emitNodeLeave(ctx context.Context, id, typ string, step int) {
	if e.hooks.OnNodeLeave != nil {
		e.hooks.OnNodeLeave(ctx, &domain.NodeEvent{EventBase: base(ctx, domain.EventNodeLeave), NodeID: id, NodeType: typ, Step: step})
	}
}

func (e *Engine) emitToolCall(ctx context.Context, call domain.ToolCallRequest) {
	e.logger.Debug("tool_call", "tool", call.Name, "call_id", call.ID)
	if e.hooks.OnToolCall != nil {
		e.hooks.OnToolCall(ctx, &domain.ToolEvent{
			EventBase: base(ctx, domain.EventToolCall),
			NodeID:    toolsNodeID,
			CallID:    call.ID,
			ToolName:  call.Name,
			Input:     call.Clone().Arguments,
		})
	}
}

func (e *Engine) emitToolReturn(ctx context.Context, call domain.ToolCallRequest, result domain.Message, failure domain.FailureKind, d time.Duration) {
	e.logger.Debug("tool_return", "tool", call.Name, "call_id", call.ID, "is_error", result.IsError)
	if e.hooks.OnToolReturn != nil {
		e.hooks.OnToolReturn(ctx, &domain.ToolEvent{
			EventBase: base(ctx, domain.EventToolReturn),
			NodeID:    toolsNodeID,
			CallID:    call.ID,
			ToolName:  call.Name,
			Output:    result.Content,
			IsError:   result.IsError,
			Failure:   failure,
			Duration:  d,
		})
	}
}
