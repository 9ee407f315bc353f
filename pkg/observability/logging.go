package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/missive/pkg/domain"
)

// LoggingHooks logs engine events. Turn boundaries are logged at info,
// everything else at debug.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurnStart: func(ctx context.Context, e *domain.TurnEvent) {
			logger.DebugContext(ctx, "turn_start", "session_id", e.SessionID)
		},
		OnTurnEnd: func(ctx context.Context, e *domain.TurnEvent) {
			attrs := []any{
				"session_id", e.SessionID,
				"appended", e.Appended,
				"steps", e.Steps,
				"duration", e.Duration,
			}
			if e.Failure != "" {
				logger.WarnContext(ctx, "turn_end", append(attrs, "failure", e.Failure, "err", e.Err)...)
				return
			}
			logger.InfoContext(ctx, "turn_end", attrs...)
		},
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_enter", "session_id", e.SessionID, "node_id", e.NodeID, "type", e.NodeType, "step", e.Step)
		},
		OnToolCall: func(ctx context.Context, e *domain.ToolEvent) {
			logger.DebugContext(ctx, "tool_call", "session_id", e.SessionID, "tool_name", e.ToolName, "call_id", e.CallID)
		},
		OnToolReturn: func(ctx context.Context, e *domain.ToolEvent) {
			logger.DebugContext(ctx, "tool_return",
				"session_id", e.SessionID,
				"tool_name", e.ToolName,
				"call_id", e.CallID,
				"is_error", e.IsError,
				"duration", e.Duration,
			)
		},
	}
}
