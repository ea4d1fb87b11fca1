package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/storyweave/pkg/domain"
)

// LogHooks returns lifecycle hooks that log every event at Debug, and
// terminations at Info.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_enter", "session_id", e.SessionID, "node_id", e.NodeID, "kind", e.NodeKind)
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_leave", "session_id", e.SessionID, "node_id", e.NodeID, "kind", e.NodeKind)
		},
		OnConditionEvaluated: func(ctx context.Context, e *domain.ConditionEvent) {
			logger.DebugContext(ctx, "condition_evaluated",
				"session_id", e.SessionID,
				"node_id", e.NodeID,
				"variable_id", e.VariableID,
				"operator", e.Operator,
				"result", e.Result,
			)
		},
		OnVariableSet: func(ctx context.Context, e *domain.VariableEvent) {
			logger.DebugContext(ctx, "variable_set",
				"session_id", e.SessionID,
				"node_id", e.NodeID,
				"variable", e.Name,
				"old", e.Old.String(),
				"new", e.New.String(),
				"fallback", e.Fallback,
			)
		},
		OnTerminate: func(ctx context.Context, e *domain.TerminateEvent) {
			logger.InfoContext(ctx, "session_terminated",
				"session_id", e.SessionID,
				"last_node_id", e.LastNodeID,
				"reason", e.Reason,
			)
		},
	}
}
