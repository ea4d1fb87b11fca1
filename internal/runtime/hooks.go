package runtime

import (
	"context"

	"github.com/aretw0/storyweave/pkg/domain"
)

func (e *Engine) base(t domain.EventType, sessionID string) domain.EventBase {
	return domain.EventBase{
		Timestamp: e.now(),
		Type:      t,
		SessionID: sessionID,
	}
}

func (e *Engine) emitNodeEnter(ctx context.Context, sessionID string, node domain.Node) {
	if e.hooks.OnNodeEnter == nil {
		return
	}
	e.hooks.OnNodeEnter(ctx, &domain.NodeEvent{
		EventBase: e.base(domain.EventNodeEnter, sessionID),
		NodeID:    node.ID,
		NodeKind:  node.Kind(),
	})
}

func (e *Engine) emitNodeLeave(ctx context.Context, sessionID string, node domain.Node) {
	if e.hooks.OnNodeLeave == nil {
		return
	}
	e.hooks.OnNodeLeave(ctx, &domain.NodeEvent{
		EventBase: e.base(domain.EventNodeLeave, sessionID),
		NodeID:    node.ID,
		NodeKind:  node.Kind(),
	})
}
