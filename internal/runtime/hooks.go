package runtime

import (
	"context"
	"time"

	"github.com/aretw0/parley/pkg/domain"
)

func (e *Engine) base(t domain.EventType, connectionID string) domain.EventBase {
	return domain.EventBase{
		Timestamp:    time.Now(),
		Type:         t,
		ConnectionID: connectionID,
	}
}

func (e *Engine) emitSessionOpen(ctx context.Context, state *domain.SessionState) {
	if e.hooks.OnSessionOpen != nil {
		e.hooks.OnSessionOpen(ctx, &domain.SessionEvent{
			EventBase: e.base(domain.EventSessionOpen, state.ConnectionID),
			Phase:     state.Phase,
		})
	}
}

func (e *Engine) emitNodeEnter(ctx context.Context, connectionID string, node domain.DialogueNode) {
	if e.hooks.OnNodeEnter != nil {
		e.hooks.OnNodeEnter(ctx, &domain.NodeEvent{
			EventBase: e.base(domain.EventNodeEnter, connectionID),
			NodeID:    node.ID,
			Terminal:  node.IsTerminal(),
		})
	}
}

func (e *Engine) emitIntentMatch(ctx context.Context, connectionID string, m Match) {
	if e.hooks.OnIntentMatch != nil {
		e.hooks.OnIntentMatch(ctx, &domain.IntentEvent{
			EventBase:     e.base(domain.EventIntentMatch, connectionID),
			Label:         m.Label,
			Score:         m.Score,
			LowConfidence: m.LowConfidence,
		})
	}
}

func (e *Engine) emitFallback(ctx context.Context, connectionID, nodeID string, err error) {
	if e.hooks.OnFallback != nil {
		e.hooks.OnFallback(ctx, &domain.FallbackEvent{
			EventBase: e.base(domain.EventFallback, connectionID),
			NodeID:    nodeID,
			Reason:    err.Error(),
		})
	}
}
