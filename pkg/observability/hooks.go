package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/parley/pkg/domain"
)

// LogHooks returns hooks that write every lifecycle event to logger at debug level.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSessionOpen: func(ctx context.Context, e *domain.SessionEvent) {
			logger.DebugContext(ctx, "session_open", "connection_id", e.ConnectionID, "phase", e.Phase)
		},
		OnSessionClose: func(ctx context.Context, e *domain.SessionEvent) {
			logger.DebugContext(ctx, "session_close", "connection_id", e.ConnectionID, "phase", e.Phase)
		},
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_enter", "connection_id", e.ConnectionID, "node_id", e.NodeID, "terminal", e.Terminal)
		},
		OnIntentMatch: func(ctx context.Context, e *domain.IntentEvent) {
			logger.DebugContext(ctx, "intent_match", "connection_id", e.ConnectionID, "score", e.Score, "low_confidence", e.LowConfidence)
		},
		OnFallback: func(ctx context.Context, e *domain.FallbackEvent) {
			logger.DebugContext(ctx, "fallback", "connection_id", e.ConnectionID, "node_id", e.NodeID, "reason", e.Reason)
		},
	}
}

// Chain merges several hook sets; every non-nil hook runs, in order.
func Chain(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSessionOpen: func(ctx context.Context, e *domain.SessionEvent) {
			for _, s := range sets {
				if s.OnSessionOpen != nil {
					s.OnSessionOpen(ctx, e)
				}
			}
		},
		OnSessionClose: func(ctx context.Context, e *domain.SessionEvent) {
			for _, s := range sets {
				if s.OnSessionClose != nil {
					s.OnSessionClose(ctx, e)
				}
			}
		},
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			for _, s := range sets {
				if s.OnNodeEnter != nil {
					s.OnNodeEnter(ctx, e)
				}
			}
		},
		OnIntentMatch: func(ctx context.Context, e *domain.IntentEvent) {
			for _, s := range sets {
				if s.OnIntentMatch != nil {
					s.OnIntentMatch(ctx, e)
				}
			}
		},
		OnFallback: func(ctx context.Context, e *domain.FallbackEvent) {
			for _, s := range sets {
				if s.OnFallback != nil {
					s.OnFallback(ctx, e)
				}
			}
		},
	}
}
