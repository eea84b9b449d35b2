package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/fable/pkg/domain"
)

// LogHooks logs every lifecycle event at debug level.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStateEnter: func(ctx context.Context, e *domain.StateEvent) {
			logger.DebugContext(ctx, "state_enter", "session_id", e.SessionID, "state_key", e.StateKey)
		},
		OnStateLeave: func(ctx context.Context, e *domain.StateEvent) {
			logger.DebugContext(ctx, "state_leave", "session_id", e.SessionID, "state_key", e.StateKey)
		},
		OnTransition: func(ctx context.Context, e *domain.TransitionEvent) {
			logger.DebugContext(ctx, "transition",
				"session_id", e.SessionID,
				"from", e.FromStateKey,
				"transition", e.TransitionKey,
				"to", e.ToStateKey,
				"overridden", e.Overridden,
			)
		},
		OnScriptRun: func(ctx context.Context, e *domain.ScriptEvent) {
			logger.DebugContext(ctx, "script_run",
				"session_id", e.SessionID,
				"script", e.Script,
				"duration", e.Duration,
				"is_error", e.IsError,
			)
		},
		OnSessionCreated: func(ctx context.Context, e *domain.SessionEvent) {
			logger.DebugContext(ctx, "session_created", "session_id", e.SessionID)
		},
		OnSessionExpired: func(ctx context.Context, e *domain.SessionEvent) {
			logger.DebugContext(ctx, "session_expired", "session_id", e.SessionID)
		},
	}
}

// Chain returns hooks that call every non-nil hook of each set in order.
func Chain(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, s := range sets {
		out.OnStateEnter = chain(out.OnStateEnter, s.OnStateEnter)
		out.OnStateLeave = chain(out.OnStateLeave, s.OnStateLeave)
		out.OnTransition = chain(out.OnTransition, s.OnTransition)
		out.OnScriptRun = chain(out.OnScriptRun, s.OnScriptRun)
		out.OnSessionCreated = chain(out.OnSessionCreated, s.OnSessionCreated)
		out.OnSessionExpired = chain(out.OnSessionExpired, s.OnSessionExpired)
	}
	return out
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
