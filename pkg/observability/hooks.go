package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/sequence/pkg/domain"
)

// DebugHooks logs every step and run event at debug level.
func DebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepStart: func(ctx context.Context, e *domain.StepEvent) {
			logger.DebugContext(ctx, "Step Start", "run_id", e.RunID, "index", e.Index, "kind", e.Kind)
		},
		OnStepSettle: func(ctx context.Context, e *domain.StepEvent) {
			logger.DebugContext(ctx, "Step Settle",
				"run_id", e.RunID,
				"index", e.Index,
				"kind", e.Kind,
				"signal", e.Signal.String(),
				"async", e.Async,
				"failed", e.IsError,
				"duration", e.Duration,
			)
		},
		OnRunSettle: func(ctx context.Context, e *domain.RunEvent) {
			logger.DebugContext(ctx, "Run Settle", "run_id", e.RunID, "status", e.Status, "steps", e.Steps)
		},
	}
}

// Chain combines hook sets; each event is delivered to every set in order.
func Chain(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range sets {
		if h.OnStepStart != nil {
			out.OnStepStart = chain(out.OnStepStart, h.OnStepStart)
		}
		if h.OnStepSettle != nil {
			out.OnStepSettle = chain(out.OnStepSettle, h.OnStepSettle)
		}
		if h.OnRunSettle != nil {
			out.OnRunSettle = chain(out.OnRunSettle, h.OnRunSettle)
		}
	}
	return out
}

func chain[E any](first, next func(context.Context, E)) func(context.Context, E) {
	if first == nil {
		return next
	}
	return func(ctx context.Context, e E) {
		first(ctx, e)
		next(ctx, e)
	}
}
