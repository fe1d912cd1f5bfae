package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/sluice/pkg/domain"
)

// LoggingHooks logs step traffic at debug, faults at error and run results
// at info.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepEnter: func(ctx context.Context, e *domain.StepEvent) {
			logger.DebugContext(ctx, "step enter",
				"run_id", e.RunID,
				"contributor", e.Contributor,
				"position", e.Position,
			)
		},
		OnStepLeave: func(ctx context.Context, e *domain.StepEvent) {
			logger.DebugContext(ctx, "step leave",
				"run_id", e.RunID,
				"contributor", e.Contributor,
				"continuation", e.Continuation,
				"duration", e.Duration,
			)
		},
		OnFault: func(ctx context.Context, e *domain.StepEvent) {
			logger.ErrorContext(ctx, "step fault",
				"run_id", e.RunID,
				"contributor", e.Contributor,
				"position", e.Position,
				"err", e.Err,
			)
		},
		OnSuspend: func(ctx context.Context, e *domain.RunEvent) {
			logger.InfoContext(ctx, "run suspended", "run_id", e.RunID, "position", e.Position)
		},
		OnFinish: func(ctx context.Context, e *domain.RunEvent) {
			attrs := []any{"run_id", e.RunID, "outcome", e.Outcome, "position", e.Position}
			if e.Err != nil {
				attrs = append(attrs, "err", e.Err)
			}
			logger.InfoContext(ctx, "run finished", attrs...)
		},
	}
}

// Combine returns hooks that call each of hooks in order. Nil callbacks are
// skipped.
func Combine(hooks ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range hooks {
		out.OnStepEnter = chainStep(out.OnStepEnter, h.OnStepEnter)
		out.OnStepLeave = chainStep(out.OnStepLeave, h.OnStepLeave)
		out.OnFault = chainStep(out.OnFault, h.OnFault)
		out.OnSuspend = chainRun(out.OnSuspend, h.OnSuspend)
		out.OnFinish = chainRun(out.OnFinish, h.OnFinish)
	}
	return out
}

func chainStep(a, b func(context.Context, *domain.StepEvent)) func(context.Context, *domain.StepEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *domain.StepEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}

func chainRun(a, b func(context.Context, *domain.RunEvent)) func(context.Context, *domain.RunEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *domain.RunEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}
