package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/cafe/pkg/domain"
)

// Chain returns hooks that call each of hooks in order.
func Chain(hooks ...domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTranspile: func(ctx context.Context, ev *domain.TranspileEvent) {
			for _, h := range hooks {
				if h.OnTranspile != nil {
					h.OnTranspile(ctx, ev)
				}
			}
		},
		OnImport: func(ctx context.Context, ev *domain.ImportEvent) {
			for _, h := range hooks {
				if h.OnImport != nil {
					h.OnImport(ctx, ev)
				}
			}
		},
	}
}

// LogHooks logs every event at debug level.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTranspile: func(ctx context.Context, ev *domain.TranspileEvent) {
			logger.DebugContext(ctx, "[transpile]",
				"graph", ev.GraphID,
				"nodes", ev.Nodes,
				"shape", ev.Shape,
				"strategy", ev.Strategy,
				"success", ev.Success,
				"warnings", ev.Warnings,
				"took", ev.Duration)
		},
		OnImport: func(ctx context.Context, ev *domain.ImportEvent) {
			logger.DebugContext(ctx, "[import]",
				"nodes", ev.Nodes,
				"layout", ev.HadMetadata,
				"success", ev.Success,
				"warnings", ev.Warnings,
				"took", ev.Duration)
		},
	}
}
