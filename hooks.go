package cafe

import (
	"context"
	"time"

	"github.com/aretw0/cafe/pkg/domain"
)

func (t *Transpiler) onTranspile(ctx context.Context, g *domain.Graph, res *TranspileResult, took time.Duration) {
	if t.hooks.OnTranspile == nil || res == nil {
		return
	}
	ev := &domain.TranspileEvent{
		EventBase: domain.EventBase{
			Timestamp: time.Now(),
			Type:      domain.EventTranspile,
			Duration:  took,
			Success:   res.Success,
			Warnings:  len(res.Warnings),
			Errors:    len(res.Errors),
		},
		GraphID: graphID(g),
	}
	if g != nil {
		ev.Nodes = len(g.Nodes)
	}
	if res.Output != nil {
		ev.Shape = string(res.Output.Shape)
		ev.Strategy = res.Output.Strategy
	}
	t.hooks.OnTranspile(ctx, ev)
}

func (t *Transpiler) onImport(ctx context.Context, res *ImportResult, took time.Duration) {
	if t.hooks.OnImport == nil || res == nil {
		return
	}
	ev := &domain.ImportEvent{
		EventBase: domain.EventBase{
			Timestamp: time.Now(),
			Type:      domain.EventImport,
			Duration:  took,
			Success:   res.Success,
			Warnings:  len(res.Warnings),
			Errors:    len(res.Errors),
		},
		HadMetadata: res.HadMetadata,
	}
	if res.Graph != nil {
		ev.Nodes = len(res.Graph.Nodes)
	}
	t.hooks.OnImport(ctx, ev)
}
