package observability

import (
	"context"

	"github.com/aretw0/cafe/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors fed by transpiler lifecycle hooks.
type Metrics struct {
	transpiles *prometheus.CounterVec
	imports    *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transpiles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cafe_transpiles_total",
				Help: "Graphs transpiled, by strategy and outcome",
			},
			[]string{"strategy", "outcome"},
		),
		imports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cafe_imports_total",
				Help: "Documents imported, by outcome and layout presence",
			},
			[]string{"outcome", "layout"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cafe_operation_duration_seconds",
				Help:    "Duration of transpile and import operations",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
			[]string{"operation"},
		),
	}
	reg.MustRegister(m.transpiles, m.imports, m.duration)
	return m
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// Hooks returns lifecycle hooks recording every event.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTranspile: func(_ context.Context, ev *domain.TranspileEvent) {
			strategy := string(ev.Strategy)
			if strategy == "" {
				strategy = "none"
			}
			m.transpiles.WithLabelValues(strategy, outcome(ev.Success)).Inc()
			m.duration.WithLabelValues(string(ev.Type)).Observe(ev.Duration.Seconds())
		},
		OnImport: func(_ context.Context, ev *domain.ImportEvent) {
			layout := "auto"
			if ev.HadMetadata {
				layout = "restored"
			}
			m.imports.WithLabelValues(outcome(ev.Success), layout).Inc()
			m.duration.WithLabelValues(string(ev.Type)).Observe(ev.Duration.Seconds())
		},
	}
}
