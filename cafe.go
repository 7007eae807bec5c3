package cafe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/cafe/internal/compiler"
	"github.com/aretw0/cafe/pkg/automation"
	"github.com/aretw0/cafe/pkg/domain"
	"github.com/aretw0/cafe/pkg/topology"
)

// Version is stamped at build time.
var Version = "dev"

// TranspileResult is the outcome of Transpile.
type TranspileResult = compiler.Result

// ImportResult is the outcome of FromYAML.
type ImportResult = compiler.ImportResult

// Transpiler is the high-level entry point of the library. It holds only
// configuration and is safe for concurrent use.
type Transpiler struct {
	logger     *slog.Logger
	hooks      domain.LifecycleHooks
	dialect    automation.Dialect
	maxSteps   int
	canonical  bool
	omitLayout bool
}

// New initializes a Transpiler.
func New(opts ...Option) *Transpiler {
	t := &Transpiler{dialect: automation.DialectCurrent}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return t
}

// Transpile turns a graph into an automation document.
func (t *Transpiler) Transpile(ctx context.Context, g *domain.Graph, opts ...TranspileOption) (res *TranspileResult) {
	start := time.Now()
	o := compiler.Options{Dialect: t.dialect, MaxSteps: t.maxSteps, OmitLayout: t.omitLayout}
	for _, opt := range opts {
		opt(&o)
	}

	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("transpile panicked", "panic", r)
			res = &TranspileResult{Errors: []error{fmt.Errorf("transpile: internal error: %v", r)}}
		}
		t.onTranspile(ctx, g, res, time.Since(start))
	}()

	res = compiler.Transpile(g, o)
	if res.Success {
		t.logger.Debug("graph transpiled",
			"graph", g.ID,
			"shape", res.Output.Shape,
			"strategy", res.Output.Strategy,
			"warnings", len(res.Warnings))
	} else {
		t.logger.Debug("transpile rejected", "graph", graphID(g), "errors", len(res.Errors))
	}
	return res
}

// FromYAML reads an automation document back into a graph.
func (t *Transpiler) FromYAML(ctx context.Context, text []byte) (res *ImportResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("import panicked", "panic", r)
			res = &ImportResult{Errors: []error{fmt.Errorf("import: internal error: %v", r)}}
		}
		t.onImport(ctx, res, time.Since(start))
	}()

	res = compiler.NewParser(compiler.ParseOptions{Canonical: t.canonical}).Parse(text)
	for _, w := range res.Warnings {
		t.logger.Debug("dialect recovered", "warning", w.Error())
	}
	return res
}

// Validate checks the structural invariants of g. It returns nil for a valid graph.
func (t *Transpiler) Validate(g *domain.Graph) (errs []error) {
	defer func() {
		if r := recover(); r != nil {
			errs = []error{fmt.Errorf("validate: internal error: %v", r)}
		}
	}()
	if err := domain.Validate(g); err != nil {
		if list := domain.ValidationErrors(err); list != nil {
			return list
		}
		return []error{err}
	}
	return nil
}

// AnalyzeTopology classifies the shape of g.
func (t *Transpiler) AnalyzeTopology(g *domain.Graph) *topology.Topology {
	if g == nil {
		g = &domain.Graph{}
	}
	return topology.Analyze(g)
}

// Hooks returns the registered lifecycle hooks.
func (t *Transpiler) Hooks() domain.LifecycleHooks {
	return t.hooks
}

func graphID(g *domain.Graph) string {
	if g == nil {
		return ""
	}
	return g.ID
}

var defaultTranspiler = New()

// Transpile uses a default Transpiler.
func Transpile(g *domain.Graph, opts ...TranspileOption) *TranspileResult {
	return defaultTranspiler.Transpile(context.Background(), g, opts...)
}

// FromYAML uses a default Transpiler.
func FromYAML(text []byte) *ImportResult {
	return defaultTranspiler.FromYAML(context.Background(), text)
}

// Validate uses a default Transpiler.
func Validate(g *domain.Graph) []error {
	return defaultTranspiler.Validate(g)
}

// AnalyzeTopology uses a default Transpiler.
func AnalyzeTopology(g *domain.Graph) *topology.Topology {
	return defaultTranspiler.AnalyzeTopology(g)
}
