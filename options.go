package cafe

import (
	"log/slog"

	"github.com/aretw0/cafe/internal/compiler"
	"github.com/aretw0/cafe/pkg/automation"
	"github.com/aretw0/cafe/pkg/domain"
)

// Option defines a functional option for configuring the Transpiler.
type Option func(*Transpiler)

// WithLogger sets a custom structured logger for the transpiler.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transpiler) {
		t.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(t *Transpiler) {
		t.hooks = hooks
	}
}

// WithDialect selects the key spelling of emitted documents (default: current).
func WithDialect(d automation.Dialect) Option {
	return func(t *Transpiler) {
		t.dialect = d
	}
}

// WithMaxSteps bounds the state machine dispatcher loop.
func WithMaxSteps(n int) Option {
	return func(t *Transpiler) {
		t.maxSteps = n
	}
}

// WithCanonical makes imports rewrite single target ids as lists.
func WithCanonical(canonical bool) Option {
	return func(t *Transpiler) {
		t.canonical = canonical
	}
}

// WithoutLayout omits the editor layout extension from emitted documents.
func WithoutLayout() Option {
	return func(t *Transpiler) {
		t.omitLayout = true
	}
}

// TranspileOption adjusts a single Transpile call.
type TranspileOption func(*compiler.Options)

// WithForceStrategy bypasses strategy selection. Forcing native on an
// irregular graph fails with domain.ErrUnsupportedShape.
func WithForceStrategy(s domain.Strategy) TranspileOption {
	return func(o *compiler.Options) {
		o.Strategy = s
	}
}

// WithTranspileDialect overrides the dialect for one call.
func WithTranspileDialect(d automation.Dialect) TranspileOption {
	return func(o *compiler.Options) {
		o.Dialect = d
	}
}
