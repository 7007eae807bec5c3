package compiler

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/cafe/pkg/automation"
	"github.com/aretw0/cafe/pkg/domain"
	"github.com/aretw0/cafe/pkg/topology"
)

// Options configures one transpilation.
type Options struct {
	// Strategy forces a strategy; empty selects from the topology.
	Strategy domain.Strategy
	Dialect  automation.Dialect
	// MaxSteps bounds the state machine loop (DefaultMaxSteps when zero).
	MaxSteps int
	// OmitLayout drops the editor layout extension from the document.
	OmitLayout bool
}

// Output is the structured form of a successful transpilation.
type Output struct {
	Strategy   domain.Strategy
	Shape      topology.Shape
	Dialect    automation.Dialect
	Automation *automation.Document
}

// MarshalJSON writes the automation as the same mapping the YAML holds.
func (o *Output) MarshalJSON() ([]byte, error) {
	var doc map[string]any
	if o.Automation != nil {
		m, err := o.Automation.Map(o.Dialect)
		if err != nil {
			return nil, err
		}
		doc = m
	}
	return json.Marshal(struct {
		Strategy   domain.Strategy    `json:"strategy"`
		Shape      topology.Shape     `json:"shape"`
		Dialect    automation.Dialect `json:"dialect"`
		Automation map[string]any     `json:"automation,omitempty"`
	}{o.Strategy, o.Shape, o.Dialect, doc})
}

// Result is the outcome of Transpile. Success is false whenever Errors is not empty.
type Result struct {
	Success  bool
	YAML     string
	Warnings []error
	Errors   []error
	Output   *Output
}

// MarshalJSON writes errors and warnings as their messages.
func (r *Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Success  bool     `json:"success"`
		YAML     string   `json:"yaml,omitempty"`
		Warnings []string `json:"warnings"`
		Errors   []string `json:"errors"`
		Output   *Output  `json:"output,omitempty"`
	}{
		Success:  r.Success,
		YAML:     r.YAML,
		Warnings: Messages(r.Warnings),
		Errors:   Messages(r.Errors),
		Output:   r.Output,
	})
}

// Messages renders errors as strings, never nil.
func Messages(errs []error) []string {
	out := make([]string, 0, len(errs))
	for _, err := range errs {
		out = append(out, err.Error())
	}
	return out
}

// Transpile validates g, selects a strategy and writes the automation document.
// The input graph is never modified.
func Transpile(g *domain.Graph, opts Options) *Result {
	res := &Result{}
	if err := domain.Validate(g); err != nil {
		res.Errors = flattenErrors(err)
		return res
	}
	if opts.Dialect == "" {
		opts.Dialect = automation.DialectCurrent
	}
	if !opts.Dialect.Valid() {
		res.Errors = []error{fmt.Errorf("unknown dialect %q", opts.Dialect)}
		return res
	}
	if !opts.Strategy.Valid() {
		res.Errors = []error{fmt.Errorf("unknown strategy %q", opts.Strategy)}
		return res
	}

	g = g.Clone()
	topo := topology.Analyze(g)
	strategy, err := SelectStrategy(topo, opts.Strategy)
	if err != nil {
		res.Errors = []error{err}
		return res
	}

	if strategy == domain.StrategyStateMachine {
		if reasons := stateCollisions(g); len(reasons) > 0 {
			res.Errors = []error{&domain.UnsupportedShapeError{Strategy: strategy, Shape: string(topo.Shape), Reasons: reasons}}
			return res
		}
	}

	var out emission
	if strategy == domain.StrategyNative {
		out = emitNative(g, topo)
	} else {
		out = emitStateMachine(g, topo, opts.MaxSteps)
	}
	res.Warnings = out.warnings

	if !opts.OmitLayout {
		out.doc.Layout = layoutOf(g, out.order, strategy)
	}

	text, err := out.doc.Marshal(opts.Dialect)
	if err != nil {
		res.Errors = []error{err}
		return res
	}

	res.Success = true
	res.YAML = string(text)
	res.Output = &Output{Strategy: strategy, Shape: topo.Shape, Dialect: opts.Dialect, Automation: out.doc}
	return res
}

// layoutOf records node ids, types and positions in emission order.
func layoutOf(g *domain.Graph, order []string, strategy domain.Strategy) *automation.Layout {
	version := g.Version
	if version == 0 {
		version = domain.SchemaVersion
	}
	l := &automation.Layout{Version: version, Strategy: strategy}
	for _, id := range order {
		n, ok := g.Node(id)
		if !ok {
			continue
		}
		l.Nodes = append(l.Nodes, automation.NodeLayout{ID: n.ID, Type: n.Type, X: n.Position.X, Y: n.Position.Y})
	}
	return l
}

func flattenErrors(err error) []error {
	if errs := domain.ValidationErrors(err); errs != nil {
		return errs
	}
	return []error{err}
}
