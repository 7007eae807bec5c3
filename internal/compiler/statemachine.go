package compiler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aretw0/cafe/pkg/domain"
	"github.com/aretw0/cafe/pkg/topology"
)

// DefaultMaxSteps bounds the dispatcher loop so a cyclic graph cannot spin forever.
const DefaultMaxSteps = 1000

// emitStateMachine writes any graph as a dispatcher: a repeat loop around one
// choose whose options are guarded by the value of the state variable.
//
// Each node owns the state "<id>"; a condition node sets "<id>.true" or
// "<id>.false". A node runs when the state names one of its predecessors.
// Variables set inside the loop are visible to later iterations on hosts
// with shared script scope (2025.4 onwards).
func emitStateMachine(g *domain.Graph, topo *topology.Topology, maxSteps int) emission {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	e := newEmitter(g, topo)
	e.triggerEntries(true)

	var options []any
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if n.Type == domain.NodeTypeTrigger {
			continue
		}
		e.visit(n.ID)

		states := e.predecessorStates(n.ID)
		if len(states) == 0 {
			e.warn("node "+n.ID, "no incoming edge; never runs")
			continue
		}
		guard := guardCondition(states)

		if n.Type == domain.NodeTypeCondition {
			options = append(options,
				map[string]any{
					"conditions": []any{guard, predicate(n)},
					"sequence":   []any{setState(n.ID + "." + domain.HandleTrue)},
				},
				map[string]any{
					"conditions": []any{guardCondition(states)},
					"sequence":   []any{setState(n.ID + "." + domain.HandleFalse)},
				},
			)
			continue
		}

		if out := e.topo.Adjacency[n.ID]; countTargets(out) > 1 {
			e.warn("node "+n.ID, "%d outgoing edges; only the first successor runs", countTargets(out))
		}
		options = append(options, map[string]any{
			"conditions": []any{guard},
			"sequence":   []any{e.entry(n), setState(n.ID)},
		})
	}
	if options == nil {
		options = []any{}
	}

	until := fmt.Sprintf("{{ %s == '%s' or repeat.index >= %d }}", domain.StateVariable, domain.StateEnd, maxSteps)
	e.out.doc.Actions = []map[string]any{
		{"variables": map[string]any{domain.StateVariable: "{{ trigger.id }}"}},
		{"repeat": map[string]any{
			"sequence": []any{map[string]any{
				"choose":  options,
				"default": []any{setState(domain.StateEnd)},
			}},
			"until": []any{map[string]any{
				"condition":      "template",
				"value_template": until,
			}},
		}},
	}
	return e.out
}

// predecessorStates lists the state values that hand control to id, in edge order.
func (e *emitter) predecessorStates(id string) []string {
	var out []string
	seen := map[string]bool{}
	for _, edge := range e.g.Edges {
		if edge.Target != id {
			continue
		}
		src, ok := e.nodes[edge.Source]
		if !ok {
			continue
		}
		state := src.ID
		if src.Type == domain.NodeTypeCondition {
			state = src.ID + "." + edge.SourceHandle
		}
		if !seen[state] {
			seen[state] = true
			out = append(out, state)
		}
	}
	return out
}

// stateCollisions lists node ids that read like the outcome state of a
// condition node ("<condition>.true"), which the dispatcher cannot tell apart.
func stateCollisions(g *domain.Graph) []string {
	ids := g.Index()
	var out []string
	for _, n := range g.Nodes {
		if n.Type != domain.NodeTypeCondition {
			continue
		}
		for _, h := range []string{domain.HandleTrue, domain.HandleFalse} {
			if _, ok := ids[n.ID+"."+h]; ok {
				out = append(out, fmt.Sprintf("node %s.%s collides with a state of condition %s", n.ID, h, n.ID))
			}
		}
	}
	return out
}

// quoteState writes s as a double-quoted template string literal.
func quoteState(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}

func guardCondition(states []string) map[string]any {
	quoted := make([]string, len(states))
	for i, s := range states {
		quoted[i] = quoteState(s)
	}
	return map[string]any{
		"condition":      "template",
		"value_template": fmt.Sprintf("{{ %s in [%s] }}", domain.StateVariable, strings.Join(quoted, ", ")),
	}
}

func setState(value string) map[string]any {
	return map[string]any{"variables": map[string]any{domain.StateVariable: value}}
}

func countTargets(adj map[string][]string) int {
	c := 0
	for _, t := range adj {
		c += len(t)
	}
	return c
}
