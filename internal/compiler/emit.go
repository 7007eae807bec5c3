package compiler

import (
	"github.com/aretw0/cafe/pkg/automation"
	"github.com/aretw0/cafe/pkg/domain"
	"github.com/aretw0/cafe/pkg/flatten"
	"github.com/aretw0/cafe/pkg/topology"
)

// emission is what an emitter produces: the document, the order in which
// nodes were written (for the layout extension) and recovered anomalies.
type emission struct {
	doc      *automation.Document
	order    []string
	warnings []error
}

// emitter holds the state shared by both strategies.
type emitter struct {
	g     *domain.Graph
	topo  *topology.Topology
	nodes map[string]*domain.Node
	out   emission
}

func newEmitter(g *domain.Graph, topo *topology.Topology) *emitter {
	e := &emitter{
		g:     g,
		topo:  topo,
		nodes: make(map[string]*domain.Node, len(g.Nodes)),
	}
	for i := range g.Nodes {
		e.nodes[g.Nodes[i].ID] = &g.Nodes[i]
	}
	e.out.doc = &automation.Document{
		ID:           g.ID,
		Alias:        g.Name,
		Description:  g.Description,
		Mode:         string(g.Metadata.Mode),
		Max:          g.Metadata.Max,
		InitialState: g.Metadata.InitialState,
		Variables:    domain.CloneMap(g.Variables),
		Extra:        domain.CloneMap(g.Extra),
	}
	return e
}

func (e *emitter) warn(path, format string, args ...any) {
	e.out.warnings = append(e.out.warnings, domain.Warnf(path, format, args...))
}

func (e *emitter) visit(id string) {
	e.out.order = append(e.out.order, id)
}

// entry renders an action, delay or wait node as one sequence entry.
func (e *emitter) entry(n *domain.Node) map[string]any {
	if n.Type == domain.NodeTypeAction && n.Action.Service == domain.UnknownService {
		e.warn("node "+n.ID, "action names no service; emitted verbatim")
	}
	return n.Data()
}

// predicate renders a condition node as a condition mapping. The synthetic
// aliases given to imported if/choose blocks are not written back.
func predicate(n *domain.Node) map[string]any {
	m := n.Condition.Fields()
	if n.Alias != "" && n.Alias != flatten.AliasIf && n.Alias != flatten.AliasChoose {
		m[domain.KeyAlias] = n.Alias
	}
	return m
}

// predicates renders a branching condition as the list written under "if" or
// "conditions". The "and" node read from a block with several predicates is
// written back as that list.
func predicates(n *domain.Node) []any {
	c := n.Condition
	synthetic := n.Alias == flatten.AliasIf || n.Alias == flatten.AliasChoose
	if !synthetic || c.Condition != "and" || len(c.Conditions) < 2 || len(c.Extra) > 0 {
		return []any{predicate(n)}
	}
	out := make([]any, len(c.Conditions))
	for i := range c.Conditions {
		out[i] = c.Conditions[i].Fields()
	}
	return out
}

// first returns the first target on handle, or "".
func (e *emitter) first(id, handle string) string {
	if next := e.topo.Next(id, handle); len(next) > 0 {
		return next[0]
	}
	return ""
}

// successor is the continuation of a non-condition node, whatever handle its edge carries.
func (e *emitter) successor(id string) string {
	for _, edge := range e.g.Edges {
		if edge.Source == id {
			if _, ok := e.nodes[edge.Target]; ok {
				return edge.Target
			}
		}
	}
	return ""
}

func (e *emitter) isCondition(id string) bool {
	n, ok := e.nodes[id]
	return ok && n.Type == domain.NodeTypeCondition
}

func (e *emitter) triggerEntries(withID bool) {
	for _, n := range e.g.Triggers() {
		m := n.Data()
		if withID {
			if old, ok := m["id"]; ok && old != n.ID {
				e.warn("node "+n.ID, "trigger id %v replaced by node id", old)
			}
			m["id"] = n.ID
		}
		e.out.doc.Triggers = append(e.out.doc.Triggers, m)
		e.visit(n.ID)
	}
}
