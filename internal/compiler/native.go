package compiler

import (
	"github.com/aretw0/cafe/pkg/domain"
	"github.com/aretw0/cafe/pkg/topology"
)

// emitNative writes a linear or tree-branching graph with the host's own
// constructs: top-level conditions, inline condition gates, if/then/else and
// choose for else-if chains.
func emitNative(g *domain.Graph, topo *topology.Topology) emission {
	e := newEmitter(g, topo)
	e.triggerEntries(false)

	cur := topo.Root
	for cur != "" && e.isCondition(cur) && len(topo.Next(cur, domain.HandleFalse)) == 0 {
		e.out.doc.Conditions = append(e.out.doc.Conditions, predicate(e.nodes[cur]))
		e.visit(cur)
		cur = e.first(cur, domain.HandleTrue)
	}
	e.out.doc.Actions = e.sequence(cur)

	for _, id := range topo.Unreachable {
		e.warn("node "+id, "not reachable from a trigger; omitted")
	}
	return e.out
}

// sequence writes the chain starting at id until it ends or branches.
func (e *emitter) sequence(id string) []map[string]any {
	out := []map[string]any{}
	for cur := id; cur != ""; {
		n := e.nodes[cur]
		if n.Type != domain.NodeTypeCondition {
			out = append(out, e.entry(n))
			e.visit(cur)
			cur = e.successor(cur)
			continue
		}
		if len(e.topo.Next(cur, domain.HandleFalse)) == 0 {
			out = append(out, predicate(n))
			e.visit(cur)
			cur = e.first(cur, domain.HandleTrue)
			continue
		}
		// A two-way branch ends the sequence: tree graphs never rejoin.
		return append(out, e.block(n))
	}
	return out
}

// block writes a branching condition. A false branch that starts with another
// condition continues an else-if chain, which is written as choose.
func (e *emitter) block(n *domain.Node) map[string]any {
	links := []*domain.Node{n}
	for {
		next := e.topo.Next(links[len(links)-1].ID, domain.HandleFalse)
		if len(next) != 1 || !e.isCondition(next[0]) {
			break
		}
		links = append(links, e.nodes[next[0]])
	}

	if len(links) == 1 {
		e.visit(n.ID)
		block := map[string]any{
			"if":   predicates(n),
			"then": toAny(e.sequence(e.first(n.ID, domain.HandleTrue))),
		}
		if f := e.first(n.ID, domain.HandleFalse); f != "" {
			block["else"] = toAny(e.sequence(f))
		}
		return block
	}

	options := make([]any, 0, len(links))
	for _, link := range links {
		e.visit(link.ID)
		options = append(options, map[string]any{
			"conditions": predicates(link),
			"sequence":   toAny(e.sequence(e.first(link.ID, domain.HandleTrue))),
		})
	}
	block := map[string]any{"choose": options}
	last := links[len(links)-1]
	if f := e.first(last.ID, domain.HandleFalse); f != "" {
		block["default"] = toAny(e.sequence(f))
	}
	return block
}

func toAny(list []map[string]any) []any {
	out := make([]any, len(list))
	for i := range list {
		out[i] = list[i]
	}
	return out
}
