// Package topology classifies the shape of an automation graph so the
// compiler can pick a code generation strategy.
package topology

import (
	"fmt"
	"sort"

	"github.com/aretw0/cafe/pkg/domain"
)

// Shape is the structural class of a graph.
type Shape string

const (
	// ShapeLinear has no two-way branch: triggers, gates and a straight sequence.
	ShapeLinear Shape = "linear"
	// ShapeTreeBranching branches on conditions and never rejoins.
	ShapeTreeBranching Shape = "tree-branching"
	// ShapeIrregular needs the state machine: cycles, rejoins, fan-out or several entry paths.
	ShapeIrregular Shape = "irregular"
)

// Reason kinds that make a graph irregular.
const (
	ReasonCycle       = "cycle"
	ReasonRejoin      = "rejoin"
	ReasonFanOut      = "fan_out"
	ReasonMultiEntry  = "multi_entry"
	ReasonHandle      = "handle"
	ReasonUnreachable = "unreachable"
)

// Reason explains one irregularity (or, for unreachable nodes, one warning).
type Reason struct {
	Kind   string `json:"kind"`
	NodeID string `json:"node_id,omitempty"`
	Detail string `json:"detail"`
}

func (r Reason) String() string {
	if r.NodeID == "" {
		return r.Kind + ": " + r.Detail
	}
	return fmt.Sprintf("%s at %s: %s", r.Kind, r.NodeID, r.Detail)
}

// Topology is the result of the analysis.
type Topology struct {
	EntryNodes []string `json:"entry_nodes"`
	Shape      Shape    `json:"shape"`
	// Adjacency maps node id to handle to targets; plain edges use the "" handle.
	Adjacency map[string]map[string][]string `json:"adjacency"`
	// Root is the first node after the triggers, empty when they lead nowhere.
	Root        string   `json:"root,omitempty"`
	Reasons     []Reason `json:"reasons,omitempty"`
	Unreachable []string `json:"unreachable,omitempty"`
	// Order lists the reachable nodes in depth-first order from Root.
	Order []string `json:"order,omitempty"`
}

// Next returns the targets of id on handle.
func (t *Topology) Next(id, handle string) []string {
	return t.Adjacency[id][handle]
}

// Irregular reports whether the graph needs the state machine strategy.
func (t *Topology) Irregular() bool { return t.Shape == ShapeIrregular }

// ReasonStrings flattens the blocking reasons for error messages.
func (t *Topology) ReasonStrings() []string {
	var out []string
	for _, r := range t.Reasons {
		if r.Kind == ReasonUnreachable {
			continue
		}
		out = append(out, r.String())
	}
	return out
}

type analyzer struct {
	g     *domain.Graph
	types map[string]domain.NodeType
	topo  *Topology
}

// Analyze classifies g. It never fails: invariant violations are the job of
// domain.Validate, and anything the analysis cannot explain is reported as irregular.
func Analyze(g *domain.Graph) *Topology {
	a := &analyzer{
		g:     g,
		types: make(map[string]domain.NodeType, len(g.Nodes)),
		topo: &Topology{
			Adjacency: make(map[string]map[string][]string, len(g.Nodes)),
		},
	}
	for _, n := range g.Nodes {
		a.types[n.ID] = n.Type
		a.topo.Adjacency[n.ID] = map[string][]string{}
	}
	incoming := map[string]int{}
	for _, e := range g.Edges {
		if _, ok := a.topo.Adjacency[e.Source]; !ok {
			continue
		}
		a.topo.Adjacency[e.Source][e.SourceHandle] = append(a.topo.Adjacency[e.Source][e.SourceHandle], e.Target)
		incoming[e.Target]++
	}
	for _, n := range g.Nodes {
		if n.Type == domain.NodeTypeTrigger && incoming[n.ID] == 0 {
			a.topo.EntryNodes = append(a.topo.EntryNodes, n.ID)
		}
	}

	a.checkEntries()
	a.checkOutDegrees()
	visited := a.walk()
	a.unreachable(visited)
	a.classify()
	return a.topo
}

func (a *analyzer) irregular(kind, node, format string, args ...any) {
	a.topo.Reasons = append(a.topo.Reasons, Reason{Kind: kind, NodeID: node, Detail: fmt.Sprintf(format, args...)})
}

// checkEntries requires every trigger to feed the same first node.
func (a *analyzer) checkEntries() {
	roots := map[string]bool{}
	var first string
	silent := 0
	for _, id := range a.topo.EntryNodes {
		targets := a.targets(id)
		if len(targets) > 1 {
			a.irregular(ReasonFanOut, id, "trigger has %d outgoing edges", len(targets))
		}
		if len(targets) == 0 {
			silent++
			continue
		}
		if first == "" {
			first = targets[0]
		}
		for _, t := range targets {
			roots[t] = true
		}
	}
	if len(roots) > 1 {
		a.irregular(ReasonMultiEntry, "", "triggers lead to %d different nodes", len(roots))
	}
	if len(roots) > 0 && silent > 0 {
		a.irregular(ReasonMultiEntry, "", "%d trigger(s) lead nowhere while others run actions", silent)
	}
	a.topo.Root = first
}

// targets returns every target of id regardless of handle, in edge order.
func (a *analyzer) targets(id string) []string {
	var out []string
	for _, e := range a.g.Edges {
		if e.Source == id {
			out = append(out, e.Target)
		}
	}
	return out
}

func (a *analyzer) checkOutDegrees() {
	for _, n := range a.g.Nodes {
		adj := a.topo.Adjacency[n.ID]
		switch n.Type {
		case domain.NodeTypeTrigger:
		case domain.NodeTypeCondition:
			for _, handle := range handleOrder(adj) {
				targets := adj[handle]
				if handle != domain.HandleTrue && handle != domain.HandleFalse {
					a.irregular(ReasonHandle, n.ID, "edge with handle %q", handle)
					continue
				}
				if len(targets) > 1 {
					a.irregular(ReasonFanOut, n.ID, "%d edges on the %q handle", len(targets), handle)
				}
			}
			if len(adj[domain.HandleFalse]) > 0 && len(adj[domain.HandleTrue]) == 0 {
				a.irregular(ReasonHandle, n.ID, "false branch without a true branch")
			}
		default:
			if c := len(a.targets(n.ID)); c > 1 {
				a.irregular(ReasonFanOut, n.ID, "%d outgoing edges", c)
			}
		}
	}
}

// step is one frame of the depth-first walk.
type step struct {
	id   string
	path []string // conditions passed on the way here, root first
}

// walk runs an exact depth-first search from Root, detecting cycles through
// the traversal stack and rejoins through nodes reached on two paths.
func (a *analyzer) walk() map[string][]string {
	visited := map[string][]string{}
	if _, ok := a.types[a.topo.Root]; !ok {
		return visited
	}
	onStack := map[string]bool{}

	var visit func(s step)
	visit = func(s step) {
		if onStack[s.id] {
			a.irregular(ReasonCycle, s.id, "node is reachable from itself")
			return
		}
		if prev, seen := visited[s.id]; seen {
			a.irregular(ReasonRejoin, s.id, "branches rejoin; nearest common condition %s", commonCondition(prev, s.path))
			return
		}
		visited[s.id] = s.path
		a.topo.Order = append(a.topo.Order, s.id)
		onStack[s.id] = true
		defer delete(onStack, s.id)

		path := s.path
		if a.types[s.id] == domain.NodeTypeCondition {
			path = append(append([]string(nil), s.path...), s.id)
		}
		for _, handle := range handleOrder(a.topo.Adjacency[s.id]) {
			for _, next := range a.topo.Adjacency[s.id][handle] {
				if _, ok := a.types[next]; !ok {
					continue
				}
				visit(step{id: next, path: path})
			}
		}
	}
	visit(step{id: a.topo.Root})
	return visited
}

// handleOrder visits true before false before plain and any stray handles.
func handleOrder(adj map[string][]string) []string {
	out := make([]string, 0, len(adj))
	for _, h := range []string{domain.HandleTrue, domain.HandleFalse, ""} {
		if _, ok := adj[h]; ok {
			out = append(out, h)
		}
	}
	var stray []string
	for h := range adj {
		if h != domain.HandleTrue && h != domain.HandleFalse && h != "" {
			stray = append(stray, h)
		}
	}
	sort.Strings(stray)
	return append(out, stray...)
}

func commonCondition(a, b []string) string {
	common := "(none)"
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			break
		}
		common = a[i]
	}
	return common
}

func (a *analyzer) unreachable(visited map[string][]string) {
	for _, n := range a.g.Nodes {
		if n.Type == domain.NodeTypeTrigger {
			continue
		}
		if _, ok := visited[n.ID]; !ok {
			a.topo.Unreachable = append(a.topo.Unreachable, n.ID)
			a.topo.Reasons = append(a.topo.Reasons, Reason{Kind: ReasonUnreachable, NodeID: n.ID, Detail: "not reachable from any trigger"})
		}
	}
}

func (a *analyzer) classify() {
	for _, r := range a.topo.Reasons {
		if r.Kind != ReasonUnreachable {
			a.topo.Shape = ShapeIrregular
			return
		}
	}
	a.topo.Shape = ShapeLinear
	for _, id := range a.topo.Order {
		if a.types[id] != domain.NodeTypeCondition {
			continue
		}
		adj := a.topo.Adjacency[id]
		if len(adj[domain.HandleTrue]) > 0 && len(adj[domain.HandleFalse]) > 0 {
			a.topo.Shape = ShapeTreeBranching
			return
		}
	}
}
