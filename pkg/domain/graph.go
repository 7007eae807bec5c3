package domain

// SchemaVersion is the version of the graph layout stored in documents.
const SchemaVersion = 1

// RunMode controls what the host does when an automation triggers while running.
type RunMode string

const (
	ModeSingle   RunMode = "single"
	ModeRestart  RunMode = "restart"
	ModeQueued   RunMode = "queued"
	ModeParallel RunMode = "parallel"
)

// Edge connects two nodes. SourceHandle is "true" or "false" on edges leaving
// a condition node and empty elsewhere.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	Label        string `json:"label,omitempty"`
}

// Condition handles.
const (
	HandleTrue  = "true"
	HandleFalse = "false"
)

// Metadata holds the automation-level run options.
type Metadata struct {
	Mode         RunMode `json:"mode,omitempty"`
	Max          int     `json:"max,omitempty"`
	InitialState *bool   `json:"initial_state,omitempty"`
}

// Graph is the editor's representation of one automation.
type Graph struct {
	ID          string
	Name        string
	Description string
	Nodes       []Node
	Edges       []Edge
	Metadata    Metadata
	Version     int

	// Variables are user-declared automation variables.
	Variables map[string]any
	// Extra keeps unknown top-level document keys for a faithful round trip.
	Extra map[string]any
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (*Node, bool) {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i], true
		}
	}
	return nil, false
}

// Index maps node ids to their position in Nodes. The first occurrence wins.
func (g *Graph) Index() map[string]int {
	idx := make(map[string]int, len(g.Nodes))
	for i, n := range g.Nodes {
		if _, dup := idx[n.ID]; !dup {
			idx[n.ID] = i
		}
	}
	return idx
}

// Triggers returns the trigger nodes in graph order.
func (g *Graph) Triggers() []*Node {
	var out []*Node
	for i := range g.Nodes {
		if g.Nodes[i].Type == NodeTypeTrigger {
			out = append(out, &g.Nodes[i])
		}
	}
	return out
}

// Outgoing returns edges leaving id, in graph order.
func (g *Graph) Outgoing(id string) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.Source == id {
			out = append(out, e)
		}
	}
	return out
}

// Incoming returns edges entering id, in graph order.
func (g *Graph) Incoming(id string) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.Target == id {
			out = append(out, e)
		}
	}
	return out
}
