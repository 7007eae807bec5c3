package domain

import (
	"encoding/json"
	"fmt"
	"math"
)

// nodeJSON is the editor (React Flow) wire shape of a node.
type nodeJSON struct {
	ID       string         `json:"id"`
	Type     NodeType       `json:"type"`
	Position Position       `json:"position"`
	Data     map[string]any `json:"data"`
}

// MarshalJSON writes the node in editor shape with its payload flattened into "data".
func (n Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(nodeJSON{
		ID:       n.ID,
		Type:     n.Type,
		Position: n.Position,
		Data:     n.Data(),
	})
}

// UnmarshalJSON reads the editor shape and decodes "data" into the typed payload.
func (n *Node) UnmarshalJSON(b []byte) error {
	var raw nodeJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	data, _ := normalizeNumbers(raw.Data).(map[string]any)
	if !raw.Type.Valid() {
		return fmt.Errorf("node %s: unknown node type %q", raw.ID, raw.Type)
	}
	node, err := NewNode(raw.ID, raw.Type, data)
	if err != nil {
		return err
	}
	node.Position = raw.Position
	*n = node
	return nil
}

type graphJSON struct {
	ID          string         `json:"id,omitempty"`
	Name        string         `json:"name,omitempty"`
	Description string         `json:"description,omitempty"`
	Version     int            `json:"version,omitempty"`
	Metadata    Metadata       `json:"metadata"`
	Nodes       []Node         `json:"nodes"`
	Edges       []Edge         `json:"edges"`
	Variables   map[string]any `json:"variables,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// MarshalJSON writes the graph in editor shape.
func (g Graph) MarshalJSON() ([]byte, error) {
	nodes := g.Nodes
	if nodes == nil {
		nodes = []Node{}
	}
	edges := g.Edges
	if edges == nil {
		edges = []Edge{}
	}
	return json.Marshal(graphJSON{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		Version:     g.Version,
		Metadata:    g.Metadata,
		Nodes:       nodes,
		Edges:       edges,
		Variables:   g.Variables,
		Extra:       g.Extra,
	})
}

// UnmarshalJSON reads the editor shape.
func (g *Graph) UnmarshalJSON(b []byte) error {
	var raw graphJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	vars, _ := normalizeNumbers(raw.Variables).(map[string]any)
	extra, _ := normalizeNumbers(raw.Extra).(map[string]any)
	*g = Graph{
		ID:          raw.ID,
		Name:        raw.Name,
		Description: raw.Description,
		Version:     raw.Version,
		Metadata:    raw.Metadata,
		Nodes:       raw.Nodes,
		Edges:       raw.Edges,
		Variables:   vars,
		Extra:       extra,
	}
	if g.Version == 0 {
		g.Version = SchemaVersion
	}
	return nil
}

// ParseGraphJSON decodes an editor graph document.
func ParseGraphJSON(b []byte) (*Graph, error) {
	var g Graph
	if err := json.Unmarshal(b, &g); err != nil {
		return nil, &ParseError{Msg: "invalid graph JSON", Err: err}
	}
	return &g, nil
}

// normalizeNumbers turns whole float64 values produced by encoding/json back
// into ints, so 255 stays 255 in the emitted document.
func normalizeNumbers(v any) any {
	switch val := v.(type) {
	case map[string]any:
		if val == nil {
			return val
		}
		for k, item := range val {
			val[k] = normalizeNumbers(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = normalizeNumbers(item)
		}
		return val
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1<<53 {
			return int(val)
		}
		return val
	default:
		return v
	}
}
