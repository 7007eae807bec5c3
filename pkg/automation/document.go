// Package automation models the automation document and its YAML encoding.
//
// Documents are encoded through yaml.Node trees so keys come out in the order
// a person would write them (id, alias, triggers, conditions, actions...) rather
// than alphabetically.
package automation

import (
	"github.com/aretw0/cafe/pkg/domain"
)

// Dialect selects the spelling of emitted keys.
type Dialect string

const (
	// DialectCurrent uses plural section keys, "trigger:" discriminators and "action:" service calls.
	DialectCurrent Dialect = "current"
	// DialectLegacy uses singular section keys, "platform:" and "service:".
	DialectLegacy Dialect = "legacy"
)

// Valid reports whether d is a known dialect.
func (d Dialect) Valid() bool { return d == DialectCurrent || d == DialectLegacy }

// Keywords returns the spelling of the dialect-dependent keys.
func (d Dialect) Keywords() Keywords {
	if d == DialectLegacy {
		return Keywords{
			Triggers:   "trigger",
			Conditions: "condition",
			Actions:    "action",
			Platform:   "platform",
			Service:    "service",
		}
	}
	return Keywords{
		Triggers:   "triggers",
		Conditions: "conditions",
		Actions:    "actions",
		Platform:   "trigger",
		Service:    "action",
	}
}

// Keywords are the dialect-dependent key names.
type Keywords struct {
	Triggers   string
	Conditions string
	Actions    string
	Platform   string
	Service    string
}

// Document is one automation in canonical form: triggers use "platform",
// service calls use "service" and "data".
type Document struct {
	ID           string
	Alias        string
	Description  string
	Mode         string
	Max          int
	InitialState *bool

	Variables  map[string]any
	Triggers   []map[string]any
	Conditions []map[string]any
	Actions    []map[string]any

	// Layout is the editor extension stored under variables._cafe_metadata.
	Layout *Layout
	// Extra keeps unknown top-level keys.
	Extra map[string]any
}

// Layout is the editor extension field: node ids, types and canvas positions
// in emission order.
type Layout struct {
	Version  int             `yaml:"version" json:"version" mapstructure:"version"`
	Strategy domain.Strategy `yaml:"strategy" json:"strategy" mapstructure:"strategy"`
	Nodes    []NodeLayout    `yaml:"nodes" json:"nodes" mapstructure:"nodes"`
}

// NodeLayout places one node.
type NodeLayout struct {
	ID   string          `yaml:"id" json:"id" mapstructure:"id"`
	Type domain.NodeType `yaml:"type" json:"type" mapstructure:"type"`
	X    float64         `yaml:"x" json:"x" mapstructure:"x"`
	Y    float64         `yaml:"y" json:"y" mapstructure:"y"`
}

// Map returns the layout as a plain map for embedding in variables.
func (l *Layout) Map() map[string]any {
	nodes := make([]any, len(l.Nodes))
	for i, n := range l.Nodes {
		nodes[i] = map[string]any{
			"id":   n.ID,
			"type": string(n.Type),
			"x":    number(n.X),
			"y":    number(n.Y),
		}
	}
	return map[string]any{
		"version":  l.Version,
		"strategy": string(l.Strategy),
		"nodes":    nodes,
	}
}

// number keeps whole coordinates as ints so they print without a fraction.
func number(f float64) any {
	if f == float64(int64(f)) {
		return int(f)
	}
	return f
}
