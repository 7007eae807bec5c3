package compiler

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/aretw0/cafe/pkg/automation"
	"github.com/aretw0/cafe/pkg/dialect"
	"github.com/aretw0/cafe/pkg/domain"
	"github.com/aretw0/cafe/pkg/flatten"
)

// ParseOptions configures document import.
type ParseOptions struct {
	// Canonical rewrites single target ids as lists.
	Canonical bool
}

// ImportResult is the outcome of parsing a document back into a graph.
type ImportResult struct {
	Success     bool
	Graph       *domain.Graph
	Warnings    []error
	Errors      []error
	HadMetadata bool
}

// MarshalJSON writes errors and warnings as their messages.
func (r *ImportResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Success     bool          `json:"success"`
		Graph       *domain.Graph `json:"graph,omitempty"`
		Warnings    []string      `json:"warnings"`
		Errors      []string      `json:"errors"`
		HadMetadata bool          `json:"had_metadata"`
	}{
		Success:     r.Success,
		Graph:       r.Graph,
		Warnings:    Messages(r.Warnings),
		Errors:      Messages(r.Errors),
		HadMetadata: r.HadMetadata,
	})
}

// Parser is responsible for converting automation documents into graphs.
type Parser struct {
	opts ParseOptions
}

// NewParser creates a new parser instance.
func NewParser(opts ParseOptions) *Parser {
	return &Parser{opts: opts}
}

// Parse reads YAML text in any supported dialect.
func (p *Parser) Parse(text []byte) *ImportResult {
	doc, warnings, err := dialect.Parse(text, dialect.Options{Canonical: p.opts.Canonical})
	if err != nil {
		return &ImportResult{Warnings: warnings, Errors: []error{err}}
	}
	return FromDocument(doc, warnings)
}

// FromDocument builds a graph from a canonical document.
func FromDocument(doc *automation.Document, warnings []error) *ImportResult {
	b := newGraphBuilder(doc, warnings)
	if isStateMachine(doc) {
		b.stateMachine(doc)
	} else {
		if doc.Layout != nil && doc.Layout.Strategy == domain.StrategyStateMachine {
			b.warn("variables."+domain.MetadataKey, "layout names the state machine strategy but the actions do not match it; reading as native")
		}
		b.native(doc)
		b.applyLayout(doc.Layout)
	}

	res := &ImportResult{Graph: b.g, Warnings: b.warnings, HadMetadata: b.hadMetadata}
	if err := domain.Validate(b.g); err != nil {
		res.Graph = nil
		res.Errors = flattenErrors(err)
		return res
	}
	res.Success = true
	return res
}

// graphBuilder accumulates nodes and edges while reading a document.
type graphBuilder struct {
	g           *domain.Graph
	counters    map[domain.NodeType]int
	edges       int
	warnings    []error
	hadMetadata bool
}

func newGraphBuilder(doc *automation.Document, warnings []error) *graphBuilder {
	version := domain.SchemaVersion
	if doc.Layout != nil && doc.Layout.Version > 0 {
		version = doc.Layout.Version
	}
	return &graphBuilder{
		g: &domain.Graph{
			ID:          doc.ID,
			Name:        doc.Alias,
			Description: doc.Description,
			Version:     version,
			Metadata: domain.Metadata{
				Mode:         domain.RunMode(doc.Mode),
				Max:          doc.Max,
				InitialState: doc.InitialState,
			},
			Variables: domain.CloneMap(doc.Variables),
			Extra:     domain.CloneMap(doc.Extra),
		},
		counters: map[domain.NodeType]int{},
		warnings: warnings,
	}
}

func (b *graphBuilder) warn(path, format string, args ...any) {
	b.warnings = append(b.warnings, domain.Warnf(path, format, args...))
}

// add creates a node. An empty id gets the next "<type>_<n>" id.
// Data that cannot be decoded is kept verbatim with a warning.
func (b *graphBuilder) add(id string, t domain.NodeType, data map[string]any, path string) string {
	if id == "" {
		b.counters[t]++
		id = fmt.Sprintf("%s_%d", t, b.counters[t])
	}
	n, err := domain.NewNode(id, t, data)
	if err != nil {
		b.warn(path, "%v; kept verbatim", err)
		n = rawNode(id, t, data)
	}
	b.g.Nodes = append(b.g.Nodes, n)
	return id
}

func rawNode(id string, t domain.NodeType, data map[string]any) domain.Node {
	raw := domain.CloneMap(data)
	n := domain.Node{ID: id, Type: t}
	switch t {
	case domain.NodeTypeTrigger:
		n.Trigger = &domain.TriggerData{Extra: raw}
	case domain.NodeTypeCondition:
		n.Condition = &domain.ConditionData{Extra: raw}
	case domain.NodeTypeDelay:
		n.Delay = &domain.DelayData{Extra: raw}
	case domain.NodeTypeWait:
		n.Wait = &domain.WaitData{Extra: raw}
	default:
		n.Type = domain.NodeTypeAction
		n.Action = &domain.ActionData{Service: domain.UnknownService, Extra: raw}
	}
	return n
}

func (b *graphBuilder) connect(source, target, handle string) {
	b.edges++
	b.g.Edges = append(b.g.Edges, domain.Edge{
		ID:           fmt.Sprintf("e%d", b.edges),
		Source:       source,
		Target:       target,
		SourceHandle: handle,
	})
}

// tail is an open end of the graph built so far: a node and the handle the
// next node hangs from.
type tail struct {
	node   string
	handle string
}

func (b *graphBuilder) link(tails []tail, target string) {
	for _, t := range tails {
		b.connect(t.node, target, t.handle)
	}
}

// native reads triggers, top-level conditions and the flattened action list.
func (b *graphBuilder) native(doc *automation.Document) {
	var tails []tail
	for i, t := range doc.Triggers {
		id := b.add("", domain.NodeTypeTrigger, t, fmt.Sprintf("triggers[%d]", i))
		tails = append(tails, tail{node: id})
	}
	for i, c := range doc.Conditions {
		id := b.add("", domain.NodeTypeCondition, c, fmt.Sprintf("conditions[%d]", i))
		b.link(tails, id)
		tails = []tail{{node: id, handle: domain.HandleTrue}}
	}

	entries := flatten.Flatten(doc.Actions)
	ids := make([]string, len(entries))
	for i, entry := range entries {
		path := fmt.Sprintf("actions#%d", i)
		if entry.Synthetic() {
			ids[i] = b.add("", domain.NodeTypeCondition, b.syntheticPredicate(entry, path), path)
			continue
		}
		ids[i] = b.add("", domain.ClassifyEntry(entry.Action), entry.Action, path)
	}
	b.chain(entries, ids, flatten.Children(entries, -1, ""), tails)
}

// chain links a sequence of entries after tails and returns the open ends.
// Entries after an if block continue from every end of both branches.
func (b *graphBuilder) chain(entries []flatten.Entry, ids []string, seq []int, tails []tail) []tail {
	for _, i := range seq {
		id := ids[i]
		b.link(tails, id)
		switch {
		case entries[i].Synthetic():
			thenTails := b.chain(entries, ids, flatten.Children(entries, i, domain.HandleTrue), []tail{{node: id, handle: domain.HandleTrue}})
			elseTails := b.chain(entries, ids, flatten.Children(entries, i, domain.HandleFalse), []tail{{node: id, handle: domain.HandleFalse}})
			tails = append(thenTails, elseTails...)
		case domain.ClassifyEntry(entries[i].Action) == domain.NodeTypeCondition:
			tails = []tail{{node: id, handle: domain.HandleTrue}}
		default:
			tails = []tail{{node: id}}
		}
	}
	return tails
}

// syntheticPredicate turns an if/choose entry into the data of one condition
// node. Several predicates are joined with "and".
func (b *graphBuilder) syntheticPredicate(entry flatten.Entry, path string) map[string]any {
	conds, _ := entry.Action["conditions"].([]any)
	alias, _ := entry.Action["alias"].(string)
	if blockAlias, ok := entry.BlockKeys["alias"].(string); ok && blockAlias != "" {
		alias = blockAlias
	}
	dropped := make([]string, 0, len(entry.BlockKeys))
	for k := range entry.BlockKeys {
		if k != "alias" {
			dropped = append(dropped, k)
		}
	}
	sort.Strings(dropped)
	for _, k := range dropped {
		b.warn(path, "%s block key %q has no place in the graph; dropped", entry.Block, k)
	}

	var data map[string]any
	if len(conds) == 1 {
		if m, ok := conds[0].(map[string]any); ok {
			data = domain.CloneMap(m)
		}
	}
	if data == nil {
		if len(conds) == 0 {
			b.warn(path, "%s block without conditions", entry.Block)
		}
		data = map[string]any{
			domain.KeyCondition:  "and",
			domain.KeyConditions: domain.CloneValue(conds),
		}
	}
	if _, ok := data[domain.KeyAlias]; !ok && alias != "" {
		data[domain.KeyAlias] = alias
	}
	return data
}

// applyLayout restores ids and positions from the layout extension when it
// describes exactly the nodes read, and computes a layout otherwise.
func (b *graphBuilder) applyLayout(l *automation.Layout) {
	if l == nil {
		AutoLayout(b.g)
		return
	}
	if !layoutMatches(l, b.g.Nodes) {
		b.warn("variables."+domain.MetadataKey, "layout does not match the document; positions recomputed")
		AutoLayout(b.g)
		return
	}

	rename := make(map[string]string, len(l.Nodes))
	for i, nl := range l.Nodes {
		n := &b.g.Nodes[i]
		rename[n.ID] = nl.ID
		n.ID = nl.ID
		n.Position = domain.Position{X: nl.X, Y: nl.Y}
	}
	for i := range b.g.Edges {
		e := &b.g.Edges[i]
		e.Source = rename[e.Source]
		e.Target = rename[e.Target]
	}
	b.hadMetadata = true
}

func layoutMatches(l *automation.Layout, nodes []domain.Node) bool {
	if len(l.Nodes) != len(nodes) {
		return false
	}
	for i, nl := range l.Nodes {
		if nl.ID == "" || nl.Type != nodes[i].Type {
			return false
		}
	}
	return true
}
