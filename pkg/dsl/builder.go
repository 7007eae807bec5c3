package dsl

import (
	"fmt"

	"github.com/aretw0/cafe/pkg/domain"
)

// Builder manages the graph construction.
type Builder struct {
	graph domain.Graph
	order []string
	nodes map[string]*NodeBuilder
	edges int
}

// New creates a new graph builder.
func New(name string) *Builder {
	return &Builder{
		graph: domain.Graph{Name: name, Version: domain.SchemaVersion},
		nodes: make(map[string]*NodeBuilder),
	}
}

// ID sets the automation id.
func (b *Builder) ID(id string) *Builder {
	b.graph.ID = id
	return b
}

// Mode sets the run mode.
func (b *Builder) Mode(mode domain.RunMode) *Builder {
	b.graph.Metadata.Mode = mode
	return b
}

// Add creates a new node in the graph.
// If the node already exists, it returns the existing builder.
func (b *Builder) Add(id string) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node:    domain.Node{ID: id},
		builder: b,
	}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	return nb
}

func (b *Builder) connect(source, target, handle string) {
	b.edges++
	b.graph.Edges = append(b.graph.Edges, domain.Edge{
		ID:           fmt.Sprintf("e%d", b.edges),
		Source:       source,
		Target:       target,
		SourceHandle: handle,
	})
}

// Graph returns the graph without validating it.
func (b *Builder) Graph() *domain.Graph {
	g := b.graph
	g.Nodes = make([]domain.Node, 0, len(b.order))
	for _, id := range b.order {
		g.Nodes = append(g.Nodes, b.nodes[id].node)
	}
	g.Edges = append([]domain.Edge(nil), b.graph.Edges...)
	return g.Clone()
}

// Build returns the graph, failing when it breaks a model invariant.
func (b *Builder) Build() (*domain.Graph, error) {
	g := b.Graph()
	if err := domain.Validate(g); err != nil {
		return nil, fmt.Errorf("invalid graph: %w", err)
	}
	return g, nil
}
