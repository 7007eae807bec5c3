package compiler

import (
	"sort"

	"github.com/aretw0/cafe/pkg/domain"
)

// Spacing of the computed layout, in canvas units.
const (
	LayerSpacing = 300
	SlotSpacing  = 150
)

// AutoLayout positions nodes deterministically: a node's column is its
// longest distance from an entry node, and within a column nodes are ordered
// by their parent's row, "true" edges before "false" ones.
func AutoLayout(g *domain.Graph) {
	layers := assignLayers(g)

	maxLayer := 0
	for _, l := range layers {
		if l > maxLayer {
			maxLayer = l
		}
	}
	byLayer := make([][]int, maxLayer+1)
	for i := range g.Nodes {
		l := layers[g.Nodes[i].ID]
		byLayer[l] = append(byLayer[l], i)
	}

	slot := make(map[string]int, len(g.Nodes))
	for l, members := range byLayer {
		keys := make(map[int]slotKey, len(members))
		for _, i := range members {
			keys[i] = parentKey(g, g.Nodes[i].ID, slot, i)
		}
		sort.SliceStable(members, func(a, b int) bool {
			return keys[members[a]].less(keys[members[b]])
		})
		for s, i := range members {
			slot[g.Nodes[i].ID] = s
			g.Nodes[i].Position = domain.Position{
				X: float64(l * LayerSpacing),
				Y: float64(s * SlotSpacing),
			}
		}
	}
}

// assignLayers computes longest-path layers. Back edges of cycles cannot push
// a node past len(nodes)-1, so the relaxation always ends.
func assignLayers(g *domain.Graph) map[string]int {
	layers := make(map[string]int, len(g.Nodes))
	for _, n := range g.Nodes {
		layers[n.ID] = 0
	}
	limit := len(g.Nodes) - 1
	for iter := 0; iter < len(g.Nodes); iter++ {
		changed := false
		for _, e := range g.Edges {
			src, ok := layers[e.Source]
			if !ok {
				continue
			}
			if cur, ok := layers[e.Target]; ok && cur < src+1 && src+1 <= limit {
				layers[e.Target] = src + 1
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return layers
}

// slotKey orders nodes within a layer.
type slotKey struct {
	parentSlot int
	handle     int
	edge       int
	index      int
}

func (k slotKey) less(o slotKey) bool {
	if k.parentSlot != o.parentSlot {
		return k.parentSlot < o.parentSlot
	}
	if k.handle != o.handle {
		return k.handle < o.handle
	}
	if k.edge != o.edge {
		return k.edge < o.edge
	}
	return k.index < o.index
}

func handleRank(h string) int {
	switch h {
	case domain.HandleTrue:
		return 0
	case domain.HandleFalse:
		return 1
	}
	return 2
}

// parentKey picks the best-placed already positioned parent of id.
// Nodes without one sort by their index after every placed child.
func parentKey(g *domain.Graph, id string, slot map[string]int, index int) slotKey {
	best := slotKey{parentSlot: len(g.Nodes), handle: 3, edge: len(g.Edges), index: index}
	for ei, e := range g.Edges {
		if e.Target != id {
			continue
		}
		ps, ok := slot[e.Source]
		if !ok {
			continue
		}
		k := slotKey{parentSlot: ps, handle: handleRank(e.SourceHandle), edge: ei, index: index}
		if k.less(best) {
			best = k
		}
	}
	return best
}
