package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/cafe/pkg/domain"
	"github.com/aretw0/cafe/pkg/topology"
)

// Overlay marks nodes that deserve attention on the rendered chart.
type Overlay struct {
	// Flagged nodes take part in an irregular construct (cycle, rejoin, fan-out).
	Flagged []string
	// Unreachable nodes have no path from a trigger.
	Unreachable []string
}

// OverlayFromTopology flags the nodes named by the analysis reasons.
func OverlayFromTopology(topo *topology.Topology) *Overlay {
	o := &Overlay{Unreachable: topo.Unreachable}
	for _, r := range topo.Reasons {
		if r.Kind != topology.ReasonUnreachable && r.NodeID != "" {
			o.Flagged = append(o.Flagged, r.NodeID)
		}
	}
	return o
}

// GenerateMermaid produces a Mermaid flowchart of the graph.
// Shapes follow the node type:
// - Trigger: ((Circle))
// - Condition: {Rhombus}
// - Delay/Wait: ([Stadium])
// - Action: [Rectangle]
// Condition edges are labelled with their handle.
func GenerateMermaid(g *domain.Graph, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	for _, node := range g.Nodes {
		safeID := sanitizeMermaidID(node.ID)

		opener, closer := "[", "]"
		switch node.Type {
		case domain.NodeTypeTrigger:
			opener, closer = "((", "))"
		case domain.NodeTypeCondition:
			opener, closer = "{", "}"
		case domain.NodeTypeDelay, domain.NodeTypeWait:
			opener, closer = "([", "])"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, escape(label(&node)), closer)
	}

	for _, e := range g.Edges {
		arrow := "-->"
		if e.SourceHandle != "" {
			arrow = fmt.Sprintf("-- %s -->", e.SourceHandle)
		}
		if e.Label != "" {
			arrow = fmt.Sprintf("-- \"%s\" -->", escape(e.Label))
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", sanitizeMermaidID(e.Source), arrow, sanitizeMermaidID(e.Target))
	}

	if overlay != nil && (len(overlay.Flagged) > 0 || len(overlay.Unreachable) > 0) {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef flagged fill:#fff3e0,stroke:#e65100,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef unreachable fill:#eeeeee,stroke:#9e9e9e,stroke-dasharray:4,color:#000;\n")
		writeClass(&sb, overlay.Flagged, "flagged")
		writeClass(&sb, overlay.Unreachable, "unreachable")
	}

	return sb.String()
}

func writeClass(sb *strings.Builder, ids []string, class string) {
	seen := make(map[string]bool)
	for _, id := range ids {
		safeID := sanitizeMermaidID(id)
		if safeID != "" && !seen[safeID] {
			seen[safeID] = true
			fmt.Fprintf(sb, "    class %s %s;\n", safeID, class)
		}
	}
}

// label prefers the alias, then a short description of the payload.
func label(n *domain.Node) string {
	if n.Alias != "" {
		return n.Alias
	}
	var detail string
	switch n.Type {
	case domain.NodeTypeTrigger:
		if n.Trigger != nil {
			detail = n.Trigger.Platform
		}
	case domain.NodeTypeCondition:
		if n.Condition != nil {
			detail = n.Condition.Condition
		}
	case domain.NodeTypeAction:
		if n.Action != nil && n.Action.Service != domain.UnknownService {
			detail = n.Action.Service
		}
	case domain.NodeTypeDelay:
		if n.Delay != nil {
			detail = fmt.Sprint(n.Delay.Duration.Value())
		}
	case domain.NodeTypeWait:
		if n.Wait != nil && n.Wait.Template != "" {
			detail = "wait_template"
		} else {
			detail = "wait_for_trigger"
		}
	}
	if detail == "" {
		return n.ID
	}
	return n.ID + ": " + detail
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
