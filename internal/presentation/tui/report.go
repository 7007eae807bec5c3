package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/cafe/internal/compiler"
	"github.com/aretw0/cafe/pkg/topology"
)

// TranspileReport summarises a transpilation as markdown.
func TranspileReport(res *compiler.Result) string {
	var sb strings.Builder
	sb.WriteString("# Transpile\n\n")
	if res.Success {
		fmt.Fprintf(&sb, "- **shape**: %s\n- **strategy**: %s\n", res.Output.Shape, res.Output.Strategy)
	} else {
		sb.WriteString("- **status**: failed\n")
	}
	list(&sb, "Errors", compiler.Messages(res.Errors))
	list(&sb, "Warnings", compiler.Messages(res.Warnings))
	if res.YAML != "" {
		sb.WriteString("\n```yaml\n")
		sb.WriteString(res.YAML)
		sb.WriteString("```\n")
	}
	return sb.String()
}

// ImportReport summarises an import as markdown.
func ImportReport(res *compiler.ImportResult) string {
	var sb strings.Builder
	sb.WriteString("# Import\n\n")
	if res.Graph != nil {
		fmt.Fprintf(&sb, "- **nodes**: %d\n- **edges**: %d\n", len(res.Graph.Nodes), len(res.Graph.Edges))
	}
	fmt.Fprintf(&sb, "- **layout restored**: %t\n", res.HadMetadata)
	list(&sb, "Errors", compiler.Messages(res.Errors))
	list(&sb, "Warnings", compiler.Messages(res.Warnings))
	return sb.String()
}

// TopologyReport summarises a topology analysis as markdown.
func TopologyReport(topo *topology.Topology) string {
	var sb strings.Builder
	sb.WriteString("# Topology\n\n")
	fmt.Fprintf(&sb, "- **shape**: %s\n", topo.Shape)
	fmt.Fprintf(&sb, "- **entry nodes**: %s\n", strings.Join(topo.EntryNodes, ", "))
	if topo.Root != "" {
		fmt.Fprintf(&sb, "- **root**: %s\n", topo.Root)
	}
	list(&sb, "Reasons", topo.ReasonStrings())
	return sb.String()
}

func list(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n## %s\n\n", title)
	for _, item := range items {
		fmt.Fprintf(sb, "- %s\n", item)
	}
}
