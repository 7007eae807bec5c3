package main

import (
	"fmt"

	"github.com/aretw0/cafe/internal/cli"
	"github.com/aretw0/cafe/internal/presentation/graph"
	"github.com/spf13/cobra"
)

func newGraphCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "graph [graph.json]",
		Short: "Export the graph as a Mermaid diagram",
		Long: `Outputs a Mermaid diagram (graph LR) of the automation. Nodes that make the
graph irregular and unreachable nodes are highlighted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			in := ""
			if len(args) > 0 {
				in = args[0]
			}
			g, err := cli.ReadGraph(in, cmd.InOrStdin())
			if err != nil {
				return err
			}
			topo := cli.NewTranspiler(env.cfg, env.logger, env.debug).AnalyzeTopology(g)
			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(g, graph.OverlayFromTopology(topo)))
			return nil
		},
	}
}
