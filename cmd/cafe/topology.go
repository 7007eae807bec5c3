package main

import (
	"encoding/json"

	"github.com/aretw0/cafe/internal/cli"
	"github.com/aretw0/cafe/internal/presentation/tui"
	"github.com/spf13/cobra"
)

func newTopologyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topology [graph.json]",
		Short: "Classify the shape of a graph",
		Long:  `Prints whether a graph is linear, tree-branching or irregular, and why.`,
		Args:  cobra.MaximumNArgs(1),
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

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(topo)
			}
			cli.PrintReport(cmd.OutOrStdout(), tui.TopologyReport(topo))
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "Print the full analysis as JSON")
	return cmd
}
