package main

import (
	"fmt"

	"github.com/aretw0/cafe/internal/cli"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [graph.json]",
		Short: "Check a graph for structural errors",
		Long:  `Reports duplicate ids, dangling edges, misplaced triggers, bad handles and malformed payloads.`,
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
			errs := cli.NewTranspiler(env.cfg, env.logger, env.debug).Validate(g)
			for _, e := range errs {
				fmt.Fprintf(cmd.ErrOrStderr(), "  - %v\n", e)
			}
			if len(errs) > 0 {
				return fmt.Errorf("validation failed: %d error(s)", len(errs))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Graph is valid! ✅")
			return nil
		},
	}
}
