package main

import (
	"errors"
	"fmt"

	"github.com/aretw0/cafe/internal/cli"
	"github.com/aretw0/cafe/internal/presentation/tui"
	"github.com/spf13/cobra"
)

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [automation.yaml]",
		Short: "Read automation YAML back into an editor graph",
		Long: `Reads an automation document in either dialect and writes the graph as
editor JSON. Layouts stored by transpile are restored; otherwise nodes are
placed automatically.`,
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
			out, _ := cmd.Flags().GetString("output")
			report, _ := cmd.Flags().GetBool("report")

			t := cli.NewTranspiler(env.cfg, env.logger, env.debug)
			res, err := cli.ImportFile(contextOf(cmd), t, in, out, cmd.InOrStdin(), cmd.OutOrStdout())
			if res != nil && (report || !res.Success) {
				cli.PrintReport(cmd.ErrOrStderr(), tui.ImportReport(res))
			}
			if errors.Is(err, cli.ErrRejected) {
				return fmt.Errorf("document %w", err)
			}
			return err
		},
	}
	cmd.Flags().StringP("output", "o", "-", "Output file ('-' for stdout)")
	cmd.Flags().Bool("report", false, "Print a summary of the import to stderr")
	return cmd
}
