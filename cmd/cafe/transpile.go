package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/aretw0/cafe"
	"github.com/aretw0/cafe/internal/cli"
	"github.com/aretw0/cafe/internal/presentation/tui"
	"github.com/aretw0/cafe/pkg/automation"
	"github.com/aretw0/cafe/pkg/domain"
	"github.com/spf13/cobra"
)

func newTranspileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transpile [graph.json]",
		Short: "Convert an editor graph into automation YAML",
		Long: `Reads a graph in editor JSON (from a file or stdin) and writes the
automation YAML. The strategy is picked from the graph's shape unless
--strategy forces one. With --watch the file is converted again on every save.`,
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
			strategy, _ := cmd.Flags().GetString("strategy")
			dialect, _ := cmd.Flags().GetString("dialect")
			report, _ := cmd.Flags().GetBool("report")
			watch, _ := cmd.Flags().GetBool("watch")

			var opts []cafe.TranspileOption
			if strategy != "" {
				if !domain.Strategy(strategy).Valid() {
					return fmt.Errorf("unknown strategy %q", strategy)
				}
				opts = append(opts, cafe.WithForceStrategy(domain.Strategy(strategy)))
			}
			if dialect != "" {
				if !automation.Dialect(dialect).Valid() {
					return fmt.Errorf("unknown dialect %q", dialect)
				}
				opts = append(opts, cafe.WithTranspileDialect(automation.Dialect(dialect)))
			}

			t := cli.NewTranspiler(env.cfg, env.logger, env.debug)
			run := func() error {
				res, err := cli.TranspileFile(contextOf(cmd), t, in, out, cmd.InOrStdin(), cmd.OutOrStdout(), opts...)
				if res != nil && (report || !res.Success) {
					cli.PrintReport(cmd.ErrOrStderr(), tui.TranspileReport(res))
				}
				return err
			}

			if !watch {
				err := run()
				if errors.Is(err, cli.ErrRejected) {
					return fmt.Errorf("graph %w", err)
				}
				return err
			}
			if in == "" || in == "-" || out == "" || out == "-" {
				return errors.New("--watch needs an input file and --output")
			}
			ctx, stop := signal.NotifyContext(contextOf(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			fmt.Fprintf(cmd.ErrOrStderr(), "watching %s -> %s\n", in, out)
			return cli.Watch(ctx, in, env.logger, run)
		},
	}
	cmd.Flags().StringP("output", "o", "-", "Output file ('-' for stdout)")
	cmd.Flags().String("strategy", "", "Force a strategy: native or state-machine")
	cmd.Flags().String("dialect", "", "Output dialect: current or legacy (default from config)")
	cmd.Flags().Bool("report", false, "Print a summary of the transpilation to stderr")
	cmd.Flags().BoolP("watch", "w", false, "Convert again whenever the input changes")
	return cmd
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
