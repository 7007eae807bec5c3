package main

import (
	"log/slog"
	"strings"

	"github.com/aretw0/cafe"
	"github.com/aretw0/cafe/internal/config"
	"github.com/aretw0/cafe/internal/logging"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "cafe",
		Short: "Cafe converts automation graphs to automation YAML and back",
		Long: `Cafe transpiles the node graphs drawn in a visual editor into automation
YAML, choosing nested conditions or a state machine depending on the graph's
shape, and imports hand-written YAML back into an editable graph.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags (available to all commands)
	root.PersistentFlags().String("config", "", "Path to a YAML config file")
	root.PersistentFlags().Bool("debug", false, "Enable debug logging to stderr")

	root.AddCommand(
		newTranspileCmd(),
		newImportCmd(),
		newValidateCmd(),
		newTopologyCmd(),
		newGraphCmd(),
		newServeCmd(),
		newMCPCmd(),
		newVersionCmd(),
	)
	return root
}

// runtimeEnv is what every command needs before doing its work.
type runtimeEnv struct {
	cfg    *config.Config
	logger *slog.Logger
	debug  bool
}

func loadEnv(cmd *cobra.Command) (*runtimeEnv, error) {
	path, _ := cmd.Flags().GetString("config")
	debug, _ := cmd.Flags().GetBool("debug")

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	var logger *slog.Logger
	switch {
	case debug:
		logger = logging.New(slog.LevelDebug)
	case cmd.Name() == "serve" || cmd.Name() == "mcp":
		logger = logging.NewFromConfig(cfg.Logging, strings.TrimSpace(cafe.Version))
	default:
		logger = logging.NewNop()
	}
	return &runtimeEnv{cfg: cfg, logger: logger, debug: debug}, nil
}
