package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/cafe/internal/cli"
	"github.com/aretw0/cafe/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

func newMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the Model Context Protocol (MCP) server",
		Long: `Exposes transpile, import_yaml, validate_graph and analyze_topology as MCP
tools, and stored automations as resources.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			transport, _ := cmd.Flags().GetString("transport")
			port, _ := cmd.Flags().GetInt("port")

			ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			backend, err := cli.OpenBackend(ctx, env.cfg, env.logger)
			if err != nil {
				return err
			}
			defer backend.Close()

			srv := mcp.NewServer(
				cli.NewTranspiler(env.cfg, env.logger, env.debug),
				mcp.WithStore(backend.Store),
				mcp.WithLogger(env.logger),
			)

			switch transport {
			case "stdio":
				// Logs must not corrupt JSON-RPC on stdout.
				log.SetOutput(os.Stderr)
				env.logger.Info("starting MCP server (stdio)")
				return srv.ServeStdio()
			case "sse":
				env.logger.Info("starting MCP server (SSE)", "port", port)
				if err := srv.ServeSSE(ctx, port); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				env.logger.Info("MCP server stopped gracefully")
				return nil
			default:
				return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
			}
		},
	}
	cmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	cmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
	return cmd
}
