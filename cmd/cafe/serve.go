package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aretw0/cafe"
	"github.com/aretw0/cafe/internal/cli"
	"github.com/aretw0/cafe/internal/presentation/tui"
	httpAdapter "github.com/aretw0/cafe/pkg/adapters/http"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Starts the JSON API: transpile, import, validate and topology endpoints, a
store of automations under /automations, Prometheus metrics on /metrics and
an event stream on /events.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			if port, _ := cmd.Flags().GetInt("port"); cmd.Flags().Changed("port") {
				env.cfg.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(contextOf(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			backend, err := cli.OpenBackend(ctx, env.cfg, env.logger)
			if err != nil {
				return err
			}
			defer backend.Close()

			handler, err := httpAdapter.NewHandler(backend.Store,
				httpAdapter.WithLogger(env.logger),
				httpAdapter.WithLocker(backend.Locker),
				httpAdapter.WithTranspilerOptions(cli.NewTranspilerOptions(env.cfg, env.logger, env.debug)...),
			)
			if err != nil {
				return err
			}

			srv := &http.Server{
				Addr:         env.cfg.Addr(),
				Handler:      handler,
				ReadTimeout:  env.cfg.GetReadTimeout(),
				WriteTimeout: env.cfg.GetWriteTimeout(),
			}

			if cli.IsTerminal(cmd.ErrOrStderr()) {
				tui.PrintBanner(cmd.ErrOrStderr(), strings.TrimSpace(cafe.Version))
			}

			// Channel to listen for errors coming from the listener.
			serverErrors := make(chan error, 1)
			go func() {
				env.logger.Info("server listening", "addr", srv.Addr, "store", env.cfg.Store.Driver)
				serverErrors <- srv.ListenAndServe()
			}()

			select {
			case err := <-serverErrors:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("server error: %w", err)
			case <-ctx.Done():
				env.logger.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					_ = srv.Close()
					return fmt.Errorf("graceful shutdown did not complete: %w", err)
				}
				env.logger.Info("server stopped gracefully")
				return nil
			}
		},
	}
	cmd.Flags().IntP("port", "p", 8080, "Port to listen on (overrides config)")
	return cmd
}
