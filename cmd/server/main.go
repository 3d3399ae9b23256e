package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BerylCAtieno/customer-persona-agent/internal/config"
	"github.com/BerylCAtieno/customer-persona-agent/internal/logging"
	"github.com/BerylCAtieno/customer-persona-agent/internal/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:          "server",
		Short:        "Serve the customer persona HTTP and A2A endpoints",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			logger, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
			if err != nil {
				return fmt.Errorf("failed to build logger: %w", err)
			}
			defer logger.Sync() //nolint:errcheck

			return serve(cmd.Context(), cfg, logger)
		},
	}
	cmd.Flags().StringVar(&cfgFile, "config", "", "config file (default ./config.yaml or ~/.personas/config.yaml)")
	return cmd
}

// serve runs the HTTP server until ctx is cancelled, then shuts it down.
func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	llmClient, err := server.NewLLM(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	defer llmClient.Close()

	gin.SetMode(cfg.GinMode)
	analyzer := server.NewPipeline(cfg, llmClient, logger)
	router := server.NewRouter(cfg, analyzer, logger)

	srv := &http.Server{
		Addr:              server.Addr(cfg),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Customer Persona Agent starting",
			zap.String("addr", srv.Addr),
			zap.String("llm_backend", cfg.LLM.Backend),
			zap.String("model", cfg.LLM.Model))
		logger.Info("endpoints",
			zap.String("analyze", "POST /api/analyze"),
			zap.String("a2a", "POST /a2a/personas"),
			zap.String("agent_card", "GET /.well-known/agent.json"))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
