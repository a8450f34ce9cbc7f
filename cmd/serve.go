package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/inboxpilot/inboxpilot/internal/instrumentation"
	"github.com/inboxpilot/inboxpilot/internal/resources"
	"github.com/inboxpilot/inboxpilot/internal/server"
	"github.com/inboxpilot/inboxpilot/internal/storage"
	"github.com/inboxpilot/inboxpilot/internal/tools/triage_tools"
)

const metricsStartupTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	var (
		metricsEnabled bool
		metricsAddr    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server exposing the triage tools
to AI assistants over stdio.

The server provides tools to run triage passes, manage rules and inspect the
debug log, plus read-only resources for the rule set and sender scores.
Prometheus metrics are served on a dedicated port when enabled.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(metricsEnabled, metricsAddr)
		},
	}

	cmd.Flags().BoolVar(&metricsEnabled, "metrics-enabled", false, "Serve Prometheus metrics on a dedicated port (overrides the configured value)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Metrics server address (overrides the configured value)")

	return cmd
}

func runServe(metricsEnabled bool, metricsAddr string) error {
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if metricsEnabled {
		cfg.Metrics.Enabled = true
	}
	if metricsAddr != "" {
		cfg.Metrics.Listen = metricsAddr
	}
	logger := newLogger(cfg)

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	if cfg.Metrics.Enabled {
		instrConfig.Enabled = true
	}

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Error("instrumentation shutdown failed", "error", err)
		}
	}()

	store, err := storage.Open(cfg.Storage.DatabasePath,
		storage.WithLogger(logger),
		storage.WithDebugRetention(cfg.Triage.DebugRetentionDays))
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer store.Close()

	var opts []server.ContextOption
	if provider.Enabled() {
		opts = append(opts, server.WithInstrumentation(provider))
	}
	sc, err := server.NewServerContext(shutdownCtx, cfg, store, logger, opts...)
	if err != nil {
		return err
	}
	defer func() { _ = sc.Shutdown() }()

	// Start the metrics sidecar before the stdio transport takes over. The
	// health checker reports ready only after tool registration below.
	var (
		metricsServer *server.MetricsServer
		healthChecker *server.HealthChecker
	)
	if cfg.Metrics.Enabled && provider.Enabled() {
		healthChecker = server.NewHealthChecker(sc)
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    cfg.Metrics.Listen,
			Enabled:                 true,
			InstrumentationProvider: provider,
			HealthChecker:           healthChecker,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}

		metricsReady := make(chan struct{})
		metricsErr := make(chan error, 1)
		go func() {
			if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && err != http.ErrServerClosed {
				metricsErr <- err
			}
			close(metricsErr)
		}()

		select {
		case <-metricsReady:
			logger.Info("metrics server started", "addr", metricsServer.Addr())
		case err := <-metricsErr:
			return fmt.Errorf("metrics server failed to start: %w", err)
		case <-time.After(metricsStartupTimeout):
			return fmt.Errorf("metrics server startup timed out")
		}

		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				logger.Error("metrics server shutdown failed", "error", err)
			}
		}()
	}

	mcpSrv := mcpserver.NewMCPServer("inboxpilot", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false),
	)

	if err := registerAll(mcpSrv, sc); err != nil {
		return err
	}
	if healthChecker != nil {
		healthChecker.SetReady(true)
	}

	return runStdioServer(shutdownCtx, mcpSrv)
}

// registerAll registers all MCP tools and resources.
func registerAll(mcpSrv *mcpserver.MCPServer, sc *server.ServerContext) error {
	type registration struct {
		name     string
		register func() error
	}

	registrations := []registration{
		{
			name: "Rule tools",
			register: func() error {
				return triage_tools.RegisterRuleTools(mcpSrv, sc)
			},
		},
		{
			name: "Triage tools",
			register: func() error {
				return triage_tools.RegisterTriageTools(mcpSrv, sc)
			},
		},
		{
			name: "Triage resources",
			register: func() error {
				return resources.RegisterTriageResources(mcpSrv, sc)
			},
		},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s: %w", reg.name, err)
		}
	}
	return nil
}

func runStdioServer(ctx context.Context, mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("server stopped with error: %w", err)
		}
		return nil
	}
}
