// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/secscore-io/secscore/internal/config"
	"github.com/secscore-io/secscore/internal/server"
)

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the SecScore HTTP API",
		Long: `Starts the SecScore service: a long-running HTTP server that scores
CVEs on demand and keeps the CISA KEV catalog refreshed in the background.

  GET  /api/v1/cve/{cveId}            raw upstream CVE metadata
  GET  /api/v1/enrich/cve/{cveId}     full SecScore enrichment
  POST /api/internal/refresh-kev      manual KEV refresh (x-cron-secret)
  GET  /api/health                    liveness and KEV state
  GET  /metrics                       Prometheus exposition`,
		RunE: runServe,
	}
	return cmd
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	setupLogger(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		slog.Info("shutdown signal received, stopping gracefully")
		cancel()
	}()

	srv, err := server.New(cfg)
	if err != nil {
		return fmt.Errorf("building server: %w", err)
	}

	return srv.Start(ctx)
}

func setupLogger(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	var handler slog.Handler
	if level == "debug" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl, AddSource: true})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
}
