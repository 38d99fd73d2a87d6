// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/secscore-io/secscore/internal/captcha"
	"github.com/secscore-io/secscore/internal/cache"
	"github.com/secscore-io/secscore/internal/clock"
	"github.com/secscore-io/secscore/internal/config"
	"github.com/secscore-io/secscore/internal/datasource/epss"
	"github.com/secscore-io/secscore/internal/datasource/exploitdb"
	"github.com/secscore-io/secscore/internal/datasource/kev"
	"github.com/secscore-io/secscore/internal/datasource/nvd"
	"github.com/secscore-io/secscore/internal/datasource/osv"
	"github.com/secscore-io/secscore/internal/httpclient"
	"github.com/secscore-io/secscore/internal/metrics"
	"github.com/secscore-io/secscore/internal/ratelimit"
	"github.com/secscore-io/secscore/internal/scheduler"
	"github.com/secscore-io/secscore/internal/scoring"
)

// Server is the process composition root: every piece of process-wide
// state is constructed here once and injected into the orchestrator
// and HTTP handlers, matching the pack's Gateway composition root.
type Server struct {
	cfg *config.Config

	orchestrator *Orchestrator
	kevManager   *kev.Manager
	kevScheduler *scheduler.KEVScheduler
	rateLimit    *ratelimit.Limiter
	captcha      *captcha.Verifier
	metrics      *metrics.Registry

	startedAt time.Time
}

// New builds a Server from cfg. It does not bootstrap the KEV catalog
// or bind a port; call Start for that.
func New(cfg *config.Config) (*Server, error) {
	httpClient := httpclient.New(cfg.UpstreamTimeout, cfg.UpstreamRetries)
	clk := clock.Real{}

	params, err := scoring.LoadParams(cfg.ALParamsPath)
	if err != nil {
		return nil, fmt.Errorf("loading AL parameters: %w", err)
	}

	exploitIndex := exploitdb.New(cfg.ExploitDBIndexPath)

	kevManager := kev.New(cfg.KEVFeedURL, cfg.KEVFallbackPath, cache.NewFileStore(cfg.KEVCacheDir), httpClient, clk)

	mtr := metrics.New()

	lru := cache.New(cfg.CacheCapacity, cfg.CacheTTL.Milliseconds(), clk)

	nvdSrc := nvd.New(httpClient)
	epssSrc := epss.New(httpClient, func() string { return clk.Now().UTC().Format(time.RFC3339) })
	osvSrc := osv.New(httpClient)

	orchestrator := NewOrchestrator(nvdSrc, epssSrc, osvSrc, kevManager, exploitIndex, params, lru, clk, mtr, cfg.ModelVersion)

	kevSched := scheduler.New(
		time.Duration(cfg.KEVRefreshIntervalHours*float64(time.Hour)),
		scheduler.RefresherFunc(func(ctx context.Context) scheduler.RefreshOutcome {
			result := kevManager.Refresh(ctx)
			return scheduler.RefreshOutcome{Changed: result.Changed, Err: result.Err}
		}),
		func(o scheduler.RefreshOutcome) {
			outcome := "unchanged"
			if o.Err != nil {
				outcome = "error"
			} else if o.Changed {
				outcome = "changed"
			}
			mtr.KEVRefreshes.WithLabelValues(outcome).Inc()
		},
	)

	return &Server{
		cfg:          cfg,
		orchestrator: orchestrator,
		kevManager:   kevManager,
		kevScheduler: kevSched,
		rateLimit:    ratelimit.New(cfg.RateLimitPerHour),
		captcha:      captcha.New(httpClient, cfg.CaptchaSecretKey),
		metrics:      mtr,
		startedAt:    time.Now(),
	}, nil
}

// Orchestrator exposes the shared enrichment orchestrator, e.g. for
// the "score" CLI command to reuse without starting an HTTP server.
func (s *Server) Orchestrator() *Orchestrator { return s.orchestrator }

// KEVManager exposes the KEV catalog manager for the "refresh-kev" CLI
// command.
func (s *Server) KEVManager() *kev.Manager { return s.kevManager }

// Bootstrap loads the KEV catalog from cache/fallback. Callers should
// invoke this before serving traffic or running one-shot CLI commands.
func (s *Server) Bootstrap(ctx context.Context) error {
	return s.kevManager.Bootstrap(ctx)
}

// Start runs the HTTP server and the KEV refresh scheduler until ctx
// is cancelled, then shuts both down gracefully. Mirrors the pack's
// Gateway.Start: scheduler first, HTTP server last, both torn down
// when ctx.Done() fires.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrapping kev catalog: %w", err)
	}

	if !s.cfg.KEVSchedulerDisabled {
		if err := s.kevScheduler.Start(ctx); err != nil {
			return fmt.Errorf("starting kev scheduler: %w", err)
		}
	}

	addr := fmt.Sprintf(":%d", s.cfg.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: buildHandler(s),
	}

	go func() {
		<-ctx.Done()
		s.kevScheduler.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Warn("server: graceful shutdown failed", "error", err)
		}
	}()

	slog.Info("server: listening", "addr", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
