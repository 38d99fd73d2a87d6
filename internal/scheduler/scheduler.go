// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package scheduler wraps robfig/cron/v3 around the KEV catalog's
// Refresh call, the way the pack's CosmoTheDev gateway wraps cron
// around its own scheduled jobs, but with a single fixed "@every"
// interval instead of a DB-backed schedule table.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Refresher is the refresh operation the scheduler depends on.
// kev.Manager.Refresh returns kev.RefreshResult rather than
// RefreshOutcome, so server.go adapts it with RefresherFunc; tests
// adapt plain functions the same way.
type Refresher interface {
	Refresh(ctx context.Context) RefreshOutcome
}

// RefresherFunc adapts a plain function to Refresher, the way
// http.HandlerFunc adapts a function to http.Handler.
type RefresherFunc func(ctx context.Context) RefreshOutcome

func (f RefresherFunc) Refresh(ctx context.Context) RefreshOutcome { return f(ctx) }

// RefreshOutcome is the minimal result the scheduler logs; kev.RefreshResult
// satisfies this via its Changed/Err fields through an adapter at the call site.
type RefreshOutcome struct {
	Changed bool
	Err     error
}

// KEVScheduler periodically triggers a KEV catalog refresh on an
// "@every" interval. It is armed lazily by Start and safe to Stop
// from any goroutine; manual triggers (the internal refresh-kev
// endpoint) call the same Refresh function directly and do not go
// through the scheduler, so the two never race on anything beyond
// what kev.Manager.Refresh itself serializes internally.
type KEVScheduler struct {
	cron      *cron.Cron
	refresher Refresher
	interval  time.Duration
	onResult  func(RefreshOutcome)

	mu      sync.Mutex
	started bool
}

// New creates a KEVScheduler that calls refresher.Refresh every
// interval. onResult, if non-nil, is invoked after each scheduled
// refresh (used to feed the metrics registry).
func New(interval time.Duration, refresher Refresher, onResult func(RefreshOutcome)) *KEVScheduler {
	return &KEVScheduler{
		cron:      cron.New(),
		refresher: refresher,
		interval:  interval,
		onResult:  onResult,
	}
}

// Start registers the "@every" job and starts the cron runner. It is
// idempotent: calling Start twice is a no-op.
func (s *KEVScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	spec := fmt.Sprintf("@every %s", s.interval)
	_, err := s.cron.AddFunc(spec, func() {
		result := s.refresher.Refresh(ctx)
		if result.Err != nil {
			slog.Warn("scheduler: kev refresh failed", "error", result.Err)
		} else {
			slog.Info("scheduler: kev refresh completed", "changed", result.Changed)
		}
		if s.onResult != nil {
			s.onResult(result)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid kev refresh interval %q: %w", spec, err)
	}

	s.cron.Start()
	s.started = true
	slog.Info("scheduler: kev refresh armed", "interval", s.interval)
	return nil
}

// Stop halts the cron runner gracefully, waiting for any in-flight
// job to finish. Safe to call even if Start was never called.
func (s *KEVScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.started = false
}
