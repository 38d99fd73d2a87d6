// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package ratelimit implements the per-client-IP request budget from
// spec.md §6, built on golang.org/x/time/rate the way the pack's
// rediverio-sdk connectors rate-limit outbound calls — here applied to
// inbound requests, one limiter per client IP.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter buckets requests per client IP using a token bucket that
// refills to perHour tokens per hour, with a burst equal to perHour so
// a client can spend its whole hourly budget immediately if idle.
type Limiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	perHour  int
	clock    func() time.Time
	maxIdle  time.Duration
}

type bucket struct {
	limiter    *rate.Limiter
	lastSeenAt time.Time
}

// New creates a Limiter allowing perHour requests per client IP. If
// perHour is not positive, every request is allowed (limiting disabled).
func New(perHour int) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		perHour: perHour,
		clock:   time.Now,
		maxIdle: time.Hour,
	}
}

// Allow reports whether a request from clientIP should proceed. It
// opportunistically prunes buckets that have been idle longer than
// maxIdle, bounding memory use without a separate sweep goroutine.
func (l *Limiter) Allow(clientIP string) bool {
	if l.perHour <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	l.pruneLocked(now)

	b, ok := l.buckets[clientIP]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Limit(float64(l.perHour)/3600.0), l.perHour)}
		l.buckets[clientIP] = b
	}
	b.lastSeenAt = now
	return b.limiter.AllowN(now, 1)
}

// pruneLocked removes buckets idle longer than maxIdle. Callers must
// hold l.mu.
func (l *Limiter) pruneLocked(now time.Time) {
	for ip, b := range l.buckets {
		if now.Sub(b.lastSeenAt) > l.maxIdle {
			delete(l.buckets, ip)
		}
	}
}

// Size reports the number of tracked client buckets, for tests and metrics.
func (l *Limiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
