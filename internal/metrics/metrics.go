// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package metrics exposes the process's Prometheus registry and the
// named counters/histograms spec.md §4.7 and §6 call out: cache hit
// rate, upstream fetch latency/errors, KEV refresh outcomes, and
// scored-request counts. Grounded on the pack's rediverio-sdk
// PrometheusCollector, simplified to the service's fixed metric set
// rather than a dynamic registration API.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles every metric the service emits plus the HTTP
// handler that serves them.
type Registry struct {
	registry *prometheus.Registry

	CacheHits   *prometheus.CounterVec
	ScoreRequests *prometheus.CounterVec

	UpstreamLatency *prometheus.HistogramVec
	UpstreamErrors  *prometheus.CounterVec

	KEVRefreshes *prometheus.CounterVec
}

// New builds a fresh registry with every metric registered.
func New() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "secscore",
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by result (hit|miss).",
		}, []string{"result"}),
		ScoreRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "secscore",
			Name:      "score_requests_total",
			Help:      "Enrichment requests served, by outcome.",
		}, []string{"outcome"}),
		UpstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "secscore",
			Name:      "upstream_fetch_duration_seconds",
			Help:      "Latency of upstream fetches by source.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		UpstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "secscore",
			Name:      "upstream_fetch_errors_total",
			Help:      "Upstream fetch failures by source.",
		}, []string{"source"}),
		KEVRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "secscore",
			Name:      "kev_refresh_total",
			Help:      "KEV catalog refresh attempts by outcome (changed|unchanged|error).",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		r.CacheHits,
		r.ScoreRequests,
		r.UpstreamLatency,
		r.UpstreamErrors,
		r.KEVRefreshes,
	)
	return r
}

// Handler returns the promhttp handler for this registry, to be
// mounted at /metrics.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
