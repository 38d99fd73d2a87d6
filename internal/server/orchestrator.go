// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package server is the composition root: it wires config, the
// upstream fetchers, the KEV catalog, the ExploitDB index, the AL
// parameter table, the LRU cache and the scheduler together, then
// serves HTTP. Orchestrator lives here rather than its own package
// because every field it needs is built here and nowhere else.
package server

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/secscore-io/secscore/internal/apierror"
	"github.com/secscore-io/secscore/internal/cache"
	"github.com/secscore-io/secscore/internal/category"
	"github.com/secscore-io/secscore/internal/clock"
	"github.com/secscore-io/secscore/internal/datasource/epss"
	"github.com/secscore-io/secscore/internal/datasource/exploitdb"
	"github.com/secscore-io/secscore/internal/datasource/kev"
	"github.com/secscore-io/secscore/internal/datasource/nvd"
	"github.com/secscore-io/secscore/internal/datasource/osv"
	"github.com/secscore-io/secscore/internal/metrics"
	"github.com/secscore-io/secscore/internal/scoring"
	"github.com/secscore-io/secscore/internal/types"
)

var cveIDPattern = regexp.MustCompile(`^CVE-\d{4}-\d{4,}$`)

// NormalizeCVEID uppercases and validates a CVE identifier per
// spec.md §6. It returns an error for anything that doesn't match.
func NormalizeCVEID(raw string) (string, error) {
	id := strings.ToUpper(strings.TrimSpace(raw))
	if !cveIDPattern.MatchString(id) {
		return "", fmt.Errorf("invalid CVE identifier %q", raw)
	}
	return id, nil
}

// Orchestrator implements spec.md §4.7: the per-request enrichment
// algorithm, independent of HTTP so the "score" CLI command and the
// HTTP handlers share one implementation.
type Orchestrator struct {
	nvd       *nvd.Source
	epss      *epss.Source
	osv       *osv.Source
	kev       *kev.Manager
	exploits  *exploitdb.Index
	params    scoring.ParamTable
	cache     *cache.LRU
	clock     clock.Clock
	metrics   *metrics.Registry
	modelVersion string
}

// NewOrchestrator assembles an Orchestrator from its already-built
// dependencies.
func NewOrchestrator(
	nvdSrc *nvd.Source,
	epssSrc *epss.Source,
	osvSrc *osv.Source,
	kevMgr *kev.Manager,
	exploits *exploitdb.Index,
	params scoring.ParamTable,
	lru *cache.LRU,
	clk clock.Clock,
	mtr *metrics.Registry,
	modelVersion string,
) *Orchestrator {
	return &Orchestrator{
		nvd: nvdSrc, epss: epssSrc, osv: osvSrc, kev: kevMgr,
		exploits: exploits, params: params, cache: lru, clock: clk,
		metrics: mtr, modelVersion: modelVersion,
	}
}

// MetadataResult is what /api/v1/cve/{cveId} returns.
type MetadataResult struct {
	Metadata *types.CVEMetadata
	CacheHit bool
}

// FetchMetadata implements spec.md §4.8: a thin wrapper around the
// NVD fetcher and the shared cache, keyed cve:{id}.
func (o *Orchestrator) FetchMetadata(ctx context.Context, cveID string) (MetadataResult, *apierror.Error) {
	key := "cve:" + cveID
	if cached, ok := o.cache.Get(key, o.modelVersion); ok {
		o.recordCacheResult("hit")
		return MetadataResult{Metadata: cached.(*types.CVEMetadata), CacheHit: true}, nil
	}
	o.recordCacheResult("miss")

	meta, err := o.timedNVDFetch(ctx, cveID)
	if err != nil {
		if err == nvd.ErrNotFound {
			return MetadataResult{}, apierror.NotFound(fmt.Sprintf("%s not found in NVD", cveID))
		}
		return MetadataResult{}, apierror.Internal("failed to fetch CVE metadata")
	}

	o.cache.Set(key, meta, o.modelVersion)
	return MetadataResult{Metadata: meta}, nil
}

// EnrichResult is what /api/v1/enrich/cve/{cveId} returns.
type EnrichResult struct {
	Response *types.SecScoreResponse
	CacheHit bool
}

// Enrich implements spec.md §4.7 steps 4-8 (the CAPTCHA and rate-limit
// steps happen at the HTTP layer, before this is called).
func (o *Orchestrator) Enrich(ctx context.Context, cveID, requestID string) (EnrichResult, *apierror.Error) {
	key := "enrich:" + cveID
	if cached, ok := o.cache.Get(key, o.modelVersion); ok {
		o.recordCacheResult("hit")
		o.recordScoreRequest("cache_hit")
		resp := cached.(*types.SecScoreResponse)
		clone := *resp
		clone.RequestID = requestID
		return EnrichResult{Response: &clone, CacheHit: true}, nil
	}
	o.recordCacheResult("miss")

	fanOut := o.fetchUpstreams(ctx, cveID)
	if fanOut.nvdErr != nil {
		if fanOut.nvdErr == nvd.ErrNotFound {
			o.recordScoreRequest("not_found")
			return EnrichResult{}, apierror.NotFound(fmt.Sprintf("%s not found in NVD", cveID))
		}
		o.recordScoreRequest("error")
		return EnrichResult{}, apierror.Internal("failed to fetch CVE metadata")
	}

	_, isKEV := o.kev.Lookup(cveID)
	exploits := o.exploits.Lookup(cveID)

	cat := category.Infer(fanOut.metadata.CPE)
	params := o.params.For(cat)

	var weeks float64
	if fanOut.metadata.PublishedDate != nil {
		if t, err := time.Parse(time.RFC3339, normalizeRFC3339(*fanOut.metadata.PublishedDate)); err == nil {
			weeks = scoring.WeeksSince(o.clock.Now().UnixMilli(), t.UnixMilli())
		}
	}

	result := scoring.ComputeSecScore(scoring.Inputs{
		CVSSBase:            fanOut.metadata.CVSSBase,
		CVSSVersion:         fanOut.metadata.CVSSVersion,
		RemediationLevel:    fanOut.metadata.TemporalMultipliers.RemediationLevel,
		ReportConfidence:    fanOut.metadata.TemporalMultipliers.ReportConfidence,
		WeeksSincePublished: weeks,
		Params:              params,
		EPSS:                fanOut.epss,
		HasExploit:          len(exploits) > 0,
		KEV:                 isKEV,
	})

	explanation := scoring.BuildExplanation(scoring.ExplanationContext{
		Category:        cat,
		Params:           params,
		Weeks:            weeks,
		ExploitProb:      result.ExploitProb,
		ExploitMaturity:  result.ExploitMaturity,
		Kernel:           result.TemporalKernel,
		KEV:              isKEV,
		Exploits:         exploits,
		EPSS:             fanOut.epss,
		CVSSBase:         fanOut.metadata.CVSSBase,
		SecScore:         result.SecScore,
	})

	resp := &types.SecScoreResponse{
		CVEID:           cveID,
		PublishedDate:   fanOut.metadata.PublishedDate,
		CVSSBase:        fanOut.metadata.CVSSBase,
		CVSSVector:      fanOut.metadata.CVSSVector,
		SecScore:        result.SecScore,
		ExploitProb:     result.ExploitProb,
		ModelCategory:   cat,
		ModelParams:     params,
		EPSS:            fanOut.epss,
		Exploits:        exploits,
		KEV:             isKEV,
		OSV:             fanOut.osv,
		Explanation:     explanation,
		ComputedAt:      o.clock.Now().UTC().Format(time.RFC3339),
		ModelVersion:    o.modelVersion,
		RequestID:       requestID,
		SourceLatencyMs: fanOut.latencyMs,
	}

	o.cache.Set(key, resp, o.modelVersion)
	o.recordScoreRequest("scored")
	return EnrichResult{Response: resp}, nil
}

// KEVUpdatedAt exposes the catalog's last successful refresh time for
// the X-KEV-Updated-At response header.
func (o *Orchestrator) KEVUpdatedAt() string { return o.kev.UpdatedAt() }

func (o *Orchestrator) recordCacheResult(result string) {
	if o.metrics != nil {
		o.metrics.CacheHits.WithLabelValues(result).Inc()
	}
}

// recordScoreRequest increments the scored-request counter by outcome:
// cache_hit, scored (freshly computed), not_found, or error.
func (o *Orchestrator) recordScoreRequest(outcome string) {
	if o.metrics != nil {
		o.metrics.ScoreRequests.WithLabelValues(outcome).Inc()
	}
}

type fanOutResult struct {
	metadata  *types.CVEMetadata
	nvdErr    error
	epss      *types.EPSSSignal
	osv       []types.OSVPackage
	latencyMs map[string]int64
}

// fetchUpstreams runs the NVD, EPSS and OSV fetches concurrently and
// joins before returning, per spec.md §5. A plain WaitGroup is used
// rather than errgroup (absent from the example corpus) to collect
// three independent per-source results.
func (o *Orchestrator) fetchUpstreams(ctx context.Context, cveID string) fanOutResult {
	var wg sync.WaitGroup
	var mu sync.Mutex
	out := fanOutResult{latencyMs: make(map[string]int64)}

	wg.Add(3)

	go func() {
		defer wg.Done()
		start := o.clock.Now()
		meta, err := o.nvd.Fetch(ctx, cveID)
		elapsed := o.clock.Now().Sub(start)
		mu.Lock()
		out.metadata = meta
		out.nvdErr = err
		out.latencyMs["nvd"] = elapsed.Milliseconds()
		mu.Unlock()
		o.observeUpstream("nvd", elapsed, err)
	}()

	go func() {
		defer wg.Done()
		start := o.clock.Now()
		sig, err := o.epss.Fetch(ctx, cveID)
		elapsed := o.clock.Now().Sub(start)
		mu.Lock()
		out.epss = sig
		out.latencyMs["epss"] = elapsed.Milliseconds()
		mu.Unlock()
		o.observeUpstream("epss", elapsed, err)
	}()

	go func() {
		defer wg.Done()
		start := o.clock.Now()
		pkgs, err := o.osv.Fetch(ctx, cveID)
		elapsed := o.clock.Now().Sub(start)
		mu.Lock()
		out.osv = pkgs
		out.latencyMs["osv"] = elapsed.Milliseconds()
		mu.Unlock()
		o.observeUpstream("osv", elapsed, err)
	}()

	wg.Wait()
	return out
}

func (o *Orchestrator) timedNVDFetch(ctx context.Context, cveID string) (*types.CVEMetadata, error) {
	start := o.clock.Now()
	meta, err := o.nvd.Fetch(ctx, cveID)
	o.observeUpstream("nvd", o.clock.Now().Sub(start), err)
	return meta, err
}

func (o *Orchestrator) observeUpstream(source string, elapsed time.Duration, err error) {
	if o.metrics == nil {
		return
	}
	o.metrics.UpstreamLatency.WithLabelValues(source).Observe(elapsed.Seconds())
	if err != nil && err != nvd.ErrNotFound {
		o.metrics.UpstreamErrors.WithLabelValues(source).Inc()
	}
}

// normalizeRFC3339 pads bare dates (NVD sometimes returns
// "2021-12-10T00:00:00" without a zone) with a UTC offset so
// time.Parse(time.RFC3339, ...) accepts it.
func normalizeRFC3339(s string) string {
	if strings.HasSuffix(s, "Z") || strings.Contains(s, "+") {
		return s
	}
	if strings.Count(s, ":") == 2 {
		return s + "Z"
	}
	return s
}
