// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package epss fetches the per-CVE EPSS score and percentile from
// FIRST.org's live API. Unlike the teacher's bulk CSV.gz Source, this
// is a single-record lookup: the daily EPSS dataset is large enough
// that the teacher's "download and index the whole file" approach
// doesn't fit a per-request enrichment path, so we hit the per-CVE
// endpoint instead and keep the same Source/Fetch shape.
package epss

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/secscore-io/secscore/internal/httpclient"
	"github.com/secscore-io/secscore/internal/types"
)

const baseURL = "https://api.first.org/data/v1/epss"

// Source fetches EPSS signals from the FIRST.org API.
type Source struct {
	httpClient *http.Client
	baseURL    string
	now        func() string
}

// New creates an EPSS Source. nowFn supplies the FetchedAt timestamp
// stamped onto each signal; callers pass a clock-backed function so
// tests can fix the value.
func New(httpClient *http.Client, nowFn func() string) *Source {
	return &Source{httpClient: httpClient, baseURL: baseURL, now: nowFn}
}

// Fetch retrieves the EPSS score and percentile for cveID. Per
// spec.md §4.4, any absence, malformed value, or upstream failure
// yields (nil, nil) rather than an error: EPSS is an optional signal.
func (s *Source) Fetch(ctx context.Context, cveID string) (*types.EPSSSignal, error) {
	u := s.baseURL + "?cve=" + url.QueryEscape(cveID)
	req, err := httpclient.NewRequest(ctx, u)
	if err != nil {
		return nil, nil
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		slog.Warn("epss: request failed", "cve", cveID, "error", err)
		return nil, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		slog.Warn("epss: non-200 response", "cve", cveID, "status", resp.StatusCode)
		return nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Warn("epss: reading response failed", "cve", cveID, "error", err)
		return nil, nil
	}

	var page responsePage
	if err := json.Unmarshal(body, &page); err != nil {
		slog.Warn("epss: decoding response failed", "cve", cveID, "error", err)
		return nil, nil
	}

	rec, ok := findRecord(page.Data, cveID)
	if !ok {
		return nil, nil
	}

	score, ok := parseFloat(rec.EPSS)
	if !ok {
		return nil, nil
	}
	percentile, ok := parseFloat(rec.Percentile)
	if !ok {
		return nil, nil
	}

	return &types.EPSSSignal{
		Score:      score,
		Percentile: percentile,
		FetchedAt:  s.now(),
	}, nil
}

type responsePage struct {
	Data []record `json:"data"`
}

// record's numeric fields arrive as JSON strings in FIRST.org's API.
type record struct {
	CVE        string `json:"cve"`
	EPSS       string `json:"epss"`
	Percentile string `json:"percentile"`
}

// findRecord returns the record whose cve field matches cveID, per
// spec.md §4.4. The API is queried with ?cve=<id> and normally returns
// a single matching row, but nothing guarantees that, so this matches
// explicitly rather than trusting page.Data[0].
func findRecord(data []record, cveID string) (record, bool) {
	for _, r := range data {
		if strings.EqualFold(r.CVE, cveID) {
			return r, true
		}
	}
	return record{}, false
}

func parseFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}
