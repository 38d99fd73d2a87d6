// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package httpclient builds the shared retrying HTTP client used by
// every upstream fetcher (NVD, EPSS, OSV, KEV feed). Common policy —
// JSON Accept header, explicit user-agent, bounded timeout, N retries
// with uniform jitter, no retry on definitive not-found — lives here;
// per-source decoding stays in each datasource package.
package httpclient

import (
	"context"
	"math/rand"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
)

const (
	userAgent      = "secscore-engine/1.0 (+https://github.com/secscore-io/secscore)"
	jitterMinMs    = 200
	jitterMaxMs    = 400
)

// New builds an *http.Client wrapping retryablehttp with the service's
// retry+jitter policy: up to retries additional attempts, uniform
// 200-400ms jitter between attempts, and definitive "not found"
// responses (404) bubble up immediately instead of being retried.
func New(timeout time.Duration, retries int) *http.Client {
	rc := retryablehttp.NewClient()
	rc.HTTPClient = cleanhttp.DefaultPooledClient()
	rc.HTTPClient.Timeout = timeout
	rc.RetryMax = retries
	rc.Logger = nil
	rc.CheckRetry = checkRetry
	rc.Backoff = jitterBackoff

	std := rc.StandardClient()
	std.Timeout = timeout
	return std
}

// checkRetry retries on network errors and 5xx/429 responses, but
// never retries a definitive 404 (Not Found) — spec.md §4.4 requires
// those to surface immediately.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// jitterBackoff ignores the exponential schedule retryablehttp would
// otherwise compute and instead waits a uniformly random 200-400ms,
// matching spec.md §4.4's "uniform jitter between attempts" exactly.
func jitterBackoff(_, _ time.Duration, _ int, _ *http.Response) time.Duration {
	return time.Duration(jitterMinMs+rand.Intn(jitterMaxMs-jitterMinMs)) * time.Millisecond
}

// UserAgent is the header value every fetcher must send.
func UserAgent() string { return userAgent }

// NewRequest builds a GET request with the common Accept/User-Agent
// headers set, ready for fetcher-specific conditional headers.
func NewRequest(ctx context.Context, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	return req, nil
}
