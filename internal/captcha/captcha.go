// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package captcha verifies Cloudflare Turnstile tokens against the
// siteverify endpoint, following the same fetch-and-decode shape as
// the internal/datasource sources.
package captcha

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const siteverifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

// Verifier checks Turnstile tokens.
type Verifier struct {
	httpClient *http.Client
	secret     string
	url        string
}

// New creates a Verifier. An empty secret disables verification:
// Verify always succeeds, for local development and tests.
func New(httpClient *http.Client, secret string) *Verifier {
	return &Verifier{httpClient: httpClient, secret: secret, url: siteverifyURL}
}

// Result is the outcome of a verification attempt.
type Result struct {
	Success    bool
	ErrorCodes []string
}

// Verify checks token (and the caller's remote IP, optional) against
// Turnstile. A transport failure is reported as a failed verification
// with the synthetic error code "internal-error" rather than as a Go
// error, since callers only need to decide allow/deny.
func (v *Verifier) Verify(ctx context.Context, token, remoteIP string) Result {
	if v.secret == "" {
		return Result{Success: true}
	}
	if token == "" {
		return Result{Success: false, ErrorCodes: []string{"missing-input-response"}}
	}

	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, strings.NewReader(form.Encode()))
	if err != nil {
		return Result{Success: false, ErrorCodes: []string{"internal-error"}}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return Result{Success: false, ErrorCodes: []string{"internal-error"}}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{Success: false, ErrorCodes: []string{"internal-error"}}
	}

	var payload struct {
		Success    bool     `json:"success"`
		ErrorCodes []string `json:"error-codes"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return Result{Success: false, ErrorCodes: []string{"internal-error"}}
	}

	return Result{Success: payload.Success, ErrorCodes: payload.ErrorCodes}
}
