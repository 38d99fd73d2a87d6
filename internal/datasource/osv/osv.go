// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package osv fetches affected-package ranges from the OSV.dev API,
// normalizing them into types.OSVPackage. It follows the same
// fetch-and-normalize shape as internal/datasource/nvd and epss.
package osv

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/secscore-io/secscore/internal/httpclient"
	"github.com/secscore-io/secscore/internal/types"
)

const baseURL = "https://api.osv.dev/v1/vulns"

// Source fetches OSV records.
type Source struct {
	httpClient *http.Client
	baseURL    string
}

// New creates an OSV Source.
func New(httpClient *http.Client) *Source {
	return &Source{httpClient: httpClient, baseURL: baseURL}
}

// Fetch retrieves and normalizes the affected-package list for cveID.
// A 404 or any other upstream failure yields (nil, nil): OSV coverage
// is partial and its absence is not an error condition, per spec.md §4.4.
func (s *Source) Fetch(ctx context.Context, cveID string) ([]types.OSVPackage, error) {
	u := s.baseURL + "/" + cveID
	req, err := httpclient.NewRequest(ctx, u)
	if err != nil {
		return nil, nil
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		slog.Warn("osv: request failed", "cve", cveID, "error", err)
		return nil, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		slog.Warn("osv: non-200 response", "cve", cveID, "status", resp.StatusCode)
		return nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Warn("osv: reading response failed", "cve", cveID, "error", err)
		return nil, nil
	}

	var rec record
	if err := json.Unmarshal(body, &rec); err != nil {
		slog.Warn("osv: decoding response failed", "cve", cveID, "error", err)
		return nil, nil
	}

	if len(rec.Affected) == 0 {
		return nil, nil
	}

	return normalize(rec.Affected), nil
}

type record struct {
	ID       string     `json:"id"`
	Affected []affected `json:"affected"`
}

type affected struct {
	Package pkgShape     `json:"package"`
	Ranges  []rangeShape `json:"ranges"`
}

type pkgShape struct {
	Ecosystem string `json:"ecosystem"`
	Name      string `json:"name"`
}

type rangeShape struct {
	Type   string       `json:"type"`
	Events []eventShape `json:"events"`
}

type eventShape struct {
	Introduced   string `json:"introduced"`
	Fixed        string `json:"fixed"`
	LastAffected string `json:"last_affected"`
	Limit        string `json:"limit"`
}

func normalize(affectedList []affected) []types.OSVPackage {
	out := make([]types.OSVPackage, 0, len(affectedList))
	for _, a := range affectedList {
		pkg := types.OSVPackage{
			Ecosystem: optional(a.Package.Ecosystem),
			Package:   optional(a.Package.Name),
		}
		for _, r := range a.Ranges {
			rr := types.OSVRange{Type: optional(r.Type)}
			for _, e := range r.Events {
				ev := types.OSVEvent{
					Introduced:   optional(e.Introduced),
					Fixed:        optional(e.Fixed),
					LastAffected: optional(e.LastAffected),
					Limit:        optional(e.Limit),
				}
				rr.Events = append(rr.Events, ev)
			}
			pkg.Ranges = append(pkg.Ranges, rr)
		}
		out = append(out, pkg)
	}
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
