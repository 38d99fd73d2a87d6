// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package nvd fetches and decodes National Vulnerability Database
// records. Like the teacher's epss/kev Source types, it owns both the
// HTTP fetch and the upstream-shape decoding, normalizing into
// types.CVEMetadata so the rest of the system never sees raw NVD JSON.
package nvd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/secscore-io/secscore/internal/httpclient"
	"github.com/secscore-io/secscore/internal/types"
)

const baseURL = "https://services.nvd.nist.gov/rest/json/cves/2.0"

// ErrNotFound is returned when NVD has no record for the requested CVE.
var ErrNotFound = fmt.Errorf("cve not found in nvd")

// Source fetches CVE metadata from NVD.
type Source struct {
	httpClient *http.Client
	baseURL    string
}

// New creates an NVD Source using httpClient (expected to already
// implement the shared retry+jitter policy from internal/httpclient).
func New(httpClient *http.Client) *Source {
	return &Source{httpClient: httpClient, baseURL: baseURL}
}

// Fetch retrieves and normalizes the metadata for cveID. On a
// definitive 404, it returns ErrNotFound. On any other upstream
// failure, it returns a defaulted metadata record (all nullable
// fields nil, empty CPE set) and logs a warning, per spec.md §4.4.
func (s *Source) Fetch(ctx context.Context, cveID string) (*types.CVEMetadata, error) {
	u := s.baseURL + "?cveId=" + url.QueryEscape(cveID)
	req, err := httpclient.NewRequest(ctx, u)
	if err != nil {
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		slog.Warn("nvd: request failed, returning defaulted metadata", "cve", cveID, "error", err)
		return defaulted(cveID), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		slog.Warn("nvd: non-200 response, returning defaulted metadata", "cve", cveID, "status", resp.StatusCode)
		return defaulted(cveID), nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Warn("nvd: reading response failed, returning defaulted metadata", "cve", cveID, "error", err)
		return defaulted(cveID), nil
	}

	var page responsePage
	if err := json.Unmarshal(body, &page); err != nil {
		slog.Warn("nvd: decoding response failed, returning defaulted metadata", "cve", cveID, "error", err)
		return defaulted(cveID), nil
	}

	if len(page.Vulnerabilities) == 0 {
		return nil, ErrNotFound
	}

	vuln := pickVulnerability(page.Vulnerabilities, cveID)
	return normalize(vuln.CVE), nil
}

func defaulted(cveID string) *types.CVEMetadata {
	return &types.CVEMetadata{
		CVEID: cveID,
		CPE:   []string{},
	}
}

// pickVulnerability picks the entry whose inner id matches cveID
// case-sensitively, falling back to the first entry.
func pickVulnerability(vulns []vulnerabilityEnvelope, cveID string) vulnerabilityEnvelope {
	for _, v := range vulns {
		if v.CVE.ID == cveID {
			return v
		}
	}
	return vulns[0]
}

// --- upstream shapes ---

type responsePage struct {
	Vulnerabilities []vulnerabilityEnvelope `json:"vulnerabilities"`
}

type vulnerabilityEnvelope struct {
	CVE cveRecord `json:"cve"`
}

type cveRecord struct {
	ID            string          `json:"id"`
	Published     string          `json:"published"`
	Descriptions  []description   `json:"descriptions"`
	Metrics       metrics         `json:"metrics"`
	Configurations json.RawMessage `json:"configurations"`
}

type description struct {
	Lang  string `json:"lang"`
	Value string `json:"value"`
}

type metrics struct {
	CvssMetricV40 []cvssMetric `json:"cvssMetricV40"`
	CvssMetricV31 []cvssMetric `json:"cvssMetricV31"`
	CvssMetricV30 []cvssMetric `json:"cvssMetricV30"`
	CvssMetricV3  []cvssMetric `json:"cvssMetricV3"`
	CvssMetricV2  []cvssMetric `json:"cvssMetricV2"`
}

type cvssMetric struct {
	CvssData cvssData `json:"cvssData"`
}

type cvssData struct {
	BaseScore    *float64 `json:"baseScore"`
	Score        *float64 `json:"score"`
	VectorString string   `json:"vectorString"`
}

// normalize converts a decoded NVD record into types.CVEMetadata,
// implementing the CVSS metric-priority selection, vector parsing,
// temporal-multiplier mapping, and recursive CPE walk from spec.md §4.4.
func normalize(rec cveRecord) *types.CVEMetadata {
	meta := &types.CVEMetadata{
		CVEID: rec.ID,
		CPE:   collectCPEs(rec.Configurations),
	}

	if rec.Published != "" {
		p := rec.Published
		meta.PublishedDate = &p
	}
	meta.Description = bestDescription(rec.Descriptions)

	vector, base, version := selectCVSS(rec.Metrics)
	if base != nil {
		meta.CVSSBase = base
	}
	if vector != "" {
		v := vector
		meta.CVSSVector = &v
	}
	meta.CVSSVersion = version

	if vector != "" {
		meta.TemporalMultipliers = parseTemporalMultipliers(vector)
	}

	return meta
}

func bestDescription(descs []description) string {
	for _, d := range descs {
		if strings.EqualFold(d.Lang, "en") {
			return d.Value
		}
	}
	if len(descs) > 0 {
		return descs[0].Value
	}
	return ""
}

// selectCVSS picks the highest-priority available metric: v4.0, v3.1,
// v3.0, v3, v2 (in that order) and returns its vector, base score, and
// version string.
func selectCVSS(m metrics) (vector string, base *float64, version string) {
	groups := []struct {
		metrics []cvssMetric
		version string
	}{
		{m.CvssMetricV40, "4.0"},
		{m.CvssMetricV31, "3.1"},
		{m.CvssMetricV30, "3.0"},
		{m.CvssMetricV3, "3"},
		{m.CvssMetricV2, "2"},
	}
	for _, g := range groups {
		if len(g.metrics) == 0 {
			continue
		}
		d := g.metrics[0].CvssData
		score := d.BaseScore
		if score == nil {
			score = d.Score
		}
		return d.VectorString, score, g.version
	}
	return "", nil, ""
}

// remediationLevelScores maps CVSS temporal Remediation Level codes
// (and their textual forms) to a multiplier.
var remediationLevelScores = map[string]float64{
	"X": 1, "NOT_DEFINED": 1,
	"U": 1, "UNAVAILABLE": 1,
	"W": 0.97, "WORKAROUND": 0.97,
	"T": 0.96, "TEMPORARY": 0.96,
	"O": 0.95, "OFFICIAL": 0.95,
	"OFFICIAL_FIX": 0.95,
}

// reportConfidenceScores maps CVSS temporal Report Confidence codes
// (and their textual forms) to a multiplier.
var reportConfidenceScores = map[string]float64{
	"X": 1, "NOT_DEFINED": 1,
	"C": 1, "CONFIRMED": 1,
	"R": 0.96, "REASONABLE": 0.96,
	"U": 0.92, "UNKNOWN": 0.92,
	"UNCONFIRMED": 0.92,
}

// parseTemporalMultipliers splits a CVSS vector string on "/" and maps
// the RL/RC codes to multipliers, per spec.md §4.4. Unknown codes
// yield nil (downstream treats that as 1).
func parseTemporalMultipliers(vector string) types.TemporalMultipliers {
	segments := strings.Split(vector, "/")
	pairs := map[string]string{}
	for i, seg := range segments {
		if i == 0 {
			continue // version prefix, e.g. "CVSS:3.1"
		}
		kv := strings.SplitN(seg, ":", 2)
		if len(kv) != 2 {
			continue
		}
		pairs[strings.ToUpper(kv[0])] = strings.ToUpper(kv[1])
	}

	var tm types.TemporalMultipliers
	if code, ok := pairs["RL"]; ok {
		if v, ok := remediationLevelScores[code]; ok {
			tm.RemediationLevel = &v
		}
	}
	if code, ok := pairs["RC"]; ok {
		if v, ok := reportConfidenceScores[code]; ok {
			tm.ReportConfidence = &v
		}
	}
	return tm
}

// configurationsShape mirrors the subset of NVD's configurations.nodes
// tree needed to recursively collect cpeMatch.criteria strings.
type configurationsShape struct {
	Nodes []nodeShape `json:"nodes"`
}

type nodeShape struct {
	CpeMatch []cpeMatchShape `json:"cpeMatch"`
	Children []nodeShape     `json:"children"`
}

type cpeMatchShape struct {
	Criteria string `json:"criteria"`
}

// collectCPEs recursively walks configurations.nodes, collecting every
// cpeMatch.criteria string into a deduplicated set, per spec.md §4.4.
// NVD's top-level "configurations" field is itself an array of node
// trees in the v2.0 API, so we try both shapes.
func collectCPEs(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return []string{}
	}

	seen := map[string]struct{}{}

	var asArray []configurationsShape
	if err := json.Unmarshal(raw, &asArray); err == nil {
		for _, cfg := range asArray {
			walkNodes(cfg.Nodes, seen)
		}
	} else {
		var asObject configurationsShape
		if err := json.Unmarshal(raw, &asObject); err == nil {
			walkNodes(asObject.Nodes, seen)
		}
	}

	out := make([]string, 0, len(seen))
	for cpe := range seen {
		out = append(out, cpe)
	}
	return out
}

func walkNodes(nodes []nodeShape, seen map[string]struct{}) {
	for _, n := range nodes {
		for _, m := range n.CpeMatch {
			if m.Criteria != "" {
				seen[m.Criteria] = struct{}{}
			}
		}
		walkNodes(n.Children, seen)
	}
}
