// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package nvd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSource(t *testing.T, handler http.HandlerFunc) (*Source, func()) {
	srv := httptest.NewServer(handler)
	s := &Source{httpClient: srv.Client(), baseURL: srv.URL}
	return s, srv.Close
}

func TestFetch_SelectsV31OverV2(t *testing.T) {
	s, done := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"vulnerabilities": [{
				"cve": {
					"id": "CVE-2021-44228",
					"published": "2021-12-10T00:00:00",
					"descriptions": [{"lang": "en", "value": "log4shell"}],
					"metrics": {
						"cvssMetricV31": [{"cvssData": {"baseScore": 10.0, "vectorString": "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:C/C:H/I:H/A:H/RL:O/RC:C"}}],
						"cvssMetricV2": [{"cvssData": {"baseScore": 9.3, "vectorString": "AV:N/AC:M/Au:N/C:C/I:C/A:C"}}]
					},
					"configurations": []
				}
			}]
		}`))
	})
	defer done()

	meta, err := s.Fetch(context.Background(), "CVE-2021-44228")
	require.NoError(t, err)
	require.NotNil(t, meta.CVSSBase)
	assert.Equal(t, 10.0, *meta.CVSSBase)
	assert.Equal(t, "3.1", meta.CVSSVersion)
	assert.Equal(t, "log4shell", meta.Description)
}

func TestFetch_ParsesTemporalMultipliers(t *testing.T) {
	s, done := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"vulnerabilities": [{
				"cve": {
					"id": "CVE-2022-0001",
					"metrics": {
						"cvssMetricV31": [{"cvssData": {"baseScore": 7.5, "vectorString": "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:N/I:N/A:H/RL:W/RC:R"}}]
					}
				}
			}]
		}`))
	})
	defer done()

	meta, err := s.Fetch(context.Background(), "CVE-2022-0001")
	require.NoError(t, err)
	require.NotNil(t, meta.TemporalMultipliers.RemediationLevel)
	require.NotNil(t, meta.TemporalMultipliers.ReportConfidence)
	assert.Equal(t, 0.97, *meta.TemporalMultipliers.RemediationLevel)
	assert.Equal(t, 0.96, *meta.TemporalMultipliers.ReportConfidence)
}

func TestFetch_CollectsCPEsFromNestedNodes(t *testing.T) {
	s, done := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"vulnerabilities": [{
				"cve": {
					"id": "CVE-2022-0002",
					"configurations": [{
						"nodes": [{
							"cpeMatch": [{"criteria": "cpe:2.3:a:apache:log4j:2.14:*:*:*:*:*:*:*"}],
							"children": [{
								"cpeMatch": [{"criteria": "cpe:2.3:o:microsoft:windows:-:*:*:*:*:*:*:*"}]
							}]
						}]
					}]
				}
			}]
		}`))
	})
	defer done()

	meta, err := s.Fetch(context.Background(), "CVE-2022-0002")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"cpe:2.3:a:apache:log4j:2.14:*:*:*:*:*:*:*",
		"cpe:2.3:o:microsoft:windows:-:*:*:*:*:*:*:*",
	}, meta.CPE)
}

func TestFetch_404ReturnsErrNotFound(t *testing.T) {
	s, done := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	defer done()

	_, err := s.Fetch(context.Background(), "CVE-0000-0000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFetch_ZeroVulnerabilitiesReturnsErrNotFound(t *testing.T) {
	s, done := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"vulnerabilities": []}`))
	})
	defer done()

	_, err := s.Fetch(context.Background(), "CVE-0000-0000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFetch_UpstreamErrorReturnsDefaultedMetadataNotError(t *testing.T) {
	s, done := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	defer done()

	meta, err := s.Fetch(context.Background(), "CVE-2022-0003")
	require.NoError(t, err)
	assert.Equal(t, "CVE-2022-0003", meta.CVEID)
	assert.Nil(t, meta.CVSSBase)
	assert.Empty(t, meta.CPE)
}

func TestFetch_PicksMatchingIDOverFirstEntry(t *testing.T) {
	s, done := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"vulnerabilities": [
				{"cve": {"id": "CVE-2022-9999", "metrics": {"cvssMetricV2": [{"cvssData": {"baseScore": 1.0, "vectorString": "AV:N"}}]}}},
				{"cve": {"id": "CVE-2022-0004", "metrics": {"cvssMetricV2": [{"cvssData": {"baseScore": 5.0, "vectorString": "AV:N"}}]}}}
			]
		}`))
	})
	defer done()

	meta, err := s.Fetch(context.Background(), "CVE-2022-0004")
	require.NoError(t, err)
	require.NotNil(t, meta.CVSSBase)
	assert.Equal(t, 5.0, *meta.CVSSBase)
}
