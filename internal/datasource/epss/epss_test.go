// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package epss

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow() string { return "2026-01-01T00:00:00Z" }

func newTestSource(handler http.HandlerFunc) (*Source, func()) {
	srv := httptest.NewServer(handler)
	return &Source{httpClient: srv.Client(), baseURL: srv.URL, now: fixedNow}, srv.Close
}

func TestFetch_ParsesScoreAndPercentile(t *testing.T) {
	s, done := newTestSource(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"cve":"CVE-2021-44228","epss":"0.97","percentile":"0.99"}]}`))
	})
	defer done()

	sig, err := s.Fetch(context.Background(), "CVE-2021-44228")
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, 0.97, sig.Score)
	assert.Equal(t, 0.99, sig.Percentile)
	assert.Equal(t, "2026-01-01T00:00:00Z", sig.FetchedAt)
}

func TestFetch_EmptyDataReturnsNilNoError(t *testing.T) {
	s, done := newTestSource(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	})
	defer done()

	sig, err := s.Fetch(context.Background(), "CVE-0000-0000")
	assert.NoError(t, err)
	assert.Nil(t, sig)
}

func TestFetch_UpstreamErrorReturnsNilNoError(t *testing.T) {
	s, done := newTestSource(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	defer done()

	sig, err := s.Fetch(context.Background(), "CVE-0000-0000")
	assert.NoError(t, err)
	assert.Nil(t, sig)
}

func TestFetch_NoMatchingRecordReturnsNilNoError(t *testing.T) {
	s, done := newTestSource(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"cve":"CVE-2021-44228","epss":"0.97","percentile":"0.99"}]}`))
	})
	defer done()

	sig, err := s.Fetch(context.Background(), "CVE-2099-99999")
	assert.NoError(t, err)
	assert.Nil(t, sig)
}

func TestFetch_MalformedNumericFieldReturnsNilNoError(t *testing.T) {
	s, done := newTestSource(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"cve":"CVE-2021-44228","epss":"not-a-number","percentile":"0.99"}]}`))
	})
	defer done()

	sig, err := s.Fetch(context.Background(), "CVE-2021-44228")
	assert.NoError(t, err)
	assert.Nil(t, sig)
}
