// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package osv

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSource(handler http.HandlerFunc) (*Source, func()) {
	srv := httptest.NewServer(handler)
	return &Source{httpClient: srv.Client(), baseURL: srv.URL}, srv.Close
}

func TestFetch_NormalizesAffectedRanges(t *testing.T) {
	s, done := newTestSource(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"id": "GHSA-xxxx",
			"affected": [{
				"package": {"ecosystem": "Maven", "name": "org.apache.logging.log4j:log4j-core"},
				"ranges": [{
					"type": "ECOSYSTEM",
					"events": [{"introduced": "2.0"}, {"fixed": "2.17.1"}]
				}]
			}]
		}`))
	})
	defer done()

	pkgs, err := s.Fetch(context.Background(), "CVE-2021-44228")
	require.NoError(t, err)
	require.Len(t, pkgs, 1)
	require.NotNil(t, pkgs[0].Ecosystem)
	assert.Equal(t, "Maven", *pkgs[0].Ecosystem)
	require.Len(t, pkgs[0].Ranges, 1)
	require.Len(t, pkgs[0].Ranges[0].Events, 2)
	require.NotNil(t, pkgs[0].Ranges[0].Events[1].Fixed)
	assert.Equal(t, "2.17.1", *pkgs[0].Ranges[0].Events[1].Fixed)
}

func TestFetch_404ReturnsNilNoError(t *testing.T) {
	s, done := newTestSource(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	defer done()

	pkgs, err := s.Fetch(context.Background(), "CVE-0000-0000")
	assert.NoError(t, err)
	assert.Nil(t, pkgs)
}

func TestFetch_EmptyAffectedReturnsNilNoError(t *testing.T) {
	s, done := newTestSource(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": "GHSA-xxxx", "affected": []}`))
	})
	defer done()

	pkgs, err := s.Fetch(context.Background(), "CVE-0000-0000")
	assert.NoError(t, err)
	assert.Nil(t, pkgs)
}

func TestFetch_UpstreamErrorReturnsNilNoError(t *testing.T) {
	s, done := newTestSource(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	defer done()

	pkgs, err := s.Fetch(context.Background(), "CVE-0000-0000")
	assert.NoError(t, err)
	assert.Nil(t, pkgs)
}
