// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package kev

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secscore-io/secscore/internal/cache"
	"github.com/secscore-io/secscore/internal/clock"
	"github.com/secscore-io/secscore/internal/types"
)

func newManager(t *testing.T, feedURL, fallbackPath string) *Manager {
	dir := t.TempDir()
	return New(feedURL, fallbackPath, cache.NewFileStore(dir), &http.Client{Timeout: 2 * time.Second}, clock.Fixed{At: time.Unix(0, 0)})
}

func TestBootstrap_FromBundledFallback(t *testing.T) {
	fallback := filepath.Join(t.TempDir(), "fallback.json")
	require.NoError(t, os.WriteFile(fallback, []byte(`{"updatedAt":"2026-01-01T00:00:00Z","items":[{"cveId":"CVE-2021-44228"}]}`), 0o644))

	m := newManager(t, "", fallback)
	require.NoError(t, m.Bootstrap(context.Background()))

	_, ok := m.Lookup("CVE-2021-44228")
	assert.True(t, ok)
}

func TestBootstrap_EmptyWhenNoCacheOrFallback(t *testing.T) {
	m := newManager(t, "", "")
	require.NoError(t, m.Bootstrap(context.Background()))
	assert.Equal(t, 0, m.Size())
}

func TestRefresh_ParsesUpstreamVerboseShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"abc"`)
		w.Write([]byte(`{"vulnerabilities":[{"cveID":"CVE-2022-0001","dateAdded":"2022-01-01"}]}`))
	}))
	defer srv.Close()

	m := newManager(t, srv.URL, "")
	result := m.Refresh(context.Background())

	assert.True(t, result.Changed)
	entry, ok := m.Lookup("CVE-2022-0001")
	assert.True(t, ok)
	require.NotNil(t, entry.DateAdded)
	assert.Equal(t, "2022-01-01", *entry.DateAdded)
}

func TestRefresh_304LeavesSnapshotUnchanged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotModified)
	}))
	defer srv.Close()

	m := newManager(t, srv.URL, "")
	before := m.snap.Load()

	result := m.Refresh(context.Background())

	assert.False(t, result.Changed)
	after := m.snap.Load()
	assert.Same(t, before, after)
}

func TestRefresh_FailurePreservesPriorState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	dir := t.TempDir()
	fs := cache.NewFileStore(dir)
	m := New(srv.URL, "", fs, &http.Client{Timeout: 2 * time.Second}, clock.Fixed{At: time.Unix(0, 0)})

	// Seed a known-good snapshot first.
	require.NoError(t, os.WriteFile(filepath.Join(dir, cacheFilename),
		[]byte(`{"updatedAt":"2026-01-01T00:00:00Z","items":[{"cveId":"CVE-2020-0001"}]}`), 0o644))
	require.NoError(t, m.Bootstrap(context.Background()))

	result := m.Refresh(context.Background())
	assert.False(t, result.Changed)
	assert.Error(t, result.Err)

	_, ok := m.Lookup("CVE-2020-0001")
	assert.True(t, ok, "failed refresh must not clear the prior snapshot")
}

func TestCompactRoundTrip(t *testing.T) {
	dateAdded := "2021-12-10"
	snap := emptySnapshot()
	addEntry(snap, types.KEVEntry{CVEID: "CVE-2021-9999", DateAdded: &dateAdded})
	addEntry(snap, types.KEVEntry{CVEID: "CVE-2021-9999", DateAdded: &dateAdded}) // duplicate, should dedupe
	snap.updated = "2026-01-01T00:00:00Z"

	data := toCompact(snap)
	reloaded, err := parseCompact(data)
	require.NoError(t, err)

	assert.Equal(t, snap.set, reloaded.set)
	assert.Equal(t, len(snap.metadata), len(reloaded.metadata))
	assert.Equal(t, 1, len(reloaded.set))
}
