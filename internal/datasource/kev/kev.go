// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package kev manages the CISA Known Exploited Vulnerabilities
// catalog: bootstrap from disk or a bundled fallback, conditional
// refresh against the upstream feed, and a lock-free atomic snapshot
// for readers. Structurally this is the teacher's internal/datasource/
// kev.Source generalized from a CSV-style bulk index into the state
// machine spec.md §4.2 describes.
package kev

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/secscore-io/secscore/internal/cache"
	"github.com/secscore-io/secscore/internal/clock"
	"github.com/secscore-io/secscore/internal/types"
)

const (
	cacheFilename   = "kev_compact.json"
	maxResponseSize = 50 * 1024 * 1024
)

// State is the manager's lifecycle stage, for observability only; it
// is not used to gate behavior (refresh is idempotent regardless).
type State string

const (
	StateUninitialized State = "uninitialized"
	StateBootstrapping State = "bootstrapping"
	StateReady         State = "ready"
	StateRefreshing    State = "refreshing"
)

// snapshot is the immutable, atomically-swapped KEV view. Readers load
// one reference per operation; writers build a new snapshot and swap
// it in with a single atomic store.
type snapshot struct {
	set      map[string]struct{}
	metadata map[string]types.KEVEntry
	etag     string
	lastMod  string
	updated  string
}

func emptySnapshot() *snapshot {
	return &snapshot{set: map[string]struct{}{}, metadata: map[string]types.KEVEntry{}}
}

// Manager is the process-wide KEV catalog. All fields are safe for
// concurrent use: snap is swapped atomically, state is only advisory.
type Manager struct {
	feedURL        string
	fallbackPath   string
	fileStore      *cache.FileStore
	httpClient     *http.Client
	clock          clock.Clock

	snap  atomic.Pointer[snapshot]
	state atomic.Value // State

	refreshMu sync.Mutex // serializes Refresh calls
}

// New creates a Manager. It does not touch disk or network until
// Bootstrap or Refresh is called.
func New(feedURL, fallbackPath string, fileStore *cache.FileStore, httpClient *http.Client, clk clock.Clock) *Manager {
	m := &Manager{
		feedURL:      feedURL,
		fallbackPath: fallbackPath,
		fileStore:    fileStore,
		httpClient:   httpClient,
		clock:        clk,
	}
	m.snap.Store(emptySnapshot())
	m.state.Store(StateUninitialized)
	return m
}

// State returns the manager's advisory lifecycle stage.
func (m *Manager) State() State {
	if v, ok := m.state.Load().(State); ok {
		return v
	}
	return StateUninitialized
}

// Lookup reports whether cveID is present in the current snapshot and
// returns its metadata if so. This is a lock-free read of an
// atomically-published snapshot: it never observes a partial update.
func (m *Manager) Lookup(cveID string) (types.KEVEntry, bool) {
	snap := m.snap.Load()
	entry, ok := snap.metadata[cveID]
	return entry, ok
}

// UpdatedAt returns the last successful update time recorded in the
// current snapshot, or "" if the catalog has never been populated.
func (m *Manager) UpdatedAt() string {
	return m.snap.Load().updated
}

// Size returns the number of entries in the current snapshot.
func (m *Manager) Size() int {
	return len(m.snap.Load().set)
}

// Bootstrap implements spec.md §4.2's bootstrap order: compact cache
// file, else bundled fallback (copied into the cache location), else
// an empty dataset.
func (m *Manager) Bootstrap(ctx context.Context) error {
	m.state.Store(StateBootstrapping)
	defer m.state.Store(StateReady)

	if m.fileStore.Exists(cacheFilename) {
		data, err := m.fileStore.Load(cacheFilename)
		if err == nil {
			if snap, perr := parseCompact(data); perr == nil {
				m.snap.Store(snap)
				return nil
			}
		}
	}

	if m.fallbackPath != "" {
		data, err := os.ReadFile(m.fallbackPath)
		if err == nil {
			if snap, perr := parseCompact(data); perr == nil {
				m.snap.Store(snap)
				if storeErr := m.fileStore.Store(cacheFilename, data); storeErr != nil {
					slog.Warn("kev: failed to seed cache from bundled fallback", "error", storeErr)
				}
				return nil
			}
		}
	}

	slog.Warn("kev: no cache and no usable bundled fallback; starting empty", "event", "bootstrap_missing")
	m.snap.Store(emptySnapshot())
	return nil
}

// RefreshResult reports what a Refresh call observed.
type RefreshResult struct {
	Changed   bool
	UpdatedAt string
	Err       error
}

// Refresh performs the conditional-fetch protocol from spec.md §4.2.
// It is idempotent and safe to call concurrently from the scheduler
// and the manual-trigger endpoint: at most one refresh mutates the
// runtime snapshot at a time (refreshMu), readers see the result through
// a single atomic.Pointer swap, and a failed refresh leaves the prior
// snapshot untouched.
func (m *Manager) Refresh(ctx context.Context) RefreshResult {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	m.state.Store(StateRefreshing)
	defer m.state.Store(StateReady)

	prior := m.snap.Load()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.feedURL, nil)
	if err != nil {
		return RefreshResult{Changed: false, UpdatedAt: prior.updated, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "secscore-engine/1.0 (+https://github.com/secscore-io/secscore)")
	if prior.etag != "" {
		req.Header.Set("If-None-Match", prior.etag)
	}
	if prior.lastMod != "" {
		req.Header.Set("If-Modified-Since", prior.lastMod)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		slog.Warn("kev: refresh request failed", "error", err)
		return RefreshResult{Changed: false, UpdatedAt: prior.updated, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		slog.Info("kev: feed unchanged", "updatedAt", prior.updated)
		return RefreshResult{Changed: false, UpdatedAt: prior.updated}
	}

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		err := fmt.Errorf("kev feed returned HTTP %d", resp.StatusCode)
		slog.Warn("kev: refresh failed", "status", resp.StatusCode)
		return RefreshResult{Changed: false, UpdatedAt: prior.updated, Err: err}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		slog.Warn("kev: reading refresh body failed", "error", err)
		return RefreshResult{Changed: false, UpdatedAt: prior.updated, Err: err}
	}

	snap, err := parseUpstream(data)
	if err != nil {
		slog.Warn("kev: parsing refresh body failed", "error", err)
		return RefreshResult{Changed: false, UpdatedAt: prior.updated, Err: err}
	}

	snap.etag = resp.Header.Get("ETag")
	snap.lastMod = resp.Header.Get("Last-Modified")
	snap.updated = m.clock.Now().UTC().Format(time.RFC3339)

	compact := toCompact(snap)
	if err := m.fileStore.Store(cacheFilename, compact); err != nil {
		slog.Warn("kev: persisting refreshed catalog failed", "error", err)
		return RefreshResult{Changed: false, UpdatedAt: prior.updated, Err: err}
	}

	m.snap.Store(snap)
	slog.Info("kev: refreshed", "entries", len(snap.set), "updatedAt", snap.updated)
	return RefreshResult{Changed: true, UpdatedAt: snap.updated}
}

// upstreamVerbose is CISA's own feed shape.
type upstreamVerbose struct {
	Vulnerabilities []upstreamEntry `json:"vulnerabilities"`
}

type upstreamEntry struct {
	CVEID         string `json:"cveID"`
	DateAdded     string `json:"dateAdded,omitempty"`
	VendorProject string `json:"vendorProject,omitempty"`
	Product       string `json:"product,omitempty"`
}

// parseUpstream accepts either the upstream verbose shape or this
// service's own compact shape, per spec.md §4.2.
func parseUpstream(data []byte) (*snapshot, error) {
	var verbose upstreamVerbose
	if err := json.Unmarshal(data, &verbose); err == nil && len(verbose.Vulnerabilities) > 0 {
		snap := emptySnapshot()
		for _, e := range verbose.Vulnerabilities {
			addEntry(snap, toKEVEntry(e))
		}
		return snap, nil
	}
	return parseCompact(data)
}

func toKEVEntry(e upstreamEntry) types.KEVEntry {
	entry := types.KEVEntry{CVEID: e.CVEID}
	if v := strings.TrimSpace(e.DateAdded); v != "" {
		entry.DateAdded = &v
	}
	if v := strings.TrimSpace(e.VendorProject); v != "" {
		entry.VendorProject = &v
	}
	if v := strings.TrimSpace(e.Product); v != "" {
		entry.Product = &v
	}
	return entry
}

// parseCompact parses this service's own persisted/bundled shape.
func parseCompact(data []byte) (*snapshot, error) {
	var cf types.KEVCatalog
	if err := json.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parsing compact KEV file: %w", err)
	}
	snap := emptySnapshot()
	snap.etag = cf.ETag
	snap.lastMod = cf.LastModified
	snap.updated = cf.UpdatedAt
	for _, e := range cf.Items {
		addEntry(snap, e)
	}
	return snap, nil
}

func addEntry(snap *snapshot, e types.KEVEntry) {
	if e.CVEID == "" {
		return
	}
	trimOptional(&e.DateAdded)
	trimOptional(&e.VendorProject)
	trimOptional(&e.Product)
	snap.set[e.CVEID] = struct{}{}
	snap.metadata[e.CVEID] = e
}

func trimOptional(p **string) {
	if *p == nil {
		return
	}
	trimmed := strings.TrimSpace(**p)
	if trimmed == "" {
		*p = nil
		return
	}
	**p = trimmed
}

// toCompact deduplicates by CVE ID (snapshot.metadata already is a
// map, so this is automatic) and serializes the compact schema.
func toCompact(snap *snapshot) []byte {
	items := make([]types.KEVEntry, 0, len(snap.metadata))
	for _, e := range snap.metadata {
		items = append(items, e)
	}
	cf := types.KEVCatalog{
		ETag:         snap.etag,
		LastModified: snap.lastMod,
		UpdatedAt:    snap.updated,
		Items:        items,
	}
	data, _ := json.Marshal(cf)
	return data
}
