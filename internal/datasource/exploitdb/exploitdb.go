// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

// Package exploitdb provides a lazy, one-shot, read-only lookup over a
// bundled ExploitDB index (CVE ID -> PoC evidence), mirroring the
// teacher's KEV Source for shape, but with no network fetch: the index
// ships with the service and never changes at runtime.
package exploitdb

import (
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/secscore-io/secscore/internal/types"
)

type rawEntry struct {
	CVEID         string  `json:"cveId"`
	URL           *string `json:"url,omitempty"`
	PublishedDate *string `json:"publishedDate,omitempty"`
}

// Index is a case-insensitive CVE -> exploit-evidence lookup, loaded
// once from a bundled JSON array.
type Index struct {
	path string

	once    sync.Once
	entries map[string][]types.ExploitEvidence
	loadErr error
}

// New creates an Index that will lazily load path on first Lookup.
func New(path string) *Index {
	return &Index{path: path}
}

// Lookup returns the (possibly empty) list of exploit evidence for
// cveID, matched case-insensitively. A read failure on first access is
// logged once and treated as an empty index; LoadError reports it.
func (idx *Index) Lookup(cveID string) []types.ExploitEvidence {
	idx.ensureLoaded()
	return idx.entries[strings.ToUpper(cveID)]
}

// LoadError returns the error encountered loading the bundled index,
// if any. The index continues to serve empty results rather than
// failing requests.
func (idx *Index) LoadError() error {
	idx.ensureLoaded()
	return idx.loadErr
}

func (idx *Index) ensureLoaded() {
	idx.once.Do(func() {
		idx.entries = make(map[string][]types.ExploitEvidence)

		data, err := os.ReadFile(idx.path)
		if err != nil {
			idx.loadErr = err
			slog.Warn("exploitdb: reading bundled index failed; serving empty results", "path", idx.path, "error", err)
			return
		}

		var raw []rawEntry
		if err := json.Unmarshal(data, &raw); err != nil {
			idx.loadErr = err
			slog.Warn("exploitdb: parsing bundled index failed; serving empty results", "path", idx.path, "error", err)
			idx.entries = make(map[string][]types.ExploitEvidence)
			return
		}

		for _, r := range raw {
			if r.CVEID == "" {
				continue
			}
			key := strings.ToUpper(r.CVEID)
			idx.entries[key] = append(idx.entries[key], types.ExploitEvidence{
				Source:        "exploitdb",
				URL:           r.URL,
				PublishedDate: r.PublishedDate,
			})
		}
	})
}
