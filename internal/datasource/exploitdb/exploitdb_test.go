// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package exploitdb

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeIndex(t *testing.T, data string) string {
	dir := t.TempDir()
	path := filepath.Join(dir, "exploitdb_index.json")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestLookup_CaseInsensitive(t *testing.T) {
	path := writeIndex(t, `[{"cveId":"CVE-2021-44228","url":"https://example.com/x"}]`)
	idx := New(path)

	got := idx.Lookup("cve-2021-44228")
	require.Len(t, got, 1)
	assert.Equal(t, "exploitdb", got[0].Source)
	assert.NoError(t, idx.LoadError())
}

func TestLookup_NoMatch(t *testing.T) {
	path := writeIndex(t, `[{"cveId":"CVE-2021-44228"}]`)
	idx := New(path)

	assert.Empty(t, idx.Lookup("CVE-1999-0001"))
}

func TestLookup_SkipsEntriesWithoutCVEID(t *testing.T) {
	path := writeIndex(t, `[{"url":"https://example.com/x"},{"cveId":"CVE-2020-0001"}]`)
	idx := New(path)

	assert.Len(t, idx.Lookup("CVE-2020-0001"), 1)
}

func TestLookup_ReadFailureYieldsEmptyAndError(t *testing.T) {
	idx := New(filepath.Join(t.TempDir(), "missing.json"))

	assert.Empty(t, idx.Lookup("CVE-2020-0001"))
	assert.Error(t, idx.LoadError())
}
