// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_StoreThenLoad(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir)

	data := []byte(`{"items":[]}`)
	require.NoError(t, s.Store("kev_compact.json", data), "Store() error")

	got, err := s.Load("kev_compact.json")
	require.NoError(t, err, "Load() error")
	assert.Equal(t, data, got)
}

func TestFileStore_Load_NoFileReturnsError(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir)

	_, err := s.Load("nonexistent.json")
	assert.Error(t, err, "Load() error = nil, want error for missing file")
}

func TestFileStore_Exists(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir)

	assert.False(t, s.Exists("data.json"), "Exists() = true before Store, want false")

	require.NoError(t, s.Store("data.json", []byte("x")))
	assert.True(t, s.Exists("data.json"), "Exists() = false after Store, want true")
}

func TestFileStore_Store_LeavesNoTempFilesBehind(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir)

	require.NoError(t, s.Store("data.json", []byte("x")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-", "temp file left behind: %s", filepath.Join(dir, e.Name()))
	}
}

func TestFileStore_Store_CreatesDirectoryIfMissing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "cache")
	s := NewFileStore(dir)

	require.NoError(t, s.Store("data.json", []byte("x")))
	assert.True(t, s.Exists("data.json"))
}
