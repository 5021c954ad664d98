package kv

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "local.json"))

	_, ok, err := store.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set("flag", "true"))
	value, ok, err := store.Get("flag")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "true", value)

	require.NoError(t, store.Remove("flag"))
	_, ok, err = store.Get("flag")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStorePersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local.json")

	first := NewFileStore(path)
	require.NoError(t, first.Set("token", "abc"))

	second := NewFileStore(path)
	value, ok, err := second.Get("token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc", value)
}

func TestFileStoreRemoveMissingKeyIsNoError(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "local.json"))
	assert.NoError(t, store.Remove("never-set"))
}

func TestFileStoreCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "local.json")
	store := NewFileStore(path)

	require.NoError(t, store.Set("k", "v"))
	value, ok, err := store.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", value)
}
