package storage_test

import (
	"path/filepath"
	"testing"

	"github.com/jdziat/weblytics-go/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore_RoundTrip(t *testing.T) {
	s, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer s.Close()

	_, ok := s.Get("wl_uid")
	assert.False(t, ok)

	assert.True(t, s.Set("wl_uid", "user-1"))
	assert.True(t, s.Set("wl_uid", "user-2"))

	v, ok := s.Get("wl_uid")
	assert.True(t, ok)
	assert.Equal(t, "user-2", v)

	assert.True(t, s.Remove("wl_uid"))
	_, ok = s.Get("wl_uid")
	assert.False(t, ok)
}

func TestSQLiteStore_Persistence(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "identity.db")

	store1, err := storage.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.True(t, store1.Set("wl_did", "0123456789abcdef01234567"))
	require.NoError(t, store1.Close())

	store2, err := storage.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store2.Close()

	v, ok := store2.Get("wl_did")
	assert.True(t, ok)
	assert.Equal(t, "0123456789abcdef01234567", v)
}

func TestSQLiteStore_ClosedReadsAsAbsent(t *testing.T) {
	s, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	s.Set("k", "v")
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "Close should be idempotent")

	_, ok := s.Get("k")
	assert.False(t, ok)
	assert.False(t, s.Set("k", "v"))
	assert.False(t, s.Remove("k"))
}

func TestSQLiteStore_InvalidPath(t *testing.T) {
	_, err := storage.NewSQLiteStore("/nonexistent/path/identity.db")
	assert.Error(t, err)
}
