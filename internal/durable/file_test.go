package durable

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileKV_RoundTrip(t *testing.T) {
	t.Parallel()

	kv, err := NewFileKV(t.TempDir(), 0)
	require.NoError(t, err)

	ctx := context.Background()

	_, ok, err := kv.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set(ctx, "state", `{"a":1}`))

	value, ok, err := kv.Get(ctx, "state")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"a":1}`, value)

	// Overwrite replaces the value in place.
	require.NoError(t, kv.Set(ctx, "state", `{"a":2}`))
	value, _, err = kv.Get(ctx, "state")
	require.NoError(t, err)
	assert.Equal(t, `{"a":2}`, value)
}

func TestFileKV_CreatesDirectory(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "state")
	_, err := NewFileKV(dir, 0)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestFileKV_EmptyDirRejected(t *testing.T) {
	t.Parallel()

	_, err := NewFileKV("", 0)
	assert.Error(t, err)
}

func TestFileKV_QuotaEnforced(t *testing.T) {
	t.Parallel()

	kv, err := NewFileKV(t.TempDir(), 16)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, "small", "fits"))

	err = kv.Set(ctx, "big", strings.Repeat("x", 17))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	// The rejected write must not have touched the key.
	_, ok, err := kv.Get(ctx, "big")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileKV_Delete(t *testing.T) {
	t.Parallel()

	kv, err := NewFileKV(t.TempDir(), 0)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, "state", "value"))
	require.NoError(t, kv.Delete(ctx, "state"))

	_, ok, err := kv.Get(ctx, "state")
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting an absent key is not an error.
	require.NoError(t, kv.Delete(ctx, "state"))
}

func TestFileKV_KeyCannotEscapeDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	kv, err := NewFileKV(dir, 0)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, "../escape/attempt", "value"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "the flattened key stays inside the base directory")

	value, ok, err := kv.Get(ctx, "../escape/attempt")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "value", value)
}

func TestFileKV_NoTempFilesLeftBehind(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	kv, err := NewFileKV(dir, 0)
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, kv.Set(ctx, "state", strings.Repeat("y", 100)))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-", "temp files must be renamed away")
	}
}
