package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalStore_GetPut(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	_, found, err := store.Get(ctx, "bulk_drums.csv")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Put(ctx, "bulk_drums.csv", []byte("v1")))
	require.NoError(t, store.Put(ctx, "bulk_drums.csv", []byte("v2")))
	require.NoError(t, store.Put(ctx, "backup/bulk_drums_20240105_090000.csv", []byte("v1")))

	data, found, err := store.Get(ctx, "bulk_drums.csv")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v2", string(data))

	_, err = os.Stat(filepath.Join(dir, "backup", "bulk_drums_20240105_090000.csv"))
	assert.NoError(t, err)

	// 一時ファイルが残らない
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestLocalStore_RejectsEscapingNames(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), nil)
	require.NoError(t, err)
	ctx := context.Background()

	for _, name := range []string{"../x.csv", "/etc/passwd", ".", ""} {
		assert.Error(t, store.Put(ctx, name, []byte("x")), name)
		_, _, err := store.Get(ctx, name)
		assert.Error(t, err, name)
	}
}

func TestLocalStore_Ping(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(filepath.Join(dir, "data"), nil)
	require.NoError(t, err)

	assert.NoError(t, store.Ping(context.Background()))

	require.NoError(t, os.RemoveAll(filepath.Join(dir, "data")))
	assert.Error(t, store.Ping(context.Background()))
}

func TestNewLocalStore_EmptyDir(t *testing.T) {
	_, err := NewLocalStore(" ", nil)
	assert.Error(t, err)
}
