package storage

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nemonet1337/drumledger/pkg/inventory"
)

func TestMemoryStore_PutIfVersion(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, found, err := store.Get(ctx, "bulk_drums.csv")
	require.NoError(t, err)
	assert.False(t, found)

	v1, err := store.PutIfVersion(ctx, "bulk_drums.csv", []byte("a"), "")
	require.NoError(t, err)

	_, err = store.PutIfVersion(ctx, "bulk_drums.csv", []byte("b"), "")
	assert.ErrorIs(t, err, inventory.ErrVersionMismatch)

	v2, err := store.PutIfVersion(ctx, "bulk_drums.csv", []byte("b"), v1)
	require.NoError(t, err)
	assert.NotEqual(t, v1, v2)

	_, err = store.PutIfVersion(ctx, "bulk_drums.csv", []byte("c"), v1)
	assert.ErrorIs(t, err, inventory.ErrVersionMismatch)

	data, version, found, err := store.GetVersioned(ctx, "bulk_drums.csv")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "b", string(data))
	assert.Equal(t, v2, version)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	src := []byte("abc")

	require.NoError(t, store.Put(ctx, "x", src))
	src[0] = 'z'

	data, _, err := store.Get(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))

	data[0] = 'q'
	again, _, _ := store.Get(ctx, "x")
	assert.Equal(t, "abc", string(again))
	assert.Equal(t, []string{"x"}, store.Names())
}

func TestMemoryStore_ConcurrentCAS(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_, err := store.PutIfVersion(ctx, "x", []byte("0"), "")
	require.NoError(t, err)
	_, version, _, _ := store.GetVersioned(ctx, "x")

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.PutIfVersion(ctx, "x", []byte("1"), version); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}
