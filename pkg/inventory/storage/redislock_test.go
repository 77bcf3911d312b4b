package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nemonet1337/drumledger/pkg/inventory"
)

// DRUMLEDGER_TEST_REDIS が設定されている場合のみ実行
func TestRedisLocker(t *testing.T) {
	addr := os.Getenv("DRUMLEDGER_TEST_REDIS")
	if addr == "" {
		t.Skip("DRUMLEDGER_TEST_REDIS が未設定のためスキップ")
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	locker := NewRedisLocker(rdb)
	key := "drumledger:test:" + inventory.NewEntryID()

	release, err := locker.Lock(context.Background(), key, 5*time.Second)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, key, 5*time.Second)
	assert.Error(t, err)

	require.NoError(t, release(context.Background()))
	require.NoError(t, release(context.Background()))

	release, err = locker.Lock(context.Background(), key, 5*time.Second)
	require.NoError(t, err)
	assert.NoError(t, release(context.Background()))
}
