package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"github.com/nemonet1337/drumledger/pkg/inventory"
)

// RedisLocker implements inventory.Locker with a Redis lease lock
// Redisのリースロックによるプロセス間ロック
type RedisLocker struct {
	client *redislock.Client
	retry  time.Duration
}

var _ inventory.Locker = (*RedisLocker)(nil)

// NewRedisLocker wraps a go-redis client
func NewRedisLocker(rdb redis.UniversalClient) *RedisLocker {
	return &RedisLocker{client: redislock.New(rdb), retry: 100 * time.Millisecond}
}

// Lock obtains key for ttl, retrying until ctx is done
// ロックを取得（ctxが終了するまで再試行）
func (l *RedisLocker) Lock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(ttl)
	}
	limit := int(time.Until(deadline) / l.retry)
	if limit < 1 {
		limit = 1
	}

	lock, err := l.client.Obtain(ctx, key, ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(l.retry), limit),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("ロック %s は他のプロセスが保持しています: %w", key, err)
	}
	if err != nil {
		return nil, fmt.Errorf("ロック取得に失敗しました: %w", err)
	}

	return func(ctx context.Context) error {
		err := lock.Release(ctx)
		if errors.Is(err, redislock.ErrLockNotHeld) {
			return nil
		}
		return err
	}, nil
}
