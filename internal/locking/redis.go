package locking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our token, so an
// expired lease never removes a lock taken over by another instance.
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// RedisLocker is a Locker backed by Redis leases (SET NX PX), shared by every
// service instance pointing at the same Redis.
type RedisLocker struct {
	client     redis.UniversalClient
	ttl        time.Duration
	retryDelay time.Duration
	logger     *slog.Logger
}

// NewRedisLocker creates a RedisLocker. ttl bounds how long a crashed holder
// can block a room.
func NewRedisLocker(client redis.UniversalClient, ttl time.Duration, logger *slog.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisLocker{
		client:     client,
		ttl:        ttl,
		retryDelay: 25 * time.Millisecond,
		logger:     logger.With("component", "redis_locker"),
	}
}

// Lock implements Locker. It polls until the lease is obtained or ctx is done.
func (l *RedisLocker) Lock(ctx context.Context, key string) (Unlock, error) {
	token := uuid.NewString()
	delay := l.retryDelay

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, errors.Join(ErrNotAcquired, ctxErr)
			}
			return nil, fmt.Errorf("locking: acquire %s: %w", key, err)
		}
		if ok {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, errors.Join(ErrNotAcquired, ctx.Err())
		case <-timer.C:
		}
		if delay < 200*time.Millisecond {
			delay *= 2
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The caller's context may already be cancelled; release on a fresh one.
			releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil {
				l.logger.Warn("failed to release lock", "key", key, "error", err)
			}
		})
	}, nil
}
