// Package lock provides short-lived named locks used to narrow the window in
// which two deliveries of the same webhook run their check-then-insert at the
// same time. The database unique constraints stay the real guarantee; a lock
// only avoids wasted work and noisy constraint errors.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned when another holder owns the key.
var ErrNotAcquired = errors.New("lock: not acquired")

// Release frees a held lock.
type Release func(ctx context.Context) error

// Locker acquires named locks with a TTL.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error)
}

// RedisLocker implements Locker with SET NX PX and a compare-and-delete
// release so a holder never frees a lock that expired and was re-taken.
type RedisLocker struct {
	client redis.UniversalClient
	prefix string
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// NewRedisLocker returns a locker that namespaces keys under prefix.
func NewRedisLocker(client redis.UniversalClient, prefix string) *RedisLocker {
	return &RedisLocker{client: client, prefix: prefix}
}

// Acquire takes key for ttl or returns ErrNotAcquired.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error) {
	fullKey := l.prefix + key
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAcquired
	}

	return func(ctx context.Context) error {
		return releaseScript.Run(ctx, l.client, []string{fullKey}, token).Err()
	}, nil
}

// NopLocker always succeeds. Used when no Redis is configured.
type NopLocker struct{}

// Acquire implements Locker.
func (NopLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error) {
	return func(context.Context) error { return nil }, nil
}

// AcquireWait retries Acquire every interval until it succeeds, ctx ends or
// wait elapses.
func AcquireWait(ctx context.Context, l Locker, key string, ttl, wait, interval time.Duration) (Release, error) {
	deadline := time.Now().Add(wait)
	for {
		release, err := l.Acquire(ctx, key, ttl)
		if !errors.Is(err, ErrNotAcquired) {
			return release, err
		}
		if time.Now().Add(interval).After(deadline) {
			return nil, ErrNotAcquired
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
}
