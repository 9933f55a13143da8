package utils

import (
	"context" // Context for Redis operations
	"time"    // Lease and polling intervals

	"stock_simulator/internal/domain" // Error kinds

	"github.com/google/uuid"       // Lock ownership tokens
	"github.com/pkg/errors"        // Error helpers
	"github.com/redis/go-redis/v9" // Redis client
)

// releaseScript deletes the lock only if this holder still owns it
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker hands out short-lived exclusive locks stored in Redis
type RedisLocker struct {
	rdb  *redis.Client // Redis client
	ttl  time.Duration // Lease, so a crashed holder cannot block forever
	wait time.Duration // Maximum time to wait for a busy lock
	poll time.Duration // Delay between attempts
}

// NewRedisLocker creates a locker with the given lease and wait bound
func NewRedisLocker(rdb *redis.Client, ttl, wait time.Duration) *RedisLocker {
	return &RedisLocker{rdb: rdb, ttl: ttl, wait: wait, poll: 20 * time.Millisecond}
}

// Lock blocks until key is acquired, the wait bound passes or ctx ends.
// A busy lock yields domain.ErrAccountBusy. The returned func releases the lock.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString() // Identifies this holder
	deadline := time.Now().Add(l.wait)
	for {
		ok, err := l.rdb.SetNX(ctx, "lock:"+key, token, l.ttl).Result()
		if err != nil {
			return nil, errors.Wrapf(err, "acquire lock %s", key)
		}
		if ok {
			return func() {
				// Fresh context: release must run even when the request was cancelled
				releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_ = releaseScript.Run(releaseCtx, l.rdb, []string{"lock:" + key}, token).Err()
			}, nil
		}
		if time.Now().Add(l.poll).After(deadline) {
			return nil, errors.Wrapf(domain.ErrAccountBusy, "lock %s held", key)
		}
		select {
		case <-ctx.Done():
			return nil, errors.Wrapf(domain.ErrAccountBusy, "lock %s: %v", key, ctx.Err())
		case <-time.After(l.poll):
		}
	}
}
