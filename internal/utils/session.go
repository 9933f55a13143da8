package utils

import (
	"context" // Context for Redis operations
	"strconv" // Account ID encoding
	"time"    // Session lifetime

	"github.com/pkg/errors"        // Error helpers
	"github.com/redis/go-redis/v9" // Redis client
)

// sessionKey is the redis key holding a session's account ID
func sessionKey(sessionID string) string {
	return "session:" + sessionID
}

// SaveSession records a server-side session for accountID
func SaveSession(ctx context.Context, rdb *redis.Client, sessionID string, accountID uint, ttl time.Duration) error {
	err := rdb.Set(ctx, sessionKey(sessionID), strconv.FormatUint(uint64(accountID), 10), ttl).Err()
	return errors.Wrap(err, "save session")
}

// SessionAccount returns the account bound to sessionID; found is false when the session ended
func SessionAccount(ctx context.Context, rdb *redis.Client, sessionID string) (uint, bool, error) {
	val, err := rdb.Get(ctx, sessionKey(sessionID)).Result() // Get value from Redis
	if err == redis.Nil {
		return 0, false, nil // Logged out or expired
	} else if err != nil {
		return 0, false, errors.Wrap(err, "load session") // Other Redis error
	}
	id, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, false, errors.Wrap(err, "corrupt session record")
	}
	return uint(id), true, nil
}

// DeleteSession ends a session
func DeleteSession(ctx context.Context, rdb *redis.Client, sessionID string) error {
	return errors.Wrap(rdb.Del(ctx, sessionKey(sessionID)).Err(), "delete session")
}
