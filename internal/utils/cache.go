package utils

import (
	"context"       // Context for Redis operations
	"encoding/json" // JSON encoding/decoding
	"strconv"       // Key formatting
	"time"          // Time durations

	"github.com/redis/go-redis/v9" // Redis client
)

// ViewCacheTTL bounds how stale a cached view may be
const ViewCacheTTL = 60 * time.Second

// AdminCachePrefix groups every cached admin listing
const AdminCachePrefix = "admin:"

// TradesCacheKey is the cache key of one page of an account's trade history
func TradesCacheKey(accountID uint, page, pageSize int) string {
	return accountPrefix(accountID) + "trades:page:" + strconv.Itoa(page) + ":size:" + strconv.Itoa(pageSize)
}

// accountPrefix groups every cached view of one account
func accountPrefix(accountID uint) string {
	return "account:" + strconv.FormatUint(uint64(accountID), 10) + ":"
}

// GetCache retrieves a value from Redis and unmarshals it into dest
func GetCache(ctx context.Context, rdb *redis.Client, key string, dest any) (bool, error) {
	val, err := rdb.Get(ctx, key).Result() // Get value from Redis
	if err == redis.Nil {
		return false, nil // Key does not exist
	} else if err != nil {
		return false, err // Other Redis error
	}
	return true, json.Unmarshal([]byte(val), dest) // Unmarshal JSON into dest
}

// SetCache sets a value in Redis with a specified TTL
func SetCache(ctx context.Context, rdb *redis.Client, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value) // Marshal value to JSON
	if err != nil {
		return err // Return error if marshaling fails
	}
	return rdb.Set(ctx, key, b, ttl).Err() // Set value in Redis with TTL
}

// DeleteCache deletes keys from Redis
func DeleteCache(ctx context.Context, rdb *redis.Client, keys ...string) error {
	if len(keys) == 0 {
		return nil // Nothing to delete
	}
	return rdb.Del(ctx, keys...).Err() // Delete keys from Redis
}

// InvalidateAccount drops every cached view of an account, all trade pages included
func InvalidateAccount(ctx context.Context, rdb *redis.Client, accountID uint) error {
	return deleteMatching(ctx, rdb, accountPrefix(accountID)+"*")
}

// InvalidateAdminViews drops every cached admin listing
func InvalidateAdminViews(ctx context.Context, rdb *redis.Client) error {
	return deleteMatching(ctx, rdb, AdminCachePrefix+"*")
}

// deleteMatching removes every key matching a SCAN pattern
func deleteMatching(ctx context.Context, rdb *redis.Client, pattern string) error {
	iter := rdb.Scan(ctx, 0, pattern, 100).Iterator() // Walk matching keys
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val()) // Collect key
	}
	if err := iter.Err(); err != nil {
		return err // Scan failed
	}
	return DeleteCache(ctx, rdb, keys...) // Delete all at once
}
