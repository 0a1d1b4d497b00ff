// Package cache holds the refresh-token replay cache used when rotation
// mode is on: a rotated-out refresh token must be rejected on reuse.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const replayKeyPrefix = "refresh_used:"

// ReplayCache records refresh tokens that have been exchanged.
// MarkUsed returns true the first time a token is seen.
type ReplayCache interface {
	MarkUsed(ctx context.Context, token string, ttl time.Duration) (bool, error)
}

// RedisReplayCache implements ReplayCache on Redis SETNX.
// Keys hold a token digest, never the token itself.
type RedisReplayCache struct {
	client *redis.Client
}

// NewRedisReplayCache creates a RedisReplayCache
func NewRedisReplayCache(client *redis.Client) *RedisReplayCache {
	return &RedisReplayCache{client: client}
}

// MarkUsed marks token as exchanged for the remaining ttl of the token
func (c *RedisReplayCache) MarkUsed(ctx context.Context, token string, ttl time.Duration) (bool, error) {
	sum := sha256.Sum256([]byte(token))
	key := replayKeyPrefix + hex.EncodeToString(sum[:])
	return c.client.SetNX(ctx, key, 1, ttl).Result()
}

// MemoryReplayCache implements ReplayCache in process memory, for
// single-instance deployments and tests.
type MemoryReplayCache struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

// NewMemoryReplayCache creates a MemoryReplayCache
func NewMemoryReplayCache() *MemoryReplayCache {
	return &MemoryReplayCache{seen: make(map[string]time.Time)}
}

// MarkUsed marks token as exchanged; expired marks are pruned lazily
func (c *MemoryReplayCache) MarkUsed(_ context.Context, token string, ttl time.Duration) (bool, error) {
	sum := sha256.Sum256([]byte(token))
	key := hex.EncodeToString(sum[:])
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for k, exp := range c.seen {
		if now.After(exp) {
			delete(c.seen, k)
		}
	}

	if exp, ok := c.seen[key]; ok && now.Before(exp) {
		return false, nil
	}
	c.seen[key] = now.Add(ttl)
	return true, nil
}
