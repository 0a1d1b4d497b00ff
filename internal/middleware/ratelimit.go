package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimitConfig holds token-bucket rate limit settings
type RateLimitConfig struct {
	RequestsPerSecond int
	BurstSize         int
	CleanupInterval   time.Duration
	EntryTTL          time.Duration
}

// DefaultRateLimitConfig returns sensible defaults for the login endpoint
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 10,
		BurstSize:         20,
		CleanupInterval:   time.Minute,
		EntryTTL:          time.Minute,
	}
}

type rateLimitEntry struct {
	mu         sync.Mutex
	tokens     float64
	lastUpdate time.Time
}

// RateLimiter implements per-IP in-memory token bucket rate limiting
type RateLimiter struct {
	config  RateLimitConfig
	entries sync.Map
	stop    chan struct{}
}

// NewRateLimiter creates a RateLimiter and starts its cleanup loop
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		config: config,
		stop:   make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// Allow reports whether one more request from key fits the bucket
func (rl *RateLimiter) Allow(key string) bool {
	if rl.config.RequestsPerSecond <= 0 {
		return true
	}

	now := time.Now()
	v, _ := rl.entries.LoadOrStore(key, &rateLimitEntry{
		tokens:     float64(rl.config.BurstSize),
		lastUpdate: now,
	})
	entry := v.(*rateLimitEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	elapsed := now.Sub(entry.lastUpdate).Seconds()
	entry.tokens += elapsed * float64(rl.config.RequestsPerSecond)
	if entry.tokens > float64(rl.config.BurstSize) {
		entry.tokens = float64(rl.config.BurstSize)
	}
	entry.lastUpdate = now

	if entry.tokens < 1 {
		return false
	}
	entry.tokens--
	return true
}

// Stop terminates the cleanup loop
func (rl *RateLimiter) Stop() {
	close(rl.stop)
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-rl.config.EntryTTL)
			rl.entries.Range(func(key, value any) bool {
				entry := value.(*rateLimitEntry)
				entry.mu.Lock()
				stale := entry.lastUpdate.Before(cutoff)
				entry.mu.Unlock()
				if stale {
					rl.entries.Delete(key)
				}
				return true
			})
		case <-rl.stop:
			return
		}
	}
}

// RateLimit rejects requests exceeding the per-IP budget with 429
func RateLimit(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "Too many requests",
				"message": "Rate limit exceeded",
				"detail":  "retry later",
			})
			return
		}
		c.Next()
	}
}
