// ratelimit.go provides Gin middleware that enforces per-client rate limits and
// returns 429 once the configured requests-per-minute threshold is exceeded. Two
// backends exist: an in-process token bucket for single instances and a Redis GCRA
// limiter shared by every replica.
package middleware

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
)

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	// RequestsPerMinute is the sustained rate allowed per client
	RequestsPerMinute int
	// BurstSize is the maximum burst of requests allowed
	BurstSize int
	// CleanupInterval is how often idle in-memory buckets are dropped
	CleanupInterval time.Duration
}

// DefaultRateLimitConfig returns the limits used for the admin API.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 120,
		BurstSize:         20,
		CleanupInterval:   5 * time.Minute,
	}
}

// Decision is the outcome of one rate limit check.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter decides whether the client identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
	Limit() int
}

// rateLimitEntry tracks the bucket of a single client
type rateLimitEntry struct {
	tokens     float64
	lastUpdate time.Time
}

// RateLimiter implements an in-memory token bucket
type RateLimiter struct {
	config  RateLimitConfig
	entries map[string]*rateLimitEntry
	mu      sync.Mutex
	stopCh  chan struct{}
	once    sync.Once
}

// NewRateLimiter creates a new in-memory limiter and starts its cleanup loop.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 5 * time.Minute
	}
	rl := &RateLimiter{
		config:  config,
		entries: make(map[string]*rateLimitEntry),
		stopCh:  make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			now := time.Now()
			for key, entry := range rl.entries {
				if now.Sub(entry.lastUpdate) > 10*time.Minute {
					delete(rl.entries, key)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}

// Stop stops the cleanup goroutine. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stopCh) })
}

// Limit implements Limiter.
func (rl *RateLimiter) Limit() int {
	return rl.config.RequestsPerMinute
}

// Allow implements Limiter.
func (rl *RateLimiter) Allow(_ context.Context, key string) (Decision, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	perSecond := float64(rl.config.RequestsPerMinute) / 60.0
	entry, exists := rl.entries[key]
	if !exists {
		entry = &rateLimitEntry{tokens: float64(rl.config.BurstSize), lastUpdate: now}
		rl.entries[key] = entry
	} else {
		elapsed := now.Sub(entry.lastUpdate).Seconds()
		entry.tokens = math.Min(float64(rl.config.BurstSize), entry.tokens+elapsed*perSecond)
		entry.lastUpdate = now
	}

	if entry.tokens >= 1 {
		entry.tokens--
		return Decision{Allowed: true, Remaining: int(entry.tokens)}, nil
	}

	retry := time.Minute
	if perSecond > 0 {
		retry = time.Duration((1 - entry.tokens) / perSecond * float64(time.Second))
	}
	return Decision{Allowed: false, Remaining: 0, RetryAfter: retry}, nil
}

// RedisRateLimiter shares limits across replicas through Redis.
type RedisRateLimiter struct {
	limiter *redis_rate.Limiter
	limit   redis_rate.Limit
	prefix  string
}

// NewRedisRateLimiter builds a GCRA limiter on client.
func NewRedisRateLimiter(client redis.UniversalClient, config RateLimitConfig) *RedisRateLimiter {
	burst := config.BurstSize
	if burst <= 0 {
		burst = config.RequestsPerMinute
	}
	return &RedisRateLimiter{
		limiter: redis_rate.NewLimiter(client),
		limit:   redis_rate.Limit{Rate: config.RequestsPerMinute, Burst: burst, Period: time.Minute},
		prefix:  "ekkle:ratelimit:",
	}
}

// Limit implements Limiter.
func (rl *RedisRateLimiter) Limit() int {
	return rl.limit.Rate
}

// Allow implements Limiter.
func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	res, err := rl.limiter.Allow(ctx, rl.prefix+key, rl.limit)
	if err != nil {
		return Decision{}, err
	}
	return Decision{
		Allowed:    res.Allowed > 0,
		Remaining:  res.Remaining,
		RetryAfter: res.RetryAfter,
	}, nil
}

// RateLimitMiddleware rejects clients over their limit. A limiter error fails open:
// Redis being unavailable must not take the admin API down with it.
func RateLimitMiddleware(limiter Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := getRateLimitKey(c)

		d, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			slog.Warn("rate limiter unavailable, allowing request", "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))

		if !d.Allowed {
			retry := int(math.Ceil(d.RetryAfter.Seconds()))
			if retry < 1 {
				retry = 1
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": retry,
			})
			return
		}

		c.Next()
	}
}

// getRateLimitKey determines the key to use for rate limiting.
// Priority: user_id > IP address
func getRateLimitKey(c *gin.Context) string {
	if id := c.GetString(UserIDKey); id != "" {
		return "user:" + id
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = c.Request.RemoteAddr
	}
	return "ip:" + ip
}
