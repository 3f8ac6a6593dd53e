package handlers

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/luct-edu/lecture-reporting-service/internal/metrics"
	"github.com/luct-edu/lecture-reporting-service/internal/utils"
)

// RateLimiter decides whether the caller identified by key may proceed.
// When it may not, retryAfter says how long to wait.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

// NewRateLimiter picks the Redis window when a client is given, the in-process limiter otherwise.
// A limit of zero or less disables limiting and returns nil.
func NewRateLimiter(client *redis.Client, prefix string, limit int, window time.Duration) RateLimiter {
	if limit <= 0 {
		return nil
	}
	if client != nil {
		return NewRedisRateLimiter(client, prefix, limit, window)
	}
	return NewMemoryRateLimiter(limit, window)
}

// ===== Redis fixed window =====

type RedisRateLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewRedisRateLimiter(client *redis.Client, prefix string, limit int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, prefix: prefix, limit: limit, window: window, now: time.Now}
}

func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	slot := l.now().UnixNano() / int64(l.window)
	redisKey := fmt.Sprintf("ratelimit:%s:%s:%d", l.prefix, key, slot)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, 0, fmt.Errorf("rate limit counter: %w", err)
	}

	if incr.Val() <= int64(l.limit) {
		return true, 0, nil
	}
	windowEnd := time.Unix(0, (slot+1)*int64(l.window))
	return false, windowEnd.Sub(l.now()), nil
}

// ===== In-process token buckets =====

// MemoryRateLimiter keeps one token bucket per key. A bucket idle for a whole
// window has refilled completely, so such buckets are swept and recreated on demand.
type MemoryRateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	limit     rate.Limit
	burst     int
	window    time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewMemoryRateLimiter allows limit requests per window per key, refilled evenly
func NewMemoryRateLimiter(limit int, window time.Duration) *MemoryRateLimiter {
	return &MemoryRateLimiter{
		buckets: make(map[string]*bucket),
		limit:   rate.Limit(float64(limit) / window.Seconds()),
		burst:   limit,
		window:  window,
		now:     time.Now,
	}
}

func (l *MemoryRateLimiter) get(key string) (*rate.Limiter, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.window {
		l.sweep(now)
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter, now
}

func (l *MemoryRateLimiter) sweep(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) >= l.window {
			delete(l.buckets, key)
		}
	}
	l.lastSweep = now
}

// Len reports how many keys currently hold a bucket
func (l *MemoryRateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *MemoryRateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	lim, now := l.get(key)
	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Second, nil
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay, nil
	}
	return true, 0, nil
}

// RateLimitMiddleware keys the limiter by client IP and scope.
// Limiter failures let the request through.
func RateLimitMiddleware(limiter RateLimiter, scope string, m *metrics.Metrics, logger utils.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, retryAfter, err := limiter.Allow(c.Request.Context(), scope+":"+c.ClientIP())
		if err != nil {
			utils.GetLogger(c, logger).Warn("Rate limiter unavailable", "scope", scope, "error", err)
			c.Next()
			return
		}
		if allowed {
			c.Next()
			return
		}

		m.RateLimited(scope)
		seconds := int(math.Ceil(retryAfter.Seconds()))
		if seconds < 1 {
			seconds = 1
		}
		c.Header("Retry-After", strconv.Itoa(seconds))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
			Message: "Too many requests",
			Details: map[string]interface{}{"retry_after_seconds": seconds},
		})
	}
}
