package handlers

import (
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/luct-edu/lecture-reporting-service/internal/metrics"
)

func limitedRouter(limiter RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(RateLimitMiddleware(limiter, "login", metrics.New(), testLogger()))
	r.POST("/login", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestRedisRateLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	limiter := NewRedisRateLimiter(client, "login", 3, time.Minute)
	fixed := time.Date(2025, 3, 17, 10, 0, 15, 0, time.UTC)
	limiter.now = func() time.Time { return fixed }

	r := limitedRouter(limiter)
	for i := 0; i < 3; i++ {
		if w := do(t, r, http.MethodPost, "/login", nil); w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i+1, w.Code)
		}
	}

	w := do(t, r, http.MethodPost, "/login", nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("4th request status = %d, want 429", w.Code)
	}
	retry, err := strconv.Atoi(w.Header().Get("Retry-After"))
	if err != nil || retry != 45 {
		t.Errorf("Retry-After = %q, want 45", w.Header().Get("Retry-After"))
	}

	// Next window starts fresh
	limiter.now = func() time.Time { return fixed.Add(time.Minute) }
	if w := do(t, r, http.MethodPost, "/login", nil); w.Code != http.StatusOK {
		t.Errorf("new window status = %d, want 200", w.Code)
	}
}

func TestRedisRateLimiter_KeysExpire(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	limiter := NewRedisRateLimiter(client, "global", 10, time.Minute)
	if _, _, err := limiter.Allow(context.Background(), "10.0.0.1"); err != nil {
		t.Fatalf("Allow: %v", err)
	}

	keys := mr.Keys()
	if len(keys) != 1 {
		t.Fatalf("keys = %v", keys)
	}
	if ttl := mr.TTL(keys[0]); ttl <= 0 || ttl > time.Minute {
		t.Errorf("ttl = %v, want within the window", ttl)
	}
}

func TestRateLimitMiddleware_FailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	mr.Close()

	r := limitedRouter(NewRedisRateLimiter(client, "login", 1, time.Minute))
	for i := 0; i < 3; i++ {
		if w := do(t, r, http.MethodPost, "/login", nil); w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200 while redis is down", i+1, w.Code)
		}
	}
}

func TestMemoryRateLimiter(t *testing.T) {
	r := limitedRouter(NewRateLimiter(nil, "login", 2, time.Minute))

	for i := 0; i < 2; i++ {
		if w := do(t, r, http.MethodPost, "/login", nil); w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i+1, w.Code)
		}
	}

	w := do(t, r, http.MethodPost, "/login", nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	retry, _ := strconv.Atoi(w.Header().Get("Retry-After"))
	if retry < 1 || retry > 30 {
		t.Errorf("Retry-After = %d, want about one refill interval", retry)
	}
}

func TestMemoryRateLimiter_PerKey(t *testing.T) {
	limiter := NewMemoryRateLimiter(1, time.Minute)
	ctx := context.Background()

	if ok, _, _ := limiter.Allow(ctx, "a"); !ok {
		t.Fatal("first call for a should pass")
	}
	if ok, _, _ := limiter.Allow(ctx, "a"); ok {
		t.Error("second call for a should be limited")
	}
	if ok, _, _ := limiter.Allow(ctx, "b"); !ok {
		t.Error("b has its own bucket")
	}
}

func TestMemoryRateLimiter_SweepsIdleKeys(t *testing.T) {
	limiter := NewMemoryRateLimiter(5, time.Minute)
	clock := time.Date(2025, 3, 17, 10, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return clock }
	ctx := context.Background()

	for _, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		if ok, _, _ := limiter.Allow(ctx, ip); !ok {
			t.Fatalf("%s should pass", ip)
		}
	}
	if n := limiter.Len(); n != 3 {
		t.Fatalf("buckets = %d, want 3", n)
	}

	clock = clock.Add(time.Minute)
	if ok, _, _ := limiter.Allow(ctx, "10.0.0.9"); !ok {
		t.Fatal("new key should pass")
	}
	if n := limiter.Len(); n != 1 {
		t.Errorf("buckets after a quiet window = %d, want 1", n)
	}
}

func TestMemoryRateLimiter_SweptKeyStartsFull(t *testing.T) {
	limiter := NewMemoryRateLimiter(1, time.Minute)
	clock := time.Date(2025, 3, 17, 10, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return clock }
	ctx := context.Background()

	limiter.Allow(ctx, "a")
	if ok, _, _ := limiter.Allow(ctx, "a"); ok {
		t.Fatal("second call inside the window should be limited")
	}

	clock = clock.Add(time.Minute)
	if ok, _, _ := limiter.Allow(ctx, "a"); !ok {
		t.Error("key should pass again once the window has passed")
	}
}

func TestNewRateLimiter_ZeroDisables(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	for _, limit := range []int{0, -1} {
		if l := NewRateLimiter(nil, "global", limit, time.Minute); l != nil {
			t.Errorf("memory limiter with limit %d = %T, want nil", limit, l)
		}
		if l := NewRateLimiter(client, "global", limit, time.Minute); l != nil {
			t.Errorf("redis limiter with limit %d = %T, want nil", limit, l)
		}
	}

	r := gin.New()
	SetupMiddleware(r, testLogger(), MiddlewareConfig{Limiter: NewRateLimiter(nil, "global", 0, time.Minute)})
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	for i := 0; i < 3; i++ {
		if w := do(t, r, http.MethodGet, "/ping", nil); w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200 with limiting disabled", i+1, w.Code)
		}
	}
}
