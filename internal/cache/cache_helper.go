package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrCacheNotAvailable = errors.New("cache not available")
	ErrCacheNotFound     = errors.New("cache not found")
)

// CacheConfig pairs a key namespace with how long entries in it live
type CacheConfig struct {
	TTL    time.Duration
	Prefix string
}

var (
	UserCacheConfig   = CacheConfig{TTL: 5 * time.Minute, Prefix: "user:"}
	ReportCacheConfig = CacheConfig{TTL: 2 * time.Minute, Prefix: "report:"}
	ClassCacheConfig  = CacheConfig{TTL: 5 * time.Minute, Prefix: "class:"}
	// dashboard aggregates go stale quickly once reports move through review
	StatsCacheConfig = CacheConfig{TTL: time.Minute, Prefix: "stats:"}
)

const (
	scanCount   = 100
	deleteBatch = 100
	setTimeout  = 2 * time.Second
)

// CacheHelper scopes a redis client to one prefix. With a nil client reads
// miss and writes are dropped, so callers never branch on Redis being configured.
type CacheHelper struct {
	client *redis.Client
	prefix string
}

func NewCacheHelper(client *redis.Client, prefix string) *CacheHelper {
	return &CacheHelper{client: client, prefix: prefix}
}

func (c *CacheHelper) Enabled() bool {
	return c != nil && c.client != nil
}

func (c *CacheHelper) key(k string) string {
	return c.prefix + k
}

func (c *CacheHelper) Get(ctx context.Context, key string, dest interface{}) error {
	if !c.Enabled() {
		return ErrCacheNotAvailable
	}

	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return ErrCacheNotFound
	case err != nil:
		return fmt.Errorf("cache get %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("cache decode %s: %w", key, err)
	}
	return nil
}

func (c *CacheHelper) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.Enabled() {
		return nil
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	return c.client.Set(ctx, c.key(key), raw, ttl).Err()
}

func (c *CacheHelper) Delete(ctx context.Context, keys ...string) error {
	if !c.Enabled() || len(keys) == 0 {
		return nil
	}

	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, c.key(k))
	}
	return c.client.Del(ctx, full...).Err()
}

// InvalidatePattern deletes every key under the prefix matching pattern.
// Keys are found with SCAN and removed in pipelined batches.
func (c *CacheHelper) InvalidatePattern(ctx context.Context, pattern string) error {
	if !c.Enabled() {
		return nil
	}

	keys, err := scanAll(ctx, c.client, c.key(pattern))
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	_, err = c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for start := 0; start < len(keys); start += deleteBatch {
			end := min(start+deleteBatch, len(keys))
			pipe.Del(ctx, keys[start:end]...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache delete %s: %w", pattern, err)
	}
	return nil
}

// CacheOrExecute fills dest from the cache, or from fetch on a miss. A fetched
// value is stored even if the request context is cancelled right after.
func (c *CacheHelper) CacheOrExecute(ctx context.Context, key string, dest interface{}, ttl time.Duration, fetch func() (interface{}, error)) error {
	err := c.Get(ctx, key, dest)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrCacheNotFound) && !errors.Is(err, ErrCacheNotAvailable) {
		slog.WarnContext(ctx, "Cache read failed, falling back to source", "error", err, "key", c.key(key))
	}

	value, err := fetch()
	if err != nil {
		return err
	}

	// round-trip through JSON so hits and misses hand back identical shapes
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}

	if c.Enabled() {
		storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), setTimeout)
		defer cancel()
		if err := c.client.Set(storeCtx, c.key(key), raw, ttl).Err(); err != nil {
			slog.WarnContext(ctx, "Cache write failed", "error", err, "key", c.key(key))
		}
	}

	return json.Unmarshal(raw, dest)
}

func scanAll(ctx context.Context, client *redis.Client, match string) ([]string, error) {
	var (
		found  []string
		cursor uint64
	)
	for {
		batch, next, err := client.Scan(ctx, cursor, match, scanCount).Result()
		if err != nil {
			return nil, fmt.Errorf("cache scan %s: %w", match, err)
		}
		found = append(found, batch...)
		if next == 0 {
			return found, nil
		}
		cursor = next
	}
}

// CacheManager holds one helper per cached domain, all sharing a client
type CacheManager struct {
	User   *CacheHelper
	Report *CacheHelper
	Class  *CacheHelper
	Stats  *CacheHelper

	client *redis.Client
}

func NewCacheManager(client *redis.Client) *CacheManager {
	helper := func(cfg CacheConfig) *CacheHelper { return NewCacheHelper(client, cfg.Prefix) }
	return &CacheManager{
		User:   helper(UserCacheConfig),
		Report: helper(ReportCacheConfig),
		Class:  helper(ClassCacheConfig),
		Stats:  helper(StatsCacheConfig),
		client: client,
	}
}

// HealthCheck pings Redis; ErrCacheNotAvailable means none is configured
func (cm *CacheManager) HealthCheck(ctx context.Context) error {
	if cm.client == nil {
		return ErrCacheNotAvailable
	}
	if err := cm.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// KeyCounts reports how many keys live under each prefix. Prefixes whose scan
// fails are left out.
func (cm *CacheManager) KeyCounts(ctx context.Context) map[string]int {
	counts := make(map[string]int)
	if cm.client == nil {
		return counts
	}

	for _, h := range []*CacheHelper{cm.User, cm.Report, cm.Class, cm.Stats} {
		keys, err := scanAll(ctx, cm.client, h.prefix+"*")
		if err != nil {
			continue
		}
		counts[h.prefix] = len(keys)
	}
	return counts
}
