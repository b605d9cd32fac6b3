package rules

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/credeval/internal/logging"
	"github.com/go-redis/redis/v8"
)

// Cache holds resolved rules keyed by normalized country code.
type Cache interface {
	Get(ctx context.Context, code string) (ParsedRules, bool)
	Set(ctx context.Context, code string, rules ParsedRules)
	Delete(ctx context.Context, code string) error
}

type memoryEntry struct {
	rules   ParsedRules
	expires time.Time
}

// MemoryCache is a per-process TTL map.
type MemoryCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, code string) (ParsedRules, bool) {
	c.mu.RLock()
	e, ok := c.entries[code]
	c.mu.RUnlock()
	if !ok {
		return ParsedRules{}, false
	}
	if !c.now().Before(e.expires) {
		c.mu.Lock()
		if cur, ok := c.entries[code]; ok && cur.expires.Equal(e.expires) {
			delete(c.entries, code)
		}
		c.mu.Unlock()
		return ParsedRules{}, false
	}
	return e.rules, true
}

func (c *MemoryCache) Set(_ context.Context, code string, rules ParsedRules) {
	c.mu.Lock()
	c.entries[code] = memoryEntry{rules: rules, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *MemoryCache) Delete(_ context.Context, code string) error {
	c.mu.Lock()
	delete(c.entries, code)
	c.mu.Unlock()
	return nil
}

const redisKeyPrefix = "credeval:rules:"

// RedisCache shares resolved rules between server instances, so an
// invalidation on one instance is seen by all.
type RedisCache struct {
	client redis.Cmdable
	ttl    time.Duration
	logger logging.Logger
}

func NewRedisCache(client redis.Cmdable, ttl time.Duration, logger logging.Logger) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, logger: logger.With("module", "rules_cache")}
}

func (c *RedisCache) Get(ctx context.Context, code string) (ParsedRules, bool) {
	raw, err := c.client.Get(ctx, redisKeyPrefix+code).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn(ctx, "redis get failed", "code", code, "error", err)
		}
		return ParsedRules{}, false
	}
	var p ParsedRules
	if err := json.Unmarshal(raw, &p); err != nil {
		c.logger.Warn(ctx, "discarding undecodable cache entry", "code", code, "error", err)
		return ParsedRules{}, false
	}
	return p, true
}

func (c *RedisCache) Set(ctx context.Context, code string, rules ParsedRules) {
	raw, err := json.Marshal(rules)
	if err != nil {
		c.logger.Error(ctx, "marshal rules", "code", code, "error", err)
		return
	}
	if err := c.client.Set(ctx, redisKeyPrefix+code, raw, c.ttl).Err(); err != nil {
		c.logger.Warn(ctx, "redis set failed", "code", code, "error", err)
	}
}

func (c *RedisCache) Delete(ctx context.Context, code string) error {
	return c.client.Del(ctx, redisKeyPrefix+code).Err()
}
