package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ListCache stores unfiltered first pages keyed by page size
type ListCache interface {
	Get(ctx context.Context, key string) (*ListResult, bool, error)
	Set(ctx context.Context, key string, page *ListResult) error
	// Invalidate drops every cached page
	Invalidate(ctx context.Context) error
}

type nopListCache struct{}

func (nopListCache) Get(context.Context, string) (*ListResult, bool, error) { return nil, false, nil }
func (nopListCache) Set(context.Context, string, *ListResult) error         { return nil }
func (nopListCache) Invalidate(context.Context) error                       { return nil }

type cacheEntry struct {
	page    ListResult
	expires time.Time
}

// MemoryListCache is a process-local ListCache with a fixed time-to-live
type MemoryListCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time
}

// NewMemoryListCache keeps pages in process for ttl
func NewMemoryListCache(ttl time.Duration) *MemoryListCache {
	return &MemoryListCache{ttl: ttl, entries: make(map[string]cacheEntry), now: time.Now}
}

// Get returns a cached page that has not expired
func (c *MemoryListCache) Get(_ context.Context, key string) (*ListResult, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(entry.expires) {
		delete(c.entries, key)
		return nil, false, nil
	}
	page := entry.page.clone()
	return &page, true, nil
}

// Set stores a page
func (c *MemoryListCache) Set(_ context.Context, key string, page *ListResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{page: page.clone(), expires: c.now().Add(c.ttl)}
	return nil
}

// Invalidate drops every cached page
func (c *MemoryListCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
	return nil
}

// RedisListCache shares cached pages between instances
type RedisListCache struct {
	redis  *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisListCache keeps pages in redis for ttl
func NewRedisListCache(client *redis.Client, ttl time.Duration) *RedisListCache {
	return &RedisListCache{redis: client, prefix: "appraisal:orders:list:v1", ttl: ttl}
}

func (c *RedisListCache) key(key string) string {
	return fmt.Sprintf("%s:%s", c.prefix, key)
}

// Get returns a cached page
func (c *RedisListCache) Get(ctx context.Context, key string) (*ListResult, bool, error) {
	raw, err := c.redis.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var page ListResult
	if err := json.Unmarshal(raw, &page); err != nil {
		// treat an unreadable entry as a miss; the next Set overwrites it
		return nil, false, nil
	}
	return &page, true, nil
}

// Set stores a page with the cache ttl
func (c *RedisListCache) Set(ctx context.Context, key string, page *ListResult) error {
	raw, err := json.Marshal(page)
	if err != nil {
		return err
	}
	return c.redis.Set(ctx, c.key(key), raw, c.ttl).Err()
}

// Invalidate deletes every cached page key
func (c *RedisListCache) Invalidate(ctx context.Context) error {
	iter := c.redis.Scan(ctx, 0, c.prefix+":*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.redis.Del(ctx, keys...).Err()
}
