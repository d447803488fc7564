package region

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores lookup results. Empty strings are valid cached values.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// CachedLookup answers repeated postal codes from a cache.
type CachedLookup struct {
	next  Lookup
	cache Cache
	ttl   time.Duration
}

func NewCachedLookup(next Lookup, cache Cache, ttl time.Duration) *CachedLookup {
	return &CachedLookup{next: next, cache: cache, ttl: ttl}
}

func cacheKey(country, postalCode string) string {
	return "region:" + strings.ToUpper(country) + ":" + strings.TrimSpace(postalCode)
}

func (c *CachedLookup) Region(ctx context.Context, country, postalCode string) (string, error) {
	key := cacheKey(country, postalCode)

	if value, ok, err := c.cache.Get(ctx, key); err != nil {
		log.Printf("Region cache read failed: %v", err)
	} else if ok {
		return value, nil
	}

	value, err := c.next.Region(ctx, country, postalCode)
	if err != nil {
		return "", err
	}

	if err := c.cache.Set(ctx, key, value, c.ttl); err != nil {
		log.Printf("Region cache write failed: %v", err)
	}
	return value, nil
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryCache is an in-process Cache.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return "", false, nil
	}
	if !e.expiresAt.IsZero() && m.now().After(e.expiresAt) {
		delete(m.entries, key)
		return "", false, nil
	}
	return e.value, true, nil
}

func (m *MemoryCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

// RedisCache is a Cache shared between instances through redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to the redis server at rawURL (redis://...).
func NewRedisCache(ctx context.Context, rawURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &RedisCache{client: client}, nil
}

func (r *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
