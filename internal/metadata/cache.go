package metadata

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	config "github.com/ledgerlens/defi-insight/configs"
)

const (
	DefaultTTL           = 7 * 24 * time.Hour
	DefaultMemoryEntries = 50000
)

// NewCache picks the configured backend. Redis wins over Badger, which wins
// over the in-memory cache used when nothing is configured.
func NewCache(cfg config.MetadataCacheConfig, ttl time.Duration) (Cache, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if cfg.Redis != nil && cfg.Redis.Addr != "" {
		return NewRedisCache(cfg.Redis)
	}
	if cfg.Badger != nil {
		return NewBadgerCache(cfg.Badger)
	}
	maxItems := DefaultMemoryEntries
	if cfg.Memory != nil && cfg.Memory.MaxItems > 0 {
		maxItems = cfg.Memory.MaxItems
	}
	return NewMemoryCache(maxItems, ttl), nil
}

// MemoryCache is a bounded LRU whose entries expire after the cache TTL.
// Per-entry TTLs larger than the cache TTL are capped by it.
type MemoryCache struct {
	lru *expirable.LRU[string, memoryEntry]
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func NewMemoryCache(maxItems int, ttl time.Duration) *MemoryCache {
	return &MemoryCache{lru: expirable.NewLRU[string, memoryEntry](maxItems, nil, ttl)}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	e, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		c.lru.Remove(key)
		return nil, false
	}
	return e.value, true
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	c.lru.Add(key, e)
	return nil
}

func (c *MemoryCache) Len() int {
	return c.lru.Len()
}

func (c *MemoryCache) Close() error {
	c.lru.Purge()
	return nil
}

func cacheKey(kind, network, address string) string {
	return fmt.Sprintf("%s:%s:%s", kind, network, address)
}
