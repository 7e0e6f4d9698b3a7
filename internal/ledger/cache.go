// internal/ledger/cache.go
package ledger

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache holds derived addresses and slow-changing venue accounts.
// Entries expire after the TTL chosen by the implementation.
type Cache interface {
	Get(key string) (any, bool)
	Add(key string, value any)
}

const (
	DefaultCacheSize = 4096
	DefaultCacheTTL  = 30 * time.Second
)

type lruCache struct {
	lru *expirable.LRU[string, any]
}

// NewCache returns an expiring LRU cache.
func NewCache(size int, ttl time.Duration) Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &lruCache{lru: expirable.NewLRU[string, any](size, nil, ttl)}
}

func (c *lruCache) Get(key string) (any, bool) {
	return c.lru.Get(key)
}

func (c *lruCache) Add(key string, value any) {
	c.lru.Add(key, value)
}

type nopCache struct{}

// NopCache never stores anything.
func NopCache() Cache { return nopCache{} }

func (nopCache) Get(string) (any, bool) { return nil, false }
func (nopCache) Add(string, any)        {}

// cached returns the typed value under key, computing and storing it on a miss.
func cached[T any](c Cache, key string, load func() (T, error)) (T, error) {
	if v, ok := c.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}
	v, err := load()
	if err != nil {
		var zero T
		return zero, err
	}
	c.Add(key, v)
	return v, nil
}
