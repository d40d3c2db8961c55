package cache

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// LRUCache is a size bounded cache whose entries expire after ttl.
type LRUCache[T any] struct {
	lru *lru.LRU[string, T]
}

// NewLRUCache creates a new LRU cache with TTL. A ttl of zero disables
// expiry.
func NewLRUCache[T any](maxSize int, ttl time.Duration) *LRUCache[T] {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &LRUCache[T]{lru: lru.NewLRU[string, T](maxSize, nil, ttl)}
}

func (c *LRUCache[T]) Get(key string) (T, bool) {
	return c.lru.Get(key)
}

func (c *LRUCache[T]) Set(key string, data T) {
	c.lru.Add(key, data)
}

func (c *LRUCache[T]) Delete(key string) {
	c.lru.Remove(key)
}

func (c *LRUCache[T]) Purge() {
	c.lru.Purge()
}

func (c *LRUCache[T]) Size() int {
	return c.lru.Len()
}
