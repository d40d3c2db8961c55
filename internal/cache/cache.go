package cache

import (
	"context"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	// Get retrieves a value from the cache
	Get(key string) (T, bool)

	// Set stores a value in the cache
	Set(key string, data T)

	// Delete removes a key from the cache
	Delete(key string)

	// Purge drops every entry
	Purge()

	// Size returns the current number of items in the cache
	Size() int
}

// Loader fills a cache on miss. Concurrent misses for one key share a
// single load. A load that started before an Invalidate never stores its
// result.
type Loader[T any] struct {
	cache  Cache[T]
	group  singleflight.Group
	onLook func(hit bool)

	mu  sync.Mutex
	gen uint64
}

// NewLoader wraps c. onLookup, when non-nil, is told about every hit or miss.
func NewLoader[T any](c Cache[T], onLookup func(hit bool)) *Loader[T] {
	if onLookup == nil {
		onLookup = func(bool) {}
	}
	return &Loader[T]{cache: c, onLook: onLookup}
}

// Get returns the cached value for key or calls load and caches its
// result. Errors are not cached.
func (l *Loader[T]) Get(ctx context.Context, key string, load func(context.Context) (T, error)) (T, error) {
	if v, ok := l.cache.Get(key); ok {
		l.onLook(true)
		return v, nil
	}
	l.onLook(false)

	gen := l.generation()
	v, err, _ := l.group.Do(strconv.FormatUint(gen, 10)+":"+key, func() (any, error) {
		data, err := load(ctx)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		if l.gen == gen {
			l.cache.Set(key, data)
		}
		l.mu.Unlock()
		return data, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

func (l *Loader[T]) generation() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gen
}

// Invalidate drops every cached value and discards the results of loads
// still in flight.
func (l *Loader[T]) Invalidate() {
	l.mu.Lock()
	l.gen++
	l.cache.Purge()
	l.mu.Unlock()
}
