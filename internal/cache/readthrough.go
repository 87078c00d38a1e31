package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Loader fronts a Store with read-through loading. Concurrent misses on the
// same key share one call to the load function.
type Loader struct {
	store Store
	group singleflight.Group

	mu          sync.Mutex
	generations map[string]uint64
}

// NewLoader creates a loader over the given store
func NewLoader(store Store) *Loader {
	return &Loader{store: store, generations: make(map[string]uint64)}
}

func (l *Loader) generation(key string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.generations[key]
}

// forget marks in-flight loads of key as stale so their result is not cached,
// and lets the next reader start a fresh load.
func (l *Loader) forget(key string) {
	l.mu.Lock()
	l.generations[key]++
	l.mu.Unlock()
	l.group.Forget(key)
}

// setIfCurrent stores v only when no invalidation happened since gen was read
func (l *Loader) setIfCurrent(key string, gen uint64, v interface{}, ttlSeconds int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.generations[key] != gen {
		return
	}
	l.store.Set(key, v, ttlSeconds)
}

// Store returns the underlying store
func (l *Loader) Store() Store {
	return l.store
}

// GetAs reads key and converts the value to T. Memory-backed values are type
// asserted; JSON payloads from Redis are decoded. Anything else is a miss.
func GetAs[T any](store Store, key string) (T, bool) {
	var zero T

	v, ok := store.Get(key)
	if !ok {
		return zero, false
	}

	switch typed := v.(type) {
	case T:
		return typed, true
	case json.RawMessage:
		var out T
		if err := json.Unmarshal(typed, &out); err != nil {
			return zero, false
		}
		return out, true
	case []byte:
		var out T
		if err := json.Unmarshal(typed, &out); err != nil {
			return zero, false
		}
		return out, true
	}
	return zero, false
}

// ReadThrough returns the cached value for key, or calls load, caches its
// result for ttlSeconds and returns it. Load errors are never cached.
func ReadThrough[T any](ctx context.Context, l *Loader, key string, ttlSeconds int, load func(context.Context) (T, error)) (T, error) {
	if v, ok := GetAs[T](l.store, key); ok {
		cacheHits.WithLabelValues(key).Inc()
		return v, nil
	}
	cacheMisses.WithLabelValues(key).Inc()

	ch := l.group.DoChan(key, func() (interface{}, error) {
		gen := l.generation(key)
		// detached so one caller's cancellation does not fail the others
		v, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		l.setIfCurrent(key, gen, v, ttlSeconds)
		return v, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		v, ok := res.Val.(T)
		if !ok {
			return zero, fmt.Errorf("cache: loader for %q returned %T", key, res.Val)
		}
		return v, nil
	}
}
