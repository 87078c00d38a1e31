package cache

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sipas/persuratan/internal/logging"
)

// MemoryStore is a process-local cache with per-entry TTL and a background sweeper
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]*Entry

	logger        *logging.Logger
	now           func() time.Time
	sweepInterval time.Duration
	reportSize    bool

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// Option configures a MemoryStore
type Option func(*MemoryStore)

// WithClock replaces time.Now, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(c *MemoryStore) {
		c.now = now
	}
}

// WithSizeGauge makes the store publish its entry count as sipas_cache_entries.
// Only the store serving the process should enable it.
func WithSizeGauge() Option {
	return func(c *MemoryStore) {
		c.reportSize = true
	}
}

// WithSweepInterval overrides the period of the background Clean
func WithSweepInterval(d time.Duration) Option {
	return func(c *MemoryStore) {
		if d > 0 {
			c.sweepInterval = d
		}
	}
}

// NewMemory creates an empty in-memory store. Call Start to run the sweeper.
func NewMemory(logger *logging.Logger, opts ...Option) *MemoryStore {
	c := &MemoryStore{
		items:         make(map[string]*Entry),
		logger:        logger,
		now:           time.Now,
		sweepInterval: DefaultSweepInterval,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start launches the periodic sweep. Calling it more than once has no effect.
func (c *MemoryStore) Start() {
	c.startOnce.Do(func() {
		go c.sweep()
	})
}

// Stop halts the sweeper and waits for it to exit. Safe to call repeatedly,
// and safe to call when Start was never called.
func (c *MemoryStore) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
	started := true
	c.startOnce.Do(func() { started = false })
	if started {
		<-c.doneCh
	}
}

func (c *MemoryStore) sweep() {
	defer close(c.doneCh)

	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := c.Clean(); n > 0 {
				c.logger.Debug("Cache sweep evicted expired entries", logging.WithField("count", n))
			}
		case <-c.stopCh:
			return
		}
	}
}

// recoverOp turns a panic inside a cache operation into a logged error.
// Callers rely on named results keeping their zero value.
func (c *MemoryStore) recoverOp(op, key string) {
	if r := recover(); r != nil {
		c.logger.Error("Cache operation failed", logging.WithFields(map[string]interface{}{
			"op":    op,
			"key":   key,
			"error": fmt.Sprint(r),
		}))
	}
}

func (c *MemoryStore) Get(key string) (value interface{}, ok bool) {
	defer c.recoverOp("get", key)

	now := c.now()

	c.mu.RLock()
	e, found := c.items[key]
	c.mu.RUnlock()

	if !found {
		return nil, false
	}
	if e.Expired(now) {
		c.mu.Lock()
		// re-check: a concurrent Set may have replaced the entry
		if cur, still := c.items[key]; still && cur.Expired(now) {
			delete(c.items, key)
			c.recordSize()
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.Value, true
}

func (c *MemoryStore) Set(key string, value interface{}, ttlSeconds int) {
	defer c.recoverOp("set", key)

	e := newEntry(key, value, normalizeTTL(ttlSeconds), c.now())

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = e
	c.recordSize()
}

func (c *MemoryStore) Delete(key string) (existed bool) {
	defer c.recoverOp("delete", key)

	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, found := c.items[key]
	if !found {
		return false
	}
	delete(c.items, key)
	c.recordSize()
	return !e.Expired(now)
}

func (c *MemoryStore) Clear() {
	defer c.recoverOp("clear", "")

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*Entry)
	c.recordSize()
}

// Clean evicts every expired entry and returns how many were removed
func (c *MemoryStore) Clean() (evicted int) {
	defer c.recoverOp("clean", "")

	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for key, e := range c.items {
		if e.Expired(now) {
			delete(c.items, key)
			evicted++
		}
	}
	c.recordSize()
	return evicted
}

// recordSize publishes the entry count. Callers hold the write lock.
func (c *MemoryStore) recordSize() {
	if c.reportSize {
		cacheSize.Set(float64(len(c.items)))
	}
}

func (c *MemoryStore) Has(key string) (present bool) {
	defer c.recoverOp("has", key)

	c.mu.RLock()
	defer c.mu.RUnlock()

	e, found := c.items[key]
	return found && !e.Expired(c.now())
}

// Stats lists live entries sorted by key
func (c *MemoryStore) Stats() (stats Stats) {
	defer c.recoverOp("stats", "")

	now := c.now()

	c.mu.RLock()
	entries := make([]EntryStat, 0, len(c.items))
	for key, e := range c.items {
		if e.Expired(now) {
			continue
		}
		entries = append(entries, EntryStat{Key: key, RemainingTTLSeconds: e.RemainingSeconds(now)})
	}
	c.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return Stats{Size: len(entries), Entries: entries}
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
