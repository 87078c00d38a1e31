// Package ratelimit throttles requests per key (client IP for logins)
// with one token bucket per key.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter hands out a token bucket per key
type Limiter struct {
	mu    sync.Mutex
	keys  map[string]*bucket
	every time.Duration
	burst int
	now   func() time.Time
}

// New allows burst events per key, refilled one token every interval.
// A zero interval disables limiting.
func New(interval time.Duration, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		keys:  make(map[string]*bucket),
		every: interval,
		burst: burst,
		now:   time.Now,
	}
}

// PerMinute allows n events per minute per key with a burst of n
func PerMinute(n int) *Limiter {
	if n <= 0 {
		return New(0, 1)
	}
	return New(time.Minute/time.Duration(n), n)
}

func (l *Limiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.keys[key]
	if !ok {
		limit := rate.Inf
		if l.every > 0 {
			limit = rate.Every(l.every)
		}
		b = &bucket{limiter: rate.NewLimiter(limit, l.burst)}
		l.keys[key] = b
	}
	b.lastSeen = l.now()
	return b.limiter
}

// Allow reports whether an event for key may happen now, consuming a token
func (l *Limiter) Allow(key string) bool {
	return l.get(key).Allow()
}

// Wait blocks until an event for key is permitted or ctx is done
func (l *Limiter) Wait(ctx context.Context, key string) error {
	return l.get(key).Wait(ctx)
}

// RetryAfter estimates how long until key gets its next token
func (l *Limiter) RetryAfter(key string) time.Duration {
	r := l.get(key).Reserve()
	d := r.Delay()
	r.Cancel()
	return d
}

// Reset forgets the bucket for key
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.keys, key)
}

// ResetAll forgets every bucket
func (l *Limiter) ResetAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys = make(map[string]*bucket)
}

// Prune drops buckets idle for longer than maxIdle and returns how many went
func (l *Limiter) Prune(maxIdle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-maxIdle)
	removed := 0
	for key, b := range l.keys {
		if b.lastSeen.Before(cutoff) {
			delete(l.keys, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.keys)
}
