package cache

import (
	"math"
	"time"
)

// Entry is a single cached value with its expiry metadata
type Entry struct {
	Key       string
	Value     interface{}
	ExpiresAt time.Time
	CreatedAt time.Time
}

func newEntry(key string, value interface{}, ttl time.Duration, now time.Time) *Entry {
	return &Entry{
		Key:       key,
		Value:     value,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
}

// Expired reports whether the entry is past its expiry at the given instant.
// An entry is still visible at exactly ExpiresAt.
func (e *Entry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// RemainingTTL returns the time left before expiry, never negative
func (e *Entry) RemainingTTL(now time.Time) time.Duration {
	remaining := e.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RemainingSeconds rounds the remaining TTL up to whole seconds
func (e *Entry) RemainingSeconds(now time.Time) int {
	return int(math.Ceil(e.RemainingTTL(now).Seconds()))
}
