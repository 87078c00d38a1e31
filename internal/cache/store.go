package cache

import "time"

const (
	// DefaultTTLSeconds applies when a caller omits the TTL on Set
	DefaultTTLSeconds = 300

	// DefaultSweepInterval is how often the background sweeper calls Clean
	DefaultSweepInterval = 5 * time.Minute
)

// Store defines the contract every cache backend honours.
// No method returns an error: a failing cache degrades to a miss.
type Store interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{}, ttlSeconds int)
	Delete(key string) bool
	Clear()
	Clean() int
	Has(key string) bool
	Stats() Stats
}

// Stats is a diagnostic snapshot of the store
type Stats struct {
	Size    int         `json:"size"`
	Entries []EntryStat `json:"entries"`
}

// EntryStat describes a single live entry
type EntryStat struct {
	Key                 string `json:"key"`
	RemainingTTLSeconds int    `json:"remainingTtlSeconds"`
}

func normalizeTTL(ttlSeconds int) time.Duration {
	if ttlSeconds <= 0 {
		ttlSeconds = DefaultTTLSeconds
	}
	return time.Duration(ttlSeconds) * time.Second
}
