package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// Store is a byte-oriented key/value cache with per-key expiry. Sessions
// are kept here.
//
// Usage:
//
//	store := NewMemoryCache()
//	err := store.Set(ctx, "session:abc", data, 30*time.Minute)
//	data, err = store.Get(ctx, "session:abc")
type Store interface {
	// Get returns the value for key or ErrCacheMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key. ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the underlying connection or files.
	Close() error
}

// Metrics is a snapshot of cache activity. Expired and Entries are only
// tracked by MemoryCache.
type Metrics struct {
	Hits      int64
	Misses    int64
	Errors    int64
	Expired   int64
	Entries   int64
	HitRatio  float64
	UpdatedAt time.Time
}

// MetricsSource is a Store that counts its own activity.
type MetricsSource interface {
	GetMetrics() Metrics
}

func hitRatio(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
