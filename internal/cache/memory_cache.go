package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/annel0/game-hub/internal/logging"
	"gopkg.in/tomb.v2"
)

// DefaultSweepInterval is how often expired entries are purged.
const DefaultSweepInterval = time.Minute

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache keeps entries in process memory. Expired entries are dropped
// on access, by a sweep during Set once per sweep interval, and by the
// janitor when one is running.
type MemoryCache struct {
	mu        sync.Mutex
	entries   map[string]memoryEntry
	now       func() time.Time
	interval  time.Duration
	nextSweep time.Time

	t       tomb.Tomb
	janitor bool

	hits    int64
	misses  int64
	expired int64
}

// NewMemoryCache returns an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries:  make(map[string]memoryEntry),
		now:      time.Now,
		interval: DefaultSweepInterval,
	}
}

// StartJanitor purges expired entries every interval until Close, so idle
// processes release abandoned sessions too.
func (m *MemoryCache) StartJanitor(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	m.mu.Lock()
	m.interval = interval
	m.janitor = true
	m.mu.Unlock()
	m.t.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := m.Sweep(); n > 0 {
					logging.GetStorageLogger().Debug("memory cache swept %d expired entries", n)
				}
			case <-m.t.Dying():
				return nil
			}
		}
	})
}

// Sweep removes every expired entry and returns how many were removed.
func (m *MemoryCache) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweepLocked(m.now())
}

func (m *MemoryCache) sweepLocked(now time.Time) int {
	removed := 0
	for key, entry := range m.entries {
		if !entry.expiresAt.IsZero() && !now.Before(entry.expiresAt) {
			delete(m.entries, key)
			removed++
		}
	}
	m.nextSweep = now.Add(m.interval)
	atomic.AddInt64(&m.expired, int64(removed))
	return removed
}

// Len returns the number of stored entries, expired or not.
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// SetClock replaces the time source. Used by tests to force expiry.
func (m *MemoryCache) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if ok && !entry.expiresAt.IsZero() && !m.now().Before(entry.expiresAt) {
		delete(m.entries, key)
		ok = false
	}
	if !ok {
		atomic.AddInt64(&m.misses, 1)
		return nil, ErrCacheMiss
	}
	atomic.AddInt64(&m.hits, 1)

	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if !now.Before(m.nextSweep) {
		m.sweepLocked(now)
	}

	entry := memoryEntry{value: make([]byte, len(value))}
	copy(entry.value, value)
	if ttl > 0 {
		entry.expiresAt = now.Add(ttl)
	}
	m.entries[key] = entry
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Close stops the janitor, if running.
func (m *MemoryCache) Close() error {
	m.mu.Lock()
	running := m.janitor
	m.janitor = false
	m.mu.Unlock()
	if !running {
		return nil
	}
	m.t.Kill(nil)
	return m.t.Wait()
}

// GetMetrics returns hit/miss counters and the live entry count.
func (m *MemoryCache) GetMetrics() Metrics {
	hits := atomic.LoadInt64(&m.hits)
	misses := atomic.LoadInt64(&m.misses)
	return Metrics{
		Hits:      hits,
		Misses:    misses,
		Expired:   atomic.LoadInt64(&m.expired),
		Entries:   int64(m.Len()),
		HitRatio:  hitRatio(hits, misses),
		UpdatedAt: time.Now(),
	}
}
