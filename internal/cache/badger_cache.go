package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/annel0/game-hub/internal/logging"
	"github.com/dgraph-io/badger/v3"
)

// BadgerCache implements Store on an embedded BadgerDB. Expiry uses
// Badger's native entry TTL.
type BadgerCache struct {
	db *badger.DB

	hits   int64
	misses int64
	errors int64
}

// NewBadgerCache opens (or creates) a Badger database at path. An empty
// path opens an in-memory database.
func NewBadgerCache(path string) (*BadgerCache, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}
	logging.GetStorageLogger().Info("Badger cache opened: %q", path)
	return &BadgerCache{db: db}, nil
}

func (b *BadgerCache) Get(_ context.Context, key string) ([]byte, error) {
	var out []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		atomic.AddInt64(&b.misses, 1)
		return nil, ErrCacheMiss
	}
	if err != nil {
		atomic.AddInt64(&b.errors, 1)
		return nil, fmt.Errorf("badger get error: %w", err)
	}
	atomic.AddInt64(&b.hits, 1)
	return out, nil
}

func (b *BadgerCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		atomic.AddInt64(&b.errors, 1)
		return fmt.Errorf("badger set error: %w", err)
	}
	return nil
}

func (b *BadgerCache) Delete(_ context.Context, key string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		atomic.AddInt64(&b.errors, 1)
		return fmt.Errorf("badger delete error: %w", err)
	}
	return nil
}

// Close flushes and closes the database.
func (b *BadgerCache) Close() error {
	return b.db.Close()
}

// GetMetrics returns hit/miss/error counters.
func (b *BadgerCache) GetMetrics() Metrics {
	hits := atomic.LoadInt64(&b.hits)
	misses := atomic.LoadInt64(&b.misses)
	return Metrics{
		Hits:      hits,
		Misses:    misses,
		Errors:    atomic.LoadInt64(&b.errors),
		HitRatio:  hitRatio(hits, misses),
		UpdatedAt: time.Now(),
	}
}
