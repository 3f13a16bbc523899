package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/annel0/game-hub/internal/logging"
	"github.com/go-redis/redis/v8"
)

// RedisConfig holds connection settings for RedisCache.
type RedisConfig struct {
	URL            string
	Password       string
	DB             int
	MaxConnections int
	PoolTimeout    time.Duration
	// MaxTTL caps every Set; zero disables the cap.
	MaxTTL time.Duration
}

// RedisCache implements Store on a Redis server, so sessions survive
// restarts and are shared between instances.
type RedisCache struct {
	client *redis.Client
	config RedisConfig

	hits   int64
	misses int64
	errors int64
}

// NewRedisCache connects to Redis and verifies the connection.
//
// Parameters:
//
//	ctx - bounds the initial ping
//	config - address, credentials and pool settings
//
// Returns:
//
//	*RedisCache - ready to use
//	error - connection failure
func NewRedisCache(ctx context.Context, config RedisConfig) (*RedisCache, error) {
	if config.MaxConnections == 0 {
		config.MaxConnections = 10
	}
	if config.PoolTimeout == 0 {
		config.PoolTimeout = 30 * time.Second
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         config.URL,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.MaxConnections,
		PoolTimeout:  config.PoolTimeout,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.GetStorageLogger().Info("Redis cache connected: %s", config.URL)
	return newRedisCache(rdb, config), nil
}

func newRedisCache(client *redis.Client, config RedisConfig) *RedisCache {
	return &RedisCache{client: client, config: config}
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if err == nil {
		atomic.AddInt64(&r.hits, 1)
		return val, nil
	}
	if errors.Is(err, redis.Nil) {
		atomic.AddInt64(&r.misses, 1)
		return nil, ErrCacheMiss
	}
	atomic.AddInt64(&r.errors, 1)
	logging.GetStorageLogger().Error("Redis Get error for key %s: %v", key, err)
	return nil, fmt.Errorf("redis get error: %w", err)
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if r.config.MaxTTL > 0 && (ttl == 0 || ttl > r.config.MaxTTL) {
		ttl = r.config.MaxTTL
	}
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		atomic.AddInt64(&r.errors, 1)
		logging.GetStorageLogger().Error("Redis Set error for key %s: %v", key, err)
		return fmt.Errorf("redis set error: %w", err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		atomic.AddInt64(&r.errors, 1)
		return fmt.Errorf("redis delete error: %w", err)
	}
	return nil
}

// Close closes the client pool.
func (r *RedisCache) Close() error {
	logging.GetStorageLogger().Info("Closing Redis cache")
	return r.client.Close()
}

// GetMetrics returns hit/miss/error counters.
func (r *RedisCache) GetMetrics() Metrics {
	hits := atomic.LoadInt64(&r.hits)
	misses := atomic.LoadInt64(&r.misses)
	return Metrics{
		Hits:      hits,
		Misses:    misses,
		Errors:    atomic.LoadInt64(&r.errors),
		HitRatio:  hitRatio(hits, misses),
		UpdatedAt: time.Now(),
	}
}
