package cache

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	shoperrors "github.com/yourusername/shopfront/pkg/errors"
)

// scanBatch is the COUNT hint used when iterating keys under the prefix.
const scanBatch = 100

// entryCountInterval is how long a scanned entry count is reused by Stats.
const entryCountInterval = 5 * time.Second

var errNoPrefix = errors.New("redis cache has no key prefix")

// RedisCache stores entries in redis under a key prefix.
//
// RedisCache 以键前缀在redis中存储条目。
type RedisCache struct {
	client     *redis.Client
	prefix     string
	defaultTTL time.Duration
	jitter     time.Duration

	hits   atomic.Int64
	misses atomic.Int64

	countMu   sync.Mutex
	count     int64
	countedAt time.Time
	now       func() time.Time
}

// NewRedisCache wraps an existing client. Only the key prefix, TTL and jitter
// settings of config are used.
//
// NewRedisCache 包装已有的客户端，仅使用config中的键前缀、TTL和抖动设置。
func NewRedisCache(client *redis.Client, config *Config) *RedisCache {
	if config == nil {
		config = NewDefaultConfig()
	}
	return &RedisCache{
		client:     client,
		prefix:     config.KeyPrefix,
		defaultTTL: config.DefaultTTL,
		jitter:     config.TTLJitter,
		now:        time.Now,
	}
}

func (r *RedisCache) key(k string) string {
	return r.prefix + k
}

// Get returns (nil, false, nil) on a miss.
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, shoperrors.ErrKeyEmpty
	}

	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		r.misses.Add(1)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	r.hits.Add(1)
	return data, true, nil
}

// Set writes the value with ttl plus a random jitter. A negative ttl stores
// the value without expiration.
func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return shoperrors.ErrKeyEmpty
	}

	switch {
	case ttl == 0:
		ttl = r.defaultTTL
	case ttl < 0:
		ttl = 0
	}
	if ttl > 0 && r.jitter > 0 {
		ttl += rand.N(r.jitter)
	}

	if err := r.client.Set(ctx, r.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Delete removes one key.
func (r *RedisCache) Delete(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Del(ctx, r.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis delete failed: %w", err)
	}
	return n > 0, nil
}

// Clear deletes every key under the prefix. Other data in the same database
// is left alone, so a cache without a prefix refuses to clear.
//
// Clear 删除前缀下的所有键，不影响同一数据库中的其他数据。没有前缀的缓存拒绝清空。
func (r *RedisCache) Clear(ctx context.Context) error {
	if r.prefix == "" {
		return errNoPrefix
	}
	r.countMu.Lock()
	r.countedAt = time.Time{}
	r.countMu.Unlock()

	keys, err := r.keys(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis clear failed: %w", err)
	}
	return nil
}

func (r *RedisCache) keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, r.prefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan failed: %w", err)
	}
	return keys, nil
}

// Stats reports hit/miss counts seen by this process and the number of keys
// under the prefix. The key count comes from a SCAN and is reused for
// entryCountInterval; Clear forces a rescan.
func (r *RedisCache) Stats(ctx context.Context) (*Stats, error) {
	count, err := r.entryCount(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{
		EntryCount: count,
		Hits:       r.hits.Load(),
		Misses:     r.misses.Load(),
	}, nil
}

func (r *RedisCache) entryCount(ctx context.Context) (int64, error) {
	r.countMu.Lock()
	defer r.countMu.Unlock()

	now := r.now()
	if !r.countedAt.IsZero() && now.Sub(r.countedAt) < entryCountInterval {
		return r.count, nil
	}
	keys, err := r.keys(ctx)
	if err != nil {
		return 0, err
	}
	r.count, r.countedAt = int64(len(keys)), now
	return r.count, nil
}

// Close closes the underlying client.
func (r *RedisCache) Close() error {
	return r.client.Close()
}
