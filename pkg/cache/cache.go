// Package cache stores serialized catalog snapshots in front of the
// storefront backend. Two backends are available: an in-process map with a
// janitor, and Redis for deployments that run several replicas.
//
// Package cache 在店面后端前缓存序列化的目录快照。
// 提供两种后端：带清理协程的进程内映射，以及用于多副本部署的Redis。
package cache

import (
	"context"
	"time"
)

// Backend names accepted by Config.Backend.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// ICache defines the interface for the cache.
// All methods are thread-safe and can be called concurrently.
// Values are opaque bytes; encoding is the caller's concern (see pkg/codec).
//
// ICache 定义缓存的接口。
// 所有方法都是线程安全的，可以并发调用。
// 值是不透明的字节，编码由调用方负责（参见 pkg/codec）。
type ICache interface {
	// Get retrieves a value from the cache.
	// If the key is not found or has expired, (nil, false, nil) is returned.
	//
	// Get 从缓存中检索值。
	// 如果未找到键或键已过期，则返回 (nil, false, nil)。
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with the specified TTL.
	// If ttl is 0, the default TTL from the configuration is used.
	// If ttl is negative, the entry does not expire.
	//
	// Set 存储值并指定TTL。
	// 如果ttl为0，则使用配置中的默认TTL；如果ttl为负数，则条目不会过期。
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache.
	// Returns true if the key was found and removed.
	//
	// Delete 从缓存中删除值。如果找到并删除了键，则返回true。
	Delete(ctx context.Context, key string) (bool, error)

	// Clear removes all values owned by this cache.
	//
	// Clear 删除此缓存拥有的所有值。
	Clear(ctx context.Context) error

	// Stats returns statistics about the cache.
	//
	// Stats 返回有关缓存的统计信息。
	Stats(ctx context.Context) (*Stats, error)

	// Close releases resources. The cache must not be used afterwards.
	//
	// Close 释放资源。调用后不应再使用缓存。
	Close() error
}

// Stats represents cache statistics.
//
// Stats 表示缓存统计信息。
type Stats struct {
	// EntryCount is the current number of entries in the cache
	// EntryCount 是缓存中当前的条目数量
	EntryCount int64 `json:"entry_count"`

	// Hits is the number of successful cache retrievals
	// Hits 是成功的缓存检索次数
	Hits int64 `json:"hits"`

	// Misses is the number of cache retrievals where the key was not found
	// Misses 是未找到键的缓存检索次数
	Misses int64 `json:"misses"`

	// Evictions counts entries removed because the cache was full
	// Evictions 是由于容量限制而删除的条目数
	Evictions int64 `json:"evictions"`

	// Expired counts entries removed by the janitor
	// Expired 是清理协程删除的过期条目数
	Expired int64 `json:"expired"`

	// Size is the total size of stored values in bytes
	// Size 是已存储值的总字节数
	Size int64 `json:"size"`
}

// HitRatio returns hits / (hits + misses), or 0 before the first lookup.
func (s *Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
