package cache

import (
	"fmt"
	"time"
)

// Config defines the configuration options for a cache instance.
//
// Config 定义缓存实例的配置选项。
type Config struct {
	// Name of the cache instance, used for metrics and logging
	// 缓存实例的名称，用于指标收集和日志记录
	Name string `json:"name" yaml:"name" mapstructure:"name"`

	// Backend selects the storage: "memory" or "redis"
	// Backend 选择存储后端："memory" 或 "redis"
	Backend string `json:"backend" yaml:"backend" mapstructure:"backend"`

	// MaxEntries is the maximum number of entries held by the memory backend.
	// If set to 0, there is no limit on the number of entries.
	//
	// MaxEntries 是内存后端可以容纳的最大条目数，为0时不限制。
	MaxEntries int `json:"max_entries" yaml:"max_entries" mapstructure:"max_entries"`

	// DefaultTTL is the default time-to-live for cache entries.
	// If set to 0, entries don't expire by default.
	//
	// DefaultTTL 是缓存条目的默认生存时间，为0时条目默认不过期。
	DefaultTTL time.Duration `json:"default_ttl" yaml:"default_ttl" mapstructure:"default_ttl"`

	// CleanupInterval is the interval at which expired items are cleaned up.
	// Zero disables the janitor; expired entries are then dropped lazily.
	//
	// CleanupInterval 是清理过期项目的时间间隔，为0时禁用清理协程。
	CleanupInterval time.Duration `json:"cleanup_interval" yaml:"cleanup_interval" mapstructure:"cleanup_interval"`

	// KeyPrefix namespaces redis keys so Clear only touches this cache.
	// KeyPrefix 为redis键添加命名空间，使Clear只影响本缓存。
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix" mapstructure:"key_prefix"`

	// TTLJitter adds a random extra duration in [0, TTLJitter) to redis TTLs
	// so that snapshots written together do not expire together.
	//
	// TTLJitter 为redis的TTL增加 [0, TTLJitter) 的随机时长。
	TTLJitter time.Duration `json:"ttl_jitter" yaml:"ttl_jitter" mapstructure:"ttl_jitter"`

	// Redis connection settings, used when Backend is "redis"
	// Redis 连接设置，Backend为"redis"时使用
	Redis RedisConfig `json:"redis" yaml:"redis" mapstructure:"redis"`
}

// RedisConfig holds connection settings for the redis backend.
//
// RedisConfig 保存redis后端的连接设置。
type RedisConfig struct {
	Addr     string `json:"addr" yaml:"addr" mapstructure:"addr"`
	Password string `json:"password" yaml:"password" mapstructure:"password"`
	DB       int    `json:"db" yaml:"db" mapstructure:"db"`
}

// NewDefaultConfig returns a Config with sensible default values.
//
// NewDefaultConfig 返回具有合理默认值的Config。
func NewDefaultConfig() *Config {
	return &Config{
		Name:            "shopfront",
		Backend:         BackendMemory,
		MaxEntries:      1024,
		DefaultTTL:      30 * time.Second,
		CleanupInterval: time.Minute,
		KeyPrefix:       "shopfront:",
		TTLJitter:       0,
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
	}
}

// Validate checks if the configuration is valid.
//
// Validate 检查配置是否有效。
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("cache name cannot be empty")
	}

	switch c.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis address is required for the redis backend")
		}
		if c.KeyPrefix == "" {
			return fmt.Errorf("key prefix is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown cache backend: %q", c.Backend)
	}

	if c.MaxEntries < 0 {
		return fmt.Errorf("max entries cannot be negative")
	}

	if c.DefaultTTL < 0 {
		return fmt.Errorf("default TTL cannot be negative")
	}

	if c.CleanupInterval < 0 {
		return fmt.Errorf("cleanup interval cannot be negative")
	}

	if c.TTLJitter < 0 {
		return fmt.Errorf("ttl jitter cannot be negative")
	}

	return nil
}

// WithName sets the name of the cache instance.
//
// WithName 设置缓存实例的名称。
func (c *Config) WithName(name string) *Config {
	c.Name = name
	return c
}

// WithBackend sets the storage backend.
//
// WithBackend 设置存储后端。
func (c *Config) WithBackend(backend string) *Config {
	c.Backend = backend
	return c
}

// WithMaxEntries sets the maximum number of entries.
//
// WithMaxEntries 设置最大条目数。
func (c *Config) WithMaxEntries(max int) *Config {
	c.MaxEntries = max
	return c
}

// WithDefaultTTL sets the default TTL for cache entries.
//
// WithDefaultTTL 设置缓存条目的默认TTL。
func (c *Config) WithDefaultTTL(ttl time.Duration) *Config {
	c.DefaultTTL = ttl
	return c
}

// WithCleanupInterval sets the janitor interval.
//
// WithCleanupInterval 设置清理间隔。
func (c *Config) WithCleanupInterval(interval time.Duration) *Config {
	c.CleanupInterval = interval
	return c
}
