package cache

import "time"

// Option is a function that configures a Config.
//
// Option 是一个配置Config的函数。
type Option func(*Config)

// WithMaxEntryCount sets the maximum number of entries in the cache.
// If set to 0, there is no limit on the number of entries.
//
// WithMaxEntryCount 设置缓存中的最大条目数。
// 如果设置为0，则条目数量没有限制。
func WithMaxEntryCount(count int) Option {
	return func(c *Config) {
		c.MaxEntries = count
	}
}

// WithTTL sets the default time-to-live for cache entries.
//
// WithTTL 设置缓存条目的默认生存时间。
func WithTTL(ttl time.Duration) Option {
	return func(c *Config) {
		c.DefaultTTL = ttl
	}
}

// WithCleanupInterval sets how often the janitor sweeps expired entries.
//
// WithCleanupInterval 设置清理协程扫描过期条目的频率。
func WithCleanupInterval(interval time.Duration) Option {
	return func(c *Config) {
		c.CleanupInterval = interval
	}
}

// WithRedis selects the redis backend at addr.
//
// WithRedis 选择位于addr的redis后端。
func WithRedis(addr, password string, db int) Option {
	return func(c *Config) {
		c.Backend = BackendRedis
		c.Redis = RedisConfig{Addr: addr, Password: password, DB: db}
	}
}

// WithKeyPrefix sets the redis key namespace.
func WithKeyPrefix(prefix string) Option {
	return func(c *Config) {
		c.KeyPrefix = prefix
	}
}

// WithTTLJitter spreads redis expirations over [ttl, ttl+jitter).
func WithTTLJitter(jitter time.Duration) Option {
	return func(c *Config) {
		c.TTLJitter = jitter
	}
}

// NewWithOptions creates a new cache instance with the provided options.
//
// NewWithOptions 创建一个具有提供的选项的新缓存实例。
func NewWithOptions(name string, options ...Option) (ICache, error) {
	config := NewDefaultConfig()
	config.Name = name

	for _, option := range options {
		option(config)
	}

	return New(config)
}
