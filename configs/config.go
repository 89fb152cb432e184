// Package configs provides configuration structures and utilities for the
// shopfront service. Configuration is loaded from YAML or JSON files,
// overridden from the environment, validated, and optionally hot reloaded.
//
// Package configs 提供shopfront服务的配置结构和工具。
// 配置从YAML或JSON文件加载，可由环境变量覆盖，经过验证，并可选地热重载。
package configs

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yourusername/shopfront/pkg/pricing"
)

// Config represents the complete configuration of the service.
//
// Config 表示服务的完整配置。
type Config struct {
	// Server configures the HTTP listener
	// Server 配置HTTP监听器
	Server ServerConfig `json:"server" yaml:"server" mapstructure:"server"`

	// Backend points at the storefront REST backend
	// Backend 指向店面REST后端
	Backend BackendConfig `json:"backend" yaml:"backend" mapstructure:"backend"`

	// Cache contains settings for the catalog snapshot cache
	// Cache 包含目录快照缓存的设置
	Cache CacheConfig `json:"cache" yaml:"cache" mapstructure:"cache"`

	// Redis is used when Cache.Backend is "redis"
	// Redis 在Cache.Backend为"redis"时使用
	Redis RedisConfig `json:"redis" yaml:"redis" mapstructure:"redis"`

	// Pricing selects campaign resolution and badge formatting
	// Pricing 选择活动解析策略和徽章格式
	Pricing PricingConfig `json:"pricing" yaml:"pricing" mapstructure:"pricing"`

	// Metrics configures the metrics endpoint
	// Metrics 配置指标端点
	Metrics MetricsConfig `json:"metrics" yaml:"metrics" mapstructure:"metrics"`

	// Log configures the logging behavior
	// Log 配置日志行为
	Log LogConfig `json:"log" yaml:"log" mapstructure:"log"`

	// Extensions configures optional features like hot reloading
	// Extensions 配置可选功能，如热重载
	Extensions ExtensionsConfig `json:"extensions" yaml:"extensions" mapstructure:"extensions"`
}

// ServerConfig contains settings for the HTTP server.
//
// ServerConfig 包含HTTP服务器的设置。
type ServerConfig struct {
	Port            int           `json:"port" yaml:"port" mapstructure:"port"`
	Mode            string        `json:"mode" yaml:"mode" mapstructure:"mode"`
	ReadTimeout     time.Duration `json:"read_timeout" yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout" yaml:"write_timeout" mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// BackendConfig contains settings for the upstream storefront backend.
//
// BackendConfig 包含上游店面后端的设置。
type BackendConfig struct {
	// BaseURL is the root of the backend REST API, e.g. http://localhost:5000/api
	// BaseURL 是后端REST API的根地址
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// ProductsPath and CampaignsPath are joined to BaseURL
	// ProductsPath 和 CampaignsPath 拼接在BaseURL之后
	ProductsPath  string `json:"products_path" yaml:"products_path" mapstructure:"products_path"`
	CampaignsPath string `json:"campaigns_path" yaml:"campaigns_path" mapstructure:"campaigns_path"`

	// Timeout bounds each upstream request
	// Timeout 限制每个上游请求的时长
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// BreakerFailures is the number of consecutive failures that opens the circuit
	// BreakerFailures 是打开熔断器所需的连续失败次数
	BreakerFailures uint32 `json:"breaker_failures" yaml:"breaker_failures" mapstructure:"breaker_failures"`

	// BreakerCooldown is how long the circuit stays open before probing again
	// BreakerCooldown 是熔断器保持打开状态的时长
	BreakerCooldown time.Duration `json:"breaker_cooldown" yaml:"breaker_cooldown" mapstructure:"breaker_cooldown"`

	// ServiceToken is used for requests that carry no caller token.
	// Leave empty when the catalog endpoints are public.
	//
	// ServiceToken 用于未携带调用方令牌的请求，目录端点公开时留空。
	ServiceToken string `json:"service_token" yaml:"service_token" mapstructure:"service_token"`
}

// CacheConfig contains settings for the cache itself.
//
// CacheConfig 包含缓存本身的设置。
type CacheConfig struct {
	// Enable determines whether catalog snapshots are cached
	// Enable 确定是否缓存目录快照
	Enable bool `json:"enable" yaml:"enable" mapstructure:"enable"`

	// Name is the identifier for this cache instance
	// Name 是此缓存实例的标识符
	Name string `json:"name" yaml:"name" mapstructure:"name"`

	// Backend is "memory" or "redis"
	// Backend 为 "memory" 或 "redis"
	Backend string `json:"backend" yaml:"backend" mapstructure:"backend"`

	// MaxEntries is the maximum number of items the memory backend holds (0 = unlimited)
	// MaxEntries 是内存后端可以容纳的最大项目数（0 = 无限制）
	MaxEntries int `json:"max_entries" yaml:"max_entries" mapstructure:"max_entries"`

	// DefaultTTL is the default time-to-live for cache entries
	// DefaultTTL 是缓存条目的默认生存时间
	DefaultTTL time.Duration `json:"default_ttl" yaml:"default_ttl" mapstructure:"default_ttl"`

	// CleanupInterval is how often expired items are removed
	// CleanupInterval 是清除过期项目的频率
	CleanupInterval time.Duration `json:"cleanup_interval" yaml:"cleanup_interval" mapstructure:"cleanup_interval"`

	KeyPrefix string        `json:"key_prefix" yaml:"key_prefix" mapstructure:"key_prefix"`
	TTLJitter time.Duration `json:"ttl_jitter" yaml:"ttl_jitter" mapstructure:"ttl_jitter"`

	// Codec names the serialization codec ("json" or "gob")
	// Codec 指定序列化编解码器（"json" 或 "gob"）
	Codec string `json:"codec" yaml:"codec" mapstructure:"codec"`

	// ScopeByToken keys snapshots per caller credential instead of sharing them
	// ScopeByToken 按调用方凭证区分快照，而不是共享
	ScopeByToken bool `json:"scope_by_token" yaml:"scope_by_token" mapstructure:"scope_by_token"`

	// ServeStale returns the last good snapshot while the backend is failing
	// ServeStale 在后端故障时返回最后一次成功的快照
	ServeStale bool `json:"serve_stale" yaml:"serve_stale" mapstructure:"serve_stale"`
}

// RedisConfig contains redis connection settings.
//
// RedisConfig 包含redis连接设置。
type RedisConfig struct {
	Addr     string `json:"addr" yaml:"addr" mapstructure:"addr"`
	Password string `json:"password" yaml:"password" mapstructure:"password"`
	DB       int    `json:"db" yaml:"db" mapstructure:"db"`
}

// PricingConfig contains settings for price evaluation.
//
// PricingConfig 包含价格计算的设置。
type PricingConfig struct {
	// Resolution is "list_order" (default) or "prefer_embedded"
	// Resolution 为 "list_order"（默认）或 "prefer_embedded"
	Resolution string `json:"resolution" yaml:"resolution" mapstructure:"resolution"`

	// CurrencySymbol prefixes fixed-amount badges
	// CurrencySymbol 是固定金额徽章的货币前缀
	CurrencySymbol string `json:"currency_symbol" yaml:"currency_symbol" mapstructure:"currency_symbol"`

	// EnforceWindow drops campaigns outside their start/end dates
	// EnforceWindow 排除不在起止日期内的活动
	EnforceWindow bool `json:"enforce_window" yaml:"enforce_window" mapstructure:"enforce_window"`
}

// MetricsConfig contains settings for metrics collection.
//
// MetricsConfig 包含指标收集的设置。
type MetricsConfig struct {
	// Enable determines whether metrics collection is active
	// Enable 确定是否启用指标收集
	Enable bool `json:"enable" yaml:"enable" mapstructure:"enable"`

	// Path is where the Prometheus text exposition is served
	// Path 是Prometheus文本格式的暴露路径
	Path string `json:"path" yaml:"path" mapstructure:"path"`

	// HistogramBuckets defines latency histogram buckets in milliseconds
	// HistogramBuckets 定义延迟直方图桶（毫秒）
	HistogramBuckets []float64 `json:"histogram_buckets" yaml:"histogram_buckets" mapstructure:"histogram_buckets"`
}

// LogConfig contains settings for logging.
//
// LogConfig 包含日志记录的设置。
type LogConfig struct {
	// Level sets the minimum log level ("debug", "info", "warn", "error")
	// Level 设置最低日志级别（"debug"、"info"、"warn"、"error"）
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format specifies the log format ("text", "json")
	// Format 指定日志格式（"text"、"json"）
	Format string `json:"format" yaml:"format" mapstructure:"format"`

	// Output is "stdout", "stderr" or a file path
	// Output 为 "stdout"、"stderr" 或文件路径
	Output string `json:"output" yaml:"output" mapstructure:"output"`
}

// ExtensionsConfig contains settings for extensions.
//
// ExtensionsConfig 包含扩展的设置。
type ExtensionsConfig struct {
	// HotReload contains settings for dynamic configuration reloading
	// HotReload 包含动态配置重新加载的设置
	HotReload HotReloadConfig `json:"hot_reload" yaml:"hot_reload" mapstructure:"hot_reload"`
}

// HotReloadConfig contains settings for hot reloading.
// A zero WatchInterval uses file system notifications; a positive one polls.
//
// HotReloadConfig 包含热重载的设置。
// WatchInterval为0时使用文件系统通知，为正数时轮询。
type HotReloadConfig struct {
	Enable        bool          `json:"enable" yaml:"enable" mapstructure:"enable"`
	WatchInterval time.Duration `json:"watch_interval" yaml:"watch_interval" mapstructure:"watch_interval"`
}

// DefaultConfig returns a new Config with default values.
//
// DefaultConfig 返回具有默认值的新Config。
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			Mode:            "release",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Backend: BackendConfig{
			BaseURL:         "http://localhost:5000/api",
			ProductsPath:    "/products",
			CampaignsPath:   "/campaigns",
			Timeout:         5 * time.Second,
			BreakerFailures: 5,
			BreakerCooldown: 30 * time.Second,
		},
		Cache: CacheConfig{
			Enable:          true,
			Name:            "shopfront",
			Backend:         "memory",
			MaxEntries:      1024,
			DefaultTTL:      30 * time.Second,
			CleanupInterval: time.Minute,
			KeyPrefix:       "shopfront:",
			Codec:           "json",
			ServeStale:      true,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Pricing: PricingConfig{
			Resolution:     string(pricing.ListOrder),
			CurrencySymbol: pricing.DefaultCurrencySymbol,
		},
		Metrics: MetricsConfig{
			Enable:           true,
			Path:             "/metrics",
			HistogramBuckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		Extensions: ExtensionsConfig{
			HotReload: HotReloadConfig{
				Enable: false,
			},
		},
	}
}

// LoadFromFile loads configuration from a file.
// The format is chosen by the file extension.
//
// LoadFromFile 从文件加载配置，格式由文件扩展名决定。
func LoadFromFile(filename string) (*Config, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open configuration file: %w", err)
	}
	defer file.Close()

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	return LoadFromReader(file, ext)
}

// LoadFromReader loads configuration from an io.Reader.
//
// LoadFromReader 从io.Reader加载配置。
//
// Parameters:
//   - r: The reader providing the configuration data
//   - format: The format of the data ("json", "yaml", or "yml")
func LoadFromReader(r io.Reader, format string) (*Config, error) {
	config := DefaultConfig()
	var err error

	switch strings.ToLower(format) {
	case "yaml", "yml":
		err = yaml.NewDecoder(r).Decode(config)
	case "json":
		err = json.NewDecoder(r).Decode(config)
	default:
		return nil, fmt.Errorf("unsupported configuration format: %s", format)
	}

	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a file.
// It supports both YAML and JSON formats, selected by the file extension.
//
// SaveToFile 将配置保存到文件，根据文件扩展名选择YAML或JSON格式。
func (c *Config) SaveToFile(filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".yaml" && ext != ".yml" && ext != ".json" {
		return fmt.Errorf("unsupported configuration file format: %s", ext)
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}
	defer file.Close()

	if ext == ".json" {
		encoder := json.NewEncoder(file)
		encoder.SetIndent("", "  ")
		err = encoder.Encode(c)
	} else {
		encoder := yaml.NewEncoder(file)
		defer encoder.Close()
		err = encoder.Encode(c)
	}
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	return nil
}

// Validate validates the configuration.
//
// Validate 验证配置。
func (c *Config) Validate() error {
	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("server.mode must be one of: debug, release, test")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive")
	}

	// Backend
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("backend.base_url must be an absolute URL")
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("backend.timeout must be positive")
	}
	if c.Backend.BreakerFailures == 0 {
		return fmt.Errorf("backend.breaker_failures must be positive")
	}

	// Cache
	if c.Cache.Enable {
		switch c.Cache.Backend {
		case "memory":
		case "redis":
			if c.Redis.Addr == "" {
				return fmt.Errorf("redis.addr is required when cache.backend is redis")
			}
			if c.Cache.KeyPrefix == "" {
				return fmt.Errorf("cache.key_prefix is required when cache.backend is redis")
			}
		default:
			return fmt.Errorf("cache.backend must be one of: memory, redis")
		}
		if c.Cache.MaxEntries < 0 {
			return fmt.Errorf("cache.max_entries must be non-negative")
		}
		if c.Cache.DefaultTTL < 0 || c.Cache.CleanupInterval < 0 || c.Cache.TTLJitter < 0 {
			return fmt.Errorf("cache durations must be non-negative")
		}
		switch c.Cache.Codec {
		case "", "json", "gob":
		default:
			return fmt.Errorf("cache.codec must be one of: json, gob")
		}
	}

	// Pricing
	if _, err := pricing.ParseResolution(c.Pricing.Resolution); err != nil {
		return fmt.Errorf("pricing.resolution: %w", err)
	}

	// Log
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format must be one of: text, json")
	}

	// Extensions
	if c.Extensions.HotReload.WatchInterval < 0 {
		return fmt.Errorf("extensions.hot_reload.watch_interval must be non-negative")
	}

	return nil
}
