package cache

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// New creates a new cache instance with the provided configuration.
// If config is nil, default configuration will be used.
//
// New 创建一个具有提供的配置的新缓存实例。
// 如果config为nil，将使用默认配置。
func New(config *Config) (ICache, error) {
	if config == nil {
		config = NewDefaultConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cache configuration: %w", err)
	}

	switch config.Backend {
	case BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     config.Redis.Addr,
			Password: config.Redis.Password,
			DB:       config.Redis.DB,
		})
		return NewRedisCache(client, config), nil
	default:
		return newMemoryCache(config), nil
	}
}

// NewFromJSON creates a new cache instance from a JSON configuration.
//
// NewFromJSON 从JSON配置创建新的缓存实例。
func NewFromJSON(reader io.Reader) (ICache, error) {
	config := NewDefaultConfig()
	if err := json.NewDecoder(reader).Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode JSON configuration: %w", err)
	}
	return New(config)
}

// NewFromYAML creates a new cache instance from a YAML configuration.
//
// NewFromYAML 从YAML配置创建新的缓存实例。
func NewFromYAML(reader io.Reader) (ICache, error) {
	config := NewDefaultConfig()
	if err := yaml.NewDecoder(reader).Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode YAML configuration: %w", err)
	}
	return New(config)
}

// NewFromFile creates a new cache instance from a configuration file.
// The file format (JSON or YAML) is determined by the file extension.
//
// NewFromFile 从配置文件创建新的缓存实例。
// 文件格式（JSON或YAML）由文件扩展名确定。
func NewFromFile(filename string) (ICache, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open configuration file: %w", err)
	}
	defer file.Close()

	switch filepath.Ext(filename) {
	case ".json":
		return NewFromJSON(file)
	case ".yaml", ".yml":
		return NewFromYAML(file)
	}
	return nil, fmt.Errorf("unsupported file format for %s", filename)
}
