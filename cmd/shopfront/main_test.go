package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/yourusername/shopfront/configs"
	"github.com/yourusername/shopfront/internal/metrics"
	"github.com/yourusername/shopfront/pkg/cache"
)

func TestCacheConfigFromServiceConfig(t *testing.T) {
	cfg := configs.DefaultConfig()
	cfg.Cache.Backend = "redis"
	cfg.Redis.Addr = "cache:6379"
	cfg.Redis.DB = 2

	cc := cacheConfig(cfg)
	if err := cc.Validate(); err != nil {
		t.Fatalf("Expected converted config to be valid: %v", err)
	}
	if cc.Backend != "redis" || cc.Redis.Addr != "cache:6379" || cc.Redis.DB != 2 {
		t.Errorf("Unexpected cache config %+v", cc)
	}
	if cc.DefaultTTL != cfg.Cache.DefaultTTL || cc.KeyPrefix != cfg.Cache.KeyPrefix {
		t.Errorf("Expected ttl and prefix to carry over, got %+v", cc)
	}
}

func TestMetricsConfig(t *testing.T) {
	if got := metricsConfig(configs.MetricsConfig{Enable: false}); got.Level != metrics.Disabled {
		t.Errorf("Expected disabled metrics, got %v", got.Level)
	}
	got := metricsConfig(configs.MetricsConfig{Enable: true, HistogramBuckets: []float64{5, 50}})
	if got.Level != metrics.Detailed || len(got.HistogramBucketsMs) != 2 {
		t.Errorf("Unexpected metrics config %+v", got)
	}
}

func TestOpenCache(t *testing.T) {
	cfg := configs.DefaultConfig()
	cfg.Cache.Enable = false
	if c, err := openCache(cfg, ""); err != nil || c != nil {
		t.Fatalf("Expected no cache when disabled, got %v, %v", c, err)
	}

	cfg.Cache.Enable = true
	c, err := openCache(cfg, "")
	if err != nil {
		t.Fatalf("openCache failed: %v", err)
	}
	c.Close()

	path := filepath.Join(t.TempDir(), "cache.yaml")
	content := "name: catalog\nbackend: redis\nkey_prefix: \"sf:\"\nredis:\n  addr: localhost:0\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err = openCache(cfg, path)
	if err != nil {
		t.Fatalf("openCache from file failed: %v", err)
	}
	defer c.Close()
	if _, ok := c.(*cache.RedisCache); !ok {
		t.Errorf("Expected the file to select redis, got %T", c)
	}

	if _, err := openCache(cfg, filepath.Join(t.TempDir(), "cache.toml")); err == nil {
		t.Error("Expected error for a missing file")
	}
}
