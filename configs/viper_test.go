package configs

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

// TestViperConfigFileAndEnv verifies the precedence defaults < file < environment.
//
// TestViperConfigFileAndEnv 验证优先级：默认值 < 文件 < 环境变量。
func TestViperConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shopfront.yaml")
	writeFile(t, path, `
server:
  port: 9000
backend:
  base_url: "http://backend:5000/api"
cache:
  default_ttl: 45s
`)
	t.Setenv("SHOPFRONT_SERVER_PORT", "9100")
	t.Setenv("SHOPFRONT_PRICING_RESOLUTION", "prefer_embedded")

	vc, err := NewViperConfig(path)
	if err != nil {
		t.Fatalf("NewViperConfig failed: %v", err)
	}
	config := vc.Get()

	if config.Server.Port != 9100 {
		t.Errorf("Expected env to override port, got %d", config.Server.Port)
	}
	if config.Backend.BaseURL != "http://backend:5000/api" {
		t.Errorf("Expected base url from file, got %q", config.Backend.BaseURL)
	}
	if config.Cache.DefaultTTL != 45*time.Second {
		t.Errorf("Expected TTL from file, got %s", config.Cache.DefaultTTL)
	}
	if config.Pricing.Resolution != "prefer_embedded" {
		t.Errorf("Expected resolution from env, got %q", config.Pricing.Resolution)
	}
	if config.Backend.BreakerFailures != 5 {
		t.Errorf("Expected default breaker failures, got %d", config.Backend.BreakerFailures)
	}
}

func TestViperConfigWithoutFile(t *testing.T) {
	t.Setenv("SHOPFRONT_BACKEND_BASE_URL", "https://api.example.com")

	vc, err := NewViperConfig("")
	if err != nil {
		t.Fatalf("NewViperConfig failed: %v", err)
	}
	if got := vc.Get().Backend.BaseURL; got != "https://api.example.com" {
		t.Errorf("Expected base url from env, got %q", got)
	}
}

func TestViperConfigRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	writeFile(t, path, "pricing:\n  resolution: cheapest\n")

	if _, err := NewViperConfig(path); err == nil {
		t.Error("Expected invalid configuration to be rejected")
	}
}

// TestWatchByPolling verifies that subscribers see file edits.
//
// TestWatchByPolling 验证订阅者能看到文件修改。
func TestWatchByPolling(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shopfront.yaml")
	writeFile(t, path, "pricing:\n  currency_symbol: \"$\"\n")

	vc, err := NewViperConfig(path)
	if err != nil {
		t.Fatalf("NewViperConfig failed: %v", err)
	}
	defer vc.Close()

	var mu sync.Mutex
	var seen []string
	vc.Subscribe(func(c *Config) {
		mu.Lock()
		seen = append(seen, c.Pricing.CurrencySymbol)
		mu.Unlock()
	})
	vc.WatchByPolling(10 * time.Millisecond)

	writeFile(t, path, "pricing:\n  currency_symbol: \"€\"\n")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if vc.Get().Pricing.CurrencySymbol == "€" {
			mu.Lock()
			n := len(seen)
			mu.Unlock()
			if n == 0 {
				t.Error("Expected subscriber to be notified")
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("Expected polling watcher to pick up the change")
}

// TestConfigsEqual tests the configsEqual helper.
//
// TestConfigsEqual 测试configsEqual辅助函数。
func TestConfigsEqual(t *testing.T) {
	config1 := DefaultConfig()
	config2 := DefaultConfig()

	if !configsEqual(config1, config2) {
		t.Error("configsEqual() returned false for identical configs")
	}

	config2.Cache.MaxEntries = 1000
	if configsEqual(config1, config2) {
		t.Error("configsEqual() returned true for different configs")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	writeFile(t, path, "SHOPFRONT_TEST_DOTENV=loaded\n")
	t.Setenv("SHOPFRONT_TEST_DOTENV", "")
	os.Unsetenv("SHOPFRONT_TEST_DOTENV")

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), path); err != nil {
		t.Fatalf("LoadDotEnv failed: %v", err)
	}
	if got := os.Getenv("SHOPFRONT_TEST_DOTENV"); got != "loaded" {
		t.Errorf("Expected variable from .env, got %q", got)
	}
}
