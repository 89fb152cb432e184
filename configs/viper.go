package configs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/yourusername/shopfront/pkg/logx"
)

// EnvPrefix prefixes environment overrides, e.g. SHOPFRONT_BACKEND_BASE_URL.
const EnvPrefix = "SHOPFRONT"

// ViperConfig wraps a Config with Viper functionality for hot reloading.
// It provides thread-safe access to configuration and supports dynamic
// updates when the underlying configuration file changes.
//
// ViperConfig 使用Viper功能包装Config以支持热重载。
// 它提供对配置的线程安全访问，并支持在底层配置文件更改时进行动态更新。
type ViperConfig struct {
	config      *Config
	viper       *viper.Viper
	configFile  string
	mu          sync.RWMutex
	subscribers []func(*Config)
	stop        chan struct{}
	stopOnce    sync.Once
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment. Missing files are skipped and variables that are already set
// are not overridden.
//
// LoadDotEnv 将给定文件中的键值对加载到进程环境变量中。
// 缺失的文件会被跳过，已设置的变量不会被覆盖。
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// NewViperConfig creates a new ViperConfig.
// Values come from, in increasing priority: defaults, the configuration
// file (optional, may be empty) and SHOPFRONT_* environment variables.
//
// NewViperConfig 创建一个新的ViperConfig。
// 配置值的优先级从低到高依次为：默认值、配置文件（可为空）、SHOPFRONT_* 环境变量。
func NewViperConfig(configFile string) (*ViperConfig, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := setDefaults(v); err != nil {
		return nil, err
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType(strings.TrimPrefix(filepath.Ext(configFile), "."))
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	config, err := decode(v)
	if err != nil {
		return nil, err
	}

	return &ViperConfig{
		config:     config,
		viper:      v,
		configFile: configFile,
		stop:       make(chan struct{}),
	}, nil
}

// setDefaults registers every key of DefaultConfig so that environment
// variables can override keys the file does not mention.
func setDefaults(v *viper.Viper) error {
	raw, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("encode defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return fmt.Errorf("decode defaults: %w", err)
	}
	setDefaultTree(v, "", tree)
	return nil
}

func setDefaultTree(v *viper.Viper, prefix string, tree map[string]any) {
	for key, value := range tree {
		if sub, ok := value.(map[string]any); ok {
			setDefaultTree(v, prefix+key+".", sub)
			continue
		}
		v.SetDefault(prefix+key, value)
	}
}

func decode(v *viper.Viper) (*Config, error) {
	config := DefaultConfig()
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// EnableHotReload enables hot reloading of the configuration file.
// When the configuration file changes, the configuration is automatically
// reloaded and all subscribers are notified. Invalid edits are logged and
// the previous configuration is kept.
//
// EnableHotReload 启用配置文件的热重载。
// 配置文件更改时自动重新加载并通知所有订阅者。
// 无效的修改会被记录，并保留之前的配置。
func (vc *ViperConfig) EnableHotReload() {
	if vc.configFile == "" {
		return
	}
	vc.viper.OnConfigChange(func(e fsnotify.Event) {
		logx.Info().Str("file", e.Name).Str("op", e.Op.String()).Msg("config file changed")

		newConfig, err := decode(vc.viper)
		if err != nil {
			logx.Error().Err(err).Msg("config reload rejected")
			return
		}
		vc.apply(newConfig)
	})
	vc.viper.WatchConfig()
}

// WatchByPolling re-reads the configuration file every interval and notifies
// subscribers when the decoded configuration differs. This is an alternative
// to EnableHotReload where file system notifications are unreliable.
//
// WatchByPolling 每隔interval重新读取配置文件，配置变化时通知订阅者。
// 在文件系统通知不可靠的环境中，这是EnableHotReload的替代方案。
func (vc *ViperConfig) WatchByPolling(interval time.Duration) {
	if vc.configFile == "" || interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-vc.stop:
				return
			case <-ticker.C:
			}

			if err := vc.viper.ReadInConfig(); err != nil {
				logx.Warn().Err(err).Msg("failed to read config file")
				continue
			}
			newConfig, err := decode(vc.viper)
			if err != nil {
				logx.Error().Err(err).Msg("config reload rejected")
				continue
			}

			vc.mu.RLock()
			changed := !configsEqual(vc.config, newConfig)
			vc.mu.RUnlock()

			if changed {
				logx.Info().Str("file", vc.configFile).Msg("config file changed")
				vc.apply(newConfig)
			}
		}
	}()
}

func (vc *ViperConfig) apply(newConfig *Config) {
	vc.mu.Lock()
	vc.config = newConfig
	subscribers := make([]func(*Config), len(vc.subscribers))
	copy(subscribers, vc.subscribers)
	vc.mu.Unlock()

	for _, subscriber := range subscribers {
		subscriber(newConfig)
	}
}

// Subscribe adds a subscriber that will be notified when the configuration changes.
//
// Subscribe 添加一个在配置更改时将被通知的订阅者。
func (vc *ViperConfig) Subscribe(subscriber func(*Config)) {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	vc.subscribers = append(vc.subscribers, subscriber)
}

// Get returns the current configuration.
// This method is thread-safe and can be called concurrently.
//
// Get 返回当前配置。此方法是线程安全的，可以并发调用。
func (vc *ViperConfig) Get() *Config {
	vc.mu.RLock()
	defer vc.mu.RUnlock()
	return vc.config
}

// Close stops the polling watcher, if any.
func (vc *ViperConfig) Close() {
	vc.stopOnce.Do(func() { close(vc.stop) })
}

// LoadViperConfig loads a configuration and starts the reload mechanism
// selected by extensions.hot_reload.
//
// LoadViperConfig 加载配置，并根据extensions.hot_reload启动重载机制。
func LoadViperConfig(configFile string) (*ViperConfig, error) {
	vc, err := NewViperConfig(configFile)
	if err != nil {
		return nil, err
	}

	hr := vc.Get().Extensions.HotReload
	if hr.Enable {
		if hr.WatchInterval > 0 {
			vc.WatchByPolling(hr.WatchInterval)
		} else {
			vc.EnableHotReload()
		}
	}
	return vc, nil
}

// configsEqual checks if two configs are equal.
//
// configsEqual 检查两个配置是否相等。
func configsEqual(c1, c2 *Config) bool {
	return reflect.DeepEqual(c1, c2)
}
