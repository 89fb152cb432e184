// Package main runs the shopfront pricing API. It loads configuration,
// wires the catalog cache, the backend client and the storefront service
// into a Gin server, and shuts down gracefully on SIGINT or SIGTERM.
//
// Package main 运行shopfront定价API。它加载配置，将目录缓存、后端客户端
// 和店面服务接入Gin服务器，并在收到SIGINT或SIGTERM时优雅关闭。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yourusername/shopfront/configs"
	"github.com/yourusername/shopfront/internal/backend"
	"github.com/yourusername/shopfront/internal/handler"
	"github.com/yourusername/shopfront/internal/metrics"
	"github.com/yourusername/shopfront/internal/storefront"
	"github.com/yourusername/shopfront/pkg/cache"
	"github.com/yourusername/shopfront/pkg/codec"
	"github.com/yourusername/shopfront/pkg/logx"
)

func main() {
	configFile := flag.String("config", "", "Path to the YAML or JSON config file")
	port := flag.Int("port", 0, "HTTP server port, overrides server.port")
	envFile := flag.String("env", ".env", "Optional dotenv file loaded before the environment is read")
	cacheFile := flag.String("cache-config", "", "Standalone YAML or JSON cache config, overrides the cache and redis sections")
	flag.Parse()

	if err := run(*configFile, *envFile, *cacheFile, *port); err != nil {
		logx.Fatal().Err(err).Msg("shopfront stopped")
	}
}

func run(configFile, envFile, cacheFile string, port int) error {
	if err := configs.LoadDotEnv(envFile); err != nil {
		return err
	}

	vc, err := configs.LoadViperConfig(configFile)
	if err != nil {
		return err
	}
	defer vc.Close()
	cfg := vc.Get()
	if port > 0 {
		cfg.Server.Port = port
	}

	logCloser, err := logx.Init(logx.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	if err != nil {
		return err
	}
	defer logCloser.Close()

	m := metrics.New(metricsConfig(cfg.Metrics))

	catalogCache, err := openCache(cfg, cacheFile)
	if err != nil {
		return err
	}
	if catalogCache != nil {
		defer catalogCache.Close()
	}
	cd, err := codec.Get(cfg.Cache.Codec)
	if err != nil {
		return err
	}

	client := backend.New(backend.Options{
		BaseURL:         cfg.Backend.BaseURL,
		ProductsPath:    cfg.Backend.ProductsPath,
		CampaignsPath:   cfg.Backend.CampaignsPath,
		Timeout:         cfg.Backend.Timeout,
		BreakerFailures: cfg.Backend.BreakerFailures,
		BreakerCooldown: cfg.Backend.BreakerCooldown,
		ServiceToken:    cfg.Backend.ServiceToken,
		Metrics:         m,
	})

	svc, err := storefront.New(storefront.Options{
		Upstream:     client,
		Cache:        catalogCache,
		Codec:        cd,
		CacheTTL:     cfg.Cache.DefaultTTL,
		ScopeByToken: cfg.Cache.ScopeByToken,
		ServeStale:   cfg.Cache.ServeStale,
		LoadTimeout:  cfg.Backend.Timeout,
		Pricing:      cfg.Pricing,
		Metrics:      m,
	})
	if err != nil {
		return err
	}

	vc.Subscribe(func(next *configs.Config) {
		if err := svc.ApplySettings(next.Pricing); err != nil {
			logx.Error().Err(err).Msg("pricing settings rejected")
			return
		}
		if level, err := logx.ParseLevel(next.Log.Level); err == nil {
			zerolog.SetGlobalLevel(level)
		}
		logx.Info().
			Str("resolution", next.Pricing.Resolution).
			Bool("enforce_window", next.Pricing.EnforceWindow).
			Msg("pricing settings reloaded")
	})

	gin.SetMode(cfg.Server.Mode)
	opts := handler.RouterOptions{
		Service: svc,
		Health: func() gin.H {
			return gin.H{"breaker": client.BreakerState()}
		},
	}
	if cfg.Metrics.Enable {
		opts.Metrics = metrics.NewPrometheusExporter(m, catalogCache, cfg.Cache.Name)
		opts.MetricsPath = cfg.Metrics.Path
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler.NewRouter(opts),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logx.Info().
			Str("addr", server.Addr).
			Str("backend", cfg.Backend.BaseURL).
			Str("cache", cfg.Cache.Backend).
			Bool("cache_enabled", cfg.Cache.Enable).
			Msg("starting shopfront")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logx.Info().Dur("timeout", cfg.Server.ShutdownTimeout).Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// openCache returns nil when caching is disabled. A standalone cache file
// takes precedence over the service config.
func openCache(cfg *configs.Config, cacheFile string) (cache.ICache, error) {
	if !cfg.Cache.Enable {
		return nil, nil
	}
	var (
		c   cache.ICache
		err error
	)
	if cacheFile != "" {
		c, err = cache.NewFromFile(cacheFile)
	} else {
		c, err = cache.New(cacheConfig(cfg))
	}
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	return c, nil
}

func cacheConfig(cfg *configs.Config) *cache.Config {
	return &cache.Config{
		Name:            cfg.Cache.Name,
		Backend:         cfg.Cache.Backend,
		MaxEntries:      cfg.Cache.MaxEntries,
		DefaultTTL:      cfg.Cache.DefaultTTL,
		CleanupInterval: cfg.Cache.CleanupInterval,
		KeyPrefix:       cfg.Cache.KeyPrefix,
		TTLJitter:       cfg.Cache.TTLJitter,
		Redis: cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
	}
}

func metricsConfig(cfg configs.MetricsConfig) *metrics.Config {
	level := metrics.Detailed
	if !cfg.Enable {
		level = metrics.Disabled
	}
	return &metrics.Config{Level: level, HistogramBucketsMs: cfg.HistogramBuckets}
}
