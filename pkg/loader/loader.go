// Package loader provides the back-source strategies used when a catalog
// snapshot is not in the cache: plain functions, fallbacks, cache-aside
// loading and serving the last good value when the upstream is down.
//
// Package loader 提供缓存未命中时的回源策略：普通函数、后备加载器、
// 旁路缓存加载，以及上游不可用时返回最后一次成功的值。
package loader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/yourusername/shopfront/pkg/cache"
	"github.com/yourusername/shopfront/pkg/codec"
)

// Loader is the interface that wraps the basic Load method.
//
// Load retrieves data for the given key from a data source.
// It returns the loaded value, a TTL for the cache entry, and any error encountered.
// If the returned TTL is zero, the cache's default TTL will be used.
//
// Loader 是包装基本Load方法的接口。
//
// Load 从数据源检索给定键的数据。
// 它返回加载的值、缓存条目的TTL以及遇到的任何错误。
// 如果返回的TTL为零，将使用缓存的默认TTL。
type Loader[T any] interface {
	Load(ctx context.Context, key string) (value T, ttl time.Duration, err error)
}

// LoaderFunc is a function type that implements the Loader interface.
//
// LoaderFunc 是实现Loader接口的函数类型。
type LoaderFunc[T any] func(ctx context.Context, key string) (T, time.Duration, error)

// Load calls the function itself.
//
// Load 调用函数本身。
func (f LoaderFunc[T]) Load(ctx context.Context, key string) (T, time.Duration, error) {
	return f(ctx, key)
}

// NewFunctionLoader creates a new Loader from a function that retrieves data.
// The TTL will be set to the default.
//
// NewFunctionLoader 从检索数据的函数创建一个新的Loader。TTL将设置为默认值。
func NewFunctionLoader[T any](fn func(ctx context.Context, key string) (T, error)) Loader[T] {
	return LoaderFunc[T](func(ctx context.Context, key string) (T, time.Duration, error) {
		value, err := fn(ctx, key)
		return value, 0, err
	})
}

// FallbackLoader provides a fallback mechanism when the primary loader fails.
// When ShouldFallback is set, only errors it accepts reach the secondary
// loader; the rest are returned as they are.
//
// FallbackLoader 提供当主加载器失败时的后备机制。
// 设置ShouldFallback时，只有它接受的错误才会转到次要加载器。
type FallbackLoader[T any] struct {
	Primary        Loader[T]
	Secondary      Loader[T]
	ShouldFallback func(err error) bool
	OnFallback     func(key string, err error)
}

// Load attempts to load data using the primary loader.
// If the primary loader fails, it falls back to the secondary loader.
//
// Load 尝试使用主加载器加载数据。
// 如果主加载器失败，它会回退到次要加载器。
func (f *FallbackLoader[T]) Load(ctx context.Context, key string) (T, time.Duration, error) {
	value, ttl, err := f.Primary.Load(ctx, key)
	if err == nil || f.Secondary == nil {
		return value, ttl, err
	}
	if f.ShouldFallback != nil && !f.ShouldFallback(err) {
		return value, ttl, err
	}
	if f.OnFallback != nil {
		f.OnFallback(key, err)
	}
	return f.Secondary.Load(ctx, key)
}

// NewFallbackLoader creates a new FallbackLoader with the given primary and secondary loaders.
//
// NewFallbackLoader 使用给定的主加载器和次要加载器创建一个新的FallbackLoader。
func NewFallbackLoader[T any](primary, secondary Loader[T]) *FallbackLoader[T] {
	return &FallbackLoader[T]{
		Primary:   primary,
		Secondary: secondary,
	}
}

// Static returns a Loader that always yields value.
//
// Static 返回一个总是返回value的Loader。
func Static[T any](value T) Loader[T] {
	return LoaderFunc[T](func(context.Context, string) (T, time.Duration, error) {
		return value, 0, nil
	})
}

// CachedLoader is a cache-aside loader: values are read from Cache, and on a
// miss loaded from Backend, encoded with Codec and written back. Concurrent
// misses for the same key share one backend call.
//
// Cache failures never fail a load; they are reported to OnCacheError.
//
// The shared backend call runs detached from the caller that started it and
// is bounded by LoadTimeout, so one caller going away does not fail the
// others waiting on the same key.
//
// CachedLoader 是旁路缓存加载器：先读缓存，未命中时从Backend加载，
// 用Codec编码后写回。同一键的并发未命中共享一次后端调用。
// 缓存故障不会导致加载失败，而是报告给OnCacheError。
type CachedLoader[T any] struct {
	Backend      Loader[T]
	Cache        cache.ICache
	Codec        codec.Codec
	TTL          time.Duration
	LoadTimeout  time.Duration
	OnCacheError func(key string, err error)

	group singleflight.Group
}

// DefaultLoadTimeout bounds a shared backend call when LoadTimeout is zero.
const DefaultLoadTimeout = 10 * time.Second

// NewCachedLoader creates a new CachedLoader. A zero ttl defers to the TTL
// returned by the backend, then to the cache default.
//
// NewCachedLoader 创建一个新的CachedLoader。
func NewCachedLoader[T any](backend Loader[T], c cache.ICache, cd codec.Codec, ttl time.Duration) *CachedLoader[T] {
	if cd == nil {
		cd = codec.DefaultCodec()
	}
	return &CachedLoader[T]{
		Backend: backend,
		Cache:   c,
		Codec:   cd,
		TTL:     ttl,
	}
}

type loaded[T any] struct {
	value T
	ttl   time.Duration
}

// Load returns the cached value for key, loading it on a miss.
//
// Load 返回键的缓存值，未命中时加载。
func (c *CachedLoader[T]) Load(ctx context.Context, key string) (T, time.Duration, error) {
	if value, ok := c.lookup(ctx, key); ok {
		return value, c.TTL, nil
	}

	ch := c.group.DoChan(key, func() (interface{}, error) {
		loadCtx, cancel := c.detach(ctx)
		defer cancel()

		value, ttl, err := c.Backend.Load(loadCtx, key)
		if err != nil {
			return nil, err
		}
		if c.TTL > 0 {
			ttl = c.TTL
		}
		c.store(loadCtx, key, value, ttl)
		return loaded[T]{value: value, ttl: ttl}, nil
	})

	var zero T
	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, 0, res.Err
		}
		v := res.Val.(loaded[T])
		return v.value, v.ttl, nil
	case <-ctx.Done():
		return zero, 0, ctx.Err()
	}
}

// detach keeps the values of ctx but not its cancellation or deadline.
func (c *CachedLoader[T]) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := c.LoadTimeout
	if timeout <= 0 {
		timeout = DefaultLoadTimeout
	}
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}

func (c *CachedLoader[T]) lookup(ctx context.Context, key string) (T, bool) {
	var value T
	data, found, err := c.Cache.Get(ctx, key)
	if err != nil {
		c.report(key, err)
		return value, false
	}
	if !found {
		return value, false
	}
	if err := c.Codec.Unmarshal(data, &value); err != nil {
		c.report(key, err)
		return value, false
	}
	return value, true
}

func (c *CachedLoader[T]) store(ctx context.Context, key string, value T, ttl time.Duration) {
	data, err := c.Codec.Marshal(value)
	if err != nil {
		c.report(key, err)
		return
	}
	if err := c.Cache.Set(ctx, key, data, ttl); err != nil {
		c.report(key, err)
	}
}

func (c *CachedLoader[T]) report(key string, err error) {
	if c.OnCacheError != nil {
		c.OnCacheError(key, err)
	}
}

// Invalidate drops the cached value for key.
//
// Invalidate 删除键的缓存值。
func (c *CachedLoader[T]) Invalidate(ctx context.Context, key string) error {
	if _, err := c.Cache.Delete(ctx, key); err != nil {
		return fmt.Errorf("invalidate %q: %w", key, err)
	}
	return nil
}

// StaleLoader remembers the last value Primary returned for each key and
// serves it when a later load fails with an error ServeStale accepts.
// Errors that ServeStale rejects (for example authorization failures) are
// always returned to the caller.
//
// At most MaxEntries keys are remembered; when full, an arbitrary older key
// is dropped to make room. Zero means DefaultStaleEntries.
//
// StaleLoader 记住Primary对每个键返回的最后一个值，
// 当后续加载失败且ServeStale接受该错误时返回旧值。最多记住MaxEntries个键。
type StaleLoader[T any] struct {
	Primary    Loader[T]
	ServeStale func(err error) bool
	OnStale    func(key string, err error)
	MaxEntries int

	mu   sync.RWMutex
	last map[string]T
}

// NewStaleLoader creates a StaleLoader. A nil serveStale serves stale values
// for every error.
//
// NewStaleLoader 创建一个StaleLoader。
func NewStaleLoader[T any](primary Loader[T], serveStale func(error) bool) *StaleLoader[T] {
	return &StaleLoader[T]{
		Primary:    primary,
		ServeStale: serveStale,
		last:       make(map[string]T),
	}
}

// Load implements Loader.
func (s *StaleLoader[T]) Load(ctx context.Context, key string) (T, time.Duration, error) {
	value, ttl, err := s.Primary.Load(ctx, key)
	if err == nil {
		s.remember(key, value)
		return value, ttl, nil
	}

	if s.ServeStale != nil && !s.ServeStale(err) {
		return value, ttl, err
	}

	s.mu.RLock()
	stale, ok := s.last[key]
	s.mu.RUnlock()
	if !ok {
		return value, ttl, err
	}
	if s.OnStale != nil {
		s.OnStale(key, err)
	}
	return stale, 0, nil
}

// DefaultStaleEntries bounds a StaleLoader without MaxEntries.
const DefaultStaleEntries = 1024

func (s *StaleLoader[T]) remember(key string, value T) {
	limit := s.MaxEntries
	if limit <= 0 {
		limit = DefaultStaleEntries
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.last[key]; !ok && len(s.last) >= limit {
		for k := range s.last {
			delete(s.last, k)
			break
		}
	}
	s.last[key] = value
}

// Len reports how many keys have a remembered value.
func (s *StaleLoader[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.last)
}

// Forget drops every remembered value.
func (s *StaleLoader[T]) Forget() {
	s.mu.Lock()
	s.last = make(map[string]T)
	s.mu.Unlock()
}
