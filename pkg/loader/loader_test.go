package loader

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yourusername/shopfront/pkg/cache"
	"github.com/yourusername/shopfront/pkg/codec"
)

type snapshot struct {
	IDs []string `json:"ids"`
}

func newTestCache(t *testing.T) cache.ICache {
	t.Helper()
	c, err := cache.NewWithOptions("loader-test", cache.WithCleanupInterval(0))
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestFunctionLoader(t *testing.T) {
	l := NewFunctionLoader(func(ctx context.Context, key string) (string, error) {
		return "value-" + key, nil
	})
	v, ttl, err := l.Load(context.Background(), "a")
	if err != nil || v != "value-a" || ttl != 0 {
		t.Errorf("Unexpected result %q %v %v", v, ttl, err)
	}
}

func TestFallbackLoader(t *testing.T) {
	failing := NewFunctionLoader(func(ctx context.Context, key string) (int, error) {
		return 0, errors.New("primary down")
	})
	backup := NewFunctionLoader(func(ctx context.Context, key string) (int, error) {
		return 7, nil
	})

	v, _, err := NewFallbackLoader(failing, backup).Load(context.Background(), "k")
	if err != nil || v != 7 {
		t.Errorf("Expected fallback value 7, got %d, %v", v, err)
	}

	if _, _, err := NewFallbackLoader[int](failing, nil).Load(context.Background(), "k"); err == nil {
		t.Error("Expected primary error without a secondary")
	}
}

func TestCachedLoaderCachesValues(t *testing.T) {
	var calls atomic.Int32
	backend := NewFunctionLoader(func(ctx context.Context, key string) (snapshot, error) {
		calls.Add(1)
		return snapshot{IDs: []string{"1", "2"}}, nil
	})
	c := newTestCache(t)
	l := NewCachedLoader[snapshot](backend, c, codec.DefaultCodec(), time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		v, _, err := l.Load(ctx, "products")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if len(v.IDs) != 2 {
			t.Errorf("Unexpected value %+v", v)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("Expected 1 backend call, got %d", calls.Load())
	}

	if err := l.Invalidate(ctx, "products"); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	if _, _, err := l.Load(ctx, "products"); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("Expected reload after invalidation, got %d calls", calls.Load())
	}
}

func TestCachedLoaderDoesNotCacheErrors(t *testing.T) {
	var calls atomic.Int32
	backend := NewFunctionLoader(func(ctx context.Context, key string) (snapshot, error) {
		calls.Add(1)
		return snapshot{}, errors.New("upstream unavailable")
	})
	l := NewCachedLoader[snapshot](backend, newTestCache(t), nil, 0)

	for i := 0; i < 2; i++ {
		if _, _, err := l.Load(context.Background(), "k"); err == nil {
			t.Fatal("Expected error")
		}
	}
	if calls.Load() != 2 {
		t.Errorf("Expected every failed load to reach the backend, got %d calls", calls.Load())
	}
}

func TestCachedLoaderSharesConcurrentMisses(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	backend := NewFunctionLoader(func(ctx context.Context, key string) (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	})
	l := NewCachedLoader[int](backend, newTestCache(t), nil, time.Minute)

	var wg sync.WaitGroup
	results := make([]int, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _, _ = l.Load(context.Background(), "k")
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("Expected concurrent misses to share one call, got %d", calls.Load())
	}
	for i, v := range results {
		if v != 42 {
			t.Errorf("result %d = %d, want 42", i, v)
		}
	}
}

func TestCachedLoaderSurvivesCorruptEntry(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	_ = c.Set(ctx, "k", []byte("{not json"), 0)

	var reported []string
	backend := NewFunctionLoader(func(ctx context.Context, key string) (int, error) { return 5, nil })
	l := NewCachedLoader[int](backend, c, nil, time.Minute)
	l.OnCacheError = func(key string, err error) { reported = append(reported, key) }

	v, _, err := l.Load(ctx, "k")
	if err != nil || v != 5 {
		t.Errorf("Expected backend value after corrupt entry, got %d, %v", v, err)
	}
	if len(reported) != 1 {
		t.Errorf("Expected corrupt entry to be reported once, got %v", reported)
	}
}

func TestStaleLoader(t *testing.T) {
	errAuth := errors.New("unauthorized")
	var failWith error

	primary := NewFunctionLoader(func(ctx context.Context, key string) (string, error) {
		if failWith != nil {
			return "", failWith
		}
		return "fresh", nil
	})
	var staleServed int
	l := NewStaleLoader(primary, func(err error) bool { return !errors.Is(err, errAuth) })
	l.OnStale = func(key string, err error) { staleServed++ }
	ctx := context.Background()

	if _, _, err := l.Load(ctx, "missing"); err != nil {
		t.Fatalf("Initial load failed: %v", err)
	}

	failWith = errors.New("503")
	v, _, err := l.Load(ctx, "missing")
	if err != nil || v != "fresh" || staleServed != 1 {
		t.Errorf("Expected stale value, got %q, %v (served=%d)", v, err, staleServed)
	}

	if _, _, err := l.Load(ctx, "never-loaded"); err == nil {
		t.Error("Expected error when nothing was remembered")
	}

	failWith = errAuth
	if _, _, err := l.Load(ctx, "missing"); !errors.Is(err, errAuth) {
		t.Errorf("Expected authorization errors to pass through, got %v", err)
	}

	failWith = errors.New("503")
	l.Forget()
	if _, _, err := l.Load(ctx, "missing"); err == nil {
		t.Error("Expected error after Forget")
	}
}

func TestFallbackLoaderOnlyForAcceptedErrors(t *testing.T) {
	errDenied := errors.New("denied")
	var failWith error
	primary := NewFunctionLoader(func(ctx context.Context, key string) ([]string, error) {
		return nil, failWith
	})

	var fallbacks int
	l := NewFallbackLoader(primary, Static([]string{}))
	l.ShouldFallback = func(err error) bool { return !errors.Is(err, errDenied) }
	l.OnFallback = func(key string, err error) { fallbacks++ }

	failWith = errors.New("timeout")
	v, _, err := l.Load(context.Background(), "campaigns")
	if err != nil || v == nil || len(v) != 0 || fallbacks != 1 {
		t.Errorf("Expected empty fallback, got %v, %v (fallbacks=%d)", v, err, fallbacks)
	}

	failWith = errDenied
	if _, _, err := l.Load(context.Background(), "campaigns"); !errors.Is(err, errDenied) {
		t.Errorf("Expected rejected error to pass through, got %v", err)
	}
	if fallbacks != 1 {
		t.Errorf("Expected no fallback for a rejected error, got %d", fallbacks)
	}
}

func TestCachedLoaderOutlivesFirstCaller(t *testing.T) {
	var calls atomic.Int32
	var once sync.Once
	started := make(chan struct{})
	release := make(chan struct{})
	flightCtx := make(chan context.Context, 1)

	backend := NewFunctionLoader(func(ctx context.Context, key string) (string, error) {
		calls.Add(1)
		once.Do(func() {
			flightCtx <- ctx
			close(started)
		})
		select {
		case <-release:
			return "fresh", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})
	l := NewCachedLoader(backend, newTestCache(t), codec.DefaultCodec(), time.Minute)
	l.LoadTimeout = 5 * time.Second

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, _, err := l.Load(firstCtx, "products")
		firstErr <- err
	}()

	<-started
	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected the first caller to see its own cancellation, got %v", err)
	}
	if err := (<-flightCtx).Err(); err != nil {
		t.Fatalf("Shared load was cancelled with its first caller: %v", err)
	}

	second := make(chan string, 1)
	go func() {
		v, _, err := l.Load(context.Background(), "products")
		if err != nil {
			t.Errorf("Second caller failed: %v", err)
		}
		second <- v
	}()
	close(release)

	if v := <-second; v != "fresh" {
		t.Errorf("Expected fresh value, got %q", v)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("Expected one backend call, got %d", n)
	}
}

func TestStaleLoaderIsBounded(t *testing.T) {
	var failWith error
	primary := NewFunctionLoader(func(ctx context.Context, key string) (string, error) {
		if failWith != nil {
			return "", failWith
		}
		return "v-" + key, nil
	})
	l := NewStaleLoader(primary, nil)
	l.MaxEntries = 2
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c", "d"} {
		if _, _, err := l.Load(ctx, key); err != nil {
			t.Fatalf("Load %s failed: %v", key, err)
		}
		if n := l.Len(); n > 2 {
			t.Fatalf("Expected at most 2 remembered keys, got %d", n)
		}
	}

	failWith = errors.New("503")
	if v, _, err := l.Load(ctx, "d"); err != nil || v != "v-d" {
		t.Errorf("Expected the latest key to be remembered, got %q, %v", v, err)
	}
}
