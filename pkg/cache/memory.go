package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	shoperrors "github.com/yourusername/shopfront/pkg/errors"
)

// memoryCache is an in-process cache guarded by a single RWMutex.
// Expired entries are removed by a janitor goroutine and, lazily, on read.
//
// memoryCache 是由单个读写锁保护的进程内缓存。
// 过期条目由清理协程删除，读取时也会惰性删除。
type memoryCache struct {
	name       string
	items      map[string]cacheItem
	mu         sync.RWMutex
	maxEntries int
	defaultTTL time.Duration
	now        func() time.Time

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
	expired   atomic.Int64

	closeChan chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
	wg        sync.WaitGroup
}

// cacheItem represents a single item in the cache with its value and expiration time
//
// cacheItem 表示缓存中的单个项目及其值和过期时间
type cacheItem struct {
	value      []byte
	expiration time.Time
}

func (it cacheItem) expiredAt(now time.Time) bool {
	return !it.expiration.IsZero() && now.After(it.expiration)
}

func newMemoryCache(config *Config) *memoryCache {
	c := &memoryCache{
		name:       config.Name,
		items:      make(map[string]cacheItem),
		maxEntries: config.MaxEntries,
		defaultTTL: config.DefaultTTL,
		now:        time.Now,
		closeChan:  make(chan struct{}),
	}
	if config.CleanupInterval > 0 {
		c.wg.Add(1)
		go c.janitor(config.CleanupInterval)
	}
	return c
}

// janitor periodically removes expired entries until Close is called.
//
// janitor 定期删除过期条目，直到调用Close。
func (c *memoryCache) janitor(interval time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.deleteExpired()
		case <-c.closeChan:
			return
		}
	}
}

// deleteExpired removes every expired entry and returns how many were removed.
func (c *memoryCache) deleteExpired() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, item := range c.items {
		if item.expiredAt(now) {
			delete(c.items, key)
			removed++
		}
	}
	c.expired.Add(int64(removed))
	return removed
}

// Get retrieves a value from the cache.
//
// Get 从缓存中检索值。
func (c *memoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if c.closed.Load() {
		return nil, false, shoperrors.ErrClosed
	}
	if key == "" {
		return nil, false, shoperrors.ErrKeyEmpty
	}

	c.mu.RLock()
	item, found := c.items[key]
	c.mu.RUnlock()

	if !found || item.expiredAt(c.now()) {
		c.misses.Add(1)
		return nil, false, nil
	}

	c.hits.Add(1)
	return item.value, true, nil
}

// Set adds a value to the cache with the specified TTL.
// When the cache is full the entry closest to expiry is evicted first.
//
// Set 将值添加到缓存中，并指定TTL。
// 缓存已满时，优先淘汰最接近过期的条目。
func (c *memoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if c.closed.Load() {
		return shoperrors.ErrClosed
	}
	if key == "" {
		return shoperrors.ErrKeyEmpty
	}

	now := c.now()
	expiration := time.Time{}
	if ttl > 0 {
		expiration = now.Add(ttl)
	} else if ttl == 0 && c.defaultTTL > 0 {
		expiration = now.Add(c.defaultTTL)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists && c.maxEntries > 0 && len(c.items) >= c.maxEntries {
		c.evictLocked(now)
	}

	c.items[key] = cacheItem{
		value:      value,
		expiration: expiration,
	}
	return nil
}

// evictLocked drops expired entries, or failing that the one expiring soonest.
// Entries without expiration are only chosen when nothing else is left.
func (c *memoryCache) evictLocked(now time.Time) {
	victim := ""
	var victimExp time.Time
	for key, item := range c.items {
		if item.expiredAt(now) {
			delete(c.items, key)
			c.expired.Add(1)
			continue
		}
		if victim == "" || earlier(item.expiration, victimExp) {
			victim, victimExp = key, item.expiration
		}
	}
	if len(c.items) < c.maxEntries || victim == "" {
		return
	}
	delete(c.items, victim)
	c.evictions.Add(1)
}

// earlier orders expirations with the zero time (never expires) last.
func earlier(a, b time.Time) bool {
	switch {
	case a.IsZero():
		return false
	case b.IsZero():
		return true
	default:
		return a.Before(b)
	}
}

// Delete removes a value from the cache.
//
// Delete 从缓存中删除值。
func (c *memoryCache) Delete(ctx context.Context, key string) (bool, error) {
	if c.closed.Load() {
		return false, shoperrors.ErrClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists {
		return false, nil
	}
	delete(c.items, key)
	return true, nil
}

// Clear removes all values from the cache.
//
// Clear 删除缓存中的所有值。
func (c *memoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]cacheItem)
	return nil
}

// Stats returns statistics about the cache.
//
// Stats 返回有关缓存的统计信息。
func (c *memoryCache) Stats(ctx context.Context) (*Stats, error) {
	c.mu.RLock()
	entries := int64(len(c.items))
	var size int64
	for _, item := range c.items {
		size += int64(len(item.value))
	}
	c.mu.RUnlock()

	return &Stats{
		EntryCount: entries,
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
		Evictions:  c.evictions.Load(),
		Expired:    c.expired.Load(),
		Size:       size,
	}, nil
}

// Close stops the janitor and drops all entries.
//
// Close 停止清理协程并丢弃所有条目。
func (c *memoryCache) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.closeChan)
	})
	c.wg.Wait()
	return c.Clear(context.Background())
}
