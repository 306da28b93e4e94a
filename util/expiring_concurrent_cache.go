package util

import (
	"sync"
	"time"

	"github.com/ordishs/go-utils/expiringmap"

	"github.com/xai-blockchain/xai-sub015/errors"
)

// ExpiringConcurrentCache memoizes expensive fetches with single-flight
// semantics: concurrent callers for the same key share one fetch, and results
// expire after the configured duration. The block index readers use it to
// deduplicate concurrent fallback scans of the flat block files.
type ExpiringConcurrentCache[K comparable, V any] struct {
	mu        sync.RWMutex
	cache     *expiringmap.ExpiringMap[K, V]
	wg        map[K]*sync.WaitGroup
	ZeroValue V
}

func NewExpiringConcurrentCache[K comparable, V any](expiration time.Duration) *ExpiringConcurrentCache[K, V] {
	return &ExpiringConcurrentCache[K, V]{
		cache: expiringmap.New[K, V](expiration),
		wg:    make(map[K]*sync.WaitGroup),
	}
}

// GetOrSet returns the cached value for key, or runs fetchFunc to produce it.
// Only one fetch runs per key at a time; other callers wait for its result.
func (c *ExpiringConcurrentCache[K, V]) GetOrSet(key K, fetchFunc func() (V, error)) (V, error) {
	var (
		val   V
		found bool
		wg    *sync.WaitGroup
	)

	c.mu.RLock()

	if val, found = c.cache.Get(key); found {
		c.mu.RUnlock()
		return val, nil
	}

	c.mu.RUnlock()
	c.mu.Lock()

	// Check again to avoid race conditions
	if val, found = c.cache.Get(key); found {
		c.mu.Unlock()
		return val, nil
	}

	// If not, check if there is an ongoing fetch
	if wg, found = c.wg[key]; found {
		c.mu.Unlock()
		wg.Wait()

		if val, found = c.cache.Get(key); found {
			return val, nil
		}

		return c.ZeroValue, errors.NewProcessingError("cache: failed to get value after waiting")
	}

	wg = &sync.WaitGroup{}
	wg.Add(1)
	c.wg[key] = wg

	// Release the global lock, for others to wait on the wait group
	c.mu.Unlock()

	c.mu.Lock()

	defer func() {
		wg.Done()
		delete(c.wg, key)

		c.mu.Unlock()
	}()

	result, err := fetchFunc()
	if err != nil {
		return c.ZeroValue, err
	}

	c.cache.Set(key, result)

	return result, nil
}

// Delete removes a key from the cache.
func (c *ExpiringConcurrentCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Delete(key)
}
