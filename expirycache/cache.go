/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package expirycache

import (
	"sync"
	"time"

	"go.uber.org/atomic"
)

// Unbounded is a max cache size value that disables the size limit.
const Unbounded = -1

// NoExpiry is a time-to-live or idle timeout value that disables the corresponding expiry.
const NoExpiry time.Duration = -1

// DefaultCacheUpdateFrequency is the default minimal interval between two expiry sweeps of a single cache.
const DefaultCacheUpdateFrequency = time.Minute

// Cache is a bounded in-memory key-value cache with LRU/FIFO eviction and time-based expiry.
//
// Cache must be created by CreateCache. It is safe for concurrent use.
// Get, Put and Remove only take the lock of the underlying map.
// InsertElement and ExpireCache are additionally serialized with each other,
// so the size limit can't be violated by concurrent bound-aware inserts.
type Cache[K comparable, V any] struct {
	id       string
	name     string
	registry *Registry
	metrics  MetricsCollector
	now      func() time.Time

	mu      sync.RWMutex
	entries map[K]*entry[K, V]

	evictMu        sync.Mutex
	nextUpdateTime time.Time

	maxSize         *atomic.Int64
	ejectionPolicy  *atomic.Int32
	timeToLive      *atomic.Duration
	idleTimeout     *atomic.Duration
	updateFrequency *atomic.Duration
}

// CacheOption is a functional option for CreateCache.
type CacheOption func(*cacheOptions)

type cacheOptions struct {
	name            string
	maxSize         int
	ejectionPolicy  EjectionPolicy
	timeToLive      time.Duration
	idleTimeout     time.Duration
	updateFrequency time.Duration
}

func defaultCacheOptions() cacheOptions {
	return cacheOptions{
		maxSize:         Unbounded,
		ejectionPolicy:  EjectionPolicyLRU,
		timeToLive:      NoExpiry,
		idleTimeout:     NoExpiry,
		updateFrequency: DefaultCacheUpdateFrequency,
	}
}

// WithName sets a human-readable name of the cache. It's used in logs and as a metrics label.
// By default, the cache ID is used as a name.
func WithName(name string) CacheOption {
	return func(o *cacheOptions) {
		o.name = name
	}
}

// WithMaxCacheSize sets the max number of entries that InsertElement keeps in the cache.
// Unbounded (-1) disables the limit, 0 makes InsertElement drop every value (unlike CacheConfig.MaxSize).
func WithMaxCacheSize(size int) CacheOption {
	return func(o *cacheOptions) {
		o.maxSize = size
	}
}

// WithEjectionPolicy sets the ejection policy.
func WithEjectionPolicy(policy EjectionPolicy) CacheOption {
	return func(o *cacheOptions) {
		o.ejectionPolicy = policy
	}
}

// WithExpiryTimeToLive sets how long an entry may live since its insertion.
func WithExpiryTimeToLive(ttl time.Duration) CacheOption {
	return func(o *cacheOptions) {
		o.timeToLive = ttl
	}
}

// WithExpiryIdleTime sets how long an entry may stay unread.
func WithExpiryIdleTime(idle time.Duration) CacheOption {
	return func(o *cacheOptions) {
		o.idleTimeout = idle
	}
}

// WithUpdateFrequency sets the minimal interval between two expiry sweeps of the cache.
func WithUpdateFrequency(freq time.Duration) CacheOption {
	return func(o *cacheOptions) {
		o.updateFrequency = freq
	}
}

func newCache[K comparable, V any](id string, registry *Registry, opts cacheOptions) *Cache[K, V] {
	name := opts.name
	if name == "" {
		name = id
	}
	return &Cache[K, V]{
		id:              id,
		name:            name,
		registry:        registry,
		metrics:         registry.cacheMetrics(name),
		now:             registry.now,
		entries:         make(map[K]*entry[K, V]),
		maxSize:         atomic.NewInt64(int64(opts.maxSize)),
		ejectionPolicy:  atomic.NewInt32(int32(opts.ejectionPolicy)),
		timeToLive:      atomic.NewDuration(opts.timeToLive),
		idleTimeout:     atomic.NewDuration(opts.idleTimeout),
		updateFrequency: atomic.NewDuration(opts.updateFrequency),
	}
}

// ID returns the unique identifier of the cache.
func (c *Cache[K, V]) ID() string {
	return c.id
}

// Name returns the name of the cache.
func (c *Cache[K, V]) Name() string {
	return c.name
}

// Get returns a value from the cache by the provided key.
// A hit marks the entry as accessed, which matters for LRU ejection and idle expiry.
func (c *Cache[K, V]) Get(key K) (value V, ok bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		c.metrics.IncMisses()
		return value, false
	}
	c.metrics.IncHits()
	return e.read(c.now()), true
}

// Put adds or replaces a value in the cache without checking the max size.
// Use InsertElement to keep the cache bounded.
func (c *Cache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = newEntry(key, value, c.now())
	c.metrics.SetAmount(len(c.entries))
}

// InsertElement adds or replaces a value in the cache keeping its size within the max cache size.
// When the cache is full, stale entries are expired first, and if there is still no room,
// one entry is evicted according to the ejection policy.
//
// Replacing a key that is already in the cache never evicts another entry, even if the cache is full.
// This deliberately deviates from the classic insert contract, where a full cache evicts a candidate
// first and may drop an unrelated key (or the replaced key itself) before the new value is stored.
func (c *Cache[K, V]) InsertElement(key K, value V) {
	c.evictMu.Lock()
	defer c.evictMu.Unlock()

	maxSize := c.MaxCacheSize()
	if maxSize < 0 || c.hasRoomFor(key, maxSize) {
		c.Put(key, value)
		return
	}

	c.expireEntries(c.now())
	if c.hasRoomFor(key, maxSize) {
		c.Put(key, value)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	candidate := selectEjectionCandidate(c.EjectionPolicy(), c.entries)
	if candidate == nil {
		// Nothing to evict, max size is zero.
		return
	}
	delete(c.entries, candidate.key)
	c.metrics.AddEvictions(1)
	c.entries[key] = newEntry(key, value, c.now())
	c.metrics.SetAmount(len(c.entries))
}

// hasRoomFor reports whether the key can be stored without exceeding maxSize.
// Replacing an existing key never grows the cache.
func (c *Cache[K, V]) hasRoomFor(key K, maxSize int) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, exists := c.entries[key]; exists {
		return true
	}
	return len(c.entries) < maxSize
}

// Remove removes a value from the cache by the provided key.
// It returns false if there was no such key.
func (c *Cache[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		return false
	}
	delete(c.entries, key)
	c.metrics.SetAmount(len(c.entries))
	return true
}

// Len returns the number of entries in the cache.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// ExpireCache removes stale entries from the cache and returns the number of removed entries.
// It does nothing if the previous sweep happened less than the update frequency ago.
// Usually it's called by the Registry's sweeper.
func (c *Cache[K, V]) ExpireCache() int {
	c.evictMu.Lock()
	defer c.evictMu.Unlock()

	now := c.now()
	if !now.After(c.nextUpdateTime) {
		return 0
	}
	expired := c.expireEntries(now)
	c.nextUpdateTime = now.Add(c.UpdateFrequency())
	return expired
}

// expireEntries must be called with evictMu held.
func (c *Cache[K, V]) expireEntries(now time.Time) int {
	ttl, idle := c.ExpiryTimeToLive(), c.ExpiryIdleTime()
	if ttl < 0 && idle < 0 {
		return 0
	}

	c.mu.RLock()
	snapshot := make([]*entry[K, V], 0, len(c.entries))
	for _, e := range c.entries {
		snapshot = append(snapshot, e)
	}
	c.mu.RUnlock()

	var stale []*entry[K, V]
	for _, e := range snapshot {
		if shouldExpire(e, now, ttl, idle) {
			stale = append(stale, e)
		}
	}
	if len(stale) == 0 {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	expired := 0
	for _, e := range stale {
		// The entry may have been replaced or read since the snapshot was taken.
		if cur, ok := c.entries[e.key]; ok && cur == e && shouldExpire(cur, now, ttl, idle) {
			delete(c.entries, e.key)
			expired++
		}
	}
	c.metrics.SetAmount(len(c.entries))
	c.metrics.AddExpirations(expired)
	return expired
}

func shouldExpire[K comparable, V any](e *entry[K, V], now time.Time, ttl, idle time.Duration) bool {
	if ttl >= 0 && now.Sub(e.createdAt) > ttl {
		return true
	}
	if idle >= 0 && now.Sub(e.lastAccess()) > idle {
		return true
	}
	return false
}

// SetMaxCacheSize sets the max number of entries that InsertElement keeps in the cache.
// Unbounded (-1) disables the limit, 0 makes InsertElement drop every value.
func (c *Cache[K, V]) SetMaxCacheSize(size int) *Cache[K, V] {
	c.maxSize.Store(int64(size))
	return c
}

// SetEjectionPolicy sets the ejection policy (LRU by default).
func (c *Cache[K, V]) SetEjectionPolicy(policy EjectionPolicy) *Cache[K, V] {
	c.ejectionPolicy.Store(int32(policy))
	return c
}

// SetUpdateFrequency sets the minimal interval between two expiry sweeps of the cache.
// The actual sweeps also depend on how often the Registry wakes up.
func (c *Cache[K, V]) SetUpdateFrequency(freq time.Duration) *Cache[K, V] {
	c.updateFrequency.Store(freq)
	return c
}

// SetExpiryTimeToLive sets how long an entry may live since its insertion.
// NoExpiry (-1) disables it. A positive value enables active expiry in the Registry.
func (c *Cache[K, V]) SetExpiryTimeToLive(ttl time.Duration) *Cache[K, V] {
	c.timeToLive.Store(ttl)
	if ttl > 0 {
		c.registry.update()
	}
	return c
}

// SetExpiryIdleTime sets how long an entry may stay unread.
// NoExpiry (-1) disables it. A positive value enables active expiry in the Registry.
func (c *Cache[K, V]) SetExpiryIdleTime(idle time.Duration) *Cache[K, V] {
	c.idleTimeout.Store(idle)
	if idle > 0 {
		c.registry.update()
	}
	return c
}

// MaxCacheSize returns the max cache size.
func (c *Cache[K, V]) MaxCacheSize() int {
	return int(c.maxSize.Load())
}

// EjectionPolicy returns the ejection policy.
func (c *Cache[K, V]) EjectionPolicy() EjectionPolicy {
	return EjectionPolicy(c.ejectionPolicy.Load())
}

// UpdateFrequency returns the minimal interval between two expiry sweeps.
func (c *Cache[K, V]) UpdateFrequency() time.Duration {
	return c.updateFrequency.Load()
}

// ExpiryTimeToLive returns the entries' time-to-live.
func (c *Cache[K, V]) ExpiryTimeToLive() time.Duration {
	return c.timeToLive.Load()
}

// ExpiryIdleTime returns the entries' idle timeout.
func (c *Cache[K, V]) ExpiryIdleTime() time.Duration {
	return c.idleTimeout.Load()
}

// ExpiryActive reports whether the cache needs periodic expiry sweeps.
func (c *Cache[K, V]) ExpiryActive() bool {
	return c.ExpiryTimeToLive() > 0 || c.ExpiryIdleTime() > 0
}
