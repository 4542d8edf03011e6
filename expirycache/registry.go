/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package expirycache

import (
	"context"
	"sync"
	"time"

	"github.com/rs/xid"
	"go.uber.org/atomic"

	"github.com/acronis/go-cachekit/log"
	"github.com/acronis/go-cachekit/service"
)

// DefaultUpdateFrequency is the default interval between two wake-ups of the Registry's sweeper.
const DefaultUpdateFrequency = 30 * time.Second

// ManagedCache is a cache that can be driven by the Registry's sweeper.
// *Cache implements it for any key and value types.
type ManagedCache interface {
	ID() string
	Name() string
	ExpireCache() int
	ExpiryActive() bool
}

// RegistryOpts represents options for the Registry.
type RegistryOpts struct {
	// UpdateFrequency is an interval between two wake-ups of the sweeper.
	// DefaultUpdateFrequency is used if it's not positive.
	UpdateFrequency time.Duration

	// Metrics is used for collecting statistics of all caches created in the registry.
	// It can be nil, in this case, metrics will be disabled.
	Metrics *PrometheusMetrics

	// GracefulStopTimeout limits how long Shutdown waits for the sweeper to exit.
	// Zero means waiting without a limit.
	GracefulStopTimeout time.Duration
}

// Registry keeps track of caches and runs a single sweeper goroutine that expires their stale entries.
//
// The sweeper waits indefinitely while none of the registered caches has a positive time-to-live
// or idle timeout. Once any of them has, the sweeper wakes up every update frequency
// and calls ExpireCache on every registered cache. It doesn't return to the idle mode after that.
//
// Registry implements service.Unit and service.MetricsRegisterer,
// so it can be run as a part of a service.
type Registry struct {
	logger  log.FieldLogger
	metrics *PrometheusMetrics
	now     func() time.Time

	updateFrequency *atomic.Duration

	mu           sync.Mutex
	caches       map[string]ManagedCache
	activeExpiry bool

	wake     chan struct{}
	sweeper  *service.WorkerUnit
	done     chan struct{}
	stopOnce sync.Once
	stopErr  error
}

var _ service.Unit = (*Registry)(nil)
var _ service.MetricsRegisterer = (*Registry)(nil)

// NewRegistry creates a new Registry with default options and starts its sweeper.
func NewRegistry(logger log.FieldLogger) *Registry {
	return NewRegistryWithOpts(logger, RegistryOpts{})
}

// NewRegistryWithOpts creates a new Registry with the provided options and starts its sweeper.
// Call Shutdown (or Stop) to stop the sweeper.
func NewRegistryWithOpts(logger log.FieldLogger, opts RegistryOpts) *Registry {
	return newRegistry(logger, opts, time.Now)
}

func newRegistry(logger log.FieldLogger, opts RegistryOpts, now func() time.Time) *Registry {
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	if opts.UpdateFrequency <= 0 {
		opts.UpdateFrequency = DefaultUpdateFrequency
	}
	r := &Registry{
		logger:          logger,
		metrics:         opts.Metrics,
		now:             now,
		updateFrequency: atomic.NewDuration(opts.UpdateFrequency),
		caches:          make(map[string]ManagedCache),
		wake:            make(chan struct{}, 1),
		done:            make(chan struct{}),
	}
	r.sweeper = service.NewWorkerUnitWithOpts(service.WorkerFunc(r.runSweeper), service.WorkerUnitOpts{
		GracefulStopTimeout: opts.GracefulStopTimeout,
	})
	go r.sweeper.Start(make(chan error, 1))
	return r
}

// CreateCache creates a new cache and registers it in the registry.
func CreateCache[K comparable, V any](r *Registry, options ...CacheOption) *Cache[K, V] {
	opts := defaultCacheOptions()
	for _, opt := range options {
		opt(&opts)
	}
	c := newCache[K, V](xid.New().String(), r, opts)
	r.addCache(c)
	if c.ExpiryActive() {
		r.update()
	}
	return c
}

func (r *Registry) addCache(c ManagedCache) {
	r.mu.Lock()
	r.caches[c.ID()] = c
	r.mu.Unlock()

	r.logger.Debug("cache registered", log.String("cache_id", c.ID()), log.String("cache_name", c.Name()))
	r.signal()
}

// RemoveCache unregisters the cache.
// The cache stays usable, but its entries are not expired by the sweeper anymore.
func (r *Registry) RemoveCache(c ManagedCache) {
	r.mu.Lock()
	_, found := r.caches[c.ID()]
	delete(r.caches, c.ID())
	r.mu.Unlock()

	if found {
		r.logger.Debug("cache unregistered", log.String("cache_id", c.ID()), log.String("cache_name", c.Name()))
	}
}

// Len returns the number of registered caches.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.caches)
}

// SetUpdateFrequency changes the interval between two wake-ups of the sweeper.
// The new interval takes effect immediately.
func (r *Registry) SetUpdateFrequency(freq time.Duration) {
	r.updateFrequency.Store(freq)
	r.logger.Info("cache registry update frequency changed", log.Duration("update_frequency", freq))
	r.signal()
}

// UpdateFrequency returns the interval between two wake-ups of the sweeper.
func (r *Registry) UpdateFrequency() time.Duration {
	return r.updateFrequency.Load()
}

// ActiveExpiry reports whether the sweeper wakes up periodically.
func (r *Registry) ActiveExpiry() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeExpiry
}

// update is called by caches when their expiry settings change.
func (r *Registry) update() {
	r.mu.Lock()
	defer r.mu.Unlock()

	active := false
	for _, c := range r.caches {
		if c.ExpiryActive() {
			active = true
			break
		}
	}
	if active && !r.activeExpiry {
		r.activeExpiry = true
		r.logger.Info("cache registry active expiry enabled", log.Duration("update_frequency", r.UpdateFrequency()))
		r.signal()
	}
}

// signal wakes the sweeper up. A signal sent while the sweeper is busy is kept until its next wait.
func (r *Registry) signal() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *Registry) runSweeper(ctx context.Context) error {
	defer close(r.done)

	r.logger.Info("cache registry sweeper started", log.Duration("update_frequency", r.UpdateFrequency()))
	defer r.logger.Info("cache registry sweeper stopped")

	for {
		var timer *time.Timer
		var timeout <-chan time.Time
		if r.ActiveExpiry() {
			r.sweep()
			timer = time.NewTimer(r.UpdateFrequency())
			timeout = timer.C
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case <-r.wake:
		case <-timeout:
		}

		if timer != nil {
			timer.Stop()
		}
	}
}

func (r *Registry) sweep() {
	r.mu.Lock()
	caches := make([]ManagedCache, 0, len(r.caches))
	for _, c := range r.caches {
		caches = append(caches, c)
	}
	r.mu.Unlock()

	for _, c := range caches {
		if expired := c.ExpireCache(); expired > 0 {
			r.logger.Debug("cache entries expired",
				log.String("cache_id", c.ID()), log.String("cache_name", c.Name()), log.Int("expired", expired))
		}
	}
	if r.metrics != nil {
		r.metrics.SweepsTotal.Inc()
	}
}

func (r *Registry) cacheMetrics(cacheName string) MetricsCollector {
	if r.metrics == nil {
		return disabledMetrics{}
	}
	return r.metrics.ForCache(cacheName)
}

// Shutdown stops the sweeper gracefully. The registry can't be restarted after that.
func (r *Registry) Shutdown() error {
	return r.Stop(true)
}

// Start blocks until the sweeper is stopped. The sweeper itself is started by the constructor.
// Implements service.Unit interface.
func (r *Registry) Start(_ chan<- error) {
	<-r.done
}

// Stop stops the sweeper. Only the first call has an effect.
// Implements service.Unit interface.
func (r *Registry) Stop(gracefully bool) error {
	r.stopOnce.Do(func() {
		r.logger.Info("stopping cache registry sweeper...")
		r.stopErr = r.sweeper.Stop(gracefully)
	})
	return r.stopErr
}

// MustRegisterMetrics registers metrics in Prometheus client and panics if any error occurs.
// Implements service.MetricsRegisterer interface.
func (r *Registry) MustRegisterMetrics() {
	if r.metrics != nil {
		r.metrics.MustRegister()
	}
}

// UnregisterMetrics unregisters metrics in Prometheus client.
// Implements service.MetricsRegisterer interface.
func (r *Registry) UnregisterMetrics() {
	if r.metrics != nil {
		r.metrics.Unregister()
	}
}
