/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package expirycache provides in-memory caches with size-bounded LRU/FIFO eviction and
// time-based expiry (time-to-live and idle timeout).
//
// Caches do not run goroutines of their own. Every cache is created through a Registry,
// and the Registry runs a single sweeper goroutine that periodically asks all registered caches
// to drop stale entries. The sweeper stays idle until at least one cache has a positive
// time-to-live or idle timeout configured.
//
// Expiry is best-effort and lazy: an entry may outlive its deadline by up to the sweep interval.
package expirycache
