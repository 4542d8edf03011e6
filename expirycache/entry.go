/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package expirycache

import (
	"time"

	"go.uber.org/atomic"
)

type entry[K comparable, V any] struct {
	key            K
	value          V
	createdAt      time.Time
	lastAccessedAt *atomic.Time
}

func newEntry[K comparable, V any](key K, value V, now time.Time) *entry[K, V] {
	return &entry[K, V]{key: key, value: value, createdAt: now, lastAccessedAt: atomic.NewTime(now)}
}

// read returns the value and marks the entry as accessed.
// Concurrent readers race on the access time, the last store wins.
func (e *entry[K, V]) read(now time.Time) V {
	e.lastAccessedAt.Store(now)
	return e.value
}

func (e *entry[K, V]) lastAccess() time.Time {
	return e.lastAccessedAt.Load()
}
