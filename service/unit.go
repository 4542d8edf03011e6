/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package service contains the lifecycle primitives used to run a cache server:
// units that can be started and stopped, adapters for long-running workers and a
// Service that stops everything gracefully on OS signals.
package service

// Unit is a component of a service with its own start/stop lifecycle.
type Unit interface {
	// Start runs the unit. It may return right after initialization or block for the whole unit lifetime.
	// A failure is reported by writing to fatalErr. On success nothing is written,
	// and fatalErr must not be used after Start returns.
	Start(fatalErr chan<- error)

	// Stop halts the unit, trying to finish in-flight work if gracefully is true.
	// It may be called even if Start has failed or has never been called.
	Stop(gracefully bool) error
}

// MetricsRegisterer is an interface for objects that can register its own metrics.
type MetricsRegisterer interface {
	MustRegisterMetrics()
	UnregisterMetrics()
}
