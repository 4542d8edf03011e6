/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package testutil contains helpers for testing servers and metrics of the cache kit.
package testutil

type tHelper interface {
	Helper()
}
