/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package expirycache

import (
	"fmt"
	"strings"
)

// EjectionPolicy defines which entry is evicted when a bounded cache is full
// and no stale entries could be reclaimed.
type EjectionPolicy int32

// Ejection policies.
const (
	// EjectionPolicyLRU evicts the entry that was read least recently.
	EjectionPolicyLRU EjectionPolicy = iota
	// EjectionPolicyFIFO evicts the entry that was inserted first.
	EjectionPolicyFIFO
)

const (
	ejectionPolicyNameLRU  = "lru"
	ejectionPolicyNameFIFO = "fifo"
)

var availableEjectionPolicies = []string{ejectionPolicyNameLRU, ejectionPolicyNameFIFO}

// String returns the lower-case name of the policy.
func (p EjectionPolicy) String() string {
	switch p {
	case EjectionPolicyLRU:
		return ejectionPolicyNameLRU
	case EjectionPolicyFIFO:
		return ejectionPolicyNameFIFO
	}
	return fmt.Sprintf("EjectionPolicy(%d)", int32(p))
}

// ParseEjectionPolicy parses policy name ("lru" or "fifo", case-insensitive).
func ParseEjectionPolicy(s string) (EjectionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case ejectionPolicyNameLRU:
		return EjectionPolicyLRU, nil
	case ejectionPolicyNameFIFO:
		return EjectionPolicyFIFO, nil
	}
	return 0, fmt.Errorf("unknown ejection policy %q, should be one of %v", s, availableEjectionPolicies)
}

// selectEjectionCandidate scans all entries and returns the one the policy wants to evict.
// Ties are resolved by map iteration order.
func selectEjectionCandidate[K comparable, V any](policy EjectionPolicy, entries map[K]*entry[K, V]) *entry[K, V] {
	var candidate *entry[K, V]
	switch policy {
	case EjectionPolicyLRU:
		for _, e := range entries {
			if candidate == nil || e.lastAccess().Before(candidate.lastAccess()) {
				candidate = e
			}
		}
	case EjectionPolicyFIFO:
		for _, e := range entries {
			if candidate == nil || e.createdAt.Before(candidate.createdAt) {
				candidate = e
			}
		}
	}
	return candidate
}
