// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bridge

import (
	"sync"
	"time"
)

// CircuitState is the breaker state for one logical endpoint.
type CircuitState string

const (
	CircuitClosed   CircuitState = "closed"
	CircuitOpen     CircuitState = "open"
	CircuitHalfOpen CircuitState = "half-open"
)

// circuitBreaker guards one logical endpoint. Closed passes calls
// through; after threshold consecutive failures it opens and fails fast;
// after the cooldown a single trial request is allowed (half-open), whose
// outcome decides between closing again and re-opening.
type circuitBreaker struct {
	mu sync.Mutex

	threshold int
	cooldown  time.Duration
	now       func() time.Time

	state               CircuitState
	consecutiveFailures int
	openedAt            time.Time
	trialInFlight       bool
}

func newCircuitBreaker(threshold int, cooldown time.Duration) *circuitBreaker {
	return &circuitBreaker{
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
		state:     CircuitClosed,
	}
}

// allow reports whether a call may proceed. While open it returns the
// time remaining until the next trial; at most one caller wins the
// half-open trial slot regardless of how many are waiting.
func (cb *circuitBreaker) allow() (ok bool, retryAfter time.Duration) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true, 0
	case CircuitOpen:
		elapsed := cb.now().Sub(cb.openedAt)
		if elapsed < cb.cooldown {
			return false, cb.cooldown - elapsed
		}
		cb.state = CircuitHalfOpen
		cb.trialInFlight = true
		return true, 0
	case CircuitHalfOpen:
		if cb.trialInFlight {
			return false, cb.cooldown
		}
		cb.trialInFlight = true
		return true, 0
	}
	return true, 0
}

// recordSuccess applies a successful outcome atomically relative to
// other outcomes on the same endpoint.
func (cb *circuitBreaker) recordSuccess() (transitioned bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	transitioned = cb.state != CircuitClosed
	cb.state = CircuitClosed
	cb.consecutiveFailures = 0
	cb.trialInFlight = false
	return transitioned
}

// recordFailure applies a failed outcome; in half-open state a single
// failure re-opens with a fresh cooldown.
func (cb *circuitBreaker) recordFailure() (opened bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitHalfOpen:
		cb.state = CircuitOpen
		cb.openedAt = cb.now()
		cb.trialInFlight = false
		return true
	case CircuitClosed:
		cb.consecutiveFailures++
		if cb.consecutiveFailures >= cb.threshold {
			cb.state = CircuitOpen
			cb.openedAt = cb.now()
			return true
		}
	}
	return false
}

// snapshot returns the current state for diagnostics.
func (cb *circuitBreaker) snapshot() (CircuitState, int) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state, cb.consecutiveFailures
}
