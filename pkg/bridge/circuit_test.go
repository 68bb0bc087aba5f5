// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bridge

import (
	"testing"
	"time"
)

// fixedClock lets tests drive the breaker's notion of time.
type fixedClock struct {
	t time.Time
}

func (c *fixedClock) now() time.Time {
	return c.t
}

func (c *fixedClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func newTestBreaker(threshold int, cooldown time.Duration) (*circuitBreaker, *fixedClock) {
	clock := &fixedClock{t: time.Unix(1000, 0)}
	cb := newCircuitBreaker(threshold, cooldown)
	cb.now = clock.now
	return cb, clock
}

func TestCircuitStartsClosed(t *testing.T) {
	t.Parallel()
	cb, _ := newTestBreaker(3, time.Minute)
	if ok, _ := cb.allow(); !ok {
		t.Error("closed breaker should allow calls")
	}
	state, failures := cb.snapshot()
	if state != CircuitClosed || failures != 0 {
		t.Errorf("snapshot: got %s/%d", state, failures)
	}
}

func TestCircuitOpensAtThreshold(t *testing.T) {
	t.Parallel()
	cb, _ := newTestBreaker(3, time.Minute)
	for i := 0; i < 2; i++ {
		if opened := cb.recordFailure(); opened {
			t.Fatalf("breaker opened after %d failures, threshold is 3", i+1)
		}
	}
	if opened := cb.recordFailure(); !opened {
		t.Fatal("breaker should open at the third consecutive failure")
	}
	if ok, retryAfter := cb.allow(); ok {
		t.Error("open breaker should fail fast")
	} else if retryAfter <= 0 || retryAfter > time.Minute {
		t.Errorf("retryAfter: got %s", retryAfter)
	}
}

func TestCircuitSuccessResetsFailureCount(t *testing.T) {
	t.Parallel()
	cb, _ := newTestBreaker(3, time.Minute)
	cb.recordFailure()
	cb.recordFailure()
	cb.recordSuccess()
	cb.recordFailure()
	cb.recordFailure()
	if state, _ := cb.snapshot(); state != CircuitClosed {
		t.Errorf("non-consecutive failures should not open, state: %s", state)
	}
}

func TestCircuitHalfOpenSingleTrial(t *testing.T) {
	t.Parallel()
	cb, clock := newTestBreaker(1, time.Minute)
	cb.recordFailure()

	// Cooldown not yet elapsed.
	if ok, _ := cb.allow(); ok {
		t.Fatal("breaker should still be open during cooldown")
	}

	clock.advance(time.Minute + time.Second)
	if ok, _ := cb.allow(); !ok {
		t.Fatal("breaker should allow one trial after cooldown")
	}
	if state, _ := cb.snapshot(); state != CircuitHalfOpen {
		t.Errorf("state: got %s, want half-open", state)
	}
	// A second caller during the trial is rejected.
	if ok, _ := cb.allow(); ok {
		t.Error("only one trial may be in flight")
	}
}

func TestCircuitHalfOpenSuccessCloses(t *testing.T) {
	t.Parallel()
	cb, clock := newTestBreaker(1, time.Minute)
	cb.recordFailure()
	clock.advance(2 * time.Minute)
	cb.allow()

	if transitioned := cb.recordSuccess(); !transitioned {
		t.Error("trial success should transition the state")
	}
	if state, failures := cb.snapshot(); state != CircuitClosed || failures != 0 {
		t.Errorf("snapshot: got %s/%d, want closed/0", state, failures)
	}
	if ok, _ := cb.allow(); !ok {
		t.Error("closed breaker should allow calls again")
	}
}

func TestCircuitHalfOpenFailureReopens(t *testing.T) {
	t.Parallel()
	cb, clock := newTestBreaker(1, time.Minute)
	cb.recordFailure()
	clock.advance(2 * time.Minute)
	cb.allow()

	if opened := cb.recordFailure(); !opened {
		t.Error("trial failure should reopen the breaker")
	}
	// Fresh cooldown: still open immediately after.
	if ok, _ := cb.allow(); ok {
		t.Error("breaker should be open with a fresh cooldown")
	}
	clock.advance(2 * time.Minute)
	if ok, _ := cb.allow(); !ok {
		t.Error("breaker should allow another trial after the fresh cooldown")
	}
}
