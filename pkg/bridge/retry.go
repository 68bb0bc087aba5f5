// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bridge

import (
	"context"
	"time"
)

// retryConfig defines the bounded exponential backoff applied to each
// individual attempt of a retryable call.
type retryConfig struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// BaseDelay is the wait before the second attempt; it doubles per
	// attempt up to MaxDelay.
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// backoffDelay returns the delay before attempt n (1-based; attempt 1 has
// no delay).
func (rc retryConfig) backoffDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	delay := rc.BaseDelay
	for i := 2; i < attempt; i++ {
		delay *= 2
		if rc.MaxDelay > 0 && delay >= rc.MaxDelay {
			return rc.MaxDelay
		}
	}
	if rc.MaxDelay > 0 && delay > rc.MaxDelay {
		delay = rc.MaxDelay
	}
	return delay
}

// executeWithRetry runs op up to MaxAttempts times, waiting with
// exponential backoff between attempts. Non-retryable failure classes
// abort immediately; context cancellation aborts the wait.
func executeWithRetry(ctx context.Context, rc retryConfig, op func(ctx context.Context, attempt int) error) error {
	var lastErr error
	for attempt := 1; attempt <= rc.MaxAttempts; attempt++ {
		if delay := rc.backoffDelay(attempt); delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		lastErr = op(ctx, attempt)
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}
