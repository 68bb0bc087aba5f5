// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bridge

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for conditions callers branch on with errors.Is.
var (
	// ErrUnsupportedVersion is returned for version identifiers outside
	// the known capability table.
	ErrUnsupportedVersion = errors.New("unsupported API version")
	// ErrNotConfigured is returned when the client is used before a
	// server URL and credential are set.
	ErrNotConfigured = errors.New("bridge client not configured")
)

// EndpointUnsupportedError means no mapping exists for a source path.
// Fatal for the call; never retried.
type EndpointUnsupportedError struct {
	Path   string
	Reason string
}

func (e *EndpointUnsupportedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("endpoint %s is not supported by the backend: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("endpoint %s is not supported by the backend", e.Path)
}

// CircuitOpenError is returned without touching the network while an
// endpoint's breaker is open.
type CircuitOpenError struct {
	Endpoint   string
	RetryAfter time.Duration
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit open for %s, next trial in %s", e.Endpoint, e.RetryAfter.Round(time.Millisecond))
}

// HTTPError carries a non-2xx backend response. 5xx and 429 are
// retryable; other 4xx abort immediately.
type HTTPError struct {
	StatusCode int
	Endpoint   string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("backend returned HTTP %d for %s", e.StatusCode, e.Endpoint)
}

// Retryable reports whether the status belongs to the retryable failure
// class (server errors and rate limiting).
func (e *HTTPError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// AuthError reports whether the response was an authentication failure.
func (e *HTTPError) AuthError() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

// isRetryable classifies an error for the retry policy: network errors,
// timeouts, and retryable HTTP statuses retry; everything else aborts.
func isRetryable(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Retryable()
	}
	var unsupported *EndpointUnsupportedError
	if errors.As(err, &unsupported) {
		return false
	}
	var open *CircuitOpenError
	if errors.As(err, &open) {
		return false
	}
	// Remaining error classes are transport-level (connection refused,
	// reset, deadline exceeded) and worth another attempt.
	return err != nil
}
