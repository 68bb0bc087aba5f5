// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package bridge adapts cloud-contract issue-tracker calls to an
// on-premises Jira Server / Data Center backend.
//
// Callers speak the cloud REST contract: /rest/api/3 paths, ADF rich
// text, accountId user references. The backend speaks a related but
// incompatible one: /rest/api/2 or /rest/api/latest paths, wiki markup,
// username identities. The bridge translates between the two without the
// caller noticing, and stays resilient to a flaky on-premises network.
//
// # Core Types
//
// [Client] runs the unified pipeline for every call: negotiate the API
// version (cached), map the endpoint, convert outgoing rich content and
// user references, execute under a per-endpoint circuit breaker with
// retry/backoff, and convert incoming content. Results come back as an
// [Envelope] carrying the data plus the warnings every stage contributed.
//
// [EndpointMapper] is the pure translation table from caller-facing to
// backend-facing paths, parameterized by the negotiated version.
// Unmapped paths are rejected, never silently passed through.
//
// [VersionNegotiator] probes candidate versions' self-identity endpoint
// in preference order and caches the winner. An unreachable backend
// degrades to the configured default with low confidence instead of
// blocking the caller.
//
// [UserResolver] turns any alias of a person (key, username, email,
// display name) into one canonical [UserRecord], trying lookup
// strategies in order and caching under the raw identifier.
//
// # Degradation
//
// Recoverable conditions (conversion fallback, version fallback,
// unresolved users) are absorbed into Envelope warnings. Unrecoverable
// ones propagate as typed errors: [EndpointUnsupportedError],
// [CircuitOpenError], [HTTPError]. No condition is silently swallowed.
//
// # Sub-packages
//
//   - adffmt converts ADF document trees to Jira wiki markup.
//   - wikifmt detects, strips, and validates wiki markup text.
package bridge
