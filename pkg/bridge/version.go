// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bridge

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog"
)

// Executor performs a raw backend request without going through the
// adaptation pipeline. The negotiator and user resolver depend only on
// this abstraction so they can be tested against fakes.
type Executor interface {
	Execute(ctx context.Context, method, path string, query url.Values, body any) (status int, data []byte, err error)
}

// Confidence qualifies a negotiation outcome.
type Confidence string

const (
	ConfidenceHigh Confidence = "high"
	ConfidenceLow  Confidence = "low"
)

// VersionCapability describes one known backend API version.
type VersionCapability struct {
	VersionID        string
	Features         []string
	EndpointPatterns []string
	Limitations      []string
}

// ProbeResult is the outcome of probing one candidate version.
type ProbeResult struct {
	VersionID string
	Status    int
	Err       error
}

// DetectResult is the outcome of a full detection pass.
type DetectResult struct {
	VersionID    string
	Confidence   Confidence
	PerCandidate []ProbeResult
}

// versionCandidates is the fixed preference order, most capable first.
var versionCandidates = []string{"latest", "2"}

// versionCapabilities is the static capability table, keyed by version.
var versionCapabilities = map[string]*VersionCapability{
	"latest": {
		VersionID:        "latest",
		Features:         []string{"wiki-markup", "username-identity", "jql-search", "agile"},
		EndpointPatterns: []string{"/rest/api/latest/*", "/rest/agile/1.0/*"},
	},
	"2": {
		VersionID:        "2",
		Features:         []string{"wiki-markup", "username-identity", "jql-search", "agile"},
		EndpointPatterns: []string{"/rest/api/2/*", "/rest/agile/1.0/*"},
		Limitations:      []string{"no paginated priority search", "no bulk user lookup"},
	},
}

const negotiatedKey = "negotiated"

// VersionNegotiator probes the backend to pick a working API version and
// caches the result. It never blocks a caller on an unreachable backend:
// if every probe fails it falls back to the configured default with low
// confidence.
type VersionNegotiator struct {
	exec           Executor
	defaultVersion string
	cache          *ttlcache.Cache[string, string]
	ttl            time.Duration
	log            zerolog.Logger

	// probeMu coalesces concurrent probe passes so an expired cache does
	// not fan out one probe per in-flight request.
	probeMu sync.Mutex
}

// NewVersionNegotiator constructs a negotiator with its own TTL cache.
func NewVersionNegotiator(exec Executor, defaultVersion string, ttl time.Duration, log zerolog.Logger) *VersionNegotiator {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, string](ttl),
		ttlcache.WithDisableTouchOnHit[string, string](),
	)
	go cache.Start()
	return &VersionNegotiator{
		exec:           exec,
		defaultVersion: defaultVersion,
		cache:          cache,
		ttl:            ttl,
		log:            log.With().Str("component", "version_negotiator").Logger(),
	}
}

// Detect probes every candidate version's self-identity endpoint in
// preference order. The first success wins with high confidence; if all
// probes fail the statically configured version is returned with low
// confidence rather than an error.
func (n *VersionNegotiator) Detect(ctx context.Context) DetectResult {
	result := DetectResult{Confidence: ConfidenceLow, VersionID: n.defaultVersion}
	for _, candidate := range versionCandidates {
		status, _, err := n.exec.Execute(ctx, "GET", "/rest/api/"+candidate+"/myself", nil, nil)
		probe := ProbeResult{VersionID: candidate, Status: status, Err: err}
		result.PerCandidate = append(result.PerCandidate, probe)
		if err == nil && status >= 200 && status < 300 {
			result.VersionID = candidate
			result.Confidence = ConfidenceHigh
			n.log.Debug().Str("version", candidate).Msg("Version probe succeeded")
			return result
		}
		n.log.Debug().Str("version", candidate).Int("status", status).Err(err).Msg("Version probe failed")
	}
	n.log.Warn().Str("fallback", n.defaultVersion).Msg("All version probes failed, using configured default")
	return result
}

// NegotiateBestVersion returns the cached negotiated version, probing on
// a cold or expired cache.
func (n *VersionNegotiator) NegotiateBestVersion(ctx context.Context) (string, Confidence) {
	if item := n.cache.Get(negotiatedKey); item != nil {
		return item.Value(), ConfidenceHigh
	}

	n.probeMu.Lock()
	defer n.probeMu.Unlock()
	// Another caller may have finished probing while we waited.
	if item := n.cache.Get(negotiatedKey); item != nil {
		return item.Value(), ConfidenceHigh
	}

	result := n.Detect(ctx)
	if result.Confidence == ConfidenceHigh {
		n.cache.Set(negotiatedKey, result.VersionID, n.ttl)
		n.log.Info().Str("version", result.VersionID).Msg("Negotiated API version")
	}
	return result.VersionID, result.Confidence
}

// Capabilities returns the capability record for a version identifier.
func (n *VersionNegotiator) Capabilities(versionID string) (*VersionCapability, error) {
	capability, ok := versionCapabilities[versionID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedVersion, versionID)
	}
	return capability, nil
}

// EndpointRecommendations composes the mapper with the current version to
// produce human-readable diagnostics for a source path.
func (n *VersionNegotiator) EndpointRecommendations(ctx context.Context, sourcePath string) []string {
	version, confidence := n.NegotiateBestVersion(ctx)
	mapper := NewEndpointMapper(version)
	res := mapper.Map(sourcePath, nil, nil)

	var recs []string
	if !res.Supported {
		recs = append(recs, "path is not supported by the negotiated backend version "+version)
		recs = append(recs, res.Warnings...)
		return recs
	}
	recs = append(recs, "maps to "+res.TargetPath)
	if confidence == ConfidenceLow {
		recs = append(recs, "version negotiation degraded; using configured default "+version)
	}
	if capability, err := n.Capabilities(version); err == nil {
		for _, lim := range capability.Limitations {
			recs = append(recs, "backend limitation: "+lim)
		}
	}
	recs = append(recs, res.Warnings...)
	return recs
}

// ClearCache drops the cached negotiation so the next call re-probes.
func (n *VersionNegotiator) ClearCache() {
	n.cache.DeleteAll()
}

// Close stops the cache's expiration goroutine.
func (n *VersionNegotiator) Close() {
	n.cache.Stop()
}
