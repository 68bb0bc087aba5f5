// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog"
)

// UserRecord is the canonical identity produced by resolution, whichever
// alias was used to look it up.
type UserRecord struct {
	Key         string `json:"key"`
	Username    string `json:"name"`
	DisplayName string `json:"displayName"`
	Email       string `json:"emailAddress"`
	Active      bool   `json:"active"`
}

// IdentifierType classifies the shape of a user identifier.
type IdentifierType string

const (
	IdentifierKey         IdentifierType = "key"
	IdentifierUsername    IdentifierType = "username"
	IdentifierEmail       IdentifierType = "email"
	IdentifierDisplayName IdentifierType = "display-name"
)

// Resolution is the outcome of resolving one identifier. All-strategies
// failure is reported via Success=false and Err, not a Go error, so
// callers can degrade to leaving the field unresolved.
type Resolution struct {
	Success        bool
	Record         *UserRecord
	Strategy       IdentifierType
	IdentifierType IdentifierType
	Cached         bool
	Err            error
}

// ResolveOptions tune a single resolution.
type ResolveOptions struct {
	// Strategy forces a specific first strategy instead of deriving the
	// order from the identifier shape.
	Strategy IdentifierType
	// SkipCache bypasses the read side of the cache (the result is still
	// stored).
	SkipCache bool
}

// CacheStats exposes resolution-cache observability.
type CacheStats struct {
	Size      int
	OldestAge time.Duration
}

var (
	uuidRe    = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	hexKeyRe  = regexp.MustCompile(`^[0-9a-f]{16,}$`)
	numericRe = regexp.MustCompile(`^[0-9]+$`)
)

// DetectIdentifierType classifies an identifier by shape: UUID-, hex- or
// purely numeric identifiers are primary keys, an @ means email,
// whitespace means display name, anything else is a username.
func DetectIdentifierType(identifier string) IdentifierType {
	trimmed := strings.TrimSpace(identifier)
	switch {
	case uuidRe.MatchString(trimmed), hexKeyRe.MatchString(trimmed), numericRe.MatchString(trimmed):
		return IdentifierKey
	case strings.Contains(trimmed, "@"):
		return IdentifierEmail
	case strings.ContainsAny(trimmed, " \t"):
		return IdentifierDisplayName
	default:
		return IdentifierUsername
	}
}

// UserResolver resolves opaque user identifiers to canonical records via
// an ordered list of lookup strategies, with a TTL cache keyed by the raw
// identifier string. Concurrent resolutions of the same unseen identifier
// are coalesced into one backend lookup.
type UserResolver struct {
	exec      Executor
	versionFn func(ctx context.Context) string
	cache     *ttlcache.Cache[string, *UserRecord]
	ttl       time.Duration
	log       zerolog.Logger

	inflightMu sync.Mutex
	inflight   map[string]*inflightResolve
}

type inflightResolve struct {
	done chan struct{}
	res  Resolution
}

// NewUserResolver constructs a resolver. versionFn supplies the
// negotiated API version used to build lookup paths.
func NewUserResolver(exec Executor, versionFn func(ctx context.Context) string, ttl time.Duration, log zerolog.Logger) *UserResolver {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, *UserRecord](ttl),
		ttlcache.WithDisableTouchOnHit[string, *UserRecord](),
	)
	go cache.Start()
	return &UserResolver{
		exec:      exec,
		versionFn: versionFn,
		cache:     cache,
		ttl:       ttl,
		log:       log.With().Str("component", "user_resolver").Logger(),
		inflight:  make(map[string]*inflightResolve),
	}
}

// Resolve looks up an identifier. The cache is keyed by the raw
// identifier string, so repeated lookups by the same alias hit the cache
// even before resolution normalizes them. The first successful strategy
// wins; every configured strategy failing yields Success=false with the
// last error.
func (r *UserResolver) Resolve(ctx context.Context, identifier string, opts *ResolveOptions) Resolution {
	if opts == nil {
		opts = &ResolveOptions{}
	}
	idType := DetectIdentifierType(identifier)

	if !opts.SkipCache {
		if item := r.cache.Get(identifier); item != nil {
			r.log.Debug().Str("identifier", identifier).Msg("User cache hit")
			return Resolution{
				Success:        true,
				Record:         item.Value(),
				IdentifierType: idType,
				Cached:         true,
			}
		}
	}

	// Coalesce concurrent lookups for the same key.
	r.inflightMu.Lock()
	if call, ok := r.inflight[identifier]; ok {
		r.inflightMu.Unlock()
		select {
		case <-call.done:
			return call.res
		case <-ctx.Done():
			return Resolution{IdentifierType: idType, Err: ctx.Err()}
		}
	}
	call := &inflightResolve{done: make(chan struct{})}
	r.inflight[identifier] = call
	r.inflightMu.Unlock()

	res := r.resolveUncached(ctx, identifier, idType, opts)

	call.res = res
	close(call.done)
	r.inflightMu.Lock()
	delete(r.inflight, identifier)
	r.inflightMu.Unlock()
	return res
}

func (r *UserResolver) resolveUncached(ctx context.Context, identifier string, idType IdentifierType, opts *ResolveOptions) Resolution {
	res := Resolution{IdentifierType: idType}
	var lastErr error
	for _, strategy := range strategyOrder(idType, opts.Strategy) {
		record, err := r.lookup(ctx, strategy, identifier)
		if err != nil {
			lastErr = err
			r.log.Debug().Str("identifier", identifier).Str("strategy", string(strategy)).Err(err).Msg("Lookup strategy failed")
			continue
		}
		r.cache.Set(identifier, record, r.ttl)
		r.log.Debug().Str("identifier", identifier).Str("strategy", string(strategy)).Str("username", record.Username).Msg("User resolved")
		res.Success = true
		res.Record = record
		res.Strategy = strategy
		return res
	}
	res.Err = fmt.Errorf("all lookup strategies failed for %q: %w", identifier, lastErr)
	return res
}

// strategyOrder picks the strategy chain: the forced or detected-type
// strategy first, then the remaining ones.
func strategyOrder(idType IdentifierType, forced IdentifierType) []IdentifierType {
	all := []IdentifierType{IdentifierKey, IdentifierUsername, IdentifierEmail, IdentifierDisplayName}
	first := idType
	if forced != "" {
		first = forced
	}
	order := []IdentifierType{first}
	for _, s := range all {
		if s != first {
			order = append(order, s)
		}
	}
	return order
}

// lookup performs one strategy's backend call.
func (r *UserResolver) lookup(ctx context.Context, strategy IdentifierType, identifier string) (*UserRecord, error) {
	base := "/rest/api/" + r.versionFn(ctx)
	switch strategy {
	case IdentifierKey:
		return r.fetchOne(ctx, base+"/user", url.Values{"key": {identifier}})
	case IdentifierUsername:
		return r.fetchOne(ctx, base+"/user", url.Values{"username": {identifier}})
	case IdentifierEmail, IdentifierDisplayName:
		return r.search(ctx, base+"/user/search", strategy, identifier)
	}
	return nil, fmt.Errorf("unknown lookup strategy %q", strategy)
}

func (r *UserResolver) fetchOne(ctx context.Context, path string, query url.Values) (*UserRecord, error) {
	status, data, err := r.exec.Execute(ctx, "GET", path, query, nil)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, &HTTPError{StatusCode: status, Endpoint: path}
	}
	var record UserRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decoding user record: %w", err)
	}
	if record.Username == "" && record.Key == "" {
		return nil, fmt.Errorf("user lookup returned an empty record")
	}
	return &record, nil
}

// search runs the fuzzy user search and picks the best match: exact email
// for email lookups, case-insensitive display-name match otherwise.
func (r *UserResolver) search(ctx context.Context, path string, strategy IdentifierType, identifier string) (*UserRecord, error) {
	status, data, err := r.exec.Execute(ctx, "GET", path, url.Values{"username": {identifier}}, nil)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, &HTTPError{StatusCode: status, Endpoint: path}
	}
	var records []*UserRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decoding user search results: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no users matched %q", identifier)
	}
	for _, rec := range records {
		if strategy == IdentifierEmail && strings.EqualFold(rec.Email, identifier) {
			return rec, nil
		}
		if strategy == IdentifierDisplayName && strings.EqualFold(rec.DisplayName, identifier) {
			return rec, nil
		}
	}
	return records[0], nil
}

// AssignableIdentifier picks the identifier a write operation should use
// for a resolved user: the primary key, unless it is identical to the
// username (then either is equivalent).
func AssignableIdentifier(record *UserRecord) string {
	if record == nil {
		return ""
	}
	if record.Key != "" && record.Key != record.Username {
		return record.Key
	}
	return record.Username
}

// Stats reports cache size and the age of the oldest entry.
func (r *UserResolver) Stats() CacheStats {
	stats := CacheStats{}
	now := time.Now()
	for _, item := range r.cache.Items() {
		stats.Size++
		age := r.ttl - item.ExpiresAt().Sub(now)
		if age > stats.OldestAge {
			stats.OldestAge = age
		}
	}
	return stats
}

// ClearCache drops every cached resolution.
func (r *UserResolver) ClearCache() {
	r.cache.DeleteAll()
}

// Close stops the cache's expiration goroutine.
func (r *UserResolver) Close() {
	r.cache.Stop()
}
