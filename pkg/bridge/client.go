// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog"
)

// Request describes one call through the adaptation pipeline. Path is the
// caller-facing logical path; placeholders like {issueIdOrKey} are filled
// from PathParams.
type Request struct {
	Method     string
	Path       string
	PathParams map[string]string
	Query      url.Values
	Body       map[string]any
	// Timeout overrides the configured per-request timeout.
	Timeout time.Duration
	// CacheTTL opts a GET into the read-through cache for that duration.
	CacheTTL time.Duration
}

// Envelope is the annotated result of a pipeline call: the backend data
// plus the diagnostics every stage contributed.
type Envelope struct {
	RequestID    string          `json:"requestId"`
	Data         json.RawMessage `json:"data"`
	StatusCode   int             `json:"statusCode"`
	ResponseTime time.Duration   `json:"responseTime"`
	MappingUsed  bool            `json:"mappingUsed"`
	FromCache    bool            `json:"fromCache,omitempty"`
	Warnings     []string        `json:"warnings,omitempty"`
}

// Client is the unified adapter client: it maps endpoints, converts
// outgoing rich content, resolves user references, executes under a
// per-endpoint circuit breaker with retry, and converts incoming content.
type Client struct {
	cfg  *Config
	http *http.Client
	log  zerolog.Logger

	Negotiator *VersionNegotiator
	Users      *UserResolver

	mapperMu sync.Mutex
	mappers  map[string]*EndpointMapper

	breakerMu sync.Mutex
	breakers  map[string]*circuitBreaker

	readCache *ttlcache.Cache[string, *Envelope]
}

// NewClient constructs a client from a post-processed config.
func NewClient(cfg *Config, log zerolog.Logger) (*Client, error) {
	if cfg == nil || cfg.ServerURL == "" {
		return nil, ErrNotConfigured
	}
	c := &Client{
		cfg:      cfg,
		http:     &http.Client{},
		log:      log.With().Str("component", "bridge_client").Logger(),
		mappers:  make(map[string]*EndpointMapper),
		breakers: make(map[string]*circuitBreaker),
	}
	c.readCache = ttlcache.New(
		ttlcache.WithTTL[string, *Envelope](cfg.ReadCacheTTL),
		ttlcache.WithDisableTouchOnHit[string, *Envelope](),
	)
	go c.readCache.Start()

	transport := &rawTransport{client: c}
	c.Negotiator = NewVersionNegotiator(transport, cfg.DefaultVersion, cfg.VersionCacheTTL, log)
	c.Users = NewUserResolver(transport, func(ctx context.Context) string {
		version, _ := c.Negotiator.NegotiateBestVersion(ctx)
		return version
	}, cfg.UserCacheTTL, log)
	return c, nil
}

// Close releases cache goroutines.
func (c *Client) Close() {
	c.readCache.Stop()
	c.Negotiator.Close()
	c.Users.Close()
}

// rawTransport implements Executor against the configured backend with
// the bearer credential attached. It bypasses the adaptation pipeline:
// paths given to it are already backend-facing.
type rawTransport struct {
	client *Client
}

func (t *rawTransport) Execute(ctx context.Context, method, path string, query url.Values, body any) (int, []byte, error) {
	return t.client.execute(ctx, t.client.cfg.RequestTimeout, method, path, query, body)
}

// execute performs one backend call under the given timeout. The timeout
// is applied here and nowhere else, so per-request overrides are not
// clamped by the configured default.
func (c *Client) execute(ctx context.Context, timeout time.Duration, method, path string, query url.Values, body any) (int, []byte, error) {
	target := c.cfg.ServerURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.PersonalAccessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("reading response body: %w", err)
	}
	return resp.StatusCode, data, nil
}

// breaker returns the circuit breaker for a logical endpoint key,
// creating it on first use.
func (c *Client) breaker(endpointKey string) *circuitBreaker {
	c.breakerMu.Lock()
	defer c.breakerMu.Unlock()
	cb, ok := c.breakers[endpointKey]
	if !ok {
		cb = newCircuitBreaker(c.cfg.CircuitFailureThreshold, c.cfg.CircuitCooldown)
		c.breakers[endpointKey] = cb
	}
	return cb
}

// CircuitStates returns a snapshot of every known endpoint breaker, for
// diagnostics.
func (c *Client) CircuitStates() map[string]CircuitState {
	c.breakerMu.Lock()
	defer c.breakerMu.Unlock()
	out := make(map[string]CircuitState, len(c.breakers))
	for key, cb := range c.breakers {
		state, _ := cb.snapshot()
		out[key] = state
	}
	return out
}

func (c *Client) mapper(version string) *EndpointMapper {
	c.mapperMu.Lock()
	defer c.mapperMu.Unlock()
	m, ok := c.mappers[version]
	if !ok {
		m = NewEndpointMapper(version)
		c.mappers[version] = m
	}
	return m
}

// Do runs one request through the full pipeline: negotiate version, map
// the endpoint, transform the outgoing body, check the circuit, execute
// with retry, and transform the response.
func (c *Client) Do(ctx context.Context, req *Request) (*Envelope, error) {
	start := time.Now()
	env := &Envelope{RequestID: uuid.NewString()}

	version, confidence := c.Negotiator.NegotiateBestVersion(ctx)
	if confidence == ConfidenceLow {
		env.Warnings = append(env.Warnings, "version negotiation degraded; using configured default "+version)
	}

	mapping := c.mapper(version).Map(req.Path, req.PathParams, req.Query)
	env.Warnings = append(env.Warnings, mapping.Warnings...)
	if !mapping.Supported {
		reason := ""
		if len(mapping.Warnings) > 0 {
			reason = mapping.Warnings[len(mapping.Warnings)-1]
		}
		return nil, &EndpointUnsupportedError{Path: req.Path, Reason: reason}
	}
	env.MappingUsed = mapping.TargetPath != substituteParams(req.Path, req.PathParams)
	if mapping.Deprecated {
		c.log.Warn().Str("path", req.Path).Msg("Deprecated endpoint mapping used")
	}
	if mapping.Generic {
		c.log.Debug().Str("path", req.Path).Str("target", mapping.TargetPath).Msg("Generic endpoint mapping applied")
	}

	var body map[string]any
	if req.Body != nil {
		converted, warnings, err := c.transformOutgoingBody(ctx, req.Body)
		if err != nil {
			return nil, err
		}
		body = converted
		env.Warnings = append(env.Warnings, warnings...)
	}

	cacheKey := ""
	if req.Method == http.MethodGet && req.CacheTTL > 0 {
		cacheKey = req.Method + " " + mapping.TargetPath + "?" + mapping.Query.Encode()
		if item := c.readCache.Get(cacheKey); item != nil {
			c.log.Debug().Str("key", cacheKey).Msg("Read cache hit")
			cached := *item.Value()
			cached.FromCache = true
			cached.RequestID = env.RequestID
			cached.Warnings = mergeWarnings(cached.Warnings, env.Warnings)
			return &cached, nil
		}
	}

	cb := c.breaker(mapping.EndpointKey)
	if ok, retryAfter := cb.allow(); !ok {
		return nil, &CircuitOpenError{Endpoint: mapping.EndpointKey, RetryAfter: retryAfter}
	}

	timeout := c.cfg.RequestTimeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}

	var status int
	var data []byte
	err := executeWithRetry(ctx, retryConfig{
		MaxAttempts: c.cfg.MaxRetries,
		BaseDelay:   c.cfg.RetryBaseDelay,
		MaxDelay:    c.cfg.RetryMaxDelay,
	}, func(ctx context.Context, attempt int) error {
		var execErr error
		status, data, execErr = c.execute(ctx, timeout, req.Method, mapping.TargetPath, mapping.Query, body)
		if execErr != nil {
			c.log.Debug().Int("attempt", attempt).Err(execErr).Str("endpoint", mapping.EndpointKey).Msg("Attempt failed")
			return execErr
		}
		if status < 200 || status >= 300 {
			return &HTTPError{StatusCode: status, Endpoint: mapping.EndpointKey, Body: string(data)}
		}
		return nil
	})
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && !httpErr.Retryable() {
			// The backend answered; a non-retryable status is a caller
			// problem, not a health signal.
			cb.recordSuccess()
		} else if opened := cb.recordFailure(); opened {
			c.log.Warn().Str("endpoint", mapping.EndpointKey).Msg("Circuit opened")
		}
		return nil, err
	}
	if closed := cb.recordSuccess(); closed {
		c.log.Info().Str("endpoint", mapping.EndpointKey).Msg("Circuit closed")
	}

	respData, warnings := c.transformIncomingBody(data)
	env.Warnings = append(env.Warnings, warnings...)
	env.Data = respData
	env.StatusCode = status
	env.ResponseTime = time.Since(start)

	if cacheKey != "" {
		c.readCache.Set(cacheKey, env, req.CacheTTL)
	}
	return env, nil
}

// Get issues a GET through the pipeline.
func (c *Client) Get(ctx context.Context, path string, pathParams map[string]string, query url.Values) (*Envelope, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path, PathParams: pathParams, Query: query})
}

// Post issues a POST through the pipeline.
func (c *Client) Post(ctx context.Context, path string, pathParams map[string]string, body map[string]any) (*Envelope, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, PathParams: pathParams, Body: body})
}

// Put issues a PUT through the pipeline.
func (c *Client) Put(ctx context.Context, path string, pathParams map[string]string, body map[string]any) (*Envelope, error) {
	return c.Do(ctx, &Request{Method: http.MethodPut, Path: path, PathParams: pathParams, Body: body})
}

// Delete issues a DELETE through the pipeline.
func (c *Client) Delete(ctx context.Context, path string, pathParams map[string]string) (*Envelope, error) {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: path, PathParams: pathParams})
}

// mergeWarnings appends the extras not already present, without touching
// the base slice's backing array.
func mergeWarnings(base, extra []string) []string {
	out := append([]string(nil), base...)
	seen := make(map[string]bool, len(base))
	for _, w := range base {
		seen[w] = true
	}
	for _, w := range extra {
		if !seen[w] {
			out = append(out, w)
			seen[w] = true
		}
	}
	return out
}

// ClearCaches wipes the version, user, and read caches.
func (c *Client) ClearCaches() {
	c.Negotiator.ClearCache()
	c.Users.ClearCache()
	c.readCache.DeleteAll()
}
