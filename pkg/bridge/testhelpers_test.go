// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bridge

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// endpointCall records which backend endpoints were hit during a test.
type endpointCall struct {
	Method string
	Path   string
	Query  string
	Body   string
	Auth   string
}

// fakeJira wraps an httptest.Server simulating a Jira Server/DC backend.
// It records calls and serves canned responses.
type fakeJira struct {
	Server *httptest.Server

	mu    sync.Mutex
	calls []endpointCall

	// Versions lists the API version segments whose myself probe
	// succeeds.
	Versions map[string]bool
	// Issues maps issue key to its fields payload.
	Issues map[string]map[string]any
	// Users maps a username to its user record.
	Users map[string]*UserRecord
	// FailPrefixes causes matching path prefixes to return 500.
	FailPrefixes map[string]bool
	// FailCount serves 500 for the first N requests to a prefix, then
	// recovers.
	FailCount map[string]int
	// SlowPrefixes delays responses for matching path prefixes.
	SlowPrefixes map[string]time.Duration
}

func newFakeJira() *fakeJira {
	f := &fakeJira{
		Versions:     map[string]bool{"latest": true, "2": true},
		Issues:       make(map[string]map[string]any),
		Users:        make(map[string]*UserRecord),
		FailPrefixes: make(map[string]bool),
		FailCount:    make(map[string]int),
		SlowPrefixes: make(map[string]time.Duration),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.handler))
	return f
}

func (f *fakeJira) Close() {
	f.Server.Close()
}

func (f *fakeJira) record(r *http.Request, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, endpointCall{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Body:   body,
		Auth:   r.Header.Get("Authorization"),
	})
}

func (f *fakeJira) Calls() []endpointCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]endpointCall, len(f.calls))
	copy(cp, f.calls)
	return cp
}

// CallsTo returns the calls whose path contains the fragment.
func (f *fakeJira) CallsTo(fragment string) []endpointCall {
	var out []endpointCall
	for _, c := range f.Calls() {
		if strings.Contains(c.Path, fragment) {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeJira) shouldFail(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for prefix := range f.FailPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	for prefix, n := range f.FailCount {
		if strings.HasPrefix(path, prefix) && n > 0 {
			f.FailCount[prefix] = n - 1
			return true
		}
	}
	return false
}

func (f *fakeJira) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.record(r, string(body))

	for prefix, delay := range f.SlowPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			time.Sleep(delay)
		}
	}

	if f.shouldFail(r.URL.Path) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]any{"errorMessages": []string{"fake backend error"}})
		return
	}

	path := r.URL.Path

	switch {
	// GET /rest/api/{v}/myself — the version probe.
	case r.Method == "GET" && strings.HasPrefix(path, "/rest/api/") && strings.HasSuffix(path, "/myself"):
		version := strings.TrimSuffix(strings.TrimPrefix(path, "/rest/api/"), "/myself")
		if !f.Versions[version] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"name": "bridge-svc"})

	// GET /rest/api/{v}/search
	case r.Method == "GET" && strings.HasSuffix(path, "/search") && !strings.Contains(path, "/user/"):
		var issues []map[string]any
		for key, fields := range f.Issues {
			issues = append(issues, map[string]any{"key": key, "fields": fields})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"total": len(issues), "issues": issues})

	// GET /rest/api/{v}/user/search
	case r.Method == "GET" && strings.HasSuffix(path, "/user/search"):
		var records []*UserRecord
		for _, u := range f.Users {
			records = append(records, u)
		}
		_ = json.NewEncoder(w).Encode(records)

	// GET /rest/api/{v}/user?username=... or ?key=...
	case r.Method == "GET" && strings.HasSuffix(path, "/user"):
		name := r.URL.Query().Get("username")
		if name == "" {
			name = r.URL.Query().Get("key")
		}
		if u, ok := f.Users[name]; ok {
			_ = json.NewEncoder(w).Encode(u)
			return
		}
		w.WriteHeader(http.StatusNotFound)

	// POST /rest/api/{v}/issue
	case r.Method == "POST" && strings.HasSuffix(path, "/issue"):
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "10001", "key": "OPS-1"})

	// GET /rest/api/{v}/issue/{key}
	case r.Method == "GET" && strings.Contains(path, "/issue/"):
		key := path[strings.LastIndex(path, "/")+1:]
		if fields, ok := f.Issues[key]; ok {
			_ = json.NewEncoder(w).Encode(map[string]any{"key": key, "fields": fields})
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"errorMessages": []string{"issue does not exist"}})

	// PUT /rest/api/{v}/issue/{key}
	case r.Method == "PUT" && strings.Contains(path, "/issue/"):
		w.WriteHeader(http.StatusNoContent)

	// DELETE /rest/api/{v}/issue/{key}
	case r.Method == "DELETE" && strings.Contains(path, "/issue/"):
		w.WriteHeader(http.StatusNoContent)

	// GET /rest/api/{v}/project
	case r.Method == "GET" && strings.HasSuffix(path, "/project"):
		_ = json.NewEncoder(w).Encode([]map[string]any{{"key": "OPS", "name": "Operations"}})

	// Agile endpoints pass through unversioned.
	case strings.HasPrefix(path, "/rest/agile/1.0/"):
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})

	default:
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"errorMessages": []string{"not found: " + path}})
	}
}

// testConfig returns fast retry and cache settings for a fake backend.
func testConfig(f *fakeJira) *Config {
	return &Config{
		ServerURL:               f.Server.URL,
		PersonalAccessToken:     "test-token",
		DefaultVersion:          "2",
		RequestTimeout:          2 * time.Second,
		MaxRetries:              3,
		RetryBaseDelay:          time.Millisecond,
		RetryMaxDelay:           5 * time.Millisecond,
		VersionCacheTTL:         time.Minute,
		UserCacheTTL:            time.Minute,
		ReadCacheTTL:            time.Minute,
		CircuitFailureThreshold: 2,
		CircuitCooldown:         time.Minute,
	}
}

// newTestClient builds a client against a fake backend.
func newTestClient(t *testing.T, f *fakeJira) *Client {
	t.Helper()
	return newTestClientWithConfig(t, testConfig(f))
}

func newTestClientWithConfig(t *testing.T, cfg *Config) *Client {
	t.Helper()
	client, err := NewClient(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(client.Close)
	return client
}
