// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bridge

import (
	"net/url"
	"strings"
)

// MappingRule translates one caller-facing path to its backend-facing
// form. Rules are immutable after the mapper is built.
type MappingRule struct {
	// SourcePattern is the caller-facing path, possibly with {name}
	// placeholder segments.
	SourcePattern string
	// TargetTemplate is the backend path; {version} is replaced with the
	// negotiated version and {name} segments with matched path params.
	TargetTemplate string
	// TransformQuery renames or reshapes query parameters for the
	// backend contract (e.g. accountId lookups become username lookups).
	TransformQuery func(url.Values) url.Values
	Deprecated     bool
	Unsupported    bool
	Reason         string
}

// MappingResult is the outcome of translating one source path.
type MappingResult struct {
	Supported bool
	// EndpointKey identifies the logical endpoint (the matched rule's
	// source pattern); circuit-breaker state is tracked per key.
	EndpointKey string
	TargetPath  string
	Query       url.Values
	Deprecated  bool
	// Generic is set when no explicit rule matched and the versioned
	// family fallback rewrote the version segment.
	Generic  bool
	Warnings []string
}

// EndpointMapper is a pure translation table from caller-facing paths to
// backend-facing paths, parameterized by the negotiated API version. For a
// fixed version, Map is a pure function of its inputs.
type EndpointMapper struct {
	version string
	exact   map[string]*MappingRule
	params  []*MappingRule
	denied  []*MappingRule
}

const sourceAPIPrefix = "/rest/api/3/"

// NewEndpointMapper builds the rule table for one negotiated version.
func NewEndpointMapper(version string) *EndpointMapper {
	m := &EndpointMapper{
		version: version,
		exact:   make(map[string]*MappingRule),
	}
	for _, r := range defaultRules() {
		switch {
		case r.Unsupported:
			m.denied = append(m.denied, r)
		case strings.Contains(r.SourcePattern, "{"):
			m.params = append(m.params, r)
		default:
			m.exact[r.SourcePattern] = r
		}
	}
	return m
}

// Version returns the negotiated version the table was built for.
func (m *EndpointMapper) Version() string {
	return m.version
}

// Map translates a source path. Lookup order: exact rule, parameterized
// rule, deny-list, generic versioned-family fallback. Unmapped paths are
// rejected, never passed through. Placeholders in the source path are
// substituted from pathParams before matching; leftover placeholders are a
// caller error and surface as a warning on the result.
func (m *EndpointMapper) Map(sourcePath string, pathParams map[string]string, query url.Values) MappingResult {
	path := substituteParams(sourcePath, pathParams)
	res := MappingResult{Query: cloneValues(query)}
	if strings.Contains(path, "{") {
		res.Warnings = append(res.Warnings, "path still contains unsubstituted placeholders: "+path)
	}

	if rule, ok := m.exact[path]; ok {
		return m.apply(rule, nil, res)
	}

	for _, rule := range m.params {
		if params, ok := matchPattern(rule.SourcePattern, path); ok {
			return m.apply(rule, params, res)
		}
	}

	for _, rule := range m.denied {
		if path == rule.SourcePattern || strings.HasPrefix(path, rule.SourcePattern+"/") {
			res.Supported = false
			res.Warnings = append(res.Warnings, rule.Reason)
			return res
		}
	}

	// Generic fallback: the versioned API family keeps the same shape
	// across versions, so rewrite the version segment and flag it.
	if rest, ok := strings.CutPrefix(path, sourceAPIPrefix); ok {
		res.Supported = true
		res.Generic = true
		res.EndpointKey = path
		res.TargetPath = "/rest/api/" + m.version + "/" + rest
		res.Warnings = append(res.Warnings, "generic mapping applied for "+path)
		return res
	}

	res.Supported = false
	res.Warnings = append(res.Warnings, "no mapping exists for "+path)
	return res
}

func (m *EndpointMapper) apply(rule *MappingRule, params map[string]string, res MappingResult) MappingResult {
	res.Supported = true
	res.EndpointKey = rule.SourcePattern
	res.Deprecated = rule.Deprecated
	target := strings.ReplaceAll(rule.TargetTemplate, "{version}", m.version)
	res.TargetPath = substituteParams(target, params)
	if rule.TransformQuery != nil && res.Query != nil {
		res.Query = rule.TransformQuery(res.Query)
	}
	if rule.Deprecated {
		res.Warnings = append(res.Warnings, "deprecated mapping for "+rule.SourcePattern+": "+rule.Reason)
	}
	return res
}

// matchPattern matches a concrete path against a pattern with {name}
// segments, returning the extracted parameters.
func matchPattern(pattern, path string) (map[string]string, bool) {
	pSegs := strings.Split(strings.Trim(pattern, "/"), "/")
	segs := strings.Split(strings.Trim(path, "/"), "/")
	if len(pSegs) != len(segs) {
		return nil, false
	}
	params := make(map[string]string)
	for i, p := range pSegs {
		if strings.HasPrefix(p, "{") && strings.HasSuffix(p, "}") {
			if segs[i] == "" {
				return nil, false
			}
			params[strings.Trim(p, "{}")] = segs[i]
			continue
		}
		if p != segs[i] {
			return nil, false
		}
	}
	return params, true
}

func substituteParams(path string, params map[string]string) string {
	for name, value := range params {
		path = strings.ReplaceAll(path, "{"+name+"}", value)
	}
	return path
}

func cloneValues(q url.Values) url.Values {
	if q == nil {
		return nil
	}
	out := make(url.Values, len(q))
	for k, vs := range q {
		out[k] = append([]string(nil), vs...)
	}
	return out
}

// renameQueryParam returns a TransformQuery that renames one parameter.
func renameQueryParam(from, to string) func(url.Values) url.Values {
	return func(q url.Values) url.Values {
		if vs, ok := q[from]; ok {
			delete(q, from)
			q[to] = vs
		}
		return q
	}
}

// defaultRules is the translation table between the cloud-style v3
// contract the tools speak and the Server/DC contract. Agile paths are
// identical on both products and pass through unchanged.
func defaultRules() []*MappingRule {
	return []*MappingRule{
		// Core REST API, exact.
		{SourcePattern: "/rest/api/3/myself", TargetTemplate: "/rest/api/{version}/myself"},
		{SourcePattern: "/rest/api/3/search", TargetTemplate: "/rest/api/{version}/search"},
		{SourcePattern: "/rest/api/3/issue", TargetTemplate: "/rest/api/{version}/issue"},
		{SourcePattern: "/rest/api/3/project", TargetTemplate: "/rest/api/{version}/project"},
		{SourcePattern: "/rest/api/3/field", TargetTemplate: "/rest/api/{version}/field"},
		{SourcePattern: "/rest/api/3/serverInfo", TargetTemplate: "/rest/api/{version}/serverInfo"},
		{
			SourcePattern:  "/rest/api/3/user",
			TargetTemplate: "/rest/api/{version}/user",
			TransformQuery: renameQueryParam("accountId", "key"),
		},
		{
			SourcePattern:  "/rest/api/3/user/search",
			TargetTemplate: "/rest/api/{version}/user/search",
			TransformQuery: renameQueryParam("query", "username"),
		},
		{
			// Cloud gained a paginated priority search; Server keeps the
			// singular collection resource.
			SourcePattern:  "/rest/api/3/priority/search",
			TargetTemplate: "/rest/api/{version}/priority",
			Deprecated:     true,
			Reason:         "backend serves the unpaginated priority collection",
		},

		// Core REST API, parameterized.
		{SourcePattern: "/rest/api/3/issue/{issueIdOrKey}", TargetTemplate: "/rest/api/{version}/issue/{issueIdOrKey}"},
		{SourcePattern: "/rest/api/3/issue/{issueIdOrKey}/comment", TargetTemplate: "/rest/api/{version}/issue/{issueIdOrKey}/comment"},
		{SourcePattern: "/rest/api/3/issue/{issueIdOrKey}/transitions", TargetTemplate: "/rest/api/{version}/issue/{issueIdOrKey}/transitions"},
		{SourcePattern: "/rest/api/3/issue/{issueIdOrKey}/assignee", TargetTemplate: "/rest/api/{version}/issue/{issueIdOrKey}/assignee"},
		{SourcePattern: "/rest/api/3/issue/{issueIdOrKey}/worklog", TargetTemplate: "/rest/api/{version}/issue/{issueIdOrKey}/worklog"},
		{SourcePattern: "/rest/api/3/project/{projectIdOrKey}", TargetTemplate: "/rest/api/{version}/project/{projectIdOrKey}"},

		// Agile API passthrough.
		{SourcePattern: "/rest/agile/1.0/board", TargetTemplate: "/rest/agile/1.0/board"},
		{SourcePattern: "/rest/agile/1.0/board/{boardId}/sprint", TargetTemplate: "/rest/agile/1.0/board/{boardId}/sprint"},
		{SourcePattern: "/rest/agile/1.0/sprint", TargetTemplate: "/rest/agile/1.0/sprint"},
		{SourcePattern: "/rest/agile/1.0/sprint/{sprintId}", TargetTemplate: "/rest/agile/1.0/sprint/{sprintId}"},
		{SourcePattern: "/rest/agile/1.0/sprint/{sprintId}/issue", TargetTemplate: "/rest/agile/1.0/sprint/{sprintId}/issue"},

		// Deny-list: cloud-only surfaces with no Server/DC equivalent.
		{
			SourcePattern: "/rest/api/3/dashboard",
			Unsupported:   true,
			Reason:        "the dashboards API is not available on this backend",
		},
		{
			SourcePattern: "/rest/api/3/user/bulk",
			Unsupported:   true,
			Reason:        "bulk user lookup is a cloud-only endpoint",
		},
		{
			SourcePattern: "/rest/api/3/announcementBanner",
			Unsupported:   true,
			Reason:        "announcement banner management is a cloud-only endpoint",
		},
	}
}
