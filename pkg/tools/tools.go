// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package tools exposes the bridge's business operations as MCP tools.
//
// Every tool is a thin pass-through: it shapes its parameters 1:1 into a
// client call and renders the resulting envelope. All adaptation logic
// (endpoint mapping, content conversion, identity resolution, resilience)
// lives in the bridge client.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aiku/jira-dc-bridge/pkg/bridge"
)

// Client is the subset of the bridge client the tools depend on. Tests
// inject a fake instead of a full client.
type Client interface {
	SearchIssues(ctx context.Context, jql string, maxResults int) (*bridge.Envelope, error)
	GetIssue(ctx context.Context, issueKey string) (*bridge.Envelope, error)
	CreateIssue(ctx context.Context, fields map[string]any) (*bridge.Envelope, error)
	UpdateIssue(ctx context.Context, issueKey string, fields map[string]any) (*bridge.Envelope, error)
	DeleteIssue(ctx context.Context, issueKey string) (*bridge.Envelope, error)
	AddComment(ctx context.Context, issueKey string, body any) (*bridge.Envelope, error)
	ListProjects(ctx context.Context) (*bridge.Envelope, error)
	ListSprints(ctx context.Context, boardID int) (*bridge.Envelope, error)
	CreateSprint(ctx context.Context, name string, boardID int) (*bridge.Envelope, error)
	MoveIssuesToSprint(ctx context.Context, sprintID int, issueKeys []string) (*bridge.Envelope, error)
}

// renderEnvelope serializes an envelope for the tool response.
func renderEnvelope(env *bridge.Envelope) (string, error) {
	out, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return "", fmt.Errorf("rendering envelope: %w", err)
	}
	return string(out), nil
}

// describeError renders a pipeline error for the tool caller, keeping
// the typed detail (circuit state, unsupported endpoint) readable.
func describeError(err error) string {
	var open *bridge.CircuitOpenError
	if errors.As(err, &open) {
		return fmt.Sprintf("backend temporarily unavailable: %v", open)
	}
	var unsupported *bridge.EndpointUnsupportedError
	if errors.As(err, &unsupported) {
		return fmt.Sprintf("operation not supported by this backend: %v", unsupported)
	}
	var httpErr *bridge.HTTPError
	if errors.As(err, &httpErr) && httpErr.AuthError() {
		return fmt.Sprintf("authentication failed (HTTP %d): check the configured token", httpErr.StatusCode)
	}
	return err.Error()
}

// parseFieldsJSON decodes a fields parameter given as a JSON object
// string.
func parseFieldsJSON(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, errors.New("fields must be a non-empty JSON object")
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("fields is not valid JSON: %w", err)
	}
	return fields, nil
}
