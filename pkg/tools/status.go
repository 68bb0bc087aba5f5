// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/aiku/jira-dc-bridge/pkg/bridge"
)

// BridgeStatusTool handles the jira_bridge_status MCP tool. Unlike the
// business tools it needs the concrete client: the diagnostics it
// reports (negotiated version, caches, circuits) live below the Client
// interface.
type BridgeStatusTool struct {
	client *bridge.Client
}

func NewBridgeStatusTool(client *bridge.Client) *BridgeStatusTool {
	return &BridgeStatusTool{client: client}
}

func (t *BridgeStatusTool) Definition() mcp.Tool {
	return mcp.NewTool("jira_bridge_status",
		mcp.WithDescription(
			"Report the adapter's runtime state: negotiated backend API "+
				"version, known backend capabilities, per-endpoint circuit "+
				"breaker states, and identity cache statistics.",
		),
	)
}

func (t *BridgeStatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	version, confidence := t.client.Negotiator.NegotiateBestVersion(ctx)

	status := map[string]any{
		"negotiatedVersion": version,
		"confidence":        confidence,
	}
	if capability, err := t.client.Negotiator.Capabilities(version); err == nil {
		status["capabilities"] = capability
	}

	circuits := t.client.CircuitStates()
	if len(circuits) > 0 {
		status["circuits"] = circuits
	}

	userStats := t.client.Users.Stats()
	status["userCache"] = map[string]any{
		"size":      userStats.Size,
		"oldestAge": userStats.OldestAge.String(),
	}

	out, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("rendering status: %w", err)
	}
	return mcp.NewToolResultText(string(out)), nil
}
