// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// ListProjectsTool handles the jira_list_projects MCP tool.
type ListProjectsTool struct {
	client Client
}

func NewListProjectsTool(client Client) *ListProjectsTool {
	return &ListProjectsTool{client: client}
}

func (t *ListProjectsTool) Definition() mcp.Tool {
	return mcp.NewTool("jira_list_projects",
		mcp.WithDescription("List the projects visible to the configured credential."),
	)
}

func (t *ListProjectsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	env, err := t.client.ListProjects(ctx)
	if err != nil {
		return mcp.NewToolResultError(describeError(err)), nil
	}
	out, err := renderEnvelope(env)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(out), nil
}
