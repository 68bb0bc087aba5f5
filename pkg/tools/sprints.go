// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// ListSprintsTool handles the jira_list_sprints MCP tool.
type ListSprintsTool struct {
	client Client
}

func NewListSprintsTool(client Client) *ListSprintsTool {
	return &ListSprintsTool{client: client}
}

func (t *ListSprintsTool) Definition() mcp.Tool {
	return mcp.NewTool("jira_list_sprints",
		mcp.WithDescription("List the sprints of an agile board."),
		mcp.WithNumber("board_id",
			mcp.Required(),
			mcp.Description("Numeric board ID."),
		),
	)
}

func (t *ListSprintsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	boardID := req.GetInt("board_id", 0)
	if boardID <= 0 {
		return mcp.NewToolResultError("board_id must be a positive number"), nil
	}
	env, err := t.client.ListSprints(ctx, boardID)
	if err != nil {
		return mcp.NewToolResultError(describeError(err)), nil
	}
	out, err := renderEnvelope(env)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(out), nil
}

// CreateSprintTool handles the jira_create_sprint MCP tool.
type CreateSprintTool struct {
	client Client
}

func NewCreateSprintTool(client Client) *CreateSprintTool {
	return &CreateSprintTool{client: client}
}

func (t *CreateSprintTool) Definition() mcp.Tool {
	return mcp.NewTool("jira_create_sprint",
		mcp.WithDescription("Create a sprint on an agile board."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Sprint name."),
		),
		mcp.WithNumber("board_id",
			mcp.Required(),
			mcp.Description("Numeric ID of the board the sprint belongs to."),
		),
	)
}

func (t *CreateSprintTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	if name == "" {
		return mcp.NewToolResultError("name is required"), nil
	}
	boardID := req.GetInt("board_id", 0)
	if boardID <= 0 {
		return mcp.NewToolResultError("board_id must be a positive number"), nil
	}
	env, err := t.client.CreateSprint(ctx, name, boardID)
	if err != nil {
		return mcp.NewToolResultError(describeError(err)), nil
	}
	out, err := renderEnvelope(env)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(out), nil
}

// MoveIssuesToSprintTool handles the jira_move_issues_to_sprint MCP tool.
type MoveIssuesToSprintTool struct {
	client Client
}

func NewMoveIssuesToSprintTool(client Client) *MoveIssuesToSprintTool {
	return &MoveIssuesToSprintTool{client: client}
}

func (t *MoveIssuesToSprintTool) Definition() mcp.Tool {
	return mcp.NewTool("jira_move_issues_to_sprint",
		mcp.WithDescription("Move one or more issues into a sprint."),
		mcp.WithNumber("sprint_id",
			mcp.Required(),
			mcp.Description("Numeric sprint ID."),
		),
		mcp.WithString("issue_keys",
			mcp.Required(),
			mcp.Description("Comma-separated issue keys, e.g. 'OPS-1,OPS-2'."),
		),
	)
}

func (t *MoveIssuesToSprintTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sprintID := req.GetInt("sprint_id", 0)
	if sprintID <= 0 {
		return mcp.NewToolResultError("sprint_id must be a positive number"), nil
	}
	var keys []string
	for _, key := range strings.Split(req.GetString("issue_keys", ""), ",") {
		if key = strings.TrimSpace(key); key != "" {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return mcp.NewToolResultError("issue_keys must name at least one issue"), nil
	}
	env, err := t.client.MoveIssuesToSprint(ctx, sprintID, keys)
	if err != nil {
		return mcp.NewToolResultError(describeError(err)), nil
	}
	out, err := renderEnvelope(env)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(out), nil
}
