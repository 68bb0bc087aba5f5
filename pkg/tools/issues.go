// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// SearchIssuesTool handles the jira_search_issues MCP tool.
type SearchIssuesTool struct {
	client Client
}

// NewSearchIssuesTool creates a SearchIssuesTool with its dependencies.
func NewSearchIssuesTool(client Client) *SearchIssuesTool {
	return &SearchIssuesTool{client: client}
}

// Definition returns the MCP tool definition for registration.
func (t *SearchIssuesTool) Definition() mcp.Tool {
	return mcp.NewTool("jira_search_issues",
		mcp.WithDescription(
			"Search issues with a JQL query. Returns matching issues with their "+
				"fields, plus any adapter warnings (endpoint mapping, content "+
				"conversion) accumulated while serving the request.",
		),
		mcp.WithString("jql",
			mcp.Required(),
			mcp.Description("JQL query, e.g. 'project = OPS AND status = Open'."),
		),
		mcp.WithNumber("max_results",
			mcp.Description("Maximum number of issues to return. Defaults to 50."),
		),
	)
}

// Handle processes the jira_search_issues tool call.
func (t *SearchIssuesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jql := req.GetString("jql", "")
	if jql == "" {
		return mcp.NewToolResultError("jql is required"), nil
	}
	maxResults := req.GetInt("max_results", 50)

	env, err := t.client.SearchIssues(ctx, jql, maxResults)
	if err != nil {
		return mcp.NewToolResultError(describeError(err)), nil
	}
	out, err := renderEnvelope(env)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(out), nil
}

// GetIssueTool handles the jira_get_issue MCP tool.
type GetIssueTool struct {
	client Client
}

func NewGetIssueTool(client Client) *GetIssueTool {
	return &GetIssueTool{client: client}
}

func (t *GetIssueTool) Definition() mcp.Tool {
	return mcp.NewTool("jira_get_issue",
		mcp.WithDescription("Fetch a single issue by key or ID."),
		mcp.WithString("issue_key",
			mcp.Required(),
			mcp.Description("Issue key (e.g. OPS-123) or numeric ID."),
		),
	)
}

func (t *GetIssueTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	issueKey := req.GetString("issue_key", "")
	if issueKey == "" {
		return mcp.NewToolResultError("issue_key is required"), nil
	}
	env, err := t.client.GetIssue(ctx, issueKey)
	if err != nil {
		return mcp.NewToolResultError(describeError(err)), nil
	}
	out, err := renderEnvelope(env)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(out), nil
}

// CreateIssueTool handles the jira_create_issue MCP tool.
type CreateIssueTool struct {
	client Client
}

func NewCreateIssueTool(client Client) *CreateIssueTool {
	return &CreateIssueTool{client: client}
}

func (t *CreateIssueTool) Definition() mcp.Tool {
	return mcp.NewTool("jira_create_issue",
		mcp.WithDescription(
			"Create an issue. Fields are given in the cloud contract: rich text "+
				"as an ADF document, users by any alias (accountId, username, "+
				"email, display name). The bridge adapts them for the backend.",
		),
		mcp.WithString("fields",
			mcp.Required(),
			mcp.Description(
				"JSON object of issue fields, e.g. "+
					`{"project":{"key":"OPS"},"issuetype":{"name":"Task"},"summary":"..."}`,
			),
		),
	)
}

func (t *CreateIssueTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fields, err := parseFieldsJSON(req.GetString("fields", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	env, err := t.client.CreateIssue(ctx, fields)
	if err != nil {
		return mcp.NewToolResultError(describeError(err)), nil
	}
	out, err := renderEnvelope(env)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(out), nil
}

// UpdateIssueTool handles the jira_update_issue MCP tool.
type UpdateIssueTool struct {
	client Client
}

func NewUpdateIssueTool(client Client) *UpdateIssueTool {
	return &UpdateIssueTool{client: client}
}

func (t *UpdateIssueTool) Definition() mcp.Tool {
	return mcp.NewTool("jira_update_issue",
		mcp.WithDescription("Update fields of an existing issue."),
		mcp.WithString("issue_key",
			mcp.Required(),
			mcp.Description("Issue key (e.g. OPS-123) or numeric ID."),
		),
		mcp.WithString("fields",
			mcp.Required(),
			mcp.Description("JSON object of fields to update."),
		),
	)
}

func (t *UpdateIssueTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	issueKey := req.GetString("issue_key", "")
	if issueKey == "" {
		return mcp.NewToolResultError("issue_key is required"), nil
	}
	fields, err := parseFieldsJSON(req.GetString("fields", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	env, err := t.client.UpdateIssue(ctx, issueKey, fields)
	if err != nil {
		return mcp.NewToolResultError(describeError(err)), nil
	}
	out, err := renderEnvelope(env)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(out), nil
}

// DeleteIssueTool handles the jira_delete_issue MCP tool.
type DeleteIssueTool struct {
	client Client
}

func NewDeleteIssueTool(client Client) *DeleteIssueTool {
	return &DeleteIssueTool{client: client}
}

func (t *DeleteIssueTool) Definition() mcp.Tool {
	return mcp.NewTool("jira_delete_issue",
		mcp.WithDescription("Delete an issue by key or ID."),
		mcp.WithString("issue_key",
			mcp.Required(),
			mcp.Description("Issue key (e.g. OPS-123) or numeric ID."),
		),
	)
}

func (t *DeleteIssueTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	issueKey := req.GetString("issue_key", "")
	if issueKey == "" {
		return mcp.NewToolResultError("issue_key is required"), nil
	}
	env, err := t.client.DeleteIssue(ctx, issueKey)
	if err != nil {
		return mcp.NewToolResultError(describeError(err)), nil
	}
	out, err := renderEnvelope(env)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(out), nil
}

// AddCommentTool handles the jira_add_comment MCP tool.
type AddCommentTool struct {
	client Client
}

func NewAddCommentTool(client Client) *AddCommentTool {
	return &AddCommentTool{client: client}
}

func (t *AddCommentTool) Definition() mcp.Tool {
	return mcp.NewTool("jira_add_comment",
		mcp.WithDescription(
			"Add a comment to an issue. The body may be plain text or an ADF "+
				"document (JSON); rich content is converted for the backend.",
		),
		mcp.WithString("issue_key",
			mcp.Required(),
			mcp.Description("Issue key (e.g. OPS-123) or numeric ID."),
		),
		mcp.WithString("body",
			mcp.Required(),
			mcp.Description("Comment body: plain text, or an ADF document as JSON."),
		),
	)
}

func (t *AddCommentTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	issueKey := req.GetString("issue_key", "")
	if issueKey == "" {
		return mcp.NewToolResultError("issue_key is required"), nil
	}
	raw := req.GetString("body", "")
	if raw == "" {
		return mcp.NewToolResultError("body is required"), nil
	}

	// A body that parses as a JSON object is passed through as a
	// document; anything else is plain text.
	var body any = raw
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") {
		var doc map[string]any
		if err := json.Unmarshal([]byte(trimmed), &doc); err == nil {
			body = doc
		}
	}

	env, err := t.client.AddComment(ctx, issueKey, body)
	if err != nil {
		return mcp.NewToolResultError(describeError(err)), nil
	}
	out, err := renderEnvelope(env)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(out), nil
}
