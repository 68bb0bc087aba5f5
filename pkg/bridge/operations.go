// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bridge

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// Domain-shaped helpers. These are thin wrappers over Do: they shape
// parameters 1:1 into requests and carry no adaptation logic of their
// own.

// SearchIssues runs a JQL search. Results are cached briefly since
// searches are idempotent and often repeated by interactive callers.
func (c *Client) SearchIssues(ctx context.Context, jql string, maxResults int) (*Envelope, error) {
	query := url.Values{"jql": {jql}}
	if maxResults > 0 {
		query.Set("maxResults", strconv.Itoa(maxResults))
	}
	return c.Do(ctx, &Request{
		Method:   http.MethodGet,
		Path:     "/rest/api/3/search",
		Query:    query,
		CacheTTL: c.cfg.ReadCacheTTL,
	})
}

// GetIssue fetches one issue by key or ID.
func (c *Client) GetIssue(ctx context.Context, issueKey string) (*Envelope, error) {
	return c.Get(ctx, "/rest/api/3/issue/{issueIdOrKey}", map[string]string{"issueIdOrKey": issueKey}, nil)
}

// CreateIssue creates an issue from cloud-shaped fields (ADF rich text
// and accountId user references are adapted in the pipeline).
func (c *Client) CreateIssue(ctx context.Context, fields map[string]any) (*Envelope, error) {
	return c.Post(ctx, "/rest/api/3/issue", nil, map[string]any{"fields": fields})
}

// UpdateIssue updates an issue's fields.
func (c *Client) UpdateIssue(ctx context.Context, issueKey string, fields map[string]any) (*Envelope, error) {
	return c.Put(ctx, "/rest/api/3/issue/{issueIdOrKey}", map[string]string{"issueIdOrKey": issueKey},
		map[string]any{"fields": fields})
}

// DeleteIssue deletes an issue.
func (c *Client) DeleteIssue(ctx context.Context, issueKey string) (*Envelope, error) {
	return c.Delete(ctx, "/rest/api/3/issue/{issueIdOrKey}", map[string]string{"issueIdOrKey": issueKey})
}

// AddComment adds a comment to an issue.
func (c *Client) AddComment(ctx context.Context, issueKey string, body any) (*Envelope, error) {
	return c.Post(ctx, "/rest/api/3/issue/{issueIdOrKey}/comment", map[string]string{"issueIdOrKey": issueKey},
		map[string]any{"body": body})
}

// ListProjects lists the projects visible to the credential.
func (c *Client) ListProjects(ctx context.Context) (*Envelope, error) {
	return c.Do(ctx, &Request{
		Method:   http.MethodGet,
		Path:     "/rest/api/3/project",
		CacheTTL: c.cfg.ReadCacheTTL,
	})
}

// ListSprints lists the sprints of a board.
func (c *Client) ListSprints(ctx context.Context, boardID int) (*Envelope, error) {
	return c.Get(ctx, "/rest/agile/1.0/board/{boardId}/sprint",
		map[string]string{"boardId": strconv.Itoa(boardID)}, nil)
}

// CreateSprint creates a sprint on a board.
func (c *Client) CreateSprint(ctx context.Context, name string, boardID int) (*Envelope, error) {
	return c.Post(ctx, "/rest/agile/1.0/sprint", nil, map[string]any{
		"name":          name,
		"originBoardId": boardID,
	})
}

// UpdateSprint updates sprint attributes (name, state, dates).
func (c *Client) UpdateSprint(ctx context.Context, sprintID int, attrs map[string]any) (*Envelope, error) {
	return c.Post(ctx, "/rest/agile/1.0/sprint/{sprintId}",
		map[string]string{"sprintId": strconv.Itoa(sprintID)}, attrs)
}

// MoveIssuesToSprint moves issues into a sprint.
func (c *Client) MoveIssuesToSprint(ctx context.Context, sprintID int, issueKeys []string) (*Envelope, error) {
	return c.Post(ctx, "/rest/agile/1.0/sprint/{sprintId}/issue",
		map[string]string{"sprintId": strconv.Itoa(sprintID)},
		map[string]any{"issues": issueKeys})
}
