// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aiku/jira-dc-bridge/pkg/bridge/adffmt"
	"github.com/aiku/jira-dc-bridge/pkg/bridge/wikifmt"
)

// richTextFields are body/response keys whose values carry rich content.
var richTextFields = map[string]bool{
	"description": true,
	"body":        true,
	"environment": true,
}

// userFields are body keys whose values reference a user by some alias.
var userFields = map[string]bool{
	"assignee": true,
	"reporter": true,
}

// transformOutgoingBody deep-copies the body and rewrites it for the
// backend contract: ADF rich-content fields become wiki markup strings
// and user-shaped fields become assignable identifiers. Failures degrade
// to warnings; the original value is kept.
func (c *Client) transformOutgoingBody(ctx context.Context, body map[string]any) (map[string]any, []string, error) {
	cloned, err := cloneBody(body)
	if err != nil {
		return nil, nil, fmt.Errorf("copying request body: %w", err)
	}
	var warnings []string
	c.walkOutgoing(ctx, cloned, &warnings)
	return cloned, warnings, nil
}

func (c *Client) walkOutgoing(ctx context.Context, m map[string]any, warnings *[]string) {
	for key, value := range m {
		if richTextFields[key] && adffmt.IsDocument(value) {
			res := adffmt.ToWikiAny(value)
			m[key] = res.Content
			*warnings = append(*warnings, res.Warnings...)
			if res.FallbackUsed {
				*warnings = append(*warnings, "rich content in "+key+" degraded during conversion")
				c.log.Debug().Str("field", key).Msg("Conversion fallback used")
			}
			continue
		}
		if userFields[key] {
			if converted, warning := c.resolveUserField(ctx, value); warning != "" {
				*warnings = append(*warnings, warning)
			} else if converted != nil {
				m[key] = converted
			}
			continue
		}
		switch child := value.(type) {
		case map[string]any:
			c.walkOutgoing(ctx, child, warnings)
		case []any:
			for _, item := range child {
				if childMap, ok := item.(map[string]any); ok {
					c.walkOutgoing(ctx, childMap, warnings)
				}
			}
		}
	}
}

// resolveUserField turns a user reference (a bare identifier string or an
// object carrying accountId/id/name) into the backend's assignee shape.
// Resolution failure is reported as a warning, never an error, so the
// field can pass through unresolved.
func (c *Client) resolveUserField(ctx context.Context, value any) (map[string]any, string) {
	identifier := ""
	switch v := value.(type) {
	case string:
		identifier = v
	case map[string]any:
		for _, key := range []string{"accountId", "id", "key", "name"} {
			if s, ok := v[key].(string); ok && s != "" {
				identifier = s
				break
			}
		}
	}
	if identifier == "" {
		return nil, ""
	}

	res := c.Users.Resolve(ctx, identifier, nil)
	if !res.Success {
		return nil, fmt.Sprintf("user %q left unresolved: %v", identifier, res.Err)
	}
	return map[string]any{"name": AssignableIdentifier(res.Record)}, ""
}

// transformIncomingBody rewrites rich-text fields in a backend response:
// values that detect as wiki markup are replaced with their plain-text
// extraction, with a warning recording the degradation.
func (c *Client) transformIncomingBody(data []byte) (json.RawMessage, []string) {
	if len(data) == 0 {
		return nil, nil
	}
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		// Not JSON; pass through untouched.
		return data, nil
	}
	var warnings []string
	walkIncoming(decoded, &warnings)
	if len(warnings) == 0 {
		return data, nil
	}
	out, err := json.Marshal(decoded)
	if err != nil {
		return data, warnings
	}
	return out, warnings
}

func walkIncoming(v any, warnings *[]string) {
	switch node := v.(type) {
	case map[string]any:
		for key, value := range node {
			if richTextFields[key] {
				if s, ok := value.(string); ok && s != "" {
					det := wikifmt.Detect(s)
					if det.Format == wikifmt.FormatWiki {
						node[key] = wikifmt.PlainText(s)
						*warnings = append(*warnings, key+" converted from wiki markup to plain text")
						continue
					}
				}
			}
			walkIncoming(value, warnings)
		}
	case []any:
		for _, item := range node {
			walkIncoming(item, warnings)
		}
	}
}

func cloneBody(body map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	var cloned map[string]any
	if err := json.Unmarshal(raw, &cloned); err != nil {
		return nil, err
	}
	return cloned, nil
}
