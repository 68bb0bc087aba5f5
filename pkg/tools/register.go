// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/aiku/jira-dc-bridge/pkg/bridge"
)

// Register wires every bridge tool into the MCP server. This is the
// composition point: tools receive the client, the server receives the
// tool definitions and handlers.
func Register(s *server.MCPServer, client *bridge.Client) {
	searchTool := NewSearchIssuesTool(client)
	s.AddTool(searchTool.Definition(), searchTool.Handle)

	getTool := NewGetIssueTool(client)
	s.AddTool(getTool.Definition(), getTool.Handle)

	createTool := NewCreateIssueTool(client)
	s.AddTool(createTool.Definition(), createTool.Handle)

	updateTool := NewUpdateIssueTool(client)
	s.AddTool(updateTool.Definition(), updateTool.Handle)

	deleteTool := NewDeleteIssueTool(client)
	s.AddTool(deleteTool.Definition(), deleteTool.Handle)

	commentTool := NewAddCommentTool(client)
	s.AddTool(commentTool.Definition(), commentTool.Handle)

	projectsTool := NewListProjectsTool(client)
	s.AddTool(projectsTool.Definition(), projectsTool.Handle)

	sprintsTool := NewListSprintsTool(client)
	s.AddTool(sprintsTool.Definition(), sprintsTool.Handle)

	createSprintTool := NewCreateSprintTool(client)
	s.AddTool(createSprintTool.Definition(), createSprintTool.Handle)

	moveTool := NewMoveIssuesToSprintTool(client)
	s.AddTool(moveTool.Definition(), moveTool.Handle)

	statusTool := NewBridgeStatusTool(client)
	s.AddTool(statusTool.Definition(), statusTool.Handle)
}
