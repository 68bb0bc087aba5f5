// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Command jira-dc-bridge is an MCP server that exposes a Jira Server /
// Data Center backend behind the cloud API contract. Callers issue
// cloud-shaped requests (v3 paths, ADF rich text, accountId identities)
// and the bridge adapts them for the on-premises backend.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"go.mau.fi/util/exerrors"

	"github.com/aiku/jira-dc-bridge/pkg/bridge"
	"github.com/aiku/jira-dc-bridge/pkg/tools"
)

// These are filled at build time with -ldflags.
var (
	Tag       = "unknown"
	Commit    = "unknown"
	BuildTime = "unknown"
)

const version = "0.1.0"

func main() {
	configPath := flag.String("config", "config.yaml", "path to the bridge config file")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("jira-dc-bridge v%s (%s/%s, built %s)\n", version, Tag, Commit, BuildTime)
		return
	}

	// Logs go to stderr: stdout belongs to the MCP stdio transport.
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger()

	cfg, err := bridge.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("Failed to load config")
	}

	client := exerrors.Must(bridge.NewClient(cfg, log))
	defer client.Close()

	s := server.NewMCPServer(
		"jira-dc-bridge",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)
	tools.Register(s, client)

	log.Info().
		Str("server", cfg.ServerURL).
		Str("default_version", cfg.DefaultVersion).
		Msg("Starting MCP server on stdio")
	if err := server.ServeStdio(s); err != nil {
		log.Fatal().Err(err).Msg("MCP server exited")
	}
}
