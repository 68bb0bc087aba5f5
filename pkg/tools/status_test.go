// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/aiku/jira-dc-bridge/pkg/bridge"
)

func TestBridgeStatusTool(t *testing.T) {
	t.Parallel()
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/myself") {
			_ = json.NewEncoder(w).Encode(map[string]any{"name": "svc"})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer backend.Close()

	cfg := &bridge.Config{ServerURL: backend.URL, PersonalAccessToken: "t"}
	if err := cfg.PostProcess(); err != nil {
		t.Fatal(err)
	}
	cfg.RequestTimeout = 2 * time.Second

	client, err := bridge.NewClient(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	tool := NewBridgeStatusTool(client)
	result, err := tool.Handle(context.Background(), makeRequest(nil))
	if err != nil || isErrorResult(result) {
		t.Fatalf("Handle: err=%v result=%s", err, getResultText(result))
	}

	var status map[string]any
	if err := json.Unmarshal([]byte(getResultText(result)), &status); err != nil {
		t.Fatalf("status is not JSON: %v", err)
	}
	if status["negotiatedVersion"] != "latest" {
		t.Errorf("negotiatedVersion: got %v", status["negotiatedVersion"])
	}
	if status["confidence"] != "high" {
		t.Errorf("confidence: got %v", status["confidence"])
	}
	if _, ok := status["capabilities"]; !ok {
		t.Error("status should include the capability record")
	}
	if _, ok := status["userCache"]; !ok {
		t.Error("status should include user cache stats")
	}
}
