// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newLocalFixture(t *testing.T, handler http.HandlerFunc) *Local {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewLocal(srv.URL)
}

func decodeRPC(t *testing.T, r *http.Request) rpcRequest {
	t.Helper()
	var req rpcRequest
	require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
	return req
}

func writeRPCResult(t *testing.T, w http.ResponseWriter, id string, result interface{}) {
	t.Helper()
	payload, err := json.Marshal(result)
	require.NoError(t, err)
	resp := rpcResponse{JSONRPC: "2.0", ID: id, Result: payload}
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(resp))
}

func TestLocalListToolsPerformsHandshake(t *testing.T) {
	var methods []string
	c := newLocalFixture(t, func(w http.ResponseWriter, r *http.Request) {
		req := decodeRPC(t, r)
		methods = append(methods, req.Method)
		switch req.Method {
		case "initialize", "initialized":
			writeRPCResult(t, w, req.ID, map[string]interface{}{})
		case "tools/list":
			writeRPCResult(t, w, req.ID, map[string]interface{}{
				"tools": []ToolInfo{{Name: "echo", Description: "echoes input"}},
			})
		}
	})

	tools, err := c.ListTools()
	require.NoError(t, err)
	require.Len(t, tools, 1)
	require.Equal(t, "echo", tools[0].Name)
	require.Equal(t, []string{"initialize", "initialized", "tools/list"}, methods)
}

func TestLocalCallToolSurfacesToolError(t *testing.T) {
	c := newLocalFixture(t, func(w http.ResponseWriter, r *http.Request) {
		req := decodeRPC(t, r)
		switch req.Method {
		case "initialize", "initialized":
			writeRPCResult(t, w, req.ID, map[string]interface{}{})
		case "tools/call":
			writeRPCResult(t, w, req.ID, CallResult{
				IsError: true,
				Content: []map[string]interface{}{{"type": "text", "text": "boom"}},
			})
		}
	})

	_, err := c.CallTool("explode", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom")
}

func TestLocalUnauthorizedSurfacesOAuthRequired(t *testing.T) {
	c := newLocalFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.ListTools()
	require.Error(t, err)
	var oauthErr *OAuthRequiredError
	require.ErrorAs(t, err, &oauthErr)
}

func TestRemoteEchoesSessionID(t *testing.T) {
	var seenSessionHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenSessionHeader = r.Header.Get("MCP-Session-Id")
		req := decodeRPC(t, r)
		w.Header().Set("MCP-Session-Id", "session-123")
		writeRPCResult(t, w, req.ID, map[string]interface{}{"tools": []ToolInfo{}})
	}))
	defer srv.Close()

	c := NewRemote(srv.URL, "token-abc")
	_, err := c.ListTools()
	require.NoError(t, err)
	require.Empty(t, seenSessionHeader)

	_, err = c.ListTools()
	require.NoError(t, err)
	require.Equal(t, "session-123", seenSessionHeader)
}
