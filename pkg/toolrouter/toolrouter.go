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

// Package toolrouter dispatches a namespaced tool-call name to the
// sandbox's in-process MCP client, the client-side local tool table,
// or a registered remote MCP server.
package toolrouter

import (
	"context"
	"fmt"
	"strings"
)

const (
	// SandboxPrefix routes to in-process sandbox builtins (filesystem,
	// shell-eval, etc.).
	SandboxPrefix = "__sandbox__"
	// LocalPrefix routes to client-side tools with UI side effects.
	LocalPrefix = "__local__"
)

// SandboxClient executes a tool call against the in-process sandbox
// MCP client.
type SandboxClient interface {
	CallTool(ctx context.Context, name string, args map[string]interface{}) (string, error)
}

// LocalTable executes a client-side tool by its unprefixed name.
type LocalTable interface {
	CallLocal(ctx context.Context, name string, args map[string]interface{}) (string, error)
}

// RemoteServer executes a tool call against one registered remote MCP
// server.
type RemoteServer interface {
	CallTool(ctx context.Context, name string, args map[string]interface{}) (string, error)
}

// DispatchError reports a tool name that could not be routed: a
// server identifier starting with "_", or a prefix matching no
// registered server.
type DispatchError struct {
	ToolName string
	Reason   string
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("toolrouter: %s: %s", e.ToolName, e.Reason)
}

// Router holds the sandbox client, the local tool table, and every
// registered remote server, keyed by server id.
type Router struct {
	Sandbox SandboxClient
	Local   LocalTable
	Servers map[string]RemoteServer
}

func New() *Router {
	return &Router{Servers: make(map[string]RemoteServer)}
}

func (r *Router) RegisterServer(id string, server RemoteServer) error {
	if strings.HasPrefix(id, "_") {
		return fmt.Errorf("toolrouter: server id %q must not start with '_'", id)
	}
	r.Servers[id] = server
	return nil
}

// Dispatch routes a namespaced tool name to its owner and runs it.
func (r *Router) Dispatch(ctx context.Context, toolName string, args map[string]interface{}) (string, error) {
	switch {
	case strings.HasPrefix(toolName, SandboxPrefix):
		if r.Sandbox == nil {
			return "", &DispatchError{toolName, "no sandbox client configured"}
		}
		return r.Sandbox.CallTool(ctx, strings.TrimPrefix(toolName, SandboxPrefix), args)

	case strings.HasPrefix(toolName, LocalPrefix):
		if r.Local == nil {
			return "", &DispatchError{toolName, "no local tool table configured"}
		}
		return r.Local.CallLocal(ctx, strings.TrimPrefix(toolName, LocalPrefix), args)

	default:
		id, rest, ok := splitServerPrefix(toolName, r.Servers)
		if !ok {
			return "", &DispatchError{toolName, "no registered server matches this prefix"}
		}
		server := r.Servers[id]
		return server.CallTool(ctx, rest, args)
	}
}

// splitServerPrefix finds the longest registered server id that
// prefixes toolName as `<id>_<tool>`.
func splitServerPrefix(toolName string, servers map[string]RemoteServer) (id, rest string, ok bool) {
	best := ""
	for serverID := range servers {
		prefix := serverID + "_"
		if strings.HasPrefix(toolName, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return "", "", false
	}
	return strings.TrimSuffix(best, "_"), strings.TrimPrefix(toolName, best), true
}

// DisplayString renders a tool-call name for UI purposes: reserved
// prefixes are hidden, remote tools render as "<server> → <tool>".
func DisplayString(toolName string) string {
	if strings.HasPrefix(toolName, SandboxPrefix) {
		return strings.TrimPrefix(toolName, SandboxPrefix)
	}
	if strings.HasPrefix(toolName, LocalPrefix) {
		return strings.TrimPrefix(toolName, LocalPrefix)
	}
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx] + " → " + toolName[idx+1:]
	}
	return toolName
}
