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

// Package kernel implements the MCP server kernel: a three-method
// tool surface (server-info, list-tools, call-tool) wrapped behind
// mark3labs/mcp-go's JSON-RPC dispatch.
package kernel

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Tool is the in-process contract every sandbox tool implements;
// kernel.Register adapts it onto mcp-go's own tool/handler pair.
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) (ToolResult, error)
}

// ToolResult is the {content, is-error, structured-content, meta}
// record a tool call returns.
type ToolResult struct {
	Content           []ToolContent          `json:"content"`
	IsError           bool                   `json:"isError,omitempty"`
	StructuredContent map[string]interface{} `json:"structuredContent,omitempty"`
	Meta              map[string]interface{} `json:"_meta,omitempty"`
}

// ToolContent is the tagged union of text/image/audio/resource/
// resource-link content blocks.
type ToolContent struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Data     string `json:"data,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	URI      string `json:"uri,omitempty"`
	Name     string `json:"name,omitempty"`
	Title    string `json:"title,omitempty"`
}

func TextContent(s string) ToolContent { return ToolContent{Type: "text", Text: s} }

// Kernel owns the mcp-go server instance and the tool registry backing
// it.
type Kernel struct {
	name, version string
	server        *mcpserver.MCPServer
	tools         map[string]Tool
}

// New constructs a kernel with tools/resources/prompts/logging
// capabilities declared up front on the underlying mcp-go server.
func New(name, version string) *Kernel {
	srv := mcpserver.NewMCPServer(
		name, version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(true, true),
		mcpserver.WithPromptCapabilities(false),
		mcpserver.WithLogging(),
		mcpserver.WithRecovery(),
	)
	return &Kernel{name: name, version: version, server: srv, tools: make(map[string]Tool)}
}

// Register claims a tool name and wires its handler into the
// underlying mcp-go server.
func (k *Kernel) Register(t Tool) {
	k.tools[t.Name()] = t

	schema, err := json.Marshal(t.InputSchema())
	if err != nil {
		schema = json.RawMessage(`{"type":"object"}`)
	}
	mcpTool := mcp.NewToolWithRawSchema(t.Name(), t.Description(), schema)
	k.server.AddTool(mcpTool, k.wrap(t))
}

func (k *Kernel) wrap(t Tool) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		if args == nil {
			args = map[string]interface{}{}
		}
		result, err := t.Execute(ctx, args)
		if err != nil {
			return &mcp.CallToolResult{
				Content: []mcp.Content{mcp.NewTextContent(fmt.Sprintf("tool %s failed: %v", t.Name(), err))},
				IsError: true,
			}, nil
		}
		content := make([]mcp.Content, 0, len(result.Content))
		for _, c := range result.Content {
			switch c.Type {
			case "text":
				content = append(content, mcp.NewTextContent(c.Text))
			case "image":
				content = append(content, mcp.NewImageContent(c.Data, c.MimeType))
			case "audio":
				content = append(content, mcp.NewAudioContent(c.Data, c.MimeType))
			default:
				content = append(content, mcp.NewTextContent(c.Text))
			}
		}
		return &mcp.CallToolResult{Content: content, IsError: result.IsError}, nil
	}
}

// ServerInfo answers the server-info() surface method directly
// (outside the JSON-RPC path, for in-process callers).
func (k *Kernel) ServerInfo() (name, version string) { return k.name, k.version }

// ListTools answers list-tools() directly.
func (k *Kernel) ListTools() []Tool {
	out := make([]Tool, 0, len(k.tools))
	for _, t := range k.tools {
		out = append(out, t)
	}
	return out
}

// CallTool answers call-tool(name, arguments) directly, bypassing the
// JSON-RPC envelope. This is used by the local in-process MCP client,
// which talks to this kernel without a real HTTP round trip.
func (k *Kernel) CallTool(ctx context.Context, name string, args map[string]interface{}) (ToolResult, error) {
	t, ok := k.tools[name]
	if !ok {
		return ToolResult{}, fmt.Errorf("kernel: unknown tool %q", name)
	}
	return t.Execute(ctx, args)
}

// Server exposes the underlying mcp-go server for transport wiring
// (stdio and SSE) in cmd/sandboxsh.
func (k *Kernel) Server() *mcpserver.MCPServer { return k.server }
