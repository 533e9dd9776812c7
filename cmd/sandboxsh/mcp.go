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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/sandboxrt/core/pkg/mcp/client"
)

// MCPCmd groups the mcp-serve and mcp-call subcommands.
type MCPCmd struct {
	Serve MCPServeCmd `cmd:"" help:"Serve the sandbox's tools over MCP."`
	Call  MCPCallCmd  `cmd:"" help:"Call a tool on a running MCP server."`
}

// MCPServeCmd hosts the sandbox's run_command/list_commands tool
// surface over stdio or SSE.
type MCPServeCmd struct {
	Transport string `help:"Transport: stdio or sse." enum:"stdio,sse" default:"stdio"`
	Port      int    `help:"Port for the sse transport." default:"8090"`
}

func (c *MCPServeCmd) Run(cli *CLI) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	k := newKernel("sandboxsh", "0.1.0", cwd)

	switch c.Transport {
	case "sse":
		sseServer := mcpserver.NewSSEServer(k.Server(), mcpserver.WithBaseURL("http://localhost:"+strconv.Itoa(c.Port)))
		mux := http.NewServeMux()
		mux.Handle("/sse", sseServer.SSEHandler())
		mux.Handle("/message", sseServer.MessageHandler())
		fmt.Printf("sandboxsh: serving MCP over SSE on :%d (/sse, /message)\n", c.Port)
		return http.ListenAndServe(fmt.Sprintf(":%d", c.Port), mux)
	default:
		stdio := mcpserver.NewStdioServer(k.Server())
		return stdio.Listen(context.Background(), os.Stdin, os.Stdout)
	}
}

// MCPCallCmd calls one tool on a running MCP server, either the local
// in-process JSON-RPC-over-HTTP transport or a remote Streamable HTTP
// server.
type MCPCallCmd struct {
	URL   string `arg:"" help:"Base URL of the MCP server's /message endpoint."`
	Tool  string `arg:"" help:"Tool name to call."`
	Args  string `help:"JSON object of tool arguments." default:"{}"`
	Token string `help:"Bearer token for a remote server."`
	Remote bool  `help:"Use the Streamable HTTP remote transport instead of the local transport."`
}

func (c *MCPCallCmd) Run(cli *CLI) error {
	var args map[string]interface{}
	if err := json.Unmarshal([]byte(c.Args), &args); err != nil {
		return fmt.Errorf("sandboxsh: --args must be a JSON object: %w", err)
	}

	var cl client.Client
	if c.Remote {
		cl = client.NewRemote(c.URL, c.Token)
	} else {
		cl = client.NewLocal(c.URL)
	}

	result, err := cl.CallTool(c.Tool, args)
	if err != nil {
		return fmt.Errorf("sandboxsh: %w", err)
	}
	for _, content := range result.Content {
		if text, ok := content["text"].(string); ok {
			fmt.Println(text)
		}
	}
	return nil
}
