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
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sandboxrt/core/pkg/component"
	"github.com/sandboxrt/core/pkg/mcp/kernel"
	"github.com/sandboxrt/core/pkg/shell/exec"
	"github.com/sandboxrt/core/pkg/shell/parser"
	"github.com/sandboxrt/core/pkg/shellenv"
	"github.com/sandboxrt/core/pkg/stream"
)

// runCommandTool exposes the sandbox shell as a single MCP tool: it
// runs one shell command line against a fresh environment rooted at
// cwd and returns combined stdout/stderr.
type runCommandTool struct {
	dispatcher *component.Dispatcher
	cwd        string
}

func (t *runCommandTool) Name() string        { return "run_command" }
func (t *runCommandTool) Description() string { return "Run a shell command line in the sandbox." }
func (t *runCommandTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"command": map[string]interface{}{"type": "string", "description": "Shell command line to run."},
		},
		"required": []string{"command"},
	}
}

func (t *runCommandTool) Execute(ctx context.Context, args map[string]interface{}) (kernel.ToolResult, error) {
	line, _ := args["command"].(string)
	if strings.TrimSpace(line) == "" {
		return kernel.ToolResult{IsError: true, Content: []kernel.ToolContent{kernel.TextContent("command must not be empty")}}, nil
	}

	node, err := parser.Parse(line)
	if err != nil {
		return kernel.ToolResult{IsError: true, Content: []kernel.ToolContent{kernel.TextContent(fmt.Sprintf("parse error: %v", err))}}, nil
	}

	env := shellenv.New(t.cwd)
	x := exec.New(t.dispatcher)

	var out, errOut bytes.Buffer
	stdout := stream.NewOutputStream(nopWriteCloser{&out})
	stderr := stream.NewOutputStream(nopWriteCloser{&errOut})
	stdin := stream.NewInputStream(io.NopCloser(strings.NewReader("")))

	code, runErr := x.Run(ctx, node, env, stdin, stdout, stderr)
	if runErr != nil {
		return kernel.ToolResult{IsError: true, Content: []kernel.ToolContent{kernel.TextContent(runErr.Error())}}, nil
	}

	combined := out.String()
	if errOut.Len() > 0 {
		combined += errOut.String()
	}
	return kernel.ToolResult{
		IsError: code != 0,
		Content: []kernel.ToolContent{kernel.TextContent(combined)},
		StructuredContent: map[string]interface{}{
			"exitCode": code,
		},
	}, nil
}

type nopWriteCloser struct{ w io.Writer }

func (n nopWriteCloser) Write(p []byte) (int, error) { return n.w.Write(p) }
func (n nopWriteCloser) Close() error                { return nil }

// listCommandsTool exposes the dispatcher's registered command names
// as an MCP tool so a remote agent can discover what run_command can
// invoke.
type listCommandsTool struct {
	dispatcher *component.Dispatcher
}

func (t *listCommandsTool) Name() string        { return "list_commands" }
func (t *listCommandsTool) Description() string { return "List every command name the sandbox can run." }
func (t *listCommandsTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
}

func (t *listCommandsTool) Execute(ctx context.Context, args map[string]interface{}) (kernel.ToolResult, error) {
	names := t.dispatcher.Names()
	return kernel.ToolResult{
		Content:           []kernel.ToolContent{kernel.TextContent(strings.Join(names, "\n"))},
		StructuredContent: map[string]interface{}{"commands": names},
	}, nil
}

// newKernel builds the sandbox's MCP server kernel with its tool
// surface registered.
func newKernel(name, version, cwd string) *kernel.Kernel {
	env := shellenv.New(cwd)
	d := newDispatcher(env)
	k := kernel.New(name, version)
	k.Register(&runCommandTool{dispatcher: d, cwd: cwd})
	k.Register(&listCommandsTool{dispatcher: d})
	return k
}
