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
	"fmt"

	"github.com/sandboxrt/core/pkg/llms"
	"github.com/sandboxrt/core/pkg/mcp/kernel"
)

// sandboxToolCaller adapts a kernel.Kernel onto toolrouter.SandboxClient,
// the in-process route the streaming agent core uses to call
// __sandbox__-prefixed tools.
type sandboxToolCaller struct {
	kernel *kernel.Kernel
}

func (s sandboxToolCaller) CallTool(ctx context.Context, name string, args map[string]interface{}) (string, error) {
	result, err := s.kernel.CallTool(ctx, name, args)
	if err != nil {
		return "", err
	}
	text := ""
	for _, c := range result.Content {
		text += c.Text
	}
	if result.IsError {
		return text, fmt.Errorf("%s", text)
	}
	return text, nil
}

// sandboxToolDefinitions converts every tool registered on k into the
// llms.ToolDefinition vocabulary a Provider expects, namespaced under
// the sandbox prefix so toolrouter.Router.Dispatch can route calls back
// to it.
func sandboxToolDefinitions(k *kernel.Kernel) []llms.ToolDefinition {
	tools := k.ListTools()
	out := make([]llms.ToolDefinition, 0, len(tools))
	for _, t := range tools {
		out = append(out, llms.ToolDefinition{
			Name:        "__sandbox__" + t.Name(),
			Description: t.Description(),
			Parameters:  t.InputSchema(),
		})
	}
	return out
}
