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

// Package tool defines the tool record the agent core offers to an
// LLM provider: name, description, and a JSON-Schema input shape.
// Local tools generate their schema from a Go type via
// invopop/jsonschema.
package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/sandboxrt/core/pkg/llms"
)

// Definition is the provider-agnostic tool record.
type Definition struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema

	// Title is an optional display name for local tools.
	Title string
}

// Handler executes a local, in-process tool call.
type Handler func(ctx context.Context, args map[string]interface{}) (string, error)

// Local couples a Definition executed in-process with its Handler.
type Local struct {
	Definition Definition
	Handler    Handler
}

// SchemaFor reflects a Go struct into a JSON Schema describing a
// tool's arguments for function-call parameter generation.
func SchemaFor(v interface{}) *jsonschema.Schema {
	r := &jsonschema.Reflector{
		ExpandedStruct:            true,
		DoNotReference:            true,
		AllowAdditionalProperties: false,
	}
	return r.Reflect(v)
}

// Registry is the client-side table of Local tools the toolrouter's
// __local__ prefix dispatches into.
type Registry struct {
	tools map[string]Local
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Local)}
}

// Add registers a Local tool under its own Definition.Name.
func (r *Registry) Add(t Local) {
	r.tools[t.Definition.Name] = t
}

// CallLocal implements toolrouter.LocalTable.
func (r *Registry) CallLocal(ctx context.Context, name string, args map[string]interface{}) (string, error) {
	t, ok := r.tools[name]
	if !ok {
		return "", fmt.Errorf("tool: no local tool named %q", name)
	}
	return t.Handler(ctx, args)
}

// Definitions converts every registered Local tool into the
// llms.ToolDefinition vocabulary a Provider expects, namespaced so
// toolrouter.Router.Dispatch can route calls back here.
func (r *Registry) Definitions(prefix string) ([]llms.ToolDefinition, error) {
	out := make([]llms.ToolDefinition, 0, len(r.tools))
	for _, t := range r.tools {
		schema, err := schemaToMap(t.Definition.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("tool: %s: %w", t.Definition.Name, err)
		}
		out = append(out, llms.ToolDefinition{
			Name:        prefix + t.Definition.Name,
			Description: t.Definition.Description,
			Parameters:  schema,
		})
	}
	return out, nil
}

// schemaToMap round-trips a jsonschema.Schema through JSON into the
// plain map[string]interface{} shape llms.ToolDefinition.Parameters
// expects, since providers marshal it directly into their own
// function-call wire format.
func schemaToMap(s *jsonschema.Schema) (map[string]interface{}, error) {
	if s == nil {
		return map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}, nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}
