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

package tool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greetArgs struct {
	Name string `json:"name" jsonschema:"required,description=Who to greet."`
}

func TestRegistryCallLocalDispatchesByName(t *testing.T) {
	r := NewRegistry()
	r.Add(Local{
		Definition: Definition{Name: "greet", Description: "say hello", InputSchema: SchemaFor(greetArgs{})},
		Handler: func(ctx context.Context, args map[string]interface{}) (string, error) {
			name, _ := args["name"].(string)
			return "hello " + name, nil
		},
	})

	out, err := r.CallLocal(context.Background(), "greet", map[string]interface{}{"name": "sandbox"})
	require.NoError(t, err)
	assert.Equal(t, "hello sandbox", out)
}

func TestRegistryCallLocalUnknownNameErrors(t *testing.T) {
	r := NewRegistry()
	_, err := r.CallLocal(context.Background(), "missing", nil)
	assert.Error(t, err)
}

func TestRegistryDefinitionsNamespacesAndConvertsSchema(t *testing.T) {
	r := NewRegistry()
	r.Add(Local{
		Definition: Definition{Name: "greet", Description: "say hello", InputSchema: SchemaFor(greetArgs{})},
	})

	defs, err := r.Definitions("__local__")
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "__local__greet", defs[0].Name)
	assert.Equal(t, "say hello", defs[0].Description)
	assert.Equal(t, "object", defs[0].Parameters["type"])
}
