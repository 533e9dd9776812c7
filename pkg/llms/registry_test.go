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

package llms

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeProvider struct{ model string }

func (f fakeProvider) GetModelName() string { return f.model }
func (f fakeProvider) Generate(messages []Message, tools []ToolDefinition) (string, []ToolCall, int, error) {
	return "ok", nil, 1, nil
}
func (f fakeProvider) GenerateStreaming(messages []Message, tools []ToolDefinition) (<-chan StreamChunk, error) {
	ch := make(chan StreamChunk, 1)
	ch <- StreamChunk{Type: "done"}
	close(ch)
	return ch, nil
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("default", fakeProvider{model: "test-model"}))
	p, ok := r.Get("default")
	require.True(t, ok)
	require.Equal(t, "test-model", p.GetModelName())
}

func TestRegistryRejectsDuplicateName(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("default", fakeProvider{model: "a"}))
	require.Error(t, r.Register("default", fakeProvider{model: "b"}))
}
