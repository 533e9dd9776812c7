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

// Package llms wires the streaming agent core to real provider SDKs
// behind one provider-agnostic interface, grouping Anthropic/OpenAI/
// Gemini providers under a shared Message/ToolDefinition/StreamChunk
// vocabulary. Rather than hand-rolling each provider's HTTP wire
// format, this module calls through the official SDKs already in
// go.mod (anthropic-sdk-go, go-openai, genai).
package llms

// Message is one turn in a provider-agnostic conversation.
type Message struct {
	Role       string
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
	Name       string
}

// ToolDefinition is a tool/function the model may call, described by
// a JSON Schema.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

// ToolCall is one invocation the model requested.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]interface{}
	RawArgs   string
}

// StreamChunk is one unit of a streaming completion.
type StreamChunk struct {
	Type     string // "text", "tool_call", "done", "error"
	Text     string
	ToolCall *ToolCall
	Tokens   int
	Error    error
}

// Provider is the capability every backend (Anthropic, OpenAI, Gemini)
// implements.
type Provider interface {
	GetModelName() string
	Generate(messages []Message, tools []ToolDefinition) (string, []ToolCall, int, error)
	GenerateStreaming(messages []Message, tools []ToolDefinition) (<-chan StreamChunk, error)
}
