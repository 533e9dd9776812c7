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
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider wraps the official SDK client.
type AnthropicProvider struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicProvider constructs a provider bound to a single model.
func NewAnthropicProvider(apiKey, model string) *AnthropicProvider {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicProvider{client: &client, model: model}
}

func (p *AnthropicProvider) GetModelName() string { return p.model }

func (p *AnthropicProvider) toParams(messages []Message, tools []ToolDefinition) anthropic.MessageNewParams {
	msgParams := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "user", "tool":
			msgParams = append(msgParams, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case "assistant":
			msgParams = append(msgParams, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	toolParams := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		schema, _ := json.Marshal(t.Parameters)
		var props anthropic.ToolInputSchemaParam
		_ = json.Unmarshal(schema, &props)
		toolParams = append(toolParams, anthropic.ToolUnionParamOfTool(props, t.Name))
	}

	return anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: 4096,
		Messages:  msgParams,
		Tools:     toolParams,
	}
}

// Generate performs one non-streaming completion.
func (p *AnthropicProvider) Generate(messages []Message, tools []ToolDefinition) (string, []ToolCall, int, error) {
	ctx := context.Background()
	resp, err := p.client.Messages.New(ctx, p.toParams(messages, tools))
	if err != nil {
		return "", nil, 0, fmt.Errorf("llms: anthropic generate: %w", err)
	}

	var text string
	var calls []ToolCall
	for _, block := range resp.Content {
		switch v := block.AsAny().(type) {
		case anthropic.TextBlock:
			text += v.Text
		case anthropic.ToolUseBlock:
			raw, _ := json.Marshal(v.Input)
			var args map[string]interface{}
			_ = json.Unmarshal(raw, &args)
			calls = append(calls, ToolCall{ID: v.ID, Name: v.Name, Arguments: args, RawArgs: string(raw)})
		}
	}
	tokens := int(resp.Usage.InputTokens + resp.Usage.OutputTokens)
	return text, calls, tokens, nil
}

// GenerateStreaming adapts the SDK's server-sent-event stream to the
// StreamChunk channel every provider in this package exposes.
func (p *AnthropicProvider) GenerateStreaming(messages []Message, tools []ToolDefinition) (<-chan StreamChunk, error) {
	out := make(chan StreamChunk, 16)
	go func() {
		defer close(out)
		ctx := context.Background()
		stream := p.client.Messages.NewStreaming(ctx, p.toParams(messages, tools))
		for stream.Next() {
			event := stream.Current()
			switch v := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				if delta, ok := v.Delta.AsAny().(anthropic.TextDelta); ok {
					out <- StreamChunk{Type: "text", Text: delta.Text}
				}
			case anthropic.MessageStopEvent:
				out <- StreamChunk{Type: "done"}
			}
		}
		if err := stream.Err(); err != nil {
			out <- StreamChunk{Type: "error", Error: err}
		}
	}()
	return out, nil
}
