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
	"io"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider wraps sashabaranov/go-openai.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	return &OpenAIProvider{client: openai.NewClient(apiKey), model: model}
}

func (p *OpenAIProvider) GetModelName() string { return p.model }

func (p *OpenAIProvider) toRequest(messages []Message, tools []ToolDefinition, stream bool) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:       m.Role,
			Content:    m.Content,
			Name:       m.Name,
			ToolCallID: m.ToolCallID,
		})
	}
	fns := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		fns = append(fns, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return openai.ChatCompletionRequest{
		Model:    p.model,
		Messages: msgs,
		Tools:    fns,
		Stream:   stream,
	}
}

func (p *OpenAIProvider) Generate(messages []Message, tools []ToolDefinition) (string, []ToolCall, int, error) {
	resp, err := p.client.CreateChatCompletion(context.Background(), p.toRequest(messages, tools, false))
	if err != nil {
		return "", nil, 0, fmt.Errorf("llms: openai generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil, resp.Usage.TotalTokens, nil
	}
	choice := resp.Choices[0]
	var calls []ToolCall
	for _, tc := range choice.Message.ToolCalls {
		var args map[string]interface{}
		_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
		calls = append(calls, ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: args, RawArgs: tc.Function.Arguments})
	}
	return choice.Message.Content, calls, resp.Usage.TotalTokens, nil
}

func (p *OpenAIProvider) GenerateStreaming(messages []Message, tools []ToolDefinition) (<-chan StreamChunk, error) {
	stream, err := p.client.CreateChatCompletionStream(context.Background(), p.toRequest(messages, tools, true))
	if err != nil {
		return nil, fmt.Errorf("llms: openai stream: %w", err)
	}
	out := make(chan StreamChunk, 16)
	go func() {
		defer close(out)
		defer stream.Close()
		for {
			resp, err := stream.Recv()
			if err == io.EOF {
				out <- StreamChunk{Type: "done"}
				return
			}
			if err != nil {
				out <- StreamChunk{Type: "error", Error: err}
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			if text := resp.Choices[0].Delta.Content; text != "" {
				out <- StreamChunk{Type: "text", Text: text}
			}
		}
	}()
	return out, nil
}
