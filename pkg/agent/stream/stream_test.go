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

package stream

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sandboxrt/core/pkg/agent/conversation"
	"github.com/sandboxrt/core/pkg/llms"
	"github.com/sandboxrt/core/pkg/toolrouter"
)

type scriptedProvider struct {
	calls int
	script []struct {
		text  string
		calls []llms.ToolCall
	}
}

func (p *scriptedProvider) GetModelName() string { return "scripted" }

func (p *scriptedProvider) Generate(messages []llms.Message, tools []llms.ToolDefinition) (string, []llms.ToolCall, int, error) {
	step := p.script[p.calls]
	p.calls++
	return step.text, step.calls, 0, nil
}

func (p *scriptedProvider) GenerateStreaming(messages []llms.Message, tools []llms.ToolDefinition) (<-chan llms.StreamChunk, error) {
	return nil, nil
}

type stubSandbox struct{}

func (stubSandbox) CallTool(ctx context.Context, name string, args map[string]interface{}) (string, error) {
	return "ran " + name, nil
}

func drainAll(t *testing.T, m *Machine) []Event {
	t.Helper()
	var out []Event
	deadline := time.Now().Add(2 * time.Second)
	for {
		res := m.Poll()
		switch res.Status {
		case PollItem:
			out = append(out, res.Event)
		case PollDone:
			return out
		case PollPending:
			if time.Now().After(deadline) {
				t.Fatal("timed out waiting for stream to finish")
			}
			time.Sleep(time.Millisecond)
		}
	}
}

func TestMachineCompletesWithoutToolCalls(t *testing.T) {
	provider := &scriptedProvider{script: []struct {
		text  string
		calls []llms.ToolCall
	}{
		{text: "hello there"},
	}}
	router := toolrouter.New()
	conv := conversation.New()
	m := New(provider, router, conv, 5)

	require.NoError(t, m.Start(context.Background(), nil, "hi"))
	events := drainAll(t, m)

	var kinds []EventKind
	for _, e := range events {
		kinds = append(kinds, e.Kind)
	}
	require.Contains(t, kinds, EventStreamStart)
	require.Contains(t, kinds, EventStreamChunk)
	require.Contains(t, kinds, EventStreamComplete)
	require.Equal(t, Done, m.Phase())
}

func TestMachineRunsToolCallRound(t *testing.T) {
	provider := &scriptedProvider{script: []struct {
		text  string
		calls []llms.ToolCall
	}{
		{calls: []llms.ToolCall{{ID: "1", Name: "__sandbox__ls", Arguments: map[string]interface{}{}}}},
		{text: "done"},
	}}
	router := toolrouter.New()
	router.Sandbox = stubSandbox{}
	conv := conversation.New()
	m := New(provider, router, conv, 5)

	require.NoError(t, m.Start(context.Background(), nil, "list files"))
	events := drainAll(t, m)

	var sawToolResult bool
	for _, e := range events {
		if e.Kind == EventToolResult {
			sawToolResult = true
			require.Equal(t, "ran ls", e.Result)
			require.False(t, e.IsError)
		}
	}
	require.True(t, sawToolResult)
}

func TestMachineEnforcesMaxTurns(t *testing.T) {
	loopCall := llms.ToolCall{ID: "1", Name: "__sandbox__ls", Arguments: map[string]interface{}{}}
	script := make([]struct {
		text  string
		calls []llms.ToolCall
	}, 3)
	for i := range script {
		script[i].calls = []llms.ToolCall{loopCall}
	}
	provider := &scriptedProvider{script: script}
	router := toolrouter.New()
	router.Sandbox = stubSandbox{}
	conv := conversation.New()
	m := New(provider, router, conv, 2)

	require.NoError(t, m.Start(context.Background(), nil, "loop forever"))
	events := drainAll(t, m)

	var sawError bool
	for _, e := range events {
		if e.Kind == EventStreamError {
			sawError = true
			require.ErrorContains(t, e.Err, "max turns")
		}
	}
	require.True(t, sawError)
	require.Equal(t, Errored, m.Phase())
}

func TestMachineCancelTransitionsToDone(t *testing.T) {
	provider := &scriptedProvider{script: []struct {
		text  string
		calls []llms.ToolCall
	}{
		{text: "hello"},
	}}
	router := toolrouter.New()
	conv := conversation.New()
	m := New(provider, router, conv, 5)
	m.Cancel()

	require.NoError(t, m.Start(context.Background(), nil, "hi"))
	events := drainAll(t, m)

	require.NotEmpty(t, events)
	require.Equal(t, EventStreamCancelled, events[len(events)-1].Kind)
	require.Equal(t, Done, m.Phase())
}
