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

// Package stream implements the streaming agent core: an explicit
// state machine for one user turn that a host UI polls rather than an
// implicit coroutine. Each poll returns at most one event, so a UI
// loop can drive it at its own pace without a dedicated goroutine of
// its own.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sandboxrt/core/pkg/agent/conversation"
	"github.com/sandboxrt/core/pkg/llms"
	"github.com/sandboxrt/core/pkg/toolrouter"
)

// Phase is the state machine's current state.
type Phase string

const (
	Idle       Phase = "idle"
	Connecting Phase = "connecting"
	Streaming  Phase = "streaming"
	Done       Phase = "done"
	Errored    Phase = "errored"
)

// ToolActivityStatus is the status field of a ToolActivity event.
type ToolActivityStatus string

const (
	ToolCalling ToolActivityStatus = "calling"
	ToolSuccess ToolActivityStatus = "success"
	ToolError   ToolActivityStatus = "error"
)

// EventKind discriminates the tagged Event union a Machine emits.
type EventKind string

const (
	EventUserMessage    EventKind = "user-message"
	EventStreamStart    EventKind = "stream-start"
	EventStreamChunk    EventKind = "stream-chunk"
	EventToolActivity   EventKind = "tool-activity"
	EventToolResult     EventKind = "tool-result"
	EventStreamComplete EventKind = "stream-complete"
	EventStreamError    EventKind = "stream-error"
	EventStreamCancelled EventKind = "stream-cancelled"
	EventNotice         EventKind = "notice"
)

// Event is one item from the event surface consumers poll in FIFO
// order. Only the fields relevant to Kind are populated.
type Event struct {
	Kind EventKind

	Text string // user-message, stream-chunk, stream-complete (final-text), notice

	Tool             string             // tool-activity, tool-result
	Status           ToolActivityStatus // tool-activity
	Result           string             // tool-result
	IsError          bool               // tool-result
	RequestExecution bool               // tool-result

	NoticeKind string // notice

	Err error // stream-error
}

// Machine drives one user turn through the provider and tool router,
// emitting events a host polls with Poll. Cancellation is cooperative:
// the cancel flag is checked before each round and before each tool
// call; when it is seen, the turn emits StreamCancelled and the phase
// becomes Done.
type Machine struct {
	provider llms.Provider
	router   *toolrouter.Router
	conv     *conversation.Conversation
	maxTurns int

	mu    sync.Mutex
	phase Phase

	events    chan Event
	cancelled atomic.Bool
	started   atomic.Bool
}

// New constructs an idle machine bound to a provider, tool router, and
// conversation log. maxTurns bounds tool-call rounds per user prompt,
// guarding against a model that never stops calling tools.
func New(provider llms.Provider, router *toolrouter.Router, conv *conversation.Conversation, maxTurns int) *Machine {
	return &Machine{
		provider: provider,
		router:   router,
		conv:     conv,
		maxTurns: maxTurns,
		phase:    Idle,
		events:   make(chan Event, 1),
	}
}

func (m *Machine) setPhase(p Phase) {
	m.mu.Lock()
	m.phase = p
	m.mu.Unlock()
}

// Phase returns the machine's current state.
func (m *Machine) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Cancel sets the cancel flag; the running turn observes it at its
// next cooperative checkpoint and transitions to Done.
func (m *Machine) Cancel() { m.cancelled.Store(true) }

// Start transitions Idle → Connecting and launches the turn in the
// background. It is an error to Start a machine more than once.
func (m *Machine) Start(ctx context.Context, tools []llms.ToolDefinition, userPrompt string) error {
	if !m.started.CompareAndSwap(false, true) {
		return fmt.Errorf("stream: machine already started")
	}
	m.conv.AppendTurn(conversation.RoleUser, userPrompt)
	m.emit(Event{Kind: EventUserMessage, Text: userPrompt})
	m.setPhase(Connecting)
	go m.run(ctx, tools, userPrompt)
	return nil
}

// emit blocks while the one-slot event buffer is full, so the driving
// goroutine runs at most one event ahead of the consumer; Poll itself
// takes at most one event per call.
func (m *Machine) emit(e Event) { m.events <- e }

// PollStatus reports whether Poll delivered an item, found none
// pending, or the stream has ended.
type PollStatus string

const (
	PollPending PollStatus = "pending"
	PollItem    PollStatus = "item"
	PollDone    PollStatus = "done"
)

// PollResult is Poll's return value.
type PollResult struct {
	Status PollStatus
	Event  Event
}

// Poll processes at most one pending item and returns immediately.
// Callers should keep polling until Status is PollDone.
func (m *Machine) Poll() PollResult {
	select {
	case e, ok := <-m.events:
		if !ok {
			return PollResult{Status: PollDone}
		}
		return PollResult{Status: PollItem, Event: e}
	default:
		if m.Phase() == Done || m.Phase() == Errored {
			return PollResult{Status: PollDone}
		}
		return PollResult{Status: PollPending}
	}
}

func (m *Machine) run(ctx context.Context, tools []llms.ToolDefinition, initialPrompt string) {
	defer close(m.events)

	m.setPhase(Streaming)
	m.emit(Event{Kind: EventStreamStart})

	var finalText string
	turn := 0

	for {
		if m.cancelled.Load() {
			m.emit(Event{Kind: EventStreamCancelled})
			m.setPhase(Done)
			return
		}
		if turn >= m.maxTurns {
			err := fmt.Errorf("stream: max turns reached")
			m.emit(Event{Kind: EventStreamError, Err: err})
			m.setPhase(Errored)
			return
		}
		turn++

		view := conversation.NewView(m.conv)
		messages := view.BuildMessages("")

		text, toolCalls, _, err := m.provider.Generate(messages, tools)
		if err != nil {
			m.emit(Event{Kind: EventStreamError, Err: err})
			m.setPhase(Errored)
			return
		}

		if text != "" {
			finalText += text
			m.conv.UpdateLastAssistant(finalText)
			m.emit(Event{Kind: EventStreamChunk, Text: text})
		}

		if len(toolCalls) == 0 {
			break
		}

		for _, call := range toolCalls {
			if m.cancelled.Load() {
				m.emit(Event{Kind: EventStreamCancelled})
				m.setPhase(Done)
				return
			}

			argsJSON, _ := json.Marshal(call.Arguments)
			m.conv.RecordToolCall(call.Name, call.ID, string(argsJSON))
			m.emit(Event{Kind: EventToolActivity, Tool: call.Name, Status: ToolCalling})

			result, callErr := m.router.Dispatch(ctx, call.Name, call.Arguments)
			isError := callErr != nil
			if isError {
				result = callErr.Error()
			}
			m.conv.RecordToolResult(call.ID, result, isError)

			status := ToolSuccess
			if isError {
				status = ToolError
			}
			m.emit(Event{Kind: EventToolActivity, Tool: call.Name, Status: status})
			m.emit(Event{Kind: EventToolResult, Tool: call.Name, Result: result, IsError: isError})
		}
	}

	m.emit(Event{Kind: EventStreamComplete, Text: finalText})
	m.setPhase(Done)
}
