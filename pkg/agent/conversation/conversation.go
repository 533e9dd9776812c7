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

// Package conversation implements a turn-append conversation model:
// a flat, strictly-ordered sequence of user/assistant/tool-call/
// tool-result records. Turns are appended, never reordered; the
// streaming agent core (pkg/agent/stream) is the sole mutator during
// a stream.
package conversation

import (
	"time"

	"github.com/sandboxrt/core/pkg/llms"
)

// Role identifies the author of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleToolCall  Role = "tool-call"
	RoleToolResult Role = "tool-result"
)

// Turn is one entry in the conversation log.
type Turn struct {
	Role      Role
	Content   string
	Timestamp time.Time

	// Tool-call metadata, set when Role == RoleToolCall.
	ToolCallID   string
	ToolCallName string
	ToolCallArgs string // raw JSON

	// Tool-result metadata, set when Role == RoleToolResult.
	ToolResultID      string
	ToolResultIsError bool
}

// Conversation holds the ordered turn log for one session.
type Conversation struct {
	turns []Turn
}

func New() *Conversation { return &Conversation{} }

// AppendTurn appends a new turn, preserving append order.
func (c *Conversation) AppendTurn(role Role, content string) {
	c.turns = append(c.turns, Turn{Role: role, Content: content, Timestamp: time.Now()})
}

// UpdateLastAssistant replaces the content of the most recent assistant
// turn since the last user turn if one exists, otherwise appends a
// new one. It never reaches past a newer user turn to an older
// assistant turn.
func (c *Conversation) UpdateLastAssistant(text string) {
	for i := len(c.turns) - 1; i >= 0; i-- {
		if c.turns[i].Role == RoleAssistant {
			c.turns[i].Content = text
			return
		}
		if c.turns[i].Role == RoleUser {
			break
		}
	}
	c.AppendTurn(RoleAssistant, text)
}

// RecordToolCall appends a metadata-bearing tool-call turn.
func (c *Conversation) RecordToolCall(name, id, argsJSON string) {
	c.turns = append(c.turns, Turn{
		Role:         RoleToolCall,
		Timestamp:    time.Now(),
		ToolCallID:   id,
		ToolCallName: name,
		ToolCallArgs: argsJSON,
	})
}

// RecordToolResult appends a metadata-bearing tool-result turn.
func (c *Conversation) RecordToolResult(id, text string, isError bool) {
	c.turns = append(c.turns, Turn{
		Role:              RoleToolResult,
		Content:           text,
		Timestamp:         time.Now(),
		ToolResultID:      id,
		ToolResultIsError: isError,
	})
}

// SnapshotForProvider returns only user and assistant turns; tool-call
// and tool-result turns are routing metadata the wire format doesn't
// need.
func (c *Conversation) SnapshotForProvider() []Turn {
	out := make([]Turn, 0, len(c.turns))
	for _, t := range c.turns {
		if t.Role == RoleUser || t.Role == RoleAssistant {
			out = append(out, t)
		}
	}
	return out
}

// Turns returns the full, unfiltered turn log.
func (c *Conversation) Turns() []Turn {
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// View wraps a conversation for provider serialization.
type View struct {
	conv *Conversation
}

func NewView(c *Conversation) *View { return &View{conv: c} }

// BuildMessages appends activePrompt (if non-empty) as a final user
// turn and converts the snapshot into the llms.Message vocabulary,
// the single place this conversation ever gets serialized for a
// provider call.
func (v *View) BuildMessages(activePrompt string) []llms.Message {
	snapshot := v.conv.SnapshotForProvider()
	out := make([]llms.Message, 0, len(snapshot)+1)
	for _, t := range snapshot {
		role := "user"
		if t.Role == RoleAssistant {
			role = "assistant"
		}
		out = append(out, llms.Message{Role: role, Content: t.Content})
	}
	if activePrompt != "" {
		out = append(out, llms.Message{Role: "user", Content: activePrompt})
	}
	return out
}
