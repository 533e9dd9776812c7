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

package conversation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUpdateLastAssistantReplacesExisting(t *testing.T) {
	c := New()
	c.AppendTurn(RoleUser, "hello")
	c.AppendTurn(RoleAssistant, "partial")
	c.UpdateLastAssistant("full reply")

	turns := c.Turns()
	require.Len(t, turns, 2)
	require.Equal(t, "full reply", turns[1].Content)
}

func TestUpdateLastAssistantAppendsWhenNoneFollowsLastUserTurn(t *testing.T) {
	c := New()
	c.AppendTurn(RoleUser, "hello")
	c.UpdateLastAssistant("first reply")

	turns := c.Turns()
	require.Len(t, turns, 2)
	require.Equal(t, RoleAssistant, turns[1].Role)
}

func TestUpdateLastAssistantDoesNotReachPastNewerUserTurn(t *testing.T) {
	c := New()
	c.AppendTurn(RoleUser, "first")
	c.AppendTurn(RoleAssistant, "first reply")
	c.AppendTurn(RoleUser, "second")
	c.UpdateLastAssistant("second reply")

	turns := c.Turns()
	require.Len(t, turns, 4)
	require.Equal(t, "first reply", turns[1].Content)
	require.Equal(t, "second reply", turns[3].Content)
}

func TestSnapshotForProviderExcludesToolTurns(t *testing.T) {
	c := New()
	c.AppendTurn(RoleUser, "do the thing")
	c.RecordToolCall("search", "call-1", `{"q":"go"}`)
	c.RecordToolResult("call-1", "results...", false)
	c.AppendTurn(RoleAssistant, "done")

	snapshot := c.SnapshotForProvider()
	require.Len(t, snapshot, 2)
	require.Equal(t, RoleUser, snapshot[0].Role)
	require.Equal(t, RoleAssistant, snapshot[1].Role)
}

func TestBuildMessagesAppendsActivePrompt(t *testing.T) {
	c := New()
	c.AppendTurn(RoleUser, "earlier")
	c.AppendTurn(RoleAssistant, "earlier reply")

	msgs := NewView(c).BuildMessages("new question")
	require.Len(t, msgs, 3)
	require.Equal(t, "new question", msgs[2].Content)
	require.Equal(t, "user", msgs[2].Role)
}
