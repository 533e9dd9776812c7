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

package toolrouter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubCaller struct{ label string }

func (s stubCaller) CallTool(ctx context.Context, name string, args map[string]interface{}) (string, error) {
	return s.label + ":" + name, nil
}
func (s stubCaller) CallLocal(ctx context.Context, name string, args map[string]interface{}) (string, error) {
	return s.label + ":" + name, nil
}

func TestDispatchSandbox(t *testing.T) {
	r := New()
	r.Sandbox = stubCaller{"sandbox"}
	out, err := r.Dispatch(context.Background(), "__sandbox__ls", nil)
	require.NoError(t, err)
	require.Equal(t, "sandbox:ls", out)
}

func TestDispatchLocal(t *testing.T) {
	r := New()
	r.Local = stubCaller{"local"}
	out, err := r.Dispatch(context.Background(), "__local__updateTaskList", nil)
	require.NoError(t, err)
	require.Equal(t, "local:updateTaskList", out)
}

func TestDispatchRemoteServer(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterServer("weather", stubCaller{"weather"}))
	out, err := r.Dispatch(context.Background(), "weather_forecast", nil)
	require.NoError(t, err)
	require.Equal(t, "weather:forecast", out)
}

func TestRegisterServerRejectsUnderscorePrefix(t *testing.T) {
	r := New()
	err := r.RegisterServer("_hidden", stubCaller{"x"})
	require.Error(t, err)
}

func TestDispatchUnknownPrefixErrors(t *testing.T) {
	r := New()
	_, err := r.Dispatch(context.Background(), "ghost_tool", nil)
	require.Error(t, err)
	var dispatchErr *DispatchError
	require.ErrorAs(t, err, &dispatchErr)
}

func TestDisplayString(t *testing.T) {
	require.Equal(t, "ls", DisplayString("__sandbox__ls"))
	require.Equal(t, "updateTaskList", DisplayString("__local__updateTaskList"))
	require.Equal(t, "weather → forecast", DisplayString("weather_forecast"))
}
