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

package jshost

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type memFS struct{ files map[string]string }

func (m memFS) ReadFile(p string) ([]byte, error) {
	if v, ok := m.files[p]; ok {
		return []byte(v), nil
	}
	return nil, &fsNotFound{p}
}
func (m memFS) WriteFile(p string, data []byte) error { m.files[p] = string(data); return nil }
func (m memFS) Readdir(p string) ([]string, error)    { return nil, nil }

type fsNotFound struct{ path string }

func (e *fsNotFound) Error() string { return "not found: " + e.path }

func TestResolveSpecifierURL(t *testing.T) {
	require.Equal(t, "https://esm.sh/pkg@1.0.0", ResolveSpecifier("https://esm.sh/pkg@1.0.0", "./entry.js"))
}

func TestResolveSpecifierRelative(t *testing.T) {
	require.Equal(t, "lib/util.js", ResolveSpecifier("./util.js", "lib/main.js"))
}

func TestResolveSpecifierBareRewritesToCDN(t *testing.T) {
	require.Equal(t, "https://esm.sh/lodash", ResolveSpecifier("lodash", "main.js"))
}

func TestConsoleLogIsCaptured(t *testing.T) {
	h := New()
	_, err := h.Runtime().RunString(`console.log("hello", "world")`)
	require.NoError(t, err)
	logs := h.DrainLogs()
	require.Len(t, logs, 1)
	require.Equal(t, "log", logs[0].Level)
	require.Equal(t, []string{"hello", "world"}, logs[0].Args)
	require.Empty(t, h.DrainLogs())
}

func TestLoadModuleCommonJS(t *testing.T) {
	fs := memFS{files: map[string]string{
		"main.cjs": `module.exports = { answer: 42 };`,
	}}
	h := New(WithFS(fs))
	v, err := h.LoadModule("main.cjs")
	require.NoError(t, err)
	obj := v.ToObject(h.Runtime())
	require.Equal(t, int64(42), obj.Get("answer").ToInteger())
}

func TestLoadModuleJSON(t *testing.T) {
	fs := memFS{files: map[string]string{
		"data.json": `{"a": 1}`,
	}}
	h := New(WithFS(fs))
	v, err := h.LoadModule("data.json")
	require.NoError(t, err)
	obj := v.ToObject(h.Runtime())
	require.Equal(t, int64(1), obj.Get("a").ToInteger())
}

type stubTranspiler struct{}

func (stubTranspiler) Transpile(source, filename string) (string, error) {
	return "module.exports = { ok: true };", nil
}

func TestLoadModuleTypeScriptUsesTranspiler(t *testing.T) {
	fs := memFS{files: map[string]string{
		"main.ts": `const x: number = 1; export default x;`,
	}}
	h := New(WithFS(fs), WithTranspiler(stubTranspiler{}))
	v, err := h.LoadModule("main.ts")
	require.NoError(t, err)
	obj := v.ToObject(h.Runtime())
	require.True(t, obj.Get("ok").ToBoolean())
}
