package shellenv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneIsolatesMutations(t *testing.T) {
	parent := New("/home/user")
	parent.Set("X", "1")

	child := parent.Clone()
	child.Set("X", "2")
	child.Cwd = "/tmp"
	child.Export("X")

	assert.Equal(t, "1", mustGet(t, parent, "X"))
	assert.Equal(t, "/home/user", parent.Cwd)
	assert.False(t, parent.Exported["X"])
	assert.Equal(t, 1, child.Depth)
	assert.Equal(t, 0, parent.Depth)
}

func TestLocalShadowsOuterScope(t *testing.T) {
	env := New("/")
	env.Set("X", "outer")

	env.PushFunction("f", nil)
	env.SetLocal("X", "inner")
	v, ok := env.Get("X")
	require.True(t, ok)
	assert.Equal(t, "inner", v)

	env.PopFunction()
	v, ok = env.Get("X")
	require.True(t, ok)
	assert.Equal(t, "outer", v)
}

func TestUnsetRemovesVariable(t *testing.T) {
	env := New("/")
	env.Set("X", "1")
	env.Export("X")
	env.Unset("X")

	_, ok := env.Get("X")
	assert.False(t, ok)
	assert.False(t, env.Exported["X"])
}

func TestDirStack(t *testing.T) {
	env := New("/a")
	env.PushDir("/b")
	assert.Equal(t, "/b", env.Cwd)
	ok := env.PopDir()
	require.True(t, ok)
	assert.Equal(t, "/a", env.Cwd)
	assert.False(t, env.PopDir())
}

func mustGet(t *testing.T, env *Env, name string) string {
	t.Helper()
	v, ok := env.Get(name)
	require.True(t, ok)
	return v
}
