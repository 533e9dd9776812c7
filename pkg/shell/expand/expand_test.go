package expand

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandboxrt/core/pkg/shellenv"
)

type fakeRunner struct{ out string }

func (f fakeRunner) RunCapture(cmd string) (string, error) { return f.out, nil }

func newTestEnv() *shellenv.Env {
	e := shellenv.New("/home/user")
	e.Set("HOME", "/home/user")
	e.Set("NAME", "world")
	return e
}

func TestWordsParameterExpansion(t *testing.T) {
	env := newTestEnv()
	out, err := Words([]string{"hello-$NAME"}, env, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello-world"}, out)
}

func TestWordsSingleQuoteIsLiteral(t *testing.T) {
	env := newTestEnv()
	out, err := Words([]string{`'$NAME'`}, env, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"$NAME"}, out)
}

func TestWordsDoubleQuotePreservesWhitespaceAsOneField(t *testing.T) {
	env := newTestEnv()
	env.Set("X", "a  b")
	out, err := Words([]string{`"$X"`}, env, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a  b"}, out)
}

func TestWordsUnquotedSplitsOnIFS(t *testing.T) {
	env := newTestEnv()
	env.Set("X", "a  b")
	out, err := Words([]string{"$X"}, env, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, out)
}

func TestWordsDefaultValueOperator(t *testing.T) {
	env := newTestEnv()
	out, err := Words([]string{"${MISSING:-fallback}"}, env, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"fallback"}, out)
}

func TestWordsAssignDefaultOperatorMutatesEnv(t *testing.T) {
	env := newTestEnv()
	_, err := Words([]string{"${Y:=set}"}, env, nil, nil)
	require.NoError(t, err)
	v, ok := env.Get("Y")
	assert.True(t, ok)
	assert.Equal(t, "set", v)
}

func TestWordsRequiredOperatorErrorsWhenUnset(t *testing.T) {
	env := newTestEnv()
	_, err := Words([]string{"${MISSING:?must be set}"}, env, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be set")
}

func TestWordsLengthOperator(t *testing.T) {
	env := newTestEnv()
	out, err := Words([]string{"${#NAME}"}, env, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"5"}, out)
}

func TestWordsCommandSubstitution(t *testing.T) {
	env := newTestEnv()
	out, err := Words([]string{"$(echo hi)"}, env, fakeRunner{out: "hi\n"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"hi"}, out)
}

func TestWordsBacktickCommandSubstitution(t *testing.T) {
	env := newTestEnv()
	out, err := Words([]string{"`echo hi`"}, env, fakeRunner{out: "hi\n"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"hi"}, out)
}

func TestWordsArithmeticExpansion(t *testing.T) {
	env := newTestEnv()
	out, err := Words([]string{"$((2+3))"}, env, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"5"}, out)
}

func TestWordsTildeExpansion(t *testing.T) {
	env := newTestEnv()
	out, err := Words([]string{"~/docs"}, env, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"/home/user/docs"}, out)
}

func TestWordsNoUnsetErrorsOnMissingVariable(t *testing.T) {
	env := newTestEnv()
	env.Options.NoUnset = true
	_, err := Words([]string{"$MISSING"}, env, nil, nil)
	require.Error(t, err)
}

func TestWordsBraceThenSplitProducesMultipleArgs(t *testing.T) {
	env := newTestEnv()
	out, err := Words([]string{"file{1,2}.txt"}, env, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"file1.txt", "file2.txt"}, out)
}
