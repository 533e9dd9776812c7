package exec

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandboxrt/core/pkg/component"
	"github.com/sandboxrt/core/pkg/shell/parser"
	"github.com/sandboxrt/core/pkg/shellenv"
	"github.com/sandboxrt/core/pkg/stream"
)

// echoComponent is a minimal Component used to exercise the executor
// without depending on the real builtin package.
type echoComponent struct{}

func (echoComponent) ListCommands() []string { return []string{"echo", "true", "false"} }

func (echoComponent) Run(ctx context.Context, name string, argv []string, env component.Env, stdin stream.InputStream, stdout, stderr stream.OutputStream) (int, error) {
	switch name {
	case "echo":
		for i, a := range argv {
			if i > 0 {
				stdout.Write([]byte(" "))
			}
			stdout.Write([]byte(a))
		}
		stdout.Write([]byte("\n"))
		return 0, nil
	case "true":
		return 0, nil
	case "false":
		return 1, nil
	}
	return component.ExitUnknown, nil
}

func newTestExecutor(t *testing.T) (*Executor, *shellenv.Env) {
	t.Helper()
	d := component.NewDispatcher()
	require.NoError(t, d.Register(echoComponent{}))
	return New(d), shellenv.New("/home/user")
}

func runScript(t *testing.T, x *Executor, env *shellenv.Env, src string) (string, int) {
	t.Helper()
	node, err := parser.Parse(src)
	require.NoError(t, err)
	var buf bytes.Buffer
	out := stream.NewOutputStream(nopWriteCloserT{&buf})
	errOut := stream.NewOutputStream(nopWriteCloserT{io.Discard})
	in := stream.NewInputStream(io.NopCloser(bytes.NewReader(nil)))
	code, err := x.Run(context.Background(), node, env, in, out, errOut)
	require.NoError(t, err)
	return buf.String(), code
}

type nopWriteCloserT struct{ w io.Writer }

func (n nopWriteCloserT) Write(p []byte) (int, error) { return n.w.Write(p) }
func (n nopWriteCloserT) Close() error                { return nil }

func TestRunSimpleCommand(t *testing.T) {
	x, env := newTestExecutor(t)
	out, code := runScript(t, x, env, "echo hello world")
	assert.Equal(t, "hello world\n", out)
	assert.Equal(t, 0, code)
}

func TestRunAndOrShortCircuit(t *testing.T) {
	x, env := newTestExecutor(t)
	out, code := runScript(t, x, env, "false && echo no")
	assert.Equal(t, "", out)
	assert.Equal(t, 1, code)

	out, code = runScript(t, x, env, "false || echo yes")
	assert.Equal(t, "yes\n", out)
	assert.Equal(t, 0, code)
}

func TestRunIf(t *testing.T) {
	x, env := newTestExecutor(t)
	out, _ := runScript(t, x, env, "if true; then echo a; else echo b; fi")
	assert.Equal(t, "a\n", out)
}

func TestRunForLoop(t *testing.T) {
	x, env := newTestExecutor(t)
	out, _ := runScript(t, x, env, "for i in 1 2 3; do echo $i; done")
	assert.Equal(t, "1\n2\n3\n", out)
}

func TestRunPipeline(t *testing.T) {
	x, env := newTestExecutor(t)
	out, _ := runScript(t, x, env, "echo hi | echo captured")
	assert.Equal(t, "captured\n", out)
}

func TestRunPipelineDefaultExitCodeIsLastStage(t *testing.T) {
	x, env := newTestExecutor(t)
	_, code := runScript(t, x, env, "false | true")
	assert.Equal(t, 0, code)
}

func TestRunPipelineFailUsesRightmostNonZero(t *testing.T) {
	x, env := newTestExecutor(t)
	_, code := runScript(t, x, env, "set -o pipefail; false | true | true")
	assert.Equal(t, 1, code)

	_, code = runScript(t, x, env, "set -o pipefail; true | false | true")
	assert.Equal(t, 1, code)

	_, code = runScript(t, x, env, "set -o pipefail; true | true | true")
	assert.Equal(t, 0, code)
}

func TestRunFunctionDefinitionAndCall(t *testing.T) {
	x, env := newTestExecutor(t)
	out, _ := runScript(t, x, env, "greet() { echo hello $1; }; greet world")
	assert.Equal(t, "hello world\n", out)
}

func TestRunSubshellIsolatesVariables(t *testing.T) {
	x, env := newTestExecutor(t)
	env.Set("X", "outer")
	_, _ = runScript(t, x, env, "(X=inner; echo $X)")
	v, _ := env.Get("X")
	assert.Equal(t, "outer", v)
}
