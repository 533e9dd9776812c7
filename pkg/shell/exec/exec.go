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

// Package exec walks the parsed shell AST against a shellenv.Env,
// dispatching simple commands through a component.Dispatcher and
// wiring pipeline stages together with pkg/stream pipes. Scheduling is
// cooperative and single-threaded except for the goroutines a
// pipeline's own stages run in; there is no true backgrounding or
// signal delivery.
package exec

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/sandboxrt/core/pkg/component"
	"github.com/sandboxrt/core/pkg/shell/ast"
	"github.com/sandboxrt/core/pkg/shell/expand"
	"github.com/sandboxrt/core/pkg/shell/parser"
	"github.com/sandboxrt/core/pkg/shellenv"
	"github.com/sandboxrt/core/pkg/stream"
)

// MaxLoopIterations bounds for/while/until loops so a runaway script
// cannot hang the browser tab forever.
const MaxLoopIterations = 10000

// Executor walks an ast.Node tree, dispatching Simple commands through
// dispatcher and resolving word expansion through expand.Words.
type Executor struct {
	Dispatcher *component.Dispatcher
	Glob       expand.Globber
}

// New creates an Executor backed by dispatcher, globbing the OS
// filesystem by default.
func New(dispatcher *component.Dispatcher) *Executor {
	return &Executor{Dispatcher: dispatcher, Glob: expand.DefaultGlobber{}}
}

// Run walks node, returning the exit code of the last command executed.
func (x *Executor) Run(ctx context.Context, node ast.Node, env *shellenv.Env, stdin stream.InputStream, stdout, stderr stream.OutputStream) (int, error) {
	switch n := node.(type) {
	case nil:
		return component.ExitSuccess, nil

	case *ast.Simple:
		return x.runSimple(ctx, n, env, stdin, stdout, stderr)

	case *ast.Pipeline:
		return x.runPipeline(ctx, n, env, stdin, stdout, stderr)

	case *ast.And:
		code, err := x.Run(ctx, n.L, env, stdin, stdout, stderr)
		env.LastCode = code
		if err != nil || code != 0 {
			return code, err
		}
		return x.Run(ctx, n.R, env, stdin, stdout, stderr)

	case *ast.Or:
		code, err := x.Run(ctx, n.L, env, stdin, stdout, stderr)
		env.LastCode = code
		if err != nil || code == 0 {
			return code, err
		}
		return x.Run(ctx, n.R, env, stdin, stdout, stderr)

	case *ast.Sequence:
		code, err := x.Run(ctx, n.L, env, stdin, stdout, stderr)
		env.LastCode = code
		if err != nil {
			return code, err
		}
		if env.Options.ErrExit && code != 0 {
			return code, nil
		}
		return x.Run(ctx, n.R, env, stdin, stdout, stderr)

	case *ast.For:
		return x.runFor(ctx, n, env, stdin, stdout, stderr)

	case *ast.While:
		return x.runWhile(ctx, n, env, stdin, stdout, stderr)

	case *ast.If:
		return x.runIf(ctx, n, env, stdin, stdout, stderr)

	case *ast.Case:
		return x.runCase(ctx, n, env, stdin, stdout, stderr)

	case *ast.Subshell:
		if env.Depth >= shellenv.MaxSubshellDepth {
			fmt.Fprintln(stderr, "sh: subshell nesting too deep")
			stderr.Flush()
			return component.ExitFailure, nil
		}
		sub := env.Clone()
		code, err := x.Run(ctx, n.Body, sub, stdin, stdout, stderr)
		env.LastCode = sub.LastCode
		return code, err

	case *ast.Brace:
		return x.Run(ctx, n.Body, env, stdin, stdout, stderr)

	case *ast.FunctionDef:
		env.Functions[n.Name] = n.Body
		return component.ExitSuccess, nil

	case *ast.Background:
		// No true process backgrounding in this runtime (spec Non-goals);
		// the command still runs to completion but its code does not gate
		// the caller.
		code, err := x.Run(ctx, n.Cmd, env, stdin, stdout, stderr)
		if err != nil {
			return code, err
		}
		return component.ExitSuccess, nil

	default:
		return component.ExitFailure, fmt.Errorf("exec: unhandled node type %T", node)
	}
}

func (x *Executor) runSimple(ctx context.Context, n *ast.Simple, env *shellenv.Env, stdin stream.InputStream, stdout, stderr stream.OutputStream) (int, error) {
	if env.Options.XTrace {
		fmt.Fprintf(stderr, "+ %s %v\n", n.Name, n.Args)
	}

	runner := &subshellRunner{x: x, env: env}
	rawArgs := append([]string{n.Name}, n.Args...)
	argv, err := expand.Words(rawArgs, env, runner, x.Glob)
	if err != nil {
		fmt.Fprintf(stderr, "sh: %v\n", err)
		stderr.Flush()
		return component.ExitFailure, nil
	}

	// A bare assignment-only line (`NAME=val`) with no command name sets
	// variables in the current environment rather than a child's.
	if len(argv) == 0 {
		for k, v := range n.EnvVars {
			env.Set(k, v)
		}
		return component.ExitSuccess, nil
	}

	name := argv[0]
	args := argv[1:]

	in, out, errOut := stdin, stdout, stderr
	cleanup, err := x.installRedirects(n.Redirects, env, &in, &out, &errOut)
	if err != nil {
		fmt.Fprintf(stderr, "sh: %v\n", err)
		stderr.Flush()
		return component.ExitFailure, nil
	}
	defer cleanup()

	if body, ok := env.Functions[name]; ok {
		return x.callFunction(ctx, name, body, args, env, in, out, errOut)
	}

	if code, handled, err := runIntrinsic(name, args, env, in, out, errOut); handled {
		return code, err
	}

	builtinEnv := component.Env{Cwd: env.Cwd, Vars: mergeVars(env.ExportedVars(), n.EnvVars)}
	code, err := x.Dispatcher.Run(ctx, name, args, builtinEnv, in, out, errOut)
	return code, err
}

func mergeVars(base, extra map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// callFunction re-parses a function body (stored as source text, spec
// §9) and executes it against env with positional parameters bound.
func (x *Executor) callFunction(ctx context.Context, name, body string, args []string, env *shellenv.Env, stdin stream.InputStream, stdout, stderr stream.OutputStream) (int, error) {
	node, err := parser.Parse(body)
	if err != nil {
		fmt.Fprintf(stderr, "sh: %s: %v\n", name, err)
		stderr.Flush()
		return component.ExitFailure, nil
	}
	env.PushFunction(name, args)
	defer env.PopFunction()
	code, err := x.Run(ctx, node, env, stdin, stdout, stderr)
	if frame := env.CallStack[len(env.CallStack)-1]; frame.ReturnCode != nil {
		code = *frame.ReturnCode
	}
	return code, err
}

func (x *Executor) runPipeline(ctx context.Context, n *ast.Pipeline, env *shellenv.Env, stdin stream.InputStream, stdout, stderr stream.OutputStream) (int, error) {
	if len(n.Commands) == 1 {
		code, err := x.Run(ctx, n.Commands[0], env, stdin, stdout, stderr)
		if n.Negate {
			code = negate(code)
		}
		return code, err
	}

	stages := len(n.Commands)
	readers := make([]stream.InputStream, stages)
	writers := make([]stream.OutputStream, stages)
	readers[0] = stdin
	for i := 1; i < stages; i++ {
		w, r := stream.Connect(stream.DefaultCapacity)
		writers[i-1] = w
		readers[i] = r
	}
	writers[stages-1] = stdout

	var wg sync.WaitGroup
	codes := make([]int, stages)
	errs := make([]error, stages)
	for i := 0; i < stages; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			stageEnv := env
			if i > 0 {
				stageEnv = env.Clone()
			}
			codes[i], errs[i] = x.Run(ctx, n.Commands[i], stageEnv, readers[i], writers[i], stderr)
			if i < stages-1 {
				writers[i].Close()
			}
		}(i)
	}
	wg.Wait()

	last := codes[stages-1]
	if env.Options.PipeFail {
		for _, c := range codes {
			if c != 0 {
				last = c
			}
		}
	}
	if n.Negate {
		last = negate(last)
	}
	for _, e := range errs {
		if e != nil {
			return last, e
		}
	}
	return last, nil
}

func negate(code int) int {
	if code == 0 {
		return 1
	}
	return 0
}

func (x *Executor) runFor(ctx context.Context, n *ast.For, env *shellenv.Env, stdin stream.InputStream, stdout, stderr stream.OutputStream) (int, error) {
	runner := &subshellRunner{x: x, env: env}
	words, err := expand.Words(n.Words, env, runner, x.Glob)
	if err != nil {
		fmt.Fprintf(stderr, "sh: %v\n", err)
		stderr.Flush()
		return component.ExitFailure, nil
	}
	code := component.ExitSuccess
	iterations := 0
	for _, w := range words {
		iterations++
		if iterations > MaxLoopIterations {
			fmt.Fprintln(stderr, "sh: loop iteration limit exceeded")
			stderr.Flush()
			return component.ExitFailure, nil
		}
		env.Set(n.Var, w)
		var err error
		code, err = x.Run(ctx, n.Body, env, stdin, stdout, stderr)
		if err != nil {
			return code, err
		}
		if env.Options.ErrExit && code != 0 {
			return code, nil
		}
	}
	return code, nil
}

func (x *Executor) runWhile(ctx context.Context, n *ast.While, env *shellenv.Env, stdin stream.InputStream, stdout, stderr stream.OutputStream) (int, error) {
	code := component.ExitSuccess
	iterations := 0
	for {
		iterations++
		if iterations > MaxLoopIterations {
			fmt.Fprintln(stderr, "sh: loop iteration limit exceeded")
			stderr.Flush()
			return component.ExitFailure, nil
		}
		condCode, err := x.Run(ctx, n.Condition, env, stdin, stdout, stderr)
		if err != nil {
			return condCode, err
		}
		truthy := condCode == 0
		if n.Negate {
			truthy = !truthy
		}
		if !truthy {
			break
		}
		code, err = x.Run(ctx, n.Body, env, stdin, stdout, stderr)
		if err != nil {
			return code, err
		}
		if env.Options.ErrExit && code != 0 {
			return code, nil
		}
	}
	return code, nil
}

func (x *Executor) runIf(ctx context.Context, n *ast.If, env *shellenv.Env, stdin stream.InputStream, stdout, stderr stream.OutputStream) (int, error) {
	for _, arm := range n.Conditionals {
		code, err := x.Run(ctx, arm.Condition, env, stdin, stdout, stderr)
		if err != nil {
			return code, err
		}
		if code == 0 {
			return x.Run(ctx, arm.Then, env, stdin, stdout, stderr)
		}
	}
	if n.Else != nil {
		return x.Run(ctx, n.Else, env, stdin, stdout, stderr)
	}
	return component.ExitSuccess, nil
}

func (x *Executor) runCase(ctx context.Context, n *ast.Case, env *shellenv.Env, stdin stream.InputStream, stdout, stderr stream.OutputStream) (int, error) {
	runner := &subshellRunner{x: x, env: env}
	words, err := expand.Words([]string{n.Word}, env, runner, x.Glob)
	if err != nil || len(words) == 0 {
		return component.ExitFailure, err
	}
	subject := words[0]
	for _, clause := range n.Cases {
		for _, pat := range clause.Patterns {
			expandedPat, err := expand.Words([]string{pat}, env, runner, nil)
			if err != nil {
				continue
			}
			if len(expandedPat) > 0 && matchGlob(expandedPat[0], subject) {
				return x.Run(ctx, clause.Body, env, stdin, stdout, stderr)
			}
		}
	}
	return component.ExitSuccess, nil
}

func matchGlob(pattern, s string) bool {
	ok, err := filepath.Match(pattern, s)
	return err == nil && ok
}

// installRedirects wires the redirects listed on a Simple command and
// returns a cleanup func that must run after the command completes.
// A here-doc becomes stdin, and `1>&2` / `2>&1` swap the stream handles.
// File redirections (`<`, `>`, `>>`) open no file: they print a notice
// on stderr and leave the streams unchanged. Other fd duplications are
// ignored.
func (x *Executor) installRedirects(redirects []ast.Redirect, env *shellenv.Env, stdin *stream.InputStream, stdout, stderr *stream.OutputStream) (func(), error) {
	cleanup := func() {}

	for _, r := range redirects {
		switch r.Mode {
		case ast.RedirectHeredoc:
			body := r.HeredocBody
			if r.StripTabs {
				lines := bytes.Split([]byte(body), []byte("\n"))
				for i := range lines {
					lines[i] = bytes.TrimLeft(lines[i], "\t")
				}
				body = string(bytes.Join(lines, []byte("\n")))
			}
			if !r.HeredocQuoted {
				runner := &subshellRunner{x: x, env: env}
				if expanded, err := expand.Words([]string{body}, env, runner, nil); err == nil && len(expanded) > 0 {
					body = expanded[0]
				}
			}
			rc := io.NopCloser(bytesReader(body))
			*stdin = rc

		case ast.RedirectIn:
			fmt.Fprintf(*stderr, "sh: file redirection is not backed by a persistent filesystem in this runtime\n")

		case ast.RedirectOut, ast.RedirectAppend:
			fmt.Fprintf(*stderr, "sh: file redirection is not backed by a persistent filesystem in this runtime\n")

		case ast.RedirectDup:
			if r.Target == "2" && r.FD == 1 {
				*stdout = *stderr
			} else if r.Target == "1" && r.FD == 2 {
				*stderr = *stdout
			}
		}
	}
	return cleanup, nil
}

func bytesReader(s string) io.Reader { return byteReader{b: []byte(s)} }

type byteReader struct{ b []byte }

func (r byteReader) Read(p []byte) (int, error) {
	n := copy(p, r.b)
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// subshellRunner adapts Executor into expand.CommandRunner: `$(cmd)`
// parses and runs cmd in a cloned environment, capturing stdout.
type subshellRunner struct {
	x   *Executor
	env *shellenv.Env
}

func (r *subshellRunner) RunCapture(cmd string) (string, error) {
	node, err := parser.Parse(cmd)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	out := stream.NewOutputStream(nopWriteCloser{&buf})
	errOut := stream.NewOutputStream(nopWriteCloser{io.Discard})
	sub := r.env.Clone()
	if sub.Depth > shellenv.MaxSubshellDepth {
		return "", fmt.Errorf("sh: subshell nesting too deep")
	}
	emptyIn := stream.NewInputStream(io.NopCloser(bytesReader("")))
	_, err = r.x.Run(context.Background(), node, sub, emptyIn, out, errOut)
	return buf.String(), err
}

type nopWriteCloser struct{ w io.Writer }

func (n nopWriteCloser) Write(p []byte) (int, error) { return n.w.Write(p) }
func (n nopWriteCloser) Close() error                { return nil }
