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

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/sandboxrt/core/pkg/shell/exec"
	"github.com/sandboxrt/core/pkg/shell/parser"
	"github.com/sandboxrt/core/pkg/shellenv"
	"github.com/sandboxrt/core/pkg/stream"
)

// ShCmd runs the POSIX-like shell, either on stdin (interactively or
// piped) or on a script file, and optionally exposes the same session
// over a websocket for a browser-resident frontend.
type ShCmd struct {
	Script string `arg:"" optional:"" help:"Path to a shell script to execute. Omit for an interactive/piped session."`
	WSAddr string `name:"ws-addr" help:"Serve this shell session over a websocket at this address instead of stdio (e.g. :8090)."`
}

func (c *ShCmd) Run(cli *CLI) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	if c.WSAddr != "" {
		return serveShellWebsocket(c.WSAddr, cwd)
	}

	env := shellenv.New(cwd)
	d := newDispatcher(env)
	x := exec.New(d)
	stdout := stream.NewOutputStream(os.Stdout)
	stderr := stream.NewOutputStream(os.Stderr)

	if c.Script != "" {
		data, err := os.ReadFile(c.Script)
		if err != nil {
			return fmt.Errorf("sandboxsh: %w", err)
		}
		return runSource(context.Background(), x, env, string(data), stdout, stderr)
	}

	return runInteractive(context.Background(), x, env, stdout, stderr)
}

// runInteractive drives the REPL off os.Stdin. When stdin is a real
// terminal it puts the terminal into raw mode and reads its own
// line editor, since the kernel's canonical line discipline no longer
// echoes or edits for it. Piped/non-tty stdin falls back to plain
// line-buffered reads.
func runInteractive(ctx context.Context, x *exec.Executor, env *shellenv.Env, stdout, stderr stream.OutputStream) error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return runREPL(ctx, x, env, os.Stdin, stdout, stderr)
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return runREPL(ctx, x, env, os.Stdin, stdout, stderr)
	}
	defer term.Restore(fd, oldState)

	return runRawREPL(ctx, x, env, stdout, stderr)
}

// runRawREPL implements a minimal line editor over a raw-mode
// terminal: raw mode disables the kernel's canonical line discipline,
// so echo and backspace handling have to happen here instead.
func runRawREPL(ctx context.Context, x *exec.Executor, env *shellenv.Env, stdout, stderr stream.OutputStream) error {
	reader := bufio.NewReader(os.Stdin)
	var line []byte
	for {
		b, err := reader.ReadByte()
		if err != nil {
			return nil
		}
		switch b {
		case '\r', '\n':
			os.Stdout.WriteString("\r\n")
			text := strings.TrimSpace(string(line))
			line = line[:0]
			if text == "" {
				continue
			}
			node, perr := parser.Parse(text)
			if perr != nil {
				fmt.Fprintf(os.Stderr, "sandboxsh: parse error: %v\r\n", perr)
				continue
			}
			stdin := stream.NewInputStream(io.NopCloser(strings.NewReader("")))
			code, runErr := x.Run(ctx, node, env, stdin, stdout, stderr)
			if runErr != nil {
				slog.Error("command failed", "error", runErr)
				continue
			}
			env.LastCode = code
		case 0x7f, 0x08: // backspace/delete
			if len(line) > 0 {
				line = line[:len(line)-1]
				os.Stdout.WriteString("\b \b")
			}
		case 0x03: // Ctrl-C: discard the current line
			line = line[:0]
			os.Stdout.WriteString("^C\r\n")
		case 0x04: // Ctrl-D: end of input
			return nil
		default:
			line = append(line, b)
			os.Stdout.Write([]byte{b})
		}
	}
}

func runSource(ctx context.Context, x *exec.Executor, env *shellenv.Env, src string, stdout, stderr stream.OutputStream) error {
	node, err := parser.Parse(src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sandboxsh: parse error: %v\n", err)
		return err
	}
	stdin := stream.NewInputStream(io.NopCloser(strings.NewReader("")))
	code, err := x.Run(ctx, node, env, stdin, stdout, stderr)
	if err != nil {
		return err
	}
	env.LastCode = code
	if code != 0 {
		os.Exit(code)
	}
	return nil
}

func runREPL(ctx context.Context, x *exec.Executor, env *shellenv.Env, in io.Reader, stdout, stderr stream.OutputStream) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		node, err := parser.Parse(line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sandboxsh: parse error: %v\n", err)
			continue
		}
		stdin := stream.NewInputStream(io.NopCloser(strings.NewReader("")))
		code, err := x.Run(ctx, node, env, stdin, stdout, stderr)
		if err != nil {
			slog.Error("command failed", "error", err)
			continue
		}
		env.LastCode = code
	}
	return scanner.Err()
}
