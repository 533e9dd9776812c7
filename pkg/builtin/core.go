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

// Package builtin implements the ~60-command builtin registry (spec
// §4.4): core, file, text, env, path, test, encoding, misc, json, sql,
// archive, git, util, and tsx groups, each a component.Component
// operating only on the stream handles and Env it is given.
package builtin

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/sandboxrt/core/pkg/component"
	"github.com/sandboxrt/core/pkg/stream"
)

// wantsHelp reports whether argv requests usage text; every builtin
// accepts --help/-h.
func wantsHelp(argv []string) bool {
	for _, a := range argv {
		if a == "--help" || a == "-h" {
			return true
		}
	}
	return false
}

func usage(stdout stream.OutputStream, text string) (int, error) {
	fmt.Fprintln(stdout, text)
	return component.ExitSuccess, nil
}

// writeAll writes s to out, treating a closed downstream reader
// (stream.ErrClosedPipe) as a clean exit for pure producers instead of
// a failure. This is what lets `yes | head -1` exit 0 rather than
// erroring when head stops reading.
func writeAll(out stream.OutputStream, s string) (int, error) {
	if _, err := io.WriteString(out, s); err != nil {
		if errors.Is(err, stream.ErrClosedPipe) {
			return component.ExitSuccess, nil
		}
		return component.ExitFailure, err
	}
	return component.ExitSuccess, nil
}

// Core implements echo, pwd, yes, true, false, help.
type Core struct {
	// Names lists every command name registered across the builtin
	// registry, used by the `help` builtin's summary listing.
	Names func() []string
}

func (Core) ListCommands() []string {
	return []string{"echo", "pwd", "yes", "true", "false", "help"}
}

func (c Core) Run(ctx context.Context, name string, argv []string, env component.Env, stdin stream.InputStream, stdout, stderr stream.OutputStream) (int, error) {
	if wantsHelp(argv) && name != "help" {
		return usage(stdout, helpText(name))
	}
	switch name {
	case "echo":
		return runEcho(argv, stdout)
	case "pwd":
		return writeAll(stdout, env.Cwd+"\n")
	case "yes":
		return runYes(ctx, argv, stdout)
	case "true":
		return component.ExitSuccess, nil
	case "false":
		return component.ExitFailure, nil
	case "help":
		return runHelp(argv, stdout, c.Names)
	}
	return component.ExitUnknown, nil
}

func runEcho(argv []string, stdout stream.OutputStream) (int, error) {
	noNewline := false
	var words []string
	for _, a := range argv {
		if a == "-n" && len(words) == 0 {
			noNewline = true
			continue
		}
		words = append(words, a)
	}
	s := strings.Join(words, " ")
	if !noNewline {
		s += "\n"
	}
	return writeAll(stdout, s)
}

func runYes(ctx context.Context, argv []string, stdout stream.OutputStream) (int, error) {
	word := "y"
	if len(argv) > 0 {
		word = strings.Join(argv, " ")
	}
	line := word + "\n"
	for {
		select {
		case <-ctx.Done():
			return component.ExitSuccess, nil
		default:
		}
		if _, err := io.WriteString(stdout, line); err != nil {
			if errors.Is(err, stream.ErrClosedPipe) {
				return component.ExitSuccess, nil
			}
			return component.ExitFailure, err
		}
	}
}

func runHelp(argv []string, stdout stream.OutputStream, names func() []string) (int, error) {
	if len(argv) > 0 {
		return usage(stdout, helpText(argv[0]))
	}
	var all []string
	if names != nil {
		all = names()
	}
	sort.Strings(all)
	fmt.Fprintln(stdout, "available commands:")
	for _, n := range all {
		fmt.Fprintf(stdout, "  %s\n", n)
	}
	return component.ExitSuccess, nil
}

func helpText(name string) string {
	if t, ok := usageTable[name]; ok {
		return fmt.Sprintf("%s: %s", name, t)
	}
	return fmt.Sprintf("%s: no usage information available", name)
}

// usageTable is the one-paragraph usage string per command, consulted
// by --help/-h across every builtin group.
var usageTable = map[string]string{
	"echo":      "write arguments to stdout, separated by spaces and followed by a newline unless -n is given",
	"pwd":       "print the current working directory",
	"yes":       "repeatedly write a line (default \"y\") until the reader closes",
	"true":      "do nothing, successfully",
	"false":     "do nothing, unsuccessfully",
	"help":      "list available commands, or show usage for one command",
	"ls":        "list directory contents",
	"cat":       "concatenate files (or stdin) to stdout",
	"touch":     "create a file or update its modification time",
	"mkdir":     "create a directory",
	"rmdir":     "remove an empty directory",
	"rm":        "remove files or directories (-r for recursive, -f to ignore missing)",
	"mv":        "move or rename a file",
	"cp":        "copy a file (-r for recursive)",
	"head":      "print the first N lines of input (default 10)",
	"tail":      "print the last N lines of input (default 10)",
	"grep":      "print lines matching a pattern",
	"sort":      "sort lines of input",
	"uniq":      "collapse adjacent duplicate lines",
	"wc":        "count lines, words, and bytes",
	"sed":       "stream-edit input with a limited s/// substitution",
	"cut":       "extract fields from each line",
	"tr":        "translate or delete characters",
	"find":      "walk a directory tree printing matching paths",
	"diff":      "print a line-oriented diff of two files",
	"env":       "print the current environment",
	"printenv":  "print the value of one environment variable",
	"export":    "mark a variable for export to child commands",
	"unset":     "remove a variable",
	"set":       "show or set shell options",
	"readonly":  "same as export; later assignments to the variable are not blocked",
	"basename":  "strip directory and suffix from a path",
	"dirname":   "strip the last path component",
	"test":      "evaluate a conditional expression",
	"[":         "evaluate a conditional expression, requires trailing ]",
	"[[":        "evaluate an extended conditional expression",
	"base64":    "base64 encode or decode (-d) stdin",
	"md5sum":    "print the MD5 digest of stdin or files",
	"sha256sum": "print the SHA-256 digest of stdin or files",
	"xxd":       "hex dump stdin or a file",
	"yaml2json": "convert a YAML document on stdin to JSON",
	"json2yaml": "convert a JSON document on stdin to YAML",
	"seq":       "print a sequence of numbers",
	"sleep":     "pause for the given number of seconds",
	"date":      "print the current date and time",
	"curl":      "fetch a URL over HTTP",
	"tsc":       "type-checking is not implemented; prints a notice pointing to tsx",
	"jq":        "query JSON with a small filter language",
	"xargs":     "build and run commands from stdin input",
	"sqlite3":   "run SQL statements against an in-memory (or named) sqlite database",
	"printf":    "format and print arguments",
	"read":      "read a line from stdin into a variable",
	"stat":      "print file status",
	"ln":        "create a link (symbolic with -s)",
	"mktemp":    "create a uniquely named temporary file or directory",
	"type":      "show how a command name would be interpreted",
	"which":     "show the path to a command",
	"tsx":       "execute a TypeScript/JavaScript file or expression",
	"tar":       "pack or unpack a tar archive",
	"zip":       "pack files into a zip archive",
	"unzip":     "extract files from a zip archive",
	"git":       "minimal, read-only git plumbing (status, log; diff is not implemented)",
}

func bufScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	return sc
}

func nowString() string { return time.Now().UTC().Format(time.RFC1123) }
