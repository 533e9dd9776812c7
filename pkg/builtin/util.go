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

package builtin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sandboxrt/core/pkg/component"
	"github.com/sandboxrt/core/pkg/stream"
)

// Util implements printf, stat, ln, mktemp, type, which.
type Util struct {
	Dispatcher *component.Dispatcher
	Functions  func() map[string]bool
}

func (Util) ListCommands() []string {
	return []string{"printf", "stat", "ln", "mktemp", "type", "which"}
}

func (u Util) Run(ctx context.Context, name string, argv []string, env component.Env, stdin stream.InputStream, stdout, stderr stream.OutputStream) (int, error) {
	if wantsHelp(argv) {
		return usage(stdout, helpText(name))
	}
	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(env.Cwd, p)
	}
	switch name {
	case "printf":
		return runPrintf(argv, stdout, stderr)
	case "stat":
		return runStat(argv, resolve, stdout, stderr)
	case "ln":
		return runLn(argv, resolve, stderr)
	case "mktemp":
		return runMktemp(argv, stdout, stderr)
	case "type", "which":
		return u.runTypeWhich(name, argv, stdout, stderr)
	}
	return component.ExitUnknown, nil
}

// runPrintf supports the subset of conversions scripts actually use:
// %s, %d, %f, %%, and \n/\t escapes in the format string.
func runPrintf(argv []string, stdout, stderr stream.OutputStream) (int, error) {
	if len(argv) == 0 {
		fmt.Fprintln(stderr, "printf: usage: printf FORMAT [ARGS...]")
		return component.ExitUsage, nil
	}
	format := unescapePrintf(argv[0])
	args := argv[1:]

	var b strings.Builder
	ai := 0
	nextArg := func() string {
		if ai < len(args) {
			v := args[ai]
			ai++
			return v
		}
		return ""
	}

	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' || i == len(format)-1 {
			b.WriteByte(c)
			continue
		}
		i++
		switch format[i] {
		case '%':
			b.WriteByte('%')
		case 's':
			b.WriteString(nextArg())
		case 'd':
			n, _ := strconv.Atoi(nextArg())
			fmt.Fprintf(&b, "%d", n)
		case 'f':
			f, _ := strconv.ParseFloat(nextArg(), 64)
			fmt.Fprintf(&b, "%f", f)
		default:
			b.WriteByte('%')
			b.WriteByte(format[i])
		}
	}
	return writeAll(stdout, b.String())
}

func unescapePrintf(s string) string {
	r := strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\\`, `\`)
	return r.Replace(s)
}

func runStat(argv []string, resolve func(string) string, stdout, stderr stream.OutputStream) (int, error) {
	if len(argv) == 0 {
		fmt.Fprintln(stderr, "stat: usage: stat FILE")
		return component.ExitUsage, nil
	}
	fi, err := os.Stat(resolve(argv[0]))
	if err != nil {
		fmt.Fprintf(stderr, "stat: %v\n", err)
		return component.ExitFailure, nil
	}
	kind := "regular file"
	if fi.IsDir() {
		kind = "directory"
	}
	out := fmt.Sprintf(
		"  File: %s\n  Size: %d\t%s\nModify: %s\n  Mode: %s\n",
		argv[0], fi.Size(), kind, fi.ModTime().Format("2006-01-02 15:04:05"), fi.Mode(),
	)
	return writeAll(stdout, out)
}

func runLn(argv []string, resolve func(string) string, stderr stream.OutputStream) (int, error) {
	symbolic := false
	var positional []string
	for _, a := range argv {
		if a == "-s" || a == "--symbolic" {
			symbolic = true
			continue
		}
		positional = append(positional, a)
	}
	if len(positional) != 2 {
		fmt.Fprintln(stderr, "ln: usage: ln [-s] TARGET LINKNAME")
		return component.ExitUsage, nil
	}
	target, link := positional[0], resolve(positional[1])
	var err error
	if symbolic {
		err = os.Symlink(target, link)
	} else {
		err = os.Link(resolve(target), link)
	}
	if err != nil {
		fmt.Fprintf(stderr, "ln: %v\n", err)
		return component.ExitFailure, nil
	}
	return component.ExitSuccess, nil
}

func runMktemp(argv []string, stdout, stderr stream.OutputStream) (int, error) {
	dir := false
	pattern := "tmp.XXXXXXXX"
	for _, a := range argv {
		switch {
		case a == "-d":
			dir = true
		case !strings.HasPrefix(a, "-"):
			pattern = a
		}
	}
	base := strings.TrimSuffix(pattern, "XXXXXXXX")
	if dir {
		p, err := os.MkdirTemp("", base)
		if err != nil {
			fmt.Fprintf(stderr, "mktemp: %v\n", err)
			return component.ExitFailure, nil
		}
		return writeAll(stdout, p+"\n")
	}
	f, err := os.CreateTemp("", base)
	if err != nil {
		fmt.Fprintf(stderr, "mktemp: %v\n", err)
		return component.ExitFailure, nil
	}
	defer f.Close()
	return writeAll(stdout, f.Name()+"\n")
}

func (u Util) runTypeWhich(name string, argv []string, stdout, stderr stream.OutputStream) (int, error) {
	if len(argv) == 0 {
		fmt.Fprintf(stderr, "%s: usage: %s NAME\n", name, name)
		return component.ExitUsage, nil
	}
	target := argv[0]
	if u.Functions != nil && u.Functions()[target] {
		if name == "type" {
			return writeAll(stdout, target+" is a function\n")
		}
		return component.ExitFailure, nil
	}
	if u.Dispatcher != nil {
		if _, ok := u.Dispatcher.Lookup(target); ok {
			if name == "type" {
				return writeAll(stdout, target+" is a shell builtin\n")
			}
			return writeAll(stdout, target+"\n")
		}
	}
	if isShellIntrinsicName(target) {
		if name == "type" {
			return writeAll(stdout, target+" is a shell builtin\n")
		}
		return writeAll(stdout, target+"\n")
	}
	fmt.Fprintf(stderr, "%s: %s: not found\n", name, target)
	return component.ExitFailure, nil
}

func isShellIntrinsicName(name string) bool {
	switch name {
	case "cd", "export", "unset", "set", "readonly", "read", "shift", "local", "return":
		return true
	}
	return false
}
