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
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sandboxrt/core/pkg/component"
	"github.com/sandboxrt/core/pkg/stream"
)

// File implements ls, cat, touch, mkdir, rmdir, rm, mv, cp. It runs
// against the real OS filesystem rooted at env.Cwd: the spec's
// persistent browser-filesystem layout is explicitly out of scope, so
// this Go rendition resolves relative paths the way a normal shell
// would, against the process's own filesystem.
type File struct{}

func (File) ListCommands() []string {
	return []string{"ls", "cat", "touch", "mkdir", "rmdir", "rm", "mv", "cp"}
}

func (File) Run(ctx context.Context, name string, argv []string, env component.Env, stdin stream.InputStream, stdout, stderr stream.OutputStream) (int, error) {
	if wantsHelp(argv) {
		return usage(stdout, helpText(name))
	}
	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(env.Cwd, p)
	}
	flags, args := splitFlags(argv)
	switch name {
	case "ls":
		return runLs(args, flags, env, stdout, stderr, resolve)
	case "cat":
		return runCat(args, stdin, stdout, stderr, resolve)
	case "touch":
		return runTouch(args, stderr, resolve)
	case "mkdir":
		return runMkdir(args, flags, stderr, resolve)
	case "rmdir":
		return runRmdir(args, stderr, resolve)
	case "rm":
		return runRm(args, flags, stderr, resolve)
	case "mv":
		return runMv(args, stderr, resolve)
	case "cp":
		return runCp(args, flags, stderr, resolve)
	}
	return component.ExitUnknown, nil
}

// splitFlags separates `-x`-style short-flag tokens from positional
// arguments, tolerant of either coming first.
func splitFlags(argv []string) (flags map[string]bool, positional []string) {
	flags = map[string]bool{}
	for _, a := range argv {
		if len(a) > 1 && a[0] == '-' && a != "--" {
			for _, r := range a[1:] {
				flags[string(r)] = true
			}
			continue
		}
		positional = append(positional, a)
	}
	return flags, positional
}

func runLs(args []string, flags map[string]bool, env component.Env, stdout, stderr stream.OutputStream, resolve func(string) string) (int, error) {
	dir := env.Cwd
	if len(args) > 0 {
		dir = resolve(args[0])
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		fmt.Fprintf(stderr, "ls: %v\n", err)
		return component.ExitFailure, nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !flags["a"] && strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	if flags["l"] {
		for _, n := range names {
			info, err := os.Lstat(filepath.Join(dir, n))
			if err != nil {
				continue
			}
			fmt.Fprintf(stdout, "%s %10d %s %s\n", info.Mode(), info.Size(), info.ModTime().Format("Jan 02 15:04"), n)
		}
		return component.ExitSuccess, nil
	}
	for _, n := range names {
		fmt.Fprintln(stdout, n)
	}
	return component.ExitSuccess, nil
}

func runCat(args []string, stdin stream.InputStream, stdout, stderr stream.OutputStream, resolve func(string) string) (int, error) {
	if len(args) == 0 {
		io.Copy(stdout, stdin)
		return component.ExitSuccess, nil
	}
	code := component.ExitSuccess
	for _, a := range args {
		if a == "-" {
			io.Copy(stdout, stdin)
			continue
		}
		f, err := os.Open(resolve(a))
		if err != nil {
			fmt.Fprintf(stderr, "cat: %v\n", err)
			code = component.ExitFailure
			continue
		}
		io.Copy(stdout, f)
		f.Close()
	}
	return code, nil
}

func runTouch(args []string, stderr stream.OutputStream, resolve func(string) string) (int, error) {
	code := component.ExitSuccess
	for _, a := range args {
		p := resolve(a)
		f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Fprintf(stderr, "touch: %v\n", err)
			code = component.ExitFailure
			continue
		}
		f.Close()
		now := time.Now()
		os.Chtimes(p, now, now)
	}
	return code, nil
}

func runMkdir(args []string, flags map[string]bool, stderr stream.OutputStream, resolve func(string) string) (int, error) {
	code := component.ExitSuccess
	for _, a := range args {
		p := resolve(a)
		var err error
		if flags["p"] {
			err = os.MkdirAll(p, 0755)
		} else {
			err = os.Mkdir(p, 0755)
		}
		if err != nil {
			fmt.Fprintf(stderr, "mkdir: %v\n", err)
			code = component.ExitFailure
		}
	}
	return code, nil
}

func runRmdir(args []string, stderr stream.OutputStream, resolve func(string) string) (int, error) {
	code := component.ExitSuccess
	for _, a := range args {
		if err := os.Remove(resolve(a)); err != nil {
			fmt.Fprintf(stderr, "rmdir: %v\n", err)
			code = component.ExitFailure
		}
	}
	return code, nil
}

func runRm(args []string, flags map[string]bool, stderr stream.OutputStream, resolve func(string) string) (int, error) {
	code := component.ExitSuccess
	for _, a := range args {
		p := resolve(a)
		var err error
		if flags["r"] {
			err = os.RemoveAll(p)
		} else {
			err = os.Remove(p)
		}
		if err != nil && !flags["f"] {
			fmt.Fprintf(stderr, "rm: %v\n", err)
			code = component.ExitFailure
		}
	}
	return code, nil
}

func runMv(args []string, stderr stream.OutputStream, resolve func(string) string) (int, error) {
	if len(args) != 2 {
		fmt.Fprintln(stderr, "mv: usage: mv SRC DST")
		return component.ExitUsage, nil
	}
	if err := os.Rename(resolve(args[0]), resolve(args[1])); err != nil {
		fmt.Fprintf(stderr, "mv: %v\n", err)
		return component.ExitFailure, nil
	}
	return component.ExitSuccess, nil
}

func runCp(args []string, flags map[string]bool, stderr stream.OutputStream, resolve func(string) string) (int, error) {
	if len(args) != 2 {
		fmt.Fprintln(stderr, "cp: usage: cp SRC DST")
		return component.ExitUsage, nil
	}
	src, dst := resolve(args[0]), resolve(args[1])
	info, err := os.Stat(src)
	if err != nil {
		fmt.Fprintf(stderr, "cp: %v\n", err)
		return component.ExitFailure, nil
	}
	if info.IsDir() {
		if !flags["r"] {
			fmt.Fprintln(stderr, "cp: omitting directory, use -r")
			return component.ExitFailure, nil
		}
		if err := copyDir(src, dst); err != nil {
			fmt.Fprintf(stderr, "cp: %v\n", err)
			return component.ExitFailure, nil
		}
		return component.ExitSuccess, nil
	}
	if err := copyFile(src, dst); err != nil {
		fmt.Fprintf(stderr, "cp: %v\n", err)
		return component.ExitFailure, nil
	}
	return component.ExitSuccess, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

func copyDir(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		return copyFile(path, target)
	})
}
