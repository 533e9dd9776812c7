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
	"strings"

	"github.com/sandboxrt/core/pkg/component"
	"github.com/sandboxrt/core/pkg/stream"
)

// Git implements a minimal read-only subset of git: `status` reports
// the current branch from .git/HEAD and always says the working tree is
// clean (it does not compare files); `log` lists commit ids from
// .git/logs/HEAD, newest first; `diff` only prints a notice that it is
// not implemented. No git library is wired in, so this reads the
// on-disk .git layout directly rather than shelling out to a host git
// binary, which would not exist in this sandboxed runtime.
type Git struct{}

func (Git) ListCommands() []string { return []string{"git"} }

func (Git) Run(ctx context.Context, name string, argv []string, env component.Env, stdin stream.InputStream, stdout, stderr stream.OutputStream) (int, error) {
	if wantsHelp(argv) || len(argv) == 0 {
		return usage(stdout, helpText(name))
	}
	gitDir := filepath.Join(env.Cwd, ".git")
	if _, err := os.Stat(gitDir); err != nil {
		fmt.Fprintln(stderr, "fatal: not a git repository (or any of the parent directories): .git")
		return component.ExitFailure, nil
	}
	switch argv[0] {
	case "status":
		return gitStatus(gitDir, env.Cwd, stdout)
	case "log":
		return gitLog(gitDir, stdout, stderr)
	case "diff":
		return writeAll(stdout, "diff: working-tree diffing against the object store is not implemented in this runtime\n")
	}
	fmt.Fprintf(stderr, "git: %s: not a supported subcommand\n", argv[0])
	return component.ExitUsage, nil
}

func gitStatus(gitDir, cwd string, stdout stream.OutputStream) (int, error) {
	branch := "HEAD"
	if data, err := os.ReadFile(filepath.Join(gitDir, "HEAD")); err == nil {
		line := strings.TrimSpace(string(data))
		if ref, ok := strings.CutPrefix(line, "ref: refs/heads/"); ok {
			branch = ref
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "On branch %s\n", branch)
	b.WriteString("nothing to commit, working tree clean\n")
	return writeAll(stdout, b.String())
}

func gitLog(gitDir string, stdout, stderr stream.OutputStream) (int, error) {
	data, err := os.ReadFile(filepath.Join(gitDir, "logs", "HEAD"))
	if err != nil {
		return writeAll(stdout, "")
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	var b strings.Builder
	for i := len(lines) - 1; i >= 0; i-- {
		fields := strings.Fields(lines[i])
		if len(fields) < 2 {
			continue
		}
		fmt.Fprintf(&b, "commit %s\n", fields[1])
	}
	return writeAll(stdout, b.String())
}
