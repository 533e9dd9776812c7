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

	"github.com/sandboxrt/core/pkg/component"
	"github.com/sandboxrt/core/pkg/jshost"
	"github.com/sandboxrt/core/pkg/stream"
)

// hostFS adapts a builtin's Cwd-relative file access onto jshost.FS.
type hostFS struct{ cwd string }

func (h hostFS) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(h.cwd, p)
}

func (h hostFS) ReadFile(p string) ([]byte, error)     { return os.ReadFile(h.resolve(p)) }
func (h hostFS) WriteFile(p string, data []byte) error { return os.WriteFile(h.resolve(p), data, 0o644) }
func (h hostFS) Readdir(p string) ([]string, error) {
	entries, err := os.ReadDir(h.resolve(p))
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names, nil
}

// TSX implements tsx: execute a TypeScript/JavaScript file through the
// embedded jshost.Host, draining its console buffer to the shell's own
// stdout after the script runs to completion.
type TSX struct {
	Transpiler jshost.Transpiler
	Bridge     jshost.Bridge
}

func (TSX) ListCommands() []string { return []string{"tsx"} }

func (t TSX) Run(ctx context.Context, name string, argv []string, env component.Env, stdin stream.InputStream, stdout, stderr stream.OutputStream) (int, error) {
	if wantsHelp(argv) {
		return usage(stdout, helpText(name))
	}
	if len(argv) == 0 {
		fmt.Fprintln(stderr, "tsx: usage: tsx FILE")
		return component.ExitUsage, nil
	}
	path := argv[0]
	fs := hostFS{cwd: env.Cwd}
	data, err := fs.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "tsx: %v\n", err)
		return component.ExitFailure, nil
	}

	host := jshost.New(jshost.WithFS(fs), jshost.WithBridge(t.Bridge), jshost.WithTranspiler(t.Transpiler))
	_, runErr := host.RunScript(string(data), path)
	for _, entry := range host.DrainLogs() {
		line := ""
		for i, a := range entry.Args {
			if i > 0 {
				line += " "
			}
			line += a
		}
		fmt.Fprintln(stdout, line)
	}
	if runErr != nil {
		fmt.Fprintf(stderr, "tsx: %v\n", runErr)
		return component.ExitFailure, nil
	}
	return component.ExitSuccess, nil
}
