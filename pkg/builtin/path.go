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
	"path/filepath"
	"strings"

	"github.com/sandboxrt/core/pkg/component"
	"github.com/sandboxrt/core/pkg/stream"
)

// Path implements basename and dirname.
type Path struct{}

func (Path) ListCommands() []string { return []string{"basename", "dirname"} }

func (Path) Run(ctx context.Context, name string, argv []string, env component.Env, stdin stream.InputStream, stdout, stderr stream.OutputStream) (int, error) {
	if wantsHelp(argv) {
		return usage(stdout, helpText(name))
	}
	if len(argv) == 0 {
		return component.ExitUsage, nil
	}
	switch name {
	case "basename":
		b := filepath.Base(argv[0])
		if len(argv) > 1 {
			b = strings.TrimSuffix(b, argv[1])
		}
		return writeAll(stdout, b+"\n")
	case "dirname":
		return writeAll(stdout, filepath.Dir(argv[0])+"\n")
	}
	return component.ExitUnknown, nil
}
