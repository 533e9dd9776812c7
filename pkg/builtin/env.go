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
	"sort"
	"strings"

	"github.com/sandboxrt/core/pkg/component"
	"github.com/sandboxrt/core/pkg/stream"
)

// Env implements the read-only half of the *env* group: `env` and
// `printenv`. The mutating half (export, unset, set, readonly) needs
// direct write access to the live shellenv.Env, which the
// component.Component snapshot cannot provide, so pkg/shell/exec
// intercepts those names as shell intrinsics before dispatch; they are
// never registered here.
type Env struct{}

func (Env) ListCommands() []string { return []string{"env", "printenv"} }

func (Env) Run(ctx context.Context, name string, argv []string, env component.Env, stdin stream.InputStream, stdout, stderr stream.OutputStream) (int, error) {
	if wantsHelp(argv) {
		return usage(stdout, helpText(name))
	}
	switch name {
	case "env":
		keys := make([]string, 0, len(env.Vars))
		for k := range env.Vars {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		for _, k := range keys {
			fmt.Fprintf(&b, "%s=%s\n", k, env.Vars[k])
		}
		return writeAll(stdout, b.String())
	case "printenv":
		if len(argv) == 0 {
			keys := make([]string, 0, len(env.Vars))
			for k := range env.Vars {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			var b strings.Builder
			for _, k := range keys {
				fmt.Fprintf(&b, "%s=%s\n", k, env.Vars[k])
			}
			return writeAll(stdout, b.String())
		}
		v, ok := env.Vars[argv[0]]
		if !ok {
			return component.ExitFailure, nil
		}
		return writeAll(stdout, v+"\n")
	}
	return component.ExitUnknown, nil
}
