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

// Command sandboxsh is the CLI for the sandbox runtime, built with
// alecthomas/kong, exposing `sh`, `mcp serve`, `mcp call`, and
// `agent run` subcommands.
package main

import (
	"github.com/sandboxrt/core/pkg/builtin"
	"github.com/sandboxrt/core/pkg/component"
	"github.com/sandboxrt/core/pkg/httpclient"
	"github.com/sandboxrt/core/pkg/shellenv"
)

// newDispatcher registers every builtin component behind one shared
// dispatcher. env supplies the live shell-function table Util.Run
// consults for `type`/`which`.
func newDispatcher(env *shellenv.Env) *component.Dispatcher {
	d := component.NewDispatcher()

	functionsFn := func() map[string]bool {
		out := make(map[string]bool, len(env.Functions))
		for name := range env.Functions {
			out[name] = true
		}
		return out
	}

	components := []component.Component{
		builtin.Core{},
		builtin.File{},
		builtin.Text{},
		builtin.Env{},
		builtin.Path{},
		builtin.Encoding{},
		builtin.Test{},
		builtin.JSON{},
		builtin.SQL{},
		builtin.Archive{},
		builtin.Git{},
		builtin.Misc{HTTPClient: httpclient.New()},
		builtin.Xargs{Dispatcher: d},
		builtin.Util{Dispatcher: d, Functions: functionsFn},
		builtin.TSX{},
	}
	for _, c := range components {
		if err := d.Register(c); err != nil {
			panic(err)
		}
	}
	return d
}
