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

// Package component defines the unix-command capability every
// executable component (shell builtins, the JS/TS runner, the SQL
// engine) exports, and the dispatcher that routes a (name, argv, env)
// invocation to the component that claims it.
package component

import (
	"context"
	"fmt"

	"github.com/sandboxrt/core/pkg/registry"
	"github.com/sandboxrt/core/pkg/stream"
)

// Exit codes shared across components.
const (
	ExitSuccess      = 0
	ExitFailure      = 1
	ExitUsage        = 2
	ExitUnknown      = 127
	ExitHTTPFailure  = 22
	ExitSignalOffset = 128
)

// Env is the explicit environment record passed to Run; there is no
// implicit process environment.
type Env struct {
	Cwd  string
	Vars map[string]string
}

// Component is the capability every executable unit exports.
type Component interface {
	// ListCommands enumerates the command names this component answers to.
	ListCommands() []string

	// Run dispatches on name, returning ExitUnknown for names the
	// component does not claim. All output must flow through the
	// provided stream handles; stdout/stderr must be flushed before
	// returning.
	Run(ctx context.Context, name string, argv []string, env Env, stdin stream.InputStream, stdout, stderr stream.OutputStream) (int, error)
}

// Dispatcher maintains name -> component registrations. The first
// component to claim a name wins; later registrations for the same
// name are rejected so a misconfigured build fails loudly instead of
// silently shadowing a builtin.
type Dispatcher struct {
	owners *registry.BaseRegistry[Component]
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{owners: registry.NewBaseRegistry[Component]()}
}

// Register claims every name c.ListCommands() reports for component c.
func (d *Dispatcher) Register(c Component) error {
	for _, name := range c.ListCommands() {
		if err := d.owners.Register(name, c); err != nil {
			return fmt.Errorf("component: register %q: %w", name, err)
		}
	}
	return nil
}

// Lookup returns the component that owns name, if any.
func (d *Dispatcher) Lookup(name string) (Component, bool) {
	return d.owners.Get(name)
}

// Run dispatches name to its owning component, returning ExitUnknown
// with no error if no component claims the name, matching a shell's
// "command not found" exit status of 127.
func (d *Dispatcher) Run(ctx context.Context, name string, argv []string, env Env, stdin stream.InputStream, stdout, stderr stream.OutputStream) (int, error) {
	c, ok := d.owners.Get(name)
	if !ok {
		fmt.Fprintf(stderr, "%s: command not found\n", name)
		stderr.Flush()
		return ExitUnknown, nil
	}
	code, err := c.Run(ctx, name, argv, env, stdin, stdout, stderr)
	stdout.Flush()
	stderr.Flush()
	return code, err
}

// Names returns every command name registered across all components,
// used by `type`/`which`/`help`.
func (d *Dispatcher) Names() []string {
	names := make([]string, 0, d.owners.Count())
	seen := map[string]bool{}
	for _, c := range d.owners.List() {
		for _, n := range c.ListCommands() {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	return names
}
