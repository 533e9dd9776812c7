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

package exec

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/sandboxrt/core/pkg/component"
	"github.com/sandboxrt/core/pkg/shellenv"
	"github.com/sandboxrt/core/pkg/stream"
)

// runIntrinsic handles the handful of builtins that must mutate the
// live *shellenv.Env directly (export, unset, set, readonly, read, cd,
// shift, local, return) rather than the read-only component.Env
// snapshot every other builtin receives through the Dispatcher. These
// never leave pkg/shell/exec: the component.Component interface has no
// way to hand mutations back to the caller, so these names are
// intercepted before dispatch.
func runIntrinsic(name string, args []string, env *shellenv.Env, stdin stream.InputStream, stdout, stderr stream.OutputStream) (code int, handled bool, err error) {
	switch name {
	case "cd":
		return runCd(args, env, stderr), true, nil
	case "export":
		return runExport(args, env), true, nil
	case "unset":
		for _, a := range args {
			env.Unset(a)
		}
		return component.ExitSuccess, true, nil
	case "readonly":
		return runExport(args, env), true, nil
	case "set":
		return runSet(args, env), true, nil
	case "read":
		return runRead(args, env, stdin, stderr), true, nil
	case "shift":
		return runShift(args, env, stderr), true, nil
	case "local":
		return runLocal(args, env, stderr), true, nil
	case "return":
		return runReturn(args, env, stderr), true, nil
	}
	return 0, false, nil
}

func runCd(args []string, env *shellenv.Env, stderr stream.OutputStream) int {
	dir := "/"
	if home, ok := env.Get("HOME"); ok {
		dir = home
	}
	if len(args) > 0 {
		dir = args[0]
	}
	if dir == "-" {
		if prev, ok := env.Get("OLDPWD"); ok {
			dir = prev
		}
	}
	env.Set("OLDPWD", env.Cwd)
	env.Cwd = dir
	env.Set("PWD", dir)
	return component.ExitSuccess
}

func runExport(args []string, env *shellenv.Env) int {
	for _, a := range args {
		name, value, hasValue := strings.Cut(a, "=")
		if hasValue {
			env.Set(name, value)
		}
		env.Export(name)
	}
	return component.ExitSuccess
}

func runSet(args []string, env *shellenv.Env) int {
	for _, a := range args {
		switch a {
		case "-e":
			env.Options.ErrExit = true
		case "+e":
			env.Options.ErrExit = false
		case "-u":
			env.Options.NoUnset = true
		case "+u":
			env.Options.NoUnset = false
		case "-x":
			env.Options.XTrace = true
		case "+x":
			env.Options.XTrace = false
		case "-f":
			env.Options.NoGlob = true
		case "+f":
			env.Options.NoGlob = false
		case "-o":
			env.Options.PipeFail = true
		}
	}
	return component.ExitSuccess
}

func runRead(args []string, env *shellenv.Env, stdin stream.InputStream, stderr stream.OutputStream) int {
	name := "REPLY"
	if len(args) > 0 {
		name = args[0]
	}
	sc := bufio.NewScanner(stdin)
	if !sc.Scan() {
		return component.ExitFailure
	}
	env.Set(name, sc.Text())
	return component.ExitSuccess
}

func runShift(args []string, env *shellenv.Env, stderr stream.OutputStream) int {
	n := 1
	if len(args) > 0 {
		if v, err := strconv.Atoi(args[0]); err == nil {
			n = v
		}
	}
	if !env.InFunction() {
		fmt.Fprintln(stderr, "shift: can only shift positional parameters inside a function")
		return component.ExitFailure
	}
	frame := env.CallStack[len(env.CallStack)-1]
	if n > len(frame.Positional) {
		n = len(frame.Positional)
	}
	frame.Positional = frame.Positional[n:]
	return component.ExitSuccess
}

func runLocal(args []string, env *shellenv.Env, stderr stream.OutputStream) int {
	if !env.InFunction() {
		fmt.Fprintln(stderr, "local: can only be used inside a function")
		return component.ExitFailure
	}
	for _, a := range args {
		name, value, _ := strings.Cut(a, "=")
		env.SetLocal(name, value)
	}
	return component.ExitSuccess
}

func runReturn(args []string, env *shellenv.Env, stderr stream.OutputStream) int {
	code := 0
	if len(args) > 0 {
		if v, err := strconv.Atoi(args[0]); err == nil {
			code = v
		}
	}
	if !env.InFunction() {
		fmt.Fprintln(stderr, "return: can only be used inside a function")
		return component.ExitFailure
	}
	frame := env.CallStack[len(env.CallStack)-1]
	frame.ReturnCode = &code
	return code
}
