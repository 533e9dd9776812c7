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
	"os"
	"path/filepath"
	"strconv"

	"github.com/sandboxrt/core/pkg/component"
	"github.com/sandboxrt/core/pkg/stream"
)

// Test implements test, [, and [[: file, string, and numeric
// predicates, negation, grouping, and (for [[) the && / || / </>
// string comparators.
type Test struct{}

func (Test) ListCommands() []string { return []string{"test", "[", "[["} }

func (Test) Run(ctx context.Context, name string, argv []string, env component.Env, stdin stream.InputStream, stdout, stderr stream.OutputStream) (int, error) {
	args := argv
	if name == "[" || name == "[[" {
		if len(args) > 0 && (args[len(args)-1] == "]" || args[len(args)-1] == "]]") {
			args = args[:len(args)-1]
		}
	}
	if len(args) > 0 && (args[0] == "-h" || args[0] == "--help") {
		return usage(stdout, helpText(name))
	}
	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(env.Cwd, p)
	}
	ok, err := evalTest(args, resolve, name == "[[")
	if err != nil {
		return component.ExitUsage, nil
	}
	if ok {
		return component.ExitSuccess, nil
	}
	return component.ExitFailure, nil
}

// evalTest is a small recursive-descent evaluator: `!` negates, `(`/`)`
// group, and extended mode (`[[`) additionally accepts `&&`/`||`.
func evalTest(args []string, resolve func(string) string, extended bool) (bool, error) {
	p := &testParser{args: args, resolve: resolve, extended: extended}
	return p.parseOr()
}

type testParser struct {
	args     []string
	pos      int
	resolve  func(string) string
	extended bool
}

func (p *testParser) peek() string {
	if p.pos >= len(p.args) {
		return ""
	}
	return p.args[p.pos]
}

func (p *testParser) next() string {
	v := p.peek()
	p.pos++
	return v
}

func (p *testParser) parseOr() (bool, error) {
	v, err := p.parseAnd()
	if err != nil {
		return false, err
	}
	for p.extended && p.peek() == "||" {
		p.next()
		rhs, err := p.parseAnd()
		if err != nil {
			return false, err
		}
		v = v || rhs
	}
	return v, nil
}

func (p *testParser) parseAnd() (bool, error) {
	v, err := p.parseUnary()
	if err != nil {
		return false, err
	}
	for p.extended && p.peek() == "&&" {
		p.next()
		rhs, err := p.parseUnary()
		if err != nil {
			return false, err
		}
		v = v && rhs
	}
	return v, nil
}

func (p *testParser) parseUnary() (bool, error) {
	if p.peek() == "!" {
		p.next()
		v, err := p.parseUnary()
		return !v, err
	}
	if p.peek() == "(" {
		p.next()
		v, err := p.parseOr()
		if err != nil {
			return false, err
		}
		if p.peek() == ")" {
			p.next()
		}
		return v, nil
	}
	return p.parsePrimary()
}

var unaryFileOps = map[string]func(os.FileInfo) bool{
	"-e": func(os.FileInfo) bool { return true },
	"-f": func(fi os.FileInfo) bool { return !fi.IsDir() },
	"-d": func(fi os.FileInfo) bool { return fi.IsDir() },
	"-s": func(fi os.FileInfo) bool { return fi.Size() > 0 },
}

func (p *testParser) parsePrimary() (bool, error) {
	tok := p.next()
	switch tok {
	case "-z":
		return p.next() == "", nil
	case "-n":
		return p.next() != "", nil
	case "-e", "-f", "-d", "-s":
		path := p.resolve(p.next())
		fi, err := os.Stat(path)
		if err != nil {
			return false, nil
		}
		return unaryFileOps[tok](fi), nil
	case "-r", "-w", "-x":
		path := p.resolve(p.next())
		fi, err := os.Stat(path)
		if err != nil {
			return false, nil
		}
		mode := fi.Mode().Perm()
		switch tok {
		case "-r":
			return mode&0400 != 0, nil
		case "-w":
			return mode&0200 != 0, nil
		case "-x":
			return mode&0100 != 0, nil
		}
	case "-L":
		path := p.resolve(p.next())
		fi, err := os.Lstat(path)
		if err != nil {
			return false, nil
		}
		return fi.Mode()&os.ModeSymlink != 0, nil
	}

	// tok is a left operand; look ahead for a binary operator.
	left := tok
	op := p.next()
	switch op {
	case "=", "==":
		return left == p.next(), nil
	case "!=":
		return left != p.next(), nil
	case "<":
		return left < p.next(), nil
	case ">":
		return left > p.next(), nil
	case "-eq", "-ne", "-lt", "-le", "-gt", "-ge":
		li, _ := strconv.Atoi(left)
		ri, _ := strconv.Atoi(p.next())
		switch op {
		case "-eq":
			return li == ri, nil
		case "-ne":
			return li != ri, nil
		case "-lt":
			return li < ri, nil
		case "-le":
			return li <= ri, nil
		case "-gt":
			return li > ri, nil
		case "-ge":
			return li >= ri, nil
		}
	case "-nt", "-ot":
		li, errL := os.Stat(p.resolve(left))
		ri, errR := os.Stat(p.resolve(p.next()))
		if errL != nil || errR != nil {
			return false, nil
		}
		if op == "-nt" {
			return li.ModTime().After(ri.ModTime()), nil
		}
		return li.ModTime().Before(ri.ModTime()), nil
	case "":
		// Single operand: true iff non-empty string.
		return left != "", nil
	}
	return false, nil
}
