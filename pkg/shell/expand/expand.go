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

// Package expand implements the shell word-expansion pipeline (spec
// §4.2): brace, tilde, parameter, command substitution, arithmetic,
// word splitting, pathname expansion (globbing), and quote removal,
// applied in that order to every word before a command runs.
package expand

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/sandboxrt/core/pkg/shell/arith"
	"github.com/sandboxrt/core/pkg/shellenv"
)

// CommandRunner executes a command line in a subshell and captures its
// stdout, implementing `$(cmd)` / backtick command substitution. The
// exec package implements this; expand cannot import exec (exec already
// imports expand), so the dependency is inverted through this interface.
type CommandRunner interface {
	RunCapture(cmd string) (string, error)
}

// Globber resolves pathname patterns against a filesystem. The default
// implementation globs the OS filesystem relative to env.Cwd.
type Globber interface {
	Glob(cwd, pattern string) ([]string, error)
}

// UnsetVariableError is raised by parameter expansion under `nounset`
// when a referenced variable has never been assigned.
type UnsetVariableError struct{ Name string }

func (e *UnsetVariableError) Error() string {
	return fmt.Sprintf("%s: unbound variable", e.Name)
}

// ParamRequiredError is raised by `${NAME:?msg}` when NAME is unset or
// empty.
type ParamRequiredError struct{ Name, Msg string }

func (e *ParamRequiredError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("%s: %s", e.Name, e.Msg)
	}
	return fmt.Sprintf("%s: parameter null or not set", e.Name)
}

// Words runs the full expansion pipeline over a slice of raw (as
// reconstructed by pkg/shell/parser) words, producing the final argv.
func Words(raw []string, env *shellenv.Env, runner CommandRunner, glob Globber) ([]string, error) {
	var out []string
	for _, w := range raw {
		for _, braced := range Brace(w) {
			fields, err := expandOne(braced, env, runner, glob)
			if err != nil {
				return nil, err
			}
			out = append(out, fields...)
		}
	}
	return out, nil
}

// wtoken distinguishes quoted (no split/glob) text from unquoted
// (splittable, globbable) text produced during a single word's
// expansion.
type wtoken struct {
	text   string
	quoted bool
}

func expandOne(word string, env *shellenv.Env, runner CommandRunner, glob Globber) ([]string, error) {
	word = applyTilde(word, env)

	tokens, err := scanExpand(word, env, runner, false)
	if err != nil {
		return nil, err
	}

	fields := splitFields(tokens, ifs(env))

	var out []string
	for i, f := range fields {
		// Only the unquoted portion of a field is glob-eligible; since
		// splitFields already merges quoted/unquoted runs per field we
		// conservatively glob when the word's unquoted tokens include a
		// meta character and the field text contains one.
		if !env.Options.NoGlob && glob != nil && fieldHasGlobMeta(fields, i, tokens) {
			matches, _ := glob.Glob(env.Cwd, f)
			sort.Strings(matches)
			if len(matches) > 0 {
				out = append(out, matches...)
				continue
			}
		}
		out = append(out, f)
	}
	return out, nil
}

// fieldHasGlobMeta is a best-effort check: glob only when the field
// contains *, ?, or [ and at least one unquoted token of the word
// carries such a character. Quote removal already stripped quoting
// markers from the field text, so a word mixing quoted and unquoted
// meta characters (`"*"?`) is globbed with all of them active.
func fieldHasGlobMeta(fields []string, i int, tokens []wtoken) bool {
	f := fields[i]
	if !strings.ContainsAny(f, "*?[") {
		return false
	}
	for _, t := range tokens {
		if !t.quoted && strings.ContainsAny(t.text, "*?[") {
			return true
		}
	}
	return false
}

func applyTilde(word string, env *shellenv.Env) string {
	if !strings.HasPrefix(word, "~") {
		return word
	}
	// Only a bare `~` or `~/...` at word start; `~user` is not resolved
	// since there is no host-provided user database in this runtime.
	rest := word[1:]
	if rest != "" && rest[0] != '/' {
		return word
	}
	home, _ := env.Get("HOME")
	return home + rest
}

func ifs(env *shellenv.Env) string {
	if v, ok := env.Get("IFS"); ok {
		return v
	}
	return " \t\n"
}

// splitFields performs word splitting: quoted tokens are copied
// atomically into the current field (even if empty, which still forces
// a field boundary); unquoted tokens split on runs of IFS characters.
func splitFields(tokens []wtoken, sepChars string) []string {
	var fields []string
	var cur strings.Builder
	started := false

	flush := func() {
		if started {
			fields = append(fields, cur.String())
			cur.Reset()
			started = false
		}
	}
	isSep := func(r rune) bool { return sepChars != "" && strings.ContainsRune(sepChars, r) }

	for _, tok := range tokens {
		if tok.quoted {
			cur.WriteString(tok.text)
			started = true
			continue
		}
		for _, r := range tok.text {
			if isSep(r) {
				flush()
				continue
			}
			cur.WriteRune(r)
			started = true
		}
	}
	flush()
	return fields
}

// DefaultGlobber globs the OS filesystem rooted at env.Cwd.
type DefaultGlobber struct{}

func (DefaultGlobber) Glob(cwd, pattern string) ([]string, error) {
	full := pattern
	if !filepath.IsAbs(pattern) {
		full = filepath.Join(cwd, pattern)
	}
	matches, err := filepath.Glob(full)
	if err != nil {
		return nil, err
	}
	if filepath.IsAbs(pattern) {
		return matches, nil
	}
	rel := make([]string, len(matches))
	for i, m := range matches {
		r, err := filepath.Rel(cwd, m)
		if err != nil {
			rel[i] = m
		} else {
			rel[i] = r
		}
	}
	return rel, nil
}

// StripTrailingNewline removes exactly one trailing "\n" from command
// substitution output, matching shell's $(...) trailing-newline trim.
func StripTrailingNewline(s string) string {
	return strings.TrimSuffix(s, "\n")
}

// ArithEnvVars adapts a *shellenv.Env to arith.Vars so `$((...))` can
// read and assign shell variables directly.
type ArithEnvVars struct{ Env *shellenv.Env }

func (a ArithEnvVars) Get(name string) int64 {
	v, ok := a.Env.Get(name)
	if !ok {
		return 0
	}
	n, _ := strconv.ParseInt(strings.TrimSpace(v), 0, 64)
	return n
}

func (a ArithEnvVars) Set(name string, v int64) {
	a.Env.Set(name, strconv.FormatInt(v, 10))
}

func (a ArithEnvVars) GetIndexed(name string, i int64) int64 {
	v, ok := a.Env.Get(fmt.Sprintf("%s[%d]", name, i))
	if !ok {
		return 0
	}
	n, _ := strconv.ParseInt(strings.TrimSpace(v), 0, 64)
	return n
}

func (a ArithEnvVars) SetIndexed(name string, i, v int64) {
	a.Env.Set(fmt.Sprintf("%s[%d]", name, i), strconv.FormatInt(v, 10))
}

var _ arith.Vars = ArithEnvVars{}
