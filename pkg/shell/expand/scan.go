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

package expand

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sandboxrt/core/pkg/shell/arith"
	"github.com/sandboxrt/core/pkg/shellenv"
)

// scanExpand walks a reconstructed word (quotes still present in the
// text, as produced by pkg/shell/parser) and produces a sequence of
// tokens with parameter, command, and arithmetic expansions resolved.
// insideDouble marks recursive calls made while already inside a
// double-quoted region, so a nested `$(...)`'s own quotes are handled
// correctly while the outer result still counts as quoted.
func scanExpand(word string, env *shellenv.Env, runner CommandRunner, insideDouble bool) ([]wtoken, error) {
	var tokens []wtoken
	runes := []rune(word)
	i := 0
	n := len(runes)

	emit := func(text string, quoted bool) {
		if text == "" {
			return
		}
		tokens = append(tokens, wtoken{text: text, quoted: quoted})
	}

	for i < n {
		r := runes[i]
		switch {
		case r == '\\' && !insideDouble:
			if i+1 < n {
				tokens = append(tokens, wtoken{text: string(runes[i+1]), quoted: true})
				i += 2
			} else {
				i++
			}

		case r == '\\' && insideDouble:
			// Inside double quotes backslash only escapes $, `, ", \, and
			// newline; otherwise it is literal (kept verbatim).
			if i+1 < n && strings.ContainsRune("$`\"\\\n", runes[i+1]) {
				tokens = append(tokens, wtoken{text: string(runes[i+1]), quoted: true})
				i += 2
			} else {
				tokens = append(tokens, wtoken{text: "\\", quoted: true})
				i++
			}

		case r == '\'' && !insideDouble:
			j := i + 1
			for j < n && runes[j] != '\'' {
				j++
			}
			tokens = append(tokens, wtoken{text: string(runes[i+1 : j]), quoted: true})
			if j < n {
				j++
			}
			i = j

		case r == '"':
			j, inner, err := matchDoubleQuoted(runes, i)
			if err != nil {
				return nil, err
			}
			innerTokens, err := scanExpand(string(inner), env, runner, true)
			if err != nil {
				return nil, err
			}
			var b strings.Builder
			for _, t := range innerTokens {
				b.WriteString(t.text)
			}
			tokens = append(tokens, wtoken{text: b.String(), quoted: true})
			i = j

		case r == '$' && i+1 < n && runes[i+1] == '(':
			if i+2 < n && runes[i+2] == '(' {
				end, expr, err := matchArith(runes, i)
				if err != nil {
					return nil, err
				}
				v, err := arith.Eval(string(expr), ArithEnvVars{Env: env})
				if err != nil {
					return nil, err
				}
				emit(strconv.FormatInt(v, 10), insideDouble)
				i = end
				continue
			}
			end, cmd, err := matchPair(runes, i+1, '(', ')')
			if err != nil {
				return nil, err
			}
			out, err := runCommand(runner, string(cmd))
			if err != nil {
				return nil, err
			}
			emit(StripTrailingNewline(out), insideDouble)
			i = end

		case r == '`':
			j := i + 1
			for j < n && runes[j] != '`' {
				if runes[j] == '\\' && j+1 < n {
					j++
				}
				j++
			}
			cmd := string(runes[i+1 : j])
			if j < n {
				j++
			}
			out, err := runCommand(runner, cmd)
			if err != nil {
				return nil, err
			}
			emit(StripTrailingNewline(out), insideDouble)
			i = j

		case r == '$' && i+1 < n && runes[i+1] == '{':
			end, text, err := expandBraceParam(runes, i, env, runner, insideDouble)
			if err != nil {
				return nil, err
			}
			emit(text, insideDouble)
			i = end

		case r == '$' && i+1 < n && isParamNameStart(runes[i+1]):
			j := i + 1
			for j < n && isParamNameCont(runes[j]) {
				j++
			}
			name := string(runes[i+1 : j])
			val, err := lookupSimpleParam(name, env)
			if err != nil {
				return nil, err
			}
			emit(val, insideDouble)
			i = j

		case r == '$' && i+1 < n && isSpecialParam(runes[i+1]):
			val := specialParam(runes[i+1], env)
			emit(val, insideDouble)
			i += 2

		default:
			j := i
			for j < n {
				rr := runes[j]
				if rr == '\\' || rr == '\'' || rr == '"' || rr == '`' {
					break
				}
				if rr == '$' && j+1 < n {
					break
				}
				j++
			}
			if j == i {
				j++
			}
			tokens = append(tokens, wtoken{text: string(runes[i:j]), quoted: insideDouble})
			i = j
		}
	}

	return tokens, nil
}

func runCommand(runner CommandRunner, cmd string) (string, error) {
	if runner == nil {
		return "", fmt.Errorf("command substitution unavailable in this context")
	}
	return runner.RunCapture(cmd)
}

// matchPair finds the matching close rune for an open rune at
// runes[start], honoring nested pairs and string literals inside, and
// returns the index just past the closer plus the inner text.
func matchPair(runes []rune, start int, open, close rune) (end int, inner []rune, err error) {
	depth := 0
	i := start
	contentStart := -1
	for i < len(runes) {
		switch runes[i] {
		case open:
			depth++
			if depth == 1 {
				contentStart = i + 1
			}
		case close:
			depth--
			if depth == 0 {
				return i + 1, runes[contentStart:i], nil
			}
		case '\\':
			i++
		}
		i++
	}
	return 0, nil, fmt.Errorf("unterminated %q", string(open))
}

// matchDoubleQuoted finds the unescaped closing `"` for an opening `"`
// at runes[start], skipping over any nested `$(...)`/backtick regions
// so quotes or parens inside them don't terminate the scan early.
func matchDoubleQuoted(runes []rune, start int) (end int, inner []rune, err error) {
	i := start + 1
	for i < len(runes) {
		switch {
		case runes[i] == '\\' && i+1 < len(runes):
			i += 2
			continue
		case runes[i] == '$' && i+1 < len(runes) && runes[i+1] == '(':
			depth := 0
			j := i + 1
			for j < len(runes) {
				if runes[j] == '(' {
					depth++
				} else if runes[j] == ')' {
					depth--
					if depth == 0 {
						j++
						break
					}
				}
				j++
			}
			i = j
			continue
		case runes[i] == '`':
			j := i + 1
			for j < len(runes) && runes[j] != '`' {
				if runes[j] == '\\' && j+1 < len(runes) {
					j++
				}
				j++
			}
			if j < len(runes) {
				j++
			}
			i = j
			continue
		case runes[i] == '"':
			return i + 1, runes[start+1 : i], nil
		}
		i++
	}
	return 0, nil, fmt.Errorf("unterminated %q", "\"")
}

// matchArith finds the end of a `$((...))` group starting at runes[i]
// (runes[i]=='$', runes[i+1]=='(', runes[i+2]=='('). The closing marker
// is a `)` at paren-depth 0 immediately followed by another `)`; a lone
// `)` at depth 0 just closes a parenthesized sub-expression.
func matchArith(runes []rune, i int) (end int, expr []rune, err error) {
	start := i + 3
	depth := 0
	j := start
	for j < len(runes) {
		switch runes[j] {
		case '(':
			depth++
		case ')':
			if depth == 0 {
				if j+1 < len(runes) && runes[j+1] == ')' {
					return j + 2, runes[start:j], nil
				}
				return 0, nil, fmt.Errorf("unterminated arithmetic expansion")
			}
			depth--
		}
		j++
	}
	return 0, nil, fmt.Errorf("unterminated arithmetic expansion")
}

func isParamNameStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isParamNameCont(r rune) bool {
	return isParamNameStart(r) || (r >= '0' && r <= '9')
}

func isSpecialParam(r rune) bool {
	return strings.ContainsRune("?$!#@*0123456789", r)
}

func specialParam(r rune, env *shellenv.Env) string {
	frame := currentFrame(env)
	switch r {
	case '?':
		return strconv.Itoa(env.LastCode)
	case '$':
		return strconv.Itoa(1)
	case '#':
		if frame != nil {
			return strconv.Itoa(len(frame.Positional))
		}
		return "0"
	case '@', '*':
		if frame != nil {
			return strings.Join(frame.Positional, " ")
		}
		return ""
	default:
		if frame != nil {
			idx := int(r - '0')
			if idx >= 1 && idx <= len(frame.Positional) {
				return frame.Positional[idx-1]
			}
		}
		return ""
	}
}

func currentFrame(env *shellenv.Env) *shellenv.FunctionFrame {
	if len(env.CallStack) == 0 {
		return nil
	}
	return env.CallStack[len(env.CallStack)-1]
}

func lookupSimpleParam(name string, env *shellenv.Env) (string, error) {
	v, ok := env.Get(name)
	if !ok && env.Options.NoUnset {
		return "", &UnsetVariableError{Name: name}
	}
	return v, nil
}

// expandBraceParam handles `${...}` forms: plain reference, `${#NAME}`
// length, and the `:-`/`:=`/`:?`/`:+` (and non-colon variants) default
// operators. Returns the index just past the closing brace.
func expandBraceParam(runes []rune, start int, env *shellenv.Env, runner CommandRunner, insideDouble bool) (end int, text string, err error) {
	depth := 0
	i := start + 1
	for j := i; j < len(runes); j++ {
		switch runes[j] {
		case '{':
			depth++
		case '}':
			if depth == 0 {
				body := string(runes[i:j])
				out, err := expandParamBody(body, env, runner, insideDouble)
				return j + 1, out, err
			}
			depth--
		}
	}
	return 0, "", fmt.Errorf("unterminated parameter expansion")
}

var paramOps = []string{":-", ":=", ":?", ":+", "-", "=", "?", "+"}

func expandParamBody(body string, env *shellenv.Env, runner CommandRunner, insideDouble bool) (string, error) {
	if strings.HasPrefix(body, "#") && len(body) > 1 {
		name := body[1:]
		v, _ := env.Get(name)
		return strconv.Itoa(len([]rune(v))), nil
	}

	name := body
	var op, word string
	for _, candidate := range paramOps {
		if idx := strings.Index(body, candidate); idx >= 0 {
			name = body[:idx]
			op = candidate
			word = body[idx+len(candidate):]
			break
		}
	}
	if !isValidParamName(name) {
		// Not a recognized operator split; treat literally as a bare name.
		name = body
		op = ""
	}

	val, isSet := env.Get(name)
	empty := !isSet || val == ""

	expandWord := func() (string, error) {
		toks, err := scanExpand(word, env, runner, insideDouble)
		if err != nil {
			return "", err
		}
		var b strings.Builder
		for _, t := range toks {
			b.WriteString(t.text)
		}
		return b.String(), nil
	}

	switch op {
	case "":
		if !isSet && env.Options.NoUnset {
			return "", &UnsetVariableError{Name: name}
		}
		return val, nil
	case "-":
		if !isSet {
			return expandWord()
		}
		return val, nil
	case ":-":
		if empty {
			return expandWord()
		}
		return val, nil
	case "=":
		if !isSet {
			w, err := expandWord()
			if err != nil {
				return "", err
			}
			env.Set(name, w)
			return w, nil
		}
		return val, nil
	case ":=":
		if empty {
			w, err := expandWord()
			if err != nil {
				return "", err
			}
			env.Set(name, w)
			return w, nil
		}
		return val, nil
	case "?":
		if !isSet {
			msg, _ := expandWord()
			return "", &ParamRequiredError{Name: name, Msg: msg}
		}
		return val, nil
	case ":?":
		if empty {
			msg, _ := expandWord()
			return "", &ParamRequiredError{Name: name, Msg: msg}
		}
		return val, nil
	case "+":
		if isSet {
			return expandWord()
		}
		return "", nil
	case ":+":
		if !empty {
			return expandWord()
		}
		return "", nil
	}
	return val, nil
}

func isValidParamName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 && !isParamNameStart(r) && !(r >= '0' && r <= '9') {
			return false
		}
		if i > 0 && !isParamNameCont(r) {
			return false
		}
	}
	return true
}
