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
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/sandboxrt/core/pkg/component"
	"github.com/sandboxrt/core/pkg/stream"
)

// Text implements head, tail, grep, sort, uniq, wc, sed, cut, tr, find,
// diff.
type Text struct{}

func (Text) ListCommands() []string {
	return []string{"head", "tail", "grep", "sort", "uniq", "wc", "sed", "cut", "tr", "find", "diff"}
}

func (Text) Run(ctx context.Context, name string, argv []string, env component.Env, stdin stream.InputStream, stdout, stderr stream.OutputStream) (int, error) {
	if wantsHelp(argv) {
		return usage(stdout, helpText(name))
	}
	switch name {
	case "head":
		return runHeadTail(argv, stdin, stdout, stderr, true)
	case "tail":
		return runHeadTail(argv, stdin, stdout, stderr, false)
	case "grep":
		return runGrep(argv, stdin, stdout, stderr)
	case "sort":
		return runSort(argv, stdin, stdout)
	case "uniq":
		return runUniq(stdin, stdout)
	case "wc":
		return runWc(stdin, stdout)
	case "sed":
		return runSed(argv, stdin, stdout, stderr)
	case "cut":
		return runCut(argv, stdin, stdout, stderr)
	case "tr":
		return runTr(argv, stdin, stdout, stderr)
	case "find":
		return runFind(argv, env, stdout, stderr)
	case "diff":
		return runDiff(argv, env, stdout, stderr)
	}
	return component.ExitUnknown, nil
}

func readLines(r io.Reader) []string {
	var lines []string
	sc := bufScanner(r)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines
}

func runHeadTail(argv []string, stdin stream.InputStream, stdout, stderr stream.OutputStream, head bool) (int, error) {
	n := 10
	for i := 0; i < len(argv); i++ {
		if argv[i] == "-n" && i+1 < len(argv) {
			v, err := strconv.Atoi(argv[i+1])
			if err == nil {
				n = v
			}
			i++
		}
	}
	lines := readLines(stdin)
	var out []string
	if head {
		if n > len(lines) {
			n = len(lines)
		}
		out = lines[:n]
	} else {
		start := len(lines) - n
		if start < 0 {
			start = 0
		}
		out = lines[start:]
	}
	var b strings.Builder
	for _, l := range out {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return writeAll(stdout, b.String())
}

func runGrep(argv []string, stdin stream.InputStream, stdout, stderr stream.OutputStream) (int, error) {
	var invert, ignoreCase, lineNum, fixed bool
	var pattern string
	var rest []string
	for i := 0; i < len(argv); i++ {
		switch argv[i] {
		case "-v":
			invert = true
		case "-i":
			ignoreCase = true
		case "-n":
			lineNum = true
		case "-F":
			fixed = true
		default:
			rest = append(rest, argv[i])
		}
	}
	if len(rest) == 0 {
		fmt.Fprintln(stderr, "grep: usage: grep [-vinF] PATTERN")
		return component.ExitUsage, nil
	}
	pattern = rest[0]

	var matches func(line string) bool
	if fixed {
		needle := pattern
		matches = func(line string) bool {
			l, n := line, needle
			if ignoreCase {
				l, n = strings.ToLower(l), strings.ToLower(n)
			}
			return strings.Contains(l, n)
		}
	} else {
		expr := pattern
		if ignoreCase {
			expr = "(?i)" + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			fmt.Fprintf(stderr, "grep: %v\n", err)
			return component.ExitFailure, nil
		}
		matches = func(line string) bool { return re.MatchString(line) }
	}

	found := false
	var b strings.Builder
	lines := readLines(stdin)
	for i, line := range lines {
		m := matches(line)
		if invert {
			m = !m
		}
		if m {
			found = true
			if lineNum {
				fmt.Fprintf(&b, "%d:%s\n", i+1, line)
			} else {
				b.WriteString(line)
				b.WriteByte('\n')
			}
		}
	}
	code, err := writeAll(stdout, b.String())
	if err != nil {
		return code, err
	}
	if !found {
		return component.ExitFailure, nil
	}
	return component.ExitSuccess, nil
}

func runSort(argv []string, stdin stream.InputStream, stdout stream.OutputStream) (int, error) {
	reverse, numeric, unique := false, false, false
	for _, a := range argv {
		switch a {
		case "-r":
			reverse = true
		case "-n":
			numeric = true
		case "-u":
			unique = true
		}
	}
	lines := readLines(stdin)
	sort.SliceStable(lines, func(i, j int) bool {
		if numeric {
			ni, _ := strconv.ParseFloat(strings.TrimSpace(lines[i]), 64)
			nj, _ := strconv.ParseFloat(strings.TrimSpace(lines[j]), 64)
			if reverse {
				return ni > nj
			}
			return ni < nj
		}
		if reverse {
			return lines[i] > lines[j]
		}
		return lines[i] < lines[j]
	})
	if unique {
		lines = dedupAdjacent(lines)
	}
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return writeAll(stdout, b.String())
}

func dedupAdjacent(lines []string) []string {
	var out []string
	for i, l := range lines {
		if i == 0 || l != lines[i-1] {
			out = append(out, l)
		}
	}
	return out
}

func runUniq(stdin stream.InputStream, stdout stream.OutputStream) (int, error) {
	lines := dedupAdjacent(readLines(stdin))
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return writeAll(stdout, b.String())
}

func runWc(stdin stream.InputStream, stdout stream.OutputStream) (int, error) {
	data, err := io.ReadAll(stdin)
	if err != nil {
		return component.ExitFailure, err
	}
	lineCount := strings.Count(string(data), "\n")
	wordCount := len(strings.Fields(string(data)))
	byteCount := len(data)
	return writeAll(stdout, fmt.Sprintf("%8d %8d %8d\n", lineCount, wordCount, byteCount))
}

// runSed supports a minimal `s/pattern/replacement/flags` substitution,
// applied to every line. Other sed commands are not implemented.
func runSed(argv []string, stdin stream.InputStream, stdout, stderr stream.OutputStream) (int, error) {
	if len(argv) == 0 {
		fmt.Fprintln(stderr, "sed: usage: sed s/pattern/replacement/[g]")
		return component.ExitUsage, nil
	}
	expr := argv[len(argv)-1]
	if len(expr) < 4 || expr[0] != 's' {
		fmt.Fprintln(stderr, "sed: unsupported expression")
		return component.ExitUsage, nil
	}
	delim := expr[1]
	parts := strings.Split(expr[2:], string(delim))
	if len(parts) < 2 {
		fmt.Fprintln(stderr, "sed: malformed substitution")
		return component.ExitUsage, nil
	}
	pattern := parts[0]
	replacement := parts[1]
	global := len(parts) > 2 && strings.Contains(parts[2], "g")

	re, err := regexp.Compile(pattern)
	if err != nil {
		fmt.Fprintf(stderr, "sed: %v\n", err)
		return component.ExitFailure, nil
	}
	var b strings.Builder
	for _, line := range readLines(stdin) {
		if global {
			line = re.ReplaceAllString(line, replacement)
		} else {
			done := false
			line = re.ReplaceAllStringFunc(line, func(m string) string {
				if done {
					return m
				}
				done = true
				return re.ReplaceAllString(m, replacement)
			})
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return writeAll(stdout, b.String())
}

func runCut(argv []string, stdin stream.InputStream, stdout, stderr stream.OutputStream) (int, error) {
	delim := "\t"
	var fields []int
	for i := 0; i < len(argv); i++ {
		switch {
		case argv[i] == "-d" && i+1 < len(argv):
			delim = argv[i+1]
			i++
		case strings.HasPrefix(argv[i], "-f"):
			spec := strings.TrimPrefix(argv[i], "-f")
			if spec == "" && i+1 < len(argv) {
				i++
				spec = argv[i]
			}
			for _, part := range strings.Split(spec, ",") {
				if n, err := strconv.Atoi(part); err == nil {
					fields = append(fields, n)
				}
			}
		}
	}
	if len(fields) == 0 {
		fmt.Fprintln(stderr, "cut: usage: cut -d DELIM -f N[,N...]")
		return component.ExitUsage, nil
	}
	var b strings.Builder
	for _, line := range readLines(stdin) {
		parts := strings.Split(line, delim)
		var out []string
		for _, f := range fields {
			if f >= 1 && f <= len(parts) {
				out = append(out, parts[f-1])
			}
		}
		b.WriteString(strings.Join(out, delim))
		b.WriteByte('\n')
	}
	return writeAll(stdout, b.String())
}

func runTr(argv []string, stdin stream.InputStream, stdout, stderr stream.OutputStream) (int, error) {
	del := false
	var rest []string
	for _, a := range argv {
		if a == "-d" {
			del = true
			continue
		}
		rest = append(rest, a)
	}
	if len(rest) == 0 {
		fmt.Fprintln(stderr, "tr: usage: tr [-d] SET1 [SET2]")
		return component.ExitUsage, nil
	}
	from := rest[0]
	data, err := io.ReadAll(stdin)
	if err != nil {
		return component.ExitFailure, err
	}
	if del {
		result := strings.Map(func(r rune) rune {
			if strings.ContainsRune(from, r) {
				return -1
			}
			return r
		}, string(data))
		return writeAll(stdout, result)
	}
	to := ""
	if len(rest) > 1 {
		to = rest[1]
	}
	fromR, toR := []rune(from), []rune(to)
	result := strings.Map(func(r rune) rune {
		for i, fr := range fromR {
			if fr == r {
				if i < len(toR) {
					return toR[i]
				}
				if len(toR) > 0 {
					return toR[len(toR)-1]
				}
				return r
			}
		}
		return r
	}, string(data))
	return writeAll(stdout, result)
}

func runFind(argv []string, env component.Env, stdout, stderr stream.OutputStream) (int, error) {
	root := env.Cwd
	var namePattern string
	for i := 0; i < len(argv); i++ {
		switch argv[i] {
		case "-name":
			if i+1 < len(argv) {
				namePattern = argv[i+1]
				i++
			}
		default:
			if !strings.HasPrefix(argv[i], "-") {
				root = argv[i]
				if !filepath.IsAbs(root) {
					root = filepath.Join(env.Cwd, root)
				}
			}
		}
	}
	var b strings.Builder
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if namePattern != "" {
			ok, _ := filepath.Match(namePattern, filepath.Base(path))
			if !ok {
				return nil
			}
		}
		b.WriteString(path)
		b.WriteByte('\n')
		return nil
	})
	if err != nil {
		fmt.Fprintf(stderr, "find: %v\n", err)
		return component.ExitFailure, nil
	}
	return writeAll(stdout, b.String())
}

func runDiff(argv []string, env component.Env, stdout, stderr stream.OutputStream) (int, error) {
	if len(argv) != 2 {
		fmt.Fprintln(stderr, "diff: usage: diff FILE1 FILE2")
		return component.ExitUsage, nil
	}
	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(env.Cwd, p)
	}
	a, err := os.ReadFile(resolve(argv[0]))
	if err != nil {
		fmt.Fprintf(stderr, "diff: %v\n", err)
		return component.ExitFailure, nil
	}
	b, err := os.ReadFile(resolve(argv[1]))
	if err != nil {
		fmt.Fprintf(stderr, "diff: %v\n", err)
		return component.ExitFailure, nil
	}
	al := strings.Split(string(a), "\n")
	bl := strings.Split(string(b), "\n")
	var out strings.Builder
	same := true
	max := len(al)
	if len(bl) > max {
		max = len(bl)
	}
	for i := 0; i < max; i++ {
		var la, lb string
		if i < len(al) {
			la = al[i]
		}
		if i < len(bl) {
			lb = bl[i]
		}
		if la != lb {
			same = false
			if i < len(al) {
				fmt.Fprintf(&out, "< %s\n", la)
			}
			if i < len(bl) {
				fmt.Fprintf(&out, "> %s\n", lb)
			}
		}
	}
	writeAll(stdout, out.String())
	if same {
		return component.ExitSuccess, nil
	}
	return component.ExitFailure, nil
}
