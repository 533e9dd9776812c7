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
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sandboxrt/core/pkg/component"
	"github.com/sandboxrt/core/pkg/stream"
)

// JSON implements jq: a reduced filter supporting identity, field
// access, array indexing, iteration, `keys`, and `length`. There is no
// general-purpose jq library available, so this walks encoding/json's
// decoded interface{} tree directly.
type JSON struct{}

func (JSON) ListCommands() []string { return []string{"jq"} }

func (JSON) Run(ctx context.Context, name string, argv []string, env component.Env, stdin stream.InputStream, stdout, stderr stream.OutputStream) (int, error) {
	if wantsHelp(argv) {
		return usage(stdout, helpText(name))
	}
	raw := false
	var filter string
	for _, a := range argv {
		switch a {
		case "-r", "--raw-output":
			raw = true
		default:
			if filter == "" {
				filter = a
			}
		}
	}
	if filter == "" {
		filter = "."
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		return component.ExitFailure, err
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		fmt.Fprintf(stderr, "jq: %v\n", err)
		return component.ExitFailure, nil
	}

	results, err := applyJQFilter(filter, doc)
	if err != nil {
		fmt.Fprintf(stderr, "jq: %v\n", err)
		return component.ExitFailure, nil
	}

	var b strings.Builder
	for _, v := range results {
		if raw {
			if s, ok := v.(string); ok {
				b.WriteString(s)
				b.WriteByte('\n')
				continue
			}
		}
		enc, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			fmt.Fprintf(stderr, "jq: %v\n", err)
			return component.ExitFailure, nil
		}
		b.Write(enc)
		b.WriteByte('\n')
	}
	return writeAll(stdout, b.String())
}

// applyJQFilter walks a dotted path expression like `.a.b[0]` or `.[]`
// against a decoded JSON tree. `.[]` (iterate) can yield more than one
// result, hence the slice return.
func applyJQFilter(filter string, doc interface{}) ([]interface{}, error) {
	filter = strings.TrimSpace(filter)
	if filter == "." || filter == "" {
		return []interface{}{doc}, nil
	}
	if filter == "keys" {
		m, ok := doc.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("keys: not an object")
		}
		keys := make([]interface{}, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		return []interface{}{keys}, nil
	}
	if filter == "length" {
		switch t := doc.(type) {
		case map[string]interface{}:
			return []interface{}{len(t)}, nil
		case []interface{}:
			return []interface{}{len(t)}, nil
		case string:
			return []interface{}{len(t)}, nil
		default:
			return []interface{}{0}, nil
		}
	}
	if !strings.HasPrefix(filter, ".") {
		return nil, fmt.Errorf("unsupported filter %q", filter)
	}

	cur := []interface{}{doc}
	for _, seg := range splitJQPath(filter[1:]) {
		var next []interface{}
		for _, v := range cur {
			switch {
			case seg == "[]":
				arr, ok := v.([]interface{})
				if !ok {
					return nil, fmt.Errorf("cannot iterate over non-array")
				}
				next = append(next, arr...)
			case strings.HasSuffix(seg, "]") && strings.Contains(seg, "["):
				name, idx, err := splitIndexSegment(seg)
				if err != nil {
					return nil, err
				}
				if name != "" {
					m, ok := v.(map[string]interface{})
					if !ok {
						return nil, fmt.Errorf("field %q on non-object", name)
					}
					v = m[name]
				}
				arr, ok := v.([]interface{})
				if !ok {
					return nil, fmt.Errorf("index on non-array")
				}
				if idx < 0 || idx >= len(arr) {
					next = append(next, nil)
					continue
				}
				next = append(next, arr[idx])
			case seg == "":
				next = append(next, v)
			default:
				m, ok := v.(map[string]interface{})
				if !ok {
					next = append(next, nil)
					continue
				}
				next = append(next, m[seg])
			}
		}
		cur = next
	}
	return cur, nil
}

func splitJQPath(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ".")
}

func splitIndexSegment(seg string) (name string, idx int, err error) {
	open := strings.Index(seg, "[")
	close := strings.Index(seg, "]")
	if open < 0 || close < open {
		return "", 0, fmt.Errorf("malformed index %q", seg)
	}
	name = seg[:open]
	n, err := strconv.Atoi(seg[open+1 : close])
	if err != nil {
		return "", 0, fmt.Errorf("malformed index %q", seg)
	}
	return name, n, nil
}

// Xargs implements xargs: read whitespace-separated tokens from stdin
// and invoke a command once per token batch. There is no real host
// process to exec in this sandboxed runtime, so the target
// command is routed back through the same Dispatcher every other
// builtin is reached through, never the OS.
type Xargs struct {
	Dispatcher *component.Dispatcher
}

func (Xargs) ListCommands() []string { return []string{"xargs"} }

func (x Xargs) Run(ctx context.Context, name string, argv []string, env component.Env, stdin stream.InputStream, stdout, stderr stream.OutputStream) (int, error) {
	if wantsHelp(argv) {
		return usage(stdout, helpText(name))
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return component.ExitFailure, err
	}
	tokens := strings.Fields(string(data))
	if len(tokens) == 0 {
		return component.ExitSuccess, nil
	}
	if x.Dispatcher == nil {
		fmt.Fprintln(stderr, "xargs: no dispatcher configured")
		return component.ExitFailure, nil
	}

	cmdName := "echo"
	var fixedArgs []string
	if len(argv) > 0 {
		cmdName = argv[0]
		fixedArgs = argv[1:]
	}
	args := append(append([]string{}, fixedArgs...), tokens...)
	empty := stream.NewInputStream(io.NopCloser(strings.NewReader("")))
	return x.Dispatcher.Run(ctx, cmdName, args, env, empty, stdout, stderr)
}
