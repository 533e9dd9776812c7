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

// Package jshost embeds a JavaScript engine instance plus a module
// loader: host globals (console, process, fs.promises, fetch),
// specifier resolution (URL/relative/bare), .cjs wrapping, TypeScript
// transpilation via an external collaborator, and JSON module
// imports. Built on dop251/goja, the ecosystem's standard embeddable
// engine (see DESIGN.md).
package jshost

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
	"sync"

	"github.com/dop251/goja"
)

// FS is the host-provided filesystem facade fs.promises delegates to.
// Persistent storage is out of this package's scope; implementations
// back this with whatever storage (OPFS, in-memory map, host bridge)
// the embedding application chooses.
type FS interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte) error
	Readdir(path string) ([]string, error)
}

// Bridge performs the outer fetch() the sandboxed script cannot do
// directly; the host runtime owns actual network access.
type Bridge interface {
	Fetch(url, method string, headers map[string]string, body string) (status int, respHeaders map[string]string, respBody string, err error)
}

// Transpiler strips TypeScript syntax down to plain JavaScript. It is
// an external collaborator; this package only calls through the
// interface and carries no TypeScript parser of its own.
type Transpiler interface {
	Transpile(source, filename string) (string, error)
}

// LogEntry is one console.* call captured into the in-process buffer.
type LogEntry struct {
	Level string
	Args  []string
}

// Host owns one goja.Runtime plus its module cache and globals.
type Host struct {
	vm         *goja.Runtime
	fs         FS
	bridge     Bridge
	transpiler Transpiler

	mu      sync.Mutex
	logs    []LogEntry
	modules map[string]goja.Value
}

// Option configures a Host at construction time.
type Option func(*Host)

func WithFS(fs FS) Option                { return func(h *Host) { h.fs = fs } }
func WithBridge(b Bridge) Option         { return func(h *Host) { h.bridge = b } }
func WithTranspiler(t Transpiler) Option { return func(h *Host) { h.transpiler = t } }

// New creates a Host with its globals installed.
func New(opts ...Option) *Host {
	h := &Host{
		vm:      goja.New(),
		modules: make(map[string]goja.Value),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.installGlobals()
	return h
}

// Runtime exposes the underlying goja VM for callers that need to run
// top-level scripts directly (the `tsx` builtin, for instance).
func (h *Host) Runtime() *goja.Runtime { return h.vm }

// DrainLogs returns and clears the console capture buffer. Draining is
// synchronous so ordering relative to stream-chunk emission stays
// deterministic.
func (h *Host) DrainLogs() []LogEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := h.logs
	h.logs = nil
	return out
}

// ClearLogs discards the buffer without returning it.
func (h *Host) ClearLogs() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.logs = nil
}

func (h *Host) appendLog(level string, args []goja.Value) {
	h.mu.Lock()
	defer h.mu.Unlock()
	strs := make([]string, len(args))
	for i, a := range args {
		strs[i] = a.String()
	}
	h.logs = append(h.logs, LogEntry{Level: level, Args: strs})
}

func (h *Host) installGlobals() {
	console := h.vm.NewObject()
	for _, level := range []string{"log", "error", "warn", "info"} {
		lvl := level
		console.Set(lvl, func(call goja.FunctionCall) goja.Value {
			h.appendLog(lvl, call.Arguments)
			return goja.Undefined()
		})
	}
	h.vm.Set("console", console)

	process := h.vm.NewObject()
	process.Set("argv", []string{"node", "sandbox"})
	process.Set("env", map[string]string{})
	process.Set("platform", "sandbox")
	process.Set("version", "v0.0.0-sandbox")
	h.vm.Set("process", process)

	h.vm.Set("path", h.buildPathModule())
	h.vm.Set("fs", h.buildFSModule())
	h.vm.Set("fetch", h.buildFetch())
}

func (h *Host) buildPathModule() *goja.Object {
	p := h.vm.NewObject()
	p.Set("join", func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, a := range call.Arguments {
			parts[i] = a.String()
		}
		return h.vm.ToValue(path.Join(parts...))
	})
	p.Set("dirname", func(call goja.FunctionCall) goja.Value {
		return h.vm.ToValue(path.Dir(call.Argument(0).String()))
	})
	p.Set("basename", func(call goja.FunctionCall) goja.Value {
		return h.vm.ToValue(path.Base(call.Argument(0).String()))
	})
	p.Set("extname", func(call goja.FunctionCall) goja.Value {
		return h.vm.ToValue(path.Ext(call.Argument(0).String()))
	})
	return p
}

func (h *Host) buildFSModule() *goja.Object {
	fsObj := h.vm.NewObject()
	promises := h.vm.NewObject()

	promises.Set("readFile", func(call goja.FunctionCall) goja.Value {
		return h.vm.ToValue(h.resolvePromise(func() (interface{}, error) {
			if h.fs == nil {
				return nil, fmt.Errorf("fs: no filesystem bound")
			}
			data, err := h.fs.ReadFile(call.Argument(0).String())
			if err != nil {
				return nil, err
			}
			return string(data), nil
		}))
	})
	promises.Set("writeFile", func(call goja.FunctionCall) goja.Value {
		return h.vm.ToValue(h.resolvePromise(func() (interface{}, error) {
			if h.fs == nil {
				return nil, fmt.Errorf("fs: no filesystem bound")
			}
			err := h.fs.WriteFile(call.Argument(0).String(), []byte(call.Argument(1).String()))
			return nil, err
		}))
	})
	promises.Set("readdir", func(call goja.FunctionCall) goja.Value {
		return h.vm.ToValue(h.resolvePromise(func() (interface{}, error) {
			if h.fs == nil {
				return nil, fmt.Errorf("fs: no filesystem bound")
			}
			return h.fs.Readdir(call.Argument(0).String())
		}))
	})
	fsObj.Set("promises", promises)
	return fsObj
}

// resolvePromise wraps a synchronous host call as a goja Promise; the
// sandbox's bridges are synchronous in-process calls, not real async
// I/O, so there is no event loop to integrate with.
func (h *Host) resolvePromise(fn func() (interface{}, error)) *goja.Promise {
	p, resolve, reject := h.vm.NewPromise()
	v, err := fn()
	if err != nil {
		reject(h.vm.ToValue(err.Error()))
	} else {
		resolve(h.vm.ToValue(v))
	}
	return p
}

func (h *Host) buildFetch() func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		reqURL := call.Argument(0).String()
		method := "GET"
		headers := map[string]string{}
		var body string
		if len(call.Arguments) > 1 && !goja.IsUndefined(call.Argument(1)) {
			opts := call.Argument(1).ToObject(h.vm)
			if m := opts.Get("method"); m != nil && !goja.IsUndefined(m) {
				method = m.String()
			}
			if b := opts.Get("body"); b != nil && !goja.IsUndefined(b) {
				body = b.String()
			}
			if hdrs := opts.Get("headers"); hdrs != nil && !goja.IsUndefined(hdrs) {
				hobj := hdrs.ToObject(h.vm)
				for _, k := range hobj.Keys() {
					headers[k] = hobj.Get(k).String()
				}
			}
		}
		return h.vm.ToValue(h.resolvePromise(func() (interface{}, error) {
			if h.bridge == nil {
				return nil, fmt.Errorf("fetch: no bridge bound")
			}
			status, _, respBody, err := h.bridge.Fetch(reqURL, method, headers, body)
			if err != nil {
				return nil, err
			}
			resp := h.vm.NewObject()
			resp.Set("ok", status >= 200 && status < 300)
			resp.Set("status", status)
			resp.Set("text", func(goja.FunctionCall) goja.Value {
				return h.vm.ToValue(h.resolvePromise(func() (interface{}, error) { return respBody, nil }))
			})
			resp.Set("json", func(goja.FunctionCall) goja.Value {
				return h.vm.ToValue(h.resolvePromise(func() (interface{}, error) {
					var v interface{}
					if err := h.vm.ExportTo(h.vm.ToValue(respBody), &v); err != nil {
						return nil, err
					}
					return v, nil
				}))
			})
			return resp, nil
		}))
	}
}

// ResolveSpecifier handles the three import specifier forms: a URL
// specifier is used as-is, a relative specifier (./ or ../) resolves
// against the importing module's own specifier, and a bare name is
// rewritten to a CDN URL.
func ResolveSpecifier(specifier, importerSpecifier string) string {
	if u, err := url.Parse(specifier); err == nil && u.IsAbs() {
		return specifier
	}
	if strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../") {
		base := path.Dir(importerSpecifier)
		return path.Clean(path.Join(base, specifier))
	}
	return "https://esm.sh/" + specifier
}

var importExportLine = regexp.MustCompile(`(?m)^\s*(import|export)\b.*$`)

// LoadModule fetches, wraps, transpiles, and evaluates a module by
// specifier, returning its CommonJS-style module.exports value.
// Every call refetches the source, but evaluation is cached per
// specifier: a specifier that was already evaluated returns its first
// module.exports without running the new source.
func (h *Host) LoadModule(specifier string) (goja.Value, error) {
	source, err := h.fetchSource(specifier)
	if err != nil {
		return nil, err
	}

	if strings.HasSuffix(specifier, ".json") {
		return h.evalCommonJS(specifier, "module.exports = "+source+";")
	}

	if strings.HasSuffix(specifier, ".ts") || strings.HasSuffix(specifier, ".tsx") {
		if h.transpiler == nil {
			return nil, fmt.Errorf("jshost: no transpiler bound for %s", specifier)
		}
		source, err = h.transpiler.Transpile(source, specifier)
		if err != nil {
			return nil, fmt.Errorf("jshost: transpile %s: %w", specifier, err)
		}
	}

	body := source
	if !strings.HasSuffix(specifier, ".cjs") {
		// ESM sources are reduced to CommonJS by stripping import/export
		// statements; goja has no native ES module loader, so this
		// library treats every module as CJS after the syntax is erased.
		// Every import/export line is removed, `export default` included,
		// so only values assigned to module.exports reach the importer.
		body = importExportLine.ReplaceAllString(body, "")
	}
	return h.evalCommonJS(specifier, body)
}

func (h *Host) fetchSource(specifier string) (string, error) {
	if u, err := url.Parse(specifier); err == nil && u.IsAbs() {
		if h.bridge == nil {
			return "", fmt.Errorf("jshost: no bridge bound to fetch %s", specifier)
		}
		status, _, body, err := h.bridge.Fetch(specifier, "GET", nil, "")
		if err != nil {
			return "", err
		}
		if status >= 400 {
			return "", fmt.Errorf("jshost: fetch %s: status %d", specifier, status)
		}
		return body, nil
	}
	if h.fs == nil {
		return "", fmt.Errorf("jshost: no filesystem bound to read %s", specifier)
	}
	data, err := h.fs.ReadFile(specifier)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (h *Host) evalCommonJS(specifier, body string) (goja.Value, error) {
	if cached, ok := h.modules[specifier]; ok {
		return cached, nil
	}
	wrapper := fmt.Sprintf(
		"(function(exports, module, __filename, __dirname) {\n%s\nreturn module.exports;\n})",
		body,
	)
	fn, err := h.vm.RunString(wrapper)
	if err != nil {
		return nil, fmt.Errorf("jshost: compile %s: %w", specifier, err)
	}
	call, ok := goja.AssertFunction(fn)
	if !ok {
		return nil, fmt.Errorf("jshost: %s did not compile to a function", specifier)
	}
	moduleObj := h.vm.NewObject()
	moduleObj.Set("exports", h.vm.NewObject())
	result, err := call(goja.Undefined(), moduleObj.Get("exports"), moduleObj, h.vm.ToValue(specifier), h.vm.ToValue(path.Dir(specifier)))
	if err != nil {
		return nil, fmt.Errorf("jshost: evaluate %s: %w", specifier, err)
	}
	h.modules[specifier] = result
	return result, nil
}

// RunScript evaluates a top-level script (not a module) directly
// against the host's runtime, for direct `tsx file.ts` execution.
func (h *Host) RunScript(source, filename string) (goja.Value, error) {
	if strings.HasSuffix(filename, ".ts") || strings.HasSuffix(filename, ".tsx") {
		if h.transpiler == nil {
			return nil, fmt.Errorf("jshost: no transpiler bound for %s", filename)
		}
		var err error
		source, err = h.transpiler.Transpile(source, filename)
		if err != nil {
			return nil, fmt.Errorf("jshost: transpile %s: %w", filename, err)
		}
	}
	return h.vm.RunString(source)
}
