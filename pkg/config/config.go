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

// Package config loads the sandbox's single YAML configuration
// document through koanf, layering a file source over a default map
// and letting environment variables override both. It covers the
// single-process file+env case only (no consul/etcd/zookeeper
// backends; see DESIGN.md).
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix environment-variable overrides must carry.
const EnvPrefix = "SANDBOXRT_"

// DefaultPath is where the loader looks when no path is given and
// $SANDBOXRT_CONFIG is unset.
const DefaultPath = "./sandbox.yaml"

// LLMProvider names one configured completion backend.
type LLMProvider struct {
	Name   string `koanf:"name"`
	Kind   string `koanf:"kind"` // anthropic | openai | gemini
	APIKey string `koanf:"api_key"`
	Model  string `koanf:"model"`
}

// MCPServer names one registered MCP server the tool router can reach.
type MCPServer struct {
	Name    string `koanf:"name"`
	URL     string `koanf:"url"`
	Command string `koanf:"command"`
}

// Config is the sandbox's full configuration surface.
type Config struct {
	Builtins struct {
		Enabled []string `koanf:"enabled"`
	} `koanf:"builtins"`

	LLM struct {
		Default   string        `koanf:"default"`
		Providers []LLMProvider `koanf:"providers"`
	} `koanf:"llm"`

	MCP struct {
		Servers []MCPServer `koanf:"servers"`
	} `koanf:"mcp"`

	Shell struct {
		PipeCapacity      int `koanf:"pipe_capacity"`
		MaxLoopIterations int `koanf:"max_loop_iterations"`
		MaxSubshellDepth  int `koanf:"max_subshell_depth"`
	} `koanf:"shell"`

	Agent struct {
		MaxTurns int `koanf:"max_turns"`
	} `koanf:"agent"`

	Log struct {
		Level  string `koanf:"level"`
		Format string `koanf:"format"`
	} `koanf:"log"`
}

// defaults mirrors the zero-config behavior a fresh checkout should
// have: generous but bounded loop caps, a 64 KiB pipe capacity, a
// 25-turn agent cap, and text logging at info level.
func defaults() map[string]interface{} {
	return map[string]interface{}{
		"shell.pipe_capacity":       64 * 1024,
		"shell.max_loop_iterations": 10000,
		"shell.max_subshell_depth":  16,
		"agent.max_turns":           25,
		"log.level":                 "info",
		"log.format":                "text",
	}
}

// Load resolves path (falling back to $SANDBOXRT_CONFIG, then
// DefaultPath), layers file values over the defaults, then applies
// SANDBOXRT_-prefixed environment overrides on top. Each `_` after the
// prefix becomes a `.` in the key, so SANDBOXRT_LOG_LEVEL sets log.level;
// keys that themselves contain `_` (such as agent.max_turns) cannot be
// set from the environment.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	if path == "" {
		if p := os.Getenv("SANDBOXRT_CONFIG"); p != "" {
			path = p
		} else {
			path = DefaultPath
		}
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		trimmed := strings.TrimPrefix(s, EnvPrefix)
		return strings.ReplaceAll(strings.ToLower(trimmed), "_", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}
