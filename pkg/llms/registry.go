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

package llms

import (
	"context"
	"fmt"

	"github.com/sandboxrt/core/pkg/config"
	"github.com/sandboxrt/core/pkg/registry"
)

// Registry names Provider instances by configured name, built on the
// same generic registry.BaseRegistry used for other named component
// tables in this codebase.
type Registry struct {
	*registry.BaseRegistry[Provider]
}

func NewRegistry() *Registry {
	return &Registry{BaseRegistry: registry.NewBaseRegistry[Provider]()}
}

// BuildFromConfig constructs and registers every provider named in the
// config's llm.providers table.
func BuildFromConfig(ctx context.Context, cfg *config.Config) (*Registry, error) {
	r := NewRegistry()
	for _, p := range cfg.LLM.Providers {
		var provider Provider
		switch p.Kind {
		case "anthropic":
			provider = NewAnthropicProvider(p.APIKey, p.Model)
		case "openai":
			provider = NewOpenAIProvider(p.APIKey, p.Model)
		case "gemini":
			gp, err := NewGeminiProvider(ctx, p.APIKey, p.Model)
			if err != nil {
				return nil, err
			}
			provider = gp
		default:
			return nil, fmt.Errorf("llms: unknown provider kind %q for %q", p.Kind, p.Name)
		}
		if err := r.Register(p.Name, provider); err != nil {
			return nil, fmt.Errorf("llms: register %q: %w", p.Name, err)
		}
	}
	return r, nil
}
