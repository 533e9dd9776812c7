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

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sandboxrt/core/pkg/agent/conversation"
	agentstream "github.com/sandboxrt/core/pkg/agent/stream"
	"github.com/sandboxrt/core/pkg/config"
	"github.com/sandboxrt/core/pkg/llms"
	"github.com/sandboxrt/core/pkg/toolrouter"
)

// AgentCmd groups the agent-core subcommands.
type AgentCmd struct {
	Run AgentRunCmd `cmd:"" help:"Run one prompt through the streaming agent core."`
}

// AgentRunCmd drives one user prompt through the streaming agent core,
// printing each event as it arrives.
type AgentRunCmd struct {
	Prompt   string `arg:"" help:"The user prompt to send to the agent."`
	Provider string `help:"Provider name from config.llm.providers to use." default:""`
}

func (c *AgentRunCmd) Run(cli *CLI) error {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return fmt.Errorf("sandboxsh: %w", err)
	}

	ctx := context.Background()
	registry, err := llms.BuildFromConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("sandboxsh: %w", err)
	}

	providerName := c.Provider
	if providerName == "" {
		providerName = cfg.LLM.Default
	}
	provider, ok := registry.Get(providerName)
	if !ok {
		return fmt.Errorf("sandboxsh: no provider named %q configured", providerName)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	k := newKernel("sandboxsh-agent", "0.1.0", cwd)

	localTools := newLocalTools()

	router := toolrouter.New()
	router.Sandbox = sandboxToolCaller{kernel: k}
	router.Local = localTools

	conv := conversation.New()
	machine := agentstream.New(provider, router, conv, cfg.Agent.MaxTurns)

	localDefs, err := localTools.Definitions(toolrouter.LocalPrefix)
	if err != nil {
		return fmt.Errorf("sandboxsh: %w", err)
	}
	tools := append(sandboxToolDefinitions(k), localDefs...)
	if err := machine.Start(ctx, tools, c.Prompt); err != nil {
		return err
	}

	return printEventsUntilDone(machine)
}

func printEventsUntilDone(m *agentstream.Machine) error {
	for {
		res := m.Poll()
		switch res.Status {
		case agentstream.PollDone:
			return nil
		case agentstream.PollPending:
			time.Sleep(5 * time.Millisecond)
			continue
		case agentstream.PollItem:
			e := res.Event
			switch e.Kind {
			case agentstream.EventStreamChunk:
				fmt.Print(e.Text)
			case agentstream.EventToolActivity:
				fmt.Printf("\n[tool %s: %s]\n", e.Tool, e.Status)
			case agentstream.EventToolResult:
				fmt.Printf("[tool %s result: %s]\n", e.Tool, e.Result)
			case agentstream.EventStreamComplete:
				fmt.Println()
			case agentstream.EventStreamError:
				return e.Err
			case agentstream.EventStreamCancelled:
				fmt.Println("\n[cancelled]")
				return nil
			}
		}
	}
}
