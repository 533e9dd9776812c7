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
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	sandboxlog "github.com/sandboxrt/core/pkg/logger"
)

// CLI is the top-level kong command tree.
type CLI struct {
	Sh    ShCmd    `cmd:"" help:"Run the sandbox shell."`
	MCP   MCPCmd   `cmd:"" help:"MCP server and client operations."`
	Agent AgentCmd `cmd:"" help:"Streaming agent core operations."`

	Config    string `short:"c" help:"Path to the sandbox config file." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFormat string `help:"Log format (text or json)." default:"text"`
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("sandboxsh"),
		kong.Description("POSIX-like shell, MCP server/client, and streaming agent core for the sandbox runtime."),
		kong.UsageOnError(),
	)

	level, err := sandboxlog.ParseLevel(cli.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	sandboxlog.Init(level, os.Stderr, cli.LogFormat)

	err = ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
