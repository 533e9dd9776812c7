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
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sandboxrt/core/pkg/tool"
)

// confirmArgs is the input shape for the local confirm tool.
type confirmArgs struct {
	Question string `json:"question" jsonschema:"required,description=The yes/no question to put to the user."`
}

// newLocalTools builds the client-side tool table the agent core's
// __local__ prefix dispatches into: tools with a UI side effect the
// sandbox can't satisfy on its own, here a synchronous terminal
// confirmation prompt the model can use to pause on a yes/no
// decision instead of guessing.
func newLocalTools() *tool.Registry {
	r := tool.NewRegistry()
	r.Add(tool.Local{
		Definition: tool.Definition{
			Name:        "confirm",
			Description: "Ask the user a yes/no question and wait for their answer.",
			InputSchema: tool.SchemaFor(confirmArgs{}),
		},
		Handler: confirmHandler,
	})
	return r
}

func confirmHandler(ctx context.Context, args map[string]interface{}) (string, error) {
	question, _ := args["question"].(string)
	if question == "" {
		question = "Proceed?"
	}
	fmt.Fprintf(os.Stderr, "\n[agent] %s [y/N] ", question)

	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return "denied", nil
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	if answer == "y" || answer == "yes" {
		return "approved", nil
	}
	return "denied", nil
}
