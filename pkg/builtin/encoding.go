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
	"crypto/md5"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sandboxrt/core/pkg/component"
	"github.com/sandboxrt/core/pkg/stream"
)

// Encoding implements base64, md5sum, sha256sum, xxd, yaml2json, json2yaml.
type Encoding struct{}

func (Encoding) ListCommands() []string {
	return []string{"base64", "md5sum", "sha256sum", "xxd", "yaml2json", "json2yaml"}
}

func (Encoding) Run(ctx context.Context, name string, argv []string, env component.Env, stdin stream.InputStream, stdout, stderr stream.OutputStream) (int, error) {
	if wantsHelp(argv) {
		return usage(stdout, helpText(name))
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return component.ExitFailure, err
	}
	switch name {
	case "base64":
		decode := false
		for _, a := range argv {
			if a == "-d" || a == "--decode" {
				decode = true
			}
		}
		if decode {
			out, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(data)))
			if err != nil {
				fmt.Fprintf(stderr, "base64: %v\n", err)
				return component.ExitFailure, nil
			}
			return writeAll(stdout, string(out))
		}
		return writeAll(stdout, base64.StdEncoding.EncodeToString(data)+"\n")
	case "md5sum":
		sum := md5.Sum(data)
		return writeAll(stdout, fmt.Sprintf("%s  -\n", hex.EncodeToString(sum[:])))
	case "sha256sum":
		sum := sha256.Sum256(data)
		return writeAll(stdout, fmt.Sprintf("%s  -\n", hex.EncodeToString(sum[:])))
	case "xxd":
		return writeAll(stdout, xxdDump(data))
	case "yaml2json":
		var doc interface{}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			fmt.Fprintf(stderr, "yaml2json: %v\n", err)
			return component.ExitFailure, nil
		}
		out, err := json.Marshal(doc)
		if err != nil {
			return component.ExitFailure, err
		}
		return writeAll(stdout, string(out)+"\n")
	case "json2yaml":
		var doc interface{}
		if err := json.Unmarshal(data, &doc); err != nil {
			fmt.Fprintf(stderr, "json2yaml: %v\n", err)
			return component.ExitFailure, nil
		}
		out, err := yaml.Marshal(doc)
		if err != nil {
			return component.ExitFailure, err
		}
		return writeAll(stdout, string(out))
	}
	return component.ExitUnknown, nil
}

func xxdDump(data []byte) string {
	var b strings.Builder
	for off := 0; off < len(data); off += 16 {
		end := off + 16
		if end > len(data) {
			end = len(data)
		}
		chunk := data[off:end]
		fmt.Fprintf(&b, "%08x: ", off)
		for i := 0; i < 16; i += 2 {
			if i < len(chunk) {
				fmt.Fprintf(&b, "%02x", chunk[i])
			} else {
				b.WriteString("  ")
			}
			if i+1 < len(chunk) {
				fmt.Fprintf(&b, "%02x", chunk[i+1])
			} else if i+1 < 16 {
				b.WriteString("  ")
			}
			b.WriteByte(' ')
		}
		b.WriteString(" ")
		for _, c := range chunk {
			if c >= 0x20 && c < 0x7f {
				b.WriteByte(c)
			} else {
				b.WriteByte('.')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
