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
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sandboxrt/core/pkg/component"
	"github.com/sandboxrt/core/pkg/httpclient"
	"github.com/sandboxrt/core/pkg/stream"
)

// Misc implements seq, sleep, date, curl, tsc.
type Misc struct {
	// HTTPClient is the retrying client `curl` issues requests through;
	// defaults to a stock httpclient.Client when nil.
	HTTPClient *httpclient.Client
}

func (Misc) ListCommands() []string { return []string{"seq", "sleep", "date", "curl", "tsc"} }

func (m Misc) Run(ctx context.Context, name string, argv []string, env component.Env, stdin stream.InputStream, stdout, stderr stream.OutputStream) (int, error) {
	if wantsHelp(argv) {
		return usage(stdout, helpText(name))
	}
	switch name {
	case "seq":
		return runSeq(argv, stdout, stderr)
	case "sleep":
		return runSleep(ctx, argv, stderr)
	case "date":
		return writeAll(stdout, nowString()+"\n")
	case "curl":
		return m.runCurl(ctx, argv, stdout, stderr)
	case "tsc":
		// Full static type-checking is out of scope for this core (spec
		// §4.5 treats TypeScript stripping as an external collaborator);
		// `tsc` here only prints a notice and does not read its arguments.
		return writeAll(stdout, "tsc: type-checking is not implemented; use tsx to execute instead\n")
	}
	return component.ExitUnknown, nil
}

func runSeq(argv []string, stdout, stderr stream.OutputStream) (int, error) {
	var nums []int
	for _, a := range argv {
		n, err := strconv.Atoi(a)
		if err != nil {
			fmt.Fprintf(stderr, "seq: invalid argument %q\n", a)
			return component.ExitUsage, nil
		}
		nums = append(nums, n)
	}
	var start, end, step = 1, 1, 1
	switch len(nums) {
	case 1:
		end = nums[0]
	case 2:
		start, end = nums[0], nums[1]
	case 3:
		start, end, step = nums[0], nums[1], nums[2]
	default:
		fmt.Fprintln(stderr, "seq: usage: seq [first [step]] last")
		return component.ExitUsage, nil
	}
	if step == 0 {
		step = 1
	}
	var b strings.Builder
	if step > 0 {
		for v := start; v <= end; v += step {
			fmt.Fprintf(&b, "%d\n", v)
		}
	} else {
		for v := start; v >= end; v += step {
			fmt.Fprintf(&b, "%d\n", v)
		}
	}
	return writeAll(stdout, b.String())
}

func runSleep(ctx context.Context, argv []string, stderr stream.OutputStream) (int, error) {
	if len(argv) == 0 {
		fmt.Fprintln(stderr, "sleep: usage: sleep SECONDS")
		return component.ExitUsage, nil
	}
	secs, err := strconv.ParseFloat(argv[0], 64)
	if err != nil {
		fmt.Fprintf(stderr, "sleep: %v\n", err)
		return component.ExitUsage, nil
	}
	select {
	case <-time.After(time.Duration(secs * float64(time.Second))):
		return component.ExitSuccess, nil
	case <-ctx.Done():
		return component.ExitFailure, nil
	}
}

func (m Misc) runCurl(ctx context.Context, argv []string, stdout, stderr stream.OutputStream) (int, error) {
	method := "GET"
	var body string
	var url string
	headers := http.Header{}
	for i := 0; i < len(argv); i++ {
		switch argv[i] {
		case "-X", "--request":
			if i+1 < len(argv) {
				method = argv[i+1]
				i++
			}
		case "-d", "--data":
			if i+1 < len(argv) {
				body = argv[i+1]
				method = "POST"
				i++
			}
		case "-H", "--header":
			if i+1 < len(argv) {
				if k, v, ok := strings.Cut(argv[i+1], ":"); ok {
					headers.Set(strings.TrimSpace(k), strings.TrimSpace(v))
				}
				i++
			}
		default:
			if !strings.HasPrefix(argv[i], "-") {
				url = argv[i]
			}
		}
	}
	if url == "" {
		fmt.Fprintln(stderr, "curl: usage: curl [-X METHOD] [-d DATA] [-H HEADER] URL")
		return component.ExitUsage, nil
	}

	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		fmt.Fprintf(stderr, "curl: %v\n", err)
		return component.ExitFailure, nil
	}
	req.Header = headers

	client := m.HTTPClient
	if client == nil {
		client = httpclient.New()
	}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Fprintf(stderr, "curl: %v\n", err)
		return component.ExitHTTPFailure, nil
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Fprintf(stderr, "curl: %v\n", err)
		return component.ExitFailure, nil
	}
	code, werr := writeAll(stdout, string(out))
	if werr != nil {
		return code, werr
	}
	if resp.StatusCode >= 400 {
		return component.ExitHTTPFailure, nil
	}
	return component.ExitSuccess, nil
}
