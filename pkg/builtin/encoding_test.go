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
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandboxrt/core/pkg/component"
	"github.com/sandboxrt/core/pkg/stream"
)

func runEncoding(t *testing.T, name string, argv []string, in string) (string, int) {
	t.Helper()
	var out bytes.Buffer
	stdin := stream.NewInputStream(io.NopCloser(bytes.NewReader([]byte(in))))
	stdout := stream.NewOutputStream(nopWriteCloserForTest{&out})
	stderr := stream.NewOutputStream(nopWriteCloserForTest{io.Discard})
	code, err := Encoding{}.Run(context.Background(), name, argv, component.Env{}, stdin, stdout, stderr)
	require.NoError(t, err)
	return out.String(), code
}

type nopWriteCloserForTest struct{ w io.Writer }

func (n nopWriteCloserForTest) Write(p []byte) (int, error) { return n.w.Write(p) }
func (n nopWriteCloserForTest) Close() error                { return nil }

func TestEncodingBase64RoundTrip(t *testing.T) {
	encoded, code := runEncoding(t, "base64", nil, "hello")
	require.Equal(t, component.ExitSuccess, code)
	assert.Equal(t, "aGVsbG8=\n", encoded)

	decoded, code := runEncoding(t, "base64", []string{"-d"}, encoded)
	require.Equal(t, component.ExitSuccess, code)
	assert.Equal(t, "hello", decoded)
}

func TestEncodingSha256sum(t *testing.T) {
	out, code := runEncoding(t, "sha256sum", nil, "")
	require.Equal(t, component.ExitSuccess, code)
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855  -\n", out)
}

func TestEncodingYamlJSONRoundTrip(t *testing.T) {
	json, code := runEncoding(t, "yaml2json", nil, "name: sandbox\ncount: 3\n")
	require.Equal(t, component.ExitSuccess, code)
	assert.JSONEq(t, `{"name":"sandbox","count":3}`, json)

	yaml, code := runEncoding(t, "json2yaml", nil, json)
	require.Equal(t, component.ExitSuccess, code)
	assert.Contains(t, yaml, "name: sandbox")
	assert.Contains(t, yaml, "count: 3")
}

func TestEncodingYamlInvalidInputFails(t *testing.T) {
	_, code := runEncoding(t, "yaml2json", nil, "[unterminated")
	assert.Equal(t, component.ExitFailure, code)
}
