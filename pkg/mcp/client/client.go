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

// Package client implements two MCP client transports: a local client
// that talks JSON-RPC over in-process HTTP, and a remote client
// speaking MCP 2025-11-25 Streamable HTTP with bearer auth and
// session-id echoing.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/sandboxrt/core/pkg/httpclient"
)

// ToolInfo is the list-tools() response shape.
type ToolInfo struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// CallResult is the call-tool() response shape.
type CallResult struct {
	Content []map[string]interface{} `json:"content"`
	IsError bool                      `json:"isError"`
}

// Client is the transport-agnostic interface both implementations
// satisfy.
type Client interface {
	ListTools() ([]ToolInfo, error)
	CallTool(name string, arguments map[string]interface{}) (CallResult, error)
}

// OAuthRequiredError surfaces a 401 from the remote transport so the
// outer environment can drive an authorization flow.
type OAuthRequiredError struct {
	URL string
}

func (e *OAuthRequiredError) Error() string {
	return fmt.Sprintf("mcp client: oauth required for %s", e.URL)
}

// TransportError wraps a non-2xx response with a body preview.
type TransportError struct {
	StatusCode int
	BodyPreview string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("mcp client: transport error %d: %s", e.StatusCode, e.BodyPreview)
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      string      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func nextRequestID() string { return uuid.NewString() }

// Local talks JSON-RPC to <base-url>/message, performing the
// initialize/initialized handshake on first use.
type Local struct {
	BaseURL string
	HTTP    *http.Client

	mu          sync.Mutex
	initialized bool
}

func NewLocal(baseURL string) *Local {
	return &Local{BaseURL: baseURL, HTTP: http.DefaultClient}
}

func (c *Local) ensureInitialized() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.initialized {
		return nil
	}
	if _, err := c.call("initialize", map[string]interface{}{"protocolVersion": "2025-11-25"}, nil); err != nil {
		return err
	}
	if _, err := c.call("initialized", map[string]interface{}{}, nil); err != nil {
		return err
	}
	c.initialized = true
	return nil
}

func (c *Local) call(method string, params interface{}, extraHeaders map[string]string) (json.RawMessage, error) {
	req := rpcRequest{JSONRPC: "2.0", ID: nextRequestID(), Method: method, Params: params}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequest(http.MethodPost, c.BaseURL+"/message", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range extraHeaders {
		httpReq.Header.Set(k, v)
	}

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("mcp client: %w", err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, &OAuthRequiredError{URL: c.BaseURL}
	}
	if resp.StatusCode >= 400 {
		preview := string(respBody)
		if len(preview) > 200 {
			preview = preview[:200]
		}
		return nil, &TransportError{StatusCode: resp.StatusCode, BodyPreview: preview}
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("mcp client: decode response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("mcp client: %d %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	return rpcResp.Result, nil
}

func (c *Local) ListTools() ([]ToolInfo, error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	raw, err := c.call("tools/list", map[string]interface{}{}, nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Tools []ToolInfo `json:"tools"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("mcp client: decode tools/list: %w", err)
	}
	return out.Tools, nil
}

func (c *Local) CallTool(name string, arguments map[string]interface{}) (CallResult, error) {
	if err := c.ensureInitialized(); err != nil {
		return CallResult{}, err
	}
	raw, err := c.call("tools/call", map[string]interface{}{"name": name, "arguments": arguments}, nil)
	if err != nil {
		return CallResult{}, err
	}
	var result CallResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return CallResult{}, fmt.Errorf("mcp client: decode tools/call: %w", err)
	}
	if result.IsError {
		return result, fmt.Errorf("mcp client: tool %s: %s", name, joinText(result.Content))
	}
	return result, nil
}

func joinText(content []map[string]interface{}) string {
	var out string
	for i, c := range content {
		if i > 0 {
			out += " "
		}
		if t, ok := c["text"].(string); ok {
			out += t
		}
	}
	return out
}

// Remote speaks MCP 2025-11-25 Streamable HTTP: the negotiated Accept
// header, protocol version header, optional bearer auth, and a
// server-issued session id echoed on every subsequent request. It
// routes requests through the retrying httpclient.Client rather than
// a bare *http.Client, consistent with every other outbound HTTP call
// this module makes.
type Remote struct {
	BaseURL     string
	BearerToken string
	HTTPClient  *httpclient.Client

	sessionID atomic.Value // string
}

func NewRemote(baseURL, bearerToken string) *Remote {
	return &Remote{BaseURL: baseURL, BearerToken: bearerToken, HTTPClient: httpclient.New()}
}

func (c *Remote) do(method string, params interface{}) (json.RawMessage, error) {
	req := rpcRequest{JSONRPC: "2.0", ID: nextRequestID(), Method: method, Params: params}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequest(http.MethodPost, c.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json, text/event-stream")
	httpReq.Header.Set("MCP-Protocol-Version", "2025-11-25")
	if c.BearerToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	if sid, ok := c.sessionID.Load().(string); ok && sid != "" {
		httpReq.Header.Set("MCP-Session-Id", sid)
	}

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("mcp client: %w", err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, &OAuthRequiredError{URL: c.BaseURL}
	}
	if resp.StatusCode >= 400 {
		preview := string(respBody)
		if len(preview) > 200 {
			preview = preview[:200]
		}
		return nil, &TransportError{StatusCode: resp.StatusCode, BodyPreview: preview}
	}
	if sid := resp.Header.Get("MCP-Session-Id"); sid != "" {
		c.sessionID.Store(sid)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("mcp client: decode response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("mcp client: %d %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	return rpcResp.Result, nil
}

func (c *Remote) ListTools() ([]ToolInfo, error) {
	raw, err := c.do("tools/list", map[string]interface{}{})
	if err != nil {
		return nil, err
	}
	var out struct {
		Tools []ToolInfo `json:"tools"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("mcp client: decode tools/list: %w", err)
	}
	return out.Tools, nil
}

func (c *Remote) CallTool(name string, arguments map[string]interface{}) (CallResult, error) {
	raw, err := c.do("tools/call", map[string]interface{}{"name": name, "arguments": arguments})
	if err != nil {
		return CallResult{}, err
	}
	var result CallResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return CallResult{}, fmt.Errorf("mcp client: decode tools/call: %w", err)
	}
	if result.IsError {
		return result, fmt.Errorf("mcp client: tool %s: %s", name, joinText(result.Content))
	}
	return result, nil
}
