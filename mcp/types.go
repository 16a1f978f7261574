// Package mcp implements the MCPConnector tool-provider contract: a thin
// JSON-RPC client over three interchangeable transports (stdio subprocess,
// HTTP-stream, and SSE), each usable with no auth, a static bearer token,
// or an OAuth2 authorization-code flow. Call sites only ever see the
// Connector interface; transport and auth selection happens once at
// construction (spec §6 "Tool provider contract").
package mcp

import "encoding/json"

// TransportKind selects the wire transport a ServerConfig connects over.
type TransportKind string

const (
	TransportStdio      TransportKind = "stdio"
	TransportHTTPStream TransportKind = "http_stream"
	TransportSSE        TransportKind = "sse"
)

// AuthKind selects how a ServerConfig authenticates with a remote server.
// Stdio transports are always AuthNone; the other two kinds apply only to
// the network transports.
type AuthKind string

const (
	AuthNone   AuthKind = "none"
	AuthBearer AuthKind = "bearer"
	AuthOAuth2 AuthKind = "oauth2"
)

// ServerConfig describes one MCP server to connect to.
type ServerConfig struct {
	ID        string
	Transport TransportKind
	Auth      AuthKind

	// Stdio transport.
	Command string
	Args    []string
	Env     map[string]string

	// HTTP-stream / SSE transports.
	URL     string
	Headers map[string]string

	// AuthBearer.
	BearerToken string

	// AuthOAuth2: authorization-code flow with a local loopback redirect
	// listener bound to an unused port in [1024, 65535] (spec §6).
	OAuthClientID     string
	OAuthClientSecret string
	OAuthAuthURL      string
	OAuthTokenURL     string
	OAuthScopes       []string
}

// ToolDescriptor mirrors the subset of an MCP server's advertised tool
// shape the registry cares about: name, description, and a JSON-Schema
// parameter definition.
type ToolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// jsonrpcRequest is a JSON-RPC 2.0 request.
type jsonrpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// jsonrpcResponse is a JSON-RPC 2.0 response.
type jsonrpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonrpcError   `json:"error,omitempty"`
}

type jsonrpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type callToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}
