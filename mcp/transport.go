package mcp

import (
	"context"
	"encoding/json"
)

// transport is the wire-level primitive each MCPConnector transport variant
// implements. All three transports (stdio, HTTP-stream, SSE) share this
// same request/response shape; only connection setup and auth differ.
type transport interface {
	Connect(ctx context.Context) error
	Close() error
	Call(ctx context.Context, method string, params any) (json.RawMessage, error)
	Connected() bool
}

func newTransport(cfg ServerConfig) transport {
	switch cfg.Transport {
	case TransportHTTPStream:
		return newHTTPStreamTransport(cfg)
	case TransportSSE:
		return newSSETransport(cfg)
	default:
		return newStdioTransport(cfg)
	}
}
