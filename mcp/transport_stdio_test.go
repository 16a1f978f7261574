package mcp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoServerScript is a tiny shell pipeline that reads one JSON-RPC
// request line and echoes back a response with the same ID, standing in
// for a real MCP stdio server.
const echoServerScript = `while read -r line; do id=$(echo "$line" | sed -n 's/.*"id":\([0-9]*\).*/\1/p'); echo "{\"jsonrpc\":\"2.0\",\"id\":$id,\"result\":{\"ok\":true}}"; done`

func TestStdioTransport_ConnectAndCallRoundTrips(t *testing.T) {
	tr := newStdioTransport(ServerConfig{Command: "sh", Args: []string{"-c", echoServerScript}})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, tr.Connect(ctx))
	defer tr.Close()

	raw, err := tr.Call(ctx, "ping", map[string]any{"x": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(raw))
}

func TestStdioTransport_RejectsEmptyCommand(t *testing.T) {
	tr := newStdioTransport(ServerConfig{})
	err := tr.Connect(context.Background())
	assert.Error(t, err)
}

func TestStdioTransport_CallBeforeConnectErrors(t *testing.T) {
	tr := newStdioTransport(ServerConfig{Command: "sh"})
	_, err := tr.Call(context.Background(), "ping", nil)
	assert.Error(t, err)
}
