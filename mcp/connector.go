package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/mantlecore/agentcore/core"
)

// Connector is the MCPConnector contract (spec §6): connect, list the
// server's advertised tools, call one by name with JSON arguments, and
// close the connection. A Connector wraps exactly one ServerConfig and its
// selected transport/auth pair.
type Connector struct {
	cfg       ServerConfig
	transport transport

	mu    sync.RWMutex
	tools []ToolDescriptor
}

// New constructs a Connector for cfg. The transport is selected from
// cfg.Transport but not dialed until Connect is called.
func New(cfg ServerConfig) *Connector {
	return &Connector{cfg: cfg, transport: newTransport(cfg)}
}

// Connect dials the transport and performs the MCP initialize handshake.
func (c *Connector) Connect(ctx context.Context) error {
	if err := c.transport.Connect(ctx); err != nil {
		return core.Wrap(core.ErrToolError, err)
	}

	initParams := map[string]any{
		"protocolVersion": "2024-11-05",
		"clientInfo":      map[string]any{"name": "agentcore", "version": "1.0"},
		"capabilities":    map[string]any{},
	}
	if _, err := c.transport.Call(ctx, "initialize", initParams); err != nil {
		c.transport.Close()
		return core.Wrap(core.ErrToolError, fmt.Errorf("initialize: %w", err))
	}

	return nil
}

// Close disconnects the transport.
func (c *Connector) Close() error {
	return c.transport.Close()
}

// ListTools fetches and caches the server's tool catalog.
func (c *Connector) ListTools(ctx context.Context) ([]ToolDescriptor, error) {
	raw, err := c.transport.Call(ctx, "tools/list", nil)
	if err != nil {
		return nil, core.Wrap(core.ErrToolError, err)
	}

	tools := parseToolsList(raw)

	c.mu.Lock()
	c.tools = tools
	c.mu.Unlock()

	return tools, nil
}

// parseToolsList extracts the tools array out of a tools/list result using
// gjson, tolerant of servers that wrap it differently than the strict
// listToolsResult shape (e.g. a bare array at the top level).
func parseToolsList(raw json.RawMessage) []ToolDescriptor {
	arr := gjson.GetBytes(raw, "tools")
	if !arr.Exists() {
		arr = gjson.ParseBytes(raw)
	}

	var tools []ToolDescriptor
	arr.ForEach(func(_, entry gjson.Result) bool {
		tools = append(tools, ToolDescriptor{
			Name:        entry.Get("name").String(),
			Description: entry.Get("description").String(),
			InputSchema: json.RawMessage(entry.Get("inputSchema").Raw),
		})
		return true
	})
	return tools
}

// Call invokes a remote tool by name. args is patched with a stable call
// envelope via sjson before being handed to the transport, so servers that
// expect a trailing "_meta" field alongside the declared arguments still
// receive well-formed JSON without the caller needing to know about it.
func (c *Connector) Call(ctx context.Context, name string, args map[string]any) (string, error) {
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return "", core.Wrap(core.ErrToolInvalidArgs, err)
	}
	argsJSON, err = sjson.SetBytes(argsJSON, "_meta.source", "agentcore")
	if err != nil {
		return "", core.Wrap(core.ErrInternal, err)
	}

	var patchedArgs map[string]any
	if err := json.Unmarshal(argsJSON, &patchedArgs); err != nil {
		return "", core.Wrap(core.ErrInternal, err)
	}

	raw, err := c.transport.Call(ctx, "tools/call", callToolParams{Name: name, Arguments: patchedArgs})
	if err != nil {
		return "", core.Wrap(core.ErrToolError, err)
	}

	return extractCallResultText(raw), nil
}

// extractCallResultText flattens a tools/call result's content blocks into
// a single string for the ReasoningEngine to feed back as a tool-result
// message.
func extractCallResultText(raw json.RawMessage) string {
	text := gjson.GetBytes(raw, "content.#.text")
	if !text.IsArray() {
		return gjson.GetBytes(raw, "content").String()
	}
	var out string
	for i, part := range text.Array() {
		if i > 0 {
			out += "\n"
		}
		out += part.String()
	}
	return out
}

// Descriptors returns the last tool catalog fetched by ListTools.
func (c *Connector) Descriptors() []ToolDescriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]ToolDescriptor(nil), c.tools...)
}
