package mcp

import (
	"encoding/json"

	"github.com/mantlecore/agentcore/core"
	"github.com/mantlecore/agentcore/tool"
)

// mcpTool adapts one remote tool advertised by a Connector into the
// tool.Tool interface, so it can sit in the same tool.Registry as local,
// builtin, and sub_agent tools.
type mcpTool struct {
	connector *Connector
	descr     ToolDescriptor
}

// AsTools wraps every tool in descriptors as a tool.Tool bound to
// connector, ready for tool.Registry.Register under core.ToolKindMCP.
func AsTools(connector *Connector, descriptors []ToolDescriptor) []tool.Tool {
	tools := make([]tool.Tool, 0, len(descriptors))
	for _, d := range descriptors {
		tools = append(tools, &mcpTool{connector: connector, descr: d})
	}
	return tools
}

func (t *mcpTool) Name() string        { return t.descr.Name }
func (t *mcpTool) Description() string { return t.descr.Description }

func (t *mcpTool) Parameters() map[string]any {
	if len(t.descr.InputSchema) == 0 {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	var schema map[string]any
	if err := json.Unmarshal(t.descr.InputSchema, &schema); err != nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return schema
}

func (t *mcpTool) Call(toolCtx *core.ToolContext, args map[string]any) (any, error) {
	result, err := t.connector.Call(toolCtx.Context(), t.descr.Name, args)
	if err != nil {
		return nil, &tool.ToolError{Tool: t.descr.Name, Message: err.Error(), Code: string(core.ErrToolError)}
	}
	return result, nil
}
