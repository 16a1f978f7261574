package tool

import (
	"github.com/mantlecore/agentcore/core"
)

// searchTool is the builtin `search` tool exposed to the model when
// `advanced_tool_use` is enabled (spec §4.3): it lets the model page
// through a large catalog by query instead of receiving every descriptor
// up front.
type searchTool struct {
	registry *Registry
}

// NewSearchTool returns the builtin search tool bound to registry. The
// caller registers it into the same registry it searches.
func NewSearchTool(registry *Registry) Tool {
	return &searchTool{registry: registry}
}

func (t *searchTool) Name() string { return "search" }

func (t *searchTool) Description() string {
	return "Search the tool catalog by natural-language query and return the top matching tool names."
}

func (t *searchTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{"type": "string", "description": "Natural language description of the capability you need"},
			"k":     map[string]any{"type": "integer", "description": "Maximum number of tool names to return"},
		},
		"required": []string{"query"},
	}
}

func (t *searchTool) Call(_ *core.ToolContext, args map[string]any) (any, error) {
	query, _ := args["query"].(string)
	k, _ := args["k"].(float64)
	if k <= 0 {
		k = 5
	}
	return map[string]any{"tools": t.registry.Search(query, int(k))}, nil
}
