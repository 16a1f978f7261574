package reasoning

import (
	"encoding/json"
	"sort"

	"github.com/mantlecore/agentcore/core"
	"github.com/mantlecore/agentcore/model"
	"github.com/mantlecore/agentcore/tool"
)

// buildRequest assembles a model.Request from the active message history,
// which already ends with the current user turn (or the most recent tool
// results), with a deterministic tool catalog (spec §4.8 "Prompt
// assembly"). history is ordered oldest-first and must already have been
// shaped by the ContextManager.
func (e *Engine) buildRequest(history []core.Message, query string) model.Request {
	contents := make([]core.Content, 0, len(history))
	for _, msg := range history {
		contents = append(contents, contentFromMessage(msg))
	}

	return model.Request{
		Instructions: e.cfg.SystemInstruction,
		Contents:     contents,
		Tools:        e.toolDefinitions(query, e.registry),
	}
}

// toolDefinitions returns the catalog injected into the request: the full
// registry sorted by (kind priority, name) unless advanced_tool_use is
// enabled, in which case it narrows to the BM25 top-k for query (spec
// §4.3, §4.8).
func (e *Engine) toolDefinitions(query string, registry *tool.Registry) []model.ToolDefinition {
	descriptors := registry.Descriptors() // already sorted by (kind priority, name)

	if e.cfg.EnableAdvancedToolUse {
		top := registry.Search(query, e.cfg.AdvancedToolUseTopK)
		want := make(map[string]bool, len(top))
		for _, name := range top {
			want[name] = true
		}
		narrowed := make([]core.ToolDescriptor, 0, len(top))
		for _, d := range descriptors {
			if want[d.Name] {
				narrowed = append(narrowed, d)
			}
		}
		descriptors = narrowed
	}

	defs := make([]model.ToolDefinition, 0, len(descriptors))
	for _, d := range descriptors {
		defs = append(defs, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.ParametersSchema,
			},
		})
	}
	return defs
}

// contentFromMessage maps a persisted core.Message onto the wire-format
// core.Content the model adapters consume. Assistant messages carrying
// ToolCalls become a text part (if any) plus one FunctionCallPart per
// call; tool-role messages become a single FunctionResponsePart keyed by
// ToolCallID.
func contentFromMessage(msg core.Message) core.Content {
	if msg.Role == core.RoleTool {
		var response any
		errText := ""
		if err := json.Unmarshal([]byte(msg.Content), &response); err != nil {
			response = msg.Content
		}
		if errVal, ok := msg.Metadata["error"].(string); ok {
			errText = errVal
		}
		return core.Content{
			Role: string(core.RoleTool),
			Parts: []core.Part{core.FunctionResponsePart{FunctionResponse: core.FunctionResponse{
				ID:       msg.ToolCallID,
				Name:     toolNameOf(msg),
				Response: response,
				Error:    errText,
			}}},
		}
	}

	parts := make([]core.Part, 0, 1+len(msg.ToolCalls))
	if msg.Content != "" {
		parts = append(parts, core.TextPart{Text: msg.Content})
	}
	for _, tc := range msg.ToolCalls {
		parts = append(parts, core.FunctionCallPart{FunctionCall: core.FunctionCall{
			ID:        tc.ID,
			Name:      tc.Name,
			Arguments: tc.Arguments,
		}})
	}
	return core.Content{Role: string(msg.Role), Parts: parts}
}

// toolNameOf recovers the originating tool name for a tool-role message
// from its metadata, set when the message was appended.
func toolNameOf(msg core.Message) string {
	if name, ok := msg.Metadata["tool_name"].(string); ok {
		return name
	}
	return ""
}

// functionCalls extracts the ordered FunctionCallPart values out of a
// model response's content, preserving the order the model emitted them
// in (spec §4.8: "Order of results in the next prompt follows the order
// the model requested them").
func functionCalls(content core.Content) []core.FunctionCall {
	var calls []core.FunctionCall
	for _, p := range content.Parts {
		if fc, ok := p.(core.FunctionCallPart); ok {
			calls = append(calls, fc.FunctionCall)
		}
	}
	return calls
}

// textOf concatenates the TextPart segments of content, the form a final
// answer takes once the model has stopped requesting tools.
func textOf(content core.Content) string {
	text := ""
	for _, p := range content.Parts {
		if tp, ok := p.(core.TextPart); ok {
			text += tp.Text
		}
	}
	return text
}

// sortedToolNames is used by tests to assert deterministic catalog order
// without depending on map iteration.
func sortedToolNames(descriptors []core.ToolDescriptor) []string {
	names := make([]string, len(descriptors))
	for i, d := range descriptors {
		names[i] = d.Name
	}
	sort.Strings(names)
	return names
}
