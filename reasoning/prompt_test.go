package reasoning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mantlecore/agentcore/core"
	"github.com/mantlecore/agentcore/tool"
)

func TestContentFromMessage_UserMessageBecomesTextPart(t *testing.T) {
	msg := core.Message{Role: core.RoleUser, Content: "hello there"}
	content := contentFromMessage(msg)
	require.Len(t, content.Parts, 1)
	tp, ok := content.Parts[0].(core.TextPart)
	require.True(t, ok)
	assert.Equal(t, "hello there", tp.Text)
}

func TestContentFromMessage_AssistantWithToolCallsIncludesTextAndCalls(t *testing.T) {
	msg := core.Message{
		Role:    core.RoleAssistant,
		Content: "let me check",
		ToolCalls: []core.ToolCall{
			{ID: "c1", Name: "search", Arguments: `{"q":"go"}`},
		},
	}
	content := contentFromMessage(msg)
	require.Len(t, content.Parts, 2)
	_, isText := content.Parts[0].(core.TextPart)
	assert.True(t, isText)
	fc, isCall := content.Parts[1].(core.FunctionCallPart)
	require.True(t, isCall)
	assert.Equal(t, "search", fc.FunctionCall.Name)
	assert.Equal(t, "c1", fc.FunctionCall.ID)
}

func TestContentFromMessage_ToolRoleBecomesFunctionResponsePart(t *testing.T) {
	msg := core.Message{
		Role:       core.RoleTool,
		Content:    `{"echo":"go"}`,
		ToolCallID: "c1",
		Metadata:   map[string]any{"tool_name": "echo"},
	}
	content := contentFromMessage(msg)
	require.Len(t, content.Parts, 1)
	fr, ok := content.Parts[0].(core.FunctionResponsePart)
	require.True(t, ok)
	assert.Equal(t, "c1", fr.FunctionResponse.ID)
	assert.Equal(t, "echo", fr.FunctionResponse.Name)
	assert.Empty(t, fr.FunctionResponse.Error)
}

func TestContentFromMessage_ToolRoleCarriesErrorText(t *testing.T) {
	msg := core.Message{
		Role:       core.RoleTool,
		Content:    `{"error":"boom","kind":"tool_error"}`,
		ToolCallID: "c1",
		Metadata:   map[string]any{"tool_name": "echo", "error": "boom"},
	}
	content := contentFromMessage(msg)
	fr := content.Parts[0].(core.FunctionResponsePart)
	assert.Equal(t, "boom", fr.FunctionResponse.Error)
}

func TestFunctionCalls_ExtractsInOrder(t *testing.T) {
	content := core.Content{Parts: []core.Part{
		core.TextPart{Text: "thinking"},
		core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: "a", Name: "first"}},
		core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: "b", Name: "second"}},
	}}
	calls := functionCalls(content)
	require.Len(t, calls, 2)
	assert.Equal(t, "first", calls[0].Name)
	assert.Equal(t, "second", calls[1].Name)
}

func TestTextOf_ConcatenatesTextParts(t *testing.T) {
	content := core.Content{Parts: []core.Part{
		core.TextPart{Text: "foo"},
		core.FunctionCallPart{},
		core.TextPart{Text: "bar"},
	}}
	assert.Equal(t, "foobar", textOf(content))
}

func TestToolDefinitions_SortedByKindPriorityThenName(t *testing.T) {
	h := newTestHarness()
	eng := New(nil, h.registry, Config{})

	h.registry.Register(newEchoTool("zeta"), core.ToolKindLocal)
	h.registry.Register(newEchoTool("alpha"), core.ToolKindLocal)

	defs := eng.toolDefinitions("", h.registry)
	require.Len(t, defs, 2)
	assert.Equal(t, "alpha", defs[0].Function.Name)
	assert.Equal(t, "zeta", defs[1].Function.Name)
}

func TestToolDefinitions_AdvancedToolUseNarrowsToBM25TopK(t *testing.T) {
	h := newTestHarness()
	h.registry.Register(newEchoTool("weather_lookup"), core.ToolKindLocal)
	h.registry.Register(newEchoTool("stock_price"), core.ToolKindLocal)
	h.registry.Register(newEchoTool("calendar_invite"), core.ToolKindLocal)

	eng := New(nil, h.registry, Config{EnableAdvancedToolUse: true, AdvancedToolUseTopK: 1})
	defs := eng.toolDefinitions("weather", h.registry)
	require.Len(t, defs, 1)
	assert.Equal(t, "weather_lookup", defs[0].Function.Name)
}

func TestBuildRequest_CarriesSystemInstructionAndConvertedHistory(t *testing.T) {
	h := newTestHarness()
	eng := New(nil, h.registry, Config{SystemInstruction: "be terse"})

	history := []core.Message{
		{Role: core.RoleUser, Content: "hi"},
		{Role: core.RoleAssistant, Content: "hello"},
	}
	req := eng.buildRequest(history, "hi")
	assert.Equal(t, "be terse", req.Instructions)
	require.Len(t, req.Contents, 2)
	assert.Equal(t, "hi", textOf(req.Contents[0]))
}

func TestSortedToolNames_DeterministicOrder(t *testing.T) {
	descriptors := []core.ToolDescriptor{
		{Name: "b", Kind: core.ToolKindLocal},
		{Name: "a", Kind: core.ToolKindLocal},
	}
	assert.Equal(t, []string{"a", "b"}, sortedToolNames(descriptors))
}

var _ tool.Tool = newEchoTool("noop")
