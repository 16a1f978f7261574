package reasoning

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mantlecore/agentcore/core"
	"github.com/mantlecore/agentcore/tool"
)

func TestEngine_DispatchTools_PreservesRequestOrder(t *testing.T) {
	h := newTestHarness()
	h.registry.Register(newEchoTool("first"), core.ToolKindLocal)
	h.registry.Register(newEchoTool("second"), core.ToolKindLocal)

	eng := New(nil, h.registry, Config{})
	rc := h.newRunContext(core.NewID())

	calls := []core.FunctionCall{
		{ID: "call-2", Name: "second", Arguments: `{"text":"b"}`},
		{ID: "call-1", Name: "first", Arguments: `{"text":"a"}`},
	}

	results := eng.dispatchTools(rc, calls)
	require.Len(t, results, 2)
	assert.Equal(t, "call-2", results[0].ToolCallID)
	assert.Equal(t, "call-1", results[1].ToolCallID)
}

func TestEngine_DispatchTools_UnknownToolYieldsToolNotFound(t *testing.T) {
	h := newTestHarness()
	eng := New(nil, h.registry, Config{})
	rc := h.newRunContext(core.NewID())

	results := eng.dispatchTools(rc, []core.FunctionCall{{ID: "c1", Name: "missing", Arguments: "{}"}})
	require.Len(t, results, 1)
	assert.Equal(t, string(core.ErrToolNotFound), results[0].Metadata["kind"])
}

func TestEngine_DispatchTools_InvalidArgumentsYieldToolInvalidArgs(t *testing.T) {
	h := newTestHarness()
	h.registry.Register(newEchoTool("echo"), core.ToolKindLocal)
	eng := New(nil, h.registry, Config{})
	rc := h.newRunContext(core.NewID())

	results := eng.dispatchTools(rc, []core.FunctionCall{{ID: "c1", Name: "echo", Arguments: "{}"}})
	require.Len(t, results, 1)
	assert.Equal(t, string(core.ErrToolInvalidArgs), results[0].Metadata["kind"])
}

func TestEngine_DispatchTools_PerCallTimeoutYieldsToolTimeout(t *testing.T) {
	h := newTestHarness()
	slow := tool.NewFunctionTool("slow", "never returns in time", map[string]any{"type": "object", "properties": map[string]any{}},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			<-tc.Context().Done()
			return nil, tc.Context().Err()
		})
	h.registry.Register(slow, core.ToolKindLocal)

	eng := New(nil, h.registry, Config{ToolCallTimeout: 10 * time.Millisecond})
	rc := h.newRunContext(core.NewID())

	results := eng.dispatchTools(rc, []core.FunctionCall{{ID: "c1", Name: "slow", Arguments: "{}"}})
	require.Len(t, results, 1)
	assert.Equal(t, string(core.ErrToolTimeout), results[0].Metadata["kind"])
}

func TestEngine_DispatchTools_PanicRecoveredAsToolError(t *testing.T) {
	h := newTestHarness()
	boom := tool.NewFunctionTool("boom", "panics", map[string]any{"type": "object", "properties": map[string]any{}},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			panic("kaboom")
		})
	h.registry.Register(boom, core.ToolKindLocal)

	eng := New(nil, h.registry, Config{})
	rc := h.newRunContext(core.NewID())

	results := eng.dispatchTools(rc, []core.FunctionCall{{ID: "c1", Name: "boom", Arguments: "{}"}})
	require.Len(t, results, 1)
	assert.NotEmpty(t, results[0].Metadata["error"])
}

func TestPreviewTokens_CutsOnNewlineBoundaryAndMarksEllipsis(t *testing.T) {
	// MaxTokens=2 -> an 8-byte cut; the newline at index 4 pulls the cut
	// back to "abcd" instead of splitting mid-line.
	got := previewTokens("abcd\nefghijklmnop", 2)
	assert.Equal(t, "abcd...", got)
}

func TestPreviewTokens_ReturnsFullTextWhenUnderLimit(t *testing.T) {
	got := previewTokens("short", 10)
	assert.Equal(t, "short", got)
}

func TestEngine_DispatchTools_OffloadsLargeResultToArtifactStore(t *testing.T) {
	h := newTestHarness()
	big := tool.NewFunctionTool("big", "returns a large blob", map[string]any{"type": "object", "properties": map[string]any{}},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			blob := make([]byte, 4000)
			for i := range blob {
				blob[i] = 'x'
			}
			return string(blob), nil
		})
	h.registry.Register(big, core.ToolKindLocal)

	eng := New(nil, h.registry, Config{ToolOffload: ToolOffloadConfig{Enabled: true, ThresholdTokens: 50, MaxPreviewTokens: 10}})
	rc := h.newRunContext(core.NewID())

	results := eng.dispatchTools(rc, []core.FunctionCall{{ID: "c1", Name: "big", Arguments: "{}"}})
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Content, "artifact_id")
	assert.Contains(t, results[0].Content, "read_artifact")
}
