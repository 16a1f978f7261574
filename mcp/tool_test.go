package mcp

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsTools_AdaptsDescriptorsToToolInterface(t *testing.T) {
	ft := &fakeTransport{responses: map[string]json.RawMessage{
		"tools/call": json.RawMessage(`{"content":[{"type":"text","text":"ok"}]}`),
	}}
	connector := newConnectorWithFake(ft)

	descriptors := []ToolDescriptor{
		{Name: "lookup", Description: "looks things up", InputSchema: json.RawMessage(`{"type":"object","properties":{"q":{"type":"string"}}}`)},
	}
	tools := AsTools(connector, descriptors)
	require.Len(t, tools, 1)

	wrapped := tools[0]
	assert.Equal(t, "lookup", wrapped.Name())
	assert.Equal(t, "looks things up", wrapped.Description())
	assert.Equal(t, "object", wrapped.Parameters()["type"])
}

func TestMCPTool_ParametersFallsBackOnMissingSchema(t *testing.T) {
	connector := newConnectorWithFake(&fakeTransport{})
	tools := AsTools(connector, []ToolDescriptor{{Name: "bare"}})

	params := tools[0].Parameters()
	assert.Equal(t, "object", params["type"])
}
