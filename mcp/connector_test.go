package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport is a scripted transport double for exercising Connector
// logic without a real subprocess or network round trip.
type fakeTransport struct {
	connected bool
	calls     []string
	responses map[string]json.RawMessage
	err       error
}

func (f *fakeTransport) Connect(ctx context.Context) error {
	f.connected = true
	return nil
}
func (f *fakeTransport) Close() error           { f.connected = false; return nil }
func (f *fakeTransport) Connected() bool        { return f.connected }
func (f *fakeTransport) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	f.calls = append(f.calls, method)
	if f.err != nil {
		return nil, f.err
	}
	return f.responses[method], nil
}

func newConnectorWithFake(ft *fakeTransport) *Connector {
	return &Connector{cfg: ServerConfig{ID: "fake"}, transport: ft}
}

func TestConnector_ConnectCallsInitialize(t *testing.T) {
	ft := &fakeTransport{responses: map[string]json.RawMessage{
		"initialize": json.RawMessage(`{"serverInfo":{"name":"test"}}`),
	}}
	c := newConnectorWithFake(ft)

	require.NoError(t, c.Connect(context.Background()))
	assert.Contains(t, ft.calls, "initialize")
}

func TestConnector_ListToolsParsesCatalog(t *testing.T) {
	ft := &fakeTransport{responses: map[string]json.RawMessage{
		"tools/list": json.RawMessage(`{"tools":[{"name":"lookup","description":"look things up","inputSchema":{"type":"object"}}]}`),
	}}
	c := newConnectorWithFake(ft)

	tools, err := c.ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "lookup", tools[0].Name)
	assert.Equal(t, "look things up", tools[0].Description)
	assert.Equal(t, tools, c.Descriptors())
}

func TestConnector_CallExtractsTextContent(t *testing.T) {
	ft := &fakeTransport{responses: map[string]json.RawMessage{
		"tools/call": json.RawMessage(`{"content":[{"type":"text","text":"first"},{"type":"text","text":"second"}]}`),
	}}
	c := newConnectorWithFake(ft)

	result, err := c.Call(context.Background(), "lookup", map[string]any{"query": "x"})
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond", result)
}

func TestConnector_CallPropagatesTransportError(t *testing.T) {
	ft := &fakeTransport{err: assert.AnError}
	c := newConnectorWithFake(ft)

	_, err := c.Call(context.Background(), "lookup", nil)
	assert.Error(t, err)
}
