package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mantlecore/agentcore/core"
)

func drain(t *testing.T, respCh <-chan Response, errCh <-chan error) ([]Response, error) {
	t.Helper()
	var responses []Response
	for {
		select {
		case r, ok := <-respCh:
			if !ok {
				respCh = nil
			} else {
				responses = append(responses, r)
			}
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
			} else if err != nil {
				return responses, err
			}
		}
		if respCh == nil && errCh == nil {
			return responses, nil
		}
	}
}

func TestMockModel_GenerateEchoesCannedResponse(t *testing.T) {
	m := NewMockModel("mock-echo", "mock")
	m.AddResponse("ping", "pong")

	req := Request{Contents: []core.Content{
		{Role: "user", Parts: []core.Part{core.TextPart{Text: "ping"}}},
	}}

	respCh, errCh := m.Generate(context.Background(), req)
	responses, err := drain(t, respCh, errCh)
	require.NoError(t, err)
	require.Len(t, responses, 1)

	textPart, ok := responses[0].Content.Parts[0].(core.TextPart)
	require.True(t, ok)
	assert.Equal(t, "pong", textPart.Text)
	assert.Equal(t, "stop", responses[0].FinishReason)
}

func TestMockModel_GenerateStreamsCharByChar(t *testing.T) {
	m := NewMockModel("mock-echo", "mock")
	m.AddResponse("hi", "ab")

	req := Request{
		Stream: true,
		Contents: []core.Content{
			{Role: "user", Parts: []core.Part{core.TextPart{Text: "hi"}}},
		},
	}

	respCh, errCh := m.Generate(context.Background(), req)
	responses, err := drain(t, respCh, errCh)
	require.NoError(t, err)

	// two partial chunks ("a", "b") plus one final non-partial response
	require.Len(t, responses, 3)
	assert.True(t, responses[0].Partial)
	assert.True(t, responses[1].Partial)
	assert.False(t, responses[2].Partial)
}

func TestMockModel_GenerateErrorsOnEmptyContents(t *testing.T) {
	m := NewMockModel("mock-echo", "mock")
	respCh, errCh := m.Generate(context.Background(), Request{})
	_, err := drain(t, respCh, errCh)
	assert.Error(t, err)
}

func TestMockModel_Info(t *testing.T) {
	m := NewMockModel("mock-echo", "mock")
	info := m.Info()
	assert.Equal(t, "mock-echo", info.Name)
	assert.True(t, info.SupportsTools)
}
