package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mantlecore/agentcore/core"
	"github.com/mantlecore/agentcore/model"
)

func TestRouter_SelectsNamedChildAndRunsItWithOriginalTask(t *testing.T) {
	var received string
	billing := NewRunner("billing", "handles billing questions", func(ctx context.Context, sessionID, query string) (string, error) {
		received = query
		return "billing handled it", nil
	})
	support := NewRunner("support", "handles support questions", func(ctx context.Context, sessionID, query string) (string, error) {
		return "support handled it", nil
	})

	llm := model.NewMockModel("router", "mock")
	llm.AddResponse("why was I charged twice?", "billing")

	r := NewRouter("front_desk", llm, 1, billing, support)
	out, err := r.Run(context.Background(), "sess", "why was I charged twice?")
	require.NoError(t, err)
	assert.Equal(t, "billing handled it", out)
	assert.Equal(t, "why was I charged twice?", received)
}

func TestRouter_RefusalThenValidSelectionSucceedsWithinRetryLimit(t *testing.T) {
	sequence := &sequencedModel{responses: []string{"REFUSE: unclear intent", "support"}}
	support := NewRunner("support", "handles support questions", func(ctx context.Context, sessionID, query string) (string, error) {
		return "support handled it", nil
	})

	r := NewRouter("front_desk", sequence, 1, support)
	out, err := r.Run(context.Background(), "sess", "help")
	require.NoError(t, err)
	assert.Equal(t, "support handled it", out)
	assert.Equal(t, 2, sequence.calls)
}

func TestRouter_ExhaustsRetriesOnRepeatedRefusal(t *testing.T) {
	sequence := &sequencedModel{responses: []string{"REFUSE: no fit", "REFUSE: still no fit"}}
	support := NewRunner("support", "handles support questions", func(ctx context.Context, sessionID, query string) (string, error) {
		return "unreached", nil
	})

	r := NewRouter("front_desk", sequence, 1, support)
	_, err := r.Run(context.Background(), "sess", "help")
	require.Error(t, err)
	var cerr *core.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, core.ErrLLMInvalidOutput, cerr.Kind)
}

func TestRouter_UnknownChildNameIsTreatedAsRefusalAndRetried(t *testing.T) {
	sequence := &sequencedModel{responses: []string{"nonexistent_child", "support"}}
	support := NewRunner("support", "handles support questions", func(ctx context.Context, sessionID, query string) (string, error) {
		return "support handled it", nil
	})

	r := NewRouter("front_desk", sequence, 1, support)
	out, err := r.Run(context.Background(), "sess", "help")
	require.NoError(t, err)
	assert.Equal(t, "support handled it", out)
}

// sequencedModel replays one scripted text response per Generate call.
type sequencedModel struct {
	responses []string
	calls     int
}

func (s *sequencedModel) Info() model.Info { return model.Info{Name: "sequenced", Provider: "mock"} }

func (s *sequencedModel) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	respCh := make(chan model.Response, 1)
	errCh := make(chan error, 1)

	idx := s.calls
	s.calls++
	go func() {
		defer close(respCh)
		defer close(errCh)
		text := ""
		if idx < len(s.responses) {
			text = s.responses[idx]
		}
		respCh <- model.Response{
			Content: core.Content{Role: "assistant", Parts: []core.Part{core.TextPart{Text: text}}},
		}
	}()
	return respCh, errCh
}
