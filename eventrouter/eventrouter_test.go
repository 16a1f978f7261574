package eventrouter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mantlecore/agentcore/core"
	"github.com/mantlecore/agentcore/logging"
	"github.com/mantlecore/agentcore/store"
)

func TestRouter_EmitPersistsAndFansOut(t *testing.T) {
	backend := store.NewMemoryStreamStore()
	r := New("memory", backend, DropNewest, 4, logging.NoOpLogger{})

	sub, cancel := r.Subscribe()
	defer cancel()

	_, err := r.Emit(core.NewEvent("sess-1", "agent-1", core.EventUserMessage, time.Now(), nil))
	require.NoError(t, err)

	select {
	case ev := <-sub:
		assert.Equal(t, core.EventUserMessage, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("expected fanned-out event")
	}

	stored, err := backend.Tail("sess-1", 1)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestRouter_SwitchToEmitsHandoverOnBothBackends(t *testing.T) {
	oldBackend := store.NewMemoryStreamStore()
	r := New("memory", oldBackend, DropNewest, 4, logging.NoOpLogger{})

	newBackend := store.NewMemoryStreamStore()
	require.NoError(t, r.SwitchTo("sess-1", "agent-1", "memory2", newBackend))

	oldTail, err := oldBackend.Tail("sess-1", 1)
	require.NoError(t, err)
	require.Len(t, oldTail, 1)
	assert.Equal(t, core.EventRoutingHandover, oldTail[0].Type)

	newTail, err := newBackend.Tail("sess-1", 1)
	require.NoError(t, err)
	require.Len(t, newTail, 1)
	assert.Equal(t, core.EventRoutingHandover, newTail[0].Type)

	oldCorrelationID := oldTail[0].Payload["correlation_id"]
	require.NotEmpty(t, oldCorrelationID)
	assert.Equal(t, oldCorrelationID, newTail[0].Payload["correlation_id"])

	assert.Equal(t, "memory2", r.CurrentKind())
}
