package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mantlecore/agentcore/core"
)

var _ KVStore = (*MemoryKVStore)(nil)
var _ StreamStore = (*MemoryStreamStore)(nil)

func TestMemoryKVStore_AppendAndLoad(t *testing.T) {
	s := NewMemoryKVStore()

	m1, err := s.Append("sess-1", core.Message{Role: core.RoleUser, Content: "hello"})
	require.NoError(t, err)
	assert.NotEmpty(t, m1.ID)
	assert.True(t, m1.Active)

	_, err = s.Append("sess-1", core.Message{Role: core.RoleAssistant, Content: "hi"})
	require.NoError(t, err)

	loaded, err := s.Load("sess-1", core.MessageFilter{})
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
}

func TestMemoryKVStore_UpdateActiveFiltersLoad(t *testing.T) {
	s := NewMemoryKVStore()
	m1, _ := s.Append("sess-1", core.Message{Role: core.RoleUser, Content: "a"})
	_, _ = s.Append("sess-1", core.Message{Role: core.RoleUser, Content: "b"})

	require.NoError(t, s.UpdateActive("sess-1", []string{m1.ID}, false))

	active, err := s.Load("sess-1", core.MessageFilter{ActiveOnly: true})
	require.NoError(t, err)
	assert.Len(t, active, 1)
	assert.Equal(t, "b", active[0].Content)
}

func TestMemoryKVStore_DeleteRemovesOnlyNamedMessages(t *testing.T) {
	s := NewMemoryKVStore()
	m1, _ := s.Append("sess-1", core.Message{Role: core.RoleUser, Content: "a"})
	_, _ = s.Append("sess-1", core.Message{Role: core.RoleUser, Content: "b"})

	require.NoError(t, s.Delete("sess-1", []string{m1.ID}))

	loaded, err := s.Load("sess-1", core.MessageFilter{})
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "b", loaded[0].Content)
}

func TestMemoryKVStore_ClearRemovesSession(t *testing.T) {
	s := NewMemoryKVStore()
	_, _ = s.Append("sess-1", core.Message{Role: core.RoleUser, Content: "a"})
	require.NoError(t, s.Clear("sess-1"))

	loaded, err := s.Load("sess-1", core.MessageFilter{})
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestMemoryStreamStore_AppendAssignsMonotonicIDs(t *testing.T) {
	s := NewMemoryStreamStore()

	e1, err := s.Append(core.Event{SessionID: "sess-1", Type: core.EventUserMessage})
	require.NoError(t, err)
	e2, err := s.Append(core.Event{SessionID: "sess-1", Type: core.EventAgentThought})
	require.NoError(t, err)

	assert.Less(t, e1.EventID, e2.EventID)
}

func TestMemoryStreamStore_Tail(t *testing.T) {
	s := NewMemoryStreamStore()
	for i := 0; i < 5; i++ {
		_, _ = s.Append(core.Event{SessionID: "sess-1", Type: core.EventAgentThought})
	}

	tail, err := s.Tail("sess-1", 2)
	require.NoError(t, err)
	assert.Len(t, tail, 2)
}
