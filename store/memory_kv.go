package store

import (
	"sort"
	"sync"
	"time"

	"github.com/mantlecore/agentcore/core"
)

// MemoryKVStore is a volatile KVStore implementation storing messages in a
// process-local map. It is safe for concurrent access; stored messages are
// copied in and out to prevent external mutation of internal state.
type MemoryKVStore struct {
	mu       sync.RWMutex
	messages map[string][]core.Message // sessionID -> ordered log
}

// NewMemoryKVStore constructs an empty in-memory KVStore.
func NewMemoryKVStore() *MemoryKVStore {
	return &MemoryKVStore{messages: make(map[string][]core.Message)}
}

// Kind implements KVStore.
func (s *MemoryKVStore) Kind() string { return "memory" }

// Append implements KVStore.
func (s *MemoryKVStore) Append(sessionID string, msg core.Message) (core.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.ID == "" {
		msg.ID = core.NewID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	msg.Active = true
	msg.SessionID = sessionID

	s.messages[sessionID] = append(s.messages[sessionID], msg)

	return msg, nil
}

// Load implements KVStore.
func (s *MemoryKVStore) Load(sessionID string, filter core.MessageFilter) ([]core.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.messages[sessionID]

	out := make([]core.Message, 0, len(log))
	afterSeen := filter.FromID == ""
	for _, m := range log {
		if !afterSeen {
			if m.ID == filter.FromID {
				afterSeen = true
			}
			continue
		}
		if filter.ActiveOnly && !m.Active {
			continue
		}
		out = append(out, m)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[len(out)-filter.Limit:]
	}

	return out, nil
}

// UpdateActive implements KVStore.
func (s *MemoryKVStore) UpdateActive(sessionID string, ids []string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	log := s.messages[sessionID]
	for i := range log {
		if want[log[i].ID] {
			log[i].Active = active
		}
	}

	return nil
}

// Delete implements KVStore.
func (s *MemoryKVStore) Delete(sessionID string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	log := s.messages[sessionID]
	kept := log[:0]
	for _, m := range log {
		if !want[m.ID] {
			kept = append(kept, m)
		}
	}
	s.messages[sessionID] = kept

	return nil
}

// Clear implements KVStore.
func (s *MemoryKVStore) Clear(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.messages, sessionID)
	return nil
}
