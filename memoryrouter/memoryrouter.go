// Package memoryrouter implements the hot-swappable MemoryRouter that sits
// between the reasoning engine and a pluggable store.KVStore backend. It is
// grounded on the teacher's session in-memory store's RWMutex-guarded map
// idiom, generalized to delegate to an arbitrary backend and to support a
// two-phase snapshot-then-flip migration between backends at runtime.
package memoryrouter

import (
	"fmt"
	"sync"

	"github.com/mantlecore/agentcore/core"
	"github.com/mantlecore/agentcore/store"
)

// Router implements core.MemoryAccess by delegating to whichever
// store.KVStore is currently active. SwitchTo performs a two-phase
// snapshot-then-flip migration: the active sessions' messages are read from
// the old backend and replayed into the new one before the router starts
// directing new calls to it, so a run in flight during the swap never
// observes a partially migrated history.
type Router struct {
	mu      sync.RWMutex
	active  store.KVStore
	kind    string
	known   map[string]store.KVStore // kind -> backend, for re-registration after a swap back
}

// New constructs a Router with backend as the initially active KVStore.
func New(kind string, backend store.KVStore) *Router {
	return &Router{
		active: backend,
		kind:   kind,
		known:  map[string]store.KVStore{kind: backend},
	}
}

// CurrentKind reports the kind label of the currently active backend.
func (r *Router) CurrentKind() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.kind
}

// Append implements core.MemoryAccess.
func (r *Router) Append(sessionID string, msg core.Message) (core.Message, error) {
	r.mu.RLock()
	backend := r.active
	r.mu.RUnlock()
	return backend.Append(sessionID, msg)
}

// Load implements core.MemoryAccess.
func (r *Router) Load(sessionID string, filter core.MessageFilter) ([]core.Message, error) {
	r.mu.RLock()
	backend := r.active
	r.mu.RUnlock()
	return backend.Load(sessionID, filter)
}

// UpdateActive implements core.MemoryAccess.
func (r *Router) UpdateActive(sessionID string, ids []string, active bool) error {
	r.mu.RLock()
	backend := r.active
	r.mu.RUnlock()
	return backend.UpdateActive(sessionID, ids, active)
}

// Delete permanently removes ids from sessionID's log on the active
// backend, for retention_policy = "delete" summarization (spec §4.7).
func (r *Router) Delete(sessionID string, ids []string) error {
	r.mu.RLock()
	backend := r.active
	r.mu.RUnlock()
	return backend.Delete(sessionID, ids)
}

// Clear removes a session's history from the active backend.
func (r *Router) Clear(sessionID string) error {
	r.mu.RLock()
	backend := r.active
	r.mu.RUnlock()
	return backend.Clear(sessionID)
}

// SwitchTo migrates sessionIDs from the active backend into newBackend
// (registered under kind), then flips the active pointer. Sessions not
// listed in sessionIDs are left behind on the old backend and become
// unreachable through this router until switched back; callers that need a
// full-fleet migration should pass every known session ID.
func (r *Router) SwitchTo(kind string, newBackend store.KVStore, sessionIDs []string) error {
	// The write lock is held for the full snapshot -> bulk-write -> flip
	// sequence (spec §4.1), not just the pointer flip: Append/Load/etc all
	// take RLock, so a concurrent call blocks until the flip completes
	// instead of landing on oldBackend and being lost once r.active moves.
	r.mu.Lock()
	defer r.mu.Unlock()

	oldBackend := r.active

	for _, sessionID := range sessionIDs {
		msgs, err := oldBackend.Load(sessionID, core.MessageFilter{})
		if err != nil {
			return fmt.Errorf("memoryrouter: snapshot session %s from %s: %w", sessionID, r.kind, err)
		}
		for _, msg := range msgs {
			if _, err := newBackend.Append(sessionID, msg); err != nil {
				return fmt.Errorf("memoryrouter: replay session %s into %s: %w", sessionID, kind, err)
			}
			if !msg.Active {
				if err := newBackend.UpdateActive(sessionID, []string{msg.ID}, false); err != nil {
					return fmt.Errorf("memoryrouter: replay active flag for session %s: %w", sessionID, err)
				}
			}
		}
	}

	r.active = newBackend
	r.kind = kind
	r.known[kind] = newBackend

	return nil
}
