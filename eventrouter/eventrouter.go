// Package eventrouter implements the hot-swappable EventRouter that
// publishes observability events to a pluggable store.StreamStore backend,
// with bounded backpressure and a routing_handover marker event emitted
// around backend swaps so downstream observers can tell the stream moved.
package eventrouter

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mantlecore/agentcore/core"
	"github.com/mantlecore/agentcore/logging"
	"github.com/mantlecore/agentcore/store"
)

// DropPolicy controls what Emit does when a subscriber's delivery buffer is
// full: block, drop the newest event, or drop the oldest buffered one.
type DropPolicy string

const (
	DropNewest DropPolicy = "drop_newest"
	DropOldest DropPolicy = "drop_oldest"
	Block      DropPolicy = "block"
)

// Router implements core.EventEmitter by delegating to whichever
// store.StreamStore is currently active, and fans out a copy of every
// appended event to any live subscriber channels registered with
// Subscribe. Subscriber delivery is bounded and governed by DropPolicy so
// a slow observer cannot block the hot append path.
type Router struct {
	mu          sync.RWMutex
	active      store.StreamStore
	kind        string
	subscribers map[int]chan core.Event
	nextSubID   int
	policy      DropPolicy
	bufferSize  int
	logger      logging.Logger
}

// New constructs a Router with backend as the initially active StreamStore.
func New(kind string, backend store.StreamStore, policy DropPolicy, bufferSize int, logger logging.Logger) *Router {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Router{
		active:      backend,
		kind:        kind,
		subscribers: map[int]chan core.Event{},
		policy:      policy,
		bufferSize:  bufferSize,
		logger:      logger,
	}
}

// CurrentKind reports the kind label of the currently active backend.
func (r *Router) CurrentKind() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.kind
}

// Subscribe registers a new channel that receives a copy of every event
// appended from now on. The returned cancel func unregisters it.
func (r *Router) Subscribe() (<-chan core.Event, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextSubID
	r.nextSubID++
	ch := make(chan core.Event, r.bufferSize)
	r.subscribers[id] = ch

	return ch, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if c, ok := r.subscribers[id]; ok {
			delete(r.subscribers, id)
			close(c)
		}
	}
}

// Emit implements core.EventEmitter: persists ev to the active backend,
// then fans the stored copy out to subscribers per DropPolicy.
func (r *Router) Emit(ev core.Event) (core.Event, error) {
	r.mu.RLock()
	backend := r.active
	r.mu.RUnlock()

	stored, err := backend.Append(ev)
	if err != nil {
		return core.Event{}, err
	}

	r.fanOut(stored)

	return stored, nil
}

func (r *Router) fanOut(ev core.Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, ch := range r.subscribers {
		switch r.policy {
		case Block:
			ch <- ev
		case DropOldest:
			select {
			case ch <- ev:
			default:
				select {
				case <-ch:
				default:
				}
				select {
				case ch <- ev:
				default:
					r.logger.Warn("eventrouter.fanout.drop", "subscriber", id, "policy", r.policy)
				}
			}
		default: // DropNewest
			select {
			case ch <- ev:
			default:
				r.logger.Warn("eventrouter.fanout.drop", "subscriber", id, "policy", r.policy)
			}
		}
	}
}

// SwitchTo flips the active backend to newBackend (registered under kind),
// first emitting a routing_handover event on the old backend and then on
// the new one so the stream carries a marker on both sides of the seam.
// Both markers carry the same correlation_id so a consumer reading either
// stream can pair them and chain across the handover (spec §4.2).
func (r *Router) SwitchTo(sessionID, agentID, kind string, newBackend store.StreamStore) error {
	correlationID := uuid.NewString()
	fromKind := r.CurrentKind()

	oldPayload := map[string]any{"from_kind": fromKind, "to_kind": kind, "correlation_id": correlationID}
	if _, err := r.Emit(core.NewEvent(sessionID, agentID, core.EventRoutingHandover, time.Now(), oldPayload)); err != nil {
		r.logger.Warn("eventrouter.handover.old_backend_emit_failed", "error", err.Error())
	}

	r.mu.Lock()
	r.active = newBackend
	r.kind = kind
	r.mu.Unlock()

	newPayload := map[string]any{"from_kind": fromKind, "to_kind": kind, "correlation_id": correlationID}
	_, err := r.Emit(core.NewEvent(sessionID, agentID, core.EventRoutingHandover, time.Now(), newPayload))

	return err
}
