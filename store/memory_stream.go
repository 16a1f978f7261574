package store

import (
	"sync"
	"time"

	"github.com/mantlecore/agentcore/core"
)

// MemoryStreamStore is a volatile StreamStore implementation storing events
// in a process-local, per-session slice guarded by an RWMutex. EventID
// values are assigned as zero-padded monotonic sequence numbers so
// lexicographic comparison matches arrival order.
type MemoryStreamStore struct {
	mu     sync.RWMutex
	events map[string][]core.Event
	seq    map[string]int64
}

// NewMemoryStreamStore constructs an empty in-memory StreamStore.
func NewMemoryStreamStore() *MemoryStreamStore {
	return &MemoryStreamStore{
		events: make(map[string][]core.Event),
		seq:    make(map[string]int64),
	}
}

// Kind implements StreamStore.
func (s *MemoryStreamStore) Kind() string { return "memory" }

// Append implements StreamStore.
func (s *MemoryStreamStore) Append(ev core.Event) (core.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq[ev.SessionID]++
	ev.EventID = sequenceID(s.seq[ev.SessionID])
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	s.events[ev.SessionID] = append(s.events[ev.SessionID], ev)

	return ev, nil
}

// Read implements StreamStore.
func (s *MemoryStreamStore) Read(sessionID, afterEventID string, limit int) ([]core.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.events[sessionID]

	out := make([]core.Event, 0, len(log))
	seen := afterEventID == ""
	for _, ev := range log {
		if !seen {
			if ev.EventID == afterEventID {
				seen = true
			}
			continue
		}
		out = append(out, ev)
		if limit > 0 && len(out) >= limit {
			break
		}
	}

	return out, nil
}

// Tail implements StreamStore.
func (s *MemoryStreamStore) Tail(sessionID string, n int) ([]core.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.events[sessionID]
	if n <= 0 || n >= len(log) {
		out := make([]core.Event, len(log))
		copy(out, log)
		return out, nil
	}

	out := make([]core.Event, n)
	copy(out, log[len(log)-n:])

	return out, nil
}

// sequenceID zero-pads n to a fixed width so string comparison of EventIDs
// orders the same as the underlying int64 sequence.
func sequenceID(n int64) string {
	const width = 20
	s := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		s[i] = byte('0' + n%10)
		n /= 10
	}
	return string(s)
}
