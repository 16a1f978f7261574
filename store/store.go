// Package store defines the two pluggable backend contracts that the
// memoryrouter and eventrouter packages hot-swap between, plus in-memory
// and SQL-backed implementations of each.
package store

import "github.com/mantlecore/agentcore/core"

// KVStore is the backend contract a MemoryRouter delegates to for a
// session's conversation log: an append-only, ordered log of Messages with
// an active/inactive flag used by summarization to retire superseded
// entries without deleting them.
type KVStore interface {
	// Append assigns an ID and CreatedAt to msg (if unset) and stores it.
	Append(sessionID string, msg core.Message) (core.Message, error)

	// Load returns messages for sessionID matching filter, ordered by
	// (CreatedAt, ID).
	Load(sessionID string, filter core.MessageFilter) ([]core.Message, error)

	// UpdateActive flips the Active flag on the named message IDs.
	UpdateActive(sessionID string, ids []string, active bool) error

	// Delete removes the named message IDs from sessionID's log, for
	// retention_policy = "delete" summarization.
	Delete(sessionID string, ids []string) error

	// Clear removes all messages for sessionID.
	Clear(sessionID string) error

	// Kind identifies the backend implementation for diagnostics and the
	// EventRoutingHandover/memory-switch audit trail.
	Kind() string
}

// StreamStore is the backend contract an EventRouter delegates to for a
// session's observability event stream: a monotonically ordered,
// append-only log.
type StreamStore interface {
	// Append assigns an EventID and stores ev, returning the stored copy.
	Append(ev core.Event) (core.Event, error)

	// Read returns events for sessionID with EventID greater than
	// afterEventID (empty string means from the start), up to limit events
	// (0 means unbounded).
	Read(sessionID, afterEventID string, limit int) ([]core.Event, error)

	// Tail returns the last n events for sessionID.
	Tail(sessionID string, n int) ([]core.Event, error)

	// Kind identifies the backend implementation.
	Kind() string
}
