// Package sqlstore implements store.KVStore and store.StreamStore on top of
// a single-file SQLite database, for deployments that need the message log
// and event stream to survive process restarts without standing up an
// external database.
package sqlstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mantlecore/agentcore/core"
)

// conn holds the shared SQLite connection that KV and Events wrap. KVStore
// and StreamStore each declare an Append method with a different signature,
// so one Go type cannot implement both; Open returns one of each backed by
// the same connection instead.
type conn struct {
	db *sql.DB
}

// KV is a SQLite-backed store.KVStore.
type KV struct{ c *conn }

// Events is a SQLite-backed store.StreamStore.
type Events struct{ c *conn }

// Open creates/opens the database file at path, ensures its schema, and
// returns a KVStore and StreamStore pair sharing the connection.
func Open(path string) (*KV, *Events, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create store dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Single-process backend; one shared connection avoids writer-lock
	// contention between the reasoning engine's goroutines.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	c := &conn{db: db}
	if err := c.init(); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	return &KV{c: c}, &Events{c: c}, nil
}

// Close releases the underlying database connection. Either KV or Events
// may be used to close it since they share the same connection.
func (s *KV) Close() error { return s.c.close() }

// Close releases the underlying database connection.
func (s *Events) Close() error { return s.c.close() }

func (c *conn) close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (s *conn) init() error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA synchronous=NORMAL;`,
		`PRAGMA busy_timeout=5000;`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			tool_calls_json TEXT NOT NULL DEFAULT '[]',
			tool_call_id TEXT NOT NULL DEFAULT '',
			created_at_ns INTEGER NOT NULL,
			token_estimate INTEGER NOT NULL DEFAULT 0,
			active INTEGER NOT NULL DEFAULT 1,
			supersedes_json TEXT NOT NULL DEFAULT '[]',
			metadata_json TEXT NOT NULL DEFAULT '{}'
		);`,
		`CREATE INDEX IF NOT EXISTS messages_session_idx ON messages(session_id, created_at_ns);`,
		`CREATE TABLE IF NOT EXISTS events (
			event_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			agent_id TEXT NOT NULL,
			type TEXT NOT NULL,
			timestamp_ns INTEGER NOT NULL,
			payload_json TEXT NOT NULL DEFAULT '{}',
			seq INTEGER NOT NULL,
			PRIMARY KEY (session_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS events_session_seq_idx ON events(session_id, seq);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// Kind implements store.KVStore.
func (s *KV) Kind() string { return "sqlite" }

// Append implements store.KVStore.
func (s *KV) Append(sessionID string, msg core.Message) (core.Message, error) {
	if msg.ID == "" {
		msg.ID = core.NewID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	msg.Active = true
	msg.SessionID = sessionID

	toolCalls, err := json.Marshal(msg.ToolCalls)
	if err != nil {
		return core.Message{}, fmt.Errorf("marshal tool_calls: %w", err)
	}
	supersedes, err := json.Marshal(msg.SupersedesIDs)
	if err != nil {
		return core.Message{}, fmt.Errorf("marshal supersedes_ids: %w", err)
	}
	metadata, err := json.Marshal(msg.Metadata)
	if err != nil {
		return core.Message{}, fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = s.c.db.Exec(
		`INSERT INTO messages(id, session_id, role, content, tool_calls_json, tool_call_id, created_at_ns, token_estimate, active, supersedes_json, metadata_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		msg.ID, sessionID, string(msg.Role), msg.Content, string(toolCalls), msg.ToolCallID,
		msg.CreatedAt.UnixNano(), msg.TokenEstimate, string(supersedes), string(metadata),
	)
	if err != nil {
		return core.Message{}, fmt.Errorf("insert message: %w", err)
	}

	return msg, nil
}

// Load implements store.KVStore.
func (s *KV) Load(sessionID string, filter core.MessageFilter) ([]core.Message, error) {
	query := `SELECT id, session_id, role, content, tool_calls_json, tool_call_id, created_at_ns, token_estimate, active, supersedes_json, metadata_json
	          FROM messages WHERE session_id = ?`
	args := []any{sessionID}

	if filter.FromID != "" {
		query += ` AND created_at_ns > (SELECT created_at_ns FROM messages WHERE id = ?)`
		args = append(args, filter.FromID)
	}
	if filter.ActiveOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY created_at_ns ASC, id ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.c.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var out []core.Message
	for rows.Next() {
		var (
			m                                        core.Message
			toolCallsJSON, supersedesJSON, metaJSON   string
			createdAtNs                               int64
			active                                    int
		)
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &toolCallsJSON, &m.ToolCallID,
			&createdAtNs, &m.TokenEstimate, &active, &supersedesJSON, &metaJSON); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.CreatedAt = time.Unix(0, createdAtNs)
		m.Active = active != 0
		_ = json.Unmarshal([]byte(toolCallsJSON), &m.ToolCalls)
		_ = json.Unmarshal([]byte(supersedesJSON), &m.SupersedesIDs)
		_ = json.Unmarshal([]byte(metaJSON), &m.Metadata)
		out = append(out, m)
	}

	return out, rows.Err()
}

// UpdateActive implements store.KVStore.
func (s *KV) UpdateActive(sessionID string, ids []string, active bool) error {
	tx, err := s.c.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`UPDATE messages SET active = ? WHERE session_id = ? AND id = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	activeVal := 0
	if active {
		activeVal = 1
	}
	for _, id := range ids {
		if _, err := stmt.Exec(activeVal, sessionID, id); err != nil {
			return fmt.Errorf("update message active flag: %w", err)
		}
	}

	return tx.Commit()
}

// Delete implements store.KVStore.
func (s *KV) Delete(sessionID string, ids []string) error {
	tx, err := s.c.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`DELETE FROM messages WHERE session_id = ? AND id = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.Exec(sessionID, id); err != nil {
			return fmt.Errorf("delete message: %w", err)
		}
	}

	return tx.Commit()
}

// Clear implements store.KVStore.
func (s *KV) Clear(sessionID string) error {
	_, err := s.c.db.Exec(`DELETE FROM messages WHERE session_id = ?`, sessionID)
	return err
}

// Append implements store.StreamStore, assigning the next per-session
// sequence number inside a transaction to keep EventID ordering strict.
func (s *Events) Append(ev core.Event) (core.Event, error) {
	tx, err := s.c.db.Begin()
	if err != nil {
		return core.Event{}, err
	}
	defer tx.Rollback()

	var maxSeq int64
	row := tx.QueryRow(`SELECT COALESCE(MAX(seq), 0) FROM events WHERE session_id = ?`, ev.SessionID)
	if err := row.Scan(&maxSeq); err != nil {
		return core.Event{}, fmt.Errorf("query max seq: %w", err)
	}
	seq := maxSeq + 1

	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	ev.EventID = fmt.Sprintf("%020d", seq)

	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return core.Event{}, fmt.Errorf("marshal payload: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO events(event_id, session_id, agent_id, type, timestamp_ns, payload_json, seq) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.EventID, ev.SessionID, ev.AgentID, string(ev.Type), ev.Timestamp.UnixNano(), string(payload), seq,
	)
	if err != nil {
		return core.Event{}, fmt.Errorf("insert event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return core.Event{}, err
	}

	return ev, nil
}

// Read implements store.StreamStore.
func (s *Events) Read(sessionID, afterEventID string, limit int) ([]core.Event, error) {
	query := `SELECT event_id, session_id, agent_id, type, timestamp_ns, payload_json FROM events WHERE session_id = ?`
	args := []any{sessionID}
	if afterEventID != "" {
		query += ` AND seq > (SELECT seq FROM events WHERE session_id = ? AND event_id = ?)`
		args = append(args, sessionID, afterEventID)
	}
	query += ` ORDER BY seq ASC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	return s.scanEvents(query, args...)
}

// Tail implements store.StreamStore.
func (s *Events) Tail(sessionID string, n int) ([]core.Event, error) {
	query := `SELECT event_id, session_id, agent_id, type, timestamp_ns, payload_json FROM
	          (SELECT * FROM events WHERE session_id = ? ORDER BY seq DESC LIMIT ?) ORDER BY seq ASC`
	limit := n
	if limit <= 0 {
		limit = -1
	}

	return s.scanEvents(query, sessionID, limit)
}

func (s *Events) scanEvents(query string, args ...any) ([]core.Event, error) {
	rows, err := s.c.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []core.Event
	for rows.Next() {
		var (
			ev          core.Event
			timestampNs int64
			payloadJSON string
		)
		if err := rows.Scan(&ev.EventID, &ev.SessionID, &ev.AgentID, &ev.Type, &timestampNs, &payloadJSON); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Timestamp = time.Unix(0, timestampNs)
		_ = json.Unmarshal([]byte(payloadJSON), &ev.Payload)
		out = append(out, ev)
	}

	return out, rows.Err()
}

// Kind implements store.StreamStore.
func (s *Events) Kind() string { return "sqlite" }
