package core

import "time"

// Session is the metadata record for one durable conversation thread
// (spec data model §3). The message log itself lives in the MemoryRouter's
// backing KVStore keyed by SessionID; Session only carries the bookkeeping
// fields needed to drive summarization and budget accounting.
type Session struct {
	SessionID           string    `json:"session_id"`
	AgentID             string    `json:"agent_id"`
	CreatedAt           time.Time `json:"created_at"`
	LastActivity        time.Time `json:"last_activity"`
	SummaryCursor       string    `json:"summary_cursor"`
	TotalTokensEstimate int       `json:"total_tokens_estimate"`
}

// NewSession constructs a fresh Session record for agentID, stamped at now.
func NewSession(sessionID, agentID string, now time.Time) *Session {
	return &Session{
		SessionID:    sessionID,
		AgentID:      agentID,
		CreatedAt:    now,
		LastActivity: now,
	}
}

// Clone returns a value copy of the session record, safe for independent
// mutation by the caller.
func (s *Session) Clone() *Session {
	c := *s
	return &c
}
