package core

import "time"

// ArtifactRef is the handle returned by ArtifactStore.put (spec §3, §4.4).
// Content lives in the store keyed by ArtifactID; ArtifactRef is safe to
// embed inline in a prompt or tool-result message.
type ArtifactRef struct {
	ArtifactID    string    `json:"artifact_id"`
	SessionID     string    `json:"session_id"`
	CreatedAt     time.Time `json:"created_at"`
	SizeBytes     int       `json:"size_bytes"`
	TokenEstimate int       `json:"token_estimate"`
	Preview       string    `json:"preview"`
	MimeHint      string    `json:"mime_hint,omitempty"`
}
