package core

// MessageFilter restricts a Load call against a MemoryAccess backend.
// ActiveOnly limits to Active==true messages; FromID/Limit page through
// the log in (CreatedAt, ID) order.
type MessageFilter struct {
	ActiveOnly bool
	FromID     string
	Limit      int
}

// MemoryAccess is the narrow view of a MemoryRouter that RunContext and
// ToolContext need: appending new turns and loading the active history.
// The full router surface (switchTo, currentKind, clear) lives on the
// concrete memoryrouter.Router type and is not part of this interface so
// that core stays free of a dependency on that package.
type MemoryAccess interface {
	Append(sessionID string, msg Message) (Message, error)
	Load(sessionID string, filter MessageFilter) ([]Message, error)
	UpdateActive(sessionID string, ids []string, active bool) error
}

// EventEmitter is the narrow view of an EventRouter that RunContext needs
// to publish observability events.
type EventEmitter interface {
	Emit(ev Event) (Event, error)
}

// ArtifactSearchHit is one match from ArtifactAccess.Search.
type ArtifactSearchHit struct {
	Offset int    `json:"offset"`
	Line   string `json:"line"`
}

// ArtifactAccess is the narrow view of an ArtifactStore that RunContext
// and ToolContext need for offload and builtin retrieval tools.
type ArtifactAccess interface {
	Put(sessionID string, data []byte, mimeHint string) (ArtifactRef, error)
	Read(sessionID, artifactID string) ([]byte, error)
	Tail(sessionID, artifactID string, nLines int) (string, error)
	Search(sessionID, artifactID, query string) ([]ArtifactSearchHit, error)
	List(sessionID string) ([]ArtifactRef, error)
}
