package artifact

import (
	"bytes"
	"strings"
	"sync"
	"time"

	"github.com/mantlecore/agentcore/core"
)

// defaultMaxPreviewTokens matches config.ToolOffloadConfig's documented
// default (spec §6 `tool_offload.max_preview_tokens`).
const defaultMaxPreviewTokens = 150

// Options configures an InMemoryStore at construction time.
type Options struct {
	// MaxPreviewTokens bounds ArtifactRef.Preview (spec §4.4), honoring
	// the deployment's tool_offload.max_preview_tokens when set.
	MaxPreviewTokens int
}

// InMemoryStore is a content-addressed, process-local implementation of
// core.ArtifactAccess. It keeps all artifact bytes in a nested map guarded
// by an RWMutex, grounded on the teacher's original session/artifact
// in-memory idiom; content addressing (see DESIGN.md Open Question 3)
// replaces the teacher's caller-supplied artifactID with a BLAKE3 digest of
// the bytes, so repeated offloads of identical content dedupe for free.
//
// Layout: sessionID -> artifactID -> raw bytes
type InMemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte           // sessionID -> artifactID -> bytes
	refs map[string]map[string]core.ArtifactRef // sessionID -> artifactID -> ref

	maxPreviewTokens int
}

// NewInMemoryStore returns an empty in-memory artifact store.
func NewInMemoryStore(optFns ...func(*Options)) *InMemoryStore {
	opts := Options{MaxPreviewTokens: defaultMaxPreviewTokens}
	for _, fn := range optFns {
		fn(&opts)
	}
	maxPreviewTokens := opts.MaxPreviewTokens
	if maxPreviewTokens <= 0 {
		maxPreviewTokens = defaultMaxPreviewTokens
	}

	return &InMemoryStore{
		data:             make(map[string]map[string][]byte),
		refs:             make(map[string]map[string]core.ArtifactRef),
		maxPreviewTokens: maxPreviewTokens,
	}
}

// Put implements core.ArtifactAccess.
func (a *InMemoryStore) Put(sessionID string, data []byte, mimeHint string) (core.ArtifactRef, error) {
	id := ContentID(data)

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.data[sessionID]; !ok {
		a.data[sessionID] = map[string][]byte{}
		a.refs[sessionID] = map[string]core.ArtifactRef{}
	}

	cp := make([]byte, len(data))
	copy(cp, data)
	a.data[sessionID][id] = cp

	if existing, ok := a.refs[sessionID][id]; ok {
		return existing, nil
	}

	ref := core.ArtifactRef{
		ArtifactID:    id,
		SessionID:     sessionID,
		CreatedAt:     time.Now(),
		SizeBytes:     len(data),
		TokenEstimate: core.EstimateTokens(string(data)),
		Preview:       preview(data, a.maxPreviewTokens),
		MimeHint:      mimeHint,
	}
	a.refs[sessionID][id] = ref

	return ref, nil
}

// Read implements core.ArtifactAccess.
func (a *InMemoryStore) Read(sessionID, artifactID string) ([]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	m, ok := a.data[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	data, ok := m[artifactID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)

	return cp, nil
}

// Tail implements core.ArtifactAccess.
func (a *InMemoryStore) Tail(sessionID, artifactID string, nLines int) (string, error) {
	data, err := a.Read(sessionID, artifactID)
	if err != nil {
		return "", err
	}

	lines := strings.Split(string(data), "\n")
	if nLines <= 0 || nLines >= len(lines) {
		return string(data), nil
	}

	return strings.Join(lines[len(lines)-nLines:], "\n"), nil
}

// maxSearchHits caps Search's result count (spec §4.4: substring search
// results are "capped at 100") so a large artifact with many matching
// lines can't return an unbounded result set.
const maxSearchHits = 100

// Search implements core.ArtifactAccess with a case-insensitive substring
// match over each line, returning the matching line and its 0-based offset.
func (a *InMemoryStore) Search(sessionID, artifactID, query string) ([]core.ArtifactSearchHit, error) {
	data, err := a.Read(sessionID, artifactID)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(query)
	var hits []core.ArtifactSearchHit
	for i, line := range strings.Split(string(data), "\n") {
		if len(hits) >= maxSearchHits {
			break
		}
		if strings.Contains(strings.ToLower(line), needle) {
			hits = append(hits, core.ArtifactSearchHit{Offset: i, Line: line})
		}
	}

	return hits, nil
}

// List implements core.ArtifactAccess.
func (a *InMemoryStore) List(sessionID string) ([]core.ArtifactRef, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	m, ok := a.refs[sessionID]
	if !ok {
		return []core.ArtifactRef{}, nil
	}

	out := make([]core.ArtifactRef, 0, len(m))
	for _, ref := range m {
		out = append(out, ref)
	}

	return out, nil
}

// preview returns the first maxTokens tokens of data (using the module's
// four-bytes-per-token estimator, core.EstimateTokens), cut back to the
// last newline boundary within that limit and marked with an ellipsis when
// truncated (spec §4.4).
func preview(data []byte, maxTokens int) string {
	limit := maxTokens * 4
	if len(data) <= limit {
		return string(data)
	}

	cut := data[:limit]
	if nl := bytes.LastIndexByte(cut, '\n'); nl > 0 {
		cut = cut[:nl]
	}
	return string(cut) + "..."
}
