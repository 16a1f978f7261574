// Package summarizer implements the MemorySummarizer, which runs after
// turns are persisted (not inside the prompt path) to keep a session's
// stored active-message count or token estimate within memory_config's
// bound by rolling the oldest messages into one summary message (spec
// §4.7).
package summarizer

import (
	"context"
	"sync"

	"github.com/mantlecore/agentcore/core"
)

// Mode selects how the stored log is measured.
type Mode string

const (
	ModeSlidingWindow Mode = "sliding_window"
	ModeTokenBudget   Mode = "token_budget"
)

// RetentionPolicy controls what happens to a session's superseded
// messages once a summary has replaced them in the active view.
type RetentionPolicy string

const (
	RetentionKeep   RetentionPolicy = "keep"   // mark inactive, retain for audit
	RetentionDelete RetentionPolicy = "delete" // permanently remove
)

// Config configures one Summarizer (spec §8 `memory_config`).
type Config struct {
	Enabled   bool
	Mode      Mode
	Value     int // message count ceiling (sliding_window) or token ceiling (token_budget)
	Retention RetentionPolicy
}

// MemoryStore is the narrow persistence surface the Summarizer needs:
// loading a session's full active log, appending the new summary message,
// and either retiring or deleting the superseded ones. memoryrouter.Router
// satisfies this directly.
type MemoryStore interface {
	Load(sessionID string, filter core.MessageFilter) ([]core.Message, error)
	Append(sessionID string, msg core.Message) (core.Message, error)
	UpdateActive(sessionID string, ids []string, active bool) error
	Delete(sessionID string, ids []string) error
}

// Summarizer condenses a set of messages into the text of one summary
// message. The reasoning engine's LLMClient wrapper satisfies this.
type Summarizer interface {
	Summarize(ctx context.Context, messages []core.Message) (string, error)
}

// MemorySummarizer runs the post-persist rollup described above. A
// per-session mutex serializes concurrent turns on the same session so two
// goroutines never race to create two competing rolling summaries.
type MemorySummarizer struct {
	cfg        Config
	store      MemoryStore
	summarizer Summarizer

	mu       sync.Mutex
	sessLock map[string]*sync.Mutex
}

// New constructs a MemorySummarizer.
func New(cfg Config, store MemoryStore, summarizer Summarizer) *MemorySummarizer {
	return &MemorySummarizer{
		cfg:        cfg,
		store:      store,
		summarizer: summarizer,
		sessLock:   map[string]*sync.Mutex{},
	}
}

// MaybeSummarize checks sessionID's active log against the configured
// bound and, if exceeded, rolls the oldest excess into one summary message
// superseding them. It is a no-op if the bound is not exceeded or the
// summarizer is disabled. Returns the produced summary message, if any.
func (s *MemorySummarizer) MaybeSummarize(ctx context.Context, sessionID string) (*core.Message, error) {
	if !s.cfg.Enabled {
		return nil, nil
	}

	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	active, err := s.store.Load(sessionID, core.MessageFilter{ActiveOnly: true})
	if err != nil {
		return nil, core.Wrap(core.ErrStoreUnavailable, err)
	}

	dropSet := s.excess(active)
	if len(dropSet) == 0 {
		return nil, nil
	}
	// A session keeps at most one rolling summary (spec §4.7): if an
	// earlier summary is still active but fell outside this round's
	// naive cut, fold it in anyway so it gets replaced rather than left
	// standing alongside a second, newer summary.
	dropSet = includeExistingSummary(active, dropSet)

	summaryText, err := s.summarizer.Summarize(ctx, dropSet)
	if err != nil {
		return nil, core.Wrap(core.ErrInternal, err)
	}

	summary := newSummaryMessage(dropSet, summaryText)
	stored, err := s.store.Append(sessionID, summary)
	if err != nil {
		return nil, core.Wrap(core.ErrStoreUnavailable, err)
	}

	ids := idsOf(dropSet) // retire the dropped messages themselves, including any prior summary
	switch s.cfg.Retention {
	case RetentionDelete:
		if err := s.store.Delete(sessionID, ids); err != nil {
			return nil, core.Wrap(core.ErrStoreUnavailable, err)
		}
	default:
		if err := s.store.UpdateActive(sessionID, ids, false); err != nil {
			return nil, core.Wrap(core.ErrStoreUnavailable, err)
		}
	}

	return &stored, nil
}

// excess returns the oldest messages beyond the configured bound, in
// their original (CreatedAt, ID) order, assuming active is already so
// ordered (as MemoryAccess.Load guarantees).
func (s *MemorySummarizer) excess(active []core.Message) []core.Message {
	switch s.cfg.Mode {
	case ModeTokenBudget:
		total := 0
		for _, m := range active {
			total += m.TokenEstimate
		}
		if total <= s.cfg.Value {
			return nil
		}
		var cut int
		for cut = 0; cut < len(active) && total > s.cfg.Value; cut++ {
			total -= active[cut].TokenEstimate
		}
		return active[:cut]
	default: // ModeSlidingWindow
		if len(active) <= s.cfg.Value {
			return nil
		}
		return active[:len(active)-s.cfg.Value]
	}
}

func (s *MemorySummarizer) sessionLock(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.sessLock[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		s.sessLock[sessionID] = lock
	}
	return lock
}

func idsOf(messages []core.Message) []string {
	ids := make([]string, 0, len(messages))
	for _, m := range messages {
		ids = append(ids, m.ID)
	}
	return ids
}

// includeExistingSummary appends active's current summary message (if any
// and not already present) to dropSet, so it gets folded into and replaced
// by the new rolling summary.
func includeExistingSummary(active, dropSet []core.Message) []core.Message {
	for _, m := range active {
		if m.Role != core.RoleSummary {
			continue
		}
		already := false
		for _, d := range dropSet {
			if d.ID == m.ID {
				already = true
				break
			}
		}
		if !already {
			dropSet = append(dropSet, m)
		}
		break // a session has at most one active summary
	}
	return dropSet
}

// supersedesIDsOf flattens dropSet into the original, non-summary message
// IDs it ultimately covers: a prior summary's own SupersedesIDs are carried
// forward instead of its own ID, so the lineage always points at source
// messages and keeps growing across rounds.
func supersedesIDsOf(dropSet []core.Message) []string {
	var ids []string
	for _, m := range dropSet {
		if m.Role == core.RoleSummary {
			ids = append(ids, m.SupersedesIDs...)
			continue
		}
		ids = append(ids, m.ID)
	}
	return ids
}

func newSummaryMessage(dropSet []core.Message, text string) core.Message {
	return core.Message{
		ID:            core.NewID(),
		Role:          core.RoleSummary,
		Content:       text,
		TokenEstimate: core.EstimateTokens(text),
		Active:        true,
		SupersedesIDs: supersedesIDsOf(dropSet),
	}
}
