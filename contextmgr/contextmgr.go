// Package contextmgr implements the ContextManager that runs before every
// LLM call: it decides whether the live prompt has grown past its budget
// and, if so, shrinks it by dropping or summarizing the oldest turns while
// keeping the system instruction, the most recent messages, and any
// tool-call/tool-result pair whole (spec §4.6).
package contextmgr

import (
	"context"

	"github.com/mantlecore/agentcore/core"
)

// Mode selects how the budget is measured.
type Mode string

const (
	ModeTokenBudget   Mode = "token_budget"
	ModeSlidingWindow Mode = "sliding_window"
)

// Strategy selects how over-budget messages are shed.
type Strategy string

const (
	StrategyTruncate             Strategy = "truncate"
	StrategySummarizeAndTruncate Strategy = "summarize_and_truncate"
)

// Summarizer condenses a drop-set of messages into one summary message's
// text. The reasoning engine's LLMClient satisfies this narrowly so
// contextmgr does not need to depend on the model package.
type Summarizer interface {
	Summarize(ctx context.Context, messages []core.Message) (string, error)
}

// Config configures one ContextManager instance (spec §8 `context_management`).
type Config struct {
	Enabled          bool
	Mode             Mode
	Value            int // token ceiling (token_budget) or message count (sliding_window)
	ThresholdPercent int // token_budget triggers at Value * ThresholdPercent/100
	Strategy         Strategy
	PreserveRecent   int
}

// DefaultConfig matches spec §8's documented defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:          true,
		Mode:             ModeTokenBudget,
		Value:            8000,
		ThresholdPercent: 75,
		Strategy:         StrategyTruncate,
		PreserveRecent:   4,
	}
}

// Manager runs the ContextManager step.
type Manager struct {
	cfg        Config
	summarizer Summarizer
}

// New constructs a Manager. summarizer may be nil if cfg.Strategy is never
// StrategySummarizeAndTruncate.
func New(cfg Config, summarizer Summarizer) *Manager {
	return &Manager{cfg: cfg, summarizer: summarizer}
}

// Result reports what Shape did, for the caller to emit a context_truncated
// event and persist any produced summary message.
type Result struct {
	Active          []core.Message // the view to send to the model
	Dropped         []core.Message // messages removed from the active view
	SummaryMessage  *core.Message  // non-nil if a summary message was produced
	SummarizeFailed bool           // true if summarize_and_truncate fell back to plain truncation
}

// Shape applies the configured budget to messages (ordered oldest-first,
// with systemInstruction already excluded — it is always retained and
// never counted against PreserveRecent). If the manager is disabled or
// the budget is not exceeded, Shape returns messages unchanged.
func (m *Manager) Shape(ctx context.Context, systemInstruction string, messages []core.Message) Result {
	if !m.cfg.Enabled || !m.overBudget(systemInstruction, messages) {
		return Result{Active: messages}
	}

	cut := m.computeCut(systemInstruction, messages)
	cut = extendToPairBoundary(messages, cut)

	dropSet := messages[:cut]
	keep := messages[cut:]

	if len(dropSet) == 0 {
		return Result{Active: messages}
	}

	if m.cfg.Strategy == StrategySummarizeAndTruncate && m.summarizer != nil {
		summaryText, err := m.summarizer.Summarize(ctx, dropSet)
		if err == nil {
			summary := newSummaryMessage(dropSet, summaryText)
			active := append([]core.Message{summary}, keep...)
			return Result{Active: active, Dropped: dropSet, SummaryMessage: &summary}
		}
		// summarization failed: fall back to pure truncation, recording the
		// failure so the caller's context_truncated event reflects it.
		return Result{Active: keep, Dropped: dropSet, SummarizeFailed: true}
	}

	return Result{Active: keep, Dropped: dropSet}
}

// computeCut decides how many of the oldest messages to drop, with
// PreserveRecent as a hard floor (never cut past len(messages)-preserve) so
// the newest PreserveRecent messages always survive (spec §4.6). In
// ModeTokenBudget it drops the oldest messages one at a time only until the
// running total falls back under the budget threshold, rather than always
// cutting down to exactly the floor. In ModeSlidingWindow it keeps
// cfg.Value messages (the configured window size), widening to the floor
// only when cfg.Value is smaller than PreserveRecent.
func (m *Manager) computeCut(systemInstruction string, messages []core.Message) int {
	preserve := m.cfg.PreserveRecent
	if preserve > len(messages) {
		preserve = len(messages)
	}
	floor := len(messages) - preserve

	if m.cfg.Mode == ModeSlidingWindow {
		targetKeep := m.cfg.Value
		if targetKeep < preserve {
			targetKeep = preserve
		}
		if targetKeep > len(messages) {
			targetKeep = len(messages)
		}
		return len(messages) - targetKeep
	}

	threshold := m.cfg.Value * m.cfg.ThresholdPercent / 100
	total := core.EstimateTokens(systemInstruction)
	for _, msg := range messages {
		total += msg.TokenEstimate
	}

	cut := 0
	for cut < floor && total > threshold {
		total -= messages[cut].TokenEstimate
		cut++
	}
	return cut
}

func (m *Manager) overBudget(systemInstruction string, messages []core.Message) bool {
	switch m.cfg.Mode {
	case ModeSlidingWindow:
		return len(messages) > m.cfg.Value
	default:
		total := core.EstimateTokens(systemInstruction)
		for _, msg := range messages {
			total += msg.TokenEstimate
		}
		threshold := m.cfg.Value * m.cfg.ThresholdPercent / 100
		return total > threshold
	}
}

// extendToPairBoundary nudges cut backward until it does not split a
// tool-call message from its tool-result message (spec: "any tool-call/
// tool-result pair crossing the cut (tool pairs never split)").
func extendToPairBoundary(messages []core.Message, cut int) int {
	if cut <= 0 || cut >= len(messages) {
		return cut
	}

	// Walk back from the cut over any tool results to the assistant message
	// that issued tool calls; if any of its results land at or after cut,
	// pull the cut back before the assistant message so the pair stays
	// together on the kept side.
	for i := cut - 1; i >= 0; i-- {
		msg := messages[i]
		if msg.Role == core.RoleTool {
			continue
		}
		if len(msg.ToolCalls) == 0 {
			break
		}
		if hasUnresolvedToolCallAfter(messages, i, cut) {
			cut = i
			continue
		}
		break
	}
	return cut
}

func hasUnresolvedToolCallAfter(messages []core.Message, assistantIdx, cut int) bool {
	pending := map[string]bool{}
	for _, tc := range messages[assistantIdx].ToolCalls {
		pending[tc.ID] = true
	}
	for i := assistantIdx + 1; i < len(messages); i++ {
		if messages[i].Role == core.RoleTool && pending[messages[i].ToolCallID] {
			if i >= cut {
				return true
			}
			delete(pending, messages[i].ToolCallID)
		}
	}
	return false
}

func newSummaryMessage(dropSet []core.Message, text string) core.Message {
	ids := make([]string, 0, len(dropSet))
	for _, m := range dropSet {
		ids = append(ids, m.ID)
	}
	return core.Message{
		ID:            core.NewID(),
		Role:          core.RoleSummary,
		Content:       text,
		TokenEstimate: core.EstimateTokens(text),
		Active:        true,
		SupersedesIDs: ids,
	}
}
