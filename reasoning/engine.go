package reasoning

import (
	"context"
	"sync"

	"github.com/mantlecore/agentcore/contextmgr"
	"github.com/mantlecore/agentcore/core"
	"github.com/mantlecore/agentcore/guardrail"
	"github.com/mantlecore/agentcore/model"
	"github.com/mantlecore/agentcore/summarizer"
	"github.com/mantlecore/agentcore/tool"
)

// MetricsSink is the narrow recorder surface an Engine writes run outcomes
// into. *core.AgentMetrics satisfies it directly; a facade wanting to also
// mirror runs into an external metrics system (e.g. Prometheus) supplies
// its own adapter instead, without this package needing to know what that
// system is.
type MetricsSink interface {
	RecordRun(inputTokens, outputTokens, toolCalls int, durationMs int64, failed bool)
	RecordError()
}

// Engine drives one agent's ReAct loop. It satisfies tool.SubAgentRunner
// (so a sub_agent tool entry can delegate straight into another Engine's
// Run) and contextmgr.Summarizer / summarizer.Summarizer (a single
// Summarize method serves both, since their interfaces are identical),
// letting one LLMClient wrapper condense dropped context both pre-prompt
// and post-persist.
type Engine struct {
	model      model.Model
	registry   *tool.Registry
	guardrail  *guardrail.Guardrail
	contextMgr *contextmgr.Manager
	summarizer *summarizer.MemorySummarizer
	metrics    MetricsSink
	cfg        Config

	mu         sync.Mutex
	activeRuns map[string]context.CancelFunc
}

// Option configures an Engine at construction time, following the
// functional-options pattern.
type Option func(*Engine)

// WithGuardrail attaches the pre-LLM input screener (spec §4.5). A nil
// Engine.guardrail skips screening entirely.
func WithGuardrail(g *guardrail.Guardrail) Option {
	return func(e *Engine) { e.guardrail = g }
}

// WithContextManager attaches the pre-call prompt shaper (spec §4.6).
func WithContextManager(m *contextmgr.Manager) Option {
	return func(e *Engine) { e.contextMgr = m }
}

// WithSummarizer attaches the post-persist rollup (spec §4.7), invoked
// once per turn after the turn's messages are appended.
func WithSummarizer(s *summarizer.MemorySummarizer) Option {
	return func(e *Engine) { e.summarizer = s }
}

// WithMetrics attaches the per-agent counters this Engine records run
// outcomes into.
func WithMetrics(m MetricsSink) Option {
	return func(e *Engine) { e.metrics = m }
}

// New constructs an Engine. llm and registry are required; everything
// else is optional and defaults to a no-op.
func New(llm model.Model, registry *tool.Registry, cfg Config, opts ...Option) *Engine {
	e := &Engine{
		model:      llm,
		registry:   registry,
		cfg:        cfg,
		activeRuns: make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Summarize implements contextmgr.Summarizer and summarizer.Summarizer by
// asking the wrapped model for a condensed prose summary of messages.
// Used both to shrink an over-budget live prompt and to roll superseded
// history into one stored summary message.
func (e *Engine) Summarize(ctx context.Context, messages []core.Message) (string, error) {
	contents := make([]core.Content, 0, len(messages))
	for _, msg := range messages {
		contents = append(contents, contentFromMessage(msg))
	}

	req := model.Request{
		Instructions: "Summarize the following conversation excerpt concisely, preserving facts, decisions and open questions a continuation would need.",
		Contents:     contents,
	}

	respCh, errCh := e.model.Generate(ctx, req)
	var summary string
	for {
		select {
		case resp, ok := <-respCh:
			if !ok {
				return summary, nil
			}
			if !resp.Partial {
				summary = textOf(resp.Content)
			}
		case err, ok := <-errCh:
			if ok && err != nil {
				return "", core.Wrap(core.ErrLLMUnavailable, err)
			}
		case <-ctx.Done():
			return "", core.NewError(core.ErrCancelled, "summarization cancelled")
		}
	}
}

// Run executes one bounded reasoning loop to completion and returns the
// final answer text, implementing tool.SubAgentRunner so this Engine can
// back a sub_agent tool entry for another agent's registry.
func (e *Engine) Run(rc *core.RunContext, input string) (string, error) {
	ctx, cancel := context.WithCancel(rc.Context)
	child := *rc
	child.Context = ctx

	e.trackRun(rc.RunID, cancel)
	defer func() {
		cancel()
		e.untrackRun(rc.RunID)
	}()

	answer, runErr := e.runLoop(&child, input)
	if runErr != nil {
		e.recordFailure()
		return answer, runErr
	}
	return answer, nil
}

// RunAsync starts a run in the background and streams its events,
// grounded on engine/engine.go's Invoke: the caller ranges over eventsCh
// until it closes, and checks errCh for a terminal error. StopRun(runID)
// cancels an in-flight run by the same ID.
func (e *Engine) RunAsync(rc *core.RunContext, input string) (<-chan core.Event, <-chan error) {
	eventsCh := make(chan core.Event, 64)
	errCh := make(chan error, 1)

	runCtx, cancel := context.WithCancel(rc.Context)
	child := *rc
	child.Context = runCtx

	e.trackRun(rc.RunID, cancel)

	sub, unsubscribe := subscribeLocal(eventsCh)
	sub.downstream = rc.Events
	child.Events = sub

	go func() {
		defer cancel()
		defer e.untrackRun(rc.RunID)
		defer unsubscribe()
		defer close(eventsCh)
		defer close(errCh)

		if _, err := e.runLoop(&child, input); err != nil {
			e.recordFailure()
			errCh <- err
		}
	}()

	return eventsCh, errCh
}

// StopRun cancels an in-flight run started by RunAsync, if it is still
// active. It is a no-op if runID is unknown (already finished or never
// started).
func (e *Engine) StopRun(runID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	cancel, ok := e.activeRuns[runID]
	if !ok {
		return false
	}
	cancel()
	delete(e.activeRuns, runID)
	return true
}

func (e *Engine) trackRun(runID string, cancel context.CancelFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.activeRuns[runID] = cancel
}

func (e *Engine) untrackRun(runID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.activeRuns, runID)
}

func (e *Engine) recordFailure() {
	if e.metrics != nil {
		e.metrics.RecordError()
	}
}

// localEmitter forwards EmitEvent calls onto a bounded channel for
// RunAsync's caller-facing stream, in addition to whatever durable
// EventEmitter the parent RunContext already carries (wired in by
// RunAsync as downstream so events still reach the EventRouter for
// persistence).
type localEmitter struct {
	downstream core.EventEmitter
	out        chan<- core.Event
}

func (l *localEmitter) Emit(ev core.Event) (core.Event, error) {
	if l.downstream != nil {
		stored, err := l.downstream.Emit(ev)
		if err == nil {
			ev = stored
		}
	}
	select {
	case l.out <- ev:
	default:
	}
	return ev, nil
}

// subscribeLocal wraps a fan-out emitter; unsubscribe is a no-op today
// but keeps the call site stable if RunAsync later needs to detach from
// a shared downstream router mid-run.
func subscribeLocal(out chan<- core.Event) (*localEmitter, func()) {
	return &localEmitter{out: out}, func() {}
}
