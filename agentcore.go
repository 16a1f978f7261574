// Package agentcore provides AgentCore, the public façade over one agent's
// full stack: memory/event routing, guardrail screening, context
// management, tool dispatch and the ReAct reasoning loop (spec §6). Most
// applications interact with this package by:
//  1. Building an Options value (model, config, optional store overrides)
//  2. Constructing an AgentCore with New()
//  3. Driving it with Run/Stream, and managing its lifecycle with
//     SwitchMemory/SwitchEvents/GetMetrics/Cleanup
//
// AgentCore delegates the reasoning loop itself to reasoning.Engine while
// owning the wiring between routers, registry, guardrail and metrics that
// every run needs. All defaults are safe for local development; production
// deployments typically supply durable store implementations (store/sqlstore)
// and a structured logger.
package agentcore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mantlecore/agentcore/artifact"
	"github.com/mantlecore/agentcore/config"
	"github.com/mantlecore/agentcore/contextmgr"
	"github.com/mantlecore/agentcore/core"
	"github.com/mantlecore/agentcore/eventrouter"
	"github.com/mantlecore/agentcore/guardrail"
	"github.com/mantlecore/agentcore/logging"
	"github.com/mantlecore/agentcore/mcp"
	"github.com/mantlecore/agentcore/memoryrouter"
	"github.com/mantlecore/agentcore/metrics"
	"github.com/mantlecore/agentcore/model"
	"github.com/mantlecore/agentcore/reasoning"
	"github.com/mantlecore/agentcore/store"
	"github.com/mantlecore/agentcore/summarizer"
	"github.com/mantlecore/agentcore/tool"
)

// Options configures an AgentCore instance.
type Options struct {
	AgentID string
	Config  config.AgentConfig
	Model   model.Model

	// MemoryBackend/EventBackend default to in-memory stores when nil.
	MemoryBackend store.KVStore
	EventBackend  store.StreamStore
	MemoryKind    string // label for MemoryBackend; defaults to "memory"
	EventKind     string // label for EventBackend; defaults to "memory"

	// Artifacts defaults to artifact.NewInMemoryStore() when nil.
	Artifacts core.ArtifactAccess

	EventBufferSize int                 // defaults to 64
	EventDropPolicy eventrouter.DropPolicy // defaults to DropNewest

	// Collectors, if non-nil, mirrors every run into Prometheus alongside
	// the in-process AgentMetrics snapshot getMetrics() returns.
	Collectors *metrics.Collectors

	Logger logging.Logger
}

// RunResult is the structured outcome of one Run call (spec §6
// `run(query, session_id?) → {response, metric, guardrail_result?}`).
type RunResult struct {
	Response         string
	Metrics          core.MetricsSnapshot
	GuardrailBlocked bool
}

// AgentCore is the public façade aggregating one agent's routers, registry,
// guardrail and reasoning engine behind the operations spec §6 names.
type AgentCore struct {
	agentID string
	cfg     config.AgentConfig
	logger  logging.Logger

	memory    *memoryrouter.Router
	events    *eventrouter.Router
	artifacts core.ArtifactAccess
	registry  *tool.Registry
	guard     *guardrail.Guardrail
	engine    *reasoning.Engine
	recorder  *metrics.Recorder

	sessionsMu    sync.Mutex
	knownSessions map[string]bool
	sessionLocks  map[string]*sync.Mutex
}

// metricsSinkAdapter bridges reasoning.MetricsSink's durationMs-based
// signature onto metrics.Recorder's time.Duration one, so a single
// Recorder backs both the in-process snapshot and the Prometheus
// collectors without either package depending on the other.
type metricsSinkAdapter struct{ recorder *metrics.Recorder }

func (a metricsSinkAdapter) RecordRun(inputTokens, outputTokens, toolCalls int, durationMs int64, failed bool) {
	a.recorder.RecordRun(inputTokens, outputTokens, toolCalls, time.Duration(durationMs)*time.Millisecond, failed)
}

func (a metricsSinkAdapter) RecordError() { a.recorder.RecordError() }

// deferredSummarizer satisfies contextmgr.Summarizer and summarizer.Summarizer
// by forwarding to whatever engine eventually occupies the pointer it holds.
// ContextManager and MemorySummarizer both need a Summarizer at construction
// time, but the Engine that implements Summarize must itself be constructed
// with those two as options — this indirection breaks that cycle without
// requiring either package to expose a post-construction setter.
type deferredSummarizer struct{ engine **reasoning.Engine }

func (d deferredSummarizer) Summarize(ctx context.Context, messages []core.Message) (string, error) {
	return (*d.engine).Summarize(ctx, messages)
}

// New constructs an AgentCore. opts.AgentID and opts.Model are required;
// everything else defaults to an in-memory, single-process configuration.
func New(opts Options) (*AgentCore, error) {
	if opts.AgentID == "" {
		return nil, fmt.Errorf("agentcore: AgentID is required")
	}
	if opts.Model == nil {
		return nil, fmt.Errorf("agentcore: Model is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	memoryBackend := opts.MemoryBackend
	if memoryBackend == nil {
		memoryBackend = store.NewMemoryKVStore()
	}
	memoryKind := opts.MemoryKind
	if memoryKind == "" {
		memoryKind = "memory"
	}

	eventBackend := opts.EventBackend
	if eventBackend == nil {
		eventBackend = store.NewMemoryStreamStore()
	}
	eventKind := opts.EventKind
	if eventKind == "" {
		eventKind = "memory"
	}
	dropPolicy := opts.EventDropPolicy
	if dropPolicy == "" {
		dropPolicy = eventrouter.DropNewest
	}
	bufferSize := opts.EventBufferSize
	if bufferSize <= 0 {
		bufferSize = 64
	}

	var artifacts core.ArtifactAccess = opts.Artifacts
	// artifact.NewInMemoryStore is the only ArtifactStore this module wires
	// by default; callers needing a filesystem-backed store per
	// tool_offload.storage_dir supply opts.Artifacts themselves (see
	// DESIGN.md's config/ entry).
	if artifacts == nil {
		artifacts = artifact.NewInMemoryStore(func(o *artifact.Options) {
			o.MaxPreviewTokens = opts.Config.ToolOffload.MaxPreviewTokens
		})
	}

	memoryRtr := memoryrouter.New(memoryKind, memoryBackend)
	eventRtr := eventrouter.New(eventKind, eventBackend, dropPolicy, bufferSize, componentLogger(logger, "eventrouter"))

	registry := tool.NewRegistry()
	if opts.Config.ToolOffload.Enabled {
		tool.RegisterArtifactTools(registry)
	}

	guard := guardrail.New(opts.Config.GuardrailSettings())

	recorder := metrics.NewRecorder(opts.AgentID, opts.Collectors)

	var engine *reasoning.Engine
	ds := deferredSummarizer{engine: &engine}
	contextMgr := contextmgr.New(opts.Config.ContextManagerConfig(), ds)
	memSummarizer := summarizer.New(opts.Config.SummarizerConfig(), memoryRtr, ds)

	engine = reasoning.New(opts.Model, registry, opts.Config.ReasoningConfig(),
		reasoning.WithGuardrail(guard),
		reasoning.WithContextManager(contextMgr),
		reasoning.WithSummarizer(memSummarizer),
		reasoning.WithMetrics(metricsSinkAdapter{recorder: recorder}),
	)

	return &AgentCore{
		agentID:       opts.AgentID,
		cfg:           opts.Config,
		logger:        logger,
		memory:        memoryRtr,
		events:        eventRtr,
		artifacts:     artifacts,
		registry:      registry,
		guard:         guard,
		engine:        engine,
		recorder:      recorder,
		knownSessions: make(map[string]bool),
		sessionLocks:  make(map[string]*sync.Mutex),
	}, nil
}

// lockSession acquires the per-session mutex for sessionID, creating it if
// this is the first run against that session, and returns a function that
// releases it. A single agent processes one request per session at a time
// (spec §5): without this, two concurrent Run/Stream calls on the same
// session interleave their AppendMessage calls and can break conversation
// validity (tool-call/tool-result pairing, role alternation).
func (a *AgentCore) lockSession(sessionID string) func() {
	a.sessionsMu.Lock()
	lock, ok := a.sessionLocks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		a.sessionLocks[sessionID] = lock
	}
	a.sessionsMu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// newRunContext builds the per-run core.RunContext, defaulting sessionID to
// a fresh UUID when the caller doesn't supply one (spec §6 `session_id?`).
func (a *AgentCore) newRunContext(ctx context.Context, sessionID string) *core.RunContext {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	a.sessionsMu.Lock()
	a.knownSessions[sessionID] = true
	a.sessionsMu.Unlock()

	var deadline time.Time
	if a.cfg.MaxExecutionTimeS > 0 {
		deadline = time.Now().Add(time.Duration(a.cfg.MaxExecutionTimeS) * time.Second)
	}

	invocationID := uuid.NewString()
	return core.NewRunContext(
		ctx,
		sessionID,
		invocationID,
		a.agentID,
		a.cfg.RequestLimit,
		deadline,
		a.memory,
		a.events,
		a.artifacts,
		a.runLogger(sessionID, invocationID),
	)
}

// runLogger scopes a.logger to this run's session/invocation when it
// supports it, so every log line the run emits carries session_id and
// invocation_id without each call site threading them through by hand.
func (a *AgentCore) runLogger(sessionID, invocationID string) logging.Logger {
	sl, ok := a.logger.(*logging.StructuredLogger)
	if !ok {
		return a.logger
	}
	return sl.WithSession(sessionID, invocationID)
}

// componentLogger scopes logger to component via WithComponent when logger
// is a *logging.StructuredLogger, passing it through unchanged otherwise.
func componentLogger(logger logging.Logger, component string) logging.Logger {
	sl, ok := logger.(*logging.StructuredLogger)
	if !ok {
		return logger
	}
	return sl.WithComponent(component)
}

// Run executes one turn to completion and returns the final answer along
// with the agent's current metrics snapshot (spec §6 `run`).
func (a *AgentCore) Run(ctx context.Context, query, sessionID string) (RunResult, error) {
	rc := a.newRunContext(ctx, sessionID)

	unlock := a.lockSession(rc.SessionID)
	defer unlock()

	answer, err := a.engine.Run(rc, query)
	result := RunResult{Response: answer, Metrics: a.recorder.Snapshot()}
	if err != nil {
		var cerr *core.Error
		if errors.As(err, &cerr) && cerr.Kind == core.ErrGuardrailBlocked {
			result.GuardrailBlocked = true
		}
		return result, err
	}
	return result, nil
}

// Stream starts a turn in the background and returns its event/error
// channels (spec §6 `stream`), implemented directly against
// reasoning.Engine.RunAsync.
func (a *AgentCore) Stream(ctx context.Context, query, sessionID string) (<-chan core.Event, <-chan error) {
	rc := a.newRunContext(ctx, sessionID)

	// The per-session lock must outlive this call (the run continues in
	// the engine's own goroutine after RunAsync returns), so it is
	// released from a forwarding goroutine once both of the engine's
	// channels close instead of via a defer here.
	unlock := a.lockSession(rc.SessionID)

	rawEvents, rawErr := a.engine.RunAsync(rc, query)
	events := make(chan core.Event, cap(rawEvents))
	errs := make(chan error, cap(rawErr))

	go func() {
		defer unlock()
		defer close(events)
		defer close(errs)
		for rawEvents != nil || rawErr != nil {
			select {
			case ev, ok := <-rawEvents:
				if !ok {
					rawEvents = nil
					continue
				}
				events <- ev
			case err, ok := <-rawErr:
				if !ok {
					rawErr = nil
					continue
				}
				errs <- err
			}
		}
	}()

	return events, errs
}

// SwitchMemory hot-swaps the active MemoryRouter backend, replaying the
// given sessions into newBackend (spec §6 `switchMemory`).
func (a *AgentCore) SwitchMemory(kind string, newBackend store.KVStore, sessionIDs []string) error {
	return a.memory.SwitchTo(kind, newBackend, sessionIDs)
}

// SwitchEvents hot-swaps the active EventRouter backend for sessionID,
// emitting a routing_handover marker on both sides of the seam (spec §6
// `switchEvents`).
func (a *AgentCore) SwitchEvents(sessionID, kind string, newBackend store.StreamStore) error {
	return a.events.SwitchTo(sessionID, a.agentID, kind, newBackend)
}

// ConnectToolProviders connects each MCP connector and registers its
// discovered tools into the local registry (spec §6 `connectToolProviders`).
func (a *AgentCore) ConnectToolProviders(ctx context.Context, connectors ...*mcp.Connector) error {
	for _, connector := range connectors {
		if err := connector.Connect(ctx); err != nil {
			return fmt.Errorf("agentcore: connect tool provider: %w", err)
		}
		descriptors, err := connector.ListTools(ctx)
		if err != nil {
			return fmt.Errorf("agentcore: list tools: %w", err)
		}
		for _, t := range mcp.AsTools(connector, descriptors) {
			a.registry.Register(t, core.ToolKindMCP)
		}
	}
	return nil
}

// RegisterTool registers a local tool descriptor of the given kind (the
// counterpart to ConnectToolProviders for tools that aren't MCP-backed).
func (a *AgentCore) RegisterTool(t tool.Tool, kind core.ToolKind) {
	a.registry.Register(t, kind)
}

// RegisterSkillScript registers t (built with tool.NewSkillScriptTool) as a
// skill_script tool entry, refusing if enable_agent_skills is false in this
// agent's config (spec §4.11, gated by spec §6's `enable_agent_skills`).
func (a *AgentCore) RegisterSkillScript(t tool.Tool) error {
	if !a.cfg.EnableAgentSkills {
		return fmt.Errorf("agentcore: enable_agent_skills is false for agent %q", a.agentID)
	}
	a.registry.Register(t, core.ToolKindSkillScript)
	return nil
}

// ListTools returns every registered tool's descriptor (spec §6
// `listTools`).
func (a *AgentCore) ListTools() []core.ToolDescriptor {
	return a.registry.Descriptors()
}

// GetSessionHistory returns a session's full active message log (spec §6
// `getSessionHistory`).
func (a *AgentCore) GetSessionHistory(sessionID string) ([]core.Message, error) {
	return a.memory.Load(sessionID, core.MessageFilter{ActiveOnly: true})
}

// ClearSession deletes a session's conversation log (spec §6
// `clearSession`). An empty sessionID clears every session this AgentCore
// has created a run context for.
func (a *AgentCore) ClearSession(sessionID string) error {
	if sessionID != "" {
		a.sessionsMu.Lock()
		delete(a.knownSessions, sessionID)
		a.sessionsMu.Unlock()
		return a.memory.Clear(sessionID)
	}

	a.sessionsMu.Lock()
	ids := make([]string, 0, len(a.knownSessions))
	for id := range a.knownSessions {
		ids = append(ids, id)
	}
	a.knownSessions = make(map[string]bool)
	a.sessionsMu.Unlock()

	for _, id := range ids {
		if err := a.memory.Clear(id); err != nil {
			return err
		}
	}
	return nil
}

// GetMetrics returns the agent's current metrics snapshot (spec §6
// `getMetrics`).
func (a *AgentCore) GetMetrics() core.MetricsSnapshot {
	return a.recorder.Snapshot()
}

// Cleanup releases resources held by this AgentCore (spec §6 `cleanup`).
// It is currently a no-op: it does not cancel runs still in flight, and
// routers and stores outlive the AgentCore and are the caller's to close.
func (a *AgentCore) Cleanup() {}

// Engine exposes the underlying reasoning.Engine so it can be registered
// as a sub_agent tool target (tool.SubAgentRunner) in another agent's
// registry, preserving the caller's RunContext (and its delegation depth)
// across the boundary instead of opening a fresh top-level run.
func (a *AgentCore) Engine() *reasoning.Engine { return a.engine }

// RegisterSubAgent exposes child as a sub_agent tool entry in a's registry
// (spec §4.8/§9), delegating through child's Engine directly so the shared
// RunContext's delegation depth is enforced across the boundary.
func (a *AgentCore) RegisterSubAgent(name, description string, child *AgentCore, maxDepth int) {
	a.registry.Register(tool.NewSubAgentTool(name, description, child.Engine(), maxDepth), core.ToolKindSubAgent)
}
