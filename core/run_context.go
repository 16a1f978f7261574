package core

import (
	"context"
	"time"

	"github.com/mantlecore/agentcore/logging"
)

// RunContext carries the execution-scoped dependencies for one reasoning
// run: the ambient cancellation Context, identifiers, the swappable
// memory/event/artifact backends reached through their narrow interfaces,
// and the sub-agent delegation depth used to enforce the cycle-prevention
// limit (spec §4.9). It is constructed once per top-level run by the
// reasoning engine and threaded down into tool dispatch as a ToolContext.
type RunContext struct {
	Context                context.Context
	RunID, SessionID        string
	AgentID                 string
	Depth                   int
	Deadline                time.Time
	MaxModelCalls           int
	Limiter                 *ModelLimiter
	Memory                  MemoryAccess
	Events                  EventEmitter
	Artifacts               ArtifactAccess

	*loggerAdapter
}

// NewRunContext constructs a top-level RunContext at depth 0.
func NewRunContext(
	ctx context.Context,
	sessionID, runID, agentID string,
	maxModelCalls int,
	deadline time.Time,
	memory MemoryAccess,
	events EventEmitter,
	artifacts ArtifactAccess,
	logger logging.Logger,
) *RunContext {
	return &RunContext{
		Context:       ctx,
		RunID:         runID,
		SessionID:     sessionID,
		AgentID:       agentID,
		Depth:         0,
		Deadline:      deadline,
		MaxModelCalls: maxModelCalls,
		Limiter:       NewModelLimiter(maxModelCalls),
		Memory:        memory,
		Events:        events,
		Artifacts:     artifacts,
		loggerAdapter: newLoggerAdapter(logger),
	}
}

// Done returns a channel closed when the underlying context is cancelled.
func (rc *RunContext) Done() <-chan struct{} { return rc.Context.Done() }

// Err returns the cancellation error (if any) from the underlying context.
func (rc *RunContext) Err() error { return rc.Context.Err() }

// EmitEvent stamps and publishes an observability event for this run.
func (rc *RunContext) EmitEvent(typ EventType, payload map[string]any) error {
	if rc.Events == nil {
		return nil
	}
	_, err := rc.Events.Emit(NewEvent(rc.SessionID, rc.AgentID, typ, time.Now(), payload))
	return err
}

// AppendMessage appends msg to the session's conversation log.
func (rc *RunContext) AppendMessage(msg Message) (Message, error) {
	if rc.Memory == nil {
		return Message{}, NewError(ErrStoreUnavailable, "memory router not configured")
	}
	msg.SessionID = rc.SessionID
	return rc.Memory.Append(rc.SessionID, msg)
}

// LoadHistory returns the session's messages matching filter.
func (rc *RunContext) LoadHistory(filter MessageFilter) ([]Message, error) {
	if rc.Memory == nil {
		return nil, NewError(ErrStoreUnavailable, "memory router not configured")
	}
	return rc.Memory.Load(rc.SessionID, filter)
}

// SaveArtifact offloads data to the artifact backend, tagged with mimeHint.
func (rc *RunContext) SaveArtifact(data []byte, mimeHint string) (ArtifactRef, error) {
	if rc.Artifacts == nil {
		return ArtifactRef{}, NewError(ErrStoreUnavailable, "artifact store not configured")
	}
	return rc.Artifacts.Put(rc.SessionID, data, mimeHint)
}

// ReadArtifact retrieves the full bytes of a previously saved artifact.
func (rc *RunContext) ReadArtifact(artifactID string) ([]byte, error) {
	if rc.Artifacts == nil {
		return nil, NewError(ErrStoreUnavailable, "artifact store not configured")
	}
	return rc.Artifacts.Read(rc.SessionID, artifactID)
}

// NewChildContext derives a RunContext for a sub-agent delegation one level
// deeper than rc, opening a fresh child session (spec: a sub_agent invocation
// "opens a new session in the child agent"). The child's deadline is clamped
// to the parent's remaining deadline so a sub-agent can never outlive the run
// that spawned it.
func (rc *RunContext) NewChildContext(childAgentID, childRunID, childSessionID string) *RunContext {
	return &RunContext{
		Context:       rc.Context,
		RunID:         childRunID,
		SessionID:     childSessionID,
		AgentID:       childAgentID,
		Depth:         rc.Depth + 1,
		Deadline:      rc.Deadline,
		MaxModelCalls: rc.MaxModelCalls,
		Limiter:       NewModelLimiter(rc.MaxModelCalls),
		Memory:        rc.Memory,
		Events:        rc.Events,
		Artifacts:     rc.Artifacts,
		loggerAdapter: rc.loggerAdapter,
	}
}
