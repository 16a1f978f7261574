package core

import (
	"context"

	"github.com/mantlecore/agentcore/logging"
)

// ToolContext is the constrained surface handed to a tool implementation
// at call time (spec §4.3). It exposes the parent RunContext's memory,
// event and artifact access through the same SessionID/RunID scope,
// without exposing the RunContext itself.
type ToolContext struct {
	runCtx         *RunContext
	functionCallID string
	toolName       string

	*loggerAdapter
}

// NewToolContext constructs a ToolContext bound to a parent RunContext,
// a unique functionCallID, and the name of the tool being invoked.
func NewToolContext(runCtx *RunContext, functionCallID, toolName string) *ToolContext {
	return &ToolContext{
		runCtx:         runCtx,
		functionCallID: functionCallID,
		toolName:       toolName,
		loggerAdapter:  newLoggerAdapter(runCtx.Logger()),
	}
}

// Context returns the context associated with the tool invocation.
func (tc *ToolContext) Context() context.Context { return tc.runCtx.Context }

// SessionID returns the session ID associated with the tool invocation.
func (tc *ToolContext) SessionID() string { return tc.runCtx.SessionID }

// RunID returns the run ID associated with the tool invocation.
func (tc *ToolContext) RunID() string { return tc.runCtx.RunID }

// Logger returns the logger associated with the tool invocation.
func (tc *ToolContext) Logger() logging.Logger { return tc.loggerAdapter.Logger() }

// FunctionCallID returns the unique ID of this specific tool call.
func (tc *ToolContext) FunctionCallID() string { return tc.functionCallID }

// ToolName returns the name of the tool being invoked.
func (tc *ToolContext) ToolName() string { return tc.toolName }

// Depth returns the sub-agent delegation depth of the run this tool call
// is part of; the sub_agent tool kind uses this to enforce the cycle
// prevention limit before delegating further.
func (tc *ToolContext) Depth() int { return tc.runCtx.Depth }

// EmitEvent publishes an observability event scoped to this tool call.
func (tc *ToolContext) EmitEvent(typ EventType, payload map[string]any) error {
	if payload == nil {
		payload = map[string]any{}
	}
	payload["function_call_id"] = tc.functionCallID
	payload["tool_name"] = tc.toolName
	return tc.runCtx.EmitEvent(typ, payload)
}

// SaveArtifact offloads data to the artifact backend for this session.
func (tc *ToolContext) SaveArtifact(data []byte, mimeHint string) (ArtifactRef, error) {
	return tc.runCtx.SaveArtifact(data, mimeHint)
}

// ReadArtifact retrieves the full bytes of a previously saved artifact.
func (tc *ToolContext) ReadArtifact(artifactID string) ([]byte, error) {
	return tc.runCtx.ReadArtifact(artifactID)
}

// TailArtifact returns the last nLines of a stored artifact's text content.
func (tc *ToolContext) TailArtifact(artifactID string, nLines int) (string, error) {
	if tc.runCtx.Artifacts == nil {
		return "", NewError(ErrStoreUnavailable, "artifact store not configured")
	}
	return tc.runCtx.Artifacts.Tail(tc.SessionID(), artifactID, nLines)
}

// SearchArtifact greps a stored artifact's text content for query.
func (tc *ToolContext) SearchArtifact(artifactID, query string) ([]ArtifactSearchHit, error) {
	if tc.runCtx.Artifacts == nil {
		return nil, NewError(ErrStoreUnavailable, "artifact store not configured")
	}
	return tc.runCtx.Artifacts.Search(tc.SessionID(), artifactID, query)
}

// ListArtifacts returns the artifact refs stored for this session.
func (tc *ToolContext) ListArtifacts() ([]ArtifactRef, error) {
	if tc.runCtx.Artifacts == nil {
		return nil, NewError(ErrStoreUnavailable, "artifact store not configured")
	}
	return tc.runCtx.Artifacts.List(tc.SessionID())
}

// LoadHistory returns the session's messages matching filter, for tools
// (such as a recall/search tool) that need direct access to the log.
func (tc *ToolContext) LoadHistory(filter MessageFilter) ([]Message, error) {
	return tc.runCtx.LoadHistory(filter)
}

// InternalRunContext exposes the parent RunContext to trusted in-module
// callers (the sub_agent tool kind, which must derive a child RunContext).
func (tc *ToolContext) InternalRunContext() *RunContext { return tc.runCtx }
