package metrics

import (
	"time"

	"github.com/mantlecore/agentcore/core"
)

// Recorder pairs one agent's in-process core.AgentMetrics (what
// AgentCore.getMetrics returns) with the process-wide Prometheus
// Collectors (what a /metrics scrape reports), so every RecordRun call
// updates both without the caller needing to know about Prometheus at all.
type Recorder struct {
	agentID    string
	metrics    *core.AgentMetrics
	collectors *Collectors
}

// NewRecorder constructs a Recorder for agentID. collectors may be nil,
// in which case only the in-process AgentMetrics is updated — useful for
// tests and for agents that opt out of Prometheus export entirely.
func NewRecorder(agentID string, collectors *Collectors) *Recorder {
	return &Recorder{
		agentID:    agentID,
		metrics:    &core.AgentMetrics{},
		collectors: collectors,
	}
}

// RecordRun updates counters for one completed run, in both the
// in-process struct and (if configured) the Prometheus collectors.
func (r *Recorder) RecordRun(inputTokens, outputTokens, toolCalls int, duration time.Duration, failed bool) {
	r.metrics.RecordRun(inputTokens, outputTokens, toolCalls, duration.Milliseconds(), failed)
	if r.collectors != nil {
		r.collectors.recordRun(r.agentID, inputTokens, outputTokens, toolCalls, duration, failed)
	}
}

// RecordError increments the error counter without an associated run
// duration (guardrail blocks, abort paths).
func (r *Recorder) RecordError() {
	r.metrics.RecordError()
	if r.collectors != nil {
		r.collectors.recordError(r.agentID)
	}
}

// Snapshot returns the in-process metrics snapshot, what getMetrics()
// surfaces to callers (spec §3).
func (r *Recorder) Snapshot() core.MetricsSnapshot {
	return r.metrics.Snapshot()
}
