package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_RecordRun_UpdatesInProcessSnapshot(t *testing.T) {
	r := NewRecorder("agent-1", nil)
	r.RecordRun(100, 50, 2, 250*time.Millisecond, false)
	r.RecordRun(10, 5, 0, 50*time.Millisecond, true)

	snap := r.Snapshot()
	assert.Equal(t, int64(2), snap.Requests)
	assert.Equal(t, int64(110), snap.InputTokens)
	assert.Equal(t, int64(55), snap.OutputTokens)
	assert.Equal(t, int64(2), snap.ToolCalls)
	assert.Equal(t, int64(1), snap.Errors)
}

func TestRecorder_RecordRun_UpdatesPrometheusCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	collectors := NewCollectors(registry)
	r := NewRecorder("agent-2", collectors)

	r.RecordRun(100, 50, 3, time.Second, false)

	assert.Equal(t, 1, testutil.CollectAndCount(collectors.RequestsTotal))

	expected := `
		# HELP agentcore_requests_total Total number of completed agent runs by agent and status
		# TYPE agentcore_requests_total counter
		agentcore_requests_total{agent_id="agent-2",status="success"} 1
	`
	assert.NoError(t, testutil.CollectAndCompare(collectors.RequestsTotal, strings.NewReader(expected), "agentcore_requests_total"))

	toolsExpected := `
		# HELP agentcore_tool_calls_total Total number of tool calls dispatched by agent
		# TYPE agentcore_tool_calls_total counter
		agentcore_tool_calls_total{agent_id="agent-2"} 3
	`
	assert.NoError(t, testutil.CollectAndCompare(collectors.ToolCallsTotal, strings.NewReader(toolsExpected), "agentcore_tool_calls_total"))
}

func TestRecorder_RecordRun_FailureIncrementsErrorsCollector(t *testing.T) {
	registry := prometheus.NewRegistry()
	collectors := NewCollectors(registry)
	r := NewRecorder("agent-3", collectors)

	r.RecordRun(1, 1, 0, time.Millisecond, true)

	expected := `
		# HELP agentcore_errors_total Total number of errors recorded by agent
		# TYPE agentcore_errors_total counter
		agentcore_errors_total{agent_id="agent-3"} 1
	`
	assert.NoError(t, testutil.CollectAndCompare(collectors.ErrorsTotal, strings.NewReader(expected), "agentcore_errors_total"))
}

func TestRecorder_RecordError_WithoutCollectorsDoesNotPanic(t *testing.T) {
	r := NewRecorder("agent-4", nil)
	r.RecordError()
	snap := r.Snapshot()
	require.Equal(t, int64(1), snap.Errors)
}

func TestNewCollectors_RegistersDistinctMetricNamesPerRegistry(t *testing.T) {
	regA := prometheus.NewRegistry()
	regB := prometheus.NewRegistry()

	// Registering collectors with the same metric names against two
	// independent registries must not collide.
	require.NotPanics(t, func() {
		NewCollectors(regA)
		NewCollectors(regB)
	})
}
