// Package metrics wraps core.AgentMetrics with Prometheus collectors so
// per-agent counters are both queryable in-process (AgentCore.getMetrics)
// and scrapeable over /metrics (spec §3, SPEC_FULL "Metrics/observability
// cookbook" supplement).
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// statusLabel renders failed as the status label value Prometheus queries
// commonly group by.
func statusLabel(failed bool) string {
	if failed {
		return "error"
	}
	return "success"
}

// Collectors holds the Prometheus instruments shared by every agent's
// Recorder. Construct once per process (or per registry in tests) and
// pass the same *Collectors to every Recorder so label cardinality stays
// bounded by agent_id rather than by Recorder instance.
type Collectors struct {
	RequestsTotal  *prometheus.CounterVec
	TokensTotal    *prometheus.CounterVec
	ToolCallsTotal *prometheus.CounterVec
	ErrorsTotal    *prometheus.CounterVec
	RunDuration    *prometheus.HistogramVec
}

// NewCollectors registers a fresh set of collectors against reg. Pass
// prometheus.DefaultRegisterer in production, or a prometheus.NewRegistry()
// in tests to keep test runs isolated from each other.
func NewCollectors(reg prometheus.Registerer) *Collectors {
	factory := promauto.With(reg)
	return &Collectors{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agentcore_requests_total",
			Help: "Total number of completed agent runs by agent and status",
		}, []string{"agent_id", "status"}),

		TokensTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agentcore_tokens_total",
			Help: "Total number of tokens consumed by agent and direction",
		}, []string{"agent_id", "type"}),

		ToolCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agentcore_tool_calls_total",
			Help: "Total number of tool calls dispatched by agent",
		}, []string{"agent_id"}),

		ErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agentcore_errors_total",
			Help: "Total number of errors recorded by agent",
		}, []string{"agent_id"}),

		RunDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agentcore_run_duration_seconds",
			Help:    "Duration of a complete reasoning run in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"agent_id"}),
	}
}

// recordRun updates every collector for one completed run.
func (c *Collectors) recordRun(agentID string, inputTokens, outputTokens, toolCalls int, duration time.Duration, failed bool) {
	c.RequestsTotal.WithLabelValues(agentID, statusLabel(failed)).Inc()
	if inputTokens > 0 {
		c.TokensTotal.WithLabelValues(agentID, "input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		c.TokensTotal.WithLabelValues(agentID, "output").Add(float64(outputTokens))
	}
	if toolCalls > 0 {
		c.ToolCallsTotal.WithLabelValues(agentID).Add(float64(toolCalls))
	}
	c.RunDuration.WithLabelValues(agentID).Observe(duration.Seconds())
	if failed {
		c.ErrorsTotal.WithLabelValues(agentID).Inc()
	}
}

func (c *Collectors) recordError(agentID string) {
	c.ErrorsTotal.WithLabelValues(agentID).Inc()
}
