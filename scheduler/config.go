// Package scheduler implements the BackgroundManager: one bounded worker
// per agent, driven by an interval ticker or a 5-field cron expression,
// that resolves and runs a query against a live agent on a fixed
// lifecycle (created, scheduled, running, paused, stopped, deleted),
// with retry/backoff on failure (spec §4.9).
package scheduler

import (
	"context"
	"fmt"
	"time"
)

// QueryFunc resolves the query text to run on a given tick. It is called
// fresh on every fire so a task can reference live state (clock, counters,
// upstream data) rather than a static string (supplemented from
// background-agent examples: the query is resolved against a live agent
// each tick, not baked in at registration time).
type QueryFunc func(ctx context.Context) (string, error)

// StaticQuery returns a QueryFunc that always resolves to text, for tasks
// that genuinely have nothing to compute per tick.
func StaticQuery(text string) QueryFunc {
	return func(context.Context) (string, error) { return text, nil }
}

// TaskConfig describes one background task bound to an agent (spec §3).
// Exactly one of Interval or Cron must be set.
type TaskConfig struct {
	AgentID   string
	SessionID string
	Query     QueryFunc

	Interval time.Duration
	Cron     string

	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	QueueSize  int
}

// Validate checks the exactly-one-of-interval-or-cron invariant and fills
// in defaults for zero-valued fields.
func (c *TaskConfig) Validate() error {
	if c.AgentID == "" {
		return fmt.Errorf("scheduler: task config requires an agent id")
	}
	if c.Query == nil {
		return fmt.Errorf("scheduler: task config requires a query resolver")
	}
	hasInterval := c.Interval > 0
	hasCron := c.Cron != ""
	if hasInterval == hasCron {
		return fmt.Errorf("scheduler: exactly one of interval or cron must be set")
	}
	if hasCron {
		if err := validateCronExpr(c.Cron); err != nil {
			return fmt.Errorf("scheduler: %w", err)
		}
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 1
	}
	return nil
}

// AgentState is one of the lifecycle states a scheduled agent worker can
// be in (spec §4.9).
type AgentState string

const (
	StateCreated   AgentState = "created"
	StateScheduled AgentState = "scheduled"
	StateRunning   AgentState = "running"
	StatePaused    AgentState = "paused"
	StateStopped   AgentState = "stopped"
	StateDeleted   AgentState = "deleted"
)
