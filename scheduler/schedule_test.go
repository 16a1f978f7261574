package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCronExpr_RejectsMalformedExpression(t *testing.T) {
	err := validateCronExpr("not a cron expression")
	assert.Error(t, err)
}

func TestValidateCronExpr_AcceptsStandardFiveFieldExpression(t *testing.T) {
	err := validateCronExpr("*/5 * * * *")
	assert.NoError(t, err)
}

func TestNewTrigger_IntervalAdvancesByFixedDuration(t *testing.T) {
	trig, err := newTrigger(TaskConfig{Interval: 10 * time.Second})
	require.NoError(t, err)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	next := trig.next(now)
	assert.Equal(t, now.Add(10*time.Second), next)
}

func TestNewTrigger_CronComputesNextMinuteBoundary(t *testing.T) {
	trig, err := newTrigger(TaskConfig{Cron: "0 * * * *"})
	require.NoError(t, err)

	now := time.Date(2026, 1, 1, 3, 17, 30, 0, time.UTC)
	next := trig.next(now)
	assert.Equal(t, time.Date(2026, 1, 1, 4, 0, 0, 0, time.UTC), next)
}

func TestTaskConfig_Validate_RejectsBothIntervalAndCron(t *testing.T) {
	cfg := TaskConfig{AgentID: "a1", Query: StaticQuery("hi"), Interval: time.Second, Cron: "* * * * *"}
	assert.Error(t, cfg.Validate())
}

func TestTaskConfig_Validate_RejectsNeitherIntervalNorCron(t *testing.T) {
	cfg := TaskConfig{AgentID: "a1", Query: StaticQuery("hi")}
	assert.Error(t, cfg.Validate())
}

func TestTaskConfig_Validate_FillsDefaults(t *testing.T) {
	cfg := TaskConfig{AgentID: "a1", Query: StaticQuery("hi"), Interval: time.Second}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 1, cfg.QueueSize)
}
