package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mantlecore/agentcore/contextmgr"
	"github.com/mantlecore/agentcore/scheduler"
	"github.com/mantlecore/agentcore/summarizer"
)

func TestDefault_MatchesDocumentedSpecDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 15, cfg.MaxSteps)
	assert.Equal(t, 30, cfg.ToolCallTimeoutS)
	assert.Equal(t, 0, cfg.MaxExecutionTimeS)
	assert.Equal(t, 0, cfg.RequestLimit)
	assert.Equal(t, 0, cfg.TotalTokensLimit)

	assert.Equal(t, summarizer.ModeTokenBudget, cfg.MemoryConfig.Mode)
	assert.Equal(t, 8000, cfg.MemoryConfig.Value)
	assert.True(t, cfg.MemoryConfig.Summary.Enabled)
	assert.Equal(t, summarizer.RetentionKeep, cfg.MemoryConfig.Summary.RetentionPolicy)

	assert.True(t, cfg.ContextManagement.Enabled)
	assert.Equal(t, contextmgr.ModeTokenBudget, cfg.ContextManagement.Mode)
	assert.Equal(t, 75, cfg.ContextManagement.ThresholdPercent)
	assert.Equal(t, contextmgr.StrategyTruncate, cfg.ContextManagement.Strategy)
	assert.Equal(t, 4, cfg.ContextManagement.PreserveRecent)

	assert.True(t, cfg.ToolOffload.Enabled)
	assert.Equal(t, 500, cfg.ToolOffload.ThresholdTokens)
	assert.Equal(t, 150, cfg.ToolOffload.MaxPreviewTokens)

	assert.True(t, cfg.GuardrailConfig.Enabled)
	assert.False(t, cfg.GuardrailConfig.StrictMode)
	assert.Equal(t, 1.0, cfg.GuardrailConfig.Sensitivity)
	assert.Equal(t, 10000, cfg.GuardrailConfig.MaxInputLength)
	assert.True(t, cfg.GuardrailConfig.EnablePatternDetection)
	assert.True(t, cfg.GuardrailConfig.EnableHeuristicDetection)
	assert.True(t, cfg.GuardrailConfig.EnableEncodingDetection)
	assert.True(t, cfg.GuardrailConfig.EnableEntropyDetection)
	assert.True(t, cfg.GuardrailConfig.EnableSequentialDetection)
	assert.True(t, cfg.GuardrailConfig.EnableLengthDetection)

	assert.False(t, cfg.EnableAdvancedToolUse)
	assert.False(t, cfg.EnableAgentSkills)
	assert.Equal(t, MemoryToolBackendNone, cfg.MemoryToolBackend)
	assert.Equal(t, 3, cfg.MaxDelegationDepth)
	assert.Equal(t, 8, cfg.AdvancedToolUseTopK)
}

func TestParse_OverridesOnlyFieldsPresentInYAML(t *testing.T) {
	data := []byte(`
agent_name: researcher
max_steps: 25
guardrail_config:
  strict_mode: true
  sensitivity: 0.5
context_management:
  preserve_recent: 10
`)

	cfg, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, "researcher", cfg.AgentName)
	assert.Equal(t, 25, cfg.MaxSteps)
	assert.True(t, cfg.GuardrailConfig.StrictMode)
	assert.Equal(t, 0.5, cfg.GuardrailConfig.Sensitivity)
	assert.Equal(t, 10, cfg.ContextManagement.PreserveRecent)

	// Fields absent from the YAML keep their Default() value.
	assert.Equal(t, 30, cfg.ToolCallTimeoutS)
	assert.True(t, cfg.ContextManagement.Enabled)
	assert.Equal(t, 10000, cfg.GuardrailConfig.MaxInputLength)
}

func TestParse_RejectsMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("max_steps: [this is not an int"))
	require.Error(t, err)
}

func TestLoad_MissingFileReturnsError(t *testing.T) {
	_, err := Load("/nonexistent/path/agent_configuration.yaml")
	require.Error(t, err)
}

func TestReasoningConfig_TranslatesSecondsToDurationsAndCarriesOffload(t *testing.T) {
	cfg := Default()
	cfg.AgentName = "writer"
	cfg.ToolCallTimeoutS = 45
	cfg.MaxExecutionTimeS = 120

	rc := cfg.ReasoningConfig()
	assert.Equal(t, "writer", rc.AgentName)
	assert.Equal(t, 45*time.Second, rc.ToolCallTimeout)
	assert.Equal(t, 120*time.Second, rc.MaxExecutionTime)
	assert.True(t, rc.ToolOffload.Enabled)
	assert.Equal(t, 500, rc.ToolOffload.ThresholdTokens)
	assert.Equal(t, 3, rc.MaxDelegationDepth)
}

func TestContextManagerConfig_TranslatesFieldsVerbatim(t *testing.T) {
	cfg := Default()
	cfg.ContextManagement.Value = 12000
	cmCfg := cfg.ContextManagerConfig()

	assert.Equal(t, contextmgr.ModeTokenBudget, cmCfg.Mode)
	assert.Equal(t, 12000, cmCfg.Value)
	assert.Equal(t, 75, cmCfg.ThresholdPercent)
}

func TestSummarizerConfig_TranslatesMemoryConfigFields(t *testing.T) {
	cfg := Default()
	sc := cfg.SummarizerConfig()

	assert.True(t, sc.Enabled)
	assert.Equal(t, summarizer.ModeTokenBudget, sc.Mode)
	assert.Equal(t, summarizer.RetentionKeep, sc.Retention)
}

func TestGuardrailSettings_TranslatesAllowAndBlockLists(t *testing.T) {
	cfg := Default()
	cfg.GuardrailConfig.AllowlistPatterns = []string{"safe-.*"}
	cfg.GuardrailConfig.BlocklistPatterns = []string{"danger-.*"}

	gc := cfg.GuardrailSettings()
	assert.Equal(t, []string{"safe-.*"}, gc.AllowlistPatterns)
	assert.Equal(t, []string{"danger-.*"}, gc.BlocklistPatterns)
}

func TestSchedulerTaskConfigs_ResolvesQueryPerAgentAndTranslatesDurations(t *testing.T) {
	cfg := Default()
	cfg.BackgroundTasks = []BackgroundTaskConfig{
		{AgentID: "digest-bot", Cron: "0 9 * * *", TimeoutS: 20, MaxRetries: 2, RetryDelayS: 5, QueueSize: 4},
	}

	calls := cfg.SchedulerTaskConfigs(func(agentID string) scheduler.QueryFunc {
		return func(context.Context) (string, error) { return "run " + agentID, nil }
	})
	require.Len(t, calls, 1)
	assert.Equal(t, "digest-bot", calls[0].AgentID)
	assert.Equal(t, "0 9 * * *", calls[0].Cron)
	assert.Equal(t, 20*time.Second, calls[0].Timeout)
	assert.Equal(t, 2, calls[0].MaxRetries)
	assert.Equal(t, 5*time.Second, calls[0].RetryDelay)
	assert.Equal(t, 4, calls[0].QueueSize)

	query, err := calls[0].Query(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "run digest-bot", query)
}
