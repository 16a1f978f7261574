// Package config provides the declarative AgentConfig record (spec §6):
// a single YAML-loadable struct enumerating every agent-level option,
// with defaults taken from Default() (Parse overlays the YAML onto them,
// so omitted keys keep their defaults) so `agent_configuration.yaml`-style
// deployments are representable without code changes (SPEC_FULL §6).
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mantlecore/agentcore/contextmgr"
	"github.com/mantlecore/agentcore/guardrail"
	"github.com/mantlecore/agentcore/reasoning"
	"github.com/mantlecore/agentcore/scheduler"
	"github.com/mantlecore/agentcore/summarizer"
)

// MemoryToolBackend selects how the memory_tool surface (if any) is
// implemented. Only "none" is currently wired to a real backend; "local"
// is accepted and round-trips through (de)serialization for forward
// compatibility with a future filesystem-backed memory tool, but has no
// implementation yet — no component in this module currently consumes it
// beyond carrying it through AgentConfig.
type MemoryToolBackend string

const (
	MemoryToolBackendNone  MemoryToolBackend = "none"
	MemoryToolBackendLocal MemoryToolBackend = "local"
)

// MemoryConfig mirrors spec §6's `memory_config.*` fields.
type MemoryConfig struct {
	Mode    summarizer.Mode `yaml:"mode"`
	Value   int             `yaml:"value"`
	Summary SummaryConfig   `yaml:"summary"`
}

// SummaryConfig mirrors spec §6's `memory_config.summary.*` fields.
type SummaryConfig struct {
	Enabled         bool                       `yaml:"enabled"`
	RetentionPolicy summarizer.RetentionPolicy `yaml:"retention_policy"`
}

// ContextManagementConfig mirrors spec §6's `context_management.*` fields.
type ContextManagementConfig struct {
	Enabled          bool                `yaml:"enabled"`
	Mode             contextmgr.Mode     `yaml:"mode"`
	Value            int                 `yaml:"value"`
	ThresholdPercent int                 `yaml:"threshold_percent"`
	Strategy         contextmgr.Strategy `yaml:"strategy"`
	PreserveRecent   int                 `yaml:"preserve_recent"`
}

// ToolOffloadConfig mirrors spec §6's `tool_offload.*` fields.
type ToolOffloadConfig struct {
	Enabled          bool   `yaml:"enabled"`
	ThresholdTokens  int    `yaml:"threshold_tokens"`
	MaxPreviewTokens int    `yaml:"max_preview_tokens"`
	StorageDir       string `yaml:"storage_dir,omitempty"`
}

// GuardrailConfig mirrors spec §6's `guardrail_config.*` fields.
type GuardrailConfig struct {
	Enabled                   bool     `yaml:"enabled"`
	StrictMode                bool     `yaml:"strict_mode"`
	Sensitivity               float64  `yaml:"sensitivity"`
	MaxInputLength            int      `yaml:"max_input_length"`
	EnablePatternDetection    bool     `yaml:"enable_pattern_detection"`
	EnableHeuristicDetection  bool     `yaml:"enable_heuristic_detection"`
	EnableEncodingDetection   bool     `yaml:"enable_encoding_detection"`
	EnableEntropyDetection    bool     `yaml:"enable_entropy_detection"`
	EnableSequentialDetection bool     `yaml:"enable_sequential_detection"`
	EnableLengthDetection     bool     `yaml:"enable_length_detection"`
	AllowlistPatterns         []string `yaml:"allowlist_patterns,omitempty"`
	BlocklistPatterns         []string `yaml:"blocklist_patterns,omitempty"`
}

// BackgroundTaskConfig mirrors spec §3/§6's background task config,
// loadable alongside the agent's own AgentConfig.
type BackgroundTaskConfig struct {
	AgentID     string        `yaml:"agent_id"`
	SessionID   string        `yaml:"session_id,omitempty"`
	Interval    time.Duration `yaml:"interval,omitempty"`
	Cron        string        `yaml:"cron,omitempty"`
	TimeoutS    int           `yaml:"timeout_s"`
	MaxRetries  int           `yaml:"max_retries"`
	RetryDelayS int           `yaml:"retry_delay_s"`
	QueueSize   int           `yaml:"queue_size"`
}

// AgentConfig is the single declarative agent config record (spec §6).
// Field names and defaults match the spec's enumerated option list
// exactly; YAML tags use the spec's own snake_case option names so a
// hand-written `agent_configuration.yaml` deploys unmodified.
type AgentConfig struct {
	AgentName         string `yaml:"agent_name"`
	SystemInstruction string `yaml:"system_instruction"`

	MaxSteps           int `yaml:"max_steps"`
	ToolCallTimeoutS   int `yaml:"tool_call_timeout_s"`
	MaxExecutionTimeS  int `yaml:"max_execution_time_s"`
	RequestLimit       int `yaml:"request_limit"`
	TotalTokensLimit   int `yaml:"total_tokens_limit"`

	MemoryConfig      MemoryConfig            `yaml:"memory_config"`
	ContextManagement ContextManagementConfig `yaml:"context_management"`
	ToolOffload       ToolOffloadConfig       `yaml:"tool_offload"`
	GuardrailConfig   GuardrailConfig         `yaml:"guardrail_config"`

	EnableAdvancedToolUse bool              `yaml:"enable_advanced_tool_use"`
	EnableAgentSkills     bool              `yaml:"enable_agent_skills"`
	MemoryToolBackend     MemoryToolBackend `yaml:"memory_tool_backend"`

	MaxDelegationDepth  int `yaml:"max_delegation_depth,omitempty"`
	AdvancedToolUseTopK int `yaml:"advanced_tool_use_top_k,omitempty"`

	BackgroundTasks []BackgroundTaskConfig `yaml:"background_tasks,omitempty"`
}

// Default returns an AgentConfig with every default spec §6 parenthesizes.
func Default() AgentConfig {
	return AgentConfig{
		MaxSteps:          15,
		ToolCallTimeoutS:  30,
		MaxExecutionTimeS: 0,
		RequestLimit:      0,
		TotalTokensLimit:  0,

		MemoryConfig: MemoryConfig{
			Mode:  summarizer.ModeTokenBudget,
			Value: 8000,
			Summary: SummaryConfig{
				Enabled:         true,
				RetentionPolicy: summarizer.RetentionKeep,
			},
		},

		ContextManagement: ContextManagementConfig{
			Enabled:          true,
			Mode:             contextmgr.ModeTokenBudget,
			Value:            8000,
			ThresholdPercent: 75,
			Strategy:         contextmgr.StrategyTruncate,
			PreserveRecent:   4,
		},

		ToolOffload: ToolOffloadConfig{
			Enabled:          true,
			ThresholdTokens:  500,
			MaxPreviewTokens: 150,
		},

		GuardrailConfig: GuardrailConfig{
			Enabled:                   true,
			StrictMode:                false,
			Sensitivity:               1.0,
			MaxInputLength:            10000,
			EnablePatternDetection:    true,
			EnableHeuristicDetection:  true,
			EnableEncodingDetection:   true,
			EnableEntropyDetection:    true,
			EnableSequentialDetection: true,
			EnableLengthDetection:     true,
		},

		EnableAdvancedToolUse: false,
		EnableAgentSkills:     false,
		MemoryToolBackend:     MemoryToolBackendNone,

		MaxDelegationDepth:  reasoning.DefaultConfig().MaxDelegationDepth,
		AdvancedToolUseTopK: reasoning.DefaultConfig().AdvancedToolUseTopK,
	}
}

// Load reads and parses an AgentConfig from a YAML file at path, starting
// from Default() so fields absent from the file keep their spec default
// rather than zero-valuing.
func Load(path string) (AgentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return AgentConfig{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes raw YAML bytes into an AgentConfig, starting from
// Default().
func Parse(data []byte) (AgentConfig, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return AgentConfig{}, fmt.Errorf("config: parse yaml: %w", err)
	}
	return cfg, nil
}

// ReasoningConfig translates the agent-level fields into reasoning.Config,
// the ReasoningEngine's constructor input.
func (c AgentConfig) ReasoningConfig() reasoning.Config {
	return reasoning.Config{
		AgentName:             c.AgentName,
		SystemInstruction:     c.SystemInstruction,
		MaxSteps:              c.MaxSteps,
		ToolCallTimeout:       time.Duration(c.ToolCallTimeoutS) * time.Second,
		MaxExecutionTime:      time.Duration(c.MaxExecutionTimeS) * time.Second,
		TotalTokensLimit:      c.TotalTokensLimit,
		EnableAdvancedToolUse: c.EnableAdvancedToolUse,
		AdvancedToolUseTopK:   c.AdvancedToolUseTopK,
		ToolOffload: reasoning.ToolOffloadConfig{
			Enabled:          c.ToolOffload.Enabled,
			ThresholdTokens:  c.ToolOffload.ThresholdTokens,
			MaxPreviewTokens: c.ToolOffload.MaxPreviewTokens,
		},
		MaxDelegationDepth: c.MaxDelegationDepth,
	}
}

// ContextManagerConfig translates the context_management.* fields into
// contextmgr.Config.
func (c AgentConfig) ContextManagerConfig() contextmgr.Config {
	return contextmgr.Config{
		Enabled:          c.ContextManagement.Enabled,
		Mode:             c.ContextManagement.Mode,
		Value:            c.ContextManagement.Value,
		ThresholdPercent: c.ContextManagement.ThresholdPercent,
		Strategy:         c.ContextManagement.Strategy,
		PreserveRecent:   c.ContextManagement.PreserveRecent,
	}
}

// SummarizerConfig translates the memory_config.* fields into
// summarizer.Config.
func (c AgentConfig) SummarizerConfig() summarizer.Config {
	return summarizer.Config{
		Enabled:   c.MemoryConfig.Summary.Enabled,
		Mode:      c.MemoryConfig.Mode,
		Value:     c.MemoryConfig.Value,
		Retention: c.MemoryConfig.Summary.RetentionPolicy,
	}
}

// GuardrailSettings translates the guardrail_config.* fields into
// guardrail.Config.
func (c AgentConfig) GuardrailSettings() guardrail.Config {
	return guardrail.Config{
		Enabled:                   c.GuardrailConfig.Enabled,
		StrictMode:                c.GuardrailConfig.StrictMode,
		Sensitivity:               c.GuardrailConfig.Sensitivity,
		MaxInputLength:            c.GuardrailConfig.MaxInputLength,
		EnablePatternDetection:    c.GuardrailConfig.EnablePatternDetection,
		EnableHeuristicDetection:  c.GuardrailConfig.EnableHeuristicDetection,
		EnableEncodingDetection:   c.GuardrailConfig.EnableEncodingDetection,
		EnableEntropyDetection:    c.GuardrailConfig.EnableEntropyDetection,
		EnableSequentialDetection: c.GuardrailConfig.EnableSequentialDetection,
		EnableLengthDetection:     c.GuardrailConfig.EnableLengthDetection,
		AllowlistPatterns:         c.GuardrailConfig.AllowlistPatterns,
		BlocklistPatterns:         c.GuardrailConfig.BlocklistPatterns,
	}
}

// SchedulerTaskConfigs translates each background_tasks[] entry into a
// scheduler.TaskConfig. query is resolved by the caller per agent ID
// since the YAML record only carries static scheduling parameters, not a
// live query resolver function (spec §6 "Background task config").
func (c AgentConfig) SchedulerTaskConfigs(queryFor func(agentID string) scheduler.QueryFunc) []scheduler.TaskConfig {
	out := make([]scheduler.TaskConfig, 0, len(c.BackgroundTasks))
	for _, bt := range c.BackgroundTasks {
		out = append(out, scheduler.TaskConfig{
			AgentID:    bt.AgentID,
			SessionID:  bt.SessionID,
			Query:      queryFor(bt.AgentID),
			Interval:   bt.Interval,
			Cron:       bt.Cron,
			Timeout:    time.Duration(bt.TimeoutS) * time.Second,
			MaxRetries: bt.MaxRetries,
			RetryDelay: time.Duration(bt.RetryDelayS) * time.Second,
			QueueSize:  bt.QueueSize,
		})
	}
	return out
}
