// Package reasoning implements the ReasoningEngine, the ReAct-style state
// machine that drives one agent's observe-think-act loop: it screens input
// through the Guardrail, shapes the prompt through the ContextManager,
// calls the LLMClient, parses the response into either a final answer or a
// batch of tool calls, dispatches tool calls concurrently, and loops until
// termination (spec §4.8).
package reasoning

import "time"

// ToolOffloadConfig controls when a tool result is diverted to the
// ArtifactStore rather than inlined into the next prompt (spec §8
// `tool_offload`).
type ToolOffloadConfig struct {
	Enabled          bool
	ThresholdTokens  int
	MaxPreviewTokens int
}

// DefaultToolOffloadConfig matches spec §8's documented defaults.
func DefaultToolOffloadConfig() ToolOffloadConfig {
	return ToolOffloadConfig{Enabled: true, ThresholdTokens: 500, MaxPreviewTokens: 150}
}

// Config configures one Engine instance (spec §8, agent-level fields).
type Config struct {
	AgentName string

	SystemInstruction string

	MaxSteps int // step >= MaxSteps aborts the run (spec §4.8 termination (b))

	ToolCallTimeout  time.Duration // per-call dispatch timeout; 0 means no timer armed
	MaxExecutionTime time.Duration // 0 means unbounded; enforced against rc.Deadline by the caller
	TotalTokensLimit int           // 0 means unbounded

	// RequestLimit (spec §8 request_limit) is enforced by rc.Limiter,
	// constructed by the caller with the configured maxModelCalls; the
	// engine only calls rc.Limiter.Increment() per LLM call.

	FailFast bool // a tool error aborts the run instead of being reported to the model

	EnableAdvancedToolUse bool // narrows the injected catalog to BM25 top-k
	AdvancedToolUseTopK   int

	ToolOffload ToolOffloadConfig

	MaxDelegationDepth int // sub_agent cycle-prevention limit (spec §9)
}

// DefaultConfig matches spec §8's documented agent defaults.
func DefaultConfig() Config {
	return Config{
		MaxSteps:            15,
		ToolCallTimeout:     30 * time.Second,
		ToolOffload:         DefaultToolOffloadConfig(),
		AdvancedToolUseTopK: 8,
		MaxDelegationDepth:  3,
	}
}
