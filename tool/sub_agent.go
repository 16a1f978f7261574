package tool

import (
	"github.com/mantlecore/agentcore/core"
)

// DefaultMaxDelegationDepth is the default cycle-prevention limit on
// sub_agent delegation chains (spec §9 "Cyclic agent graph").
const DefaultMaxDelegationDepth = 3

// SubAgentRunner runs one bounded reasoning loop for a child agent to
// completion and returns its final answer. The reasoning engine
// implements this; the tool package only depends on the narrow interface
// to avoid an import cycle (reasoning depends on tool, not vice versa).
type SubAgentRunner interface {
	Run(rc *core.RunContext, input string) (string, error)
}

// subAgentTool exposes one child agent as a ToolKindSubAgent entry (spec
// §4.9: "A sub_agent tool invocation opens a new session in the child
// agent, runs its own bounded loop, and returns its final answer (or
// error) as the tool result").
type subAgentTool struct {
	agentName string
	descr     string
	runner    SubAgentRunner
	maxDepth  int
}

// NewSubAgentTool wraps runner (a child agent's reasoning engine) as a
// tool the parent's registry can dispatch to. maxDepth <= 0 uses
// DefaultMaxDelegationDepth.
func NewSubAgentTool(agentName, description string, runner SubAgentRunner, maxDepth int) Tool {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDelegationDepth
	}
	return &subAgentTool{agentName: agentName, descr: description, runner: runner, maxDepth: maxDepth}
}

func (t *subAgentTool) Name() string        { return t.agentName }
func (t *subAgentTool) Description() string { return t.descr }

func (t *subAgentTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"task": map[string]any{"type": "string", "description": "The task or question to delegate to this sub-agent"},
		},
		"required": []string{"task"},
	}
}

func (t *subAgentTool) Call(tc *core.ToolContext, args map[string]any) (any, error) {
	if tc.Depth() >= t.maxDepth {
		return nil, &ToolError{
			Tool:    t.agentName,
			Message: "sub-agent delegation depth limit reached",
			Code:    string(core.ErrDepthExceeded),
		}
	}

	task, _ := args["task"].(string)

	if err := tc.EmitEvent(core.EventSubAgentStarted, map[string]any{"child_agent_id": t.agentName}); err != nil {
		tc.Logger().Warn("sub_agent.emit_started_failed", "error", err.Error())
	}

	parent := tc.InternalRunContext()
	child := parent.NewChildContext(t.agentName, core.NewID(), core.NewID())

	answer, err := t.runner.Run(child, task)
	if err != nil {
		_ = tc.EmitEvent(core.EventSubAgentError, map[string]any{"child_agent_id": t.agentName, "error": err.Error()})
		return nil, &ToolError{Tool: t.agentName, Message: err.Error(), Code: "EXECUTION_ERROR"}
	}

	_ = tc.EmitEvent(core.EventSubAgentResult, map[string]any{"child_agent_id": t.agentName, "result": answer})
	return map[string]any{"result": answer}, nil
}
