// Package workflow implements the WorkflowOrchestrator: Sequential,
// Parallel, and Router composition over runnable agents (spec §4.10).
package workflow

import "context"

// Runner is the narrow view of an agent a workflow step composes over.
// tool.SubAgentRunner and scheduler.TaskRunner each already use a
// context-plus-query shape for the same reason: composing packages must
// not import the facade type that implements it.
type Runner interface {
	Name() string
	Description() string
	Run(ctx context.Context, sessionID, query string) (string, error)
}

// namedRunner adapts a bare Run func into a Runner, used by tests and by
// callers wiring a plain AgentCore.Run method without a custom wrapper type.
type namedRunner struct {
	name        string
	description string
	run         func(ctx context.Context, sessionID, query string) (string, error)
}

// NewRunner wraps run as a Runner named name with the given description,
// the description being what Router surfaces to its selector LLM call.
func NewRunner(name, description string, run func(ctx context.Context, sessionID, query string) (string, error)) Runner {
	return &namedRunner{name: name, description: description, run: run}
}

func (n *namedRunner) Name() string        { return n.name }
func (n *namedRunner) Description() string { return n.description }
func (n *namedRunner) Run(ctx context.Context, sessionID, query string) (string, error) {
	return n.run(ctx, sessionID, query)
}
