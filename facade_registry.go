package agentcore

import (
	"context"
	"fmt"
	"sync"

	"github.com/mantlecore/agentcore/scheduler"
	"github.com/mantlecore/agentcore/workflow"
)

// Registry holds a set of AgentCore instances keyed by agent ID. It
// satisfies scheduler.TaskRunner directly, letting a single
// scheduler.Manager drive background tasks across every agent the
// registry knows about by resolving cfg.AgentID on each tick (spec §4.9).
type Registry struct {
	mu     sync.RWMutex
	agents map[string]*AgentCore
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]*AgentCore)}
}

// Register adds core under its own AgentID, replacing any prior entry with
// the same ID.
func (r *Registry) Register(core *AgentCore) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[core.agentID] = core
}

// Get returns the registered AgentCore for agentID, if any.
func (r *Registry) Get(agentID string) (*AgentCore, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	core, ok := r.agents[agentID]
	return core, ok
}

// Run implements scheduler.TaskRunner by dispatching to the named agent's
// Run, discarding the metrics snapshot since the scheduler only needs the
// answer text (spec §4.9 background task execution).
func (r *Registry) Run(ctx context.Context, agentID, sessionID, query string) (string, error) {
	core, ok := r.Get(agentID)
	if !ok {
		return "", fmt.Errorf("agentcore: no agent registered with id %q", agentID)
	}
	result, err := core.Run(ctx, query, sessionID)
	return result.Response, err
}

var _ scheduler.TaskRunner = (*Registry)(nil)

// AsWorkflowRunner adapts an AgentCore to workflow.Runner (spec §4.10), so
// it can sit directly inside a Sequential/Parallel/Router composition.
// name and description are the ones shown to an LLM router when choosing
// among candidate children.
func (a *AgentCore) AsWorkflowRunner(name, description string) workflow.Runner {
	return workflow.NewRunner(name, description, func(ctx context.Context, sessionID, query string) (string, error) {
		result, err := a.Run(ctx, query, sessionID)
		return result.Response, err
	})
}
