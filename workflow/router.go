package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/mantlecore/agentcore/core"
	"github.com/mantlecore/agentcore/model"
)

// DefaultRouterRetryLimit bounds re-routing attempts after a refusal
// (spec §4.10: "router_retry_limit (default 1)").
const DefaultRouterRetryLimit = 1

// refusalPrefix is the plain-text sentinel the router's selector LLM call
// uses to decline routing instead of naming a child, confirmed against
// the workflow_agents Router/Sequential examples.
const refusalPrefix = "REFUSE:"

// Router makes a dedicated LLM call naming the candidate children and
// their descriptions, selects exactly one, and runs it with the original
// task. A refusal re-routes up to RetryLimit times before giving up
// (spec §4.10).
type Router struct {
	name       string
	model      model.Model
	children   []Runner
	retryLimit int
}

// NewRouter constructs a Router over children, selecting among them via
// model on each Run call. retryLimit <= 0 uses DefaultRouterRetryLimit.
func NewRouter(name string, m model.Model, retryLimit int, children ...Runner) *Router {
	if retryLimit <= 0 {
		retryLimit = DefaultRouterRetryLimit
	}
	return &Router{name: name, model: m, children: children, retryLimit: retryLimit}
}

func (r *Router) Name() string { return r.name }
func (r *Router) Description() string {
	return "routes the task to exactly one of its children via a dedicated selection call"
}

// Run selects a child via the router's model and runs it with query,
// re-selecting up to RetryLimit times if the model refuses to route.
func (r *Router) Run(ctx context.Context, sessionID, query string) (string, error) {
	if len(r.children) == 0 {
		return "", core.NewError(core.ErrInternal, "router has no children to route to")
	}

	var lastRefusal string
	for attempt := 0; attempt <= r.retryLimit; attempt++ {
		decision, err := r.selectChild(ctx, query, lastRefusal)
		if err != nil {
			return "", err
		}
		if decision.refused {
			lastRefusal = decision.reason
			continue
		}

		child := r.lookup(decision.childName)
		if child == nil {
			lastRefusal = fmt.Sprintf("model selected unknown child %q", decision.childName)
			continue
		}
		return child.Run(ctx, sessionID, query)
	}

	return "", core.NewError(core.ErrLLMInvalidOutput, "router exhausted retries without a valid selection: "+lastRefusal)
}

func (r *Router) lookup(name string) Runner {
	for _, c := range r.children {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

type routingDecision struct {
	childName string
	refused   bool
	reason    string
}

// selectChild issues one dedicated model call asking it to pick exactly
// one candidate by name, or reply with "REFUSE: <reason>".
func (r *Router) selectChild(ctx context.Context, task, priorRefusal string) (routingDecision, error) {
	var b strings.Builder
	b.WriteString("You are a routing selector. Choose exactly one candidate agent to handle the task below, by replying with its name alone. ")
	b.WriteString("If none of the candidates can handle the task, reply with \"")
	b.WriteString(refusalPrefix)
	b.WriteString(" <reason>\" instead.\n\nCandidates:\n")
	for _, c := range r.children {
		b.WriteString("- ")
		b.WriteString(c.Name())
		b.WriteString(": ")
		b.WriteString(c.Description())
		b.WriteString("\n")
	}
	if priorRefusal != "" {
		b.WriteString("\nA previous routing attempt was refused: ")
		b.WriteString(priorRefusal)
		b.WriteString(". Reconsider the candidates above.\n")
	}
	b.WriteString("\nTask:\n")
	b.WriteString(task)

	req := model.Request{
		Instructions: b.String(),
		Contents: []core.Content{{
			Role:  string(core.RoleUser),
			Parts: []core.Part{core.TextPart{Text: task}},
		}},
	}

	respCh, errCh := r.model.Generate(ctx, req)
	var text string
	for {
		select {
		case resp, ok := <-respCh:
			if !ok {
				return parseRoutingDecision(text), nil
			}
			if !resp.Partial {
				text = textOf(resp.Content)
			}
		case err, ok := <-errCh:
			if ok && err != nil {
				return routingDecision{}, core.Wrap(core.ErrLLMUnavailable, err)
			}
		case <-ctx.Done():
			return routingDecision{}, core.NewError(core.ErrCancelled, "routing selection cancelled")
		}
	}
}

func parseRoutingDecision(text string) routingDecision {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, refusalPrefix) {
		reason := strings.TrimSpace(strings.TrimPrefix(trimmed, refusalPrefix))
		return routingDecision{refused: true, reason: reason}
	}
	return routingDecision{childName: trimmed}
}

func textOf(content core.Content) string {
	var b strings.Builder
	for _, p := range content.Parts {
		if tp, ok := p.(core.TextPart); ok {
			b.WriteString(tp.Text)
		}
	}
	return b.String()
}

// childCount is exposed for tests asserting Router wiring without
// reaching into the unexported children slice directly.
func (r *Router) childCount() int { return len(r.children) }
