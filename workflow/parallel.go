package workflow

import (
	"context"
	"encoding/json"
	"sync"
)

// ParallelResult is one child's outcome from a Parallel run. Error is
// captured rather than propagated so sibling failures don't mask each
// other's results (spec §4.10: "join-all semantics").
type ParallelResult struct {
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Parallel launches all children concurrently and joins on every result,
// including errors, keyed by child name (spec §4.10).
type Parallel struct {
	name     string
	children []Runner
}

// NewParallel constructs a Parallel workflow over children, run concurrently.
func NewParallel(name string, children ...Runner) *Parallel {
	return &Parallel{name: name, children: children}
}

func (p *Parallel) Name() string { return p.name }
func (p *Parallel) Description() string {
	return "fans out to its children concurrently and joins all results"
}

// RunAll launches every child concurrently against the same query and
// blocks until all have returned, regardless of individual failures.
func (p *Parallel) RunAll(ctx context.Context, sessionID, query string) map[string]ParallelResult {
	results := make(map[string]ParallelResult, len(p.children))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, child := range p.children {
		wg.Add(1)
		go func(c Runner) {
			defer wg.Done()
			out, err := c.Run(ctx, sessionID, query)
			r := ParallelResult{Output: out}
			if err != nil {
				r.Error = err.Error()
			}
			mu.Lock()
			results[c.Name()] = r
			mu.Unlock()
		}(child)
	}

	wg.Wait()
	return results
}

// Run implements Runner by JSON-encoding the child → result mapping, so a
// Parallel step can be nested inside a Sequential chain. Callers that need
// the structured mapping directly should call RunAll instead.
func (p *Parallel) Run(ctx context.Context, sessionID, query string) (string, error) {
	results := p.RunAll(ctx, sessionID, query)
	encoded, err := json.Marshal(results)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}
