package workflow

import (
	"context"
	"fmt"
)

// Sequential threads the output of step i as the input to step i+1; a
// terminal error from any step aborts the chain (spec §4.10).
type Sequential struct {
	name  string
	steps []Runner
}

// NewSequential constructs a Sequential workflow over steps, run in order.
func NewSequential(name string, steps ...Runner) *Sequential {
	return &Sequential{name: name, steps: steps}
}

func (s *Sequential) Name() string        { return s.name }
func (s *Sequential) Description() string { return "runs its steps in order, chaining outputs" }

// Run executes each step with the prior step's output as its query,
// starting from input for the first step.
func (s *Sequential) Run(ctx context.Context, sessionID, input string) (string, error) {
	output := input
	for _, step := range s.steps {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		out, err := step.Run(ctx, sessionID, output)
		if err != nil {
			return "", fmt.Errorf("workflow %s: step %s failed: %w", s.name, step.Name(), err)
		}
		output = out
	}
	return output, nil
}
