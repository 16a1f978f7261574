package reasoning

import (
	"time"

	"github.com/mantlecore/agentcore/core"
	"github.com/mantlecore/agentcore/model"
)

// llmCallLogger is implemented by *logging.StructuredLogger; callModel logs
// through it when the configured Logger exposes it, alongside the
// agent_thought/model-level events every run already emits.
type llmCallLogger interface {
	LogLLMCall(model string, tokens int, dur time.Duration, success bool, err error)
}

// callModel drains one Generate call to its final, non-partial response,
// enforcing rc.Limiter's request_limit and emitting an agent_thought
// event per streamed partial chunk, grounded on flow/base.go's runOnce
// select loop over (respCh, errCh).
func (e *Engine) callModel(rc *core.RunContext, req model.Request) (content core.Content, usage *model.TokenUsage, err error) {
	if err = rc.Limiter.Increment(); err != nil {
		return core.Content{}, nil, core.Wrap(core.ErrBudgetExceeded, err)
	}

	start := time.Now()
	defer func() {
		logger, ok := rc.Logger().(llmCallLogger)
		if !ok {
			return
		}
		tokens := 0
		if usage != nil {
			tokens = usage.TotalTokens
		}
		logger.LogLLMCall(e.model.Info().Name, tokens, time.Since(start), err == nil, err)
	}()

	respCh, errCh := e.model.Generate(rc.Context, req)

	var final core.Content
	var genErr error

loop:
	for {
		select {
		case resp, ok := <-respCh:
			if !ok {
				break loop
			}
			if resp.Partial {
				_ = rc.EmitEvent(core.EventAgentThought, map[string]any{"partial": true, "text": textOf(resp.Content)})
				continue
			}
			final = resp.Content
			usage = resp.Usage
		case err, ok := <-errCh:
			if ok && err != nil {
				genErr = err
			}
			break loop
		case <-rc.Context.Done():
			err = core.NewError(core.ErrCancelled, "run cancelled during model call")
			return core.Content{}, nil, err
		}
	}

	if genErr != nil {
		err = core.Wrap(core.ErrLLMUnavailable, genErr)
		return core.Content{}, nil, err
	}
	return final, usage, nil
}
