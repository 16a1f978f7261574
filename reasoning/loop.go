package reasoning

import (
	"fmt"
	"time"

	"github.com/mantlecore/agentcore/core"
	"github.com/mantlecore/agentcore/guardrail"
)

// runLoop drives one full run(query, session_id) through the state
// machine (spec §4.8):
//
//	START -> GUARD -> LOAD_HISTORY -> PLAN_CONTEXT -> LLM_CALL -> PARSE
//	PARSE -> (FINAL_ANSWER | TOOL_DISPATCH | ABORT)
//	TOOL_DISPATCH -> WAIT_TOOLS -> INTEGRATE -> PLAN_CONTEXT   (loop)
//	FINAL_ANSWER -> PERSIST -> METRICS -> END
//	ABORT -> PERSIST(error) -> METRICS -> END
//
// It returns the final (or best-effort abort) answer text alongside a
// non-nil *core.Error when the run did not reach FINAL_ANSWER.
func (e *Engine) runLoop(rc *core.RunContext, input string) (string, error) {
	startedAt := time.Now()

	if e.guardrail != nil {
		if result := e.guardrail.Screen(input); result.Blocked {
			return e.abortGuardrail(rc, input, result)
		}
	}

	_ = rc.EmitEvent(core.EventUserMessage, map[string]any{"input": input})
	if _, err := rc.AppendMessage(userMessage(input)); err != nil {
		return e.abort(rc, startedAt, 0, core.Wrap(core.ErrStoreUnavailable, err))
	}

	inputTokens := core.EstimateTokens(input)
	outputTokens := 0
	toolCallCount := 0

	for step := 0; ; step++ {
		if step >= e.cfg.MaxSteps {
			return e.abort(rc, startedAt, toolCallCount, core.NewError(core.ErrBudgetExceeded, fmt.Sprintf("exceeded max_steps=%d", e.cfg.MaxSteps)))
		}
		if !rc.Deadline.IsZero() && time.Now().After(rc.Deadline) {
			return e.abort(rc, startedAt, toolCallCount, core.NewError(core.ErrBudgetExceeded, "deadline exceeded"))
		}
		if e.cfg.TotalTokensLimit > 0 && inputTokens+outputTokens > e.cfg.TotalTokensLimit {
			return e.abort(rc, startedAt, toolCallCount, core.NewError(core.ErrBudgetExceeded, fmt.Sprintf("exceeded total_tokens_limit=%d", e.cfg.TotalTokensLimit)))
		}

		history, err := rc.LoadHistory(core.MessageFilter{ActiveOnly: true})
		if err != nil {
			return e.abort(rc, startedAt, toolCallCount, core.Wrap(core.ErrStoreUnavailable, err))
		}
		shaped := e.shapeContext(rc, history)

		req := e.buildRequest(shaped, input)
		content, usage, err := e.callModel(rc, req)
		if err != nil {
			if cerr, ok := err.(*core.Error); ok {
				return e.abort(rc, startedAt, toolCallCount, cerr)
			}
			return e.abort(rc, startedAt, toolCallCount, core.Wrap(core.ErrLLMUnavailable, err))
		}
		if usage != nil {
			inputTokens += usage.PromptTokens
			outputTokens += usage.CompletionTokens
		}

		calls := functionCalls(content)
		if len(calls) == 0 {
			answer := textOf(content)
			return e.finalAnswer(rc, startedAt, inputTokens, outputTokens, toolCallCount, answer)
		}

		assistantMsg := assistantToolCallMessage(textOf(content), calls)
		if _, err := rc.AppendMessage(assistantMsg); err != nil {
			return e.abort(rc, startedAt, toolCallCount, core.Wrap(core.ErrStoreUnavailable, err))
		}

		toolCallCount += len(calls)
		results := e.dispatchTools(rc, calls)

		if e.cfg.FailFast {
			if failed := firstFailure(results); failed != nil {
				return e.abortAfterPersist(rc, startedAt, toolCallCount, results, failed)
			}
		}

		for _, res := range results {
			if _, err := rc.AppendMessage(res); err != nil {
				return e.abort(rc, startedAt, toolCallCount, core.Wrap(core.ErrStoreUnavailable, err))
			}
		}

		e.maybeSummarize(rc)
	}
}

// perfLogger is implemented by *logging.StructuredLogger; shapeContext logs
// through it when the configured Logger exposes it, timing the per-turn
// context-shaping pass alongside the context_truncated event it may emit.
type perfLogger interface {
	LogPerformance(op string, dur time.Duration, metrics map[string]interface{})
}

// shapeContext runs the ContextManager over history and, if it produced a
// rolling summary, persists it and retires the superseded messages (spec
// §4.6). Returns the view to build the prompt from.
func (e *Engine) shapeContext(rc *core.RunContext, history []core.Message) []core.Message {
	if e.contextMgr == nil {
		return history
	}

	shapeStart := time.Now()
	result := e.contextMgr.Shape(rc.Context, e.cfg.SystemInstruction, history)
	if logger, ok := rc.Logger().(perfLogger); ok {
		logger.LogPerformance("reasoning.shape_context", time.Since(shapeStart), map[string]interface{}{
			"history_len": len(history),
			"dropped":     len(result.Dropped),
		})
	}
	if result.SummaryMessage != nil {
		if _, err := rc.AppendMessage(*result.SummaryMessage); err != nil {
			rc.Logger().Warn("reasoning.context_summary_persist_failed", "error", err.Error())
		} else if rc.Memory != nil {
			if err := rc.Memory.UpdateActive(rc.SessionID, idsOf(result.Dropped), false); err != nil {
				rc.Logger().Warn("reasoning.context_summary_retire_failed", "error", err.Error())
			}
		}
	}
	if len(result.Dropped) > 0 {
		_ = rc.EmitEvent(core.EventContextTruncated, map[string]any{
			"dropped":          len(result.Dropped),
			"summarize_failed": result.SummarizeFailed,
		})
	}
	return result.Active
}

// maybeSummarize runs the post-persist MemorySummarizer for this session,
// if one is configured, and emits summary_created when it rolls anything
// up (spec §4.7).
func (e *Engine) maybeSummarize(rc *core.RunContext) {
	if e.summarizer == nil {
		return
	}
	summary, err := e.summarizer.MaybeSummarize(rc.Context, rc.SessionID)
	if err != nil {
		rc.Logger().Warn("reasoning.summarizer_failed", "error", err.Error())
		return
	}
	if summary != nil {
		_ = rc.EmitEvent(core.EventSummaryCreated, map[string]any{"message_id": summary.ID})
	}
}

// finalAnswer persists the model's final answer, emits final_answer, and
// records a successful run.
func (e *Engine) finalAnswer(rc *core.RunContext, startedAt time.Time, inputTokens, outputTokens, toolCalls int, answer string) (string, error) {
	if _, err := rc.AppendMessage(assistantMessage(answer)); err != nil {
		return e.abort(rc, startedAt, toolCalls, core.Wrap(core.ErrStoreUnavailable, err))
	}
	_ = rc.EmitEvent(core.EventFinalAnswer, map[string]any{"text": answer})
	e.maybeSummarize(rc)
	e.recordMetrics(rc, startedAt, inputTokens, outputTokens, toolCalls, false)
	return answer, nil
}

// abort persists a best-effort assistant message describing cerr, emits
// the matching terminal event, and records a failed run (spec §4.8 ABORT,
// §7 "Budget/deadline/step overflows are fatal to the run").
func (e *Engine) abort(rc *core.RunContext, startedAt time.Time, toolCalls int, cerr *core.Error) (string, error) {
	msg := abortMessage(cerr)
	_, _ = rc.AppendMessage(assistantMessage(msg))

	eventType := core.EventTaskFailed
	if cerr.Kind == core.ErrCancelled {
		eventType = core.EventCancelled
	}
	_ = rc.EmitEvent(eventType, map[string]any{"error": cerr.Error(), "kind": string(cerr.Kind)})

	e.recordMetrics(rc, startedAt, 0, 0, toolCalls, true)
	return msg, cerr
}

// abortAfterPersist persists in-flight tool results before aborting, used
// by the fail_fast path where a tool error must still be recorded in
// history before the run ends.
func (e *Engine) abortAfterPersist(rc *core.RunContext, startedAt time.Time, toolCalls int, results []core.Message, failed *core.Error) (string, error) {
	for _, res := range results {
		_, _ = rc.AppendMessage(res)
	}
	return e.abort(rc, startedAt, toolCalls, failed)
}

// abortGuardrail handles a blocked input: the turn is persisted (so the
// refusal is visible in history) but never reaches the model (spec §4.5).
func (e *Engine) abortGuardrail(rc *core.RunContext, input string, result guardrail.Result) (string, error) {
	_, _ = rc.AppendMessage(userMessage(input))
	refusal := guardrail.RefusalResponse
	_, _ = rc.AppendMessage(assistantMessage(refusal))

	kind := result.Kind
	if kind == "" {
		kind = core.ErrGuardrailBlocked
	}

	_ = rc.EmitEvent(core.EventGuardrailBlocked, map[string]any{
		"threat":    result.Threat,
		"kind":      string(kind),
		"detectors": detectorReasons(result.Detectors),
	})
	e.recordMetrics(rc, time.Now(), 0, 0, 0, true)
	return refusal, core.NewError(kind, "input blocked by guardrail")
}

// flowLogger is implemented by *logging.StructuredLogger; recordMetrics
// logs through it when the configured Logger exposes it, alongside the
// in-process metrics.Recorder every run already updates.
type flowLogger interface {
	LogFlowExecution(flow string, steps int, dur time.Duration, success bool, err error)
}

func (e *Engine) recordMetrics(rc *core.RunContext, startedAt time.Time, inputTokens, outputTokens, toolCalls int, failed bool) {
	dur := time.Since(startedAt)
	if logger, ok := rc.Logger().(flowLogger); ok {
		var err error
		if failed {
			err = fmt.Errorf("run did not reach a final answer")
		}
		logger.LogFlowExecution(e.cfg.AgentName, toolCalls, dur, !failed, err)
	}
	if e.metrics == nil {
		return
	}
	e.metrics.RecordRun(inputTokens, outputTokens, toolCalls, dur.Milliseconds(), failed)
}

// firstFailure returns the first tool error recorded in results, or nil
// if every call succeeded (fail_fast support, spec §4.8).
func firstFailure(results []core.Message) *core.Error {
	for _, msg := range results {
		errText, _ := msg.Metadata["error"].(string)
		if errText == "" {
			continue
		}
		kind, _ := msg.Metadata["kind"].(string)
		if kind == "" {
			kind = string(core.ErrToolError)
		}
		return core.NewError(core.ErrorKind(kind), errText)
	}
	return nil
}

func abortMessage(cerr *core.Error) string {
	switch cerr.Kind {
	case core.ErrBudgetExceeded:
		return "I wasn't able to finish within the configured budget (" + cerr.Message + ")."
	case core.ErrCancelled:
		return "The run was cancelled before completion."
	default:
		return "I ran into an error and could not complete this request: " + cerr.Message
	}
}

func detectorReasons(detectors []guardrail.DetectorResult) []map[string]any {
	out := make([]map[string]any, len(detectors))
	for i, d := range detectors {
		out[i] = map[string]any{"name": d.Name, "score": d.Score, "reason": d.Reason}
	}
	return out
}

func userMessage(text string) core.Message {
	return core.Message{
		Role:          core.RoleUser,
		Content:       text,
		CreatedAt:     time.Now(),
		Active:        true,
		TokenEstimate: core.EstimateTokens(text),
	}
}

func assistantMessage(text string) core.Message {
	return core.Message{
		Role:          core.RoleAssistant,
		Content:       text,
		CreatedAt:     time.Now(),
		Active:        true,
		TokenEstimate: core.EstimateTokens(text),
	}
}

func assistantToolCallMessage(text string, calls []core.FunctionCall) core.Message {
	toolCalls := make([]core.ToolCall, len(calls))
	for i, c := range calls {
		toolCalls[i] = core.ToolCall{ID: c.ID, Name: c.Name, Arguments: c.Arguments}
	}
	return core.Message{
		Role:          core.RoleAssistant,
		Content:       text,
		ToolCalls:     toolCalls,
		CreatedAt:     time.Now(),
		Active:        true,
		TokenEstimate: core.EstimateTokens(text),
	}
}

func idsOf(messages []core.Message) []string {
	ids := make([]string, 0, len(messages))
	for _, m := range messages {
		if m.ID != "" {
			ids = append(ids, m.ID)
		}
	}
	return ids
}
