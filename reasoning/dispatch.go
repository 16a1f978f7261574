package reasoning

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mantlecore/agentcore/core"
	"github.com/mantlecore/agentcore/internal/util"
	"github.com/mantlecore/agentcore/tool"
)

// callOutcome carries a tool call's result off the goroutine that ran it,
// so the dispatcher can select between it and the per-call timeout.
type callOutcome struct {
	result any
	err    error
}

// dispatchTools runs calls concurrently, one goroutine per call, and
// joins on all of them before returning (spec §4.8 "Tool dispatch": "all
// are dispatched concurrently... the loop proceeds only when every call is
// complete, timed out, or errored"). The returned messages preserve the
// order calls were requested in, independent of completion order,
// grounded on flow/function_executor.go's parallelFunctionExecutor.
func (e *Engine) dispatchTools(rc *core.RunContext, calls []core.FunctionCall) []core.Message {
	n := len(calls)
	if n == 0 {
		return nil
	}

	if timerLogger, ok := rc.Logger().(timerLogger); ok {
		stop := timerLogger.StartTimer("reasoning.dispatch_tools")
		defer stop()
	}

	results := make([]core.Message, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i, call := range calls {
		go func(idx int, fc core.FunctionCall) {
			defer wg.Done()
			results[idx] = e.dispatchOne(rc, fc)
		}(i, call)
	}
	wg.Wait()
	return results
}

// dispatchOne executes a single tool call end to end: lookup, argument
// validation, timeout-bounded invocation, offload, and result framing.
func (e *Engine) dispatchOne(rc *core.RunContext, fc core.FunctionCall) core.Message {
	start := time.Now()
	toolCtx := core.NewToolContext(rc, fc.ID, fc.Name)
	_ = toolCtx.EmitEvent(core.EventToolCallStarted, map[string]any{"arguments": fc.Arguments})

	t, ok := e.registry.Lookup(fc.Name)
	if !ok {
		return e.finishDispatch(toolCtx, rc, fc, start, core.ToolStatusError,
			toolResultMessage(fc, core.NewError(core.ErrToolNotFound, fmt.Sprintf("tool %q is not registered", fc.Name))))
	}

	args, err := parseArguments(fc.Arguments)
	if err != nil {
		return e.finishDispatch(toolCtx, rc, fc, start, core.ToolStatusError,
			toolResultMessage(fc, core.Wrap(core.ErrToolInvalidArgs, err)))
	}
	if err := util.ValidateParameters(args, t.Parameters()); err != nil {
		return e.finishDispatch(toolCtx, rc, fc, start, core.ToolStatusError,
			toolResultMessage(fc, core.Wrap(core.ErrToolInvalidArgs, err)))
	}

	callCtx := rc
	if e.cfg.ToolCallTimeout > 0 {
		child := *rc
		var cancel context.CancelFunc
		child.Context, cancel = context.WithTimeout(rc.Context, e.cfg.ToolCallTimeout)
		defer cancel()
		callCtx = &child
		toolCtx = core.NewToolContext(callCtx, fc.ID, fc.Name)
	}

	outcome, timedOut := runWithRecover(callCtx, toolCtx, t, args)
	if timedOut {
		return e.finishDispatch(toolCtx, rc, fc, start, core.ToolStatusTimeout,
			toolResultMessage(fc, core.NewError(core.ErrToolTimeout, fmt.Sprintf("tool %q exceeded its call timeout", fc.Name))))
	}
	if outcome.err != nil {
		return e.finishDispatch(toolCtx, rc, fc, start, core.ToolStatusError,
			toolResultMessage(fc, wrapToolError(fc.Name, outcome.err)))
	}

	msg := e.offloadIfNeeded(toolCtx, fc, outcome.result)
	return e.finishDispatch(toolCtx, rc, fc, start, core.ToolStatusOK, msg)
}

// timerLogger is implemented by *logging.StructuredLogger; dispatchTools
// logs through it when the configured Logger exposes it, timing the full
// concurrent batch rather than any one call within it.
type timerLogger interface {
	StartTimer(op string) func()
}

// stackLogger is implemented by *logging.StructuredLogger; runWithRecover
// logs through it when the configured Logger exposes it, so a panicking
// tool leaves a stack trace behind rather than just its one-line message.
type stackLogger interface {
	ErrorWithStack(err error, msg string, args ...interface{})
}

// runWithRecover invokes t.Call on its own goroutine, recovering a panic
// into an error, and returns once either the call completes or callCtx's
// context is done (timeout or run cancellation).
func runWithRecover(callCtx *core.RunContext, toolCtx *core.ToolContext, t tool.Tool, args map[string]any) (callOutcome, bool) {
	resultCh := make(chan callOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				err := fmt.Errorf("tool %s panicked: %v", toolCtx.ToolName(), r)
				if logger, ok := callCtx.Logger().(stackLogger); ok {
					logger.ErrorWithStack(err, "reasoning.tool_panic", "tool", toolCtx.ToolName())
				}
				resultCh <- callOutcome{err: err}
			}
		}()
		res, err := t.Call(toolCtx, args)
		resultCh <- callOutcome{result: res, err: err}
	}()

	select {
	case outcome := <-resultCh:
		return outcome, false
	case <-callCtx.Context.Done():
		return callOutcome{err: callCtx.Context.Err()}, true
	}
}

// toolCallLogger is implemented by *logging.StructuredLogger; finishDispatch
// logs through it when the configured Logger exposes it, alongside the
// tool_call_result event every run already emits.
type toolCallLogger interface {
	LogToolCall(tool string, dur time.Duration, success bool, err error)
}

// finishDispatch emits the tool_call_result event and returns msg.
func (e *Engine) finishDispatch(toolCtx *core.ToolContext, rc *core.RunContext, fc core.FunctionCall, start time.Time, status core.ToolCallStatus, msg core.Message) core.Message {
	dur := time.Since(start)
	_ = toolCtx.EmitEvent(core.EventToolCallResult, map[string]any{
		"status":      string(status),
		"duration_ms": dur.Milliseconds(),
	})
	if logger, ok := rc.Logger().(toolCallLogger); ok {
		var err error
		if status != core.ToolStatusOK {
			err = fmt.Errorf("tool %s: %s", fc.Name, status)
		}
		logger.LogToolCall(fc.Name, dur, status == core.ToolStatusOK, err)
	}
	msg.SessionID = rc.SessionID
	return msg
}

// offloadIfNeeded stores the tool result to the artifact backend and
// replaces the message payload with a pointer-sized reference when the
// result's estimated token count exceeds tool_offload.threshold_tokens
// (spec §4.8 "Offloading").
func (e *Engine) offloadIfNeeded(toolCtx *core.ToolContext, fc core.FunctionCall, result any) core.Message {
	payload := marshalResult(result)
	if !e.cfg.ToolOffload.Enabled || core.EstimateTokens(payload) <= e.cfg.ToolOffload.ThresholdTokens {
		return toolResultMessage(fc, nil, payload)
	}

	ref, err := toolCtx.SaveArtifact([]byte(payload), "application/json")
	if err != nil {
		// Offload failed: fall back to inlining the full payload rather
		// than losing the tool's result.
		return toolResultMessage(fc, nil, payload)
	}

	preview := previewTokens(payload, e.cfg.ToolOffload.MaxPreviewTokens)
	offloaded, _ := json.Marshal(map[string]any{
		"artifact_id": ref.ArtifactID,
		"preview":     preview,
		"hint":        "use read_artifact to load full content",
	})
	return toolResultMessage(fc, nil, string(offloaded))
}

// previewTokens truncates text to approximately maxTokens tokens using the
// module's four-bytes-per-token estimator, cutting back to the last
// newline boundary within that limit and marking the cut with an ellipsis
// (spec §4.4).
func previewTokens(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	limit := maxTokens * 4
	if len(text) <= limit {
		return text
	}

	cut := text[:limit]
	if nl := strings.LastIndexByte(cut, '\n'); nl > 0 {
		cut = cut[:nl]
	}
	return cut + "..."
}

// toolResultMessage frames a tool call's outcome as the tool-role message
// appended to history and sent back to the model. On failure (non-nil
// toolErr) the content is {error, kind} per spec §4.8; on success either
// the caller-supplied payload string is used directly, or result is
// marshaled.
func toolResultMessage(fc core.FunctionCall, toolErr *core.Error, payload ...string) core.Message {
	content := ""
	errText := ""
	kind := ""
	switch {
	case toolErr != nil:
		errText = toolErr.Message
		kind = string(toolErr.Kind)
		raw, _ := json.Marshal(map[string]any{"error": toolErr.Message, "kind": kind})
		content = string(raw)
	case len(payload) > 0:
		content = payload[0]
	}

	return core.Message{
		Role:          core.RoleTool,
		Content:       content,
		ToolCallID:    fc.ID,
		CreatedAt:     time.Now(),
		Active:        true,
		TokenEstimate: core.EstimateTokens(content),
		Metadata:      map[string]any{"tool_name": fc.Name, "error": errText, "kind": kind},
	}
}

// marshalResult best-effort serializes a tool's raw result for inlining
// or offload; a result that is already a string is used verbatim so
// plain-text tool outputs are not double quoted.
func marshalResult(result any) string {
	if s, ok := result.(string); ok {
		return s
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprintf("%v", result)
	}
	return string(raw)
}

// wrapToolError classifies a tool's returned error into a typed
// core.Error, preserving a *tool.ToolError's Code as the error kind when
// it names one of the recognized kinds.
func wrapToolError(toolName string, err error) *core.Error {
	if te, ok := err.(*tool.ToolError); ok {
		if kind := core.ErrorKind(te.Code); isKnownErrorKind(kind) {
			return core.NewError(kind, te.Message)
		}
		return core.NewError(core.ErrToolError, te.Message)
	}
	if cerr, ok := err.(*core.Error); ok {
		return cerr
	}
	return core.Wrap(core.ErrToolError, err)
}

func isKnownErrorKind(kind core.ErrorKind) bool {
	switch kind {
	case core.ErrGuardrailBlocked, core.ErrLLMUnavailable, core.ErrLLMInvalidOutput,
		core.ErrToolNotFound, core.ErrToolInvalidArgs, core.ErrToolTimeout, core.ErrToolError,
		core.ErrContextOverflow, core.ErrBudgetExceeded, core.ErrStoreUnavailable,
		core.ErrMigrationFailed, core.ErrCancelled, core.ErrInternal, core.ErrInputTooLong,
		core.ErrDepthExceeded:
		return true
	default:
		return false
	}
}

// parseArguments decodes a tool call's JSON argument string into a map,
// treating an empty string as an empty argument set.
func parseArguments(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("decode tool arguments: %w", err)
	}
	return args, nil
}
