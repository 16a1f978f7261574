package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"time"

	"github.com/mantlecore/agentcore/core"
)

// DefaultSkillScriptTimeout bounds a skill script subprocess when the
// caller does not specify one explicitly.
const DefaultSkillScriptTimeout = 30 * time.Second

// skillScriptTool exposes an external interpreter/binary as a
// ToolKindSkillScript entry (spec §4.11): arguments are marshaled to JSON
// on the subprocess's stdin, and its stdout is parsed back as JSON. A
// non-zero exit or malformed stdout JSON is a tool_error.
type skillScriptTool struct {
	name        string
	description string
	parameters  map[string]any
	command     string
	args        []string
	timeout     time.Duration
}

// NewSkillScriptTool wraps command (run with args) as a tool whose call
// arguments are piped to it as a JSON object on stdin, and whose result
// is parsed from its stdout as JSON. timeout <= 0 uses
// DefaultSkillScriptTimeout.
func NewSkillScriptTool(name, description string, parameters map[string]any, command string, args []string, timeout time.Duration) Tool {
	if timeout <= 0 {
		timeout = DefaultSkillScriptTimeout
	}
	return &skillScriptTool{
		name:        name,
		description: description,
		parameters:  parameters,
		command:     command,
		args:        args,
		timeout:     timeout,
	}
}

func (t *skillScriptTool) Name() string               { return t.name }
func (t *skillScriptTool) Description() string        { return t.description }
func (t *skillScriptTool) Parameters() map[string]any { return t.parameters }

func (t *skillScriptTool) Call(tc *core.ToolContext, args map[string]any) (any, error) {
	stdin, err := json.Marshal(args)
	if err != nil {
		return nil, &ToolError{Tool: t.name, Message: "failed to marshal arguments", Code: string(core.ErrToolInvalidArgs)}
	}

	ctx, cancel := context.WithTimeout(tc.Context(), t.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, t.command, t.args...)
	cmd.Stdin = bytes.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return nil, &ToolError{Tool: t.name, Message: "skill script timed out", Code: string(core.ErrToolTimeout)}
	}
	if runErr != nil {
		return nil, &ToolError{
			Tool:    t.name,
			Message: "skill script exited with an error",
			Code:    string(core.ErrToolError),
			Details: map[string]any{"stderr": stderr.String(), "error": runErr.Error()},
		}
	}

	var result any
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		return nil, &ToolError{
			Tool:    t.name,
			Message: "skill script stdout was not valid JSON",
			Code:    string(core.ErrToolError),
			Details: map[string]any{"stdout": stdout.String()},
		}
	}
	return result, nil
}
