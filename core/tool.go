package core

import "time"

// ToolKind enumerates where a ToolDescriptor's handler lives.
type ToolKind string

const (
	ToolKindLocal      ToolKind = "local"
	ToolKindMCP        ToolKind = "mcp"
	ToolKindBuiltin    ToolKind = "builtin"
	ToolKindSkillScript ToolKind = "skill_script"
	ToolKindSubAgent   ToolKind = "sub_agent"
)

// priority orders ToolKind values for deterministic tie-breaking in
// registry listing and BM25 search (spec §4.3/§4.8: "local > mcp > skill").
func (k ToolKind) priority() int {
	switch k {
	case ToolKindLocal:
		return 0
	case ToolKindMCP:
		return 1
	case ToolKindSkillScript:
		return 2
	case ToolKindBuiltin:
		return 3
	case ToolKindSubAgent:
		return 4
	default:
		return 5
	}
}

// ToolKindPriority exposes ToolKind.priority to other packages for sorting.
func ToolKindPriority(k ToolKind) int { return k.priority() }

// ParamType enumerates the structural types a tool parameter may declare.
type ParamType string

const (
	ParamString ParamType = "string"
	ParamInt    ParamType = "int"
	ParamFloat  ParamType = "float"
	ParamBool   ParamType = "bool"
	ParamArray  ParamType = "array"
	ParamObject ParamType = "object"
	ParamEnum   ParamType = "enum"
)

// ParamDescriptor describes one parameter of a tool's declared input
// record, as extracted by structural reflection at registration time
// (spec §4.3, §9 "dynamic reflection -> explicit schema").
type ParamDescriptor struct {
	Name        string    `json:"name"`
	Type        ParamType `json:"type"`
	ElementType ParamType `json:"element_type,omitempty"` // for array<T>
	Required    bool      `json:"required"`
	Default     any       `json:"default,omitempty"`
	Description string    `json:"description,omitempty"`
	EnumValues  []string  `json:"enum_values,omitempty"`
}

// ToolDescriptor is the registry's metadata record for one tool. HandlerRef
// is an opaque implementation-specific reference (e.g. a registry key) kept
// out of the descriptor's serializable identity.
type ToolDescriptor struct {
	Name             string            `json:"name"`
	Description      string            `json:"description"`
	ParametersSchema map[string]any    `json:"parameters_schema"`
	Params           []ParamDescriptor `json:"params"`
	Kind             ToolKind          `json:"kind"`
}

// ToolCallStatus enumerates the terminal states of a ToolInvocation.
type ToolCallStatus string

const (
	ToolStatusOK        ToolCallStatus = "ok"
	ToolStatusError     ToolCallStatus = "error"
	ToolStatusTimeout   ToolCallStatus = "timeout"
	ToolStatusCancelled ToolCallStatus = "cancelled"
)

// ToolInvocation is the audit record of one tool call (spec §3).
type ToolInvocation struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id"`
	ToolName  string         `json:"tool_name"`
	Arguments map[string]any `json:"arguments"`
	StartedAt time.Time      `json:"started_at"`
	EndedAt   time.Time      `json:"ended_at"`
	Status    ToolCallStatus `json:"status"`
	ResultRef any            `json:"result_ref,omitempty"` // inline payload or *ArtifactRef
	Error     string         `json:"error,omitempty"`
}
