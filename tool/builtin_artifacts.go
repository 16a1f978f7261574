package tool

import (
	"github.com/mantlecore/agentcore/core"
)

// RegisterArtifactTools registers the four builtin artifact retrieval
// tools (spec §4.4: "auto-registered as builtin tools when offload is
// enabled, so the LLM can retrieve full content on demand").
func RegisterArtifactTools(r *Registry) {
	r.Register(readArtifactTool{}, core.ToolKindBuiltin)
	r.Register(tailArtifactTool{}, core.ToolKindBuiltin)
	r.Register(searchArtifactTool{}, core.ToolKindBuiltin)
	r.Register(listArtifactsTool{}, core.ToolKindBuiltin)
}

var artifactIDParam = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"artifact_id": map[string]any{"type": "string", "description": "Artifact identifier returned from a prior offload"},
	},
	"required": []string{"artifact_id"},
}

type readArtifactTool struct{}

func (readArtifactTool) Name() string        { return "read_artifact" }
func (readArtifactTool) Description() string { return "Read the full content of a previously offloaded artifact." }
func (readArtifactTool) Parameters() map[string]any { return artifactIDParam }

func (readArtifactTool) Call(tc *core.ToolContext, args map[string]any) (any, error) {
	id, _ := args["artifact_id"].(string)
	data, err := tc.ReadArtifact(id)
	if err != nil {
		return nil, &ToolError{Tool: "read_artifact", Message: err.Error(), Code: "EXECUTION_ERROR"}
	}
	return map[string]any{"content": string(data)}, nil
}

type tailArtifactTool struct{}

func (tailArtifactTool) Name() string        { return "tail_artifact" }
func (tailArtifactTool) Description() string { return "Return the last N lines of a previously offloaded artifact." }
func (tailArtifactTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"artifact_id": map[string]any{"type": "string", "description": "Artifact identifier returned from a prior offload"},
			"n_lines":     map[string]any{"type": "integer", "description": "Number of trailing lines to return"},
		},
		"required": []string{"artifact_id", "n_lines"},
	}
}

func (tailArtifactTool) Call(tc *core.ToolContext, args map[string]any) (any, error) {
	id, _ := args["artifact_id"].(string)
	n, _ := args["n_lines"].(float64)
	tail, err := tc.TailArtifact(id, int(n))
	if err != nil {
		return nil, &ToolError{Tool: "tail_artifact", Message: err.Error(), Code: "EXECUTION_ERROR"}
	}
	return map[string]any{"tail": tail}, nil
}

type searchArtifactTool struct{}

func (searchArtifactTool) Name() string        { return "search_artifact" }
func (searchArtifactTool) Description() string { return "Search a previously offloaded artifact's text content for a substring, case-insensitive." }
func (searchArtifactTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"artifact_id": map[string]any{"type": "string", "description": "Artifact identifier returned from a prior offload"},
			"query":       map[string]any{"type": "string", "description": "Substring to search for"},
		},
		"required": []string{"artifact_id", "query"},
	}
}

const searchArtifactHitCap = 100

func (searchArtifactTool) Call(tc *core.ToolContext, args map[string]any) (any, error) {
	id, _ := args["artifact_id"].(string)
	query, _ := args["query"].(string)
	hits, err := tc.SearchArtifact(id, query)
	if err != nil {
		return nil, &ToolError{Tool: "search_artifact", Message: err.Error(), Code: "EXECUTION_ERROR"}
	}
	if len(hits) > searchArtifactHitCap {
		hits = hits[:searchArtifactHitCap]
	}
	return map[string]any{"hits": hits}, nil
}

type listArtifactsTool struct{}

func (listArtifactsTool) Name() string        { return "list_artifacts" }
func (listArtifactsTool) Description() string { return "List all artifacts offloaded during the current session." }
func (listArtifactsTool) Parameters() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}

func (listArtifactsTool) Call(tc *core.ToolContext, _ map[string]any) (any, error) {
	refs, err := tc.ListArtifacts()
	if err != nil {
		return nil, &ToolError{Tool: "list_artifacts", Message: err.Error(), Code: "EXECUTION_ERROR"}
	}
	return map[string]any{"artifacts": refs}, nil
}
