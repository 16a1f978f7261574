package tool

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/mantlecore/agentcore/core"
	"github.com/mantlecore/agentcore/tool/bm25"
)

// snapshot is one copy-on-write generation of the registry's contents.
// Registration never mutates a snapshot in place; it builds a new one and
// atomically swaps the pointer, so a reasoning turn that captured a
// snapshot at prompt-assembly time sees a consistent view for the whole
// turn even if another goroutine registers a tool concurrently.
type snapshot struct {
	descriptors []core.ToolDescriptor
	byName      map[string]Tool
	index       *bm25.Index // rebuilt by every Register; nil only for the empty registry
}

// Registry holds local, builtin and sub_agent tool implementations and
// exposes both direct lookup and BM25-ranked search (spec §4.3). It is
// safe for concurrent use.
type Registry struct {
	current atomic.Pointer[snapshot]
	mu      sync.Mutex // serializes registration (read path is lock-free)
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	r := &Registry{}
	r.current.Store(&snapshot{byName: map[string]Tool{}})
	return r
}

// Register adds or replaces a tool under the given kind, publishing a new
// snapshot. Parameters are converted to a core.ParamDescriptor slice by
// structural inspection of the tool's JSON schema for listing/search, but
// validation itself still runs against the full schema map.
func (r *Registry) Register(t Tool, kind core.ToolKind) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.current.Load()
	byName := make(map[string]Tool, len(old.byName)+1)
	for name, existing := range old.byName {
		byName[name] = existing
	}
	byName[t.Name()] = t

	descriptors := make([]core.ToolDescriptor, 0, len(byName))
	for name, tt := range byName {
		k := kind
		if name != t.Name() {
			k = kindOf(old.descriptors, name)
		}
		descriptors = append(descriptors, core.ToolDescriptor{
			Name:             tt.Name(),
			Description:      tt.Description(),
			ParametersSchema: tt.Parameters(),
			Params:           paramsFromSchema(tt.Parameters()),
			Kind:             k,
		})
	}
	sortDescriptors(descriptors)

	r.current.Store(&snapshot{
		descriptors: descriptors,
		byName:      byName,
		index:       newSearchIndex(descriptors),
	})
}

func kindOf(descriptors []core.ToolDescriptor, name string) core.ToolKind {
	for _, d := range descriptors {
		if d.Name == name {
			return d.Kind
		}
	}
	return core.ToolKindLocal
}

// Lookup returns the tool registered under name, if any.
func (r *Registry) Lookup(name string) (Tool, bool) {
	snap := r.current.Load()
	t, ok := snap.byName[name]
	return t, ok
}

// Descriptors returns the full catalog, sorted by (kind priority, name).
func (r *Registry) Descriptors() []core.ToolDescriptor {
	snap := r.current.Load()
	out := make([]core.ToolDescriptor, len(snap.descriptors))
	copy(out, snap.descriptors)
	return out
}

// Search returns the top-k tool names ranked by BM25 relevance to query,
// ties broken by kind priority then lexicographic name (spec §4.3). This
// is what `advanced_tool_use` exposes to the model as the `search` builtin
// so the prompt can carry only a narrow slice of a large catalog.
func (r *Registry) Search(query string, k int) []string {
	snap := r.current.Load()
	if snap.index == nil {
		return nil
	}

	results := snap.index.Search(query, 0) // rank everything, then apply tie-break before truncating
	scoreOf := make(map[string]float64, len(results))
	for _, res := range results {
		scoreOf[res.Name] = res.Score
	}

	names := make([]string, 0, len(results))
	for _, res := range results {
		names = append(names, res.Name)
	}

	sort.SliceStable(names, func(i, j int) bool {
		si, sj := scoreOf[names[i]], scoreOf[names[j]]
		if si != sj {
			return si > sj
		}
		ki, kj := core.ToolKindPriority(kindOf(snap.descriptors, names[i])), core.ToolKindPriority(kindOf(snap.descriptors, names[j]))
		if ki != kj {
			return ki < kj
		}
		return names[i] < names[j]
	})

	if k > 0 && len(names) > k {
		names = names[:k]
	}
	return names
}

func sortDescriptors(descriptors []core.ToolDescriptor) {
	sort.SliceStable(descriptors, func(i, j int) bool {
		ki, kj := core.ToolKindPriority(descriptors[i].Kind), core.ToolKindPriority(descriptors[j].Kind)
		if ki != kj {
			return ki < kj
		}
		return descriptors[i].Name < descriptors[j].Name
	})
}

// paramsFromSchema extracts a best-effort core.ParamDescriptor slice from a
// minimal JSON-Schema-shaped map, for catalog listing and BM25 indexing.
// Validation uses the full schema map directly, so this extraction only
// needs to be good enough for search and documentation purposes.
func paramsFromSchema(schema map[string]any) []core.ParamDescriptor {
	properties, _ := schema["properties"].(map[string]any)
	if len(properties) == 0 {
		return nil
	}

	required := map[string]bool{}
	switch req := schema["required"].(type) {
	case []string:
		for _, name := range req {
			required[name] = true
		}
	case []any:
		for _, name := range req {
			if s, ok := name.(string); ok {
				required[s] = true
			}
		}
	}

	params := make([]core.ParamDescriptor, 0, len(properties))
	for name, raw := range properties {
		propMap, _ := raw.(map[string]any)
		desc, _ := propMap["description"].(string)
		params = append(params, core.ParamDescriptor{
			Name:        name,
			Type:        paramTypeOf(propMap),
			Required:    required[name],
			Description: desc,
		})
	}
	sort.Slice(params, func(i, j int) bool { return params[i].Name < params[j].Name })
	return params
}

func paramTypeOf(propMap map[string]any) core.ParamType {
	if propMap == nil {
		return core.ParamString
	}
	if _, ok := propMap["enum"]; ok {
		return core.ParamEnum
	}
	t, _ := propMap["type"].(string)
	switch t {
	case "integer":
		return core.ParamInt
	case "number":
		return core.ParamFloat
	case "boolean":
		return core.ParamBool
	case "array":
		return core.ParamArray
	case "object":
		return core.ParamObject
	default:
		return core.ParamString
	}
}
