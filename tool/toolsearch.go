package tool

import (
	"github.com/mantlecore/agentcore/core"
	"github.com/mantlecore/agentcore/tool/bm25"
)

// Field repetition weights for the composite document built from each
// ToolDescriptor. Name tokens carry the most influence, matching the
// intuition that a query naming the tool directly should win outright.
const (
	weightName        = 3
	weightDescription = 2
	weightParamName   = 2
	weightParamDesc   = 1
)

// newSearchIndex builds a BM25 index over descriptors for the registry's
// search() builtin.
func newSearchIndex(descriptors []core.ToolDescriptor) *bm25.Index {
	documents := make([]bm25.Document, len(descriptors))
	for i, d := range descriptors {
		documents[i] = toBM25Document(d)
	}
	return bm25.New(documents)
}

func toBM25Document(d core.ToolDescriptor) bm25.Document {
	fields := make([]bm25.Field, 0, 2+2*len(d.Params))
	fields = append(fields, bm25.Field{Text: d.Name, Weight: weightName})
	fields = append(fields, bm25.Field{Text: d.Description, Weight: weightDescription})

	for _, p := range d.Params {
		fields = append(fields, bm25.Field{Text: p.Name, Weight: weightParamName})
		if p.Description != "" {
			fields = append(fields, bm25.Field{Text: p.Description, Weight: weightParamDesc})
		}
	}

	return bm25.Document{Name: d.Name, Fields: fields}
}
