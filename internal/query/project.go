package query

import (
	"github.com/mesh-intelligence/larder/pkg/types"
)

// Project returns a copy of doc shaped by p. An empty projection returns a
// full copy.
//
// When any field is true the projection is inclusive: only the flagged
// fields are kept, plus _id unless it is explicitly false. Otherwise every
// field flagged false is removed.
func Project(doc types.Document, p types.Projection) types.Document {
	if doc == nil {
		return nil
	}
	if len(p) == 0 {
		return CloneDocument(doc)
	}
	if !inclusive(p) {
		out := CloneDocument(doc)
		for field := range p {
			deletePath(out, splitPath(field))
		}
		return out
	}

	out := types.Document{}
	if keep, set := p[types.IDField]; !set || keep {
		if id, ok := doc[types.IDField]; ok {
			out[types.IDField] = Clone(id)
		}
	}
	for field, keep := range p {
		if !keep || field == types.IDField {
			continue
		}
		segs := splitPath(field)
		if v, ok := lookupObject(doc, segs); ok {
			setPath(out, segs, Clone(v))
		}
	}
	return out
}

// ProjectAll applies Project to every document.
func ProjectAll(docs []types.Document, p types.Projection) []types.Document {
	out := make([]types.Document, len(docs))
	for i, d := range docs {
		out[i] = Project(d, p)
	}
	return out
}

func inclusive(p types.Projection) bool {
	for _, keep := range p {
		if keep {
			return true
		}
	}
	return false
}
