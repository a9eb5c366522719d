package query

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mesh-intelligence/larder/pkg/types"
)

func TestProject(t *testing.T) {
	doc := types.Document{
		"_id":  "1",
		"name": "demo",
		"path": "/tmp/demo",
		"meta": map[string]any{"a": 1.0, "b": 2.0},
	}

	tests := []struct {
		name string
		p    types.Projection
		want types.Document
	}{
		{"empty", nil, doc},
		{"include", types.Projection{"name": true},
			types.Document{"_id": "1", "name": "demo"}},
		{"exclude", types.Projection{"name": false, "meta": false},
			types.Document{"_id": "1", "path": "/tmp/demo"}},
		{"include without id", types.Projection{"name": true, "_id": false},
			types.Document{"name": "demo"}},
		{"include ignores other false", types.Projection{"name": true, "path": false},
			types.Document{"_id": "1", "name": "demo"}},
		{"include nested", types.Projection{"meta.b": true},
			types.Document{"_id": "1", "meta": map[string]any{"b": 2.0}}},
		{"exclude nested", types.Projection{"meta.a": false, "path": false},
			types.Document{"_id": "1", "name": "demo", "meta": map[string]any{"b": 2.0}}},
		{"include missing field", types.Projection{"nope": true},
			types.Document{"_id": "1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Project(doc, tt.p))
		})
	}
}

func TestProjectReturnsCopy(t *testing.T) {
	doc := types.Document{"_id": "1", "meta": map[string]any{"a": 1.0}}

	out := Project(doc, types.Projection{"meta": true})
	out["meta"].(map[string]any)["a"] = 99.0

	assert.Equal(t, 1.0, doc["meta"].(map[string]any)["a"])
}
