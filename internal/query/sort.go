package query

import (
	"slices"

	"github.com/mesh-intelligence/larder/pkg/types"
)

// Sort orders docs in place by the given keys. Keys are compared left to
// right; documents that tie on every key keep their relative order.
// A direction of zero is treated as ascending.
func Sort(docs []types.Document, keys []types.SortField) {
	if len(keys) == 0 || len(docs) < 2 {
		return
	}
	segs := make([][]string, len(keys))
	for i, k := range keys {
		segs[i] = splitPath(k.Field)
	}
	slices.SortStableFunc(docs, func(a, b types.Document) int {
		for i, k := range keys {
			av, aok := lookupObject(a, segs[i])
			bv, bok := lookupObject(b, segs[i])
			c := compareValues(av, aok, bv, bok)
			if c == 0 {
				continue
			}
			if k.Direction < 0 {
				return -c
			}
			return c
		}
		return 0
	})
}
