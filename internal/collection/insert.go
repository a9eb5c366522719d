package collection

import (
	"context"
	"fmt"
	"time"

	"github.com/mesh-intelligence/larder/internal/docid"
	"github.com/mesh-intelligence/larder/internal/query"
	"github.com/mesh-intelligence/larder/pkg/types"
)

// InsertOne appends doc to the collection. A document without _id is given
// a generated one. A supplied _id must be a non-empty string not already in
// the collection.
func (c *Collection) InsertOne(ctx context.Context, doc types.Document) (res types.InsertOneResult, err error) {
	defer c.observe("insert_one", time.Now(), &err)
	ids, err := c.insert(ctx, "insert_one", []types.Document{doc})
	if err != nil {
		return types.InsertOneResult{}, err
	}
	return types.InsertOneResult{Acknowledged: true, InsertedID: ids[0]}, nil
}

// InsertMany appends docs in order. Either every document is inserted or
// none is. An empty batch is acknowledged without touching the file.
func (c *Collection) InsertMany(ctx context.Context, docs []types.Document) (res types.InsertManyResult, err error) {
	defer c.observe("insert_many", time.Now(), &err)
	if len(docs) == 0 {
		if c.closed.Load() {
			return types.InsertManyResult{}, types.ErrClosed
		}
		return types.InsertManyResult{Acknowledged: true, InsertedIDs: []string{}}, nil
	}
	ids, err := c.insert(ctx, "insert_many", docs)
	if err != nil {
		return types.InsertManyResult{}, err
	}
	return types.InsertManyResult{Acknowledged: true, InsertedIDs: ids}, nil
}

func (c *Collection) insert(ctx context.Context, op string, docs []types.Document) ([]string, error) {
	prepared, ids, err := prepareInserts(docs)
	if err != nil {
		return nil, err
	}
	err = c.mutate(ctx, op, func(cur []types.Document) ([]types.Document, bool, error) {
		existing := make(map[string]struct{}, len(cur))
		for _, d := range cur {
			if id, ok := d[types.IDField].(string); ok {
				existing[id] = struct{}{}
			}
		}
		for _, id := range ids {
			if _, dup := existing[id]; dup {
				return nil, false, fmt.Errorf("%w: %q", types.ErrDuplicateID, id)
			}
		}
		return append(cur, prepared...), true, nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// prepareInserts canonicalizes docs and assigns missing ids. It rejects
// invalid ids and ids repeated within the batch.
func prepareInserts(docs []types.Document) ([]types.Document, []string, error) {
	out := make([]types.Document, len(docs))
	ids := make([]string, len(docs))
	seen := make(map[string]struct{}, len(docs))
	for i, doc := range docs {
		d, err := query.CanonicalDocument(doc)
		if err != nil {
			return nil, nil, fmt.Errorf("document %d: %w", i, err)
		}
		raw, has := d[types.IDField]
		if !has {
			raw = docid.New()
			d[types.IDField] = raw
		}
		if !docid.Valid(raw) {
			return nil, nil, fmt.Errorf("document %d: %w: %s must be a non-empty string, got %v",
				i, types.ErrInvalidID, types.IDField, raw)
		}
		id := raw.(string)
		if _, dup := seen[id]; dup {
			return nil, nil, fmt.Errorf("document %d: %w: %q repeated in batch", i, types.ErrDuplicateID, id)
		}
		seen[id] = struct{}{}
		out[i], ids[i] = d, id
	}
	return out, ids, nil
}
