package collection

import (
	"context"
	"time"

	"github.com/mesh-intelligence/larder/internal/query"
	"github.com/mesh-intelligence/larder/pkg/types"
)

// FindOneAndDelete removes the first document matching opts.Where and
// returns it, or nil when nothing matches.
func (c *Collection) FindOneAndDelete(ctx context.Context, opts types.DeleteOptions) (doc types.Document, err error) {
	defer c.observe("find_one_and_delete", time.Now(), &err)
	removed, err := c.remove(ctx, "find_one_and_delete", opts.Where, false)
	if err != nil || len(removed) == 0 {
		return nil, err
	}
	return query.Project(removed[0], opts.Projection), nil
}

// FindManyAndDelete removes every document matching opts.Where and returns
// them in file order.
func (c *Collection) FindManyAndDelete(ctx context.Context, opts types.DeleteOptions) (docs []types.Document, err error) {
	defer c.observe("find_many_and_delete", time.Now(), &err)
	removed, err := c.remove(ctx, "find_many_and_delete", opts.Where, true)
	if err != nil {
		return nil, err
	}
	return query.ProjectAll(removed, opts.Projection), nil
}

// DeleteOne removes the first document matching opts.Where.
func (c *Collection) DeleteOne(ctx context.Context, opts types.DeleteOptions) (res types.DeleteResult, err error) {
	defer c.observe("delete_one", time.Now(), &err)
	removed, err := c.remove(ctx, "delete_one", opts.Where, false)
	if err != nil {
		return types.DeleteResult{}, err
	}
	return types.DeleteResult{Acknowledged: true, DeletedCount: len(removed)}, nil
}

// DeleteMany removes every document matching opts.Where.
func (c *Collection) DeleteMany(ctx context.Context, opts types.DeleteOptions) (res types.DeleteResult, err error) {
	defer c.observe("delete_many", time.Now(), &err)
	removed, err := c.remove(ctx, "delete_many", opts.Where, true)
	if err != nil {
		return types.DeleteResult{}, err
	}
	return types.DeleteResult{Acknowledged: true, DeletedCount: len(removed)}, nil
}

func (c *Collection) remove(ctx context.Context, op string, where types.Filter, many bool) ([]types.Document, error) {
	pred, err := query.Compile(where)
	if err != nil {
		return nil, err
	}
	var removed []types.Document
	err = c.mutate(ctx, op, func(docs []types.Document) ([]types.Document, bool, error) {
		removed = removed[:0]
		kept := make([]types.Document, 0, len(docs))
		for _, d := range docs {
			if pred.Match(d) && (many || len(removed) == 0) {
				removed = append(removed, d)
				continue
			}
			kept = append(kept, d)
		}
		return kept, len(removed) > 0, nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}
