package collection

import (
	"context"
	"time"

	"github.com/mesh-intelligence/larder/internal/query"
	"github.com/mesh-intelligence/larder/pkg/types"
)

// UpdateOne applies opts.Update to the first document, in file order,
// matching opts.Where.
func (c *Collection) UpdateOne(ctx context.Context, opts types.UpdateOptions) (res types.UpdateResult, err error) {
	defer c.observe("update_one", time.Now(), &err)
	changes, err := c.update(ctx, "update_one", opts.Where, opts.Update, false)
	return updateResult(changes), err
}

// UpdateMany applies opts.Update to every document matching opts.Where.
func (c *Collection) UpdateMany(ctx context.Context, opts types.UpdateOptions) (res types.UpdateResult, err error) {
	defer c.observe("update_many", time.Now(), &err)
	changes, err := c.update(ctx, "update_many", opts.Where, opts.Update, true)
	return updateResult(changes), err
}

// FindOneAndUpdate updates the first match and returns its image before the
// update, or after it when opts.ReturnNew is set. It returns nil when
// nothing matches.
func (c *Collection) FindOneAndUpdate(ctx context.Context, opts types.FindAndUpdateOptions) (doc types.Document, err error) {
	defer c.observe("find_one_and_update", time.Now(), &err)
	changes, err := c.update(ctx, "find_one_and_update", opts.Where, opts.Update, false)
	if err != nil || len(changes) == 0 {
		return nil, err
	}
	return changes[0].image(opts.ReturnNew, opts.Projection), nil
}

// FindManyAndUpdate updates every match and returns their images in file
// order. The result is empty, never nil, when nothing matches.
func (c *Collection) FindManyAndUpdate(ctx context.Context, opts types.FindAndUpdateOptions) (docs []types.Document, err error) {
	defer c.observe("find_many_and_update", time.Now(), &err)
	changes, err := c.update(ctx, "find_many_and_update", opts.Where, opts.Update, true)
	if err != nil {
		return nil, err
	}
	docs = make([]types.Document, len(changes))
	for i, ch := range changes {
		docs[i] = ch.image(opts.ReturnNew, opts.Projection)
	}
	return docs, nil
}

type change struct {
	before, after types.Document
	modified      bool
}

// image returns a projected copy of the pre- or post-update document.
func (ch change) image(after bool, p types.Projection) types.Document {
	if after {
		return query.Project(ch.after, p)
	}
	return query.Project(ch.before, p)
}

func updateResult(changes []change) types.UpdateResult {
	res := types.UpdateResult{Acknowledged: true, MatchedCount: len(changes)}
	for _, ch := range changes {
		if ch.modified {
			res.ModifiedCount++
		}
	}
	return res
}

func (c *Collection) update(ctx context.Context, op string, where types.Filter, upd types.Update, many bool) ([]change, error) {
	pred, err := query.Compile(where)
	if err != nil {
		return nil, err
	}
	if err := query.ValidateUpdate(upd); err != nil {
		return nil, err
	}

	var changes []change
	err = c.mutate(ctx, op, func(docs []types.Document) ([]types.Document, bool, error) {
		changes = changes[:0]
		modified := false
		for i, d := range docs {
			if !pred.Match(d) {
				continue
			}
			after, err := query.ApplyUpdate(d, upd)
			if err != nil {
				return nil, false, err
			}
			ch := change{before: d, after: after, modified: !query.Equal(d, after)}
			if ch.modified {
				docs[i] = after
				modified = true
			}
			changes = append(changes, ch)
			if !many {
				break
			}
		}
		return docs, modified, nil
	})
	if err != nil {
		return nil, err
	}
	return changes, nil
}
