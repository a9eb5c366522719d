package collection

import (
	"context"
	"time"

	"github.com/mesh-intelligence/larder/internal/query"
	"github.com/mesh-intelligence/larder/pkg/types"
)

// FindOne returns the first document matching opts.Where after sorting, or
// nil when nothing matches.
func (c *Collection) FindOne(ctx context.Context, opts types.FindOptions) (doc types.Document, err error) {
	defer c.observe("find_one", time.Now(), &err)
	opts.Limit = 1
	docs, err := c.find(ctx, opts)
	if err != nil || len(docs) == 0 {
		return nil, err
	}
	return docs[0], nil
}

// FindMany returns every document matching opts.Where, sorted, windowed by
// Skip and Limit, and projected. The result is never nil.
func (c *Collection) FindMany(ctx context.Context, opts types.FindOptions) (docs []types.Document, err error) {
	defer c.observe("find_many", time.Now(), &err)
	return c.find(ctx, opts)
}

// Count returns the number of documents matching where.
func (c *Collection) Count(ctx context.Context, where types.Filter) (n int, err error) {
	defer c.observe("count", time.Now(), &err)
	pred, err := query.Compile(where)
	if err != nil {
		return 0, err
	}
	err = c.read(ctx, func(docs []types.Document) error {
		for _, d := range docs {
			if pred.Match(d) {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (c *Collection) find(ctx context.Context, opts types.FindOptions) ([]types.Document, error) {
	pred, err := query.Compile(opts.Where)
	if err != nil {
		return nil, err
	}
	var out []types.Document
	err = c.read(ctx, func(docs []types.Document) error {
		matched := matching(docs, pred, false)
		query.Sort(matched, opts.Sort)
		matched = window(matched, opts.Skip, opts.Limit)
		out = query.ProjectAll(matched, opts.Projection)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// matching returns the documents satisfying pred in array order, stopping
// after the first when firstOnly is set. The documents are not copied.
func matching(docs []types.Document, pred query.Predicate, firstOnly bool) []types.Document {
	var out []types.Document
	for _, d := range docs {
		if !pred.Match(d) {
			continue
		}
		out = append(out, d)
		if firstOnly {
			break
		}
	}
	return out
}

func window(docs []types.Document, skip, limit int) []types.Document {
	if skip > 0 {
		if skip >= len(docs) {
			return nil
		}
		docs = docs[skip:]
	}
	if limit > 0 && limit < len(docs) {
		docs = docs[:limit]
	}
	return docs
}
