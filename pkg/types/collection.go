package types

import "context"

// Collection provides MongoDB-style CRUD operations over one JSON file.
// Reads run concurrently; mutations are serialized within the process and,
// through a lock file, across processes. Returned documents are deep copies.
type Collection interface {
	// FindOne returns the first document matching opts after sorting, or nil
	// when nothing matches.
	FindOne(ctx context.Context, opts FindOptions) (Document, error)

	// FindMany returns every matching document, sorted and projected.
	FindMany(ctx context.Context, opts FindOptions) ([]Document, error)

	// Count returns the number of documents matching where.
	Count(ctx context.Context, where Filter) (int, error)

	// InsertOne appends doc, assigning an _id when it has none.
	// Returns ErrDuplicateID if a supplied _id already exists.
	InsertOne(ctx context.Context, doc Document) (InsertOneResult, error)

	// InsertMany appends docs in order. Either all are inserted or none.
	InsertMany(ctx context.Context, docs []Document) (InsertManyResult, error)

	// UpdateOne applies the update to the first match in file order.
	UpdateOne(ctx context.Context, opts UpdateOptions) (UpdateResult, error)

	// UpdateMany applies the update to every match.
	UpdateMany(ctx context.Context, opts UpdateOptions) (UpdateResult, error)

	// FindOneAndUpdate updates the first match and returns its pre-image, or
	// its post-image when ReturnNew is set. Returns nil when nothing matches.
	FindOneAndUpdate(ctx context.Context, opts FindAndUpdateOptions) (Document, error)

	// FindManyAndUpdate updates every match and returns their images.
	FindManyAndUpdate(ctx context.Context, opts FindAndUpdateOptions) ([]Document, error)

	// FindOneAndDelete removes the first match and returns it, or nil.
	FindOneAndDelete(ctx context.Context, opts DeleteOptions) (Document, error)

	// FindManyAndDelete removes every match and returns them.
	FindManyAndDelete(ctx context.Context, opts DeleteOptions) ([]Document, error)

	// DeleteOne removes the first match.
	DeleteOne(ctx context.Context, opts DeleteOptions) (DeleteResult, error)

	// DeleteMany removes every match.
	DeleteMany(ctx context.Context, opts DeleteOptions) (DeleteResult, error)

	// Reload discards the cache and reads the file again.
	Reload(ctx context.Context) error

	// Path returns the collection file path.
	Path() string

	// Version returns the number of mutations committed by this instance.
	Version() uint64

	// Close releases watchers. Operations after Close return ErrClosed.
	Close() error
}
