// Package types defines the Collection interface, document and option types,
// and standard errors for the Larder document store.
//
// A collection is one JSON file holding an array of documents. Callers
// describe selections with a [Filter], changes with an [Update], result
// shaping with [Projection] and [SortField], and receive acknowledgements as
// [InsertOneResult], [UpdateResult] and [DeleteResult].
package types
