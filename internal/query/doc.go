// Package query implements the document pipeline behind a collection:
// condition matching, multi-key sorting, projection, update application and
// deep copies.
//
// # Predicates
//
// A where object is compiled once into a predicate tree and then evaluated
// against each document. Predicate and Condition are sealed interfaces
// (marker methods), so the operator surface is closed and every node type is
// listed here:
//
//	Predicate                 Condition (per field)
//	---------                 ---------------------
//	And   {$and, implicit}    Eq, Ne          {$eq, $ne, literal}
//	Or    {$or}               Compare         {$gt, $gte, $lt, $lte}
//	Nor   {$nor}              In, Nin         {$in, $nin}
//	Expr  {$expr}             Exists          {$exists}
//	Field {path: condition}   Not             {$not}
//	                          Regex           {$regex, $options}
//	                          Size            {$size}
//	                          All             (several operators on one field)
//
// # Missing fields
//
// A path that does not resolve is "undefined", distinct from null:
// {$exists: false} matches it, {field: null} matches it, comparisons never
// match it, and $ne / $nin do. Comparisons between different value kinds
// (string against number, for example) are false rather than errors.
//
// # Values
//
// Documents, filters and updates are canonicalized through a JSON round trip
// so that numbers are float64, arrays are []any and objects are
// map[string]any. Matching and sorting only ever see those kinds.
package query
