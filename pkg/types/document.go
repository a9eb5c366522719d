package types

import (
	"fmt"
	"strconv"
	"strings"
)

// IDField is the system-assigned identifier field carried by every document.
const IDField = "_id"

// Document is one JSON object stored in a collection.
type Document = map[string]any

// Filter selects documents. Keys are field paths (dotted for nested fields)
// or logical operators ($and, $or, $nor, $expr). A nil or empty Filter
// matches every document.
//
// Example:
//
//	types.Filter{"name": "demo", "size": types.Filter{"$gt": 10}}
type Filter = map[string]any

// Update describes a change to matched documents. A plain object is
// shallow-merged on top of each match; an object whose keys all start with
// "$" is applied as update operators ($set, $unset, $inc, $push).
type Update = map[string]any

// Projection selects the fields returned by a query. Any true entry switches
// to inclusion mode (flagged fields plus _id unless _id is false); otherwise
// every false entry is removed.
type Projection map[string]bool

// Sort directions.
const (
	Ascending  = 1
	Descending = -1
)

// SortField is one key of a multi-key sort. Keys are compared left to right.
type SortField struct {
	Field     string
	Direction int
}

// SortBy builds a sort specification from alternating field and direction
// arguments, e.g. SortBy("v", Descending, "name", Ascending).
func SortBy(pairs ...any) []SortField {
	var out []SortField
	for i := 0; i+1 < len(pairs); i += 2 {
		field, _ := pairs[i].(string)
		dir, _ := pairs[i+1].(int)
		out = append(out, SortField{Field: field, Direction: dir})
	}
	return out
}

// ParseSort parses "field:dir,field:dir" where dir is 1, -1, asc or desc.
// A field without a direction sorts ascending.
func ParseSort(s string) ([]SortField, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out []SortField
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		field, dirStr, found := strings.Cut(part, ":")
		field = strings.TrimSpace(field)
		if field == "" {
			return nil, fmt.Errorf("%w: empty sort field in %q", ErrInvalidSort, s)
		}
		dir := Ascending
		if found {
			switch strings.ToLower(strings.TrimSpace(dirStr)) {
			case "1", "asc":
				dir = Ascending
			case "-1", "desc":
				dir = Descending
			default:
				return nil, fmt.Errorf("%w: direction %q for field %q", ErrInvalidSort, dirStr, field)
			}
		}
		out = append(out, SortField{Field: field, Direction: dir})
	}
	return out, nil
}

// ParseProjection converts a decoded JSON projection such as
// {"name": 1, "_id": 0} into a Projection. Numbers and booleans are accepted.
func ParseProjection(raw map[string]any) (Projection, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	p := make(Projection, len(raw))
	for field, v := range raw {
		switch t := v.(type) {
		case bool:
			p[field] = t
		case float64:
			p[field] = t != 0
		case int:
			p[field] = t != 0
		case string:
			b, err := strconv.ParseBool(t)
			if err != nil {
				return nil, fmt.Errorf("%w: field %q has value %q", ErrInvalidProjection, field, t)
			}
			p[field] = b
		default:
			return nil, fmt.Errorf("%w: field %q has value of type %T", ErrInvalidProjection, field, v)
		}
	}
	return p, nil
}

// FindOptions configures FindOne and FindMany.
type FindOptions struct {
	Where      Filter
	Projection Projection
	Sort       []SortField

	// Skip and Limit apply after sorting. Zero Limit means no limit.
	Skip  int
	Limit int
}

// UpdateOptions configures UpdateOne and UpdateMany.
type UpdateOptions struct {
	Where  Filter
	Update Update
}

// FindAndUpdateOptions configures FindOneAndUpdate and FindManyAndUpdate.
type FindAndUpdateOptions struct {
	Where  Filter
	Update Update

	// ReturnNew returns the post-update image instead of the pre-image.
	ReturnNew  bool
	Projection Projection
}

// DeleteOptions configures the delete family of operations.
type DeleteOptions struct {
	Where      Filter
	Projection Projection
}

// InsertOneResult acknowledges InsertOne.
type InsertOneResult struct {
	Acknowledged bool   `json:"acknowledged"`
	InsertedID   string `json:"insertedId"`
}

// InsertManyResult acknowledges InsertMany. InsertedIDs follows input order.
type InsertManyResult struct {
	Acknowledged bool     `json:"acknowledged"`
	InsertedIDs  []string `json:"insertedIds"`
}

// UpdateResult reports how many documents matched and how many changed.
type UpdateResult struct {
	Acknowledged  bool `json:"acknowledged"`
	MatchedCount  int  `json:"matchedCount"`
	ModifiedCount int  `json:"modifiedCount"`
}

// DeleteResult reports how many documents were removed.
type DeleteResult struct {
	Acknowledged bool `json:"acknowledged"`
	DeletedCount int  `json:"deletedCount"`
}
