package query

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/larder/pkg/types"
)

// Canonicalize converts v into plain JSON values through a marshal and
// unmarshal round trip.
func Canonicalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CanonicalDocument canonicalizes doc and checks that it is a JSON object.
func CanonicalDocument(doc types.Document) (types.Document, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: document is nil", types.ErrInvalidDocument)
	}
	v, err := Canonicalize(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidDocument, err)
	}
	out, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: not a JSON object", types.ErrInvalidDocument)
	}
	return out, nil
}

// Clone returns a deep copy of a canonical JSON value.
func Clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = Clone(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Clone(e)
		}
		return out
	default:
		return v
	}
}

// CloneDocument returns a deep copy of doc.
func CloneDocument(doc types.Document) types.Document {
	if doc == nil {
		return nil
	}
	return Clone(doc).(map[string]any)
}

// CloneDocuments deep-copies every document in docs.
func CloneDocuments(docs []types.Document) []types.Document {
	out := make([]types.Document, len(docs))
	for i, d := range docs {
		out[i] = CloneDocument(d)
	}
	return out
}

// toFloat reports v as a float64 when it is any Go numeric kind.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// equal compares canonical values, treating all numeric kinds alike.
func equal(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	switch ta := a.(type) {
	case nil:
		return b == nil
	case string:
		tb, ok := b.(string)
		return ok && ta == tb
	case bool:
		tb, ok := b.(bool)
		return ok && ta == tb
	case map[string]any:
		tb, ok := b.(map[string]any)
		if !ok || len(ta) != len(tb) {
			return false
		}
		for k, va := range ta {
			vb, ok := tb[k]
			if !ok || !equal(va, vb) {
				return false
			}
		}
		return true
	case []any:
		tb, ok := b.([]any)
		if !ok || len(ta) != len(tb) {
			return false
		}
		for i := range ta {
			if !equal(ta[i], tb[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Equal reports whether two canonical values are deeply equal.
func Equal(a, b any) bool {
	return equal(a, b)
}

// Sort order of value kinds, lowest first. Missing fields sort before null.
const (
	rankMissing = iota
	rankNull
	rankNumber
	rankString
	rankObject
	rankArray
	rankBool
)

func rank(v any, found bool) int {
	if !found {
		return rankMissing
	}
	if _, ok := toFloat(v); ok {
		return rankNumber
	}
	switch v.(type) {
	case nil:
		return rankNull
	case string:
		return rankString
	case map[string]any:
		return rankObject
	case []any:
		return rankArray
	case bool:
		return rankBool
	default:
		return rankObject
	}
}

// compareValues orders two values for sorting. Values of different kinds
// order by kind rank.
func compareValues(a any, aFound bool, b any, bFound bool) int {
	ra, rb := rank(a, aFound), rank(b, bFound)
	if ra != rb {
		return cmpInt(ra, rb)
	}
	switch ra {
	case rankNumber:
		fa, _ := toFloat(a)
		fb, _ := toFloat(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case rankString:
		return strings.Compare(a.(string), b.(string))
	case rankBool:
		ba, bb := a.(bool), b.(bool)
		switch {
		case ba == bb:
			return 0
		case !ba:
			return -1
		}
		return 1
	case rankArray:
		ta, tb := a.([]any), b.([]any)
		for i := 0; i < len(ta) && i < len(tb); i++ {
			if c := compareValues(ta[i], true, tb[i], true); c != 0 {
				return c
			}
		}
		return cmpInt(len(ta), len(tb))
	case rankObject:
		// encoding/json sorts map keys, so the encoding is stable.
		ja, _ := json.Marshal(a)
		jb, _ := json.Marshal(b)
		return bytes.Compare(ja, jb)
	}
	return 0
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
