package query

import (
	"strconv"
	"strings"
)

func splitPath(path string) []string {
	return strings.Split(path, ".")
}

// Lookup resolves a dotted path inside doc. Numeric segments index arrays.
// A non-numeric segment applied to an array collects that field from every
// element that has it; the result is found when at least one element does.
func Lookup(doc map[string]any, path string) (any, bool) {
	return lookup(doc, splitPath(path))
}

func lookup(cur any, segs []string) (any, bool) {
	if len(segs) == 0 {
		return cur, true
	}
	seg := segs[0]
	switch t := cur.(type) {
	case map[string]any:
		v, ok := t[seg]
		if !ok {
			return nil, false
		}
		return lookup(v, segs[1:])
	case []any:
		if i, err := strconv.Atoi(seg); err == nil {
			if i < 0 || i >= len(t) {
				return nil, false
			}
			return lookup(t[i], segs[1:])
		}
		var out []any
		for _, e := range t {
			if _, isObj := e.(map[string]any); !isObj {
				continue
			}
			if v, ok := lookup(e, segs); ok {
				out = append(out, v)
			}
		}
		if len(out) == 0 {
			return nil, false
		}
		return out, true
	default:
		return nil, false
	}
}

// lookupObject resolves a dotted path through nested objects only.
func lookupObject(doc map[string]any, segs []string) (any, bool) {
	var cur any = doc
	for _, seg := range segs {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// setPath stores v at the dotted path, creating intermediate objects.
// It returns false when an intermediate value exists but is not an object.
func setPath(doc map[string]any, segs []string, v any) bool {
	cur := doc
	for _, seg := range segs[:len(segs)-1] {
		next, ok := cur[seg]
		if !ok {
			m := map[string]any{}
			cur[seg] = m
			cur = m
			continue
		}
		m, ok := next.(map[string]any)
		if !ok {
			return false
		}
		cur = m
	}
	cur[segs[len(segs)-1]] = v
	return true
}

// deletePath removes the value at the dotted path if it exists.
func deletePath(doc map[string]any, segs []string) {
	cur := doc
	for _, seg := range segs[:len(segs)-1] {
		m, ok := cur[seg].(map[string]any)
		if !ok {
			return
		}
		cur = m
	}
	delete(cur, segs[len(segs)-1])
}
