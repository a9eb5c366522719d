package query

import (
	"fmt"
	"slices"
	"strings"

	"github.com/mesh-intelligence/larder/pkg/types"
)

// Update operators.
const (
	OpSet   = "$set"
	OpUnset = "$unset"
	OpInc   = "$inc"
	OpPush  = "$push"
)

// ApplyUpdate returns a new document with u applied to doc; doc itself is not
// modified. A plain object is shallow-merged on top of doc. An object whose
// keys all start with "$" is applied as operators. The result always keeps
// doc's _id.
func ApplyUpdate(doc types.Document, u types.Update) (types.Document, error) {
	if len(u) == 0 {
		return nil, fmt.Errorf("%w: update is empty", types.ErrInvalidUpdate)
	}
	v, err := Canonicalize(u)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidUpdate, err)
	}
	upd, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: update must be an object", types.ErrInvalidUpdate)
	}

	ops := 0
	for k := range upd {
		if strings.HasPrefix(k, "$") {
			ops++
		}
	}
	out := CloneDocument(doc)
	if out == nil {
		out = types.Document{}
	}
	switch ops {
	case 0:
		for k, val := range upd {
			if k == types.IDField {
				continue
			}
			out[k] = val
		}
	case len(upd):
		if err := applyOperators(out, upd); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: update mixes operators and fields", types.ErrInvalidUpdate)
	}

	if id, ok := doc[types.IDField]; ok {
		out[types.IDField] = id
	}
	return out, nil
}

// ValidateUpdate checks u without applying it to a stored document.
func ValidateUpdate(u types.Update) error {
	_, err := ApplyUpdate(types.Document{}, u)
	return err
}

func applyOperators(doc types.Document, upd map[string]any) error {
	// Fixed order so that combined operators behave the same on every run.
	order := []string{OpUnset, OpSet, OpInc, OpPush}
	for op := range upd {
		if !slices.Contains(order, op) {
			return fmt.Errorf("%w: unknown operator %q", types.ErrInvalidUpdate, op)
		}
	}
	for _, op := range order {
		raw, present := upd[op]
		if !present {
			continue
		}
		fields, ok := raw.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: %s requires an object", types.ErrInvalidUpdate, op)
		}
		paths := make([]string, 0, len(fields))
		for p := range fields {
			paths = append(paths, p)
		}
		slices.Sort(paths)
		for _, path := range paths {
			if err := applyOperator(doc, op, path, fields[path]); err != nil {
				return err
			}
		}
	}
	return nil
}

func applyOperator(doc types.Document, op, path string, operand any) error {
	if path == "" {
		return fmt.Errorf("%w: %s with empty field name", types.ErrInvalidUpdate, op)
	}
	segs := splitPath(path)
	if segs[0] == types.IDField {
		return fmt.Errorf("%w: %s cannot modify %s", types.ErrInvalidUpdate, op, types.IDField)
	}

	switch op {
	case OpUnset:
		deletePath(doc, segs)
		return nil
	case OpSet:
		if !setPath(doc, segs, operand) {
			return fmt.Errorf("%w: %s: %q crosses a non-object value", types.ErrInvalidUpdate, op, path)
		}
		return nil
	case OpInc:
		delta, ok := toFloat(operand)
		if !ok {
			return fmt.Errorf("%w: %s on %q requires a number", types.ErrInvalidUpdate, op, path)
		}
		cur, found := lookupObject(doc, segs)
		if found {
			n, ok := toFloat(cur)
			if !ok {
				return fmt.Errorf("%w: %s on non-numeric field %q", types.ErrInvalidUpdate, op, path)
			}
			delta += n
		}
		if !setPath(doc, segs, delta) {
			return fmt.Errorf("%w: %s: %q crosses a non-object value", types.ErrInvalidUpdate, op, path)
		}
		return nil
	case OpPush:
		items := []any{operand}
		if m, ok := operand.(map[string]any); ok {
			if each, ok := m["$each"]; ok {
				list, ok := each.([]any)
				if !ok || len(m) != 1 {
					return fmt.Errorf("%w: %s $each on %q requires an array", types.ErrInvalidUpdate, op, path)
				}
				items = list
			}
		}
		cur, found := lookupObject(doc, segs)
		var arr []any
		if found {
			a, ok := cur.([]any)
			if !ok {
				return fmt.Errorf("%w: %s on non-array field %q", types.ErrInvalidUpdate, op, path)
			}
			arr = slices.Clone(a)
		}
		arr = append(arr, items...)
		if !setPath(doc, segs, arr) {
			return fmt.Errorf("%w: %s: %q crosses a non-object value", types.ErrInvalidUpdate, op, path)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown operator %q", types.ErrInvalidUpdate, op)
}
