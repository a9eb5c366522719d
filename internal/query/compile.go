package query

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/mesh-intelligence/larder/pkg/types"
)

// Compile turns a where object into a predicate tree. A nil or empty filter
// compiles to an And with no children, which matches everything.
// Malformed filters return an error wrapping types.ErrInvalidFilter.
func Compile(filter types.Filter) (Predicate, error) {
	if len(filter) == 0 {
		return And{}, nil
	}
	v, err := Canonicalize(filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidFilter, err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: filter must be an object", types.ErrInvalidFilter)
	}
	return compileObject(m)
}

// MustCompile is like Compile but panics on error. Intended for tests and
// package-level filters.
func MustCompile(filter types.Filter) Predicate {
	p, err := Compile(filter)
	if err != nil {
		panic(err)
	}
	return p
}

// Match compiles where and evaluates it against doc.
func Match(doc types.Document, where types.Filter) (bool, error) {
	p, err := Compile(where)
	if err != nil {
		return false, err
	}
	return p.Match(doc), nil
}

func compileObject(m map[string]any) (Predicate, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Deterministic evaluation order.
	slices.Sort(keys)

	preds := make([]Predicate, 0, len(keys))
	for _, key := range keys {
		val := m[key]
		var (
			p   Predicate
			err error
		)
		switch key {
		case "$and":
			p, err = compileList(key, val, func(ps []Predicate) Predicate { return And{Predicates: ps} })
		case "$or":
			p, err = compileList(key, val, func(ps []Predicate) Predicate { return Or{Predicates: ps} })
		case "$nor":
			p, err = compileList(key, val, func(ps []Predicate) Predicate { return Nor{Predicates: ps} })
		case "$expr":
			p, err = compileExpr(val)
		default:
			if strings.HasPrefix(key, "$") {
				return nil, fmt.Errorf("%w: unknown top-level operator %q", types.ErrInvalidFilter, key)
			}
			if key == "" {
				return nil, fmt.Errorf("%w: empty field name", types.ErrInvalidFilter)
			}
			var cond Condition
			cond, err = compileCondition(key, val)
			p = Field{Path: key, Cond: cond, segs: splitPath(key)}
		}
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	if len(preds) == 1 {
		return preds[0], nil
	}
	return And{Predicates: preds}, nil
}

func compileList(op string, val any, build func([]Predicate) Predicate) (Predicate, error) {
	items, ok := val.([]any)
	if !ok || len(items) == 0 {
		return nil, fmt.Errorf("%w: %s requires a non-empty array", types.ErrInvalidFilter, op)
	}
	preds := make([]Predicate, 0, len(items))
	for i, item := range items {
		sub, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s element %d is not an object", types.ErrInvalidFilter, op, i)
		}
		p, err := compileObject(sub)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	return build(preds), nil
}

func compileExpr(val any) (Predicate, error) {
	src, ok := val.(string)
	if !ok || strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("%w: $expr requires a non-empty string", types.ErrInvalidFilter)
	}
	program, err := expr.Compile(src,
		expr.Env(map[string]any{}),
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: $expr: %v", types.ErrInvalidFilter, err)
	}
	return Expr{Source: src, program: program}, nil
}

// isOperatorObject reports whether v is an object whose keys are all
// operators. Mixed objects are rejected.
func isOperatorObject(field string, v any) (map[string]any, bool, error) {
	m, ok := v.(map[string]any)
	if !ok || len(m) == 0 {
		return nil, false, nil
	}
	ops := 0
	for k := range m {
		if strings.HasPrefix(k, "$") {
			ops++
		}
	}
	switch ops {
	case 0:
		return nil, false, nil
	case len(m):
		return m, true, nil
	default:
		return nil, false, fmt.Errorf("%w: field %q mixes operators and fields", types.ErrInvalidFilter, field)
	}
}

func compileCondition(field string, val any) (Condition, error) {
	ops, isOps, err := isOperatorObject(field, val)
	if err != nil {
		return nil, err
	}
	if !isOps {
		return Eq{Value: val}, nil
	}
	return compileOperators(field, ops)
}

func compileOperators(field string, ops map[string]any) (Condition, error) {
	keys := make([]string, 0, len(ops))
	for k := range ops {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var conds []Condition
	for _, op := range keys {
		operand := ops[op]
		var (
			c   Condition
			err error
		)
		switch op {
		case "$eq":
			c = Eq{Value: operand}
		case "$ne":
			c = Ne{Value: operand}
		case OpGt, OpGte, OpLt, OpLte:
			c = Compare{Op: op, Value: operand}
		case "$in", "$nin":
			list, ok := operand.([]any)
			if !ok {
				return nil, fmt.Errorf("%w: %s on %q requires an array", types.ErrInvalidFilter, op, field)
			}
			if op == "$in" {
				c = In{Values: list}
			} else {
				c = Nin{Values: list}
			}
		case "$exists":
			c = Exists{Want: truthy(operand)}
		case "$not":
			c, err = compileNot(field, operand)
		case "$regex":
			c, err = compileRegex(field, operand, ops["$options"])
		case "$options":
			if _, ok := ops["$regex"]; !ok {
				return nil, fmt.Errorf("%w: $options on %q without $regex", types.ErrInvalidFilter, field)
			}
			continue
		case "$size":
			n, ok := toFloat(operand)
			if !ok || n < 0 || n != math.Trunc(n) {
				return nil, fmt.Errorf("%w: $size on %q requires a non-negative integer", types.ErrInvalidFilter, field)
			}
			c = Size{N: int(n)}
		default:
			return nil, fmt.Errorf("%w: unknown operator %q on %q", types.ErrInvalidFilter, op, field)
		}
		if err != nil {
			return nil, err
		}
		conds = append(conds, c)
	}
	if len(conds) == 1 {
		return conds[0], nil
	}
	return All{Conds: conds}, nil
}

func compileNot(field string, operand any) (Condition, error) {
	switch t := operand.(type) {
	case string:
		c, err := compileRegex(field, t, nil)
		if err != nil {
			return nil, err
		}
		return Not{Cond: c}, nil
	case map[string]any:
		ops, isOps, err := isOperatorObject(field, t)
		if err != nil {
			return nil, err
		}
		if !isOps {
			return nil, fmt.Errorf("%w: $not on %q requires an operator object", types.ErrInvalidFilter, field)
		}
		c, err := compileOperators(field, ops)
		if err != nil {
			return nil, err
		}
		return Not{Cond: c}, nil
	default:
		return nil, fmt.Errorf("%w: $not on %q requires an operator object or pattern", types.ErrInvalidFilter, field)
	}
}

func compileRegex(field string, pattern, options any) (Condition, error) {
	src, ok := pattern.(string)
	if !ok {
		return nil, fmt.Errorf("%w: $regex on %q requires a string", types.ErrInvalidFilter, field)
	}
	if options != nil {
		flags, ok := options.(string)
		if !ok {
			return nil, fmt.Errorf("%w: $options on %q requires a string", types.ErrInvalidFilter, field)
		}
		for _, f := range flags {
			if !strings.ContainsRune("imsx", f) {
				return nil, fmt.Errorf("%w: unsupported regex option %q on %q", types.ErrInvalidFilter, f, field)
			}
		}
		// Go's RE2 has no extended mode; x is accepted and ignored.
		flags = strings.ReplaceAll(flags, "x", "")
		if flags != "" {
			src = "(?" + flags + ")" + src
		}
	}
	re, err := regexp.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("%w: $regex on %q: %v", types.ErrInvalidFilter, field, err)
	}
	return Regex{Pattern: re}, nil
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case nil:
		return false
	}
	if f, ok := toFloat(v); ok {
		return f != 0
	}
	return true
}
