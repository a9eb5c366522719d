package query

import (
	"regexp"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/mesh-intelligence/larder/pkg/types"
)

// Predicate is a compiled where object.
//
// This is a sealed interface: only types in this package implement it.
type Predicate interface {
	// Match reports whether doc satisfies the predicate.
	Match(doc types.Document) bool
	predicateNode()
}

// And holds when every child holds. An empty And matches everything.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Match implements Predicate.
func (p And) Match(doc types.Document) bool {
	for _, c := range p.Predicates {
		if !c.Match(doc) {
			return false
		}
	}
	return true
}

// Or holds when at least one child holds.
type Or struct {
	Predicates []Predicate
}

func (Or) predicateNode() {}

// Match implements Predicate.
func (p Or) Match(doc types.Document) bool {
	for _, c := range p.Predicates {
		if c.Match(doc) {
			return true
		}
	}
	return false
}

// Nor holds when no child holds.
type Nor struct {
	Predicates []Predicate
}

func (Nor) predicateNode() {}

// Match implements Predicate.
func (p Nor) Match(doc types.Document) bool {
	return !Or(p).Match(doc)
}

// Expr evaluates a boolean expr-lang expression with the document's fields
// as variables. Undefined variables are nil; runtime errors and non-boolean
// results do not match.
type Expr struct {
	Source  string
	program *vm.Program
}

func (Expr) predicateNode() {}

// Match implements Predicate.
func (p Expr) Match(doc types.Document) bool {
	if p.program == nil {
		return false
	}
	env := map[string]any(doc)
	if env == nil {
		env = map[string]any{}
	}
	out, err := expr.Run(p.program, env)
	if err != nil {
		return false
	}
	b, ok := out.(bool)
	return ok && b
}

// Field applies a condition to the value found at Path.
type Field struct {
	Path string
	Cond Condition

	segs []string
}

func (Field) predicateNode() {}

// Match implements Predicate.
func (p Field) Match(doc types.Document) bool {
	segs := p.segs
	if segs == nil {
		segs = splitPath(p.Path)
	}
	v, found := lookup(map[string]any(doc), segs)
	return p.Cond.Eval(v, found)
}

// Condition tests one field value. found is false when the path did not
// resolve.
//
// This is a sealed interface: only types in this package implement it.
type Condition interface {
	Eval(v any, found bool) bool
	conditionNode()
}

// anyElement applies test to v, or to each element when v is an array.
func anyElement(v any, test func(any) bool) bool {
	if test(v) {
		return true
	}
	if arr, ok := v.([]any); ok {
		for _, e := range arr {
			if test(e) {
				return true
			}
		}
	}
	return false
}

// Eq matches values equal to Value. A missing field equals null.
type Eq struct {
	Value any
}

func (Eq) conditionNode() {}

// Eval implements Condition.
func (c Eq) Eval(v any, found bool) bool {
	if !found {
		return c.Value == nil
	}
	return anyElement(v, func(e any) bool { return equal(e, c.Value) })
}

// Ne is the negation of Eq, so it matches missing fields.
type Ne struct {
	Value any
}

func (Ne) conditionNode() {}

// Eval implements Condition.
func (c Ne) Eval(v any, found bool) bool {
	return !Eq(c).Eval(v, found)
}

// Comparison operators.
const (
	OpGt  = "$gt"
	OpGte = "$gte"
	OpLt  = "$lt"
	OpLte = "$lte"
)

// Compare orders the field value against Value. Only numbers against numbers
// and strings against strings compare; anything else is false.
type Compare struct {
	Op    string
	Value any
}

func (Compare) conditionNode() {}

// Eval implements Condition.
func (c Compare) Eval(v any, found bool) bool {
	if !found {
		return false
	}
	return anyElement(v, func(e any) bool {
		if !orderable(e, c.Value) {
			return false
		}
		r := compareValues(e, true, c.Value, true)
		switch c.Op {
		case OpGt:
			return r > 0
		case OpGte:
			return r >= 0
		case OpLt:
			return r < 0
		case OpLte:
			return r <= 0
		}
		return false
	})
}

func orderable(a, b any) bool {
	ra, rb := rank(a, true), rank(b, true)
	return ra == rb && (ra == rankNumber || ra == rankString)
}

// In matches when the value equals any element of Values.
type In struct {
	Values []any
}

func (In) conditionNode() {}

// Eval implements Condition.
func (c In) Eval(v any, found bool) bool {
	for _, want := range c.Values {
		if (Eq{Value: want}).Eval(v, found) {
			return true
		}
	}
	return false
}

// Nin matches when the value equals no element of Values.
type Nin struct {
	Values []any
}

func (Nin) conditionNode() {}

// Eval implements Condition.
func (c Nin) Eval(v any, found bool) bool {
	return !In(c).Eval(v, found)
}

// Exists matches on presence of the field, null included.
type Exists struct {
	Want bool
}

func (Exists) conditionNode() {}

// Eval implements Condition.
func (c Exists) Eval(_ any, found bool) bool {
	return found == c.Want
}

// Not inverts a condition.
type Not struct {
	Cond Condition
}

func (Not) conditionNode() {}

// Eval implements Condition.
func (c Not) Eval(v any, found bool) bool {
	return !c.Cond.Eval(v, found)
}

// Regex matches string values (or string array elements).
type Regex struct {
	Pattern *regexp.Regexp
}

func (Regex) conditionNode() {}

// Eval implements Condition.
func (c Regex) Eval(v any, found bool) bool {
	if !found {
		return false
	}
	return anyElement(v, func(e any) bool {
		s, ok := e.(string)
		return ok && c.Pattern.MatchString(s)
	})
}

// Size matches arrays of exactly N elements.
type Size struct {
	N int
}

func (Size) conditionNode() {}

// Eval implements Condition.
func (c Size) Eval(v any, found bool) bool {
	arr, ok := v.([]any)
	return found && ok && len(arr) == c.N
}

// All holds when every condition holds, e.g. {$gt: 1, $lt: 5}.
type All struct {
	Conds []Condition
}

func (All) conditionNode() {}

// Eval implements Condition.
func (c All) Eval(v any, found bool) bool {
	for _, cond := range c.Conds {
		if !cond.Eval(v, found) {
			return false
		}
	}
	return true
}
