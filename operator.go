package sqlgate

import (
	"strconv"
	"strings"
)

// Operator is a comparison operator usable in a filter leaf.
type Operator uint8

const (
	OpEq Operator = iota + 1
	OpNe
	OpGt
	OpGte
	OpLt
	OpLte
	OpIn
	OpNotIn
	OpLike
	OpILike
	OpStartsWith
	OpEndsWith
	OpContains
	OpBetween
)

// Arity classifies the operand shape an operator requires.
type Arity uint8

const (
	// ArityScalar takes a single non-array operand.
	ArityScalar Arity = iota + 1
	// ArityArray takes a non-empty array of scalars.
	ArityArray
	// ArityPair takes an array of exactly two scalars.
	ArityPair
)

var operatorNames = [...]string{
	OpEq:         "$eq",
	OpNe:         "$ne",
	OpGt:         "$gt",
	OpGte:        "$gte",
	OpLt:         "$lt",
	OpLte:        "$lte",
	OpIn:         "$in",
	OpNotIn:      "$nin",
	OpLike:       "$like",
	OpILike:      "$ilike",
	OpStartsWith: "$startsWith",
	OpEndsWith:   "$endsWith",
	OpContains:   "$contains",
	OpBetween:    "$between",
}

// operatorAliases maps lower-cased names, without the leading $, to operators.
var operatorAliases = map[string]Operator{
	"eq":          OpEq,
	"ne":          OpNe,
	"gt":          OpGt,
	"gte":         OpGte,
	"lt":          OpLt,
	"lte":         OpLte,
	"in":          OpIn,
	"nin":         OpNotIn,
	"notin":       OpNotIn,
	"not_in":      OpNotIn,
	"like":        OpLike,
	"ilike":       OpILike,
	"startswith":  OpStartsWith,
	"starts_with": OpStartsWith,
	"endswith":    OpEndsWith,
	"ends_with":   OpEndsWith,
	"contains":    OpContains,
	"between":     OpBetween,
}

// Operators returns every operator in declaration order.
func Operators() []Operator {
	ops := make([]Operator, 0, len(operatorNames)-1)
	for op := OpEq; op <= OpBetween; op++ {
		ops = append(ops, op)
	}
	return ops
}

// Valid reports whether op is one of the declared operators.
func (op Operator) Valid() bool {
	return op >= OpEq && op <= OpBetween
}

// String returns the canonical Mongo-style name, e.g. "$gte".
func (op Operator) String() string {
	if op.Valid() {
		return operatorNames[op]
	}
	return "Operator(" + strconv.Itoa(int(op)) + ")"
}

// Arity returns the operand shape op requires.
func (op Operator) Arity() Arity {
	switch op {
	case OpIn, OpNotIn:
		return ArityArray
	case OpBetween:
		return ArityPair
	default:
		return ArityScalar
	}
}

// IsPattern reports whether op is one of the LIKE family.
func (op Operator) IsPattern() bool {
	switch op {
	case OpLike, OpILike, OpStartsWith, OpEndsWith, OpContains:
		return true
	}
	return false
}

// IsOrdering reports whether op is a strict or non-strict inequality.
func (op Operator) IsOrdering() bool {
	switch op {
	case OpGt, OpGte, OpLt, OpLte:
		return true
	}
	return false
}

// ParseOperator resolves an operator name. The leading $ is optional and
// matching is case-insensitive; snake_case aliases are accepted. Unknown
// names yield an *UnknownOperatorError carrying the closest known operator.
func ParseOperator(name string) (Operator, error) {
	key := strings.ToLower(strings.TrimPrefix(name, "$"))
	if op, ok := operatorAliases[key]; ok {
		return op, nil
	}
	return 0, &UnknownOperatorError{Value: name, Suggestion: suggestOperator(name)}
}

// MarshalText implements encoding.TextMarshaler.
func (op Operator) MarshalText() ([]byte, error) {
	return []byte(op.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (op *Operator) UnmarshalText(text []byte) error {
	parsed, err := ParseOperator(string(text))
	if err != nil {
		return err
	}
	*op = parsed
	return nil
}
