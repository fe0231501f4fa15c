package sqlgate

import (
	"fmt"
	"strings"
)

// ValidateOperatorValue checks that v has the shape and type op requires:
//
//   - In and NotIn take a non-empty array of non-null scalars;
//   - Between takes an array of exactly two scalars of a comparable type;
//   - every other operator takes a scalar;
//   - the LIKE family requires a string;
//   - ordering operators reject null.
//
// field is used for error reporting only.
func ValidateOperatorValue(field string, op Operator, v Value) error {
	if !op.Valid() {
		return &UnknownOperatorError{Value: op.String()}
	}

	switch op.Arity() {
	case ArityArray:
		if v.Kind() != KindArray {
			return &ArityMismatchError{Operator: op, Expected: "array", Got: v.Kind().String()}
		}
		if v.Len() == 0 {
			return &EmptyArrayError{Operator: op}
		}
		for _, e := range v.arr {
			if err := checkElement(field, e); err != nil {
				return err
			}
		}
		return nil

	case ArityPair:
		if v.Kind() != KindArray {
			return &ArityMismatchError{Operator: op, Expected: "array of 2 elements", Got: v.Kind().String()}
		}
		if v.Len() != 2 {
			return &ArityMismatchError{
				Operator: op,
				Expected: "array of 2 elements",
				Got:      fmt.Sprintf("array of %d elements", v.Len()),
			}
		}
		low, high := v.arr[0], v.arr[1]
		for _, e := range v.arr {
			if err := checkElement(field, e); err != nil {
				return err
			}
			if err := checkOrderable(field, e); err != nil {
				return err
			}
		}
		if isNumeric(low) != isNumeric(high) || (!isNumeric(low) && low.Kind() != high.Kind()) {
			return &TypeMismatchError{Field: field, Expected: low.Kind().String(), Got: high.Kind().String()}
		}
		return nil
	}

	if v.Kind() == KindArray {
		return &ArityMismatchError{Operator: op, Expected: "scalar", Got: "array"}
	}
	switch {
	case op.IsPattern():
		if v.Kind() != KindString {
			return &TypeMismatchError{Field: field, Expected: "string", Got: v.Kind().String()}
		}
	case op.IsOrdering():
		return checkOrderable(field, v)
	}
	return nil
}

func checkElement(field string, e Value) error {
	switch e.Kind() {
	case KindArray:
		return &TypeMismatchError{Field: field, Expected: "scalar", Got: "array"}
	case KindNull:
		return &TypeMismatchError{Field: field, Expected: "non-null scalar", Got: "null"}
	}
	return nil
}

func checkOrderable(field string, v Value) error {
	switch v.Kind() {
	case KindBool, KindInt, KindFloat, KindString:
		return nil
	}
	return &TypeMismatchError{Field: field, Expected: "bool, number or string", Got: v.Kind().String()}
}

func isNumeric(v Value) bool {
	return v.Kind() == KindInt || v.Kind() == KindFloat
}

// ValidateFilter re-validates every node of expr and returns the first
// violation found in depth-first order. Trees built with Compare, And, Or and
// Not always pass; zero-valued nodes do not.
func ValidateFilter(expr FilterExpr) error {
	switch e := expr.(type) {
	case nil:
		return ErrNilFilter
	case CompareExpr:
		if e.field.IsZero() {
			return &InvalidIdentifierError{Value: "", Reason: "empty"}
		}
		return ValidateOperatorValue(e.field.String(), e.op, e.value)
	case AndExpr:
		return validateGroup(e.exprs)
	case OrExpr:
		return validateGroup(e.exprs)
	case NotExpr:
		return ValidateFilter(e.expr)
	}
	return fmt.Errorf("%w: unsupported filter node %T", ErrValidation, expr)
}

func validateGroup(exprs []FilterExpr) error {
	if len(exprs) == 0 {
		return ErrEmptyGroup
	}
	for _, e := range exprs {
		if err := ValidateFilter(e); err != nil {
			return err
		}
	}
	return nil
}

// MaxExpressionLength bounds computed column expressions.
const MaxExpressionLength = 1000

// dangerousKeywords may not appear as whole words in a computed expression.
var dangerousKeywords = []string{
	"select", "insert", "update", "delete", "drop", "truncate", "alter",
	"create", "grant", "revoke", "exec", "execute", "union", "into", "from",
	"where", "having", "group", "order", "limit", "offset", "fetch",
	"returning", "sleep", "benchmark", "waitfor", "pg_sleep", "dbms_lock",
	"load_file", "into_outfile", "into_dumpfile", "chr", "char", "ascii",
	"unicode", "hex", "unhex", "convert", "cast", "encode", "decode",
}

// ValidateExpression guards the raw SQL of a computed column. It rejects
// comments, statement separators, backticks, data-modifying or time-based
// keywords, system catalog prefixes and hex escapes. Computed expressions are
// expected to come from application code, not from requests.
func ValidateExpression(expr string) error {
	if expr == "" {
		return fmt.Errorf("%w: empty expression", ErrUnsafeExpression)
	}
	if len(expr) > MaxExpressionLength {
		return fmt.Errorf("%w: longer than %d characters", ErrUnsafeExpression, MaxExpressionLength)
	}
	for _, seq := range []string{"--", "/*", "*/", ";", "`"} {
		if strings.Contains(expr, seq) {
			return fmt.Errorf("%w: contains %q", ErrUnsafeExpression, seq)
		}
	}
	lower := strings.ToLower(expr)
	for _, kw := range dangerousKeywords {
		if containsWord(lower, kw) {
			return fmt.Errorf("%w: contains keyword %q", ErrUnsafeExpression, kw)
		}
	}
	for _, prefix := range []string{"pg_", "sqlite_", "information_schema", "sys."} {
		if strings.Contains(lower, prefix) {
			return fmt.Errorf("%w: references %q", ErrUnsafeExpression, prefix)
		}
	}
	if strings.Contains(lower, "0x") || strings.Contains(lower, `\x`) {
		return fmt.Errorf("%w: contains a hex escape", ErrUnsafeExpression)
	}
	return nil
}

// containsWord reports whether word occurs in s delimited by non-identifier
// characters.
func containsWord(s, word string) bool {
	for from := 0; ; {
		i := strings.Index(s[from:], word)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(word)
		if (start == 0 || !isIdentByte(s[start-1])) && (end == len(s) || !isIdentByte(s[end])) {
			return true
		}
		from = start + 1
	}
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
