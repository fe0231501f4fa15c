// Package filterjson parses Mongo-style JSON filter documents into
// sqlgate filter trees.
//
// A document is an object whose keys are field names or the logical
// operators $and, $or and $not:
//
//	{"active": true, "age": {"$gte": 18, "$lt": 65}, "$or": [{"role": "admin"}, {"role": "owner"}]}
//
// A bare value is an implicit $eq. Several keys, or several operators on
// one field, are combined with AND in document order. Operator names are
// resolved with sqlgate.ParseOperator, so aliases such as $starts_with and
// $notIn are accepted.
package filterjson

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pthm/sqlgate"
)

// MaxNesting bounds how deeply $and, $or and $not may nest in a document.
const MaxNesting = 64

// SyntaxError reports a document that is not shaped like a filter.
type SyntaxError struct {
	Reason string
	Err    error
}

func (e *SyntaxError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("filter syntax: %s: %v", e.Reason, e.Err)
	}
	return "filter syntax: " + e.Reason
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// Is makes every SyntaxError a validation error.
func (e *SyntaxError) Is(target error) bool { return target == sqlgate.ErrValidation }

// GRPCStatus maps the error to codes.InvalidArgument.
func (e *SyntaxError) GRPCStatus() *status.Status {
	return status.New(codes.InvalidArgument, e.Error())
}

func syntaxErr(format string, args ...any) error {
	return &SyntaxError{Reason: fmt.Sprintf(format, args...)}
}

// Parse parses a filter document. Errors are *SyntaxError for malformed
// documents and the sqlgate validation errors for invalid fields,
// operators or operands.
func Parse(data []byte) (sqlgate.FilterExpr, error) {
	return parseFilter(data, 0)
}

// ParseString is Parse for a string.
func ParseString(s string) (sqlgate.FilterExpr, error) {
	return Parse([]byte(s))
}

// ParseWithPolicy parses a filter document and checks it against policy.
func ParseWithPolicy(data []byte, policy sqlgate.FilterPolicy) (sqlgate.FilterExpr, error) {
	expr, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(expr); err != nil {
		return nil, err
	}
	return expr, nil
}

func parseFilter(data []byte, depth int) (sqlgate.FilterExpr, error) {
	if depth > MaxNesting {
		return nil, syntaxErr("nested deeper than %d levels", MaxNesting)
	}
	members, err := decodeObject(data)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, syntaxErr("empty filter")
	}

	filters := make([]sqlgate.FilterExpr, 0, len(members))
	for _, m := range members {
		var f sqlgate.FilterExpr
		switch {
		case m.key == "":
			return nil, syntaxErr("empty field name")
		case m.key == "$and", m.key == "$or":
			children, err := parseFilterArray(m.key, m.value, depth+1)
			if err != nil {
				return nil, err
			}
			if m.key == "$and" {
				f, err = sqlgate.And(children...)
			} else {
				f, err = sqlgate.Or(children...)
			}
			if err != nil {
				return nil, err
			}
		case m.key == "$not":
			inner, err := decodeObject(m.value)
			if err != nil {
				return nil, err
			}
			if len(inner) != 1 {
				return nil, syntaxErr("$not requires exactly one condition, got %d", len(inner))
			}
			child, err := parseFilter(m.value, depth+1)
			if err != nil {
				return nil, err
			}
			if f, err = sqlgate.Not(child); err != nil {
				return nil, err
			}
		case m.key[0] == '$':
			if _, err := sqlgate.ParseOperator(m.key); err != nil {
				return nil, err
			}
			return nil, syntaxErr("operator %s must be applied to a field", m.key)
		default:
			if f, err = parseField(m.key, m.value); err != nil {
				return nil, err
			}
		}
		filters = append(filters, f)
	}

	if len(filters) == 1 {
		return filters[0], nil
	}
	return sqlgate.And(filters...)
}

func parseFilterArray(op string, data []byte, depth int) ([]sqlgate.FilterExpr, error) {
	var items []json.RawMessage
	if kindOf(data) != '[' {
		return nil, syntaxErr("%s expects an array", op)
	}
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, &SyntaxError{Reason: "invalid JSON", Err: err}
	}
	out := make([]sqlgate.FilterExpr, len(items))
	for i, item := range items {
		f, err := parseFilter(item, depth)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

// parseField parses the condition on one field: either a bare value or an
// object of operators.
func parseField(field string, data []byte) (sqlgate.FilterExpr, error) {
	if kindOf(data) != '{' {
		v, err := parseValue(data)
		if err != nil {
			return nil, err
		}
		return sqlgate.Compare(field, sqlgate.OpEq, v)
	}

	ops, err := decodeObject(data)
	if err != nil {
		return nil, err
	}
	if len(ops) == 0 {
		return nil, syntaxErr("field %q has an empty operator object", field)
	}
	conds := make([]sqlgate.FilterExpr, 0, len(ops))
	for _, m := range ops {
		if m.key == "" || m.key[0] != '$' {
			return nil, syntaxErr("field %q: expected an operator, got %q", field, m.key)
		}
		op, err := sqlgate.ParseOperator(m.key)
		if err != nil {
			return nil, err
		}
		v, err := parseValue(m.value)
		if err != nil {
			return nil, err
		}
		c, err := sqlgate.Compare(field, op, v)
		if err != nil {
			return nil, err
		}
		conds = append(conds, c)
	}
	if len(conds) == 1 {
		return conds[0], nil
	}
	return sqlgate.And(conds...)
}

func parseValue(data []byte) (sqlgate.Value, error) {
	var v sqlgate.Value
	if err := json.Unmarshal(data, &v); err != nil {
		if errors.Is(err, sqlgate.ErrValidation) {
			return sqlgate.Value{}, err
		}
		return sqlgate.Value{}, &SyntaxError{Reason: "invalid value", Err: err}
	}
	return v, nil
}

type member struct {
	key   string
	value json.RawMessage
}

// decodeObject decodes a JSON object into its members in document order.
// Duplicate keys are rejected.
func decodeObject(data []byte) ([]member, error) {
	if kindOf(data) != '{' {
		return nil, syntaxErr("expected an object")
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, &SyntaxError{Reason: "invalid JSON", Err: err}
	}

	var members []member
	seen := make(map[string]struct{})
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, &SyntaxError{Reason: "invalid JSON", Err: err}
		}
		key, ok := tok.(string)
		if !ok {
			return nil, syntaxErr("expected an object key")
		}
		if _, dup := seen[key]; dup {
			return nil, syntaxErr("duplicate key %q", key)
		}
		seen[key] = struct{}{}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, &SyntaxError{Reason: "invalid JSON", Err: err}
		}
		members = append(members, member{key: key, value: raw})
	}
	if _, err := dec.Token(); err != nil {
		return nil, &SyntaxError{Reason: "invalid JSON", Err: err}
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, syntaxErr("unexpected data after the filter object")
	}
	return members, nil
}

// kindOf returns the first non-space byte of a JSON document, or 0.
func kindOf(data []byte) byte {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}
