package sqlgate

import (
	"slices"
)

const (
	// DefaultMaxDepth is the nesting limit used when FilterPolicy.MaxDepth is 0.
	DefaultMaxDepth = 5

	// DefaultMaxNodes is the node limit used when FilterPolicy.MaxNodes is 0.
	DefaultMaxNodes = 10000
)

// FilterPolicy restricts what a user-supplied filter may do. The zero value
// allows every field and operator with the default size limits.
type FilterPolicy struct {
	// AllowedFields lists the fields a filter may reference. Empty allows all.
	AllowedFields []string

	// DeniedOperators lists operators a filter may not use.
	DeniedOperators []Operator

	// MaxDepth bounds AND/OR/NOT nesting. The root has depth 0.
	MaxDepth int

	// MaxNodes bounds the total number of nodes.
	MaxNodes int
}

// Check validates expr and then enforces the policy, returning the first
// violation in depth-first order.
func (p FilterPolicy) Check(expr FilterExpr) error {
	if err := ValidateFilter(expr); err != nil {
		return err
	}
	maxDepth := p.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	maxNodes := p.MaxNodes
	if maxNodes <= 0 {
		maxNodes = DefaultMaxNodes
	}

	nodes := 0
	return Walk(expr, func(node FilterExpr, depth int) error {
		nodes++
		if nodes > maxNodes {
			return &TooManyNodesError{Max: maxNodes}
		}
		if depth > maxDepth {
			return &NestingTooDeepError{Max: maxDepth, Actual: depth}
		}
		cmp, ok := node.(CompareExpr)
		if !ok {
			return nil
		}
		field := cmp.field.String()
		if len(p.AllowedFields) > 0 && !slices.Contains(p.AllowedFields, field) {
			return &FieldNotAllowedError{Field: field, Allowed: p.AllowedFields}
		}
		if slices.Contains(p.DeniedOperators, cmp.op) {
			return &OperatorDeniedError{Operator: cmp.op, Field: field}
		}
		return nil
	})
}

// MergeFilters combines a trusted filter (for example a tenant restriction)
// with a user filter. Only the user filter is checked against policy. The
// result is the conjunction with the trusted filter first, or whichever
// side is non-nil, or nil.
func MergeFilters(trusted, user FilterExpr, policy FilterPolicy) (FilterExpr, error) {
	if user != nil {
		if err := policy.Check(user); err != nil {
			return nil, err
		}
	}
	switch {
	case trusted == nil:
		return user, nil
	case user == nil:
		return trusted, nil
	}
	return AndExpr{exprs: []FilterExpr{trusted, user}}, nil
}
