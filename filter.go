package sqlgate

// FilterExpr is a boolean expression tree over validated fields. The
// implementations are CompareExpr, AndExpr, OrExpr and NotExpr; they can only
// be built through Compare, And, Or and Not, which validate their input, and
// are immutable afterwards.
type FilterExpr interface {
	filterExpr()
}

// CompareExpr is a leaf comparison: field <op> value.
type CompareExpr struct {
	field Identifier
	op    Operator
	value Value
}

// AndExpr is the conjunction of one or more expressions.
type AndExpr struct {
	exprs []FilterExpr
}

// OrExpr is the disjunction of one or more expressions.
type OrExpr struct {
	exprs []FilterExpr
}

// NotExpr negates an expression.
type NotExpr struct {
	expr FilterExpr
}

func (CompareExpr) filterExpr() {}
func (AndExpr) filterExpr()     {}
func (OrExpr) filterExpr()      {}
func (NotExpr) filterExpr()     {}

// Field returns the compared field.
func (c CompareExpr) Field() Identifier { return c.field }

// Op returns the comparison operator.
func (c CompareExpr) Op() Operator { return c.op }

// Value returns the operand.
func (c CompareExpr) Value() Value { return c.value }

// Exprs returns a copy of the conjuncts.
func (a AndExpr) Exprs() []FilterExpr { return append([]FilterExpr(nil), a.exprs...) }

// Exprs returns a copy of the disjuncts.
func (o OrExpr) Exprs() []FilterExpr { return append([]FilterExpr(nil), o.exprs...) }

// Expr returns the negated expression.
func (n NotExpr) Expr() FilterExpr { return n.expr }

// Compare builds a leaf comparison after validating the field name and the
// operator/operand combination.
func Compare(field string, op Operator, v Value) (FilterExpr, error) {
	id, err := ValidateIdentifier(field)
	if err != nil {
		return nil, err
	}
	if err := ValidateOperatorValue(field, op, v); err != nil {
		return nil, err
	}
	return CompareExpr{field: id, op: op, value: v}, nil
}

// And builds a conjunction. At least one non-nil expression is required.
func And(exprs ...FilterExpr) (FilterExpr, error) {
	children, err := groupChildren(exprs)
	if err != nil {
		return nil, err
	}
	return AndExpr{exprs: children}, nil
}

// Or builds a disjunction. At least one non-nil expression is required.
func Or(exprs ...FilterExpr) (FilterExpr, error) {
	children, err := groupChildren(exprs)
	if err != nil {
		return nil, err
	}
	return OrExpr{exprs: children}, nil
}

// Not negates expr.
func Not(expr FilterExpr) (FilterExpr, error) {
	if expr == nil {
		return nil, ErrNilFilter
	}
	return NotExpr{expr: expr}, nil
}

// Must panics if err is non-nil and otherwise returns expr. It is meant for
// filters fixed at compile time:
//
//	active := sqlgate.Must(sqlgate.Compare("active", sqlgate.OpEq, sqlgate.Bool(true)))
func Must(expr FilterExpr, err error) FilterExpr {
	if err != nil {
		panic(err)
	}
	return expr
}

func groupChildren(exprs []FilterExpr) ([]FilterExpr, error) {
	if len(exprs) == 0 {
		return nil, ErrEmptyGroup
	}
	children := make([]FilterExpr, len(exprs))
	for i, e := range exprs {
		if e == nil {
			return nil, ErrNilFilter
		}
		children[i] = e
	}
	return children, nil
}

// Walk visits expr depth-first in pre-order, passing each node and its depth
// (the root has depth 0). Walk stops at the first error fn returns.
func Walk(expr FilterExpr, fn func(node FilterExpr, depth int) error) error {
	return walk(expr, 0, fn)
}

func walk(expr FilterExpr, depth int, fn func(FilterExpr, int) error) error {
	if err := fn(expr, depth); err != nil {
		return err
	}
	var children []FilterExpr
	switch e := expr.(type) {
	case AndExpr:
		children = e.exprs
	case OrExpr:
		children = e.exprs
	case NotExpr:
		children = []FilterExpr{e.expr}
	}
	for _, c := range children {
		if err := walk(c, depth+1, fn); err != nil {
			return err
		}
	}
	return nil
}

// conjoin ANDs the non-nil expressions, flattening nested conjunctions.
// It returns nil when nothing remains.
func conjoin(exprs ...FilterExpr) FilterExpr {
	var flat []FilterExpr
	for _, e := range exprs {
		switch t := e.(type) {
		case nil:
		case AndExpr:
			flat = append(flat, t.exprs...)
		default:
			flat = append(flat, t)
		}
	}
	switch len(flat) {
	case 0:
		return nil
	case 1:
		return flat[0]
	default:
		return AndExpr{exprs: flat}
	}
}
