package sqlgate

import (
	"fmt"

	"github.com/pthm/sqlgate/internal/sqlgen/sqldsl"
)

// binder numbers placeholders for one statement. Every call to bind
// appends exactly one parameter and returns its marker, so the rendered
// text and the parameter list cannot drift apart.
type binder struct {
	dialect Dialect
	params  []Value

	// aliases maps result column names to the expressions they stand for,
	// used when rendering HAVING.
	aliases map[string]sqldsl.Expr
}

func newBinder(d Dialect) *binder {
	return &binder{dialect: d}
}

func (b *binder) bind(v Value) sqldsl.Expr {
	b.params = append(b.params, v)
	return sqldsl.Placeholder(b.dialect.Placeholder(len(b.params)))
}

func (b *binder) bindAll(vs []Value) []sqldsl.Expr {
	out := make([]sqldsl.Expr, len(vs))
	for i, v := range vs {
		out[i] = b.bind(v)
	}
	return out
}

// filter renders expr to the SQL DSL, binding operands in the order they
// appear in the text.
func (b *binder) filter(expr FilterExpr) (sqldsl.Expr, error) {
	switch e := expr.(type) {
	case nil:
		return nil, nil
	case CompareExpr:
		return b.compare(b.column(e.field), e.op, e.value)
	case AndExpr:
		children, err := b.filters(e.exprs)
		if err != nil {
			return nil, err
		}
		return sqldsl.And(children...), nil
	case OrExpr:
		children, err := b.filters(e.exprs)
		if err != nil {
			return nil, err
		}
		return sqldsl.Or(children...), nil
	case NotExpr:
		child, err := b.filter(e.expr)
		if err != nil {
			return nil, err
		}
		return sqldsl.Not(child), nil
	default:
		return nil, fmt.Errorf("%w: unsupported filter node %T", ErrValidation, expr)
	}
}

func (b *binder) column(id Identifier) sqldsl.Expr {
	if e, ok := b.aliases[id.String()]; ok {
		return e
	}
	return sqldsl.Ident(id.String())
}

func (b *binder) filters(exprs []FilterExpr) ([]sqldsl.Expr, error) {
	if len(exprs) == 0 {
		return nil, ErrEmptyGroup
	}
	out := make([]sqldsl.Expr, len(exprs))
	for i, e := range exprs {
		r, err := b.filter(e)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

// compare renders one comparison against col. The operand is re-validated
// here so hand-assembled trees cannot bypass the operator rules.
func (b *binder) compare(col sqldsl.Expr, op Operator, v Value) (sqldsl.Expr, error) {
	if err := ValidateOperatorValue(col.SQL(), op, v); err != nil {
		return nil, err
	}
	concat := b.dialect.ConcatOperator()

	switch op {
	case OpEq:
		if v.IsNull() {
			return sqldsl.IsNull{Expr: col}, nil
		}
		return sqldsl.Eq{Left: col, Right: b.bind(v)}, nil
	case OpNe:
		if v.IsNull() {
			return sqldsl.IsNotNull{Expr: col}, nil
		}
		return sqldsl.Ne{Left: col, Right: b.bind(v)}, nil
	case OpGt:
		return sqldsl.Gt{Left: col, Right: b.bind(v)}, nil
	case OpGte:
		return sqldsl.Gte{Left: col, Right: b.bind(v)}, nil
	case OpLt:
		return sqldsl.Lt{Left: col, Right: b.bind(v)}, nil
	case OpLte:
		return sqldsl.Lte{Left: col, Right: b.bind(v)}, nil
	case OpIn:
		return sqldsl.In{Expr: col, Values: b.bindAll(v.arr)}, nil
	case OpNotIn:
		return sqldsl.NotIn{Expr: col, Values: b.bindAll(v.arr)}, nil
	case OpLike:
		return sqldsl.Like{Expr: col, Pattern: b.bind(v)}, nil
	case OpILike:
		if b.dialect.NativeILike() {
			return sqldsl.ILike{Expr: col, Pattern: b.bind(v)}, nil
		}
		return sqldsl.Like{Expr: sqldsl.Upper(col), Pattern: sqldsl.Upper(b.bind(v))}, nil
	case OpStartsWith:
		p := b.bind(v)
		return sqldsl.Like{Expr: col, Pattern: sqldsl.Concat{Op: concat, Parts: []sqldsl.Expr{p, sqldsl.Lit("%")}}}, nil
	case OpEndsWith:
		p := b.bind(v)
		return sqldsl.Like{Expr: col, Pattern: sqldsl.Concat{Op: concat, Parts: []sqldsl.Expr{sqldsl.Lit("%"), p}}}, nil
	case OpContains:
		p := b.bind(v)
		return sqldsl.Like{Expr: col, Pattern: sqldsl.Concat{Op: concat, Parts: []sqldsl.Expr{sqldsl.Lit("%"), p, sqldsl.Lit("%")}}}, nil
	case OpBetween:
		low := b.bind(v.arr[0])
		high := b.bind(v.arr[1])
		return sqldsl.Between{Expr: col, Low: low, High: high}, nil
	}
	return nil, &UnknownOperatorError{Value: op.String()}
}
