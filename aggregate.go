package sqlgate

import (
	"github.com/pthm/sqlgate/internal/sqlgen/sqldsl"
)

// Aggregate is an aggregate function over a column, selected alongside
// grouped columns. Build one with Count, CountField, CountDistinct, Sum,
// Avg, Min or Max. Invalid field names are reported when the query is built.
type Aggregate struct {
	fn       string
	field    string
	star     bool
	distinct bool
	alias    string
}

// Count returns COUNT(*).
func Count() Aggregate { return Aggregate{fn: "COUNT", star: true} }

// CountField returns COUNT(field), which skips rows where field is NULL.
func CountField(field string) Aggregate { return Aggregate{fn: "COUNT", field: field} }

// CountDistinct returns COUNT(DISTINCT field).
func CountDistinct(field string) Aggregate {
	return Aggregate{fn: "COUNT", field: field, distinct: true}
}

// Sum returns SUM(field).
func Sum(field string) Aggregate { return Aggregate{fn: "SUM", field: field} }

// Avg returns AVG(field).
func Avg(field string) Aggregate { return Aggregate{fn: "AVG", field: field} }

// Min returns MIN(field).
func Min(field string) Aggregate { return Aggregate{fn: "MIN", field: field} }

// Max returns MAX(field).
func Max(field string) Aggregate { return Aggregate{fn: "MAX", field: field} }

// As names the aggregate's result column. HAVING conditions may refer to
// the alias.
func (a Aggregate) As(alias string) Aggregate {
	a.alias = alias
	return a
}

// Alias returns the result column name, or "" when none was set.
func (a Aggregate) Alias() string { return a.alias }

func (a Aggregate) validate() error {
	if a.fn == "" {
		return ErrNoColumns
	}
	if !a.star {
		if _, err := ValidateIdentifier(a.field); err != nil {
			return err
		}
	}
	if a.alias != "" {
		if _, err := ValidateIdentifier(a.alias); err != nil {
			return err
		}
	}
	return nil
}

// call renders the function call without the alias.
func (a Aggregate) call() sqldsl.Expr {
	var arg sqldsl.Expr = sqldsl.Star{}
	if !a.star {
		arg = sqldsl.Ident(a.field)
	}
	return sqldsl.Func{Name: a.fn, Distinct: a.distinct, Args: []sqldsl.Expr{arg}}
}

func (a Aggregate) column() sqldsl.Expr {
	return sqldsl.Alias{Expr: a.call(), Name: a.alias}
}
