package sqldsl

import (
	"strconv"
	"strings"
)

// Expr is the interface that all SQL expression types implement.
type Expr interface {
	SQL() string
}

// Ident is a column or table name. Callers must validate it first; Ident
// renders verbatim.
type Ident string

// SQL renders the identifier.
func (i Ident) SQL() string {
	return string(i)
}

// Idents converts names to a slice of Ident expressions.
func Idents(names ...string) []Expr {
	out := make([]Expr, len(names))
	for i, n := range names {
		out[i] = Ident(n)
	}
	return out
}

// Placeholder is a positional parameter marker such as $1 or ?1.
type Placeholder string

// SQL renders the placeholder.
func (p Placeholder) SQL() string {
	return string(p)
}

// Lit represents a literal string value (auto-quoted with single quotes).
type Lit string

// SQL renders the literal with single quotes.
func (l Lit) SQL() string {
	// Escape single quotes by doubling them
	escaped := strings.ReplaceAll(string(l), "'", "''")
	return "'" + escaped + "'"
}

// Raw is an escape hatch for arbitrary SQL expressions.
type Raw string

// SQL renders the raw SQL as-is.
func (r Raw) SQL() string {
	return string(r)
}

// Int represents an integer literal.
type Int int64

// SQL renders the integer.
func (i Int) SQL() string {
	return strconv.FormatInt(int64(i), 10)
}

// Star renders *.
type Star struct{}

// SQL renders *.
func (Star) SQL() string {
	return "*"
}

// Func represents a SQL function call.
type Func struct {
	Name     string
	Distinct bool
	Args     []Expr
}

// SQL renders the function call.
func (f Func) SQL() string {
	return f.Name + "(" + Optf(f.Distinct, "DISTINCT ") + joinList(f.Args, ", ") + ")"
}

// Upper wraps an expression in UPPER().
func Upper(e Expr) Func {
	return Func{Name: "UPPER", Args: []Expr{e}}
}

// Alias wraps an expression with an alias (expr AS alias).
type Alias struct {
	Expr Expr
	Name string
}

// SQL renders the aliased expression.
func (a Alias) SQL() string {
	if a.Name == "" {
		return a.Expr.SQL()
	}
	return a.Expr.SQL() + " AS " + a.Name
}

// Paren wraps an expression in parentheses.
type Paren struct {
	Expr Expr
}

// SQL renders the parenthesized expression.
func (p Paren) SQL() string {
	return "(" + p.Expr.SQL() + ")"
}

// Concat represents string concatenation with a dialect-specific operator.
// An empty Op defaults to the standard ||.
type Concat struct {
	Op    string
	Parts []Expr
}

// SQL renders the concatenation.
func (c Concat) SQL() string {
	if len(c.Parts) == 0 {
		return "''"
	}
	op := c.Op
	if op == "" {
		op = "||"
	}
	return joinList(c.Parts, " "+op+" ")
}

// joinList renders expressions joined by sep without grouping.
func joinList(exprs []Expr, sep string) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.SQL()
	}
	return strings.Join(parts, sep)
}
