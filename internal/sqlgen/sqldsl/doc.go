// Package sqldsl provides the typed SQL building blocks that sqlgate renders
// statements through.
//
// # Overview
//
// Rather than concatenating SQL text in the query builder, statements are
// assembled from small typed nodes that each render themselves. Identifiers
// reaching this package have already been validated by the caller and values
// never appear in the tree as text: they enter only as Placeholder nodes
// produced by the caller's parameter binder.
//
// # Expression Types
//
// Basic expressions:
//
//	Ident("email")                    // Column or table name: email
//	Placeholder("$1")                 // Bound parameter marker
//	Lit("%")                          // String literal: '%'
//	Int(10)                           // Integer literal: 10
//	Raw("COUNT(*)")                   // Raw SQL (escape hatch)
//	Func{Name: "UPPER", Args: ...}    // Function call: UPPER(email)
//
// Operators:
//
//	Eq{Left: col, Right: p}           // col = p
//	In{Expr: col, Values: ps}         // col IN ($1, $2)
//	Between{Expr: col, Low, High}     // col BETWEEN $1 AND $2
//	And(a, b, c)                      // (a AND b AND c)
//	Or(a, b)                          // (a OR b)
//	Not(a)                            // NOT (a)
//
// # Grouping
//
// And and Or always parenthesize themselves when they hold more than one
// operand, so a nested group can never change precedence. The outermost
// condition of a WHERE or HAVING clause is rendered with TopLevel, which
// drops the redundant outer pair.
//
// # Statements
//
// SelectStmt, InsertStmt, UpdateStmt and DeleteStmt render single-line
// statements with clauses in canonical order; empty optional clauses are
// omitted.
package sqldsl
