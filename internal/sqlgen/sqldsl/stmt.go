package sqldsl

import (
	"fmt"
	"strings"
)

// Optf returns formatted string if condition is true, empty string otherwise.
// Useful for optional SQL clauses.
func Optf(cond bool, format string, args ...any) string {
	if !cond {
		return ""
	}
	return fmt.Sprintf(format, args...)
}

// clauses joins the non-empty clauses with single spaces.
func clauses(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

// OrderItem is one ORDER BY term. Ascending order renders without a keyword.
type OrderItem struct {
	Expr Expr
	Desc bool
}

// SQL renders the order term.
func (o OrderItem) SQL() string {
	return o.Expr.SQL() + Optf(o.Desc, " DESC")
}

// SelectStmt represents a SELECT query.
type SelectStmt struct {
	Distinct bool
	Columns  []Expr
	From     Expr
	Where    Expr
	GroupBy  []Expr
	Having   Expr
	OrderBy  []OrderItem
	Limit    int // 0 means no LIMIT clause
	Offset   int // 0 means no OFFSET clause
}

// SQL renders the SELECT statement.
func (s SelectStmt) SQL() string {
	return clauses(
		"SELECT "+Optf(s.Distinct, "DISTINCT ")+s.columnsSQL(),
		s.fromSQL(),
		conditionSQL("WHERE", s.Where),
		s.groupBySQL(),
		conditionSQL("HAVING", s.Having),
		s.orderBySQL(),
		Optf(s.Limit > 0, "LIMIT %d", s.Limit),
		Optf(s.Offset > 0, "OFFSET %d", s.Offset),
	)
}

func (s SelectStmt) columnsSQL() string {
	if len(s.Columns) == 0 {
		return "1"
	}
	return joinList(s.Columns, ", ")
}

func (s SelectStmt) fromSQL() string {
	if s.From == nil {
		return ""
	}
	return "FROM " + s.From.SQL()
}

func (s SelectStmt) groupBySQL() string {
	if len(s.GroupBy) == 0 {
		return ""
	}
	return "GROUP BY " + joinList(s.GroupBy, ", ")
}

func (s SelectStmt) orderBySQL() string {
	if len(s.OrderBy) == 0 {
		return ""
	}
	parts := make([]string, len(s.OrderBy))
	for i, o := range s.OrderBy {
		parts[i] = o.SQL()
	}
	return "ORDER BY " + strings.Join(parts, ", ")
}

func conditionSQL(keyword string, cond Expr) string {
	if cond == nil {
		return ""
	}
	return keyword + " " + TopLevel(cond)
}

func returningSQL(cols []Expr) string {
	if len(cols) == 0 {
		return ""
	}
	return "RETURNING " + joinList(cols, ", ")
}

// InsertStmt represents an INSERT. Rows takes precedence over Values when
// both are set.
type InsertStmt struct {
	Table     Expr
	Columns   []Expr
	Values    []Expr
	Rows      [][]Expr
	Returning []Expr
}

// SQL renders the INSERT statement.
func (i InsertStmt) SQL() string {
	rows := i.Rows
	if len(rows) == 0 {
		rows = [][]Expr{i.Values}
	}
	groups := make([]string, len(rows))
	for n, row := range rows {
		groups[n] = "(" + joinList(row, ", ") + ")"
	}
	return clauses(
		"INSERT INTO "+i.Table.SQL(),
		"("+joinList(i.Columns, ", ")+")",
		"VALUES "+strings.Join(groups, ", "),
		returningSQL(i.Returning),
	)
}

// Assignment is one SET term of an UPDATE.
type Assignment struct {
	Column Expr
	Value  Expr
}

// SQL renders column = value.
func (a Assignment) SQL() string {
	return a.Column.SQL() + " = " + a.Value.SQL()
}

// UpdateStmt represents an UPDATE.
type UpdateStmt struct {
	Table     Expr
	Set       []Assignment
	Where     Expr
	Returning []Expr
}

// SQL renders the UPDATE statement.
func (u UpdateStmt) SQL() string {
	sets := make([]string, len(u.Set))
	for i, a := range u.Set {
		sets[i] = a.SQL()
	}
	return clauses(
		"UPDATE "+u.Table.SQL(),
		"SET "+strings.Join(sets, ", "),
		conditionSQL("WHERE", u.Where),
		returningSQL(u.Returning),
	)
}

// DeleteStmt represents a DELETE.
type DeleteStmt struct {
	Table     Expr
	Where     Expr
	Returning []Expr
}

// SQL renders the DELETE statement.
func (d DeleteStmt) SQL() string {
	return clauses(
		"DELETE FROM "+d.Table.SQL(),
		conditionSQL("WHERE", d.Where),
		returningSQL(d.Returning),
	)
}
