package sqlgate

import (
	"fmt"

	"github.com/pthm/sqlgate/internal/sqlgen/sqldsl"
)

// assignment is one (field, value) pair of an INSERT or UPDATE.
type assignment struct {
	field string
	value Value
}

// assignments validates the pairs: non-empty, valid and unique field names,
// scalar values only.
func assignments(pairs []assignment) ([]Identifier, []Value, error) {
	if len(pairs) == 0 {
		return nil, nil, ErrNoValues
	}
	names := make([]string, len(pairs))
	values := make([]Value, len(pairs))
	for i, p := range pairs {
		names[i] = p.field
		values[i] = p.value
	}
	ids, err := validateIdentifiers(names)
	if err != nil {
		return nil, nil, err
	}
	for i, v := range values {
		if v.Kind() == KindArray {
			return nil, nil, &TypeMismatchError{Field: names[i], Expected: "scalar", Got: "array"}
		}
	}
	return ids, values, nil
}

func returningList(names []string) ([]sqldsl.Expr, error) {
	ids, err := validateIdentifiers(names)
	if err != nil {
		return nil, err
	}
	return identExprs(ids), nil
}

// InsertBuilder assembles an INSERT. A single row is built with Set; several
// rows are built with Columns and one Values call per row. The two forms
// cannot be mixed.
type InsertBuilder struct {
	table     string
	values    []assignment
	columns   []string
	rows      [][]Value
	returning []string
}

// Insert starts an INSERT into table.
func Insert(table string) *InsertBuilder {
	return &InsertBuilder{table: table}
}

// Set appends a column value. Columns are rendered in call order.
func (b *InsertBuilder) Set(field string, v Value) *InsertBuilder {
	b.values = append(b.values, assignment{field: field, value: v})
	return b
}

// Columns appends the columns each Values row fills.
func (b *InsertBuilder) Columns(fields ...string) *InsertBuilder {
	b.columns = append(b.columns, fields...)
	return b
}

// Values appends one row. Its length must match Columns.
func (b *InsertBuilder) Values(vs ...Value) *InsertBuilder {
	b.rows = append(b.rows, append([]Value(nil), vs...))
	return b
}

// Returning appends RETURNING columns.
func (b *InsertBuilder) Returning(fields ...string) *InsertBuilder {
	b.returning = append(b.returning, fields...)
	return b
}

// Build validates the statement and renders it for d. Placeholders are
// numbered across all rows in order.
func (b *InsertBuilder) Build(d Dialect) (CompiledQuery, error) {
	if d == nil {
		return CompiledQuery{}, fmt.Errorf("%w: no dialect", ErrValidation)
	}
	table, err := ValidateIdentifier(b.table)
	if err != nil {
		return CompiledQuery{}, err
	}
	ret, err := returningList(b.returning)
	if err != nil {
		return CompiledQuery{}, err
	}

	if len(b.columns) == 0 && len(b.rows) == 0 {
		cols, values, err := assignments(b.values)
		if err != nil {
			return CompiledQuery{}, err
		}
		bind := newBinder(d)
		stmt := sqldsl.InsertStmt{
			Table:     sqldsl.Ident(table.String()),
			Columns:   identExprs(cols),
			Values:    bind.bindAll(values),
			Returning: ret,
		}
		return CompiledQuery{SQL: stmt.SQL(), Params: bind.params}, nil
	}

	if len(b.values) > 0 {
		return CompiledQuery{}, fmt.Errorf("%w: Set cannot be combined with Columns and Values", ErrValidation)
	}
	if len(b.columns) == 0 {
		return CompiledQuery{}, fmt.Errorf("%w: rows without columns", ErrNoValues)
	}
	if len(b.rows) == 0 {
		return CompiledQuery{}, ErrNoValues
	}
	cols, err := validateIdentifiers(b.columns)
	if err != nil {
		return CompiledQuery{}, err
	}
	for i, row := range b.rows {
		if len(row) != len(cols) {
			return CompiledQuery{}, fmt.Errorf("%w: row %d has %d values for %d columns", ErrRowLength, i+1, len(row), len(cols))
		}
		for j, v := range row {
			if v.Kind() == KindArray {
				return CompiledQuery{}, &TypeMismatchError{Field: b.columns[j], Expected: "scalar", Got: "array"}
			}
		}
	}

	bind := newBinder(d)
	rows := make([][]sqldsl.Expr, len(b.rows))
	for i, row := range b.rows {
		rows[i] = bind.bindAll(row)
	}
	stmt := sqldsl.InsertStmt{
		Table:     sqldsl.Ident(table.String()),
		Columns:   identExprs(cols),
		Rows:      rows,
		Returning: ret,
	}
	return CompiledQuery{SQL: stmt.SQL(), Params: bind.params}, nil
}

// UpdateBuilder assembles an UPDATE. Without a filter every row is updated.
type UpdateBuilder struct {
	table     string
	set       []assignment
	filter    FilterExpr
	returning []string
}

// Update starts an UPDATE of table.
func Update(table string) *UpdateBuilder {
	return &UpdateBuilder{table: table}
}

// Set appends a column assignment.
func (b *UpdateBuilder) Set(field string, v Value) *UpdateBuilder {
	b.set = append(b.set, assignment{field: field, value: v})
	return b
}

// Where ANDs expr onto the filter. Nil is ignored.
func (b *UpdateBuilder) Where(expr FilterExpr) *UpdateBuilder {
	b.filter = conjoin(b.filter, expr)
	return b
}

// Returning appends RETURNING columns.
func (b *UpdateBuilder) Returning(fields ...string) *UpdateBuilder {
	b.returning = append(b.returning, fields...)
	return b
}

// Build validates the statement and renders it for d. SET values are bound
// before the filter operands.
func (b *UpdateBuilder) Build(d Dialect) (CompiledQuery, error) {
	if d == nil {
		return CompiledQuery{}, fmt.Errorf("%w: no dialect", ErrValidation)
	}
	table, err := ValidateIdentifier(b.table)
	if err != nil {
		return CompiledQuery{}, err
	}
	cols, values, err := assignments(b.set)
	if err != nil {
		return CompiledQuery{}, err
	}
	if b.filter != nil {
		if err := ValidateFilter(b.filter); err != nil {
			return CompiledQuery{}, err
		}
	}
	ret, err := returningList(b.returning)
	if err != nil {
		return CompiledQuery{}, err
	}

	bind := newBinder(d)
	set := make([]sqldsl.Assignment, len(cols))
	for i, c := range cols {
		set[i] = sqldsl.Assignment{Column: sqldsl.Ident(c.String()), Value: bind.bind(values[i])}
	}
	where, err := bind.filter(b.filter)
	if err != nil {
		return CompiledQuery{}, err
	}
	stmt := sqldsl.UpdateStmt{
		Table:     sqldsl.Ident(table.String()),
		Set:       set,
		Where:     where,
		Returning: ret,
	}
	return CompiledQuery{SQL: stmt.SQL(), Params: bind.params}, nil
}

// DeleteBuilder assembles a DELETE. Without a filter every row is deleted.
type DeleteBuilder struct {
	table     string
	filter    FilterExpr
	returning []string
}

// Delete starts a DELETE from table.
func Delete(table string) *DeleteBuilder {
	return &DeleteBuilder{table: table}
}

// Where ANDs expr onto the filter. Nil is ignored.
func (b *DeleteBuilder) Where(expr FilterExpr) *DeleteBuilder {
	b.filter = conjoin(b.filter, expr)
	return b
}

// Returning appends RETURNING columns.
func (b *DeleteBuilder) Returning(fields ...string) *DeleteBuilder {
	b.returning = append(b.returning, fields...)
	return b
}

// Build validates the statement and renders it for d.
func (b *DeleteBuilder) Build(d Dialect) (CompiledQuery, error) {
	if d == nil {
		return CompiledQuery{}, fmt.Errorf("%w: no dialect", ErrValidation)
	}
	table, err := ValidateIdentifier(b.table)
	if err != nil {
		return CompiledQuery{}, err
	}
	if b.filter != nil {
		if err := ValidateFilter(b.filter); err != nil {
			return CompiledQuery{}, err
		}
	}
	ret, err := returningList(b.returning)
	if err != nil {
		return CompiledQuery{}, err
	}

	bind := newBinder(d)
	where, err := bind.filter(b.filter)
	if err != nil {
		return CompiledQuery{}, err
	}
	stmt := sqldsl.DeleteStmt{
		Table:     sqldsl.Ident(table.String()),
		Where:     where,
		Returning: ret,
	}
	return CompiledQuery{SQL: stmt.SQL(), Params: bind.params}, nil
}
