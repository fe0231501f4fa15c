package sqlgate

import (
	"fmt"

	"github.com/pthm/sqlgate/internal/sqlgen/sqldsl"
)

// DefaultMaxLimit caps LIMIT when a builder sets no maximum of its own.
const DefaultMaxLimit = 1000

// SelectBuilder assembles a SELECT statement. Methods record their input and
// return the builder for chaining; all validation happens in Build, which
// reports the first problem found.
//
//	q, err := sqlgate.Select("users", "id", "name").
//		Where(active).
//		OrderBy(sqlgate.MustSortSpec(sqlgate.Ascending("name"), sqlgate.Ascending("id"))).
//		After(token).
//		Limit(20).
//		Build(sqlgate.Postgres)
type SelectBuilder struct {
	table    string
	columns  []string
	distinct bool

	aggregates []Aggregate
	computed   []computedColumn
	groupBy    []string
	having     FilterExpr

	filter FilterExpr
	sort   SortSpec

	// Keyset position: a token decoded against sort at build time, or a
	// cursor supplied directly.
	token     string
	cursor    Cursor
	hasCursor bool
	direction PageDirection

	limit     int
	hasLimit  bool
	offset    int
	hasOffset bool
	page      int
	maxLimit  int

	err error
}

type computedColumn struct {
	alias string
	expr  string
}

// Select starts a SELECT of columns from table.
func Select(table string, columns ...string) *SelectBuilder {
	return &SelectBuilder{
		table:    table,
		columns:  append([]string(nil), columns...),
		maxLimit: DefaultMaxLimit,
	}
}

// Columns appends selected columns.
func (b *SelectBuilder) Columns(columns ...string) *SelectBuilder {
	b.columns = append(b.columns, columns...)
	return b
}

// Distinct renders SELECT DISTINCT.
func (b *SelectBuilder) Distinct() *SelectBuilder {
	b.distinct = true
	return b
}

// Where ANDs expr onto the filter. Nil is ignored.
func (b *SelectBuilder) Where(expr FilterExpr) *SelectBuilder {
	b.filter = conjoin(b.filter, expr)
	return b
}

// OrderBy sets the sort order, replacing any previous one.
func (b *SelectBuilder) OrderBy(spec SortSpec) *SelectBuilder {
	b.sort = spec
	return b
}

// After positions the page strictly after the cursor token. An empty token
// means the first page. The token is decoded against the sort order at
// build time.
func (b *SelectBuilder) After(token string) *SelectBuilder {
	return b.setToken(token, Forward)
}

// Before positions the page strictly before the cursor token. Rows are
// fetched in reverse order and the compiled query is marked Reversed.
func (b *SelectBuilder) Before(token string) *SelectBuilder {
	return b.setToken(token, Backward)
}

func (b *SelectBuilder) setToken(token string, dir PageDirection) *SelectBuilder {
	b.token, b.cursor, b.hasCursor, b.direction = token, Cursor{}, false, dir
	return b
}

// AfterCursor is After for an already decoded cursor.
func (b *SelectBuilder) AfterCursor(c Cursor) *SelectBuilder {
	return b.setCursor(c, Forward)
}

// BeforeCursor is Before for an already decoded cursor.
func (b *SelectBuilder) BeforeCursor(c Cursor) *SelectBuilder {
	return b.setCursor(c, Backward)
}

func (b *SelectBuilder) setCursor(c Cursor, dir PageDirection) *SelectBuilder {
	b.token, b.cursor, b.hasCursor, b.direction = "", c, !c.IsZero(), dir
	return b
}

// Limit bounds the number of rows. n must be positive; values above the
// maximum are clamped to it.
func (b *SelectBuilder) Limit(n int) *SelectBuilder {
	if n <= 0 && b.err == nil {
		b.err = fmt.Errorf("%w: got %d", ErrInvalidLimit, n)
	}
	b.limit, b.hasLimit = n, true
	return b
}

// Offset skips n rows. It cannot be combined with a cursor.
func (b *SelectBuilder) Offset(n int) *SelectBuilder {
	if n < 0 && b.err == nil {
		b.err = fmt.Errorf("%w: got %d", ErrInvalidOffset, n)
	}
	b.offset, b.hasOffset = n, true
	b.page = 0
	return b
}

// Page sets offset pagination with 1-based page numbers. The offset is
// computed from the clamped limit, so a perPage above the maximum still
// steps through every row.
func (b *SelectBuilder) Page(page, perPage int) *SelectBuilder {
	if page < 1 && b.err == nil {
		b.err = fmt.Errorf("%w: page %d", ErrInvalidOffset, page)
	}
	b.Limit(perPage)
	b.page, b.hasOffset = page, true
	return b
}

// MaxLimit sets the cap applied to Limit. n must be positive.
func (b *SelectBuilder) MaxLimit(n int) *SelectBuilder {
	if n <= 0 && b.err == nil {
		b.err = fmt.Errorf("%w: maximum %d", ErrInvalidLimit, n)
	}
	b.maxLimit = n
	return b
}

// GroupBy appends GROUP BY columns.
func (b *SelectBuilder) GroupBy(columns ...string) *SelectBuilder {
	b.groupBy = append(b.groupBy, columns...)
	return b
}

// Having ANDs expr onto the HAVING condition. Fields may name aggregate
// aliases, which are replaced by the aggregate call.
func (b *SelectBuilder) Having(expr FilterExpr) *SelectBuilder {
	b.having = conjoin(b.having, expr)
	return b
}

// Aggregate appends aggregate columns.
func (b *SelectBuilder) Aggregate(aggs ...Aggregate) *SelectBuilder {
	b.aggregates = append(b.aggregates, aggs...)
	return b
}

// Computed appends a raw SQL expression selected AS alias. The expression
// is checked with ValidateExpression at build time and must come from
// application code, never from a request.
func (b *SelectBuilder) Computed(alias, expr string) *SelectBuilder {
	b.computed = append(b.computed, computedColumn{alias: alias, expr: expr})
	return b
}

// Clone returns an independent copy of b.
func (b *SelectBuilder) Clone() *SelectBuilder {
	c := *b
	c.columns = append([]string(nil), b.columns...)
	c.aggregates = append([]Aggregate(nil), b.aggregates...)
	c.computed = append([]computedColumn(nil), b.computed...)
	c.groupBy = append([]string(nil), b.groupBy...)
	return &c
}

// SortSpec returns the configured sort order.
func (b *SelectBuilder) SortSpec() SortSpec { return b.sort }

// EffectiveLimit returns the limit Build will render, after clamping, or 0
// when none is set.
func (b *SelectBuilder) EffectiveLimit() int {
	if !b.hasLimit || b.limit <= 0 {
		return 0
	}
	if b.maxLimit > 0 && b.limit > b.maxLimit {
		return b.maxLimit
	}
	return b.limit
}

func (b *SelectBuilder) effectiveOffset() int {
	if b.page > 0 {
		return (b.page - 1) * b.EffectiveLimit()
	}
	return b.offset
}

// Paging reports the direction of the keyset position and whether one is set.
func (b *SelectBuilder) Paging() (PageDirection, bool) {
	return b.direction, b.hasCursor || b.token != ""
}

// Build validates the query and renders it for d.
func (b *SelectBuilder) Build(d Dialect) (CompiledQuery, error) {
	if b.err != nil {
		return CompiledQuery{}, b.err
	}
	if d == nil {
		return CompiledQuery{}, fmt.Errorf("%w: no dialect", ErrValidation)
	}

	table, err := ValidateIdentifier(b.table)
	if err != nil {
		return CompiledQuery{}, err
	}
	cols, err := b.selectList()
	if err != nil {
		return CompiledQuery{}, err
	}
	groupBy, err := validateIdentifiers(b.groupBy)
	if err != nil {
		return CompiledQuery{}, err
	}
	if b.filter != nil {
		if err := ValidateFilter(b.filter); err != nil {
			return CompiledQuery{}, err
		}
	}
	if b.having != nil {
		if len(groupBy) == 0 && len(b.aggregates) == 0 {
			return CompiledQuery{}, fmt.Errorf("%w: HAVING requires GROUP BY or an aggregate", ErrValidation)
		}
		if err := ValidateFilter(b.having); err != nil {
			return CompiledQuery{}, err
		}
	}

	cursor, paging, err := b.resolveCursor()
	if err != nil {
		return CompiledQuery{}, err
	}

	sort := b.sort
	reversed := paging && b.direction == Backward
	if reversed {
		sort = sort.Reverse()
	}

	bind := newBinder(d)
	where := b.filter
	if paging {
		where = conjoin(where, cursor.Predicate(b.direction))
	}
	whereExpr, err := bind.filter(where)
	if err != nil {
		return CompiledQuery{}, err
	}

	var havingExpr sqldsl.Expr
	if b.having != nil {
		bind.aliases = make(map[string]sqldsl.Expr, len(b.aggregates))
		for _, a := range b.aggregates {
			if a.alias != "" {
				bind.aliases[a.alias] = a.call()
			}
		}
		if havingExpr, err = bind.filter(b.having); err != nil {
			return CompiledQuery{}, err
		}
		bind.aliases = nil
	}

	stmt := sqldsl.SelectStmt{
		Distinct: b.distinct,
		Columns:  cols,
		From:     sqldsl.Ident(table.String()),
		Where:    whereExpr,
		GroupBy:  identExprs(groupBy),
		Having:   havingExpr,
		OrderBy:  orderItems(sort),
		Limit:    b.EffectiveLimit(),
		Offset:   b.effectiveOffset(),
	}
	return CompiledQuery{SQL: stmt.SQL(), Params: bind.params, Reversed: reversed}, nil
}

// selectList validates and renders the columns, aggregates and computed
// expressions in that order.
func (b *SelectBuilder) selectList() ([]sqldsl.Expr, error) {
	if len(b.columns)+len(b.aggregates)+len(b.computed) == 0 {
		return nil, ErrNoColumns
	}
	ids, err := validateIdentifiers(b.columns)
	if err != nil {
		return nil, err
	}
	out := identExprs(ids)
	for _, a := range b.aggregates {
		if err := a.validate(); err != nil {
			return nil, err
		}
		out = append(out, a.column())
	}
	for _, c := range b.computed {
		alias, err := ValidateIdentifier(c.alias)
		if err != nil {
			return nil, err
		}
		if err := ValidateExpression(c.expr); err != nil {
			return nil, err
		}
		out = append(out, sqldsl.Alias{Expr: sqldsl.Paren{Expr: sqldsl.Raw(c.expr)}, Name: alias.String()})
	}
	return out, nil
}

// resolveCursor checks the pagination settings and returns the keyset
// position, if any.
func (b *SelectBuilder) resolveCursor() (Cursor, bool, error) {
	switch {
	case b.token != "":
		if b.sort.IsZero() {
			return Cursor{}, false, ErrCursorWithoutSort
		}
		if b.hasOffset {
			return Cursor{}, false, ErrOffsetWithCursor
		}
		c, err := DecodeCursor(b.token, b.sort)
		if err != nil {
			return Cursor{}, false, err
		}
		return c, true, nil
	case b.hasCursor:
		if b.sort.IsZero() {
			return Cursor{}, false, ErrCursorWithoutSort
		}
		if b.hasOffset {
			return Cursor{}, false, ErrOffsetWithCursor
		}
		if !cursorMatches(b.cursor, b.sort) {
			return Cursor{}, false, &CursorFieldMismatchError{Expected: b.sort.Names(), Got: cursorNames(b.cursor)}
		}
		return b.cursor, true, nil
	}
	return Cursor{}, false, nil
}

func cursorNames(c Cursor) []string {
	names := make([]string, len(c.keys))
	for i, k := range c.keys {
		names[i] = k.field.String()
	}
	return names
}

// cursorMatches reports whether c was built for spec: same fields, same
// order, same directions.
func cursorMatches(c Cursor, spec SortSpec) bool {
	if len(c.keys) != len(spec.fields) {
		return false
	}
	for i, k := range c.keys {
		if k.field != spec.fields[i].field || k.dir != spec.fields[i].dir {
			return false
		}
	}
	return true
}

func identExprs(ids []Identifier) []sqldsl.Expr {
	out := make([]sqldsl.Expr, len(ids))
	for i, id := range ids {
		out[i] = sqldsl.Ident(id.String())
	}
	return out
}

func orderItems(spec SortSpec) []sqldsl.OrderItem {
	if spec.IsZero() {
		return nil
	}
	items := make([]sqldsl.OrderItem, len(spec.fields))
	for i, k := range spec.fields {
		items[i] = sqldsl.OrderItem{Expr: sqldsl.Ident(k.field.String()), Desc: k.dir == Desc}
	}
	return items
}
