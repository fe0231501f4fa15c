// Package sqlgate compiles structured query requests into parameterized SQL
// for PostgreSQL ($N placeholders) and SQLite (?N placeholders).
//
// Requests are assembled from validated parts: identifiers checked by
// ValidateIdentifier, filter trees built with Compare, And, Or and Not, sort
// orders built with NewSortSpec or ParseSortSpec, and opaque cursor tokens
// produced by EncodeCursor. Values never reach the SQL text; every operand
// is bound to a numbered placeholder and returned in CompiledQuery.Params.
//
// # Building queries
//
//	active := sqlgate.Must(sqlgate.Compare("active", sqlgate.OpEq, sqlgate.Bool(true)))
//	q, err := sqlgate.Select("users", "id", "name", "email").
//		Where(active).
//		OrderBy(sqlgate.MustSortSpec(sqlgate.Ascending("name"))).
//		Limit(10).
//		Build(sqlgate.Postgres)
//	// q.SQL:    SELECT id, name, email FROM users WHERE active = $1 ORDER BY name LIMIT 10
//	// q.Params: [true]
//
// # Keyset pagination
//
// A cursor records the sort-field values of the last row of a page. Passing
// its token to SelectBuilder.After selects the rows strictly after it:
//
//	spec := sqlgate.MustSortSpec(sqlgate.Descending("created_at"), sqlgate.Ascending("id"))
//	token, _ := sqlgate.EncodeCursor(spec, []sqlgate.Value{sqlgate.String(last.CreatedAt), sqlgate.Int(last.ID)})
//	q, err := sqlgate.Select("posts", "id", "title").OrderBy(spec).After(token).Limit(20).Build(sqlgate.Postgres)
//	// ... WHERE created_at < $1 OR (created_at = $2 AND id > $3) ORDER BY created_at DESC, id LIMIT 20
//
// The last sort field should be unique so the order is total. Sort fields
// are assumed non-null.
//
// # Errors
//
// Every error caused by caller input matches ErrValidation or ErrCursor
// with errors.Is; IsClientErr reports both. The structured error types
// implement GRPCStatus.
package sqlgate
