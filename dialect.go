package sqlgate

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect abstracts the syntax differences between target databases.
// Implementations must be immutable and safe for concurrent use.
type Dialect interface {
	// Name returns the dialect name, e.g. "postgres".
	Name() string

	// Placeholder returns the parameter marker for the given 1-based index.
	Placeholder(index int) string

	// BoolLiteral renders a boolean constant.
	BoolLiteral(b bool) string

	// NativeILike reports whether ILIKE is available. Without it,
	// case-insensitive matches are emulated with UPPER() on both sides.
	NativeILike() bool

	// ConcatOperator returns the string concatenation operator.
	ConcatOperator() string
}

type postgresDialect struct{}

func (postgresDialect) Name() string                 { return "postgres" }
func (postgresDialect) Placeholder(index int) string { return "$" + strconv.Itoa(index) }
func (postgresDialect) NativeILike() bool            { return true }
func (postgresDialect) ConcatOperator() string       { return "||" }

func (postgresDialect) BoolLiteral(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string                 { return "sqlite" }
func (sqliteDialect) Placeholder(index int) string { return "?" + strconv.Itoa(index) }
func (sqliteDialect) NativeILike() bool            { return false }
func (sqliteDialect) ConcatOperator() string       { return "||" }

func (sqliteDialect) BoolLiteral(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

var (
	// Postgres renders $N placeholders and has native ILIKE.
	Postgres Dialect = postgresDialect{}

	// SQLite renders ?N placeholders and emulates ILIKE.
	SQLite Dialect = sqliteDialect{}
)

// ParseDialect resolves a dialect by name. Accepted names are postgres,
// postgresql, pg, pgx, sqlite and sqlite3, in any case.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pg", "pgx":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	}
	return nil, fmt.Errorf("sqlgate: unknown dialect %s", quote(name))
}
