package sqlgate

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxIdentifierLength is the longest table or column name accepted.
const MaxIdentifierLength = 64

// Identifier is a table or column name that has passed ValidateIdentifier.
// It is the only form in which caller-supplied names reach generated SQL.
type Identifier struct {
	name string
}

// String returns the validated name.
func (id Identifier) String() string { return id.name }

// IsZero reports whether id was never validated.
func (id Identifier) IsZero() bool { return id.name == "" }

// ValidateIdentifier accepts names matching [A-Za-z_][A-Za-z0-9_]* that are
// at most MaxIdentifierLength bytes long and are not reserved words in
// either dialect (compared case-insensitively). Anything containing quotes,
// semicolons, whitespace or comment sequences fails the grammar.
func ValidateIdentifier(name string) (Identifier, error) {
	if name == "" {
		return Identifier{}, &InvalidIdentifierError{Value: name, Reason: "empty"}
	}
	if len(name) > MaxIdentifierLength {
		return Identifier{}, &InvalidIdentifierError{
			Value:  name,
			Reason: fmt.Sprintf("longer than %d characters", MaxIdentifierLength),
		}
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
		case c >= '0' && c <= '9':
			if i == 0 {
				return Identifier{}, &InvalidIdentifierError{
					Value:  name,
					Reason: "must start with a letter or underscore",
				}
			}
		default:
			r, _ := utf8.DecodeRuneInString(name[i:])
			return Identifier{}, &InvalidIdentifierError{
				Value:  name,
				Reason: fmt.Sprintf("invalid character %q at position %d", r, i),
			}
		}
	}
	if IsReservedWord(name) {
		return Identifier{}, &ReservedKeywordError{Value: name}
	}
	return Identifier{name: name}, nil
}

// MustIdentifier is like ValidateIdentifier but panics on error. It is meant
// for names fixed at compile time.
func MustIdentifier(name string) Identifier {
	id, err := ValidateIdentifier(name)
	if err != nil {
		panic(err)
	}
	return id
}

// validateIdentifiers validates every name and rejects duplicates.
func validateIdentifiers(names []string) ([]Identifier, error) {
	ids := make([]Identifier, len(names))
	seen := make(map[string]struct{}, len(names))
	for i, n := range names {
		id, err := ValidateIdentifier(n)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[n]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateField, quote(n))
		}
		seen[n] = struct{}{}
		ids[i] = id
	}
	return ids, nil
}

// IsReservedWord reports whether s is a keyword that may not be used as an
// identifier in either supported dialect.
func IsReservedWord(s string) bool {
	_, ok := reservedWords[strings.ToUpper(s)]
	return ok
}

// reservedWords combines the SQL standard statement keywords with the
// reserved words of PostgreSQL and SQLite.
var reservedWords = map[string]struct{}{
	// statements and clauses
	"SELECT": {}, "INSERT": {}, "UPDATE": {}, "DELETE": {}, "MERGE": {},
	"DROP": {}, "CREATE": {}, "ALTER": {}, "TRUNCATE": {}, "RENAME": {},
	"GRANT": {}, "REVOKE": {}, "EXEC": {}, "EXECUTE": {}, "CALL": {},
	"UNION": {}, "INTERSECT": {}, "EXCEPT": {}, "FROM": {}, "WHERE": {},
	"INTO": {}, "VALUES": {}, "SET": {}, "JOIN": {}, "ON": {}, "USING": {},
	"ORDER": {}, "GROUP": {}, "BY": {}, "HAVING": {}, "LIMIT": {},
	"OFFSET": {}, "FETCH": {}, "RETURNING": {}, "WITH": {}, "AS": {},
	"DISTINCT": {}, "ALL": {}, "ANY": {}, "SOME": {}, "EXISTS": {},
	"CASE": {}, "WHEN": {}, "THEN": {}, "ELSE": {}, "END": {},
	"BEGIN": {}, "COMMIT": {}, "ROLLBACK": {}, "SAVEPOINT": {},
	// operators and literals
	"AND": {}, "OR": {}, "NOT": {}, "NULL": {}, "TRUE": {}, "FALSE": {},
	"IS": {}, "IN": {}, "LIKE": {}, "ILIKE": {}, "BETWEEN": {}, "ASC": {},
	"DESC": {}, "CAST": {}, "COLLATE": {}, "ESCAPE": {},
	// joins
	"INNER": {}, "OUTER": {}, "LEFT": {}, "RIGHT": {}, "FULL": {},
	"CROSS": {}, "NATURAL": {}, "LATERAL": {},
	// schema objects
	"TABLE": {}, "PRIMARY": {}, "FOREIGN": {}, "REFERENCES": {},
	"CHECK": {}, "CONSTRAINT": {}, "DEFAULT": {}, "UNIQUE": {},
	"COLUMN": {}, "TRIGGER": {}, "PROCEDURE": {},
	// PostgreSQL reserved
	"ANALYSE": {}, "ANALYZE": {}, "ARRAY": {}, "ASYMMETRIC": {}, "BOTH": {},
	"CURRENT_CATALOG": {}, "CURRENT_DATE": {}, "CURRENT_ROLE": {},
	"CURRENT_TIME": {}, "CURRENT_TIMESTAMP": {}, "CURRENT_USER": {},
	"DEFERRABLE": {}, "DO": {}, "FOR": {}, "INITIALLY": {}, "LEADING": {},
	"LOCALTIME": {}, "LOCALTIMESTAMP": {}, "ONLY": {}, "PLACING": {},
	"SESSION_USER": {}, "SYMMETRIC": {}, "TRAILING": {}, "USER": {},
	"VARIADIC": {}, "WINDOW": {},
	// SQLite reserved
	"ABORT": {}, "ATTACH": {}, "AUTOINCREMENT": {}, "DETACH": {},
	"GLOB": {}, "PRAGMA": {}, "RAISE": {}, "REGEXP": {}, "REINDEX": {},
	"VACUUM": {}, "REPLACE": {}, "NOTNULL": {}, "ISNULL": {},
}
