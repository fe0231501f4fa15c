package sqlgate

import (
	"strconv"
	"strings"
)

// CompiledQuery is a rendered statement and its positional parameters.
// Placeholder i in SQL binds Params[i-1].
type CompiledQuery struct {
	SQL    string
	Params []Value

	// Reversed is set for pages fetched backward from a cursor. The rows
	// come back in reverse sort order and must be flipped by the caller.
	Reversed bool
}

// Args returns the parameters as database/sql arguments.
func (q CompiledQuery) Args() []any {
	args := make([]any, len(q.Params))
	for i, p := range q.Params {
		args[i] = p.Any()
	}
	return args
}

// String returns the SQL text.
func (q CompiledQuery) String() string {
	return q.SQL
}

// Interpolate substitutes the parameters into the SQL text for display and
// logging. The result must never be executed.
func (q CompiledQuery) Interpolate(d Dialect) string {
	prefix := strings.TrimSuffix(d.Placeholder(1), "1")
	var sb strings.Builder
	rest := q.SQL
	for {
		i := strings.Index(rest, prefix)
		if i < 0 {
			sb.WriteString(rest)
			return sb.String()
		}
		sb.WriteString(rest[:i])
		rest = rest[i+len(prefix):]
		n := 0
		for n < len(rest) && rest[n] >= '0' && rest[n] <= '9' {
			n++
		}
		idx, err := strconv.Atoi(rest[:n])
		if err != nil || idx < 1 || idx > len(q.Params) {
			sb.WriteString(prefix)
			continue
		}
		sb.WriteString(displayLiteral(d, q.Params[idx-1]))
		rest = rest[n:]
	}
}

func displayLiteral(d Dialect, v Value) string {
	switch v.Kind() {
	case KindNull:
		return "NULL"
	case KindBool:
		return d.BoolLiteral(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return "'" + strings.ReplaceAll(v.s, "'", "''") + "'"
	}
	return v.String()
}
