package sqlgate

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// Direction is a sort direction.
type Direction uint8

const (
	Asc Direction = iota
	Desc
)

// String returns "ASC" or "DESC".
func (d Direction) String() string {
	if d == Desc {
		return "DESC"
	}
	return "ASC"
}

// Reverse returns the opposite direction.
func (d Direction) Reverse() Direction {
	if d == Desc {
		return Asc
	}
	return Desc
}

// SortField is one (field, direction) pair of a sort order.
type SortField struct {
	Field     string
	Direction Direction
}

// Ascending returns an ascending SortField.
func Ascending(field string) SortField { return SortField{Field: field, Direction: Asc} }

// Descending returns a descending SortField.
func Descending(field string) SortField { return SortField{Field: field, Direction: Desc} }

// SortSpec is a validated, non-empty sort order without duplicate fields.
// The zero SortSpec means "no ordering".
type SortSpec struct {
	fields []sortKey
}

type sortKey struct {
	field Identifier
	dir   Direction
}

// NewSortSpec validates fields and builds a SortSpec.
func NewSortSpec(fields ...SortField) (SortSpec, error) {
	if len(fields) == 0 {
		return SortSpec{}, ErrEmptySort
	}
	keys := make([]sortKey, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for i, f := range fields {
		id, err := ValidateIdentifier(f.Field)
		if err != nil {
			return SortSpec{}, err
		}
		if _, dup := seen[f.Field]; dup {
			return SortSpec{}, fmt.Errorf("%w: %s", ErrDuplicateSortField, quote(f.Field))
		}
		if f.Direction != Asc && f.Direction != Desc {
			return SortSpec{}, fmt.Errorf("%w: unknown direction for %s", ErrInvalidSort, quote(f.Field))
		}
		seen[f.Field] = struct{}{}
		keys[i] = sortKey{field: id, dir: f.Direction}
	}
	return SortSpec{fields: keys}, nil
}

// MustSortSpec is like NewSortSpec but panics on error.
func MustSortSpec(fields ...SortField) SortSpec {
	s, err := NewSortSpec(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// IsZero reports whether s holds no fields.
func (s SortSpec) IsZero() bool { return len(s.fields) == 0 }

// Len returns the number of sort fields.
func (s SortSpec) Len() int { return len(s.fields) }

// Fields returns the sort fields in order.
func (s SortSpec) Fields() []SortField {
	out := make([]SortField, len(s.fields))
	for i, k := range s.fields {
		out[i] = SortField{Field: k.field.String(), Direction: k.dir}
	}
	return out
}

// Names returns the sort field names in order.
func (s SortSpec) Names() []string {
	out := make([]string, len(s.fields))
	for i, k := range s.fields {
		out[i] = k.field.String()
	}
	return out
}

// Reverse returns s with every direction flipped.
func (s SortSpec) Reverse() SortSpec {
	keys := make([]sortKey, len(s.fields))
	for i, k := range s.fields {
		keys[i] = sortKey{field: k.field, dir: k.dir.Reverse()}
	}
	return SortSpec{fields: keys}
}

// String renders s in the "name,-created_at" form accepted by ParseSortSpec.
func (s SortSpec) String() string {
	parts := make([]string, len(s.fields))
	for i, k := range s.fields {
		if k.dir == Desc {
			parts[i] = "-" + k.field.String()
		} else {
			parts[i] = k.field.String()
		}
	}
	return strings.Join(parts, ",")
}

// sortTermPattern matches "field", "+field", "-field", "field asc" and "field desc".
var sortTermPattern = regexp.MustCompile(`^([+-]?)([^\s]+)(?:\s+(?i:(asc|desc)))?$`)

// ParseSortSpec parses a comma-separated sort order. Each term is either a
// field name with an optional + or - prefix ("name,-created_at") or a field
// name followed by asc or desc ("age desc, name asc"). When allowed is
// non-empty, every field must appear in it.
func ParseSortSpec(s string, allowed ...string) (SortSpec, error) {
	if strings.TrimSpace(s) == "" {
		return SortSpec{}, ErrEmptySort
	}
	var fields []SortField
	for _, term := range strings.Split(s, ",") {
		term = strings.TrimSpace(term)
		if term == "" {
			return SortSpec{}, fmt.Errorf("%w: empty term in %s", ErrInvalidSort, quote(s))
		}
		m := sortTermPattern.FindStringSubmatch(term)
		if m == nil {
			return SortSpec{}, fmt.Errorf("%w: %s", ErrInvalidSort, quote(term))
		}
		sign, name, word := m[1], m[2], strings.ToLower(m[3])
		if sign != "" && word != "" {
			return SortSpec{}, fmt.Errorf("%w: %s mixes a sign and a direction", ErrInvalidSort, quote(term))
		}
		dir := Asc
		if sign == "-" || word == "desc" {
			dir = Desc
		}
		if len(allowed) > 0 && !slices.Contains(allowed, name) {
			return SortSpec{}, &FieldNotAllowedError{Field: name, Allowed: allowed}
		}
		fields = append(fields, SortField{Field: name, Direction: dir})
	}
	return NewSortSpec(fields...)
}
