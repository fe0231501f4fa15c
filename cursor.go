package sqlgate

import (
	"encoding/base64"
	"fmt"
	"math"
	"slices"
	"strings"

	"google.golang.org/protobuf/encoding/protowire"
)

const (
	// MaxCursorSize bounds the length of an encoded cursor token.
	MaxCursorSize = 4096

	// MaxCursorFields bounds the number of fields a cursor may carry.
	MaxCursorFields = 16
)

// Cursor is a position in a result set ordered by a SortSpec: the values of
// every sort field in the last row of the previous page, in sort order.
type Cursor struct {
	keys []cursorKey
}

type cursorKey struct {
	field Identifier
	dir   Direction
	value Value
}

// CursorField is one field of a Cursor.
type CursorField struct {
	Field string
	Value Value
}

// PageDirection selects which side of a cursor a page lies on.
type PageDirection uint8

const (
	// Forward selects rows strictly after the cursor in sort order.
	Forward PageDirection = iota
	// Backward selects rows strictly before the cursor in sort order.
	Backward
)

// NewCursor builds a Cursor from the sort-field values of a row, given in
// the order of spec. Values must be non-null scalars.
func NewCursor(spec SortSpec, row []Value) (Cursor, error) {
	if spec.IsZero() {
		return Cursor{}, ErrCursorWithoutSort
	}
	if len(row) != spec.Len() {
		return Cursor{}, fmt.Errorf("%w: expected %d values, got %d", ErrCursorValues, spec.Len(), len(row))
	}
	if len(row) > MaxCursorFields {
		return Cursor{}, fmt.Errorf("%w: more than %d fields", ErrCursorValues, MaxCursorFields)
	}
	keys := make([]cursorKey, len(row))
	for i, k := range spec.fields {
		v := row[i]
		switch v.Kind() {
		case KindNull:
			return Cursor{}, fmt.Errorf("%w: sort field %s is null", ErrCursorValues, quote(k.field.String()))
		case KindArray:
			return Cursor{}, fmt.Errorf("%w: sort field %s holds an array", ErrCursorValues, quote(k.field.String()))
		}
		keys[i] = cursorKey{field: k.field, dir: k.dir, value: v}
	}
	return Cursor{keys: keys}, nil
}

// EncodeCursor builds a cursor from row and encodes it.
func EncodeCursor(spec SortSpec, row []Value) (string, error) {
	c, err := NewCursor(spec, row)
	if err != nil {
		return "", err
	}
	return c.Encode(), nil
}

// IsZero reports whether c holds no fields.
func (c Cursor) IsZero() bool { return len(c.keys) == 0 }

// Fields returns the (field, value) pairs in sort order.
func (c Cursor) Fields() []CursorField {
	out := make([]CursorField, len(c.keys))
	for i, k := range c.keys {
		out[i] = CursorField{Field: k.field.String(), Value: k.value}
	}
	return out
}

// Values returns the cursor values in sort order.
func (c Cursor) Values() []Value {
	out := make([]Value, len(c.keys))
	for i, k := range c.keys {
		out[i] = k.value
	}
	return out
}

// Wire format: a sequence of length-delimited entries (field 1), each holding
// the field name (field 1) and exactly one value field:
// bool (2, varint), int (3, zigzag varint), float (4, fixed64), string (5, bytes).
const (
	wireEntry  protowire.Number = 1
	wireName   protowire.Number = 1
	wireBool   protowire.Number = 2
	wireInt    protowire.Number = 3
	wireFloat  protowire.Number = 4
	wireString protowire.Number = 5
)

// Encode returns the opaque, URL-safe token for c. Equal cursors always
// produce equal tokens.
func (c Cursor) Encode() string {
	var buf []byte
	for _, k := range c.keys {
		var entry []byte
		entry = protowire.AppendTag(entry, wireName, protowire.BytesType)
		entry = protowire.AppendString(entry, k.field.String())
		switch k.value.Kind() {
		case KindBool:
			entry = protowire.AppendTag(entry, wireBool, protowire.VarintType)
			entry = protowire.AppendVarint(entry, protowire.EncodeBool(k.value.b))
		case KindInt:
			entry = protowire.AppendTag(entry, wireInt, protowire.VarintType)
			entry = protowire.AppendVarint(entry, protowire.EncodeZigZag(k.value.i))
		case KindFloat:
			entry = protowire.AppendTag(entry, wireFloat, protowire.Fixed64Type)
			entry = protowire.AppendFixed64(entry, math.Float64bits(k.value.f))
		case KindString:
			entry = protowire.AppendTag(entry, wireString, protowire.BytesType)
			entry = protowire.AppendString(entry, k.value.s)
		}
		buf = protowire.AppendTag(buf, wireEntry, protowire.BytesType)
		buf = protowire.AppendBytes(buf, entry)
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}

// DecodeCursor decodes token and checks it against spec. The token's field
// list must equal spec's field names in order; otherwise a
// *CursorFieldMismatchError is returned. Corrupt, oversized or otherwise
// undecodable tokens yield a *CursorMalformedError. Directions always come
// from spec, never from the token.
func DecodeCursor(token string, spec SortSpec) (Cursor, error) {
	if spec.IsZero() {
		return Cursor{}, ErrCursorWithoutSort
	}
	if token == "" {
		return Cursor{}, &CursorMalformedError{Reason: "empty token"}
	}
	if len(token) > MaxCursorSize {
		return Cursor{}, &CursorMalformedError{Reason: fmt.Sprintf("token longer than %d bytes", MaxCursorSize)}
	}
	raw, err := decodeBase64(token)
	if err != nil {
		return Cursor{}, &CursorMalformedError{Reason: "invalid base64", Err: err}
	}

	var names []string
	var values []Value
	for len(raw) > 0 {
		num, typ, n := protowire.ConsumeTag(raw)
		if n < 0 {
			return Cursor{}, &CursorMalformedError{Reason: "invalid entry tag", Err: protowire.ParseError(n)}
		}
		if num != wireEntry || typ != protowire.BytesType {
			return Cursor{}, &CursorMalformedError{Reason: fmt.Sprintf("unexpected field %d", num)}
		}
		raw = raw[n:]
		entry, m := protowire.ConsumeBytes(raw)
		if m < 0 {
			return Cursor{}, &CursorMalformedError{Reason: "truncated entry", Err: protowire.ParseError(m)}
		}
		raw = raw[m:]
		if len(names) == MaxCursorFields {
			return Cursor{}, &CursorMalformedError{Reason: fmt.Sprintf("more than %d fields", MaxCursorFields)}
		}
		name, v, err := decodeEntry(entry)
		if err != nil {
			return Cursor{}, err
		}
		names = append(names, name)
		values = append(values, v)
	}

	expected := spec.Names()
	if !slices.Equal(names, expected) {
		return Cursor{}, &CursorFieldMismatchError{Expected: expected, Got: names}
	}

	keys := make([]cursorKey, len(values))
	for i, k := range spec.fields {
		keys[i] = cursorKey{field: k.field, dir: k.dir, value: values[i]}
	}
	return Cursor{keys: keys}, nil
}

func decodeEntry(b []byte) (string, Value, error) {
	var (
		name            string
		v               Value
		haveName, haveV bool
	)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return "", Value{}, &CursorMalformedError{Reason: "invalid value tag", Err: protowire.ParseError(n)}
		}
		b = b[n:]

		if num == wireName {
			if typ != protowire.BytesType || haveName {
				return "", Value{}, &CursorMalformedError{Reason: "invalid field name"}
			}
			s, m := protowire.ConsumeString(b)
			if m < 0 {
				return "", Value{}, &CursorMalformedError{Reason: "truncated field name", Err: protowire.ParseError(m)}
			}
			name, haveName, b = s, true, b[m:]
			continue
		}

		if haveV {
			return "", Value{}, &CursorMalformedError{Reason: "entry holds more than one value"}
		}
		var m int
		switch {
		case num == wireBool && typ == protowire.VarintType:
			var x uint64
			x, m = protowire.ConsumeVarint(b)
			if m >= 0 && x > 1 {
				return "", Value{}, &CursorMalformedError{Reason: "invalid bool"}
			}
			v = Bool(protowire.DecodeBool(x))
		case num == wireInt && typ == protowire.VarintType:
			var x uint64
			x, m = protowire.ConsumeVarint(b)
			v = Int(protowire.DecodeZigZag(x))
		case num == wireFloat && typ == protowire.Fixed64Type:
			var x uint64
			x, m = protowire.ConsumeFixed64(b)
			v = Float(math.Float64frombits(x))
		case num == wireString && typ == protowire.BytesType:
			var s string
			s, m = protowire.ConsumeString(b)
			v = String(s)
		default:
			return "", Value{}, &CursorMalformedError{Reason: fmt.Sprintf("unexpected value field %d", num)}
		}
		if m < 0 {
			return "", Value{}, &CursorMalformedError{Reason: "truncated value", Err: protowire.ParseError(m)}
		}
		haveV, b = true, b[m:]
	}
	if !haveName || !haveV {
		return "", Value{}, &CursorMalformedError{Reason: "incomplete entry"}
	}
	return name, v, nil
}

// decodeBase64 accepts URL-safe and standard alphabets, with or without padding.
func decodeBase64(token string) ([]byte, error) {
	trimmed := strings.TrimRight(token, "=")
	if b, err := base64.RawURLEncoding.DecodeString(trimmed); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(trimmed)
}
