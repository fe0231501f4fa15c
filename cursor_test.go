package sqlgate_test

import (
	"encoding/base64"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/sqlgate"
)

func TestCursorRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		fields []sqlgate.SortField
		values []sqlgate.Value
	}{
		{"single int", []sqlgate.SortField{sqlgate.Ascending("id")}, []sqlgate.Value{sqlgate.Int(42)}},
		{"negative int", []sqlgate.SortField{sqlgate.Ascending("id")}, []sqlgate.Value{sqlgate.Int(math.MinInt64)}},
		{
			"mixed",
			[]sqlgate.SortField{sqlgate.Descending("created_at"), sqlgate.Ascending("score"), sqlgate.Ascending("active"), sqlgate.Ascending("id")},
			[]sqlgate.Value{sqlgate.String("2024-06-01T10:00:00Z"), sqlgate.Float(-0.25), sqlgate.Bool(true), sqlgate.Int(7)},
		},
		{"unicode", []sqlgate.SortField{sqlgate.Ascending("name")}, []sqlgate.Value{sqlgate.String("Zoë / 東京 ?&=")}},
		{"empty string", []sqlgate.SortField{sqlgate.Ascending("name")}, []sqlgate.Value{sqlgate.String("")}},
		{"nan", []sqlgate.SortField{sqlgate.Ascending("ratio")}, []sqlgate.Value{sqlgate.Float(math.NaN())}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := sqlgate.MustSortSpec(tt.fields...)
			token, err := sqlgate.EncodeCursor(spec, tt.values)
			require.NoError(t, err)

			cursor, err := sqlgate.DecodeCursor(token, spec)
			require.NoError(t, err)
			got := cursor.Values()
			require.Len(t, got, len(tt.values))
			for i := range got {
				assert.True(t, tt.values[i].Equal(got[i]), "value %d: got %v, want %v", i, got[i], tt.values[i])
			}
			assert.Equal(t, token, cursor.Encode(), "re-encoding must be stable")
		})
	}
}

func TestCursorTokenIsURLSafeAndDeterministic(t *testing.T) {
	spec := sqlgate.MustSortSpec(sqlgate.Ascending("name"), sqlgate.Ascending("id"))
	row := []sqlgate.Value{sqlgate.String("\xff\xfe>>>???"), sqlgate.Int(1 << 40)}

	a, err := sqlgate.EncodeCursor(spec, row)
	require.NoError(t, err)
	b, err := sqlgate.EncodeCursor(spec, row)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.False(t, strings.ContainsAny(a, "+/="), "token %q is not URL safe", a)
}

func TestCursorFields(t *testing.T) {
	spec := sqlgate.MustSortSpec(sqlgate.Descending("score"), sqlgate.Ascending("id"))
	c, err := sqlgate.NewCursor(spec, []sqlgate.Value{sqlgate.Int(10), sqlgate.Int(3)})
	require.NoError(t, err)
	fields := c.Fields()
	require.Len(t, fields, 2)
	assert.Equal(t, "score", fields[0].Field)
	assert.Equal(t, "id", fields[1].Field)
	assert.False(t, c.IsZero())
	assert.True(t, sqlgate.Cursor{}.IsZero())
}

func TestNewCursor_Errors(t *testing.T) {
	spec := sqlgate.MustSortSpec(sqlgate.Ascending("name"), sqlgate.Ascending("id"))

	_, err := sqlgate.NewCursor(spec, []sqlgate.Value{sqlgate.String("a")})
	assert.ErrorIs(t, err, sqlgate.ErrCursorValues)

	_, err = sqlgate.NewCursor(spec, []sqlgate.Value{sqlgate.Null(), sqlgate.Int(1)})
	assert.ErrorIs(t, err, sqlgate.ErrCursorValues)

	_, err = sqlgate.NewCursor(spec, []sqlgate.Value{sqlgate.Strings("a"), sqlgate.Int(1)})
	assert.ErrorIs(t, err, sqlgate.ErrCursorValues)

	_, err = sqlgate.NewCursor(sqlgate.SortSpec{}, nil)
	assert.ErrorIs(t, err, sqlgate.ErrCursorWithoutSort)
}

func TestDecodeCursor_FieldMismatch(t *testing.T) {
	spec := sqlgate.MustSortSpec(sqlgate.Ascending("name"), sqlgate.Ascending("id"))
	token, err := sqlgate.EncodeCursor(spec, []sqlgate.Value{sqlgate.String("bob"), sqlgate.Int(2)})
	require.NoError(t, err)

	others := []sqlgate.SortSpec{
		sqlgate.MustSortSpec(sqlgate.Ascending("id"), sqlgate.Ascending("name")),
		sqlgate.MustSortSpec(sqlgate.Ascending("name")),
		sqlgate.MustSortSpec(sqlgate.Ascending("name"), sqlgate.Ascending("id"), sqlgate.Ascending("age")),
		sqlgate.MustSortSpec(sqlgate.Ascending("email"), sqlgate.Ascending("id")),
	}
	for _, other := range others {
		t.Run(other.String(), func(t *testing.T) {
			_, err := sqlgate.DecodeCursor(token, other)
			var mismatch *sqlgate.CursorFieldMismatchError
			require.ErrorAs(t, err, &mismatch)
			assert.Equal(t, []string{"name", "id"}, mismatch.Got)
			assert.Equal(t, other.Names(), mismatch.Expected)
			assert.True(t, sqlgate.IsCursorErr(err))
		})
	}
}

func TestDecodeCursor_DirectionsComeFromSpec(t *testing.T) {
	asc := sqlgate.MustSortSpec(sqlgate.Ascending("id"))
	token, err := sqlgate.EncodeCursor(asc, []sqlgate.Value{sqlgate.Int(5)})
	require.NoError(t, err)

	desc := sqlgate.MustSortSpec(sqlgate.Descending("id"))
	c, err := sqlgate.DecodeCursor(token, desc)
	require.NoError(t, err)

	q, err := sqlgate.Select("items", "id").OrderBy(desc).AfterCursor(c).Build(sqlgate.Postgres)
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM items WHERE id < $1 ORDER BY id DESC", q.SQL)
}

func TestDecodeCursor_Malformed(t *testing.T) {
	spec := sqlgate.MustSortSpec(sqlgate.Ascending("id"))
	enc := base64.RawURLEncoding.EncodeToString

	// entry{name: "id"} with no value
	noValue := []byte{0x0a, 0x04, 0x0a, 0x02, 'i', 'd'}
	// entry{name: "id", bool: 2}
	badBool := []byte{0x0a, 0x06, 0x0a, 0x02, 'i', 'd', 0x10, 0x02}
	// entry{name: "id", int: 1, int: 2}
	twoValues := []byte{0x0a, 0x08, 0x0a, 0x02, 'i', 'd', 0x18, 0x02, 0x18, 0x04}
	// top-level field 2 instead of 1
	wrongField := []byte{0x12, 0x00}

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"not base64", "!!!"},
		{"truncated varint", enc([]byte{0xff, 0xff})},
		{"truncated entry", enc([]byte{0x0a, 0x10, 0x0a})},
		{"entry without value", enc(noValue)},
		{"invalid bool", enc(badBool)},
		{"two values", enc(twoValues)},
		{"unexpected field", enc(wrongField)},
		{"too long", strings.Repeat("A", sqlgate.MaxCursorSize+1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sqlgate.DecodeCursor(tt.token, spec)
			var malformed *sqlgate.CursorMalformedError
			require.ErrorAs(t, err, &malformed)
			assert.True(t, errors.Is(err, sqlgate.ErrCursorMalformed))
			assert.True(t, sqlgate.IsClientErr(err))
		})
	}
}

func TestDecodeCursor_AcceptsPaddedStandardBase64(t *testing.T) {
	spec := sqlgate.MustSortSpec(sqlgate.Ascending("name"))
	token, err := sqlgate.EncodeCursor(spec, []sqlgate.Value{sqlgate.String("a")})
	require.NoError(t, err)
	raw, err := base64.RawURLEncoding.DecodeString(token)
	require.NoError(t, err)

	c, err := sqlgate.DecodeCursor(base64.StdEncoding.EncodeToString(raw), spec)
	require.NoError(t, err)
	assert.True(t, c.Values()[0].Equal(sqlgate.String("a")))
}

func TestCursorFrom(t *testing.T) {
	spec := sqlgate.MustSortSpec(sqlgate.Descending("score"), sqlgate.Ascending("id"))
	row := map[string]sqlgate.Value{"id": sqlgate.Int(9), "score": sqlgate.Int(70), "name": sqlgate.String("x")}

	token, err := sqlgate.CursorFrom(spec, row)
	require.NoError(t, err)
	c, err := sqlgate.DecodeCursor(token, spec)
	require.NoError(t, err)
	assert.True(t, sqlgate.Ints(70, 9).Equal(sqlgate.Array(c.Values()...)))

	_, err = sqlgate.CursorFrom(spec, map[string]sqlgate.Value{"id": sqlgate.Int(9)})
	var mismatch *sqlgate.CursorFieldMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, []string{"id"}, mismatch.Got)
}
