package sqlgate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/sqlgate"
)

func TestNewSortSpec(t *testing.T) {
	spec, err := sqlgate.NewSortSpec(sqlgate.Descending("created_at"), sqlgate.Ascending("id"))
	require.NoError(t, err)
	assert.Equal(t, 2, spec.Len())
	assert.Equal(t, []string{"created_at", "id"}, spec.Names())
	assert.Equal(t, "-created_at,id", spec.String())

	_, err = sqlgate.NewSortSpec()
	assert.ErrorIs(t, err, sqlgate.ErrEmptySort)

	_, err = sqlgate.NewSortSpec(sqlgate.Ascending("id"), sqlgate.Descending("id"))
	assert.ErrorIs(t, err, sqlgate.ErrDuplicateSortField)

	_, err = sqlgate.NewSortSpec(sqlgate.Ascending("id desc"))
	assert.ErrorIs(t, err, sqlgate.ErrInvalidIdentifier)

	_, err = sqlgate.NewSortSpec(sqlgate.SortField{Field: "id", Direction: sqlgate.Direction(7)})
	assert.ErrorIs(t, err, sqlgate.ErrInvalidSort)

	assert.True(t, sqlgate.SortSpec{}.IsZero())
}

func TestSortSpecReverse(t *testing.T) {
	spec := sqlgate.MustSortSpec(sqlgate.Descending("score"), sqlgate.Ascending("id"))
	rev := spec.Reverse()
	assert.Equal(t, []sqlgate.SortField{sqlgate.Ascending("score"), sqlgate.Descending("id")}, rev.Fields())
	// The original is unchanged.
	assert.Equal(t, "-score,id", spec.String())
}

func TestParseSortSpec(t *testing.T) {
	tests := []struct {
		input string
		want  []sqlgate.SortField
	}{
		{"name", []sqlgate.SortField{sqlgate.Ascending("name")}},
		{"name,-created_at", []sqlgate.SortField{sqlgate.Ascending("name"), sqlgate.Descending("created_at")}},
		{"+name, -id", []sqlgate.SortField{sqlgate.Ascending("name"), sqlgate.Descending("id")}},
		{"age desc, name asc", []sqlgate.SortField{sqlgate.Descending("age"), sqlgate.Ascending("name")}},
		{"age DESC,name", []sqlgate.SortField{sqlgate.Descending("age"), sqlgate.Ascending("name")}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			spec, err := sqlgate.ParseSortSpec(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, spec.Fields())
		})
	}
}

func TestParseSortSpec_Errors(t *testing.T) {
	tests := []struct {
		input   string
		wantErr error
	}{
		{"", sqlgate.ErrEmptySort},
		{"   ", sqlgate.ErrEmptySort},
		{"name,,id", sqlgate.ErrInvalidSort},
		{"-name desc", sqlgate.ErrInvalidSort},
		{"name sideways", sqlgate.ErrInvalidSort},
		{"name,name", sqlgate.ErrDuplicateSortField},
		{"name;drop", sqlgate.ErrInvalidIdentifier},
		{"select", sqlgate.ErrReservedKeyword},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := sqlgate.ParseSortSpec(tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseSortSpec_AllowList(t *testing.T) {
	spec, err := sqlgate.ParseSortSpec("-name", "name", "id")
	require.NoError(t, err)
	assert.Equal(t, "-name", spec.String())

	_, err = sqlgate.ParseSortSpec("password", "name", "id")
	var notAllowed *sqlgate.FieldNotAllowedError
	require.ErrorAs(t, err, &notAllowed)
	assert.Equal(t, "password", notAllowed.Field)
	assert.True(t, sqlgate.IsPolicyErr(err))
}

func TestSortSpecStringRoundTrip(t *testing.T) {
	spec := sqlgate.MustSortSpec(sqlgate.Ascending("name"), sqlgate.Descending("created_at"), sqlgate.Ascending("id"))
	parsed, err := sqlgate.ParseSortSpec(spec.String())
	require.NoError(t, err)
	assert.Equal(t, spec.Fields(), parsed.Fields())
}
