package sqlgate_test

import (
	"cmp"
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/sqlgate"
)

func TestCursorPredicateSQL(t *testing.T) {
	tests := []struct {
		name   string
		spec   sqlgate.SortSpec
		values []sqlgate.Value
		dir    sqlgate.PageDirection
		want   string
	}{
		{
			name:   "single ascending",
			spec:   sqlgate.MustSortSpec(sqlgate.Ascending("id")),
			values: []sqlgate.Value{sqlgate.Int(10)},
			want:   "SELECT id FROM t WHERE id > $1 ORDER BY id",
		},
		{
			name:   "single descending",
			spec:   sqlgate.MustSortSpec(sqlgate.Descending("id")),
			values: []sqlgate.Value{sqlgate.Int(10)},
			want:   "SELECT id FROM t WHERE id < $1 ORDER BY id DESC",
		},
		{
			name:   "two fields mixed",
			spec:   sqlgate.MustSortSpec(sqlgate.Descending("created_at"), sqlgate.Ascending("id")),
			values: []sqlgate.Value{sqlgate.String("2024-01-01"), sqlgate.Int(5)},
			want:   "SELECT id FROM t WHERE created_at < $1 OR (created_at = $2 AND id > $3) ORDER BY created_at DESC, id",
		},
		{
			name:   "three fields",
			spec:   sqlgate.MustSortSpec(sqlgate.Ascending("a"), sqlgate.Ascending("b"), sqlgate.Ascending("id")),
			values: []sqlgate.Value{sqlgate.Int(1), sqlgate.Int(2), sqlgate.Int(3)},
			want:   "SELECT id FROM t WHERE a > $1 OR (a = $2 AND b > $3) OR (a = $4 AND b = $5 AND id > $6) ORDER BY a, b, id",
		},
		{
			name:   "backward",
			spec:   sqlgate.MustSortSpec(sqlgate.Ascending("name"), sqlgate.Ascending("id")),
			values: []sqlgate.Value{sqlgate.String("m"), sqlgate.Int(4)},
			dir:    sqlgate.Backward,
			want:   "SELECT id FROM t WHERE name < $1 OR (name = $2 AND id < $3) ORDER BY name DESC, id DESC",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := sqlgate.NewCursor(tt.spec, tt.values)
			require.NoError(t, err)
			b := sqlgate.Select("t", "id").OrderBy(tt.spec)
			if tt.dir == sqlgate.Backward {
				b.BeforeCursor(c)
			} else {
				b.AfterCursor(c)
			}
			q, err := b.Build(sqlgate.Postgres)
			require.NoError(t, err)
			assert.Equal(t, tt.want, q.SQL)
			assert.Equal(t, tt.dir == sqlgate.Backward, q.Reversed)
			assertPlaceholders(t, q, "$")
		})
	}
}

func TestCursorPredicateStructure(t *testing.T) {
	spec := sqlgate.MustSortSpec(sqlgate.Ascending("a"), sqlgate.Descending("b"))
	c, err := sqlgate.NewCursor(spec, []sqlgate.Value{sqlgate.Int(1), sqlgate.Int(2)})
	require.NoError(t, err)

	or, ok := c.Predicate(sqlgate.Forward).(sqlgate.OrExpr)
	require.True(t, ok)
	branches := or.Exprs()
	require.Len(t, branches, 2)

	first := branches[0].(sqlgate.CompareExpr)
	assert.Equal(t, sqlgate.OpGt, first.Op())

	second := branches[1].(sqlgate.AndExpr).Exprs()
	assert.Equal(t, sqlgate.OpEq, second[0].(sqlgate.CompareExpr).Op())
	assert.Equal(t, sqlgate.OpLt, second[1].(sqlgate.CompareExpr).Op())

	assert.Nil(t, sqlgate.Cursor{}.Predicate(sqlgate.Forward))
	assert.NoError(t, sqlgate.ValidateFilter(c.Predicate(sqlgate.Backward)))
}

// row is a record of the synthetic dataset used by the pagination tests.
type row map[string]sqlgate.Value

func compareValues(a, b sqlgate.Value) int {
	if x, ok := a.AsInt(); ok {
		y, _ := b.AsInt()
		return cmp.Compare(x, y)
	}
	if x, ok := a.AsFloat(); ok {
		y, _ := b.AsFloat()
		return cmp.Compare(x, y)
	}
	if x, ok := a.AsString(); ok {
		y, _ := b.AsString()
		return cmp.Compare(x, y)
	}
	x, _ := a.AsBool()
	y, _ := b.AsBool()
	switch {
	case x == y:
		return 0
	case !x:
		return -1
	default:
		return 1
	}
}

// eval evaluates the comparison and boolean operators used by keyset
// predicates against r.
func eval(t *testing.T, expr sqlgate.FilterExpr, r row) bool {
	t.Helper()
	switch e := expr.(type) {
	case sqlgate.CompareExpr:
		c := compareValues(r[e.Field().String()], e.Value())
		switch e.Op() {
		case sqlgate.OpEq:
			return c == 0
		case sqlgate.OpGt:
			return c > 0
		case sqlgate.OpLt:
			return c < 0
		}
		t.Fatalf("unexpected operator %s", e.Op())
	case sqlgate.AndExpr:
		for _, c := range e.Exprs() {
			if !eval(t, c, r) {
				return false
			}
		}
		return true
	case sqlgate.OrExpr:
		for _, c := range e.Exprs() {
			if eval(t, c, r) {
				return true
			}
		}
		return false
	}
	t.Fatalf("unexpected node %T", expr)
	return false
}

func sortRows(rows []row, spec sqlgate.SortSpec) {
	slices.SortStableFunc(rows, func(a, b row) int {
		for _, f := range spec.Fields() {
			c := compareValues(a[f.Field], b[f.Field])
			if f.Direction == sqlgate.Desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
}

func syntheticRows(n int) []row {
	rng := rand.New(rand.NewPCG(7, 11))
	names := []string{"ada", "bob", "cy", "dee", "eve"}
	rows := make([]row, n)
	for i := range rows {
		rows[i] = row{
			"id":     sqlgate.Int(int64(i + 1)),
			"score":  sqlgate.Int(int64(rng.IntN(6))),
			"name":   sqlgate.String(names[rng.IntN(len(names))]),
			"weight": sqlgate.Float(float64(rng.IntN(4)) / 2),
			"active": sqlgate.Bool(rng.IntN(2) == 0),
		}
	}
	return rows
}

func cursorFor(t *testing.T, spec sqlgate.SortSpec, r row) sqlgate.Cursor {
	t.Helper()
	token, err := sqlgate.CursorFrom(spec, r)
	require.NoError(t, err)
	c, err := sqlgate.DecodeCursor(token, spec)
	require.NoError(t, err)
	return c
}

func ids(rows []row) []int64 {
	out := make([]int64, len(rows))
	for i, r := range rows {
		out[i], _ = r["id"].AsInt()
	}
	return out
}

// Paging forward through the dataset with successive cursors must visit
// every row exactly once, in sort order.
func TestKeysetPaginationVisitsEveryRowOnce(t *testing.T) {
	specs := []sqlgate.SortSpec{
		sqlgate.MustSortSpec(sqlgate.Ascending("id")),
		sqlgate.MustSortSpec(sqlgate.Descending("id")),
		sqlgate.MustSortSpec(sqlgate.Ascending("score"), sqlgate.Ascending("id")),
		sqlgate.MustSortSpec(sqlgate.Descending("score"), sqlgate.Ascending("name"), sqlgate.Descending("id")),
		sqlgate.MustSortSpec(sqlgate.Ascending("active"), sqlgate.Descending("weight"), sqlgate.Ascending("name"), sqlgate.Ascending("id")),
	}
	data := syntheticRows(97)

	for _, spec := range specs {
		for _, pageSize := range []int{1, 3, 10, 97, 200} {
			t.Run(fmt.Sprintf("%s/%d", spec, pageSize), func(t *testing.T) {
				want := slices.Clone(data)
				sortRows(want, spec)

				var got []row
				var pred sqlgate.FilterExpr
				for pages := 0; ; pages++ {
					require.Less(t, pages, len(data)+2, "pagination does not terminate")
					var candidates []row
					for _, r := range data {
						if pred == nil || eval(t, pred, r) {
							candidates = append(candidates, r)
						}
					}
					sortRows(candidates, spec)
					page := candidates[:min(pageSize, len(candidates))]
					if len(page) == 0 {
						break
					}
					got = append(got, page...)
					pred = cursorFor(t, spec, page[len(page)-1]).Predicate(sqlgate.Forward)
				}
				assert.Equal(t, ids(want), ids(got))
			})
		}
	}
}

// A backward page from row i holds the pageSize rows preceding it.
func TestKeysetPaginationBackward(t *testing.T) {
	spec := sqlgate.MustSortSpec(sqlgate.Descending("score"), sqlgate.Ascending("name"), sqlgate.Ascending("id"))
	data := syntheticRows(40)
	sorted := slices.Clone(data)
	sortRows(sorted, spec)
	reversed := spec.Reverse()
	const pageSize = 7

	for i, anchor := range sorted {
		pred := cursorFor(t, spec, anchor).Predicate(sqlgate.Backward)
		var candidates []row
		for _, r := range data {
			if eval(t, pred, r) {
				candidates = append(candidates, r)
			}
		}
		sortRows(candidates, reversed)
		page := slices.Clone(candidates[:min(pageSize, len(candidates))])
		slices.Reverse(page)

		want := sorted[max(0, i-pageSize):i]
		assert.Equal(t, ids(want), ids(page), "anchor %d", i)
	}
}
