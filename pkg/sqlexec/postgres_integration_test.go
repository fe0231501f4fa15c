//go:build integration

package sqlexec_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/sqlgate"
	"github.com/pthm/sqlgate/internal/testutil"
	"github.com/pthm/sqlgate/pkg/sqlexec"
)

func openPostgres(t *testing.T, driver string) *sqlexec.Runner {
	t.Helper()
	db := testutil.EmptyDB(t, driver)
	_, err := db.Exec(`CREATE TABLE items (
		id TEXT PRIMARY KEY,
		score BIGINT NOT NULL,
		name TEXT NOT NULL,
		active BOOLEAN NOT NULL
	)`)
	require.NoError(t, err)

	r := sqlexec.New(db)
	for i := 0; i < 23; i++ {
		q, err := sqlgate.Insert("items").
			Set("id", sqlgate.String(uuid.NewString())).
			Set("score", sqlgate.Int(int64(i%5))).
			Set("name", sqlgate.String(fmt.Sprintf("Item-%02d", i))).
			Set("active", sqlgate.Bool(i%2 == 0)).
			Build(sqlgate.Postgres)
		require.NoError(t, err)
		_, err = r.Exec(context.Background(), q)
		require.NoError(t, err)
	}
	return r
}

func postgresDrivers() []string {
	return []string{"pgx", "postgres"}
}

func TestPostgres_Pagination(t *testing.T) {
	for _, driver := range postgresDrivers() {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			r := openPostgres(t, driver)
			spec := sqlgate.MustSortSpec(sqlgate.Descending("score"), sqlgate.Ascending("id"))
			filter := sqlgate.Must(sqlgate.Compare("active", sqlgate.OpEq, sqlgate.Bool(true)))

			// The server's collation decides the order of the ids.
			q, err := sqlgate.Select("items", "id", "score").Where(filter).OrderBy(spec).Build(sqlgate.Postgres)
			require.NoError(t, err)
			all, err := r.Query(ctx, q)
			require.NoError(t, err)
			require.Len(t, all, 12)

			var got []string
			token := ""
			for i := 0; i < 10; i++ {
				b := sqlgate.Select("items", "id", "score").Where(filter).OrderBy(spec)
				if token != "" {
					b = b.After(token)
				}
				page, err := r.FetchPage(ctx, b, sqlgate.Postgres, 5)
				require.NoError(t, err)
				got = append(got, ids(page.Rows)...)
				if !page.Info.HasNext {
					break
				}
				token = page.Info.NextCursor
			}
			assert.Equal(t, ids(all), got)

			last, err := r.FetchPage(ctx, sqlgate.Select("items", "id", "score").Where(filter).OrderBy(spec).After(token), sqlgate.Postgres, 5)
			require.NoError(t, err)
			back, err := r.FetchPage(ctx, sqlgate.Select("items", "id", "score").Where(filter).OrderBy(spec).Before(last.Info.PrevCursor), sqlgate.Postgres, 5)
			require.NoError(t, err)
			assert.Equal(t, ids(all)[5:10], ids(back.Rows))
		})
	}
}

func TestPostgres_Operators(t *testing.T) {
	for _, driver := range postgresDrivers() {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			r := openPostgres(t, driver)

			count := func(filter sqlgate.FilterExpr) int {
				t.Helper()
				q, err := sqlgate.Select("items", "id").Where(filter).Build(sqlgate.Postgres)
				require.NoError(t, err)
				rows, err := r.Query(ctx, q)
				require.NoError(t, err)
				return len(rows)
			}

			assert.Equal(t, 10, count(sqlgate.Must(sqlgate.Compare("score", sqlgate.OpIn, sqlgate.Ints(0, 1)))))
			assert.Equal(t, 13, count(sqlgate.Must(sqlgate.Compare("score", sqlgate.OpNotIn, sqlgate.Ints(0, 1)))))
			assert.Equal(t, 14, count(sqlgate.Must(sqlgate.Compare("score", sqlgate.OpBetween, sqlgate.Ints(1, 3)))))
			assert.Equal(t, 1, count(sqlgate.Must(sqlgate.Compare("name", sqlgate.OpILike, sqlgate.String("item-07")))))
			assert.Equal(t, 0, count(sqlgate.Must(sqlgate.Compare("name", sqlgate.OpLike, sqlgate.String("item-07")))))
			assert.Equal(t, 6, count(sqlgate.Must(sqlgate.Not(sqlgate.Must(sqlgate.Or(
				sqlgate.Must(sqlgate.Compare("active", sqlgate.OpEq, sqlgate.Bool(true))),
				sqlgate.Must(sqlgate.Compare("score", sqlgate.OpLt, sqlgate.Int(2))),
			))))))
		})
	}
}

func TestPostgres_UpdateReturning(t *testing.T) {
	ctx := context.Background()
	r := openPostgres(t, "pgx")

	q, err := sqlgate.Update("items").
		Set("active", sqlgate.Bool(false)).
		Where(sqlgate.Must(sqlgate.Compare("score", sqlgate.OpEq, sqlgate.Int(4)))).
		Returning("id", "active").
		Build(sqlgate.Postgres)
	require.NoError(t, err)
	rows, err := r.Query(ctx, q)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	for _, row := range rows {
		assert.Equal(t, false, row["active"])
	}

	q, err = sqlgate.Delete("items").
		Where(sqlgate.Must(sqlgate.Compare("active", sqlgate.OpEq, sqlgate.Bool(false)))).
		Build(sqlgate.Postgres)
	require.NoError(t, err)
	affected, err := r.Exec(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, int64(13), affected)
}

