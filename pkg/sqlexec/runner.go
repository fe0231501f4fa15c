// Package sqlexec runs compiled sqlgate queries against a database/sql
// connection and turns keyset-paginated SELECTs into pages with cursors.
package sqlexec

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pthm/sqlgate"
)

// Runner executes compiled queries, logging each statement and reporting
// it to the optional metrics.
type Runner struct {
	db      Execer
	log     *slog.Logger
	metrics *Metrics
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger. Statements are logged at debug level and
// failures at warn level.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.log = l }
}

// WithMetrics enables Prometheus reporting.
func WithMetrics(m *Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// New creates a Runner over db.
func New(db Execer, opts ...Option) *Runner {
	r := &Runner{db: db, log: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Exec runs a statement that returns no rows and reports the number of
// affected rows.
func (r *Runner) Exec(ctx context.Context, q sqlgate.CompiledQuery) (int64, error) {
	kind := statementKind(q.SQL)
	start := time.Now()
	res, err := r.db.ExecContext(ctx, q.SQL, q.Args()...)
	var affected int64
	if err == nil {
		affected, err = res.RowsAffected()
	}
	r.finish(ctx, kind, q, start, err, slog.Int64("rows_affected", affected))
	if err != nil {
		return 0, fmt.Errorf("exec %s: %w", kind, err)
	}
	return affected, nil
}

// Query runs a statement and returns its rows keyed by column name.
func (r *Runner) Query(ctx context.Context, q sqlgate.CompiledQuery) ([]map[string]any, error) {
	_, rows, err := r.query(ctx, q)
	return rows, err
}

// QueryColumns is Query that also returns the column names in result order.
func (r *Runner) QueryColumns(ctx context.Context, q sqlgate.CompiledQuery) ([]string, []map[string]any, error) {
	return r.query(ctx, q)
}

func (r *Runner) query(ctx context.Context, q sqlgate.CompiledQuery) (cols []string, out []map[string]any, err error) {
	kind := statementKind(q.SQL)
	start := time.Now()
	defer func() {
		r.finish(ctx, kind, q, start, err, slog.Int("rows", len(out)))
		if err != nil {
			err = fmt.Errorf("query %s: %w", kind, err)
		}
	}()

	rows, err := r.db.QueryContext(ctx, q.SQL, q.Args()...)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = rows.Close() }()

	cols, err = rows.Columns()
	if err != nil {
		return nil, nil, err
	}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		record := make(map[string]any, len(cols))
		for i, col := range cols {
			record[col] = normalize(values[i])
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return cols, out, nil
}

func (r *Runner) finish(ctx context.Context, kind string, q sqlgate.CompiledQuery, start time.Time, err error, attrs ...slog.Attr) {
	elapsed := time.Since(start)
	r.metrics.observe(kind, elapsed.Seconds(), err)

	attrs = append(attrs,
		slog.String("kind", kind),
		slog.String("sql", q.SQL),
		slog.Int("params", len(q.Params)),
		slog.Duration("elapsed", elapsed),
	)
	if err != nil {
		attrs = append(attrs, slog.Any("error", err))
		r.log.LogAttrs(ctx, slog.LevelWarn, "statement failed", attrs...)
		return
	}
	r.log.LogAttrs(ctx, slog.LevelDebug, "statement executed", attrs...)
}

// statementKind labels a statement by its leading keyword.
func statementKind(sql string) string {
	word, _, _ := strings.Cut(strings.TrimSpace(sql), " ")
	switch kind := strings.ToLower(word); kind {
	case "select", "insert", "update", "delete":
		return kind
	}
	return "other"
}

// normalize converts driver values into types sqlgate.FromAny accepts and
// JSON encodes readably.
func normalize(x any) any {
	switch t := x.(type) {
	case []byte:
		return string(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	}
	return x
}
