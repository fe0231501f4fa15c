package sqlexec

import (
	"context"
	"fmt"
	"slices"

	"github.com/pthm/sqlgate"
)

// Page is one page of a keyset-paginated result.
type Page struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
	Info    sqlgate.PageInfo `json:"page_info"`
}

// FetchPage runs b for one page of at most limit rows. It asks the database
// for one extra row to learn whether another page exists, restores the
// requested order for Before pages, and fills in the cursors of the
// neighbouring pages from the first and last rows. The selected columns
// must include every sort field.
func (r *Runner) FetchPage(ctx context.Context, b *sqlgate.SelectBuilder, d sqlgate.Dialect, limit int) (Page, error) {
	if limit <= 0 {
		return Page{}, sqlgate.ErrInvalidLimit
	}
	spec := b.SortSpec()
	if spec.IsZero() {
		return Page{}, sqlgate.ErrCursorWithoutSort
	}

	size := b.Clone().Limit(limit).EffectiveLimit()
	lookahead := b.Clone().MaxLimit(size + 1).Limit(size + 1)
	q, err := lookahead.Build(d)
	if err != nil {
		return Page{}, err
	}

	cols, rows, err := r.query(ctx, q)
	if err != nil {
		return Page{}, err
	}
	more := len(rows) > size
	if more {
		rows = rows[:size]
	}
	if q.Reversed {
		slices.Reverse(rows)
	}

	direction, paging := b.Paging()
	backward := paging && direction == sqlgate.Backward

	page := Page{Columns: cols, Rows: rows}
	if len(rows) == 0 {
		return page, nil
	}

	// Going forward, a further page exists when the extra row came back and
	// an earlier page exists whenever we started from a cursor. Going
	// backward the roles swap.
	hasNext, hasPrev := more, paging
	if backward {
		hasNext, hasPrev = true, more
	}
	if hasNext {
		next, err := rowCursor(spec, rows[len(rows)-1])
		if err != nil {
			return Page{}, err
		}
		page.Info = page.Info.WithNextCursor(next)
	}
	if hasPrev {
		prev, err := rowCursor(spec, rows[0])
		if err != nil {
			return Page{}, err
		}
		page.Info = page.Info.WithPrevCursor(prev)
	}
	return page, nil
}

func rowCursor(spec sqlgate.SortSpec, row map[string]any) (string, error) {
	values := make(map[string]sqlgate.Value, spec.Len())
	for _, name := range spec.Names() {
		raw, ok := row[name]
		if !ok {
			continue
		}
		v, err := sqlgate.FromAny(raw)
		if err != nil {
			return "", fmt.Errorf("cursor field %s: %w", name, err)
		}
		values[name] = v
	}
	return sqlgate.CursorFrom(spec, values)
}
