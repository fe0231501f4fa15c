package sqlgate

import (
	"maps"
	"slices"
)

// PageInfo describes a page of a paginated result for API responses.
type PageInfo struct {
	HasNext    bool   `json:"has_next"`
	HasPrev    bool   `json:"has_prev"`
	NextCursor string `json:"next_cursor,omitempty"`
	PrevCursor string `json:"prev_cursor,omitempty"`
	Total      *int64 `json:"total,omitempty"`
}

// NewPageInfo creates a PageInfo for a page of count rows fetched with the
// given limit. A full page is assumed to have a successor.
func NewPageInfo(count, limit int) PageInfo {
	return PageInfo{HasNext: limit > 0 && count >= limit}
}

// WithNextCursor sets the cursor of the following page. An empty cursor
// clears HasNext.
func (p PageInfo) WithNextCursor(cursor string) PageInfo {
	p.NextCursor = cursor
	p.HasNext = cursor != ""
	return p
}

// WithPrevCursor sets the cursor of the preceding page. An empty cursor
// clears HasPrev.
func (p PageInfo) WithPrevCursor(cursor string) PageInfo {
	p.PrevCursor = cursor
	p.HasPrev = cursor != ""
	return p
}

// WithTotal records the total number of matching rows.
func (p PageInfo) WithTotal(total int64) PageInfo {
	p.Total = &total
	return p
}

// CursorFrom builds the cursor for row, a record keyed by column name,
// using the fields of spec.
func CursorFrom(spec SortSpec, row map[string]Value) (string, error) {
	values := make([]Value, spec.Len())
	for i, name := range spec.Names() {
		v, ok := row[name]
		if !ok {
			return "", &CursorFieldMismatchError{Expected: spec.Names(), Got: slices.Sorted(maps.Keys(row))}
		}
		values[i] = v
	}
	return EncodeCursor(spec, values)
}
