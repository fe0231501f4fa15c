package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"sigs.k8s.io/yaml"

	"github.com/pthm/sqlgate"
	"github.com/pthm/sqlgate/pkg/filterjson"
)

// Request is a query described as a YAML or JSON document:
//
//	table: users
//	columns: [id, name, created_at]
//	filter: {"active": true, "age": {"$gte": 18}}
//	sort: "-created_at,id"
//	limit: 20
//
// Op selects the statement (select, insert, update or delete; default
// select). Filters use the JSON filter syntax of package filterjson.
type Request struct {
	Op       string   `json:"op,omitempty"`
	Table    string   `json:"table"`
	Columns  []string `json:"columns,omitempty"`
	Distinct bool     `json:"distinct,omitempty"`

	Filter json.RawMessage `json:"filter,omitempty"`
	Sort   string          `json:"sort,omitempty"`
	After  string          `json:"after,omitempty"`
	Before string          `json:"before,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`

	Page    int `json:"page,omitempty"`
	PerPage int `json:"per_page,omitempty"`

	GroupBy    []string        `json:"group_by,omitempty"`
	Aggregates []AggregateSpec `json:"aggregates,omitempty"`
	Having     json.RawMessage `json:"having,omitempty"`
	Computed   []ComputedSpec  `json:"computed,omitempty"`

	// Values are written in field name order.
	Values map[string]sqlgate.Value `json:"values,omitempty"`
	// Rows inserts several rows at once. Every row must name the same fields.
	Rows      []map[string]sqlgate.Value `json:"rows,omitempty"`
	Returning []string                   `json:"returning,omitempty"`
}

// AggregateSpec describes one aggregate column.
type AggregateSpec struct {
	// Func is count, count_distinct, sum, avg, min or max. count with a
	// field counts its non-NULL values.
	Func  string `json:"func"`
	Field string `json:"field,omitempty"`
	As    string `json:"as,omitempty"`
}

// ComputedSpec describes a computed column.
type ComputedSpec struct {
	As   string `json:"as"`
	Expr string `json:"expr"`
}

// Request operations.
const (
	OpSelect = "select"
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Statement is anything that renders to a compiled query.
type Statement interface {
	Build(d sqlgate.Dialect) (sqlgate.CompiledQuery, error)
}

// ParseRequest decodes a request document. JSON is accepted as a subset of
// YAML. Unknown keys are rejected.
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := yaml.UnmarshalStrict(data, &req); err != nil {
		return nil, fmt.Errorf("decoding request: %w", err)
	}
	req.Op = strings.ToLower(strings.TrimSpace(req.Op))
	if req.Op == "" {
		req.Op = OpSelect
	}
	switch req.Op {
	case OpSelect, OpInsert, OpUpdate, OpDelete:
	default:
		return nil, fmt.Errorf("decoding request: unknown op %q", req.Op)
	}
	return &req, nil
}

// LoadRequest reads a request document from path, or from stdin when path
// is "-".
func LoadRequest(path string) (*Request, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading request: %w", err)
	}
	return ParseRequest(data)
}

// Statement builds the statement described by r. The filter is checked
// against cfg's policy and select limits follow cfg's limits.
func (r *Request) Statement(cfg *Config) (Statement, error) {
	var (
		stmt Statement
		err  error
	)
	switch r.Op {
	case OpInsert:
		stmt, err = r.insert()
	case OpUpdate:
		stmt, err = r.update(cfg)
	case OpDelete:
		stmt, err = r.delete(cfg)
	default:
		stmt, err = r.SelectBuilder(cfg)
	}
	if err != nil {
		return nil, err
	}
	return stmt, nil
}

// SelectBuilder builds the SELECT described by r.
func (r *Request) SelectBuilder(cfg *Config) (*sqlgate.SelectBuilder, error) {
	if r.Op != OpSelect {
		return nil, fmt.Errorf("%w: %s request is not a select", sqlgate.ErrValidation, r.Op)
	}
	if len(r.Values) > 0 || len(r.Rows) > 0 || len(r.Returning) > 0 {
		return nil, fmt.Errorf("%w: values, rows and returning are not valid for select", sqlgate.ErrValidation)
	}

	b := sqlgate.Select(r.Table, r.Columns...)
	if r.Distinct {
		b.Distinct()
	}
	filter, err := r.filter(cfg)
	if err != nil {
		return nil, err
	}
	if filter != nil {
		b.Where(filter)
	}
	if r.Sort != "" {
		spec, err := sqlgate.ParseSortSpec(r.Sort)
		if err != nil {
			return nil, err
		}
		b.OrderBy(spec)
	}
	if r.After != "" && r.Before != "" {
		return nil, fmt.Errorf("%w: after and before cannot be combined", sqlgate.ErrValidation)
	}
	if r.After != "" {
		b.After(r.After)
	}
	if r.Before != "" {
		b.Before(r.Before)
	}

	if cfg != nil && cfg.Limits.MaxLimit > 0 {
		b.MaxLimit(cfg.Limits.MaxLimit)
	}
	switch {
	case r.Page > 0 || r.PerPage > 0:
		if r.Limit != 0 || r.Offset != 0 {
			return nil, fmt.Errorf("%w: page cannot be combined with limit or offset", sqlgate.ErrValidation)
		}
		b.Page(max(r.Page, 1), r.PerPage)
	case r.Limit > 0:
		b.Limit(r.Limit)
	case r.Limit < 0:
		return nil, sqlgate.ErrInvalidLimit
	case cfg != nil && cfg.Limits.DefaultLimit > 0:
		b.Limit(cfg.Limits.DefaultLimit)
	}
	if r.Offset != 0 {
		b.Offset(r.Offset)
	}

	if len(r.GroupBy) > 0 {
		b.GroupBy(r.GroupBy...)
	}
	for _, spec := range r.Aggregates {
		agg, err := spec.aggregate()
		if err != nil {
			return nil, err
		}
		b.Aggregate(agg)
	}
	if len(r.Having) > 0 {
		having, err := filterjson.Parse(r.Having)
		if err != nil {
			return nil, fmt.Errorf("having: %w", err)
		}
		b.Having(having)
	}
	for _, c := range r.Computed {
		b.Computed(c.As, c.Expr)
	}
	return b, nil
}

func (r *Request) insert() (*sqlgate.InsertBuilder, error) {
	if err := r.rejectSelectFields(); err != nil {
		return nil, err
	}
	if len(r.Filter) > 0 {
		return nil, fmt.Errorf("%w: filter is not valid for insert", sqlgate.ErrValidation)
	}
	b := sqlgate.Insert(r.Table)
	if len(r.Rows) > 0 {
		if len(r.Values) > 0 {
			return nil, fmt.Errorf("%w: values and rows cannot be combined", sqlgate.ErrValidation)
		}
		if err := r.insertRows(b); err != nil {
			return nil, err
		}
	}
	for _, field := range r.fields() {
		b.Set(field, r.Values[field])
	}
	if len(r.Returning) > 0 {
		b.Returning(r.Returning...)
	}
	return b, nil
}

// insertRows adds r.Rows to b. Columns follow the first row's field names
// in name order.
func (r *Request) insertRows(b *sqlgate.InsertBuilder) error {
	cols := slices.Sorted(maps.Keys(r.Rows[0]))
	b.Columns(cols...)
	for i, row := range r.Rows {
		if len(row) != len(cols) {
			return fmt.Errorf("%w: row %d has %d fields, want %d", sqlgate.ErrRowLength, i+1, len(row), len(cols))
		}
		values := make([]sqlgate.Value, len(cols))
		for j, col := range cols {
			v, ok := row[col]
			if !ok {
				return fmt.Errorf("%w: row %d is missing %q", sqlgate.ErrRowLength, i+1, col)
			}
			values[j] = v
		}
		b.Values(values...)
	}
	return nil
}

// HasFilter reports whether r carries a filter document.
func (r *Request) HasFilter() bool {
	return len(r.Filter) > 0 && string(r.Filter) != "null"
}

func (r *Request) update(cfg *Config) (*sqlgate.UpdateBuilder, error) {
	if err := r.rejectSelectFields(); err != nil {
		return nil, err
	}
	if len(r.Rows) > 0 {
		return nil, fmt.Errorf("%w: rows are only valid for insert", sqlgate.ErrValidation)
	}
	b := sqlgate.Update(r.Table)
	for _, field := range r.fields() {
		b.Set(field, r.Values[field])
	}
	filter, err := r.filter(cfg)
	if err != nil {
		return nil, err
	}
	if filter != nil {
		b.Where(filter)
	}
	if len(r.Returning) > 0 {
		b.Returning(r.Returning...)
	}
	return b, nil
}

func (r *Request) delete(cfg *Config) (*sqlgate.DeleteBuilder, error) {
	if err := r.rejectSelectFields(); err != nil {
		return nil, err
	}
	if len(r.Values) > 0 || len(r.Rows) > 0 {
		return nil, fmt.Errorf("%w: values and rows are not valid for delete", sqlgate.ErrValidation)
	}
	b := sqlgate.Delete(r.Table)
	filter, err := r.filter(cfg)
	if err != nil {
		return nil, err
	}
	if filter != nil {
		b.Where(filter)
	}
	if len(r.Returning) > 0 {
		b.Returning(r.Returning...)
	}
	return b, nil
}

func (r *Request) filter(cfg *Config) (sqlgate.FilterExpr, error) {
	if !r.HasFilter() {
		return nil, nil
	}
	if cfg == nil {
		return filterjson.Parse(r.Filter)
	}
	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}
	return filterjson.ParseWithPolicy(r.Filter, policy)
}

func (r *Request) fields() []string {
	fields := make([]string, 0, len(r.Values))
	for f := range r.Values {
		fields = append(fields, f)
	}
	slices.Sort(fields)
	return fields
}

func (r *Request) rejectSelectFields() error {
	var set []string
	if len(r.Columns) > 0 {
		set = append(set, "columns")
	}
	if r.Sort != "" {
		set = append(set, "sort")
	}
	if r.After != "" || r.Before != "" {
		set = append(set, "after/before")
	}
	if r.Limit != 0 || r.Offset != 0 || r.Page != 0 || r.PerPage != 0 {
		set = append(set, "limit/offset/page")
	}
	if len(r.GroupBy) > 0 || len(r.Aggregates) > 0 || len(r.Having) > 0 || len(r.Computed) > 0 {
		set = append(set, "grouping")
	}
	if r.Distinct {
		set = append(set, "distinct")
	}
	if len(set) > 0 {
		return fmt.Errorf("%w: %s not valid for %s", sqlgate.ErrValidation, strings.Join(set, ", "), r.Op)
	}
	return nil
}

func (s AggregateSpec) aggregate() (sqlgate.Aggregate, error) {
	var agg sqlgate.Aggregate
	fn := strings.ToLower(s.Func)
	if fn != "count" && s.Field == "" {
		return agg, fmt.Errorf("%w: aggregate %s requires a field", sqlgate.ErrValidation, fn)
	}
	switch fn {
	case "count":
		if s.Field != "" {
			agg = sqlgate.CountField(s.Field)
		} else {
			agg = sqlgate.Count()
		}
	case "count_distinct":
		agg = sqlgate.CountDistinct(s.Field)
	case "sum":
		agg = sqlgate.Sum(s.Field)
	case "avg":
		agg = sqlgate.Avg(s.Field)
	case "min":
		agg = sqlgate.Min(s.Field)
	case "max":
		agg = sqlgate.Max(s.Field)
	default:
		return agg, fmt.Errorf("%w: unknown aggregate %q", sqlgate.ErrValidation, s.Func)
	}
	if s.As != "" {
		agg = agg.As(s.As)
	}
	return agg, nil
}
