package database

import (
	"fmt"
)

// QueryResult is a forward-only cursor over the rows of a query. It belongs to the
// caller that obtained it and must be closed, directly or by reading it to the end
// with FetchAll.
type QueryResult struct {
	rows    Rows
	spec    FetchSpec
	columns []string
}

func newQueryResult(rows Rows, spec FetchSpec) *QueryResult {
	return &QueryResult{rows: rows, spec: spec}
}

// Columns returns the result column names.
func (r *QueryResult) Columns() ([]string, error) {
	if r.columns != nil {
		return r.columns, nil
	}
	cols, err := r.rows.Columns()
	if err != nil {
		return nil, err
	}
	r.columns = cols
	return cols, nil
}

// FetchMode returns the fetch spec rows are materialized with.
func (r *QueryResult) FetchMode() FetchSpec { return r.spec }

// SetFetchMode changes how subsequent rows are materialized.
func (r *QueryResult) SetFetchMode(spec FetchSpec) { r.spec = spec }

// Fetch advances to the next row and returns it in the current fetch mode. ok is
// false once the rows are exhausted.
func (r *QueryResult) Fetch() (row any, ok bool, err error) {
	if !r.rows.Next() {
		return nil, false, r.rows.Err()
	}
	row, err = r.materialize()
	if err != nil {
		return nil, false, err
	}
	return row, true, nil
}

// FetchAll reads every remaining row and closes the cursor. In INTO mode every
// element is the same target object, so all of them show the last row.
func (r *QueryResult) FetchAll() ([]any, error) {
	defer r.rows.Close()

	out := []any{}
	for r.rows.Next() {
		row, err := r.materialize()
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := r.rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchColumn advances to the next row and returns only column col of it.
func (r *QueryResult) FetchColumn(col int) (any, bool, error) {
	if !r.rows.Next() {
		return nil, false, r.rows.Err()
	}
	v, err := r.column(col)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// Next and Scan give raw access to the native cursor.
func (r *QueryResult) Next() bool { return r.rows.Next() }

func (r *QueryResult) Scan(dest ...any) error { return r.rows.Scan(dest...) }

func (r *QueryResult) Err() error { return r.rows.Err() }

func (r *QueryResult) Close() error { return r.rows.Close() }

func (r *QueryResult) materialize() (any, error) {
	switch r.spec.Mode {
	case FetchAssoc:
		row := make(map[string]any)
		if err := r.rows.MapScan(row); err != nil {
			return nil, err
		}
		for k, v := range row {
			row[k] = normalizeValue(v)
		}
		return row, nil

	case FetchNum:
		vals, err := r.rows.SliceScan()
		if err != nil {
			return nil, err
		}
		for i, v := range vals {
			vals[i] = normalizeValue(v)
		}
		return vals, nil

	case FetchColumn:
		return r.column(r.spec.Column)

	case FetchInto:
		if err := r.rows.StructScan(r.spec.Into); err != nil {
			return nil, err
		}
		return r.spec.Into, nil

	case FetchClass:
		obj := r.spec.Class(r.spec.CtorArgs...)
		if obj == nil {
			return nil, fmt.Errorf("fetch mode %s: constructor returned nil", r.spec.Mode)
		}
		if err := r.rows.StructScan(obj); err != nil {
			return nil, err
		}
		return obj, nil

	default:
		return nil, &UnsupportedOperationError{Op: "fetch mode " + r.spec.Mode.String()}
	}
}

func (r *QueryResult) column(col int) (any, error) {
	vals, err := r.rows.SliceScan()
	if err != nil {
		return nil, err
	}
	if col < 0 || col >= len(vals) {
		return nil, fmt.Errorf("column %d out of range: result has %d columns", col, len(vals))
	}
	return normalizeValue(vals[col]), nil
}

// normalizeValue turns the []byte text values some drivers return into strings.
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
