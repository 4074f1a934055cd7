package database

import (
	"context"
	"fmt"
)

// Statement is a prepared statement obtained from Connection.Prepare. Errors from
// the native statement are returned as the driver reports them.
type Statement struct {
	native NativeStatement
	query  string
	spec   FetchSpec
	bound  map[int]any
}

func newStatement(native NativeStatement, query string, spec FetchSpec) *Statement {
	return &Statement{
		native: native,
		query:  query,
		spec:   spec,
		bound:  make(map[int]any),
	}
}

// QueryString returns the SQL the statement was prepared from.
func (s *Statement) QueryString() string { return s.query }

// BindValue binds value to the 1-based positional parameter pos. Bound values are
// used by Exec and Query calls that pass no arguments.
func (s *Statement) BindValue(pos int, value any) error {
	if pos < 1 {
		return fmt.Errorf("%w: parameter position %d must be >= 1", ErrIllegalArgument, pos)
	}
	s.bound[pos] = value
	return nil
}

// SetFetchMode sets the fetch spec handed to results of Query.
func (s *Statement) SetFetchMode(spec FetchSpec) { s.spec = spec }

// Exec runs the statement and returns the number of affected rows.
func (s *Statement) Exec(ctx context.Context, args ...any) (int64, error) {
	args, err := s.arguments(args)
	if err != nil {
		return 0, err
	}
	res, err := s.native.Exec(ctx, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Query runs the statement and returns its rows in the statement's fetch mode.
func (s *Statement) Query(ctx context.Context, args ...any) (*QueryResult, error) {
	args, err := s.arguments(args)
	if err != nil {
		return nil, err
	}
	rows, err := s.native.Query(ctx, args...)
	if err != nil {
		return nil, err
	}
	return newQueryResult(rows, s.spec), nil
}

// Close releases the native statement.
func (s *Statement) Close() error { return s.native.Close() }

func (s *Statement) arguments(args []any) ([]any, error) {
	if len(args) > 0 || len(s.bound) == 0 {
		return args, nil
	}
	out := make([]any, len(s.bound))
	for i := range out {
		v, ok := s.bound[i+1]
		if !ok {
			return nil, fmt.Errorf("%w: parameter %d is not bound", ErrIllegalArgument, i+1)
		}
		out[i] = v
	}
	return out, nil
}
