package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/aalemi-dev/sqlconn/observability"
)

// fakeRows serves a fixed table.
type fakeRows struct {
	cols   []string
	data   [][]any
	pos    int
	closed bool
	err    error
}

func newFakeRows(cols []string, data ...[]any) *fakeRows {
	return &fakeRows{cols: cols, data: data, pos: -1}
}

func (r *fakeRows) Next() bool {
	if r.closed || r.pos+1 >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Columns() ([]string, error) { return r.cols, nil }

func (r *fakeRows) Scan(dest ...any) error {
	row := r.data[r.pos]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: expected %d destinations, got %d", len(row), len(dest))
	}
	for i, d := range dest {
		p, ok := d.(*any)
		if !ok {
			return fmt.Errorf("scan: unsupported destination %T", d)
		}
		*p = row[i]
	}
	return nil
}

func (r *fakeRows) SliceScan() ([]any, error) {
	out := make([]any, len(r.data[r.pos]))
	copy(out, r.data[r.pos])
	return out, nil
}

func (r *fakeRows) MapScan(dest map[string]any) error {
	for i, c := range r.cols {
		dest[c] = r.data[r.pos][i]
	}
	return nil
}

func (r *fakeRows) StructScan(dest any) error {
	s, ok := dest.(*fakeUser)
	if !ok {
		return fmt.Errorf("structscan: unsupported destination %T", dest)
	}
	row := r.data[r.pos]
	s.ID = row[0].(int64)
	s.Name = row[1].(string)
	return nil
}

func (r *fakeRows) Err() error { return r.err }

func (r *fakeRows) Close() error {
	r.closed = true
	return nil
}

type fakeUser struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
	Tag  string
}

type fakeResult struct {
	lastID   int64
	affected int64
}

func (r fakeResult) LastInsertId() (int64, error) { return r.lastID, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.affected, nil }

// fakeHandle records every call and answers from canned data.
type fakeHandle struct {
	driver   string
	execs    []string
	queries  []string
	execErr  error
	queryErr error
	rows     func() *fakeRows
	lastID   int64
	inTx     bool
	closed   bool
	closeErr error
	stmts    []*fakeStatement
}

func (h *fakeHandle) Prepare(_ context.Context, query string) (NativeStatement, error) {
	if h.queryErr != nil {
		return nil, h.queryErr
	}
	stmt := &fakeStatement{handle: h, query: query}
	h.stmts = append(h.stmts, stmt)
	return stmt, nil
}

func (h *fakeHandle) Query(_ context.Context, query string, _ ...any) (Rows, error) {
	h.queries = append(h.queries, query)
	if h.queryErr != nil {
		return nil, h.queryErr
	}
	if h.rows == nil {
		return newFakeRows([]string{"id"}), nil
	}
	return h.rows(), nil
}

func (h *fakeHandle) Exec(_ context.Context, query string, _ ...any) (sql.Result, error) {
	h.execs = append(h.execs, query)
	if h.execErr != nil {
		return nil, h.execErr
	}
	h.lastID++
	return fakeResult{lastID: h.lastID, affected: 1}, nil
}

func (h *fakeHandle) Begin(context.Context) error {
	if h.inTx {
		return ErrTransactionActive
	}
	h.inTx = true
	return nil
}

func (h *fakeHandle) Commit() error {
	if !h.inTx {
		return ErrNoActiveTransaction
	}
	h.inTx = false
	return nil
}

func (h *fakeHandle) Rollback() error {
	if !h.inTx {
		return ErrNoActiveTransaction
	}
	h.inTx = false
	return nil
}

func (h *fakeHandle) InTransaction() bool { return h.inTx }

func (h *fakeHandle) LastInsertID(context.Context, string) (int64, error) { return h.lastID, nil }

func (h *fakeHandle) Ping(context.Context) error { return nil }

func (h *fakeHandle) DriverName() string {
	if h.driver == "" {
		return "fake"
	}
	return h.driver
}

func (h *fakeHandle) Close() error {
	h.closed = true
	h.inTx = false
	return h.closeErr
}

// quotingHandle adds the optional capabilities.
type quotingHandle struct {
	*fakeHandle
}

func (quotingHandle) Quote(v string) (string, error) { return "<" + v + ">", nil }

func (quotingHandle) ServerVersion(context.Context) (string, error) { return "fake-1.0", nil }

type fakeStatement struct {
	handle *fakeHandle
	query  string
	args   [][]any
	closed bool
}

func (s *fakeStatement) Exec(ctx context.Context, args ...any) (sql.Result, error) {
	s.args = append(s.args, args)
	return s.handle.Exec(ctx, s.query, args...)
}

func (s *fakeStatement) Query(ctx context.Context, args ...any) (Rows, error) {
	s.args = append(s.args, args)
	return s.handle.Query(ctx, s.query, args...)
}

func (s *fakeStatement) Close() error {
	s.closed = true
	return nil
}

// fakeConnector hands out a fresh handle per Connect and counts the calls.
type fakeConnector struct {
	newHandle func() Handle
	err       error
	connects  int
	handles   []Handle
}

func (c *fakeConnector) Connect(context.Context, *Configuration) (Handle, error) {
	c.connects++
	if c.err != nil {
		return nil, c.err
	}
	var h Handle
	if c.newHandle != nil {
		h = c.newHandle()
	} else {
		h = &fakeHandle{}
	}
	c.handles = append(c.handles, h)
	return h, nil
}

func (c *fakeConnector) last() *fakeHandle {
	switch h := c.handles[len(c.handles)-1].(type) {
	case *fakeHandle:
		return h
	case quotingHandle:
		return h.fakeHandle
	default:
		panic("unexpected handle type")
	}
}

func newFakeConnection(cfg *Configuration, connector *fakeConnector) *DriverConnection {
	conn, err := NewDriverConnection(cfg, connector)
	if err != nil {
		panic(err)
	}
	return conn
}

type recordingObserver struct {
	mu  sync.Mutex
	ops []observability.OperationContext
}

func (o *recordingObserver) ObserveOperation(ctx observability.OperationContext) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ops = append(o.ops, ctx)
}

func (o *recordingObserver) operations() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, len(o.ops))
	for i, op := range o.ops {
		out[i] = op.Operation
	}
	return out
}

var errNative = errors.New("native failure")

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
