package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
)

// session is what a pinned connection and an open transaction have in common.
type session interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error)
	QueryRowxContext(ctx context.Context, query string, args ...any) *sqlx.Row
	PreparexContext(ctx context.Context, query string) (*sqlx.Stmt, error)
}

var (
	_ session = (*sqlx.Conn)(nil)
	_ session = (*sqlx.Tx)(nil)

	_ Handle          = (*SQLHandle)(nil)
	_ Quoter          = (*SQLHandle)(nil)
	_ ServerVersioner = (*SQLHandle)(nil)
	_ Rows            = (*sqlx.Rows)(nil)
	_ Rows            = (*cursor)(nil)
)

// SQLHandle is the database/sql backed Handle. It pins exactly one driver connection
// so session state (SET statements from the initial query, LAST_INSERT_ID, open
// transactions) stays on the same server session for the handle's lifetime.
type SQLHandle struct {
	dialect *dialect
	db      *sqlx.DB
	conn    *sqlx.Conn
	tx      *sqlx.Tx
	cleanup func()

	// lastResult backs LastInsertID for drivers without a dialect query.
	lastResult sql.Result

	mu      sync.Mutex
	cursors map[*cursor]struct{}
}

// SQLConnector is the default Connector. It opens a SQLHandle for the driver named
// in the configuration DSN.
type SQLConnector struct{}

func (SQLConnector) Connect(ctx context.Context, cfg *Configuration) (Handle, error) {
	h, err := OpenSQLHandle(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// OpenSQLHandle opens and verifies a native connection for cfg.
func OpenSQLHandle(ctx context.Context, cfg *Configuration) (*SQLHandle, error) {
	prefix, body, err := splitDSN(cfg.DSN())
	if err != nil {
		return nil, err
	}
	d, err := resolveDialect(prefix)
	if err != nil {
		return nil, err
	}
	timeout, err := connectTimeout(cfg)
	if err != nil {
		return nil, err
	}

	dsn, cleanup, err := d.build(cfg, body)
	if err != nil {
		return nil, err
	}
	release := func() {
		if cleanup != nil {
			cleanup()
		}
	}

	db, err := sqlx.Open(d.driver, dsn)
	if err != nil {
		release()
		return nil, fmt.Errorf("opening %s database: %w", d.driver, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := db.Connx(pingCtx)
	if err != nil {
		_ = db.Close()
		release()
		return nil, fmt.Errorf("acquiring %s connection: %w", d.driver, err)
	}
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		_ = db.Close()
		release()
		return nil, fmt.Errorf("verifying %s connection: %w", d.driver, err)
	}

	return &SQLHandle{
		dialect: d,
		db:      db,
		conn:    conn,
		cleanup: cleanup,
	}, nil
}

func (h *SQLHandle) session() session {
	if h.tx != nil {
		return h.tx
	}
	return h.conn
}

func (h *SQLHandle) Prepare(ctx context.Context, query string) (NativeStatement, error) {
	stmt, err := h.session().PreparexContext(ctx, query)
	if err != nil {
		return nil, err
	}
	return &sqlStatement{stmt: stmt, handle: h}, nil
}

func (h *SQLHandle) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := h.session().QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return h.track(rows), nil
}

func (h *SQLHandle) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := h.session().ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	h.lastResult = res
	return res, nil
}

func (h *SQLHandle) Begin(ctx context.Context) error {
	if h.tx != nil {
		return ErrTransactionActive
	}
	tx, err := h.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	h.tx = tx
	return nil
}

func (h *SQLHandle) Commit() error {
	if h.tx == nil {
		return ErrNoActiveTransaction
	}
	tx := h.tx
	h.tx = nil
	return tx.Commit()
}

func (h *SQLHandle) Rollback() error {
	if h.tx == nil {
		return ErrNoActiveTransaction
	}
	tx := h.tx
	h.tx = nil
	return tx.Rollback()
}

func (h *SQLHandle) InTransaction() bool { return h.tx != nil }

func (h *SQLHandle) LastInsertID(ctx context.Context, name string) (int64, error) {
	if h.dialect.lastInsertID == nil {
		if h.lastResult == nil {
			return 0, &UnsupportedOperationError{Op: "lastInsertId", Driver: h.dialect.driver}
		}
		return h.lastResult.LastInsertId()
	}
	query, args := h.dialect.lastInsertID(name)
	var id int64
	if err := h.session().QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (h *SQLHandle) Quote(value string) (string, error) {
	return h.dialect.quote(value)
}

func (h *SQLHandle) ServerVersion(ctx context.Context) (string, error) {
	if h.dialect.serverVersion == "" {
		return "", &UnsupportedOperationError{Op: "serverVersion", Driver: h.dialect.driver}
	}
	var version string
	if err := h.session().QueryRowxContext(ctx, h.dialect.serverVersion).Scan(&version); err != nil {
		return "", err
	}
	return version, nil
}

func (h *SQLHandle) Ping(ctx context.Context) error {
	return h.conn.PingContext(ctx)
}

func (h *SQLHandle) DriverName() string { return h.dialect.driver }

// Close releases the pinned connection and its pool. Cursors still open are closed
// and an open transaction is rolled back first; database/sql blocks both the rollback
// and the connection close until every cursor on them is closed.
func (h *SQLHandle) Close() error {
	var errs []error
	if err := h.closeCursors(); err != nil {
		errs = append(errs, fmt.Errorf("closing open cursors: %w", err))
	}
	if h.tx != nil {
		if err := h.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			errs = append(errs, fmt.Errorf("rolling back open transaction: %w", err))
		}
		h.tx = nil
	}
	if err := h.conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		errs = append(errs, fmt.Errorf("closing connection: %w", err))
	}
	if err := h.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing database: %w", err))
	}
	if h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
	return errors.Join(errs...)
}

func (h *SQLHandle) track(rows *sqlx.Rows) *cursor {
	c := &cursor{Rows: rows, handle: h}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cursors == nil {
		h.cursors = make(map[*cursor]struct{})
	}
	h.cursors[c] = struct{}{}
	return c
}

func (h *SQLHandle) untrack(c *cursor) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.cursors, c)
}

func (h *SQLHandle) closeCursors() error {
	h.mu.Lock()
	open := h.cursors
	h.cursors = nil
	h.mu.Unlock()

	var errs []error
	for c := range open {
		if err := c.Rows.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// cursor is a *sqlx.Rows the handle keeps track of until it is closed.
type cursor struct {
	*sqlx.Rows
	handle *SQLHandle
}

func (c *cursor) Close() error {
	c.handle.untrack(c)
	return c.Rows.Close()
}

// sqlStatement adapts *sqlx.Stmt to NativeStatement.
type sqlStatement struct {
	stmt   *sqlx.Stmt
	handle *SQLHandle
}

func (s *sqlStatement) Exec(ctx context.Context, args ...any) (sql.Result, error) {
	res, err := s.stmt.ExecContext(ctx, args...)
	if err != nil {
		return nil, err
	}
	s.handle.lastResult = res
	return res, nil
}

func (s *sqlStatement) Query(ctx context.Context, args ...any) (Rows, error) {
	rows, err := s.stmt.QueryxContext(ctx, args...)
	if err != nil {
		return nil, err
	}
	return s.handle.track(rows), nil
}

func (s *sqlStatement) Close() error { return s.stmt.Close() }
