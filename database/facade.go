package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Database is a convenience layer over a Connection for the common
// fetch-everything and execute-with-arguments cases. It adds no state of its own.
type Database struct {
	conn Connection
}

// NewDatabase wraps conn.
func NewDatabase(conn Connection) *Database {
	return &Database{conn: conn}
}

// Connection returns the wrapped connection.
func (d *Database) Connection() Connection { return d.conn }

// Execute prepares query, runs it with args and returns the affected row count.
func (d *Database) Execute(ctx context.Context, query string, args ...any) (int64, error) {
	stmt, err := d.conn.Prepare(ctx, query, nil)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	n, err := stmt.Exec(ctx, args...)
	if err != nil {
		return 0, wrapError("execute", err)
	}
	return n, nil
}

// FetchAll returns every row of query as a column-name keyed map.
func (d *Database) FetchAll(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	res, err := d.query(ctx, query, args)
	if err != nil {
		return nil, err
	}
	rows, err := res.FetchAll()
	if err != nil {
		return nil, wrapError("fetchAll", err)
	}
	out := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.(map[string]any))
	}
	return out, nil
}

// FetchRow returns the first row of query. It returns sql.ErrNoRows when the query
// yields nothing.
func (d *Database) FetchRow(ctx context.Context, query string, args ...any) (map[string]any, error) {
	res, err := d.query(ctx, query, args)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	row, ok, err := res.Fetch()
	if err != nil {
		return nil, wrapError("fetchRow", err)
	}
	if !ok {
		return nil, sql.ErrNoRows
	}
	return row.(map[string]any), nil
}

// FetchValue returns the first column of the first row of query, or sql.ErrNoRows.
func (d *Database) FetchValue(ctx context.Context, query string, args ...any) (any, error) {
	res, err := d.query(ctx, query, args)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	v, ok, err := res.FetchColumn(0)
	if err != nil {
		return nil, wrapError("fetchValue", err)
	}
	if !ok {
		return nil, sql.ErrNoRows
	}
	return v, nil
}

// Transaction runs fn inside a transaction. The transaction is committed when fn
// returns nil and rolled back when it returns an error or panics.
//
// Example usage:
//
//	err := db.Transaction(ctx, func(tx *database.Database) error {
//		if _, err := tx.Execute(ctx, "UPDATE accounts SET balance = balance - ? WHERE id = ?", 10, 1); err != nil {
//			return err
//		}
//		_, err := tx.Execute(ctx, "UPDATE accounts SET balance = balance + ? WHERE id = ?", 10, 2)
//		return err
//	})
func (d *Database) Transaction(ctx context.Context, fn func(*Database) error) (err error) {
	if err := d.conn.BeginTransaction(ctx); err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			_ = d.conn.Rollback(ctx)
			panic(r)
		}
	}()

	if err := fn(d); err != nil {
		if rbErr := d.conn.Rollback(ctx); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	return d.conn.Commit(ctx)
}

func (d *Database) query(ctx context.Context, query string, args []any) (*QueryResult, error) {
	if len(args) == 0 {
		return d.conn.Query(ctx, query, nil)
	}
	stmt, err := d.conn.Prepare(ctx, query, nil)
	if err != nil {
		return nil, err
	}
	res, err := stmt.Query(ctx, args...)
	if err != nil {
		_ = stmt.Close()
		return nil, wrapError("query", err)
	}
	res.rows = stmtRows{Rows: res.rows, stmt: stmt}
	return res, nil
}

// stmtRows closes the statement that produced the rows together with them.
type stmtRows struct {
	Rows
	stmt *Statement
}

func (r stmtRows) Close() error {
	return errors.Join(r.Rows.Close(), r.stmt.Close())
}
