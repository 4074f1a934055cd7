package database

import (
	"context"
	"database/sql"
)

// Handle is the native connection a Connector opens. Every operation a Connection
// delegates is listed here; optional extras are expressed as the Quoter and
// ServerVersioner interfaces.
type Handle interface {
	Prepare(ctx context.Context, query string) (NativeStatement, error)
	Query(ctx context.Context, query string, args ...any) (Rows, error)
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)

	Begin(ctx context.Context) error
	Commit() error
	Rollback() error
	InTransaction() bool

	// LastInsertID returns the id generated by the last insert on this handle. name
	// selects a sequence on drivers that use them and is ignored elsewhere.
	LastInsertID(ctx context.Context, name string) (int64, error)

	Ping(ctx context.Context) error
	DriverName() string
	Close() error
}

// Quoter is implemented by handles that can quote a string literal for their dialect.
type Quoter interface {
	Quote(value string) (string, error)
}

// ServerVersioner is implemented by handles that can report the server version.
type ServerVersioner interface {
	ServerVersion(ctx context.Context) (string, error)
}

// NativeStatement is a prepared statement owned by a Handle.
type NativeStatement interface {
	Exec(ctx context.Context, args ...any) (sql.Result, error)
	Query(ctx context.Context, args ...any) (Rows, error)
	Close() error
}

// Rows is a native result cursor. *sqlx.Rows satisfies it.
type Rows interface {
	Next() bool
	Columns() ([]string, error)
	Scan(dest ...any) error
	SliceScan() ([]any, error)
	MapScan(dest map[string]any) error
	StructScan(dest any) error
	Err() error
	Close() error
}

// Connector opens native handles for configurations.
type Connector interface {
	Connect(ctx context.Context, cfg *Configuration) (Handle, error)
}

// ConnectorFunc adapts a function to the Connector interface.
type ConnectorFunc func(ctx context.Context, cfg *Configuration) (Handle, error)

func (f ConnectorFunc) Connect(ctx context.Context, cfg *Configuration) (Handle, error) {
	return f(ctx, cfg)
}
