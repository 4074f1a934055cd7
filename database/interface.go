package database

import "context"

// Connection is the contract every database connection implements.
//
// A connection is either disconnected (no native handle) or connected. Connect and
// every data operation except LastInsertID open the handle on demand; Disconnect
// releases it. A Connection is not safe for concurrent use.
type Connection interface {
	// Lifecycle
	Connect(ctx context.Context) error
	Disconnect() error
	IsConnected() bool
	Ping(ctx context.Context) error

	// Transaction control
	BeginTransaction(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	InTransaction() bool

	// Data access
	Prepare(ctx context.Context, query string, opts DriverOptions) (*Statement, error)
	Query(ctx context.Context, query string, opts DriverOptions) (*QueryResult, error)
	Exec(ctx context.Context, query string) (int64, error)

	// LastInsertID never opens a connection; it fails with ErrNotConnected instead.
	LastInsertID(ctx context.Context, name string) (int64, error)

	// Optional native capabilities; *UnsupportedOperationError when the driver lacks them.
	Quote(ctx context.Context, value string) (string, error)
	ServerVersion(ctx context.Context) (string, error)

	// Configuration passthrough, never touches the connection state.
	DSN() string
	Details() string
	Property(name, def string) string
}
