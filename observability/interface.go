// Package observability defines the hook connections report completed operations
// through. Connections work without an observer; metrics, logging or custom
// collectors plug in by implementing Observer.
package observability

import "time"

// Observer is notified once per completed connection operation.
type Observer interface {
	ObserveOperation(ctx OperationContext)
}

// OperationContext describes one completed operation.
type OperationContext struct {
	// Component is the reporting package, "sqlconn" for connections.
	Component string

	// Operation is what was done: "connect", "query", "exec", "prepare", "begin",
	// "commit", "rollback", "lastInsertId", "quote", "serverVersion", "ping".
	Operation string

	// Resource is the configuration id of the connection.
	Resource string

	// SubResource is the database/sql driver name once a handle is open.
	SubResource string

	Duration time.Duration

	// Error is nil for successful operations.
	Error error

	// Size is the number of affected rows for exec, zero otherwise.
	Size int64

	// Metadata carries optional extras such as the SQL text under "sql".
	Metadata map[string]interface{}
}
