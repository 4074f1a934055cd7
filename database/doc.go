/*
Package database connects to SQL databases through a DSN-addressed configuration
and exposes a small, driver-neutral surface: connections, prepared statements and
forward-only query results.

# Configuration

A Configuration names a connection and carries its DSN. Everything else is
optional and reports whether it was set:

	cfg := database.NewConfiguration("reporting", "pgsql:host=db;dbname=reports").
		WithUsername("report").
		WithPassword(secret).
		WithDriverOptions(database.DriverOptions{"connect_timeout": "5s"}).
		WithInitialQuery("SET search_path TO reporting")

The DSN prefix picks the driver: mysql or mariadb, pgsql, postgres or pgx, and
sqlite or sqlite3. The body after the colon is either the driver's native DSN or
a key=value list separated by semicolons.

# Connections

DriverConnection opens its native handle lazily. Every data operation connects on
demand except LastInsertID, which fails with ErrNotConnected instead:

	conn, err := database.NewDriverConnection(cfg, nil)
	if err != nil {
		return err
	}
	defer conn.Disconnect()

	res, err := conn.Query(ctx, "SELECT id, name FROM users", database.DriverOptions{
		database.OptionFetchMode: database.FetchColumn,
		database.OptionColNo:     1,
	})

Fetch options are validated before anything reaches the database. A mode that
needs a companion option (colNo, object, classname) fails with an
*IllegalArgumentError when it is missing.

# Errors

Native failures are wrapped in *DatabaseError. The error keeps the driver message,
unwraps to the driver error and matches one of the classified kinds:

	if errors.Is(err, database.ErrDuplicateKey) {
		// handle conflict
	}

Category and IsRetryable group kinds for callers that only need a coarse decision.

# Scoped use

WithConnection connects, runs a function and always disconnects. Database wraps a
connection with FetchAll, FetchRow, FetchValue, Execute and Transaction helpers.

A connection is not safe for concurrent use; open one per goroutine.
*/
package database
