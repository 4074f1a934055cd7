package database

import (
	"context"
	"time"

	"github.com/aalemi-dev/sqlconn/observability"
	"github.com/aalemi-dev/sqlconn/tracer"
)

var _ Connection = (*DriverConnection)(nil)

// DriverConnection is the Connection implementation backed by a native Handle.
//
// The handle is opened lazily through a Connector and every native failure is
// returned as a *DatabaseError carrying the driver message and cause. Fetch option
// mistakes surface as *IllegalArgumentError, missing optional capabilities as
// *UnsupportedOperationError.
type DriverConnection struct {
	cfg       *Configuration
	connector Connector
	handle    Handle

	logger   Logger
	observer observability.Observer
	tracer   tracer.Tracer
	hooks    Hooks
}

// Hooks are invoked after a connection opens or drops its native handle. Either
// field may be nil.
type Hooks struct {
	OnConnect    func(*DriverConnection)
	OnDisconnect func(*DriverConnection)
}

// NewDriverConnection creates a disconnected connection for cfg.
//
// A nil connector selects SQLConnector; in that case the driver named by the DSN
// prefix must be registered with database/sql, otherwise ErrExtensionUnavailable is
// returned. Custom connectors decide for themselves what a DSN means.
//
// Example:
//
//	cfg := database.NewConfiguration("main", "sqlite:/var/lib/app.db").
//		WithInitialQuery("PRAGMA foreign_keys = ON")
//	conn, err := database.NewDriverConnection(cfg, nil)
//	if err != nil {
//		return err
//	}
//	defer conn.Disconnect()
func NewDriverConnection(cfg *Configuration, connector Connector) (*DriverConnection, error) {
	prefix, _, err := splitDSN(cfg.DSN())
	if err != nil {
		return nil, err
	}
	if connector == nil {
		if _, err := resolveDialect(prefix); err != nil {
			return nil, err
		}
		connector = SQLConnector{}
	}
	return &DriverConnection{
		cfg:       cfg,
		connector: connector,
	}, nil
}

// WithLogger attaches a logger and returns the connection for chaining.
func (c *DriverConnection) WithLogger(logger Logger) *DriverConnection {
	c.logger = logger
	return c
}

// WithObserver attaches an observer that is notified after every operation.
func (c *DriverConnection) WithObserver(observer observability.Observer) *DriverConnection {
	c.observer = observer
	return c
}

// WithTracer attaches a tracer; every operation then runs inside a span.
func (c *DriverConnection) WithTracer(t tracer.Tracer) *DriverConnection {
	c.tracer = t
	return c
}

// WithHooks attaches lifecycle hooks and returns the connection for chaining.
func (c *DriverConnection) WithHooks(hooks Hooks) *DriverConnection {
	c.hooks = hooks
	return c
}

// Configuration returns the configuration the connection was built from.
func (c *DriverConnection) Configuration() *Configuration { return c.cfg }

// Connect opens the native handle. It returns immediately when already connected.
// After the connector succeeds, the configured initial query runs once; if it fails
// the handle is closed again and the connection stays disconnected.
func (c *DriverConnection) Connect(ctx context.Context) error {
	return c.ensureConnected(ctx)
}

func (c *DriverConnection) connect(ctx context.Context) (err error) {
	ctx, done := c.track(ctx, "connect", "")
	defer func() { done(err, 0) }()

	h, err := c.connector.Connect(ctx, c.cfg)
	if err != nil {
		return wrapError("connect", err)
	}
	if query, ok := c.cfg.InitialQuery(); ok {
		if _, err := h.Exec(ctx, query); err != nil {
			_ = h.Close()
			return wrapError("connect", err)
		}
	}
	c.handle = h
	c.logInfo(ctx, "Database connection opened", map[string]interface{}{
		"config_id": c.cfg.ID(),
		"driver":    h.DriverName(),
	})
	if c.hooks.OnConnect != nil {
		c.hooks.OnConnect(c)
	}
	return nil
}

func (c *DriverConnection) ensureConnected(ctx context.Context) error {
	if c.handle != nil {
		return nil
	}
	return c.connect(ctx)
}

// Disconnect drops the native handle, rolling back any open transaction. The
// connection is disconnected afterwards even when closing the handle fails.
func (c *DriverConnection) Disconnect() error {
	if c.handle == nil {
		return nil
	}
	_, done := c.track(context.Background(), "disconnect", "")
	h := c.handle
	err := wrapError("disconnect", h.Close())
	done(err, 0)
	c.handle = nil
	c.logInfo(context.Background(), "Database connection closed", map[string]interface{}{
		"config_id": c.cfg.ID(),
	})
	if c.hooks.OnDisconnect != nil {
		c.hooks.OnDisconnect(c)
	}
	return err
}

// IsConnected reports whether a native handle is open.
func (c *DriverConnection) IsConnected() bool { return c.handle != nil }

// Ping verifies the connection, opening it first when needed.
func (c *DriverConnection) Ping(ctx context.Context) (err error) {
	ctx, done := c.track(ctx, "ping", "")
	defer func() { done(err, 0) }()
	if err = c.ensureConnected(ctx); err != nil {
		return err
	}
	return wrapError("ping", c.handle.Ping(ctx))
}

// BeginTransaction starts a transaction, opening the connection first when needed.
func (c *DriverConnection) BeginTransaction(ctx context.Context) (err error) {
	ctx, done := c.track(ctx, "begin", "")
	defer func() { done(err, 0) }()
	if err = c.ensureConnected(ctx); err != nil {
		return err
	}
	return wrapError("begin", c.handle.Begin(ctx))
}

// Commit commits the open transaction or returns ErrNoActiveTransaction.
func (c *DriverConnection) Commit(ctx context.Context) (err error) {
	ctx, done := c.track(ctx, "commit", "")
	defer func() { done(err, 0) }()
	if err = c.ensureConnected(ctx); err != nil {
		return err
	}
	return wrapError("commit", c.handle.Commit())
}

// Rollback rolls back the open transaction or returns ErrNoActiveTransaction.
func (c *DriverConnection) Rollback(ctx context.Context) (err error) {
	ctx, done := c.track(ctx, "rollback", "")
	defer func() { done(err, 0) }()
	if err = c.ensureConnected(ctx); err != nil {
		return err
	}
	return wrapError("rollback", c.handle.Rollback())
}

// InTransaction reports whether a transaction is open. A disconnected connection is
// never in a transaction.
func (c *DriverConnection) InTransaction() bool {
	return c.handle != nil && c.handle.InTransaction()
}

// Prepare prepares query on the native handle. Fetch options are validated exactly
// as for Query and become the default fetch mode of the statement's results.
func (c *DriverConnection) Prepare(ctx context.Context, query string, opts DriverOptions) (stmt *Statement, err error) {
	ctx, done := c.track(ctx, "prepare", query)
	defer func() { done(err, 0) }()

	spec, err := fetchSpecFromOptions(opts)
	if err != nil {
		return nil, err
	}
	if err = c.ensureConnected(ctx); err != nil {
		return nil, err
	}
	native, err := c.handle.Prepare(ctx, query)
	if err != nil {
		return nil, wrapError("prepare", err)
	}
	return newStatement(native, query, spec), nil
}

// Query runs query and returns its rows.
//
// The fetchMode option selects how rows are materialized. FetchColumn needs colNo,
// FetchInto needs object and FetchClass needs classname (ctorargs defaults to no
// arguments); a missing companion option is an *IllegalArgumentError and nothing is
// sent to the database. Any other mode is used as given.
func (c *DriverConnection) Query(ctx context.Context, query string, opts DriverOptions) (res *QueryResult, err error) {
	ctx, done := c.track(ctx, "query", query)
	defer func() { done(err, 0) }()

	spec, err := fetchSpecFromOptions(opts)
	if err != nil {
		return nil, err
	}
	if err = c.ensureConnected(ctx); err != nil {
		return nil, err
	}
	rows, err := c.handle.Query(ctx, query)
	if err != nil {
		return nil, wrapError("query", err)
	}
	return newQueryResult(rows, spec), nil
}

// Exec runs a statement that returns no rows and reports the affected row count.
func (c *DriverConnection) Exec(ctx context.Context, query string) (affected int64, err error) {
	ctx, done := c.track(ctx, "exec", query)
	defer func() { done(err, affected) }()

	if err = c.ensureConnected(ctx); err != nil {
		return 0, err
	}
	res, err := c.handle.Exec(ctx, query)
	if err != nil {
		return 0, wrapError("exec", err)
	}
	affected, err = res.RowsAffected()
	if err != nil {
		return 0, wrapError("exec", err)
	}
	return affected, nil
}

// LastInsertID returns the last generated id of this session. Unlike the other data
// operations it does not connect: on a disconnected connection it fails with a
// *DatabaseError wrapping ErrNotConnected.
func (c *DriverConnection) LastInsertID(ctx context.Context, name string) (id int64, err error) {
	ctx, done := c.track(ctx, "lastInsertId", "")
	defer func() { done(err, 0) }()

	if c.handle == nil {
		return 0, &DatabaseError{
			Op:      "lastInsertId",
			Message: ErrNotConnected.Error(),
			Err:     ErrNotConnected,
		}
	}
	id, err = c.handle.LastInsertID(ctx, name)
	if err != nil {
		return 0, wrapError("lastInsertId", err)
	}
	return id, nil
}

// Quote quotes value as a string literal of the connection's dialect.
func (c *DriverConnection) Quote(ctx context.Context, value string) (quoted string, err error) {
	ctx, done := c.track(ctx, "quote", "")
	defer func() { done(err, 0) }()

	if err = c.ensureConnected(ctx); err != nil {
		return "", err
	}
	q, ok := c.handle.(Quoter)
	if !ok {
		return "", &UnsupportedOperationError{Op: "quote", Driver: c.handle.DriverName()}
	}
	quoted, err = q.Quote(value)
	return quoted, wrapError("quote", err)
}

// ServerVersion asks the server for its version string.
func (c *DriverConnection) ServerVersion(ctx context.Context) (version string, err error) {
	ctx, done := c.track(ctx, "serverVersion", "")
	defer func() { done(err, 0) }()

	if err = c.ensureConnected(ctx); err != nil {
		return "", err
	}
	v, ok := c.handle.(ServerVersioner)
	if !ok {
		return "", &UnsupportedOperationError{Op: "serverVersion", Driver: c.handle.DriverName()}
	}
	version, err = v.ServerVersion(ctx)
	return version, wrapError("serverVersion", err)
}

// DSN returns the configured data source name.
func (c *DriverConnection) DSN() string { return c.cfg.DSN() }

// Details returns the configuration details. It never touches connection state.
func (c *DriverConnection) Details() string { return c.cfg.Details() }

// Property returns the configuration property name, or def when it is unset. It
// never touches connection state.
func (c *DriverConnection) Property(name, def string) string { return c.cfg.Property(name, def) }

// track starts a span for op and returns the function that closes it, notifies the
// observer and logs the outcome.
func (c *DriverConnection) track(ctx context.Context, op, query string) (context.Context, func(err error, size int64)) {
	start := time.Now()

	var span tracer.Span
	if c.tracer != nil {
		ctx, span = c.tracer.StartSpan(ctx, "sqlconn."+op)
		attrs := map[string]interface{}{
			"db.config_id": c.cfg.ID(),
		}
		if query != "" {
			attrs["db.statement"] = query
		}
		span.SetAttributes(attrs)
	}

	return ctx, func(err error, size int64) {
		duration := time.Since(start)
		if span != nil {
			if err != nil {
				span.RecordError(err)
			}
			span.End()
		}

		var metadata map[string]interface{}
		if query != "" {
			metadata = map[string]interface{}{"sql": query}
		}
		c.observeOperation(op, duration, err, size, metadata)

		fields := map[string]interface{}{
			"config_id": c.cfg.ID(),
			"operation": op,
			"duration":  duration.String(),
		}
		if err != nil {
			c.logError(ctx, "Database operation failed", err, fields)
			return
		}
		c.logDebug(ctx, "Database operation completed", fields)
	}
}

func (c *DriverConnection) logDebug(ctx context.Context, msg string, fields map[string]interface{}) {
	if c.logger != nil {
		c.logger.DebugWithContext(ctx, msg, nil, fields)
	}
}

func (c *DriverConnection) logInfo(ctx context.Context, msg string, fields map[string]interface{}) {
	if c.logger != nil {
		c.logger.InfoWithContext(ctx, msg, nil, fields)
	}
}

func (c *DriverConnection) logError(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if c.logger != nil {
		c.logger.ErrorWithContext(ctx, msg, err, fields)
	}
}
