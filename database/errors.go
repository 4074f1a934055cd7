package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3" // also registers the sqlite3 driver
)

// Lifecycle and contract errors.
var (
	// ErrExtensionUnavailable is returned when no database/sql driver is registered
	// for the driver named in a DSN. It is not recoverable at runtime.
	ErrExtensionUnavailable = errors.New("database driver extension unavailable")

	// ErrNotConnected is returned by operations that require an open handle and do
	// not connect on their own.
	ErrNotConnected = errors.New("connection is not open")

	// ErrIllegalArgument is matched by every *IllegalArgumentError.
	ErrIllegalArgument = errors.New("illegal argument")

	// ErrUnsupportedOperation is matched by every *UnsupportedOperationError.
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrNoActiveTransaction is returned by the SQL handle when commit or rollback is
	// requested outside a transaction.
	ErrNoActiveTransaction = errors.New("no active transaction")

	// ErrTransactionActive is returned by the SQL handle when a transaction is
	// started while another one is still open.
	ErrTransactionActive = errors.New("transaction already active")
)

// Error kinds a native failure can be classified into. A *DatabaseError matches its
// kind with errors.Is.
var (
	// ErrDuplicateKey is returned when an insert or update violates a unique constraint
	ErrDuplicateKey = errors.New("duplicate key violation")

	// ErrForeignKey is returned when an operation violates a foreign key constraint
	ErrForeignKey = errors.New("foreign key violation")

	// ErrNotNullViolation is returned when trying to insert null into a not-null column
	ErrNotNullViolation = errors.New("not null constraint violation")

	// ErrCheckConstraintViolation is returned when a check constraint is violated
	ErrCheckConstraintViolation = errors.New("check constraint violation")

	ErrTableNotFound    = errors.New("table not found")
	ErrColumnNotFound   = errors.New("column not found")
	ErrDatabaseNotFound = errors.New("database not found")

	// ErrInvalidQuery is returned when the SQL text is malformed
	ErrInvalidQuery = errors.New("invalid query")

	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidPassword  = errors.New("invalid password")

	ErrConnectionFailed   = errors.New("database connection failed")
	ErrConnectionLost     = errors.New("connection lost")
	ErrTooManyConnections = errors.New("too many connections")

	ErrDeadlock             = errors.New("deadlock detected")
	ErrLockTimeout          = errors.New("lock acquisition timeout")
	ErrSerializationFailure = errors.New("serialization failure")

	ErrDataTooLong     = errors.New("data too long for column")
	ErrNumericOverflow = errors.New("numeric value overflow")
	ErrDivisionByZero  = errors.New("division by zero")
	ErrInvalidDataType = errors.New("invalid data type")

	ErrDiskFull    = errors.New("disk full")
	ErrSystemError = errors.New("system error")
)

// DatabaseError is the single error type every native driver failure is translated
// into. Message carries the driver's text, Err the original cause.
type DatabaseError struct {
	// Op is the connection operation that failed ("connect", "query", ...).
	Op string

	// Message is the native error message.
	Message string

	// Kind is the classified sentinel, nil when the failure is not recognized.
	Kind error

	// Err is the underlying cause.
	Err error
}

func (e *DatabaseError) Error() string {
	if e.Op == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *DatabaseError) Unwrap() error { return e.Err }

// Is reports whether target is the classified kind of this failure.
func (e *DatabaseError) Is(target error) bool {
	return e.Kind != nil && e.Kind == target
}

// IllegalArgumentError reports a driver option combination that is incomplete or
// mistyped for the requested fetch mode.
type IllegalArgumentError struct {
	Mode   FetchMode
	Option string
	Reason string
}

func (e *IllegalArgumentError) Error() string {
	return fmt.Sprintf("fetch mode %s: option %q %s", e.Mode, e.Option, e.Reason)
}

func (e *IllegalArgumentError) Is(target error) bool { return target == ErrIllegalArgument }

// UnsupportedOperationError reports an operation the native handle does not offer.
type UnsupportedOperationError struct {
	Op     string
	Driver string
}

func (e *UnsupportedOperationError) Error() string {
	if e.Driver == "" {
		return fmt.Sprintf("operation %q is not supported", e.Op)
	}
	return fmt.Sprintf("operation %q is not supported by driver %q", e.Op, e.Driver)
}

func (e *UnsupportedOperationError) Is(target error) bool { return target == ErrUnsupportedOperation }

// wrapError translates a native failure into a *DatabaseError. Errors that are
// already part of the taxonomy pass through unchanged.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var dbErr *DatabaseError
	if errors.As(err, &dbErr) {
		return err
	}
	if errors.Is(err, ErrIllegalArgument) || errors.Is(err, ErrUnsupportedOperation) {
		return err
	}
	return &DatabaseError{
		Op:      op,
		Message: err.Error(),
		Kind:    Classify(err),
		Err:     err,
	}
}

// Classify maps a driver error onto one of the package's kind sentinels. It returns
// nil when the error is not recognized.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return classifyMySQL(mysqlErr)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return classifyPostgres(pgErr)
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return classifySQLite(sqliteErr)
	}

	return classifyMessage(strings.ToLower(err.Error()))
}

func classifyMySQL(e *mysql.MySQLError) error {
	switch e.Number {
	case 1062, 1586: // ER_DUP_ENTRY, ER_DUP_ENTRY_WITH_KEY_NAME
		return ErrDuplicateKey
	case 1216, 1217, 1451, 1452: // ER_NO_REFERENCED_ROW*, ER_ROW_IS_REFERENCED*
		return ErrForeignKey
	case 1048, 1364: // ER_BAD_NULL_ERROR, ER_NO_DEFAULT_FOR_FIELD
		return ErrNotNullViolation
	case 3819, 4025: // MySQL 8.0.16+, MariaDB 10.2+
		return ErrCheckConstraintViolation
	case 1051, 1146: // ER_BAD_TABLE_ERROR, ER_NO_SUCH_TABLE
		return ErrTableNotFound
	case 1054: // ER_BAD_FIELD_ERROR
		return ErrColumnNotFound
	case 1049: // ER_BAD_DB_ERROR
		return ErrDatabaseNotFound
	case 1064, 1065, 1149: // ER_PARSE_ERROR, ER_EMPTY_QUERY, ER_SYNTAX_ERROR
		return ErrInvalidQuery
	case 1044, 1142, 1143, 1227:
		return ErrPermissionDenied
	case 1045: // ER_ACCESS_DENIED_ERROR
		return ErrInvalidPassword
	case 1040: // ER_CON_COUNT_ERROR
		return ErrTooManyConnections
	case 2002, 2003: // CR_CONNECTION_ERROR, CR_CONN_HOST_ERROR
		return ErrConnectionFailed
	case 1158, 1159, 1160, 1161, 2006, 2013, 2055:
		return ErrConnectionLost
	case 1213: // ER_LOCK_DEADLOCK
		return ErrDeadlock
	case 1205: // ER_LOCK_WAIT_TIMEOUT
		return ErrLockTimeout
	case 1406: // ER_DATA_TOO_LONG
		return ErrDataTooLong
	case 1264, 1690:
		return ErrNumericOverflow
	case 1365: // ER_DIVISION_BY_ZERO
		return ErrDivisionByZero
	case 1366, 1582:
		return ErrInvalidDataType
	case 1021: // ER_DISK_FULL
		return ErrDiskFull
	default:
		return ErrSystemError
	}
}

func classifyPostgres(e *pgconn.PgError) error {
	switch e.Code {
	case "23505": // unique_violation
		return ErrDuplicateKey
	case "23503": // foreign_key_violation
		return ErrForeignKey
	case "23502": // not_null_violation
		return ErrNotNullViolation
	case "23514": // check_violation
		return ErrCheckConstraintViolation
	case "42P01": // undefined_table
		return ErrTableNotFound
	case "42703": // undefined_column
		return ErrColumnNotFound
	case "3D000": // invalid_catalog_name
		return ErrDatabaseNotFound
	case "42601", "42000": // syntax_error, syntax_error_or_access_rule_violation
		return ErrInvalidQuery
	case "42501": // insufficient_privilege
		return ErrPermissionDenied
	case "28P01", "28000": // invalid_password, invalid_authorization_specification
		return ErrInvalidPassword
	case "53300": // too_many_connections
		return ErrTooManyConnections
	case "08001", "08004": // unable to establish, rejected establishment
		return ErrConnectionFailed
	case "08000", "08003", "08006", "57P01": // connection failures, admin_shutdown
		return ErrConnectionLost
	case "40P01": // deadlock_detected
		return ErrDeadlock
	case "55P03": // lock_not_available
		return ErrLockTimeout
	case "40001": // serialization_failure
		return ErrSerializationFailure
	case "22001": // string_data_right_truncation
		return ErrDataTooLong
	case "22003": // numeric_value_out_of_range
		return ErrNumericOverflow
	case "22012": // division_by_zero
		return ErrDivisionByZero
	case "22P02", "42804": // invalid_text_representation, datatype_mismatch
		return ErrInvalidDataType
	case "53100": // disk_full
		return ErrDiskFull
	default:
		return ErrSystemError
	}
}

func classifySQLite(e sqlite3.Error) error {
	switch e.ExtendedCode {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		return ErrDuplicateKey
	case sqlite3.ErrConstraintForeignKey:
		return ErrForeignKey
	case sqlite3.ErrConstraintNotNull:
		return ErrNotNullViolation
	case sqlite3.ErrConstraintCheck:
		return ErrCheckConstraintViolation
	}

	switch e.Code {
	case sqlite3.ErrBusy:
		return ErrLockTimeout
	case sqlite3.ErrLocked:
		return ErrDeadlock
	case sqlite3.ErrPerm, sqlite3.ErrAuth, sqlite3.ErrReadonly:
		return ErrPermissionDenied
	case sqlite3.ErrCantOpen:
		return ErrConnectionFailed
	case sqlite3.ErrFull:
		return ErrDiskFull
	case sqlite3.ErrTooBig:
		return ErrDataTooLong
	case sqlite3.ErrMismatch:
		return ErrInvalidDataType
	case sqlite3.ErrError:
		// SQLITE_ERROR is generic; the message tells missing tables from syntax errors.
		if kind := classifyMessage(strings.ToLower(e.Error())); kind != nil {
			return kind
		}
		return ErrInvalidQuery
	default:
		return ErrSystemError
	}
}

// classifyMessage is the fallback for drivers that report plain text errors.
func classifyMessage(msg string) error {
	switch {
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "connection timed out"):
		return ErrConnectionFailed
	case strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "server has gone away"),
		strings.Contains(msg, "broken pipe"):
		return ErrConnectionLost
	case strings.Contains(msg, "too many connections"):
		return ErrTooManyConnections
	case strings.Contains(msg, "deadlock"):
		return ErrDeadlock
	case strings.Contains(msg, "lock wait timeout"),
		strings.Contains(msg, "database is locked"):
		return ErrLockTimeout
	case strings.Contains(msg, "duplicate entry"),
		strings.Contains(msg, "duplicate key"),
		strings.Contains(msg, "unique constraint failed"):
		return ErrDuplicateKey
	case strings.Contains(msg, "foreign key constraint"):
		return ErrForeignKey
	case strings.Contains(msg, "cannot be null"),
		strings.Contains(msg, "not null constraint failed"):
		return ErrNotNullViolation
	case strings.Contains(msg, "check constraint"):
		return ErrCheckConstraintViolation
	case strings.Contains(msg, "no such table"),
		strings.Contains(msg, "table") && strings.Contains(msg, "doesn't exist"):
		return ErrTableNotFound
	case strings.Contains(msg, "no such column"),
		strings.Contains(msg, "unknown column"):
		return ErrColumnNotFound
	case strings.Contains(msg, "unknown database"):
		return ErrDatabaseNotFound
	case strings.Contains(msg, "syntax error"):
		return ErrInvalidQuery
	case strings.Contains(msg, "access denied"):
		return ErrPermissionDenied
	case strings.Contains(msg, "division by zero"):
		return ErrDivisionByZero
	case strings.Contains(msg, "data too long"):
		return ErrDataTooLong
	case strings.Contains(msg, "disk full"):
		return ErrDiskFull
	default:
		return nil
	}
}

// ErrorCategory groups error kinds for callers that only need a coarse decision.
type ErrorCategory int

const (
	CategoryUnknown ErrorCategory = iota
	CategoryConnection
	CategoryQuery
	CategoryData
	CategoryConstraint
	CategoryPermission
	CategoryTransaction
	CategoryResource
	CategorySystem
	CategorySchema
	CategoryUsage
)

var categoryNames = [...]string{
	CategoryUnknown:     "unknown",
	CategoryConnection:  "connection",
	CategoryQuery:       "query",
	CategoryData:        "data",
	CategoryConstraint:  "constraint",
	CategoryPermission:  "permission",
	CategoryTransaction: "transaction",
	CategoryResource:    "resource",
	CategorySystem:      "system",
	CategorySchema:      "schema",
	CategoryUsage:       "usage",
}

func (c ErrorCategory) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return categoryNames[CategoryUnknown]
	}
	return categoryNames[c]
}

// Category returns the category of err.
func Category(err error) ErrorCategory {
	switch {
	case err == nil:
		return CategoryUnknown
	case errors.Is(err, ErrConnectionFailed), errors.Is(err, ErrConnectionLost),
		errors.Is(err, ErrTooManyConnections), errors.Is(err, ErrNotConnected):
		return CategoryConnection
	case errors.Is(err, ErrInvalidQuery):
		return CategoryQuery
	case errors.Is(err, ErrDataTooLong), errors.Is(err, ErrNumericOverflow),
		errors.Is(err, ErrDivisionByZero), errors.Is(err, ErrInvalidDataType):
		return CategoryData
	case errors.Is(err, ErrDuplicateKey), errors.Is(err, ErrForeignKey),
		errors.Is(err, ErrNotNullViolation), errors.Is(err, ErrCheckConstraintViolation):
		return CategoryConstraint
	case errors.Is(err, ErrPermissionDenied), errors.Is(err, ErrInvalidPassword):
		return CategoryPermission
	case errors.Is(err, ErrDeadlock), errors.Is(err, ErrSerializationFailure),
		errors.Is(err, ErrNoActiveTransaction), errors.Is(err, ErrTransactionActive):
		return CategoryTransaction
	case errors.Is(err, ErrDiskFull), errors.Is(err, ErrLockTimeout):
		return CategoryResource
	case errors.Is(err, ErrSystemError), errors.Is(err, ErrExtensionUnavailable):
		return CategorySystem
	case errors.Is(err, ErrTableNotFound), errors.Is(err, ErrColumnNotFound),
		errors.Is(err, ErrDatabaseNotFound):
		return CategorySchema
	case errors.Is(err, ErrIllegalArgument), errors.Is(err, ErrUnsupportedOperation):
		return CategoryUsage
	default:
		return CategoryUnknown
	}
}

// IsRetryable reports whether repeating the operation might succeed. Nothing in this
// package retries on its own.
func IsRetryable(err error) bool {
	for _, kind := range []error{
		ErrConnectionFailed,
		ErrConnectionLost,
		ErrTooManyConnections,
		ErrDeadlock,
		ErrLockTimeout,
		ErrSerializationFailure,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
