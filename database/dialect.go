package database

import (
	"database/sql"
	"errors"
	"fmt"
	"net"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

// OptionConnectTimeout is the reserved connection driver option bounding the
// verification ping after a handle is opened. It accepts a time.Duration, a
// duration string ("5s") or a number of seconds.
const OptionConnectTimeout = "connect_timeout"

const defaultConnectTimeout = 10 * time.Second

// ErrInvalidDSN is returned when a DSN carries no driver prefix.
var ErrInvalidDSN = errors.New("invalid DSN")

// dialect holds what differs between the supported drivers.
type dialect struct {
	// driver is the database/sql driver name.
	driver string

	// build turns the DSN body into a driver DSN. cleanup, when non-nil, must run
	// once the handle is closed.
	build func(cfg *Configuration, body string) (dsn string, cleanup func(), err error)

	quote func(value string) (string, error)

	// lastInsertID returns the query reading the last generated id, "" when the
	// dialect has none.
	lastInsertID func(name string) (string, []any)

	serverVersion string
}

var dialects = map[string]*dialect{
	"mysql": {
		driver:        "mysql",
		build:         buildMySQLDSN,
		quote:         quoteMySQL,
		lastInsertID:  func(string) (string, []any) { return "SELECT LAST_INSERT_ID()", nil },
		serverVersion: "SELECT VERSION()",
	},
	"pgx": {
		driver:        "pgx",
		build:         buildPostgresDSN,
		quote:         quoteStandard,
		lastInsertID:  postgresLastInsertID,
		serverVersion: "SHOW server_version",
	},
	"sqlite3": {
		driver:        "sqlite3",
		build:         buildSQLiteDSN,
		quote:         quoteStandard,
		lastInsertID:  func(string) (string, []any) { return "SELECT last_insert_rowid()", nil },
		serverVersion: "SELECT sqlite_version()",
	},
}

var driverAliases = map[string]string{
	"mysql":    "mysql",
	"mariadb":  "mysql",
	"pgsql":    "pgx",
	"postgres": "pgx",
	"pgx":      "pgx",
	"sqlite":   "sqlite3",
	"sqlite3":  "sqlite3",
}

// splitDSN separates "<driver>:<body>".
func splitDSN(dsn string) (prefix, body string, err error) {
	prefix, body, ok := strings.Cut(dsn, ":")
	if !ok || prefix == "" {
		return "", "", fmt.Errorf("%w %q: missing driver prefix", ErrInvalidDSN, dsn)
	}
	return strings.ToLower(prefix), body, nil
}

// resolveDialect finds the dialect for a DSN prefix. Prefixes that are not one of the
// known aliases are accepted when a database/sql driver is registered under that
// exact name; such drivers get a pass-through dialect.
func resolveDialect(prefix string) (*dialect, error) {
	name, known := driverAliases[prefix]
	if !known {
		name = prefix
	}
	if !slices.Contains(sql.Drivers(), name) {
		return nil, fmt.Errorf("%w: no driver registered for %q", ErrExtensionUnavailable, prefix)
	}
	if d, ok := dialects[name]; ok {
		return d, nil
	}
	return &dialect{
		driver: name,
		build: func(_ *Configuration, body string) (string, func(), error) {
			return body, nil, nil
		},
		quote: quoteStandard,
	}, nil
}

// connectionParams returns the configuration driver options without the reserved
// ones, stringified and in a stable order.
func connectionParams(cfg *Configuration) ([]string, map[string]string) {
	opts := cfg.DriverOptions()
	delete(opts, OptionConnectTimeout)
	params := make(map[string]string, len(opts))
	keys := make([]string, 0, len(opts))
	for k, v := range opts {
		params[k] = fmt.Sprint(v)
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, params
}

// connectTimeout reads the reserved connect_timeout option.
func connectTimeout(cfg *Configuration) (time.Duration, error) {
	v, ok := cfg.DriverOptions()[OptionConnectTimeout]
	if !ok {
		return defaultConnectTimeout, nil
	}
	switch t := v.(type) {
	case time.Duration:
		return t, nil
	case string:
		if d, err := time.ParseDuration(t); err == nil {
			return d, nil
		}
		secs, err := strconv.Atoi(t)
		if err != nil {
			return 0, fmt.Errorf("%s: invalid duration %q", OptionConnectTimeout, t)
		}
		return time.Duration(secs) * time.Second, nil
	default:
		if secs, ok := toInt(v); ok {
			return time.Duration(secs) * time.Second, nil
		}
		return 0, fmt.Errorf("%s: unsupported value type %T", OptionConnectTimeout, v)
	}
}

// parseKeyValueDSN parses "key=value;key=value" bodies.
func parseKeyValueDSN(body string) map[string]string {
	out := make(map[string]string)
	for _, part := range strings.Split(body, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || k == "" {
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}

func isMySQLKeyValueDSN(body string) bool {
	for _, key := range []string{"host=", "port=", "dbname=", "unix_socket=", "charset="} {
		if strings.HasPrefix(body, key) {
			return true
		}
	}
	return false
}

func buildMySQLDSN(cfg *Configuration, body string) (string, func(), error) {
	var mc *mysql.Config
	if body == "" || isMySQLKeyValueDSN(body) {
		kv := parseKeyValueDSN(body)
		mc = mysql.NewConfig()
		if socket, ok := kv["unix_socket"]; ok {
			mc.Net = "unix"
			mc.Addr = socket
		} else {
			host := kv["host"]
			if host == "" {
				host = "127.0.0.1"
			}
			port := kv["port"]
			if port == "" {
				port = "3306"
			}
			mc.Net = "tcp"
			mc.Addr = net.JoinHostPort(host, port)
		}
		mc.DBName = kv["dbname"]
		if charset, ok := kv["charset"]; ok {
			mc.Params = map[string]string{"charset": charset}
		}
	} else {
		parsed, err := mysql.ParseDSN(body)
		if err != nil {
			return "", nil, fmt.Errorf("parsing mysql DSN: %w", err)
		}
		mc = parsed
	}

	ApplyCredentials(cfg, func(user, pass *string) struct{} {
		if user != nil {
			mc.User = *user
		}
		if pass != nil {
			mc.Passwd = *pass
		}
		return struct{}{}
	})

	keys, params := connectionParams(cfg)
	for _, k := range keys {
		if mc.Params == nil {
			mc.Params = make(map[string]string)
		}
		mc.Params[k] = params[k]
	}
	return mc.FormatDSN(), nil, nil
}

func buildPostgresDSN(cfg *Configuration, body string) (string, func(), error) {
	pc, err := postgresConfig(cfg, body)
	if err != nil {
		return "", nil, err
	}
	name := stdlib.RegisterConnConfig(pc)
	return name, func() { stdlib.UnregisterConnConfig(name) }, nil
}

// postgresConfig parses a URL or "key=value;key=value" body and applies credentials
// and driver options as runtime parameters.
func postgresConfig(cfg *Configuration, body string) (*pgx.ConnConfig, error) {
	connString := body
	if !strings.Contains(body, "://") {
		connString = strings.ReplaceAll(body, ";", " ")
	}
	pc, err := pgx.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres DSN: %w", err)
	}

	ApplyCredentials(cfg, func(user, pass *string) struct{} {
		if user != nil {
			pc.User = *user
		}
		if pass != nil {
			pc.Password = *pass
		}
		return struct{}{}
	})

	if _, ok := cfg.DriverOptions()[OptionConnectTimeout]; ok {
		timeout, err := connectTimeout(cfg)
		if err != nil {
			return nil, err
		}
		pc.ConnectTimeout = timeout
	}
	keys, params := connectionParams(cfg)
	for _, k := range keys {
		pc.RuntimeParams[k] = params[k]
	}
	return pc, nil
}

func buildSQLiteDSN(cfg *Configuration, body string) (string, func(), error) {
	if body == "" {
		body = ":memory:"
	}
	keys, params := connectionParams(cfg)
	if len(keys) == 0 {
		return body, nil, nil
	}
	var sb strings.Builder
	sb.WriteString(body)
	sep := "?"
	if strings.Contains(body, "?") {
		sep = "&"
	}
	for _, k := range keys {
		sb.WriteString(sep)
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(params[k])
		sep = "&"
	}
	return sb.String(), nil, nil
}

func postgresLastInsertID(name string) (string, []any) {
	if name == "" {
		return "SELECT lastval()", nil
	}
	return "SELECT currval($1)", []any{name}
}

// quoteStandard doubles single quotes, which is what PostgreSQL (with
// standard_conforming_strings) and SQLite expect.
func quoteStandard(value string) (string, error) {
	if strings.IndexByte(value, 0) >= 0 {
		return "", fmt.Errorf("%w: string literal contains NUL byte", ErrInvalidDataType)
	}
	return "'" + strings.ReplaceAll(value, "'", "''") + "'", nil
}

var mysqlEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	"\x00", `\0`,
	"\n", `\n`,
	"\r", `\r`,
	"\x1a", `\Z`,
)

func quoteMySQL(value string) (string, error) {
	return "'" + mysqlEscaper.Replace(value) + "'", nil
}
