package database

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// serverContainer is a database server started for the integration tests.
type serverContainer struct {
	testcontainers.Container
	Host string
	Port string
}

// startServer starts image with env and waits until port accepts connections.
func startServer(ctx context.Context, image, port string, env map[string]string) (*serverContainer, error) {
	req := testcontainers.ContainerRequest{
		Image:        image,
		Env:          env,
		ExposedPorts: []string{port},
		WaitingFor:   wait.ForListeningPort(nat.Port(port)).WithStartupTimeout(90 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start %s container: %w", image, err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get host: %w", err)
	}
	mapped, err := container.MappedPort(ctx, nat.Port(port))
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get mapped port: %w", err)
	}

	return &serverContainer{Container: container, Host: host, Port: mapped.Port()}, nil
}

// waitForServer connects with cfg until the server answers or timeout passes.
// Official database images restart once after initialisation, so a listening port
// alone does not mean the server is ready.
func waitForServer(ctx context.Context, cfg *Configuration, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		conn, err := NewDriverConnection(cfg, nil)
		if err != nil {
			return err
		}
		err = conn.Ping(ctx)
		_ = conn.Disconnect()
		if err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out waiting for %s after %s: %w", cfg.DSN(), timeout, err)
		}
		time.Sleep(time.Second)
	}
}

func startServerOrSkip(t *testing.T, image, port string, env map[string]string) *serverContainer {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	server, err := startServer(ctx, image, port, env)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := server.Terminate(ctx); err != nil {
			t.Logf("failed to terminate %s container: %s", image, err)
		}
	})
	return server
}

func TestIntegration_MySQL(t *testing.T) {
	server := startServerOrSkip(t, "mysql:8.4", "3306/tcp", map[string]string{
		"MYSQL_ROOT_PASSWORD": "rootpass",
		"MYSQL_DATABASE":      "testdb",
		"MYSQL_USER":          "testuser",
		"MYSQL_PASSWORD":      "testpass",
	})
	ctx := context.Background()

	cfg := NewConfiguration("mysql", fmt.Sprintf("mysql:host=%s;port=%s;dbname=testdb;charset=utf8mb4", server.Host, server.Port)).
		WithUsername("testuser").
		WithPassword("testpass").
		WithDriverOptions(DriverOptions{OptionConnectTimeout: "5s"}).
		WithInitialQuery("SET SESSION sql_mode = 'STRICT_ALL_TABLES'")
	require.NoError(t, waitForServer(ctx, cfg, 2*time.Minute))

	conn, err := NewDriverConnection(cfg, nil)
	require.NoError(t, err)
	defer conn.Disconnect()

	version, err := conn.ServerVersion(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(version, "8."), version)

	_, err = conn.Exec(ctx, "CREATE TABLE items (id INT AUTO_INCREMENT PRIMARY KEY, sku VARCHAR(32) NOT NULL UNIQUE)")
	require.NoError(t, err)

	n, err := conn.Exec(ctx, "INSERT INTO items (sku) VALUES ('a-1')")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	_, err = conn.Exec(ctx, "INSERT INTO items (sku) VALUES ('a-2')")
	require.NoError(t, err)

	id, err := conn.LastInsertID(ctx, "")
	require.NoError(t, err)
	assert.EqualValues(t, 2, id)

	quoted, err := conn.Quote(ctx, "O'Reilly")
	require.NoError(t, err)
	res, err := conn.Query(ctx, "SELECT "+quoted, DriverOptions{OptionFetchMode: FetchColumn, OptionColNo: 0})
	require.NoError(t, err)
	rows, err := res.FetchAll()
	require.NoError(t, err)
	assert.Equal(t, []any{"O'Reilly"}, rows)

	_, err = conn.Exec(ctx, "INSERT INTO items (sku) VALUES ('a-1')")
	assert.ErrorIs(t, err, ErrDuplicateKey)
	assert.Equal(t, CategoryConstraint, Category(err))

	_, err = conn.Query(ctx, "SELECT * FROM missing", nil)
	assert.ErrorIs(t, err, ErrTableNotFound)

	require.NoError(t, conn.BeginTransaction(ctx))
	_, err = conn.Exec(ctx, "DELETE FROM items")
	require.NoError(t, err)
	require.NoError(t, conn.Rollback(ctx))

	res, err = conn.Query(ctx, "SELECT COUNT(*) FROM items", DriverOptions{OptionFetchMode: FetchColumn, OptionColNo: 0})
	require.NoError(t, err)
	rows, err = res.FetchAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2", fmt.Sprint(rows[0]), "text protocol results arrive as strings")
}

func TestIntegration_PostgreSQL(t *testing.T) {
	server := startServerOrSkip(t, "postgres:16", "5432/tcp", map[string]string{
		"POSTGRES_USER":     "testuser",
		"POSTGRES_PASSWORD": "testpass",
		"POSTGRES_DB":       "testdb",
	})
	ctx := context.Background()

	cfg := NewConfiguration("pg", fmt.Sprintf("pgsql:host=%s;port=%s;dbname=testdb;sslmode=disable", server.Host, server.Port)).
		WithUsername("testuser").
		WithPassword("testpass").
		WithDriverOptions(DriverOptions{OptionConnectTimeout: "5s", "application_name": "sqlconn-test"}).
		WithInitialQuery("SET TIME ZONE 'UTC'")
	require.NoError(t, waitForServer(ctx, cfg, 2*time.Minute))

	conn, err := NewDriverConnection(cfg, nil)
	require.NoError(t, err)
	defer conn.Disconnect()

	version, err := conn.ServerVersion(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(version, "16"), version)

	res, err := conn.Query(ctx, "SHOW application_name", DriverOptions{OptionFetchMode: FetchColumn, OptionColNo: 0})
	require.NoError(t, err)
	rows, err := res.FetchAll()
	require.NoError(t, err)
	assert.Equal(t, []any{"sqlconn-test"}, rows)

	_, err = conn.Exec(ctx, "CREATE TABLE items (id SERIAL PRIMARY KEY, sku TEXT NOT NULL UNIQUE)")
	require.NoError(t, err)

	stmt, err := conn.Prepare(ctx, "INSERT INTO items (sku) VALUES ($1)", nil)
	require.NoError(t, err)
	defer stmt.Close()
	for _, sku := range []string{"a-1", "a-2", "a-3"} {
		_, err = stmt.Exec(ctx, sku)
		require.NoError(t, err)
	}

	id, err := conn.LastInsertID(ctx, "items_id_seq")
	require.NoError(t, err)
	assert.EqualValues(t, 3, id)

	id, err = conn.LastInsertID(ctx, "")
	require.NoError(t, err)
	assert.EqualValues(t, 3, id)

	_, err = conn.Exec(ctx, "INSERT INTO items (sku) VALUES ('a-1')")
	assert.ErrorIs(t, err, ErrDuplicateKey)
	assert.Equal(t, CategoryConstraint, Category(err))

	_, err = conn.Exec(ctx, "INSERT INTO items (sku) VALUES (NULL)")
	assert.ErrorIs(t, err, ErrNotNullViolation)

	_, err = conn.Query(ctx, "SELECT * FROM missing", nil)
	assert.ErrorIs(t, err, ErrTableNotFound)

	res, err = conn.Query(ctx, "SELECT id, sku FROM items ORDER BY id", DriverOptions{OptionFetchMode: FetchNum})
	require.NoError(t, err)
	first, ok, err := res.Fetch()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []any{int64(1), "a-1"}, first)

	require.NoError(t, conn.Disconnect())
	assert.False(t, conn.IsConnected())
}
