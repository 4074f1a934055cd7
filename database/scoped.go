package database

import (
	"context"
	"errors"
)

// WithConnection connects conn, runs fn and disconnects again on every exit path.
//
// A connect failure is returned without calling fn. Errors from fn and from the
// disconnect are joined. A panic inside fn still disconnects and is then re-raised.
//
// Example usage:
//
//	err := database.WithConnection(ctx, conn, func(c database.Connection) error {
//		_, err := c.Exec(ctx, "DELETE FROM sessions WHERE expired = 1")
//		return err
//	})
func WithConnection(ctx context.Context, conn Connection, fn func(Connection) error) (err error) {
	if err := conn.Connect(ctx); err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			_ = conn.Disconnect()
			panic(r)
		}
		err = errors.Join(err, conn.Disconnect())
	}()

	return fn(conn)
}
