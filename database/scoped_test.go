package database

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithConnection(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("disconnects after success", func(t *testing.T) {
		connector := &fakeConnector{}
		conn := newFakeConnection(fakeConfig(), connector)

		err := WithConnection(ctx, conn, func(c Connection) error {
			assert.True(t, c.IsConnected())
			_, err := c.Exec(ctx, "DELETE FROM sessions")
			return err
		})
		require.NoError(t, err)
		assert.False(t, conn.IsConnected())
		assert.True(t, connector.last().closed)
	})

	t.Run("joins callback and disconnect errors", func(t *testing.T) {
		errClose := errors.New("close failed")
		connector := &fakeConnector{newHandle: func() Handle { return &fakeHandle{closeErr: errClose} }}
		conn := newFakeConnection(fakeConfig(), connector)
		errWork := errors.New("work failed")

		err := WithConnection(ctx, conn, func(Connection) error { return errWork })
		assert.ErrorIs(t, err, errWork)
		assert.ErrorIs(t, err, errClose)
		assert.False(t, conn.IsConnected())
	})

	t.Run("connect failure skips callback", func(t *testing.T) {
		conn := newFakeConnection(fakeConfig(), &fakeConnector{err: errNative})
		called := false

		err := WithConnection(ctx, conn, func(Connection) error {
			called = true
			return nil
		})
		assert.ErrorIs(t, err, errNative)
		assert.False(t, called)
	})

	t.Run("disconnects on panic", func(t *testing.T) {
		connector := &fakeConnector{}
		conn := newFakeConnection(fakeConfig(), connector)

		assert.PanicsWithValue(t, "boom", func() {
			_ = WithConnection(ctx, conn, func(Connection) error { panic("boom") })
		})
		assert.False(t, conn.IsConnected())
		assert.True(t, connector.last().closed)
	})
}
