package disposer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap/zaptest"
)

func TestStack_Dispose(t *testing.T) {
	ctx := context.Background()

	t.Run("runs actions in reverse order", func(t *testing.T) {
		s := New(zaptest.NewLogger(t))

		var order []string
		for _, name := range []string{"drop database", "close pool", "release lock"} {
			require.NoError(t, s.Defer(name, func(context.Context) error {
				order = append(order, name)
				return nil
			}))
		}
		require.Equal(t, 3, s.Len())

		require.NoError(t, s.Dispose(ctx))
		assert.Equal(t, []string{"release lock", "close pool", "drop database"}, order)
		assert.Zero(t, s.Len())
	})

	t.Run("continues after failures and aggregates them", func(t *testing.T) {
		s := New(zaptest.NewLogger(t))

		errFirst := errors.New("first")
		errLast := errors.New("last")
		ran := 0

		require.NoError(t, s.Defer("a", func(context.Context) error { ran++; return errFirst }))
		require.NoError(t, s.Defer("b", func(context.Context) error { ran++; return nil }))
		require.NoError(t, s.Defer("c", func(context.Context) error { ran++; return errLast }))

		err := s.Dispose(ctx)
		require.Error(t, err)
		assert.Equal(t, 3, ran)
		assert.Len(t, multierr.Errors(err), 2)
		assert.ErrorIs(t, err, errFirst)
		assert.ErrorIs(t, err, errLast)
		assert.ErrorContains(t, err, "failed to c")
	})

	t.Run("second dispose is a no-op", func(t *testing.T) {
		s := New(nil)

		calls := 0
		require.NoError(t, s.Defer("once", func(context.Context) error { calls++; return errors.New("boom") }))

		require.Error(t, s.Dispose(ctx))
		require.NoError(t, s.Dispose(ctx))
		assert.Equal(t, 1, calls)
		assert.True(t, s.Disposed())
	})

	t.Run("empty stack", func(t *testing.T) {
		s := New(nil)
		require.NoError(t, s.Dispose(ctx))
	})

	t.Run("defer after dispose fails", func(t *testing.T) {
		s := New(nil)
		require.NoError(t, s.Dispose(ctx))

		err := s.Defer("late", func(context.Context) error { return nil })
		require.ErrorIs(t, err, ErrDisposed)
	})
}
