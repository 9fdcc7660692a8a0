package retry

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithExponentialBackoff(t *testing.T) {
	t.Parallel()
	fast := []Option{WithInitialDelay(time.Millisecond), WithMaxDelay(2 * time.Millisecond)}

	tests := []struct {
		name         string
		failures     int
		fatal        bool
		maxRetries   int
		wantErr      string
		wantAttempts int
	}{
		{name: "first attempt", failures: 0, maxRetries: 5, wantAttempts: 1},
		{name: "after retries", failures: 2, maxRetries: 5, wantAttempts: 3},
		{name: "retries exhausted", failures: 10, maxRetries: 2, wantErr: "operation failed after 3 retries", wantAttempts: 3},
		{name: "fatal stops", failures: 10, fatal: true, maxRetries: 5, wantErr: "fatal error (not retrying)", wantAttempts: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			attempts := 0
			op := func(context.Context) error {
				attempts++
				if attempts > tt.failures {
					return nil
				}
				err := errors.New("transient")
				if tt.fatal {
					return Fatal(err)
				}
				return err
			}

			opts := append([]Option{WithMaxRetries(tt.maxRetries), WithLogger(testr.New(t))}, fast...)
			err := WithExponentialBackoff(context.Background(), op, opts...)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantAttempts, attempts)
		})
	}
}

func TestWithExponentialBackoff_ContextCancellation(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := WithExponentialBackoff(ctx, func(context.Context) error {
		attempts++
		cancel()
		return errors.New("transient")
	}, WithInitialDelay(time.Second))

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestWithExponentialBackoff_PassesContext(t *testing.T) {
	t.Parallel()
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "v")
	err := WithExponentialBackoff(ctx, func(ctx context.Context) error {
		if ctx.Value(key{}) != "v" {
			return Fatal(errors.New("context not passed"))
		}
		return nil
	})
	require.NoError(t, err)
}

func TestFatal(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Fatal(nil))

	sentinel := errors.New("sentinel")
	wrapped := fmt.Errorf("context: %w", Fatal(sentinel))
	assert.True(t, isFatal(wrapped))
	assert.ErrorIs(t, wrapped, sentinel)
	assert.Equal(t, "context: sentinel", wrapped.Error())
	assert.False(t, isFatal(sentinel))
}

func TestUntil(t *testing.T) {
	t.Parallel()

	t.Run("becomes ready", func(t *testing.T) {
		t.Parallel()
		var polls atomic.Int32
		err := Until(context.Background(), time.Millisecond, time.Second, func(context.Context) (bool, error) {
			return polls.Add(1) >= 3, nil
		})
		require.NoError(t, err)
		assert.Equal(t, int32(3), polls.Load())
	})

	t.Run("times out", func(t *testing.T) {
		t.Parallel()
		err := Until(context.Background(), time.Millisecond, 20*time.Millisecond, func(context.Context) (bool, error) {
			return false, nil
		})
		require.ErrorIs(t, err, ErrNotReady)
	})

	t.Run("condition error", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("boom")
		err := Until(context.Background(), time.Millisecond, time.Second, func(context.Context) (bool, error) {
			return false, boom
		})
		require.ErrorIs(t, err, boom)
	})

	t.Run("parent cancelled", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := Until(ctx, time.Millisecond, time.Second, func(context.Context) (bool, error) {
			return false, nil
		})
		require.ErrorIs(t, err, context.Canceled)
	})
}
