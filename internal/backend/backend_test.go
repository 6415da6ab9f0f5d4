package backend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/provisiongrid/internal/ctxlog"
	"github.com/vk/provisiongrid/internal/nodeid"
	"golang.org/x/time/rate"
)

func testContext() context.Context {
	return ctxlog.WithLogger(context.Background(), ctxlog.Discard())
}

func TestIsTransient(t *testing.T) {
	base := errors.New("boom")

	testCases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "plain error", err: base, want: false},
		{name: "marked transient", err: Transient(base), want: true},
		{name: "wrapped transient", err: errors.Join(errors.New("ctx"), Transient(base)), want: true},
		{name: "classified transient", err: &Error{Op: OpCreate, Type: "t", Transient: true, Err: base}, want: true},
		{name: "classified terminal", err: &Error{Op: OpCreate, Type: "t", Err: base}, want: false},
		{name: "nil", err: nil, want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsTransient(tc.err))
		})
	}
}

func TestWrap(t *testing.T) {
	t.Run("classifies and keeps the cause", func(t *testing.T) {
		cause := errors.New("quota exceeded")
		err := Wrap(OpCreate, "storage_bucket", Transient(cause))

		var be *Error
		require.ErrorAs(t, err, &be)
		assert.True(t, be.Transient)
		assert.Equal(t, "storage_bucket", be.Type)
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "backend create storage_bucket failed (transient)")
	})

	t.Run("does not double wrap", func(t *testing.T) {
		orig := &Error{Op: OpDelete, Type: "x", Err: errors.New("gone")}
		assert.Same(t, orig, Wrap(OpCreate, "y", orig))
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, Wrap(OpCreate, "x", nil))
	})
}

func TestResourceID(t *testing.T) {
	id := nodeid.MustParse("storage_bucket.speech")
	assert.Equal(t, "speechfile-abc", ResourceID(id, map[string]any{"id": "speechfile-abc"}))
	assert.Equal(t, "storage_bucket.speech", ResourceID(id, map[string]any{"id": ""}))
	assert.Equal(t, "storage_bucket.speech", ResourceID(id, nil))
}

func TestNodeContext(t *testing.T) {
	_, ok := NodeFromContext(context.Background())
	assert.False(t, ok)

	id := nodeid.MustParse("echo.a")
	got, ok := NodeFromContext(WithNode(context.Background(), id))
	require.True(t, ok)
	assert.Equal(t, id, got)
}

func TestWithRetry(t *testing.T) {
	opts := RetryOptions{MaxRetries: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}

	t.Run("transient failures are retried until success", func(t *testing.T) {
		// --- Arrange ---
		attempts := 0
		inner := Func{CreateFn: func(ctx context.Context, typ string, in map[string]any) (map[string]any, error) {
			attempts++
			if attempts < 3 {
				return nil, Transient(errors.New("503"))
			}
			return map[string]any{"id": "ok"}, nil
		}}

		// --- Act ---
		out, err := WithRetry(inner, opts).Create(testContext(), "echo", nil)

		// --- Assert ---
		require.NoError(t, err)
		assert.Equal(t, "ok", out["id"])
		assert.Equal(t, 3, attempts)
	})

	t.Run("terminal failure is returned after one attempt", func(t *testing.T) {
		attempts := 0
		terminal := errors.New("invalid argument")
		inner := Func{CreateFn: func(ctx context.Context, typ string, in map[string]any) (map[string]any, error) {
			attempts++
			return nil, terminal
		}}

		_, err := WithRetry(inner, opts).Create(testContext(), "echo", nil)

		require.ErrorIs(t, err, terminal)
		assert.Equal(t, 1, attempts)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		attempts := 0
		inner := Func{DeleteFn: func(ctx context.Context, typ, id string) error {
			attempts++
			return Transient(errors.New("still busy"))
		}}

		err := WithRetry(inner, opts).Delete(testContext(), "echo", "x")

		require.Error(t, err)
		assert.True(t, IsTransient(err))
		assert.Equal(t, 4, attempts, "one attempt plus three retries")
	})
}

func TestWithRateLimit(t *testing.T) {
	t.Run("passes calls through", func(t *testing.T) {
		var created, deleted int
		inner := Func{
			CreateFn: func(ctx context.Context, typ string, in map[string]any) (map[string]any, error) {
				created++
				return in, nil
			},
			DeleteFn: func(ctx context.Context, typ, id string) error {
				deleted++
				return nil
			},
		}
		b := WithRateLimit(inner, rate.NewLimiter(rate.Inf, 1))

		out, err := b.Create(testContext(), "echo", map[string]any{"a": 1})
		require.NoError(t, err)
		assert.Equal(t, 1, out["a"])
		require.NoError(t, b.Delete(testContext(), "echo", "id"))
		assert.Equal(t, 1, created)
		assert.Equal(t, 1, deleted)
	})

	t.Run("cancelled context fails without calling the backend", func(t *testing.T) {
		called := false
		inner := Func{CreateFn: func(ctx context.Context, typ string, in map[string]any) (map[string]any, error) {
			called = true
			return nil, nil
		}}
		limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
		require.True(t, limiter.Allow(), "drain the only token")

		ctx, cancel := context.WithCancel(testContext())
		cancel()
		_, err := WithRateLimit(inner, limiter).Create(ctx, "echo", nil)

		require.Error(t, err)
		assert.False(t, called)
	})
}

func TestFunc_Defaults(t *testing.T) {
	var f Func
	out, err := f.Create(context.Background(), "x", nil)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.NoError(t, f.Delete(context.Background(), "x", "id"))
}
