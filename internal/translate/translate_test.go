package translate

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func await(t *testing.T, a *Async, ctx context.Context, text string) string {
	t.Helper()
	done := make(chan string, 1)
	a.Translate(ctx, text, func(out string) { done <- out })
	select {
	case out := <-done:
		return out
	case <-time.After(5 * time.Second):
		t.Fatal("translation did not complete")
		return ""
	}
}

func TestAsyncCompletesWithTranslation(t *testing.T) {
	var got Request
	a := NewAsync(func(_ context.Context, req Request) (string, error) {
		got = req
		return " hello world ", nil
	}, Options{Source: "es", Target: "en"}, nil, nil)

	require.Equal(t, "hello world", await(t, a, context.Background(), "  hola mundo "))
	require.Equal(t, Request{Text: "hola mundo", Source: "es", Target: "en"}, got)
	require.NoError(t, a.Close())
}

func TestAsyncRetriesUntilSuccess(t *testing.T) {
	var calls atomic.Int32
	a := NewAsync(func(context.Context, Request) (string, error) {
		if calls.Add(1) < 3 {
			return "", errors.New("unavailable")
		}
		return "ok", nil
	}, Options{Attempts: 3, Backoff: time.Millisecond}, nil, nil)

	require.Equal(t, "ok", await(t, a, context.Background(), "hola"))
	require.Equal(t, int32(3), calls.Load())
}

func TestAsyncCompletesEmptyWhenAttemptsExhausted(t *testing.T) {
	var calls atomic.Int32
	a := NewAsync(func(context.Context, Request) (string, error) {
		calls.Add(1)
		return "", errors.New("unavailable")
	}, Options{Attempts: 2, Backoff: time.Millisecond}, nil, nil)

	require.Empty(t, await(t, a, context.Background(), "hola"))
	require.Equal(t, int32(2), calls.Load())
}

func TestAsyncSkipsBlankText(t *testing.T) {
	called := false
	a := NewAsync(func(context.Context, Request) (string, error) {
		called = true
		return "x", nil
	}, Options{}, nil, nil)

	require.Empty(t, await(t, a, context.Background(), " \n "))
	require.False(t, called)
}

func TestAsyncStopsRetryingWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	a := NewAsync(func(context.Context, Request) (string, error) {
		calls.Add(1)
		cancel()
		return "", errors.New("unavailable")
	}, Options{Attempts: 5, Backoff: time.Hour}, nil, nil)

	require.Empty(t, await(t, a, ctx, "hola"))
	require.Equal(t, int32(1), calls.Load())
}

func TestAsyncAppliesPerAttemptTimeout(t *testing.T) {
	a := NewAsync(func(ctx context.Context, _ Request) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}, Options{Timeout: 10 * time.Millisecond}, nil, nil)

	require.Empty(t, await(t, a, context.Background(), "hola"))
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestAsyncCloseWaitsForOutstandingWork(t *testing.T) {
	release := make(chan struct{})
	var completed atomic.Bool
	var closed atomic.Bool

	a := NewAsync(func(context.Context, Request) (string, error) {
		<-release
		return "done", nil
	}, Options{}, nil, closerFunc(func() error {
		closed.Store(completed.Load())
		return nil
	}))

	a.Translate(context.Background(), "hola", func(string) { completed.Store(true) })

	errCh := make(chan error, 1)
	go func() { errCh <- a.Close() }()

	select {
	case <-errCh:
		t.Fatal("Close returned before translation finished")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-errCh)
	require.True(t, closed.Load())
}
