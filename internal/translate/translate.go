// Package translate provides the translation collaborator: synchronous
// backends (gRPC, OpenAI) behind an asynchronous retrying adapter.
package translate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// ErrEmptyText is returned by backends for blank input.
var ErrEmptyText = errors.New("translate: empty text")

// Request is one text plus its language pair.
type Request struct {
	Text   string
	Source string
	Target string
}

// Func translates one request synchronously.
type Func func(ctx context.Context, req Request) (string, error)

// Options tune Async.
type Options struct {
	Source  string
	Target  string
	Timeout time.Duration
	// Attempts counts the first call; values below 1 mean 1.
	Attempts int
	Backoff  time.Duration
}

// Async adapts a Func to the callback contract the session controller uses.
// Every Translate call invokes onComplete exactly once; exhausted retries
// complete with "".
type Async struct {
	fn     Func
	opts   Options
	logger *slog.Logger
	closer io.Closer

	wg sync.WaitGroup
}

// NewAsync wraps fn. closer, when non-nil, is closed by Close.
func NewAsync(fn Func, opts Options, logger *slog.Logger, closer io.Closer) *Async {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}
	return &Async{fn: fn, opts: opts, logger: logger, closer: closer}
}

// Translate runs fn on its own goroutine and reports the result to onComplete.
func (a *Async) Translate(ctx context.Context, text string, onComplete func(string)) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		onComplete(a.run(ctx, text))
	}()
}

func (a *Async) run(ctx context.Context, text string) string {
	req := Request{Text: strings.TrimSpace(text), Source: a.opts.Source, Target: a.opts.Target}
	if req.Text == "" {
		return ""
	}

	started := time.Now()
	for attempt := 1; ; attempt++ {
		out, err := a.call(ctx, req)
		if err == nil {
			a.logger.Debug("translation complete",
				"attempt", attempt,
				"latency_ms", time.Since(started).Milliseconds(),
			)
			return strings.TrimSpace(out)
		}

		a.logger.Warn("translation attempt failed", "attempt", attempt, "error", err)
		if attempt >= a.opts.Attempts || errors.Is(err, ErrEmptyText) || ctx.Err() != nil {
			a.logger.Error("translation failed", "attempts", attempt, "error", err)
			return ""
		}

		select {
		case <-ctx.Done():
			return ""
		case <-time.After(a.opts.Backoff * time.Duration(attempt)):
		}
	}
}

func (a *Async) call(ctx context.Context, req Request) (string, error) {
	if a.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.Timeout)
		defer cancel()
	}
	return a.fn(ctx, req)
}

// Close waits for outstanding translations and closes the backend.
func (a *Async) Close() error {
	a.wg.Wait()
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}
