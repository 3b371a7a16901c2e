package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/rbright/habla/internal/config"
	"github.com/rbright/habla/internal/errmap"
	"github.com/rbright/habla/internal/fsm"
	"github.com/rbright/habla/internal/indicator"
	"github.com/rbright/habla/internal/ipc"
	"github.com/rbright/habla/internal/output"
	"github.com/rbright/habla/internal/pipeline"
	"github.com/rbright/habla/internal/recognition"
	"github.com/rbright/habla/internal/session"
	"github.com/rbright/habla/internal/translate"
)

// sessionResult summarises one settled session for logs and exit status.
type sessionResult struct {
	State          fsm.State
	Translation    string
	StartedAt      time.Time
	FinishedAt     time.Time
	FocusedMonitor string
	Interrupted    bool
}

// owner is the process holding the session socket.
type owner struct {
	logger     *slog.Logger
	controller *session.Controller
	indicator  *indicator.Indicator
	watcher    *settleWatcher
	closers    []io.Closer
}

func (r Runner) newOwner(cfg config.Config, logger *slog.Logger) (*owner, error) {
	o := &owner{logger: logger, watcher: newSettleWatcher()}

	translator := r.translator
	if translator == nil {
		async, err := translate.New(cfg.Translator, logger)
		if err != nil {
			return nil, fmt.Errorf("setup translator: %w", err)
		}
		o.closers = append(o.closers, async)
		translator = async
	}

	engine := r.engine
	if engine == nil {
		engine = pipeline.NewEngine(cfg, logger)
	}
	authorizer := r.authorizer
	if authorizer == nil {
		authorizer = recognition.DeviceAuthorizer{
			Logger:   logger,
			Input:    cfg.Audio.Input,
			Fallback: cfg.Audio.Fallback,
		}
	}

	o.controller = session.NewController(logger, engine, authorizer, translator)

	o.indicator = indicator.New(cfg.Indicator, logger, r.Stderr)
	o.closers = append(o.closers, o.indicator)
	observers := session.Observers{o.indicator, output.NewPrinter(r.Stdout)}
	if cfg.Clipboard.Enable {
		clipboard := output.NewClipboard(cfg.Clipboard, logger)
		o.closers = append(o.closers, clipboard)
		observers = append(observers, clipboard)
	}
	// The watcher goes last so every other observer has seen the settling
	// callback before the owner starts shutting down.
	observers = append(observers, o.watcher)
	o.controller.Register(observers)

	return o, nil
}

// run serves IPC and drives the controller. With once set it requests a
// toggle and returns when that session settles; otherwise it runs until
// ctx is done.
func (o *owner) run(ctx context.Context, listener net.Listener, once bool) (sessionResult, error) {
	started := time.Now()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(runCtx, listener, o.controller)
	}()
	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- o.controller.Run(runCtx)
	}()

	interrupted := false
	if once {
		if _, err := o.controller.Toggle(); err != nil {
			o.logger.Error("request toggle", "error", err)
		}
		select {
		case <-o.watcher.done:
		case <-ctx.Done():
			interrupted = true
		}
	} else {
		<-ctx.Done()
	}

	cancel()
	err := errors.Join(<-runErrCh, <-serverErrCh)
	o.close()

	state, translation := o.watcher.result()
	if interrupted {
		state = o.controller.State()
	}
	return sessionResult{
		State:          state,
		Translation:    translation,
		StartedAt:      started,
		FinishedAt:     time.Now(),
		FocusedMonitor: o.indicator.FocusedMonitor(),
		Interrupted:    interrupted,
	}, err
}

func (o *owner) close() {
	for _, closer := range o.closers {
		if err := closer.Close(); err != nil {
			o.logger.Warn("close session component", "error", err)
		}
	}
}

// settleWatcher closes done when a session ends: on stopped or failed, or
// once the translation for a finalized transcript arrives.
type settleWatcher struct {
	mu          sync.Mutex
	last        fsm.State
	translation string
	done        chan struct{}
	once        sync.Once
}

func newSettleWatcher() *settleWatcher {
	return &settleWatcher{last: fsm.Idle(), done: make(chan struct{})}
}

func (w *settleWatcher) OnStateChanged(s fsm.State) {
	w.mu.Lock()
	w.last = s
	w.mu.Unlock()
	if s.Kind == fsm.KindStopped || s.Kind == fsm.KindFailed {
		w.settle()
	}
}

func (w *settleWatcher) OnTranslationReady(text string) {
	w.mu.Lock()
	w.translation = text
	w.mu.Unlock()
	w.settle()
}

func (w *settleWatcher) settle() {
	w.once.Do(func() { close(w.done) })
}

func (w *settleWatcher) result() (fsm.State, string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last, w.translation
}

// reportResult maps a settled session to an exit code. The translation
// itself has already been printed by the output observer.
func (r Runner) reportResult(result sessionResult) int {
	switch result.State.Kind {
	case fsm.KindFailed:
		fmt.Fprintf(r.Stderr, "error: %s\n", errmap.Message(result.State.Err))
		return 1
	case fsm.KindFinalized:
		if strings.TrimSpace(result.Translation) == "" {
			fmt.Fprintln(r.Stderr, "error: translation unavailable")
			return 1
		}
		return 0
	case fsm.KindStopped:
		fmt.Fprintln(r.Stdout, stopMessage(result.State.Reason))
		return 0
	default:
		if result.Interrupted {
			fmt.Fprintln(r.Stdout, stopMessage(fsm.StopCancelled))
		}
		return 0
	}
}

func stopMessage(reason fsm.StopReason) string {
	switch reason {
	case fsm.StopEmptyResult:
		return "no speech recognized"
	case fsm.StopEngine:
		return "recognizer ended the session"
	case fsm.StopCancelled:
		return "cancelled"
	default:
		return "stopped"
	}
}

func logSessionResult(logger *slog.Logger, result sessionResult) {
	if logger == nil {
		return
	}
	fields := []any{
		"state", result.State.String(),
		"interrupted", result.Interrupted,
		"started_at", result.StartedAt.Format(time.RFC3339Nano),
		"finished_at", result.FinishedAt.Format(time.RFC3339Nano),
		"duration_ms", result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
		"transcript_length", len(result.State.Transcript),
		"translation_length", len(result.Translation),
		"focused_monitor", result.FocusedMonitor,
	}

	if result.State.Kind == fsm.KindFailed {
		logger.Error("session failed", append(fields, "error_kind", string(result.State.Err))...)
		return
	}
	logger.Info("session complete", fields...)
}
