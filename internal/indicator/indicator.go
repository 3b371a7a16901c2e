// Package indicator renders session progress as notifications or terminal
// lines and plays audio cues for the transitions that matter.
package indicator

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rbright/habla/internal/config"
	"github.com/rbright/habla/internal/fsm"
	"github.com/rbright/habla/internal/hypr"
)

const (
	queueSize       = 32
	dispatchTimeout = 400 * time.Millisecond
)

// Indicator is a session observer. Callbacks only enqueue work; a single
// worker renders in order so slow hyprctl or busctl calls never stall the
// controller loop.
type Indicator struct {
	cfg     config.IndicatorConfig
	logger  *slog.Logger
	texts   texts
	display display
	cue     func(context.Context, cueKind, config.IndicatorConfig) error

	jobs      chan func(context.Context)
	cues      chan cueKind
	done      chan struct{}
	closeOnce sync.Once

	mu             sync.Mutex
	closed         bool
	last           fsm.Kind
	focusedMonitor string
}

// New builds an indicator for cfg.Backend. Terminal output goes to out
// (stderr when nil).
func New(cfg config.IndicatorConfig, logger *slog.Logger, out io.Writer) *Indicator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if out == nil {
		out = os.Stderr
	}
	ind := &Indicator{
		cfg:    cfg,
		logger: logger.With("component", "indicator"),
		texts:  textsFromEnv(),
		cue:    emitCue,
		jobs:   make(chan func(context.Context), queueSize),
		cues:   make(chan cueKind, queueSize),
		done:   make(chan struct{}),
		last:   fsm.KindIdle,
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "desktop":
		appName := strings.TrimSpace(cfg.DesktopAppName)
		if appName == "" {
			appName = "habla-indicator"
		}
		ind.display = &desktopDisplay{appName: appName}
	case "terminal":
		ind.display = newTerminalDisplay(out)
	default:
		ind.display = hyprDisplay{}
	}

	go ind.work()
	go ind.playCues()
	return ind
}

// OnStateChanged renders s and plays the cue for the transition.
func (i *Indicator) OnStateChanged(s fsm.State) {
	i.mu.Lock()
	previous := i.last
	i.last = s.Kind
	i.mu.Unlock()

	if cue, ok := cueFor(previous, s.Kind); ok {
		i.playCue(cue)
	}
	if s.Kind == fsm.KindAuthorizing && i.usesHypr() {
		i.enqueue(i.captureFocusedMonitor)
	}
	i.render(i.texts.statusFor(s))
}

// OnTranslationReady shows the translation, or a notice when it is empty.
func (i *Indicator) OnTranslationReady(text string) {
	st := i.texts.statusForTranslation(text)
	if st.level == levelError {
		i.playCue(cueError)
	} else {
		i.playCue(cueComplete)
	}
	i.render(st)
}

// OnAvailabilityChanged surfaces a recognizer that went away.
func (i *Indicator) OnAvailabilityChanged(ok bool) {
	if ok {
		return
	}
	i.render(status{level: levelError, text: i.texts.unavailable})
}

// FocusedMonitor is the Hyprland monitor focused when the last session began.
func (i *Indicator) FocusedMonitor() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.focusedMonitor
}

// Close drains queued work and clears the display.
func (i *Indicator) Close() error {
	i.closeOnce.Do(func() {
		i.mu.Lock()
		i.closed = true
		close(i.jobs)
		close(i.cues)
		i.mu.Unlock()
		<-i.done

		if i.cfg.Enable {
			ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
			defer cancel()
			i.logErr("indicator clear failed", i.display.clear(ctx))
		}
	})
	return nil
}

// cueFor maps a transition to its cue. Only transitions into a state cue.
func cueFor(previous fsm.Kind, next fsm.Kind) (cueKind, bool) {
	if previous == next {
		return 0, false
	}
	switch next {
	case fsm.KindListening:
		return cueStart, true
	case fsm.KindStopped:
		return cueStop, true
	case fsm.KindFailed:
		return cueError, true
	default:
		return 0, false
	}
}

func (i *Indicator) render(st status) {
	if !i.cfg.Enable {
		return
	}
	timeout := persistentTimeoutMS
	if st.level.transient() {
		timeout = i.cfg.ErrorTimeoutMS
		if timeout <= 0 {
			timeout = 1200
		}
	}
	i.enqueue(func(ctx context.Context) {
		i.logErr("indicator dispatch failed", i.display.show(ctx, st, timeout))
	})
}

func (i *Indicator) playCue(kind cueKind) {
	if !i.cfg.SoundEnable {
		return
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return
	}
	select {
	case i.cues <- kind:
	default:
		i.logger.Debug("indicator cue queue full; dropping cue", "cue", kind.String())
	}
}

// playCues plays cues one at a time, in transition order.
func (i *Indicator) playCues() {
	for kind := range i.cues {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := i.cue(ctx, kind, i.cfg); err != nil {
			i.logger.Debug("indicator audio cue failed", "cue", kind.String(), "error", err)
		}
		cancel()
	}
}

// enqueue never blocks; a full queue drops the update.
func (i *Indicator) enqueue(job func(context.Context)) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return
	}
	select {
	case i.jobs <- job:
	default:
		i.logger.Warn("indicator queue full; dropping update")
	}
}

func (i *Indicator) work() {
	defer close(i.done)
	for job := range i.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		job(ctx)
		cancel()
	}
}

func (i *Indicator) usesHypr() bool {
	_, ok := i.display.(hyprDisplay)
	return ok && i.cfg.Enable
}

func (i *Indicator) captureFocusedMonitor(ctx context.Context) {
	monitor, err := hypr.QueryFocusedMonitor(ctx)
	if err != nil {
		i.logErr("indicator focused monitor query failed", err)
		return
	}
	i.mu.Lock()
	i.focusedMonitor = monitor
	i.mu.Unlock()
}

func (i *Indicator) logErr(message string, err error) {
	if err == nil {
		return
	}
	i.logger.Debug(message, "error", err.Error())
}
