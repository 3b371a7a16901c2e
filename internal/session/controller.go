// Package session owns the speech-to-translation lifecycle: it serialises
// user, engine, permission and translation inputs through the fsm and
// performs the side effects each transition asks for.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rbright/habla/internal/errmap"
	"github.com/rbright/habla/internal/fsm"
	"github.com/rbright/habla/internal/ipc"
	"github.com/rbright/habla/internal/recognition"
)

// ErrNoObserver is returned by Toggle before an observer is registered.
var ErrNoObserver = errors.New("session observer not registered")

const shutdownTimeout = 800 * time.Millisecond

// Snapshot is a consistent view of controller state.
type Snapshot struct {
	State       fsm.State
	Translating bool
	Attempt     string
}

// Controller drives one fsm.State through Toggle, engine events,
// authorization results and translation completions. All inputs are
// queued and applied one at a time by Run.
type Controller struct {
	logger     *slog.Logger
	engine     recognition.Engine
	authorizer recognition.Authorizer
	translator Translator

	mu                  sync.RWMutex
	state               fsm.State
	translationInFlight bool
	translationAttempt  string
	attempt             string
	observer            Observer

	inbox         *mailbox
	togglePending atomic.Bool
}

// NewController constructs a controller. Nil collaborators are replaced by
// fallbacks: an engine that cannot start, an authorizer that always grants
// and a translator that completes with an empty result.
func NewController(
	logger *slog.Logger,
	engine recognition.Engine,
	authorizer recognition.Authorizer,
	translator Translator,
) *Controller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if engine == nil {
		engine = unavailableEngine{}
	}
	if authorizer == nil {
		authorizer = recognition.AuthorizerFunc(func(_ context.Context, done func(recognition.AuthorizationStatus)) {
			done(recognition.AuthorizationGranted)
		})
	}
	if translator == nil {
		translator = TranslatorFunc(func(_ context.Context, _ string, done func(string)) { done("") })
	}

	return &Controller{
		logger:     logger.With("component", "session"),
		engine:     engine,
		authorizer: authorizer,
		translator: translator,
		state:      fsm.Idle(),
		inbox:      newMailbox(),
	}
}

// Register sets the observer that receives state and translation callbacks.
func (c *Controller) Register(observer Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observer = observer
}

// State returns the current state.
func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Snapshot returns state, in-flight flag and attempt id together.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{State: c.state, Translating: c.translationInFlight, Attempt: c.attempt}
}

// Toggle queues a start-or-stop request. Whether it starts or stops is
// decided against the state at processing time; toggles queued while one
// is already pending collapse into it and return queued=false.
func (c *Controller) Toggle() (queued bool, err error) {
	c.mu.RLock()
	registered := c.observer != nil
	c.mu.RUnlock()
	if !registered {
		return false, ErrNoObserver
	}

	if !c.togglePending.CompareAndSwap(false, true) {
		return false, nil
	}
	c.inbox.push(input{kind: inputToggle})
	return true, nil
}

// Stop queues a stop request; it is a no-op unless a session is active.
func (c *Controller) Stop() {
	c.inbox.push(input{kind: inputStop})
}

// Reset queues a return to idle from a terminal state.
func (c *Controller) Reset() {
	c.inbox.push(input{kind: inputReset})
}

// OnEngineEvent implements recognition.Sink.
func (c *Controller) OnEngineEvent(ev recognition.Event) {
	c.inbox.push(input{kind: inputEngine, event: ev})
}

// OnTranslationResult delivers a completion for the pending translation.
// Completions routed through the translator callback are tagged with the
// attempt that requested them; this untagged form always targets the
// request currently in flight.
func (c *Controller) OnTranslationResult(text string) {
	c.inbox.push(input{kind: inputTranslation, text: text})
}

// Run applies queued inputs until ctx is done. An active session is
// cancelled on the way out so the engine never outlives the loop.
func (c *Controller) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return nil
		case <-c.inbox.ready:
			c.drain(ctx)
		}
	}
}

func (c *Controller) drain(ctx context.Context) {
	for {
		batch := c.inbox.take()
		if len(batch) == 0 {
			return
		}
		for _, in := range batch {
			c.process(ctx, in)
		}
	}
}

func (c *Controller) shutdown() {
	if !c.State().Active() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	c.apply(ctx, fsm.Cancelled())
}

func (c *Controller) process(ctx context.Context, in input) {
	switch in.kind {
	case inputToggle:
		c.togglePending.Store(false)
		c.toggle(ctx)
	case inputStop:
		c.apply(ctx, fsm.StopRequested())
	case inputReset:
		if snap := c.Snapshot(); snap.Translating {
			c.logger.Info("reset ignored while translation is pending", "attempt", snap.Attempt)
			return
		}
		c.apply(ctx, fsm.Reset())
	case inputEngine:
		if in.event.Kind == recognition.EventAvailability {
			c.availabilityChanged(in.event.Available)
		}
		if in.event.Kind == recognition.EventFailure {
			c.logger.Warn("recognition engine failure", "error", in.event.Err)
		}
		c.apply(ctx, errmap.FromEngine(in.event))
	case inputAuthorization:
		if in.attempt != c.Snapshot().Attempt {
			c.logger.Debug("stale authorization result ignored", "attempt", in.attempt, "status", in.status)
			return
		}
		c.apply(ctx, errmap.FromAuthorization(in.status))
	case inputTranslation:
		c.completeTranslation(in.text, in.attempt)
	}
}

func (c *Controller) toggle(ctx context.Context) {
	snap := c.Snapshot()
	switch {
	case snap.State.Active():
		c.apply(ctx, fsm.StopRequested())
	case snap.Translating:
		c.logger.Info("toggle ignored while translation is pending", "attempt", snap.Attempt, "state", snap.State.String())
	default:
		c.apply(ctx, fsm.StartRequested())
	}
}

// apply runs one event through the machine and performs its side effects.
// The engine is started on entry to listening and stopped on exit, so it
// runs exactly while the state is listening.
func (c *Controller) apply(ctx context.Context, ev fsm.Event) {
	c.mu.Lock()
	prev := c.state
	next, sig := fsm.Apply(prev, ev)
	c.state = next
	enteredAuthorizing := next.Kind == fsm.KindAuthorizing && prev.Kind != fsm.KindAuthorizing
	if enteredAuthorizing {
		c.attempt = uuid.New().String()
	}
	attempt := c.attempt
	observer := c.observer
	c.mu.Unlock()

	if sig.Kind == fsm.SignalNone {
		c.logger.Debug("session event ignored", "state", prev.String(), "event", ev.Kind, "attempt", attempt)
		return
	}
	c.logger.Info("session transition",
		"from", prev.String(),
		"to", next.String(),
		"event", ev.Kind,
		"attempt", attempt,
	)

	if prev.EngineRunning() && !next.EngineRunning() {
		if err := c.engine.Stop(ctx); err != nil {
			c.logger.Warn("stop recognition engine", "error", err, "attempt", attempt)
		}
	}
	if enteredAuthorizing {
		c.authorizer.RequestAuthorization(ctx, func(status recognition.AuthorizationStatus) {
			c.inbox.push(input{kind: inputAuthorization, status: status, attempt: attempt})
		})
	}

	if observer != nil {
		observer.OnStateChanged(next)
	}
	if sig.Kind == fsm.SignalTranslate {
		c.requestTranslation(ctx, sig.Text, attempt)
	}

	if !prev.EngineRunning() && next.EngineRunning() {
		if err := c.engine.Start(ctx, c); err != nil {
			kind := errmap.Map(err)
			c.logger.Error("start recognition engine", "error", err, "kind", kind, "attempt", attempt)
			c.apply(ctx, fsm.EngineFailure(kind))
		}
	}
}

func (c *Controller) requestTranslation(ctx context.Context, text string, attempt string) {
	c.mu.Lock()
	if c.translationInFlight {
		c.mu.Unlock()
		c.logger.Warn("translation already in flight; dropping request", "attempt", attempt, "chars", len(text))
		return
	}
	c.translationInFlight = true
	c.translationAttempt = attempt
	c.mu.Unlock()

	c.logger.Info("translation requested", "attempt", attempt, "chars", len(text))
	c.translator.Translate(ctx, text, func(result string) {
		c.inbox.push(input{kind: inputTranslation, text: result, attempt: attempt})
	})
}

// completeTranslation accepts one completion per request. A tagged
// completion must match the attempt of the request in flight.
func (c *Controller) completeTranslation(text, from string) {
	c.mu.Lock()
	if !c.translationInFlight {
		c.mu.Unlock()
		c.logger.Warn("translation completion without a pending request ignored", "attempt", from)
		return
	}
	attempt := c.translationAttempt
	if from != "" && from != attempt {
		c.mu.Unlock()
		c.logger.Warn("stale translation completion ignored", "attempt", from, "pending", attempt)
		return
	}
	c.translationInFlight = false
	c.translationAttempt = ""
	observer := c.observer
	c.mu.Unlock()

	c.logger.Info("translation ready", "attempt", attempt, "chars", len(text))
	if observer != nil {
		observer.OnTranslationReady(text)
	}
}

func (c *Controller) availabilityChanged(ok bool) {
	c.mu.RLock()
	observer := c.observer
	c.mu.RUnlock()

	c.logger.Info("recognizer availability changed", "available", ok)
	if a, isAvail := observer.(AvailabilityObserver); isAvail {
		a.OnAvailabilityChanged(ok)
	}
}

// Handle serves IPC commands for the owning process.
func (c *Controller) Handle(_ context.Context, req ipc.Request) ipc.Response {
	snap := c.Snapshot()
	resp := ipc.Response{
		State:       string(snap.State.Kind),
		Transcript:  snap.State.Transcript,
		ErrorKind:   string(snap.State.Err),
		Translating: snap.Translating,
	}

	switch req.Command {
	case "status":
		resp.OK = true
		resp.Message = snap.State.String()
	case "toggle":
		queued, err := c.Toggle()
		switch {
		case err != nil:
			resp.Error = err.Error()
		case queued:
			resp.OK, resp.Message = true, "toggle requested"
		default:
			resp.OK, resp.Message = true, "toggle already requested"
		}
	case "stop":
		if !snap.State.Active() {
			resp.Error = fmt.Sprintf("cannot stop from state %s", snap.State.Kind)
			break
		}
		c.Stop()
		resp.OK, resp.Message = true, "stop requested"
	case "reset":
		if !snap.State.Terminal() {
			resp.Error = fmt.Sprintf("cannot reset from state %s", snap.State.Kind)
			break
		}
		if snap.Translating {
			resp.Error = "cannot reset while a translation is pending"
			break
		}
		c.Reset()
		resp.OK, resp.Message = true, "reset requested"
	default:
		resp.Error = fmt.Sprintf("unknown command: %s", req.Command)
	}
	return resp
}

// unavailableEngine stands in when no recognizer is wired.
type unavailableEngine struct{}

func (unavailableEngine) Start(context.Context, recognition.Sink) error {
	return fmt.Errorf("no recognition engine configured: %w", recognition.CauseEngineUnavailable)
}

func (unavailableEngine) Stop(context.Context) error {
	return nil
}
