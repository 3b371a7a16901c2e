package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rbright/habla/internal/fsm"
	"github.com/rbright/habla/internal/recognition"
)

type fakeEngine struct {
	startErr error

	mu      sync.Mutex
	running bool
	sink    recognition.Sink

	starts atomic.Int32
	stops  atomic.Int32
}

func (f *fakeEngine) Start(_ context.Context, sink recognition.Sink) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running {
		return errors.New("engine already running")
	}
	f.running = true
	f.sink = sink
	f.starts.Add(1)
	return nil
}

func (f *fakeEngine) Stop(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = false
	f.stops.Add(1)
	return nil
}

func (f *fakeEngine) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

// fakeAuthorizer answers immediately when auto is set, otherwise it holds
// callbacks until the test resolves them.
type fakeAuthorizer struct {
	auto recognition.AuthorizationStatus

	mu      sync.Mutex
	pending []func(recognition.AuthorizationStatus)
	calls   atomic.Int32
}

func (f *fakeAuthorizer) RequestAuthorization(_ context.Context, done func(recognition.AuthorizationStatus)) {
	f.calls.Add(1)
	if f.auto != "" {
		done(f.auto)
		return
	}
	f.mu.Lock()
	f.pending = append(f.pending, done)
	f.mu.Unlock()
}

func (f *fakeAuthorizer) resolve(i int, status recognition.AuthorizationStatus) {
	f.mu.Lock()
	done := f.pending[i]
	f.mu.Unlock()
	done(status)
}

func (f *fakeAuthorizer) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

type fakeTranslator struct {
	auto func(string) string

	mu       sync.Mutex
	requests []string
	pending  []func(string)
}

func (f *fakeTranslator) Translate(_ context.Context, text string, onComplete func(string)) {
	f.mu.Lock()
	f.requests = append(f.requests, text)
	if f.auto == nil {
		f.pending = append(f.pending, onComplete)
	}
	f.mu.Unlock()

	if f.auto != nil {
		onComplete(f.auto(text))
	}
}

func (f *fakeTranslator) complete(result string) {
	f.mu.Lock()
	done := f.pending[0]
	f.pending = f.pending[1:]
	f.mu.Unlock()
	done(result)
}

func (f *fakeTranslator) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func (f *fakeTranslator) Outstanding() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

type recordingObserver struct {
	mu           sync.Mutex
	states       []fsm.State
	translations []string
	availability []bool
}

func (r *recordingObserver) OnStateChanged(s fsm.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recordingObserver) OnTranslationReady(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.translations = append(r.translations, text)
}

func (r *recordingObserver) OnAvailabilityChanged(ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.availability = append(r.availability, ok)
}

func (r *recordingObserver) States() []fsm.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]fsm.State(nil), r.states...)
}

func (r *recordingObserver) Translations() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.translations...)
}

type harness struct {
	ctrl       *Controller
	engine     *fakeEngine
	authorizer *fakeAuthorizer
	translator *fakeTranslator
	observer   *recordingObserver
}

func newHarness(auth recognition.AuthorizationStatus) *harness {
	h := &harness{
		engine:     &fakeEngine{},
		authorizer: &fakeAuthorizer{auto: auth},
		translator: &fakeTranslator{},
		observer:   &recordingObserver{},
	}
	h.ctrl = NewController(nil, h.engine, h.authorizer, h.translator)
	h.ctrl.Register(h.observer)
	return h
}

// step drains every queued input on the calling goroutine.
func (h *harness) step() {
	h.ctrl.drain(context.Background())
}

func (h *harness) toggle(t *testing.T) {
	t.Helper()
	if _, err := h.ctrl.Toggle(); err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	h.step()
}

func waitForState(t *testing.T, ctrl *Controller, desired fsm.Kind) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ctrl.State().Kind == desired {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %s (current=%s)", desired, ctrl.State())
}
