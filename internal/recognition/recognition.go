// Package recognition defines the contracts between the session controller
// and a streaming speech recognizer.
package recognition

import "context"

// EventKind names one engine-originated event.
type EventKind string

const (
	EventPartial      EventKind = "partial"
	EventFinal        EventKind = "final"
	EventAvailability EventKind = "availability"
	EventStopped      EventKind = "stopped"
	EventCancelled    EventKind = "cancelled"
	EventFailure      EventKind = "failure"
)

// Event is produced by an Engine and delivered to its Sink.
type Event struct {
	Kind      EventKind
	Text      string
	Available bool
	Err       error
}

func Partial(text string) Event { return Event{Kind: EventPartial, Text: text} }

func Final(text string) Event { return Event{Kind: EventFinal, Text: text} }

func Availability(ok bool) Event { return Event{Kind: EventAvailability, Available: ok} }

func Stopped() Event { return Event{Kind: EventStopped} }

func Cancelled() Event { return Event{Kind: EventCancelled} }

func Failure(err error) Event { return Event{Kind: EventFailure, Err: err} }

// Sink receives engine events. Implementations must not block.
type Sink interface {
	OnEngineEvent(Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

func (f SinkFunc) OnEngineEvent(ev Event) {
	f(ev)
}

// Engine captures audio and streams recognition events to a Sink.
//
// Start begins one recognition run; a returned error means no run started.
// Stop is cooperative and idempotent: it ends capture and lets the recognizer
// flush, but events of a stopped run are no longer delivered.
type Engine interface {
	Start(ctx context.Context, sink Sink) error
	Stop(ctx context.Context) error
}
