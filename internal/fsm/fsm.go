// Package fsm defines the pure session lifecycle: states, events and the
// side-effect signals a transition asks its caller to perform.
package fsm

import "strings"

// EventKind names one input to the state machine.
type EventKind string

const (
	EventStartRequested             EventKind = "start_requested"
	EventStopRequested              EventKind = "stop_requested"
	EventReset                      EventKind = "reset"
	EventAuthorizationGranted       EventKind = "authorization_granted"
	EventAuthorizationDenied        EventKind = "authorization_denied"
	EventAuthorizationRestricted    EventKind = "authorization_restricted"
	EventAuthorizationNotDetermined EventKind = "authorization_not_determined"
	EventPartialTranscript          EventKind = "partial_transcript"
	EventFinalTranscript            EventKind = "final_transcript"
	EventAvailabilityChanged        EventKind = "availability_changed"
	EventEngineStopped              EventKind = "engine_stopped"
	EventCancelled                  EventKind = "cancelled"
	EventEngineFailure              EventKind = "engine_failure"
)

// Event is one machine input. Text carries transcripts, Available the
// recognizer availability and Err the failure category.
type Event struct {
	Kind      EventKind
	Text      string
	Available bool
	Err       ErrorKind
}

func StartRequested() Event { return Event{Kind: EventStartRequested} }
func StopRequested() Event { return Event{Kind: EventStopRequested} }
func Reset() Event { return Event{Kind: EventReset} }
func Partial(text string) Event { return Event{Kind: EventPartialTranscript, Text: text} }
func Final(text string) Event { return Event{Kind: EventFinalTranscript, Text: text} }
func AvailabilityChanged(ok bool) Event { return Event{Kind: EventAvailabilityChanged, Available: ok} }
func EngineStopped() Event { return Event{Kind: EventEngineStopped} }
func Cancelled() Event { return Event{Kind: EventCancelled} }
func EngineFailure(kind ErrorKind) Event {
	return Event{Kind: EventEngineFailure, Err: kind}
}

// SignalKind names the side effect requested by a transition.
type SignalKind string

const (
	SignalNone      SignalKind = "none"
	SignalNotify    SignalKind = "notify"
	SignalTranslate SignalKind = "translate"
)

// Signal is the side effect the caller must perform after a transition.
// SignalTranslate implies an observer notification as well.
type Signal struct {
	Kind SignalKind
	Text string
}

var (
	none   = Signal{Kind: SignalNone}
	notify = Signal{Kind: SignalNotify}
)

// Apply computes the next state for event. Events that do not apply to the
// current state leave it unchanged and return SignalNone.
func Apply(current State, event Event) (State, Signal) {
	if current.Kind == "" {
		current = Idle()
	}

	switch event.Kind {
	case EventStartRequested:
		if current.Kind == KindIdle || current.Terminal() {
			return Authorizing(), notify
		}
	case EventStopRequested:
		if current.Active() {
			return Stopped(StopUser), notify
		}
	case EventReset:
		if current.Terminal() {
			return Idle(), notify
		}
	case EventAuthorizationGranted:
		if current.Kind == KindAuthorizing {
			return Listening(""), notify
		}
	case EventAuthorizationDenied:
		return authorizationFailed(current, ErrPermissionDenied)
	case EventAuthorizationRestricted:
		return authorizationFailed(current, ErrPermissionRestricted)
	case EventAuthorizationNotDetermined:
		return authorizationFailed(current, ErrPermissionNotDetermined)
	case EventPartialTranscript:
		if current.Kind == KindListening && current.Transcript != event.Text {
			return Listening(event.Text), notify
		}
	case EventFinalTranscript:
		if current.Kind != KindListening {
			break
		}
		if strings.TrimSpace(event.Text) == "" {
			return Stopped(StopEmptyResult), notify
		}
		return Finalized(event.Text), Signal{Kind: SignalTranslate, Text: event.Text}
	case EventEngineStopped:
		if current.Kind == KindListening {
			return Stopped(StopEngine), notify
		}
	case EventCancelled:
		if current.Kind != KindStopped {
			return Stopped(StopCancelled), notify
		}
	case EventEngineFailure:
		if current.Active() {
			return Failed(event.Err), notify
		}
	}

	return current, none
}

func authorizationFailed(current State, kind ErrorKind) (State, Signal) {
	if current.Kind != KindAuthorizing {
		return current, none
	}
	return Failed(kind), notify
}
