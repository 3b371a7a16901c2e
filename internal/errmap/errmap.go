// Package errmap classifies engine and permission failures into fsm.ErrorKind.
package errmap

import (
	"errors"
	"net"

	"github.com/rbright/habla/internal/fsm"
	"github.com/rbright/habla/internal/recognition"
)

var causeKinds = map[recognition.Cause]fsm.ErrorKind{
	recognition.CausePermissionDenied:        fsm.ErrPermissionDenied,
	recognition.CausePermissionRestricted:    fsm.ErrPermissionRestricted,
	recognition.CausePermissionNotDetermined: fsm.ErrPermissionNotDetermined,
	recognition.CauseAudioSessionUnavailable: fsm.ErrAudioSessionUnavailable,
	recognition.CauseInputUnavailable:        fsm.ErrInputUnavailable,
	recognition.CauseInvalidRequest:          fsm.ErrInvalidRequest,
	recognition.CauseEngineUnavailable:       fsm.ErrEngineUnavailable,
}

// Map returns the ErrorKind for err. It is total: nil and unrecognised
// errors map to fsm.ErrUnknown.
func Map(err error) fsm.ErrorKind {
	if err == nil {
		return fsm.ErrUnknown
	}
	if cause, ok := recognition.CauseOf(err); ok {
		if kind, known := causeKinds[cause]; known {
			return kind
		}
		return fsm.ErrUnknown
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return fsm.ErrEngineUnavailable
	}
	return fsm.ErrUnknown
}

// FromAuthorization converts a permission outcome into a machine event.
func FromAuthorization(status recognition.AuthorizationStatus) fsm.Event {
	switch status {
	case recognition.AuthorizationGranted:
		return fsm.Event{Kind: fsm.EventAuthorizationGranted}
	case recognition.AuthorizationDenied:
		return fsm.Event{Kind: fsm.EventAuthorizationDenied}
	case recognition.AuthorizationRestricted:
		return fsm.Event{Kind: fsm.EventAuthorizationRestricted}
	default:
		return fsm.Event{Kind: fsm.EventAuthorizationNotDetermined}
	}
}

// FromEngine converts an engine event into a machine event.
func FromEngine(ev recognition.Event) fsm.Event {
	switch ev.Kind {
	case recognition.EventPartial:
		return fsm.Partial(ev.Text)
	case recognition.EventFinal:
		return fsm.Final(ev.Text)
	case recognition.EventAvailability:
		return fsm.AvailabilityChanged(ev.Available)
	case recognition.EventStopped:
		return fsm.EngineStopped()
	case recognition.EventCancelled:
		return fsm.Cancelled()
	default:
		return fsm.EngineFailure(Map(ev.Err))
	}
}

var messages = map[fsm.ErrorKind]string{
	fsm.ErrPermissionDenied:        "Speech recognition access denied",
	fsm.ErrPermissionRestricted:    "Speech recognition access restricted",
	fsm.ErrPermissionNotDetermined: "Speech recognition not yet authorized",
	fsm.ErrAudioSessionUnavailable: "Audio session unavailable",
	fsm.ErrInputUnavailable:        "Input node unavailable",
	fsm.ErrInvalidRequest:          "Recognition request is null. Expected non-null value",
	fsm.ErrEngineUnavailable:       "Audio engine is unavailable. Cannot perform speech recognition",
	fsm.ErrUnknown:                 "Unknown error occurred",
}

// Message returns the user-facing text for kind.
func Message(kind fsm.ErrorKind) string {
	if msg, ok := messages[kind]; ok {
		return msg
	}
	return messages[fsm.ErrUnknown]
}
