package fsm

import "fmt"

// Kind names one variant of the session State.
type Kind string

const (
	KindIdle        Kind = "idle"
	KindAuthorizing Kind = "authorizing"
	KindListening   Kind = "listening"
	KindFinalized   Kind = "finalized"
	KindStopped     Kind = "stopped"
	KindFailed      Kind = "failed"
)

// ErrorKind is the closed set of failure categories a session can end in.
type ErrorKind string

const (
	ErrPermissionDenied        ErrorKind = "permission_denied"
	ErrPermissionRestricted    ErrorKind = "permission_restricted"
	ErrPermissionNotDetermined ErrorKind = "permission_not_determined"
	ErrAudioSessionUnavailable ErrorKind = "audio_session_unavailable"
	ErrInputUnavailable        ErrorKind = "input_unavailable"
	ErrInvalidRequest          ErrorKind = "invalid_request"
	ErrEngineUnavailable       ErrorKind = "engine_unavailable"
	ErrUnknown                 ErrorKind = "unknown"
)

// ErrorKinds lists every ErrorKind in a stable order.
var ErrorKinds = []ErrorKind{
	ErrPermissionDenied,
	ErrPermissionRestricted,
	ErrPermissionNotDetermined,
	ErrAudioSessionUnavailable,
	ErrInputUnavailable,
	ErrInvalidRequest,
	ErrEngineUnavailable,
	ErrUnknown,
}

// Valid reports whether k belongs to the closed set.
func (k ErrorKind) Valid() bool {
	for _, known := range ErrorKinds {
		if k == known {
			return true
		}
	}
	return false
}

// StopReason records why a session reached the stopped state.
type StopReason string

const (
	StopUser        StopReason = "user"
	StopEmptyResult StopReason = "empty_result"
	StopEngine      StopReason = "engine"
	StopCancelled   StopReason = "cancelled"
)

// State is a tagged union over Kind. Transcript is set for listening and
// finalized, Err for failed, Reason for stopped.
type State struct {
	Kind       Kind
	Transcript string
	Err        ErrorKind
	Reason     StopReason
}

func Idle() State { return State{Kind: KindIdle} }
func Authorizing() State { return State{Kind: KindAuthorizing} }
func Listening(partial string) State { return State{Kind: KindListening, Transcript: partial} }
func Finalized(final string) State { return State{Kind: KindFinalized, Transcript: final} }
func Stopped(reason StopReason) State { return State{Kind: KindStopped, Reason: reason} }
func Failed(kind ErrorKind) State {
	if !kind.Valid() {
		kind = ErrUnknown
	}
	return State{Kind: KindFailed, Err: kind}
}

// EngineRunning reports whether the recognition engine must be running in s.
func (s State) EngineRunning() bool {
	return s.Kind == KindListening
}

// Terminal reports whether s ends an attempt.
func (s State) Terminal() bool {
	switch s.Kind {
	case KindFinalized, KindStopped, KindFailed:
		return true
	default:
		return false
	}
}

// Active reports whether a toggle from s should stop rather than start.
func (s State) Active() bool {
	return s.Kind == KindAuthorizing || s.Kind == KindListening
}

func (s State) String() string {
	switch s.Kind {
	case KindListening, KindFinalized:
		return fmt.Sprintf("%s(%q)", s.Kind, s.Transcript)
	case KindFailed:
		return fmt.Sprintf("%s(%s)", s.Kind, s.Err)
	case KindStopped:
		return fmt.Sprintf("%s(%s)", s.Kind, s.Reason)
	case "":
		return string(KindIdle)
	default:
		return string(s.Kind)
	}
}
