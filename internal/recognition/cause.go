package recognition

import "errors"

// Cause is the closed set of engine failure causes. Engines wrap their errors
// with one of these so callers can classify them with errors.Is.
type Cause string

const (
	CausePermissionDenied        Cause = "permission denied"
	CausePermissionRestricted    Cause = "permission restricted"
	CausePermissionNotDetermined Cause = "permission not determined"
	CauseAudioSessionUnavailable Cause = "audio session unavailable"
	CauseInputUnavailable        Cause = "input unavailable"
	CauseInvalidRequest          Cause = "invalid recognition request"
	CauseEngineUnavailable       Cause = "recognition engine unavailable"
)

func (c Cause) Error() string {
	return string(c)
}

// CauseOf extracts the first Cause in err's chain.
func CauseOf(err error) (Cause, bool) {
	var cause Cause
	if errors.As(err, &cause) {
		return cause, true
	}
	return "", false
}
