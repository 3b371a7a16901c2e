package ipc

// Request is one newline-delimited JSON command sent to the owning process.
type Request struct {
	Command string `json:"command"`
}

// Response reports the outcome of a Request plus a snapshot of session state.
type Response struct {
	OK          bool   `json:"ok"`
	State       string `json:"state,omitempty"`
	Transcript  string `json:"transcript,omitempty"`
	ErrorKind   string `json:"error_kind,omitempty"`
	Translating bool   `json:"translating,omitempty"`
	Message     string `json:"message,omitempty"`
	Error       string `json:"error,omitempty"`
}
