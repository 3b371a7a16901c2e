package listen

import "strings"

// utterance accumulates finalized segments plus the latest interim text.
type utterance struct {
	segments []string
	interim  string
}

// commit records a finalized segment and clears the interim text.
func (u *utterance) commit(text string) {
	u.segments = appendSegment(u.segments, text)
	u.interim = ""
}

// observe replaces the interim text.
func (u *utterance) observe(text string) {
	u.interim = cleanSegment(text)
}

// text joins committed segments with any trailing interim text.
func (u *utterance) text() string {
	segments := append([]string(nil), u.segments...)
	if u.interim != "" {
		segments = appendSegment(segments, u.interim)
	}
	return strings.Join(segments, " ")
}

func (u *utterance) reset() {
	u.segments = nil
	u.interim = ""
}

// appendSegment merges continuation segments so repeated results do not grow the text.
func appendSegment(segments []string, transcript string) []string {
	transcript = cleanSegment(transcript)
	if transcript == "" {
		return segments
	}
	if len(segments) == 0 {
		return append(segments, transcript)
	}

	last := segments[len(segments)-1]
	switch {
	case transcript == last:
		return segments
	case strings.HasPrefix(transcript, last):
		segments[len(segments)-1] = transcript
		return segments
	case strings.HasPrefix(last, transcript):
		return segments
	default:
		return append(segments, transcript)
	}
}

func cleanSegment(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}
