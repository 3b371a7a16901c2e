package indicator

import (
	"os"
	"strings"

	"github.com/rbright/habla/internal/errmap"
	"github.com/rbright/habla/internal/fsm"
)

// level selects color, icon and lifetime of a status line.
type level int

const (
	levelIdle level = iota
	levelBusy
	levelListening
	levelRecognized
	levelDone
	levelNotice
	levelError
)

// transient levels disappear after the error timeout.
func (l level) transient() bool {
	return l == levelNotice || l == levelError
}

type status struct {
	level level
	text  string
}

type locale string

const (
	localeEnglish locale = "en"
	localeSpanish locale = "es"
)

type texts struct {
	idle          string
	authorizing   string
	listening     string
	translating   string
	stopped       map[fsm.StopReason]string
	noTranslation string
	unavailable   string
}

func textsFromEnv() texts {
	return textsFor(resolveLocale(os.Getenv("LANG")))
}

func resolveLocale(raw string) locale {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if strings.HasPrefix(raw, "es") {
		return localeSpanish
	}
	return localeEnglish
}

func textsFor(tag locale) texts {
	switch tag {
	case localeSpanish:
		return texts{
			idle:        "Pulsa el atajo para empezar a traducir",
			authorizing: "Comprobando el micrófono…",
			listening:   "Habla para traducir",
			translating: "Espera mientras llega la traducción",
			stopped: map[fsm.StopReason]string{
				fsm.StopUser:        "Traducción detenida",
				fsm.StopEmptyResult: "No se reconoció ninguna frase",
				fsm.StopEngine:      "El reconocedor terminó la sesión",
				fsm.StopCancelled:   "Traducción cancelada",
			},
			noTranslation: "Traducción no disponible",
			unavailable:   "Reconocedor no disponible",
		}
	default:
		return texts{
			idle:        "Press toggle to begin translation",
			authorizing: "Checking microphone access…",
			listening:   "Provide input to translate",
			translating: "Please wait while we get translations from server",
			stopped: map[fsm.StopReason]string{
				fsm.StopUser:        "Translation stopped",
				fsm.StopEmptyResult: "No speech recognized",
				fsm.StopEngine:      "Recognizer ended the session",
				fsm.StopCancelled:   "Translation cancelled",
			},
			noTranslation: "Translation unavailable",
			unavailable:   "Speech recognizer unavailable",
		}
	}
}

// statusFor renders a session state.
func (t texts) statusFor(s fsm.State) status {
	switch s.Kind {
	case fsm.KindAuthorizing:
		return status{level: levelBusy, text: t.authorizing}
	case fsm.KindListening:
		if s.Transcript == "" {
			return status{level: levelListening, text: t.listening}
		}
		return status{level: levelRecognized, text: s.Transcript}
	case fsm.KindFinalized:
		return status{level: levelBusy, text: t.translating}
	case fsm.KindStopped:
		text, ok := t.stopped[s.Reason]
		if !ok {
			text = t.stopped[fsm.StopUser]
		}
		return status{level: levelNotice, text: text}
	case fsm.KindFailed:
		return status{level: levelError, text: errmap.Message(s.Err)}
	default:
		return status{level: levelIdle, text: t.idle}
	}
}

// statusForTranslation renders a completed translation.
func (t texts) statusForTranslation(text string) status {
	if strings.TrimSpace(text) == "" {
		return status{level: levelError, text: t.noTranslation}
	}
	return status{level: levelDone, text: text}
}
