package session

import (
	"context"

	"github.com/rbright/habla/internal/fsm"
)

// Observer receives state changes and translation results. Calls are made
// from the controller loop and must not block.
type Observer interface {
	OnStateChanged(fsm.State)
	OnTranslationReady(string)
}

// AvailabilityObserver is optionally implemented by observers that want
// recognizer availability changes, which never alter session state.
type AvailabilityObserver interface {
	OnAvailabilityChanged(bool)
}

// ObserverFuncs adapts optional callbacks to the Observer interface.
type ObserverFuncs struct {
	StateChanged     func(fsm.State)
	TranslationReady func(string)
}

func (f ObserverFuncs) OnStateChanged(s fsm.State) {
	if f.StateChanged != nil {
		f.StateChanged(s)
	}
}

func (f ObserverFuncs) OnTranslationReady(text string) {
	if f.TranslationReady != nil {
		f.TranslationReady(text)
	}
}

// Observers fans every callback out to each member in order.
type Observers []Observer

func (o Observers) OnStateChanged(s fsm.State) {
	for _, obs := range o {
		obs.OnStateChanged(s)
	}
}

func (o Observers) OnTranslationReady(text string) {
	for _, obs := range o {
		obs.OnTranslationReady(text)
	}
}

func (o Observers) OnAvailabilityChanged(ok bool) {
	for _, obs := range o {
		if a, isAvail := obs.(AvailabilityObserver); isAvail {
			a.OnAvailabilityChanged(ok)
		}
	}
}

// Translator requests a translation and reports it through onComplete,
// at most once. Failures are retried or swallowed by the implementation.
type Translator interface {
	Translate(ctx context.Context, text string, onComplete func(string))
}

// TranslatorFunc adapts a function to the Translator interface.
type TranslatorFunc func(context.Context, string, func(string))

func (f TranslatorFunc) Translate(ctx context.Context, text string, onComplete func(string)) {
	f(ctx, text, onComplete)
}
