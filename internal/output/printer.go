package output

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rbright/habla/internal/fsm"
)

// Printer writes every non-empty translation as one line, for piping
// `habla serve` into other tools.
type Printer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewPrinter prints to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

func (p *Printer) OnStateChanged(fsm.State) {}

func (p *Printer) OnTranslationReady(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintln(p.w, strings.ReplaceAll(text, "\n", " "))
}
