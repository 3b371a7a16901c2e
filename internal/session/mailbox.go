package session

import (
	"sync"

	"github.com/rbright/habla/internal/recognition"
)

type inputKind int

const (
	inputToggle inputKind = iota + 1
	inputStop
	inputReset
	inputEngine
	inputAuthorization
	inputTranslation
)

type input struct {
	kind    inputKind
	event   recognition.Event
	status  recognition.AuthorizationStatus
	attempt string
	text    string
}

// mailbox is an unbounded FIFO so producers never block on the loop.
type mailbox struct {
	mu    sync.Mutex
	items []input
	ready chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{ready: make(chan struct{}, 1)}
}

func (m *mailbox) push(in input) {
	m.mu.Lock()
	m.items = append(m.items, in)
	m.mu.Unlock()

	select {
	case m.ready <- struct{}{}:
	default:
	}
}

func (m *mailbox) take() []input {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.items
	m.items = nil
	return items
}
