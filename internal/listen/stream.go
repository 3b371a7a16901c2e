// Package listen streams PCM audio to a websocket speech recognizer and
// reports partial and final transcripts.
package listen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrSendClosed is returned by SendAudio after CloseSend or Close.
var ErrSendClosed = errors.New("audio stream is already closed")

// Keyword is one boosted recognition hint.
type Keyword struct {
	Phrase string
	Boost  float64
}

// Config describes one recognizer stream.
type Config struct {
	URL           string
	APIKey        string
	Model         string
	Language      string
	SampleRate    int
	Channels      int
	Punctuate     bool
	Interim       bool
	EndpointingMS int
	Keywords      []Keyword
	DialTimeout   time.Duration
	UserAgent     string

	// DebugSink receives every raw server message, newline separated.
	DebugSink io.Writer
}

// EventKind distinguishes interim and finished utterance text.
type EventKind int

const (
	EventPartial EventKind = iota
	EventFinal
)

func (k EventKind) String() string {
	if k == EventFinal {
		return "final"
	}
	return "partial"
}

// Event carries the accumulated utterance text so far.
type Event struct {
	Kind EventKind
	Text string
}

// Stream is one open recognizer connection.
type Stream struct {
	conn  *websocket.Conn
	debug io.Writer

	events chan Event
	audio  chan []byte
	quit     chan struct{}
	readDone chan struct{}
	done     chan struct{}

	wg sync.WaitGroup

	errMu sync.Mutex
	err   error

	closeSendOnce sync.Once
	closeOnce     sync.Once
	sendMu        sync.RWMutex
	sendClosed    bool

	// owned by readLoop
	utt         utterance
	lastPartial string
}

// Dial opens a recognizer stream. ctx bounds only the handshake; the stream
// lives until Close or until the server ends it.
func Dial(ctx context.Context, cfg Config) (*Stream, error) {
	target, err := buildURL(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}

	headers := http.Header{}
	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		headers.Set("Authorization", "Token "+key)
	}
	if cfg.UserAgent != "" {
		headers.Set("User-Agent", cfg.UserAgent)
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: cfg.DialTimeout,
	}
	conn, resp, err := dialer.DialContext(ctx, target, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("connect recognizer %s: %w (http %d)", redact(target), err, resp.StatusCode)
		}
		return nil, fmt.Errorf("connect recognizer %s: %w", redact(target), err)
	}

	s := &Stream{
		conn:     conn,
		debug:    cfg.DebugSink,
		events:   make(chan Event, 64),
		audio:    make(chan []byte, 32),
		quit:     make(chan struct{}),
		readDone: make(chan struct{}),
		done:     make(chan struct{}),
	}

	s.wg.Add(2)
	go s.readLoop()
	go s.writeLoop()
	go func() {
		s.wg.Wait()
		close(s.events)
		close(s.done)
		_ = conn.Close()
	}()

	return s, nil
}

// SendAudio queues one PCM chunk.
func (s *Stream) SendAudio(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}

	s.sendMu.RLock()
	defer s.sendMu.RUnlock()
	if s.sendClosed {
		return ErrSendClosed
	}

	copied := append([]byte(nil), chunk...)
	select {
	case s.audio <- copied:
		return nil
	case <-s.done:
		if err := s.waitErr(); err != nil {
			return err
		}
		return errors.New("recognizer stream closed")
	}
}

// CloseSend flushes queued audio and asks the server to finish the stream.
func (s *Stream) CloseSend() error {
	s.closeSendOnce.Do(func() {
		s.sendMu.Lock()
		s.sendClosed = true
		close(s.audio)
		s.sendMu.Unlock()
	})
	return nil
}

// Events yields transcript updates and is closed when the stream ends.
func (s *Stream) Events() <-chan Event {
	return s.events
}

// Wait blocks until the stream ends and returns its terminal error.
func (s *Stream) Wait() error {
	<-s.done
	return s.waitErr()
}

// Close tears the connection down without waiting for pending results.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		close(s.quit)
		_ = s.CloseSend()
		_ = s.conn.Close()
	})
	<-s.done
	return s.waitErr()
}

func (s *Stream) closing() bool {
	select {
	case <-s.quit:
		return true
	default:
		return false
	}
}

func (s *Stream) waitErr() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *Stream) setErr(err error) {
	if err == nil || s.closing() {
		return
	}
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) {
		return
	}

	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *Stream) writeLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.readDone:
			return
		case chunk, ok := <-s.audio:
			if !ok {
				if s.closing() {
					return
				}
				if err := s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`)); err != nil {
					s.setErr(fmt.Errorf("close stream: %w", err))
				}
				return
			}
			if s.closing() {
				continue
			}
			if err := s.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
				s.setErr(fmt.Errorf("send audio: %w", err))
				return
			}
		}
	}
}

func (s *Stream) readLoop() {
	defer s.wg.Done()
	defer close(s.readDone)

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			s.setErr(fmt.Errorf("read recognizer message: %w", err))
			s.flush()
			return
		}
		if s.debug != nil {
			_, _ = s.debug.Write(append(payload, '\n'))
		}

		var msg message
		if err := json.Unmarshal(payload, &msg); err != nil {
			continue
		}

		switch strings.ToLower(msg.Type) {
		case "error":
			text := strings.TrimSpace(msg.Message)
			if text == "" {
				text = "recognizer returned an unknown error"
			}
			s.setErr(errors.New(text))
			return
		case "utteranceend":
			s.flush()
			continue
		}

		text := msg.transcript()
		if msg.IsFinal {
			s.utt.commit(text)
		} else {
			s.utt.observe(text)
		}

		if msg.SpeechFinal {
			s.endUtterance()
			continue
		}
		if current := s.utt.text(); current != "" && current != s.lastPartial {
			s.lastPartial = current
			s.emit(Event{Kind: EventPartial, Text: current})
		}
	}
}

// endUtterance emits the accumulated text as final, even when empty.
func (s *Stream) endUtterance() {
	text := s.utt.text()
	s.utt.reset()
	s.lastPartial = ""
	s.emit(Event{Kind: EventFinal, Text: text})
}

// flush emits a final only when text is pending.
func (s *Stream) flush() {
	if s.utt.text() == "" {
		return
	}
	s.endUtterance()
}

func (s *Stream) emit(event Event) {
	select {
	case s.events <- event:
	case <-s.quit:
	}
}

type alternatives []struct {
	Transcript string `json:"transcript"`
}

type message struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`

	Channel struct {
		Alternatives alternatives `json:"alternatives"`
	} `json:"channel"`
}

func (m message) transcript() string {
	if len(m.Channel.Alternatives) == 0 {
		return ""
	}
	return cleanSegment(m.Channel.Alternatives[0].Transcript)
}

// redact drops the query so keywords and tokens stay out of errors.
func redact(target string) string {
	if i := strings.IndexByte(target, '?'); i >= 0 {
		return target[:i]
	}
	return target
}
