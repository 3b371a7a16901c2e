// Package pipeline implements the recognition engine: Pulse capture streamed
// to a websocket recognizer.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rbright/habla/internal/audio"
	"github.com/rbright/habla/internal/config"
	"github.com/rbright/habla/internal/listen"
	"github.com/rbright/habla/internal/recognition"
	"github.com/rbright/habla/internal/version"
)

// pcmSource is the part of *audio.Capture the engine drives.
type pcmSource interface {
	Chunks() <-chan []byte
	Stop() error
	RawPCM() []byte
	BytesCaptured() int64
}

// Engine runs at most one capture/recognition pass at a time.
type Engine struct {
	cfg    config.Config
	logger *slog.Logger

	selectDevice func(ctx context.Context, input string, fallback string) (audio.Selection, error)
	startCapture func(ctx context.Context, device audio.Device, opts audio.CaptureOptions) (pcmSource, error)
	dial         func(ctx context.Context, cfg listen.Config) (*listen.Stream, error)

	mu  sync.Mutex
	run *run
	seq uint64

	availMu   sync.Mutex
	available *bool
}

type run struct {
	id      uint64
	sink    recognition.Sink
	cancel  context.CancelFunc
	capture pcmSource
	stream  *listen.Stream
	device  audio.Device
	started time.Time
	events  *os.File
	done    chan struct{}
}

var _ recognition.Engine = (*Engine)(nil)

// NewEngine constructs an engine from runtime config.
func NewEngine(cfg config.Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		cfg:          cfg,
		logger:       logger,
		selectDevice: audio.SelectDevice,
		startCapture: func(ctx context.Context, device audio.Device, opts audio.CaptureOptions) (pcmSource, error) {
			return audio.StartCapture(ctx, device, opts)
		},
		dial: listen.Dial,
	}
}

// Start selects a device, opens the recognizer stream and begins capture.
func (e *Engine) Start(ctx context.Context, sink recognition.Sink) error {
	if sink == nil {
		return fmt.Errorf("%w: nil event sink", recognition.CauseInvalidRequest)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.run != nil {
		return fmt.Errorf("%w: recognition already running", recognition.CauseInvalidRequest)
	}

	selection, err := e.selectDevice(ctx, e.cfg.Audio.Input, e.cfg.Audio.Fallback)
	if err != nil {
		return classifyDeviceError(err)
	}
	if selection.Warning != "" {
		e.logger.Warn(selection.Warning)
	}

	keywords, _, err := config.BuildKeywords(e.cfg)
	if err != nil {
		return fmt.Errorf("%w: build keywords: %w", recognition.CauseInvalidRequest, err)
	}

	var events *os.File
	if e.cfg.Debug.EnableEventDump {
		events, err = createDebugFile("events", "jsonl")
		if err != nil {
			e.logger.Warn("unable to create event dump", "error", err)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	stream, err := e.dial(ctx, e.listenConfig(keywords, events))
	if err != nil {
		cancel()
		closeFile(events)
		e.setAvailable(sink, false)
		return fmt.Errorf("%w: %w", recognition.CauseEngineUnavailable, err)
	}
	e.setAvailable(sink, true)

	capture, err := e.startCapture(runCtx, selection.Device, audio.CaptureOptions{KeepRaw: e.cfg.Debug.EnableAudioDump})
	if err != nil {
		cancel()
		_ = stream.Close()
		closeFile(events)
		return fmt.Errorf("%w: %w", recognition.CauseAudioSessionUnavailable, err)
	}

	e.seq++
	r := &run{
		id:      e.seq,
		sink:    sink,
		cancel:  cancel,
		capture: capture,
		stream:  stream,
		device:  selection.Device,
		started: time.Now(),
		events:  events,
		done:    make(chan struct{}),
	}
	e.run = r

	go pump(r)
	go e.forward(r)

	e.logger.Info("recognition started", "run", r.id, "device", describeDevice(selection.Device))
	return nil
}

// Stop ends the current run. Events the run produces afterwards are dropped.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	r := e.run
	e.run = nil
	e.mu.Unlock()

	if r == nil {
		return nil
	}

	_ = r.capture.Stop()
	_ = r.stream.Close()
	r.cancel()

	var err error
	select {
	case <-r.done:
	case <-ctx.Done():
		err = ctx.Err()
	}

	e.writeDebugAudio(r.capture.RawPCM())
	closeFile(r.events)

	e.logger.Info("recognition stopped",
		"run", r.id,
		"bytes_captured", r.capture.BytesCaptured(),
		"duration_ms", time.Since(r.started).Milliseconds(),
	)
	return err
}

// current reports whether r is still the engine's active run.
func (e *Engine) current(r *run) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.run == r
}

func (e *Engine) deliver(r *run, ev recognition.Event) bool {
	if !e.current(r) {
		return false
	}
	r.sink.OnEngineEvent(ev)
	return true
}

// forward translates recognizer output into engine events. A stream that
// ends without a final reports a stop, or a failure when it broke.
func (e *Engine) forward(r *run) {
	defer close(r.done)

	finalSent := false
	for ev := range r.stream.Events() {
		switch ev.Kind {
		case listen.EventPartial:
			e.deliver(r, recognition.Partial(ev.Text))
		case listen.EventFinal:
			if e.deliver(r, recognition.Final(ev.Text)) {
				finalSent = true
			}
		}
	}

	err := r.stream.Wait()
	if finalSent {
		return
	}
	if err != nil {
		e.logger.Warn("recognizer stream failed", "run", r.id, "error", err)
		if e.deliver(r, recognition.Failure(fmt.Errorf("%w: %w", recognition.CauseEngineUnavailable, err))) {
			e.setAvailable(r.sink, false)
		}
		return
	}
	e.deliver(r, recognition.Stopped())
}

// pump feeds capture chunks to the recognizer until capture stops.
func pump(r *run) {
	failed := false
	for chunk := range r.capture.Chunks() {
		if failed {
			continue
		}
		if err := r.stream.SendAudio(chunk); err != nil {
			failed = true
		}
	}
	_ = r.stream.CloseSend()
}

func (e *Engine) listenConfig(keywords []config.Keyword, events *os.File) listen.Config {
	rc := e.cfg.Recognizer
	lc := listen.Config{
		URL:           rc.URL,
		APIKey:        rc.APIKey,
		Model:         rc.Model,
		Language:      rc.Language,
		SampleRate:    audio.SampleRate,
		Channels:      1,
		Punctuate:     rc.Punctuate,
		Interim:       rc.Interim,
		EndpointingMS: rc.EndpointingMS,
		DialTimeout:   time.Duration(rc.DialTimeoutMS) * time.Millisecond,
		UserAgent:     version.UserAgent(),
	}
	for _, keyword := range keywords {
		lc.Keywords = append(lc.Keywords, listen.Keyword{Phrase: keyword.Phrase, Boost: keyword.Boost})
	}
	if events != nil {
		lc.DebugSink = events
	}
	return lc
}

// setAvailable reports recognizer availability transitions to the sink.
func (e *Engine) setAvailable(sink recognition.Sink, ok bool) {
	e.availMu.Lock()
	changed := e.available == nil || *e.available != ok
	e.available = &ok
	e.availMu.Unlock()
	if changed {
		sink.OnEngineEvent(recognition.Availability(ok))
	}
}

// classifyDeviceError separates missing or unusable inputs from a dead sound server.
func classifyDeviceError(err error) error {
	switch {
	case errors.Is(err, audio.ErrNoDevices),
		errors.Is(err, audio.ErrNoMatch),
		errors.Is(err, audio.ErrMuted),
		errors.Is(err, audio.ErrUnavailable):
		return fmt.Errorf("%w: %w", recognition.CauseInputUnavailable, err)
	default:
		return fmt.Errorf("%w: %w", recognition.CauseAudioSessionUnavailable, err)
	}
}

func describeDevice(device audio.Device) string {
	description := strings.TrimSpace(device.Description)
	id := strings.TrimSpace(device.ID)
	if description == "" {
		return id
	}
	if id == "" {
		return description
	}
	return fmt.Sprintf("%s (%s)", description, id)
}

func (e *Engine) writeDebugAudio(rawPCM []byte) {
	if !e.cfg.Debug.EnableAudioDump || len(rawPCM) == 0 {
		return
	}

	file, err := createDebugFile("audio", "wav")
	if err != nil {
		e.logger.Warn("unable to create debug audio dump", "error", err)
		return
	}
	defer file.Close()

	if err := writePCM16WAV(file, rawPCM, audio.SampleRate, 1); err != nil {
		e.logger.Warn("unable to write debug audio dump", "error", err)
	}
}

func closeFile(f *os.File) {
	if f != nil {
		_ = f.Close()
	}
}
