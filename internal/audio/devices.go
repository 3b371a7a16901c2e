// Package audio discovers Pulse input sources and captures 16 kHz mono PCM.
package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

const clientName = "habla"

var (
	// ErrNoDevices means Pulse reported no input sources at all.
	ErrNoDevices = errors.New("no audio input devices found")
	// ErrNoMatch means a configured input or fallback matched no source.
	ErrNoMatch = errors.New("audio device not found")
	// ErrMuted means the only usable candidate source is muted.
	ErrMuted = errors.New("audio device is muted")
	// ErrUnavailable means the candidate source has no active port.
	ErrUnavailable = errors.New("audio device is unavailable")
)

// Device describes one Pulse input source.
type Device struct {
	ID          string
	Description string
	State       string
	Available   bool
	Muted       bool
	Default     bool
}

// Usable reports whether capture can start on d.
func (d Device) Usable() bool {
	return d.Available && !d.Muted
}

// Selection is the chosen capture source. Warning is set when the
// configured input was skipped in favour of a fallback.
type Selection struct {
	Device   Device
	Warning  string
	Fallback bool
}

func newClient() (*pulse.Client, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName(clientName),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	return client, nil
}

// ListDevices returns the Pulse input sources with default and availability flags.
func ListDevices(_ context.Context) ([]Device, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	defaultSource, err := client.DefaultSource()
	if err != nil {
		return nil, fmt.Errorf("read default source: %w", err)
	}

	var infos pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &infos); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	devices := make([]Device, 0, len(infos))
	for _, info := range infos {
		if info == nil {
			continue
		}
		devices = append(devices, Device{
			ID:          info.SourceName,
			Description: info.Device,
			State:       sourceState(info.State),
			Available:   portAvailable(info),
			Muted:       info.Mute,
			Default:     info.SourceName == defaultSource.ID(),
		})
	}
	return devices, nil
}

// SelectDevice lists live sources and applies Choose.
func SelectDevice(ctx context.Context, input string, fallback string) (Selection, error) {
	devices, err := ListDevices(ctx)
	if err != nil {
		return Selection{}, err
	}
	return Choose(devices, input, fallback)
}

// Choose picks a capture source: the configured input (or the default source
// when input is empty or "default"), then the fallback when the input is muted
// or unavailable. Errors wrap ErrNoDevices, ErrNoMatch, ErrMuted or ErrUnavailable.
func Choose(devices []Device, input string, fallback string) (Selection, error) {
	if len(devices) == 0 {
		return Selection{}, ErrNoDevices
	}

	input = normalizeTerm(input)
	fallback = normalizeTerm(fallback)

	primary, err := find(devices, input)
	if err != nil {
		return Selection{}, fmt.Errorf("audio.input: %w", err)
	}
	if primary.Usable() {
		return Selection{Device: primary}, nil
	}

	reason := deviceProblem(primary)
	alt, err := find(devices, fallback)
	if err != nil {
		return Selection{}, fmt.Errorf("input %q: %w; audio.fallback: %w", primary.ID, reason, err)
	}
	if !alt.Usable() {
		return Selection{}, fmt.Errorf("fallback %q: %w", alt.ID, deviceProblem(alt))
	}

	return Selection{
		Device:   alt,
		Warning:  fmt.Sprintf("audio.input %q is %s; falling back to %q", primary.ID, reasonWord(reason), alt.ID),
		Fallback: alt.ID != primary.ID,
	}, nil
}

// find resolves one search term; empty means the default source.
func find(devices []Device, term string) (Device, error) {
	for _, dev := range devices {
		if term == "" && dev.Default {
			return dev, nil
		}
		if term != "" && deviceMatches(dev, term) {
			return dev, nil
		}
	}
	if term == "" {
		return Device{}, fmt.Errorf("default source: %w", ErrNoMatch)
	}
	return Device{}, fmt.Errorf("%q: %w", term, ErrNoMatch)
}

func normalizeTerm(term string) string {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "default" {
		return ""
	}
	return term
}

func deviceProblem(dev Device) error {
	if dev.Muted {
		return ErrMuted
	}
	return ErrUnavailable
}

func reasonWord(err error) string {
	if errors.Is(err, ErrMuted) {
		return "muted"
	}
	return "unavailable"
}

// deviceMatches reports whether term is a substring of the id or description.
func deviceMatches(device Device, term string) bool {
	if term == "" {
		return false
	}
	return strings.Contains(strings.ToLower(device.ID), term) ||
		strings.Contains(strings.ToLower(device.Description), term)
}

func sourceState(state uint32) string {
	switch state {
	case 0:
		return "running"
	case 1:
		return "idle"
	case 2:
		return "suspended"
	default:
		return fmt.Sprintf("unknown(%d)", state)
	}
}

func portAvailable(info *pulseproto.GetSourceInfoReply) bool {
	if info == nil {
		return false
	}
	if len(info.Ports) == 0 {
		return true
	}
	for _, port := range info.Ports {
		if port.Name == info.ActivePortName {
			// PulseAudio: unknown=0, no=1, yes=2.
			return port.Available != 1
		}
	}
	return true
}
