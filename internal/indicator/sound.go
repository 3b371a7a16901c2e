package indicator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"time"

	"github.com/jfreymuth/pulse"
	"github.com/rbright/habla/internal/config"
)

type cueKind int

const (
	cueStart cueKind = iota + 1
	cueStop
	cueComplete
	cueError
)

const (
	cueSampleRate  = 16000
	cueGap         = 22 * time.Millisecond
	cueMaxRamp     = 5 * time.Millisecond
	cueFileTimeout = 4 * time.Second
)

// tone is one sine segment of a synthesized cue.
type tone struct {
	hz     float64
	length time.Duration
	gain   float64
}

// cue pairs a synthesized fallback with the config field naming a sound file.
type cue struct {
	name   string
	pcm    []int16
	fileOf func(config.IndicatorConfig) string
}

var cues = map[cueKind]cue{
	cueStart: {
		name:   "start",
		pcm:    render(tone{880, 70 * time.Millisecond, 0.18}, tone{1175, 70 * time.Millisecond, 0.18}),
		fileOf: func(c config.IndicatorConfig) string { return c.SoundStartFile },
	},
	cueStop: {
		name:   "stop",
		pcm:    render(tone{620, 120 * time.Millisecond, 0.18}),
		fileOf: func(c config.IndicatorConfig) string { return c.SoundStopFile },
	},
	cueComplete: {
		name:   "complete",
		pcm:    render(tone{740, 65 * time.Millisecond, 0.18}, tone{988, 90 * time.Millisecond, 0.18}),
		fileOf: func(c config.IndicatorConfig) string { return c.SoundCompleteFile },
	},
	cueError: {
		name: "error",
		pcm: render(
			tone{480, 75 * time.Millisecond, 0.2},
			tone{360, 75 * time.Millisecond, 0.2},
			tone{270, 110 * time.Millisecond, 0.2},
		),
		fileOf: func(c config.IndicatorConfig) string { return c.SoundErrorFile },
	},
}

// filePlayers are tried in order for configured cue files.
var filePlayers = [][]string{
	{"pw-play", "--media-role", "Notification"},
	{"paplay"},
}

func (k cueKind) String() string {
	if c, ok := cues[k]; ok {
		return c.name
	}
	return "unknown"
}

// emitCue plays the configured cue file, falling back to the synthesized tone.
func emitCue(ctx context.Context, kind cueKind, cfg config.IndicatorConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c, ok := cues[kind]
	if !ok {
		return nil
	}
	if path := config.ExpandHome(c.fileOf(cfg)); path != "" {
		if err := playCueFile(ctx, path); err == nil {
			return nil
		}
	}
	return playSynthCue(ctx, c.pcm)
}

func playCueFile(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("stat cue file %q: %w", path, err)
	}

	ctx, cancel := context.WithTimeout(ctx, cueFileTimeout)
	defer cancel()

	var errs []error
	for _, player := range filePlayers {
		argv := append(append([]string{}, player...), path)
		if err := exec.CommandContext(ctx, argv[0], argv[1:]...).Run(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", argv[0], err))
			continue
		}
		return nil
	}
	return fmt.Errorf("play cue file %q: %w", path, errors.Join(errs...))
}

func playSynthCue(ctx context.Context, samples []int16) error {
	if len(samples) == 0 {
		return nil
	}
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("habla"),
		pulse.ClientApplicationIconName("preferences-desktop-locale"),
	)
	if err != nil {
		return fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	remaining := samples
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if len(remaining) == 0 || ctx.Err() != nil {
			return 0, pulse.EndOfData
		}
		n := copy(buf, remaining)
		remaining = remaining[n:]
		if len(remaining) == 0 {
			return n, pulse.EndOfData
		}
		return n, nil
	})

	stream, err := client.NewPlayback(
		reader,
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(cueSampleRate),
		pulse.PlaybackLatency(0.02),
		pulse.PlaybackMediaName("habla indicator cue"),
	)
	if err != nil {
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play cue stream: %w", err)
	}
	return nil
}

// render concatenates tones separated by cueGap of silence.
func render(tones ...tone) []int16 {
	var pcm []int16
	for i, t := range tones {
		if i > 0 {
			pcm = append(pcm, make([]int16, sampleCount(cueGap))...)
		}
		pcm = append(pcm, t.samples()...)
	}
	return pcm
}

// samples renders t with a short linear fade at both ends so segments do
// not click.
func (t tone) samples() []int16 {
	n := sampleCount(t.length)
	if n <= 0 || t.hz <= 0 || t.gain <= 0 {
		return nil
	}
	ramp := max(1, min(n/10, sampleCount(cueMaxRamp)))

	pcm := make([]int16, n)
	for i := range pcm {
		envelope := min(1, float64(i)/float64(ramp), float64(n-1-i)/float64(ramp))
		phase := 2 * math.Pi * t.hz * float64(i) / cueSampleRate
		pcm[i] = int16(math.Round(math.Sin(phase) * t.gain * envelope * math.MaxInt16))
	}
	return pcm
}

func sampleCount(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * cueSampleRate))
}
