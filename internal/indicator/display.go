package indicator

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/rbright/habla/internal/hypr"
)

const persistentTimeoutMS = 300000

// display is one rendering surface for status lines.
type display interface {
	show(ctx context.Context, st status, timeoutMS int) error
	clear(ctx context.Context) error
}

var hyprColors = map[level]string{
	levelBusy:       "rgb(cba6f7)",
	levelListening:  "rgb(89b4fa)",
	levelRecognized: "rgb(a6e3a1)",
	levelDone:       "rgb(a6e3a1)",
	levelNotice:     "rgb(f9e2af)",
	levelError:      "rgb(f38ba8)",
}

var hyprIcons = map[level]hypr.Icon{
	levelBusy:       hypr.IconHint,
	levelListening:  hypr.IconInfo,
	levelRecognized: hypr.IconInfo,
	levelDone:       hypr.IconOK,
	levelNotice:     hypr.IconWarning,
	levelError:      hypr.IconError,
}

// hyprDisplay replaces a single Hyprland notification per status.
type hyprDisplay struct{}

func (hyprDisplay) show(ctx context.Context, st status, timeoutMS int) error {
	if st.level == levelIdle {
		return hypr.DismissNotify(ctx)
	}
	return hypr.Replace(ctx, hypr.Notification{
		Icon:      hyprIcons[st.level],
		TimeoutMS: timeoutMS,
		Color:     hyprColors[st.level],
		Text:      st.text,
	})
}

func (hyprDisplay) clear(ctx context.Context) error {
	return hypr.DismissNotify(ctx)
}

// terminalDisplay prints one styled line per status.
type terminalDisplay struct {
	mu     sync.Mutex
	w      io.Writer
	label  map[level]lipgloss.Style
	body   map[level]lipgloss.Style
	prefix map[level]string
}

func newTerminalDisplay(w io.Writer) *terminalDisplay {
	r := lipgloss.NewRenderer(w)
	color := func(hex string) lipgloss.Style {
		return r.NewStyle().Foreground(lipgloss.Color(hex))
	}
	green := color("#10B981")
	return &terminalDisplay{
		w: w,
		label: map[level]lipgloss.Style{
			levelIdle:       color("#6B7280"),
			levelBusy:       color("#8B5CF6").Bold(true),
			levelListening:  color("#06B6D4").Bold(true),
			levelRecognized: green.Bold(true),
			levelDone:       green.Bold(true),
			levelNotice:     color("#F59E0B").Bold(true),
			levelError:      color("#EF4444").Bold(true),
		},
		body: map[level]lipgloss.Style{
			levelRecognized: green,
			levelDone:       green,
			levelError:      color("#EF4444"),
		},
		prefix: map[level]string{
			levelIdle:       "idle",
			levelBusy:       "wait",
			levelListening:  "listen",
			levelRecognized: "heard",
			levelDone:       "done",
			levelNotice:     "stop",
			levelError:      "error",
		},
	}
}

func (d *terminalDisplay) show(_ context.Context, st status, _ int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	text := st.text
	if style, ok := d.body[st.level]; ok {
		text = style.Render(text)
	}
	label := d.label[st.level].Render(fmt.Sprintf("%-6s", d.prefix[st.level]))
	_, err := fmt.Fprintf(d.w, "%s %s\n", label, strings.TrimRight(text, "\n"))
	return err
}

func (d *terminalDisplay) clear(context.Context) error {
	return nil
}
