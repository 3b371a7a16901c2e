// Package hypr wraps the hyprctl calls habla uses for on-screen status.
package hypr

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Icon is a Hyprland notification icon id.
type Icon int

const (
	IconWarning Icon = iota
	IconInfo
	IconHint
	IconError
	IconConfused
	IconOK
)

// DefaultColor is used when a notification carries no color.
const DefaultColor = "rgb(89b4fa)"

// Notification is one `hyprctl dispatch notify` payload.
type Notification struct {
	Icon      Icon
	TimeoutMS int
	Color     string
	FontSize  int
	Text      string
}

func (n Notification) args() []string {
	color := strings.TrimSpace(n.Color)
	if color == "" {
		color = DefaultColor
	}
	text := n.Text
	if n.FontSize > 0 {
		text = fmt.Sprintf("fontsize:%d %s", n.FontSize, text)
	}
	return []string{
		"--quiet", "dispatch", "notify",
		strconv.Itoa(int(n.Icon)),
		strconv.Itoa(n.TimeoutMS),
		color,
		text,
	}
}

// Notify shows n, stacking on top of any earlier notification.
func Notify(ctx context.Context, n Notification) error {
	if strings.TrimSpace(n.Text) == "" {
		return fmt.Errorf("notification text must not be empty")
	}
	return runHyprctl(ctx, n.args()...)
}

// DismissNotify dismisses every active Hyprland notification.
func DismissNotify(ctx context.Context) error {
	return runHyprctl(ctx, "--quiet", "dispatch", "dismissnotify")
}

// Replace dismisses earlier notifications before showing n.
func Replace(ctx context.Context, n Notification) error {
	if err := DismissNotify(ctx); err != nil {
		return err
	}
	return Notify(ctx, n)
}

type monitor struct {
	Name    string `json:"name"`
	Focused bool   `json:"focused"`
}

// QueryFocusedMonitor returns the focused monitor name, or the first monitor.
func QueryFocusedMonitor(ctx context.Context) (string, error) {
	output, err := runHyprctlOutput(ctx, "-j", "monitors")
	if err != nil {
		return "", err
	}

	var monitors []monitor
	if err := json.Unmarshal(output, &monitors); err != nil {
		return "", fmt.Errorf("decode hyprctl monitors json: %w", err)
	}
	for _, mon := range monitors {
		if mon.Focused {
			return strings.TrimSpace(mon.Name), nil
		}
	}
	if len(monitors) == 0 {
		return "", fmt.Errorf("hyprctl monitors returned no outputs")
	}
	return strings.TrimSpace(monitors[0].Name), nil
}

func runHyprctl(ctx context.Context, args ...string) error {
	_, err := runHyprctlOutput(ctx, args...)
	return err
}

func runHyprctlOutput(ctx context.Context, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, "hyprctl", args...).CombinedOutput()
	if err != nil {
		trimmed := strings.TrimSpace(string(out))
		if trimmed == "" {
			return nil, fmt.Errorf("hyprctl %s failed: %w", strings.Join(args, " "), err)
		}
		return nil, fmt.Errorf("hyprctl %s failed: %w (%s)", strings.Join(args, " "), err, trimmed)
	}
	return out, nil
}
