package indicator

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

// desktopDisplay keeps one replaceable freedesktop notification, driven
// over DBus with busctl.
type desktopDisplay struct {
	appName string

	mu sync.Mutex
	id uint32
}

// urgency follows the freedesktop hint values: 0 low, 1 normal, 2 critical.
func urgency(l level) string {
	switch l {
	case levelError:
		return "2"
	case levelIdle:
		return "0"
	default:
		return "1"
	}
}

func (d *desktopDisplay) show(ctx context.Context, st status, timeoutMS int) error {
	if st.level == levelIdle {
		return d.clear(ctx)
	}

	d.mu.Lock()
	replaceID := d.id
	d.mu.Unlock()

	args := []string{
		"--user", "call",
		"org.freedesktop.Notifications",
		"/org/freedesktop/Notifications",
		"org.freedesktop.Notifications",
		"Notify",
		"susssasa{sv}i",
		d.appName,
		strconv.FormatUint(uint64(replaceID), 10),
		"",
		st.text,
		"",
		"0",                                    // actions
		"1", "urgency", "y", urgency(st.level), // hints
		strconv.Itoa(timeoutMS),
	}
	out, err := busctl(ctx, args...)
	if err != nil {
		return fmt.Errorf("desktop notify failed: %w", err)
	}

	id, err := parseNotificationID(out)
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.id = id
	d.mu.Unlock()
	return nil
}

func (d *desktopDisplay) clear(ctx context.Context) error {
	d.mu.Lock()
	id := d.id
	d.id = 0
	d.mu.Unlock()

	if id == 0 {
		return nil
	}
	_, err := busctl(ctx,
		"--user", "call",
		"org.freedesktop.Notifications",
		"/org/freedesktop/Notifications",
		"org.freedesktop.Notifications",
		"CloseNotification",
		"u",
		strconv.FormatUint(uint64(id), 10),
	)
	if err != nil {
		return fmt.Errorf("desktop dismiss failed: %w", err)
	}
	return nil
}

// parseNotificationID reads busctl's "u <id>" reply.
func parseNotificationID(out string) (uint32, error) {
	fields := strings.Fields(out)
	if len(fields) < 2 || fields[0] != "u" {
		return 0, fmt.Errorf("desktop notify invalid response: %q", out)
	}
	value, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("desktop notify parse id %q: %w", fields[1], err)
	}
	return uint32(value), nil
}

func busctl(ctx context.Context, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, "busctl", args...).CombinedOutput()
	trimmed := strings.TrimSpace(string(out))
	if err != nil {
		if trimmed == "" {
			return "", err
		}
		return "", fmt.Errorf("%w (%s)", err, trimmed)
	}
	return trimmed, nil
}
