// Package output delivers finished translations: clipboard copy and plain
// stdout lines.
package output

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rbright/habla/internal/config"
	"github.com/rbright/habla/internal/fsm"
)

const clipboardTimeout = 2 * time.Second

// Clipboard copies each non-empty translation with the configured command.
// As a session observer it copies on a background goroutine, one at a time.
type Clipboard struct {
	argv   []string
	logger *slog.Logger

	jobs      chan string
	done      chan struct{}
	closeOnce sync.Once
	mu        sync.Mutex
	closed    bool
}

// NewClipboard starts the copy worker for cfg.
func NewClipboard(cfg config.ClipboardConfig, logger *slog.Logger) *Clipboard {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Clipboard{
		argv:   cfg.Cmd.Argv,
		logger: logger.With("component", "clipboard"),
		jobs:   make(chan string, 4),
		done:   make(chan struct{}),
	}
	go c.work()
	return c
}

// Copy writes text to the clipboard command's stdin.
func (c *Clipboard) Copy(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, clipboardTimeout)
	defer cancel()
	if err := runCommandWithInput(ctx, c.argv, text); err != nil {
		return fmt.Errorf("set clipboard: %w", err)
	}
	return nil
}

func (c *Clipboard) OnStateChanged(fsm.State) {}

// OnTranslationReady queues text for copying without blocking.
func (c *Clipboard) OnTranslationReady(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.jobs <- text:
	default:
		c.logger.Warn("clipboard queue full; dropping translation")
	}
}

// Close waits for queued copies to finish.
func (c *Clipboard) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.jobs)
		c.mu.Unlock()
	})
	<-c.done
	return nil
}

func (c *Clipboard) work() {
	defer close(c.done)
	for text := range c.jobs {
		if err := c.Copy(context.Background(), text); err != nil {
			c.logger.Error("clipboard copy failed", "error", err)
			continue
		}
		c.logger.Debug("translation copied", "chars", len([]rune(text)))
	}
}

// runCommandWithInput executes argv and writes input to its stdin.
func runCommandWithInput(ctx context.Context, argv []string, input string) error {
	if len(argv) == 0 {
		return fmt.Errorf("command argv cannot be empty")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = strings.NewReader(input)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if trimmed := strings.TrimSpace(string(out)); trimmed != "" {
			return fmt.Errorf("run %s: %w (%s)", argv[0], err, trimmed)
		}
		return fmt.Errorf("run %s: %w", argv[0], err)
	}
	return nil
}
