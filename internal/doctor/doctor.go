// Package doctor runs runtime readiness diagnostics for config, tools, audio, and remote services.
package doctor

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rbright/habla/internal/audio"
	"github.com/rbright/habla/internal/config"
	"github.com/rbright/habla/internal/translate"
)

const probeTimeout = 2 * time.Second

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, cfg config.Loaded) Report {
	checks := []Check{checkConfig(cfg)}

	ind := cfg.Config.Indicator
	if ind.Enable {
		switch strings.ToLower(strings.TrimSpace(ind.Backend)) {
		case "hypr":
			checks = append(checks, checkEnv("HYPRLAND_INSTANCE_SIGNATURE", func(v string) bool {
				return strings.TrimSpace(v) != ""
			}, "Hyprland session detected", "HYPRLAND_INSTANCE_SIGNATURE is empty"))
			checks = append(checks, checkBinary("hyprctl", "hypr indicator requires hyprctl"))
		case "desktop":
			checks = append(checks, checkEnv("DBUS_SESSION_BUS_ADDRESS", func(v string) bool {
				return strings.TrimSpace(v) != ""
			}, "session bus available", "DBUS_SESSION_BUS_ADDRESS is empty"))
			checks = append(checks, checkBinary("busctl", "desktop indicator requires busctl"))
		}
	}

	if cfg.Config.Clipboard.Enable {
		checks = append(checks, checkEnv("XDG_SESSION_TYPE", func(v string) bool {
			return strings.EqualFold(strings.TrimSpace(v), "wayland")
		}, "session type is wayland", "expected XDG_SESSION_TYPE=wayland"))
		checks = append(checks, checkCommand(cfg.Config.Clipboard.Cmd.Argv, "clipboard_cmd"))
	}

	checks = append(checks, checkAudioSelection(ctx, cfg.Config))
	checks = append(checks, checkRecognizer(ctx, cfg.Config.Recognizer))
	checks = append(checks, checkTranslator(ctx, cfg.Config.Translator))

	return Report{Checks: checks}
}

func checkConfig(cfg config.Loaded) Check {
	if !cfg.Exists {
		return Check{Name: "config", Pass: true, Message: fmt.Sprintf("%q not found; using defaults", cfg.Path)}
	}
	message := fmt.Sprintf("loaded %q", cfg.Path)
	if n := len(cfg.Warnings); n > 0 {
		message += fmt.Sprintf(" with %d warning(s)", n)
	}
	return Check{Name: "config", Pass: true, Message: message}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.Config) Check {
	selection, err := audio.SelectDevice(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkRecognizer verifies the recognizer host accepts TCP connections.
// A full websocket handshake would open a billable stream on hosted recognizers.
func checkRecognizer(ctx context.Context, rc config.RecognizerConfig) Check {
	const name = "recognizer"
	address, err := recognizerAddress(rc.URL)
	if err != nil {
		return Check{Name: name, Pass: false, Message: err.Error()}
	}

	dialer := net.Dialer{Timeout: probeTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("dial %s: %v", address, err)}
	}
	_ = conn.Close()
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("reachable at %s", address)}
}

func recognizerAddress(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("recognizer.url is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse recognizer.url: %w", err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("recognizer.url %q has no host", raw)
	}
	port := u.Port()
	if port == "" {
		switch strings.ToLower(u.Scheme) {
		case "wss", "https":
			port = "443"
		case "ws", "http":
			port = "80"
		default:
			return "", fmt.Errorf("recognizer.url %q has unsupported scheme", raw)
		}
	}
	return net.JoinHostPort(u.Hostname(), port), nil
}

func checkTranslator(ctx context.Context, tc config.TranslatorConfig) Check {
	const name = "translator"
	switch strings.ToLower(strings.TrimSpace(tc.Backend)) {
	case "grpc":
		endpoint := strings.TrimSpace(tc.GRPC.Endpoint)
		if endpoint == "" {
			return Check{Name: name, Pass: false, Message: "translator.grpc.endpoint is empty"}
		}
		if err := translate.Probe(ctx, endpoint, probeTimeout); err != nil {
			return Check{Name: name, Pass: false, Message: err.Error()}
		}
		return Check{Name: name, Pass: true, Message: fmt.Sprintf("grpc ready at %s", endpoint)}
	case "openai":
		env := tc.OpenAI.APIKeyEnv
		if strings.TrimSpace(os.Getenv(env)) == "" {
			return Check{Name: name, Pass: false, Message: fmt.Sprintf("%s is empty", env)}
		}
		return Check{Name: name, Pass: true, Message: fmt.Sprintf("openai model %s via %s", tc.OpenAI.Model, tc.OpenAI.BaseURL)}
	default:
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("unknown backend %q", tc.Backend)}
	}
}
