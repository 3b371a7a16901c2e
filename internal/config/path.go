package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// candidateNames are probed in order inside the config directory.
var candidateNames = []string{"config.jsonc", "config.yaml", "config.yml", "config.toml"}

// ResolvePath applies CLI > XDG_CONFIG_HOME > ~/.config precedence. Without
// an explicit path the first existing candidate file wins, else config.jsonc.
func ResolvePath(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}

	dir, err := configDir()
	if err != nil {
		return "", err
	}
	for _, name := range candidateNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return filepath.Join(dir, candidateNames[0]), nil
}

func configDir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "habla"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for config fallback")
	}
	return filepath.Join(home, ".config", "habla"), nil
}

// ExpandHome resolves a leading "~" against the user's home directory.
// Surrounding whitespace is trimmed; other paths are returned unchanged.
func ExpandHome(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw != "~" && !strings.HasPrefix(raw, "~/") {
		return raw
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return raw
	}
	return filepath.Join(home, strings.TrimPrefix(raw[1:], "/"))
}
