package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// RecognizerAPIKeyEnv overrides recognizer.api_key when set.
const RecognizerAPIKeyEnv = "HABLA_RECOGNIZER_API_KEY"

// Loaded captures resolved config path, parsed values, and non-fatal warnings.
type Loaded struct {
	Path     string
	Format   Format
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load resolves, reads, parses, and validates the runtime configuration.
func Load(explicitPath string) (Loaded, error) {
	path, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}
	format := FormatForPath(path)

	content, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return Loaded{}, fmt.Errorf("read config %q: %w", path, err)
		}
		cfg := applyEnv(Default())
		return Loaded{
			Path:   path,
			Format: format,
			Config: cfg,
			Warnings: []Warning{{
				Message: fmt.Sprintf("config file %q not found; using defaults", path),
			}},
		}, nil
	}

	cfg, warnings, err := ParseFormat(string(content), format, Default())
	if err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", path, err)
	}

	return Loaded{
		Path:     path,
		Format:   format,
		Config:   applyEnv(cfg),
		Warnings: warnings,
		Exists:   true,
	}, nil
}

func applyEnv(cfg Config) Config {
	if key := strings.TrimSpace(os.Getenv(RecognizerAPIKeyEnv)); key != "" {
		cfg.Recognizer.APIKey = key
	}
	return cfg
}
