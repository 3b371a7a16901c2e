package config

import (
	"path/filepath"
	"strings"
)

// Format names a supported config file syntax.
type Format string

const (
	FormatJSONC Format = "jsonc"
	FormatYAML  Format = "yaml"
	FormatTOML  Format = "toml"
)

// FormatForPath picks the syntax from the file extension; JSONC is the default.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	default:
		return FormatJSONC
	}
}

// Parse reads JSONC content on top of base.
func Parse(content string, base Config) (Config, []Warning, error) {
	return ParseFormat(content, FormatJSONC, base)
}

// ParseFormat decodes content in format, overlays it on base and validates
// the result. Empty content validates and returns base.
func ParseFormat(content string, format Format, base Config) (Config, []Warning, error) {
	var (
		payload fileConfig
		err     error
	)
	if strings.TrimSpace(content) != "" {
		switch format {
		case FormatYAML:
			err = decodeYAML(content, &payload)
		case FormatTOML:
			err = decodeTOML(content, &payload)
		default:
			err = decodeJSONC(content, &payload)
		}
	}
	if err != nil {
		return Config{}, nil, err
	}

	cfg := cloneConfig(base)
	warnings, err := payload.applyTo(&cfg)
	if err != nil {
		return Config{}, nil, err
	}

	validated, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, append(warnings, validated...), nil
}

// cloneConfig copies the maps and slices an overlay may mutate.
func cloneConfig(base Config) Config {
	cfg := base
	cfg.Vocab.GlobalSets = append([]string(nil), base.Vocab.GlobalSets...)
	cfg.Vocab.Sets = make(map[string]VocabSet, len(base.Vocab.Sets))
	for name, set := range base.Vocab.Sets {
		cfg.Vocab.Sets[name] = set
	}
	return cfg
}
