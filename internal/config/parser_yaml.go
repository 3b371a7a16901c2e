package config

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// decodeYAML decodes a single YAML document, rejecting unknown keys.
func decodeYAML(content string, payload *fileConfig) error {
	decoder := yaml.NewDecoder(strings.NewReader(content))
	decoder.KnownFields(true)

	if err := decoder.Decode(payload); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("yaml: %w", err)
	}

	var extra yaml.Node
	if err := decoder.Decode(&extra); !errors.Is(err, io.EOF) {
		if err != nil {
			return fmt.Errorf("yaml: %w", err)
		}
		return fmt.Errorf("multiple YAML documents are not allowed")
	}
	return nil
}
