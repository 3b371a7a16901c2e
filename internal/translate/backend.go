package translate

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/rbright/habla/internal/config"
)

// New builds the configured backend behind an Async adapter.
func New(cfg config.TranslatorConfig, logger *slog.Logger) (*Async, error) {
	opts := Options{
		Source:   cfg.SourceLanguage,
		Target:   cfg.TargetLanguage,
		Timeout:  time.Duration(cfg.TimeoutMS) * time.Millisecond,
		Attempts: cfg.Attempts,
		Backoff:  time.Duration(cfg.RetryBackoffMS) * time.Millisecond,
	}
	if logger != nil {
		logger = logger.With("component", "translate", "backend", cfg.Backend)
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "grpc":
		client, err := DialGRPC(cfg.GRPC.Endpoint)
		if err != nil {
			return nil, err
		}
		return NewAsync(client.Translate, opts, logger, client), nil
	case "openai":
		key := os.Getenv(cfg.OpenAI.APIKeyEnv)
		client, err := NewOpenAI(key, cfg.OpenAI.BaseURL, cfg.OpenAI.Model)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", cfg.OpenAI.APIKeyEnv, err)
		}
		return NewAsync(client.Translate, opts, logger, nil), nil
	default:
		return nil, fmt.Errorf("unknown translator backend %q", cfg.Backend)
	}
}
