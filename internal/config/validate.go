package config

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

var (
	translatorBackends = []string{"grpc", "openai"}
	indicatorBackends  = []string{"hypr", "desktop", "terminal"}
	logLevels          = []string{"debug", "info", "warn", "error"}
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	var warnings []Warning

	if err := validateRecognizer(cfg.Recognizer); err != nil {
		return nil, err
	}

	t := cfg.Translator
	if !oneOf(t.Backend, translatorBackends) {
		return nil, fmt.Errorf("translator.backend must be one of: %s", strings.Join(translatorBackends, ", "))
	}
	if strings.TrimSpace(t.SourceLanguage) == "" || strings.TrimSpace(t.TargetLanguage) == "" {
		return nil, fmt.Errorf("translator.source_language and translator.target_language must not be empty")
	}
	if strings.EqualFold(t.SourceLanguage, t.TargetLanguage) {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("translator source and target language are both %q", t.SourceLanguage)})
	}
	if t.TimeoutMS <= 0 {
		return nil, fmt.Errorf("translator.timeout_ms must be > 0")
	}
	if t.Attempts < 1 {
		return nil, fmt.Errorf("translator.attempts must be >= 1")
	}
	if t.RetryBackoffMS < 0 {
		return nil, fmt.Errorf("translator.retry_backoff_ms must be >= 0")
	}
	switch t.Backend {
	case "grpc":
		if strings.TrimSpace(t.GRPC.Endpoint) == "" {
			return nil, fmt.Errorf("translator.grpc.endpoint must not be empty when translator.backend=grpc")
		}
	case "openai":
		if strings.TrimSpace(t.OpenAI.Model) == "" {
			return nil, fmt.Errorf("translator.openai.model must not be empty when translator.backend=openai")
		}
		if strings.TrimSpace(t.OpenAI.APIKeyEnv) == "" {
			return nil, fmt.Errorf("translator.openai.api_key_env must not be empty when translator.backend=openai")
		}
	}

	ind := cfg.Indicator
	backend := strings.ToLower(strings.TrimSpace(ind.Backend))
	if !oneOf(backend, indicatorBackends) {
		return nil, fmt.Errorf("indicator.backend must be one of: %s", strings.Join(indicatorBackends, ", "))
	}
	if backend == "desktop" && strings.TrimSpace(ind.DesktopAppName) == "" {
		return nil, fmt.Errorf("indicator.desktop_app_name must not be empty when indicator.backend=desktop")
	}
	if ind.ErrorTimeoutMS < 0 {
		return nil, fmt.Errorf("indicator.error_timeout_ms must be >= 0")
	}

	if cfg.Clipboard.Enable && len(cfg.Clipboard.Cmd.Argv) == 0 {
		return nil, fmt.Errorf("clipboard.cmd must not be empty when clipboard.enable=true")
	}
	if !oneOf(cfg.Log.Level, logLevels) {
		return nil, fmt.Errorf("log.level must be one of: %s", strings.Join(logLevels, ", "))
	}
	if cfg.Vocab.MaxKeywords <= 0 {
		return nil, fmt.Errorf("vocab.max_keywords must be > 0")
	}

	_, vocabWarnings, err := BuildKeywords(cfg)
	if err != nil {
		return nil, err
	}
	return append(warnings, vocabWarnings...), nil
}

func validateRecognizer(r RecognizerConfig) error {
	raw := strings.TrimSpace(r.URL)
	if raw == "" {
		return fmt.Errorf("recognizer.url must not be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("recognizer.url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss", "http", "https":
	default:
		return fmt.Errorf("recognizer.url scheme must be ws, wss, http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("recognizer.url must include a host")
	}
	if strings.TrimSpace(r.Language) == "" {
		return fmt.Errorf("recognizer.language must not be empty")
	}
	if r.DialTimeoutMS <= 0 {
		return fmt.Errorf("recognizer.dial_timeout_ms must be > 0")
	}
	if r.EndpointingMS < 0 {
		return fmt.Errorf("recognizer.endpointing_ms must be >= 0")
	}
	return nil
}

func oneOf(value string, allowed []string) bool {
	value = strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range allowed {
		if value == candidate {
			return true
		}
	}
	return false
}

// BuildKeywords merges enabled vocab sets into a sorted, de-duplicated
// keyword list; a phrase in several sets keeps its highest boost.
func BuildKeywords(cfg Config) ([]Keyword, []Warning, error) {
	if len(cfg.Vocab.GlobalSets) == 0 {
		return nil, nil, nil
	}

	type candidate struct {
		boost float64
		from  string
	}

	var warnings []Warning
	selected := make(map[string]candidate)

	for _, name := range cfg.Vocab.GlobalSets {
		set, ok := cfg.Vocab.Sets[name]
		if !ok {
			return nil, nil, fmt.Errorf("vocab.global references unknown set %q", name)
		}
		for _, phrase := range set.Phrases {
			phrase = strings.TrimSpace(phrase)
			if phrase == "" {
				continue
			}
			existing, seen := selected[phrase]
			if !seen {
				selected[phrase] = candidate{boost: set.Boost, from: name}
				continue
			}
			if set.Boost > existing.boost {
				warnings = append(warnings, Warning{Message: fmt.Sprintf("keyword %q present in %q and %q; using higher boost %.2f", phrase, existing.from, name, set.Boost)})
				selected[phrase] = candidate{boost: set.Boost, from: name}
			}
		}
	}

	if len(selected) > cfg.Vocab.MaxKeywords {
		return nil, nil, fmt.Errorf("keyword count %d exceeds vocab.max_keywords=%d", len(selected), cfg.Vocab.MaxKeywords)
	}

	keywords := make([]Keyword, 0, len(selected))
	for phrase, c := range selected {
		keywords = append(keywords, Keyword{Phrase: phrase, Boost: c.boost})
	}
	sort.Slice(keywords, func(i, j int) bool {
		return keywords[i].Phrase < keywords[j].Phrase
	})
	return keywords, warnings, nil
}
