package listen

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// buildURL rewrites an http(s) base to ws(s) and encodes the stream options.
func buildURL(cfg Config) (string, error) {
	base := strings.TrimSpace(cfg.URL)
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid recognizer url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", fmt.Errorf("invalid recognizer url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("recognizer url %q has no host", cfg.URL)
	}

	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	channels := cfg.Channels
	if channels <= 0 {
		channels = 1
	}

	query := u.Query()
	query.Set("encoding", "linear16")
	query.Set("sample_rate", strconv.Itoa(sampleRate))
	query.Set("channels", strconv.Itoa(channels))
	query.Set("interim_results", strconv.FormatBool(cfg.Interim))
	query.Set("punctuate", strconv.FormatBool(cfg.Punctuate))
	if model := strings.TrimSpace(cfg.Model); model != "" {
		query.Set("model", model)
	}
	if language := strings.TrimSpace(cfg.Language); language != "" {
		query.Set("language", language)
	}
	if cfg.EndpointingMS > 0 {
		query.Set("endpointing", strconv.Itoa(cfg.EndpointingMS))
	}
	for _, keyword := range cfg.Keywords {
		phrase := strings.TrimSpace(keyword.Phrase)
		if phrase == "" {
			continue
		}
		if keyword.Boost != 0 {
			phrase += ":" + strconv.FormatFloat(keyword.Boost, 'f', -1, 64)
		}
		query.Add("keywords", phrase)
	}
	u.RawQuery = query.Encode()
	return u.String(), nil
}
