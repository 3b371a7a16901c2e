package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk shape shared by every format. Nil pointers
// leave the base value untouched.
type fileConfig struct {
	Recognizer *fileRecognizer `json:"recognizer" yaml:"recognizer" toml:"recognizer"`
	Translator *fileTranslator `json:"translator" yaml:"translator" toml:"translator"`
	Audio      *fileAudio      `json:"audio" yaml:"audio" toml:"audio"`
	Indicator  *fileIndicator  `json:"indicator" yaml:"indicator" toml:"indicator"`
	Clipboard  *fileClipboard  `json:"clipboard" yaml:"clipboard" toml:"clipboard"`
	Vocab      *fileVocab      `json:"vocab" yaml:"vocab" toml:"vocab"`
	Debug      *fileDebug      `json:"debug" yaml:"debug" toml:"debug"`
	Log        *fileLog        `json:"log" yaml:"log" toml:"log"`
}

type fileRecognizer struct {
	URL           *string `json:"url" yaml:"url" toml:"url"`
	APIKey        *string `json:"api_key" yaml:"api_key" toml:"api_key"`
	Model         *string `json:"model" yaml:"model" toml:"model"`
	Language      *string `json:"language" yaml:"language" toml:"language"`
	Punctuate     *bool   `json:"punctuate" yaml:"punctuate" toml:"punctuate"`
	Interim       *bool   `json:"interim" yaml:"interim" toml:"interim"`
	EndpointingMS *int    `json:"endpointing_ms" yaml:"endpointing_ms" toml:"endpointing_ms"`
	DialTimeoutMS *int    `json:"dial_timeout_ms" yaml:"dial_timeout_ms" toml:"dial_timeout_ms"`
}

type fileTranslator struct {
	Backend        *string            `json:"backend" yaml:"backend" toml:"backend"`
	SourceLanguage *string            `json:"source_language" yaml:"source_language" toml:"source_language"`
	TargetLanguage *string            `json:"target_language" yaml:"target_language" toml:"target_language"`
	TimeoutMS      *int               `json:"timeout_ms" yaml:"timeout_ms" toml:"timeout_ms"`
	Attempts       *int               `json:"attempts" yaml:"attempts" toml:"attempts"`
	RetryBackoffMS *int               `json:"retry_backoff_ms" yaml:"retry_backoff_ms" toml:"retry_backoff_ms"`
	GRPC           *fileGRPCBackend   `json:"grpc" yaml:"grpc" toml:"grpc"`
	OpenAI         *fileOpenAIBackend `json:"openai" yaml:"openai" toml:"openai"`
}

type fileGRPCBackend struct {
	Endpoint *string `json:"endpoint" yaml:"endpoint" toml:"endpoint"`
}

type fileOpenAIBackend struct {
	BaseURL   *string `json:"base_url" yaml:"base_url" toml:"base_url"`
	Model     *string `json:"model" yaml:"model" toml:"model"`
	APIKeyEnv *string `json:"api_key_env" yaml:"api_key_env" toml:"api_key_env"`
}

type fileAudio struct {
	Input    *string `json:"input" yaml:"input" toml:"input"`
	Fallback *string `json:"fallback" yaml:"fallback" toml:"fallback"`
}

type fileIndicator struct {
	Enable            *bool   `json:"enable" yaml:"enable" toml:"enable"`
	Backend           *string `json:"backend" yaml:"backend" toml:"backend"`
	DesktopAppName    *string `json:"desktop_app_name" yaml:"desktop_app_name" toml:"desktop_app_name"`
	SoundEnable       *bool   `json:"sound_enable" yaml:"sound_enable" toml:"sound_enable"`
	SoundStartFile    *string `json:"sound_start_file" yaml:"sound_start_file" toml:"sound_start_file"`
	SoundStopFile     *string `json:"sound_stop_file" yaml:"sound_stop_file" toml:"sound_stop_file"`
	SoundCompleteFile *string `json:"sound_complete_file" yaml:"sound_complete_file" toml:"sound_complete_file"`
	SoundErrorFile    *string `json:"sound_error_file" yaml:"sound_error_file" toml:"sound_error_file"`
	ErrorTimeoutMS    *int    `json:"error_timeout_ms" yaml:"error_timeout_ms" toml:"error_timeout_ms"`
}

type fileClipboard struct {
	Enable *bool   `json:"enable" yaml:"enable" toml:"enable"`
	Cmd    *string `json:"cmd" yaml:"cmd" toml:"cmd"`
}

type fileVocab struct {
	Global      *stringList             `json:"global" yaml:"global" toml:"global"`
	MaxKeywords *int                    `json:"max_keywords" yaml:"max_keywords" toml:"max_keywords"`
	Sets        map[string]fileVocabSet `json:"sets" yaml:"sets" toml:"sets"`
}

type fileVocabSet struct {
	Boost   *float64 `json:"boost" yaml:"boost" toml:"boost"`
	Phrases []string `json:"phrases" yaml:"phrases" toml:"phrases"`
}

type fileDebug struct {
	AudioDump *bool `json:"audio_dump" yaml:"audio_dump" toml:"audio_dump"`
	EventDump *bool `json:"event_dump" yaml:"event_dump" toml:"event_dump"`
}

type fileLog struct {
	Level *string `json:"level" yaml:"level" toml:"level"`
}

// stringList accepts either a list or a comma-delimited string.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*l = splitList(single)
		return nil
	}
	return fmt.Errorf("expected string array or comma-delimited string")
}

func (l *stringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*l = list
		return nil
	case yaml.ScalarNode:
		*l = splitList(node.Value)
		return nil
	default:
		return fmt.Errorf("line %d: expected string array or comma-delimited string", node.Line)
	}
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func setValue[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func (payload fileConfig) applyTo(cfg *Config) ([]Warning, error) {
	var warnings []Warning

	if r := payload.Recognizer; r != nil {
		setString(&cfg.Recognizer.URL, r.URL)
		setString(&cfg.Recognizer.APIKey, r.APIKey)
		setString(&cfg.Recognizer.Model, r.Model)
		setString(&cfg.Recognizer.Language, r.Language)
		setValue(&cfg.Recognizer.Punctuate, r.Punctuate)
		setValue(&cfg.Recognizer.Interim, r.Interim)
		setValue(&cfg.Recognizer.EndpointingMS, r.EndpointingMS)
		setValue(&cfg.Recognizer.DialTimeoutMS, r.DialTimeoutMS)
		if r.APIKey != nil && *r.APIKey != "" {
			warnings = append(warnings, Warning{Message: fmt.Sprintf("recognizer.api_key is stored in the config file; prefer %s", RecognizerAPIKeyEnv)})
		}
	}

	if t := payload.Translator; t != nil {
		setString(&cfg.Translator.Backend, t.Backend)
		setString(&cfg.Translator.SourceLanguage, t.SourceLanguage)
		setString(&cfg.Translator.TargetLanguage, t.TargetLanguage)
		setValue(&cfg.Translator.TimeoutMS, t.TimeoutMS)
		setValue(&cfg.Translator.Attempts, t.Attempts)
		setValue(&cfg.Translator.RetryBackoffMS, t.RetryBackoffMS)
		if t.GRPC != nil {
			setString(&cfg.Translator.GRPC.Endpoint, t.GRPC.Endpoint)
		}
		if t.OpenAI != nil {
			setString(&cfg.Translator.OpenAI.BaseURL, t.OpenAI.BaseURL)
			setString(&cfg.Translator.OpenAI.Model, t.OpenAI.Model)
			setString(&cfg.Translator.OpenAI.APIKeyEnv, t.OpenAI.APIKeyEnv)
		}
	}

	if a := payload.Audio; a != nil {
		setString(&cfg.Audio.Input, a.Input)
		setString(&cfg.Audio.Fallback, a.Fallback)
	}

	if i := payload.Indicator; i != nil {
		setValue(&cfg.Indicator.Enable, i.Enable)
		setString(&cfg.Indicator.Backend, i.Backend)
		setString(&cfg.Indicator.DesktopAppName, i.DesktopAppName)
		setValue(&cfg.Indicator.SoundEnable, i.SoundEnable)
		setString(&cfg.Indicator.SoundStartFile, i.SoundStartFile)
		setString(&cfg.Indicator.SoundStopFile, i.SoundStopFile)
		setString(&cfg.Indicator.SoundCompleteFile, i.SoundCompleteFile)
		setString(&cfg.Indicator.SoundErrorFile, i.SoundErrorFile)
		setValue(&cfg.Indicator.ErrorTimeoutMS, i.ErrorTimeoutMS)
	}

	if c := payload.Clipboard; c != nil {
		setValue(&cfg.Clipboard.Enable, c.Enable)
		if c.Cmd != nil {
			argv, err := parseArgv(*c.Cmd)
			if err != nil {
				return nil, fmt.Errorf("invalid clipboard.cmd: %w", err)
			}
			cfg.Clipboard.Cmd = CommandConfig{Raw: *c.Cmd, Argv: argv}
		}
	}

	if v := payload.Vocab; v != nil {
		if v.Global != nil {
			cfg.Vocab.GlobalSets = cfg.Vocab.GlobalSets[:0]
			for _, name := range *v.Global {
				if name = strings.TrimSpace(name); name != "" {
					cfg.Vocab.GlobalSets = append(cfg.Vocab.GlobalSets, name)
				}
			}
		}
		setValue(&cfg.Vocab.MaxKeywords, v.MaxKeywords)
		for name, set := range v.Sets {
			trimmed := strings.TrimSpace(name)
			if trimmed == "" {
				return nil, fmt.Errorf("vocab.sets contains an empty set name")
			}
			entry := VocabSet{Name: trimmed, Phrases: append([]string(nil), set.Phrases...)}
			setValue(&entry.Boost, set.Boost)
			cfg.Vocab.Sets[trimmed] = entry
		}
	}

	if d := payload.Debug; d != nil {
		setValue(&cfg.Debug.EnableAudioDump, d.AudioDump)
		setValue(&cfg.Debug.EnableEventDump, d.EventDump)
	}

	if l := payload.Log; l != nil {
		setString(&cfg.Log.Level, l.Level)
		cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	}

	return warnings, nil
}
