// Package config resolves, parses, validates, and defaults habla configuration.
package config

// Config is the fully materialized runtime configuration.
type Config struct {
	Recognizer RecognizerConfig
	Translator TranslatorConfig
	Audio      AudioConfig
	Indicator  IndicatorConfig
	Clipboard  ClipboardConfig
	Vocab      VocabConfig
	Debug      DebugConfig
	Log        LogConfig
}

// RecognizerConfig points at the streaming speech recognizer.
type RecognizerConfig struct {
	URL           string
	APIKey        string
	Model         string
	Language      string
	Punctuate     bool
	Interim       bool
	EndpointingMS int
	DialTimeoutMS int
}

// TranslatorConfig selects and tunes the translation backend.
type TranslatorConfig struct {
	Backend        string
	SourceLanguage string
	TargetLanguage string
	TimeoutMS      int
	Attempts       int
	RetryBackoffMS int
	GRPC           GRPCTranslatorConfig
	OpenAI         OpenAITranslatorConfig
}

// GRPCTranslatorConfig addresses a habla.translate.v1.Translator service.
type GRPCTranslatorConfig struct {
	Endpoint string
}

// OpenAITranslatorConfig drives chat-completion translation.
type OpenAITranslatorConfig struct {
	BaseURL   string
	Model     string
	APIKeyEnv string
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input    string
	Fallback string
}

// IndicatorConfig controls status display and audio cue behavior.
type IndicatorConfig struct {
	Enable            bool
	Backend           string
	DesktopAppName    string
	SoundEnable       bool
	SoundStartFile    string
	SoundStopFile     string
	SoundCompleteFile string
	SoundErrorFile    string
	ErrorTimeoutMS    int
}

// ClipboardConfig controls copying finished translations.
type ClipboardConfig struct {
	Enable bool
	Cmd    CommandConfig
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// VocabConfig names keyword sets boosted by the recognizer.
type VocabConfig struct {
	GlobalSets  []string
	Sets        map[string]VocabSet
	MaxKeywords int
}

// VocabSet is one named keyword group with a shared boost value.
type VocabSet struct {
	Name    string
	Boost   float64
	Phrases []string
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	EnableAudioDump bool
	EnableEventDump bool
}

// LogConfig controls the JSONL logger.
type LogConfig struct {
	Level string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}

// Keyword is one boosted recognizer hint.
type Keyword struct {
	Phrase string
	Boost  float64
}
