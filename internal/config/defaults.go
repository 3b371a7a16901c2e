package config

// Default returns the configuration used when no file is present.
func Default() Config {
	clipboard := "wl-copy --trim-newline"

	return Config{
		Recognizer: RecognizerConfig{
			URL:           "ws://127.0.0.1:8080/v1/listen",
			Language:      "es",
			Punctuate:     true,
			Interim:       true,
			EndpointingMS: 300,
			DialTimeoutMS: 3000,
		},
		Translator: TranslatorConfig{
			Backend:        "grpc",
			SourceLanguage: "es",
			TargetLanguage: "en",
			TimeoutMS:      10000,
			Attempts:       3,
			RetryBackoffMS: 500,
			GRPC:           GRPCTranslatorConfig{Endpoint: "127.0.0.1:50061"},
			OpenAI: OpenAITranslatorConfig{
				BaseURL:   "https://api.openai.com/v1/",
				Model:     "gpt-4o-mini",
				APIKeyEnv: "OPENAI_API_KEY",
			},
		},
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
		},
		Indicator: IndicatorConfig{
			Enable:         true,
			Backend:        "hypr",
			DesktopAppName: "habla-indicator",
			SoundEnable:    true,
			ErrorTimeoutMS: 1600,
		},
		Clipboard: ClipboardConfig{
			Enable: false,
			Cmd:    CommandConfig{Raw: clipboard, Argv: mustParseArgv(clipboard)},
		},
		Vocab: VocabConfig{
			Sets:        map[string]VocabSet{},
			MaxKeywords: 100,
		},
		Log: LogConfig{Level: "info"},
	}
}
