package config

// DefaultConfig returns a Config with sensible defaults. The defaults mirror
// the hosted deployment: Meta Graph v19.0, gpt-4o-mini replies, 30-entry
// rolling sessions, broadcast fallback for unmatched cloud-messaging keys.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              5000,
			PublicBase:        "http://localhost:5000",
			AllowedOrigins:    []string{"http://localhost:3000", "http://127.0.0.1:3000"},
			RequestsPerMinute: 200,
			MaxBodyBytes:      1 << 20,
		},
		Meta: MetaConfig{
			GraphBaseURL: "https://graph.facebook.com/v19.0",
		},
		Telegram: TelegramConfig{
			APIEndpoint: "https://api.telegram.org/bot%s/%s",
		},
		OpenAI: OpenAIConfig{
			BaseURL:        "https://api.openai.com/v1",
			Model:          "gpt-4o-mini",
			TimeoutSeconds: 45,
			Retries:        3,
			BackoffSeconds: 1.5,
			MaxHistory:     24,
			MaxUserLen:     4000,
		},
		Eleven: ElevenConfig{
			BaseURL:        "https://api.elevenlabs.io/v1/text-to-speech",
			TimeoutSeconds: 60,
			Retries:        3,
			BackoffSeconds: 1.5,
			MaxChars:       4500,
		},
		Session: SessionConfig{
			MaxEntries: 30,
		},
		Routing: RoutingConfig{
			Unmatched: RoutingBroadcast,
		},
	}
}
