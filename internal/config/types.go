package config

// RoutingPolicy controls what the webhook router does with a cloud-messaging
// event whose routing key does not resolve to a bot.
type RoutingPolicy string

const (
	// RoutingBroadcast delivers the event to every live whatsapp instance.
	RoutingBroadcast RoutingPolicy = "broadcast"
	// RoutingDrop silently discards the event.
	RoutingDrop RoutingPolicy = "drop"
)

// Config is the top-level botfleet configuration, corresponding to .botfleet.yml.
type Config struct {
	Server   ServerConfig   `yaml:"server" koanf:"server"`
	Meta     MetaConfig     `yaml:"meta" koanf:"meta"`
	Telegram TelegramConfig `yaml:"telegram" koanf:"telegram"`
	OpenAI   OpenAIConfig   `yaml:"openai" koanf:"openai"`
	Eleven   ElevenConfig   `yaml:"eleven" koanf:"eleven"`
	Session  SessionConfig  `yaml:"session" koanf:"session"`
	Routing  RoutingConfig  `yaml:"routing" koanf:"routing"`
}

// ServerConfig holds HTTP front-door settings.
type ServerConfig struct {
	Port              int      `yaml:"port" koanf:"port"`
	PublicBase        string   `yaml:"public_base" koanf:"public_base"`
	AllowedOrigins    []string `yaml:"allowed_origins" koanf:"allowed_origins"`
	AuthEndpoint      string   `yaml:"auth_endpoint" koanf:"auth_endpoint"`
	AuthAPIKey        string   `yaml:"auth_api_key" koanf:"auth_api_key"`
	RequestsPerMinute int      `yaml:"requests_per_minute" koanf:"requests_per_minute"`
	MaxBodyBytes      int64    `yaml:"max_body_bytes" koanf:"max_body_bytes"`
}

// MetaConfig holds settings for the Meta (WhatsApp/Instagram) webhook intake.
type MetaConfig struct {
	VerifyToken  string `yaml:"verify_token" koanf:"verify_token"`
	AppSecret    string `yaml:"app_secret" koanf:"app_secret"`
	GraphBaseURL string `yaml:"graph_base_url" koanf:"graph_base_url"`
}

// TelegramConfig holds settings for the Telegram Bot API.
type TelegramConfig struct {
	APIEndpoint string `yaml:"api_endpoint" koanf:"api_endpoint"`
}

// OpenAIConfig holds reply-generation settings shared by all bots.
// Each bot supplies its own API key through its credentials.
type OpenAIConfig struct {
	BaseURL        string  `yaml:"base_url" koanf:"base_url"`
	Model          string  `yaml:"model" koanf:"model"`
	TimeoutSeconds int     `yaml:"timeout_seconds" koanf:"timeout_seconds"`
	Retries        int     `yaml:"retries" koanf:"retries"`
	BackoffSeconds float64 `yaml:"backoff_seconds" koanf:"backoff_seconds"`
	MaxHistory     int     `yaml:"max_history" koanf:"max_history"`
	MaxUserLen     int     `yaml:"max_user_len" koanf:"max_user_len"`
}

// ElevenConfig holds voice-synthesis settings shared by all bots.
type ElevenConfig struct {
	BaseURL        string  `yaml:"base_url" koanf:"base_url"`
	TimeoutSeconds int     `yaml:"timeout_seconds" koanf:"timeout_seconds"`
	Retries        int     `yaml:"retries" koanf:"retries"`
	BackoffSeconds float64 `yaml:"backoff_seconds" koanf:"backoff_seconds"`
	MaxChars       int     `yaml:"max_chars" koanf:"max_chars"`
}

// SessionConfig bounds per-user conversation history.
type SessionConfig struct {
	MaxEntries int `yaml:"max_entries" koanf:"max_entries"`
}

// RoutingConfig selects the unmatched-key policy for cloud-messaging events.
type RoutingConfig struct {
	Unmatched RoutingPolicy `yaml:"unmatched" koanf:"unmatched"`
}
