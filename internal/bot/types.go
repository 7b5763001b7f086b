package bot

import (
	"context"
	"encoding/json"
)

// Platform identifies the messaging platform a bot instance runs on.
type Platform string

const (
	PlatformTelegram  Platform = "telegram"
	PlatformWhatsApp  Platform = "whatsapp"
	PlatformInstagram Platform = "instagram"
)

// Valid reports whether p is a supported platform.
func (p Platform) Valid() bool {
	switch p {
	case PlatformTelegram, PlatformWhatsApp, PlatformInstagram:
		return true
	}
	return false
}

// ReplyMode controls how a bot answers: text, synthesized voice, or both.
type ReplyMode string

const (
	ReplyText  ReplyMode = "text"
	ReplyVoice ReplyMode = "voice"
	ReplyBoth  ReplyMode = "both"
)

// VoiceConfig holds the ElevenLabs credentials for voice replies.
// The short JSON keys match what the dashboard sends.
type VoiceConfig struct {
	ElevenKey string `json:"ek"`
	VoiceID   string `json:"vid"`
}

// Config is a bot instance's configuration as submitted by the dashboard.
// Company stays schemaless: the dashboard evolves its fields faster than
// the backend, and the prompt builder only picks what it knows.
type Config struct {
	ID        string            `json:"id,omitempty"`
	Platform  Platform          `json:"platform"`
	ReplyMode ReplyMode         `json:"reply_mode,omitempty"`
	Company   map[string]any    `json:"company,omitempty"`
	Voice     *VoiceConfig      `json:"voice,omitempty"`
	Creds     map[string]string `json:"creds,omitempty"`
}

// Update is a partial configuration change. Nil fields are left untouched;
// Company and Creds are merged key by key rather than replaced.
type Update struct {
	Platform  *Platform         `json:"platform,omitempty"`
	ReplyMode *ReplyMode        `json:"reply_mode,omitempty"`
	Company   map[string]any    `json:"company,omitempty"`
	Voice     *VoiceConfig      `json:"voice,omitempty"`
	Creds     map[string]string `json:"creds,omitempty"`
}

// Profile is the runtime view of a config handed to a running adapter.
type Profile struct {
	ReplyMode ReplyMode
	Company   map[string]any
	Voice     *VoiceConfig
}

// Profile returns the runtime view of this config. ReplyMode defaults
// to text when unset.
func (c Config) Profile() Profile {
	mode := c.ReplyMode
	if mode == "" {
		mode = ReplyText
	}
	return Profile{
		ReplyMode: mode,
		Company:   c.Company,
		Voice:     c.Voice,
	}
}

// Summary is the list-view representation of a bot instance.
type Summary struct {
	ID        string         `json:"id"`
	Platform  Platform       `json:"platform"`
	Active    bool           `json:"active"`
	ReplyMode ReplyMode      `json:"reply_mode"`
	Company   map[string]any `json:"company"`
}

// Adapter is a running platform connection for one bot instance.
type Adapter interface {
	// Start registers the instance with its platform (webhook setup or
	// app subscription). A failed Start leaves the instance inactive.
	Start(ctx context.Context) error
	// Stop tears the platform registration down.
	Stop(ctx context.Context) error
	// UpdateProfile applies a hot config change without losing sessions.
	// An empty openaiKey keeps the current one.
	UpdateProfile(profile Profile, openaiKey string)
	// HandleEvent processes one platform webhook payload.
	HandleEvent(ctx context.Context, event json.RawMessage) error
}

// AdapterFactory builds the platform adapter for a bot config.
type AdapterFactory func(cfg Config) (Adapter, error)
