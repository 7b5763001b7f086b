// Package platform implements the per-platform adapters that turn inbound
// webhook payloads into replies.
package platform

import (
	"net/http"
	"time"

	"github.com/piaaz/botfleet/internal/bot"
	"github.com/piaaz/botfleet/internal/llm"
	"github.com/piaaz/botfleet/internal/tts"
)

// Deps bundles the collaborators every adapter needs.
type Deps struct {
	Generator *llm.Generator
	TTS       *tts.Client

	// PublicBase is the externally reachable base URL webhook callbacks
	// are registered against.
	PublicBase string
	// GraphBaseURL is the Meta Graph API root (overridable in tests).
	GraphBaseURL string
	// TelegramEndpoint is the Bot API endpoint format string.
	TelegramEndpoint string

	SessionMax int
	HTTPClient *http.Client
}

func (d Deps) httpClient() *http.Client {
	if d.HTTPClient != nil {
		return d.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

// NewFactory returns the adapter factory for the three supported platforms.
func NewFactory(deps Deps) bot.AdapterFactory {
	return func(cfg bot.Config) (bot.Adapter, error) {
		switch cfg.Platform {
		case bot.PlatformTelegram:
			return newTelegramAdapter(cfg, deps)
		case bot.PlatformWhatsApp:
			return newWhatsAppAdapter(cfg, deps)
		case bot.PlatformInstagram:
			return newInstagramAdapter(cfg, deps)
		}
		return nil, bot.ErrUnsupportedPlatform
	}
}
