package platform

import (
	"context"
	"log"
	"sync"

	"github.com/piaaz/botfleet/internal/bot"
	"github.com/piaaz/botfleet/internal/llm"
	"github.com/piaaz/botfleet/internal/session"
	"github.com/piaaz/botfleet/internal/tts"
)

// responder is the reply pipeline shared by every adapter: greeting
// short-circuit, model call, session bookkeeping, and mode-aware
// delivery. The session store is created with the responder, so a
// restarted instance begins with empty conversations.
type responder struct {
	gen      *llm.Generator
	tts      *tts.Client
	sessions *session.Store

	mu        sync.Mutex
	profile   bot.Profile
	openaiKey string
}

func newResponder(deps Deps, cfg bot.Config) *responder {
	return &responder{
		gen:       deps.Generator,
		tts:       deps.TTS,
		sessions:  session.NewStore(deps.SessionMax),
		profile:   cfg.Profile(),
		openaiKey: cfg.Creds["openai"],
	}
}

func (r *responder) snapshot() (bot.Profile, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.profile, r.openaiKey
}

// UpdateProfile swaps the profile for hot config changes. Sessions are
// untouched. An empty key keeps the current one.
func (r *responder) UpdateProfile(p bot.Profile, openaiKey string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profile = p
	if openaiKey != "" {
		r.openaiKey = openaiKey
	}
}

// Reply produces the assistant reply for one inbound message and records
// the exchange in the user's session.
func (r *responder) Reply(ctx context.Context, userKey, userName, userText string) string {
	profile, key := r.snapshot()

	var reply string
	if IsGreeting(userText) {
		reply = WelcomeMessage(userName, str(profile.Company, "name"))
	} else {
		prompt := BuildSystemPrompt(profile.Company)
		history := r.sessions.History(userKey)
		reply = r.gen.Reply(ctx, key, prompt, history, userText)
	}

	r.sessions.Append(userKey,
		llm.Message{Role: llm.RoleUser, Content: userText},
		llm.Message{Role: llm.RoleAssistant, Content: reply},
	)
	return reply
}

// deliver sends the reply through the platform transports according to
// the reply mode. Voice mode falls back to text when the voice config is
// missing or synthesis fails; both mode treats voice as best-effort.
// Transport errors are logged, never returned, so one user's delivery
// problem cannot fail the webhook.
func (r *responder) deliver(ctx context.Context, botID, reply string, sendText func() error, sendVoice func(audio []byte) error) {
	profile, _ := r.snapshot()

	text := func() {
		if err := sendText(); err != nil {
			log.Printf("[%s] text delivery failed: %v", botID, err)
		}
	}

	switch profile.ReplyMode {
	case bot.ReplyVoice:
		audio, err := r.synthesize(ctx, profile, reply)
		if err != nil {
			log.Printf("[%s] voice synthesis failed, replying as text: %v", botID, err)
			text()
			return
		}
		if err := sendVoice(audio); err != nil {
			log.Printf("[%s] voice delivery failed: %v", botID, err)
		}
	case bot.ReplyBoth:
		text()
		audio, err := r.synthesize(ctx, profile, reply)
		if err != nil {
			log.Printf("[%s] voice synthesis failed: %v", botID, err)
			return
		}
		if err := sendVoice(audio); err != nil {
			log.Printf("[%s] voice delivery failed: %v", botID, err)
		}
	default:
		text()
	}
}

func (r *responder) synthesize(ctx context.Context, profile bot.Profile, text string) ([]byte, error) {
	if profile.Voice == nil {
		return nil, tts.ErrNotConfigured
	}
	return r.tts.Synthesize(ctx, profile.Voice.ElevenKey, profile.Voice.VoiceID, text)
}
