package llm

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

// Fallback replies. The bots speak Arabic, so the operational failures do too.
const (
	msgMissingKey   = "لم يتم ضبط مفتاح OpenAI. حدِّث الإعدادات ثم أعد المحاولة."
	msgEmptyContent = "لم أتلقَّ ردًا صالحًا من نموذج الذكاء. جرّب لاحقًا."
)

// Options configures reply generation.
type Options struct {
	Model       string
	BaseURL     string
	Timeout     time.Duration
	Retries     int
	Backoff     time.Duration
	MaxHistory  int
	MaxUserLen  int
	Temperature float64
}

// Generator produces chat replies. Each bot instance carries its own API
// key, so providers are built per key and cached.
type Generator struct {
	opts Options

	mu        sync.Mutex
	providers map[string]Provider

	// newProvider builds the provider for one API key. Tests swap it out.
	newProvider func(apiKey string) Provider
}

// NewGenerator creates a Generator with the given options.
func NewGenerator(opts Options) *Generator {
	if opts.Temperature == 0 {
		opts.Temperature = 0.7
	}
	g := &Generator{
		opts:      opts,
		providers: make(map[string]Provider),
	}
	g.newProvider = func(apiKey string) Provider {
		return NewRetryProvider(
			NewOpenAIProvider(apiKey, opts.Model, opts.BaseURL, opts.Timeout),
			opts.Retries, opts.Backoff)
	}
	return g
}

// Reply generates an assistant reply for the given conversation. It never
// returns an error: configuration and upstream failures come back as
// user-facing text so the webhook pipeline always has something to send.
func (g *Generator) Reply(ctx context.Context, apiKey, systemPrompt string, history []Message, userText string) string {
	if apiKey == "" {
		return msgMissingKey
	}

	msgs := []Message{{Role: RoleSystem, Content: strings.TrimSpace(systemPrompt)}}
	msgs = append(msgs, clipHistory(history, g.opts.MaxHistory)...)
	msgs = append(msgs, Message{Role: RoleUser, Content: shortenText(userText, g.opts.MaxUserLen)})

	resp, err := g.providerFor(apiKey).Complete(ctx, CompletionRequest{
		Messages:    msgs,
		Temperature: g.opts.Temperature,
	})
	if err != nil {
		log.Printf("llm: completion failed after retries: %v", err)
		return fmt.Sprintf("تعذّر توليد الرد الآن. (تفاصيل: %v)", err)
	}

	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return msgEmptyContent
	}
	return text
}

func (g *Generator) providerFor(apiKey string) Provider {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.providers[apiKey]
	if !ok {
		p = g.newProvider(apiKey)
		g.providers[apiKey] = p
	}
	return p
}

// clipHistory keeps the most recent max messages, dropping malformed entries.
func clipHistory(history []Message, max int) []Message {
	clean := make([]Message, 0, len(history))
	for _, m := range history {
		if m.Role == "" || m.Content == "" {
			continue
		}
		clean = append(clean, m)
	}
	if max > 0 && len(clean) > max {
		clean = clean[len(clean)-max:]
	}
	return clean
}

// shortenText trims text to limit runes, cutting at a word boundary and
// appending an ellipsis when it had to truncate.
func shortenText(text string, limit int) string {
	text = strings.TrimSpace(text)
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	cut := string(runes[:limit-10])
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	if r := []rune(cut); len(r) > limit-3 {
		cut = string(r[:limit-3])
	}
	return cut + "..."
}
