// Package tts synthesizes speech through the ElevenLabs API.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrNotConfigured is returned when a bot has no ElevenLabs key or voice.
// Callers fall back to a text reply instead of crashing the pipeline.
var ErrNotConfigured = errors.New("tts: elevenlabs api key or voice id not configured")

const defaultBaseURL = "https://api.elevenlabs.io/v1/text-to-speech"

// Options configures the ElevenLabs client.
type Options struct {
	BaseURL  string
	Timeout  time.Duration
	Retries  int
	Backoff  time.Duration
	MaxChars int
}

// Client calls the ElevenLabs text-to-speech endpoint.
type Client struct {
	opts Options
	http *http.Client
}

// NewClient creates an ElevenLabs client.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Retries < 1 {
		opts.Retries = 1
	}
	return &Client{
		opts: opts,
		http: &http.Client{Timeout: opts.Timeout},
	}
}

type synthRequest struct {
	Text          string        `json:"text"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Synthesize converts text to OGG audio with the given voice. Credentials
// are per bot instance, so they are passed per call.
func (c *Client) Synthesize(ctx context.Context, apiKey, voiceID, text string) ([]byte, error) {
	if apiKey == "" || voiceID == "" {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(synthRequest{
		Text:          cleanText(text, c.opts.MaxChars),
		VoiceSettings: voiceSettings{Stability: 0.5, SimilarityBoost: 0.7},
	})
	if err != nil {
		return nil, fmt.Errorf("tts: encoding request: %w", err)
	}

	url := c.opts.BaseURL + "/" + voiceID

	var lastErr error
	for attempt := 1; attempt <= c.opts.Retries; attempt++ {
		audio, retry, err := c.post(ctx, url, apiKey, body)
		if err == nil {
			return audio, nil
		}
		if !retry {
			return nil, err
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.opts.Backoff * time.Duration(attempt)):
		}
	}
	return nil, fmt.Errorf("tts: synthesis failed: %w", lastErr)
}

func (c *Client) post(ctx context.Context, url, apiKey string, body []byte) (audio []byte, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("tts: building request: %w", err)
	}
	req.Header.Set("xi-api-key", apiKey)
	req.Header.Set("Accept", "audio/ogg")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("tts: request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, true, fmt.Errorf("tts: reading audio: %w", err)
		}
		return data, false, nil
	case resp.StatusCode == 429 || resp.StatusCode >= 500:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return nil, true, fmt.Errorf("tts: upstream %d: %s", resp.StatusCode, msg)
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return nil, false, fmt.Errorf("tts: upstream %d: %s", resp.StatusCode, msg)
	}
}

// cleanText trims text to limit runes, appending an ellipsis on truncation.
func cleanText(text string, limit int) string {
	text = strings.TrimSpace(text)
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit-3]) + "..."
}
