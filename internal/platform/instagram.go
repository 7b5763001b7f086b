package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/piaaz/botfleet/internal/bot"
)

const placeholderInstagramNonText = "(رسالة غير نصية)"

// instagramAdapter serves DMs for one Instagram business account. Replies
// are text only: the messaging API has no inline voice upload, so voice
// reply modes degrade to text here.
type instagramAdapter struct {
	id       string
	pageID   string
	igUserID string
	token    string
	graph    string
	http     *http.Client
	resp     *responder
}

func newInstagramAdapter(cfg bot.Config, deps Deps) (bot.Adapter, error) {
	return &instagramAdapter{
		id:       cfg.ID,
		pageID:   cfg.Creds["igPageId"],
		igUserID: cfg.Creds["igUserId"],
		token:    cfg.Creds["igAccess"],
		graph:    deps.GraphBaseURL,
		http:     deps.httpClient(),
		resp:     newResponder(deps, cfg),
	}, nil
}

// Start subscribes the backing page to the app so DM events reach the
// shared Meta webhook.
func (ig *instagramAdapter) Start(ctx context.Context) error {
	url := fmt.Sprintf("%s/%s/subscribed_apps", ig.graph, ig.pageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("instagram: building subscribe request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+ig.token)

	resp, err := ig.http.Do(req)
	if err != nil {
		return fmt.Errorf("instagram: subscribing page %s: %w", ig.pageID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return fmt.Errorf("instagram: subscribe returned %d: %s", resp.StatusCode, body)
	}
	return nil
}

func (ig *instagramAdapter) Stop(context.Context) error { return nil }

func (ig *instagramAdapter) UpdateProfile(p bot.Profile, openaiKey string) {
	ig.resp.UpdateProfile(p, openaiKey)
}

type igValue struct {
	Messaging []struct {
		Sender struct {
			ID string `json:"id"`
		} `json:"sender"`
		Message *struct {
			Text string `json:"text"`
		} `json:"message"`
	} `json:"messaging"`
}

// HandleEvent processes every messaging event in one webhook change value.
func (ig *instagramAdapter) HandleEvent(ctx context.Context, event json.RawMessage) error {
	var value igValue
	if err := json.Unmarshal(event, &value); err != nil {
		return fmt.Errorf("instagram: decoding value: %w", err)
	}

	for _, ev := range value.Messaging {
		if ev.Sender.ID == "" || ev.Message == nil {
			continue
		}
		userText := ev.Message.Text
		if userText == "" {
			userText = placeholderInstagramNonText
		}

		reply := ig.resp.Reply(ctx, ev.Sender.ID, "", userText)
		if err := ig.sendText(ctx, ev.Sender.ID, reply); err != nil {
			log.Printf("[%s] text delivery failed: %v", ig.id, err)
		}
	}
	return nil
}

func (ig *instagramAdapter) sendText(ctx context.Context, recipientID, text string) error {
	payload := map[string]any{
		"recipient":      map[string]string{"id": recipientID},
		"message":        map[string]string{"text": text},
		"messaging_type": "RESPONSE",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("instagram: encoding payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", ig.graph, ig.igUserID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("instagram: building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+ig.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := ig.http.Do(req)
	if err != nil {
		return fmt.Errorf("instagram: sending message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return fmt.Errorf("instagram: send returned %d: %s", resp.StatusCode, msg)
	}
	return nil
}

var _ bot.Adapter = (*instagramAdapter)(nil)
