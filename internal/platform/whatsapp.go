package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/piaaz/botfleet/internal/bot"
)

const (
	placeholderWhatsAppVoice   = "(المستخدم أرسل رسالة صوتية)"
	placeholderWhatsAppNonText = "(نوع رسالة غير نصية)"
)

// whatsAppAdapter serves one WhatsApp Cloud API number. Inbound traffic
// arrives on the shared Meta webhook and is routed here by phone_number_id.
type whatsAppAdapter struct {
	id      string
	phoneID string
	token   string
	graph   string
	http    *http.Client
	resp    *responder
}

func newWhatsAppAdapter(cfg bot.Config, deps Deps) (bot.Adapter, error) {
	return &whatsAppAdapter{
		id:      cfg.ID,
		phoneID: cfg.Creds["waPhoneId"],
		token:   cfg.Creds["waToken"],
		graph:   deps.GraphBaseURL,
		http:    deps.httpClient(),
		resp:    newResponder(deps, cfg),
	}, nil
}

// Start subscribes the phone number to the app. The webhook URL itself is
// configured once per app in the Meta dashboard, not per number.
func (w *whatsAppAdapter) Start(ctx context.Context) error {
	url := fmt.Sprintf("%s/%s/subscribed_apps", w.graph, w.phoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("whatsapp: building subscribe request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+w.token)

	resp, err := w.http.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp: subscribing phone %s: %w", w.phoneID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return fmt.Errorf("whatsapp: subscribe returned %d: %s", resp.StatusCode, body)
	}
	return nil
}

// Stop is a no-op: the app-level webhook stays configured and unsubscribing
// the number would break other tooling sharing the app.
func (w *whatsAppAdapter) Stop(context.Context) error { return nil }

func (w *whatsAppAdapter) UpdateProfile(p bot.Profile, openaiKey string) {
	w.resp.UpdateProfile(p, openaiKey)
}

type waValue struct {
	Messages []struct {
		From string `json:"from"`
		Type string `json:"type"`
		Text struct {
			Body string `json:"body"`
		} `json:"text"`
	} `json:"messages"`
}

// HandleEvent processes one webhook change value and answers its first
// message. Status-only notifications carry no messages and are ignored.
func (w *whatsAppAdapter) HandleEvent(ctx context.Context, event json.RawMessage) error {
	var value waValue
	if err := json.Unmarshal(event, &value); err != nil {
		return fmt.Errorf("whatsapp: decoding value: %w", err)
	}
	if len(value.Messages) == 0 {
		return nil
	}

	msg := value.Messages[0]
	var userText string
	switch msg.Type {
	case "text":
		userText = msg.Text.Body
	case "audio", "voice":
		userText = placeholderWhatsAppVoice
	default:
		userText = placeholderWhatsAppNonText
	}

	reply := w.resp.Reply(ctx, msg.From, "", userText)

	w.resp.deliver(ctx, w.id, reply,
		func() error { return w.sendText(ctx, msg.From, reply) },
		func(audio []byte) error { return w.sendVoice(ctx, msg.From, audio) },
	)
	return nil
}

func (w *whatsAppAdapter) sendText(ctx context.Context, to, text string) error {
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text":              map[string]any{"preview_url": false, "body": text},
	}
	return w.postJSON(ctx, fmt.Sprintf("%s/%s/messages", w.graph, w.phoneID), payload)
}

// sendVoice uploads the audio as media, then references it in an audio
// message.
func (w *whatsAppAdapter) sendVoice(ctx context.Context, to string, audio []byte) error {
	mediaID, err := w.uploadAudio(ctx, audio)
	if err != nil {
		return err
	}
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "audio",
		"audio":             map[string]string{"id": mediaID},
	}
	return w.postJSON(ctx, fmt.Sprintf("%s/%s/messages", w.graph, w.phoneID), payload)
}

func (w *whatsAppAdapter) uploadAudio(ctx context.Context, audio []byte) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="voice.ogg"`)
	hdr.Set("Content-Type", "audio/ogg")
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return "", fmt.Errorf("whatsapp: building upload: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("whatsapp: building upload: %w", err)
	}
	mw.WriteField("type", "audio/ogg")
	mw.WriteField("messaging_product", "whatsapp")
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("whatsapp: building upload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/media", w.graph, w.phoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return "", fmt.Errorf("whatsapp: building upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+w.token)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := w.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("whatsapp: uploading audio: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return "", fmt.Errorf("whatsapp: media upload returned %d: %s", resp.StatusCode, body)
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("whatsapp: decoding upload response: %w", err)
	}
	return out.ID, nil
}

func (w *whatsAppAdapter) postJSON(ctx context.Context, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("whatsapp: encoding payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("whatsapp: building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+w.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.http.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp: sending message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return fmt.Errorf("whatsapp: send returned %d: %s", resp.StatusCode, msg)
	}
	return nil
}

var _ bot.Adapter = (*whatsAppAdapter)(nil)
