package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/piaaz/botfleet/internal/bot"
)

// Handler serves the public webhook endpoints. The platforms call them
// directly, so there is no bearer auth; WhatsApp and Instagram payloads
// carry the Meta HMAC signature instead when an app secret is set.
type Handler struct {
	router      *Router
	verifyToken string
	appSecret   string
}

// NewHandler creates a webhook Handler.
func NewHandler(router *Router, verifyToken, appSecret string) *Handler {
	return &Handler{router: router, verifyToken: verifyToken, appSecret: appSecret}
}

// RegisterRoutes mounts the webhook endpoints on the given router.
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/webhooks/telegram/{botID}", h.Telegram)
	r.Get("/webhooks/meta", h.MetaVerify)
	r.Post("/webhooks/whatsapp", h.WhatsApp)
	r.Post("/webhooks/instagram", h.Instagram)
}

// Telegram handles path-addressed Bot API updates.
func (h *Handler) Telegram(w http.ResponseWriter, r *http.Request) {
	botID := chi.URLParam(r, "botID")
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false})
		return
	}

	if err := h.router.RouteTelegram(r.Context(), botID, payload); err != nil {
		if errors.Is(err, bot.ErrUnknownID) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "bot not found or not ready"})
			return
		}
		log.Printf("[TG webhook] error: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// MetaVerify answers the Meta webhook verification handshake.
func (h *Handler) MetaVerify(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode != "subscribe" || challenge == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if h.verifyToken != "" && token != h.verifyToken {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(challenge))
}

// metaEnvelope is the entry/changes wrapper both Meta platforms share.
type metaEnvelope struct {
	Entry []struct {
		Changes []struct {
			Value json.RawMessage `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// WhatsApp handles cloud-messaging webhook deliveries.
func (h *Handler) WhatsApp(w http.ResponseWriter, r *http.Request) {
	h.handleMeta(w, r, "WA", h.router.RouteWhatsApp)
}

// Instagram handles direct-message webhook deliveries.
func (h *Handler) Instagram(w http.ResponseWriter, r *http.Request) {
	h.handleMeta(w, r, "IG", h.router.RouteInstagram)
}

func (h *Handler) handleMeta(w http.ResponseWriter, r *http.Request, tag string, route func(ctx context.Context, value json.RawMessage)) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false})
		return
	}
	if !VerifySignature(h.appSecret, r.Header.Get("X-Hub-Signature-256"), body) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid signature"})
		return
	}

	var envelope metaEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		log.Printf("[%s webhook] undecodable payload: %v", tag, err)
		// Accepted anyway: a 4xx would only trigger Meta redelivery storms.
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	for _, entry := range envelope.Entry {
		for _, change := range entry.Changes {
			if len(change.Value) > 0 {
				route(r.Context(), change.Value)
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("webhook: encoding response: %v", err)
	}
}
