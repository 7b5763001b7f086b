package bot

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handler serves the fleet management API.
type Handler struct {
	reg *Registry
}

// NewHandler creates a Handler backed by the given registry.
func NewHandler(reg *Registry) *Handler {
	return &Handler{reg: reg}
}

// RegisterRoutes mounts the fleet management endpoints on the given router.
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/api/bots", h.ListBots)
	r.Post("/api/activate", h.Activate)
	r.Post("/api/bots/{botID}/update", h.UpdateBot)
	r.Post("/api/bots/{botID}/restart", h.RestartBot)
	r.Post("/api/bots/{botID}/start", h.StartBot)
	r.Post("/api/bots/{botID}/stop", h.StopBot)
	r.Delete("/api/bots/{botID}", h.DeleteBot)
}

func (h *Handler) ListBots(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.reg.List())
}

func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	var cfg Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if !cfg.Platform.Valid() {
		writeError(w, http.StatusBadRequest, "unsupported platform")
		return
	}

	id, err := h.reg.Create(r.Context(), cfg)
	if err != nil {
		handleRegistryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "id": id})
}

func (h *Handler) UpdateBot(w http.ResponseWriter, r *http.Request) {
	var upd Update
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := h.reg.Update(r.Context(), chi.URLParam(r, "botID"), upd); err != nil {
		handleRegistryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) RestartBot(w http.ResponseWriter, r *http.Request) {
	if err := h.reg.Restart(r.Context(), chi.URLParam(r, "botID")); err != nil {
		handleRegistryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) StartBot(w http.ResponseWriter, r *http.Request) {
	if err := h.reg.Start(r.Context(), chi.URLParam(r, "botID")); err != nil {
		handleRegistryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) StopBot(w http.ResponseWriter, r *http.Request) {
	if err := h.reg.Stop(r.Context(), chi.URLParam(r, "botID")); err != nil {
		handleRegistryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) DeleteBot(w http.ResponseWriter, r *http.Request) {
	if err := h.reg.Delete(r.Context(), chi.URLParam(r, "botID")); err != nil {
		handleRegistryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func handleRegistryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnknownID):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, ErrUnsupportedPlatform):
		writeError(w, http.StatusBadRequest, "unsupported platform")
	default:
		log.Printf("bots api: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("bots api: encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
