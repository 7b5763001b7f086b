// Package server owns the HTTP front door: routing groups, CORS, auth,
// rate limiting, and the hardening middleware shared by all endpoints.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/piaaz/botfleet/internal/config"
)

// Server is the botfleet HTTP server. Feature packages mount their routes
// on API (authenticated, origin-restricted) or Public (open, for the
// platform webhooks).
type Server struct {
	cfg        config.ServerConfig
	router     chi.Router
	api        chi.Router
	public     chi.Router
	httpServer *http.Server
}

// New creates a server with the shared middleware stack configured.
func New(cfg config.ServerConfig) *Server {
	s := &Server{cfg: cfg}
	s.buildRouter()
	return s
}

func (s *Server) buildRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(securityHeaders)
	r.Use(maxBodyBytes(s.cfg.MaxBodyBytes))
	r.Use(rateLimit(s.cfg.RequestsPerMinute))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	})

	auth := newAuth(s.cfg.AuthEndpoint, s.cfg.AuthAPIKey)

	// Management API: dashboard origins only, bearer auth required.
	r.Group(func(api chi.Router) {
		api.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.cfg.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
		api.Use(auth.middleware)
		s.api = api
	})

	// Webhooks: the platforms call these directly, so origins stay open
	// and there is no bearer auth.
	r.Group(func(pub chi.Router) {
		pub.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Hub-Signature-256"},
		}))
		s.public = pub
	})

	s.router = r
}

// Router returns the root router.
func (s *Server) Router() chi.Router { return s.router }

// API returns the authenticated management route group.
func (s *Server) API() chi.Router { return s.api }

// Public returns the open webhook route group.
func (s *Server) Public() chi.Router { return s.public }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("botfleet server listening on %s", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
