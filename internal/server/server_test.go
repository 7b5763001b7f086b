package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/piaaz/botfleet/internal/config"
)

func testConfig() config.ServerConfig {
	return config.ServerConfig{
		Port:              0,
		AllowedOrigins:    []string{"http://localhost:3000"},
		RequestsPerMinute: 200,
		MaxBodyBytes:      1 << 20,
	}
}

func TestHealthCheck(t *testing.T) {
	srv := New(testConfig())

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]bool
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !body["ok"] {
		t.Errorf("expected ok true, got %s", w.Body.String())
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv := New(testConfig())

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	for header, want := range map[string]string{
		"X-Frame-Options":        "DENY",
		"X-Content-Type-Options": "nosniff",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	} {
		if got := w.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
}

func TestCORSOnAPIGroup(t *testing.T) {
	srv := New(testConfig())
	srv.API().Get("/api/bots", func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest("OPTIONS", "/api/bots", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Errorf("allowed origin missing, headers: %v", w.Header())
	}

	// Unlisted origins get no CORS grant.
	req = httptest.NewRequest("OPTIONS", "/api/bots", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("unlisted origin should not be allowed")
	}
}

func TestAuthMiddleware(t *testing.T) {
	authSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/user" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("apikey") != "anon-key" {
			t.Errorf("apikey header missing")
		}
		if r.Header.Get("Authorization") == "Bearer good-token" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer authSrv.Close()

	cfg := testConfig()
	cfg.AuthEndpoint = authSrv.URL
	cfg.AuthAPIKey = "anon-key"
	srv := New(cfg)
	srv.API().Get("/api/bots", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("[]"))
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"bad token format", "Bearer sp aces!!", http.StatusUnauthorized},
		{"rejected token", "Bearer expired-token", http.StatusUnauthorized},
		{"valid token", "Bearer good-token", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/bots", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			srv.Router().ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestAuthServerUnreachable(t *testing.T) {
	authSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	authSrv.Close() // connection refused from now on

	cfg := testConfig()
	cfg.AuthEndpoint = authSrv.URL
	srv := New(cfg)
	srv.API().Get("/api/bots", func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest("GET", "/api/bots", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RequestsPerMinute = 3
	srv := New(cfg)

	var last int
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest("GET", "/healthz", nil)
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, req)
		last = w.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("4th request status = %d, want 429", last)
	}
}

func TestMaxBodyBytes(t *testing.T) {
	cfg := testConfig()
	cfg.MaxBodyBytes = 16
	srv := New(cfg)
	srv.Public().Post("/webhooks/echo", func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("POST", "/webhooks/echo", strings.NewReader(strings.Repeat("x", 64)))
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", w.Code)
	}
}
