package server

import (
	"encoding/json"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"
)

var tokenRe = regexp.MustCompile(`^[A-Za-z0-9\-\._~\+\/]+=*$`)

// auth validates dashboard bearer tokens against the identity provider's
// user endpoint. The token is never decoded locally; the provider is the
// source of truth.
type auth struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

func newAuth(endpoint, apiKey string) *auth {
	if endpoint == "" {
		log.Printf("server: no auth endpoint configured, management API is UNPROTECTED")
	}
	return &auth{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (a *auth) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.endpoint == "" {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			authError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if !tokenRe.MatchString(token) {
			authError(w, http.StatusUnauthorized, "Invalid token format")
			return
		}

		req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, a.endpoint+"/auth/v1/user", nil)
		if err != nil {
			authError(w, http.StatusServiceUnavailable, "Auth server not reachable")
			return
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("apikey", a.apiKey)

		resp, err := a.http.Do(req)
		if err != nil {
			authError(w, http.StatusServiceUnavailable, "Auth server not reachable")
			return
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			authError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func authError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
