package server

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// ipLimiter is a per-client-IP token bucket. Buckets refill continuously
// at rpm tokens per minute and idle buckets are pruned so memory stays
// bounded under address churn.
type ipLimiter struct {
	rpm int

	mu      sync.Mutex
	buckets map[string]*bucket
	sweep   time.Time
}

type bucket struct {
	tokens   float64
	lastFill time.Time
}

func rateLimit(rpm int) func(http.Handler) http.Handler {
	if rpm <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	l := &ipLimiter{
		rpm:     rpm,
		buckets: make(map[string]*bucket),
		sweep:   time.Now(),
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.allow(clientIP(r)) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"rate limit exceeded"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.sweep) > 5*time.Minute {
		for key, b := range l.buckets {
			if now.Sub(b.lastFill) > 5*time.Minute {
				delete(l.buckets, key)
			}
		}
		l.sweep = now
	}

	b, ok := l.buckets[ip]
	if !ok {
		b = &bucket{tokens: float64(l.rpm), lastFill: now}
		l.buckets[ip] = b
	}

	refill := now.Sub(b.lastFill).Seconds() * float64(l.rpm) / 60.0
	b.tokens += refill
	if b.tokens > float64(l.rpm) {
		b.tokens = float64(l.rpm)
	}
	b.lastFill = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func clientIP(r *http.Request) string {
	// RealIP middleware already rewrote RemoteAddr from the forwarding
	// headers where present.
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
