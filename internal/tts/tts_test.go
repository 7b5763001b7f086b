package tts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func testClient(baseURL string) *Client {
	return NewClient(Options{
		BaseURL:  baseURL,
		Timeout:  5 * time.Second,
		Retries:  3,
		Backoff:  time.Millisecond,
		MaxChars: 4500,
	})
}

func TestSynthesizeMissingConfig(t *testing.T) {
	c := testClient("http://unused")

	if _, err := c.Synthesize(context.Background(), "", "voice", "hi"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("missing key: got %v, want ErrNotConfigured", err)
	}
	if _, err := c.Synthesize(context.Background(), "key", "", "hi"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("missing voice: got %v, want ErrNotConfigured", err)
	}
}

func TestSynthesize(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/voice-123" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("xi-api-key") != "el-key" {
			t.Errorf("missing api key header")
		}
		if r.Header.Get("Accept") != "audio/ogg" {
			t.Errorf("expected audio/ogg accept header, got %s", r.Header.Get("Accept"))
		}
		var req synthRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.Text != "اهلا" {
			t.Errorf("got text %q", req.Text)
		}
		if req.VoiceSettings.Stability != 0.5 || req.VoiceSettings.SimilarityBoost != 0.7 {
			t.Errorf("unexpected voice settings: %+v", req.VoiceSettings)
		}
		w.Write([]byte("OggS-bytes"))
	}))
	defer ts.Close()

	audio, err := testClient(ts.URL).Synthesize(context.Background(), "el-key", "voice-123", "اهلا")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if string(audio) != "OggS-bytes" {
		t.Errorf("got %q", audio)
	}
}

func TestSynthesizeRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("audio"))
	}))
	defer ts.Close()

	audio, err := testClient(ts.URL).Synthesize(context.Background(), "k", "v", "hi")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if string(audio) != "audio" || calls.Load() != 3 {
		t.Errorf("got %q after %d calls", audio, calls.Load())
	}
}

func TestSynthesizeGivesUp(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	_, err := testClient(ts.URL).Synthesize(context.Background(), "k", "v", "hi")
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestSynthesizeBadRequestNotRetried(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	_, err := testClient(ts.URL).Synthesize(context.Background(), "k", "v", "hi")
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("client errors should not be retried, got %d calls", calls.Load())
	}
}

func TestSynthesizeTruncatesText(t *testing.T) {
	var sent string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req synthRequest
		json.NewDecoder(r.Body).Decode(&req)
		sent = req.Text
		w.Write([]byte("audio"))
	}))
	defer ts.Close()

	long := strings.Repeat("ص", 6000)
	if _, err := testClient(ts.URL).Synthesize(context.Background(), "k", "v", long); err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if n := len([]rune(sent)); n != 4500 {
		t.Errorf("expected 4500 runes, got %d", n)
	}
	if !strings.HasSuffix(sent, "...") {
		t.Error("truncated text should end with ellipsis")
	}
}
