package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

type mockProvider struct {
	calls    int
	failWith []error
	reply    string
	lastReq  CompletionRequest
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Complete(_ context.Context, req CompletionRequest) (*CompletionResponse, error) {
	m.lastReq = req
	m.calls++
	if len(m.failWith) > 0 {
		err := m.failWith[0]
		m.failWith = m.failWith[1:]
		return nil, err
	}
	return &CompletionResponse{Content: m.reply}, nil
}

func serverError(status int) error {
	return &openai.APIError{HTTPStatusCode: status, Message: "upstream unhappy"}
}

func TestRetryProviderRecoversFromServerErrors(t *testing.T) {
	mock := &mockProvider{
		failWith: []error{serverError(503), serverError(429)},
		reply:    "ok",
	}
	p := NewRetryProvider(mock, 3, time.Millisecond)

	resp, err := p.Complete(context.Background(), CompletionRequest{})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.Content != "ok" {
		t.Errorf("got %q, want ok", resp.Content)
	}
	if mock.calls != 3 {
		t.Errorf("expected 3 calls, got %d", mock.calls)
	}
}

func TestRetryProviderGivesUp(t *testing.T) {
	mock := &mockProvider{
		failWith: []error{serverError(500), serverError(500), serverError(500)},
	}
	p := NewRetryProvider(mock, 3, time.Millisecond)

	_, err := p.Complete(context.Background(), CompletionRequest{})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if mock.calls != 3 {
		t.Errorf("expected 3 calls, got %d", mock.calls)
	}
}

func TestRetryProviderNonRetryable(t *testing.T) {
	mock := &mockProvider{
		failWith: []error{serverError(401)},
	}
	p := NewRetryProvider(mock, 3, time.Millisecond)

	_, err := p.Complete(context.Background(), CompletionRequest{})
	if err == nil {
		t.Fatal("expected error")
	}
	if mock.calls != 1 {
		t.Errorf("auth errors should not be retried, got %d calls", mock.calls)
	}
}

func TestRetryProviderRetriesTransportErrors(t *testing.T) {
	mock := &mockProvider{
		failWith: []error{errors.New("connection refused")},
		reply:    "ok",
	}
	p := NewRetryProvider(mock, 3, time.Millisecond)

	resp, err := p.Complete(context.Background(), CompletionRequest{})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.Content != "ok" || mock.calls != 2 {
		t.Errorf("got %q after %d calls", resp.Content, mock.calls)
	}
}

func testGenerator(p Provider) *Generator {
	g := NewGenerator(Options{
		Model:      "gpt-4o-mini",
		Retries:    3,
		Backoff:    time.Millisecond,
		MaxHistory: 24,
		MaxUserLen: 4000,
	})
	g.newProvider = func(string) Provider { return p }
	return g
}

func TestGeneratorMissingKey(t *testing.T) {
	g := testGenerator(&mockProvider{reply: "never seen"})
	got := g.Reply(context.Background(), "", "prompt", nil, "hi")
	if got != msgMissingKey {
		t.Errorf("got %q, want missing-key message", got)
	}
}

func TestGeneratorReply(t *testing.T) {
	mock := &mockProvider{reply: "  أهلاً بك  "}
	g := testGenerator(mock)

	got := g.Reply(context.Background(), "sk-test", "أنت مساعد", nil, "مرحبا")
	if got != "أهلاً بك" {
		t.Errorf("got %q", got)
	}
	if len(mock.lastReq.Messages) != 2 {
		t.Fatalf("expected system + user message, got %d", len(mock.lastReq.Messages))
	}
	if mock.lastReq.Messages[0].Role != RoleSystem {
		t.Errorf("first message should be the system prompt")
	}
}

func TestGeneratorEmptyContent(t *testing.T) {
	g := testGenerator(&mockProvider{reply: "   "})
	got := g.Reply(context.Background(), "sk-test", "prompt", nil, "hi")
	if got != msgEmptyContent {
		t.Errorf("got %q, want empty-content message", got)
	}
}

func TestGeneratorApologyAfterExhaustedRetries(t *testing.T) {
	mock := &mockProvider{
		failWith: []error{serverError(503), serverError(503), serverError(503)},
	}
	g := testGenerator(NewRetryProvider(mock, 3, time.Millisecond))

	got := g.Reply(context.Background(), "sk-test", "prompt", nil, "hi")
	if !strings.HasPrefix(got, "تعذّر توليد الرد الآن.") {
		t.Errorf("expected apology, got %q", got)
	}
	if mock.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", mock.calls)
	}
}

func TestGeneratorClipsHistory(t *testing.T) {
	mock := &mockProvider{reply: "ok"}
	g := testGenerator(mock)

	history := make([]Message, 40)
	for i := range history {
		history[i] = Message{Role: RoleUser, Content: "msg"}
	}
	g.Reply(context.Background(), "sk-test", "prompt", history, "hi")

	// system + 24 history + user
	if len(mock.lastReq.Messages) != 26 {
		t.Errorf("expected 26 messages, got %d", len(mock.lastReq.Messages))
	}
}

func TestGeneratorTruncatesLongInput(t *testing.T) {
	mock := &mockProvider{reply: "ok"}
	g := testGenerator(mock)

	long := strings.Repeat("كلمة ", 2000)
	g.Reply(context.Background(), "sk-test", "prompt", nil, long)

	sent := mock.lastReq.Messages[len(mock.lastReq.Messages)-1].Content
	if n := len([]rune(sent)); n > 4000 {
		t.Errorf("user text not truncated: %d runes", n)
	}
	if !strings.HasSuffix(sent, "...") {
		t.Error("truncated text should end with ellipsis")
	}
}

func TestShortenText(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{"short untouched", "hello world", 100, "hello world"},
		{"trims whitespace", "  hi  ", 100, "hi"},
		{"exact limit", "abcde", 5, "abcde"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shortenText(tt.in, tt.limit); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}

	t.Run("cuts at word boundary", func(t *testing.T) {
		got := shortenText(strings.Repeat("word ", 100), 50)
		if !strings.HasSuffix(got, "...") {
			t.Errorf("expected ellipsis, got %q", got)
		}
		if strings.HasSuffix(strings.TrimSuffix(got, "..."), "wor") {
			t.Errorf("cut mid-word: %q", got)
		}
	})
}

func TestGeneratorAgainstHTTPServer(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "مرحبا بك في المتجر"}},
			},
		})
	}))
	defer ts.Close()

	g := NewGenerator(Options{
		Model:      "gpt-4o-mini",
		BaseURL:    ts.URL + "/v1",
		Timeout:    5 * time.Second,
		Retries:    1,
		Backoff:    time.Millisecond,
		MaxHistory: 24,
		MaxUserLen: 4000,
	})

	got := g.Reply(context.Background(), "sk-test", "prompt", nil, "hi")
	if got != "مرحبا بك في المتجر" {
		t.Errorf("got %q", got)
	}
}
