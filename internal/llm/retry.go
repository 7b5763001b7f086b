package llm

import (
	"context"
	"errors"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// RetryProvider wraps a Provider with bounded retries. Rate limits,
// server errors and transport failures are retried with a linearly
// growing backoff; other API errors fail immediately.
type RetryProvider struct {
	provider Provider
	attempts int
	backoff  time.Duration
}

// NewRetryProvider wraps the given provider with up to attempts tries.
// The wait before try n is backoff*n.
func NewRetryProvider(provider Provider, attempts int, backoff time.Duration) Provider {
	if attempts < 1 {
		attempts = 1
	}
	return &RetryProvider{
		provider: provider,
		attempts: attempts,
		backoff:  backoff,
	}
}

func (r *RetryProvider) Name() string {
	return r.provider.Name()
}

func (r *RetryProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		resp, err := r.provider.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !retryable(err) {
			return nil, err
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.backoff * time.Duration(attempt)):
		}
	}
	return nil, lastErr
}

func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 429 || reqErr.HTTPStatusCode >= 500
	}
	// Anything else is a transport failure and worth another try.
	return true
}
