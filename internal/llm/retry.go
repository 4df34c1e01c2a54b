package llm

import (
	"context"
	"log/slog"
	"time"

	retry "github.com/sethvargo/go-retry"
)

// RetryClient retries rate-limited, server and network failures of Next with
// Fibonacci backoff.
type RetryClient struct {
	Next       Client
	MaxRetries uint64
	Base       time.Duration
}

// NewRetryClient wraps next. A zero base delay defaults to one second.
func NewRetryClient(next Client, maxRetries uint64, base time.Duration) *RetryClient {
	if base <= 0 {
		base = time.Second
	}
	return &RetryClient{Next: next, MaxRetries: maxRetries, Base: base}
}

// Chat implements Client.
func (c *RetryClient) Chat(ctx context.Context, messages []Message, opts Options) (string, error) {
	if c.MaxRetries == 0 {
		return c.Next.Chat(ctx, messages, opts)
	}
	var answer string
	attempt := 0
	b := retry.WithMaxRetries(c.MaxRetries, retry.NewFibonacci(c.Base))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		out, err := c.Next.Chat(ctx, messages, opts)
		if err != nil {
			if Retryable(err) {
				slog.Warn("llm call failed, retrying", "attempt", attempt, "error", err)
				return retry.RetryableError(err)
			}
			return err
		}
		answer = out
		return nil
	})
	return answer, err
}
