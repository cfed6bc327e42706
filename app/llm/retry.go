package llm

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	DefaultBaseDelay = time.Second
	DefaultMaxDelay  = 8 * time.Second
	DefaultMaxJitter = 250 * time.Millisecond
)

// Retrier retries chat calls that fail with transport or provider errors.
// The wait after the n-th failed attempt is min(BaseDelay*2^n, MaxDelay)
// plus a random jitter in [0, MaxJitter].
type Retrier struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	MaxJitter  time.Duration
}

func NewRetrier(maxRetries int) Retrier {
	return Retrier{
		MaxRetries: maxRetries,
		BaseDelay:  DefaultBaseDelay,
		MaxDelay:   DefaultMaxDelay,
		MaxJitter:  DefaultMaxJitter,
	}
}

func (r Retrier) Complete(ctx context.Context, client ChatClient, req Request) (string, error) {
	attempts := max(r.MaxRetries, 0) + 1

	return backoff.Retry(ctx, func() (string, error) {
		text, err := client.Complete(ctx, req)
		if err == nil {
			return text, nil
		}
		// Client timeouts also match context.DeadlineExceeded, so only
		// the caller's own context ends the retries.
		if ctx.Err() != nil || !retryable(err) {
			return "", backoff.Permanent(err)
		}
		return "", err
	},
		backoff.WithBackOff(r.newBackOff()),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			slog.Warn("Chat completion failed, retrying", "wait", wait, "error", err)
		}),
	)
}

func retryable(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Retryable()
	}

	return true
}

func (r Retrier) newBackOff() *exponentialBackOff {
	return &exponentialBackOff{base: r.BaseDelay, max: r.MaxDelay, jitter: r.MaxJitter}
}

type exponentialBackOff struct {
	base    time.Duration
	max     time.Duration
	jitter  time.Duration
	attempt int
}

func (b *exponentialBackOff) NextBackOff() time.Duration {
	b.attempt++
	return b.delay(b.attempt)
}

func (b *exponentialBackOff) Reset() {
	b.attempt = 0
}

func (b *exponentialBackOff) delay(attempt int) time.Duration {
	wait := b.max
	if attempt < 31 {
		wait = min(b.base*time.Duration(1<<attempt), b.max)
	}
	if b.jitter > 0 {
		wait += rand.N(b.jitter + 1)
	}
	return wait
}
