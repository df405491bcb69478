// Package backoff provides the single retry policy shared by every
// outbound call (embedding model, generation backend, object storage).
package backoff

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Policy bounds an outbound call: token-bucket rate limiting before each
// attempt, a fixed number of attempts, and exponential delay between them.
type Policy struct {
	maxAttempts int
	baseDelay   time.Duration
	limiter     *rate.Limiter
}

// New creates a policy. maxAttempts <= 0 means a single attempt.
func New(maxAttempts int, baseDelay time.Duration, rps float64, burst int) *Policy {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	if rps <= 0 {
		rps = 5
	}
	if burst <= 0 {
		burst = 10
	}
	return &Policy{
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		limiter:     rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Default returns the policy used when none is configured: three
// attempts with a 500ms base delay.
func Default() *Policy {
	return New(3, 500*time.Millisecond, 5, 10)
}

// Do runs op, retrying failed attempts until the attempts or the
// context are exhausted. The last error is returned unchanged so callers
// can classify it with errors.Is/As.
func (p *Policy) Do(ctx context.Context, op func() error) error {
	var lastErr error

	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}

		lastErr = op()
		if lastErr == nil {
			return nil
		}

		if attempt == p.maxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.delay(attempt)):
		}
	}

	return lastErr
}

// delay returns the exponential backoff delay for an attempt index.
func (p *Policy) delay(attempt int) time.Duration {
	d := p.baseDelay
	for i := 0; i < attempt; i++ {
		d *= 2
	}
	if d > 30*time.Second {
		d = 30 * time.Second
	}
	return d
}
