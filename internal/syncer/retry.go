package syncer

import (
	"context"
	"math/rand"
	"time"

	"github.com/alanyoungcy/buildertrades/internal/domain"
)

const (
	// maxRetries is the number of retries after the first attempt.
	maxRetries = 4
	baseDelay  = 400 * time.Millisecond
	maxJitter  = 200 * time.Millisecond
	maxDelay   = 6 * time.Second
)

// Retrier executes feed operations with bounded exponential backoff.
// Failures whose status is in the retryable set, or whose status cannot be
// extracted at all, are retried; everything else propagates immediately.
// The policy is blind to why an error is retryable beyond its status code.
type Retrier struct {
	// sleep waits for the given duration or until the context is done.
	// Replaceable in tests.
	sleep func(ctx context.Context, d time.Duration) error
	// jitter returns a random extra delay in [0, maxJitter).
	jitter func() time.Duration
}

// NewRetrier creates a Retrier with the production sleep and jitter.
func NewRetrier() *Retrier {
	return &Retrier{
		sleep: sleepCtx,
		jitter: func() time.Duration {
			return time.Duration(rand.Int63n(int64(maxJitter)))
		},
	}
}

// Do runs op, retrying transient failures up to maxRetries times (five
// attempts in total). Attempt n backs off min(400ms * 2^n + jitter, 6s).
// After exhausting retries the last observed failure is returned unchanged.
func (r *Retrier) Do(ctx context.Context, op func() error) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if attempt >= maxRetries || !domain.IsRetryable(lastErr) {
			break
		}
		if err := r.sleep(ctx, r.backoff(attempt)); err != nil {
			return lastErr
		}
	}
	return lastErr
}

// backoff computes the delay before the retry following attempt n.
func (r *Retrier) backoff(attempt int) time.Duration {
	d := baseDelay<<uint(attempt) + r.jitter()
	if d > maxDelay {
		d = maxDelay
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
