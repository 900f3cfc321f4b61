package indexer

import (
	"context"
	"time"
)

const (
	defaultRetryDelay = 100 * time.Millisecond
	maxRetryDelay     = 30 * time.Second
)

// Backoff repeats a failing call with a doubling delay capped at 30s.
type Backoff struct {
	Retries int
	Delay   time.Duration
	// Permanent marks errors another attempt cannot fix. Nil retries all.
	Permanent func(error) bool
}

// Do runs fn until it succeeds, fails permanently, runs out of retries or
// ctx is done. The last error is returned.
func (b Backoff) Do(ctx context.Context, fn func(context.Context) error) error {
	delay := b.Delay
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= b.Retries || (b.Permanent != nil && b.Permanent(err)) {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = min(delay*2, maxRetryDelay)
	}
}
