package coach

import (
	"context"
	"time"
)

// Policy is the retry budget for one fetch: MaxAttempts calls in total with a
// linear delay of attempt*BaseDelay between them and none before the first.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultPolicy is three attempts with 1s, then 2s between them.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: time.Second}
}

// Next decides what happens after the given 1-based attempt failed with err.
// Parse failures and transport failures are treated the same way.
func (p Policy) Next(attempt int, err error) (delay time.Duration, retry bool) {
	if attempt >= p.MaxAttempts {
		return 0, false
	}
	return time.Duration(attempt) * p.BaseDelay, true
}

// Retrier drives an operation under a Policy. The wait only blocks the calling goroutine.
type Retrier struct {
	policy Policy
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewRetrier(p Policy) *Retrier {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	return &Retrier{policy: p, sleep: sleepContext}
}

// Do runs op until it succeeds or the policy gives up, calling onFailure after
// every failed attempt. It returns the last error, or the context error if the
// context ends while waiting.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context, attempt int) error, onFailure func(attempt int, err error)) error {
	for attempt := 1; ; attempt++ {
		err := op(ctx, attempt)
		if err == nil {
			return nil
		}
		if onFailure != nil {
			onFailure(attempt, err)
		}

		delay, retry := r.policy.Next(attempt, err)
		if !retry {
			return err
		}
		if serr := r.sleep(ctx, delay); serr != nil {
			return serr
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
