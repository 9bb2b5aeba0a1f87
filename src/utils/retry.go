package utils

import (
	"context"
	"time"
)

type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// Retry runs op up to MaxAttempts times with a fixed Delay between
// attempts. After each attempt the again predicate decides whether the
// outcome is worth another try; the last outcome is returned once the
// predicate says stop or the budget runs out. Sleeps respect ctx.
func Retry[T any](ctx context.Context, policy RetryPolicy, op func(context.Context) (T, error), again func(T, error) bool) (T, error) {
	var v T
	var err error
	for attempt := 1; ; attempt++ {
		v, err = op(ctx)
		if !again(v, err) || attempt >= policy.MaxAttempts {
			return v, err
		}
		select {
		case <-ctx.Done():
			return v, ctx.Err()
		case <-time.After(policy.Delay):
		}
	}
}
