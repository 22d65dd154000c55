// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retry wraps a single unreliable operation with bounded attempts
// and exponential backoff.
package retry

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Policy bounds a retried operation. The zero value is not usable; call
// DefaultPolicy or fill both fields.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// BaseDelay is the sleep before the second attempt; each later attempt
	// doubles it (BaseDelay, 2*BaseDelay, 4*BaseDelay, ...). No jitter is
	// applied so tests can predict timing.
	BaseDelay time.Duration
}

// DefaultPolicy returns three attempts starting at one second.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: time.Second}
}

// OnRetry is invoked with the 1-based number of the attempt that just failed
// and its error, before the backoff sleep. It is not called after the final
// attempt.
type OnRetry func(attempt int, lastErr error)

// Do runs op until it succeeds or the policy is exhausted. The wrapper is
// failure-count bounded and has no awareness of error type; classification
// is the caller's responsibility. If the context is cancelled during a
// backoff wait, Do returns ctx.Err() immediately.
func Do[T any](ctx context.Context, pol Policy, op func(context.Context) (T, error), onRetry OnRetry) (T, error) {
	var zero T
	if pol.MaxAttempts < 1 {
		pol.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= pol.MaxAttempts; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if attempt == pol.MaxAttempts {
			break
		}
		if onRetry != nil {
			onRetry(attempt, err)
		}

		backoff := time.Duration(math.Pow(2, float64(attempt-1))) * pol.BaseDelay
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return zero, fmt.Errorf("after %d attempts: %w", pol.MaxAttempts, lastErr)
}
