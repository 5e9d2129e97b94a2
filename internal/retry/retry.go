// Package retry implements exponential backoff for transient provider
// failures. Non-transient errors fail fast on the first attempt.
package retry

import (
	"context"
	"time"

	"github.com/custodia-labs/libris/internal/core/domain"
)

// Default backoff parameters.
const (
	DefaultAttempts     = 3
	DefaultInitialDelay = 1 * time.Second
	DefaultMultiplier   = 2.0
	DefaultMaxDelay     = 30 * time.Second
)

// Policy controls retry behaviour.
type Policy struct {
	// Attempts is the total number of tries, including the first.
	Attempts int

	// InitialDelay is the wait before the second attempt.
	InitialDelay time.Duration

	// Multiplier scales the delay after each failed attempt.
	Multiplier float64

	// MaxDelay caps the per-attempt delay.
	MaxDelay time.Duration
}

// DefaultPolicy returns the standard backoff policy.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:     DefaultAttempts,
		InitialDelay: DefaultInitialDelay,
		Multiplier:   DefaultMultiplier,
		MaxDelay:     DefaultMaxDelay,
	}
}

// Do runs fn with the default policy.
func Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return DefaultPolicy().Do(ctx, fn)
}

// Do runs fn, retrying transient failures with exponential backoff.
// Only errors classified as transient are retried; anything else is
// returned immediately. The last error is returned when attempts run out.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	delay := p.InitialDelay
	if delay <= 0 {
		delay = DefaultInitialDelay
	}
	multiplier := p.Multiplier
	if multiplier <= 1 {
		multiplier = DefaultMultiplier
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * multiplier)
			if delay > maxDelay {
				delay = maxDelay
			}
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !domain.IsTransient(err) {
			return err
		}
	}
	return err
}
