// Package ratelimit implements dual-strategy adaptive throttling for
// provider endpoints. A token bucket smooths the request rate while a
// rolling 60-second window enforces the exact per-minute count, and the
// effective limit self-tunes from observed outcomes.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/libris/internal/core/domain"
	"github.com/custodia-labs/libris/internal/core/ports/driven"
)

// Ensure Limiter implements the interface.
var _ driven.RateLimiter = (*Limiter)(nil)

// Tuning constants.
const (
	// DefaultRequestsPerMinute is the configured ceiling when unset.
	DefaultRequestsPerMinute = 60

	// DefaultMaxConcurrent bounds in-flight requests per endpoint.
	DefaultMaxConcurrent = 4

	// outcomeWindow is how many recent outcomes drive adaptation.
	outcomeWindow = 100

	// shrinkFactor is applied when the error rate exceeds shrinkThreshold.
	shrinkFactor = 0.8

	// growFactor is applied when the error rate drops below growThreshold.
	growFactor = 1.2

	// shrinkThreshold is the error rate that triggers a downward adjustment.
	shrinkThreshold = 0.10

	// growThreshold is the error rate that permits an upward adjustment.
	growThreshold = 0.01

	// adjustInterval is the minimum gap between windowed adjustments.
	adjustInterval = time.Minute

	// consecutiveErrorLimit triggers an immediate shrink regardless of the
	// windowed rate.
	consecutiveErrorLimit = 3

	// pollInterval bounds how often a blocked Acquire rechecks the window.
	pollInterval = 50 * time.Millisecond
)

// Config holds limiter configuration.
type Config struct {
	// RequestsPerMinute is the configured ceiling per endpoint.
	RequestsPerMinute int

	// MaxConcurrent bounds in-flight requests per endpoint.
	MaxConcurrent int
}

// Limiter throttles requests per logical endpoint.
type Limiter struct {
	mu        sync.Mutex
	ceiling   int
	maxActive int
	endpoints map[string]*endpointState

	// now is replaceable for tests.
	now func() time.Time
}

// endpointState is the per-endpoint throttle state.
type endpointState struct {
	// limit is the effective per-minute limit, adapted over time.
	limit int

	// stamps are the send times within the rolling window, oldest first.
	stamps []time.Time

	// active counts in-flight requests.
	active int

	// bucket smooths the request rate between window refills.
	bucket *rate.Limiter

	// outcomes is a ring of recent results; true means success.
	outcomes [outcomeWindow]bool
	next     int
	filled   int
	errors   int

	consecutiveErrors int
	lastAdjust        time.Time
}

// New creates a limiter. Zero config fields fall back to defaults.
func New(cfg Config) *Limiter {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	return &Limiter{
		ceiling:   cfg.RequestsPerMinute,
		maxActive: cfg.MaxConcurrent,
		endpoints: make(map[string]*endpointState),
		now:       time.Now,
	}
}

// Acquire blocks until the endpoint has both a concurrency slot and
// window capacity, or the timeout elapses.
func (l *Limiter) Acquire(ctx context.Context, endpoint string, timeout time.Duration) error {
	deadline := l.now().Add(timeout)

	for {
		if l.tryAcquire(endpoint) {
			return nil
		}

		now := l.now()
		if !now.Before(deadline) {
			return fmt.Errorf("endpoint %q: %w", endpoint, domain.ErrAcquireTimeout)
		}

		wait := pollInterval
		if remaining := deadline.Sub(now); remaining < wait {
			wait = remaining
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// tryAcquire takes a slot if one is free right now.
func (l *Limiter) tryAcquire(endpoint string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	state := l.endpoint(endpoint)
	now := l.now()
	l.pruneWindow(state, now)

	if state.active >= l.maxActive {
		return false
	}
	if len(state.stamps) >= state.limit {
		return false
	}
	if !state.bucket.AllowN(now, 1) {
		return false
	}

	state.stamps = append(state.stamps, now)
	state.active++
	return true
}

// Release frees the concurrency slot taken by Acquire.
func (l *Limiter) Release(endpoint string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	state := l.endpoint(endpoint)
	if state.active > 0 {
		state.active--
	}
}

// Record feeds a request outcome into the adaptive window.
func (l *Limiter) Record(endpoint string, success bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	state := l.endpoint(endpoint)
	now := l.now()

	// Ring bookkeeping: evict the slot being overwritten.
	if state.filled == outcomeWindow && !state.outcomes[state.next] {
		state.errors--
	}
	state.outcomes[state.next] = success
	state.next = (state.next + 1) % outcomeWindow
	if state.filled < outcomeWindow {
		state.filled++
	}
	if !success {
		state.errors++
		state.consecutiveErrors++
	} else {
		state.consecutiveErrors = 0
	}

	// A burst of consecutive errors shrinks immediately, bypassing the
	// adjustment cadence.
	if state.consecutiveErrors >= consecutiveErrorLimit {
		l.applyLimit(state, int(float64(state.limit)*shrinkFactor), now)
		state.consecutiveErrors = 0
		return
	}

	if now.Sub(state.lastAdjust) < adjustInterval || state.filled == 0 {
		return
	}

	errorRate := float64(state.errors) / float64(state.filled)
	switch {
	case errorRate > shrinkThreshold:
		l.applyLimit(state, int(float64(state.limit)*shrinkFactor), now)
	case errorRate < growThreshold && state.filled >= outcomeWindow/2:
		l.applyLimit(state, int(float64(state.limit)*growFactor), now)
	}
}

// Limit reports the endpoint's current effective per-minute limit.
func (l *Limiter) Limit(endpoint string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.endpoint(endpoint).limit
}

// endpoint returns the state for an endpoint, creating it if needed.
// Caller must hold the lock.
func (l *Limiter) endpoint(name string) *endpointState {
	state, ok := l.endpoints[name]
	if !ok {
		state = &endpointState{
			limit:  l.ceiling,
			bucket: newBucket(l.ceiling),
			// Anchor the cadence so windowed adjustments cannot fire on
			// a nearly empty outcome window right after creation.
			lastAdjust: l.now(),
		}
		l.endpoints[name] = state
	}
	return state
}

// applyLimit clamps and installs a new effective limit.
// Caller must hold the lock.
func (l *Limiter) applyLimit(state *endpointState, limit int, now time.Time) {
	if limit < 1 {
		limit = 1
	}
	if limit > l.ceiling {
		limit = l.ceiling
	}
	if limit == state.limit {
		state.lastAdjust = now
		return
	}
	state.limit = limit
	state.lastAdjust = now
	state.bucket.SetLimitAt(now, perMinute(limit))
	state.bucket.SetBurstAt(now, burstFor(limit))
}

// pruneWindow drops timestamps older than 60 seconds.
// Caller must hold the lock.
func (l *Limiter) pruneWindow(state *endpointState, now time.Time) {
	cutoff := now.Add(-time.Minute)
	kept := state.stamps[:0]
	for _, t := range state.stamps {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	state.stamps = kept
}

// newBucket builds the smoothing bucket for a per-minute limit.
func newBucket(limit int) *rate.Limiter {
	return rate.NewLimiter(perMinute(limit), burstFor(limit))
}

// perMinute converts a per-minute count into a rate.Limit.
func perMinute(limit int) rate.Limit {
	return rate.Limit(float64(limit) / 60.0)
}

// burstFor sizes the bucket so the window stays the authoritative
// per-minute control; the bucket only paces refills after a burst.
func burstFor(limit int) int {
	if limit < 1 {
		return 1
	}
	return limit
}
