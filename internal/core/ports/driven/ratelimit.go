package driven

import (
	"context"
	"time"
)

// RateLimiter throttles outbound provider calls per logical endpoint.
// Every network call to an embedding or generation backend acquires a
// slot first and records its outcome afterwards.
type RateLimiter interface {
	// Acquire blocks until a request slot is available for the endpoint
	// or the timeout elapses. Returns domain.ErrAcquireTimeout on
	// timeout. Context cancellation aborts the wait early.
	Acquire(ctx context.Context, endpoint string, timeout time.Duration) error

	// Release frees the concurrency slot taken by Acquire.
	Release(endpoint string)

	// Record feeds a request outcome into the adaptive window.
	Record(endpoint string, success bool)
}
