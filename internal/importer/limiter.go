package importer

// limiter.go bounds concurrent import passes with a semaphore. The default
// is a single slot: the engine's correctness argument assumes the catalog
// snapshot is not being mutated by a second pass. Requests that cannot get
// a slot within maxWait fail with ErrTooManyPasses, and WaitForDrain lets
// shutdown block until in-flight passes finish.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyPasses is returned when all pass slots are occupied and the
// wait timeout expires. Clients should retry after a short delay.
var ErrTooManyPasses = errors.New("an import pass is already running, please try again later")

// DefaultMaxConcurrentPasses is the default limit for parallel passes.
const DefaultMaxConcurrentPasses = 1

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 30 * time.Second

// PassLimiter controls concurrent import passes using a semaphore pattern.
type PassLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
}

// NewPassLimiter creates a limiter allowing at most maxConcurrent passes.
// Requests that cannot acquire a slot within maxWait receive ErrTooManyPasses.
func NewPassLimiter(maxConcurrent int, maxWait time.Duration) *PassLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentPasses
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}

	return &PassLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire attempts to acquire a pass slot.
// Returns nil on success, ErrTooManyPasses if the timeout expires.
// The caller MUST call Release() when the pass completes (use defer).
func (l *PassLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil

	case <-waitCtx.Done():
		// Distinguish caller cancellation from slot timeout
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyPasses
	}
}

// Release releases a previously acquired slot.
// Must be called exactly once for each successful Acquire.
func (l *PassLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()

	<-l.semaphore
}

// ActiveCount returns the number of currently running passes.
func (l *PassLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// WaitForDrain blocks until all active passes complete or ctx is cancelled.
// Used for graceful shutdown.
func (l *PassLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if l.ActiveCount() == 0 {
				return nil
			}
		}
	}
}
