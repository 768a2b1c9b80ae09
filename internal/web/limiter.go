package web

// limiter.go restricts how many reconciliations run in parallel. A semaphore
// caps the concurrency; requests that cannot get a slot within maxWait are
// rejected so a burst of uploads cannot exhaust memory or pool connections.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// errTooManyUploads is returned when all reconciliation slots are occupied
// and the wait timeout expires.
var errTooManyUploads = errors.New("too many concurrent uploads, please try again later")

const (
	defaultMaxConcurrentUploads = 5
	defaultMaxWaitTime          = 30 * time.Second
)

type uploadLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
}

func newUploadLimiter(maxConcurrent int, maxWait time.Duration) *uploadLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrentUploads
	}
	if maxWait <= 0 {
		maxWait = defaultMaxWaitTime
	}

	return &uploadLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire attempts to acquire a reconciliation slot.
// Returns nil on success, errTooManyUploads if the timeout expires.
// The caller MUST call Release() when done (use defer).
func (l *uploadLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil
	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errTooManyUploads
	}
}

// Release frees a slot acquired with Acquire.
func (l *uploadLimiter) Release() {
	select {
	case <-l.semaphore:
		l.mu.Lock()
		l.active--
		l.mu.Unlock()
	default:
		// Release without Acquire; nothing to free.
	}
}

// ActiveCount returns the number of reconciliations currently running.
func (l *uploadLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// Available returns the number of free slots.
func (l *uploadLimiter) Available() int {
	return cap(l.semaphore) - len(l.semaphore)
}
