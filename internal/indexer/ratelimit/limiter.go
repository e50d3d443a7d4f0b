// Package ratelimit provides per-indexer request throttling: a token bucket
// for requests-per-second and a semaphore for concurrent requests.
package ratelimit

import (
	"context"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

const defaultMaxConcurrent = 4

// Limiter throttles requests to a single indexer. Health-check traffic goes
// through the same limiter as searches.
type Limiter struct {
	bucket *rate.Limiter
	sem    *semaphore.Weighted
}

// New creates a limiter. rps <= 0 means unlimited rate; maxConcurrent <= 0
// falls back to a small default.
func New(rps, maxConcurrent int) *Limiter {
	limit := rate.Inf
	burst := 1
	if rps > 0 {
		limit = rate.Limit(rps)
		burst = rps
	}
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	return &Limiter{
		bucket: rate.NewLimiter(limit, burst),
		sem:    semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

// Acquire blocks until a concurrency slot and a token are available, or the
// context is done. Callers must Release() after the request completes.
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	if err := l.bucket.Wait(ctx); err != nil {
		l.sem.Release(1)
		return err
	}
	return nil
}

// Release frees the concurrency slot taken by Acquire.
func (l *Limiter) Release() {
	l.sem.Release(1)
}
