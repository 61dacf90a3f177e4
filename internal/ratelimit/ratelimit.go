// Package ratelimit spaces outbound requests to upstream ledger APIs.
//
// Two modes are provided: Limiter enforces a minimum delay between
// requests to the same endpoint key, and Window caps the number of
// requests inside a sliding time window.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter enforces a minimum spacing between requests per endpoint key.
// Safe for concurrent use.
type Limiter struct {
	mu       sync.RWMutex
	buckets  map[string]*rate.Limiter
	minDelay time.Duration
}

// NewLimiter creates a limiter that allows one request per minDelay
// to each distinct endpoint key.
func NewLimiter(minDelay time.Duration) *Limiter {
	return &Limiter{
		buckets:  make(map[string]*rate.Limiter),
		minDelay: minDelay,
	}
}

// Acquire blocks until a request to key is allowed, then records it.
// The wait is cooperative and aborts if ctx is cancelled first.
func (l *Limiter) Acquire(ctx context.Context, key string) error {
	return l.bucket(key).Wait(ctx)
}

// bucket returns the per-key bucket, creating it if needed.
func (l *Limiter) bucket(key string) *rate.Limiter {
	l.mu.RLock()
	b, ok := l.buckets[key]
	l.mu.RUnlock()
	if ok {
		return b
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Re-check after acquiring the write lock.
	if b, ok = l.buckets[key]; ok {
		return b
	}

	// Burst 1 makes the bucket equivalent to a last-request-timestamp
	// check: a request is granted immediately only when at least
	// minDelay has passed since the previous grant.
	b = rate.NewLimiter(rate.Every(l.minDelay), 1)
	l.buckets[key] = b
	return b
}

// Window caps requests to maxRequests inside a sliding timeWindow.
// Safe for concurrent use.
type Window struct {
	mu          sync.Mutex
	maxRequests int
	timeWindow  time.Duration
	stamps      []time.Time

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// NewWindow creates a sliding-window limiter allowing maxRequests per
// timeWindow.
func NewWindow(maxRequests int, timeWindow time.Duration) *Window {
	return &Window{
		maxRequests: maxRequests,
		timeWindow:  timeWindow,
		now:         time.Now,
		sleep:       sleepCtx,
	}
}

// Acquire blocks until the window has room, then records the request.
// It never fails on its own; the only error is ctx cancellation.
func (w *Window) Acquire(ctx context.Context) error {
	for {
		w.mu.Lock()
		now := w.now()
		w.prune(now)

		if len(w.stamps) < w.maxRequests {
			w.stamps = append(w.stamps, now)
			w.mu.Unlock()
			return nil
		}

		// Window is full: wait until the oldest stamp leaves it,
		// then re-evaluate. A loop rather than recursion keeps the
		// stack flat under sustained contention.
		wait := w.stamps[0].Add(w.timeWindow).Sub(now)
		w.mu.Unlock()

		if err := w.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Len reports the number of live timestamps in the window.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(w.now())
	return len(w.stamps)
}

// prune drops timestamps older than the window. Caller holds w.mu.
func (w *Window) prune(now time.Time) {
	cutoff := now.Add(-w.timeWindow)
	i := 0
	for i < len(w.stamps) && !w.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[i:]...)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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
