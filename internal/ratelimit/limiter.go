// Package ratelimit enforces a minimum interval between run starts per workspace.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Error is returned when a workspace starts runs faster than allowed.
type Error struct {
	WorkspaceID string
	RetryAt     time.Time
}

func (e *Error) Error() string {
	return fmt.Sprintf("rate_limited: workspace %s may start another run at %s",
		e.WorkspaceID, e.RetryAt.UTC().Format(time.RFC3339Nano))
}

// RetryAfter returns how long the caller should wait, measured from now.
func (e *Error) RetryAfter(now time.Time) time.Duration {
	if d := e.RetryAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Limiter holds one token bucket per workspace with burst 1, so two
// accepted starts are always at least interval apart. State is process-local.
type Limiter struct {
	interval time.Duration
	mu       sync.Mutex
	buckets  map[string]*rate.Limiter
	now      func() time.Time
}

// New returns a limiter. A non-positive interval disables limiting.
func New(interval time.Duration) *Limiter {
	return &Limiter{
		interval: interval,
		buckets:  make(map[string]*rate.Limiter),
		now:      time.Now,
	}
}

// Interval returns the configured minimum interval.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}

// Allow records a run start for the workspace, or returns *Error if the
// previous accepted start was less than the interval ago. Rejected attempts
// do not push the window forward.
func (l *Limiter) Allow(workspaceID string) error {
	if l == nil || l.interval <= 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	bucket, ok := l.buckets[workspaceID]
	if !ok {
		bucket = rate.NewLimiter(rate.Every(l.interval), 1)
		l.buckets[workspaceID] = bucket
	}

	now := l.now()
	r := bucket.ReserveN(now, 1)
	if !r.OK() {
		return &Error{WorkspaceID: workspaceID, RetryAt: now.Add(l.interval)}
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return &Error{WorkspaceID: workspaceID, RetryAt: now.Add(delay)}
	}
	return nil
}
