package ratelimit

import (
	"sync"
	"time"
)

// Window admits at most a fixed number of calls per window. The window
// restarts the first time a call is attempted after it has elapsed.
type Window struct {
	mu      sync.Mutex
	max     int
	length  time.Duration
	calls   int
	resetAt time.Time
	now     func() time.Time
}

// NewWindow returns a limiter allowing maxCalls per window.
func NewWindow(maxCalls int, window time.Duration) *Window {
	return NewWindowWithClock(maxCalls, window, time.Now)
}

// NewWindowWithClock is NewWindow with an explicit time source.
func NewWindowWithClock(maxCalls int, window time.Duration, now func() time.Time) *Window {
	if maxCalls < 0 {
		maxCalls = 0
	}
	return &Window{
		max:     maxCalls,
		length:  window,
		resetAt: now().Add(window),
		now:     now,
	}
}

// TryAdmit consumes one unit of budget if any remains. A rejected call
// leaves the count untouched.
func (w *Window) TryAdmit() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	if !now.Before(w.resetAt) {
		w.calls = 0
		w.resetAt = now.Add(w.length)
	}
	if w.calls+1 > w.max {
		return false
	}
	w.calls++
	return true
}

// CallsMade returns the number of admitted calls in the current window.
func (w *Window) CallsMade() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls
}

// ResetAt returns when the current window ends.
func (w *Window) ResetAt() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.resetAt
}

// Max returns the per-window budget.
func (w *Window) Max() int {
	return w.max
}
