package handoff

import (
	"sync"
	"time"
)

// ReturnTimer schedules a single deferred callback, such as the
// gateway's auto-return countdown after a payment result. The callback
// runs at most once: Cancel before expiry suppresses it, FireNow runs
// it early, and the loser of any race is a no-op.
type ReturnTimer struct {
	mu        sync.Mutex
	timer     *time.Timer
	fn        func()
	fired     bool
	cancelled bool
}

// AfterCountdown arms a timer that fires fn after d.
func AfterCountdown(d time.Duration, fn func()) *ReturnTimer {
	rt := &ReturnTimer{fn: fn}
	rt.timer = time.AfterFunc(d, func() { rt.fire() })
	return rt
}

func (rt *ReturnTimer) fire() {
	rt.mu.Lock()
	if rt.fired || rt.cancelled {
		rt.mu.Unlock()
		return
	}
	rt.fired = true
	fn := rt.fn
	rt.mu.Unlock()

	fn()
}

// FireNow runs the callback immediately if it has neither fired nor
// been cancelled.
func (rt *ReturnTimer) FireNow() {
	rt.timer.Stop()
	rt.fire()
}

// Cancel suppresses the callback. It reports whether the timer was
// still pending.
func (rt *ReturnTimer) Cancel() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.fired || rt.cancelled {
		return false
	}
	rt.cancelled = true
	rt.timer.Stop()
	return true
}
