// Package timer implements the Timer Handle abstraction used by T3450,
// T3460 and T3470. A Handle is armed with a
// duration and a fire callback; it is disarmed on Stop, on firing, or when
// the owning context is destroyed.
//
// To avoid the EMM-Context / Procedure / Timer reference cycle the original
// MME source has ("EMM context cyclic references"), callbacks
// registered here are expected to close over a UE identifier and re-resolve
// the context through the Context Store rather than close over the context
// pointer directly; a Handle itself holds no reference back to its owner.
package timer

import (
	"sync"
	"time"
)

// Handle is a single retransmission/expiry timer. The zero value is a
// disarmed handle ready to use.
type Handle struct {
	mu        sync.Mutex
	timer     *time.Timer
	armed     bool
	fireCount int
}

// Arm starts (or restarts) the timer. If already armed, the previous timer
// is stopped first so at most one goroutine is ever pending per Handle.
// fn runs on its own goroutine when the timer fires; it is the caller's
// responsibility to serialize fn with the rest of that UE's processing
// ("per-context lock").
func (h *Handle) Arm(d time.Duration, fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.timer != nil {
		h.timer.Stop()
	}
	h.armed = true
	h.timer = time.AfterFunc(d, func() {
		h.mu.Lock()
		h.armed = false
		h.fireCount++
		h.mu.Unlock()
		fn()
	})
}

// Stop disarms the timer. It is idempotent and safe to call on an already
// disarmed Handle (e.g. on every procedure exit path 
// "Resource release").
func (h *Handle) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.timer != nil {
		h.timer.Stop()
	}
	h.armed = false
}

// Armed reports whether the timer is currently pending.
func (h *Handle) Armed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.armed
}

// FireCount returns how many times the timer has fired since the Handle was
// created; Arm and Stop do not reset it.
func (h *Handle) FireCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.fireCount
}
