package engine

import "sync"

// Throttle bounds recomputation frequency per monitored pair. It is a plain
// mutex-guarded timestamp map owned by the engine; multiple independent
// update sources (push stream and overlapping polls) race through it and at
// most one of them wins per window.
type Throttle struct {
	mu   sync.Mutex
	last map[string]int64 // pairID -> last update, unix ms
}

// NewThrottle creates an empty Throttle.
func NewThrottle() *Throttle {
	return &Throttle{last: make(map[string]int64)}
}

// ShouldUpdate reports whether a recomputation for pairID is permitted at
// nowMs given the window. It does not reserve the window; racing callers
// should use Acquire instead.
func (t *Throttle) ShouldUpdate(pairID string, nowMs, windowMs int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.open(pairID, nowMs, windowMs)
}

// Acquire atomically checks and reserves the window for pairID. Exactly one
// of any set of racing callers gets true per window; the window is consumed
// at gate time, before the winner does any slow work.
func (t *Throttle) Acquire(pairID string, nowMs, windowMs int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.open(pairID, nowMs, windowMs) {
		return false
	}
	t.last[pairID] = nowMs
	return true
}

// open reports whether the window has elapsed. Caller holds t.mu.
func (t *Throttle) open(pairID string, nowMs, windowMs int64) bool {
	last, ok := t.last[pairID]
	if !ok {
		return true
	}
	return nowMs-last >= windowMs
}

// MarkUpdated records that pairID was recomputed at nowMs.
func (t *Throttle) MarkUpdated(pairID string, nowMs int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last[pairID] = nowMs
}

// Forget drops the timestamp for a deleted pair.
func (t *Throttle) Forget(pairID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.last, pairID)
}
