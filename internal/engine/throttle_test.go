package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThrottleWindow(t *testing.T) {
	th := NewThrottle()
	const base = int64(1_000_000)

	assert.True(t, th.ShouldUpdate("p1", base, 1000))
	th.MarkUpdated("p1", base)

	assert.False(t, th.ShouldUpdate("p1", base+500, 1000))
	assert.True(t, th.ShouldUpdate("p1", base+1001, 1000))
}

func TestThrottleAcquireReservesWindow(t *testing.T) {
	th := NewThrottle()
	const base = int64(1_000_000)

	// The first caller wins and consumes the window in the same step;
	// a racing second caller at the same instant loses.
	assert.True(t, th.Acquire("p1", base, 1000))
	assert.False(t, th.Acquire("p1", base, 1000))
	assert.False(t, th.Acquire("p1", base+999, 1000))

	assert.True(t, th.Acquire("p1", base+1000, 1000))
}

func TestThrottlePairsAreIndependent(t *testing.T) {
	th := NewThrottle()
	th.MarkUpdated("p1", 1000)

	assert.False(t, th.ShouldUpdate("p1", 1500, 1000))
	assert.True(t, th.ShouldUpdate("p2", 1500, 1000))
}

func TestThrottleForget(t *testing.T) {
	th := NewThrottle()
	th.MarkUpdated("p1", 1000)
	th.Forget("p1")

	assert.True(t, th.ShouldUpdate("p1", 1001, 1000))
}
