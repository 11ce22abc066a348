package engine

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualClock(t *testing.T) {
	c := NewManualClock()
	var ticks int
	assert.False(t, c.Tick())

	c.Start(func() { ticks++ })
	c.Start(func() { ticks += 100 })
	assert.Equal(t, 1, c.Starts())
	assert.Equal(t, 3, c.Advance(3))
	assert.Equal(t, 3, ticks)

	c.Stop()
	c.Stop()
	assert.False(t, c.Running())
	assert.Equal(t, 0, c.Advance(2))
	assert.Equal(t, 3, ticks)
}

func TestManualClockStopInsideHandler(t *testing.T) {
	c := NewManualClock()
	var ticks int
	c.Start(func() {
		ticks++
		if ticks == 2 {
			c.Stop()
		}
	})
	assert.Equal(t, 2, c.Advance(5))
}

func TestTickerClock(t *testing.T) {
	c := NewTickerClock(5 * time.Millisecond)
	var ticks atomic.Int32

	c.Start(func() { ticks.Add(1) })
	c.Start(func() { ticks.Add(100) })
	assert.True(t, c.Running())

	assert.Eventually(t, func() bool { return ticks.Load() >= 3 }, time.Second, time.Millisecond)
	assert.Less(t, ticks.Load(), int32(100))

	c.Stop()
	c.Stop()
	assert.False(t, c.Running())

	// Allow an in-flight tick to land, then make sure nothing else arrives.
	time.Sleep(20 * time.Millisecond)
	n := ticks.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, n, ticks.Load())
}
