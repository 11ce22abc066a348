package engine

import (
	"sync"
	"time"
)

// Clock emits ticks to a handler while running. It has no pause state of its
// own: callers pause by stopping it.
type Clock interface {
	// Start begins ticking. Calling Start while running has no effect.
	Start(onTick func())
	// Stop halts ticking. Safe to call when already stopped.
	Stop()
}

// TickerClock ticks on a background goroutine at a fixed interval.
type TickerClock struct {
	interval time.Duration

	mu   sync.Mutex
	stop chan struct{}
}

// NewTickerClock creates a TickerClock. A non-positive interval means one second.
func NewTickerClock(interval time.Duration) *TickerClock {
	if interval <= 0 {
		interval = time.Second
	}
	return &TickerClock{interval: interval}
}

// Start implements Clock.
func (c *TickerClock) Start(onTick func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stop != nil {
		return
	}
	stop := make(chan struct{})
	c.stop = stop

	go func() {
		t := time.NewTicker(c.interval)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				// A Stop racing with the tick wins.
				select {
				case <-stop:
					return
				default:
				}
				onTick()
			}
		}
	}()
}

// Stop implements Clock. It does not wait for an in-flight handler, so it may
// be called from inside one.
func (c *TickerClock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stop == nil {
		return
	}
	close(c.stop)
	c.stop = nil
}

// Running reports whether the clock is ticking.
func (c *TickerClock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stop != nil
}

// ManualClock is a Clock driven by explicit Tick calls. Hosts and tests use it
// to deliver ticks deterministically.
type ManualClock struct {
	mu      sync.Mutex
	handler func()
	running bool
	starts  int
}

// NewManualClock creates a stopped ManualClock.
func NewManualClock() *ManualClock {
	return &ManualClock{}
}

// Start implements Clock.
func (c *ManualClock) Start(onTick func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	c.handler = onTick
	c.running = true
	c.starts++
}

// Stop implements Clock.
func (c *ManualClock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
}

// Tick delivers one tick if the clock is running and reports whether it did.
func (c *ManualClock) Tick() bool {
	c.mu.Lock()
	h, running := c.handler, c.running
	c.mu.Unlock()

	if !running || h == nil {
		return false
	}
	h()
	return true
}

// Advance delivers n ticks, stopping early if the clock stops.
func (c *ManualClock) Advance(n int) int {
	delivered := 0
	for i := 0; i < n; i++ {
		if !c.Tick() {
			break
		}
		delivered++
	}
	return delivered
}

// Running reports whether the clock is ticking.
func (c *ManualClock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Starts returns how many times the clock went from stopped to running.
func (c *ManualClock) Starts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.starts
}
