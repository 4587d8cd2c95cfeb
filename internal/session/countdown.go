package session

import (
	"sync"
	"time"
)

// Countdown decrements a seconds value once per interval, reporting every
// new value and signalling expiry exactly once, after which it stops.
// It is driven by a free-running ticker, not wall-clock comparison, so real
// elapsed time may drift slightly from the reported countdown under load.
// It knows nothing about exam semantics.
type Countdown struct {
	seconds  int
	interval time.Duration
	onTick   func(remaining int)
	onExpire func()
	stop     chan struct{}
	stopOnce sync.Once
}

// NewCountdown creates a countdown from the given number of seconds.
// Both callbacks are invoked from the countdown's own goroutine.
func NewCountdown(seconds int, interval time.Duration, onTick func(int), onExpire func()) *Countdown {
	return &Countdown{
		seconds:  seconds,
		interval: interval,
		onTick:   onTick,
		onExpire: onExpire,
		stop:     make(chan struct{}),
	}
}

// Start begins ticking in a new goroutine.
func (c *Countdown) Start() {
	go c.run()
}

func (c *Countdown) run() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	remaining := c.seconds
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			remaining--
			c.onTick(remaining)
			if remaining <= 0 {
				c.onExpire()
				return
			}
		}
	}
}

// Stop halts the countdown. Safe to call multiple times and after expiry.
func (c *Countdown) Stop() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}
