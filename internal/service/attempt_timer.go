package service

import (
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// CountdownHooks run on the countdown's own goroutine while it holds its lock.
// They must not block and must not call Stop.
type CountdownHooks struct {
	OnTick   func(remaining time.Duration)
	OnExpire func()
}

// Countdown measures remaining time against a fixed wall-clock anchor, so a
// late or dropped tick only delays the display and never skews the deadline.
// OnExpire fires at most once.
type Countdown struct {
	clock     clockwork.Clock
	startedAt time.Time
	duration  time.Duration
	interval  time.Duration
	hooks     CountdownHooks

	mu      sync.Mutex
	started bool
	stopped bool
	fired   bool
	ticker  clockwork.Ticker
	stop    chan struct{}
	done    chan struct{}
}

func NewCountdown(clock clockwork.Clock, startedAt time.Time, duration, interval time.Duration, hooks CountdownHooks) *Countdown {
	if interval <= 0 {
		interval = time.Second
	}
	return &Countdown{
		clock:     clock,
		startedAt: startedAt,
		duration:  duration,
		interval:  interval,
		hooks:     hooks,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (c *Countdown) RemainingAt(now time.Time) time.Duration {
	r := c.duration - now.Sub(c.startedAt)
	if r < 0 {
		return 0
	}
	return r
}

func (c *Countdown) Remaining() time.Duration {
	return c.RemainingAt(c.clock.Now())
}

func (c *Countdown) Expired() bool {
	return c.Remaining() == 0
}

// Fired reports whether OnExpire has run.
func (c *Countdown) Fired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fired
}

// Check fires OnExpire if the deadline has passed and it has not fired yet.
// It reports whether this call fired.
func (c *Countdown) Check() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped || c.Remaining() > 0 {
		return false
	}
	return c.fireLocked()
}

func (c *Countdown) fireLocked() bool {
	if c.fired {
		return false
	}
	c.fired = true
	if c.hooks.OnExpire != nil {
		c.hooks.OnExpire()
	}
	return true
}

// Start begins ticking. The first tick is delivered immediately, so an
// anchor already in the past expires without waiting a full interval.
func (c *Countdown) Start() {
	c.mu.Lock()
	if c.started || c.stopped {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.ticker = c.clock.NewTicker(c.interval)
	c.mu.Unlock()

	go c.run()
}

func (c *Countdown) run() {
	defer close(c.done)
	defer c.ticker.Stop()

	if c.tick() {
		return
	}
	for {
		select {
		case <-c.stop:
			return
		case <-c.ticker.Chan():
			if c.tick() {
				return
			}
		}
	}
}

func (c *Countdown) tick() (finished bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return true
	}

	remaining := c.Remaining()
	if c.hooks.OnTick != nil {
		c.hooks.OnTick(remaining)
	}
	if remaining > 0 {
		return false
	}
	c.fireLocked()
	return true
}

// Stop cancels the countdown. Once Stop returns no hook runs again.
func (c *Countdown) Stop() {
	c.mu.Lock()
	if !c.stopped {
		c.stopped = true
		close(c.stop)
	}
	started := c.started
	c.mu.Unlock()

	if started {
		<-c.done
	}
}

// wholeSeconds rounds a remaining duration up, so the display reaches zero
// only when time is actually up.
func wholeSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}
