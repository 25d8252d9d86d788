// internal/turnclock/turnclock.go
package turnclock

import (
	"time"

	"github.com/abhijit77github/turn-game/internal/sched"
)

// Clock counts down the time left in the current turn. It is display only;
// the server decides when a turn actually times out.
type Clock struct {
	sched  sched.Scheduler
	onTick func(left int)

	turn     int
	observed bool
	deadline time.Time
	left     int
	tick     *sched.Task
}

// New returns a stopped clock. onTick receives the whole seconds left after
// every tick, ending with 0; it may be nil.
func New(s sched.Scheduler, onTick func(left int)) *Clock {
	return &Clock{sched: s, onTick: onTick}
}

// Observe restarts the countdown from turnTime seconds when turn differs from
// the last observed turn, or the clock was stopped. A turnTime of zero or less
// stops the clock.
func (c *Clock) Observe(turn, turnTime int) {
	if c.observed && c.turn == turn {
		return
	}
	c.Stop()
	c.turn = turn
	c.observed = true
	if turnTime <= 0 {
		return
	}
	c.left = turnTime
	c.deadline = c.sched.Now().Add(time.Duration(turnTime) * time.Second)
	c.schedule()
}

// Stop cancels the countdown and forgets the observed turn.
func (c *Clock) Stop() {
	c.tick.Stop()
	c.tick = nil
	c.observed = false
	c.left = 0
	c.deadline = time.Time{}
}

// Running reports whether a countdown is in progress.
func (c *Clock) Running() bool { return c.tick.Pending() }

// Seconds is the last ticked whole-second value.
func (c *Clock) Seconds() int { return c.left }

// Remaining is the exact time left, measured on the scheduler clock.
func (c *Clock) Remaining() time.Duration {
	if c.deadline.IsZero() {
		return 0
	}
	if d := c.deadline.Sub(c.sched.Now()); d > 0 {
		return d
	}
	return 0
}

func (c *Clock) schedule() {
	c.tick = c.sched.AfterFunc("tick", time.Second, func() {
		c.tick = nil
		c.left--
		if c.onTick != nil {
			c.onTick(c.left)
		}
		if c.left > 0 {
			c.schedule()
		}
	})
}
