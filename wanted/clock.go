/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package wanted

import "time"

// RoundClock counts a round's budget down in wall time as seen by its
// scheduler, so the frame rate does not change how long a round lasts.
type RoundClock struct {
	sched    Scheduler
	start    time.Time
	budget   time.Duration
	left     time.Duration
	token    *Token
	onExpire func()
}

func NewRoundClock(sched Scheduler) *RoundClock {
	return &RoundClock{sched: sched}
}

// Start restarts the countdown. Any countdown already running is stopped first.
func (c *RoundClock) Start(budget time.Duration, onExpire func()) {
	c.Stop()

	c.start = c.sched.Now()
	c.budget = budget
	c.left = budget
	c.onExpire = onExpire
	c.token = c.sched.ScheduleRecurring(c.tick)
}

func (c *RoundClock) tick() {
	if !c.Running() {
		return
	}

	elapsed := c.sched.Now().Sub(c.start)
	c.left = max(0, c.budget-elapsed)
	if c.left > 0 {
		return
	}

	expire := c.onExpire
	c.Stop()
	if expire != nil {
		expire()
	}
}

// Stop cancels the countdown, freezing TimeLeft. It is idempotent.
func (c *RoundClock) Stop() {
	c.token.Cancel()
	c.token = nil
	c.onExpire = nil
}

func (c *RoundClock) Running() bool {
	return !c.token.Cancelled()
}

func (c *RoundClock) TimeLeft() time.Duration {
	return c.left
}

func (c *RoundClock) Budget() time.Duration {
	return c.budget
}

// Elapsed is the time since the countdown last started.
func (c *RoundClock) Elapsed() time.Duration {
	if c.start.IsZero() {
		return 0
	}
	return c.sched.Now().Sub(c.start)
}
