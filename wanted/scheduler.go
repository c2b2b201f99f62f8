/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package wanted

import "time"

// Scheduler runs callbacks on the goroutine that owns the session.
// Callbacks never run concurrently with each other or with the owner.
type Scheduler interface {
	Now() time.Time
	// Schedule runs fn once, no earlier than delay from now.
	Schedule(delay time.Duration, fn func()) *Token
	// ScheduleRecurring runs fn once per frame until cancelled.
	ScheduleRecurring(fn func()) *Token
}

// Token identifies a scheduled callback. A cancelled callback never runs
// again, even if it was already due.
type Token struct {
	cancelled bool
}

// Cancel is safe to call on a nil or already cancelled token.
func (t *Token) Cancel() {
	if t == nil {
		return
	}
	t.cancelled = true
}

func (t *Token) Cancelled() bool {
	return t == nil || t.cancelled
}

type delayed struct {
	at    time.Time
	fn    func()
	token *Token
}

type recurring struct {
	fn    func()
	token *Token
}

// FrameScheduler is a Scheduler pumped by its owner, once per display
// frame. Delayed callbacks fire on the first frame at or after their due
// time. It is not safe for concurrent use.
type FrameScheduler struct {
	now       time.Time
	delayed   []delayed
	recurring []recurring
	frames    uint64
}

func NewFrameScheduler(now time.Time) *FrameScheduler {
	return &FrameScheduler{now: now}
}

func (s *FrameScheduler) Now() time.Time {
	return s.now
}

func (s *FrameScheduler) Schedule(delay time.Duration, fn func()) *Token {
	t := &Token{}
	s.delayed = append(s.delayed, delayed{at: s.now.Add(delay), fn: fn, token: t})
	return t
}

func (s *FrameScheduler) ScheduleRecurring(fn func()) *Token {
	t := &Token{}
	s.recurring = append(s.recurring, recurring{fn: fn, token: t})
	return t
}

// Frame advances the scheduler clock to now and runs everything due:
// delayed callbacks first, then recurring ones. Callbacks registered while
// a frame is running wait for the next frame.
func (s *FrameScheduler) Frame(now time.Time) {
	if now.After(s.now) {
		s.now = now
	}
	s.frames++
	n := len(s.recurring)

	pending := s.delayed
	s.delayed = nil
	for _, d := range pending {
		switch {
		case d.token.cancelled:
		case d.at.After(s.now):
			s.delayed = append(s.delayed, d)
		default:
			d.token.cancelled = true
			d.fn()
		}
	}

	for i := 0; i < n; i++ {
		if r := s.recurring[i]; !r.token.cancelled {
			r.fn()
		}
	}

	kept := s.recurring[:0]
	for _, r := range s.recurring {
		if !r.token.cancelled {
			kept = append(kept, r)
		}
	}
	clear(s.recurring[len(kept):])
	s.recurring = kept
}

// Pending reports how many callbacks are still scheduled.
func (s *FrameScheduler) Pending() int {
	n := 0
	for _, d := range s.delayed {
		if !d.token.cancelled {
			n++
		}
	}
	for _, r := range s.recurring {
		if !r.token.cancelled {
			n++
		}
	}
	return n
}

func (s *FrameScheduler) Frames() uint64 {
	return s.frames
}
