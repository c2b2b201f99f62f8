/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package wanted implements the Emoji Wanted round engine: a set of moving
// targets, one of which is wanted, a shrinking or growing round clock, and
// the state machine that sequences rounds.
//
// A Session is not safe for concurrent use. Every method, and every callback
// it hands to its Scheduler, must run on the goroutine that pumps that
// Scheduler.
package wanted

import (
	"math/rand/v2"
	"time"
)

type Phase string

const (
	PhaseReady   Phase = "ready"
	PhaseRunning Phase = "running"
	PhaseWon     Phase = "won"
	PhaseLost    Phase = "lost"
)

type LossReason string

const (
	ReasonNone    LossReason = ""
	ReasonTimeout LossReason = "timeout"
	ReasonWrong   LossReason = "wrong"
)

// Message is the text shown for a loss.
func (r LossReason) Message() string {
	switch r {
	case ReasonTimeout:
		return "Time's up!"
	case ReasonWrong:
		return "Wrong emoji!"
	default:
		return "You lost!"
	}
}

// Transition describes a single phase change.
type Transition struct {
	From   Phase
	To     Phase
	Reason LossReason
	Round  int
	Score  int
	// Elapsed is the time the round ran before it was resolved.
	Elapsed time.Duration
}

type Session struct {
	cfg   Config
	gen   *Generator
	sched Scheduler
	field Playfield

	index  int
	round  *Round
	score  int
	phase  Phase
	reason LossReason

	clock   *RoundClock
	motion  *Token
	advance *Token

	// OnTransition, when set, is called after every phase change.
	OnTransition func(Transition)
}

// NewSession validates cfg and returns a session in the ready phase.
// A nil rng is replaced by a randomly seeded one.
func NewSession(cfg Config, sched Scheduler, rng *rand.Rand) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Session{
		cfg:   cfg,
		gen:   NewGenerator(cfg, rng),
		sched: sched,
		field: cfg.Playfield,
		index: 1,
		phase: PhaseReady,
		clock: NewRoundClock(sched),
	}, nil
}

func (s *Session) Phase() Phase            { return s.phase }
func (s *Session) Reason() LossReason      { return s.reason }
func (s *Session) Score() int              { return s.score }
func (s *Session) RoundIndex() int         { return s.index }
func (s *Session) Round() *Round           { return s.round }
func (s *Session) Playfield() Playfield    { return s.field }
func (s *Session) TimeLeft() time.Duration { return s.clock.TimeLeft() }

// Start begins round one. It only acts in the ready phase.
func (s *Session) Start() bool {
	if s.phase != PhaseReady {
		return false
	}

	s.beginRound()
	s.transition(PhaseReady, PhaseRunning, ReasonNone, 0)

	return true
}

// Click resolves the running round against the target with the given ID.
// Target IDs are only unique within a round, so the click names the round
// it was aimed at. Clicks outside the running phase, for another round, or
// on unknown targets are ignored.
func (s *Session) Click(round, id int) bool {
	if s.phase != PhaseRunning || round != s.index {
		return false
	}

	t := s.round.Target(id)
	if t == nil {
		return false
	}

	elapsed := s.clock.Elapsed()
	s.endRound()

	if t.Wanted {
		s.score++
		s.advance = s.sched.Schedule(s.cfg.WinDelay, s.nextRound)
		s.transition(PhaseRunning, PhaseWon, ReasonNone, elapsed)
	} else {
		s.transition(PhaseRunning, PhaseLost, ReasonWrong, elapsed)
	}

	return true
}

// Restart abandons whatever is in progress and returns to round one in the
// ready phase with a zero score.
func (s *Session) Restart() bool {
	from := s.phase

	s.endRound()
	s.index = 1
	s.score = 0
	s.round = nil
	s.clock = NewRoundClock(s.sched)
	s.transition(from, PhaseReady, ReasonNone, 0)

	return true
}

// Resize switches to a new playfield. Targets of the round in progress are
// clamped into it and keep their velocities.
func (s *Session) Resize(field Playfield) error {
	if err := field.Validate(); err != nil {
		return err
	}

	s.field = field
	if s.round != nil {
		Clamp(s.round.Targets, field)
	}

	return nil
}

func (s *Session) beginRound() {
	s.round = s.gen.Generate(s.index, s.field)
	s.reason = ReasonNone
	s.motion = s.sched.ScheduleRecurring(s.frame)
	s.clock.Start(s.round.TimeBudget, s.expire)
}

// endRound cancels every activity issued for the current round.
func (s *Session) endRound() {
	s.motion.Cancel()
	s.motion = nil
	s.advance.Cancel()
	s.advance = nil
	s.clock.Stop()
}

func (s *Session) frame() {
	if s.phase != PhaseRunning {
		return
	}
	Step(s.round.Targets, s.field)
}

func (s *Session) expire() {
	if s.phase != PhaseRunning {
		return
	}

	elapsed := s.clock.Elapsed()
	s.endRound()
	s.transition(PhaseRunning, PhaseLost, ReasonTimeout, elapsed)
}

func (s *Session) nextRound() {
	if s.phase != PhaseWon {
		return
	}

	s.advance = nil
	s.index++
	s.beginRound()
	s.transition(PhaseWon, PhaseRunning, ReasonNone, 0)
}

func (s *Session) transition(from, to Phase, reason LossReason, elapsed time.Duration) {
	s.phase = to
	s.reason = reason

	if s.OnTransition != nil {
		s.OnTransition(Transition{
			From:    from,
			To:      to,
			Reason:  reason,
			Round:   s.index,
			Score:   s.score,
			Elapsed: elapsed,
		})
	}
}
