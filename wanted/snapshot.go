/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package wanted

// TargetView is the read-only projection of a Target.
type TargetView struct {
	ID     int     `json:"id"`
	Symbol string  `json:"symbol"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	// Wanted is only set once the round is resolved.
	Wanted bool `json:"wanted,omitempty"`
}

// Snapshot is everything a frontend needs to draw one frame.
type Snapshot struct {
	Phase      Phase        `json:"phase"`
	Reason     LossReason   `json:"reason,omitempty"`
	Message    string       `json:"message,omitempty"`
	Round      int          `json:"round"`
	Score      int          `json:"score"`
	Wanted     string       `json:"wanted,omitempty"`
	TimeLeftMS int64        `json:"time_left_ms"`
	BudgetMS   int64        `json:"budget_ms"`
	Progress   float64      `json:"progress"`
	Playfield  Playfield    `json:"playfield"`
	Targets    []TargetView `json:"targets"`
}

func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		Phase:     s.phase,
		Reason:    s.reason,
		Round:     s.index,
		Score:     s.score,
		Playfield: s.field,
		Targets:   []TargetView{},
	}

	if s.phase == PhaseLost {
		snap.Message = s.reason.Message()
	}

	budget := s.cfg.RoundTime(s.index)
	if s.round != nil {
		budget = s.round.TimeBudget
		snap.Wanted = s.round.WantedSymbol
	}
	snap.BudgetMS = budget.Milliseconds()

	switch s.phase {
	case PhaseRunning:
		left := s.clock.TimeLeft()
		snap.TimeLeftMS = left.Milliseconds()
		if budget > 0 {
			snap.Progress = float64(left) / float64(budget)
		}
	case PhaseWon:
		snap.Progress = 1
	case PhaseReady:
		snap.TimeLeftMS = budget.Milliseconds()
	}

	if s.round == nil {
		return snap
	}

	reveal := s.phase == PhaseWon || s.phase == PhaseLost
	snap.Targets = make([]TargetView, len(s.round.Targets))
	for i, t := range s.round.Targets {
		snap.Targets[i] = TargetView{
			ID:     t.ID,
			Symbol: t.Symbol,
			X:      t.X,
			Y:      t.Y,
			Wanted: reveal && t.Wanted,
		}
	}

	return snap
}

// HitTest returns the topmost target whose box contains (x, y). Later
// targets are drawn over earlier ones.
func (snap Snapshot) HitTest(x, y float64) (int, bool) {
	size := snap.Playfield.TargetSize

	for i := len(snap.Targets) - 1; i >= 0; i-- {
		t := snap.Targets[i]
		if x >= t.X && x < t.X+size && y >= t.Y && y < t.Y+size {
			return t.ID, true
		}
	}

	return 0, false
}
