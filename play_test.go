/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/Seednode/emojibox/wanted"
)

func newTestTerminal(t *testing.T, cols, rows int) *terminalGame {
	t.Helper()

	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("init screen: %v", err)
	}
	t.Cleanup(screen.Fini)
	screen.SetSize(cols, rows)

	g, err := newTerminalGame(screen, testConfig(t), nil, time.Unix(0, 0))
	if err != nil {
		t.Fatalf("newTerminalGame: %v", err)
	}

	return g
}

func key(r rune) *tcell.EventKey {
	return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone)
}

func TestTerminalField(t *testing.T) {
	field := terminalField(80, 24)

	want := wanted.Playfield{Width: 78 * cellWidth, Height: 19 * cellHeight, TargetSize: 2 * cellWidth}
	if field != want {
		t.Errorf("terminalField(80, 24) = %+v, want %+v", field, want)
	}

	if err := terminalField(0, 0).Validate(); err != nil {
		t.Errorf("tiny terminal gives invalid playfield: %v", err)
	}
}

func TestCellOf(t *testing.T) {
	tests := []struct {
		x, y     float64
		col, row int
	}{
		{0, 0, 1, 3},
		{15, 15, 1, 3},
		{16, 16, 2, 4},
		{40, 64, 3, 5},
	}

	for _, tt := range tests {
		col, row := cellOf(tt.x, tt.y)
		if col != tt.col || row != tt.row {
			t.Errorf("cellOf(%g, %g) = (%d, %d), want (%d, %d)", tt.x, tt.y, col, row, tt.col, tt.row)
		}
	}
}

func TestTerminalKeys(t *testing.T) {
	g := newTestTerminal(t, 80, 24)

	if !g.handle(key('s')) {
		t.Fatal("start key quit the game")
	}
	if g.session.Phase() != wanted.PhaseRunning {
		t.Fatalf("phase = %s after s, want running", g.session.Phase())
	}

	if !g.handle(key('r')) {
		t.Fatal("restart key quit the game")
	}
	if g.session.Phase() != wanted.PhaseReady {
		t.Fatalf("phase = %s after r, want ready", g.session.Phase())
	}

	if g.handle(key('q')) {
		t.Error("q did not quit")
	}
	if g.handle(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone)) {
		t.Error("escape did not quit")
	}
}

func TestTerminalClick(t *testing.T) {
	g := newTestTerminal(t, 80, 24)
	g.handle(key(' '))

	snap := g.snapped()
	top := snap.Targets[len(snap.Targets)-1]
	col, row := cellOf(top.X, top.Y)

	g.handle(tcell.NewEventMouse(col+1, row, tcell.Button1, tcell.ModNone))

	if g.session.Phase() == wanted.PhaseRunning {
		t.Fatal("click on the topmost target did not resolve the round")
	}

	round := g.session.Round()
	wantPhase := wanted.PhaseLost
	if round.Target(top.ID).Wanted {
		wantPhase = wanted.PhaseWon
	}
	if g.session.Phase() != wantPhase {
		t.Errorf("phase = %s, want %s", g.session.Phase(), wantPhase)
	}
}

func TestTerminalClickNeedsPress(t *testing.T) {
	g := newTestTerminal(t, 80, 24)

	// Clicks before the round starts are ignored.
	g.handle(tcell.NewEventMouse(5, 5, tcell.Button1, tcell.ModNone))
	g.handle(tcell.NewEventMouse(5, 5, tcell.ButtonNone, tcell.ModNone))
	g.handle(key('s'))

	// A held button does not click again.
	g.buttons = tcell.Button1
	snap := g.snapped()
	top := snap.Targets[len(snap.Targets)-1]
	col, row := cellOf(top.X, top.Y)
	g.handle(tcell.NewEventMouse(col, row, tcell.Button1, tcell.ModNone))

	if g.session.Phase() != wanted.PhaseRunning {
		t.Errorf("phase = %s, want running", g.session.Phase())
	}
}

func TestTerminalResize(t *testing.T) {
	g := newTestTerminal(t, 80, 24)
	g.handle(key('s'))

	g.screen.(tcell.SimulationScreen).SetSize(40, 12)
	g.handle(tcell.NewEventResize(40, 12))

	field := g.session.Playfield()
	if field != terminalField(40, 12) {
		t.Fatalf("playfield = %+v, want %+v", field, terminalField(40, 12))
	}

	for _, tg := range g.session.Round().Targets {
		if tg.X < 0 || tg.X > field.MaxX() || tg.Y < 0 || tg.Y > field.MaxY() {
			t.Errorf("target %d at (%g, %g) outside %+v", tg.ID, tg.X, tg.Y, field)
		}
	}
}

func TestTerminalFrames(t *testing.T) {
	g := newTestTerminal(t, 80, 24)
	g.handle(key('s'))

	now := time.Unix(0, 0)
	for range 30 {
		now = now.Add(16 * time.Millisecond)
		g.sched.Frame(now)
		g.draw()
	}

	if g.session.Phase() != wanted.PhaseRunning {
		t.Errorf("phase = %s, want running", g.session.Phase())
	}
}

func TestSilentTones(t *testing.T) {
	var sound *tones
	sound.play(440, time.Millisecond)

	(&tones{}).play(440, time.Millisecond)
}
