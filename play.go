/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
	"github.com/mattn/go-runewidth"

	"github.com/Seednode/emojibox/wanted"
)

// Each terminal cell stands for a cellWidth x cellHeight block of the
// playfield, so a target covers two columns of one row.
const (
	cellWidth  = 16
	cellHeight = 32

	headerRows = 2
	footerRows = 1

	sampleRate = beep.SampleRate(44100)
)

// terminalField sizes the playfield to fill the screen inside the header,
// footer and border.
func terminalField(cols, rows int) wanted.Playfield {
	inner := max(cols-2, 2)
	lines := max(rows-headerRows-footerRows-2, 1)

	return wanted.Playfield{
		Width:      float64(inner * cellWidth),
		Height:     float64(lines * cellHeight),
		TargetSize: 2 * cellWidth,
	}
}

// cellOf maps a playfield position to the screen cell its target is drawn at.
func cellOf(x, y float64) (int, int) {
	return 1 + int(x/cellWidth), headerRows + 1 + int((y+cellHeight/2)/cellHeight)
}

type tones struct {
	enabled bool
}

func newTones() *tones {
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
		// No sound; the game plays on.
		return &tones{}
	}
	return &tones{enabled: true}
}

func (t *tones) play(freq float64, d time.Duration) {
	if t == nil || !t.enabled {
		return
	}

	sine, err := generators.SineTone(sampleRate, freq)
	if err != nil {
		return
	}
	speaker.Play(beep.Take(sampleRate.N(d), sine))
}

type terminalGame struct {
	screen  tcell.Screen
	sched   *wanted.FrameScheduler
	session *wanted.Session
	sound   *tones
	buttons tcell.ButtonMask
}

func newTerminalGame(screen tcell.Screen, cfg *Config, sound *tones, now time.Time) (*terminalGame, error) {
	game := cfg.gameConfig()
	game.Playfield = terminalField(screen.Size())

	sched := wanted.NewFrameScheduler(now)
	session, err := wanted.NewSession(game, sched, nil)
	if err != nil {
		return nil, err
	}

	g := &terminalGame{
		screen:  screen,
		sched:   sched,
		session: session,
		sound:   sound,
	}

	session.OnTransition = func(tr wanted.Transition) {
		switch tr.To {
		case wanted.PhaseRunning:
			g.sound.play(660, 40*time.Millisecond)
		case wanted.PhaseWon:
			g.sound.play(880, 80*time.Millisecond)
		case wanted.PhaseLost:
			g.sound.play(220, 300*time.Millisecond)
		}
	}

	return g, nil
}

// handle applies one terminal event. It returns false once the player quits.
func (g *terminalGame) handle(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'q', 'Q':
				return false
			case 's', 'S', ' ':
				g.session.Start()
			case 'r', 'R':
				g.session.Restart()
			}
		}

	case *tcell.EventMouse:
		buttons := ev.Buttons()
		pressed := buttons&tcell.Button1 != 0 && g.buttons&tcell.Button1 == 0
		g.buttons = buttons

		if pressed {
			g.click(ev.Position())
		}

	case *tcell.EventResize:
		g.screen.Sync()
		_ = g.session.Resize(terminalField(g.screen.Size()))
	}

	return true
}

// click forwards a mouse press on a screen cell to the session.
func (g *terminalGame) click(col, row int) bool {
	if g.session.Phase() != wanted.PhaseRunning {
		return false
	}

	snap := g.snapped()
	id, ok := snap.HitTest(
		float64((col-1)*cellWidth+cellWidth/2),
		float64((row-headerRows-1)*cellHeight+cellHeight/2),
	)
	if !ok {
		return false
	}

	return g.session.Click(snap.Round, id)
}

// snapped returns the session snapshot with every target moved to the
// corner of the cell it is drawn in, so hit testing matches the screen.
func (g *terminalGame) snapped() wanted.Snapshot {
	snap := g.session.Snapshot()
	for i, t := range snap.Targets {
		col, row := cellOf(t.X, t.Y)
		snap.Targets[i].X = float64((col - 1) * cellWidth)
		snap.Targets[i].Y = float64((row - headerRows - 1) * cellHeight)
	}
	return snap
}

func (g *terminalGame) draw() {
	s := g.screen
	s.Clear()

	cols, rows := s.Size()
	snap := g.session.Snapshot()

	plain := tcell.StyleDefault
	bold := plain.Bold(true)

	wantedSymbol := "?"
	if snap.Wanted != "" && snap.Phase != wanted.PhaseReady {
		wantedSymbol = snap.Wanted
	}

	x := drawText(s, 0, 0, "WANTED ", bold)
	x = drawText(s, x, 0, wantedSymbol, plain)
	drawText(s, x+2, 0, fmt.Sprintf("Round %d  Score %d  Time %.1fs",
		snap.Round, snap.Score, float64(snap.TimeLeftMS)/1000), plain)

	barStyle := plain.Foreground(tcell.ColorGreen)
	if snap.Progress < 0.25 && snap.Phase == wanted.PhaseRunning {
		barStyle = plain.Foreground(tcell.ColorRed)
	}
	filled := int(snap.Progress * float64(cols))
	for i := range filled {
		s.SetContent(i, 1, '█', nil, barStyle)
	}

	top := headerRows
	bottom := rows - footerRows - 1
	right := cols - 1
	drawBox(s, 0, top, right, bottom, plain)

	for _, t := range snap.Targets {
		col, row := cellOf(t.X, t.Y)
		if row >= bottom || col >= right {
			continue
		}

		style := plain
		if t.Wanted {
			style = plain.Reverse(true)
			if snap.Phase == wanted.PhaseLost {
				style = style.Foreground(tcell.ColorRed)
			}
		}
		drawText(s, col, row, t.Symbol, style)
	}

	footer := "s start  r restart  q quit"
	switch snap.Phase {
	case wanted.PhaseWon:
		footer = "Found it!"
	case wanted.PhaseLost:
		footer = fmt.Sprintf("%s Final score: %d.  r restart  q quit", snap.Message, snap.Score)
	case wanted.PhaseRunning:
		footer = "Click the wanted emoji.  q quit"
	}
	drawText(s, 0, rows-1, footer, plain)

	s.Show()
}

func drawText(s tcell.Screen, x, y int, text string, style tcell.Style) int {
	for _, r := range text {
		if runewidth.RuneWidth(r) == 0 {
			continue
		}
		s.SetContent(x, y, r, nil, style)
		x += runewidth.RuneWidth(r)
	}
	return x
}

func drawBox(s tcell.Screen, x1, y1, x2, y2 int, style tcell.Style) {
	for x := x1 + 1; x < x2; x++ {
		s.SetContent(x, y1, '─', nil, style)
		s.SetContent(x, y2, '─', nil, style)
	}
	for y := y1 + 1; y < y2; y++ {
		s.SetContent(x1, y, '│', nil, style)
		s.SetContent(x2, y, '│', nil, style)
	}
	s.SetContent(x1, y1, '┌', nil, style)
	s.SetContent(x2, y1, '┐', nil, style)
	s.SetContent(x1, y2, '└', nil, style)
	s.SetContent(x2, y2, '┘', nil, style)
}

// PlayTerminal runs Emoji Wanted in the current terminal until the player
// quits or ctx is cancelled.
func PlayTerminal(ctx context.Context, cfg *Config) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	screen.EnableMouse()
	screen.HideCursor()

	g, err := newTerminalGame(screen, cfg, newTones(), time.Now())
	if err != nil {
		return err
	}

	events := make(chan tcell.Event, 100)
	quit := make(chan struct{})
	defer close(quit)

	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-quit:
				return
			}
		}
	}()

	ticker := time.NewTicker(cfg.frameInterval())
	defer ticker.Stop()

	g.draw()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev := <-events:
			if !g.handle(ev) {
				return nil
			}

		case now := <-ticker.C:
			g.sched.Frame(now)
			g.draw()
		}
	}
}
