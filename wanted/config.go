/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package wanted

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidConfig = errors.New("invalid game configuration")
	ErrEmptyPalette  = fmt.Errorf("%w: symbol palette is empty", ErrInvalidConfig)
)

// DefaultPalette is the set of symbols targets are drawn from.
var DefaultPalette = []string{
	"😀", "🐶", "🍕", "⚽", "🚗", "🌵", "🎩", "🍦",
	"🐱", "👾", "🦄", "🐸", "🍔", "🍉", "🚀", "🎲",
}

// Config holds the tunables of a single game. Speeds are in playfield units
// per frame.
type Config struct {
	Palette         []string
	BaseTargetCount int
	// MaxTargetCount further limits the number of targets per round.
	// Zero means the palette size is the only limit.
	MaxTargetCount int
	MinSpeed       float64
	MaxSpeed       float64
	// TimeBudget is the budget of round 1. Each later round adds TimeDelta
	// (which may be negative), never going below TimeFloor.
	TimeBudget time.Duration
	TimeDelta  time.Duration
	TimeFloor  time.Duration
	WinDelay   time.Duration
	Playfield  Playfield
}

func DefaultConfig() Config {
	return Config{
		Palette:         append([]string(nil), DefaultPalette...),
		BaseTargetCount: 4,
		MinSpeed:        2,
		MaxSpeed:        4,
		TimeBudget:      5000 * time.Millisecond,
		TimeDelta:       500 * time.Millisecond,
		TimeFloor:       1000 * time.Millisecond,
		WinDelay:        900 * time.Millisecond,
		Playfield:       LayoutFor(0),
	}
}

func (c Config) Validate() error {
	if len(c.Palette) == 0 {
		return ErrEmptyPalette
	}
	seen := make(map[string]bool, len(c.Palette))
	for i, s := range c.Palette {
		if s == "" {
			return fmt.Errorf("%w: palette entry %d is empty", ErrInvalidConfig, i)
		}
		if seen[s] {
			return fmt.Errorf("%w: palette entry %q is repeated", ErrInvalidConfig, s)
		}
		seen[s] = true
	}
	if c.BaseTargetCount < 0 {
		return fmt.Errorf("%w: base target count must not be negative: %d", ErrInvalidConfig, c.BaseTargetCount)
	}
	if c.MaxTargetCount < 0 {
		return fmt.Errorf("%w: max target count must not be negative: %d", ErrInvalidConfig, c.MaxTargetCount)
	}
	if c.MinSpeed < 0 || c.MaxSpeed < c.MinSpeed {
		return fmt.Errorf("%w: speed range [%g, %g] is invalid", ErrInvalidConfig, c.MinSpeed, c.MaxSpeed)
	}
	if c.TimeBudget <= 0 {
		return fmt.Errorf("%w: round time must be positive: %s", ErrInvalidConfig, c.TimeBudget)
	}
	if c.TimeFloor < 0 {
		return fmt.Errorf("%w: round time floor must not be negative: %s", ErrInvalidConfig, c.TimeFloor)
	}
	if c.WinDelay < 0 {
		return fmt.Errorf("%w: win delay must not be negative: %s", ErrInvalidConfig, c.WinDelay)
	}

	return c.Playfield.Validate()
}

// maxTargets is the largest number of targets a round may hold.
func (c Config) maxTargets() int {
	n := len(c.Palette)
	if n == 1 {
		// Nothing is left to fill the other slots once the wanted symbol
		// is excluded.
		return 1
	}
	if c.MaxTargetCount > 0 && c.MaxTargetCount < n {
		n = c.MaxTargetCount
	}
	return n
}

// TargetCount returns the number of targets placed in the given round.
func (c Config) TargetCount(index int) int {
	return max(1, min(c.BaseTargetCount+index, c.maxTargets()))
}

// RoundTime returns the time budget of the given round.
func (c Config) RoundTime(index int) time.Duration {
	if index < 1 {
		index = 1
	}
	budget := c.TimeBudget + time.Duration(index-1)*c.TimeDelta

	return max(budget, c.TimeFloor)
}
