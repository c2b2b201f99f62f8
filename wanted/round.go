/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package wanted

import (
	"math"
	"math/rand/v2"
	"time"
)

// Target is a single moving symbol. Position is the top-left corner of its box.
type Target struct {
	ID     int
	Symbol string
	X, Y   float64
	DX, DY float64
	Wanted bool
}

// Round is one play cycle, from placement to resolution.
type Round struct {
	Index        int
	TargetCount  int
	TimeBudget   time.Duration
	WantedSymbol string
	Targets      []*Target
}

// Target returns the target with the given ID, or nil.
func (r *Round) Target(id int) *Target {
	if r == nil || id < 0 || id >= len(r.Targets) {
		return nil
	}
	return r.Targets[id]
}

// Generator builds rounds from a validated Config.
type Generator struct {
	cfg Config
	rng *rand.Rand
}

func NewGenerator(cfg Config, rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Generator{cfg: cfg, rng: rng}
}

func (g *Generator) Generate(index int, field Playfield) *Round {
	if index < 1 {
		index = 1
	}

	count := g.cfg.TargetCount(index)
	palette := g.cfg.Palette
	symbol := g.rng.IntN(len(palette))
	wanted := palette[symbol]
	wantedIndex := g.rng.IntN(count)

	targets := make([]*Target, count)
	for i := range targets {
		s := wanted
		if i != wantedIndex {
			s = palette[g.decoy(symbol)]
		}

		speed := g.cfg.MinSpeed + g.rng.Float64()*(g.cfg.MaxSpeed-g.cfg.MinSpeed)
		angle := g.rng.Float64() * 2 * math.Pi

		targets[i] = &Target{
			ID:     i,
			Symbol: s,
			X:      g.rng.Float64() * field.MaxX(),
			Y:      g.rng.Float64() * field.MaxY(),
			DX:     speed * math.Cos(angle),
			DY:     speed * math.Sin(angle),
			Wanted: i == wantedIndex,
		}
	}

	return &Round{
		Index:        index,
		TargetCount:  count,
		TimeBudget:   g.cfg.RoundTime(index),
		WantedSymbol: wanted,
		Targets:      targets,
	}
}

// decoy draws a palette index uniformly, excluding the wanted one.
func (g *Generator) decoy(wanted int) int {
	n := len(g.cfg.Palette)
	if n < 2 {
		return wanted
	}
	i := g.rng.IntN(n - 1)
	if i >= wanted {
		i++
	}
	return i
}
