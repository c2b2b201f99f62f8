/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package wanted

import "fmt"

const (
	mobileBreakpoint = 600
	mobileMaxWidth   = 320
	mobileMargin     = 60
	mobileHeight     = 220
	mobileTarget     = 32

	desktopWidth  = 500
	desktopHeight = 300
	desktopTarget = 48
)

// Playfield is the area targets move in. Targets are square boxes of
// TargetSize with their origin at the top-left corner.
type Playfield struct {
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	TargetSize float64 `json:"target_size"`
}

func (p Playfield) Validate() error {
	if p.Width <= 0 || p.Height <= 0 || p.TargetSize <= 0 {
		return fmt.Errorf("%w: playfield %gx%g with target size %g", ErrInvalidConfig, p.Width, p.Height, p.TargetSize)
	}
	if p.TargetSize > p.Width || p.TargetSize > p.Height {
		return fmt.Errorf("%w: target size %g does not fit a %gx%g playfield", ErrInvalidConfig, p.TargetSize, p.Width, p.Height)
	}
	return nil
}

func (p Playfield) MaxX() float64 { return max(0, p.Width-p.TargetSize) }

func (p Playfield) MaxY() float64 { return max(0, p.Height-p.TargetSize) }

// LayoutFor picks the playfield for a viewport width in CSS pixels.
// A non-positive width selects the desktop layout.
func LayoutFor(viewport int) Playfield {
	if viewport > 0 && viewport < mobileBreakpoint {
		width := min(mobileMaxWidth, viewport-mobileMargin)
		if width < mobileTarget {
			width = mobileTarget
		}
		return Playfield{
			Width:      float64(width),
			Height:     mobileHeight,
			TargetSize: mobileTarget,
		}
	}

	return Playfield{
		Width:      desktopWidth,
		Height:     desktopHeight,
		TargetSize: desktopTarget,
	}
}
