/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package wanted

// Step advances every target by one frame: position += velocity, then
// reflects off the playfield edges. Targets do not collide with each other.
func Step(targets []*Target, field Playfield) {
	maxX, maxY := field.MaxX(), field.MaxY()

	for _, t := range targets {
		t.X += t.DX
		t.Y += t.DY

		reflectAxis(&t.X, &t.DX, maxX)
		reflectAxis(&t.Y, &t.DY, maxY)
	}
}

// reflectAxis clamps pos into [0, hi] and turns vel around if it still
// points out of the range, so a target sitting on an edge bounces once.
func reflectAxis(pos, vel *float64, hi float64) bool {
	if *pos < 0 {
		*pos = 0
		if *vel < 0 {
			*vel = -*vel
		}
		return true
	}
	if *pos > hi {
		*pos = hi
		if *vel > 0 {
			*vel = -*vel
		}
		return true
	}
	return false
}

// Clamp moves targets back inside the playfield without touching velocity.
func Clamp(targets []*Target, field Playfield) {
	maxX, maxY := field.MaxX(), field.MaxY()

	for _, t := range targets {
		t.X = min(max(t.X, 0), maxX)
		t.Y = min(max(t.Y, 0), maxY)
	}
}
