// Package geom holds the building's screen geometry and the small amount of
// vector math the simulation needs to move things along straight lines.
package geom

import "math"

// Building layout in screen pixels.
const (
	ShaftOriginX = 100.0
	ShaftSpacing = 150.0
	LevelOriginY = 50.0
	LevelHeight  = 70.0
	RoomWidth    = 150.0
)

// Vec is a point or displacement in screen space.
type Vec struct {
	X, Y float64
}

// V is shorthand for Vec{x, y}.
func V(x, y float64) Vec { return Vec{X: x, Y: y} }

func (v Vec) Add(o Vec) Vec { return Vec{v.X + o.X, v.Y + o.Y} }
func (v Vec) Sub(o Vec) Vec { return Vec{v.X - o.X, v.Y - o.Y} }

// Len returns the Euclidean length of v.
func (v Vec) Len() float64 { return math.Hypot(v.X, v.Y) }

// ShaftX returns the x coordinate of an elevator shaft.
func ShaftX(shaft int) float64 {
	return ShaftOriginX + ShaftSpacing*float64(shaft)
}

// LevelY returns the y coordinate at which an elevator stops for a level.
func LevelY(level int) float64 {
	return LevelOriginY + LevelHeight*float64(level)
}

// RoomCenter returns the floor marker position of the room in column col on
// the given level. Room col sits between shaft col and shaft col+1.
func RoomCenter(level, col int) Vec {
	return Vec{ShaftX(col) + RoomWidth/2, LevelY(level)}
}

// Step moves from toward to by at most maxDist. It reports the new position
// and whether it ended exactly on the target. The step is
// min(maxDist, remaining) along the direction, so it never overshoots.
func Step(from, to Vec, maxDist float64) (Vec, bool) {
	delta := to.Sub(from)
	remaining := delta.Len()
	if remaining <= maxDist {
		return to, true
	}
	if maxDist <= 0 {
		return from, false
	}
	scale := maxDist / remaining
	return Vec{from.X + delta.X*scale, from.Y + delta.Y*scale}, false
}

// Approach moves a scalar toward target by at most maxDist and returns the
// signed distance moved. Arrival is when the returned move equals the
// remaining distance target-current.
func Approach(current, target, maxDist float64) float64 {
	remaining := target - current
	move := math.Min(maxDist, math.Abs(remaining))
	if remaining < 0 {
		move = -move
	}
	return move
}
