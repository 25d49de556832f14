// Package elevator implements the elevator state machine: moving between
// its two configured levels, dwelling with doors open, closing and, once
// removed by the operator, falling out of the building.
package elevator

import (
	"fmt"
	"time"

	"github.com/AaronLay10/Hellevator/internal/geom"
	"github.com/AaronLay10/Hellevator/internal/topology"
)

const (
	Speed      = 70.0  // px/s
	FallSpeed  = 160.0 // px/s
	DestroyedY = 400.0

	DwellTime = 2000 * time.Millisecond
	CloseTime = 500 * time.Millisecond
)

// Phase is the elevator's state.
type Phase uint8

const (
	// Moving toward the current destination.
	Moving Phase = iota
	// Dwelling at a stop with doors open; riders board and alight.
	Dwelling
	// Closing: doors shut, waiting to depart. Still stopped.
	Closing
	// Falling after removal.
	Falling
	// Destroyed once it fell past DestroyedY.
	Destroyed
)

func (p Phase) String() string {
	switch p {
	case Moving:
		return "moving"
	case Dwelling:
		return "dwelling"
	case Closing:
		return "closing"
	case Falling:
		return "falling"
	case Destroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("Phase(%d)", uint8(p))
	}
}

// Direction of travel toward a destination.
type Direction int8

const (
	Up   Direction = 1
	Down Direction = -1
)

func (d Direction) String() string {
	if d == Up {
		return "UP"
	}
	return "DOWN"
}

// Destination is a level and the direction of travel that reaches it.
type Destination struct {
	Level     int
	Direction Direction
}

// Transition reports what changed during one Advance call.
type Transition uint8

const (
	Arrived Transition = 1 << iota
	DoorOpened
	DoorClosed
	Departed
	FellOut
)

// Has reports whether t includes flag.
func (t Transition) Has(flag Transition) bool { return t&flag != 0 }

// Elevator is one installed elevator.
type Elevator struct {
	Handle topology.Handle
	Start  int
	End    int
	Shaft  int

	pos       geom.Vec
	phase     Phase
	dest      Destination
	next      Destination
	doorOpen  bool
	stoppedAt topology.NodeID
	deadline  time.Duration
}

// New places an elevator at its start level (end level if reverseStart).
// Its first destination is the level it already sits at, so it opens its
// doors on the first Advance.
func New(h topology.Handle, start, end, shaft int, reverseStart bool) *Elevator {
	if start > end {
		start, end = end, start
	}
	e := &Elevator{
		Handle: h,
		Start:  start,
		End:    end,
		Shaft:  shaft,
		phase:  Moving,
		dest:   Destination{Level: start, Direction: Up},
	}
	if reverseStart {
		e.dest = Destination{Level: end, Direction: Down}
	}
	e.pos = geom.V(geom.ShaftX(shaft), geom.LevelY(e.dest.Level))
	return e
}

// Key returns the range this elevator serves.
func (e *Elevator) Key() topology.ElevatorKey {
	return topology.ElevatorKey{Start: e.Start, End: e.End, Shaft: e.Shaft}
}

func (e *Elevator) Position() geom.Vec { return e.pos }
func (e *Elevator) Phase() Phase { return e.phase }
func (e *Elevator) DoorOpen() bool { return e.doorOpen }
func (e *Elevator) Destination() Destination { return e.dest }

// NextDestination is the opposite end, chosen on arrival and committed when
// the elevator departs.
func (e *Elevator) NextDestination() Destination { return e.next }

// Remaining is the time left on the dwell or close timer.
func (e *Elevator) Remaining() time.Duration { return e.deadline }

// Removed reports whether the operator removed the elevator.
func (e *Elevator) Removed() bool { return e.phase == Falling || e.phase == Destroyed }

// StoppedAt returns the endpoint node the elevator is stopped at. It is
// set from arrival until the doors have closed and the elevator departs.
func (e *Elevator) StoppedAt() (topology.NodeID, bool) {
	return e.stoppedAt, e.stoppedAt != ""
}

// MarkRemoved starts the fall. The operator has already detached the
// elevator from the graph.
func (e *Elevator) MarkRemoved() {
	if e.Removed() {
		return
	}
	e.phase = Falling
	e.stoppedAt = ""
	e.deadline = 0
}

// Advance runs the state machine for dt of simulated time.
func (e *Elevator) Advance(dt time.Duration) Transition {
	switch e.phase {
	case Moving:
		return e.move(dt)
	case Dwelling:
		e.deadline -= dt
		if e.deadline > 0 {
			return 0
		}
		e.doorOpen = false
		e.phase = Closing
		e.deadline = CloseTime
		return DoorClosed
	case Closing:
		e.deadline -= dt
		if e.deadline > 0 {
			return 0
		}
		e.dest = e.next
		e.stoppedAt = ""
		e.phase = Moving
		e.deadline = 0
		return Departed
	case Falling:
		e.pos.Y += FallSpeed * dt.Seconds()
		if e.pos.Y > DestroyedY {
			e.phase = Destroyed
			return FellOut
		}
		return 0
	default:
		return 0
	}
}

func (e *Elevator) move(dt time.Duration) Transition {
	targetY := geom.LevelY(e.dest.Level)
	remaining := targetY - e.pos.Y
	step := geom.Approach(e.pos.Y, targetY, Speed*dt.Seconds())
	e.pos.Y += step
	if step != remaining {
		return 0
	}
	e.pos.Y = targetY
	e.stoppedAt = topology.ID(topology.KindElevator, e.dest.Level, e.Shaft)
	e.doorOpen = true
	if e.dest.Level == e.End {
		e.next = Destination{Level: e.Start, Direction: Up}
	} else {
		e.next = Destination{Level: e.End, Direction: Down}
	}
	e.phase = Dwelling
	e.deadline = DwellTime
	return Arrived | DoorOpened
}
