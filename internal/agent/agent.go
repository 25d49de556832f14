// Package agent holds the simulated occupants of the building and the two
// per-tick passes that drive them: the Pathfinder, which routes every agent
// against the live graph, and the Mover, which walks, boards and rides
// along the routed path.
package agent

import (
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/AaronLay10/Hellevator/internal/geom"
	"github.com/AaronLay10/Hellevator/internal/topology"
)

// Movement constants in px/s.
const (
	WalkSpeed  = 50.0
	BoardSpeed = 25.0
	FallSpeed  = 50.0

	// FallLimitY is the screen depth past which an agent is lost.
	FallLimitY = 390.0

	jitter      = 0.1
	riderSpread = 8.0
)

// Marker offsets applied when walking to a node.
var (
	GoalOffset  = geom.V(-8, -4)
	FloorOffset = geom.V(0, 10)
)

// Location is where an agent is in the graph.
type Location struct {
	Node       topology.NodeID
	OnElevator bool
}

// Agent is one occupant walking toward a goal.
type Agent struct {
	ID       uuid.UUID
	Location Location
	Target   topology.NodeID
	Path     topology.Path

	// Offset spreads riders over the elevator car.
	Offset geom.Vec
	Pos    geom.Vec

	// Walking is the animation signal: true while the agent moved this tick.
	Walking bool
	// Falling is set once the elevator an agent rode has gone.
	Falling bool
	// Done agents reached their goal or fell; every pass skips them.
	Done bool

	ride topology.Handle
}

// New creates an agent standing at pos on node start.
func New(rng *rand.Rand, start, target topology.NodeID, pos geom.Vec) *Agent {
	return &Agent{
		ID:       uuid.New(),
		Location: Location{Node: start},
		Target:   target,
		Offset:   geom.V(rng.Float64()*riderSpread, rng.Float64()*riderSpread),
		Pos:      pos,
	}
}

// Riding returns the elevator the agent boarded, if it is on one.
func (a *Agent) Riding() (topology.Handle, bool) {
	return a.ride, a.Location.OnElevator
}

func (a *Agent) board(node topology.NodeID, h topology.Handle) {
	a.Location = Location{Node: node, OnElevator: true}
	a.ride = h
}

func (a *Agent) alight(node topology.NodeID) {
	a.Location = Location{Node: node}
	a.ride = topology.NoHandle
}
