package agent

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/AaronLay10/Hellevator/internal/ctxlog"
	"github.com/AaronLay10/Hellevator/internal/elevator"
	"github.com/AaronLay10/Hellevator/internal/geom"
	"github.com/AaronLay10/Hellevator/internal/topology"
)

// Links looks up the live link between two nodes. *topology.Graph
// implements it.
type Links interface {
	Link(from, to topology.NodeID) (topology.Link, bool)
}

// World resolves node owners to the entities they name. A handle whose
// entity is gone resolves to false.
type World interface {
	Elevator(h topology.Handle) (*elevator.Elevator, bool)
	Marker(h topology.Handle) (geom.Vec, bool)
}

// Scorer receives the outcome of every agent exactly once.
type Scorer interface {
	Success(ctx context.Context, a *Agent)
	Failure(ctx context.Context, a *Agent)
}

// Mover advances agents one path link at a time.
type Mover struct {
	Links Links
	World World
	Score Scorer
	Rand  *rand.Rand
}

// Run moves every live agent for dt of simulated time.
func (m *Mover) Run(ctx context.Context, agents []*Agent, dt time.Duration) {
	for _, a := range agents {
		if a.Done {
			continue
		}
		if a.Falling {
			a.Walking = false
			a.Pos.Y += FallSpeed * dt.Seconds()
			continue
		}
		m.step(ctx, a, dt)
	}
}

func (m *Mover) step(ctx context.Context, a *Agent, dt time.Duration) {
	switch len(a.Path) {
	case 0:
		// No route. A rider stays aboard and keeps tracking its car until a
		// route comes back; it only falls if the car goes.
		a.Walking = false
		if a.Location.OnElevator {
			m.track(a)
		}
		return
	case 1:
		a.Done = true
		a.Walking = false
		m.Score.Success(ctx, a)
		return
	}

	cur := a.Path[len(a.Path)-1]
	next := a.Path[len(a.Path)-2]

	link, ok := m.Links.Link(cur.ID, next.ID)
	if !ok {
		// The elevator under this path was removed. Riders go down with
		// it, and so does anyone left standing on a landing that went with
		// its last elevator. Everyone else waits for a fresh route.
		a.Walking = false
		switch {
		case a.Location.OnElevator:
			m.track(a)
		case cur.Kind == topology.KindElevator:
			a.Falling = true
		}
		return
	}

	switch link.Kind {
	case topology.LinkElevator:
		m.ride(a, cur, next, link.Owner, dt)
	case topology.LinkAlight:
		m.alight(a, cur, next, dt)
	case topology.LinkFloor:
		m.walk(a, next, WalkSpeed, dt)
	default:
		ctxlog.FromContext(ctx).Error("unknown link kind", "agent", a.ID, "kind", link.Kind)
	}
}

// track keeps a rider on its car. Once the car no longer resolves the
// rider falls on its own.
func (m *Mover) track(a *Agent) {
	e, ok := m.World.Elevator(a.ride)
	if !ok {
		a.Falling = true
		return
	}
	a.Pos = e.Position().Add(a.Offset)
}

// ride takes a ride link carried by car. A rider in that car moves to the
// far endpoint at once and gets off there when the car stops. A rider in
// another car changes cars: it stays aboard until its car stops at the
// shared endpoint, steps off, and waits there for car like anyone else.
func (m *Mover) ride(a *Agent, cur, next topology.Node, car topology.Handle, dt time.Duration) {
	if !a.Location.OnElevator {
		m.board(a, cur.ID, car, dt)
		return
	}
	if a.ride == car {
		a.Location.Node = next.ID
		return
	}
	e, ok := m.World.Elevator(a.ride)
	if !ok {
		a.Falling = true
		return
	}
	a.Pos = e.Position().Add(a.Offset)
	if at, stopped := e.StoppedAt(); stopped && at == cur.ID {
		a.alight(cur.ID)
	}
}

func (m *Mover) alight(a *Agent, cur, next topology.Node, dt time.Duration) {
	if a.Location.OnElevator {
		e, ok := m.World.Elevator(a.ride)
		if !ok {
			a.Falling = true
			return
		}
		a.Pos = e.Position().Add(a.Offset)
		if at, stopped := e.StoppedAt(); stopped && at == cur.ID {
			a.alight(next.ID)
		}
		return
	}
	if cur.Kind == topology.KindElevator {
		// Off the car at a landing, heading back to a floor.
		m.walk(a, next, WalkSpeed, dt)
		return
	}
	m.board(a, next.ID, m.serving(a, next), dt)
}

// serving is the car an agent about to step onto endpoint waits for: the
// one carrying the path's ride link out of endpoint. Without one it is the
// endpoint's owner.
func (m *Mover) serving(a *Agent, endpoint topology.Node) topology.Handle {
	if len(a.Path) >= 3 {
		l, ok := m.Links.Link(endpoint.ID, a.Path[len(a.Path)-3].ID)
		if ok && l.Kind == topology.LinkElevator && l.Owner != topology.NoHandle {
			return l.Owner
		}
	}
	return endpoint.Owner
}

// board walks a onto car once car stands at node, and otherwise keeps it
// dancing on the spot.
func (m *Mover) board(a *Agent, node topology.NodeID, car topology.Handle, dt time.Duration) {
	if e, ok := m.World.Elevator(car); ok {
		if at, stopped := e.StoppedAt(); stopped && at == node {
			pos, arrived := geom.Step(a.Pos, e.Position(), BoardSpeed*dt.Seconds())
			a.Pos = pos
			a.Walking = !arrived
			if arrived {
				a.board(node, car)
			}
			return
		}
	}
	a.Walking = false
	a.Pos.X += (m.float() - 0.5) * 2 * jitter
	a.Pos.Y += (m.float() - 0.5) * 2 * jitter
}

// walk moves a toward next's marker and takes the link on exact arrival.
func (m *Mover) walk(a *Agent, next topology.Node, speed float64, dt time.Duration) {
	target, ok := m.position(next)
	if !ok {
		a.Walking = false
		return
	}
	pos, arrived := geom.Step(a.Pos, target, speed*dt.Seconds())
	a.Pos = pos
	a.Walking = !arrived
	if arrived {
		a.Location.Node = next.ID
	}
}

// position is where an agent stands when it has walked to n.
func (m *Mover) position(n topology.Node) (geom.Vec, bool) {
	switch n.Kind {
	case topology.KindGoal:
		p, ok := m.World.Marker(n.Owner)
		return p.Add(GoalOffset), ok
	case topology.KindFloor:
		p, ok := m.World.Marker(n.Owner)
		return p.Add(FloorOffset), ok
	default:
		return geom.Vec{}, false
	}
}

func (m *Mover) float() float64 {
	if m.Rand == nil {
		return rand.Float64()
	}
	return m.Rand.Float64()
}

// FallCheck retires agents that fell past FallLimitY with one failure each.
func FallCheck(ctx context.Context, agents []*Agent, score Scorer) {
	for _, a := range agents {
		if a.Done || a.Pos.Y <= FallLimitY {
			continue
		}
		a.Done = true
		a.Walking = false
		score.Failure(ctx, a)
	}
}
