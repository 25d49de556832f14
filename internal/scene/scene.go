// Package scene owns one running simulation: the building graph, the
// entities its nodes point at, the elevators and agents, and the fixed
// order in which a tick runs them.
//
// A Scene is driven from a single goroutine (Run or repeated Tick calls).
// Other goroutines talk to it through Enqueue/Submit and read it through
// Snapshot, Subscribe and Stats.
package scene

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/AaronLay10/Hellevator/internal/agent"
	"github.com/AaronLay10/Hellevator/internal/config"
	"github.com/AaronLay10/Hellevator/internal/ctxlog"
	"github.com/AaronLay10/Hellevator/internal/elevator"
	"github.com/AaronLay10/Hellevator/internal/events"
	"github.com/AaronLay10/Hellevator/internal/geom"
	"github.com/AaronLay10/Hellevator/internal/topology"
)

// ErrOutOfBounds is returned for an elevator range outside the building.
var ErrOutOfBounds = errors.New("outside the building")

type entityKind uint8

const (
	markerEntity entityKind = iota + 1
	elevatorEntity
)

// entity is what a node handle resolves to.
type entity struct {
	kind     entityKind
	pos      geom.Vec
	elevator *elevator.Elevator
}

// Options tune a scene beyond its config file.
type Options struct {
	// Rand overrides the generator seeded from the config.
	Rand *rand.Rand
	// Sink receives every score signal.
	Sink ScoreSink
}

// Scene is one simulation.
type Scene struct {
	id     string
	layout topology.Layout
	graph  *topology.Graph
	rng    *rand.Rand

	entities   map[topology.Handle]*entity
	nextHandle topology.Handle
	elevators  []*elevator.Elevator
	agents     []*agent.Agent
	stale      map[uuid.UUID]struct{}

	score      *Scoreboard
	spawner    *Spawner
	pathfinder *agent.Pathfinder
	mover      *agent.Mover

	ticks      uint64
	elapsed    time.Duration
	spawned    uint64
	stalePaths uint64

	cmdMu    sync.Mutex
	commands []Command

	frames  *frameHub
	statsMu sync.RWMutex
	stats   Stats
	running atomic.Bool
}

// New builds the scene described by cfg: the static layout and any
// preinstalled elevators.
func New(ctx context.Context, cfg *config.SceneConfig, opts Options) (*Scene, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rng := opts.Rand
	if rng == nil {
		seed := cfg.Simulation.Seed
		if seed == 0 {
			seed = uint64(time.Now().UnixNano())
		}
		rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}

	s := &Scene{
		id:       cfg.SceneID(),
		layout:   cfg.BuildingLayout(),
		graph:    topology.New(),
		rng:      rng,
		entities: make(map[topology.Handle]*entity),
		stale:    make(map[uuid.UUID]struct{}),
		score:    &Scoreboard{sink: opts.Sink},
		spawner:  &Spawner{Interval: cfg.SpawnInterval(), MaxAgents: cfg.MaxAgents()},
		frames:   newFrameHub(),
	}
	s.pathfinder = &agent.Pathfinder{Router: s.graph, OnStale: s.pathStale}
	s.mover = &agent.Mover{Links: s.graph, World: s, Score: s.score, Rand: rng}

	err := s.graph.BuildStaticLayout(s.layout, func(_ topology.Kind, level, col int) topology.Handle {
		return s.register(&entity{kind: markerEntity, pos: geom.RoomCenter(level, col)})
	})
	if err != nil {
		return nil, fmt.Errorf("build layout: %w", err)
	}

	for _, e := range cfg.Elevators {
		if err := s.InstallElevator(ctx, e.Start, e.End, e.Shaft, e.Reverse); err != nil {
			return nil, fmt.Errorf("preinstalled elevator: %w", err)
		}
	}

	s.publish()
	return s, nil
}

// ID returns the scene id.
func (s *Scene) ID() string { return s.id }

// Graph exposes the live topology to the tick goroutine.
func (s *Scene) Graph() *topology.Graph { return s.graph }

// Agents returns the live agents. Tick goroutine only.
func (s *Scene) Agents() []*agent.Agent { return s.agents }

// Ready reports whether the tick loop is running.
func (s *Scene) Ready() bool { return s.running.Load() }

func (s *Scene) register(e *entity) topology.Handle {
	s.nextHandle++
	s.entities[s.nextHandle] = e
	return s.nextHandle
}

// Elevator resolves h to a live elevator. Falling elevators still resolve
// until they are destroyed.
func (s *Scene) Elevator(h topology.Handle) (*elevator.Elevator, bool) {
	e, ok := s.entities[h]
	if !ok || e.kind != elevatorEntity {
		return nil, false
	}
	return e.elevator, true
}

// Marker resolves h to a floor or goal marker position.
func (s *Scene) Marker(h topology.Handle) (geom.Vec, bool) {
	e, ok := s.entities[h]
	if !ok || e.kind != markerEntity {
		return geom.Vec{}, false
	}
	return e.pos, true
}

// InstallElevator installs an elevator serving start..end in shaft. It must
// run on the tick goroutine; other goroutines use Submit.
func (s *Scene) InstallElevator(ctx context.Context, start, end, shaft int, reverse bool) error {
	if err := s.checkBounds(start, end, shaft); err != nil {
		s.rejected(ctx, "install", start, end, shaft, err)
		return err
	}

	h := s.nextHandle + 1
	if err := s.graph.InstallElevator(start, end, shaft, h); err != nil {
		s.rejected(ctx, "install", start, end, shaft, err)
		return err
	}
	e := elevator.New(h, start, end, shaft, reverse)
	s.register(&entity{kind: elevatorEntity, elevator: e})
	s.elevators = append(s.elevators, e)

	ctxlog.FromContext(ctx).Info("elevator installed", "handle", h, "start", e.Start, "end", e.End, "shaft", shaft)
	events.Emit("info", "elevator.installed", "", events.Fields{
		"handle": uint64(h),
		"start":  e.Start,
		"end":    e.End,
		"shaft":  shaft,
	})
	return nil
}

// RemoveElevator detaches the elevator serving start..end in shaft from the
// graph and lets it fall. Riders go down with it.
func (s *Scene) RemoveElevator(ctx context.Context, start, end, shaft int) error {
	if start > end {
		start, end = end, start
	}
	h, ok := s.graph.Elevators()[topology.ElevatorKey{Start: start, End: end, Shaft: shaft}]
	if err := s.graph.RemoveElevator(start, end, shaft); err != nil {
		s.rejected(ctx, "remove", start, end, shaft, err)
		return err
	}
	if ok {
		if e, live := s.Elevator(h); live {
			e.MarkRemoved()
		}
	}

	ctxlog.FromContext(ctx).Info("elevator removed", "handle", h, "start", start, "end", end, "shaft", shaft)
	events.Emit("warning", "elevator.removed", "", events.Fields{
		"handle": uint64(h),
		"start":  start,
		"end":    end,
		"shaft":  shaft,
	})
	return nil
}

func (s *Scene) checkBounds(start, end, shaft int) error {
	if shaft < 0 || shaft >= s.layout.Shafts() {
		return fmt.Errorf("shaft %d: %w", shaft, ErrOutOfBounds)
	}
	for _, level := range []int{start, end} {
		if level < 0 || level >= s.layout.Levels() {
			return fmt.Errorf("level %d: %w", level, ErrOutOfBounds)
		}
	}
	return nil
}

func (s *Scene) rejected(ctx context.Context, op string, start, end, shaft int, err error) {
	ctxlog.FromContext(ctx).Warn("operator command rejected", "op", op, "start", start, "end", end, "shaft", shaft, "error", err)
	events.Emit("warning", "operator.rejected", err.Error(), events.Fields{
		"op":    op,
		"start": start,
		"end":   end,
		"shaft": shaft,
	})
}

// Spawn adds an agent on floor node start heading for goal node target.
func (s *Scene) Spawn(ctx context.Context, start, target topology.NodeID) (*agent.Agent, error) {
	from, ok := s.graph.Node(start)
	if !ok || from.Kind != topology.KindFloor {
		return nil, fmt.Errorf("spawn: %s is not a floor node", start)
	}
	to, ok := s.graph.Node(target)
	if !ok || to.Kind != topology.KindGoal {
		return nil, fmt.Errorf("spawn: %s is not a goal node", target)
	}
	pos, ok := s.Marker(from.Owner)
	if !ok {
		return nil, &topology.NodeNotFoundError{ID: start}
	}

	a := agent.New(s.rng, start, target, pos)
	s.agents = append(s.agents, a)
	s.spawned++

	ctxlog.FromContext(ctx).Debug("agent spawned", "agent", a.ID, "start", start, "target", target)
	events.Emit("info", "agent.spawned", "", events.Fields{
		"agent":  a.ID.String(),
		"start":  string(start),
		"target": string(target),
	})
	return a, nil
}

// spawnRandom picks a random floor and a goal in a different room.
func (s *Scene) spawnRandom(ctx context.Context) {
	floors := s.graph.Nodes(topology.KindFloor)
	goals := s.graph.Nodes(topology.KindGoal)
	if len(floors) == 0 {
		return
	}
	start := floors[s.rng.IntN(len(floors))]

	var candidates []topology.Node
	for _, g := range goals {
		if g.Level != start.Level || g.Index != start.Index {
			candidates = append(candidates, g)
		}
	}
	if len(candidates) == 0 {
		return
	}
	goal := candidates[s.rng.IntN(len(candidates))]

	if _, err := s.Spawn(ctx, start.ID, goal.ID); err != nil {
		ctxlog.FromContext(ctx).Warn("spawn failed", "error", err)
	}
}

func (s *Scene) pathStale(ctx context.Context, a *agent.Agent, err error) {
	s.stalePaths++
	if _, seen := s.stale[a.ID]; seen {
		return
	}
	s.stale[a.ID] = struct{}{}
	events.Emit("debug", "agent.path_stale", err.Error(), events.Fields{
		"agent":    a.ID.String(),
		"location": string(a.Location.Node),
	})
}

