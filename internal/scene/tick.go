package scene

import (
	"context"
	"time"

	"github.com/AaronLay10/Hellevator/internal/agent"
	"github.com/AaronLay10/Hellevator/internal/ctxlog"
	"github.com/AaronLay10/Hellevator/internal/elevator"
	"github.com/AaronLay10/Hellevator/internal/events"
)

// Tick advances the simulation by dt. The order is fixed: operator
// commands, spawner, pathfinder, elevators, movement, fall check. Agents
// therefore see each elevator as it was at the end of the previous tick.
func (s *Scene) Tick(ctx context.Context, dt time.Duration) {
	s.drain(ctx)

	if s.spawner.Due(dt, len(s.agents)) {
		s.spawnRandom(ctx)
	}

	s.pathfinder.Run(ctx, s.agents)
	s.advanceElevators(ctx, dt)
	s.mover.Run(ctx, s.agents, dt)
	agent.FallCheck(ctx, s.agents, s.score)
	s.reap()

	s.ticks++
	s.elapsed += dt
	s.publish()
}

// Run ticks every interval until ctx is cancelled.
func (s *Scene) Run(ctx context.Context, interval time.Duration) error {
	logger := ctxlog.FromContext(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.running.Store(true)
	defer s.running.Store(false)

	logger.Info("scene started", "scene", s.id, "tick", interval)
	events.Emit("info", "scene.started", "", events.Fields{
		"scene_id": s.id,
		"tick_ms":  interval.Milliseconds(),
	})

	for {
		select {
		case <-ctx.Done():
			s.failPending(ctx.Err())
			logger.Info("scene stopped", "scene", s.id, "ticks", s.ticks)
			events.Emit("info", "scene.stopped", "", events.Fields{
				"scene_id": s.id,
				"ticks":    s.ticks,
				"score":    s.score.Score(),
			})
			return ctx.Err()
		case <-ticker.C:
			s.Tick(ctx, interval)
		}
	}
}

func (s *Scene) advanceElevators(ctx context.Context, dt time.Duration) {
	logger := ctxlog.FromContext(ctx)
	live := s.elevators[:0]
	for _, e := range s.elevators {
		tr := e.Advance(dt)
		if tr != 0 {
			s.elevatorEvents(e, tr)
		}
		if tr.Has(elevator.FellOut) {
			s.graph.FinishRemoval(e.Start, e.End, e.Shaft, e.Handle)
			delete(s.entities, e.Handle)
			logger.Info("elevator destroyed", "handle", e.Handle, "shaft", e.Shaft)
			continue
		}
		live = append(live, e)
	}
	for i := len(live); i < len(s.elevators); i++ {
		s.elevators[i] = nil
	}
	s.elevators = live
}

func (s *Scene) elevatorEvents(e *elevator.Elevator, tr elevator.Transition) {
	fields := func() events.Fields {
		return events.Fields{
			"handle": uint64(e.Handle),
			"shaft":  e.Shaft,
			"level":  e.Destination().Level,
		}
	}
	if tr.Has(elevator.Arrived) {
		events.Emit("debug", "elevator.arrived", "", fields())
	}
	if tr.Has(elevator.DoorOpened) {
		events.Emit("debug", "elevator.door_opened", "", fields())
	}
	if tr.Has(elevator.DoorClosed) {
		events.Emit("debug", "elevator.door_closed", "", fields())
	}
	if tr.Has(elevator.Departed) {
		f := fields()
		f["direction"] = e.Destination().Direction.String()
		events.Emit("debug", "elevator.departed", "", f)
	}
	if tr.Has(elevator.FellOut) {
		events.Emit("warning", "elevator.destroyed", "", fields())
	}
}

// reap drops agents that are done.
func (s *Scene) reap() {
	live := s.agents[:0]
	for _, a := range s.agents {
		if a.Done {
			delete(s.stale, a.ID)
			continue
		}
		live = append(live, a)
	}
	for i := len(live); i < len(s.agents); i++ {
		s.agents[i] = nil
	}
	s.agents = live
}
