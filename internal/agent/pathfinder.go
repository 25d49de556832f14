package agent

import (
	"context"
	"errors"

	"github.com/AaronLay10/Hellevator/internal/ctxlog"
	"github.com/AaronLay10/Hellevator/internal/topology"
)

// Router answers shortest path queries. *topology.Graph implements it.
type Router interface {
	ShortestPath(from, to topology.NodeID) (topology.Path, error)
}

// RouteStats summarises one Pathfinder pass.
type RouteStats struct {
	Routed  int
	Stale   int
	NoRoute int
}

// Pathfinder recomputes every agent's path each tick. Graph mutations are
// discovered this way: a vanished node makes the query fail and the agent
// keeps its previous path until the next tick.
type Pathfinder struct {
	Router Router
	// OnStale, if set, is called for each agent whose path went stale.
	OnStale func(ctx context.Context, a *Agent, err error)
}

// Run routes every live agent. It never fails; per-agent errors are
// absorbed and counted.
func (p *Pathfinder) Run(ctx context.Context, agents []*Agent) RouteStats {
	var stats RouteStats
	logger := ctxlog.FromContext(ctx)

	for _, a := range agents {
		if a.Done || a.Falling || a.Location.Node == "" || a.Target == "" {
			continue
		}
		path, err := p.Router.ShortestPath(a.Location.Node, a.Target)
		switch {
		case err == nil:
			a.Path = path
			stats.Routed++
		case errors.Is(err, topology.ErrNodeNotFound):
			stats.Stale++
			logger.Debug("path went stale, keeping previous path",
				"agent", a.ID, "location", a.Location.Node, "target", a.Target, "error", err)
			if p.OnStale != nil {
				p.OnStale(ctx, a, err)
			}
		case errors.Is(err, topology.ErrNoRoute):
			// Wait where we are until an elevator connects us.
			a.Path = nil
			stats.NoRoute++
		default:
			logger.Warn("pathfinding failed", "agent", a.ID, "error", err)
		}
	}
	return stats
}
