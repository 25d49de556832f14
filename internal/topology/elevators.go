package topology

import "fmt"

// InstallElevator adds an elevator serving start..end in shaft. Endpoint
// nodes are created only if absent, so elevators sharing a shaft share the
// endpoint for a common level; a shared endpoint is re-owned by the newest
// elevator. New endpoints are linked to the floors beside the shaft.
func (g *Graph) InstallElevator(start, end, shaft int, owner Handle) error {
	if start > end {
		start, end = end, start
	}
	if start == end {
		return fmt.Errorf("install elevator shaft %d: start and end level are both %d", shaft, start)
	}
	key := ElevatorKey{Start: start, End: end, Shaft: shaft}
	if _, ok := g.elevators[key]; ok {
		return fmt.Errorf("install elevator %d..%d shaft %d: %w", start, end, shaft, ErrElevatorExists)
	}
	g.elevators[key] = owner

	lower := g.addEndpoint(start, shaft, key, owner)
	upper := g.addEndpoint(end, shaft, key, owner)
	weight := RideWeightPerLevel*float64(end-start) + WaitWeight
	g.addRide(lower, upper, weight, owner)
	return nil
}

// addRide links the two endpoints of one elevator in both directions and
// stamps each link with the car that serves it.
func (g *Graph) addRide(lower, upper NodeID, weight float64, owner Handle) {
	g.addBidirectional(lower, upper, LinkElevator, weight)
	for _, pair := range [][2]NodeID{{lower, upper}, {upper, lower}} {
		l := g.links[pair[0]][pair[1]]
		l.Owner = owner
		g.links[pair[0]][pair[1]] = l
	}
}

func (g *Graph) addEndpoint(level, shaft int, key ElevatorKey, owner Handle) NodeID {
	id := ID(KindElevator, level, shaft)
	if n, ok := g.nodes[id]; ok {
		n.Owner = owner
	} else {
		g.addNode(Node{ID: id, Kind: KindElevator, Level: level, Index: shaft, Owner: owner})
		for _, floor := range g.adjacentFloors(level, shaft) {
			g.addBidirectional(floor, id, LinkAlight, AlightWeight)
		}
	}
	g.users[id] = append(g.users[id], key)
	return id
}

// RemoveElevator deletes the elevator's ride links and every endpoint no
// other elevator still uses, together with that endpoint's alight links.
// Agents holding paths through the removed nodes are not touched; they
// find out on their next ShortestPath call.
func (g *Graph) RemoveElevator(start, end, shaft int) error {
	if start > end {
		start, end = end, start
	}
	key := ElevatorKey{Start: start, End: end, Shaft: shaft}
	if _, ok := g.elevators[key]; !ok {
		return fmt.Errorf("remove elevator %d..%d shaft %d: %w", start, end, shaft, ErrElevatorUnknown)
	}
	g.detach(key)
	return nil
}

// FinishRemoval is the second teardown step, run once the removed
// elevator owned by owner has fallen out of the building. It purges
// whatever is left of that elevator and is a no-op if RemoveElevator
// already cleaned up, or if the range now belongs to a newer elevator.
func (g *Graph) FinishRemoval(start, end, shaft int, owner Handle) {
	if start > end {
		start, end = end, start
	}
	key := ElevatorKey{Start: start, End: end, Shaft: shaft}
	if h, ok := g.elevators[key]; ok && h == owner {
		g.detach(key)
	}
}

func (g *Graph) detach(key ElevatorKey) {
	lower := ID(KindElevator, key.Start, key.Shaft)
	upper := ID(KindElevator, key.End, key.Shaft)

	// Only one installed elevator can hold a given pair, so the ride link
	// belongs to key.
	g.deleteLink(lower, upper)
	g.deleteLink(upper, lower)
	delete(g.elevators, key)

	for _, id := range []NodeID{lower, upper} {
		remaining := without(g.users[id], key)
		if len(remaining) == 0 {
			delete(g.users, id)
			g.deleteNode(id)
			continue
		}
		g.users[id] = remaining
		if n, ok := g.nodes[id]; ok {
			n.Owner = g.elevators[remaining[len(remaining)-1]]
		}
	}
}

func without(keys []ElevatorKey, key ElevatorKey) []ElevatorKey {
	out := keys[:0:0]
	for _, k := range keys {
		if k != key {
			out = append(out, k)
		}
	}
	return out
}
