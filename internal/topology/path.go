package topology

import (
	"container/heap"
	"math"
	"sort"
)

// Path is a chain of nodes from a destination back to an origin:
// path[0] is the destination and path[len-1] the origin, so a walker pops
// from the end. Nodes are copies; a path outlives the nodes it names.
type Path []Node

// Current returns the node the walker is at.
func (p Path) Current() (Node, bool) {
	if len(p) == 0 {
		return Node{}, false
	}
	return p[len(p)-1], true
}

// Next returns the node after Current.
func (p Path) Next() (Node, bool) {
	if len(p) < 2 {
		return Node{}, false
	}
	return p[len(p)-2], true
}

// IDs lists the node ids in path order (destination first).
func (p Path) IDs() []NodeID {
	out := make([]NodeID, len(p))
	for i, n := range p {
		out[i] = n.ID
	}
	return out
}

// ShortestPath returns the cheapest path from -> to using Dijkstra's
// algorithm. The result is destination first. It fails with an error
// matching ErrNodeNotFound when either endpoint is gone, and ErrNoRoute
// when they are disconnected.
func (g *Graph) ShortestPath(from, to NodeID) (Path, error) {
	if _, ok := g.nodes[from]; !ok {
		return nil, &NodeNotFoundError{ID: from}
	}
	if _, ok := g.nodes[to]; !ok {
		return nil, &NodeNotFoundError{ID: to}
	}

	dist := map[NodeID]float64{from: 0}
	prev := make(map[NodeID]NodeID)
	done := make(map[NodeID]bool)
	pq := &queue{{id: from, dist: 0}}

	for pq.Len() > 0 {
		item := heap.Pop(pq).(queueItem)
		if done[item.id] {
			continue
		}
		done[item.id] = true
		if item.id == to {
			break
		}
		for _, link := range g.outgoing(item.id) {
			next := link.To
			if done[next] {
				continue
			}
			d := item.dist + link.Weight
			if cur, seen := dist[next]; !seen || d < cur {
				dist[next] = d
				prev[next] = item.id
				heap.Push(pq, queueItem{id: next, dist: d})
			}
		}
	}

	if !done[to] {
		return nil, ErrNoRoute
	}

	path := Path{*g.nodes[to]}
	for id := to; id != from; {
		id = prev[id]
		path = append(path, *g.nodes[id])
	}
	return path, nil
}

// Cost returns the summed link weight along p, or +Inf if a consecutive
// pair is no longer linked.
func (g *Graph) Cost(p Path) float64 {
	total := 0.0
	for i := len(p) - 1; i > 0; i-- {
		l, ok := g.Link(p[i].ID, p[i-1].ID)
		if !ok {
			return math.Inf(1)
		}
		total += l.Weight
	}
	return total
}

// outgoing returns the links leaving id sorted by target.
func (g *Graph) outgoing(id NodeID) []Link {
	m := g.links[id]
	out := make([]Link, 0, len(m))
	for _, l := range m {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].To < out[j].To })
	return out
}

type queueItem struct {
	id   NodeID
	dist float64
}

// queue is a min-heap of tentative distances. Ties break on node id so
// equal-cost routes resolve the same way every run.
type queue []queueItem

func (q queue) Len() int { return len(q) }
func (q queue) Less(i, j int) bool {
	if q[i].dist != q[j].dist {
		return q[i].dist < q[j].dist
	}
	return q[i].id < q[j].id
}
func (q queue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *queue) Push(x any) { *q = append(*q, x.(queueItem)) }
func (q *queue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}
